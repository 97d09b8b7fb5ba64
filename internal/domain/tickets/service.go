package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/notifications"
	"timesheet/internal/domain/workflow"
)

var tracer = otel.Tracer("timesheet/internal/domain/tickets")

const maxTitleLength = 200

type Directory interface {
	Employee(ctx context.Context, id string) (core.Employee, error)
	EmployeesWithRole(ctx context.Context, role auth.Role) ([]core.Employee, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, ntype, title, body string) error
}

type Service struct {
	store     StoreAPI
	directory Directory
	notifier  Notifier
	now       func() time.Time
}

func NewService(store StoreAPI, directory Directory, notifier Notifier) *Service {
	return &Service{store: store, directory: directory, notifier: notifier, now: time.Now}
}

func (s *Service) Submit(ctx context.Context, actor auth.Actor, in SubmitInput) (Ticket, error) {
	ctx, span := tracer.Start(ctx, "tickets.Submit")
	defer span.End()

	if err := auth.Require(actor, auth.ActTicketSubmit); err != nil {
		return Ticket{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Ticket{}, errs.Invalid("title", "is required")
	}
	if len(title) > maxTitleLength {
		return Ticket{}, errs.Invalid("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return Ticket{}, errs.Invalid("description", "is required")
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return Ticket{}, errs.Invalid("priority", "must be one of low, medium, high, urgent")
	}
	category := in.Category
	if category == "" {
		category = CategoryOther
	}
	if !category.IsValid() {
		return Ticket{}, errs.Invalid("category", "must be one of hardware, software, network, access, other")
	}

	now := s.now().UTC()
	t, err := s.store.CreateTicket(ctx, Ticket{
		UserID:      actor.UserID,
		Title:       title,
		Description: description,
		Priority:    priority,
		Category:    category,
		Status:      StatusOpen,
		Attachments: in.Attachments,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Ticket{}, err
	}
	span.SetAttributes(attribute.String("tickets.ticket_id", t.ID))

	s.notify(ctx, t.UserID, notifications.TypeTicketSubmitted, "IT ticket submitted",
		fmt.Sprintf("Your ticket %q was received and is waiting for IT support.", t.Title))
	admins, err := s.directory.EmployeesWithRole(ctx, auth.RoleITAdmin)
	if err != nil {
		slog.Warn("ticket submit: it admin lookup failed", "ticketId", t.ID, "err", err)
	}
	for _, admin := range admins {
		if admin.ID == t.UserID {
			continue
		}
		s.notify(ctx, admin.ID, notifications.TypeTicketSubmitted, "New IT ticket",
			fmt.Sprintf("A %s priority %s ticket was raised: %s", t.Priority, t.Category, t.Title))
	}
	return t, nil
}

// Get returns a ticket to its submitter or to IT support.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Ticket, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if t.UserID != actor.UserID && !actor.Can(auth.ActTicketManage) {
		return Ticket{}, fmt.Errorf("%w: ticket belongs to another user", errs.ErrForbidden)
	}
	return t, nil
}

// List shows IT support every ticket matching filter. Everyone else sees
// only their own tickets.
func (s *Service) List(ctx context.Context, actor auth.Actor, filter Filter) (ListResult, error) {
	if !actor.Can(auth.ActTicketManage) {
		if err := auth.Require(actor, auth.ActTicketSubmit); err != nil {
			return ListResult{}, err
		}
		filter.UserID = actor.UserID
		filter.AssignedTo = ""
	}
	return s.store.ListTickets(ctx, filter)
}

// Assign hands a ticket to a member of IT support.
func (s *Service) Assign(ctx context.Context, actor auth.Actor, id, assigneeID string) (Ticket, error) {
	ctx, span := tracer.Start(ctx, "tickets.Assign")
	defer span.End()

	if err := auth.Require(actor, auth.ActTicketManage); err != nil {
		return Ticket{}, err
	}
	assignee, err := s.directory.Employee(ctx, strings.TrimSpace(assigneeID))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Ticket{}, errs.Invalid("assigneeId", "does not exist")
		}
		return Ticket{}, err
	}
	if !auth.Can(assignee.Role, auth.ActTicketManage) {
		return Ticket{}, errs.Invalid("assigneeId", "is not part of IT support")
	}

	var out Ticket
	err = s.store.WithTx(ctx, func(tx StoreAPI) error {
		t, err := tx.LockTicket(ctx, id)
		if err != nil {
			return err
		}
		if Transitions.IsTerminal(t.Status) {
			return fmt.Errorf("%w: ticket is %s", errs.ErrInvalidTransition, t.Status)
		}
		t.AssignedTo = &assignee.ID
		t.UpdatedAt = s.now().UTC()
		if err := tx.UpdateTicket(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return Ticket{}, err
	}
	if assignee.ID != actor.UserID {
		s.notify(ctx, assignee.ID, notifications.TypeTicketAssigned, "IT ticket assigned to you",
			fmt.Sprintf("You are now handling %q.", out.Title))
	}
	return out, nil
}

// Transition fires trigger on a ticket. Support staff may fire any trigger;
// the submitter may only close or reopen their own ticket. note becomes the
// resolution when resolving.
func (s *Service) Transition(ctx context.Context, actor auth.Actor, id string, trigger workflow.Trigger, note string) (Ticket, error) {
	ctx, span := tracer.Start(ctx, "tickets.Transition")
	defer span.End()
	span.SetAttributes(attribute.String("tickets.trigger", trigger.String()))

	if actor.UserID == "" {
		return Ticket{}, auth.Require(actor, auth.ActTicketSubmit)
	}
	note = strings.TrimSpace(note)

	var out Ticket
	err := s.store.WithTx(ctx, func(tx StoreAPI) error {
		t, err := tx.LockTicket(ctx, id)
		if err != nil {
			return err
		}
		if !actor.Can(auth.ActTicketManage) {
			if t.UserID != actor.UserID {
				return fmt.Errorf("%w: ticket belongs to another user", errs.ErrForbidden)
			}
			if !ownerMayFire(trigger) {
				return auth.Require(actor, auth.ActTicketManage)
			}
		}
		next, err := Transitions.Next(t.Status, trigger)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		switch trigger {
		case workflow.TriggerStart:
			if t.AssignedTo == nil {
				t.AssignedTo = &actor.UserID
			}
		case workflow.TriggerResolve:
			t.Resolution = note
			t.ResolvedAt = &now
		case workflow.TriggerClose:
			t.ClosedAt = &now
		case workflow.TriggerReopen:
			t.Resolution = ""
			t.ResolvedAt = nil
		}
		t.Status = next
		t.UpdatedAt = now
		if err := tx.UpdateTicket(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return Ticket{}, err
	}

	if out.UserID != actor.UserID {
		body := fmt.Sprintf("Your ticket %q is now %s.", out.Title, statusLabel(out.Status))
		if trigger == workflow.TriggerResolve && out.Resolution != "" {
			body += " Resolution: " + out.Resolution
		}
		s.notify(ctx, out.UserID, notifications.TypeTicketUpdated, "IT ticket updated", body)
	}
	return out, nil
}

func statusLabel(st Status) string {
	return strings.ReplaceAll(string(st), "_", " ")
}

func (s *Service) notify(ctx context.Context, userID, ntype, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, ntype, title, body); err != nil {
		slog.Warn("ticket notification failed", "userId", userID, "type", ntype, "err", err)
	}
}
