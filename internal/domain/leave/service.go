package leave

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/notifications"
	"timesheet/internal/domain/workflow"
)

var tracer = otel.Tracer("timesheet/internal/domain/leave")

// Directory answers who reports to whom.
type Directory interface {
	Employee(ctx context.Context, id string) (core.Employee, error)
	Reports(ctx context.Context, hodID string) ([]core.Employee, error)
	CanActFor(ctx context.Context, actor auth.Actor, employeeID string) error
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

func (s *Service) Submit(ctx context.Context, actor auth.Actor, in SubmitInput) (Request, error) {
	ctx, span := tracer.Start(ctx, "leave.Submit")
	defer span.End()

	if err := auth.Require(actor, auth.ActLeaveSubmit); err != nil {
		return Request{}, err
	}
	if !in.Type.IsValid() {
		return Request{}, errs.Invalid("leaveType", "must be one of annual_leave, medical_leave, unpaid_leave, time_off")
	}
	if in.StartDate.IsZero() {
		return Request{}, errs.Invalid("startDate", "is required")
	}
	if in.EndDate.IsZero() {
		return Request{}, errs.Invalid("endDate", "is required")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Request{}, errs.Invalid("reason", "is required")
	}
	if in.Type == TypeMedical && len(in.Attachments) == 0 {
		return Request{}, errs.Invalid("attachments", "medical leave requires a supporting document")
	}

	start := calendar.DateOnly(in.StartDate)
	end := calendar.DateOnly(in.EndDate)
	days, err := CalculateDays(start, end)
	if err != nil {
		return Request{}, err
	}

	balances, err := s.store.Balances(ctx, actor.UserID)
	if err != nil {
		return Request{}, err
	}
	if !CheckAvailable(balances, in.Type, days) {
		return Request{}, fmt.Errorf("%w: %s needs %.1f days, %.1f remaining", errs.ErrInsufficientBalance, in.Type, days, Remaining(balances, in.Type))
	}

	now := s.now().UTC()
	req, err := s.store.CreateRequest(ctx, Request{
		EmployeeID:  actor.UserID,
		Type:        in.Type,
		StartDate:   start,
		EndDate:     end,
		TotalDays:   days,
		Reason:      reason,
		Attachments: in.Attachments,
		Status:      StatusPending,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Request{}, err
	}
	span.SetAttributes(attribute.String("leave.request_id", req.ID))

	s.notify(ctx, req.EmployeeID, notifications.TypeLeaveSubmitted,
		"Leave request submitted",
		fmt.Sprintf("Your %s request for %s to %s (%.1f days) is awaiting approval.", req.Type, formatDate(req.StartDate), formatDate(req.EndDate), req.TotalDays))
	if emp, err := s.directory.Employee(ctx, req.EmployeeID); err == nil && emp.HODID != "" {
		s.notify(ctx, emp.HODID, notifications.TypeLeaveAwaitingApproval,
			"Leave request awaiting approval",
			fmt.Sprintf("%s requested %s from %s to %s.", emp.Name, req.Type, formatDate(req.StartDate), formatDate(req.EndDate)))
	} else if err != nil {
		slog.Warn("leave submit: employee lookup failed", "employeeId", req.EmployeeID, "err", err)
	}
	return req, nil
}

func (s *Service) ApproveAsHOD(ctx context.Context, actor auth.Actor, id string) (Request, error) {
	ctx, span := tracer.Start(ctx, "leave.ApproveAsHOD")
	defer span.End()

	if err := auth.Require(actor, auth.ActLeaveApproveHOD); err != nil {
		return Request{}, err
	}

	var out Request
	err := s.store.WithTx(ctx, func(tx StoreAPI) error {
		req, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		next, err := Transitions.Next(req.Status, workflow.TriggerApproveHOD)
		if err != nil {
			return err
		}
		if err := s.checkHOD(ctx, actor, req.EmployeeID); err != nil {
			return err
		}
		now := s.now().UTC()
		req.Status = next
		req.HODApprovedAt = &now
		req.HODApprovedBy = &actor.UserID
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return Request{}, err
	}

	s.notify(ctx, out.EmployeeID, notifications.TypeLeaveApprovedHOD,
		"Leave request approved by head of department",
		fmt.Sprintf("Your %s request for %s to %s was approved by your head of department and is now with HR.", out.Type, formatDate(out.StartDate), formatDate(out.EndDate)))
	return out, nil
}

// ApproveAsHR is the final stage. The balance is debited in the same
// transaction as the status change; a failed debit leaves the request as it was.
func (s *Service) ApproveAsHR(ctx context.Context, actor auth.Actor, id string) (Request, error) {
	ctx, span := tracer.Start(ctx, "leave.ApproveAsHR")
	defer span.End()

	if err := auth.Require(actor, auth.ActLeaveApproveHR); err != nil {
		return Request{}, err
	}

	var out Request
	err := s.store.WithTx(ctx, func(tx StoreAPI) error {
		req, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		next, err := Transitions.Next(req.Status, workflow.TriggerApproveHR)
		if err != nil {
			return err
		}
		if req.EmployeeID == actor.UserID {
			return fmt.Errorf("%w: cannot approve own request", errs.ErrForbidden)
		}
		if err := NewLedger(tx).Decrement(ctx, req.EmployeeID, req.Type, req.TotalDays); err != nil {
			return err
		}
		now := s.now().UTC()
		req.Status = next
		req.HRApprovedAt = &now
		req.HRApprovedBy = &actor.UserID
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return Request{}, err
	}

	s.notify(ctx, out.EmployeeID, notifications.TypeLeaveApprovedHR,
		"Leave request approved",
		fmt.Sprintf("Your %s request for %s to %s has been fully approved.", out.Type, formatDate(out.StartDate), formatDate(out.EndDate)))
	return out, nil
}

func (s *Service) Reject(ctx context.Context, actor auth.Actor, id, reason string) (Request, error) {
	ctx, span := tracer.Start(ctx, "leave.Reject")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Request{}, errs.Invalid("reason", "is required")
	}
	if !actor.Can(auth.ActLeaveApproveHOD) && !actor.Can(auth.ActLeaveApproveHR) {
		return Request{}, auth.Require(actor, auth.ActLeaveApproveHOD)
	}

	var out Request
	err := s.store.WithTx(ctx, func(tx StoreAPI) error {
		req, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		next, err := Transitions.Next(req.Status, workflow.TriggerReject)
		if err != nil {
			return err
		}
		needed := rejectAction(req.Status)
		if err := auth.Require(actor, needed); err != nil {
			return err
		}
		if needed == auth.ActLeaveApproveHOD {
			if err := s.checkHOD(ctx, actor, req.EmployeeID); err != nil {
				return err
			}
		} else if req.EmployeeID == actor.UserID {
			return fmt.Errorf("%w: cannot reject own request", errs.ErrForbidden)
		}
		now := s.now().UTC()
		req.Status = next
		req.RejectedAt = &now
		req.RejectedBy = &actor.UserID
		req.RejectionReason = &reason
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return Request{}, err
	}

	s.notify(ctx, out.EmployeeID, notifications.TypeLeaveRejected,
		"Leave request rejected",
		fmt.Sprintf("Your %s request for %s to %s was rejected: %s", out.Type, formatDate(out.StartDate), formatDate(out.EndDate), reason))
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Request, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if err := s.directory.CanActFor(ctx, actor, req.EmployeeID); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (s *Service) ListMine(ctx context.Context, actor auth.Actor, filter RequestFilter) (RequestListResult, error) {
	filter.EmployeeID = actor.UserID
	filter.EmployeeIDs = nil
	return s.store.ListRequests(ctx, normalizeFilter(filter))
}

// ListPending returns the approval queue for the actor's stage: pending
// requests of direct reports for a head of department, HOD-approved
// requests for HR.
func (s *Service) ListPending(ctx context.Context, actor auth.Actor) ([]Request, error) {
	var out []Request
	if actor.Can(auth.ActLeaveApproveHOD) {
		reports, err := s.directory.Reports(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if len(reports) > 0 {
			ids := make([]string, 0, len(reports))
			for _, emp := range reports {
				ids = append(ids, emp.ID)
			}
			res, err := s.store.ListRequests(ctx, RequestFilter{EmployeeIDs: ids, Statuses: []Status{StatusPending}})
			if err != nil {
				return nil, err
			}
			out = append(out, res.Requests...)
		}
	}
	if actor.Can(auth.ActLeaveApproveHR) {
		res, err := s.store.ListRequests(ctx, RequestFilter{Statuses: []Status{StatusApprovedHOD}})
		if err != nil {
			return nil, err
		}
		for _, req := range res.Requests {
			if req.EmployeeID != actor.UserID {
				out = append(out, req)
			}
		}
	}
	if !actor.Can(auth.ActLeaveApproveHOD) && !actor.Can(auth.ActLeaveApproveHR) {
		return nil, auth.Require(actor, auth.ActLeaveApproveHOD)
	}
	return out, nil
}

func (s *Service) Balances(ctx context.Context, actor auth.Actor, employeeID string) (core.Balances, error) {
	if employeeID == "" {
		employeeID = actor.UserID
	}
	if err := s.directory.CanActFor(ctx, actor, employeeID); err != nil {
		return core.Balances{}, err
	}
	return NewLedger(s.store).Balances(ctx, employeeID)
}

func (s *Service) Adjust(ctx context.Context, actor auth.Actor, employeeID string, t Type, delta float64) (core.Balances, error) {
	if _, err := s.directory.Employee(ctx, employeeID); err != nil {
		return core.Balances{}, err
	}
	return NewLedger(s.store).Adjust(ctx, actor, employeeID, t, delta)
}

// checkHOD enforces that HOD-stage decisions come from the requester's head
// of department, or from an actor with organisation-wide scope.
func (s *Service) checkHOD(ctx context.Context, actor auth.Actor, employeeID string) error {
	if employeeID == actor.UserID {
		return fmt.Errorf("%w: cannot decide on own request", errs.ErrForbidden)
	}
	if actor.HasOrgScope() {
		return nil
	}
	emp, err := s.directory.Employee(ctx, employeeID)
	if err != nil {
		return err
	}
	if emp.HODID == "" || emp.HODID != actor.UserID {
		return fmt.Errorf("%w: %s is not the head of department for %s", errs.ErrForbidden, actor.UserID, employeeID)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, userID, ntype, title, body string) {
	if s.notifier == nil || userID == "" {
		return
	}
	if err := s.notifier.Notify(ctx, userID, ntype, title, body); err != nil {
		slog.Warn("leave notification failed", "userId", userID, "type", ntype, "err", err)
	}
}

func normalizeFilter(f RequestFilter) RequestFilter {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
