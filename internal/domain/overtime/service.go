package overtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
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

var tracer = otel.Tracer("timesheet/internal/domain/overtime")

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
	entries   EntrySource
	directory Directory
	notifier  Notifier
	now       func() time.Time
}

func NewService(store StoreAPI, entries EntrySource, directory Directory, notifier Notifier) *Service {
	return &Service{store: store, entries: entries, directory: directory, notifier: notifier, now: time.Now}
}

// Submit files a half-year claim. Entries always come from the actor's
// overtime-tagged timesheet entries in the period; hours and reason are
// copied from the stored classification.
func (s *Service) Submit(ctx context.Context, actor auth.Actor, in SubmitInput) (Request, error) {
	ctx, span := tracer.Start(ctx, "overtime.Submit")
	defer span.End()

	if err := auth.Require(actor, auth.ActOvertimeSubmit); err != nil {
		return Request{}, err
	}
	period := Period{Year: in.Year, Half: in.Half}
	if err := period.Validate(); err != nil {
		return Request{}, err
	}

	var collected []Entry
	if s.entries != nil {
		var err error
		collected, err = s.entries.OvertimeEntries(ctx, actor.UserID, period.Start(), period.End())
		if err != nil {
			return Request{}, err
		}
	}
	entries, err := cleanEntries(collected, period)
	if err != nil {
		return Request{}, err
	}
	if len(in.TimesheetEntryIDs) > 0 {
		entries, err = selectEntries(entries, in.TimesheetEntryIDs)
		if err != nil {
			return Request{}, err
		}
	}
	if len(entries) == 0 {
		return Request{}, errs.Invalid("entries", "no overtime entries in the selected period")
	}
	if len(in.Attachments) == 0 {
		return Request{}, errs.Invalid("attachments", "attendance proof is required")
	}

	var total float64
	for _, e := range entries {
		total += e.Hours
	}

	now := s.now().UTC()
	var req Request
	err = s.store.WithTx(ctx, func(tx StoreAPI) error {
		existing, err := tx.ListRequests(ctx, RequestFilter{
			EmployeeID: actor.UserID,
			Year:       period.Year,
			Half:       period.Half,
			Statuses:   openStatuses,
		})
		if err != nil {
			return err
		}
		if existing.Total > 0 {
			return ErrPeriodTaken
		}
		req, err = tx.CreateRequest(ctx, Request{
			EmployeeID:         actor.UserID,
			Year:               period.Year,
			Half:               period.Half,
			Entries:            entries,
			TotalOvertimeHours: total,
			Attachments:        in.Attachments,
			Notes:              strings.TrimSpace(in.Notes),
			Status:             StatusPending,
			SubmittedAt:        now,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
		return err
	})
	if err != nil {
		return Request{}, err
	}
	span.SetAttributes(attribute.String("overtime.request_id", req.ID), attribute.Float64("overtime.total_hours", total))

	s.notify(ctx, req.EmployeeID, notifications.TypeOvertimeSubmitted,
		"Overtime request submitted",
		fmt.Sprintf("Your overtime claim for %s (%.1f hours) is awaiting approval.", describePeriod(req.Period()), req.TotalOvertimeHours))
	if emp, err := s.directory.Employee(ctx, req.EmployeeID); err == nil && emp.HODID != "" {
		s.notify(ctx, emp.HODID, notifications.TypeOvertimeAwaitingApproval,
			"Overtime request awaiting approval",
			fmt.Sprintf("%s claimed %.1f overtime hours for %s.", emp.Name, req.TotalOvertimeHours, describePeriod(req.Period())))
	} else if err != nil {
		slog.Warn("overtime submit: employee lookup failed", "employeeId", req.EmployeeID, "err", err)
	}
	return req, nil
}

func (s *Service) ApproveAsHOD(ctx context.Context, actor auth.Actor, id string) (Request, error) {
	return s.approve(ctx, actor, id, workflow.TriggerApproveHOD, auth.ActOvertimeApproveHOD)
}

func (s *Service) ApproveAsFinance(ctx context.Context, actor auth.Actor, id string) (Request, error) {
	return s.approve(ctx, actor, id, workflow.TriggerApproveFinance, auth.ActOvertimeApproveFinance)
}

func (s *Service) ApproveAsManagement(ctx context.Context, actor auth.Actor, id string) (Request, error) {
	return s.approve(ctx, actor, id, workflow.TriggerApproveManagement, auth.ActOvertimeApproveManagement)
}

func (s *Service) approve(ctx context.Context, actor auth.Actor, id string, trigger workflow.Trigger, action auth.Action) (Request, error) {
	ctx, span := tracer.Start(ctx, "overtime.approve")
	defer span.End()
	span.SetAttributes(attribute.String("overtime.trigger", trigger.String()))

	if err := auth.Require(actor, action); err != nil {
		return Request{}, err
	}

	var out Request
	err := s.store.WithTx(ctx, func(tx StoreAPI) error {
		req, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		next, err := Transitions.Next(req.Status, trigger)
		if err != nil {
			return err
		}
		if err := s.checkApprover(ctx, actor, action, req.EmployeeID); err != nil {
			return err
		}
		now := s.now().UTC()
		switch next {
		case StatusApprovedHOD:
			req.HODApprovedAt, req.HODApprovedBy = &now, &actor.UserID
		case StatusApprovedFinance:
			req.FinanceApprovedAt, req.FinanceApprovedBy = &now, &actor.UserID
		case StatusApprovedManagement:
			req.ManagementApprovedAt, req.ManagementApprovedBy = &now, &actor.UserID
		}
		req.Status = next
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

	ntype, title, body := approvalMessage(out)
	s.notify(ctx, out.EmployeeID, ntype, title, body)
	return out, nil
}

func approvalMessage(req Request) (string, string, string) {
	period := describePeriod(req.Period())
	switch req.Status {
	case StatusApprovedHOD:
		return notifications.TypeOvertimeApprovedHOD, "Overtime request approved by head of department",
			fmt.Sprintf("Your overtime claim for %s was approved by your head of department and is now with finance.", period)
	case StatusApprovedFinance:
		return notifications.TypeOvertimeApprovedFinance, "Overtime request approved by finance",
			fmt.Sprintf("Your overtime claim for %s was approved by finance and is now with management.", period)
	default:
		return notifications.TypeOvertimeApprovedManagement, "Overtime request approved",
			fmt.Sprintf("Your overtime claim for %s (%.1f hours) has been fully approved.", period, req.TotalOvertimeHours)
	}
}

// Reject is valid from any non-terminal status; the caller needs the
// capability of the stage the request is waiting on.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, id, reason string) (Request, error) {
	ctx, span := tracer.Start(ctx, "overtime.Reject")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Request{}, errs.Invalid("reason", "is required")
	}
	if !actor.Can(auth.ActOvertimeApproveHOD) && !actor.Can(auth.ActOvertimeApproveFinance) && !actor.Can(auth.ActOvertimeApproveManagement) {
		return Request{}, auth.Require(actor, auth.ActOvertimeApproveHOD)
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
		action := stageAction(req.Status)
		if err := auth.Require(actor, action); err != nil {
			return err
		}
		if err := s.checkApprover(ctx, actor, action, req.EmployeeID); err != nil {
			return err
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

	s.notify(ctx, out.EmployeeID, notifications.TypeOvertimeRejected,
		"Overtime request rejected",
		fmt.Sprintf("Your overtime claim for %s was rejected: %s", describePeriod(out.Period()), reason))
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
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListRequests(ctx, filter)
}

// ListPending returns the requests waiting on the actor's stage(s).
func (s *Service) ListPending(ctx context.Context, actor auth.Actor) ([]Request, error) {
	actions := []auth.Action{auth.ActOvertimeApproveHOD, auth.ActOvertimeApproveFinance, auth.ActOvertimeApproveManagement}
	var out []Request
	allowed := false
	for _, action := range actions {
		if !actor.Can(action) {
			continue
		}
		allowed = true
		filter := RequestFilter{Statuses: []Status{pendingStatus[action]}}
		if action == auth.ActOvertimeApproveHOD && !actor.HasOrgScope() {
			reports, err := s.directory.Reports(ctx, actor.UserID)
			if err != nil {
				return nil, err
			}
			if len(reports) == 0 {
				continue
			}
			for _, emp := range reports {
				filter.EmployeeIDs = append(filter.EmployeeIDs, emp.ID)
			}
		}
		res, err := s.store.ListRequests(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, req := range res.Requests {
			if req.EmployeeID != actor.UserID {
				out = append(out, req)
			}
		}
	}
	if !allowed {
		return nil, auth.Require(actor, auth.ActOvertimeApproveHOD)
	}
	return out, nil
}

// Preview returns the entries a submission for period would carry, without
// filing anything.
func (s *Service) Preview(ctx context.Context, actor auth.Actor, period Period) ([]Entry, Breakdown, error) {
	if err := auth.Require(actor, auth.ActOvertimeSubmit); err != nil {
		return nil, Breakdown{}, err
	}
	if err := period.Validate(); err != nil {
		return nil, Breakdown{}, err
	}
	if s.entries == nil {
		return nil, Breakdown{}, nil
	}
	collected, err := s.entries.OvertimeEntries(ctx, actor.UserID, period.Start(), period.End())
	if err != nil {
		return nil, Breakdown{}, err
	}
	entries, err := cleanEntries(collected, period)
	if err != nil {
		return nil, Breakdown{}, err
	}
	return entries, BreakdownOf(entries), nil
}

func (s *Service) checkApprover(ctx context.Context, actor auth.Actor, action auth.Action, employeeID string) error {
	if employeeID == actor.UserID {
		return fmt.Errorf("%w: cannot decide on own request", errs.ErrForbidden)
	}
	if action != auth.ActOvertimeApproveHOD || actor.HasOrgScope() {
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
		slog.Warn("overtime notification failed", "userId", userID, "type", ntype, "err", err)
	}
}

// cleanEntries drops non-positive hours and rejects entries outside the
// period or without a reason tag. The result is ordered by date.
func cleanEntries(in []Entry, period Period) ([]Entry, error) {
	out := make([]Entry, 0, len(in))
	for i, e := range in {
		if e.Hours <= 0 {
			continue
		}
		if !e.Reason.IsValid() {
			return nil, errs.Invalid(fmt.Sprintf("entries[%d].reason", i), "must be weekend, holiday or excess_hours")
		}
		if e.Date.IsZero() || !period.Contains(e.Date) {
			return nil, errs.Invalid(fmt.Sprintf("entries[%d].date", i), "must fall inside the selected period")
		}
		e.Date = calendar.DateOnly(e.Date)
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// selectEntries keeps the collected entries named by ids. An id that is not
// one of the caller's overtime-tagged entries in the period is rejected.
func selectEntries(collected []Entry, ids []string) ([]Entry, error) {
	byID := make(map[string]Entry, len(collected))
	for _, e := range collected {
		if e.TimesheetEntryID != "" {
			byID[e.TimesheetEntryID] = e
		}
	}
	out := make([]Entry, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		e, ok := byID[id]
		if !ok {
			return nil, errs.Invalid(fmt.Sprintf("timesheetEntryIds[%d]", i), "is not an overtime entry of yours in the selected period")
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func describePeriod(p Period) string {
	if p.Half == SecondHalf {
		return fmt.Sprintf("July-December %d", p.Year)
	}
	return fmt.Sprintf("January-June %d", p.Year)
}
