package timesheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/notifications"
	"timesheet/internal/domain/overtime"
)

const maxHoursPerDay = 24

type Directory interface {
	Employee(ctx context.Context, id string) (core.Employee, error)
	Project(ctx context.Context, id string) (core.Project, error)
	Task(ctx context.Context, id string) (core.Task, error)
	CanActFor(ctx context.Context, actor auth.Actor, employeeID string) error
	CanLogTo(ctx context.Context, employeeID string, task core.Task) (bool, error)
	AssignedTasks(ctx context.Context, userID string) ([]core.Task, error)
}

type Classifier interface {
	ClassifyFor(ctx context.Context, date time.Time, location calendar.Location) (calendar.Classification, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, ntype, title, body string) error
}

type Service struct {
	store     StoreAPI
	directory Directory
	calendar  Classifier
	notifier  Notifier
	now       func() time.Time

	Rules           overtime.Rules
	DefaultLocation calendar.Location
}

func NewService(store StoreAPI, directory Directory, classifier Classifier, notifier Notifier) *Service {
	return &Service{
		store:           store,
		directory:       directory,
		calendar:        classifier,
		notifier:        notifier,
		now:             time.Now,
		Rules:           overtime.DefaultRules,
		DefaultLocation: calendar.LocationA,
	}
}

func (s *Service) CreateEntry(ctx context.Context, actor auth.Actor, in EntryInput) (Entry, error) {
	if err := auth.Require(actor, auth.ActTimesheetWrite); err != nil {
		return Entry{}, err
	}
	emp, err := s.directory.Employee(ctx, actor.UserID)
	if err != nil {
		return Entry{}, err
	}
	e, err := s.newEntry(ctx, emp, in)
	if err != nil {
		return Entry{}, err
	}
	return s.store.CreateEntry(ctx, e)
}

// ImportEntries creates a draft for every row or for none of them.
// Failures name the 1-based row.
func (s *Service) ImportEntries(ctx context.Context, actor auth.Actor, rows []EntryInput) ([]Entry, error) {
	if err := auth.Require(actor, auth.ActTimesheetWrite); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.Invalid("file", "contains no rows")
	}
	emp, err := s.directory.Employee(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	var out []Entry
	err = s.store.WithTx(ctx, func(tx StoreAPI) error {
		out = make([]Entry, 0, len(rows))
		for i, in := range rows {
			e, err := s.newEntry(ctx, emp, in)
			if err != nil {
				return errs.AtRow(i+1, err)
			}
			created, err := tx.CreateEntry(ctx, e)
			if err != nil {
				return fmt.Errorf("import entry row %d: %w", i+1, err)
			}
			out = append(out, created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// newEntry validates in and builds a classified draft for emp.
func (s *Service) newEntry(ctx context.Context, emp core.Employee, in EntryInput) (Entry, error) {
	task, err := s.validateInput(ctx, emp.ID, in)
	if err != nil {
		return Entry{}, err
	}
	now := s.now().UTC()
	e := Entry{
		EmployeeID:  emp.ID,
		ProjectID:   in.ProjectID,
		TaskID:      in.TaskID,
		Date:        calendar.DateOnly(in.Date),
		HoursWorked: in.HoursWorked,
		Description: strings.TrimSpace(in.Description),
		IsBillable:  task.IsBillable,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsBillable != nil {
		e.IsBillable = *in.IsBillable
	}
	if err := s.classify(ctx, &e, emp, task); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// UpdateEntry edits a draft entry and classifies it again.
func (s *Service) UpdateEntry(ctx context.Context, actor auth.Actor, id string, in EntryInput) (Entry, error) {
	if err := auth.Require(actor, auth.ActTimesheetWrite); err != nil {
		return Entry{}, err
	}
	e, err := s.ownedDraft(ctx, actor, id)
	if err != nil {
		return Entry{}, err
	}
	task, err := s.validateInput(ctx, actor.UserID, in)
	if err != nil {
		return Entry{}, err
	}
	emp, err := s.directory.Employee(ctx, actor.UserID)
	if err != nil {
		return Entry{}, err
	}

	e.ProjectID = in.ProjectID
	e.TaskID = in.TaskID
	e.Date = calendar.DateOnly(in.Date)
	e.HoursWorked = in.HoursWorked
	e.Description = strings.TrimSpace(in.Description)
	e.IsBillable = task.IsBillable
	if in.IsBillable != nil {
		e.IsBillable = *in.IsBillable
	}
	e.UpdatedAt = s.now().UTC()
	if err := s.classify(ctx, &e, emp, task); err != nil {
		return Entry{}, err
	}
	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if err := s.directory.CanActFor(ctx, actor, e.EmployeeID); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// SubmitEntries moves the actor's drafts dated within [from, to] to submitted.
func (s *Service) SubmitEntries(ctx context.Context, actor auth.Actor, from, to time.Time) ([]Entry, error) {
	if err := auth.Require(actor, auth.ActTimesheetWrite); err != nil {
		return nil, err
	}
	if from.IsZero() || to.IsZero() {
		return nil, errs.Invalid("from", "from and to are required")
	}
	if to.Before(from) {
		return nil, errs.Invalid("to", "must be on or after from")
	}
	now := s.now().UTC()
	var out []Entry
	err := s.store.WithTx(ctx, func(tx StoreAPI) error {
		drafts, err := tx.ListEntries(ctx, EntryFilter{
			EmployeeID: actor.UserID,
			From:       calendar.DateOnly(from),
			To:         calendar.DateOnly(to),
			Statuses:   []Status{StatusDraft},
		})
		if err != nil {
			return err
		}
		out = make([]Entry, 0, len(drafts))
		for _, e := range drafts {
			e.Status = StatusSubmitted
			e.SubmittedAt = &now
			e.UpdatedAt = now
			if err := tx.UpdateEntry(ctx, e); err != nil {
				return fmt.Errorf("submit entry %s: %w", e.ID, err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ApproveEntry(ctx context.Context, actor auth.Actor, id string) (Entry, error) {
	if err := auth.Require(actor, auth.ActTimesheetApprove); err != nil {
		return Entry{}, err
	}
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if e.Status != StatusSubmitted {
		return Entry{}, fmt.Errorf("%w: entry is %s, expected %s", errs.ErrInvalidTransition, e.Status, StatusSubmitted)
	}
	if e.EmployeeID == actor.UserID {
		return Entry{}, fmt.Errorf("%w: cannot approve own entry", errs.ErrForbidden)
	}
	if !actor.HasOrgScope() {
		emp, err := s.directory.Employee(ctx, e.EmployeeID)
		if err != nil {
			return Entry{}, err
		}
		if emp.HODID != actor.UserID {
			return Entry{}, fmt.Errorf("%w: %s is not the head of department for %s", errs.ErrForbidden, actor.UserID, e.EmployeeID)
		}
	}

	now := s.now().UTC()
	e.Status = StatusApproved
	e.ApprovedAt = &now
	e.ApprovedBy = &actor.UserID
	e.UpdatedAt = now
	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return Entry{}, err
	}

	if s.notifier != nil {
		body := fmt.Sprintf("Your timesheet entry for %s (%.1f hours) was approved.", e.Date.Format("2006-01-02"), e.HoursWorked)
		if err := s.notifier.Notify(ctx, e.EmployeeID, notifications.TypeTimesheetApproved, "Timesheet entry approved", body); err != nil {
			slog.Warn("timesheet notification failed", "entryId", e.ID, "err", err)
		}
	}
	return e, nil
}

// List returns entries for filter.EmployeeID, or the actor's own entries
// when it is empty.
func (s *Service) List(ctx context.Context, actor auth.Actor, filter EntryFilter) ([]Entry, error) {
	if filter.EmployeeID == "" && len(filter.EmployeeIDs) == 0 {
		filter.EmployeeID = actor.UserID
	}
	if filter.EmployeeID != "" {
		if err := s.directory.CanActFor(ctx, actor, filter.EmployeeID); err != nil {
			return nil, err
		}
	}
	for _, id := range filter.EmployeeIDs {
		if err := s.directory.CanActFor(ctx, actor, id); err != nil {
			return nil, err
		}
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, errs.Invalid("to", "must be on or after from")
	}
	return s.store.ListEntries(ctx, filter)
}

// OvertimeEntries converts the employee's overtime-tagged entries in
// [from, to] into claim entries.
func (s *Service) OvertimeEntries(ctx context.Context, employeeID string, from, to time.Time) ([]overtime.Entry, error) {
	entries, err := s.store.ListEntries(ctx, EntryFilter{EmployeeID: employeeID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	names := newNameCache(s.directory)
	var out []overtime.Entry
	for _, e := range entries {
		if !e.IsOvertime || e.OvertimeHours == nil || e.OvertimeReason == nil {
			continue
		}
		projectName, taskName := names.lookup(ctx, e.ProjectID, e.TaskID)
		out = append(out, overtime.Entry{
			TimesheetEntryID: e.ID,
			Date:             e.Date,
			ProjectName:      projectName,
			TaskName:         taskName,
			Hours:            *e.OvertimeHours,
			Description:      e.Description,
			Reason:           *e.OvertimeReason,
		})
	}
	return out, nil
}

func (s *Service) validateInput(ctx context.Context, employeeID string, in EntryInput) (core.Task, error) {
	if in.Date.IsZero() {
		return core.Task{}, errs.Invalid("date", "is required")
	}
	if in.HoursWorked < 0 || in.HoursWorked > maxHoursPerDay {
		return core.Task{}, errs.Invalid("hoursWorked", "must be between 0 and 24")
	}
	if strings.TrimSpace(in.ProjectID) == "" {
		return core.Task{}, errs.Invalid("projectId", "is required")
	}
	if strings.TrimSpace(in.TaskID) == "" {
		return core.Task{}, errs.Invalid("taskId", "is required")
	}
	if _, err := s.directory.Project(ctx, in.ProjectID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return core.Task{}, errs.Invalid("projectId", "does not exist")
		}
		return core.Task{}, err
	}
	task, err := s.directory.Task(ctx, in.TaskID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return core.Task{}, errs.Invalid("taskId", "does not exist")
		}
		return core.Task{}, err
	}
	if task.ProjectID != in.ProjectID {
		return core.Task{}, errs.Invalid("taskId", "does not belong to the project")
	}
	allowed, err := s.directory.CanLogTo(ctx, employeeID, task)
	if err != nil {
		return core.Task{}, err
	}
	if !allowed {
		return core.Task{}, errs.Invalid("taskId", "you are not assigned to this task or its project")
	}
	return task, nil
}

// classify stamps the calendar and overtime snapshot onto e. Hours booked
// against a leave task are tagged as leave and never count as overtime.
func (s *Service) classify(ctx context.Context, e *Entry, emp core.Employee, task core.Task) error {
	loc := emp.Location
	if !loc.IsSite() {
		loc = s.DefaultLocation
	}
	c, err := s.calendar.ClassifyFor(ctx, e.Date, loc)
	if err != nil {
		return err
	}
	e.IsWeekend = c.IsWeekend
	e.IsHoliday = c.IsHoliday
	e.HolidayName = c.HolidayName
	e.IsOvertime = false
	e.OvertimeHours = nil
	e.OvertimeReason = nil
	e.OvertimeExplanation = ""
	e.LeaveType = nil

	if task.TaskType.IsLeave() {
		lt := string(task.TaskType)
		e.LeaveType = &lt
		return nil
	}

	res := s.Rules.Classify(e.HoursWorked, c)
	if res.IsOvertime {
		hours := res.OvertimeHours
		e.IsOvertime = true
		e.OvertimeHours = &hours
		e.OvertimeReason = res.Reason
		e.OvertimeExplanation = res.Explanation
	}
	return nil
}

func (s *Service) ownedDraft(ctx context.Context, actor auth.Actor, id string) (Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if e.EmployeeID != actor.UserID {
		return Entry{}, fmt.Errorf("%w: only the owner can edit an entry", errs.ErrForbidden)
	}
	if e.Status != StatusDraft {
		return Entry{}, fmt.Errorf("%w: entry is %s, only drafts can be edited", errs.ErrInvalidTransition, e.Status)
	}
	return e, nil
}

type nameCache struct {
	directory Directory
	projects  map[string]string
	tasks     map[string]string
}

func newNameCache(directory Directory) *nameCache {
	return &nameCache{directory: directory, projects: map[string]string{}, tasks: map[string]string{}}
}

func (c *nameCache) lookup(ctx context.Context, projectID, taskID string) (string, string) {
	project, ok := c.projects[projectID]
	if !ok {
		if p, err := c.directory.Project(ctx, projectID); err == nil {
			project = p.Name
		} else {
			project = projectID
		}
		c.projects[projectID] = project
	}
	task, ok := c.tasks[taskID]
	if !ok {
		if t, err := c.directory.Task(ctx, taskID); err == nil {
			task = t.Name
		} else {
			task = taskID
		}
		c.tasks[taskID] = task
	}
	return project, task
}
