package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/notifications"
)

func (s *Service) CreateProject(ctx context.Context, actor auth.Actor, in ProjectInput) (Project, error) {
	if err := auth.Require(actor, auth.ActWorkManage); err != nil {
		return Project{}, err
	}
	p, err := projectFromInput(in)
	if err != nil {
		return Project{}, err
	}
	return s.store.CreateProject(ctx, p)
}

func (s *Service) UpdateProject(ctx context.Context, actor auth.Actor, id string, in ProjectInput) (Project, error) {
	if err := auth.Require(actor, auth.ActWorkManage); err != nil {
		return Project{}, err
	}
	existing, err := s.store.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	p, err := projectFromInput(in)
	if err != nil {
		return Project{}, err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return Project{}, err
	}
	return p, nil
}

func projectFromInput(in ProjectInput) (Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Project{}, errs.Invalid("name", "is required")
	}
	status := in.Status
	if status == "" {
		status = ProjectActive
	}
	if !status.IsValid() {
		return Project{}, errs.Invalid("status", "must be one of active, completed, on_hold")
	}
	if in.StartDate.IsZero() {
		return Project{}, errs.Invalid("startDate", "is required")
	}
	p := Project{
		Name:       name,
		Department: strings.TrimSpace(in.Department),
		Status:     status,
		IsBillable: in.IsBillable,
		StartDate:  calendar.DateOnly(in.StartDate),
	}
	if in.EndDate != nil {
		end := calendar.DateOnly(*in.EndDate)
		if end.Before(p.StartDate) {
			return Project{}, errs.Invalid("endDate", "must be on or after startDate")
		}
		p.EndDate = &end
	}
	return p, nil
}

func (s *Service) CreateTask(ctx context.Context, actor auth.Actor, in TaskInput) (Task, error) {
	if err := auth.Require(actor, auth.ActWorkManage); err != nil {
		return Task{}, err
	}
	t, err := taskFromInput(ctx, s.store, in)
	if err != nil {
		return Task{}, err
	}
	t.AssignedBy = actor.UserID
	return s.store.CreateTask(ctx, t)
}

// UpdateTask replaces a task's planning fields. Tasks stay on their project.
func (s *Service) UpdateTask(ctx context.Context, actor auth.Actor, id string, in TaskInput) (Task, error) {
	if err := auth.Require(actor, auth.ActWorkManage); err != nil {
		return Task{}, err
	}
	existing, err := s.store.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if in.ProjectID == "" {
		in.ProjectID = existing.ProjectID
	}
	if in.ProjectID != existing.ProjectID {
		return Task{}, errs.Invalid("projectId", "a task cannot move to another project")
	}
	t, err := taskFromInput(ctx, s.store, in)
	if err != nil {
		return Task{}, err
	}
	t.ID = existing.ID
	t.AssignedBy = existing.AssignedBy
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return Task{}, err
	}
	return t, nil
}

func taskFromInput(ctx context.Context, store StoreAPI, in TaskInput) (Task, error) {
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return Task{}, errs.Invalid("projectId", "is required")
	}
	if _, err := store.GetProject(ctx, projectID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Task{}, errs.Invalid("projectId", "does not exist")
		}
		return Task{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Task{}, errs.Invalid("name", "is required")
	}
	t := Task{
		ProjectID:   projectID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		IsBillable:  in.IsBillable,
		TaskType:    in.TaskType,
		Priority:    in.Priority,
		Status:      in.Status,
	}
	if t.TaskType == "" {
		t.TaskType = TaskProject
	}
	if !t.TaskType.IsValid() {
		return Task{}, errs.Invalid("taskType", "must be one of project, annual_leave, medical_leave, unpaid_leave, time_off")
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Priority.IsValid() {
		return Task{}, errs.Invalid("priority", "must be one of low, medium, high, urgent")
	}
	if t.Status == "" {
		t.Status = TaskNotStarted
	}
	if !t.Status.IsValid() {
		return Task{}, errs.Invalid("status", "must be one of not_started, in_progress, completed")
	}
	if in.EstimatedHours != nil {
		if *in.EstimatedHours < 0 {
			return Task{}, errs.Invalid("estimatedHours", "must not be negative")
		}
		hours := *in.EstimatedHours
		t.EstimatedHours = &hours
	}
	if in.DueDate != nil {
		due := calendar.DateOnly(*in.DueDate)
		t.DueDate = &due
	}
	return t, nil
}

func (s *Service) AssignProject(ctx context.Context, actor auth.Actor, projectID string, userIDs []string) ([]Assignment, error) {
	if err := auth.Require(actor, auth.ActWorkManage); err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	added, err := s.assign(ctx, actor, AssignProject, p.ID, userIDs)
	if err != nil {
		return nil, err
	}
	for _, userID := range added {
		s.notify(ctx, userID, notifications.TypeProjectAssigned, "Assigned to project",
			fmt.Sprintf("You have been assigned to project %s.", p.Name))
	}
	return s.store.ListAssignments(ctx, AssignmentFilter{Kind: AssignProject, TargetID: p.ID})
}

func (s *Service) AssignTask(ctx context.Context, actor auth.Actor, taskID string, userIDs []string) ([]Assignment, error) {
	if err := auth.Require(actor, auth.ActWorkManage); err != nil {
		return nil, err
	}
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	added, err := s.assign(ctx, actor, AssignTask, t.ID, userIDs)
	if err != nil {
		return nil, err
	}
	for _, userID := range added {
		body := fmt.Sprintf("You have been assigned the task %s.", t.Name)
		if t.DueDate != nil {
			body = fmt.Sprintf("You have been assigned the task %s, due %s.", t.Name, t.DueDate.Format("2006-01-02"))
		}
		s.notify(ctx, userID, notifications.TypeTaskAssigned, "New task assigned", body)
	}
	return s.store.ListAssignments(ctx, AssignmentFilter{Kind: AssignTask, TargetID: t.ID})
}

// assign adds every user or none and returns those not already assigned.
func (s *Service) assign(ctx context.Context, actor auth.Actor, kind AssignmentKind, targetID string, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, errs.Invalid("userIds", "is required")
	}
	now := s.now().UTC()
	var added []string
	err := s.store.WithTx(ctx, func(tx StoreAPI) error {
		added = added[:0]
		seen := map[string]bool{}
		for i, userID := range userIDs {
			userID = strings.TrimSpace(userID)
			if userID == "" || seen[userID] {
				continue
			}
			seen[userID] = true
			if _, err := tx.GetEmployee(ctx, userID); err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return errs.Invalid(fmt.Sprintf("userIds[%d]", i), "does not exist")
				}
				return err
			}
			existing, err := tx.ListAssignments(ctx, AssignmentFilter{Kind: kind, TargetID: targetID, UserID: userID})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				continue
			}
			if err := tx.Assign(ctx, Assignment{Kind: kind, TargetID: targetID, UserID: userID, AssignedBy: actor.UserID, AssignedAt: now}); err != nil {
				return err
			}
			added = append(added, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *Service) Unassign(ctx context.Context, actor auth.Actor, kind AssignmentKind, targetID, userID string) error {
	if err := auth.Require(actor, auth.ActWorkManage); err != nil {
		return err
	}
	return s.store.Unassign(ctx, kind, targetID, userID)
}

func (s *Service) Assignments(ctx context.Context, kind AssignmentKind, targetID string) ([]Assignment, error) {
	switch kind {
	case AssignProject:
		if _, err := s.store.GetProject(ctx, targetID); err != nil {
			return nil, err
		}
	case AssignTask:
		if _, err := s.store.GetTask(ctx, targetID); err != nil {
			return nil, err
		}
	default:
		return nil, errs.Invalid("kind", "must be project or task")
	}
	return s.store.ListAssignments(ctx, AssignmentFilter{Kind: kind, TargetID: targetID})
}

// CanLogTo reports whether employeeID may book hours on task. Leave tasks
// are open to everyone. Otherwise, once the task or its project has
// assignees, the employee must be one of them.
func (s *Service) CanLogTo(ctx context.Context, employeeID string, task Task) (bool, error) {
	if task.TaskType.IsLeave() {
		return true, nil
	}
	onProject, err := s.store.ListAssignments(ctx, AssignmentFilter{Kind: AssignProject, TargetID: task.ProjectID})
	if err != nil {
		return false, err
	}
	onTask, err := s.store.ListAssignments(ctx, AssignmentFilter{Kind: AssignTask, TargetID: task.ID})
	if err != nil {
		return false, err
	}
	if len(onProject) == 0 && len(onTask) == 0 {
		return true, nil
	}
	for _, a := range append(onProject, onTask...) {
		if a.UserID == employeeID {
			return true, nil
		}
	}
	return false, nil
}

// AssignedTasks lists the tasks userID is assigned to, soonest due first.
func (s *Service) AssignedTasks(ctx context.Context, userID string) ([]Task, error) {
	assigned, err := s.store.ListAssignments(ctx, AssignmentFilter{Kind: AssignTask, UserID: userID})
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(assigned))
	for _, a := range assigned {
		t, err := s.store.GetTask(ctx, a.TargetID)
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ImportProjects creates every row or none. Failures name the 1-based row.
func (s *Service) ImportProjects(ctx context.Context, actor auth.Actor, rows []ProjectInput) ([]Project, error) {
	if err := auth.Require(actor, auth.ActWorkManage); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.Invalid("file", "contains no rows")
	}
	var out []Project
	err := s.store.WithTx(ctx, func(tx StoreAPI) error {
		out = make([]Project, 0, len(rows))
		for i, in := range rows {
			p, err := projectFromInput(in)
			if err != nil {
				return errs.AtRow(i+1, err)
			}
			created, err := tx.CreateProject(ctx, p)
			if err != nil {
				return fmt.Errorf("import project row %d: %w", i+1, err)
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

// ImportTasks creates every row or none. A row may reference a project
// created earlier in the same transaction.
func (s *Service) ImportTasks(ctx context.Context, actor auth.Actor, rows []TaskInput) ([]Task, error) {
	if err := auth.Require(actor, auth.ActWorkManage); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.Invalid("file", "contains no rows")
	}
	var out []Task
	err := s.store.WithTx(ctx, func(tx StoreAPI) error {
		out = make([]Task, 0, len(rows))
		for i, in := range rows {
			t, err := taskFromInput(ctx, tx, in)
			if err != nil {
				return errs.AtRow(i+1, err)
			}
			t.AssignedBy = actor.UserID
			created, err := tx.CreateTask(ctx, t)
			if err != nil {
				return fmt.Errorf("import task row %d: %w", i+1, err)
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

func (s *Service) notify(ctx context.Context, userID, ntype, title, body string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, userID, ntype, title, body); err != nil {
		slog.Warn("assignment notification failed", "userId", userID, "type", ntype, "err", err)
	}
}
