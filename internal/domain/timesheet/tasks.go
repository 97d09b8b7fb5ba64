package timesheet

import (
	"context"
	"slices"
	"time"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/core"
)

// AssignedTask is a task seen by its assignee, with the hours they have
// booked against it.
type AssignedTask struct {
	core.Task
	LoggedHours float64 `json:"loggedHours"`
	// Progress is logged over estimated hours as a percentage, capped at 100.
	// It is nil when the task has no estimate.
	Progress        *float64        `json:"progress,omitempty"`
	EffectiveStatus core.TaskStatus `json:"effectiveStatus"`
}

type TaskFilter struct {
	Statuses   []core.TaskStatus
	Priorities []core.TaskPriority
}

// MyTasks lists the tasks assigned to the actor. A task past its due date
// and short of its estimate is overdue; hours logged on a not-started task
// make it in progress.
func (s *Service) MyTasks(ctx context.Context, actor auth.Actor, filter TaskFilter) ([]AssignedTask, error) {
	if err := auth.Require(actor, auth.ActTimesheetWrite); err != nil {
		return nil, err
	}
	tasks, err := s.directory.AssignedTasks(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return []AssignedTask{}, nil
	}
	entries, err := s.store.ListEntries(ctx, EntryFilter{EmployeeID: actor.UserID})
	if err != nil {
		return nil, err
	}
	logged := map[string]float64{}
	for _, e := range entries {
		logged[e.TaskID] += e.HoursWorked
	}

	today := calendar.DateOnly(s.now().UTC())
	out := make([]AssignedTask, 0, len(tasks))
	for _, t := range tasks {
		view := AssignedTask{Task: t, LoggedHours: logged[t.ID]}
		if t.EstimatedHours != nil && *t.EstimatedHours > 0 {
			pct := min(view.LoggedHours / *t.EstimatedHours * 100, 100)
			view.Progress = &pct
		}
		view.EffectiveStatus = effectiveStatus(view, today)
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, view.EffectiveStatus) {
			continue
		}
		if len(filter.Priorities) > 0 && !slices.Contains(filter.Priorities, t.Priority) {
			continue
		}
		out = append(out, view)
	}
	return out, nil
}

func effectiveStatus(view AssignedTask, today time.Time) core.TaskStatus {
	if view.Status == core.TaskCompleted {
		return core.TaskCompleted
	}
	complete := view.Progress != nil && *view.Progress >= 100
	if view.DueDate != nil && today.After(*view.DueDate) && !complete {
		return core.TaskOverdue
	}
	if view.Status == core.TaskNotStarted && view.LoggedHours > 0 {
		return core.TaskInProgress
	}
	if view.Status == "" {
		return core.TaskNotStarted
	}
	return view.Status
}
