package variance

import (
	"context"
	"time"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/timesheet"
)

type Directory interface {
	Employee(ctx context.Context, id string) (core.Employee, error)
	Visible(ctx context.Context, actor auth.Actor) ([]core.Employee, error)
	CanActFor(ctx context.Context, actor auth.Actor, employeeID string) error
	Project(ctx context.Context, id string) (core.Project, error)
	Tasks(ctx context.Context, projectID string) ([]core.Task, error)
}

type Calendar interface {
	WorkingDays(ctx context.Context, from, to time.Time, location calendar.Location) (int, error)
}

// Entries lists timesheet entries; the timesheet store satisfies it.
type Entries interface {
	ListEntries(ctx context.Context, filter timesheet.EntryFilter) ([]timesheet.Entry, error)
}

type Service struct {
	directory Directory
	calendar  Calendar
	entries   Entries

	StandardHours   float64
	DefaultLocation calendar.Location
}

func NewService(directory Directory, cal Calendar, entries Entries) *Service {
	return &Service{
		directory:       directory,
		calendar:        cal,
		entries:         entries,
		StandardHours:   8,
		DefaultLocation: calendar.LocationA,
	}
}

// EmployeeMonth compares approved hours in the month against working days
// times the standard workday.
func (s *Service) EmployeeMonth(ctx context.Context, actor auth.Actor, employeeID string, year, month int) (EmployeeMonth, error) {
	if err := auth.Require(actor, auth.ActVarianceRead); err != nil {
		return EmployeeMonth{}, err
	}
	if employeeID == "" {
		employeeID = actor.UserID
	}
	if err := s.directory.CanActFor(ctx, actor, employeeID); err != nil {
		return EmployeeMonth{}, err
	}
	emp, err := s.directory.Employee(ctx, employeeID)
	if err != nil {
		return EmployeeMonth{}, err
	}
	return s.employeeMonth(ctx, emp, year, month)
}

func (s *Service) employeeMonth(ctx context.Context, emp core.Employee, year, month int) (EmployeeMonth, error) {
	from, to, err := monthRange(year, month)
	if err != nil {
		return EmployeeMonth{}, err
	}
	loc := emp.Location
	if !loc.IsSite() {
		loc = s.DefaultLocation
	}
	days, err := s.calendar.WorkingDays(ctx, from, to, loc)
	if err != nil {
		return EmployeeMonth{}, err
	}
	entries, err := s.entries.ListEntries(ctx, timesheet.EntryFilter{
		EmployeeID: emp.ID,
		From:       from,
		To:         to,
		Statuses:   []timesheet.Status{timesheet.StatusApproved},
	})
	if err != nil {
		return EmployeeMonth{}, err
	}
	var actual, overtimeHours float64
	for _, e := range entries {
		actual += e.HoursWorked
		if e.OvertimeHours != nil {
			overtimeHours += *e.OvertimeHours
		}
	}
	return EmployeeMonth{
		EmployeeID:    emp.ID,
		EmployeeName:  emp.Name,
		Department:    emp.Department,
		Year:          year,
		Month:         month,
		WorkingDays:   days,
		OvertimeHours: overtimeHours,
		Result:        Compute(float64(days)*s.StandardHours, actual),
	}, nil
}

// Team returns EmployeeMonth for everyone visible to the actor.
func (s *Service) Team(ctx context.Context, actor auth.Actor, year, month int) ([]EmployeeMonth, error) {
	if err := auth.Require(actor, auth.ActVarianceTeam); err != nil {
		return nil, err
	}
	if _, _, err := monthRange(year, month); err != nil {
		return nil, err
	}
	employees, err := s.directory.Visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	out := make([]EmployeeMonth, 0, len(employees))
	for _, emp := range employees {
		row, err := s.employeeMonth(ctx, emp, year, month)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// ByTask compares each task's estimate with the approved hours booked on it.
func (s *Service) ByTask(ctx context.Context, actor auth.Actor, projectID string) (ProjectVariance, error) {
	if err := auth.Require(actor, auth.ActVarianceTeam); err != nil {
		return ProjectVariance{}, err
	}
	project, err := s.directory.Project(ctx, projectID)
	if err != nil {
		return ProjectVariance{}, err
	}
	tasks, err := s.directory.Tasks(ctx, projectID)
	if err != nil {
		return ProjectVariance{}, err
	}
	entries, err := s.entries.ListEntries(ctx, timesheet.EntryFilter{
		ProjectID: projectID,
		Statuses:  []timesheet.Status{timesheet.StatusApproved},
	})
	if err != nil {
		return ProjectVariance{}, err
	}
	actualByTask := make(map[string]float64, len(tasks))
	for _, e := range entries {
		actualByTask[e.TaskID] += e.HoursWorked
	}

	out := ProjectVariance{ProjectID: project.ID, ProjectName: project.Name, Tasks: make([]TaskVariance, 0, len(tasks))}
	var expectedTotal, actualTotal float64
	for _, t := range tasks {
		expected := 0.0
		if t.EstimatedHours != nil {
			expected = *t.EstimatedHours
		}
		actual := actualByTask[t.ID]
		expectedTotal += expected
		actualTotal += actual
		out.Tasks = append(out.Tasks, TaskVariance{
			TaskID:    t.ID,
			TaskName:  t.Name,
			Estimated: t.EstimatedHours != nil,
			Result:    Compute(expected, actual),
		})
	}
	out.Total = Compute(expectedTotal, actualTotal)
	return out, nil
}

func monthRange(year, month int) (time.Time, time.Time, error) {
	if year < 2000 || year > 9999 {
		return time.Time{}, time.Time{}, errs.Invalid("year", "must be a four digit year")
	}
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, errs.Invalid("month", "must be between 1 and 12")
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, -1), nil
}
