package variance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/timesheet"
	"timesheet/internal/domain/variance"
	"timesheet/internal/platform/memstore"
)

type fixture struct {
	svc        *variance.Service
	timesheets *timesheet.Service
	employee   auth.Actor
	hod        auth.Actor
	hr         auth.Actor
	projectID  string
	taskID     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := memstore.New()
	hod := db.PutEmployee(core.Employee{Name: "Hana HOD", Role: auth.RoleManager, Location: calendar.LocationA})
	hr := db.PutEmployee(core.Employee{Name: "Hugo HR", Role: auth.RoleHR, Location: calendar.LocationA})
	emp := db.PutEmployee(core.Employee{Name: "Ella Employee", Role: auth.RoleEmployee, HODID: hod.ID, Location: calendar.LocationA})
	estimate := 20.0
	project := db.PutProject(core.Project{Name: "Audit"})
	task := db.PutTask(core.Task{ProjectID: project.ID, Name: "Fieldwork", EstimatedHours: &estimate})
	db.PutTask(core.Task{ProjectID: project.ID, Name: "Reporting"})

	directory := core.NewService(db.Core())
	cal := calendar.NewService(db.Calendar())
	ts := timesheet.NewService(db.Timesheet(), directory, cal, nil)
	return fixture{
		svc:        variance.NewService(directory, cal, db.Timesheet()),
		timesheets: ts,
		employee:   auth.Actor{UserID: emp.ID, Role: auth.RoleEmployee},
		hod:        auth.Actor{UserID: hod.ID, Role: auth.RoleManager},
		hr:         auth.Actor{UserID: hr.ID, Role: auth.RoleHR},
		projectID:  project.ID,
		taskID:     task.ID,
	}
}

// logApproved books hours on consecutive January 2024 weekdays and approves them.
func (f fixture) logApproved(t *testing.T, days int, hours float64) {
	t.Helper()
	ctx := context.Background()
	d := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for logged := 0; logged < days; d = d.AddDate(0, 0, 1) {
		if calendar.IsWeekend(d) {
			continue
		}
		_, err := f.timesheets.CreateEntry(ctx, f.employee, timesheet.EntryInput{ProjectID: f.projectID, TaskID: f.taskID, Date: d, HoursWorked: hours})
		require.NoError(t, err)
		logged++
	}
	_, err := f.timesheets.SubmitEntries(ctx, f.employee, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	entries, err := f.timesheets.List(ctx, f.employee, timesheet.EntryFilter{})
	require.NoError(t, err)
	for _, e := range entries {
		_, err := f.timesheets.ApproveEntry(ctx, f.hod, e.ID)
		require.NoError(t, err)
	}
}

func TestEmployeeMonth(t *testing.T) {
	f := newFixture(t)
	f.logApproved(t, 19, 7.5)

	got, err := f.svc.EmployeeMonth(context.Background(), f.employee, "", 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, 23, got.WorkingDays)
	assert.InDelta(t, 184, got.Expected, 1e-9)
	assert.InDelta(t, 142.5, got.Actual, 1e-9)
	assert.InDelta(t, -41.5, got.Variance, 1e-9)
	assert.False(t, got.AtRisk)
}

func TestEmployeeMonthIgnoresUnapproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.timesheets.CreateEntry(ctx, f.employee, timesheet.EntryInput{
		ProjectID: f.projectID, TaskID: f.taskID, Date: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), HoursWorked: 8,
	})
	require.NoError(t, err)

	got, err := f.svc.EmployeeMonth(ctx, f.employee, "", 2024, 1)
	require.NoError(t, err)
	assert.Zero(t, got.Actual)
}

func TestEmployeeMonthVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.EmployeeMonth(ctx, f.employee, f.hod.UserID, 2024, 1)
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.EmployeeMonth(ctx, f.hod, f.employee.UserID, 2024, 1)
	require.NoError(t, err)

	_, err = f.svc.EmployeeMonth(ctx, f.hod, f.employee.UserID, 2024, 13)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rows, err := f.svc.Team(ctx, f.hod, 2024, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, f.employee.UserID, rows[0].EmployeeID)

	rows, err = f.svc.Team(ctx, f.hr, 2024, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = f.svc.Team(ctx, f.employee, 2024, 1)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestByTask(t *testing.T) {
	f := newFixture(t)
	f.logApproved(t, 3, 8)

	got, err := f.svc.ByTask(context.Background(), f.hod, f.projectID)
	require.NoError(t, err)
	require.Len(t, got.Tasks, 2)

	byName := map[string]variance.TaskVariance{}
	for _, tv := range got.Tasks {
		byName[tv.TaskName] = tv
	}
	field := byName["Fieldwork"]
	assert.True(t, field.Estimated)
	assert.InDelta(t, 4, field.Variance, 1e-9)
	assert.InDelta(t, 20, field.VariancePercentage, 1e-9)
	assert.True(t, field.AtRisk)

	assert.False(t, byName["Reporting"].Estimated)
	assert.InDelta(t, 24, got.Total.Actual, 1e-9)
}
