package overtime_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/overtime"
	"timesheet/internal/domain/timesheet"
	"timesheet/internal/platform/memstore"
)

type fixture struct {
	svc        *overtime.Service
	timesheets *timesheet.Service
	employee   auth.Actor
	hod        auth.Actor
	finance    auth.Actor
	management auth.Actor
	projectID  string
	taskID     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := memstore.New()
	hod := db.PutEmployee(core.Employee{Name: "Hana HOD", Role: auth.RoleManager, Location: calendar.LocationA})
	fin := db.PutEmployee(core.Employee{Name: "Fay Finance", Role: auth.RoleFinance, Location: calendar.LocationA})
	mgmt := db.PutEmployee(core.Employee{Name: "Max Management", Role: auth.RoleManagement, Location: calendar.LocationA})
	emp := db.PutEmployee(core.Employee{Name: "Ella Employee", Role: auth.RoleEmployee, HODID: hod.ID, Location: calendar.LocationA})
	project := db.PutProject(core.Project{Name: "Plant upgrade"})
	task := db.PutTask(core.Task{ProjectID: project.ID, Name: "Commissioning"})

	directory := core.NewService(db.Core())
	ts := timesheet.NewService(db.Timesheet(), directory, calendar.NewService(db.Calendar()), nil)
	return fixture{
		svc:        overtime.NewService(db.Overtime(), ts, directory, nil),
		timesheets: ts,
		employee:   auth.Actor{UserID: emp.ID, Role: auth.RoleEmployee},
		hod:        auth.Actor{UserID: hod.ID, Role: auth.RoleManager},
		finance:    auth.Actor{UserID: fin.ID, Role: auth.RoleFinance},
		management: auth.Actor{UserID: mgmt.ID, Role: auth.RoleManagement},
		projectID:  project.ID,
		taskID:     task.ID,
	}
}

func (f fixture) logHours(t *testing.T, date time.Time, hours float64) timesheet.Entry {
	t.Helper()
	e, err := f.timesheets.CreateEntry(context.Background(), f.employee, timesheet.EntryInput{
		ProjectID: f.projectID, TaskID: f.taskID, Date: date, HoursWorked: hours, Description: "shift",
	})
	require.NoError(t, err)
	return e
}

var proof = []core.Attachment{{ID: "a1", FileName: "attendance.pdf", FileType: core.FilePDF, URL: "/attachments/a1"}}

func TestSubmitWithoutEntriesFails(t *testing.T) {
	f := newFixture(t)
	f.logHours(t, time.Date(2024, time.January, 17, 0, 0, 0, 0, time.UTC), 8) // a regular day

	_, err := f.svc.Submit(context.Background(), f.employee, overtime.SubmitInput{
		Year: 2024, Half: overtime.FirstHalf, Attachments: proof,
	})
	require.ErrorIs(t, err, errs.ErrValidation, "nothing tagged in the period")
	field, _, _ := errs.Field(err)
	assert.Equal(t, "entries", field)
}

func TestSubmitOnlyAcceptsOwnTaggedEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	excess := f.logHours(t, time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC), 10)
	regular := f.logHours(t, time.Date(2024, time.January, 17, 0, 0, 0, 0, time.UTC), 8)
	later := f.logHours(t, time.Date(2024, time.August, 3, 0, 0, 0, 0, time.UTC), 6)

	for name, id := range map[string]string{
		"untagged entry":   regular.ID,
		"other period":     later.ID,
		"unknown entry id": "ts-forged",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, f.employee, overtime.SubmitInput{
				Year: 2024, Half: overtime.FirstHalf, Attachments: proof, TimesheetEntryIDs: []string{id},
			})
			require.ErrorIs(t, err, errs.ErrValidation)
			field, _, _ := errs.Field(err)
			assert.Equal(t, "timesheetEntryIds[0]", field)
		})
	}

	req, err := f.svc.Submit(ctx, f.employee, overtime.SubmitInput{
		Year: 2024, Half: overtime.FirstHalf, Attachments: proof, TimesheetEntryIDs: []string{excess.ID},
	})
	require.NoError(t, err)
	require.Len(t, req.Entries, 1)
	assert.Equal(t, 2.0, req.TotalOvertimeHours, "hours are copied from the stored classification")
	assert.Equal(t, overtime.ReasonExcessHours, req.Entries[0].Reason)
	assert.Equal(t, excess.ID, req.Entries[0].TimesheetEntryID)
}

func TestSubmitIgnoresOtherEmployeesEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	theirs := f.logHours(t, time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC), 6)
	f.logHours(t, time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC), 10)

	// the HOD may log time too, but never claims the employee's hours
	_, err := f.svc.Submit(ctx, f.hod, overtime.SubmitInput{
		Year: 2024, Half: overtime.FirstHalf, Attachments: proof, TimesheetEntryIDs: []string{theirs.ID},
	})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestConcurrentSubmitsFileOneClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.logHours(t, time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC), 6)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(ctx, f.employee, overtime.SubmitInput{Year: 2024, Half: overtime.FirstHalf, Attachments: proof})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for err := range results {
		if err == nil {
			created++
			continue
		}
		require.ErrorIs(t, err, errs.ErrValidation)
	}
	assert.Equal(t, 1, created)

	mine, err := f.svc.ListMine(ctx, f.employee, overtime.RequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Total)
}

func TestSubmitRequiresAttachment(t *testing.T) {
	f := newFixture(t)
	f.logHours(t, time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC), 6)

	_, err := f.svc.Submit(context.Background(), f.employee, overtime.SubmitInput{Year: 2024, Half: overtime.FirstHalf})
	require.ErrorIs(t, err, errs.ErrValidation)
	field, _, _ := errs.Field(err)
	assert.Equal(t, "attachments", field)
}

func TestSubmitCollectsTimesheetOvertime(t *testing.T) {
	f := newFixture(t)
	f.logHours(t, time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC), 6)  // saturday
	f.logHours(t, time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC), 10) // 2h excess
	f.logHours(t, time.Date(2024, time.January, 17, 0, 0, 0, 0, time.UTC), 8)  // no overtime
	f.logHours(t, time.Date(2024, time.August, 3, 0, 0, 0, 0, time.UTC), 4)    // other half

	req, err := f.svc.Submit(context.Background(), f.employee, overtime.SubmitInput{Year: 2024, Half: overtime.FirstHalf, Attachments: proof})
	require.NoError(t, err)
	assert.Equal(t, overtime.StatusPending, req.Status)
	require.Len(t, req.Entries, 2)
	assert.Equal(t, 8.0, req.TotalOvertimeHours)
	assert.Equal(t, "Plant upgrade", req.Entries[0].ProjectName)
	assert.Equal(t, "Commissioning", req.Entries[0].TaskName)

	b := overtime.BreakdownOf(req.Entries)
	assert.Equal(t, 6.0, b.Weekend)
	assert.Equal(t, 2.0, b.Excess)
}

func TestSubmitRejectsDuplicatePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.logHours(t, time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC), 6)

	first, err := f.svc.Submit(ctx, f.employee, overtime.SubmitInput{Year: 2024, Half: overtime.FirstHalf, Attachments: proof})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.employee, overtime.SubmitInput{Year: 2024, Half: overtime.FirstHalf, Attachments: proof})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Reject(ctx, f.hod, first.ID, "missing sign-off")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.employee, overtime.SubmitInput{Year: 2024, Half: overtime.FirstHalf, Attachments: proof})
	require.NoError(t, err, "a rejected claim frees the period")
}

func TestApprovalChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.logHours(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), 5)

	req, err := f.svc.Submit(ctx, f.employee, overtime.SubmitInput{Year: 2024, Half: overtime.FirstHalf, Attachments: proof})
	require.NoError(t, err)

	_, err = f.svc.ApproveAsFinance(ctx, f.finance, req.ID)
	require.ErrorIs(t, err, errs.ErrInvalidTransition, "finance cannot skip the HOD")

	_, err = f.svc.ApproveAsHOD(ctx, f.finance, req.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)

	req, err = f.svc.ApproveAsHOD(ctx, f.hod, req.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.StatusApprovedHOD, req.Status)

	_, err = f.svc.ApproveAsManagement(ctx, f.management, req.ID)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	req, err = f.svc.ApproveAsFinance(ctx, f.finance, req.ID)
	require.NoError(t, err)
	require.NotNil(t, req.FinanceApprovedBy)
	assert.Equal(t, f.finance.UserID, *req.FinanceApprovedBy)

	req, err = f.svc.ApproveAsManagement(ctx, f.management, req.ID)
	require.NoError(t, err)
	assert.Equal(t, overtime.StatusApprovedManagement, req.Status)
	require.NotNil(t, req.ManagementApprovedAt)

	_, err = f.svc.Reject(ctx, f.management, req.ID, "too late")
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestRejectFromFinanceStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.logHours(t, time.Date(2024, time.September, 7, 0, 0, 0, 0, time.UTC), 7)

	req, err := f.svc.Submit(ctx, f.employee, overtime.SubmitInput{Year: 2024, Half: overtime.SecondHalf, Attachments: proof})
	require.NoError(t, err)
	_, err = f.svc.ApproveAsHOD(ctx, f.hod, req.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, f.finance, req.ID, "")
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Reject(ctx, f.hod, req.ID, "second thoughts")
	require.ErrorIs(t, err, errs.ErrForbidden, "the HOD stage is over")

	req, err = f.svc.Reject(ctx, f.finance, req.ID, "rates not agreed")
	require.NoError(t, err)
	assert.Equal(t, overtime.StatusRejected, req.Status)
	assert.Equal(t, "rates not agreed", *req.RejectionReason)
}

func TestListPendingPerStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.logHours(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), 5)

	req, err := f.svc.Submit(ctx, f.employee, overtime.SubmitInput{Year: 2024, Half: overtime.FirstHalf, Attachments: proof})
	require.NoError(t, err)

	queue, err := f.svc.ListPending(ctx, f.hod)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	queue, err = f.svc.ListPending(ctx, f.finance)
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = f.svc.ApproveAsHOD(ctx, f.hod, req.ID)
	require.NoError(t, err)

	queue, err = f.svc.ListPending(ctx, f.finance)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, req.ID, queue[0].ID)

	_, err = f.svc.ListPending(ctx, f.employee)
	require.ErrorIs(t, err, errs.ErrForbidden)
}
