package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/leave"
	"timesheet/internal/domain/notifications"
	"timesheet/internal/platform/memstore"
)

type sentNotification struct {
	userID string
	ntype  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, userID, ntype, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{userID: userID, ntype: ntype})
	return n.err
}

func (n *recordingNotifier) types(userID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		if s.userID == userID {
			out = append(out, s.ntype)
		}
	}
	return out
}

type fixture struct {
	db       *memstore.DB
	svc      *leave.Service
	notifier *recordingNotifier
	employee auth.Actor
	hod      auth.Actor
	hr       auth.Actor
	other    auth.Actor
}

func newFixture(t *testing.T, balances core.Balances) fixture {
	t.Helper()
	db := memstore.New()
	hod := db.PutEmployee(core.Employee{Name: "Hana HOD", Email: "hod@example.com", Role: auth.RoleManager})
	hr := db.PutEmployee(core.Employee{Name: "Hugo HR", Email: "hr@example.com", Role: auth.RoleHR})
	other := db.PutEmployee(core.Employee{Name: "Omar Other", Email: "other@example.com", Role: auth.RoleManager})
	emp := db.PutEmployee(core.Employee{Name: "Ella Employee", Email: "ella@example.com", Role: auth.RoleEmployee, HODID: hod.ID, Balances: &balances})

	notifier := &recordingNotifier{}
	svc := leave.NewService(db.Leave(), core.NewService(db.Core()), notifier)
	return fixture{
		db:       db,
		svc:      svc,
		notifier: notifier,
		employee: auth.Actor{UserID: emp.ID, Role: auth.RoleEmployee},
		hod:      auth.Actor{UserID: hod.ID, Role: auth.RoleManager},
		hr:       auth.Actor{UserID: hr.ID, Role: auth.RoleHR},
		other:    auth.Actor{UserID: other.ID, Role: auth.RoleManager},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func annual(start, end time.Time) leave.SubmitInput {
	return leave.SubmitInput{Type: leave.TypeAnnual, StartDate: start, EndDate: end, Reason: "family trip"}
}

func TestSubmitWithinBalance(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 15), date(2024, time.March, 17)))
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, req.Status)
	assert.Equal(t, 3.0, req.TotalDays)

	b, err := f.svc.Balances(ctx, f.employee, "")
	require.NoError(t, err)
	assert.Equal(t, 14.0, b.Annual, "submission must not touch the balance")

	assert.Equal(t, []string{notifications.TypeLeaveSubmitted}, f.notifier.types(f.employee.UserID))
	assert.Equal(t, []string{notifications.TypeLeaveAwaitingApproval}, f.notifier.types(f.hod.UserID))
}

func TestSubmitOverBalance(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})

	_, err := f.svc.Submit(context.Background(), f.employee, annual(date(2024, time.March, 1), date(2024, time.March, 20)))
	require.ErrorIs(t, err, errs.ErrInsufficientBalance)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14, Medical: 5})
	start := date(2024, time.March, 15)

	cases := []struct {
		name  string
		in    leave.SubmitInput
		field string
	}{
		{"unknown type", leave.SubmitInput{Type: "sabbatical", StartDate: start, EndDate: start, Reason: "x"}, "leaveType"},
		{"missing start", leave.SubmitInput{Type: leave.TypeAnnual, EndDate: start, Reason: "x"}, "startDate"},
		{"end before start", leave.SubmitInput{Type: leave.TypeAnnual, StartDate: start, EndDate: start.AddDate(0, 0, -1), Reason: "x"}, "endDate"},
		{"blank reason", leave.SubmitInput{Type: leave.TypeAnnual, StartDate: start, EndDate: start, Reason: "  "}, "reason"},
		{"medical without document", leave.SubmitInput{Type: leave.TypeMedical, StartDate: start, EndDate: start, Reason: "flu"}, "attachments"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), f.employee, tc.in)
			require.ErrorIs(t, err, errs.ErrValidation)
			field, _, ok := errs.Field(err)
			require.True(t, ok)
			assert.Equal(t, tc.field, field)
		})
	}
}

func TestSubmitUnpaidIgnoresBalance(t *testing.T) {
	f := newFixture(t, core.Balances{})

	req, err := f.svc.Submit(context.Background(), f.employee, leave.SubmitInput{
		Type: leave.TypeUnpaid, StartDate: date(2024, time.May, 1), EndDate: date(2024, time.May, 30), Reason: "travel",
	})
	require.NoError(t, err)
	assert.Equal(t, 30.0, req.TotalDays)
}

func TestFullApprovalDecrementsOnce(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 15), date(2024, time.March, 17)))
	require.NoError(t, err)

	req, err = f.svc.ApproveAsHOD(ctx, f.hod, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApprovedHOD, req.Status)
	require.NotNil(t, req.HODApprovedBy)
	assert.Equal(t, f.hod.UserID, *req.HODApprovedBy)

	b, err := f.svc.Balances(ctx, f.employee, "")
	require.NoError(t, err)
	assert.Equal(t, 14.0, b.Annual, "HOD approval must not touch the balance")

	req, err = f.svc.ApproveAsHR(ctx, f.hr, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApprovedHR, req.Status)
	require.NotNil(t, req.HRApprovedAt)

	_, err = f.svc.ApproveAsHR(ctx, f.hr, req.ID)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	b, err = f.svc.Balances(ctx, f.employee, "")
	require.NoError(t, err)
	assert.Equal(t, 11.0, b.Annual)

	assert.Equal(t, []string{
		notifications.TypeLeaveSubmitted,
		notifications.TypeLeaveApprovedHOD,
		notifications.TypeLeaveApprovedHR,
	}, f.notifier.types(f.employee.UserID))
}

func TestConcurrentHRApprovalsDecrementOnce(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 15), date(2024, time.March, 17)))
	require.NoError(t, err)
	_, err = f.svc.ApproveAsHOD(ctx, f.hod, req.ID)
	require.NoError(t, err)

	const workers = 8
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApproveAsHR(ctx, f.hr, req.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, errs.ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)

	b, err := f.svc.Balances(ctx, f.employee, "")
	require.NoError(t, err)
	assert.Equal(t, 11.0, b.Annual)
}

func TestHRApprovalFailsWhenBalanceShrank(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 5})
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 11), date(2024, time.March, 15)))
	require.NoError(t, err)
	_, err = f.svc.ApproveAsHOD(ctx, f.hod, req.ID)
	require.NoError(t, err)

	_, err = f.svc.Adjust(ctx, f.hr, f.employee.UserID, leave.TypeAnnual, -3)
	require.NoError(t, err)

	_, err = f.svc.ApproveAsHR(ctx, f.hr, req.ID)
	require.ErrorIs(t, err, errs.ErrInsufficientBalance)

	got, err := f.svc.Get(ctx, f.hr, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApprovedHOD, got.Status, "status must not move when the debit fails")
}

func TestSkippingHODStage(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 15), date(2024, time.March, 15)))
	require.NoError(t, err)

	_, err = f.svc.ApproveAsHR(ctx, f.hr, req.ID)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestApprovalAuthority(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 15), date(2024, time.March, 15)))
	require.NoError(t, err)

	_, err = f.svc.ApproveAsHOD(ctx, f.employee, req.ID)
	require.ErrorIs(t, err, errs.ErrForbidden, "employees lack the capability")

	_, err = f.svc.ApproveAsHOD(ctx, f.other, req.ID)
	require.ErrorIs(t, err, errs.ErrForbidden, "a manager from another department is not the HOD")

	_, err = f.svc.ApproveAsHOD(ctx, f.hr, req.ID)
	require.ErrorIs(t, err, errs.ErrForbidden, "HR cannot act at the HOD stage")
}

func TestReject(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 15), date(2024, time.March, 15)))
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, f.hod, req.ID, " ")
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Reject(ctx, f.hr, req.ID, "not yet")
	require.ErrorIs(t, err, errs.ErrForbidden, "pending requests are rejected at the HOD stage")

	got, err := f.svc.Reject(ctx, f.hod, req.ID, "project deadline")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, got.Status)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "project deadline", *got.RejectionReason)
	assert.Equal(t, f.hod.UserID, *got.RejectedBy)

	_, err = f.svc.Reject(ctx, f.hod, req.ID, "again")
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	_, err = f.svc.ApproveAsHOD(ctx, f.hod, req.ID)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestRejectAtHRStage(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 15), date(2024, time.March, 15)))
	require.NoError(t, err)
	_, err = f.svc.ApproveAsHOD(ctx, f.hod, req.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, f.hod, req.ID, "changed my mind")
	require.ErrorIs(t, err, errs.ErrForbidden)

	got, err := f.svc.Reject(ctx, f.hr, req.ID, "overlaps audit week")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, got.Status)
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})
	f.notifier.err = errors.New("smtp down")
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 15), date(2024, time.March, 15)))
	require.NoError(t, err)
	_, err = f.svc.ApproveAsHOD(ctx, f.hod, req.ID)
	require.NoError(t, err)
}

func TestListPendingByStage(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 4), date(2024, time.March, 4)))
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.April, 4), date(2024, time.April, 4)))
	require.NoError(t, err)
	_, err = f.svc.ApproveAsHOD(ctx, f.hod, second.ID)
	require.NoError(t, err)

	hodQueue, err := f.svc.ListPending(ctx, f.hod)
	require.NoError(t, err)
	require.Len(t, hodQueue, 1)
	assert.Equal(t, first.ID, hodQueue[0].ID)

	hrQueue, err := f.svc.ListPending(ctx, f.hr)
	require.NoError(t, err)
	require.Len(t, hrQueue, 1)
	assert.Equal(t, second.ID, hrQueue[0].ID)

	otherQueue, err := f.svc.ListPending(ctx, f.other)
	require.NoError(t, err)
	assert.Empty(t, otherQueue)

	_, err = f.svc.ListPending(ctx, f.employee)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestGetEnforcesVisibility(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 14})
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.employee, annual(date(2024, time.March, 4), date(2024, time.March, 4)))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.hod, req.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, f.other, req.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = f.svc.Get(ctx, f.hod, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAdjustRequiresHR(t *testing.T) {
	f := newFixture(t, core.Balances{Annual: 2})
	ctx := context.Background()

	_, err := f.svc.Adjust(ctx, f.hod, f.employee.UserID, leave.TypeAnnual, 5)
	require.ErrorIs(t, err, errs.ErrForbidden)

	b, err := f.svc.Adjust(ctx, f.hr, f.employee.UserID, leave.TypeAnnual, 5)
	require.NoError(t, err)
	assert.Equal(t, 7.0, b.Annual)

	_, err = f.svc.Adjust(ctx, f.hr, f.employee.UserID, leave.TypeAnnual, -10)
	require.ErrorIs(t, err, errs.ErrValidation)
}
