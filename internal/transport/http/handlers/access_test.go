package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/auth"
	"timesheet/internal/platform/db"
)

func TestAnonymousRequestsAreRejected(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/v1/me", "/api/v1/leave/requests", "/api/v1/timesheet/entries", "/api/v1/notifications", "/api/v1/holidays/"} {
		resp := expect(t, srv.do(t, http.MethodGet, path, auth.Role(""), nil), http.StatusUnauthorized)
		require.NotNil(t, resp.env.Error, path)
		assert.Equal(t, "unauthorized", resp.env.Error.Code, path)
	}

	expect(t, srv.do(t, http.MethodGet, "/healthz", auth.Role(""), nil), http.StatusOK)
	expect(t, srv.do(t, http.MethodGet, "/readyz", auth.Role(""), nil), http.StatusOK)
}

func TestMeListsCapabilities(t *testing.T) {
	srv := newTestServer(t)

	var me struct {
		Employee struct {
			ID    string `json:"id"`
			HODID string `json:"hodId"`
		} `json:"employee"`
		Capabilities []string `json:"capabilities"`
	}
	expect(t, srv.do(t, http.MethodGet, "/api/v1/me", auth.RoleEmployee, nil), http.StatusOK).decode(t, &me)
	assert.Equal(t, db.SeedEmployeeID, me.Employee.ID)
	assert.Equal(t, db.SeedHODID, me.Employee.HODID)
	assert.Contains(t, me.Capabilities, string(auth.ActLeaveSubmit))
	assert.NotContains(t, me.Capabilities, string(auth.ActHolidaysManage))

	// employees see only themselves; HR sees the whole organisation
	expect(t, srv.do(t, http.MethodGet, "/api/v1/employees/"+db.SeedFinanceID, auth.RoleEmployee, nil), http.StatusForbidden)
	var everyone []map[string]any
	expect(t, srv.do(t, http.MethodGet, "/api/v1/employees", auth.RoleHR, nil), http.StatusOK).decode(t, &everyone)
	assert.Len(t, everyone, 6)
}

func TestHolidayManagement(t *testing.T) {
	srv := newTestServer(t)
	holiday := map[string]any{"name": "Plant anniversary", "date": "2024-03-15", "location": "location_a"}

	expect(t, srv.do(t, http.MethodPost, "/api/v1/holidays/", auth.RoleEmployee, holiday), http.StatusForbidden)
	expect(t, srv.do(t, http.MethodPost, "/api/v1/holidays/", auth.RoleManager, holiday), http.StatusForbidden)

	var created struct {
		ID string `json:"id"`
	}
	expect(t, srv.do(t, http.MethodPost, "/api/v1/holidays/", auth.RoleHR, holiday), http.StatusCreated).decode(t, &created)
	require.NotEmpty(t, created.ID)

	var days struct {
		WorkingDays int `json:"workingDays"`
	}
	expect(t, srv.do(t, http.MethodGet, "/api/v1/holidays/working-days?from=2024-03-01&to=2024-03-31&location=location_a", auth.RoleEmployee, nil), http.StatusOK).decode(t, &days)
	assert.Equal(t, 20, days.WorkingDays)
	expect(t, srv.do(t, http.MethodGet, "/api/v1/holidays/working-days?from=2024-03-01&to=2024-03-31&location=location_b", auth.RoleEmployee, nil), http.StatusOK).decode(t, &days)
	assert.Equal(t, 21, days.WorkingDays)

	var c struct {
		IsWeekend   bool    `json:"isWeekend"`
		IsHoliday   bool    `json:"isHoliday"`
		HolidayName *string `json:"holidayName"`
	}
	expect(t, srv.do(t, http.MethodGet, "/api/v1/holidays/classify?date=2024-12-25&location=location_b", auth.RoleEmployee, nil), http.StatusOK).decode(t, &c)
	assert.True(t, c.IsHoliday)
	assert.False(t, c.IsWeekend)
	require.NotNil(t, c.HolidayName)
	assert.Equal(t, "Christmas Day", *c.HolidayName)

	expect(t, srv.do(t, http.MethodDelete, "/api/v1/holidays/"+created.ID, auth.RoleHR, nil), http.StatusOK)
	expect(t, srv.do(t, http.MethodGet, "/api/v1/holidays/working-days?from=2024-03-01&to=2024-03-31&location=location_a", auth.RoleEmployee, nil), http.StatusOK).decode(t, &days)
	assert.Equal(t, 21, days.WorkingDays)

	var events []struct {
		Action   string `json:"action"`
		EntityID string `json:"entityId"`
	}
	expect(t, srv.do(t, http.MethodGet, "/api/v1/audit/events?entityType=public_holiday", auth.RoleHR, nil), http.StatusOK).decode(t, &events)
	var actions []string
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{"holiday.create", "holiday.delete"}, actions)

	expect(t, srv.do(t, http.MethodGet, "/api/v1/audit/events", auth.RoleEmployee, nil), http.StatusForbidden)
}

func TestValidationErrorShape(t *testing.T) {
	srv := newTestServer(t)

	resp := expect(t, srv.do(t, http.MethodPost, "/api/v1/leave/requests", auth.RoleEmployee, map[string]any{
		"leaveType": "sabbatical",
		"startDate": "2024-04-10",
		"endDate":   "2024-04-01",
	}), http.StatusBadRequest)
	fields := fieldErrors(t, resp)
	assert.Contains(t, fields, "leaveType")
	assert.Contains(t, fields, "startDate")
	assert.Contains(t, fields, "endDate")
	assert.Contains(t, fields, "reason")

	resp = expect(t, srv.do(t, http.MethodPost, "/api/v1/timesheet/entries", auth.RoleEmployee, map[string]any{
		"projectId":   seedProjectID,
		"taskId":      seedTaskID,
		"date":        "not-a-date",
		"hoursWorked": 30,
	}), http.StatusBadRequest)
	fields = fieldErrors(t, resp)
	assert.Contains(t, fields, "date")
	assert.Contains(t, fields, "hoursWorked")

	resp = expect(t, srv.do(t, http.MethodPost, "/api/v1/holidays/", auth.RoleHR, map[string]any{
		"name":     "",
		"date":     "2024-01-01",
		"location": "mars",
	}), http.StatusBadRequest)
	fields = fieldErrors(t, resp)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "location")

	resp = expect(t, srv.do(t, http.MethodGet, "/api/v1/overtime/preview?year=24&half=third", auth.RoleEmployee, nil), http.StatusBadRequest)
	assert.Equal(t, "validation_error", resp.env.Error.Code)
}

func TestIdempotentSubmitReplays(t *testing.T) {
	srv := newTestServer(t)
	body := `{"leaveType":"annual_leave","startDate":"2024-09-02","endDate":"2024-09-02","reason":"appointment"}`

	submit := func(payload string) response {
		req, err := http.NewRequest(http.MethodPost, srv.url+"/api/v1/leave/requests", strings.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "leave-2024-09-02")
		return srv.send(t, req, auth.RoleEmployee)
	}

	var first, second leaveRequest
	expect(t, submit(body), http.StatusCreated).decode(t, &first)
	expect(t, submit(body), http.StatusCreated).decode(t, &second)
	assert.Equal(t, first.ID, second.ID)

	expect(t, submit(strings.Replace(body, "appointment", "other", 1)), http.StatusConflict)

	var mine []leaveRequest
	expect(t, srv.do(t, http.MethodGet, "/api/v1/leave/requests", auth.RoleEmployee, nil), http.StatusOK).decode(t, &mine)
	assert.Len(t, mine, 1)
}

func TestMetricsCountTransitions(t *testing.T) {
	srv := newTestServer(t)
	expect(t, srv.do(t, http.MethodPost, "/api/v1/leave/requests", auth.RoleEmployee, map[string]any{
		"leaveType": "annual_leave",
		"startDate": "2024-10-01",
		"endDate":   "2024-10-01",
		"reason":    "moving house",
	}), http.StatusCreated)

	var snapshot struct {
		Transitions map[string]int `json:"transitions"`
	}
	expect(t, srv.do(t, http.MethodGet, "/metrics", auth.Role(""), nil), http.StatusOK).decode(t, &snapshot)
	assert.Equal(t, 1, snapshot.Transitions["leave.submit"])
}
