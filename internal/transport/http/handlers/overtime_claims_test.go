package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/auth"
)

func logEntry(t *testing.T, srv *testServer, date string, hours float64) string {
	t.Helper()
	var entry struct {
		ID string `json:"id"`
	}
	expect(t, srv.do(t, http.MethodPost, "/api/v1/timesheet/entries", auth.RoleEmployee, map[string]any{
		"projectId":   seedProjectID,
		"taskId":      seedTaskID,
		"date":        date,
		"hoursWorked": hours,
	}), http.StatusCreated).decode(t, &entry)
	return entry.ID
}

func TestOvertimeClaimHoursComeFromTimesheet(t *testing.T) {
	srv := newTestServer(t)
	logEntry(t, srv, "2024-01-16", 10) // two hours past the workday
	proof := srv.upload(t, auth.RoleEmployee, "attendance.pdf", pdfProof)

	var req overtimeRequest
	expect(t, srv.do(t, http.MethodPost, "/api/v1/overtime/requests", auth.RoleEmployee, map[string]any{
		"year":          2024,
		"half":          "first_half",
		"attachmentIds": []string{proof},
		"entries": []map[string]any{
			{"date": "2024-01-16", "hours": 500, "reason": "weekend"},
			{"date": "2024-02-06", "hours": 24, "reason": "holiday"},
		},
	}), http.StatusCreated).decode(t, &req)
	assert.Equal(t, 2.0, req.TotalOvertimeHours)

	var detail struct {
		Request struct {
			Entries []struct {
				Hours  float64 `json:"hours"`
				Reason string  `json:"reason"`
			} `json:"entries"`
		} `json:"request"`
	}
	expect(t, srv.do(t, http.MethodGet, "/api/v1/overtime/requests/"+req.ID, auth.RoleEmployee, nil), http.StatusOK).decode(t, &detail)
	require.Len(t, detail.Request.Entries, 1)
	assert.Equal(t, 2.0, detail.Request.Entries[0].Hours)
	assert.Equal(t, "excess_hours", detail.Request.Entries[0].Reason)
}

func TestOvertimeClaimSelectsOwnTaggedEntries(t *testing.T) {
	srv := newTestServer(t)
	saturday := logEntry(t, srv, "2024-03-02", 5)
	logEntry(t, srv, "2024-03-05", 11)
	regular := logEntry(t, srv, "2024-03-06", 8)
	proof := srv.upload(t, auth.RoleEmployee, "attendance.pdf", pdfProof)

	submit := func(ids ...string) response {
		return srv.do(t, http.MethodPost, "/api/v1/overtime/requests", auth.RoleEmployee, map[string]any{
			"year":              2024,
			"half":              "first_half",
			"attachmentIds":     []string{proof},
			"timesheetEntryIds": ids,
		})
	}

	resp := expect(t, submit(regular), http.StatusBadRequest)
	assert.Contains(t, fieldErrors(t, resp), "timesheetEntryIds[0]")
	resp = expect(t, submit("00000000-0000-4000-8000-00000000dead"), http.StatusBadRequest)
	assert.Contains(t, fieldErrors(t, resp), "timesheetEntryIds[0]")

	var req overtimeRequest
	expect(t, submit(saturday), http.StatusCreated).decode(t, &req)
	assert.Equal(t, 5.0, req.TotalOvertimeHours)
}

func TestRefusedSubmitDiscardsUploads(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("year", "2024"))
	require.NoError(t, mw.WriteField("half", "first_half"))
	part, err := mw.CreateFormFile("documents", "attendance.pdf")
	require.NoError(t, err)
	_, err = part.Write(pdfProof)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.url+"/api/v1/overtime/requests", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	// nothing logged, so there is nothing to claim
	resp := expect(t, srv.send(t, req, auth.RoleEmployee), http.StatusBadRequest)
	assert.Contains(t, fieldErrors(t, resp), "entries")

	stored, err := os.ReadDir(srv.attachmentDir)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
