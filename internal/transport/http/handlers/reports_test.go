package handlers_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"timesheet/internal/domain/auth"
)

func TestClaimPDFDownload(t *testing.T) {
	srv := newTestServer(t)
	logHours(t, srv, "2024-08-03", 5) // saturday

	proof := srv.upload(t, auth.RoleEmployee, "attendance.pdf", pdfProof)
	var req overtimeRequest
	expect(t, srv.do(t, http.MethodPost, "/api/v1/overtime/requests", auth.RoleEmployee, map[string]any{
		"year":          2024,
		"half":          "second_half",
		"notes":         "plant shutdown weekend",
		"attachmentIds": []string{proof},
	}), http.StatusCreated).decode(t, &req)

	resp := expect(t, srv.do(t, http.MethodGet, "/api/v1/reports/overtime/"+req.ID+"/claim.pdf", auth.RoleEmployee, nil), http.StatusOK)
	assert.Equal(t, "application/pdf", resp.header.Get("Content-Type"))
	assert.Contains(t, resp.header.Get("Content-Disposition"), ".pdf")
	assert.True(t, bytes.HasPrefix(resp.raw, []byte("%PDF")))

	// finance reviews every claim
	expect(t, srv.do(t, http.MethodGet, "/api/v1/reports/overtime/"+req.ID+"/claim.pdf", auth.RoleFinance, nil), http.StatusOK)
	expect(t, srv.do(t, http.MethodGet, "/api/v1/reports/overtime/missing/claim.pdf", auth.RoleFinance, nil), http.StatusNotFound)
}

func TestVarianceWorkbookExport(t *testing.T) {
	srv := newTestServer(t)
	logHours(t, srv, "2024-03-04", 9)

	expect(t, srv.do(t, http.MethodGet, "/api/v1/reports/variance.xlsx?year=2024&month=3", auth.RoleEmployee, nil), http.StatusForbidden)
	expect(t, srv.do(t, http.MethodGet, "/api/v1/reports/variance.xlsx?year=2024&month=13", auth.RoleHR, nil), http.StatusBadRequest)

	resp := expect(t, srv.do(t, http.MethodGet, "/api/v1/reports/variance.xlsx?year=2024&month=3&projectId="+seedProjectID, auth.RoleHR, nil), http.StatusOK)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.header.Get("Content-Type"))

	book, err := excelize.OpenReader(bytes.NewReader(resp.raw))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"Team", "Tasks"}, book.GetSheetList())

	title, err := book.GetCellValue("Team", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Variance 2024-03", title)
}

func TestVarianceEndpoints(t *testing.T) {
	srv := newTestServer(t)
	logHours(t, srv, "2024-03-04", 9)

	var mine struct {
		EmployeeID string `json:"employeeId"`
	}
	expect(t, srv.do(t, http.MethodGet, "/api/v1/variance/me?year=2024&month=3", auth.RoleEmployee, nil), http.StatusOK).decode(t, &mine)

	expect(t, srv.do(t, http.MethodGet, "/api/v1/variance/team?year=2024&month=3", auth.RoleEmployee, nil), http.StatusForbidden)
	expect(t, srv.do(t, http.MethodGet, "/api/v1/variance/team?year=2024&month=3", auth.RoleManager, nil), http.StatusOK)
	expect(t, srv.do(t, http.MethodGet, "/api/v1/variance/projects/"+seedProjectID, auth.RoleManager, nil), http.StatusOK)
}
