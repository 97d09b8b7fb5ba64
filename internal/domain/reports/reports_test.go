package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"timesheet/internal/domain/core"
	"timesheet/internal/domain/overtime"
	"timesheet/internal/domain/variance"
)

func TestRenderClaimPDF(t *testing.T) {
	approvedAt := time.Date(2024, time.July, 2, 9, 30, 0, 0, time.UTC)
	hod := "hod-1"
	req := overtime.Request{
		ID:   "req-1",
		Year: 2024, Half: overtime.FirstHalf,
		Entries: []overtime.Entry{
			{Date: time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC), ProjectName: "Plant", TaskName: "Commissioning", Hours: 6, Reason: overtime.ReasonWeekend},
		},
		TotalOvertimeHours: 6,
		Status:             overtime.StatusApprovedHOD,
		HODApprovedAt:      &approvedAt,
		HODApprovedBy:      &hod,
	}

	var buf bytes.Buffer
	require.NoError(t, RenderClaimPDF(&buf, req, core.Employee{Name: "Ella", Department: "Ops"}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRenderVarianceWorkbook(t *testing.T) {
	rows := []variance.EmployeeMonth{
		{EmployeeName: "Ella", Department: "Ops", WorkingDays: 20, Result: variance.Compute(160, 142.5)},
	}
	estimate := variance.TaskVariance{TaskName: "Fieldwork", Estimated: true, Result: variance.Compute(20, 24)}
	project := &variance.ProjectVariance{ProjectName: "Audit", Tasks: []variance.TaskVariance{estimate}}

	buf, err := RenderVarianceWorkbook(rows, project, 2024, 1)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Team", "Tasks"}, f.GetSheetList())
	name, err := f.GetCellValue("Team", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Ella", name)
	pct, err := f.GetCellValue("Team", "G3")
	require.NoError(t, err)
	assert.Equal(t, "-10.94", pct)
	task, err := f.GetCellValue("Tasks", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Fieldwork", task)
}
