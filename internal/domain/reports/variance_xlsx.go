package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"timesheet/internal/domain/variance"
)

const (
	teamSheet    = "Team"
	projectSheet = "Tasks"
)

var teamHeader = []string{"Employee", "Department", "Working days", "Expected hours", "Actual hours", "Variance", "Variance %", "Overtime hours", "At risk"}

var taskHeader = []string{"Task", "Estimated", "Expected hours", "Actual hours", "Variance", "Variance %", "At risk"}

// RenderVarianceWorkbook writes the team sheet and, when project is set, a
// per-task sheet.
func RenderVarianceWorkbook(rows []variance.EmployeeMonth, project *variance.ProjectVariance, year, month int) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", teamSheet); err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := f.SetCellValue(teamSheet, "A1", fmt.Sprintf("Variance %04d-%02d", year, month)); err != nil {
		return nil, err
	}
	if err := writeRow(f, teamSheet, 2, toAny(teamHeader)); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(teamSheet, "A2", cell(len(teamHeader), 2), header); err != nil {
		return nil, err
	}
	for i, r := range rows {
		values := []any{r.EmployeeName, r.Department, r.WorkingDays, r.Expected, r.Actual, r.Variance, round2(r.VariancePercentage), r.OvertimeHours, r.AtRisk}
		if err := writeRow(f, teamSheet, i+3, values); err != nil {
			return nil, err
		}
	}

	if project != nil {
		if _, err := f.NewSheet(projectSheet); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(projectSheet, "A1", project.ProjectName); err != nil {
			return nil, err
		}
		if err := writeRow(f, projectSheet, 2, toAny(taskHeader)); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(projectSheet, "A2", cell(len(taskHeader), 2), header); err != nil {
			return nil, err
		}
		for i, t := range project.Tasks {
			values := []any{t.TaskName, t.Estimated, t.Expected, t.Actual, t.Variance, round2(t.VariancePercentage), t.AtRisk}
			if err := writeRow(f, projectSheet, i+3, values); err != nil {
				return nil, err
			}
		}
	}

	return f.WriteToBuffer()
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		if err := f.SetCellValue(sheet, cell(col+1, row), v); err != nil {
			return err
		}
	}
	return nil
}

func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "A1"
	}
	return name
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func round2(v float64) float64 {
	return float64(int64(v*100+signHalf(v))) / 100
}

func signHalf(v float64) float64 {
	if v < 0 {
		return -0.5
	}
	return 0.5
}
