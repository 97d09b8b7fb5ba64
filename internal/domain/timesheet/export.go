package timesheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"timesheet/internal/domain/auth"
)

var csvHeader = []string{
	"date", "employee_id", "project", "task", "hours_worked", "billable", "status",
	"weekend", "holiday", "overtime_hours", "overtime_reason", "leave_type", "description",
}

// ExportCSV writes the entries visible under filter as CSV.
func (s *Service) ExportCSV(ctx context.Context, actor auth.Actor, filter EntryFilter, w io.Writer) error {
	if filter.EmployeeID != "" && filter.EmployeeID != actor.UserID {
		if err := auth.Require(actor, auth.ActReportsExport); err != nil {
			return err
		}
	}
	entries, err := s.List(ctx, actor, filter)
	if err != nil {
		return err
	}
	names := newNameCache(s.directory)

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		project, task := names.lookup(ctx, e.ProjectID, e.TaskID)
		overtimeHours, reason, leaveType := "", "", ""
		if e.OvertimeHours != nil {
			overtimeHours = formatHours(*e.OvertimeHours)
		}
		if e.OvertimeReason != nil {
			reason = string(*e.OvertimeReason)
		}
		if e.LeaveType != nil {
			leaveType = *e.LeaveType
		}
		record := []string{
			e.Date.Format("2006-01-02"),
			e.EmployeeID,
			project,
			task,
			formatHours(e.HoursWorked),
			strconv.FormatBool(e.IsBillable),
			string(e.Status),
			strconv.FormatBool(e.IsWeekend),
			strconv.FormatBool(e.IsHoliday),
			overtimeHours,
			reason,
			leaveType,
			e.Description,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
