package timesheet

import (
	"io"

	"timesheet/internal/platform/csvimport"
)

// ParseEntriesCSV reads date,projectId,taskId,hoursWorked,description and an
// optional isBillable column. A blank isBillable keeps the task's flag.
func ParseEntriesCSV(r io.Reader) ([]EntryInput, error) {
	rows, err := csvimport.Read(r, "date", "projectId", "taskId", "hoursWorked")
	if err != nil {
		return nil, err
	}
	out := make([]EntryInput, 0, len(rows))
	for _, row := range rows {
		if err := row.Require("date", "projectId", "taskId", "hoursWorked"); err != nil {
			return nil, err
		}
		date, err := row.Date("date")
		if err != nil {
			return nil, err
		}
		hours, err := row.Float("hoursWorked")
		if err != nil {
			return nil, err
		}
		in := EntryInput{
			ProjectID:   row.Get("projectId"),
			TaskID:      row.Get("taskId"),
			Date:        *date,
			HoursWorked: *hours,
			Description: row.Get("description"),
		}
		if row.Get("isBillable") != "" {
			billable, err := row.Bool("isBillable")
			if err != nil {
				return nil, err
			}
			in.IsBillable = &billable
		}
		out = append(out, in)
	}
	return out, nil
}
