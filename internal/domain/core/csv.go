package core

import (
	"io"

	"timesheet/internal/platform/csvimport"
)

// ParseProjectsCSV reads name,department,status,startDate,endDate,isBillable.
func ParseProjectsCSV(r io.Reader) ([]ProjectInput, error) {
	rows, err := csvimport.Read(r, "name", "startDate")
	if err != nil {
		return nil, err
	}
	out := make([]ProjectInput, 0, len(rows))
	for _, row := range rows {
		if err := row.Require("name", "startDate"); err != nil {
			return nil, err
		}
		start, err := row.Date("startDate")
		if err != nil {
			return nil, err
		}
		end, err := row.Date("endDate")
		if err != nil {
			return nil, err
		}
		billable, err := row.Bool("isBillable")
		if err != nil {
			return nil, err
		}
		out = append(out, ProjectInput{
			Name:       row.Get("name"),
			Department: row.Get("department"),
			Status:     ProjectStatus(row.Get("status")),
			IsBillable: billable,
			StartDate:  *start,
			EndDate:    end,
		})
	}
	return out, nil
}

// ParseTasksCSV reads projectId,name,description,estimatedHours,isBillable,
// taskType,priority,status,dueDate.
func ParseTasksCSV(r io.Reader) ([]TaskInput, error) {
	rows, err := csvimport.Read(r, "projectId", "name")
	if err != nil {
		return nil, err
	}
	out := make([]TaskInput, 0, len(rows))
	for _, row := range rows {
		if err := row.Require("projectId", "name"); err != nil {
			return nil, err
		}
		estimate, err := row.Float("estimatedHours")
		if err != nil {
			return nil, err
		}
		billable, err := row.Bool("isBillable")
		if err != nil {
			return nil, err
		}
		due, err := row.Date("dueDate")
		if err != nil {
			return nil, err
		}
		out = append(out, TaskInput{
			ProjectID:      row.Get("projectId"),
			Name:           row.Get("name"),
			Description:    row.Get("description"),
			EstimatedHours: estimate,
			IsBillable:     billable,
			TaskType:       TaskType(row.Get("taskType")),
			Priority:       TaskPriority(row.Get("priority")),
			Status:         TaskStatus(row.Get("status")),
			DueDate:        due,
		})
	}
	return out, nil
}
