package timesheet

import (
	"time"

	"timesheet/internal/domain/overtime"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved:
		return true
	}
	return false
}

// Entry is one day's hours on a task. The weekend, holiday and overtime
// fields are a snapshot taken when the entry was classified.
type Entry struct {
	ID                  string           `json:"id"`
	EmployeeID          string           `json:"employeeId"`
	ProjectID           string           `json:"projectId"`
	TaskID              string           `json:"taskId"`
	Date                time.Time        `json:"date"`
	HoursWorked         float64          `json:"hoursWorked"`
	Description         string           `json:"description,omitempty"`
	IsBillable          bool             `json:"isBillable"`
	Status              Status           `json:"status"`
	IsWeekend           bool             `json:"isWeekend"`
	IsHoliday           bool             `json:"isHoliday"`
	HolidayName         *string          `json:"holidayName,omitempty"`
	IsOvertime          bool             `json:"isOvertime"`
	OvertimeHours       *float64         `json:"overtimeHours,omitempty"`
	OvertimeReason      *overtime.Reason `json:"overtimeReason,omitempty"`
	OvertimeExplanation string           `json:"overtimeExplanation,omitempty"`
	LeaveType           *string          `json:"leaveType,omitempty"`
	SubmittedAt         *time.Time       `json:"submittedAt,omitempty"`
	ApprovedAt          *time.Time       `json:"approvedAt,omitempty"`
	ApprovedBy          *string          `json:"approvedBy,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

type EntryInput struct {
	ProjectID   string
	TaskID      string
	Date        time.Time
	HoursWorked float64
	Description string
	// IsBillable defaults to the task's flag when nil.
	IsBillable *bool
}

type EntryFilter struct {
	EmployeeID  string
	EmployeeIDs []string
	ProjectID   string
	TaskID      string
	From        time.Time
	To          time.Time
	Statuses    []Status
}
