package leave

import (
	"time"

	"timesheet/internal/domain/core"
)

// Type is one of the four leave categories.
type Type string

const (
	TypeAnnual  Type = "annual_leave"
	TypeMedical Type = "medical_leave"
	TypeUnpaid  Type = "unpaid_leave"
	TypeTimeOff Type = "time_off"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeAnnual, TypeMedical, TypeUnpaid, TypeTimeOff:
		return true
	}
	return false
}

// Bounded reports whether requests of this type are limited by a balance.
func (t Type) Bounded() bool {
	return t.IsValid() && t != TypeUnpaid
}

// TypeForTask maps a leave task type onto its leave category.
func TypeForTask(tt core.TaskType) (Type, bool) {
	t := Type(tt)
	return t, t.IsValid()
}

type Status string

const (
	StatusPending     Status = "pending"
	StatusApprovedHOD Status = "approved_hod"
	StatusApprovedHR  Status = "approved_hr"
	StatusRejected    Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApprovedHOD, StatusApprovedHR, StatusRejected:
		return true
	}
	return false
}

type Request struct {
	ID              string            `json:"id"`
	EmployeeID      string            `json:"employeeId"`
	Type            Type              `json:"leaveType"`
	StartDate       time.Time         `json:"startDate"`
	EndDate         time.Time         `json:"endDate"`
	TotalDays       float64           `json:"totalDays"`
	Reason          string            `json:"reason"`
	Attachments     []core.Attachment `json:"attachments,omitempty"`
	Status          Status            `json:"status"`
	SubmittedAt     time.Time         `json:"submittedAt"`
	HODApprovedAt   *time.Time        `json:"hodApprovedAt,omitempty"`
	HODApprovedBy   *string           `json:"hodApprovedBy,omitempty"`
	HRApprovedAt    *time.Time        `json:"hrApprovedAt,omitempty"`
	HRApprovedBy    *string           `json:"hrApprovedBy,omitempty"`
	RejectedAt      *time.Time        `json:"rejectedAt,omitempty"`
	RejectedBy      *string           `json:"rejectedBy,omitempty"`
	RejectionReason *string           `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type SubmitInput struct {
	Type        Type
	StartDate   time.Time
	EndDate     time.Time
	Reason      string
	Attachments []core.Attachment
}

type RequestFilter struct {
	EmployeeID  string
	EmployeeIDs []string
	Statuses    []Status
	Limit       int
	Offset      int
}

type RequestListResult struct {
	Requests []Request
	Total    int
}
