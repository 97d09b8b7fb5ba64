package overtime

import (
	"time"

	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
)

// Half selects one of the two claim periods in a year.
type Half string

const (
	FirstHalf  Half = "first_half"
	SecondHalf Half = "second_half"
)

func (h Half) IsValid() bool {
	return h == FirstHalf || h == SecondHalf
}

type Period struct {
	Year int  `json:"year"`
	Half Half `json:"half"`
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	if t.Month() <= time.June {
		return Period{Year: t.Year(), Half: FirstHalf}
	}
	return Period{Year: t.Year(), Half: SecondHalf}
}

func (p Period) Validate() error {
	if p.Year < 2000 || p.Year > 9999 {
		return errs.Invalid("year", "must be a four digit year")
	}
	if !p.Half.IsValid() {
		return errs.Invalid("half", "must be first_half or second_half")
	}
	return nil
}

// Start is the first day of the period (UTC).
func (p Period) Start() time.Time {
	if p.Half == SecondHalf {
		return time.Date(p.Year, time.July, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last day of the period (UTC), inclusive.
func (p Period) End() time.Time {
	if p.Half == SecondHalf {
		return time.Date(p.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(p.Year, time.June, 30, 0, 0, 0, 0, time.UTC)
}

func (p Period) Contains(t time.Time) bool {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(p.Start()) && !d.After(p.End())
}

type Status string

const (
	StatusPending            Status = "pending"
	StatusApprovedHOD        Status = "approved_hod"
	StatusApprovedFinance    Status = "approved_finance"
	StatusApprovedManagement Status = "approved_management"
	StatusRejected           Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApprovedHOD, StatusApprovedFinance, StatusApprovedManagement, StatusRejected:
		return true
	}
	return false
}

// Entry is one day of overtime carried by a claim.
type Entry struct {
	ID               string    `json:"id,omitempty"`
	TimesheetEntryID string    `json:"timesheetEntryId,omitempty"`
	Date             time.Time `json:"date"`
	ProjectName      string    `json:"projectName"`
	TaskName         string    `json:"taskName"`
	Hours            float64   `json:"hours"`
	Description      string    `json:"description,omitempty"`
	Reason           Reason    `json:"reason"`
}

type Request struct {
	ID                   string            `json:"id"`
	EmployeeID           string            `json:"employeeId"`
	Year                 int               `json:"year"`
	Half                 Half              `json:"half"`
	Entries              []Entry           `json:"entries"`
	TotalOvertimeHours   float64           `json:"totalOvertimeHours"`
	Attachments          []core.Attachment `json:"attachments"`
	Notes                string            `json:"notes,omitempty"`
	Status               Status            `json:"status"`
	SubmittedAt          time.Time         `json:"submittedAt"`
	HODApprovedAt        *time.Time        `json:"hodApprovedAt,omitempty"`
	HODApprovedBy        *string           `json:"hodApprovedBy,omitempty"`
	FinanceApprovedAt    *time.Time        `json:"financeApprovedAt,omitempty"`
	FinanceApprovedBy    *string           `json:"financeApprovedBy,omitempty"`
	ManagementApprovedAt *time.Time        `json:"managementApprovedAt,omitempty"`
	ManagementApprovedBy *string           `json:"managementApprovedBy,omitempty"`
	RejectedAt           *time.Time        `json:"rejectedAt,omitempty"`
	RejectedBy           *string           `json:"rejectedBy,omitempty"`
	RejectionReason      *string           `json:"rejectionReason,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

func (r Request) Period() Period {
	return Period{Year: r.Year, Half: r.Half}
}

type SubmitInput struct {
	Year        int
	Half        Half
	Attachments []core.Attachment
	// TimesheetEntryIDs narrows the claim to these overtime-tagged entries.
	// Empty claims every tagged entry in the period.
	TimesheetEntryIDs []string
	Notes             string
}

type RequestFilter struct {
	EmployeeID  string
	EmployeeIDs []string
	Statuses    []Status
	Year        int
	Half        Half
	Limit       int
	Offset      int
}

type RequestListResult struct {
	Requests []Request
	Total    int
}
