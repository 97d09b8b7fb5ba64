// Package tickets runs the IT support queue: employees raise tickets, IT
// administrators pick them up and resolve them.
package tickets

import (
	"time"

	"timesheet/internal/domain/core"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Category string

const (
	CategoryHardware Category = "hardware"
	CategorySoftware Category = "software"
	CategoryNetwork  Category = "network"
	CategoryAccess   Category = "access"
	CategoryOther    Category = "other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryHardware, CategorySoftware, CategoryNetwork, CategoryAccess, CategoryOther:
		return true
	}
	return false
}

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

type Ticket struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Priority    Priority          `json:"priority"`
	Category    Category          `json:"category"`
	Status      Status            `json:"status"`
	Attachments []core.Attachment `json:"attachments"`
	AssignedTo  *string           `json:"assignedTo,omitempty"`
	Resolution  string            `json:"resolution,omitempty"`
	SubmittedAt time.Time         `json:"submittedAt"`
	ResolvedAt  *time.Time        `json:"resolvedAt,omitempty"`
	ClosedAt    *time.Time        `json:"closedAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type SubmitInput struct {
	Title       string
	Description string
	// Priority defaults to medium and Category to other.
	Priority    Priority
	Category    Category
	Attachments []core.Attachment
}

type Filter struct {
	UserID     string
	AssignedTo string
	Statuses   []Status
	Priority   Priority
	Category   Category
	Limit      int
	Offset     int
}

type ListResult struct {
	Tickets []Ticket
	Total   int
}
