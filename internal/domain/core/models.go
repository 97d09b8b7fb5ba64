package core

import (
	"time"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/calendar"
)

// Balances holds the four leave counters carried on the employee record.
// Unpaid is informational; unpaid leave is never limited by it.
type Balances struct {
	Annual  float64 `json:"annualLeave"`
	Medical float64 `json:"medicalLeave"`
	Unpaid  float64 `json:"unpaidLeave"`
	TimeOff float64 `json:"timeOff"`
}

type Employee struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Role       auth.Role         `json:"role"`
	Department string            `json:"department"`
	Location   calendar.Location `json:"location"`
	ManagerID  string            `json:"managerId,omitempty"`
	HODID      string            `json:"hodId,omitempty"`
	Balances   *Balances         `json:"balances,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on_hold"
)

type Project struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Department string        `json:"department"`
	Status     ProjectStatus `json:"status"`
	IsBillable bool          `json:"isBillable"`
	StartDate  time.Time     `json:"startDate"`
	EndDate    *time.Time    `json:"endDate,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// TaskType routes hours either to the timesheet or to one of the leave
// categories.
type TaskType string

const (
	TaskProject      TaskType = "project"
	TaskAnnualLeave  TaskType = "annual_leave"
	TaskMedicalLeave TaskType = "medical_leave"
	TaskUnpaidLeave  TaskType = "unpaid_leave"
	TaskTimeOff      TaskType = "time_off"
)

func (t TaskType) IsValid() bool {
	switch t {
	case TaskProject, TaskAnnualLeave, TaskMedicalLeave, TaskUnpaidLeave, TaskTimeOff:
		return true
	}
	return false
}

func (t TaskType) IsLeave() bool {
	return t.IsValid() && t != TaskProject
}

func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TaskStatus is stored as not_started, in_progress or completed. Overdue is
// derived from the due date when tasks are read back for an assignee.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskOverdue    TaskStatus = "overdue"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

type Task struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"projectId"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	EstimatedHours *float64     `json:"estimatedHours,omitempty"`
	IsBillable     bool         `json:"isBillable"`
	TaskType       TaskType     `json:"taskType"`
	Priority       TaskPriority `json:"priority"`
	Status         TaskStatus   `json:"status"`
	DueDate        *time.Time   `json:"dueDate,omitempty"`
	AssignedBy     string       `json:"assignedBy,omitempty"`
}

type AssignmentKind string

const (
	AssignProject AssignmentKind = "project"
	AssignTask    AssignmentKind = "task"
)

// Assignment puts a user on a project or a task. A project with no
// assignments at all is open to everyone.
type Assignment struct {
	Kind       AssignmentKind `json:"kind"`
	TargetID   string         `json:"targetId"`
	UserID     string         `json:"userId"`
	AssignedBy string         `json:"assignedBy"`
	AssignedAt time.Time      `json:"assignedAt"`
}

type ProjectInput struct {
	Name       string
	Department string
	Status     ProjectStatus
	IsBillable bool
	StartDate  time.Time
	EndDate    *time.Time
}

type TaskInput struct {
	ProjectID      string
	Name           string
	Description    string
	EstimatedHours *float64
	IsBillable     bool
	TaskType       TaskType
	Priority       TaskPriority
	Status         TaskStatus
	DueDate        *time.Time
}

type FileType string

const (
	FilePDF      FileType = "pdf"
	FileImage    FileType = "image"
	FileDocument FileType = "document"
)

// Attachment is a reference to a stored blob; the bytes live elsewhere.
type Attachment struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	FileType    FileType  `json:"fileType"`
	ContentType string    `json:"contentType,omitempty"`
	URL         string    `json:"url"`
	UploadedBy  string    `json:"uploadedBy,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}
