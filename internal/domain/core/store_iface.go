package core

import (
	"context"

	"timesheet/internal/domain/auth"
)

type EmployeeFilter struct {
	HODID string
	Role  auth.Role
}

type AssignmentFilter struct {
	Kind     AssignmentKind
	TargetID string
	UserID   string
}

type StoreAPI interface {
	GetEmployee(ctx context.Context, id string) (Employee, error)
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	CreateProject(ctx context.Context, p Project) (Project, error)
	UpdateProject(ctx context.Context, p Project) error
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context, projectID string) ([]Task, error)
	CreateTask(ctx context.Context, t Task) (Task, error)
	UpdateTask(ctx context.Context, t Task) error

	// Assign is a no-op when the assignment already exists.
	Assign(ctx context.Context, a Assignment) error
	// Unassign returns errs.ErrNotFound when there was nothing to remove.
	Unassign(ctx context.Context, kind AssignmentKind, targetID, userID string) error
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)

	// WithTx applies every write made by fn, or none of them.
	WithTx(ctx context.Context, fn func(StoreAPI) error) error
}
