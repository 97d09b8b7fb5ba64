package core

import (
	"context"
	"fmt"
	"time"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/errs"
)

type Notifier interface {
	Notify(ctx context.Context, userID, ntype, title, body string) error
}

type Service struct {
	store StoreAPI
	now   func() time.Time

	// Notifier tells users about new assignments. Nil disables it.
	Notifier Notifier
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) Employee(ctx context.Context, id string) (Employee, error) {
	return s.store.GetEmployee(ctx, id)
}

func (s *Service) Reports(ctx context.Context, hodID string) ([]Employee, error) {
	return s.store.ListEmployees(ctx, EmployeeFilter{HODID: hodID})
}

func (s *Service) EmployeesWithRole(ctx context.Context, role auth.Role) ([]Employee, error) {
	return s.store.ListEmployees(ctx, EmployeeFilter{Role: role})
}

// Visible returns the employees whose requests and variance the actor may see.
func (s *Service) Visible(ctx context.Context, actor auth.Actor) ([]Employee, error) {
	if actor.HasOrgScope() {
		return s.store.ListEmployees(ctx, EmployeeFilter{})
	}
	if actor.Role == auth.RoleManager {
		return s.store.ListEmployees(ctx, EmployeeFilter{HODID: actor.UserID})
	}
	emp, err := s.store.GetEmployee(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return []Employee{emp}, nil
}

// IsHODOf reports whether hodID is the department head of employeeID.
func (s *Service) IsHODOf(ctx context.Context, hodID, employeeID string) (bool, error) {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return false, err
	}
	return emp.HODID != "" && emp.HODID == hodID, nil
}

// CanActFor reports whether actor may see or approve on behalf of employeeID.
func (s *Service) CanActFor(ctx context.Context, actor auth.Actor, employeeID string) error {
	if actor.UserID == employeeID || actor.HasOrgScope() {
		return nil
	}
	if actor.Role == auth.RoleFinance {
		return nil
	}
	ok, err := s.IsHODOf(ctx, actor.UserID, employeeID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not the head of department for %s", errs.ErrForbidden, actor.UserID, employeeID)
	}
	return nil
}

func (s *Service) Projects(ctx context.Context) ([]Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *Service) Project(ctx context.Context, id string) (Project, error) {
	return s.store.GetProject(ctx, id)
}

func (s *Service) Task(ctx context.Context, id string) (Task, error) {
	return s.store.GetTask(ctx, id)
}

func (s *Service) Tasks(ctx context.Context, projectID string) ([]Task, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, projectID)
}
