package memstore

import (
	"context"
	"sort"

	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
)

type CoreStore struct {
	db *DB
	// undo is set inside WithTx; every write records how to revert itself.
	undo *[]func()
}

type assignmentKey struct {
	kind     core.AssignmentKind
	targetID string
	userID   string
}

func (s *CoreStore) record(fn func()) {
	if s.undo != nil {
		*s.undo = append(*s.undo, fn)
	}
}

func (s *CoreStore) GetEmployee(_ context.Context, id string) (core.Employee, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	emp, ok := s.db.employees[id]
	if !ok {
		return core.Employee{}, errs.ErrNotFound
	}
	return copyEmployee(emp), nil
}

func (s *CoreStore) ListEmployees(_ context.Context, filter core.EmployeeFilter) ([]core.Employee, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []core.Employee
	for _, emp := range s.db.employees {
		if filter.HODID != "" && emp.HODID != filter.HODID {
			continue
		}
		if filter.Role != "" && emp.Role != filter.Role {
			continue
		}
		out = append(out, copyEmployee(emp))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *CoreStore) ListProjects(_ context.Context) ([]core.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]core.Project, 0, len(s.db.projects))
	for _, p := range s.db.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *CoreStore) GetProject(_ context.Context, id string) (core.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.projects[id]
	if !ok {
		return core.Project{}, errs.ErrNotFound
	}
	return p, nil
}

func (s *CoreStore) CreateProject(_ context.Context, p core.Project) (core.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p.ID = newID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.db.now().UTC()
	}
	s.db.projects[p.ID] = p
	s.record(func() { delete(s.db.projects, p.ID) })
	return p, nil
}

func (s *CoreStore) UpdateProject(_ context.Context, p core.Project) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	prev, ok := s.db.projects[p.ID]
	if !ok {
		return errs.ErrNotFound
	}
	s.db.projects[p.ID] = p
	s.record(func() { s.db.projects[p.ID] = prev })
	return nil
}

func (s *CoreStore) GetTask(_ context.Context, id string) (core.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tasks[id]
	if !ok {
		return core.Task{}, errs.ErrNotFound
	}
	return t, nil
}

func (s *CoreStore) ListTasks(_ context.Context, projectID string) ([]core.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []core.Task
	for _, t := range s.db.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *CoreStore) CreateTask(_ context.Context, t core.Task) (core.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.projects[t.ProjectID]; !ok {
		return core.Task{}, errs.ErrNotFound
	}
	t.ID = newID()
	s.db.tasks[t.ID] = t
	s.record(func() { delete(s.db.tasks, t.ID) })
	return t, nil
}

func (s *CoreStore) UpdateTask(_ context.Context, t core.Task) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	prev, ok := s.db.tasks[t.ID]
	if !ok {
		return errs.ErrNotFound
	}
	s.db.tasks[t.ID] = t
	s.record(func() { s.db.tasks[t.ID] = prev })
	return nil
}

func (s *CoreStore) Assign(_ context.Context, a core.Assignment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := assignmentKey{kind: a.Kind, targetID: a.TargetID, userID: a.UserID}
	if _, ok := s.db.assignments[key]; ok {
		return nil
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = s.db.now().UTC()
	}
	s.db.assignments[key] = a
	s.record(func() { delete(s.db.assignments, key) })
	return nil
}

func (s *CoreStore) Unassign(_ context.Context, kind core.AssignmentKind, targetID, userID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := assignmentKey{kind: kind, targetID: targetID, userID: userID}
	prev, ok := s.db.assignments[key]
	if !ok {
		return errs.ErrNotFound
	}
	delete(s.db.assignments, key)
	s.record(func() { s.db.assignments[key] = prev })
	return nil
}

func (s *CoreStore) ListAssignments(_ context.Context, filter core.AssignmentFilter) ([]core.Assignment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []core.Assignment
	for key, a := range s.db.assignments {
		if filter.Kind != "" && key.kind != filter.Kind {
			continue
		}
		if filter.TargetID != "" && key.targetID != filter.TargetID {
			continue
		}
		if filter.UserID != "" && key.userID != filter.UserID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// WithTx serialises transactions and reverts the writes made by fn, newest
// first, when it fails. Readers outside the transaction may see its writes
// before it finishes.
func (s *CoreStore) WithTx(_ context.Context, fn func(core.StoreAPI) error) error {
	if s.undo != nil {
		return fn(s)
	}
	s.db.coreTx.Lock()
	defer s.db.coreTx.Unlock()

	var undo []func()
	tx := &CoreStore{db: s.db, undo: &undo}
	if err := fn(tx); err != nil {
		s.db.mu.Lock()
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		s.db.mu.Unlock()
		return err
	}
	return nil
}
