package memstore

import (
	"context"
	"slices"
	"sort"

	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/timesheet"
)

type TimesheetStore struct {
	db *DB
}

func (s *TimesheetStore) CreateEntry(_ context.Context, e timesheet.Entry) (timesheet.Entry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.ID = newID()
	now := s.db.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	s.db.entries[e.ID] = e
	return e, nil
}

func (s *TimesheetStore) GetEntry(_ context.Context, id string) (timesheet.Entry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.entries[id]
	if !ok {
		return timesheet.Entry{}, errs.ErrNotFound
	}
	return e, nil
}

func (s *TimesheetStore) UpdateEntry(_ context.Context, e timesheet.Entry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.entries[e.ID]; !ok {
		return errs.ErrNotFound
	}
	s.db.entries[e.ID] = e
	return nil
}

func (s *TimesheetStore) ListEntries(_ context.Context, filter timesheet.EntryFilter) ([]timesheet.Entry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []timesheet.Entry
	for _, e := range s.db.entries {
		if matchEntry(filter, e) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

// WithTx buffers the writes made by fn and applies them together once fn
// succeeds. Transactions are serialised; a failed fn leaves no trace.
func (s *TimesheetStore) WithTx(_ context.Context, fn func(timesheet.StoreAPI) error) error {
	s.db.timesheetTx.Lock()
	defer s.db.timesheetTx.Unlock()

	tx := &timesheetTx{base: s, writes: map[string]timesheet.Entry{}, created: map[string]bool{}}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type timesheetTx struct {
	base    *TimesheetStore
	writes  map[string]timesheet.Entry
	created map[string]bool
}

func (tx *timesheetTx) CreateEntry(_ context.Context, e timesheet.Entry) (timesheet.Entry, error) {
	e.ID = newID()
	now := tx.base.db.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	tx.writes[e.ID] = e
	tx.created[e.ID] = true
	return e, nil
}

func (tx *timesheetTx) GetEntry(ctx context.Context, id string) (timesheet.Entry, error) {
	if e, ok := tx.writes[id]; ok {
		return e, nil
	}
	return tx.base.GetEntry(ctx, id)
}

func (tx *timesheetTx) UpdateEntry(ctx context.Context, e timesheet.Entry) error {
	if _, ok := tx.writes[e.ID]; !ok {
		if _, err := tx.base.GetEntry(ctx, e.ID); err != nil {
			return err
		}
	}
	tx.writes[e.ID] = e
	return nil
}

func (tx *timesheetTx) ListEntries(_ context.Context, filter timesheet.EntryFilter) ([]timesheet.Entry, error) {
	db := tx.base.db
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []timesheet.Entry
	for id, e := range db.entries {
		if staged, ok := tx.writes[id]; ok {
			e = staged
		}
		if matchEntry(filter, e) {
			out = append(out, e)
		}
	}
	for id := range tx.created {
		if e := tx.writes[id]; matchEntry(filter, e) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (tx *timesheetTx) WithTx(_ context.Context, fn func(timesheet.StoreAPI) error) error {
	return fn(tx)
}

func (tx *timesheetTx) commit() error {
	db := tx.base.db
	db.mu.Lock()
	defer db.mu.Unlock()
	for id := range tx.writes {
		if _, ok := db.entries[id]; !ok && !tx.created[id] {
			return errs.ErrNotFound
		}
	}
	for id, e := range tx.writes {
		db.entries[id] = e
	}
	return nil
}

func matchEntry(filter timesheet.EntryFilter, e timesheet.Entry) bool {
	if filter.EmployeeID != "" && e.EmployeeID != filter.EmployeeID {
		return false
	}
	if len(filter.EmployeeIDs) > 0 && !slices.Contains(filter.EmployeeIDs, e.EmployeeID) {
		return false
	}
	if filter.ProjectID != "" && e.ProjectID != filter.ProjectID {
		return false
	}
	if filter.TaskID != "" && e.TaskID != filter.TaskID {
		return false
	}
	if !filter.From.IsZero() && e.Date.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && e.Date.After(filter.To) {
		return false
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, e.Status) {
		return false
	}
	return true
}

func sortEntries(out []timesheet.Entry) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}
