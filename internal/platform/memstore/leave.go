package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/leave"
)

type LeaveStore struct {
	db *DB
}

func (s *LeaveStore) Balances(_ context.Context, employeeID string) (core.Balances, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	emp, ok := s.db.employees[employeeID]
	if !ok {
		return core.Balances{}, errs.ErrNotFound
	}
	return *emp.Balances, nil
}

func (s *LeaveStore) DebitBalance(_ context.Context, employeeID string, t leave.Type, days float64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	emp, ok := s.db.employees[employeeID]
	if !ok {
		return errs.ErrNotFound
	}
	next, err := leave.Debit(*emp.Balances, t, days)
	if err != nil {
		return err
	}
	*emp.Balances = next
	return nil
}

func (s *LeaveStore) AdjustBalance(_ context.Context, employeeID string, t leave.Type, delta float64) (core.Balances, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	emp, ok := s.db.employees[employeeID]
	if !ok {
		return core.Balances{}, errs.ErrNotFound
	}
	next := leave.Credit(*emp.Balances, t, delta)
	if leave.Remaining(next, t) < 0 {
		return core.Balances{}, errs.Invalid("delta", "balance cannot go negative")
	}
	*emp.Balances = next
	return next, nil
}

func (s *LeaveStore) CreateRequest(_ context.Context, req leave.Request) (leave.Request, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.insertLocked(req), nil
}

func (s *LeaveStore) insertLocked(req leave.Request) leave.Request {
	if req.ID == "" {
		req.ID = newID()
	}
	now := s.db.now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = now
	}
	req.Attachments = slices.Clone(req.Attachments)
	s.db.leaveRequests[req.ID] = req
	return copyLeave(req)
}

func (s *LeaveStore) GetRequest(_ context.Context, id string) (leave.Request, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	req, ok := s.db.leaveRequests[id]
	if !ok {
		return leave.Request{}, errs.ErrNotFound
	}
	return copyLeave(req), nil
}

func (s *LeaveStore) LockRequest(ctx context.Context, id string) (leave.Request, error) {
	return s.GetRequest(ctx, id)
}

func (s *LeaveStore) UpdateRequest(_ context.Context, req leave.Request) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.leaveRequests[req.ID]; !ok {
		return errs.ErrNotFound
	}
	req.Attachments = slices.Clone(req.Attachments)
	s.db.leaveRequests[req.ID] = req
	return nil
}

func (s *LeaveStore) ListRequests(_ context.Context, filter leave.RequestFilter) (leave.RequestListResult, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var matched []leave.Request
	for _, req := range s.db.leaveRequests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		if len(filter.EmployeeIDs) > 0 && !slices.Contains(filter.EmployeeIDs, req.EmployeeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, req.Status) {
			continue
		}
		matched = append(matched, copyLeave(req))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SubmittedAt.Equal(matched[j].SubmittedAt) {
			return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return leave.RequestListResult{Requests: page(matched, filter.Limit, filter.Offset), Total: len(matched)}, nil
}

// WithTx buffers writes made by fn and applies them in one step when fn
// succeeds. Transactions are serialised; a failed fn leaves no trace.
func (s *LeaveStore) WithTx(ctx context.Context, fn func(leave.StoreAPI) error) error {
	s.db.leaveTx.Lock()
	defer s.db.leaveTx.Unlock()

	tx := &leaveTx{
		base:     s,
		requests: map[string]leave.Request{},
		deltas:   map[string]core.Balances{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type leaveTx struct {
	base     *LeaveStore
	requests map[string]leave.Request
	created  []string
	deltas   map[string]core.Balances
}

func (tx *leaveTx) Balances(ctx context.Context, employeeID string) (core.Balances, error) {
	b, err := tx.base.Balances(ctx, employeeID)
	if err != nil {
		return b, err
	}
	return addBalances(b, tx.deltas[employeeID]), nil
}

func (tx *leaveTx) DebitBalance(ctx context.Context, employeeID string, t leave.Type, days float64) error {
	b, err := tx.Balances(ctx, employeeID)
	if err != nil {
		return err
	}
	if _, err := leave.Debit(b, t, days); err != nil {
		return err
	}
	tx.deltas[employeeID] = leave.Credit(tx.deltas[employeeID], t, -days)
	return nil
}

func (tx *leaveTx) AdjustBalance(ctx context.Context, employeeID string, t leave.Type, delta float64) (core.Balances, error) {
	b, err := tx.Balances(ctx, employeeID)
	if err != nil {
		return b, err
	}
	next := leave.Credit(b, t, delta)
	if leave.Remaining(next, t) < 0 {
		return core.Balances{}, errs.Invalid("delta", "balance cannot go negative")
	}
	tx.deltas[employeeID] = leave.Credit(tx.deltas[employeeID], t, delta)
	return next, nil
}

func (tx *leaveTx) CreateRequest(_ context.Context, req leave.Request) (leave.Request, error) {
	if req.ID == "" {
		req.ID = newID()
	}
	tx.requests[req.ID] = req
	tx.created = append(tx.created, req.ID)
	return copyLeave(req), nil
}

func (tx *leaveTx) GetRequest(ctx context.Context, id string) (leave.Request, error) {
	if req, ok := tx.requests[id]; ok {
		return copyLeave(req), nil
	}
	return tx.base.GetRequest(ctx, id)
}

func (tx *leaveTx) LockRequest(ctx context.Context, id string) (leave.Request, error) {
	return tx.GetRequest(ctx, id)
}

func (tx *leaveTx) UpdateRequest(ctx context.Context, req leave.Request) error {
	if _, err := tx.GetRequest(ctx, req.ID); err != nil {
		return err
	}
	tx.requests[req.ID] = copyLeave(req)
	return nil
}

// ListRequests reads committed state only.
func (tx *leaveTx) ListRequests(ctx context.Context, filter leave.RequestFilter) (leave.RequestListResult, error) {
	return tx.base.ListRequests(ctx, filter)
}

func (tx *leaveTx) WithTx(_ context.Context, fn func(leave.StoreAPI) error) error {
	return fn(tx)
}

func (tx *leaveTx) commit() error {
	db := tx.base.db
	db.mu.Lock()
	defer db.mu.Unlock()

	// validate every balance before touching any of them
	next := make(map[string]core.Balances, len(tx.deltas))
	for id, delta := range tx.deltas {
		emp, ok := db.employees[id]
		if !ok {
			return errs.ErrNotFound
		}
		b := addBalances(*emp.Balances, delta)
		if b.Annual < 0 || b.Medical < 0 || b.TimeOff < 0 {
			return fmt.Errorf("%w: balance changed during approval", errs.ErrInsufficientBalance)
		}
		next[id] = b
	}
	for id, b := range next {
		*db.employees[id].Balances = b
	}
	for _, id := range tx.created {
		tx.base.insertLocked(tx.requests[id])
		delete(tx.requests, id)
	}
	for id, req := range tx.requests {
		db.leaveRequests[id] = req
	}
	return nil
}

func addBalances(a, b core.Balances) core.Balances {
	return core.Balances{
		Annual:  a.Annual + b.Annual,
		Medical: a.Medical + b.Medical,
		Unpaid:  a.Unpaid + b.Unpaid,
		TimeOff: a.TimeOff + b.TimeOff,
	}
}

func copyLeave(req leave.Request) leave.Request {
	req.Attachments = slices.Clone(req.Attachments)
	return req
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
