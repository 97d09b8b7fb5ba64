package memstore

import (
	"context"
	"slices"
	"sort"

	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/overtime"
)

type OvertimeStore struct {
	db *DB
}

func (s *OvertimeStore) CreateRequest(_ context.Context, req overtime.Request) (overtime.Request, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if req.Status != overtime.StatusRejected {
		for _, other := range s.db.overtimeRequests {
			if other.EmployeeID == req.EmployeeID && other.Year == req.Year && other.Half == req.Half && other.Status != overtime.StatusRejected {
				return overtime.Request{}, overtime.ErrPeriodTaken
			}
		}
	}
	req.ID = newID()
	now := s.db.now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = now
	}
	req = copyOvertime(req)
	for i := range req.Entries {
		req.Entries[i].ID = newID()
	}
	s.db.overtimeRequests[req.ID] = req
	return copyOvertime(req), nil
}

func (s *OvertimeStore) GetRequest(_ context.Context, id string) (overtime.Request, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	req, ok := s.db.overtimeRequests[id]
	if !ok {
		return overtime.Request{}, errs.ErrNotFound
	}
	return copyOvertime(req), nil
}

func (s *OvertimeStore) LockRequest(ctx context.Context, id string) (overtime.Request, error) {
	return s.GetRequest(ctx, id)
}

func (s *OvertimeStore) UpdateRequest(_ context.Context, req overtime.Request) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.overtimeRequests[req.ID]; !ok {
		return errs.ErrNotFound
	}
	s.db.overtimeRequests[req.ID] = copyOvertime(req)
	return nil
}

func (s *OvertimeStore) ListRequests(_ context.Context, filter overtime.RequestFilter) (overtime.RequestListResult, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var matched []overtime.Request
	for _, req := range s.db.overtimeRequests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		if len(filter.EmployeeIDs) > 0 && !slices.Contains(filter.EmployeeIDs, req.EmployeeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, req.Status) {
			continue
		}
		if filter.Year != 0 && req.Year != filter.Year {
			continue
		}
		if filter.Half != "" && req.Half != filter.Half {
			continue
		}
		matched = append(matched, copyOvertime(req))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SubmittedAt.Equal(matched[j].SubmittedAt) {
			return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return overtime.RequestListResult{Requests: page(matched, filter.Limit, filter.Offset), Total: len(matched)}, nil
}

// WithTx serialises transitions. A transition writes only once, at its
// end, so there is nothing to undo when fn fails.
func (s *OvertimeStore) WithTx(_ context.Context, fn func(overtime.StoreAPI) error) error {
	s.db.overtimeTx.Lock()
	defer s.db.overtimeTx.Unlock()
	return fn(s)
}

func copyOvertime(req overtime.Request) overtime.Request {
	req.Entries = slices.Clone(req.Entries)
	req.Attachments = slices.Clone(req.Attachments)
	return req
}
