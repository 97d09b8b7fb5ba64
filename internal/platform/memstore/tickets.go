package memstore

import (
	"context"
	"slices"
	"sort"

	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/tickets"
)

type TicketsStore struct {
	db *DB
}

func (s *TicketsStore) CreateTicket(_ context.Context, t tickets.Ticket) (tickets.Ticket, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t.ID = newID()
	now := s.db.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	t = copyTicket(t)
	s.db.tickets[t.ID] = t
	return copyTicket(t), nil
}

func (s *TicketsStore) GetTicket(_ context.Context, id string) (tickets.Ticket, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tickets[id]
	if !ok {
		return tickets.Ticket{}, errs.ErrNotFound
	}
	return copyTicket(t), nil
}

func (s *TicketsStore) LockTicket(ctx context.Context, id string) (tickets.Ticket, error) {
	return s.GetTicket(ctx, id)
}

func (s *TicketsStore) UpdateTicket(_ context.Context, t tickets.Ticket) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.tickets[t.ID]; !ok {
		return errs.ErrNotFound
	}
	s.db.tickets[t.ID] = copyTicket(t)
	return nil
}

func (s *TicketsStore) ListTickets(_ context.Context, filter tickets.Filter) (tickets.ListResult, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var matched []tickets.Ticket
	for _, t := range s.db.tickets {
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if filter.AssignedTo != "" && (t.AssignedTo == nil || *t.AssignedTo != filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		matched = append(matched, copyTicket(t))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SubmittedAt.Equal(matched[j].SubmittedAt) {
			return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return tickets.ListResult{Tickets: page(matched, filter.Limit, filter.Offset), Total: len(matched)}, nil
}

// WithTx serialises ticket updates. Each one writes once, at its end.
func (s *TicketsStore) WithTx(_ context.Context, fn func(tickets.StoreAPI) error) error {
	s.db.ticketsTx.Lock()
	defer s.db.ticketsTx.Unlock()
	return fn(s)
}

func copyTicket(t tickets.Ticket) tickets.Ticket {
	t.Attachments = slices.Clone(t.Attachments)
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		t.AssignedTo = &id
	}
	return t
}
