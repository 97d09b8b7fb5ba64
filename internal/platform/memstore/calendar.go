package memstore

import (
	"context"
	"sort"

	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/errs"
)

type CalendarStore struct {
	db *DB
}

func (s *CalendarStore) ListHolidays(_ context.Context) ([]calendar.PublicHoliday, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]calendar.PublicHoliday, 0, len(s.db.holidays))
	for _, h := range s.db.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *CalendarStore) GetHoliday(_ context.Context, id string) (calendar.PublicHoliday, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	h, ok := s.db.holidays[id]
	if !ok {
		return calendar.PublicHoliday{}, errs.ErrNotFound
	}
	return h, nil
}

func (s *CalendarStore) CreateHoliday(_ context.Context, h calendar.PublicHoliday) (calendar.PublicHoliday, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	h.ID = newID()
	now := s.db.now().UTC()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	s.db.holidays[h.ID] = h
	return h, nil
}

func (s *CalendarStore) UpdateHoliday(_ context.Context, h calendar.PublicHoliday) (calendar.PublicHoliday, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.holidays[h.ID]
	if !ok {
		return h, errs.ErrNotFound
	}
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = s.db.now().UTC()
	s.db.holidays[h.ID] = h
	return h, nil
}

func (s *CalendarStore) DeleteHoliday(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.holidays[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.db.holidays, id)
	return nil
}
