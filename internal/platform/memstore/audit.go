package memstore

import (
	"context"

	"timesheet/internal/domain/audit"
)

type AuditStore struct {
	db *DB
}

func (s *AuditStore) InsertEvent(_ context.Context, evt audit.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	evt.ID = newID()
	evt.CreatedAt = s.db.now().UTC()
	s.db.events = append(s.db.events, evt)
	return nil
}

func (s *AuditStore) CountEvents(_ context.Context, filter audit.Filter) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	total := 0
	for _, evt := range s.db.events {
		if matchEvent(evt, filter) {
			total++
		}
	}
	return total, nil
}

func (s *AuditStore) ListEvents(_ context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []audit.Event
	for i := len(s.db.events) - 1; i >= 0; i-- {
		if matchEvent(s.db.events[i], filter) {
			out = append(out, s.db.events[i])
		}
	}
	return page(out, limit, offset), nil
}

func matchEvent(evt audit.Event, filter audit.Filter) bool {
	if filter.Action != "" && evt.Action != filter.Action {
		return false
	}
	if filter.EntityType != "" && evt.EntityType != filter.EntityType {
		return false
	}
	if filter.EntityID != "" && evt.EntityID != filter.EntityID {
		return false
	}
	if filter.ActorUser != "" && evt.ActorID != filter.ActorUser {
		return false
	}
	return true
}
