package audit

import (
	"context"
	"encoding/json"

	"timesheet/internal/requestctx"
)

type StoreAPI interface {
	InsertEvent(ctx context.Context, evt Event) error
	CountEvents(ctx context.Context, filter Filter) (int, error)
	ListEvents(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
}

type Service struct {
	store StoreAPI
}

func New(store StoreAPI) *Service {
	return &Service{store: store}
}

// Record stores a state change. before and after are marshalled as JSON
// snapshots; either may be nil.
func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error {
	evt := Event{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestctx.GetRequestID(ctx),
		IP:         requestctx.GetClientIP(ctx),
	}
	if before != nil {
		payload, err := json.Marshal(before)
		if err != nil {
			return err
		}
		evt.Before = payload
	}
	if after != nil {
		payload, err := json.Marshal(after)
		if err != nil {
			return err
		}
		evt.After = payload
	}
	return s.store.InsertEvent(ctx, evt)
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	return s.store.CountEvents(ctx, filter)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	return s.store.ListEvents(ctx, filter, limit, offset)
}
