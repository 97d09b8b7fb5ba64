package calendar

import (
	"context"
	"strings"
	"time"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/errs"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// List returns holidays that fall in year; recurring holidays are included
// for every year. A zero year returns everything.
func (s *Service) List(ctx context.Context, year int) ([]PublicHoliday, error) {
	all, err := s.store.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}
	if year == 0 {
		return all, nil
	}
	out := make([]PublicHoliday, 0, len(all))
	for _, h := range all {
		if h.Recurring || h.Date.Year() == year {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (PublicHoliday, error) {
	return s.store.GetHoliday(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, h PublicHoliday) (PublicHoliday, error) {
	if err := auth.Require(actor, auth.ActHolidaysManage); err != nil {
		return PublicHoliday{}, err
	}
	h, err := normalize(h)
	if err != nil {
		return PublicHoliday{}, err
	}
	return s.store.CreateHoliday(ctx, h)
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, h PublicHoliday) (PublicHoliday, error) {
	if err := auth.Require(actor, auth.ActHolidaysManage); err != nil {
		return PublicHoliday{}, err
	}
	h, err := normalize(h)
	if err != nil {
		return PublicHoliday{}, err
	}
	return s.store.UpdateHoliday(ctx, h)
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.Require(actor, auth.ActHolidaysManage); err != nil {
		return err
	}
	return s.store.DeleteHoliday(ctx, id)
}

// ClassifyFor classifies date against the current holiday calendar.
func (s *Service) ClassifyFor(ctx context.Context, date time.Time, location Location) (Classification, error) {
	holidays, err := s.store.ListHolidays(ctx)
	if err != nil {
		return Classification{}, err
	}
	return Classify(date, location, holidays), nil
}

func (s *Service) WorkingDays(ctx context.Context, from, to time.Time, location Location) (int, error) {
	holidays, err := s.store.ListHolidays(ctx)
	if err != nil {
		return 0, err
	}
	return WorkingDays(from, to, location, holidays), nil
}

func normalize(h PublicHoliday) (PublicHoliday, error) {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return h, errs.Invalid("name", "is required")
	}
	if h.Date.IsZero() {
		return h, errs.Invalid("date", "is required")
	}
	if h.Location == "" {
		h.Location = LocationBoth
	}
	if !h.Location.IsValid() {
		return h, errs.Invalid("location", "must be one of location_a, location_b, both")
	}
	h.Date = DateOnly(h.Date)
	return h, nil
}
