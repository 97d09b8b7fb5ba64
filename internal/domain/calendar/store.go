package calendar

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"timesheet/internal/domain/errs"
	"timesheet/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) ListHolidays(ctx context.Context) ([]PublicHoliday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, date, location, recurring, created_at, updated_at
    FROM public_holidays
    ORDER BY date, created_at
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PublicHoliday
	for rows.Next() {
		var h PublicHoliday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.Location, &h.Recurring, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) GetHoliday(ctx context.Context, id string) (PublicHoliday, error) {
	var h PublicHoliday
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, date, location, recurring, created_at, updated_at
    FROM public_holidays
    WHERE id = $1
  `, id).Scan(&h.ID, &h.Name, &h.Date, &h.Location, &h.Recurring, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return h, errs.ErrNotFound
	}
	return h, err
}

func (s *Store) CreateHoliday(ctx context.Context, h PublicHoliday) (PublicHoliday, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO public_holidays (name, date, location, recurring)
    VALUES ($1,$2,$3,$4)
    RETURNING id, created_at, updated_at
  `, h.Name, h.Date, h.Location, h.Recurring).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

func (s *Store) UpdateHoliday(ctx context.Context, h PublicHoliday) (PublicHoliday, error) {
	err := s.DB.QueryRow(ctx, `
    UPDATE public_holidays
    SET name = $2, date = $3, location = $4, recurring = $5, updated_at = now()
    WHERE id = $1
    RETURNING created_at, updated_at
  `, h.ID, h.Name, h.Date, h.Location, h.Recurring).Scan(&h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return h, errs.ErrNotFound
	}
	return h, err
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM public_holidays WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
