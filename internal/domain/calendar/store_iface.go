package calendar

import "context"

type StoreAPI interface {
	ListHolidays(ctx context.Context) ([]PublicHoliday, error)
	GetHoliday(ctx context.Context, id string) (PublicHoliday, error)
	CreateHoliday(ctx context.Context, h PublicHoliday) (PublicHoliday, error)
	UpdateHoliday(ctx context.Context, h PublicHoliday) (PublicHoliday, error)
	DeleteHoliday(ctx context.Context, id string) error
}
