package timesheet

import "context"

type StoreAPI interface {
	CreateEntry(ctx context.Context, e Entry) (Entry, error)
	GetEntry(ctx context.Context, id string) (Entry, error)
	UpdateEntry(ctx context.Context, e Entry) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	// WithTx applies every write made by fn, or none of them.
	WithTx(ctx context.Context, fn func(StoreAPI) error) error
}
