package overtime

import (
	"context"
	"time"
)

// EntrySource yields the overtime-tagged timesheet entries of an employee.
type EntrySource interface {
	OvertimeEntries(ctx context.Context, employeeID string, from, to time.Time) ([]Entry, error)
}

type StoreAPI interface {
	CreateRequest(ctx context.Context, req Request) (Request, error)
	GetRequest(ctx context.Context, id string) (Request, error)
	// LockRequest reads a request for update inside WithTx.
	LockRequest(ctx context.Context, id string) (Request, error)
	UpdateRequest(ctx context.Context, req Request) error
	ListRequests(ctx context.Context, filter RequestFilter) (RequestListResult, error)
	WithTx(ctx context.Context, fn func(StoreAPI) error) error
}
