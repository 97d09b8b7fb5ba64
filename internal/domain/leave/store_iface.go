package leave

import (
	"context"

	"timesheet/internal/domain/core"
)

type BalanceStore interface {
	Balances(ctx context.Context, employeeID string) (core.Balances, error)
	// DebitBalance fails with errs.ErrInsufficientBalance instead of going negative.
	DebitBalance(ctx context.Context, employeeID string, t Type, days float64) error
	AdjustBalance(ctx context.Context, employeeID string, t Type, delta float64) (core.Balances, error)
}

type StoreAPI interface {
	BalanceStore
	CreateRequest(ctx context.Context, req Request) (Request, error)
	GetRequest(ctx context.Context, id string) (Request, error)
	// LockRequest reads a request for update inside WithTx.
	LockRequest(ctx context.Context, id string) (Request, error)
	UpdateRequest(ctx context.Context, req Request) error
	ListRequests(ctx context.Context, filter RequestFilter) (RequestListResult, error)
	WithTx(ctx context.Context, fn func(StoreAPI) error) error
}
