package tickets

import "context"

type StoreAPI interface {
	CreateTicket(ctx context.Context, t Ticket) (Ticket, error)
	GetTicket(ctx context.Context, id string) (Ticket, error)
	// LockTicket reads a ticket for update inside WithTx.
	LockTicket(ctx context.Context, id string) (Ticket, error)
	UpdateTicket(ctx context.Context, t Ticket) error
	ListTickets(ctx context.Context, filter Filter) (ListResult, error)
	WithTx(ctx context.Context, fn func(StoreAPI) error) error
}
