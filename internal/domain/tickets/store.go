package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

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

func (s *Store) WithTx(ctx context.Context, fn func(StoreAPI) error) error {
	b, ok := s.DB.(querier.Beginner)
	if !ok {
		return fn(s)
	}
	return querier.InTx(ctx, b, func(q querier.Querier) error {
		return fn(&Store{DB: q})
	})
}

const ticketColumns = `
  id, user_id, title, description, priority, category, status, attachments,
  assigned_to::text, resolution, submitted_at, resolved_at, closed_at, created_at, updated_at`

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	var attachments []byte
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Category, &t.Status, &attachments,
		&t.AssignedTo, &t.Resolution, &t.SubmittedAt, &t.ResolvedAt, &t.ClosedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &t.Attachments); err != nil {
			return t, err
		}
	}
	return t, nil
}

func (s *Store) CreateTicket(ctx context.Context, t Ticket) (Ticket, error) {
	attachments, err := json.Marshal(t.Attachments)
	if err != nil {
		return Ticket{}, err
	}
	return scanTicket(s.DB.QueryRow(ctx, `
    INSERT INTO it_tickets (user_id, title, description, priority, category, status, attachments, submitted_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING `+ticketColumns,
		t.UserID, t.Title, t.Description, t.Priority, t.Category, t.Status, attachments, t.SubmittedAt))
}

func (s *Store) GetTicket(ctx context.Context, id string) (Ticket, error) {
	t, err := scanTicket(s.DB.QueryRow(ctx, "SELECT "+ticketColumns+" FROM it_tickets WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, errs.ErrNotFound
	}
	return t, err
}

func (s *Store) LockTicket(ctx context.Context, id string) (Ticket, error) {
	t, err := scanTicket(s.DB.QueryRow(ctx, "SELECT "+ticketColumns+" FROM it_tickets WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, errs.ErrNotFound
	}
	return t, err
}

func (s *Store) UpdateTicket(ctx context.Context, t Ticket) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE it_tickets
    SET status = $2, assigned_to = $3, resolution = $4, resolved_at = $5, closed_at = $6, updated_at = $7
    WHERE id = $1
  `, t.ID, t.Status, t.AssignedTo, t.Resolution, t.ResolvedAt, t.ClosedAt, t.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) ListTickets(ctx context.Context, filter Filter) (ListResult, error) {
	var conds []string
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		conds = append(conds, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		args = append(args, statuses)
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM it_tickets"+where, args...).Scan(&total); err != nil {
		return ListResult{}, err
	}

	query := "SELECT " + ticketColumns + " FROM it_tickets" + where + " ORDER BY submitted_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	out := ListResult{Total: total}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return ListResult{}, err
		}
		out.Tickets = append(out.Tickets, t)
	}
	return out, rows.Err()
}
