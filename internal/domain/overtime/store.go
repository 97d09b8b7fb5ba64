package overtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

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

const requestColumns = `
  id, employee_id, year, half, total_overtime_hours, attachments, notes, status, submitted_at,
  hod_approved_at, hod_approved_by, finance_approved_at, finance_approved_by,
  management_approved_at, management_approved_by,
  rejected_at, rejected_by, rejection_reason, created_at, updated_at`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var attachments []byte
	err := row.Scan(&req.ID, &req.EmployeeID, &req.Year, &req.Half, &req.TotalOvertimeHours, &attachments, &req.Notes, &req.Status, &req.SubmittedAt,
		&req.HODApprovedAt, &req.HODApprovedBy, &req.FinanceApprovedAt, &req.FinanceApprovedBy,
		&req.ManagementApprovedAt, &req.ManagementApprovedBy,
		&req.RejectedAt, &req.RejectedBy, &req.RejectionReason, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return req, err
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &req.Attachments); err != nil {
			return req, err
		}
	}
	return req, nil
}

func (s *Store) CreateRequest(ctx context.Context, req Request) (Request, error) {
	attachments, err := json.Marshal(req.Attachments)
	if err != nil {
		return Request{}, err
	}
	var out Request
	err = s.WithTx(ctx, func(api StoreAPI) error {
		tx := api.(*Store)
		created, err := scanRequest(tx.DB.QueryRow(ctx, `
      INSERT INTO overtime_requests (employee_id, year, half, total_overtime_hours, attachments, notes, status, submitted_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
      RETURNING `+requestColumns,
			req.EmployeeID, req.Year, req.Half, req.TotalOvertimeHours, attachments, req.Notes, req.Status, req.SubmittedAt))
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrPeriodTaken
		}
		if err != nil {
			return err
		}
		for _, e := range req.Entries {
			var tsID *string
			if e.TimesheetEntryID != "" {
				tsID = &e.TimesheetEntryID
			}
			if err := tx.DB.QueryRow(ctx, `
        INSERT INTO overtime_request_entries (request_id, timesheet_entry_id, entry_date, project_name, task_name, hours, description, reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id
      `, created.ID, tsID, e.Date, e.ProjectName, e.TaskName, e.Hours, e.Description, e.Reason).Scan(&e.ID); err != nil {
				return err
			}
			created.Entries = append(created.Entries, e)
		}
		out = created
		return nil
	})
	return out, err
}

func (s *Store) GetRequest(ctx context.Context, id string) (Request, error) {
	return s.getRequest(ctx, "SELECT "+requestColumns+" FROM overtime_requests WHERE id = $1", id)
}

func (s *Store) LockRequest(ctx context.Context, id string) (Request, error) {
	return s.getRequest(ctx, "SELECT "+requestColumns+" FROM overtime_requests WHERE id = $1 FOR UPDATE", id)
}

func (s *Store) getRequest(ctx context.Context, query, id string) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return req, errs.ErrNotFound
	}
	if err != nil {
		return req, err
	}
	req.Entries, err = s.listEntries(ctx, req.ID)
	return req, err
}

func (s *Store) listEntries(ctx context.Context, requestID string) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, COALESCE(timesheet_entry_id::text, ''), entry_date, project_name, task_name, hours, description, reason
    FROM overtime_request_entries
    WHERE request_id = $1
    ORDER BY entry_date, id
  `, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TimesheetEntryID, &e.Date, &e.ProjectName, &e.TaskName, &e.Hours, &e.Description, &e.Reason); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRequest(ctx context.Context, req Request) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE overtime_requests
    SET status = $2, hod_approved_at = $3, hod_approved_by = $4,
        finance_approved_at = $5, finance_approved_by = $6,
        management_approved_at = $7, management_approved_by = $8,
        rejected_at = $9, rejected_by = $10, rejection_reason = $11, updated_at = $12
    WHERE id = $1
  `, req.ID, req.Status, req.HODApprovedAt, req.HODApprovedBy,
		req.FinanceApprovedAt, req.FinanceApprovedBy,
		req.ManagementApprovedAt, req.ManagementApprovedBy,
		req.RejectedAt, req.RejectedBy, req.RejectionReason, req.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) (RequestListResult, error) {
	var conds []string
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		conds = append(conds, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if len(filter.EmployeeIDs) > 0 {
		args = append(args, filter.EmployeeIDs)
		conds = append(conds, fmt.Sprintf("employee_id::text = ANY($%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		args = append(args, statuses)
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		conds = append(conds, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.Half != "" {
		args = append(args, filter.Half)
		conds = append(conds, fmt.Sprintf("half = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM overtime_requests"+where, args...).Scan(&total); err != nil {
		return RequestListResult{}, err
	}

	query := "SELECT " + requestColumns + " FROM overtime_requests" + where + " ORDER BY submitted_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return RequestListResult{}, err
	}
	var reqs []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return RequestListResult{}, err
		}
		reqs = append(reqs, req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return RequestListResult{}, err
	}

	for i := range reqs {
		entries, err := s.listEntries(ctx, reqs[i].ID)
		if err != nil {
			return RequestListResult{}, err
		}
		reqs[i].Entries = entries
	}
	return RequestListResult{Requests: reqs, Total: total}, nil
}
