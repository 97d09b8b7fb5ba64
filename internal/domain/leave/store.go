package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// WithTx runs fn against a transaction-bound copy of the store. When the
// underlying handle cannot begin a transaction fn runs directly.
func (s *Store) WithTx(ctx context.Context, fn func(StoreAPI) error) error {
	b, ok := s.DB.(querier.Beginner)
	if !ok {
		return fn(s)
	}
	return querier.InTx(ctx, b, func(q querier.Querier) error {
		return fn(&Store{DB: q})
	})
}

var balanceColumns = map[Type]string{
	TypeAnnual:  "annual_leave_balance",
	TypeMedical: "medical_leave_balance",
	TypeUnpaid:  "unpaid_leave_balance",
	TypeTimeOff: "time_off_balance",
}

func (s *Store) Balances(ctx context.Context, employeeID string) (core.Balances, error) {
	var b core.Balances
	err := s.DB.QueryRow(ctx, `
    SELECT annual_leave_balance, medical_leave_balance, unpaid_leave_balance, time_off_balance
    FROM users WHERE id = $1
  `, employeeID).Scan(&b.Annual, &b.Medical, &b.Unpaid, &b.TimeOff)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, errs.ErrNotFound
	}
	return b, err
}

func (s *Store) DebitBalance(ctx context.Context, employeeID string, t Type, days float64) error {
	col, ok := balanceColumns[t]
	if !ok {
		return errs.Invalid("leaveType", "must be a known leave type")
	}
	tag, err := s.DB.Exec(ctx, fmt.Sprintf(`
    UPDATE users SET %[1]s = %[1]s - $2, updated_at = now()
    WHERE id = $1 AND %[1]s >= $2
  `, col), employeeID, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		b, err := s.Balances(ctx, employeeID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s needs %.1f days, %.1f remaining", errs.ErrInsufficientBalance, t, days, Remaining(b, t))
	}
	return nil
}

func (s *Store) AdjustBalance(ctx context.Context, employeeID string, t Type, delta float64) (core.Balances, error) {
	col, ok := balanceColumns[t]
	if !ok {
		return core.Balances{}, errs.Invalid("leaveType", "must be a known leave type")
	}
	var b core.Balances
	err := s.DB.QueryRow(ctx, fmt.Sprintf(`
    UPDATE users SET %[1]s = %[1]s + $2, updated_at = now()
    WHERE id = $1 AND %[1]s + $2 >= 0
    RETURNING annual_leave_balance, medical_leave_balance, unpaid_leave_balance, time_off_balance
  `, col), employeeID, delta).Scan(&b.Annual, &b.Medical, &b.Unpaid, &b.TimeOff)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, lookupErr := s.Balances(ctx, employeeID); lookupErr != nil {
			return b, lookupErr
		}
		return b, errs.Invalid("delta", "balance cannot go negative")
	}
	return b, err
}

const requestColumns = `
  id, employee_id, leave_type, start_date, end_date, total_days, reason, attachments, status,
  submitted_at, hod_approved_at, hod_approved_by, hr_approved_at, hr_approved_by,
  rejected_at, rejected_by, rejection_reason, created_at, updated_at`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var attachments []byte
	err := row.Scan(&req.ID, &req.EmployeeID, &req.Type, &req.StartDate, &req.EndDate, &req.TotalDays, &req.Reason, &attachments, &req.Status,
		&req.SubmittedAt, &req.HODApprovedAt, &req.HODApprovedBy, &req.HRApprovedAt, &req.HRApprovedBy,
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
	row := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type, start_date, end_date, total_days, reason, attachments, status, submitted_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING `+requestColumns,
		req.EmployeeID, req.Type, req.StartDate, req.EndDate, req.TotalDays, req.Reason, attachments, req.Status, req.SubmittedAt)
	return scanRequest(row)
}

func (s *Store) GetRequest(ctx context.Context, id string) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return req, errs.ErrNotFound
	}
	return req, err
}

func (s *Store) LockRequest(ctx context.Context, id string) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return req, errs.ErrNotFound
	}
	return req, err
}

func (s *Store) UpdateRequest(ctx context.Context, req Request) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, hod_approved_at = $3, hod_approved_by = $4, hr_approved_at = $5, hr_approved_by = $6,
        rejected_at = $7, rejected_by = $8, rejection_reason = $9, updated_at = $10
    WHERE id = $1
  `, req.ID, req.Status, req.HODApprovedAt, req.HODApprovedBy, req.HRApprovedAt, req.HRApprovedBy,
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
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests"+where, args...).Scan(&total); err != nil {
		return RequestListResult{}, err
	}

	query := "SELECT " + requestColumns + " FROM leave_requests" + where + " ORDER BY submitted_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return RequestListResult{}, err
	}
	defer rows.Close()

	out := RequestListResult{Total: total}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return RequestListResult{}, err
		}
		out.Requests = append(out.Requests, req)
	}
	return out, rows.Err()
}
