package timesheet

import (
	"context"
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

const entryColumns = `
  id, employee_id, project_id, task_id, entry_date, hours_worked, description, is_billable, status,
  is_weekend, is_holiday, holiday_name, is_overtime, overtime_hours, overtime_reason, overtime_explanation,
  leave_type, submitted_at, approved_at, approved_by, created_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.EmployeeID, &e.ProjectID, &e.TaskID, &e.Date, &e.HoursWorked, &e.Description, &e.IsBillable, &e.Status,
		&e.IsWeekend, &e.IsHoliday, &e.HolidayName, &e.IsOvertime, &e.OvertimeHours, &e.OvertimeReason, &e.OvertimeExplanation,
		&e.LeaveType, &e.SubmittedAt, &e.ApprovedAt, &e.ApprovedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Store) CreateEntry(ctx context.Context, e Entry) (Entry, error) {
	return scanEntry(s.DB.QueryRow(ctx, `
    INSERT INTO timesheet_entries (
      employee_id, project_id, task_id, entry_date, hours_worked, description, is_billable, status,
      is_weekend, is_holiday, holiday_name, is_overtime, overtime_hours, overtime_reason, overtime_explanation, leave_type
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    RETURNING `+entryColumns,
		e.EmployeeID, e.ProjectID, e.TaskID, e.Date, e.HoursWorked, e.Description, e.IsBillable, e.Status,
		e.IsWeekend, e.IsHoliday, e.HolidayName, e.IsOvertime, e.OvertimeHours, e.OvertimeReason, e.OvertimeExplanation, e.LeaveType))
}

func (s *Store) GetEntry(ctx context.Context, id string) (Entry, error) {
	e, err := scanEntry(s.DB.QueryRow(ctx, "SELECT "+entryColumns+" FROM timesheet_entries WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return e, errs.ErrNotFound
	}
	return e, err
}

func (s *Store) UpdateEntry(ctx context.Context, e Entry) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE timesheet_entries
    SET project_id = $2, task_id = $3, entry_date = $4, hours_worked = $5, description = $6, is_billable = $7,
        status = $8, is_weekend = $9, is_holiday = $10, holiday_name = $11, is_overtime = $12,
        overtime_hours = $13, overtime_reason = $14, overtime_explanation = $15, leave_type = $16,
        submitted_at = $17, approved_at = $18, approved_by = $19, updated_at = $20
    WHERE id = $1
  `, e.ID, e.ProjectID, e.TaskID, e.Date, e.HoursWorked, e.Description, e.IsBillable,
		e.Status, e.IsWeekend, e.IsHoliday, e.HolidayName, e.IsOvertime,
		e.OvertimeHours, e.OvertimeReason, e.OvertimeExplanation, e.LeaveType,
		e.SubmittedAt, e.ApprovedAt, e.ApprovedBy, e.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.EmployeeID != "" {
		add("employee_id = $%d", filter.EmployeeID)
	}
	if len(filter.EmployeeIDs) > 0 {
		add("employee_id::text = ANY($%d)", filter.EmployeeIDs)
	}
	if filter.ProjectID != "" {
		add("project_id = $%d", filter.ProjectID)
	}
	if filter.TaskID != "" {
		add("task_id = $%d", filter.TaskID)
	}
	if !filter.From.IsZero() {
		add("entry_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("entry_date <= $%d", filter.To)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		add("status = ANY($%d)", statuses)
	}
	query := "SELECT " + entryColumns + " FROM timesheet_entries"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY entry_date, created_at"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
