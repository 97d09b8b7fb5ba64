package core

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

const employeeColumns = `
  id, name, email, role, department, location,
  COALESCE(manager_id::text, ''), COALESCE(hod_id::text, ''),
  annual_leave_balance, medical_leave_balance, unpaid_leave_balance, time_off_balance,
  created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	var bal Balances
	err := row.Scan(&emp.ID, &emp.Name, &emp.Email, &emp.Role, &emp.Department, &emp.Location,
		&emp.ManagerID, &emp.HODID,
		&bal.Annual, &bal.Medical, &bal.Unpaid, &bal.TimeOff,
		&emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		return emp, err
	}
	emp.Balances = &bal
	return emp, nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return emp, errs.ErrNotFound
	}
	return emp, err
}

func (s *Store) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error) {
	var conds []string
	var args []any
	if filter.HODID != "" {
		args = append(args, filter.HODID)
		conds = append(conds, fmt.Sprintf("hod_id = $%d", len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	query := "SELECT " + employeeColumns + " FROM users"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

const projectColumns = `id, name, department, status, is_billable, start_date, end_date, created_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Department, &p.Status, &p.IsBillable, &p.StartDate, &p.EndDate, &p.CreatedAt)
	return p, err
}

func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProject(ctx context.Context, id string) (Project, error) {
	p, err := scanProject(s.DB.QueryRow(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return p, errs.ErrNotFound
	}
	return p, err
}

func (s *Store) CreateProject(ctx context.Context, p Project) (Project, error) {
	return scanProject(s.DB.QueryRow(ctx, `
    INSERT INTO projects (name, department, status, is_billable, start_date, end_date)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING `+projectColumns,
		p.Name, p.Department, p.Status, p.IsBillable, p.StartDate, p.EndDate))
}

func (s *Store) UpdateProject(ctx context.Context, p Project) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE projects
    SET name = $2, department = $3, status = $4, is_billable = $5, start_date = $6, end_date = $7
    WHERE id = $1
  `, p.ID, p.Name, p.Department, p.Status, p.IsBillable, p.StartDate, p.EndDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

const taskColumns = `
  id, project_id, name, COALESCE(description, ''), estimated_hours, is_billable, task_type,
  priority, status, due_date, COALESCE(assigned_by::text, '')`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Description, &t.EstimatedHours, &t.IsBillable, &t.TaskType,
		&t.Priority, &t.Status, &t.DueDate, &t.AssignedBy)
	return t, err
}

func (s *Store) GetTask(ctx context.Context, id string) (Task, error) {
	t, err := scanTask(s.DB.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, errs.ErrNotFound
	}
	return t, err
}

func (s *Store) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+taskColumns+" FROM tasks WHERE project_id = $1 ORDER BY name", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTask(ctx context.Context, t Task) (Task, error) {
	return scanTask(s.DB.QueryRow(ctx, `
    INSERT INTO tasks (project_id, name, description, estimated_hours, is_billable, task_type, priority, status, due_date, assigned_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10, '')::uuid)
    RETURNING `+taskColumns,
		t.ProjectID, t.Name, t.Description, t.EstimatedHours, t.IsBillable, t.TaskType, t.Priority, t.Status, t.DueDate, t.AssignedBy))
}

func (s *Store) UpdateTask(ctx context.Context, t Task) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE tasks
    SET name = $2, description = $3, estimated_hours = $4, is_billable = $5, task_type = $6,
        priority = $7, status = $8, due_date = $9, assigned_by = NULLIF($10, '')::uuid
    WHERE id = $1
  `, t.ID, t.Name, t.Description, t.EstimatedHours, t.IsBillable, t.TaskType, t.Priority, t.Status, t.DueDate, t.AssignedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// assignmentTable keeps the kind out of the SQL text the caller controls.
func assignmentTable(kind AssignmentKind) (table, column string, err error) {
	switch kind {
	case AssignProject:
		return "project_assignments", "project_id", nil
	case AssignTask:
		return "task_assignments", "task_id", nil
	}
	return "", "", fmt.Errorf("unknown assignment kind %q", kind)
}

func (s *Store) Assign(ctx context.Context, a Assignment) error {
	table, column, err := assignmentTable(a.Kind)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, fmt.Sprintf(`
    INSERT INTO %s (%s, user_id, assigned_by, assigned_at)
    VALUES ($1, $2, NULLIF($3, '')::uuid, $4)
    ON CONFLICT DO NOTHING
  `, table, column), a.TargetID, a.UserID, a.AssignedBy, a.AssignedAt)
	return err
}

func (s *Store) Unassign(ctx context.Context, kind AssignmentKind, targetID, userID string) error {
	table, column, err := assignmentTable(kind)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND user_id = $2", table, column), targetID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error) {
	kinds := []AssignmentKind{AssignProject, AssignTask}
	if filter.Kind != "" {
		kinds = []AssignmentKind{filter.Kind}
	}
	var out []Assignment
	for _, kind := range kinds {
		table, column, err := assignmentTable(kind)
		if err != nil {
			return nil, err
		}
		var conds []string
		var args []any
		if filter.TargetID != "" {
			args = append(args, filter.TargetID)
			conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
		}
		if filter.UserID != "" {
			args = append(args, filter.UserID)
			conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
		}
		query := fmt.Sprintf("SELECT %s, user_id, COALESCE(assigned_by::text, ''), assigned_at FROM %s", column, table)
		if len(conds) > 0 {
			query += " WHERE " + strings.Join(conds, " AND ")
		}
		query += " ORDER BY assigned_at, user_id"

		rows, err := s.DB.Query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			a := Assignment{Kind: kind}
			if err := rows.Scan(&a.TargetID, &a.UserID, &a.AssignedBy, &a.AssignedAt); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
