package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/core"
)

// Fixtures is the demo organisation loaded when RUN_SEED is set.
type Fixtures struct {
	Employees []core.Employee
	Projects  []core.Project
	Tasks     []core.Task
	Holidays  []calendar.PublicHoliday
}

const (
	SeedHRID         = "00000000-0000-4000-8000-000000000001"
	SeedHODID        = "00000000-0000-4000-8000-000000000002"
	SeedFinanceID    = "00000000-0000-4000-8000-000000000003"
	SeedManagementID = "00000000-0000-4000-8000-000000000004"
	SeedEmployeeID   = "00000000-0000-4000-8000-000000000005"
	SeedITAdminID    = "00000000-0000-4000-8000-000000000006"

	seedProjectID = "00000000-0000-4000-8000-000000000101"
	seedLeaveID   = "00000000-0000-4000-8000-000000000102"
)

func DemoFixtures(year int) Fixtures {
	balances := func() *core.Balances { return &core.Balances{Annual: 14, Medical: 14, TimeOff: 2} }
	estimate := 120.0
	return Fixtures{
		Employees: []core.Employee{
			{ID: SeedHRID, Name: "Hadley HR", Email: "hr@example.com", Role: auth.RoleHR, Department: "People", Location: calendar.LocationA, Balances: balances()},
			{ID: SeedHODID, Name: "Harper Head", Email: "hod@example.com", Role: auth.RoleManager, Department: "Engineering", Location: calendar.LocationA, Balances: balances()},
			{ID: SeedFinanceID, Name: "Finley Finance", Email: "finance@example.com", Role: auth.RoleFinance, Department: "Finance", Location: calendar.LocationB, Balances: balances()},
			{ID: SeedManagementID, Name: "Morgan Management", Email: "management@example.com", Role: auth.RoleManagement, Department: "Executive", Location: calendar.LocationB, Balances: balances()},
			{ID: SeedEmployeeID, Name: "Emery Engineer", Email: "employee@example.com", Role: auth.RoleEmployee, Department: "Engineering", Location: calendar.LocationA, HODID: SeedHODID, ManagerID: SeedHODID, Balances: balances()},
			{ID: SeedITAdminID, Name: "Indy Admin", Email: "it@example.com", Role: auth.RoleITAdmin, Department: "IT", Location: calendar.LocationA, Balances: balances()},
		},
		Projects: []core.Project{
			{ID: seedProjectID, Name: "Plant upgrade", Department: "Engineering", Status: core.ProjectActive, IsBillable: true, StartDate: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)},
			{ID: seedLeaveID, Name: "Leave", Department: "People", Status: core.ProjectActive, StartDate: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)},
		},
		Tasks: []core.Task{
			{ID: "00000000-0000-4000-8000-000000000201", ProjectID: seedProjectID, Name: "Commissioning", EstimatedHours: &estimate, IsBillable: true, TaskType: core.TaskProject},
			{ID: "00000000-0000-4000-8000-000000000202", ProjectID: seedProjectID, Name: "Site survey", IsBillable: true, TaskType: core.TaskProject},
			{ID: "00000000-0000-4000-8000-000000000203", ProjectID: seedLeaveID, Name: "Annual leave", TaskType: core.TaskAnnualLeave},
			{ID: "00000000-0000-4000-8000-000000000204", ProjectID: seedLeaveID, Name: "Medical leave", TaskType: core.TaskMedicalLeave},
		},
		Holidays: []calendar.PublicHoliday{
			{Name: "New Year's Day", Date: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), Location: calendar.LocationBoth, Recurring: true},
			{Name: "Labour Day", Date: time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC), Location: calendar.LocationBoth, Recurring: true},
			{Name: "Site A Founders Day", Date: time.Date(year, time.March, 14, 0, 0, 0, 0, time.UTC), Location: calendar.LocationA},
			{Name: "Site B Harvest Day", Date: time.Date(year, time.September, 20, 0, 0, 0, 0, time.UTC), Location: calendar.LocationB},
			{Name: "Christmas Day", Date: time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC), Location: calendar.LocationBoth, Recurring: true},
		},
	}
}

// Seed inserts f, skipping rows that already exist.
func Seed(ctx context.Context, pool *pgxpool.Pool, f Fixtures) error {
	// users reference their HOD, so insert without it first
	for _, emp := range f.Employees {
		b := emp.Balances
		if b == nil {
			b = &core.Balances{}
		}
		if _, err := pool.Exec(ctx, `
      INSERT INTO users (id, name, email, role, department, location,
                         annual_leave_balance, medical_leave_balance, unpaid_leave_balance, time_off_balance)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
      ON CONFLICT DO NOTHING
    `, emp.ID, emp.Name, emp.Email, emp.Role, emp.Department, emp.Location, b.Annual, b.Medical, b.Unpaid, b.TimeOff); err != nil {
			return err
		}
	}
	for _, emp := range f.Employees {
		if emp.HODID == "" && emp.ManagerID == "" {
			continue
		}
		if _, err := pool.Exec(ctx, `
      UPDATE users SET hod_id = NULLIF($2, '')::uuid, manager_id = NULLIF($3, '')::uuid
      WHERE id = $1 AND hod_id IS NULL
    `, emp.ID, emp.HODID, emp.ManagerID); err != nil {
			return err
		}
	}
	for _, p := range f.Projects {
		if _, err := pool.Exec(ctx, `
      INSERT INTO projects (id, name, department, status, is_billable, start_date, end_date)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
      ON CONFLICT DO NOTHING
    `, p.ID, p.Name, p.Department, p.Status, p.IsBillable, p.StartDate, p.EndDate); err != nil {
			return err
		}
	}
	for _, t := range f.Tasks {
		if _, err := pool.Exec(ctx, `
      INSERT INTO tasks (id, project_id, name, description, estimated_hours, is_billable, task_type)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
      ON CONFLICT DO NOTHING
    `, t.ID, t.ProjectID, t.Name, t.Description, t.EstimatedHours, t.IsBillable, t.TaskType); err != nil {
			return err
		}
	}
	for _, h := range f.Holidays {
		if _, err := pool.Exec(ctx, `
      INSERT INTO public_holidays (name, date, location, recurring)
      VALUES ($1,$2,$3,$4)
      ON CONFLICT (date, location) DO NOTHING
    `, h.Name, h.Date, h.Location, h.Recurring); err != nil {
			return err
		}
	}
	return nil
}
