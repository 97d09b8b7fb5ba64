// Package memstore keeps every domain store in process memory. It backs
// STORAGE_DRIVER=memory and the handler tests.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"timesheet/internal/domain/audit"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/leave"
	"timesheet/internal/domain/notifications"
	"timesheet/internal/domain/overtime"
	"timesheet/internal/domain/tickets"
	"timesheet/internal/domain/timesheet"
)

type DB struct {
	mu sync.Mutex

	employees        map[string]core.Employee
	projects         map[string]core.Project
	tasks            map[string]core.Task
	assignments      map[assignmentKey]core.Assignment
	tickets          map[string]tickets.Ticket
	holidays         map[string]calendar.PublicHoliday
	leaveRequests    map[string]leave.Request
	overtimeRequests map[string]overtime.Request
	entries          map[string]timesheet.Entry
	notifications    []notifications.Notification
	events           []audit.Event

	// serialise read-check-write sequences run through WithTx
	leaveTx     sync.Mutex
	overtimeTx  sync.Mutex
	timesheetTx sync.Mutex
	coreTx      sync.Mutex
	ticketsTx   sync.Mutex

	now func() time.Time
}

func New() *DB {
	return &DB{
		employees:        map[string]core.Employee{},
		projects:         map[string]core.Project{},
		tasks:            map[string]core.Task{},
		assignments:      map[assignmentKey]core.Assignment{},
		tickets:          map[string]tickets.Ticket{},
		holidays:         map[string]calendar.PublicHoliday{},
		leaveRequests:    map[string]leave.Request{},
		overtimeRequests: map[string]overtime.Request{},
		entries:          map[string]timesheet.Entry{},
		now:              time.Now,
	}
}

func newID() string {
	return uuid.NewString()
}

func (db *DB) Core() *CoreStore                   { return &CoreStore{db: db} }
func (db *DB) Calendar() *CalendarStore           { return &CalendarStore{db: db} }
func (db *DB) Leave() *LeaveStore                 { return &LeaveStore{db: db} }
func (db *DB) Overtime() *OvertimeStore           { return &OvertimeStore{db: db} }
func (db *DB) Timesheet() *TimesheetStore         { return &TimesheetStore{db: db} }
func (db *DB) Notifications() *NotificationsStore { return &NotificationsStore{db: db} }
func (db *DB) Audit() *AuditStore                 { return &AuditStore{db: db} }
func (db *DB) Tickets() *TicketsStore             { return &TicketsStore{db: db} }

// PutEmployee inserts or replaces an employee. A missing ID is generated.
func (db *DB) PutEmployee(emp core.Employee) core.Employee {
	db.mu.Lock()
	defer db.mu.Unlock()
	if emp.ID == "" {
		emp.ID = newID()
	}
	if emp.Balances == nil {
		emp.Balances = &core.Balances{}
	} else {
		b := *emp.Balances
		emp.Balances = &b
	}
	now := db.now().UTC()
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = now
	}
	emp.UpdatedAt = now
	db.employees[emp.ID] = emp
	return copyEmployee(emp)
}

func (db *DB) PutProject(p core.Project) core.Project {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Status == "" {
		p.Status = core.ProjectActive
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = db.now().UTC()
	}
	db.projects[p.ID] = p
	return p
}

func (db *DB) PutTask(t core.Task) core.Task {
	db.mu.Lock()
	defer db.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	if t.TaskType == "" {
		t.TaskType = core.TaskProject
	}
	if t.Priority == "" {
		t.Priority = core.PriorityMedium
	}
	if t.Status == "" {
		t.Status = core.TaskNotStarted
	}
	db.tasks[t.ID] = t
	return t
}

func copyEmployee(emp core.Employee) core.Employee {
	if emp.Balances != nil {
		b := *emp.Balances
		emp.Balances = &b
	}
	return emp
}
