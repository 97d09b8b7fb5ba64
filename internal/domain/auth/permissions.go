package auth

import (
	"context"
	"fmt"
	"sort"

	"timesheet/internal/domain/errs"
)

// Action is an operation a role may invoke.
type Action string

const (
	ActTimesheetWrite            Action = "timesheet.write"
	ActTimesheetApprove          Action = "timesheet.approve"
	ActLeaveSubmit               Action = "leave.submit"
	ActLeaveApproveHOD           Action = "leave.approve_hod"
	ActLeaveApproveHR            Action = "leave.approve_hr"
	ActOvertimeSubmit            Action = "overtime.submit"
	ActOvertimeApproveHOD        Action = "overtime.approve_hod"
	ActOvertimeApproveFinance    Action = "overtime.approve_finance"
	ActOvertimeApproveManagement Action = "overtime.approve_management"
	ActHolidaysManage            Action = "holidays.manage"
	ActVarianceRead              Action = "variance.read"
	ActVarianceTeam              Action = "variance.team"
	ActReportsExport             Action = "reports.export"
	ActBalancesAdjust            Action = "balances.adjust"
	ActWorkManage                Action = "work.manage"
	ActTicketSubmit              Action = "tickets.submit"
	ActTicketManage              Action = "tickets.manage"
)

var selfService = []Action{
	ActTimesheetWrite,
	ActLeaveSubmit,
	ActOvertimeSubmit,
	ActVarianceRead,
	ActTicketSubmit,
}

// Capabilities maps each role to the operations it may invoke.
var Capabilities = map[Role][]Action{
	RoleEmployee:             selfService,
	RoleProductionSupervisor: selfService,
	RoleITAdmin: append(append([]Action{}, selfService...),
		ActTicketManage,
	),
	RoleManager: append(append([]Action{}, selfService...),
		ActTimesheetApprove,
		ActLeaveApproveHOD,
		ActOvertimeApproveHOD,
		ActVarianceTeam,
		ActReportsExport,
		ActWorkManage,
	),
	RoleHR: append(append([]Action{}, selfService...),
		ActTimesheetApprove,
		ActLeaveApproveHR,
		ActHolidaysManage,
		ActVarianceTeam,
		ActReportsExport,
		ActBalancesAdjust,
		ActWorkManage,
	),
	RoleFinance: append(append([]Action{}, selfService...),
		ActOvertimeApproveFinance,
		ActReportsExport,
	),
	RoleManagement: append(append([]Action{}, selfService...),
		ActOvertimeApproveManagement,
		ActVarianceTeam,
		ActReportsExport,
	),
}

var capabilityIndex = buildIndex(Capabilities)

func buildIndex(table map[Role][]Action) map[Role]map[Action]bool {
	out := make(map[Role]map[Action]bool, len(table))
	for role, actions := range table {
		set := make(map[Action]bool, len(actions))
		for _, a := range actions {
			set[a] = true
		}
		out[role] = set
	}
	return out
}

func Can(role Role, action Action) bool {
	return capabilityIndex[role][action]
}

// Require returns ErrForbidden when the actor lacks the capability.
func Require(actor Actor, action Action) error {
	if actor.UserID == "" {
		return fmt.Errorf("%w: anonymous actor", errs.ErrForbidden)
	}
	if !Can(actor.Role, action) {
		return fmt.Errorf("%w: role %s cannot %s", errs.ErrForbidden, actor.Role, action)
	}
	return nil
}

// ActionsFor lists a role's capabilities in a stable order.
func ActionsFor(role Role) []Action {
	out := make([]Action, 0, len(capabilityIndex[role]))
	for a := range capabilityIndex[role] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CapabilityTable answers route permission checks from the static table.
type CapabilityTable struct{}

func (CapabilityTable) HasPermission(_ context.Context, role Role, permission Action) (bool, error) {
	return Can(role, permission), nil
}
