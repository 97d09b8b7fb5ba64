package core

import "timesheet/internal/domain/auth"

// FilterEmployeeFields hides leave balances from callers outside the
// employee's approval chain.
func FilterEmployeeFields(emp *Employee, actor auth.Actor) {
	if actor.HasOrgScope() || actor.UserID == emp.ID {
		return
	}
	if actor.Role == auth.RoleManager && emp.HODID == actor.UserID {
		return
	}
	emp.Balances = nil
	emp.Email = ""
}
