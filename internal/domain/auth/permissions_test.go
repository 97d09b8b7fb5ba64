package auth

import (
	"errors"
	"testing"

	"timesheet/internal/domain/errs"
)

func TestEveryRoleHasCapabilities(t *testing.T) {
	for role := range validRoles {
		if len(Capabilities[role]) == 0 {
			t.Fatalf("role %s has no capabilities", role)
		}
	}
	for role := range Capabilities {
		if !role.IsValid() {
			t.Fatalf("capability table has unknown role %s", role)
		}
	}
}

func TestApprovalStagesAreSeparated(t *testing.T) {
	cases := []struct {
		role    Role
		action  Action
		allowed bool
	}{
		{RoleManager, ActLeaveApproveHOD, true},
		{RoleManager, ActLeaveApproveHR, false},
		{RoleHR, ActLeaveApproveHR, true},
		{RoleHR, ActLeaveApproveHOD, false},
		{RoleFinance, ActOvertimeApproveFinance, true},
		{RoleFinance, ActOvertimeApproveManagement, false},
		{RoleManagement, ActOvertimeApproveManagement, true},
		{RoleEmployee, ActOvertimeApproveHOD, false},
		{RoleEmployee, ActLeaveSubmit, true},
		{RoleITAdmin, ActHolidaysManage, false},
		{RoleHR, ActHolidaysManage, true},
		{RoleITAdmin, ActTicketManage, true},
		{RoleManager, ActTicketManage, false},
		{RoleEmployee, ActTicketSubmit, true},
		{RoleManager, ActWorkManage, true},
		{RoleEmployee, ActWorkManage, false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.action); got != tc.allowed {
			t.Fatalf("Can(%s, %s) = %v, want %v", tc.role, tc.action, got, tc.allowed)
		}
	}
}

func TestRequire(t *testing.T) {
	if err := Require(Actor{UserID: "u1", Role: RoleEmployee}, ActLeaveSubmit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Require(Actor{UserID: "u1", Role: RoleEmployee}, ActLeaveApproveHR); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := Require(Actor{Role: RoleHR}, ActLeaveApproveHR); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden for anonymous actor, got %v", err)
	}
}

func TestSharedSelfServiceSliceNotAliased(t *testing.T) {
	before := len(Capabilities[RoleEmployee])
	_ = ActionsFor(RoleManager)
	if len(Capabilities[RoleEmployee]) != before {
		t.Fatal("employee capabilities changed")
	}
	if Can(RoleEmployee, ActTimesheetApprove) {
		t.Fatal("employee must not inherit manager capabilities")
	}
}
