package overtime

import (
	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/workflow"
)

// Transitions is the fixed three-stage approval chain.
var Transitions = buildTransitions()

func buildTransitions() *workflow.Table[Status] {
	b := workflow.NewBuilder[Status]()
	b.Configure(StatusPending).
		Permit(workflow.TriggerApproveHOD, StatusApprovedHOD).
		Permit(workflow.TriggerReject, StatusRejected)
	b.Configure(StatusApprovedHOD).
		Permit(workflow.TriggerApproveFinance, StatusApprovedFinance).
		Permit(workflow.TriggerReject, StatusRejected)
	b.Configure(StatusApprovedFinance).
		Permit(workflow.TriggerApproveManagement, StatusApprovedManagement).
		Permit(workflow.TriggerReject, StatusRejected)
	return b.Terminal(StatusApprovedManagement, StatusRejected).Build()
}

// stageAction is the capability that owns the decision at status.
func stageAction(status Status) auth.Action {
	switch status {
	case StatusApprovedHOD:
		return auth.ActOvertimeApproveFinance
	case StatusApprovedFinance:
		return auth.ActOvertimeApproveManagement
	}
	return auth.ActOvertimeApproveHOD
}

// pendingStatus is the queue an approver with action works from.
var pendingStatus = map[auth.Action]Status{
	auth.ActOvertimeApproveHOD:        StatusPending,
	auth.ActOvertimeApproveFinance:    StatusApprovedHOD,
	auth.ActOvertimeApproveManagement: StatusApprovedFinance,
}

// openStatuses hold a period; a rejected claim frees it.
var openStatuses = []Status{StatusPending, StatusApprovedHOD, StatusApprovedFinance, StatusApprovedManagement}

// ErrPeriodTaken is returned when the employee already has an open claim for
// the period.
var ErrPeriodTaken = errs.Invalid("half", "an overtime request already exists for this period")
