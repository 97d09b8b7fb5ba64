package leave

import (
	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/workflow"
)

// Transitions is the fixed two-stage approval chain.
var Transitions = buildTransitions()

func buildTransitions() *workflow.Table[Status] {
	b := workflow.NewBuilder[Status]()
	b.Configure(StatusPending).
		Permit(workflow.TriggerApproveHOD, StatusApprovedHOD).
		Permit(workflow.TriggerReject, StatusRejected)
	b.Configure(StatusApprovedHOD).
		Permit(workflow.TriggerApproveHR, StatusApprovedHR).
		Permit(workflow.TriggerReject, StatusRejected)
	return b.Terminal(StatusApprovedHR, StatusRejected).Build()
}

// rejectAction is the capability needed to reject at the current stage.
func rejectAction(status Status) auth.Action {
	if status == StatusApprovedHOD {
		return auth.ActLeaveApproveHR
	}
	return auth.ActLeaveApproveHOD
}
