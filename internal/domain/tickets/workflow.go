package tickets

import "timesheet/internal/domain/workflow"

// Transitions moves a ticket through the support queue. A resolved ticket
// can be reopened until it is closed.
var Transitions = buildTransitions()

func buildTransitions() *workflow.Table[Status] {
	b := workflow.NewBuilder[Status]()
	b.Configure(StatusOpen).
		Permit(workflow.TriggerStart, StatusInProgress).
		Permit(workflow.TriggerResolve, StatusResolved).
		Permit(workflow.TriggerClose, StatusClosed)
	b.Configure(StatusInProgress).
		Permit(workflow.TriggerResolve, StatusResolved).
		Permit(workflow.TriggerClose, StatusClosed)
	b.Configure(StatusResolved).
		Permit(workflow.TriggerClose, StatusClosed).
		Permit(workflow.TriggerReopen, StatusOpen)
	return b.Terminal(StatusClosed).Build()
}

// ownerMayFire lists the triggers the submitter may fire on their own ticket
// without the support capability.
func ownerMayFire(trigger workflow.Trigger) bool {
	return trigger == workflow.TriggerClose || trigger == workflow.TriggerReopen
}
