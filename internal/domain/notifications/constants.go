package notifications

const (
	TypeLeaveSubmitted             = "leave_submitted"
	TypeLeaveAwaitingApproval      = "leave_awaiting_approval"
	TypeLeaveApprovedHOD           = "leave_approved_hod"
	TypeLeaveApprovedHR            = "leave_approved_hr"
	TypeLeaveRejected              = "leave_rejected"
	TypeOvertimeSubmitted          = "overtime_submitted"
	TypeOvertimeAwaitingApproval   = "overtime_awaiting_approval"
	TypeOvertimeApprovedHOD        = "overtime_approved_hod"
	TypeOvertimeApprovedFinance    = "overtime_approved_finance"
	TypeOvertimeApprovedManagement = "overtime_approved_management"
	TypeOvertimeRejected           = "overtime_rejected"
	TypeTimesheetApproved          = "timesheet_approved"
	TypeProjectAssigned            = "project_assigned"
	TypeTaskAssigned               = "task_assigned"
	TypeTicketSubmitted            = "ticket_submitted"
	TypeTicketAssigned             = "ticket_assigned"
	TypeTicketUpdated              = "ticket_updated"
)
