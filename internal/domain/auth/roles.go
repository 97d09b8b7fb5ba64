package auth

// Role is the organisational role carried in the access token.
type Role string

const (
	RoleEmployee             Role = "employee"
	RoleManager              Role = "manager"
	RoleHR                   Role = "hr"
	RoleFinance              Role = "finance"
	RoleManagement           Role = "management"
	RoleITAdmin              Role = "it_admin"
	RoleProductionSupervisor Role = "production_supervisor"
)

var validRoles = map[Role]bool{
	RoleEmployee:             true,
	RoleManager:              true,
	RoleHR:                   true,
	RoleFinance:              true,
	RoleManagement:           true,
	RoleITAdmin:              true,
	RoleProductionSupervisor: true,
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated caller of a state transition.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) Can(action Action) bool {
	return Can(a.Role, action)
}

// HasOrgScope reports whether the actor sees every employee, not just reports.
func (a Actor) HasOrgScope() bool {
	return a.Role == RoleHR || a.Role == RoleManagement
}
