package model

// EmployeeRole distinguishes quota-carrying staff from team leads.
type EmployeeRole string

const (
	RoleStaff    EmployeeRole = "staff"
	RoleTeamLead EmployeeRole = "team_lead"
)

// EmployeeStatus marks whether an employee participates in distribution.
type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

// Employee is a sales rep eligible to receive pool leads. Email is the identity.
type Employee struct {
	Email        string         `json:"email"`
	FullName     string         `json:"full_name"`
	Division     string         `json:"division"`
	Role         EmployeeRole   `json:"role"`
	Status       EmployeeStatus `json:"status"`
	CalendarLink string         `json:"calendar_link,omitempty"` // carried onto leads on assignment
}
