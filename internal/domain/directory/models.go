package directory

import "time"

// DefaultAllotment is the annual leave-day entitlement applied when an
// employee record does not carry an explicit one.
const DefaultAllotment = 15

const (
	RoleAdmin    = "admin"
	RoleHR       = "hr"
	RoleHead     = "head"
	RoleEmployee = "employee"
)

type Employee struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Role       string    `json:"role"`
	Allotment  int       `json:"allotment"`
	CreatedAt  time.Time `json:"createdAt"`
}
