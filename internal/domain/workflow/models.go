package workflow

import "time"

// Status is the lifecycle state of a leave request. The chief stage is part
// of the enumeration so that a final approval without chief sign-off cannot
// be represented.
type Status string

const (
	StatusPending       Status = "pending"
	StatusChiefApproved Status = "chief_approved"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ChiefApproved reports whether the first approval stage has been passed.
// Clients of the old dashboard read this as a separate flag; here it is
// derived from the status so the two can never disagree.
func (s Status) ChiefApproved() bool {
	return s == StatusChiefApproved || s == StatusApproved
}

type Category string

const (
	CategoryVacation  Category = "vacation"
	CategorySick      Category = "sick"
	CategoryPersonal  Category = "personal"
	CategoryMaternity Category = "maternity"
	CategoryPaternity Category = "paternity"
)

var Categories = []Category{
	CategoryVacation,
	CategorySick,
	CategoryPersonal,
	CategoryMaternity,
	CategoryPaternity,
}

func ValidCategory(c Category) bool {
	for _, candidate := range Categories {
		if c == candidate {
			return true
		}
	}
	return false
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type LeaveRequest struct {
	ID              string     `json:"id"`
	EmployeeID      string     `json:"employeeId"`
	Category        Category   `json:"category"`
	StartDate       time.Time  `json:"startDate"`
	EndDate         time.Time  `json:"endDate"`
	Days            int        `json:"days"`
	Reason          string     `json:"reason"`
	Status          Status     `json:"status"`
	ChiefApprover   string     `json:"chiefApprover,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	DecidedBy       string     `json:"decidedBy,omitempty"`
	DecidedAt       *time.Time `json:"decidedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}
