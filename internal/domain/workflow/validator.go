package workflow

import (
	"strings"
	"time"
)

// Submission is a proposed leave request before admission.
type Submission struct {
	EmployeeID string
	Category   Category
	StartDate  time.Time
	EndDate    time.Time
	Reason     string
}

// Validate decides whether a submission may enter the workflow. Checks run
// in order: date range, balance, reason. The first failure wins and nothing
// is created or mutated. Returns the computed inclusive day count on success.
//
// Overlap with the employee's other pending or approved requests is not
// checked. The old dashboards never did this either; it stays open pending a
// product decision rather than being silently added or removed.
func Validate(sub Submission, remaining int) (int, error) {
	days, err := CalculateDays(sub.StartDate, sub.EndDate)
	if err != nil {
		return 0, err
	}
	if days > remaining {
		return 0, &InsufficientBalanceError{Requested: days, Remaining: remaining}
	}
	if strings.TrimSpace(sub.Reason) == "" {
		return 0, ErrMissingReason
	}
	return days, nil
}
