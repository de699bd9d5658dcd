package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDateRange = errors.New("end date before start date")
	ErrMissingReason    = errors.New("reason is required")
	ErrRequestNotFound  = errors.New("leave request not found")
	ErrEmployeeNotFound = errors.New("employee not found")
)

// InsufficientBalanceError reports the remaining balance so the caller can
// show it to the submitting employee.
type InsufficientBalanceError struct {
	Requested int
	Remaining int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient leave balance: requested %d days, %d remaining", e.Requested, e.Remaining)
}

// InvalidTransitionError is returned when a decision is applied to a request
// whose current status does not permit it. State is left unchanged.
type InvalidTransitionError struct {
	RequestID string
	Status    Status
	Action    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s request %s in status %s", e.Action, e.RequestID, e.Status)
}
