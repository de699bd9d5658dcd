package workflow

import (
	"context"
	"time"
)

// Filter narrows a request listing. Department scoping is a query parameter
// here, not a per-role reimplementation: the head dashboards ask for their
// department, the admin dashboard asks for everything.
type Filter struct {
	EmployeeID string
	Department string
	Status     Status
}

// StatusUpdate carries the decision fields written alongside a status change.
// The request is replaced atomically; readers never observe a half-written
// record.
type StatusUpdate struct {
	Status          Status
	DecidedBy       string
	ChiefApprover   string
	RejectionReason string
	DecidedAt       time.Time
}

// StoreAPI is the single owner of the leave request collection. Requests are
// inserted once and updated only through the compare-and-set below; they are
// never deleted, the full history backs both audit and balance computation.
type StoreAPI interface {
	InsertRequest(ctx context.Context, req LeaveRequest) error

	// RequestByID returns ErrRequestNotFound when the id is unknown.
	RequestByID(ctx context.Context, id string) (LeaveRequest, error)

	// RequestsForEmployee returns the employee's full history, most recent
	// first. Every call re-reads the history; there is no cursor.
	RequestsForEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)

	// ListRequests returns requests matching the filter, most recent first.
	ListRequests(ctx context.Context, filter Filter) ([]LeaveRequest, error)

	// UpdateStatusIf applies the update only when the request's current
	// status equals expected, and reports whether the compare succeeded.
	// This is the at-most-once guarantee for transitions: a second actor
	// (or a duplicate invocation) fails the compare instead of overwriting.
	UpdateStatusIf(ctx context.Context, id string, expected Status, update StatusUpdate) (LeaveRequest, bool, error)
}
