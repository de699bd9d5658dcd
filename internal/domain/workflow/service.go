package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"leaveflow/internal/domain/directory"
)

// DirectoryAPI is the employee directory the workflow consumes. The
// directory may lag behind the request history (employees removed while
// requests remain); only the operations that need the employee record fail
// on a missing reference, listings tolerate orphans.
type DirectoryAPI interface {
	EmployeeByID(ctx context.Context, id string) (directory.Employee, error)
	ChiefIDs(ctx context.Context, department string) ([]string, error)
	AdminIDs(ctx context.Context) ([]string, error)
}

// Notifier receives workflow events for delivery to a user. Delivery
// mechanics are out of the engine's hands; a failed notification is logged,
// never rolls a transition back.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, title, message string) error
}

// Auditor records one entry per workflow action.
type Auditor interface {
	Record(ctx context.Context, actorID, action, entityID, outcome string, details any) error
}

// Audit outcomes. A transition that leaves the request awaiting a further
// decision records "pending"; one that reaches a terminal state records
// "completed". This mirrors what the admin log screen displays.
const (
	OutcomePending   = "pending"
	OutcomeCompleted = "completed"
)

const (
	ActionSubmit       = "leave.request.submit"
	ActionChiefApprove = "leave.request.chief_approve"
	ActionForward      = "leave.request.forward"
	ActionApprove      = "leave.request.approve"
	ActionReject       = "leave.request.reject"
)

// Notification kinds, consumed by the dashboards' notification panes.
const (
	KindLeaveSubmitted     = "leave_submitted"
	KindLeaveChiefApproved = "leave_chief_approved"
	KindLeaveApproved      = "leave_approved"
	KindLeaveRejected      = "leave_rejected"
)

// Service is the leave workflow engine: the single owner of the request
// collection. All reads and writes of leave requests go through it; the
// dashboards are plain callers.
type Service struct {
	Store     StoreAPI
	Directory DirectoryAPI
	Notify    Notifier
	Audit     Auditor

	now   func() time.Time
	newID func() string
}

func NewService(store StoreAPI, dir DirectoryAPI, notifier Notifier, auditor Auditor) *Service {
	return &Service{
		Store:     store,
		Directory: dir,
		Notify:    notifier,
		Audit:     auditor,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithClock overrides time and id generation; used by tests.
func (s *Service) WithClock(now func() time.Time, newID func() string) *Service {
	if now != nil {
		s.now = now
	}
	if newID != nil {
		s.newID = newID
	}
	return s
}

// Submit validates a proposed request against the employee's derived balance
// and admits it as pending. A failed validation creates nothing.
func (s *Service) Submit(ctx context.Context, sub Submission) (LeaveRequest, error) {
	emp, err := s.Directory.EmployeeByID(ctx, sub.EmployeeID)
	if err != nil {
		return LeaveRequest{}, ErrEmployeeNotFound
	}

	history, err := s.Store.RequestsForEmployee(ctx, sub.EmployeeID)
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("load request history: %w", err)
	}

	days, err := Validate(sub, RemainingBalance(emp.Allotment, history))
	if err != nil {
		return LeaveRequest{}, err
	}

	req := LeaveRequest{
		ID:         s.newID(),
		EmployeeID: sub.EmployeeID,
		Category:   sub.Category,
		StartDate:  truncateToDay(sub.StartDate),
		EndDate:    truncateToDay(sub.EndDate),
		Days:       days,
		Reason:     sub.Reason,
		Status:     StatusPending,
		CreatedAt:  s.now(),
	}
	if err := s.Store.InsertRequest(ctx, req); err != nil {
		return LeaveRequest{}, err
	}

	title := "New Leave Request"
	message := fmt.Sprintf("%s filed a %s leave for %d day(s).", emp.Name, req.Category, req.Days)
	for _, id := range s.chiefIDs(ctx, emp.Department) {
		s.notify(ctx, id, KindLeaveSubmitted, title, message)
	}
	for _, id := range s.adminIDs(ctx) {
		s.notify(ctx, id, KindLeaveSubmitted, title, message)
	}
	s.audit(ctx, sub.EmployeeID, ActionSubmit, req.ID, OutcomePending, map[string]any{
		"category": req.Category,
		"days":     req.Days,
	})
	return req, nil
}

// Balance recomputes the employee's remaining leave days from the full
// request history. Never cached.
func (s *Service) Balance(ctx context.Context, employeeID string) (int, error) {
	emp, err := s.Directory.EmployeeByID(ctx, employeeID)
	if err != nil {
		return 0, ErrEmployeeNotFound
	}
	history, err := s.Store.RequestsForEmployee(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	return RemainingBalance(emp.Allotment, history), nil
}

// GetRequest returns a single request by id.
func (s *Service) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	return s.Store.RequestByID(ctx, requestID)
}

// ListRequests enumerates requests matching the filter, most recent first.
func (s *Service) ListRequests(ctx context.Context, filter Filter) ([]LeaveRequest, error) {
	return s.Store.ListRequests(ctx, filter)
}

// ChiefDecide applies the department head's first-stage decision. Approval
// moves pending to chief_approved; rejection is terminal from either
// non-terminal state.
func (s *Service) ChiefDecide(ctx context.Context, requestID, actorID string, decision Decision, rejectionReason string) (LeaveRequest, error) {
	req, err := s.Store.RequestByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}

	switch decision {
	case DecisionApprove:
		if req.Status == StatusChiefApproved {
			// Duplicate of the decision already applied: no-op.
			return req, nil
		}
		if req.Status != StatusPending {
			return req, &InvalidTransitionError{RequestID: requestID, Status: req.Status, Action: "chief-approve"}
		}
		updated, ok, err := s.Store.UpdateStatusIf(ctx, requestID, StatusPending, StatusUpdate{
			Status:        StatusChiefApproved,
			DecidedBy:     actorID,
			ChiefApprover: actorID,
			DecidedAt:     s.now(),
		})
		if err != nil {
			return LeaveRequest{}, err
		}
		if !ok {
			return s.resolveRace(requestID, updated, StatusChiefApproved, "chief-approve")
		}
		s.notifyChiefStagePassed(ctx, updated)
		s.audit(ctx, actorID, ActionChiefApprove, requestID, OutcomePending, nil)
		return updated, nil

	case DecisionReject:
		return s.reject(ctx, req, actorID, rejectionReason, "chief-reject")

	default:
		return req, &InvalidTransitionError{RequestID: requestID, Status: req.Status, Action: string(decision)}
	}
}

// AdminDecide applies the admin's decision. An approve on a request the
// chief has signed off is the final approval; an approve on a still-pending
// request is reinterpreted as forwarding it into the chief-approved stage,
// with the admin acting as first-stage approver. The two branches are
// deliberately explicit rather than collapsed.
func (s *Service) AdminDecide(ctx context.Context, requestID, actorID string, decision Decision, rejectionReason string) (LeaveRequest, error) {
	req, err := s.Store.RequestByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}

	switch decision {
	case DecisionApprove:
		switch req.Status {
		case StatusApproved:
			// Second invocation on the same id: same terminal state, and the
			// balance was deducted exactly once because deduction is the
			// ledger counting this request as approved.
			return req, nil
		case StatusChiefApproved:
			updated, ok, err := s.Store.UpdateStatusIf(ctx, requestID, StatusChiefApproved, StatusUpdate{
				Status:    StatusApproved,
				DecidedBy: actorID,
				DecidedAt: s.now(),
			})
			if err != nil {
				return LeaveRequest{}, err
			}
			if !ok {
				return s.resolveRace(requestID, updated, StatusApproved, "approve")
			}
			s.notify(ctx, updated.EmployeeID, KindLeaveApproved,
				"Leave Request Approved",
				fmt.Sprintf("Your leave request for %d day(s) has been approved by the Chief and Admin. %d day(s) have been deducted from your leave balance.", updated.Days, updated.Days))
			s.audit(ctx, actorID, ActionApprove, requestID, OutcomeCompleted, map[string]any{"days": updated.Days})
			return updated, nil
		case StatusPending:
			updated, ok, err := s.Store.UpdateStatusIf(ctx, requestID, StatusPending, StatusUpdate{
				Status:        StatusChiefApproved,
				DecidedBy:     actorID,
				ChiefApprover: actorID,
				DecidedAt:     s.now(),
			})
			if err != nil {
				return LeaveRequest{}, err
			}
			if !ok {
				return s.resolveRace(requestID, updated, StatusChiefApproved, "approve")
			}
			s.notifyChiefStagePassed(ctx, updated)
			s.audit(ctx, actorID, ActionForward, requestID, OutcomePending, nil)
			return updated, nil
		default:
			return req, &InvalidTransitionError{RequestID: requestID, Status: req.Status, Action: "approve"}
		}

	case DecisionReject:
		return s.reject(ctx, req, actorID, rejectionReason, "reject")

	default:
		return req, &InvalidTransitionError{RequestID: requestID, Status: req.Status, Action: string(decision)}
	}
}

// reject moves a non-terminal request to rejected, recording the reason and
// notifying the employee with it.
func (s *Service) reject(ctx context.Context, req LeaveRequest, actorID, rejectionReason, action string) (LeaveRequest, error) {
	if req.Status == StatusRejected {
		return req, nil
	}
	if req.Status.Terminal() {
		return req, &InvalidTransitionError{RequestID: req.ID, Status: req.Status, Action: action}
	}

	updated, ok, err := s.Store.UpdateStatusIf(ctx, req.ID, req.Status, StatusUpdate{
		Status:          StatusRejected,
		DecidedBy:       actorID,
		RejectionReason: rejectionReason,
		DecidedAt:       s.now(),
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	if !ok {
		return s.resolveRace(req.ID, updated, StatusRejected, action)
	}

	message := fmt.Sprintf("Your leave request for %d day(s) has been rejected.", updated.Days)
	if updated.RejectionReason != "" {
		message = fmt.Sprintf("Your leave request for %d day(s) has been rejected. Reason: %s", updated.Days, updated.RejectionReason)
	}
	s.notify(ctx, updated.EmployeeID, KindLeaveRejected, "Leave Request Rejected", message)
	s.audit(ctx, actorID, ActionReject, updated.ID, OutcomeCompleted, map[string]any{"reason": updated.RejectionReason})
	return updated, nil
}

// resolveRace maps a failed compare-and-set to the workflow's semantics: if
// another invocation already produced the state this one wanted, the call is
// an idempotent no-op; otherwise the transition is invalid.
func (s *Service) resolveRace(requestID string, current LeaveRequest, wanted Status, action string) (LeaveRequest, error) {
	if current.Status == wanted {
		return current, nil
	}
	return current, &InvalidTransitionError{RequestID: requestID, Status: current.Status, Action: action}
}

// notifyChiefStagePassed fires the side effects shared by the chief-approve
// and admin-forward transitions: the admins learn the request needs final
// approval, the employee learns the chief stage has passed.
func (s *Service) notifyChiefStagePassed(ctx context.Context, req LeaveRequest) {
	for _, id := range s.adminIDs(ctx) {
		s.notify(ctx, id, KindLeaveChiefApproved,
			"Leave Approved by Chief",
			fmt.Sprintf("A leave request for %d day(s) has been approved by the Chief. Please review for final approval.", req.Days))
	}
	s.notify(ctx, req.EmployeeID, KindLeaveChiefApproved,
		"Leave Approved by Chief",
		"Your leave request has been approved by the Chief and is pending Admin approval.")
}

func (s *Service) chiefIDs(ctx context.Context, department string) []string {
	ids, err := s.Directory.ChiefIDs(ctx, department)
	if err != nil {
		slog.Warn("chief lookup failed", "department", department, "err", err)
		return nil
	}
	return ids
}

func (s *Service) adminIDs(ctx context.Context) []string {
	ids, err := s.Directory.AdminIDs(ctx)
	if err != nil {
		slog.Warn("admin lookup failed", "err", err)
		return nil
	}
	return ids
}

func (s *Service) notify(ctx context.Context, userID, kind, title, message string) {
	if s.Notify == nil {
		return
	}
	if err := s.Notify.Notify(ctx, userID, kind, title, message); err != nil {
		slog.Warn("workflow notification failed", "kind", kind, "userId", userID, "err", err)
	}
}

func (s *Service) audit(ctx context.Context, actorID, action, entityID, outcome string, details any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, actorID, action, entityID, outcome, details); err != nil {
		slog.Warn("workflow audit failed", "action", action, "entityId", entityID, "err", err)
	}
}
