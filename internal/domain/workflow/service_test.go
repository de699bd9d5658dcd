package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveflow/internal/domain/directory"
)

type fakeDirectory struct {
	employees map[string]directory.Employee
}

func (f *fakeDirectory) EmployeeByID(ctx context.Context, id string) (directory.Employee, error) {
	emp, ok := f.employees[id]
	if !ok {
		return directory.Employee{}, directory.ErrNotFound
	}
	return emp, nil
}

func (f *fakeDirectory) ChiefIDs(ctx context.Context, department string) ([]string, error) {
	var ids []string
	for _, emp := range f.employees {
		if emp.Role == directory.RoleHead && emp.Department == department {
			ids = append(ids, emp.ID)
		}
	}
	return ids, nil
}

func (f *fakeDirectory) AdminIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for _, emp := range f.employees {
		if emp.Role == directory.RoleAdmin {
			ids = append(ids, emp.ID)
		}
	}
	return ids, nil
}

type sentNotification struct {
	UserID  string
	Kind    string
	Title   string
	Message string
}

type recordingNotifier struct {
	sent []sentNotification
}

func (r *recordingNotifier) Notify(ctx context.Context, userID, kind, title, message string) error {
	r.sent = append(r.sent, sentNotification{UserID: userID, Kind: kind, Title: title, Message: message})
	return nil
}

func (r *recordingNotifier) to(userID string) []sentNotification {
	var out []sentNotification
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type auditEntry struct {
	ActorID  string
	Action   string
	EntityID string
	Outcome  string
}

type recordingAuditor struct {
	entries []auditEntry
}

func (r *recordingAuditor) Record(ctx context.Context, actorID, action, entityID, outcome string, details any) error {
	r.entries = append(r.entries, auditEntry{ActorID: actorID, Action: action, EntityID: entityID, Outcome: outcome})
	return nil
}

type fixture struct {
	svc      *Service
	store    *MemoryStore
	notifier *recordingNotifier
	auditor  *recordingAuditor
}

const (
	empID   = "emp-1"
	chiefID = "chief-1"
	adminID = "admin-1"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := &fakeDirectory{employees: map[string]directory.Employee{
		empID:   {ID: empID, Name: "Dana Cruz", Department: "engineering", Role: directory.RoleEmployee, Allotment: 15},
		chiefID: {ID: chiefID, Name: "Lee Ramos", Department: "engineering", Role: directory.RoleHead, Allotment: 15},
		adminID: {ID: adminID, Name: "Alex Ong", Department: "operations", Role: directory.RoleAdmin, Allotment: 15},
		"emp-2": {ID: "emp-2", Name: "Sam Reyes", Department: "finance", Role: directory.RoleEmployee, Allotment: 2},
	}}
	store := NewMemoryStore()
	store.Departments[empID] = "engineering"
	store.Departments["emp-2"] = "finance"

	notifier := &recordingNotifier{}
	auditor := &recordingAuditor{}

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	seq := 0
	svc := NewService(store, dir, notifier, auditor).WithClock(
		func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
		func() string {
			seq++
			return fmt.Sprintf("req-%d", seq)
		},
	)
	return &fixture{svc: svc, store: store, notifier: notifier, auditor: auditor}
}

func vacation(employeeID string, startDay, endDay int) Submission {
	return Submission{
		EmployeeID: employeeID,
		Category:   CategoryVacation,
		StartDate:  day(2024, 6, startDay),
		EndDate:    day(2024, 6, endDay),
		Reason:     "family trip",
	}
}

func TestSubmitAcceptedLeavesBalanceUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, vacation(empID, 10, 12))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, 3, req.Days)
	assert.False(t, req.Status.ChiefApproved())

	balance, err := f.svc.Balance(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, 15, balance, "pending requests must not consume balance")
}

func TestSubmitNotifiesChiefsAndAdmins(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), vacation(empID, 10, 12))
	require.NoError(t, err)

	require.Len(t, f.notifier.to(chiefID), 1)
	require.Len(t, f.notifier.to(adminID), 1)
	assert.Equal(t, KindLeaveSubmitted, f.notifier.to(chiefID)[0].Kind)

	require.Len(t, f.auditor.entries, 1)
	assert.Equal(t, ActionSubmit, f.auditor.entries[0].Action)
	assert.Equal(t, OutcomePending, f.auditor.entries[0].Outcome)
}

func TestSubmitInsufficientBalanceCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, vacation("emp-2", 10, 12))
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Remaining)
	assert.Equal(t, 3, insufficient.Requested)

	requests, err := f.svc.ListRequests(ctx, Filter{EmployeeID: "emp-2"})
	require.NoError(t, err)
	assert.Empty(t, requests, "failed validation must not create a request")
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.auditor.entries)
}

func TestSubmitUnknownEmployee(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), vacation("ghost", 10, 12))
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestChiefApproveMovesToChiefApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, vacation(empID, 10, 12))
	require.NoError(t, err)

	updated, err := f.svc.ChiefDecide(ctx, req.ID, chiefID, DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, StatusChiefApproved, updated.Status)
	assert.True(t, updated.Status.ChiefApproved())
	assert.Equal(t, chiefID, updated.ChiefApprover)

	balance, err := f.svc.Balance(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, 15, balance, "chief approval alone must not deduct")

	// Admin is told the request needs final approval; employee is told the
	// chief stage passed.
	assert.NotEmpty(t, f.notifier.to(adminID))
	var kinds []string
	for _, n := range f.notifier.to(empID) {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, KindLeaveChiefApproved)
}

func TestAdminFinalApproveDeductsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, vacation(empID, 10, 12))
	require.NoError(t, err)
	_, err = f.svc.ChiefDecide(ctx, req.ID, chiefID, DecisionApprove, "")
	require.NoError(t, err)

	updated, err := f.svc.AdminDecide(ctx, req.ID, adminID, DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, updated.Status)

	balance, err := f.svc.Balance(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, 12, balance)

	last := f.auditor.entries[len(f.auditor.entries)-1]
	assert.Equal(t, ActionApprove, last.Action)
	assert.Equal(t, OutcomeCompleted, last.Outcome)
}

func TestAdminApproveOnPendingForwardsToChiefStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, vacation(empID, 10, 12))
	require.NoError(t, err)

	// Admin acting before the chief: the approve is a forward, not a final
	// approval.
	updated, err := f.svc.AdminDecide(ctx, req.ID, adminID, DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, StatusChiefApproved, updated.Status)
	assert.Equal(t, adminID, updated.ChiefApprover)

	balance, err := f.svc.Balance(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, 15, balance, "forwarding must not deduct")

	last := f.auditor.entries[len(f.auditor.entries)-1]
	assert.Equal(t, ActionForward, last.Action)

	// A second approve now completes the chain.
	final, err := f.svc.AdminDecide(ctx, req.ID, adminID, DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, final.Status)
}

func TestAdminApproveIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, vacation(empID, 10, 12))
	require.NoError(t, err)
	_, err = f.svc.ChiefDecide(ctx, req.ID, chiefID, DecisionApprove, "")
	require.NoError(t, err)
	first, err := f.svc.AdminDecide(ctx, req.ID, adminID, DecisionApprove, "")
	require.NoError(t, err)

	audits := len(f.auditor.entries)
	notifications := len(f.notifier.sent)

	second, err := f.svc.AdminDecide(ctx, req.ID, adminID, DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.DecidedAt, second.DecidedAt)

	balance, err := f.svc.Balance(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, 12, balance, "balance must be deducted exactly once")
	assert.Equal(t, audits, len(f.auditor.entries), "duplicate decision must not re-audit")
	assert.Equal(t, notifications, len(f.notifier.sent), "duplicate decision must not re-notify")
}

func TestChiefRejectStoresReasonAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, vacation(empID, 10, 12))
	require.NoError(t, err)

	updated, err := f.svc.ChiefDecide(ctx, req.ID, chiefID, DecisionReject, "coverage conflict")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, updated.Status)
	assert.Equal(t, "coverage conflict", updated.RejectionReason)

	balance, err := f.svc.Balance(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, 15, balance)

	employeeNotes := f.notifier.to(empID)
	require.NotEmpty(t, employeeNotes)
	last := employeeNotes[len(employeeNotes)-1]
	assert.Equal(t, KindLeaveRejected, last.Kind)
	assert.Contains(t, last.Message, "coverage conflict")

	lastAudit := f.auditor.entries[len(f.auditor.entries)-1]
	assert.Equal(t, OutcomeCompleted, lastAudit.Outcome)
}

func TestAdminRejectFromChiefApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, vacation(empID, 10, 12))
	require.NoError(t, err)
	_, err = f.svc.ChiefDecide(ctx, req.ID, chiefID, DecisionApprove, "")
	require.NoError(t, err)

	updated, err := f.svc.AdminDecide(ctx, req.ID, adminID, DecisionReject, "blackout period")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, updated.Status)

	balance, err := f.svc.Balance(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, 15, balance)
}

func TestNoTransitionsFromTerminalStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Rejected request: every further decision except a duplicate reject is
	// invalid and leaves the record unchanged.
	rejected, err := f.svc.Submit(ctx, vacation(empID, 10, 10))
	require.NoError(t, err)
	_, err = f.svc.ChiefDecide(ctx, rejected.ID, chiefID, DecisionReject, "no")
	require.NoError(t, err)

	var invalid *InvalidTransitionError
	_, err = f.svc.ChiefDecide(ctx, rejected.ID, chiefID, DecisionApprove, "")
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusRejected, invalid.Status)

	_, err = f.svc.AdminDecide(ctx, rejected.ID, adminID, DecisionApprove, "")
	require.ErrorAs(t, err, &invalid)

	current, err := f.svc.GetRequest(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, current.Status)

	// Approved request: rejecting it afterwards is invalid.
	approved, err := f.svc.Submit(ctx, vacation(empID, 12, 12))
	require.NoError(t, err)
	_, err = f.svc.ChiefDecide(ctx, approved.ID, chiefID, DecisionApprove, "")
	require.NoError(t, err)
	_, err = f.svc.AdminDecide(ctx, approved.ID, adminID, DecisionApprove, "")
	require.NoError(t, err)

	_, err = f.svc.ChiefDecide(ctx, approved.ID, chiefID, DecisionReject, "late")
	require.ErrorAs(t, err, &invalid)
	_, err = f.svc.AdminDecide(ctx, approved.ID, adminID, DecisionReject, "late")
	require.ErrorAs(t, err, &invalid)

	current, err = f.svc.GetRequest(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, current.Status)
}

func TestChiefApproveAfterChiefStageIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, vacation(empID, 10, 12))
	require.NoError(t, err)
	_, err = f.svc.ChiefDecide(ctx, req.ID, chiefID, DecisionApprove, "")
	require.NoError(t, err)

	// Duplicate chief approval is a no-op, not an error.
	again, err := f.svc.ChiefDecide(ctx, req.ID, chiefID, DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, StatusChiefApproved, again.Status)
}

func TestDecideUnknownRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ChiefDecide(context.Background(), "nope", chiefID, DecisionApprove, "")
	assert.True(t, errors.Is(err, ErrRequestNotFound))
}

func TestListRequestsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, vacation(empID, 10, 10))
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx, vacation(empID, 12, 12))
	require.NoError(t, err)
	_, err = f.svc.ChiefDecide(ctx, first.ID, chiefID, DecisionReject, "covered elsewhere")
	require.NoError(t, err)

	byEmployee, err := f.svc.ListRequests(ctx, Filter{EmployeeID: empID})
	require.NoError(t, err)
	require.Len(t, byEmployee, 2)
	assert.Equal(t, second.ID, byEmployee[0].ID, "most recent first")

	byStatus, err := f.svc.ListRequests(ctx, Filter{Status: StatusRejected})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, first.ID, byStatus[0].ID)

	byDepartment, err := f.svc.ListRequests(ctx, Filter{Department: "engineering"})
	require.NoError(t, err)
	assert.Len(t, byDepartment, 2)

	byOther, err := f.svc.ListRequests(ctx, Filter{Department: "finance"})
	require.NoError(t, err)
	assert.Empty(t, byOther)
}

func TestListRequestsToleratesOrphanedEmployeeRefs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, vacation(empID, 10, 10))
	require.NoError(t, err)

	// Employee removed from the directory after the fact; the history must
	// still enumerate the request.
	dir := f.svc.Directory.(*fakeDirectory)
	delete(dir.employees, empID)

	all, err := f.svc.ListRequests(ctx, Filter{EmployeeID: empID})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, req.ID, all[0].ID)

	_, err = f.svc.Balance(ctx, empID)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}
