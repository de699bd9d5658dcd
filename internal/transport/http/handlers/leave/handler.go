package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leaveflow/internal/domain/directory"
	"leaveflow/internal/domain/workflow"
	"leaveflow/internal/platform/metrics"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
	"leaveflow/internal/transport/http/shared"
)

type Handler struct {
	Service   *workflow.Service
	Directory workflow.DirectoryAPI
	Metrics   *metrics.Collector
}

func NewHandler(service *workflow.Service, dir workflow.DirectoryAPI, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Directory: dir, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequireRole()).Post("/requests", h.handleSubmit)
		r.With(middleware.RequireRole()).Get("/requests", h.handleListRequests)
		r.With(middleware.RequireRole()).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequireRole()).Get("/requests/{requestID}/form", h.handleRequestForm)
		r.With(middleware.RequireRole(directory.RoleHead)).Post("/requests/{requestID}/chief-decision", h.handleChiefDecision)
		r.With(middleware.RequireRole(directory.RoleAdmin)).Post("/requests/{requestID}/admin-decision", h.handleAdminDecision)
		r.With(middleware.RequireRole()).Get("/balance", h.handleBalance)
	})
}

// requestView is the wire shape of a leave request. The chief stage flag is
// derived from the status; older dashboard clients read it as a separate
// field.
type requestView struct {
	workflow.LeaveRequest
	ChiefApproved bool `json:"chiefApproved"`
}

func viewOf(req workflow.LeaveRequest) requestView {
	return requestView{LeaveRequest: req, ChiefApproved: req.Status.ChiefApproved()}
}

func viewsOf(reqs []workflow.LeaveRequest) []requestView {
	out := make([]requestView, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, viewOf(req))
	}
	return out
}

type submitPayload struct {
	Category  string `json:"category"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("category", payload.Category, "category is required")
	v.Enum("category", payload.Category, categoryNames(), "unknown leave category")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Submit(r.Context(), workflow.Submission{
		EmployeeID: user.EmployeeID,
		Category:   workflow.Category(strings.ToLower(strings.TrimSpace(payload.Category))),
		StartDate:  start,
		EndDate:    end,
		Reason:     payload.Reason,
	})
	if err != nil {
		h.failWorkflow(w, r, err)
		return
	}
	api.Created(w, viewOf(created), reqID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	filter := workflow.Filter{Status: workflow.Status(r.URL.Query().Get("status"))}
	switch user.Role {
	case directory.RoleAdmin, directory.RoleHR:
		filter.EmployeeID = r.URL.Query().Get("employeeId")
		filter.Department = r.URL.Query().Get("department")
	case directory.RoleHead:
		emp, err := h.Directory.EmployeeByID(r.Context(), user.EmployeeID)
		if err != nil {
			api.Fail(w, http.StatusForbidden, "forbidden", "caller has no employee record", reqID)
			return
		}
		filter.Department = emp.Department
	default:
		filter.EmployeeID = user.EmployeeID
	}

	requests, err := h.Service.ListRequests(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_list_failed", "failed to list leave requests", reqID)
		return
	}
	api.Success(w, viewsOf(requests), reqID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	req, ok := h.loadVisibleRequest(w, r)
	if !ok {
		return
	}
	api.Success(w, viewOf(req), reqID)
}

type decisionPayload struct {
	Decision        string `json:"decision"`
	RejectionReason string `json:"rejectionReason"`
}

type decideFunc func(ctx context.Context, requestID, actorID string, decision workflow.Decision, rejectionReason string) (workflow.LeaveRequest, error)

func (h *Handler) handleChiefDecision(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.Service.ChiefDecide)
}

func (h *Handler) handleAdminDecision(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.Service.AdminDecide)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, decide decideFunc) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	decision, rejectionReason, ok := parseDecision(w, r)
	if !ok {
		return
	}

	// Heads only decide within their own department; the visibility rules
	// for reads apply to decisions unchanged.
	before, ok := h.loadVisibleRequest(w, r)
	if !ok {
		return
	}

	updated, err := decide(r.Context(), before.ID, user.EmployeeID, decision, rejectionReason)
	if err != nil {
		h.failWorkflow(w, r, err)
		return
	}

	if h.Metrics != nil && updated.Status != before.Status {
		h.Metrics.RecordTransition()
	}
	api.Success(w, viewOf(updated), reqID)
}

func categoryNames() []string {
	names := make([]string, 0, len(workflow.Categories))
	for _, c := range workflow.Categories {
		names = append(names, string(c))
	}
	return names
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	employeeID := user.EmployeeID
	if requested := r.URL.Query().Get("employeeId"); requested != "" && requested != employeeID {
		switch user.Role {
		case directory.RoleAdmin, directory.RoleHR, directory.RoleHead:
			employeeID = requested
		default:
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot read another employee's balance", reqID)
			return
		}
	}

	remaining, err := h.Service.Balance(r.Context(), employeeID)
	if err != nil {
		h.failWorkflow(w, r, err)
		return
	}
	api.Success(w, map[string]any{"employeeId": employeeID, "remaining": remaining}, reqID)
}

// loadVisibleRequest fetches the request and enforces read visibility:
// employees see their own requests, heads their department, admin and hr
// everything.
func (h *Handler) loadVisibleRequest(w http.ResponseWriter, r *http.Request) (workflow.LeaveRequest, bool) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	req, err := h.Service.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		h.failWorkflow(w, r, err)
		return workflow.LeaveRequest{}, false
	}

	switch user.Role {
	case directory.RoleAdmin, directory.RoleHR:
		return req, true
	case directory.RoleHead:
		caller, err := h.Directory.EmployeeByID(r.Context(), user.EmployeeID)
		if err != nil {
			api.Fail(w, http.StatusForbidden, "forbidden", "caller has no employee record", reqID)
			return workflow.LeaveRequest{}, false
		}
		owner, err := h.Directory.EmployeeByID(r.Context(), req.EmployeeID)
		if err != nil || owner.Department != caller.Department {
			api.Fail(w, http.StatusForbidden, "forbidden", "request belongs to another department", reqID)
			return workflow.LeaveRequest{}, false
		}
		return req, true
	default:
		if req.EmployeeID != user.EmployeeID {
			api.Fail(w, http.StatusForbidden, "forbidden", "request belongs to another employee", reqID)
			return workflow.LeaveRequest{}, false
		}
		return req, true
	}
}

func (h *Handler) failWorkflow(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())

	var insufficient *workflow.InsufficientBalanceError
	var transition *workflow.InvalidTransitionError
	switch {
	case errors.Is(err, workflow.ErrInvalidDateRange):
		api.Fail(w, http.StatusBadRequest, "invalid_date_range", err.Error(), reqID)
	case errors.Is(err, workflow.ErrMissingReason):
		api.Fail(w, http.StatusBadRequest, "missing_reason", err.Error(), reqID)
	case errors.As(err, &insufficient):
		api.FailWithDetails(w, http.StatusBadRequest, "insufficient_balance", err.Error(), map[string]int{
			"requested": insufficient.Requested,
			"remaining": insufficient.Remaining,
		}, reqID)
	case errors.As(err, &transition):
		api.FailWithDetails(w, http.StatusConflict, "invalid_transition", err.Error(), map[string]string{
			"status": string(transition.Status),
			"action": transition.Action,
		}, reqID)
	case errors.Is(err, workflow.ErrRequestNotFound):
		api.Fail(w, http.StatusNotFound, "request_not_found", "leave request not found", reqID)
	case errors.Is(err, workflow.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "leave_workflow_failed", "leave workflow operation failed", reqID)
	}
}

func parseDecision(w http.ResponseWriter, r *http.Request) (workflow.Decision, string, bool) {
	reqID := middleware.GetRequestID(r.Context())

	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return "", "", false
	}

	v := shared.NewValidator()
	v.Required("decision", payload.Decision, "decision is required")
	v.Enum("decision", payload.Decision, []string{string(workflow.DecisionApprove), string(workflow.DecisionReject)}, "decision must be approve or reject")
	decision := workflow.Decision(strings.ToLower(strings.TrimSpace(payload.Decision)))
	if decision == workflow.DecisionReject {
		v.Required("rejectionReason", payload.RejectionReason, "a rejection reason is required")
	}
	if v.Reject(w, reqID) {
		return "", "", false
	}
	return decision, strings.TrimSpace(payload.RejectionReason), true
}
