package directoryhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaveflow/internal/domain/directory"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
)

// StoreAPI is the read surface of the employee directory exposed over HTTP.
type StoreAPI interface {
	EmployeeByID(ctx context.Context, id string) (directory.Employee, error)
	ListEmployees(ctx context.Context, department string) ([]directory.Employee, error)
}

type Handler struct {
	Store StoreAPI
}

func NewHandler(store StoreAPI) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequireRole(directory.RoleAdmin, directory.RoleHR, directory.RoleHead)).Get("/", h.handleList)
		r.With(middleware.RequireRole()).Get("/{employeeID}", h.handleGet)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	department := r.URL.Query().Get("department")
	if user.Role == directory.RoleHead {
		caller, err := h.Store.EmployeeByID(r.Context(), user.EmployeeID)
		if err != nil {
			api.Fail(w, http.StatusForbidden, "forbidden", "caller has no employee record", reqID)
			return
		}
		department = caller.Department
	}

	employees, err := h.Store.ListEmployees(r.Context(), department)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", reqID)
		return
	}
	api.Success(w, employees, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	employeeID := chi.URLParam(r, "employeeID")
	if user.Role == directory.RoleEmployee && employeeID != user.EmployeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot read another employee's record", reqID)
		return
	}

	emp, err := h.Store.EmployeeByID(r.Context(), employeeID)
	if errors.Is(err, directory.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to load employee", reqID)
		return
	}
	api.Success(w, emp, reqID)
}
