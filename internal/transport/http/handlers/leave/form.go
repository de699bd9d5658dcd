package leavehandler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"leaveflow/internal/domain/workflow"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
)

// handleRequestForm renders a printable leave request form. The form is
// generated on demand from current data, nothing is stored.
func (h *Handler) handleRequestForm(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	req, ok := h.loadVisibleRequest(w, r)
	if !ok {
		return
	}

	employeeName := req.EmployeeID
	department := ""
	if emp, err := h.Directory.EmployeeByID(r.Context(), req.EmployeeID); err == nil {
		employeeName = emp.Name
		department = emp.Department
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Request Form")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Request: %s", req.ID))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", employeeName))
	pdf.Ln(7)
	if department != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Department: %s", department))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Category: %s", req.Category))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s (%d day(s))",
		req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"), req.Days))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Reason: %s", req.Reason))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", statusLabel(req.Status)))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	if req.ChiefApprover != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Chief approver: %s", req.ChiefApprover))
		pdf.Ln(7)
	}
	if req.DecidedAt != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Decided by %s at %s", req.DecidedBy, req.DecidedAt.Format("2006-01-02 15:04")))
		pdf.Ln(7)
	}
	if req.RejectionReason != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Rejection reason: %s", req.RejectionReason))
		pdf.Ln(7)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leave-request-%s.pdf"`, req.ID))
	if err := pdf.Output(w); err != nil {
		api.Fail(w, http.StatusInternalServerError, "form_render_failed", "failed to render leave form", reqID)
	}
}

func statusLabel(status workflow.Status) string {
	return strings.ReplaceAll(string(status), "_", " ")
}
