package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/service"
)

// ReportsHandler serves the paged report list.
type ReportsHandler struct {
	reportsService service.ReportsService
	logger         *zap.Logger
}

func NewReportsHandler(reportsService service.ReportsService, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{reportsService: reportsService, logger: logger}
}

// ListReports
// GET /api/v1/reports?from=2025-01-01&to=2025-01-31&preset=last_30_days&report_number=&discrepancy_number=&instruction_number=&operator=&sort=selection_date&order=desc&page=1
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	req := service.ReportQuery{
		From:              q.Get("from"),
		To:                q.Get("to"),
		Preset:            q.Get("preset"),
		ReportNumber:      q.Get("report_number"),
		DiscrepancyNumber: q.Get("discrepancy_number"),
		InstructionNumber: q.Get("instruction_number"),
		Operator:          q.Get("operator"),
		Sort:              q.Get("sort"),
		Order:             q.Get("order"),
		Page:              parsePage(q.Get("page"), 1),
	}

	page, err := h.reportsService.ListReports(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, Ok(page))
}
