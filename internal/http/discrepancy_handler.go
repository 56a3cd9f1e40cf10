package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/service"
)

const discrepanciesPath = "/api/v1/discrepancies/"

// DiscrepancyHandler serves single-discrepancy reference lookups.
type DiscrepancyHandler struct {
	lookupService service.LookupService
	logger        *zap.Logger
}

func NewDiscrepancyHandler(lookupService service.LookupService, logger *zap.Logger) *DiscrepancyHandler {
	return &DiscrepancyHandler{lookupService: lookupService, logger: logger}
}

// ServeHTTP routes:
//   - GET /api/v1/discrepancies/:nr
//   - GET /api/v1/discrepancies/:nr/history
func (h *DiscrepancyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	rest := strings.TrimPrefix(r.URL.EscapedPath(), discrepanciesPath)
	history := false
	if strings.HasSuffix(rest, "/history") {
		history = true
		rest = strings.TrimSuffix(rest, "/history")
	}
	if rest == "" || strings.Contains(rest, "/") {
		writeJSON(w, http.StatusNotFound, Fail(ResultNotFound, "not found"))
		return
	}
	nr, err := url.PathUnescape(rest)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(ResultInvalidFilter, "invalid discrepancy number"))
		return
	}

	if history {
		h.GetHistory(w, r, nr)
		return
	}
	h.GetDiscrepancy(w, r, nr)
}

func (h *DiscrepancyHandler) GetDiscrepancy(w http.ResponseWriter, r *http.Request, nr string) {
	lookup, err := h.lookupService.Discrepancy(r.Context(), nr)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, Ok(lookup))
}

func (h *DiscrepancyHandler) GetHistory(w http.ResponseWriter, r *http.Request, nr string) {
	entries, err := h.lookupService.History(r.Context(), nr)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entries))
}
