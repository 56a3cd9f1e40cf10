package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/service"
)

// SyncHandler triggers a bulk backfill of enrichment data.
type SyncHandler struct {
	enrichmentService service.EnrichmentService
	logger            *zap.Logger
}

func NewSyncHandler(enrichmentService service.EnrichmentService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{enrichmentService: enrichmentService, logger: logger}
}

// Backfill
// POST /api/v1/sync/backfill
func (h *SyncHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if h.enrichmentService == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail(ResultUnavailable, "reference store not configured"))
		return
	}

	result, err := h.enrichmentService.Backfill(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}
