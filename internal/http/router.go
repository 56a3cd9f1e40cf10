package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router wraps http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) RegisterReportRoutes(h *ReportsHandler) {
	r.Handle("/api/v1/reports", h.ListReports)
}

func (r *Router) RegisterDiscrepancyRoutes(h *DiscrepancyHandler) {
	r.HandleHandler(discrepanciesPath, h)
}

func (r *Router) RegisterSyncRoutes(h *SyncHandler) {
	r.Handle("/api/v1/sync/backfill", h.Backfill)
}

// RegisterHealthRoutes exposes /healthz. ping checks the local store.
func (r *Router) RegisterHealthRoutes(ping func(ctx context.Context) error) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if ping != nil {
			if err := ping(ctx); err != nil {
				r.logger.Warn("Health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, Fail(ResultUnavailable, "local store unavailable"))
				return
			}
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}
