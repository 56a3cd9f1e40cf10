package service

import (
	"context"

	"go.uber.org/zap"
)

// ReportsService serves the report list: a query page with lazy enrichment
// applied to its rows. Aggregates come from the query and are not affected
// by enrichment.
type ReportsService interface {
	ListReports(ctx context.Context, req ReportQuery) (*ReportPage, error)
}

type reportsService struct {
	query      ReportQueryService
	enrichment EnrichmentService
	logger     *zap.Logger
}

// NewReportsService creates a ReportsService. enrichment may be nil when no
// reference store is configured.
func NewReportsService(query ReportQueryService, enrichment EnrichmentService, logger *zap.Logger) ReportsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reportsService{query: query, enrichment: enrichment, logger: logger}
}

func (s *reportsService) ListReports(ctx context.Context, req ReportQuery) (*ReportPage, error) {
	page, err := s.query.QueryPage(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.enrichment != nil {
		page.Items = s.enrichment.EnrichPage(ctx, page.Items)
	}
	return page, nil
}
