package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/domain"
	"github.com/perysek/sorting-management/internal/models"
	"github.com/perysek/sorting-management/internal/repository"
)

// DefaultPageSize is used when the configured page size is not positive.
const DefaultPageSize = 50

// ReportQueryService answers paged report queries. It only reads.
type ReportQueryService interface {
	QueryPage(ctx context.Context, req ReportQuery) (*ReportPage, error)
}

type reportQueryService struct {
	reportsRepo   repository.ReportsRepository
	pageSize      int
	defaultPreset string
	now           func() time.Time
	logger        *zap.Logger
}

// NewReportQueryService creates a ReportQueryService. now supplies the
// current time for preset resolution; nil means time.Now.
func NewReportQueryService(
	reportsRepo repository.ReportsRepository,
	pageSize int,
	defaultPreset string,
	now func() time.Time,
	logger *zap.Logger,
) ReportQueryService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if defaultPreset == "" {
		defaultPreset = DefaultPreset
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reportQueryService{
		reportsRepo:   reportsRepo,
		pageSize:      pageSize,
		defaultPreset: defaultPreset,
		now:           now,
		logger:        logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// ReportQuery is one page request as the caller typed it.
type ReportQuery struct {
	// Date window: explicit From/To (YYYY-MM-DD) beat Preset.
	From   string
	To     string
	Preset string

	// Case-insensitive contains filters, blank means no filter.
	ReportNumber      string
	DiscrepancyNumber string
	InstructionNumber string
	Operator          string

	Sort  string // allow-listed column, anything else falls back to selection_date
	Order string // asc | desc

	Page int // 1-based, values below 1 mean 1
}

// ReportPage is one page of reports with totals over the whole filtered set.
type ReportPage struct {
	Items      []*domain.Report         `json:"items"`
	Pagination models.BackendPagination `json:"pagination"`
	Stats      ReportStatsDTO           `json:"stats"`
	Range      DateRange                `json:"range"`
}

// ReportStatsDTO carries the filtered-set aggregates and their derived averages.
type ReportStatsDTO struct {
	Count           int     `json:"count"`
	TotalParts      int64   `json:"total_parts"`
	TotalHours      float64 `json:"total_hours"`
	TotalDefects    int64   `json:"total_defects"`
	AvgScrapRate    float64 `json:"avg_scrap_rate"`   // defects per 100 parts
	AvgProductivity float64 `json:"avg_productivity"` // parts per hour
}

// NewReportStatsDTO derives the averages from raw aggregates.
func NewReportStatsDTO(s repository.ReportStats) ReportStatsDTO {
	dto := ReportStatsDTO{
		Count:        s.Count,
		TotalParts:   s.TotalParts,
		TotalHours:   s.TotalHours,
		TotalDefects: s.TotalDefects,
	}
	if s.TotalParts > 0 {
		dto.AvgScrapRate = float64(s.TotalDefects) / float64(s.TotalParts) * 100
	}
	if s.TotalHours > 0 {
		dto.AvgProductivity = float64(s.TotalParts) / s.TotalHours
	}
	return dto
}

func (s *reportQueryService) QueryPage(ctx context.Context, req ReportQuery) (*ReportPage, error) {
	dateRange, err := ResolveDateRange(req.From, req.To, req.Preset, s.defaultPreset, s.now())
	if err != nil {
		return nil, err
	}

	filters := repository.ReportFilters{
		DateFrom:          dateRange.From,
		DateTo:            dateRange.To,
		ReportNumber:      optional(req.ReportNumber),
		DiscrepancyNumber: optional(req.DiscrepancyNumber),
		InstructionNumber: optional(req.InstructionNumber),
		Operator:          optional(req.Operator),
	}
	sort := repository.NormalizeSort(req.Sort, req.Order)

	page := req.Page
	if page < 1 {
		page = 1
	}

	items, stats, err := s.reportsRepo.ListReports(ctx, filters, sort, page, s.pageSize)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Report page queried",
		zap.String("preset", dateRange.Preset),
		zap.String("sort", sort.Field),
		zap.String("direction", sort.Direction),
		zap.Int("page", page),
		zap.Int("count", stats.Count),
	)

	return &ReportPage{
		Items:      items,
		Pagination: models.NewBackendPagination(page, s.pageSize, stats.Count, sort.Field, sort.Direction),
		Stats:      NewReportStatsDTO(stats),
		Range:      dateRange,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
