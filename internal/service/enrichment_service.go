package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/domain"
	"github.com/perysek/sorting-management/internal/repository"
)

// Syncer resolves discrepancy numbers against the reference store.
type Syncer interface {
	Sync(ctx context.Context, keys []string) map[string]domain.EnrichmentRecord
}

// EnrichmentService fills the enrichment columns, either lazily for the rows
// of one page or in bulk for the whole table.
type EnrichmentService interface {
	// EnrichPage returns rows with known reference data applied. It never
	// fails: reference or persistence problems leave rows as they were or
	// unsaved.
	EnrichPage(ctx context.Context, rows []*domain.Report) []*domain.Report

	// Backfill looks up every discrepancy whose reports miss any enrichment
	// field and writes what the reference store knows.
	Backfill(ctx context.Context) (*BackfillResult, error)
}

type enrichmentService struct {
	reportsRepo repository.ReportsRepository
	syncer      Syncer
	now         func() time.Time
	logger      *zap.Logger
}

// NewEnrichmentService creates an EnrichmentService.
func NewEnrichmentService(reportsRepo repository.ReportsRepository, syncer Syncer, logger *zap.Logger) EnrichmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &enrichmentService{
		reportsRepo: reportsRepo,
		syncer:      syncer,
		now:         time.Now,
		logger:      logger,
	}
}

// BackfillResult summarizes one backfill run.
type BackfillResult struct {
	RunID      string        `json:"run_id"`
	Candidates int           `json:"candidates"` // distinct discrepancy numbers missing data
	Fetched    int           `json:"fetched"`    // of those, known to the reference store
	Updated    int64         `json:"updated"`    // report rows whose values changed
	Failed     int           `json:"failed"`     // discrepancy numbers whose update failed
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

func (s *enrichmentService) EnrichPage(ctx context.Context, rows []*domain.Report) []*domain.Report {
	keys := make([]string, 0)
	seen := make(map[string]struct{})
	for _, r := range rows {
		if r == nil || !r.NeedsEnrichment() {
			continue
		}
		nr := r.Discrepancy()
		if _, ok := seen[nr]; ok {
			continue
		}
		seen[nr] = struct{}{}
		keys = append(keys, nr)
	}
	if len(keys) == 0 {
		return rows
	}

	mapping := s.syncer.Sync(ctx, keys)
	if len(mapping) == 0 {
		return rows
	}

	out := make([]*domain.Report, len(rows))
	updates := make([]repository.EnrichmentUpdate, 0, len(mapping))
	for i, r := range rows {
		out[i] = r
		if r == nil || !r.NeedsEnrichment() {
			continue
		}
		rec, ok := mapping[r.Discrepancy()]
		if !ok || rec.IsEmpty() {
			continue
		}
		out[i] = r.WithEnrichment(rec)
		updates = append(updates, repository.EnrichmentUpdate{ReportID: r.ID, Record: rec})
	}

	if len(updates) > 0 {
		if err := s.reportsRepo.ApplyEnrichment(ctx, updates); err != nil {
			s.logger.Error("Failed to persist page enrichment",
				zap.Int("updates", len(updates)),
				zap.Error(err),
			)
		}
	}
	return out
}

func (s *enrichmentService) Backfill(ctx context.Context) (*BackfillResult, error) {
	start := s.now()
	result := &BackfillResult{RunID: uuid.NewString()}
	logger := s.logger.With(zap.String("run_id", result.RunID))

	keys, err := s.reportsRepo.DistinctUnenrichedDiscrepancies(ctx)
	if err != nil {
		return nil, err
	}
	result.Candidates = len(keys)
	logger.Info("Backfill started", zap.Int("candidates", len(keys)))

	if len(keys) > 0 {
		mapping := s.syncer.Sync(ctx, keys)
		result.Fetched = len(mapping)

		found := make([]string, 0, len(mapping))
		for nr := range mapping {
			found = append(found, nr)
		}
		sort.Strings(found)

		for _, nr := range found {
			n, err := s.reportsRepo.UpdateEnrichmentByDiscrepancy(ctx, nr, mapping[nr])
			if err != nil {
				result.Failed++
				logger.Warn("Backfill update failed", zap.String("discrepancy_number", nr), zap.Error(err))
				continue
			}
			result.Updated += n
		}
	}

	result.Duration = s.now().Sub(start)
	result.DurationMS = result.Duration.Milliseconds()
	logger.Info("Backfill finished",
		zap.Int("candidates", result.Candidates),
		zap.Int("fetched", result.Fetched),
		zap.Int64("updated", result.Updated),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
