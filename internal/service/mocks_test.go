package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/perysek/sorting-management/internal/domain"
	"github.com/perysek/sorting-management/internal/repository"
)

// MockReportsRepository is a mock implementation of repository.ReportsRepository
type MockReportsRepository struct {
	mock.Mock
}

func (m *MockReportsRepository) ListReports(ctx context.Context, filters repository.ReportFilters, sort repository.Sort, page, size int) ([]*domain.Report, repository.ReportStats, error) {
	args := m.Called(ctx, filters, sort, page, size)
	if args.Get(0) == nil {
		return nil, args.Get(1).(repository.ReportStats), args.Error(2)
	}
	return args.Get(0).([]*domain.Report), args.Get(1).(repository.ReportStats), args.Error(2)
}

func (m *MockReportsRepository) ApplyEnrichment(ctx context.Context, updates []repository.EnrichmentUpdate) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

func (m *MockReportsRepository) DistinctUnenrichedDiscrepancies(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReportsRepository) UpdateEnrichmentByDiscrepancy(ctx context.Context, nr string, rec domain.EnrichmentRecord) (int64, error) {
	args := m.Called(ctx, nr, rec)
	return args.Get(0).(int64), args.Error(1)
}

// MockSyncer is a mock implementation of Syncer
type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) Sync(ctx context.Context, keys []string) map[string]domain.EnrichmentRecord {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]domain.EnrichmentRecord)
}

func strPtr(s string) *string { return &s }
