package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/config"
	"github.com/perysek/sorting-management/internal/database"
	"github.com/perysek/sorting-management/internal/domain"
	"github.com/perysek/sorting-management/internal/reference"
	"github.com/perysek/sorting-management/internal/repository"
)

func TestEnrichPage_NothingToEnrichMakesNoCalls(t *testing.T) {
	repo := new(MockReportsRepository)
	syncer := new(MockSyncer)
	svc := NewEnrichmentService(repo, syncer, zap.NewNop())

	known := civil.Date{Year: 2025, Month: 1, Day: 10}
	rows := []*domain.Report{
		{ID: 1},
		{ID: 2, DiscrepancyNumber: strPtr("  ")},
		{ID: 3, DiscrepancyNumber: strPtr("NC001"), DiscrepancyDate: &known},
	}

	out := svc.EnrichPage(context.Background(), rows)
	assert.Equal(t, rows, out)
	syncer.AssertNotCalled(t, "Sync")
	repo.AssertNotCalled(t, "ApplyEnrichment")
}

func TestEnrichPage_EmptyMappingReturnsRowsUnchanged(t *testing.T) {
	repo := new(MockReportsRepository)
	syncer := new(MockSyncer)
	svc := NewEnrichmentService(repo, syncer, zap.NewNop())

	rows := []*domain.Report{{ID: 1, DiscrepancyNumber: strPtr("NC001")}}
	syncer.On("Sync", mock.Anything, []string{"NC001"}).Return(map[string]domain.EnrichmentRecord{})

	out := svc.EnrichPage(context.Background(), rows)
	assert.Same(t, rows[0], out[0])
	repo.AssertNotCalled(t, "ApplyEnrichment")
}

func TestEnrichPage_DedupesKeysAndPersistsOnce(t *testing.T) {
	repo := new(MockReportsRepository)
	syncer := new(MockSyncer)
	svc := NewEnrichmentService(repo, syncer, zap.NewNop())

	date := civil.Date{Year: 2025, Month: 1, Day: 10}
	rec := domain.EnrichmentRecord{DiscrepancyDate: &date, OrderNumber: strPtr("O100")}
	rows := []*domain.Report{
		{ID: 1, DiscrepancyNumber: strPtr("NC001")},
		{ID: 2, DiscrepancyNumber: strPtr(" NC001 ")},
		{ID: 3, DiscrepancyNumber: strPtr("NC002")},
	}

	syncer.On("Sync", mock.Anything, []string{"NC001", "NC002"}).
		Return(map[string]domain.EnrichmentRecord{"NC001": rec})
	repo.On("ApplyEnrichment", mock.Anything, []repository.EnrichmentUpdate{
		{ReportID: 1, Record: rec},
		{ReportID: 2, Record: rec},
	}).Return(nil).Once()

	out := svc.EnrichPage(context.Background(), rows)
	require.Len(t, out, 3)
	assert.Equal(t, date, *out[0].DiscrepancyDate)
	assert.Equal(t, "O100", *out[1].OrderNumber)
	assert.Same(t, rows[2], out[2])
	assert.Nil(t, rows[0].DiscrepancyDate)

	syncer.AssertNumberOfCalls(t, "Sync", 1)
	repo.AssertExpectations(t)
}

func TestEnrichPage_PersistenceFailureStillReturnsEnrichedRows(t *testing.T) {
	repo := new(MockReportsRepository)
	syncer := new(MockSyncer)
	svc := NewEnrichmentService(repo, syncer, zap.NewNop())

	date := civil.Date{Year: 2025, Month: 1, Day: 10}
	syncer.On("Sync", mock.Anything, mock.Anything).
		Return(map[string]domain.EnrichmentRecord{"NC001": {DiscrepancyDate: &date}})
	repo.On("ApplyEnrichment", mock.Anything, mock.Anything).Return(errors.New("database is locked"))

	out := svc.EnrichPage(context.Background(), []*domain.Report{{ID: 1, DiscrepancyNumber: strPtr("NC001")}})
	require.Len(t, out, 1)
	assert.Equal(t, date, *out[0].DiscrepancyDate)
}

func TestBackfill_CountsUpdatesAndFailures(t *testing.T) {
	repo := new(MockReportsRepository)
	syncer := new(MockSyncer)
	svc := NewEnrichmentService(repo, syncer, zap.NewNop())

	recA := domain.EnrichmentRecord{OrderNumber: strPtr("O1")}
	recB := domain.EnrichmentRecord{OrderNumber: strPtr("O2")}

	repo.On("DistinctUnenrichedDiscrepancies", mock.Anything).Return([]string{"A", "B", "C"}, nil)
	syncer.On("Sync", mock.Anything, []string{"A", "B", "C"}).
		Return(map[string]domain.EnrichmentRecord{"A": recA, "B": recB})
	repo.On("UpdateEnrichmentByDiscrepancy", mock.Anything, "A", recA).Return(int64(3), nil)
	repo.On("UpdateEnrichmentByDiscrepancy", mock.Anything, "B", recB).Return(int64(0), errors.New("constraint"))

	res, err := svc.Backfill(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, int64(3), res.Updated)
	assert.Equal(t, 1, res.Failed)
	repo.AssertExpectations(t)
}

func TestBackfill_NoCandidatesSkipsReference(t *testing.T) {
	repo := new(MockReportsRepository)
	syncer := new(MockSyncer)
	svc := NewEnrichmentService(repo, syncer, zap.NewNop())

	repo.On("DistinctUnenrichedDiscrepancies", mock.Anything).Return([]string{}, nil)

	res, err := svc.Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Candidates)
	syncer.AssertNotCalled(t, "Sync")
}

func TestBackfill_RepositoryErrorPropagates(t *testing.T) {
	repo := new(MockReportsRepository)
	svc := NewEnrichmentService(repo, new(MockSyncer), zap.NewNop())

	repo.On("DistinctUnenrichedDiscrepancies", mock.Anything).Return(nil, errors.New("no such table"))

	_, err := svc.Backfill(context.Background())
	assert.Error(t, err)
}

// End to end over a real local store and a mocked reference store.

type enrichmentFixture struct {
	local *sql.DB
	repo  *repository.SQLReportsRepository
	mock  sqlmock.Sqlmock
	svc   EnrichmentService
}

func setupEnrichmentFixture(t *testing.T) *enrichmentFixture {
	t.Helper()
	ctx := context.Background()

	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "scrap_data.db")}
	local, dialect, err := database.OpenLocal(ctx, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })
	_, err = database.EnsureSchema(ctx, local, dialect)
	require.NoError(t, err)

	refDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = refDB.Close() })

	client := reference.NewClient(refDB, reference.Config{Schema: "STAAMPDB", Placeholders: database.Question, QueryTimeout: time.Second}, zap.NewNop())
	repo := repository.NewSQLReportsRepository(local, dialect, zap.NewNop())
	svc := NewEnrichmentService(repo, reference.NewSyncEngine(client, zap.NewNop()), zap.NewNop())

	return &enrichmentFixture{local: local, repo: repo, mock: mock, svc: svc}
}

func (f *enrichmentFixture) insert(t *testing.T, number, nr string) {
	t.Helper()
	_, err := f.local.Exec(`INSERT INTO reports (report_number, discrepancy_number, parts_inspected, hours_worked, selection_date)
		VALUES (?, ?, 100, 1, '2025-01-15')`, number, nr)
	require.NoError(t, err)
}

func (f *enrichmentFixture) expectReference(nrs []string, rows *sqlmock.Rows, orders []string, parts *sqlmock.Rows) {
	args := make([]driver.Value, 0, len(nrs))
	for _, nr := range nrs {
		args = append(args, nr)
	}
	f.mock.ExpectQuery(`FROM STAAMPDB.NOTCOJAN NOTCOJAN WHERE NOTCOJAN.NUMERO_NC IN`).
		WithArgs(args...).
		WillReturnRows(rows)
	if orders == nil {
		return
	}
	orderArgs := make([]driver.Value, 0, len(orders))
	for _, o := range orders {
		orderArgs = append(orderArgs, o)
	}
	f.mock.ExpectQuery(`FROM STAAMPDB.COLLAUDO COLLAUDO WHERE COLLAUDO.COMMESSA IN`).
		WithArgs(orderArgs...).
		WillReturnRows(parts)
}

func TestEnrichPage_PersistsKnownDiscrepancyOnly(t *testing.T) {
	f := setupEnrichmentFixture(t)
	ctx := context.Background()
	f.insert(t, "R1", "NC001")
	f.insert(t, "R2", "NC002")

	f.expectReference([]string{"NC001", "NC002"},
		sqlmock.NewRows([]string{"NUMERO_NC", "DATA", "COMMESSA"}).AddRow("NC001", "20250110", "O100"),
		[]string{"O100"},
		sqlmock.NewRows([]string{"COMMESSA", "ARTICOLO"}).AddRow("O100", "P9"))

	rows, _, err := f.repo.ListReports(ctx, repository.ReportFilters{}, repository.NormalizeSort("report_number", "asc"), 1, 50)
	require.NoError(t, err)

	out := f.svc.EnrichPage(ctx, rows)
	require.Len(t, out, 2)
	assert.Equal(t, "2025-01-10", out[0].DiscrepancyDate.String())
	assert.Equal(t, "O100", *out[0].OrderNumber)
	assert.Equal(t, "P9", *out[0].PartCode)
	assert.Nil(t, out[1].DiscrepancyDate)
	assert.Nil(t, out[1].OrderNumber)
	assert.Nil(t, out[1].PartCode)
	require.NoError(t, f.mock.ExpectationsWereMet())

	stored, _, err := f.repo.ListReports(ctx, repository.ReportFilters{}, repository.NormalizeSort("report_number", "asc"), 1, 50)
	require.NoError(t, err)
	assert.Equal(t, "P9", *stored[0].PartCode)
	assert.Nil(t, stored[1].DiscrepancyDate)
}

func TestBackfill_SecondRunUpdatesNothing(t *testing.T) {
	f := setupEnrichmentFixture(t)
	ctx := context.Background()
	f.insert(t, "R1", "NC001")
	f.insert(t, "R2", "NC001")
	f.insert(t, "R3", "NC002")

	detailRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"NUMERO_NC", "DATA", "COMMESSA"}).
			AddRow("NC001", "20250110", "O100").
			AddRow("NC002", "20250111", "O200")
	}
	partRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"COMMESSA", "ARTICOLO"}).AddRow("O100", "P9")
	}
	// NC002 never gets a part code, so it stays a candidate on the second run.
	f.expectReference([]string{"NC001", "NC002"}, detailRows(), []string{"O100", "O200"}, partRows())
	f.expectReference([]string{"NC002"},
		sqlmock.NewRows([]string{"NUMERO_NC", "DATA", "COMMESSA"}).AddRow("NC002", "20250111", "O200"),
		[]string{"O200"},
		sqlmock.NewRows([]string{"COMMESSA", "ARTICOLO"}))

	first, err := f.svc.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Candidates)
	assert.Equal(t, 2, first.Fetched)
	assert.Equal(t, int64(3), first.Updated)
	assert.Equal(t, 0, first.Failed)

	second, err := f.svc.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Candidates)
	assert.Equal(t, int64(0), second.Updated)

	require.NoError(t, f.mock.ExpectationsWereMet())
}

func (f *enrichmentFixture) insertEnriched(t *testing.T, number, nr, date, order, part string) {
	t.Helper()
	_, err := f.local.Exec(`INSERT INTO reports (report_number, discrepancy_number, parts_inspected, hours_worked, selection_date,
		discrepancy_date, order_number, part_code)
		VALUES (?, ?, 100, 1, '2025-01-15', ?, ?, ?)`, number, nr, date, order, part)
	require.NoError(t, err)
}

// R1 needs enrichment, R2 already carries its reference data.
func TestEnrichPage_AlreadyEnrichedRowIsLeftAlone(t *testing.T) {
	f := setupEnrichmentFixture(t)
	ctx := context.Background()
	f.insert(t, "R1", "NC001")
	f.insertEnriched(t, "R2", "NC002", "2024-12-01", "O555", "P7")

	f.expectReference([]string{"NC001"},
		sqlmock.NewRows([]string{"NUMERO_NC", "DATA", "COMMESSA"}).AddRow("NC001", "20250110", "O100"),
		[]string{"O100"},
		sqlmock.NewRows([]string{"COMMESSA", "ARTICOLO"}).AddRow("O100", "P9"))

	rows, _, err := f.repo.ListReports(ctx, repository.ReportFilters{}, repository.NormalizeSort("report_number", "asc"), 1, 50)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	out := f.svc.EnrichPage(ctx, rows)
	require.Len(t, out, 2)
	assert.Same(t, rows[1], out[1])
	require.NoError(t, f.mock.ExpectationsWereMet())

	stored, _, err := f.repo.ListReports(ctx, repository.ReportFilters{}, repository.NormalizeSort("report_number", "asc"), 1, 50)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	assert.Equal(t, "R1", stored[0].ReportNumber)
	assert.Equal(t, "2025-01-10", stored[0].DiscrepancyDate.String())
	assert.Equal(t, "O100", *stored[0].OrderNumber)
	assert.Equal(t, "P9", *stored[0].PartCode)

	assert.Equal(t, "R2", stored[1].ReportNumber)
	assert.Equal(t, "2024-12-01", stored[1].DiscrepancyDate.String())
	assert.Equal(t, "O555", *stored[1].OrderNumber)
	assert.Equal(t, "P7", *stored[1].PartCode)
}
