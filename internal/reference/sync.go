package reference

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/domain"
)

// BatchSource is the subset of Client the sync engine needs.
type BatchSource interface {
	FetchDetail(ctx context.Context, nr string) (*Detail, bool)
	FetchPartNumber(ctx context.Context, order string) (string, bool)
	FetchBatch(ctx context.Context, keys []string) map[string]Detail
	FetchPartsForOrders(ctx context.Context, orders []string) map[string]string
}

// SyncEngine resolves discrepancy numbers to enrichment records with a fixed
// number of reference round trips.
type SyncEngine struct {
	source BatchSource
	logger *zap.Logger
}

// NewSyncEngine creates a sync engine over source.
func NewSyncEngine(source BatchSource, logger *zap.Logger) *SyncEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncEngine{source: source, logger: logger}
}

// Sync resolves keys in at most two reference calls: one for the discrepancy
// details, one for the part codes of the orders found. Keys the reference
// store does not know are absent from the result.
func (e *SyncEngine) Sync(ctx context.Context, keys []string) map[string]domain.EnrichmentRecord {
	result := make(map[string]domain.EnrichmentRecord)
	keys = normalizeKeys(keys)
	if len(keys) == 0 {
		return result
	}

	details := e.source.FetchBatch(ctx, keys)
	if len(details) == 0 {
		e.logger.Debug("Reference sync found no details", zap.Int("keys", len(keys)))
		return result
	}

	orders := make([]string, 0, len(details))
	for _, d := range details {
		if d.OrderNumber != nil && strings.TrimSpace(*d.OrderNumber) != "" {
			orders = append(orders, *d.OrderNumber)
		}
	}

	var parts map[string]string
	if len(orders) > 0 {
		parts = e.source.FetchPartsForOrders(ctx, orders)
	}

	for nr, d := range details {
		rec := domain.EnrichmentRecord{
			DiscrepancyDate: d.Date,
			OrderNumber:     d.OrderNumber,
		}
		if d.OrderNumber != nil {
			if part, ok := parts[*d.OrderNumber]; ok {
				p := part
				rec.PartCode = &p
			}
		}
		result[nr] = rec
	}

	e.logger.Debug("Reference sync completed",
		zap.Int("keys", len(keys)),
		zap.Int("found", len(result)),
		zap.Int("orders", len(orders)),
		zap.Int("parts", len(parts)),
	)
	return result
}

// DetailsFor resolves one discrepancy number without its part code.
func (e *SyncEngine) DetailsFor(ctx context.Context, nr string) (domain.EnrichmentRecord, bool) {
	d, ok := e.source.FetchDetail(ctx, nr)
	if !ok || d == nil {
		return domain.EnrichmentRecord{}, false
	}
	return domain.EnrichmentRecord{DiscrepancyDate: d.Date, OrderNumber: d.OrderNumber}, true
}

// PartNumberFor resolves the part code of one production order.
func (e *SyncEngine) PartNumberFor(ctx context.Context, order string) (string, bool) {
	return e.source.FetchPartNumber(ctx, order)
}
