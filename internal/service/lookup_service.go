package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/domain"
	"github.com/perysek/sorting-management/internal/store"
)

// Cache key prefixes for single-discrepancy lookups.
const (
	detailKeyPrefix  = "sorting:nc:detail:"
	historyKeyPrefix = "sorting:nc:history:"

	DefaultLookupTTL = 15 * time.Minute
)

// ReferenceLookup resolves one discrepancy or one order at a time.
type ReferenceLookup interface {
	DetailsFor(ctx context.Context, nr string) (domain.EnrichmentRecord, bool)
	PartNumberFor(ctx context.Context, order string) (string, bool)
}

// HistorySource lists the notes recorded on a discrepancy.
type HistorySource interface {
	FetchHistory(ctx context.Context, nr string) []domain.HistoryEntry
}

// LookupService answers on-demand questions about one discrepancy.
type LookupService interface {
	Discrepancy(ctx context.Context, nr string) (*DiscrepancyLookup, error)
	History(ctx context.Context, nr string) ([]domain.HistoryEntry, error)
}

type lookupService struct {
	reference ReferenceLookup
	history   HistorySource
	kv        store.KV // optional
	ttl       time.Duration
	logger    *zap.Logger
}

// NewLookupService creates a LookupService. kv may be nil to disable caching.
func NewLookupService(reference ReferenceLookup, history HistorySource, kv store.KV, ttl time.Duration, logger *zap.Logger) LookupService {
	if ttl <= 0 {
		ttl = DefaultLookupTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &lookupService{
		reference: reference,
		history:   history,
		kv:        kv,
		ttl:       ttl,
		logger:    logger,
	}
}

// DiscrepancyLookup is the reference data of one discrepancy.
type DiscrepancyLookup struct {
	DiscrepancyNumber string      `json:"discrepancy_number"`
	DiscrepancyDate   *civil.Date `json:"discrepancy_date"`
	OrderNumber       *string     `json:"order_number"`
	PartCode          *string     `json:"part_code"`
}

func (s *lookupService) Discrepancy(ctx context.Context, nr string) (*DiscrepancyLookup, error) {
	nr = strings.TrimSpace(nr)
	if nr == "" {
		return nil, invalidFilter("discrepancy_number", nr, "must not be blank")
	}

	key := detailKeyPrefix + nr
	var cached DiscrepancyLookup
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	rec, ok := s.reference.DetailsFor(ctx, nr)
	if !ok {
		return nil, ErrNotFound
	}
	result := &DiscrepancyLookup{
		DiscrepancyNumber: nr,
		DiscrepancyDate:   rec.DiscrepancyDate,
		OrderNumber:       rec.OrderNumber,
	}
	if rec.OrderNumber != nil {
		if part, ok := s.reference.PartNumberFor(ctx, *rec.OrderNumber); ok {
			result.PartCode = &part
		}
	}

	// A known order without a part may mean the part lookup failed.
	if result.OrderNumber == nil || result.PartCode != nil {
		s.cacheSet(ctx, key, result)
	}
	return result, nil
}

func (s *lookupService) History(ctx context.Context, nr string) ([]domain.HistoryEntry, error) {
	nr = strings.TrimSpace(nr)
	if nr == "" {
		return nil, invalidFilter("discrepancy_number", nr, "must not be blank")
	}

	key := historyKeyPrefix + nr
	var cached []domain.HistoryEntry
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	entries := s.history.FetchHistory(ctx, nr)
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	// An empty history may mean the reference store was down.
	if len(entries) > 0 {
		s.cacheSet(ctx, key, entries)
	}
	return entries, nil
}

func (s *lookupService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.kv == nil {
		return false
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Lookup cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warn("Lookup cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *lookupService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.kv == nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("Lookup cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, key, string(b), s.ttl); err != nil {
		s.logger.Warn("Lookup cache write failed", zap.String("key", key), zap.Error(err))
	}
}
