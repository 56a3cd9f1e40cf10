package reference

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingSource is an in-memory BatchSource that records its calls.
type countingSource struct {
	details map[string]Detail
	parts   map[string]string

	batchCalls [][]string
	partCalls  [][]string
}

func (s *countingSource) FetchDetail(_ context.Context, nr string) (*Detail, bool) {
	d, ok := s.details[nr]
	if !ok {
		return nil, false
	}
	return &d, true
}

func (s *countingSource) FetchPartNumber(_ context.Context, order string) (string, bool) {
	p, ok := s.parts[order]
	return p, ok
}

func (s *countingSource) FetchBatch(_ context.Context, keys []string) map[string]Detail {
	s.batchCalls = append(s.batchCalls, keys)
	out := make(map[string]Detail)
	for _, k := range keys {
		if d, ok := s.details[k]; ok {
			out[k] = d
		}
	}
	return out
}

func (s *countingSource) FetchPartsForOrders(_ context.Context, orders []string) map[string]string {
	s.partCalls = append(s.partCalls, orders)
	out := make(map[string]string)
	for _, o := range orders {
		if p, ok := s.parts[o]; ok {
			out[o] = p
		}
	}
	return out
}

func ptr(s string) *string { return &s }

func date(y int, m time.Month, d int) *civil.Date {
	return &civil.Date{Year: y, Month: m, Day: d}
}

func TestSync_AtMostTwoCallsForLargeKeySets(t *testing.T) {
	src := &countingSource{details: map[string]Detail{}, parts: map[string]string{}}
	keys := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		nr := fmt.Sprintf("NC%04d", i)
		keys = append(keys, nr)
		if i%2 == 0 {
			order := fmt.Sprintf("O%d", i%7)
			src.details[nr] = Detail{Date: date(2025, 1, 1+i%28), OrderNumber: ptr(order)}
			src.parts[order] = "P" + order
		}
	}

	engine := NewSyncEngine(src, zap.NewNop())
	got := engine.Sync(context.Background(), keys)

	assert.Len(t, src.batchCalls, 1)
	assert.Len(t, src.partCalls, 1)
	assert.Len(t, got, 250)
	assert.Equal(t, "PO0", *got["NC0000"].PartCode)
}

func TestSync_AbsentKeysOmitted(t *testing.T) {
	src := &countingSource{details: map[string]Detail{
		"NC001": {Date: date(2025, 1, 10), OrderNumber: ptr("O100")},
	}, parts: map[string]string{"O100": "P9"}}

	got := NewSyncEngine(src, nil).Sync(context.Background(), []string{"NC001", "NC404"})

	require.Len(t, got, 1)
	_, present := got["NC404"]
	assert.False(t, present)
}

func TestSync_SkipsPartCallWithoutOrders(t *testing.T) {
	src := &countingSource{details: map[string]Detail{
		"NC001": {Date: date(2025, 1, 10)},
	}}

	got := NewSyncEngine(src, nil).Sync(context.Background(), []string{"NC001"})

	assert.Len(t, src.batchCalls, 1)
	assert.Empty(t, src.partCalls)
	require.Contains(t, got, "NC001")
	assert.Nil(t, got["NC001"].PartCode)
	assert.Nil(t, got["NC001"].OrderNumber)
}

func TestSync_EmptyKeysMakeNoCalls(t *testing.T) {
	src := &countingSource{}
	got := NewSyncEngine(src, nil).Sync(context.Background(), []string{"", "  "})

	assert.Empty(t, got)
	assert.Empty(t, src.batchCalls)
	assert.Empty(t, src.partCalls)
}

func TestSync_OrderWithoutPartKeepsPartUnknown(t *testing.T) {
	src := &countingSource{details: map[string]Detail{
		"NC001": {OrderNumber: ptr("O404")},
	}, parts: map[string]string{}}

	got := NewSyncEngine(src, nil).Sync(context.Background(), []string{"NC001"})

	require.Contains(t, got, "NC001")
	assert.Equal(t, "O404", *got["NC001"].OrderNumber)
	assert.Nil(t, got["NC001"].PartCode)
	assert.Nil(t, got["NC001"].DiscrepancyDate)
}

// Two reports referencing NC001 and NC002, only NC001 known upstream.
func TestSync_ClientRoundTrips(t *testing.T) {
	db, mock, client := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM STAAMPDB.NOTCOJAN NOTCOJAN WHERE NOTCOJAN.NUMERO_NC IN \(\?, \?\)`).
		WithArgs("NC001", "NC002").
		WillReturnRows(sqlmock.NewRows([]string{"NUMERO_NC", "DATA", "COMMESSA"}).
			AddRow("NC001", "20250110", "O100"))
	mock.ExpectQuery(`FROM STAAMPDB.COLLAUDO COLLAUDO WHERE COLLAUDO.COMMESSA IN \(\?\)`).
		WithArgs("O100").
		WillReturnRows(sqlmock.NewRows([]string{"COMMESSA", "ARTICOLO"}).AddRow("O100", "P9"))

	got := NewSyncEngine(client, zap.NewNop()).Sync(context.Background(), []string{"NC002", "NC001", "NC001"})

	require.Len(t, got, 1)
	rec := got["NC001"]
	assert.Equal(t, civil.Date{Year: 2025, Month: time.January, Day: 10}, *rec.DiscrepancyDate)
	assert.Equal(t, "O100", *rec.OrderNumber)
	assert.Equal(t, "P9", *rec.PartCode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailsForAndPartNumberFor(t *testing.T) {
	src := &countingSource{details: map[string]Detail{
		"NC001": {Date: date(2025, 1, 10), OrderNumber: ptr("O100")},
	}, parts: map[string]string{"O100": "P9"}}
	engine := NewSyncEngine(src, nil)

	rec, ok := engine.DetailsFor(context.Background(), "NC001")
	require.True(t, ok)
	assert.Equal(t, "O100", *rec.OrderNumber)
	assert.Nil(t, rec.PartCode)

	_, ok = engine.DetailsFor(context.Background(), "NC404")
	assert.False(t, ok)

	part, ok := engine.PartNumberFor(context.Background(), "O100")
	require.True(t, ok)
	assert.Equal(t, "P9", part)
}
