package domain

import "cloud.google.com/go/civil"

// EnrichmentRecord is the result of one reference lookup for a discrepancy
// number. It is never persisted as its own row.
type EnrichmentRecord struct {
	DiscrepancyDate *civil.Date `json:"discrepancy_date"`
	OrderNumber     *string     `json:"order_number"`
	PartCode        *string     `json:"part_code"` // only resolvable when OrderNumber is known
}

// IsEmpty reports whether the record carries no data at all.
func (e EnrichmentRecord) IsEmpty() bool {
	return e.DiscrepancyDate == nil && e.OrderNumber == nil && e.PartCode == nil
}

// HistoryEntry is one update note on a discrepancy in the reference store.
type HistoryEntry struct {
	Date     *civil.Date `json:"date"`
	Time     string      `json:"time"` // "HH:MM", or "-" when unknown
	Text     string      `json:"text"`
	NoteType string      `json:"note_type"`
}
