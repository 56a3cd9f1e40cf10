package repository

import (
	"context"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/perysek/sorting-management/internal/domain"
)

// ReportsRepository reads reports for the query engine and writes the
// enrichment columns filled from the reference store. Report CRUD lives
// elsewhere.
type ReportsRepository interface {
	// One page of the filtered set plus aggregates over the whole filtered set.
	ListReports(ctx context.Context, filters ReportFilters, sort Sort, page, size int) ([]*domain.Report, ReportStats, error)

	// Apply enrichment to individual reports in a single transaction.
	// Nothing is written when any update fails.
	ApplyEnrichment(ctx context.Context, updates []EnrichmentUpdate) error

	// Trimmed discrepancy numbers of reports missing any enrichment field.
	DistinctUnenrichedDiscrepancies(ctx context.Context) ([]string, error)

	// Apply one record to every report carrying the discrepancy number.
	// Returns the number of rows whose values actually changed.
	UpdateEnrichmentByDiscrepancy(ctx context.Context, nr string, rec domain.EnrichmentRecord) (int64, error)
}

// ReportFilters narrows the report collection. Nil fields do not filter.
// Text filters are case-insensitive "contains" matches.
type ReportFilters struct {
	DateFrom *civil.Date // selection_date >= DateFrom
	DateTo   *civil.Date // selection_date <= DateTo

	ReportNumber      *string
	DiscrepancyNumber *string
	InstructionNumber *string
	Operator          *string // operators.full_name
}

// ReportStats are aggregates over the full filtered set, not just one page.
type ReportStats struct {
	Count        int
	TotalParts   int64
	TotalHours   float64
	TotalDefects int64
}

// EnrichmentUpdate targets one report by id.
type EnrichmentUpdate struct {
	ReportID int64
	Record   domain.EnrichmentRecord
}

const (
	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultSortField = "selection_date"
)

// sortColumns is the allow-list of sortable fields.
var sortColumns = map[string]string{
	"selection_date":         "r.selection_date",
	"report_number":          "r.report_number",
	"discrepancy_number":     "r.discrepancy_number",
	"instruction_number":     "r.instruction_number",
	"parts_inspected":        "r.parts_inspected",
	"hours_worked":           "r.hours_worked",
	"recommended_throughput": "r.recommended_throughput",
	"total_defects":          "COALESCE(d.qty, 0)",
	"discrepancy_date":       "r.discrepancy_date",
}

// Sort is an effective sort order. Build it with NormalizeSort.
type Sort struct {
	Field     string
	Direction string
}

// NormalizeSort maps a requested field and direction onto the allow-list.
// Unknown fields fall back to selection_date descending; an unknown
// direction falls back to descending.
func NormalizeSort(field, direction string) Sort {
	field = strings.ToLower(strings.TrimSpace(field))
	direction = strings.ToLower(strings.TrimSpace(direction))

	if _, ok := sortColumns[field]; !ok {
		return Sort{Field: DefaultSortField, Direction: SortDesc}
	}
	if direction != SortAsc {
		direction = SortDesc
	}
	return Sort{Field: field, Direction: direction}
}

func (s Sort) orderBy() string {
	s = NormalizeSort(s.Field, s.Direction)
	return sortColumns[s.Field] + " " + strings.ToUpper(s.Direction) + ", r.id DESC"
}
