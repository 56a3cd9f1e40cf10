package domain

import (
	"strings"

	"cloud.google.com/go/civil"
)

// Report is one sorting/inspection session (reports table).
type Report struct {
	ID                    int64       `json:"id"`
	ReportNumber          string      `json:"report_number"`          // business number, not unique-constrained
	OperatorID            *int64      `json:"operator_id"`            // FK to operators, nullable
	OperatorName          *string     `json:"operator_name"`          // operators.full_name, read-only join
	DiscrepancyNumber     *string     `json:"discrepancy_number"`     // join key into the reference store
	InstructionNumber     *string     `json:"instruction_number"`
	ContinuousSampling    bool        `json:"continuous_sampling"`    // continuous vs batch sampling
	PartsInspected        int         `json:"parts_inspected"`
	RecommendedThroughput *float64    `json:"recommended_throughput"` // parts/hour
	HoursWorked           float64     `json:"hours_worked"`
	Remarks               *string     `json:"remarks"`
	PerformanceRemarks    *string     `json:"performance_remarks"`
	SelectionDate         *civil.Date `json:"selection_date"`

	// Enrichment, written only by the sync layer. NULL means "not fetched yet".
	DiscrepancyDate *civil.Date `json:"discrepancy_date"`
	OrderNumber     *string     `json:"order_number"`
	PartCode        *string     `json:"part_code"`

	// Sum of report_defects.quantity, computed by the query, never stored.
	TotalDefects int `json:"total_defects"`

	// Set by FillMetrics.
	ActualThroughput float64 `json:"actual_throughput"` // parts/hour
	Efficiency       float64 `json:"efficiency"`        // % of recommended throughput
}

// Defect is one defect line owned by a report (report_defects table).
type Defect struct {
	ID       int64  `json:"id"`
	ReportID int64  `json:"report_id"`
	Label    string `json:"label"`
	Quantity int    `json:"quantity"` // >= 0
}

// Operator is read from the operators table for display joins.
type Operator struct {
	ID           int64  `json:"id"`
	Number       *int   `json:"operator_number"`
	FullName     string `json:"full_name"`
	DepartmentID *int64 `json:"department_id"`
}

// Discrepancy returns the trimmed discrepancy number, "" when unset.
func (r *Report) Discrepancy() string {
	if r.DiscrepancyNumber == nil {
		return ""
	}
	return strings.TrimSpace(*r.DiscrepancyNumber)
}

// NeedsEnrichment reports whether the page-level lazy enrichment should look
// this row up: discrepancy date unknown and a discrepancy number present.
func (r *Report) NeedsEnrichment() bool {
	return r.DiscrepancyDate == nil && r.Discrepancy() != ""
}

// FillMetrics derives ActualThroughput (parts per hour worked) and
// Efficiency (actual as a percentage of recommended). Both stay 0 when
// their inputs are missing or zero.
func (r *Report) FillMetrics() {
	r.ActualThroughput = 0
	r.Efficiency = 0
	if r.HoursWorked <= 0 {
		return
	}
	r.ActualThroughput = float64(r.PartsInspected) / r.HoursWorked
	if r.RecommendedThroughput != nil && *r.RecommendedThroughput > 0 && r.ActualThroughput > 0 {
		r.Efficiency = r.ActualThroughput / *r.RecommendedThroughput * 100
	}
}

// WithEnrichment returns a copy of r with rec applied. Fields rec leaves unknown
// keep their current value; enrichment never moves back to unknown.
func (r *Report) WithEnrichment(rec EnrichmentRecord) *Report {
	out := *r
	if rec.DiscrepancyDate != nil {
		d := *rec.DiscrepancyDate
		out.DiscrepancyDate = &d
	}
	if rec.OrderNumber != nil {
		s := *rec.OrderNumber
		out.OrderNumber = &s
	}
	if rec.PartCode != nil {
		s := *rec.PartCode
		out.PartCode = &s
	}
	return &out
}
