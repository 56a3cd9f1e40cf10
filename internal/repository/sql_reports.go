package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/database"
	"github.com/perysek/sorting-management/internal/domain"
)

// SQLReportsRepository implements ReportsRepository for Postgres and SQLite.
type SQLReportsRepository struct {
	db      *sql.DB
	dialect database.Dialect
	logger  *zap.Logger
}

func NewSQLReportsRepository(db *sql.DB, dialect database.Dialect, logger *zap.Logger) *SQLReportsRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLReportsRepository{db: db, dialect: dialect, logger: logger}
}

// reportsFrom joins the operator name and the per-report defect total.
const reportsFrom = `
		FROM reports r
		LEFT JOIN operators o ON o.id = r.operator_id
		LEFT JOIN (
			SELECT report_id, SUM(quantity) AS qty
			FROM report_defects
			GROUP BY report_id
		) d ON d.report_id = r.id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns user text into a LIKE pattern matching it literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (r *SQLReportsRepository) buildWhereClause(filters ReportFilters, args *[]interface{}, argN *int) []string {
	where := []string{}

	if filters.DateFrom != nil {
		where = append(where, fmt.Sprintf("r.selection_date >= %s", r.dialect.Bind(*argN)))
		*args = append(*args, filters.DateFrom.String())
		*argN++
	}
	if filters.DateTo != nil {
		where = append(where, fmt.Sprintf("r.selection_date <= %s", r.dialect.Bind(*argN)))
		*args = append(*args, filters.DateTo.String())
		*argN++
	}

	contains := func(col string, v *string) {
		if v == nil {
			return
		}
		s := strings.TrimSpace(*v)
		if s == "" {
			return
		}
		where = append(where, fmt.Sprintf(`LOWER(%s) LIKE LOWER(%s) ESCAPE '\'`, col, r.dialect.Bind(*argN)))
		*args = append(*args, containsPattern(s))
		*argN++
	}
	contains("r.report_number", filters.ReportNumber)
	contains("r.discrepancy_number", filters.DiscrepancyNumber)
	contains("r.instruction_number", filters.InstructionNumber)
	contains("o.full_name", filters.Operator)

	return where
}

func whereSQL(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return "\n\t\tWHERE " + strings.Join(where, " AND ")
}

func (r *SQLReportsRepository) ListReports(ctx context.Context, filters ReportFilters, sort Sort, page, size int) ([]*domain.Report, ReportStats, error) {
	var stats ReportStats
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}

	args := []interface{}{}
	argN := 1
	where := whereSQL(r.buildWhereClause(filters, &args, &argN))

	statsQuery := `
		SELECT COUNT(*),
			COALESCE(SUM(r.parts_inspected), 0),
			COALESCE(SUM(r.hours_worked), 0),
			COALESCE(SUM(COALESCE(d.qty, 0)), 0)` + reportsFrom + where

	if err := r.db.QueryRowContext(ctx, statsQuery, args...).Scan(
		&stats.Count, &stats.TotalParts, &stats.TotalHours, &stats.TotalDefects,
	); err != nil {
		return nil, stats, fmt.Errorf("failed to aggregate reports: %w", err)
	}

	if stats.Count == 0 {
		return []*domain.Report{}, stats, nil
	}

	pageQuery := fmt.Sprintf(`
		SELECT r.id, r.report_number, r.operator_id, o.full_name,
			r.discrepancy_number, r.instruction_number, r.continuous_sampling,
			r.parts_inspected, r.recommended_throughput, r.hours_worked,
			r.remarks, r.performance_remarks, r.selection_date,
			r.discrepancy_date, r.order_number, r.part_code,
			COALESCE(d.qty, 0) AS total_defects%s%s
		ORDER BY %s
		LIMIT %s OFFSET %s`,
		reportsFrom, where, sort.orderBy(), r.dialect.Bind(argN), r.dialect.Bind(argN+1))
	pageArgs := append(append([]interface{}{}, args...), size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*domain.Report, 0, size)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, stats, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, stats, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, stats, nil
}

func scanReport(rows *sql.Rows) (*domain.Report, error) {
	var rep domain.Report
	var operatorID sql.NullInt64
	var operatorName, discrepancy, instruction sql.NullString
	var remarks, performanceRemarks, orderNumber, partCode sql.NullString
	var recommended sql.NullFloat64
	var selectionDate, discrepancyDate nullDate
	if err := rows.Scan(
		&rep.ID, &rep.ReportNumber, &operatorID, &operatorName,
		&discrepancy, &instruction, &rep.ContinuousSampling,
		&rep.PartsInspected, &recommended, &rep.HoursWorked,
		&remarks, &performanceRemarks, &selectionDate,
		&discrepancyDate, &orderNumber, &partCode,
		&rep.TotalDefects,
	); err != nil {
		return nil, err
	}

	if operatorID.Valid {
		id := operatorID.Int64
		rep.OperatorID = &id
	}
	if recommended.Valid {
		v := recommended.Float64
		rep.RecommendedThroughput = &v
	}
	rep.OperatorName = stringPtr(operatorName)
	rep.DiscrepancyNumber = stringPtr(discrepancy)
	rep.InstructionNumber = stringPtr(instruction)
	rep.Remarks = stringPtr(remarks)
	rep.PerformanceRemarks = stringPtr(performanceRemarks)
	rep.OrderNumber = stringPtr(orderNumber)
	rep.PartCode = stringPtr(partCode)
	rep.SelectionDate = selectionDate.Date
	rep.DiscrepancyDate = discrepancyDate.Date
	rep.FillMetrics()

	return &rep, nil
}

func (r *SQLReportsRepository) enrichmentSet(argN *int) string {
	set := fmt.Sprintf(
		"discrepancy_date = COALESCE(%s, discrepancy_date), order_number = COALESCE(%s, order_number), part_code = COALESCE(%s, part_code)",
		r.dialect.Bind(*argN), r.dialect.Bind(*argN+1), r.dialect.Bind(*argN+2))
	*argN += 3
	return set
}

func enrichmentArgs(rec domain.EnrichmentRecord) []interface{} {
	return []interface{}{dateArg(rec.DiscrepancyDate), stringArg(rec.OrderNumber), stringArg(rec.PartCode)}
}

func (r *SQLReportsRepository) ApplyEnrichment(ctx context.Context, updates []EnrichmentUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	argN := 1
	query := "UPDATE reports SET " + r.enrichmentSet(&argN) + " WHERE id = " + r.dialect.Bind(argN)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare enrichment update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if u.Record.IsEmpty() {
			continue
		}
		args := append(enrichmentArgs(u.Record), u.ReportID)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to update enrichment of report %d: %w", u.ReportID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit enrichment: %w", err)
	}
	return nil
}

func (r *SQLReportsRepository) DistinctUnenrichedDiscrepancies(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT TRIM(discrepancy_number)
		FROM reports
		WHERE discrepancy_number IS NOT NULL
			AND TRIM(discrepancy_number) <> ''
			AND (discrepancy_date IS NULL OR order_number IS NULL OR part_code IS NULL)
		ORDER BY 1`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unenriched discrepancies: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var nr string
		if err := rows.Scan(&nr); err != nil {
			return nil, fmt.Errorf("failed to scan discrepancy number: %w", err)
		}
		out = append(out, nr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list unenriched discrepancies: %w", err)
	}
	return out, nil
}

func (r *SQLReportsRepository) UpdateEnrichmentByDiscrepancy(ctx context.Context, nr string, rec domain.EnrichmentRecord) (int64, error) {
	nr = strings.TrimSpace(nr)
	if nr == "" || rec.IsEmpty() {
		return 0, nil
	}

	// Rows already holding these values are left alone so the count only
	// reflects real changes.
	argN := 1
	set := r.enrichmentSet(&argN)
	keyArg := r.dialect.Bind(argN)
	argN++
	changed := fmt.Sprintf(
		"COALESCE(%s, discrepancy_date) IS DISTINCT FROM discrepancy_date OR COALESCE(%s, order_number) IS DISTINCT FROM order_number OR COALESCE(%s, part_code) IS DISTINCT FROM part_code",
		r.dialect.Bind(argN), r.dialect.Bind(argN+1), r.dialect.Bind(argN+2))

	query := fmt.Sprintf("UPDATE reports SET %s WHERE TRIM(discrepancy_number) = %s AND (%s)", set, keyArg, changed)

	args := enrichmentArgs(rec)
	args = append(args, nr)
	args = append(args, enrichmentArgs(rec)...)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update enrichment for %s: %w", nr, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// nullDate scans DATE columns whether the driver hands back time.Time or text.
type nullDate struct {
	Date *civil.Date
}

func (n *nullDate) Scan(value interface{}) error {
	n.Date = nil
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		d := civil.DateOf(v)
		n.Date = &d
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("unsupported date value %T", value)
	}
}

func (n *nullDate) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	n.Date = &d
	return nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func stringArg(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func dateArg(d *civil.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
