package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Local store DDL. Report and defect rows are written by the CRUD layer; this
// process only creates the tables when they are missing and reads them.
const (
	createDepartmentsPostgres = `CREATE TABLE IF NOT EXISTS departments (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);`

	createOperatorsPostgres = `CREATE TABLE IF NOT EXISTS operators (
    id BIGSERIAL PRIMARY KEY,
    operator_number INTEGER UNIQUE,
    full_name TEXT NOT NULL,
    department_id BIGINT REFERENCES departments(id)
);`

	createReportsPostgres = `CREATE TABLE IF NOT EXISTS reports (
    id BIGSERIAL PRIMARY KEY,
    report_number TEXT NOT NULL,
    operator_id BIGINT REFERENCES operators(id),
    discrepancy_number TEXT,
    instruction_number TEXT,
    continuous_sampling BOOLEAN NOT NULL DEFAULT FALSE,
    parts_inspected INTEGER NOT NULL DEFAULT 0,
    recommended_throughput DOUBLE PRECISION,
    hours_worked DOUBLE PRECISION NOT NULL DEFAULT 0,
    remarks TEXT,
    performance_remarks TEXT,
    selection_date DATE,
    discrepancy_date DATE,
    order_number TEXT,
    part_code TEXT
);`

	createReportDefectsPostgres = `CREATE TABLE IF NOT EXISTS report_defects (
    id BIGSERIAL PRIMARY KEY,
    report_id BIGINT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    label TEXT NOT NULL,
    quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0)
);`

	createDepartmentsSQLite = `CREATE TABLE IF NOT EXISTS departments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);`

	createOperatorsSQLite = `CREATE TABLE IF NOT EXISTS operators (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    operator_number INTEGER UNIQUE,
    full_name TEXT NOT NULL,
    department_id INTEGER REFERENCES departments(id)
);`

	createReportsSQLite = `CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_number TEXT NOT NULL,
    operator_id INTEGER REFERENCES operators(id),
    discrepancy_number TEXT,
    instruction_number TEXT,
    continuous_sampling BOOLEAN NOT NULL DEFAULT 0,
    parts_inspected INTEGER NOT NULL DEFAULT 0,
    recommended_throughput REAL,
    hours_worked REAL NOT NULL DEFAULT 0,
    remarks TEXT,
    performance_remarks TEXT,
    selection_date DATE,
    discrepancy_date DATE,
    order_number TEXT,
    part_code TEXT
);`

	createReportDefectsSQLite = `CREATE TABLE IF NOT EXISTS report_defects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    label TEXT NOT NULL,
    quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0)
);`
)

var indexDDL = []string{
	`CREATE INDEX IF NOT EXISTS idx_reports_selection_date ON reports(selection_date);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_discrepancy_number ON reports(discrepancy_number);`,
	`CREATE INDEX IF NOT EXISTS idx_report_defects_report ON report_defects(report_id);`,
}

// enrichmentColumns are added to report tables created before enrichment existed.
var enrichmentColumns = []struct {
	name     string
	postgres string
	sqlite   string
}{
	{"discrepancy_date", "DATE", "DATE"},
	{"order_number", "TEXT", "TEXT"},
	{"part_code", "TEXT", "TEXT"},
}

func tableDDL(d Dialect) []string {
	if d.Name == SQLite.Name {
		return []string{createDepartmentsSQLite, createOperatorsSQLite, createReportsSQLite, createReportDefectsSQLite}
	}
	return []string{createDepartmentsPostgres, createOperatorsPostgres, createReportsPostgres, createReportDefectsPostgres}
}

// EnsureSchema creates missing tables and indexes and adds any missing
// enrichment column. It returns the names of the columns it added.
func EnsureSchema(ctx context.Context, db *sql.DB, d Dialect) ([]string, error) {
	for _, stmt := range tableDDL(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}

	added := make([]string, 0)
	for _, col := range enrichmentColumns {
		exists, err := columnExists(ctx, db, d, "reports", col.name)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		colType := col.postgres
		if d.Name == SQLite.Name {
			colType = col.sqlite
		}
		stmt := fmt.Sprintf("ALTER TABLE reports ADD COLUMN %s %s", col.name, colType)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to add column %s: %w", col.name, err)
		}
		added = append(added, col.name)
	}

	for _, stmt := range indexDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	return added, nil
}

func columnExists(ctx context.Context, db *sql.DB, d Dialect, table, column string) (bool, error) {
	var query string
	if d.Name == SQLite.Name {
		query = `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
	} else {
		query = `SELECT COUNT(*) FROM information_schema.columns WHERE table_name = $1 AND column_name = $2`
	}

	var n int
	if err := db.QueryRowContext(ctx, query, table, column).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to inspect column %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}
