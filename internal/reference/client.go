package reference

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/database"
	"github.com/perysek/sorting-management/internal/domain"
)

// DefaultQueryTimeout bounds one reference call when Config leaves it unset.
const DefaultQueryTimeout = 10 * time.Second

// ErrUnavailable is returned internally when no reference handle is configured.
var ErrUnavailable = errors.New("reference store unavailable")

// Config describes where the reference tables live and how to talk to them.
type Config struct {
	Schema       string                    // e.g. STAAMPDB; empty means unqualified table names
	Placeholders database.PlaceholderStyle // parameter spelling of the reference driver
	QueryTimeout time.Duration
}

// Detail is what the discrepancy table knows about one discrepancy number.
type Detail struct {
	Date        *civil.Date
	OrderNumber *string
}

// Client reads the read-only reference store. It never returns errors to its
// callers: every failure is logged and reported as "nothing found".
type Client struct {
	db     *sql.DB
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a reference client. A nil db yields a client that is
// permanently unavailable.
func NewClient(db *sql.DB, cfg Config, logger *zap.Logger) *Client {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{db: db, cfg: cfg, logger: logger}
}

// Available reports whether a reference handle is configured.
func (c *Client) Available() bool {
	return c.db != nil
}

func (c *Client) table(name string) string {
	if c.cfg.Schema == "" {
		return name
	}
	return c.cfg.Schema + "." + name
}

// query runs one statement on a freshly acquired connection and hands every
// row to scan. The connection is released on every exit path.
func (c *Client) query(ctx context.Context, query string, args []interface{}, scan func(*sql.Rows) error) error {
	if c.db == nil {
		return ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to reference store: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query reference store: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan reference row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read reference rows: %w", err)
	}
	return nil
}

// FetchDetail returns the date and production order of one discrepancy.
func (c *Client) FetchDetail(ctx context.Context, nr string) (*Detail, bool) {
	nr = strings.TrimSpace(nr)
	if nr == "" {
		return nil, false
	}

	query := fmt.Sprintf(`
		SELECT NOTCOJAN.DATA, NOTCOJAN.COMMESSA
		FROM %s NOTCOJAN
		WHERE NOTCOJAN.NUMERO_NC = %s`, c.table("NOTCOJAN"), c.cfg.Placeholders.Bind(1))

	var detail *Detail
	err := c.query(ctx, query, []interface{}{nr}, func(rows *sql.Rows) error {
		if detail != nil {
			return nil
		}
		var rawDate interface{}
		var order sql.NullString
		if err := rows.Scan(&rawDate, &order); err != nil {
			return err
		}
		detail = &Detail{Date: ParseDate(rawDate), OrderNumber: trimmedPtr(order)}
		return nil
	})
	if err != nil {
		c.logger.Warn("Reference detail lookup failed",
			zap.String("discrepancy_number", nr),
			zap.Error(err),
		)
		return nil, false
	}
	return detail, detail != nil
}

// FetchHistory returns every note recorded on a discrepancy, oldest first.
func (c *Client) FetchHistory(ctx context.Context, nr string) []domain.HistoryEntry {
	nr = strings.TrimSpace(nr)
	if nr == "" {
		return []domain.HistoryEntry{}
	}

	query := fmt.Sprintf(`
		SELECT NOTCOJAN.DATA, NOTCOJAN.ORA,
			NOTCOJAN.NOTE_01, NOTCOJAN.NOTE_02, NOTCOJAN.NOTE_03, NOTCOJAN.NOTE_04, NOTCOJAN.NOTE_05,
			NOTCOJAN.NOTE_06, NOTCOJAN.NOTE_07, NOTCOJAN.NOTE_08, NOTCOJAN.NOTE_09, NOTCOJAN.NOTE_10,
			NOTCOJAN.TIPO_NOTA
		FROM %s NOTCOJAN
		WHERE NOTCOJAN.NUMERO_NC = %s
		ORDER BY NOTCOJAN.DATA ASC, NOTCOJAN.ORA ASC`, c.table("NOTCOJAN"), c.cfg.Placeholders.Bind(1))

	history := make([]domain.HistoryEntry, 0)
	err := c.query(ctx, query, []interface{}{nr}, func(rows *sql.Rows) error {
		var rawDate, rawTime interface{}
		var notes [10]sql.NullString
		var noteType sql.NullString

		dest := []interface{}{&rawDate, &rawTime}
		for i := range notes {
			dest = append(dest, &notes[i])
		}
		dest = append(dest, &noteType)
		if err := rows.Scan(dest...); err != nil {
			return err
		}

		parts := make([]string, 0, len(notes))
		for _, n := range notes {
			if s := strings.TrimSpace(n.String); n.Valid && s != "" {
				parts = append(parts, s)
			}
		}
		history = append(history, domain.HistoryEntry{
			Date:     ParseDate(rawDate),
			Time:     FormatTime(rawTime),
			Text:     strings.Join(parts, " "),
			NoteType: strings.TrimSpace(noteType.String),
		})
		return nil
	})
	if err != nil {
		c.logger.Warn("Reference history lookup failed",
			zap.String("discrepancy_number", nr),
			zap.Error(err),
		)
		return []domain.HistoryEntry{}
	}
	return history
}

// FetchPartNumber returns the part code produced by a production order.
func (c *Client) FetchPartNumber(ctx context.Context, order string) (string, bool) {
	order = strings.TrimSpace(order)
	if order == "" {
		return "", false
	}

	query := fmt.Sprintf(`
		SELECT COLLAUDO.ARTICOLO
		FROM %s COLLAUDO
		WHERE COLLAUDO.COMMESSA = %s`, c.table("COLLAUDO"), c.cfg.Placeholders.Bind(1))

	part := ""
	err := c.query(ctx, query, []interface{}{order}, func(rows *sql.Rows) error {
		if part != "" {
			return nil
		}
		var article sql.NullString
		if err := rows.Scan(&article); err != nil {
			return err
		}
		part = strings.TrimSpace(article.String)
		return nil
	})
	if err != nil {
		c.logger.Warn("Reference part lookup failed",
			zap.String("order_number", order),
			zap.Error(err),
		)
		return "", false
	}
	return part, part != ""
}

// FetchBatch returns details for every key the reference store knows, in one
// round trip. Unknown keys are absent from the result. When the store holds
// several rows for one key the first row wins.
func (c *Client) FetchBatch(ctx context.Context, keys []string) map[string]Detail {
	result := make(map[string]Detail)
	keys = normalizeKeys(keys)
	if len(keys) == 0 {
		return result
	}

	query := fmt.Sprintf(`
		SELECT NOTCOJAN.NUMERO_NC, NOTCOJAN.DATA, NOTCOJAN.COMMESSA
		FROM %s NOTCOJAN
		WHERE NOTCOJAN.NUMERO_NC IN (%s)`, c.table("NOTCOJAN"), c.cfg.Placeholders.List(1, len(keys)))

	err := c.query(ctx, query, toArgs(keys), func(rows *sql.Rows) error {
		var nr sql.NullString
		var rawDate interface{}
		var order sql.NullString
		if err := rows.Scan(&nr, &rawDate, &order); err != nil {
			return err
		}
		key := strings.TrimSpace(nr.String)
		if key == "" {
			return nil
		}
		if _, seen := result[key]; seen {
			return nil
		}
		result[key] = Detail{Date: ParseDate(rawDate), OrderNumber: trimmedPtr(order)}
		return nil
	})
	if err != nil {
		c.logger.Warn("Reference batch detail lookup failed",
			zap.Int("keys", len(keys)),
			zap.Error(err),
		)
		return make(map[string]Detail)
	}
	return result
}

// FetchPartsForOrders maps each known production order to its part code in
// one round trip.
func (c *Client) FetchPartsForOrders(ctx context.Context, orders []string) map[string]string {
	result := make(map[string]string)
	orders = normalizeKeys(orders)
	if len(orders) == 0 {
		return result
	}

	query := fmt.Sprintf(`
		SELECT COLLAUDO.COMMESSA, COLLAUDO.ARTICOLO
		FROM %s COLLAUDO
		WHERE COLLAUDO.COMMESSA IN (%s)`, c.table("COLLAUDO"), c.cfg.Placeholders.List(1, len(orders)))

	err := c.query(ctx, query, toArgs(orders), func(rows *sql.Rows) error {
		var order, article sql.NullString
		if err := rows.Scan(&order, &article); err != nil {
			return err
		}
		key := strings.TrimSpace(order.String)
		part := strings.TrimSpace(article.String)
		if key == "" || part == "" {
			return nil
		}
		if _, seen := result[key]; !seen {
			result[key] = part
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("Reference batch part lookup failed",
			zap.Int("orders", len(orders)),
			zap.Error(err),
		)
		return make(map[string]string)
	}
	return result
}

// normalizeKeys trims, drops blanks, dedupes and sorts keys so the IN list
// is deterministic.
func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toArgs(keys []string) []interface{} {
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return args
}

func trimmedPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := strings.TrimSpace(ns.String)
	if s == "" {
		return nil
	}
	return &s
}
