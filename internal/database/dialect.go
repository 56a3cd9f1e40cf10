package database

import (
	"fmt"
	"strings"
)

// PlaceholderStyle is how a driver spells positional query parameters.
type PlaceholderStyle int

const (
	// Question is "?" (SQLite, ODBC).
	Question PlaceholderStyle = iota
	// Dollar is "$1", "$2", ... (Postgres).
	Dollar
)

// PlaceholderStyleFor maps a config value ("question", "dollar") to a style.
func PlaceholderStyleFor(name string) (PlaceholderStyle, error) {
	switch name {
	case "question", "":
		return Question, nil
	case "dollar":
		return Dollar, nil
	default:
		return Question, fmt.Errorf("unknown placeholder style %q", name)
	}
}

// Bind returns the placeholder for the n-th (1-based) argument.
func (s PlaceholderStyle) Bind(n int) string {
	if s == Dollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// List returns count comma-separated placeholders starting at argument start,
// for IN lists.
func (s PlaceholderStyle) List(start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = s.Bind(start + i)
	}
	return strings.Join(parts, ", ")
}

// Dialect captures the SQL differences between the supported local stores.
type Dialect struct {
	Name         string
	Placeholders PlaceholderStyle
}

var (
	Postgres = Dialect{Name: "postgres", Placeholders: Dollar}
	SQLite   = Dialect{Name: "sqlite", Placeholders: Question}
)

// DialectFor returns the dialect registered under a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported local store driver %q", driver)
	}
}

// Bind returns the placeholder for the n-th (1-based) argument.
func (d Dialect) Bind(n int) string {
	return d.Placeholders.Bind(n)
}
