package database

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Driver names a supported SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
)

// ParseDriver normalises a configured driver name.
func ParseDriver(name string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "mysql", "mariadb":
		return DriverMySQL, nil
	case "postgres", "postgresql", "pgsql":
		return DriverPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", name)
}

// SQLDriverName is the database/sql driver registered for d.
func (d Driver) SQLDriverName() string {
	if d == DriverSQLite {
		return "sqlite3"
	}
	return string(d)
}

var dollarPlaceholder = regexp.MustCompile(`\$\d+`)

// ConvertPlaceholders converts ? placeholders to the form d expects.
//
// Only ? placeholders are allowed; a query carrying $N placeholders panics so
// that driver-specific SQL never slips into shared repository code.
func (d Driver) ConvertPlaceholders(query string) string {
	if dollarPlaceholder.MatchString(query) {
		panic(fmt.Sprintf("ConvertPlaceholders: $N placeholders are not allowed. Use ? placeholders instead.\nQuery: %s", query))
	}
	if d != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	n := 1
	for _, c := range query {
		if c == '?' {
			b.WriteString("$" + strconv.Itoa(n))
			n++
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// UpsertDocumentQuery returns the insert-or-replace statement for the documents table.
func (d Driver) UpsertDocumentQuery() string {
	var q string
	switch d {
	case DriverMySQL:
		q = `INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE body = VALUES(body), updated_at = VALUES(updated_at)`
	default:
		q = `INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
	}
	return d.ConvertPlaceholders(q)
}
