package warehouse

import (
	"fmt"
	"strings"
	"time"
)

// Dialect names the SQL flavour of a Store.
type Dialect string

const (
	Postgres   Dialect = "postgres"
	MySQL      Dialect = "mysql"
	SQLite     Dialect = "sqlite"
	ClickHouse Dialect = "clickhouse"
	DuckDB     Dialect = "duckdb"
)

// MonthExpr buckets a date column into a "YYYY-MM" string.
func (d Dialect) MonthExpr(col string) string {
	switch d {
	case Postgres:
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", col)
	case MySQL:
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m')", col)
	case ClickHouse:
		return fmt.Sprintf("formatDateTime(%s, '%%Y-%%m')", col)
	case DuckDB:
		return fmt.Sprintf("strftime(%s, '%%Y-%%m')", col)
	default:
		return fmt.Sprintf("strftime('%%Y-%%m', %s)", col)
	}
}

// From renders a table reference. ClickHouse reads fact tables with FINAL so that
// replaced rows are collapsed at query time.
func (d Dialect) From(table, alias string) string {
	if d == ClickHouse && strings.HasPrefix(table, "fato_") {
		return fmt.Sprintf("%s AS %s FINAL", table, alias)
	}
	return fmt.Sprintf("%s AS %s", table, alias)
}

// DateArg renders a calendar date as a bind argument comparable with a DATE column.
// SQLite keeps dates as driver-formatted timestamps and DuckDB types its parameters,
// so both get the time itself; elsewhere an ISO date string avoids session time-zone
// shifts.
func (d Dialect) DateArg(t time.Time) any {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if d == SQLite || d == DuckDB {
		return day
	}
	return day.Format(time.DateOnly)
}

var dateLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseDate reads a DATE value as returned by any supported driver.
func ParseDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, time.UTC), nil
	case *time.Time:
		if x == nil {
			return time.Time{}, fmt.Errorf("nil date")
		}
		return ParseDate(*x)
	case []byte:
		return ParseDate(string(x))
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return ParseDate(t)
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", x)
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}
