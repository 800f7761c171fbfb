// Package duckdb serves the aggregate queries from a DuckDB file holding an exported
// copy of the data mart. It is read-only: loads and fact events go to the primary
// warehouse.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/shopspring/decimal"

	"datamart/config"
	"datamart/internal/warehouse"
)

type Client struct {
	db *sql.DB
}

// Open attaches the database file in read-only mode.
func Open(cfg config.DuckDBConfig) (*Client, error) {
	db, err := sql.Open("duckdb", cfg.Path+"?access_mode=READ_ONLY")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb %s: %w", cfg.Path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open duckdb %s: %w", cfg.Path, err)
	}
	return Wrap(db), nil
}

// Wrap adopts an open DuckDB handle.
func Wrap(db *sql.DB) *Client {
	return &Client{db: db}
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Dialect() warehouse.Dialect {
	return warehouse.DuckDB
}

func (c *Client) Close() error {
	return c.db.Close()
}

// Query runs SQL and normalizes DuckDB's wide numeric types: DECIMAL becomes an exact
// decimal and HUGEINT an int64 when it fits.
func (c *Client) Query(ctx context.Context, query string, args ...any) ([]warehouse.Record, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs, err := warehouse.ScanRows(rows)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		for k, v := range rec {
			rec[k] = normalize(v)
		}
	}
	return recs, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case duckdb.Decimal:
		if x.Value == nil {
			return nil
		}
		return decimal.NewFromBigInt(x.Value, -int32(x.Scale))
	case *big.Int:
		if x == nil {
			return nil
		}
		if x.IsInt64() {
			return x.Int64()
		}
		return decimal.NewFromBigInt(x, 0)
	default:
		return v
	}
}
