// Package warehouse defines the storage contract of the data mart: a read side that runs
// aggregate SQL and returns driver-shaped records, and a write side used by the loader
// and the fact workers.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"datamart/models"
)

// Record is one result row keyed by column label, holding driver values as returned.
type Record map[string]any

// Store runs read-only SQL with `?` placeholders. Each call acquires its own connection
// from the backend pool and releases it before returning, so concurrent calls are safe.
type Store interface {
	Dialect() Dialect
	Query(ctx context.Context, query string, args ...any) ([]Record, error)
}

// Sink writes dimension and fact rows.
type Sink interface {
	InsertProducts(ctx context.Context, rows []models.Produto) error
	InsertStores(ctx context.Context, rows []models.Loja) error
	UpsertSales(ctx context.Context, rows []models.Venda) error
	UpsertStock(ctx context.Context, rows []models.Estoque) error
	DeleteSales(ctx context.Context, key models.FactKey) error
	DeleteStock(ctx context.Context, key models.FactKey) error
	Truncate(ctx context.Context, table string) error
}

// Warehouse is a backend with both sides.
type Warehouse interface {
	Store
	Sink
}

// Tables lists the tables a Sink may truncate.
var Tables = map[string]bool{
	models.TableProduto: true,
	models.TableLoja:    true,
	models.TableVendas:  true,
	models.TableEstoque: true,
}

// CheckTable guards identifiers interpolated into DDL.
func CheckTable(table string) error {
	if !Tables[table] {
		return fmt.Errorf("unknown table %q", table)
	}
	return nil
}

// ScanRows drains rows into records. Byte slices are copied into strings since the
// driver may reuse the buffer.
func ScanRows(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []Record{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
