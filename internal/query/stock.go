package query

import (
	"context"
	"fmt"
	"time"

	"datamart/internal/warehouse"
	"datamart/models"
)

// SnapshotDate returns the latest stock snapshot date on or before asOf across the
// whole stock fact table. ok is false when there is none.
func SnapshotDate(ctx context.Context, s warehouse.Store, asOf time.Time) (time.Time, bool, error) {
	d := s.Dialect()
	sql := fmt.Sprintf("SELECT %s.data AS data FROM %s WHERE %s.data <= ? ORDER BY %s.data DESC LIMIT 1",
		factAlias, d.From(models.TableEstoque, factAlias), factAlias, factAlias)
	recs, err := s.Query(ctx, sql, d.DateArg(asOf))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("resolve snapshot date: %w", err)
	}
	if len(recs) == 0 || recs[0]["data"] == nil {
		return time.Time{}, false, nil
	}
	day, err := warehouse.ParseDate(recs[0]["data"])
	if err != nil {
		return time.Time{}, false, fmt.Errorf("resolve snapshot date: %w", err)
	}
	return day, true, nil
}

// aggregateStock sums the requested stock metrics at the single snapshot date resolved
// for asOf, grouped by dims. No snapshot means no rows.
func aggregateStock(ctx context.Context, s warehouse.Store, c Catalog, dims []Dimension, metrics []Metric, asOf time.Time, filters map[string]any) ([]Row, error) {
	snapshot, ok, err := SnapshotDate(ctx, s, asOf)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Row{}, nil
	}

	d := s.Dialect()
	q := newFactQuery(d, FactStock)
	if err := project(q, c, dims, metrics); err != nil {
		return nil, err
	}
	q.filter(factAlias+".data = ?", d.DateArg(snapshot))
	applyFilters(q, c, filters)

	sql, args := q.SQL()
	recs, err := s.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate stock: %w", err)
	}
	return toRows(recs, dims, metrics)
}
