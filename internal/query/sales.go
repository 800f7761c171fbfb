package query

import (
	"context"
	"fmt"
	"time"

	"datamart/internal/warehouse"
)

// aggregateSales sums the requested sales metrics over [start, end] grouped by dims.
func aggregateSales(ctx context.Context, s warehouse.Store, c Catalog, dims []Dimension, metrics []Metric, start, end time.Time, filters map[string]any) ([]Row, error) {
	d := s.Dialect()
	q := newFactQuery(d, FactSales)
	if err := project(q, c, dims, metrics); err != nil {
		return nil, err
	}
	q.filter(factAlias+".data BETWEEN ? AND ?", d.DateArg(start), d.DateArg(end))
	applyFilters(q, c, filters)

	sql, args := q.SQL()
	recs, err := s.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate sales: %w", err)
	}
	return toRows(recs, dims, metrics)
}

// project adds a group column per dimension and a SUM per metric.
func project(q *selectQuery, c Catalog, dims []Dimension, metrics []Metric) error {
	for _, dim := range dims {
		expr, ok := c.ResolveDimension(dim)
		if !ok {
			return fmt.Errorf("unknown dimension %q", dim)
		}
		q.groupColumn(expr, string(dim))
	}
	for _, m := range metrics {
		_, expr, ok := c.ResolveMetric(m)
		if !ok {
			return fmt.Errorf("unknown metric %q", m)
		}
		q.aggregate(expr, string(m))
	}
	return nil
}

// toRows converts driver records into typed rows.
func toRows(recs []warehouse.Record, dims []Dimension, metrics []Metric) ([]Row, error) {
	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		row := newRow(dims, metrics)
		for _, dim := range dims {
			row.setDimension(dim, dimensionValue(rec[string(dim)]))
		}
		for _, m := range metrics {
			v, err := metricValue(rec[string(m)])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", m, err)
			}
			row.setMetric(m, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
