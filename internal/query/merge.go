package query

// Merge is the outer union of sales and stock rows on their dimension tuple. Keys seen
// only on one side get zero for the other side's metrics. Sales keys come first in
// their original order, then stock-only keys. Decimals are converted to floats.
func Merge(sales, stock []Row, dims []Dimension, metrics []Metric) []Row {
	order := make([]MergeKey, 0, len(sales)+len(stock))
	salesByKey := make(map[string]Row, len(sales))
	stockByKey := make(map[string]Row, len(stock))

	index := func(rows []Row, into map[string]Row) {
		for _, r := range rows {
			k := r.Key()
			if _, seen := salesByKey[k.enc]; !seen {
				if _, seen := stockByKey[k.enc]; !seen {
					order = append(order, k)
				}
			}
			into[k.enc] = r
		}
	}
	index(sales, salesByKey)
	index(stock, stockByKey)

	out := make([]Row, 0, len(order))
	for _, k := range order {
		row := newRow(dims, metrics)
		for i, d := range dims {
			row.setDimension(d, k.vals[i].Coerced())
		}
		for _, m := range metrics {
			side := salesByKey
			if m.Fact() == FactStock {
				side = stockByKey
			}
			v := FloatValue(0)
			if src, ok := side[k.enc]; ok && src.Has(string(m)) {
				v = src.Metric(m).Coerced()
			}
			row.setMetric(m, v)
		}
		out = append(out, row)
	}
	return out
}
