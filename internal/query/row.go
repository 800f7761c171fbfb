package query

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Row is an open record of one result line: the requested dimensions, then the
// resolved metrics, each mapped to a tagged value.
type Row struct {
	dims    []Dimension
	metrics []Metric
	values  map[string]Value
}

func newRow(dims []Dimension, metrics []Metric) Row {
	return Row{dims: dims, metrics: metrics, values: make(map[string]Value, len(dims)+len(metrics))}
}

func (r Row) Dimension(d Dimension) Value { return r.values[string(d)] }

func (r Row) Metric(m Metric) Value { return r.values[string(m)] }

// Has reports whether the row carries a column called name.
func (r Row) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Columns returns the column names in output order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r.dims)+len(r.metrics))
	for _, d := range r.dims {
		cols = append(cols, string(d))
	}
	for _, m := range r.metrics {
		cols = append(cols, string(m))
	}
	return cols
}

// Key is the merge key of the row built from its dimension values.
func (r Row) Key() MergeKey {
	vals := make([]Value, len(r.dims))
	for i, d := range r.dims {
		vals[i] = r.values[string(d)]
	}
	return newMergeKey(vals)
}

func (r Row) setDimension(d Dimension, v Value) { r.values[string(d)] = v }

func (r Row) setMetric(m Metric, v Value) { r.values[string(m)] = v }

// MarshalJSON emits a flat object whose keys follow Columns.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(col)
		buf.Write(k)
		buf.WriteByte(':')
		v, err := r.values[col].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MergeKey is the ordered tuple of dimension values of a row, encoded so that map
// equality matches Value.Equal component by component. Null is a valid component.
type MergeKey struct {
	enc  string
	vals []Value
}

func newMergeKey(vals []Value) MergeKey {
	var b strings.Builder
	for _, v := range vals {
		part := v.keyPart()
		b.WriteString(v.kind.String())
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return MergeKey{enc: b.String(), vals: vals}
}

func (k MergeKey) String() string { return k.enc }
