package query

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"datamart/pkg/logger"
)

// predicateFunc renders an equality predicate for one filter value.
type predicateFunc func(c Catalog, value string) (string, []any)

func equals(d Dimension) predicateFunc {
	return func(c Catalog, value string) (string, []any) {
		col, _ := c.ResolveDimension(d)
		return col + " = ?", []any{value}
	}
}

// filterable is the allow-list of filter keys. It overlaps the dimension catalog but
// is deliberately narrower: adding a filter is adding an entry here.
var filterable = map[Dimension]predicateFunc{
	NomeLoja:         equals(NomeLoja),
	NomeDepartamento: equals(NomeDepartamento),
	NomeFornecedor:   equals(NomeFornecedor),
	NomeMarca:        equals(NomeMarca),
	CodigoProduto:    equals(CodigoProduto),
}

// Filterable reports whether name is accepted as a filter key.
func Filterable(name string) bool {
	_, ok := filterable[Dimension(name)]
	return ok
}

// applyFilters appends one equality predicate per recognized key of filters. Unknown
// keys and empty or non-scalar values are ignored. Keys are visited in sorted order so
// the generated SQL is stable.
func applyFilters(q *selectQuery, c Catalog, filters map[string]any) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		build, ok := filterable[Dimension(k)]
		if !ok {
			logger.WithModule("query").WithField("filter", k).Debug("ignoring unknown filter")
			continue
		}
		value, ok := scalarString(filters[k])
		if !ok {
			continue
		}
		pred, args := build(c, value)
		q.filter(pred, args...)
	}
}

// scalarString renders a JSON scalar the way it would be stored in a text column.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return "", false
		}
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}
