package query

import (
	"fmt"
	"strings"

	"datamart/internal/warehouse"
	"datamart/models"
)

// selectQuery accumulates the parts of one aggregate statement.
type selectQuery struct {
	from    string
	joins   []string
	selects []string
	where   []string
	args    []any
	groupBy []string
}

// newFactQuery starts a query over fact joined to both dimensions on their surrogate keys.
func newFactQuery(d warehouse.Dialect, fact Fact) *selectQuery {
	return &selectQuery{
		from: d.From(fact.table(), factAlias),
		joins: []string{
			fmt.Sprintf("JOIN %s ON %s.id = %s.produto_id", d.From(models.TableProduto, productAlias), productAlias, factAlias),
			fmt.Sprintf("JOIN %s ON %s.id = %s.loja_id", d.From(models.TableLoja, storeAlias), storeAlias, factAlias),
		},
	}
}

// groupColumn selects expr under alias and groups by it.
func (q *selectQuery) groupColumn(expr, alias string) {
	q.selects = append(q.selects, fmt.Sprintf("%s AS %s", expr, alias))
	q.groupBy = append(q.groupBy, expr)
}

func (q *selectQuery) aggregate(expr, alias string) {
	q.selects = append(q.selects, fmt.Sprintf("%s AS %s", expr, alias))
}

// filter adds a conjunctive predicate with its bind arguments.
func (q *selectQuery) filter(pred string, args ...any) {
	q.where = append(q.where, pred)
	q.args = append(q.args, args...)
}

// SQL renders the statement. Rows are ordered by the group columns so repeated runs
// return the same sequence.
func (q *selectQuery) SQL() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.selects, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.from)
	for _, j := range q.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	if len(q.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.where, " AND "))
	}
	if len(q.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(q.groupBy, ", "))
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.groupBy, ", "))
	}
	return b.String(), q.args
}
