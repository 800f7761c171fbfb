package query

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"datamart/internal/domain"
)

// Date is a calendar day carried on the wire as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// MustDate parses a "YYYY-MM-DD" literal and panics on bad input.
func MustDate(s string) Date {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return NewDate(t)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d = NewDate(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// Full timestamps are accepted too; only the calendar day as written is kept.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.DateTime,
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

// MetricRequest names one measure and the aggregation the client asked for.
type MetricRequest struct {
	Nome      string `json:"nome"`
	Agregacao string `json:"agregacao"`
}

// Request is the body of a query.
type Request struct {
	DataInicial Date            `json:"data_inicial"`
	DataFinal   Date            `json:"data_final"`
	Dimensoes   []string        `json:"dimensoes" validate:"max=64"`
	Metricas    []MetricRequest `json:"metricas" validate:"max=64"`
	Filtros     map[string]any  `json:"filtros"`
}

var validate = validator.New()

// plan is a validated request restricted to catalog names.
type plan struct {
	start, end time.Time
	dims       []Dimension
	metrics    []Metric
	sales      []Metric
	stock      []Metric
	filters    map[string]any
}

func (p plan) wantsSales() bool { return len(p.sales) > 0 }
func (p plan) wantsStock() bool { return len(p.stock) > 0 }

// compile validates r and drops unknown dimension and metric names. Duplicates keep
// their first position.
func (r Request) compile() (plan, error) {
	if err := validate.Struct(r); err != nil {
		return plan{}, domain.ErrValidation("invalid request: %s", err.Error())
	}
	if r.DataInicial.IsZero() || r.DataFinal.IsZero() {
		return plan{}, domain.ErrValidation("data_inicial and data_final are required")
	}
	if r.DataFinal.Before(r.DataInicial.Time) {
		return plan{}, domain.ErrValidation("data_inicial must not be after data_final")
	}

	p := plan{start: r.DataInicial.Time, end: r.DataFinal.Time, filters: r.Filtros}

	seenDim := map[Dimension]bool{}
	for _, name := range r.Dimensoes {
		d := Dimension(name)
		if !KnownDimension(name) || seenDim[d] {
			continue
		}
		seenDim[d] = true
		p.dims = append(p.dims, d)
	}

	seenMetric := map[Metric]bool{}
	for _, mr := range r.Metricas {
		if !KnownMetric(mr.Nome) {
			continue
		}
		m := Metric(mr.Nome)
		if err := checkAggregation(m, mr.Agregacao); err != nil {
			return plan{}, err
		}
		if seenMetric[m] {
			continue
		}
		seenMetric[m] = true
		p.metrics = append(p.metrics, m)
		if m.Fact() == FactStock {
			p.stock = append(p.stock, m)
		} else {
			p.sales = append(p.sales, m)
		}
	}

	if len(p.metrics) == 0 {
		return plan{}, domain.ErrValidation("at least one valid metric is required")
	}
	if len(p.dims) == 0 {
		return plan{}, domain.ErrValidation("at least one valid dimension is required")
	}
	return p, nil
}

// checkAggregation accepts the aggregations the engine actually computes: SUM for
// every metric and LAST for snapshot metrics, where the single snapshot date already
// picks the last value.
func checkAggregation(m Metric, agg string) error {
	switch strings.ToUpper(strings.TrimSpace(agg)) {
	case "", "SUM":
		return nil
	case "LAST":
		if m.Fact() == FactStock {
			return nil
		}
	}
	return domain.ErrValidation("unsupported aggregation %q for metric %s", agg, m)
}
