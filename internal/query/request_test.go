package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamart/internal/domain"
	"datamart/internal/warehouse"
)

func TestRequest_DecodeWire(t *testing.T) {
	body := `{
		"data_inicial": "2024-01-01",
		"data_final": "2024-01-31T00:00:00Z",
		"dimensoes": ["nome_loja", "mes", "nome_loja", "bogus"],
		"metricas": [{"nome": "venda_liquida", "agregacao": "SUM"}, {"nome": "estoque_atual"}, {"nome": "venda_liquida"}],
		"filtros": null
	}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, MustDate("2024-01-01"), req.DataInicial)
	assert.Equal(t, MustDate("2024-01-31"), req.DataFinal)

	p, err := req.compile()
	require.NoError(t, err)
	assert.Equal(t, []Dimension{NomeLoja, Mes}, p.dims)
	assert.Equal(t, []Metric{VendaLiquida, EstoqueAtual}, p.metrics)
	assert.Equal(t, []Metric{VendaLiquida}, p.sales)
	assert.Equal(t, []Metric{EstoqueAtual}, p.stock)
	assert.Nil(t, p.filters)
}

func TestRequest_BadDate(t *testing.T) {
	for _, raw := range []string{
		`"01/02/2024"`,
		`20240101`,
		`"2024-01-01garbage"`,
		`"2024-01-01T"`,
		`"2024-02-30"`,
	} {
		var d Date
		assert.Error(t, json.Unmarshal([]byte(raw), &d), raw)
	}
}

func TestDate_AcceptsTimestamps(t *testing.T) {
	for _, raw := range []string{
		`"2024-01-31"`,
		`"2024-01-31T23:30:00-03:00"`,
		`"2024-01-31T10:00:00.123Z"`,
		`"2024-01-31T10:00:00"`,
		`"2024-01-31 10:00:00"`,
	} {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(raw), &d), raw)
		assert.Equal(t, MustDate("2024-01-31"), d, raw)
	}
}

func TestRequest_BlankMetricNameIsDropped(t *testing.T) {
	req := Request{
		DataInicial: MustDate("2024-01-01"),
		DataFinal:   MustDate("2024-01-31"),
		Dimensoes:   []string{"nome_loja"},
		Metricas:    []MetricRequest{{Nome: "venda_liquida"}, {Nome: ""}, {Nome: "typo_metric"}},
	}
	p, err := req.compile()
	require.NoError(t, err)
	assert.Equal(t, []Metric{VendaLiquida}, p.metrics)

	req.Metricas = []MetricRequest{{Nome: ""}}
	_, err = req.compile()
	assert.True(t, domain.IsValidation(err))
}

func TestRequest_TooManyNames(t *testing.T) {
	dims := make([]string, 65)
	for i := range dims {
		dims[i] = "nome_loja"
	}
	req := Request{
		DataInicial: MustDate("2024-01-01"),
		DataFinal:   MustDate("2024-01-31"),
		Dimensoes:   dims,
		Metricas:    []MetricRequest{{Nome: "venda_liquida"}},
	}
	_, err := req.compile()
	assert.True(t, domain.IsValidation(err))

	req.Dimensoes = dims[:64]
	_, err = req.compile()
	assert.NoError(t, err)
}

func TestDate_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(MustDate("2024-03-09"))
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-09"`, string(b))
}

func TestCatalog_Resolve(t *testing.T) {
	c := NewCatalog(warehouse.Postgres)

	col, ok := c.ResolveDimension(NomeFornecedor)
	require.True(t, ok)
	assert.Equal(t, "p.nome_fornecedor", col)

	col, ok = c.ResolveDimension(NomeLoja)
	require.True(t, ok)
	assert.Equal(t, "l.nome_loja", col)

	col, ok = c.ResolveDimension(Mes)
	require.True(t, ok)
	assert.Equal(t, "to_char(f.data, 'YYYY-MM')", col)

	_, ok = c.ResolveDimension("nome_cidade")
	assert.False(t, ok)

	fact, expr, ok := c.ResolveMetric(EstoquePDV)
	require.True(t, ok)
	assert.Equal(t, FactStock, fact)
	assert.Equal(t, "SUM(f.estoque_pdv)", expr)

	fact, _, ok = c.ResolveMetric(QuantidadeVendida)
	require.True(t, ok)
	assert.Equal(t, FactSales, fact)

	_, _, ok = c.ResolveMetric("margem")
	assert.False(t, ok)
}
