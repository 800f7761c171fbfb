package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamart/internal/domain"
	"datamart/internal/testutil"
	"datamart/internal/warehouse"
)

func metricsOf(names ...string) []MetricRequest {
	out := make([]MetricRequest, len(names))
	for i, n := range names {
		out[i] = MetricRequest{Nome: n, Agregacao: "SUM"}
	}
	return out
}

func january(dims []string, metrics ...string) Request {
	return Request{
		DataInicial: MustDate("2024-01-01"),
		DataFinal:   MustDate("2024-01-31"),
		Dimensoes:   dims,
		Metricas:    metricsOf(metrics...),
	}
}

func fixedClock(day string) func() time.Time {
	return func() time.Time { return testutil.Day(day).Add(15 * time.Hour) }
}

func martEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	store := testutil.OpenMart(t)
	testutil.Fixture(t, store)
	return NewEngine(store, opts)
}

func floatOf(t *testing.T, v Value) float64 {
	t.Helper()
	f, ok := v.Float()
	require.True(t, ok, "not numeric: %s (%s)", v, v.Kind())
	return f
}

func strOf(t *testing.T, v Value) string {
	t.Helper()
	s, ok := v.Str()
	require.True(t, ok, "not a string: %s (%s)", v, v.Kind())
	return s
}

func TestRun_SalesByStore(t *testing.T) {
	e := martEngine(t, Options{})

	rows, err := e.Run(context.Background(), january([]string{"nome_loja"}, "venda_liquida", "quantidade_vendida"))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Centro", strOf(t, rows[0].Dimension(NomeLoja)))
	assert.Equal(t, 1000.0, floatOf(t, rows[0].Metric(VendaLiquida)))
	assert.Equal(t, 8.0, floatOf(t, rows[0].Metric(QuantidadeVendida)))

	assert.Equal(t, "Shopping", strOf(t, rows[1].Dimension(NomeLoja)))
	assert.Equal(t, 150.0, floatOf(t, rows[1].Metric(VendaLiquida)))
	assert.Equal(t, 1.0, floatOf(t, rows[1].Metric(QuantidadeVendida)))
}

func TestRun_SingleDayRange(t *testing.T) {
	e := martEngine(t, Options{})

	req := january([]string{"nome_loja"}, "venda_liquida")
	req.DataInicial = MustDate("2024-01-05")
	req.DataFinal = MustDate("2024-01-05")

	rows, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Centro", strOf(t, rows[0].Dimension(NomeLoja)))
	assert.Equal(t, 600.0, floatOf(t, rows[0].Metric(VendaLiquida)))
}

func TestRun_MonthBuckets(t *testing.T) {
	e := martEngine(t, Options{})

	req := january([]string{"mes"}, "venda_liquida")
	req.DataInicial = MustDate("2023-12-01")
	req.DataFinal = MustDate("2024-02-29")

	rows, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	want := map[string]float64{"2023-12": 75, "2024-01": 1150, "2024-02": 99}
	for _, r := range rows {
		mes := strOf(t, r.Dimension(Mes))
		assert.Equal(t, want[mes], floatOf(t, r.Metric(VendaLiquida)), mes)
	}
}

func TestRun_Filters(t *testing.T) {
	e := martEngine(t, Options{})

	req := january([]string{"nome_loja"}, "venda_liquida")
	req.Filtros = map[string]any{"nome_fornecedor": "Fornecedor A", "typo": "ignored"}
	rows, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 600.0, floatOf(t, rows[0].Metric(VendaLiquida)))
	assert.Equal(t, 150.0, floatOf(t, rows[1].Metric(VendaLiquida)))

	req.Filtros = map[string]any{"codigo_produto": float64(1002)}
	rows, err = e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Centro", strOf(t, rows[0].Dimension(NomeLoja)))
	assert.Equal(t, 400.0, floatOf(t, rows[0].Metric(VendaLiquida)))
}

func TestRun_StockUsesEndOfRange(t *testing.T) {
	e := martEngine(t, Options{AlwaysCurrent: false})

	rows, err := e.Run(context.Background(), january([]string{"nome_produto"}, "estoque_atual", "estoque_pdv"))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Bone", strOf(t, rows[0].Dimension(NomeProduto)))
	assert.Equal(t, 3.0, floatOf(t, rows[0].Metric(EstoqueAtual)))
	assert.Equal(t, 90.0, floatOf(t, rows[0].Metric(EstoquePDV)))
	assert.Equal(t, "Camisa", strOf(t, rows[1].Dimension(NomeProduto)))
	assert.Equal(t, 8.0, floatOf(t, rows[1].Metric(EstoqueAtual)))
}

func TestRun_StockSnapshotIsGlobal(t *testing.T) {
	// The latest snapshot on or before today only has Camisa. Bone's older snapshot
	// must not leak in as a per-product latest value.
	e := martEngine(t, Options{AlwaysCurrent: true, Now: fixedClock("2024-02-10")})

	rows, err := e.Run(context.Background(), january([]string{"nome_produto"}, "estoque_atual"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Camisa", strOf(t, rows[0].Dimension(NomeProduto)))
	assert.Equal(t, 7.0, floatOf(t, rows[0].Metric(EstoqueAtual)))
}

func TestRun_StockAlwaysCurrentIgnoresRange(t *testing.T) {
	e := martEngine(t, Options{AlwaysCurrent: true, Now: fixedClock("2024-01-30")})

	req := january([]string{"nome_loja"}, "estoque_atual")
	req.DataInicial = MustDate("2023-01-01")
	req.DataFinal = MustDate("2023-01-31")

	rows, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 10.0, floatOf(t, rows[0].Metric(EstoqueAtual)))
	assert.Equal(t, 4.0, floatOf(t, rows[1].Metric(EstoqueAtual)))
}

func TestRun_NoSnapshotYieldsEmpty(t *testing.T) {
	e := martEngine(t, Options{AlwaysCurrent: false})

	req := january([]string{"nome_produto"}, "estoque_atual")
	req.DataInicial = MustDate("2023-06-01")
	req.DataFinal = MustDate("2023-06-30")

	rows, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRun_UnknownDimensionDropped(t *testing.T) {
	e := martEngine(t, Options{})

	rows, err := e.Run(context.Background(), january([]string{"nome_loja", "nome_lojaa"}, "venda_liquida", "margem"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, []string{"nome_loja", "venda_liquida"}, r.Columns())
		assert.False(t, r.Has("nome_lojaa"))
	}
}

func TestRun_SalesAndStockMerged(t *testing.T) {
	for name, parallel := range map[string]bool{"sequential": false, "parallel": true} {
		t.Run(name, func(t *testing.T) {
			e := martEngine(t, Options{AlwaysCurrent: false, Parallel: parallel})

			rows, err := e.Run(context.Background(), january([]string{"nome_produto"}, "venda_liquida", "estoque_atual"))
			require.NoError(t, err)
			require.Len(t, rows, 3)

			// Sales keys first in group order, then the stock-only key.
			assert.Equal(t, "Calca", strOf(t, rows[0].Dimension(NomeProduto)))
			assert.Equal(t, 400.0, floatOf(t, rows[0].Metric(VendaLiquida)))
			assert.Equal(t, 0.0, floatOf(t, rows[0].Metric(EstoqueAtual)))

			assert.Equal(t, "Camisa", strOf(t, rows[1].Dimension(NomeProduto)))
			assert.Equal(t, 750.0, floatOf(t, rows[1].Metric(VendaLiquida)))
			assert.Equal(t, 8.0, floatOf(t, rows[1].Metric(EstoqueAtual)))

			assert.Equal(t, "Bone", strOf(t, rows[2].Dimension(NomeProduto)))
			assert.Equal(t, 0.0, floatOf(t, rows[2].Metric(VendaLiquida)))
			assert.Equal(t, 3.0, floatOf(t, rows[2].Metric(EstoqueAtual)))
		})
	}
}

func TestRun_SalesWithoutSnapshotGetZeroStock(t *testing.T) {
	e := martEngine(t, Options{AlwaysCurrent: false})

	req := january([]string{"nome_produto", "nome_loja"}, "venda_liquida", "estoque_atual")
	req.Filtros = map[string]any{"codigo_produto": "1002"}

	rows, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 400.0, floatOf(t, rows[0].Metric(VendaLiquida)))
	assert.True(t, rows[0].Has("estoque_atual"))
	assert.Equal(t, 0.0, floatOf(t, rows[0].Metric(EstoqueAtual)))
}

func TestRun_Idempotent(t *testing.T) {
	store := testutil.OpenMart(t)
	testutil.Fixture(t, store)
	req := january([]string{"nome_loja", "nome_produto"}, "venda_liquida", "estoque_atual", "quantidade_vendida")

	sequential, err := NewEngine(store, Options{Parallel: false}).Run(context.Background(), req)
	require.NoError(t, err)
	first, err := json.Marshal(sequential)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		rows, err := NewEngine(store, Options{Parallel: true}).Run(context.Background(), req)
		require.NoError(t, err)
		again, err := json.Marshal(rows)
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(again))
	}
}

func TestRun_RowJSON(t *testing.T) {
	e := martEngine(t, Options{})

	rows, err := e.Run(context.Background(), january([]string{"nome_loja"}, "venda_liquida"))
	require.NoError(t, err)

	body, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.Equal(t, `[{"nome_loja":"Centro","venda_liquida":1000},{"nome_loja":"Shopping","venda_liquida":150}]`, string(body))
}

func TestRun_Validation(t *testing.T) {
	cases := map[string]Request{
		"no metrics":          january([]string{"nome_loja"}),
		"only unknown metric": january([]string{"nome_loja"}, "margem"),
		"no dimensions":       january(nil, "venda_liquida"),
		"only unknown dim":    january([]string{"loja"}, "venda_liquida"),
		"inverted range": func() Request {
			r := january([]string{"nome_loja"}, "venda_liquida")
			r.DataInicial, r.DataFinal = r.DataFinal, r.DataInicial
			return r
		}(),
		"missing dates": {Dimensoes: []string{"nome_loja"}, Metricas: metricsOf("venda_liquida")},
		"unsupported aggregation": {
			DataInicial: MustDate("2024-01-01"),
			DataFinal:   MustDate("2024-01-31"),
			Dimensoes:   []string{"nome_loja"},
			Metricas:    []MetricRequest{{Nome: "venda_liquida", Agregacao: "AVG"}},
		},
		"last on a flow metric": {
			DataInicial: MustDate("2024-01-01"),
			DataFinal:   MustDate("2024-01-31"),
			Dimensoes:   []string{"nome_loja"},
			Metricas:    []MetricRequest{{Nome: "venda_liquida", Agregacao: "LAST"}},
		},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{dialect: warehouse.Postgres}
			_, err := NewEngine(store, Options{}).Run(context.Background(), req)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), err.Error())
			assert.Zero(t, store.callCount())
		})
	}
}

func TestRun_LastOnStockMetricAccepted(t *testing.T) {
	e := martEngine(t, Options{AlwaysCurrent: false})

	req := january([]string{"nome_loja"}, "estoque_atual")
	req.Metricas[0].Agregacao = "last"
	_, err := e.Run(context.Background(), req)
	require.NoError(t, err)
}

func TestRun_StoreErrorIsWrapped(t *testing.T) {
	store := &fakeStore{
		dialect:   warehouse.Postgres,
		responses: []fakeResponse{{contains: "fato_vendas", err: errors.New("connection refused")}},
	}

	_, err := NewEngine(store, Options{}).Run(context.Background(), january([]string{"nome_loja"}, "venda_liquida"))
	require.Error(t, err)
	assert.True(t, domain.IsStore(err))
	assert.False(t, domain.IsValidation(err))
}

func TestRun_DecimalCoercionOnlyWhenMerging(t *testing.T) {
	store := &fakeStore{
		dialect: warehouse.Postgres,
		responses: []fakeResponse{
			{contains: "LIMIT 1", recs: []warehouse.Record{{"data": "2024-01-31"}}},
			{contains: "fato_estoque", recs: []warehouse.Record{
				{"nome_loja": "Centro", "estoque_pdv": decimal.RequireFromString("800.25")},
			}},
			{contains: "fato_vendas", recs: []warehouse.Record{
				{"nome_loja": "Centro", "venda_liquida": "1000.10"},
			}},
		},
	}
	e := NewEngine(store, Options{AlwaysCurrent: false})

	salesOnly, err := e.Run(context.Background(), january([]string{"nome_loja"}, "venda_liquida"))
	require.NoError(t, err)
	require.Len(t, salesOnly, 1)
	d, ok := salesOnly[0].Metric(VendaLiquida).Decimal()
	require.True(t, ok)
	assert.Equal(t, "1000.1", d.String())

	stockOnly, err := e.Run(context.Background(), january([]string{"nome_loja"}, "estoque_pdv"))
	require.NoError(t, err)
	require.Len(t, stockOnly, 1)
	assert.Equal(t, KindDecimal, stockOnly[0].Metric(EstoquePDV).Kind())

	merged, err := e.Run(context.Background(), january([]string{"nome_loja"}, "venda_liquida", "estoque_pdv"))
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, KindFloat, merged[0].Metric(VendaLiquida).Kind())
	assert.Equal(t, KindFloat, merged[0].Metric(EstoquePDV).Kind())
	assert.InDelta(t, 1000.10, floatOf(t, merged[0].Metric(VendaLiquida)), 1e-9)
	assert.InDelta(t, 800.25, floatOf(t, merged[0].Metric(EstoquePDV)), 1e-9)
}

func TestRun_StockQueriesUseOneSnapshotDate(t *testing.T) {
	store := &fakeStore{
		dialect: warehouse.Postgres,
		responses: []fakeResponse{
			{contains: "LIMIT 1", recs: []warehouse.Record{}},
		},
	}
	e := NewEngine(store, Options{AlwaysCurrent: true, Now: fixedClock("2024-03-01")})

	rows, err := e.Run(context.Background(), january([]string{"nome_loja"}, "estoque_atual"))
	require.NoError(t, err)
	assert.Empty(t, rows)
	// Only the snapshot lookup ran; no aggregate is issued without a date.
	assert.Equal(t, 1, store.callCount())
}

func TestToday_UsesLocation(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	e := NewEngine(&fakeStore{dialect: warehouse.Postgres}, Options{
		Location: sp,
		Now:      func() time.Time { return time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC) },
	})
	assert.Equal(t, testutil.Day("2024-01-31"), e.Today())
}
