package query

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_MarshalJSON(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{NullValue(), "null"},
		{StringValue(`Loja "1"`), `"Loja \"1\""`},
		{IntValue(-3), "-3"},
		{FloatValue(1.5), "1.5"},
		{FloatValue(math.NaN()), "null"},
		{DecimalValue(decimal.RequireFromString("1234567890.12")), "1234567890.12"},
		{DateValue(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)), `"2024-01-31"`},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.v)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(b))
	}
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, StringValue("a").Equal(StringValue("a")))
	assert.True(t, NullValue().Equal(NullValue()))
	assert.False(t, IntValue(1).Equal(StringValue("1")))
	assert.False(t, NullValue().Equal(StringValue("")))
	assert.False(t, IntValue(1).Equal(FloatValue(1)))
}

func TestMetricValue(t *testing.T) {
	v, err := metricValue("1000.10")
	require.NoError(t, err)
	assert.Equal(t, KindDecimal, v.Kind())

	v, err = metricValue([]byte("7"))
	require.NoError(t, err)
	assert.Equal(t, KindDecimal, v.Kind())

	n := int64(4)
	v, err = metricValue(&n)
	require.NoError(t, err)
	assert.Equal(t, IntValue(4), v)

	var nilPtr *float64
	v, err = metricValue(nilPtr)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = metricValue(uint64(9))
	require.NoError(t, err)
	assert.Equal(t, IntValue(9), v)

	_, err = metricValue("n/a")
	assert.Error(t, err)

	_, err = metricValue(struct{}{})
	assert.Error(t, err)
}

func TestDimensionValue(t *testing.T) {
	s := "Centro"
	assert.Equal(t, StringValue("Centro"), dimensionValue(&s))
	assert.Equal(t, StringValue("x"), dimensionValue([]byte("x")))
	assert.True(t, dimensionValue(nil).IsNull())
	assert.Equal(t, KindDate, dimensionValue(time.Now()).Kind())
	assert.Equal(t, IntValue(12), dimensionValue(int32(12)))
}

func TestRow_MarshalJSONOrder(t *testing.T) {
	r := newRow([]Dimension{NomeProduto, NomeLoja}, []Metric{EstoqueAtual, VendaLiquida})
	r.setMetric(VendaLiquida, FloatValue(2.5))
	r.setMetric(EstoqueAtual, IntValue(3))
	r.setDimension(NomeLoja, StringValue("Centro"))
	r.setDimension(NomeProduto, NullValue())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"nome_produto":null,"nome_loja":"Centro","estoque_atual":3,"venda_liquida":2.5}`, string(b))
}
