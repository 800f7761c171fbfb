package loader

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', detectDelimiter([]byte("data;codigo;loja")))
	assert.Equal(t, ',', detectDelimiter([]byte("data,codigo,loja")))
	assert.Equal(t, '\t', detectDelimiter([]byte("data\tcodigo\tloja")))
	assert.Equal(t, ',', detectDelimiter([]byte("nome_loja")))
}

func TestCSVReaderMapsHeader(t *testing.T) {
	in := "\ufeffData; Codigo ;Nome Loja;ignored\n2024-01-05;1001;Centro;x\n"
	r, err := newCSVReader(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"data", "codigo_produto", "nome_loja", ""}, r.cols)
	require.NoError(t, r.require("data", "nome_loja"))

	rec, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"data": "2024-01-05", "codigo_produto": "1001", "nome_loja": "Centro"}, rec)

	_, err = r.next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParseDecimal(t *testing.T) {
	cases := map[string]string{
		"1.234,56": "1234.56",
		"10,5":     "10.5",
		"400":      "400",
		"99.90":    "99.9",
		"":         "0",
		" -3,00 ":  "-3",
	}
	for in, want := range cases {
		got, err := parseDecimal(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}

	_, err := parseDecimal("abc")
	assert.Error(t, err)
}

func TestParseCount(t *testing.T) {
	n, err := parseCount("3,0")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = parseCount("2,5")
	assert.ErrorContains(t, err, "invalid quantity")
}

func TestParseDay(t *testing.T) {
	for _, in := range []string{"2024-01-31", "31/01/2024", "2024-01-31 18:30:00", "2024-01-31T18:30:00"} {
		d, err := parseDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, "2024-01-31", d.Format("2006-01-02"), in)
	}
	_, err := parseDay("01-31-2024")
	assert.Error(t, err)
}

func TestParseURI(t *testing.T) {
	scheme, bucket, key, err := ParseURI("s3://extracts/2024/vendas.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "extracts", "2024/vendas.csv"}, []string{scheme, bucket, key})

	scheme, bucket, key, err = ParseURI("data/lojas.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"file", "", "data/lojas.csv"}, []string{scheme, bucket, key})

	_, _, _, err = ParseURI("gs://bucket-only")
	assert.Error(t, err)
	_, _, _, err = ParseURI("")
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Vendas ")
	require.NoError(t, err)
	assert.Equal(t, KindVendas, k)
	assert.Equal(t, "fato_vendas", k.Table())
	assert.Equal(t, "dim_produto", KindProdutos.Table())

	_, err = ParseKind("clientes")
	assert.Error(t, err)
}
