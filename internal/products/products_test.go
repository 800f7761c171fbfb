package products_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamart/internal/domain"
	"datamart/internal/products"
	"datamart/internal/testutil"
	"datamart/models"
)

func TestGet(t *testing.T) {
	store := testutil.OpenMart(t)
	testutil.Fixture(t, store)

	p, err := products.NewService(store).Get(context.Background(), "1001")
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Camisa", p.NomeProduto)
	assert.Equal(t, "Fornecedor A", p.NomeFornecedor)

	require.Len(t, p.History, 5)
	days := make([]string, len(p.History))
	for i, h := range p.History {
		days[i] = h.Data.Format("2006-01-02")
	}
	assert.Equal(t, []string{"2024-01-05", "2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}, days)

	// Both stores contribute to the 31st.
	jan31 := p.History[2]
	assert.Equal(t, int64(1), jan31.QuantidadeVendida)
	venda, ok := jan31.VendaLiquida.Decimal()
	require.True(t, ok)
	assert.Equal(t, "150", venda.String())
	assert.Equal(t, int64(8), jan31.EstoqueAtual)

	assert.Zero(t, p.History[1].QuantidadeVendida)
	assert.Equal(t, int64(10), p.History[1].EstoqueAtual)
	assert.Zero(t, p.History[3].EstoqueAtual)
}

func TestGet_JSON(t *testing.T) {
	store := testutil.OpenMart(t)
	testutil.Fixture(t, store)

	p, err := products.NewService(store).Get(context.Background(), "2001")
	require.NoError(t, err)

	body, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "2001", decoded["codigo_produto"])
	assert.Equal(t, "Bone", decoded["nome_produto"])

	history := decoded["history"].([]any)
	require.Len(t, history, 2)
	first := history[0].(map[string]any)
	assert.Equal(t, "2024-01-30", first["data"])
	assert.Equal(t, float64(0), first["venda_liquida"])
	assert.Equal(t, float64(4), first["estoque_atual"])
}

func TestGet_NotFound(t *testing.T) {
	store := testutil.OpenMart(t)
	testutil.Fixture(t, store)

	_, err := products.NewService(store).Get(context.Background(), "9999")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, "Produto não encontrado", err.Error())
}

func TestGet_NoHistory(t *testing.T) {
	store := testutil.OpenMart(t)
	testutil.Seed(t, store, &models.Produto{ID: 7, CodigoProduto: "7007", NomeProduto: "Meia"})

	p, err := products.NewService(store).Get(context.Background(), "7007")
	require.NoError(t, err)
	assert.NotNil(t, p.History)
	assert.Empty(t, p.History)
}
