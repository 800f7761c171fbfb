// Package testutil opens throwaway SQLite data marts for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"datamart/internal/sqlstore"
	"datamart/models"
)

// OpenMart returns a migrated in-memory SQLite store private to the test. The pool is
// pinned to one connection so every query sees the same in-memory database.
func OpenMart(t *testing.T) *sqlstore.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	client := sqlstore.Wrap(db)
	require.NoError(t, client.Migrate(context.Background()))
	return client
}

// Day is a UTC calendar date.
func Day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Dec parses a decimal literal.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Seed inserts the given rows in order.
func Seed(t *testing.T, c *sqlstore.Client, rows ...any) {
	t.Helper()
	for _, r := range rows {
		require.NoError(t, c.DB().Create(r).Error)
	}
}

// Fixture is a small mart: two stores, three products, sales in January 2024 and
// stock snapshots on two different days.
func Fixture(t *testing.T, c *sqlstore.Client) {
	t.Helper()
	Seed(t, c,
		&models.Loja{ID: 1, NomeLoja: "Centro"},
		&models.Loja{ID: 2, NomeLoja: "Shopping"},
		&models.Produto{ID: 1, CodigoProduto: "1001", NomeProduto: "Camisa", NomeMarca: "Acme", NomeDepartamento: "Vestuario", NomeFornecedor: "Fornecedor A"},
		&models.Produto{ID: 2, CodigoProduto: "1002", NomeProduto: "Calca", NomeMarca: "Acme", NomeDepartamento: "Vestuario", NomeFornecedor: "Fornecedor B"},
		&models.Produto{ID: 3, CodigoProduto: "2001", NomeProduto: "Bone", NomeMarca: "Zeta", NomeDepartamento: "Acessorios", NomeFornecedor: "Fornecedor A"},

		&models.Venda{Data: Day("2024-01-05"), ProdutoID: 1, LojaID: 1, VendaLiquida: Dec("600.00"), QuantidadeVendida: 6},
		&models.Venda{Data: Day("2024-01-20"), ProdutoID: 2, LojaID: 1, VendaLiquida: Dec("400.00"), QuantidadeVendida: 2},
		&models.Venda{Data: Day("2024-01-31"), ProdutoID: 1, LojaID: 2, VendaLiquida: Dec("150.00"), QuantidadeVendida: 1},
		&models.Venda{Data: Day("2024-02-01"), ProdutoID: 1, LojaID: 1, VendaLiquida: Dec("99.00"), QuantidadeVendida: 1},
		&models.Venda{Data: Day("2023-12-31"), ProdutoID: 2, LojaID: 2, VendaLiquida: Dec("75.00"), QuantidadeVendida: 1},

		&models.Estoque{Data: Day("2024-01-30"), ProdutoID: 1, LojaID: 1, EstoqueAtual: 10, EstoquePDV: Dec("1000.00")},
		&models.Estoque{Data: Day("2024-01-30"), ProdutoID: 3, LojaID: 2, EstoqueAtual: 4, EstoquePDV: Dec("120.00")},
		&models.Estoque{Data: Day("2024-01-31"), ProdutoID: 1, LojaID: 1, EstoqueAtual: 8, EstoquePDV: Dec("800.00")},
		&models.Estoque{Data: Day("2024-01-31"), ProdutoID: 3, LojaID: 2, EstoqueAtual: 3, EstoquePDV: Dec("90.00")},
		&models.Estoque{Data: Day("2024-02-02"), ProdutoID: 1, LojaID: 1, EstoqueAtual: 7, EstoquePDV: Dec("700.00")},
	)
}
