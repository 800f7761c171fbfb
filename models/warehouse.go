package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table names of the data mart.
const (
	TableProduto = "dim_produto"
	TableLoja    = "dim_loja"
	TableVendas  = "fato_vendas"
	TableEstoque = "fato_estoque"
)

// Produto is the product dimension
type Produto struct {
	ID                int64  `gorm:"primaryKey;column:id" json:"id"`
	CodigoProduto     string `gorm:"column:codigo_produto;uniqueIndex;not null" json:"codigo_produto"`
	NomeProduto       string `gorm:"column:nome_produto;not null" json:"nome_produto"`
	NomeMarca         string `gorm:"column:nome_marca" json:"nome_marca"`
	NomeDepartamento  string `gorm:"column:nome_departamento" json:"nome_departamento"`
	NomeClassificacao string `gorm:"column:nome_classificacao" json:"nome_classificacao"`
	NomeGrupo         string `gorm:"column:nome_grupo" json:"nome_grupo"`
	NomeModelo        string `gorm:"column:nome_modelo" json:"nome_modelo"`
	NomeFornecedor    string `gorm:"column:nome_fornecedor" json:"nome_fornecedor"`
}

func (Produto) TableName() string {
	return TableProduto
}

// Loja is the store dimension
type Loja struct {
	ID       int64  `gorm:"primaryKey;column:id" json:"id"`
	NomeLoja string `gorm:"column:nome_loja;uniqueIndex;not null" json:"nome_loja"`
}

func (Loja) TableName() string {
	return TableLoja
}

// Venda is one row of daily net sales per product and store
type Venda struct {
	Data              time.Time       `gorm:"primaryKey;column:data;type:date"`
	ProdutoID         int64           `gorm:"primaryKey;column:produto_id;autoIncrement:false"`
	LojaID            int64           `gorm:"primaryKey;column:loja_id;autoIncrement:false"`
	VendaLiquida      decimal.Decimal `gorm:"column:venda_liquida;type:numeric(14,2);not null"`
	QuantidadeVendida int64           `gorm:"column:quantidade_vendida;not null"`
}

func (Venda) TableName() string {
	return TableVendas
}

// Estoque is the closing stock of a product in a store on a given day
type Estoque struct {
	Data         time.Time       `gorm:"primaryKey;column:data;type:date"`
	ProdutoID    int64           `gorm:"primaryKey;column:produto_id;autoIncrement:false"`
	LojaID       int64           `gorm:"primaryKey;column:loja_id;autoIncrement:false"`
	EstoqueAtual int64           `gorm:"column:estoque_atual;not null"`
	EstoquePDV   decimal.Decimal `gorm:"column:estoque_pdv;type:numeric(14,2);not null"`
}

func (Estoque) TableName() string {
	return TableEstoque
}

// FactKey identifies a fact row at its grain.
type FactKey struct {
	Data      time.Time
	ProdutoID int64
	LojaID    int64
}
