package models

import (
	"github.com/shopspring/decimal"
)

// Fact event types carried on the fact queues.
const (
	EventUpsert = "upsert"
	EventDelete = "delete"
)

// SalesFactEvent is the message payload from RabbitMQ for daily sales facts
type SalesFactEvent struct {
	Event             string          `json:"event"`          // upsert | delete
	Data              string          `json:"data"`           // YYYY-MM-DD
	CodigoProduto     string          `json:"codigo_produto"` // natural key of dim_produto
	NomeLoja          string          `json:"nome_loja"`      // natural key of dim_loja
	VendaLiquida      decimal.Decimal `json:"venda_liquida"`
	QuantidadeVendida int64           `json:"quantidade_vendida"`
}

// StockFactEvent is the message payload from RabbitMQ for closing-stock snapshots
type StockFactEvent struct {
	Event         string          `json:"event"`
	Data          string          `json:"data"`
	CodigoProduto string          `json:"codigo_produto"`
	NomeLoja      string          `json:"nome_loja"`
	EstoqueAtual  int64           `json:"estoque_atual"`
	EstoquePDV    decimal.Decimal `json:"estoque_pdv"`
}
