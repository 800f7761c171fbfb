package clickhouse

import (
	"context"
	"fmt"

	"datamart/models"
)

// schema holds the DDL of the data mart, formatted with the database name.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS %s.` + models.TableProduto + ` (
		id Int64,
		codigo_produto String,
		nome_produto String,
		nome_marca String,
		nome_departamento String,
		nome_classificacao String,
		nome_grupo String,
		nome_modelo String,
		nome_fornecedor String
	) ENGINE = MergeTree ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS %s.` + models.TableLoja + ` (
		id Int64,
		nome_loja String
	) ENGINE = MergeTree ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS %s.` + models.TableVendas + ` (
		data Date,
		produto_id Int64,
		loja_id Int64,
		venda_liquida Decimal(14, 2),
		quantidade_vendida Int64,
		_version UInt64
	) ENGINE = ReplacingMergeTree(_version) ORDER BY (data, produto_id, loja_id)`,
	`CREATE TABLE IF NOT EXISTS %s.` + models.TableEstoque + ` (
		data Date,
		produto_id Int64,
		loja_id Int64,
		estoque_atual Int64,
		estoque_pdv Decimal(14, 2),
		_version UInt64
	) ENGINE = ReplacingMergeTree(_version) ORDER BY (data, produto_id, loja_id)`,
}

// EnsureSchema creates the data mart tables when missing.
func (c *Client) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schema {
		if err := c.conn.Exec(ctx, fmt.Sprintf(ddl, c.database)); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
