package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"datamart/internal/warehouse"
	"datamart/models"
)

var _ warehouse.Warehouse = (*Client)(nil)

const batchSize = 1000

func (c *Client) InsertProducts(ctx context.Context, rows []models.Produto) error {
	if len(rows) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "codigo_produto"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"nome_produto", "nome_marca", "nome_departamento", "nome_classificacao",
				"nome_grupo", "nome_modelo", "nome_fornecedor",
			}),
		}).
		CreateInBatches(&rows, batchSize).Error
}

func (c *Client) InsertStores(ctx context.Context, rows []models.Loja) error {
	if len(rows) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "nome_loja"}}, DoNothing: true}).
		CreateInBatches(&rows, batchSize).Error
}

func (c *Client) UpsertSales(ctx context.Context, rows []models.Venda) error {
	if len(rows) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   factColumns,
			DoUpdates: clause.AssignmentColumns([]string{"venda_liquida", "quantidade_vendida"}),
		}).
		CreateInBatches(&rows, batchSize).Error
}

func (c *Client) UpsertStock(ctx context.Context, rows []models.Estoque) error {
	if len(rows) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   factColumns,
			DoUpdates: clause.AssignmentColumns([]string{"estoque_atual", "estoque_pdv"}),
		}).
		CreateInBatches(&rows, batchSize).Error
}

func (c *Client) DeleteSales(ctx context.Context, key models.FactKey) error {
	return c.db.WithContext(ctx).
		Where("data = ? AND produto_id = ? AND loja_id = ?", c.dialect.DateArg(key.Data), key.ProdutoID, key.LojaID).
		Delete(&models.Venda{}).Error
}

func (c *Client) DeleteStock(ctx context.Context, key models.FactKey) error {
	return c.db.WithContext(ctx).
		Where("data = ? AND produto_id = ? AND loja_id = ?", c.dialect.DateArg(key.Data), key.ProdutoID, key.LojaID).
		Delete(&models.Estoque{}).Error
}

// Truncate empties a data mart table, resetting identities where the driver supports it.
func (c *Client) Truncate(ctx context.Context, table string) error {
	if err := warehouse.CheckTable(table); err != nil {
		return err
	}
	var stmt string
	switch c.dialect {
	case warehouse.Postgres:
		stmt = fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)
	case warehouse.MySQL:
		stmt = fmt.Sprintf("TRUNCATE TABLE %s", table)
	default:
		stmt = fmt.Sprintf("DELETE FROM %s", table)
	}
	return c.db.WithContext(ctx).Exec(stmt).Error
}

var factColumns = []clause.Column{{Name: "data"}, {Name: "produto_id"}, {Name: "loja_id"}}
