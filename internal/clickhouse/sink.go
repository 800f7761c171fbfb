package clickhouse

import (
	"context"
	"fmt"
	"time"

	"datamart/internal/warehouse"
	"datamart/models"
)

var _ warehouse.Warehouse = (*Client)(nil)

// InsertProducts adds products whose code is not stored yet, numbering them after the
// current maximum id. Attributes of known codes are left untouched since dimension
// tables are plain MergeTree.
func (c *Client) InsertProducts(ctx context.Context, rows []models.Produto) error {
	keys, err := warehouse.LoadKeys(ctx, c)
	if err != nil {
		return err
	}
	next, err := warehouse.MaxID(ctx, c, models.TableProduto)
	if err != nil {
		return err
	}

	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO %s.%s (
		id, codigo_produto, nome_produto, nome_marca, nome_departamento,
		nome_classificacao, nome_grupo, nome_modelo, nome_fornecedor
	)`, c.database, models.TableProduto))
	if err != nil {
		return fmt.Errorf("failed to prepare product batch: %w", err)
	}
	defer batch.Abort()

	for _, p := range rows {
		if _, ok := keys.Products[p.CodigoProduto]; ok {
			continue
		}
		next++
		keys.Products[p.CodigoProduto] = next
		if err := batch.Append(next, p.CodigoProduto, p.NomeProduto, p.NomeMarca, p.NomeDepartamento,
			p.NomeClassificacao, p.NomeGrupo, p.NomeModelo, p.NomeFornecedor); err != nil {
			return fmt.Errorf("failed to append product %s: %w", p.CodigoProduto, err)
		}
	}
	return batch.Send()
}

// InsertStores adds stores whose name is not stored yet.
func (c *Client) InsertStores(ctx context.Context, rows []models.Loja) error {
	keys, err := warehouse.LoadKeys(ctx, c)
	if err != nil {
		return err
	}
	next, err := warehouse.MaxID(ctx, c, models.TableLoja)
	if err != nil {
		return err
	}

	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.%s (id, nome_loja)", c.database, models.TableLoja))
	if err != nil {
		return fmt.Errorf("failed to prepare store batch: %w", err)
	}
	defer batch.Abort()

	for _, l := range rows {
		if _, ok := keys.Stores[l.NomeLoja]; ok {
			continue
		}
		next++
		keys.Stores[l.NomeLoja] = next
		if err := batch.Append(next, l.NomeLoja); err != nil {
			return fmt.Errorf("failed to append store %s: %w", l.NomeLoja, err)
		}
	}
	return batch.Send()
}

func (c *Client) UpsertSales(ctx context.Context, rows []models.Venda) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO %s.%s (
		data, produto_id, loja_id, venda_liquida, quantidade_vendida, _version
	)`, c.database, models.TableVendas))
	if err != nil {
		return fmt.Errorf("failed to prepare sales batch: %w", err)
	}
	defer batch.Abort()

	version := newVersion()
	for _, r := range rows {
		if err := batch.Append(r.Data, r.ProdutoID, r.LojaID, r.VendaLiquida, r.QuantidadeVendida, version); err != nil {
			return fmt.Errorf("failed to append sale: %w", err)
		}
	}
	return batch.Send()
}

func (c *Client) UpsertStock(ctx context.Context, rows []models.Estoque) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO %s.%s (
		data, produto_id, loja_id, estoque_atual, estoque_pdv, _version
	)`, c.database, models.TableEstoque))
	if err != nil {
		return fmt.Errorf("failed to prepare stock batch: %w", err)
	}
	defer batch.Abort()

	version := newVersion()
	for _, r := range rows {
		if err := batch.Append(r.Data, r.ProdutoID, r.LojaID, r.EstoqueAtual, r.EstoquePDV, version); err != nil {
			return fmt.Errorf("failed to append stock: %w", err)
		}
	}
	return batch.Send()
}

func (c *Client) DeleteSales(ctx context.Context, key models.FactKey) error {
	return c.deleteFact(ctx, models.TableVendas, key)
}

func (c *Client) DeleteStock(ctx context.Context, key models.FactKey) error {
	return c.deleteFact(ctx, models.TableEstoque, key)
}

func (c *Client) deleteFact(ctx context.Context, table string, key models.FactKey) error {
	query := fmt.Sprintf("ALTER TABLE %s.%s DELETE WHERE data = ? AND produto_id = ? AND loja_id = ?", c.database, table)
	return c.conn.Exec(ctx, query, warehouse.ClickHouse.DateArg(key.Data), key.ProdutoID, key.LojaID)
}

func (c *Client) Truncate(ctx context.Context, table string) error {
	if err := warehouse.CheckTable(table); err != nil {
		return err
	}
	return c.conn.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE IF EXISTS %s.%s", c.database, table))
}

// newVersion orders replacements of the same fact row.
func newVersion() uint64 {
	return uint64(time.Now().UnixNano()) / 1000
}
