// Package products serves product lookups with their daily sales and stock history.
package products

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"datamart/internal/domain"
	"datamart/internal/query"
	"datamart/internal/warehouse"
	"datamart/models"
	"datamart/pkg/logger"
)

// HistoryPoint is one day of a product across all stores.
type HistoryPoint struct {
	Data              query.Date  `json:"data"`
	QuantidadeVendida int64       `json:"quantidade_vendida"`
	VendaLiquida      query.Value `json:"venda_liquida"`
	EstoqueAtual      int64       `json:"estoque_atual"`
}

type Product struct {
	models.Produto
	History []HistoryPoint `json:"history"`
}

type Service struct {
	store warehouse.Store
}

func NewService(store warehouse.Store) *Service {
	return &Service{store: store}
}

// Get looks a product up by code. An unknown code is a NotFoundError.
func (s *Service) Get(ctx context.Context, code string) (*Product, error) {
	log := logger.WithContext(ctx).WithField("module", "products").WithField("codigo_produto", code)

	p, err := s.product(ctx, code)
	if err != nil {
		log.WithError(err).Error("product lookup failed")
		return nil, domain.ErrStore("product lookup", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("Produto não encontrado")
	}

	history, err := s.history(ctx, p.ID)
	if err != nil {
		log.WithError(err).Error("product history failed")
		return nil, domain.ErrStore("product history", err)
	}
	return &Product{Produto: *p, History: history}, nil
}

func (s *Service) product(ctx context.Context, code string) (*models.Produto, error) {
	recs, err := s.store.Query(ctx, `SELECT id, codigo_produto, nome_produto, nome_marca, nome_departamento,
		nome_classificacao, nome_grupo, nome_modelo, nome_fornecedor
		FROM `+models.TableProduto+` WHERE codigo_produto = ?`, code)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	r := recs[0]
	id, err := warehouse.AsInt64(r["id"])
	if err != nil {
		return nil, err
	}
	return &models.Produto{
		ID:                id,
		CodigoProduto:     text(r["codigo_produto"]),
		NomeProduto:       text(r["nome_produto"]),
		NomeMarca:         text(r["nome_marca"]),
		NomeDepartamento:  text(r["nome_departamento"]),
		NomeClassificacao: text(r["nome_classificacao"]),
		NomeGrupo:         text(r["nome_grupo"]),
		NomeModelo:        text(r["nome_modelo"]),
		NomeFornecedor:    text(r["nome_fornecedor"]),
	}, nil
}

// history merges daily sales and daily stock of the product, ordered by date.
func (s *Service) history(ctx context.Context, id int64) ([]HistoryPoint, error) {
	d := s.store.Dialect()
	byDay := map[time.Time]*HistoryPoint{}
	point := func(v any) (*HistoryPoint, error) {
		day, err := warehouse.ParseDate(v)
		if err != nil {
			return nil, err
		}
		p, ok := byDay[day]
		if !ok {
			p = &HistoryPoint{Data: query.NewDate(day), VendaLiquida: query.DecimalValue(decimal.Zero)}
			byDay[day] = p
		}
		return p, nil
	}

	sales, err := s.store.Query(ctx, fmt.Sprintf(`SELECT f.data AS data, SUM(f.quantidade_vendida) AS quantidade_vendida,
		SUM(f.venda_liquida) AS venda_liquida FROM %s WHERE f.produto_id = ? GROUP BY f.data`,
		d.From(models.TableVendas, "f")), id)
	if err != nil {
		return nil, fmt.Errorf("sales history: %w", err)
	}
	for _, r := range sales {
		p, err := point(r["data"])
		if err != nil {
			return nil, err
		}
		if p.QuantidadeVendida, err = warehouse.AsCount(r["quantidade_vendida"]); err != nil {
			return nil, err
		}
		venda, err := warehouse.AsDecimal(r["venda_liquida"])
		if err != nil {
			return nil, err
		}
		p.VendaLiquida = query.DecimalValue(venda)
	}

	stock, err := s.store.Query(ctx, fmt.Sprintf(`SELECT f.data AS data, SUM(f.estoque_atual) AS estoque_atual
		FROM %s WHERE f.produto_id = ? GROUP BY f.data`, d.From(models.TableEstoque, "f")), id)
	if err != nil {
		return nil, fmt.Errorf("stock history: %w", err)
	}
	for _, r := range stock {
		p, err := point(r["data"])
		if err != nil {
			return nil, err
		}
		if p.EstoqueAtual, err = warehouse.AsCount(r["estoque_atual"]); err != nil {
			return nil, err
		}
	}

	out := make([]HistoryPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Data.Before(out[j].Data.Time) })
	return out, nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case *string:
		if x == nil {
			return ""
		}
		return *x
	default:
		return fmt.Sprint(x)
	}
}
