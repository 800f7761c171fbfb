// Package kpi computes the headline figures of the home dashboard.
package kpi

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"datamart/internal/domain"
	"datamart/internal/warehouse"
	"datamart/models"
	"datamart/pkg/logger"
)

// Gerais is the body of GET /api/kpis/gerais.
type Gerais struct {
	VendasMesAtual float64 `json:"vendas_mes_atual"`
	MetaExemplo    float64 `json:"meta_exemplo"`
	TotalLojas     int64   `json:"total_lojas"`
}

type Options struct {
	SalesTarget float64
	Location    *time.Location
	Now         func() time.Time
}

type Service struct {
	store warehouse.Store
	opts  Options
}

func NewService(store warehouse.Store, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, opts: opts}
}

// General returns month-to-date net sales, the sales target and the store count.
func (s *Service) General(ctx context.Context) (*Gerais, error) {
	now := s.opts.Now().In(s.opts.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := &Gerais{MetaExemplo: s.opts.SalesTarget}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.monthSales(gctx, first, today)
		out.VendasMesAtual = total
		return err
	})
	g.Go(func() error {
		n, err := s.storeCount(gctx)
		out.TotalLojas = n
		return err
	})
	if err := g.Wait(); err != nil {
		logger.WithContext(ctx).WithField("module", "kpi").WithError(err).Error("kpi query failed")
		return nil, domain.ErrStore("kpi", err)
	}
	return out, nil
}

func (s *Service) monthSales(ctx context.Context, first, today time.Time) (float64, error) {
	d := s.store.Dialect()
	sql := fmt.Sprintf("SELECT SUM(f.venda_liquida) AS total FROM %s WHERE f.data BETWEEN ? AND ?",
		d.From(models.TableVendas, "f"))
	recs, err := s.store.Query(ctx, sql, d.DateArg(first), d.DateArg(today))
	if err != nil {
		return 0, fmt.Errorf("month sales: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}
	total, err := warehouse.AsDecimal(recs[0]["total"])
	if err != nil {
		return 0, fmt.Errorf("month sales: %w", err)
	}
	f, _ := total.Float64()
	return f, nil
}

func (s *Service) storeCount(ctx context.Context) (int64, error) {
	recs, err := s.store.Query(ctx, "SELECT COUNT(*) AS total FROM "+models.TableLoja)
	if err != nil {
		return 0, fmt.Errorf("store count: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}
	return warehouse.AsCount(recs[0]["total"])
}
