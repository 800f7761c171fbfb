package query

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"datamart/internal/domain"
	"datamart/internal/warehouse"
	"datamart/pkg/logger"
)

// Options tune how the engine resolves stock snapshots and schedules the two
// aggregate queries.
type Options struct {
	// AlwaysCurrent anchors stock at today instead of the end of the requested range.
	AlwaysCurrent bool
	// Parallel runs the sales and stock aggregates concurrently when both are needed.
	Parallel bool
	// Timeout bounds a whole run. Zero leaves it to the store.
	Timeout time.Duration
	// Location decides which calendar day "today" is.
	Location *time.Location
	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

// Engine validates query requests and dispatches them to the aggregators.
type Engine struct {
	store   warehouse.Store
	catalog Catalog
	opts    Options
}

func NewEngine(store warehouse.Store, opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:   store,
		catalog: NewCatalog(store.Dialect()),
		opts:    opts,
	}
}

// Today is the current calendar day in the engine's location.
func (e *Engine) Today() time.Time {
	now := e.opts.Now().In(e.opts.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Run answers req. Invalid requests fail with a ValidationError before the store is
// touched; store failures are logged and returned as a StoreError.
func (e *Engine) Run(ctx context.Context, req Request) ([]Row, error) {
	p, err := req.compile()
	if err != nil {
		return nil, err
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	log := logger.WithContext(ctx).WithFields(logrus.Fields{
		"module":     "query",
		"dimensions": p.dims,
		"metrics":    p.metrics,
	})

	sales, stock, err := e.aggregate(ctx, p)
	if err != nil {
		log.WithError(err).Error("query failed")
		return nil, domain.ErrStore("query", err)
	}

	var rows []Row
	switch {
	case p.wantsSales() && p.wantsStock():
		rows = Merge(sales, stock, p.dims, p.metrics)
	case p.wantsSales():
		rows = sales
	default:
		rows = stock
	}
	log.WithField("rows", len(rows)).Debug("query done")
	return rows, nil
}

// aggregate runs whichever aggregators the plan needs. Each store call acquires its own
// connection, so the two may overlap.
func (e *Engine) aggregate(ctx context.Context, p plan) ([]Row, []Row, error) {
	var sales, stock []Row
	runSales := func(ctx context.Context) error {
		rows, err := aggregateSales(ctx, e.store, e.catalog, p.dims, p.sales, p.start, p.end, p.filters)
		sales = rows
		return err
	}
	runStock := func(ctx context.Context) error {
		rows, err := aggregateStock(ctx, e.store, e.catalog, p.dims, p.stock, e.asOf(p), p.filters)
		stock = rows
		return err
	}

	if e.opts.Parallel && p.wantsSales() && p.wantsStock() {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return runSales(gctx) })
		g.Go(func() error { return runStock(gctx) })
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
		return sales, stock, nil
	}

	if p.wantsSales() {
		if err := runSales(ctx); err != nil {
			return nil, nil, err
		}
	}
	if p.wantsStock() {
		if err := runStock(ctx); err != nil {
			return nil, nil, err
		}
	}
	return sales, stock, nil
}

func (e *Engine) asOf(p plan) time.Time {
	if e.opts.AlwaysCurrent {
		return e.Today()
	}
	return p.end
}
