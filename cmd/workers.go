package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"datamart/config"
	"datamart/internal/loader"
	"datamart/internal/rabbitmq"
	"datamart/internal/warehouse"
	"datamart/internal/workers"
	"datamart/pkg/logger"
)

func newWorkersCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "Consume sales and stock fact events from RabbitMQ",
		Long: "Runs one consumer per fact queue. When LOADER_SCHEDULE and LOADER_SOURCE are set, " +
			"the configured bulk load is also re-run on that cron schedule.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.ValidateWorkers(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWorkers(ctx, cfg)
		},
	}
}

func runWorkers(ctx context.Context, cfg *config.Config) error {
	log := logger.WithModule("main")

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	wh, err := st.writable()
	if err != nil {
		return err
	}

	salesConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer salesConsumer.Close()

	stockConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer stockConsumer.Close()
	log.Info("connected to RabbitMQ")

	if cfg.Loader.Schedule != "" && cfg.Loader.Source != "" {
		sched, err := scheduleReload(ctx, cfg, wh)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}

	salesWorker := workers.NewSalesWorker(salesConsumer, wh, cfg.RabbitMQ.SalesQueue)
	stockWorker := workers.NewStockWorker(stockConsumer, wh, cfg.RabbitMQ.StockQueue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return salesWorker.Start(gctx) })
	g.Go(func() error { return stockWorker.Start(gctx) })
	log.Info("all workers started")

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		log.Info("workers stopped")
		return nil
	}
	return err
}

// scheduleReload registers the configured bulk load on cfg.Loader.Schedule.
func scheduleReload(ctx context.Context, cfg *config.Config, wh warehouse.Warehouse) (*cron.Cron, error) {
	kind, err := loader.ParseKind(cfg.Loader.Kind)
	if err != nil {
		return nil, err
	}
	l := loader.New(wh, cfg.Loader.BatchSize)
	src := loader.NewSources(cfg.Loader)
	log := logger.WithModule("scheduler").WithFields(logrus.Fields{
		"source":   cfg.Loader.Source,
		"kind":     kind,
		"schedule": cfg.Loader.Schedule,
	})

	c := cron.New()
	if _, err := c.AddFunc(cfg.Loader.Schedule, func() {
		stats, err := l.LoadURI(ctx, src, cfg.Loader.Source, kind, false)
		if err != nil {
			log.WithError(err).Warn("scheduled load failed")
			return
		}
		log.WithFields(logrus.Fields{"loaded": stats.Loaded, "skipped": stats.Skipped}).Info("scheduled load finished")
	}); err != nil {
		return nil, err
	}
	log.Info("scheduled bulk load")
	return c, nil
}
