package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"datamart/config"
	"datamart/internal/api"
	"datamart/internal/auth"
	"datamart/internal/kpi"
	"datamart/internal/products"
	"datamart/internal/query"
	"datamart/pkg/logger"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analytics HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.WithModule("main")

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	authSvc, err := auth.NewService(st.users.DB(), cfg.Auth)
	if err != nil {
		return err
	}
	loc := cfg.Query.Location()

	engine := query.NewEngine(st.read, query.Options{
		AlwaysCurrent: cfg.Query.StockAlwaysCurrent,
		Parallel:      cfg.Query.Parallel,
		Timeout:       cfg.Query.Timeout,
		Location:      loc,
	})
	kpis := kpi.NewService(st.read, kpi.Options{
		SalesTarget: cfg.KPI.SalesTarget,
		Location:    loc,
	})
	limit := api.RateLimitConfig{
		RequestsPerSecond: cfg.Server.LoginRPS,
		Burst:             cfg.Server.LoginBurst,
	}

	handler := api.NewRouter(api.Deps{
		Auth:        authSvc,
		Query:       engine,
		Products:    products.NewService(st.read),
		KPIs:        kpis,
		CORSOrigins: cfg.Server.CORSOrigins,
		LoginLimit:  limit,
		TrustProxy:  cfg.Server.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("HTTP server stopped")
	return nil
}
