package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"datamart/config"
	"datamart/internal/clickhouse"
	"datamart/internal/duckdb"
	"datamart/internal/sqlstore"
	"datamart/internal/warehouse"
	"datamart/pkg/logger"
)

// stores are the connections one command works with. users always lives in the
// relational database; the mart follows WAREHOUSE_BACKEND.
type stores struct {
	users   *sqlstore.Client
	read    warehouse.Store
	write   warehouse.Warehouse // nil for the read-only duckdb backend
	closers []func() error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	log := logger.WithModule("main")

	users, err := sqlstore.NewClient(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := users.Migrate(ctx); err != nil {
		_ = users.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", cfg.Database.Driver, err)
	}
	s := &stores{users: users, closers: []func() error{users.Close}}
	log.WithFields(logrus.Fields{
		"driver": cfg.Database.Driver,
		"host":   cfg.Database.Host,
		"db":     cfg.Database.Name,
	}).Info("connected to relational database")

	switch cfg.Warehouse.Backend {
	case config.BackendClickHouse:
		ch, err := clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, ch.Close)
		if err := ch.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.read, s.write = ch, ch
		log.WithField("host", cfg.ClickHouse.Host).Info("connected to ClickHouse")
	case config.BackendDuckDB:
		duck, err := duckdb.Open(cfg.DuckDB)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, duck.Close)
		s.read = duck
		log.WithField("path", cfg.DuckDB.Path).Info("opened DuckDB mart")
	default:
		s.read, s.write = users, users
	}
	return s, nil
}

// writable returns the mart sink or an error for read-only backends.
func (s *stores) writable() (warehouse.Warehouse, error) {
	if s.write == nil {
		return nil, fmt.Errorf("the configured warehouse backend is read-only")
	}
	return s.write, nil
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.WithError(err).Warn("failed to close connection")
		}
	}
}
