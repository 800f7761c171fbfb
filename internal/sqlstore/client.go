// Package sqlstore is the gorm-backed relational warehouse: it serves the aggregate
// queries, owns the users table and writes dimension and fact rows.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"datamart/config"
	"datamart/internal/warehouse"
	"datamart/models"
)

type Client struct {
	db      *gorm.DB
	dialect warehouse.Dialect
}

func NewClient(cfg config.DatabaseConfig) (*Client, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
			cfg.Host, cfg.Username, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode, cfg.TimeZone)
		dialector = postgres.Open(dsn)
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return Wrap(db), nil
}

// Wrap adopts an already opened gorm handle; the dialect follows its driver.
func Wrap(db *gorm.DB) *Client {
	return &Client{db: db, dialect: warehouse.Dialect(db.Dialector.Name())}
}

func (c *Client) DB() *gorm.DB {
	return c.db
}

func (c *Client) Dialect() warehouse.Dialect {
	return c.dialect
}

func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates the data mart and users tables.
func (c *Client) Migrate(ctx context.Context) error {
	return c.db.WithContext(ctx).AutoMigrate(
		&models.Produto{},
		&models.Loja{},
		&models.Venda{},
		&models.Estoque{},
		&models.User{},
	)
}

// Query runs raw SQL and drains the result before returning the connection to the pool.
func (c *Client) Query(ctx context.Context, query string, args ...any) ([]warehouse.Record, error) {
	rows, err := c.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return warehouse.ScanRows(rows)
}
