package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/hungrytum/franchise-billing/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pingTimeout bounds health checks so a stuck pool cannot hang /health.
const pingTimeout = 3 * time.Second

// Database wraps the billing store connection pool.
type Database struct {
	DB *gorm.DB
}

// Open connects to the billing database, sizes the pool from cfg and
// verifies the connection. A nil gl silences GORM.
func Open(cfg *config.DatabaseConfig, gl logger.Interface) (*Database, error) {
	if gl == nil {
		gl = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("open billing database: %w", err)
	}

	d := &Database{DB: db}
	if err := d.configurePool(cfg); err != nil {
		return nil, err
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) configurePool(cfg *config.DatabaseConfig) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("billing database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	return nil
}

// Ping reports whether the billing store answers within pingTimeout.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("billing database pool: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping billing database: %w", err)
	}
	return nil
}

// Close releases every pooled connection.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("billing database pool: %w", err)
	}
	return sqlDB.Close()
}
