package telemetry

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bound variables in db.statement (dev only)
	SlowQueryThresh time.Duration // default 200ms
	DBName          string
}

const (
	dbStartedKey       = "billing:query_started"
	defaultSlowQueries = 200 * time.Millisecond
)

// RegisterDBTracing installs otelgorm on db plus a slow query marker that
// tags the active span and logs a warning.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	thresh := cfg.SlowQueryThresh
	if thresh <= 0 {
		thresh = defaultSlowQueries
	}
	marker := &slowQueryMarker{thresh: thresh, logger: logger.Named("slow-query")}
	if err := marker.register(db); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", thresh),
	)
	return nil
}

type slowQueryMarker struct {
	thresh time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func (m *slowQueryMarker) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

func (m *slowQueryMarker) register(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name   string
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("billing:start_"+h.name, m.start); err != nil {
			return err
		}
		if err := h.after("billing:slow_"+h.name, m.finish); err != nil {
			return err
		}
	}
	return nil
}

func (m *slowQueryMarker) start(db *gorm.DB) {
	db.InstanceSet(dbStartedKey, m.clock())
}

func (m *slowQueryMarker) finish(db *gorm.DB) {
	v, ok := db.InstanceGet(dbStartedKey)
	if !ok {
		return
	}
	started, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := m.clock().Sub(started)
	if elapsed < m.thresh {
		return
	}

	if ctx := db.Statement.Context; ctx != nil {
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
	}
	m.logger.Warn("Slow query",
		zap.String("table", db.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", db.RowsAffected),
	)
}
