package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// maxLoggedSQL caps statement text; bulk report inserts can run to
// hundreds of value tuples.
const maxLoggedSQL = 2048

// SQLLogger routes GORM output through zap with request, franchisee and
// trace correlation taken from the query context.
type SQLLogger struct {
	log           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// SQLLoggerOption configures an SQLLogger
type SQLLoggerOption func(*SQLLogger)

// WithSlowThreshold sets when a statement is reported as slow. Zero disables it.
func WithSlowThreshold(threshold time.Duration) SQLLoggerOption {
	return func(l *SQLLogger) {
		l.slowThreshold = threshold
	}
}

// NewSQLLogger returns a GORM logger backed by log
func NewSQLLogger(log *zap.Logger, level gormlogger.LogLevel, opts ...SQLLoggerOption) *SQLLogger {
	l := &SQLLogger{
		log:           log.Named("sql"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		Enrich(ctx, l.log).Sugar().Infof(msg, data...)
	}
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		Enrich(ctx, l.log).Sugar().Warnf(msg, data...)
	}
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		Enrich(ctx, l.log).Sugar().Errorf(msg, data...)
	}
}

// Trace reports failed statements, then slow ones, then every statement at
// debug when the level is Info. Lookups that find nothing are expected
// (missing invoice, unknown franchisee) and never logged.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	switch {
	case err != nil && l.level >= gormlogger.Error:
	case slow && l.level >= gormlogger.Warn:
	case l.level >= gormlogger.Info:
	default:
		return
	}

	stmt, rows := fc()
	fields := []zap.Field{
		zap.String("table", statementTable(stmt)),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", truncateSQL(stmt)),
	}
	log := Enrich(ctx, l.log)

	switch {
	case err != nil && isStatementTimeout(err):
		log.Warn("SQL statement timed out", append(fields, zap.Error(err))...)
	case err != nil:
		log.Error("SQL statement failed", append(fields, zap.Error(err))...)
	case slow:
		log.Warn("Slow SQL statement", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	default:
		log.Debug("SQL statement", fields...)
	}
}

// isStatementTimeout matches postgres query_canceled (57014) raised by
// statement_timeout as well as a cancelled request context.
func isStatementTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "57014") || strings.Contains(msg, "statement timeout")
}

// statementTable returns the first table a statement touches, or "" when
// it cannot tell.
func statementTable(stmt string) string {
	fields := strings.Fields(stmt)
	for i, f := range fields {
		switch strings.ToUpper(f) {
		case "FROM", "INTO", "UPDATE":
			if i+1 < len(fields) {
				return strings.Trim(fields[i+1], `"(`)
			}
		}
	}
	return ""
}

func truncateSQL(stmt string) string {
	if len(stmt) <= maxLoggedSQL {
		return stmt
	}
	return stmt[:maxLoggedSQL] + "..."
}

// MapGormLogLevel maps the service log level to a GORM level. Statements
// are only traced at debug.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
