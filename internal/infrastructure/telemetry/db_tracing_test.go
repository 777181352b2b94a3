package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := openTracedDB(t)
	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{}, zaptest.NewLogger(t)))
	assert.Nil(t, db.Callback().Query().Get("billing:slow_query"))
}

func TestRegisterDBTracing_Enabled(t *testing.T) {
	db := openTracedDB(t)
	cfg := DBTracingConfig{Enabled: true, DBName: "franchise_billing"}
	require.NoError(t, RegisterDBTracing(db, cfg, zaptest.NewLogger(t)))

	assert.NotNil(t, db.Callback().Query().Get("billing:slow_query"))
	assert.NotNil(t, db.Callback().Create().Get("billing:start_create"))
	require.NoError(t, db.Create(&tracedRow{Name: "Camden"}).Error)
}

func TestSlowQueryMarker_FlagsSlowStatements(t *testing.T) {
	db := openTracedDB(t)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	core, logs := observer.New(zapcore.WarnLevel)
	clock := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	marker := &slowQueryMarker{
		thresh: 100 * time.Millisecond,
		logger: zap.New(core),
		now: func() time.Time {
			clock = clock.Add(150 * time.Millisecond)
			return clock
		},
	}
	require.NoError(t, marker.register(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "list")
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	span.End()

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Slow query", logs.All()[0].Message)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	var slow bool
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "db.slow_query" {
			slow = kv.Value.AsBool()
		}
	}
	assert.True(t, slow)
}

func TestSlowQueryMarker_IgnoresFastStatements(t *testing.T) {
	db := openTracedDB(t)
	core, logs := observer.New(zapcore.WarnLevel)
	marker := &slowQueryMarker{thresh: time.Hour, logger: zap.New(core)}
	require.NoError(t, marker.register(db))

	require.NoError(t, db.Create(&tracedRow{Name: "Watford"}).Error)
	assert.Zero(t, logs.Len())
}
