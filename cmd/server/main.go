package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	franchiseeapp "github.com/hungrytum/franchise-billing/internal/application/franchisee"
	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/cache"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/config"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/event"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/extract"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/logger"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/persistence"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/scheduler"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/storage"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/telemetry"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/handler"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/middleware"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// OpenTelemetry: traces, metrics and the zap log bridge share one collector
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, zapcore.InfoLevel)

	log.Info("Starting franchise billing",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewSQLLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	// Initialize database connection with custom logger
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Initialize repositories
	franchiseeRepo := persistence.NewGormFranchiseeRepository(db.DB)
	reportRepo := persistence.NewGormRevenueReportRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Locks and webhook de-duplication: Redis when configured, memory otherwise
	coordination, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize coordination backend", zap.Error(err))
	}
	defer func() {
		_ = coordination.Close()
	}()

	archive, err := newStatementArchive(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize statement archive", zap.Error(err))
	}

	// Invoice lifecycle events
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewInvoiceAuditHandler(log))
	billingMetrics, err := telemetry.NewBillingMetrics(meterProvider.Meter("billing"))
	if err != nil {
		log.Fatal("Failed to create billing metrics", zap.Error(err))
	}
	eventBus.Subscribe(billingMetrics)
	if cfg.Broker.Enabled {
		publisher, err := event.DialAMQPPublisher(event.AMQPConfig{
			URL:        cfg.Broker.URL,
			Exchange:   cfg.Broker.Exchange,
			RoutingKey: cfg.Broker.RoutingKey,
		}, log)
		if err != nil {
			log.Fatal("Failed to connect to message broker", zap.Error(err))
		}
		defer publisher.Close()
		eventBus.Subscribe(event.NewBrokerForwarder(publisher))
		log.Info("Forwarding invoice events to broker", zap.String("exchange", cfg.Broker.Exchange))
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Initialize application services
	extractor := extract.NewRouter(extract.Config{
		MaxPDFBytes: cfg.Extraction.MaxPDFBytes,
		MaxCSVBytes: cfg.Extraction.MaxCSVBytes,
		TextTimeout: cfg.Extraction.TextTimeout,
	}, extract.NewPDFTextSource(), log)

	reconService := reconciliation.NewService(reconciliation.ServiceConfig{
		Franchisees: franchiseeRepo,
		Reports:     reportRepo,
		Invoices:    invoiceRepo,
		TxScope:     txScope,
		Locker:      coordination.Locker,
		Deliveries:  coordination.Idempotency,
		Archive:     archive,
		Events:      eventBus,
		Extractor:   extractor,
		Slerp:       extract.NewSlerpParser(cfg.Extraction.ExcludedSlerpLocations...),
		Payment: reconciliation.PaymentDetails{
			PaymentDays:     cfg.Billing.PaymentDays,
			BankName:        cfg.Billing.BankName,
			SortCode:        cfg.Billing.SortCode,
			AccountNumber:   cfg.Billing.AccountNumber,
			BusinessName:    cfg.Billing.BusinessName,
			BusinessAddress: cfg.Billing.BusinessAddress,
		},
		Waiver: waiverSchedule(cfg.Billing),
		Logger: log,
	})
	franchiseeService := franchiseeapp.NewService(franchiseeRepo, log)

	// Background jobs
	jobs, err := scheduler.New(scheduler.Config{
		Timezone:   cfg.Scheduler.Timezone,
		JobTimeout: cfg.Scheduler.JobTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create scheduler", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		monthly := scheduler.NewMonthlyInvoiceJob(franchiseeService, reconService, log)
		if err := jobs.Register(cfg.Scheduler.MonthlyInvoiceCron, monthly); err != nil {
			log.Fatal("Failed to schedule monthly invoices", zap.Error(err))
		}
		jobs.Start()
		if next, ok := jobs.NextRun(monthly.Name()); ok {
			log.Info("Monthly invoice job scheduled",
				zap.String("cron", cfg.Scheduler.MonthlyInvoiceCron),
				zap.Time("next_run", next),
			)
		}
	}

	// Initialize HTTP handlers
	franchiseeHandler := handler.NewFranchiseeHandler(franchiseeService)
	statementHandler := handler.NewStatementHandler(reconService, cfg.HTTP.MaxUploadFiles)
	statementHandler.Production = cfg.IsProduction()
	invoiceHandler := handler.NewInvoiceHandler(reconService)
	paymentHandler := handler.NewPaymentWebhookHandler(reconService, cfg.HTTP.WebhookSecret)
	systemHandler := handler.NewSystemHandler(db, version)

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup custom validators
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	// Middleware order matters:
	// 1. RequestID - Generate/propagate request ID
	// 2. Tracing - Open the server span before anything logs
	// 3. Recovery - Catch panics
	// 4. Logger - Log requests
	// 5. Metrics - Count requests per route
	// 6. Security, CORS, body size and rate limits
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(meterProvider))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Statement uploads are parsed synchronously, so they get a tighter budget
	var uploads []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
		engine.Use(middleware.RateLimit(limiter))

		uploadLimiter := middleware.NewRateLimiter(max(cfg.HTTP.RateLimitRequests/10, 1), cfg.HTTP.RateLimitWindow)
		defer uploadLimiter.Stop()
		uploads = append(uploads, middleware.RateLimit(uploadLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Mount(router.BillingGroups(router.Handlers{
		Franchisees: franchiseeHandler,
		Statements:  statementHandler,
		Invoices:    invoiceHandler,
		Payments:    paymentHandler,
		System:      systemHandler,
	}, uploads...)...).Setup()

	for _, route := range r.Routes() {
		log.Debug("Route registered",
			zap.String("group", route.Group),
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Warn("Scheduler did not stop cleanly", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not stop cleanly", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"traces":  tracerProvider.Shutdown,
		"metrics": meterProvider.Shutdown,
		"logs":    loggerProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("signal", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// newStatementArchive keeps uploaded statements in S3 when storage is enabled
// and in process memory otherwise
func newStatementArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) (reconciliation.StatementArchive, error) {
	if !cfg.Storage.Enabled {
		log.Warn("Statement storage disabled, uploads are kept in memory only")
		return storage.NewMemoryStatementArchive(), nil
	}
	archive, err := storage.NewS3StatementArchive(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
	)
	if err != nil {
		return nil, err
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("Statement archive ready", zap.String("bucket", archive.Bucket()))
	return archive, nil
}

func waiverSchedule(cfg config.BillingConfig) reconciliation.WaiverSchedule {
	if cfg.WaiverSchedule == config.WaiverFraction {
		return reconciliation.WaiveFraction(decimal.NewFromFloat(cfg.WaiverFraction))
	}
	return reconciliation.WaiveUpToFee
}
