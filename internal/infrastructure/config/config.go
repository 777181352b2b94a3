package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Storage    StorageConfig
	Broker     BrokerConfig
	Scheduler  SchedulerConfig
	Telemetry  TelemetryConfig
	Extraction ExtractionConfig
	Billing    BillingConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	DBName           string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  int // in minutes
	ConnMaxIdleTime  int // in minutes
	StatementTimeout time.Duration
}

// RedisConfig holds Redis connection settings. When disabled, reconciliation
// locks and webhook delivery tracking stay in process memory.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	LockTTL  time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	MaxUploadFiles   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	WebhookSecret    string // HMAC key for payment webhooks; empty skips signature checks

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// StorageConfig holds S3-compatible statement archive settings
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Bucket            string
	AccessKey         string
	SecretKey         string
	Region            string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// BrokerConfig holds AMQP settings for invoice lifecycle events
type BrokerConfig struct {
	Enabled    bool
	URL        string
	Exchange   string
	RoutingKey string // prefix; the event type is appended
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled            bool
	MonthlyInvoiceCron string
	Timezone           string
	JobTimeout         time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	// Metrics and log export share the collector endpoint
	MetricsEnabled        bool
	MetricsExportInterval time.Duration
	LogsEnabled           bool
}

// ExtractionConfig bounds statement parsing
type ExtractionConfig struct {
	MaxPDFBytes            int64
	MaxCSVBytes            int64
	TextTimeout            time.Duration
	ExcludedSlerpLocations []string
}

// BillingConfig holds invoice defaults and the remittance details printed on statements
type BillingConfig struct {
	WaiverSchedule  string  // "up_to_fee" or "fraction"
	WaiverFraction  float64 // share of the monthly fee waived when WaiverSchedule is "fraction"
	PaymentDays     int
	BankName        string
	SortCode        string
	AccountNumber   string
	BusinessName    string
	BusinessAddress []string
}

// Load loads configuration from an optional .env file, a TOML file and
// environment variables.
// Priority (highest to lowest):
// 1. Environment variables with FEES_ prefix (e.g., FEES_DATABASE_PASSWORD)
// 2. .env in the working directory (never overrides variables already set)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FEES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:             v.GetString("database.host"),
			Port:             v.GetInt("database.port"),
			User:             v.GetString("database.user"),
			Password:         v.GetString("database.password"),
			DBName:           v.GetString("database.dbname"),
			SSLMode:          v.GetString("database.sslmode"),
			MaxOpenConns:     v.GetInt("database.max_open_conns"),
			MaxIdleConns:     v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime:  v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime:  v.GetInt("database.conn_max_idle_time"),
			StatementTimeout: v.GetDuration("database.statement_timeout"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			LockTTL:  v.GetDuration("redis.lock_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			MaxUploadFiles:    v.GetInt("http.max_upload_files"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			WebhookSecret:     v.GetString("http.webhook_secret"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			Region:            v.GetString("storage.region"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Broker: BrokerConfig{
			Enabled:    v.GetBool("broker.enabled"),
			URL:        v.GetString("broker.url"),
			Exchange:   v.GetString("broker.exchange"),
			RoutingKey: v.GetString("broker.routing_key"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            v.GetBool("scheduler.enabled"),
			MonthlyInvoiceCron: v.GetString("scheduler.monthly_invoice_cron"),
			Timezone:           v.GetString("scheduler.timezone"),
			JobTimeout:         v.GetDuration("scheduler.job_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:          v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:     v.GetDuration("telemetry.db_slow_query_threshold"),
			MetricsEnabled:        v.GetBool("telemetry.metrics_enabled"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
		},
		Extraction: ExtractionConfig{
			MaxPDFBytes:            v.GetInt64("extraction.max_pdf_bytes"),
			MaxCSVBytes:            v.GetInt64("extraction.max_csv_bytes"),
			TextTimeout:            v.GetDuration("extraction.text_timeout"),
			ExcludedSlerpLocations: v.GetStringSlice("extraction.excluded_slerp_locations"),
		},
		Billing: BillingConfig{
			WaiverSchedule:  v.GetString("billing.waiver_schedule"),
			WaiverFraction:  v.GetFloat64("billing.waiver_fraction"),
			PaymentDays:     v.GetInt("billing.payment_days"),
			BankName:        v.GetString("billing.bank_name"),
			SortCode:        v.GetString("billing.sort_code"),
			AccountNumber:   v.GetString("billing.account_number"),
			BusinessName:    v.GetString("billing.business_name"),
			BusinessAddress: v.GetStringSlice("billing.business_address"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "franchise-billing"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "franchise_billing"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 50 << 20 // 50MB, a batch of statements
	}
	if cfg.HTTP.MaxUploadFiles == 0 {
		cfg.HTTP.MaxUploadFiles = 20
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Webhook-Signature"}
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "eu-west-2"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "franchise-statements"
	}
	if cfg.Broker.Exchange == "" {
		cfg.Broker.Exchange = "franchise.invoices"
	}
	if cfg.Broker.RoutingKey == "" {
		cfg.Broker.RoutingKey = "invoice"
	}
	if cfg.Scheduler.MonthlyInvoiceCron == "" {
		// 06:00 on the 1st, billing the month just ended
		cfg.Scheduler.MonthlyInvoiceCron = "0 6 1 * *"
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Europe/London"
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "franchise-billing"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
	if cfg.Extraction.MaxPDFBytes == 0 {
		cfg.Extraction.MaxPDFBytes = 20 << 20
	}
	if cfg.Extraction.MaxCSVBytes == 0 {
		cfg.Extraction.MaxCSVBytes = 10 << 20
	}
	if cfg.Extraction.TextTimeout == 0 {
		cfg.Extraction.TextTimeout = 30 * time.Second
	}
	if len(cfg.Extraction.ExcludedSlerpLocations) == 0 {
		cfg.Extraction.ExcludedSlerpLocations = []string{"luton"}
	}
	if cfg.Billing.WaiverSchedule == "" {
		cfg.Billing.WaiverSchedule = WaiverUpToFee
	}
	if cfg.Billing.PaymentDays == 0 {
		cfg.Billing.PaymentDays = 7
	}
}

// Waiver schedule names
const (
	WaiverUpToFee  = "up_to_fee"
	WaiverFraction = "fraction"
)

// EnvProduction enables the stricter production checks in validate
const EnvProduction = "production"

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Billing.WaiverSchedule {
	case WaiverUpToFee:
	case WaiverFraction:
		if c.Billing.WaiverFraction <= 0 || c.Billing.WaiverFraction > 1 {
			return fmt.Errorf("billing.waiver_fraction must be in (0, 1] when billing.waiver_schedule is %q", WaiverFraction)
		}
	default:
		return fmt.Errorf("billing.waiver_schedule must be %q or %q, got %q", WaiverUpToFee, WaiverFraction, c.Billing.WaiverSchedule)
	}

	if c.Storage.Enabled && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("storage.access_key and storage.secret_key are required when storage is enabled")
	}
	if c.Broker.Enabled && c.Broker.URL == "" {
		return fmt.Errorf("broker.url is required when the broker is enabled")
	}

	if c.App.Env == EnvProduction {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.HTTP.WebhookSecret == "" {
			return fmt.Errorf("http.webhook_secret is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	if d.StatementTimeout > 0 {
		// sent as a startup parameter so every pooled connection gets it
		q.Set("statement_timeout", strconv.FormatInt(d.StatementTimeout.Milliseconds(), 10))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
