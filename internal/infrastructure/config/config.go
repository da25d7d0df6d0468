package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bookstore/backend/internal/infrastructure/erp"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	HTTP     HTTPConfig
	ERP      ERPConfig
	Catalog  CatalogConfig
	Lock      LockConfig
	Telemetry TelemetryConfig
	Scheduler SchedulerConfig
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
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server settings for the ERP callback API
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	// APIKey is the bearer token the ERP presents when calling the shop
	APIKey string
	// DefaultWarehouse is the only warehouse code accepted by stock updates
	DefaultWarehouse string
	PageSize         int
}

// ERPConfig holds the outbound ERP integration settings
type ERPConfig struct {
	Enabled          bool
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	ProductsPageSize int
	DefaultCurrency  string
	DefaultCountry   string
	SalesChannel     string
	// RateLimit caps outbound requests per second; zero means unlimited
	RateLimit float64
	RateBurst int
}

// ClientConfig converts the settings into the ERP HTTP client configuration
func (e ERPConfig) ClientConfig() erp.ClientConfig {
	return erp.ClientConfig{
		Enabled:   e.Enabled,
		BaseURL:   e.BaseURL,
		APIKey:    e.APIKey,
		Timeout:   e.Timeout,
		RateLimit: e.RateLimit,
		RateBurst: e.RateBurst,
	}
}

// CatalogConfig names the fixed category buckets used by the ERP mapping
type CatalogConfig struct {
	VinylCategory    string
	PostcardCategory string
	BookCategory     string
}

// LockConfig holds the cross-process run lock settings
type LockConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SchedulerConfig holds the in-process periodic ERP jobs. An interval of
// zero leaves that job to cron and the CLI commands.
type SchedulerConfig struct {
	Enabled             bool
	ProductSyncInterval time.Duration
	OrderPushInterval   time.Duration
	JobTimeout          time.Duration
	RunOnStart          bool
}

// TelemetryConfig holds OpenTelemetry tracing settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	Insecure          bool
	// DBTracing adds a span per SQL statement
	DBTracing  bool
	LogFullSQL bool
}

// Load reads configuration.
// Priority (highest to lowest):
// 1. Environment variables with BOOKSTORE_ prefix (e.g., BOOKSTORE_ERP_API_KEY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("BOOKSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans cannot be told apart from "unset" after the fact
	v.SetDefault("erp.enabled", true)
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.insecure", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			APIKey:           v.GetString("http.api_key"),
			DefaultWarehouse: v.GetString("http.default_warehouse"),
			PageSize:         v.GetInt("http.page_size"),
		},
		ERP: ERPConfig{
			Enabled:          v.GetBool("erp.enabled"),
			BaseURL:          v.GetString("erp.base_url"),
			APIKey:           v.GetString("erp.api_key"),
			Timeout:          v.GetDuration("erp.timeout"),
			ProductsPageSize: v.GetInt("erp.products_page_size"),
			DefaultCurrency:  v.GetString("erp.default_currency"),
			DefaultCountry:   v.GetString("erp.default_country"),
			SalesChannel:     v.GetString("erp.sales_channel"),
			RateLimit:        v.GetFloat64("erp.rate_limit"),
			RateBurst:        v.GetInt("erp.rate_burst"),
		},
		Catalog: CatalogConfig{
			VinylCategory:    v.GetString("catalog.vinyl_category"),
			PostcardCategory: v.GetString("catalog.postcard_category"),
			BookCategory:     v.GetString("catalog.book_category"),
		},
		Lock: LockConfig{
			Enabled: v.GetBool("lock.enabled"),
			TTL:     v.GetDuration("lock.ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:             v.GetBool("scheduler.enabled"),
			ProductSyncInterval: v.GetDuration("scheduler.product_sync_interval"),
			OrderPushInterval:   v.GetDuration("scheduler.order_push_interval"),
			JobTimeout:          v.GetDuration("scheduler.job_timeout"),
			RunOnStart:          v.GetBool("scheduler.run_on_start"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
			LogFullSQL:        v.GetBool("telemetry.log_full_sql"),
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
		cfg.App.Name = "bookstore-erp"
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
		cfg.Database.DBName = "bookstore"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 5
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.DefaultWarehouse == "" {
		cfg.HTTP.DefaultWarehouse = "main"
	}
	if cfg.HTTP.PageSize == 0 {
		cfg.HTTP.PageSize = 50
	}
	if cfg.ERP.Timeout == 0 {
		cfg.ERP.Timeout = 15 * time.Second
	}
	if cfg.ERP.ProductsPageSize == 0 {
		cfg.ERP.ProductsPageSize = 50
	}
	if cfg.ERP.DefaultCurrency == "" {
		cfg.ERP.DefaultCurrency = "RUB"
	}
	if cfg.ERP.DefaultCountry == "" {
		cfg.ERP.DefaultCountry = "Россия"
	}
	if cfg.ERP.SalesChannel == "" {
		cfg.ERP.SalesChannel = "internet_shop"
	}
	if cfg.Catalog.VinylCategory == "" {
		cfg.Catalog.VinylCategory = "vinyl"
	}
	if cfg.Catalog.PostcardCategory == "" {
		cfg.Catalog.PostcardCategory = "Открытки, марки, значки"
	}
	if cfg.Catalog.BookCategory == "" {
		cfg.Catalog.BookCategory = "Книги"
	}
	if cfg.Lock.TTL == 0 {
		cfg.Lock.TTL = 30 * time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
}

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
	if c.ERP.ProductsPageSize < 1 || c.ERP.ProductsPageSize > 1000 {
		return fmt.Errorf("erp.products_page_size must be between 1 and 1000, got %d", c.ERP.ProductsPageSize)
	}
	if c.ERP.RateLimit < 0 || c.ERP.RateBurst < 0 {
		return fmt.Errorf("erp.rate_limit and erp.rate_burst cannot be negative")
	}
	if c.Scheduler.ProductSyncInterval < 0 || c.Scheduler.OrderPushInterval < 0 {
		return fmt.Errorf("scheduler intervals cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %v", c.Telemetry.SamplingRatio)
	}
	if len(c.ERP.DefaultCurrency) != 3 {
		return fmt.Errorf("erp.default_currency must be a 3-letter code, got %q", c.ERP.DefaultCurrency)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
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
	u.RawQuery = q.Encode()
	return u.String()
}
