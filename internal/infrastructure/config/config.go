package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Carrier   CarrierConfig
	Shipping  ShippingConfig
	Webhook   WebhookConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
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
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address for the Redis client
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxBodySize    int64
	TrustedProxies []string

	CORSAllowOrigins []string
}

// CarrierConfig holds carrier gateway settings
type CarrierConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	WebhookSecret string
	// WebhookStrict rejects unsigned webhooks. Off in development so
	// carrier sandboxes without signing still work.
	WebhookStrict bool
}

// ShippingConfig holds grouping thresholds and merchant pricing rules
type ShippingConfig struct {
	OriginName       string
	OriginStreet     string
	OriginCity       string
	OriginState      string
	OriginPostalCode string
	OriginCountry    string

	MaxParcelWeightLb    float64
	MaxParcelDimensionIn float64

	HomeCountry              string
	InternationalCarriers    []string
	InternationalWhiteGlove  bool
	WhiteGloveCountries      []string
	WhiteGloveFeeUSD         float64
	FreeShippingThresholdUSD float64
	HandlingFeePercent       float64

	RateCacheTTL time.Duration
}

// WebhookConfig holds inbound webhook processing settings
type WebhookConfig struct {
	MaxRetries     int
	BackoffEnabled bool
	BackoffBase    time.Duration
}

// SchedulerConfig holds background job settings
type SchedulerConfig struct {
	Enabled                bool
	Workers                int
	TrackingSweepInterval  time.Duration
	TrackingSweepBatchSize int
	WebhookRetryInterval   time.Duration
	WebhookRetryBatchSize  int
}

// StorageConfig holds label archive storage settings
type StorageConfig struct {
	Enabled      bool
	Bucket       string
	Region       string
	Endpoint     string // custom endpoint for S3-compatible stores, empty for AWS
	Prefix       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with FULFIL_ prefix (e.g., FULFIL_DATABASE_PASSWORD)
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

	v.SetEnvPrefix("FULFIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
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
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),

			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
		Carrier: CarrierConfig{
			BaseURL:       v.GetString("carrier.base_url"),
			APIKey:        v.GetString("carrier.api_key"),
			Timeout:       v.GetDuration("carrier.timeout"),
			WebhookSecret: v.GetString("carrier.webhook_secret"),
			WebhookStrict: v.GetBool("carrier.webhook_strict"),
		},
		Shipping: ShippingConfig{
			OriginName:       v.GetString("shipping.origin_name"),
			OriginStreet:     v.GetString("shipping.origin_street"),
			OriginCity:       v.GetString("shipping.origin_city"),
			OriginState:      v.GetString("shipping.origin_state"),
			OriginPostalCode: v.GetString("shipping.origin_postal_code"),
			OriginCountry:    v.GetString("shipping.origin_country"),

			MaxParcelWeightLb:    v.GetFloat64("shipping.max_parcel_weight_lb"),
			MaxParcelDimensionIn: v.GetFloat64("shipping.max_parcel_dimension_in"),

			HomeCountry:              v.GetString("shipping.home_country"),
			InternationalCarriers:    v.GetStringSlice("shipping.international_carriers"),
			InternationalWhiteGlove:  v.GetBool("shipping.international_white_glove"),
			WhiteGloveCountries:      v.GetStringSlice("shipping.white_glove_countries"),
			WhiteGloveFeeUSD:         v.GetFloat64("shipping.white_glove_fee_usd"),
			FreeShippingThresholdUSD: v.GetFloat64("shipping.free_shipping_threshold_usd"),
			HandlingFeePercent:       v.GetFloat64("shipping.handling_fee_percent"),

			RateCacheTTL: v.GetDuration("shipping.rate_cache_ttl"),
		},
		Webhook: WebhookConfig{
			MaxRetries:     v.GetInt("webhook.max_retries"),
			BackoffEnabled: v.GetBool("webhook.backoff_enabled"),
			BackoffBase:    v.GetDuration("webhook.backoff_base"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                v.GetBool("scheduler.enabled"),
			Workers:                v.GetInt("scheduler.workers"),
			TrackingSweepInterval:  v.GetDuration("scheduler.tracking_sweep_interval"),
			TrackingSweepBatchSize: v.GetInt("scheduler.tracking_sweep_batch_size"),
			WebhookRetryInterval:   v.GetDuration("scheduler.webhook_retry_interval"),
			WebhookRetryBatchSize:  v.GetInt("scheduler.webhook_retry_batch_size"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Bucket:       v.GetString("storage.bucket"),
			Region:       v.GetString("storage.region"),
			Endpoint:     v.GetString("storage.endpoint"),
			Prefix:       v.GetString("storage.prefix"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
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
		cfg.App.Name = "fulfillment"
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
		cfg.Database.DBName = "fulfillment"
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
		cfg.Database.ConnMaxLifetime = 30
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
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1 MB
	}

	if cfg.Carrier.BaseURL == "" {
		cfg.Carrier.BaseURL = "https://api.shiplane.example"
	}
	if cfg.Carrier.Timeout == 0 {
		cfg.Carrier.Timeout = 30 * time.Second
	}

	if cfg.Shipping.OriginName == "" {
		cfg.Shipping.OriginName = "Fulfillment Center"
	}
	if cfg.Shipping.OriginStreet == "" {
		cfg.Shipping.OriginStreet = "1 Warehouse Way"
	}
	if cfg.Shipping.OriginCity == "" {
		cfg.Shipping.OriginCity = "Oakland"
	}
	if cfg.Shipping.OriginState == "" {
		cfg.Shipping.OriginState = "CA"
	}
	if cfg.Shipping.OriginPostalCode == "" {
		cfg.Shipping.OriginPostalCode = "94607"
	}
	if cfg.Shipping.OriginCountry == "" {
		cfg.Shipping.OriginCountry = "US"
	}
	if cfg.Shipping.MaxParcelWeightLb == 0 {
		cfg.Shipping.MaxParcelWeightLb = 200
	}
	if cfg.Shipping.MaxParcelDimensionIn == 0 {
		cfg.Shipping.MaxParcelDimensionIn = 70
	}
	if cfg.Shipping.HomeCountry == "" {
		cfg.Shipping.HomeCountry = "US"
	}
	if len(cfg.Shipping.InternationalCarriers) == 0 {
		cfg.Shipping.InternationalCarriers = []string{"shiplane", "freightco"}
	}
	if len(cfg.Shipping.WhiteGloveCountries) == 0 {
		cfg.Shipping.WhiteGloveCountries = []string{"US"}
	}
	if cfg.Shipping.WhiteGloveFeeUSD == 0 {
		cfg.Shipping.WhiteGloveFeeUSD = 250
	}
	if cfg.Shipping.RateCacheTTL == 0 {
		cfg.Shipping.RateCacheTTL = 5 * time.Minute
	}

	if cfg.Webhook.MaxRetries == 0 {
		cfg.Webhook.MaxRetries = 3
	}
	if cfg.Webhook.BackoffBase == 0 {
		cfg.Webhook.BackoffBase = time.Minute
	}

	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 4
	}
	if cfg.Scheduler.TrackingSweepInterval == 0 {
		cfg.Scheduler.TrackingSweepInterval = 15 * time.Minute
	}
	if cfg.Scheduler.TrackingSweepBatchSize == 0 {
		cfg.Scheduler.TrackingSweepBatchSize = 100
	}
	if cfg.Scheduler.WebhookRetryInterval == 0 {
		cfg.Scheduler.WebhookRetryInterval = 5 * time.Minute
	}
	if cfg.Scheduler.WebhookRetryBatchSize == 0 {
		cfg.Scheduler.WebhookRetryBatchSize = 50
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "labels/"
	}
}

// validate checks configuration invariants, strictest in production
func (c *Config) validate() error {
	if c.IsProduction() {
		if c.Database.Password == "" {
			return fmt.Errorf("database password is required in production")
		}
		if c.Carrier.APIKey == "" {
			return fmt.Errorf("carrier API key is required in production")
		}
		if c.Carrier.WebhookSecret == "" {
			return fmt.Errorf("carrier webhook secret is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database sslmode must not be disabled in production")
		}
	}
	if c.Shipping.HandlingFeePercent < 0 || c.Shipping.HandlingFeePercent > 100 {
		return fmt.Errorf("handling fee percent must be between 0 and 100")
	}
	if c.Webhook.MaxRetries < 1 {
		return fmt.Errorf("webhook max retries must be at least 1")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required when storage is enabled")
	}
	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN builds the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
