// Package config loads process configuration for fern.
//
// Values are layered, lowest to highest: built-in defaults, an optional YAML
// file, environment variables (after an optional .env file), and explicitly
// set command-line flags. Keys are the lower-cased environment names, so
// SOURCE_MAX_RETRIES in the environment is source_max_retries in YAML.
package config

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/brandfilter"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/fipe"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config holds every setting the CLI reads
type Config struct {
	AppName    string `koanf:"app_name" validate:"required"`
	LogLevel   string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	PrettyLogs bool   `koanf:"pretty_logs"`
	LogFile    string `koanf:"log_file"`
	// LogFileMaxSizeMB and LogFileMaxBackups only apply when LogFile is set
	LogFileMaxSizeMB  int `koanf:"log_file_max_size_mb" validate:"gte=0"`
	LogFileMaxBackups int `koanf:"log_file_max_backups" validate:"gte=0"`

	FipeAPIBaseURL         string        `koanf:"fipe_api_base_url" validate:"required,url"`
	VehicleTypes           []string      `koanf:"vehicle_types" validate:"dive,vehicle_type"`
	SourceRequestDelay     time.Duration `koanf:"source_request_delay" validate:"gte=0"`
	SourceRateLimitBackoff time.Duration `koanf:"source_rate_limit_backoff" validate:"gte=0"`
	SourceMaxRetries       int           `koanf:"source_max_retries" validate:"gte=0,lte=20"`
	SourceRequestTimeout   time.Duration `koanf:"source_request_timeout" validate:"gt=0"`
	SourceBackoffStrategy  string        `koanf:"source_backoff_strategy" validate:"oneof=fixed linear exponential fibonacci"`
	SourceBackoffMax       time.Duration `koanf:"source_backoff_max" validate:"gte=0"`
	SourceBackoffJitter    bool          `koanf:"source_backoff_jitter"`

	BrandMatchMode string   `koanf:"brand_match_mode" validate:"oneof=contains exact"`
	Brands         []string `koanf:"brands"`
	BrandLimit     int      `koanf:"brand_limit" validate:"gte=0"`
	TestMode       bool     `koanf:"test_mode"`

	DatabaseURL       string        `koanf:"database_url"`
	DBDriver          string        `koanf:"db_driver" validate:"oneof=postgres pgx"`
	DBHost            string        `koanf:"db_host" validate:"required_without=DatabaseURL"`
	DBPort            int           `koanf:"db_port" validate:"gt=0"`
	DBUserName        string        `koanf:"db_user_name"`
	DBPassword        string        `koanf:"db_password"`
	DBName            string        `koanf:"db_name" validate:"required"`
	DBSSLMode         string        `koanf:"db_ssl_mode"`
	DBMaxOpenConns    int           `koanf:"db_max_open_conns" validate:"gte=0"`
	DBMaxIdleConns    int           `koanf:"db_max_idle_conns" validate:"gte=0"`
	DBConnMaxLifetime time.Duration `koanf:"db_conn_max_lifetime" validate:"gte=0"`

	DBMigrationFolderPath   string `koanf:"db_migration_folder_path" validate:"required"`
	DBMigrationVersion      uint   `koanf:"db_migration_version"`
	DBMigrationForce        int    `koanf:"db_migration_force" validate:"gte=0"`
	DBMigrationAutoRollback bool   `koanf:"db_migration_auto_rollback"`
	DBAutoMigrate           bool   `koanf:"db_auto_migrate"`

	StartupMaxAttempts int `koanf:"startup_max_attempts" validate:"gte=1"`

	KafkaEnabled    bool   `koanf:"kafka_enabled"`
	KafkaBrokers    string `koanf:"kafka_brokers" validate:"required_if=KafkaEnabled true"`
	KafkaPriceTopic string `koanf:"kafka_price_topic" validate:"required_if=KafkaEnabled true"`

	RedisEnabled  bool          `koanf:"redis_enabled"`
	RedisHost     string        `koanf:"redis_host" validate:"required_if=RedisEnabled true"`
	RedisPort     int           `koanf:"redis_port" validate:"gt=0"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"gte=0"`
	RunLockTTL    time.Duration `koanf:"run_lock_ttl" validate:"gt=0"`

	MetricsPushgatewayURL string `koanf:"metrics_pushgateway_url" validate:"omitempty,url"`

	OTLPEnabled  bool   `koanf:"otlp_enabled"`
	OTLPEndpoint string `koanf:"otlp_endpoint" validate:"required_if=OTLPEnabled true"`
	OTLPProtocol string `koanf:"otlp_protocol" validate:"oneof=grpc http"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// Defaults returns the built-in value of every key
func Defaults() map[string]any {
	return map[string]any{
		"app_name":             "fern",
		"log_level":            "info",
		"pretty_logs":          false,
		"log_file":             "",
		"log_file_max_size_mb": 100,
		"log_file_max_backups": 3,

		"fipe_api_base_url":         fipe.DefaultBaseURL,
		"vehicle_types":             []string{"carros", "motos", "caminhoes"},
		"source_request_delay":      "500ms",
		"source_rate_limit_backoff": "30s",
		"source_max_retries":        3,
		"source_request_timeout":    "30s",
		"source_backoff_strategy":   "fixed",
		"source_backoff_max":        "5m",
		"source_backoff_jitter":     false,

		"brand_match_mode": "contains",
		"brands":           []string{},
		"brand_limit":      0,
		"test_mode":        false,

		"database_url":         "",
		"db_driver":            database.DriverPostgres,
		"db_host":              "localhost",
		"db_port":              5432,
		"db_user_name":         "",
		"db_password":          "",
		"db_name":              "fern",
		"db_ssl_mode":          "disable",
		"db_max_open_conns":    5,
		"db_max_idle_conns":    2,
		"db_conn_max_lifetime": "5m",

		"db_migration_folder_path":   "db/pg",
		"db_migration_version":       0,
		"db_migration_force":         0,
		"db_migration_auto_rollback": true,
		"db_auto_migrate":            true,

		"startup_max_attempts": 5,

		"kafka_enabled":     false,
		"kafka_brokers":     "localhost:9092",
		"kafka_price_topic": "fipe-prices",

		"redis_enabled":  false,
		"redis_host":     "",
		"redis_port":     6379,
		"redis_password": "",
		"redis_db":       0,
		"run_lock_ttl":   "12h",

		"metrics_pushgateway_url": "",

		"otlp_enabled":  false,
		"otlp_endpoint": "localhost:4317",
		"otlp_protocol": "grpc",
		"otlp_insecure": true,
	}
}

// Logging returns the logger settings
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      c.LogLevel,
		Pretty:     c.PrettyLogs,
		File:       c.LogFile,
		MaxSizeMB:  c.LogFileMaxSizeMB,
		MaxBackups: c.LogFileMaxBackups,
	}
}

// HTTPClient returns the transport settings for the catalog source
func (c *Config) HTTPClient() httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = c.SourceRequestTimeout
	cfg.UserAgent = c.AppName
	return cfg
}

// Source returns the catalog client settings
func (c *Config) Source() (fipe.Config, error) {
	strategy, err := fipe.ParseBackoffStrategy(c.SourceBackoffStrategy)
	if err != nil {
		return fipe.Config{}, err
	}
	return fipe.Config{
		BaseURL:      c.FipeAPIBaseURL,
		RequestDelay: c.SourceRequestDelay,
		Retry: fipe.RetryPolicy{
			MaxRetries: c.SourceMaxRetries,
			Strategy:   strategy,
			Backoff:    c.SourceRateLimitBackoff,
			MaxBackoff: c.SourceBackoffMax,
			Jitter:     c.SourceBackoffJitter,
		},
	}, nil
}

// SyncVehicleTypes resolves the vehicle types to walk. Test mode narrows the
// run to the first type.
func (c *Config) SyncVehicleTypes() ([]models.VehicleType, error) {
	types, err := models.ParseVehicleTypes(c.VehicleTypes)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		types = models.AllVehicleTypes
	}
	if c.TestMode {
		types = types[:1]
	}
	return types, nil
}

// SyncBrandLimit returns the per-type brand cap. Test mode caps at two brands
// unless a smaller positive limit is set.
func (c *Config) SyncBrandLimit() int {
	if c.TestMode && (c.BrandLimit <= 0 || c.BrandLimit > testModeBrandLimit) {
		return testModeBrandLimit
	}
	return c.BrandLimit
}

const testModeBrandLimit = 2

// BrandFilter builds the allow-list filter. It returns nil when no brands are configured.
func (c *Config) BrandFilter() (*brandfilter.Filter, error) {
	if len(c.Brands) == 0 {
		return nil, nil
	}
	mode, err := brandfilter.ParseMode(c.BrandMatchMode)
	if err != nil {
		return nil, err
	}
	return brandfilter.NewFilter(c.Brands, brandfilter.WithMode(mode)), nil
}

// Database returns the store connection settings
func (c *Config) Database() database.Config {
	return database.Config{
		URL:             c.DatabaseURL,
		Driver:          c.DBDriver,
		Host:            c.DBHost,
		Port:            itoa(c.DBPort),
		UserName:        c.DBUserName,
		Password:        c.DBPassword,
		Name:            c.DBName,
		SSLMode:         c.DBSSLMode,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
	}
}

// Migration returns the schema migration settings
func (c *Config) Migration() *database.MigrationConfig {
	return &database.MigrationConfig{
		MigrationFolderPath: c.DBMigrationFolderPath,
		Version:             c.DBMigrationVersion,
		Force:               c.DBMigrationForce,
		AutoRollback:        c.DBMigrationAutoRollback,
	}
}

// Kafka returns the price event producer settings
func (c *Config) Kafka() kafka.Config {
	return kafka.ParseConfig(c.KafkaBrokers, c.KafkaPriceTopic)
}

// Redis returns the run lock store settings
func (c *Config) Redis() redis.Config {
	return redis.Config{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Tracing returns the span export settings, labelled with the build version
func (c *Config) Tracing(version string) tracing.Config {
	return tracing.Config{
		ServiceName:    c.AppName,
		ServiceVersion: version,
		Endpoint:       c.OTLPEndpoint,
		Protocol:       c.OTLPProtocol,
		Insecure:       c.OTLPInsecure,
	}
}
