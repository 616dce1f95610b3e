package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Leopards settings. SETTINGS_FILE, when set, overlays these values.
	Leopards     Settings `envconfig:"LEOPARDS"`
	SettingsFile string   `envconfig:"SETTINGS_FILE"`

	// Storage. DATABASE_URL selects PostgreSQL, otherwise SQLite at SQLITE_PATH.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"courierbridge.db"`

	// Redis (optional): service-area cache, poll rate limit and order locks.
	RedisAddr           string        `envconfig:"REDIS_ADDR"`
	RedisPassword       string        `envconfig:"REDIS_PASSWORD"`
	RedisDB             int           `envconfig:"REDIS_DB" default:"0"`
	ServiceAreaCacheTTL time.Duration `envconfig:"SERVICE_AREA_CACHE_TTL" default:"1h"`
	OrderLockTTL        time.Duration `envconfig:"ORDER_LOCK_TTL" default:"2m"`

	// Kafka (optional): bulk booking queue and tracking notifications.
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	KafkaConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP" default:"courierbridge"`
	BulkRequestedTopic string   `envconfig:"KAFKA_BULK_REQUESTED_TOPIC" default:"courierbridge.bulk-booking.requested"`
	BulkDoneTopic      string   `envconfig:"KAFKA_BULK_DONE_TOPIC" default:"courierbridge.bulk-booking.done"`
	TrackingTopic      string   `envconfig:"KAFKA_TRACKING_TOPIC" default:"courierbridge.tracking.updated"`

	// Bulk booking
	BulkDelay     time.Duration `envconfig:"BULK_DELAY" default:"1s"`
	BulkQueueSize int           `envconfig:"BULK_QUEUE_SIZE" default:"64"`

	// Tracking
	PollInterval           time.Duration `envconfig:"POLL_INTERVAL" default:"30m"`
	PollBatchSize          int           `envconfig:"POLL_BATCH_SIZE" default:"50"`
	PollRateLimitPerMinute int           `envconfig:"POLL_RATE_LIMIT_PER_MINUTE" default:"0"`
	BackfillLimit          int           `envconfig:"BACKFILL_LIMIT" default:"200"`

	// Retention
	SnapshotRetentionDays int           `envconfig:"SNAPSHOT_RETENTION_DAYS" default:"30"`
	EventRetentionDays    int           `envconfig:"EVENT_RETENTION_DAYS" default:"30"`
	RetentionInterval     time.Duration `envconfig:"RETENTION_INTERVAL" default:"24h"`

	// Packing slips rendered as HTML are written here.
	SlipDir string `envconfig:"SLIP_DIR" default:"slips"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"courierbridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Settings is the Leopards integration settings block.
type Settings struct {
	Enabled     bool          `envconfig:"ENABLED" default:"true"`
	Environment string        `envconfig:"ENVIRONMENT" default:"staging"`
	BaseURL     string        `envconfig:"BASE_URL"`
	APIKey      string        `envconfig:"API_KEY"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"30s"`
	UseMock     bool          `envconfig:"USE_MOCK" default:"false"`

	// The API password is stored age-sealed (base64). APIPassword is a
	// plaintext fallback for local setups.
	APIPasswordSealed string `envconfig:"API_PASSWORD_SEALED"`
	AgeIdentity       string `envconfig:"AGE_IDENTITY"`
	AgeIdentityFile   string `envconfig:"AGE_IDENTITY_FILE"`
	APIPassword       string `envconfig:"API_PASSWORD"`

	DefaultOriginCity  string `envconfig:"DEFAULT_ORIGIN_CITY"`
	DefaultPaymentMode string `envconfig:"DEFAULT_PAYMENT_MODE" default:"COD"`
	DefaultPieces      int    `envconfig:"DEFAULT_PIECES" default:"1"`
	DefaultServiceType string `envconfig:"DEFAULT_SERVICE_TYPE"`
	DefaultProductType string `envconfig:"DEFAULT_PRODUCT_TYPE"`
	ShipmentMode       string `envconfig:"SHIPMENT_MODE"`

	ShipperName    string `envconfig:"SHIPPER_NAME"`
	ShipperPhone   string `envconfig:"SHIPPER_PHONE"`
	ShipperAddress string `envconfig:"SHIPPER_ADDRESS"`
}

// Load reads configuration from environment variables, then applies the
// settings document when SETTINGS_FILE is set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.SettingsFile != "" {
		if err := cfg.ApplySettingsFile(cfg.SettingsFile); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	return &cfg, nil
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// KafkaEnabled reports whether Kafka brokers are configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("leopards.enabled", c.Leopards.Enabled),
		attribute.String("leopards.environment", c.Leopards.Environment),
		attribute.Bool("redis.enabled", c.RedisEnabled()),
		attribute.Bool("kafka.enabled", c.KafkaEnabled()),
	}
}
