package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the core runtime configuration for the service.
// Values are sourced from APP_* environment variables (optionally loaded from
// a .env file first), with defaults where appropriate.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// StoreDriver selects the record store: "postgres" or "mongo".
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	MongoURI        string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string `envconfig:"MONGO_DATABASE" default:"sample-db"`
	MongoCollection string `envconfig:"MONGO_COLLECTION" default:"users"`

	// ConnectTimeout bounds how long startup keeps retrying the store.
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"30s"`

	// Timezone is the IANA name used for "today", "this week" and "this month",
	// and for stored timestamps that carry no offset.
	Timezone string `envconfig:"TIMEZONE" default:"Local"`

	RecentLimit int `envconfig:"RECENT_LIMIT" default:"10"`

	// RetentionDays deletes natively-timestamped requests older than this.
	// 0 keeps everything.
	RetentionDays int `envconfig:"RETENTION_DAYS" default:"0"`

	// SnapshotInterval refreshes the aggregate gauges in the background.
	// 0 disables the worker.
	SnapshotInterval time.Duration `envconfig:"SNAPSHOT_INTERVAL" default:"5m"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"permission.submitted"`

	// OTLPEndpoint enables tracing when set (host:port of an OTLP gRPC collector).
	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`
	OTLPInsecure bool   `envconfig:"OTLP_INSECURE" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	location *time.Location
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("APP", &cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverPostgres:
		dsn := strings.TrimSpace(c.DatabaseURL)
		if dsn == "" {
			return fmt.Errorf("APP_DATABASE_URL is required (PostgreSQL URL)")
		}
		if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
			return fmt.Errorf("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
		}
	case DriverMongo:
		if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
			return fmt.Errorf("APP_MONGO_URI must be a mongodb:// or mongodb+srv:// URI")
		}
	default:
		return fmt.Errorf("unsupported APP_STORE_DRIVER %q (want %s or %s)", c.StoreDriver, DriverPostgres, DriverMongo)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	c.location = loc

	if c.RecentLimit < 0 {
		return fmt.Errorf("APP_RECENT_LIMIT must not be negative")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("APP_RETENTION_DAYS must not be negative")
	}
	return nil
}

// Location returns the resolved APP_TIMEZONE.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}
