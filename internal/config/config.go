// Package config loads service configuration from the environment. Variable
// names are shared across services so one .env file can drive all of them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Log struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// SlogLevel maps Level onto slog, defaulting to info.
func (l Log) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return slog.LevelInfo
	}
	return level
}

type HTTP struct {
	Port         string        `envconfig:"PORT"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"10s"`
}

// Addr returns the listen address, using fallback when PORT is unset.
func (h HTTP) Addr(fallback string) string {
	if h.Port == "" {
		return ":" + fallback
	}
	return ":" + h.Port
}

type Database struct {
	URL             string        `envconfig:"POSTGRES_URL" required:"true"`
	Driver          string        `envconfig:"DB_DRIVER" default:"postgres"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type Kafka struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"ORDER_EVENTS_TOPIC" default:"order.events"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"sales-reporter"`
}

// Enabled reports whether any broker is configured.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

type Telemetry struct {
	ServiceVersion string `envconfig:"SERVICE_VERSION" default:"0.1.0"`
	TracingEnabled bool   `envconfig:"OTEL_TRACING_ENABLED" default:"true"`
	OTLPEndpoint   string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
}

type Orders struct {
	Log
	HTTP
	Database
	Kafka
	Telemetry
}

type Inventory struct {
	Log
	HTTP
	Database
	Telemetry
}

type Gateway struct {
	Log
	HTTP
	Telemetry
	OrdersServiceURL    string `envconfig:"ORDERS_SERVICE_URL" required:"true"`
	InventoryServiceURL string `envconfig:"INVENTORY_SERVICE_URL" required:"true"`
}

// Worker serves only /metrics on its HTTP port.
type Worker struct {
	Log
	HTTP
	Database
	Kafka
	Telemetry
	LowStockThreshold int `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`
}

type Export struct {
	Log
	Database
	Dir string `envconfig:"EXPORT_DIR" default:"csv_exports"`
}

type Migrate struct {
	Log
	PostgresURL    string `envconfig:"POSTGRES_URL" required:"true"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"file://migrations"`
}

// Load reads an optional .env file and then populates dst from the
// environment. Variables already set in the environment win over .env.
func Load(dst any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}
