package api

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.temporal.io/sdk/client"
)

const (
	DriverInline   = "inline"
	DriverTemporal = "temporal"
)

// Config carries environment-driven settings for the API process.
// Workflow settings are loaded separately by platform/settings.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"local"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`

	PostgresDSN          string        `env:"POSTGRES_DSN"`
	PostgresMaxOpenConns int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
	PostgresConnLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	LeaseTTL      time.Duration `env:"PROCUREMENT_LEASE_TTL" envDefault:"30s"`

	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaGroupID       string   `env:"KAFKA_GROUP_ID" envDefault:"procurement-engine"`
	KafkaStatusTopic   string   `env:"KAFKA_STATUS_TOPIC" envDefault:"procurement.order.status-changed"`
	KafkaDeliveryTopic string   `env:"KAFKA_DELIVERY_TOPIC" envDefault:"logistics.delivery.dropped-off"`

	Driver            string `env:"DRIVER" envDefault:"inline"`
	TemporalAddress   string `env:"TEMPORAL_ADDRESS"`
	TemporalNamespace string `env:"TEMPORAL_NAMESPACE"`
	InstanceID        string `env:"INSTANCE_ID"`

	BankURL      string        `env:"BANK_BASE_URL" envDefault:"http://localhost:8090"`
	LogisticsURL string        `env:"LOGISTICS_BASE_URL" envDefault:"http://localhost:8090"`
	SupplierURL  string        `env:"SUPPLIER_BASE_URL" envDefault:"http://localhost:8090"`
	HTTPTimeout  time.Duration `env:"PARTNER_HTTP_TIMEOUT" envDefault:"5s"`
}

// LoadConfig reads the process environment, applies defaults and validates basic constraints.
func LoadConfig() (Config, error) {
	return loadConfig(env.Options{})
}

func loadConfig(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch cfg.Driver {
	case DriverInline, DriverTemporal:
	default:
		return Config{}, fmt.Errorf("DRIVER must be %q or %q, got %q", DriverInline, DriverTemporal, cfg.Driver)
	}
	if cfg.TemporalAddress == "" {
		cfg.TemporalAddress = client.DefaultHostPort
	}
	if cfg.TemporalNamespace == "" {
		cfg.TemporalNamespace = client.DefaultNamespace
	}
	if cfg.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "local"
		}
		cfg.InstanceID = host
	}
	if cfg.LeaseTTL <= 0 {
		return Config{}, fmt.Errorf("PROCUREMENT_LEASE_TTL must be positive")
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}
