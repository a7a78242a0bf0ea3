// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultJWTSecret     = "dev-jwt-secret-change-me"
	defaultWebhookSecret = "dev-webhook-secret-change-me"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Payment  PaymentConfig
	Webhook  WebhookConfig
	Auth     AuthConfig
	QR       QRConfig
	OTel     OTelConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectAttempts int
	RetryInterval   time.Duration
	EnableTracing   bool
}

// DSN builds a libpq-compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis settings. An empty Host disables the event cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	EventTTL time.Duration
}

// Addr returns the Redis address.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether a Redis host is configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// PaymentConfig selects and configures the payment gateway.
type PaymentConfig struct {
	// Provider is "stripe" or "mock".
	Provider            string
	Currency            string
	Timeout             time.Duration
	SuccessURL          string
	CancelURL           string
	StripeSecretKey     string
	StripeWebhookSecret string
	MockCheckoutURL     string
}

// WebhookConfig protects the generic payment webhook.
type WebhookConfig struct {
	Secret string
}

// AuthConfig verifies identity-provider tokens.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// QRConfig holds the key that seals QR payloads. Empty means bare ticket ids.
type QRConfig struct {
	SecretHex string
}

// Key decodes the configured key. It returns nil when no key is set.
func (q QRConfig) Key() ([]byte, error) {
	if q.SecretHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(q.SecretHex)
	if err != nil {
		return nil, fmt.Errorf("QR_SECRET is not hex: %w", err)
	}
	return key, nil
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled       bool
	ServiceName   string
	CollectorAddr string
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	return load(".env", false)
}

// LoadWithPath reads configuration from a specific env file, which must exist.
func LoadWithPath(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, required bool) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil && required {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := bind(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "concert-ticketing")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", false)
	v.SetDefault("APP_VERSION", "1.0.0")

	v.SetDefault("PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "60s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "concerts")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault("DB_CONNECT_ATTEMPTS", 5)
	v.SetDefault("DB_RETRY_INTERVAL", "2s")

	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_EVENT_TTL", "10m")

	v.SetDefault("PAYMENT_PROVIDER", "mock")
	v.SetDefault("PAYMENT_CURRENCY", "cop")
	v.SetDefault("PAYMENT_TIMEOUT", "10s")
	v.SetDefault("PAYMENT_SUCCESS_URL", "http://localhost:3000/pago-exitoso")
	v.SetDefault("PAYMENT_CANCEL_URL", "http://localhost:3000/pago-fallido")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("MOCK_CHECKOUT_URL", "http://localhost:8080/mock-checkout")

	v.SetDefault("WEBHOOK_SECRET", defaultWebhookSecret)

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("QR_SECRET", "")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "concert-ticketing")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
}

func bind(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	cfg.Server.Port = v.GetInt("PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")
	cfg.Server.CORSOrigins = splitCSV(v.GetString("CORS_ORIGINS"))

	cfg.Database.Host = v.GetString("DB_HOST")
	cfg.Database.Port = v.GetInt("DB_PORT")
	cfg.Database.User = v.GetString("DB_USER")
	cfg.Database.Password = v.GetString("DB_PASSWORD")
	cfg.Database.DBName = v.GetString("DB_NAME")
	cfg.Database.SSLMode = v.GetString("DB_SSLMODE")
	cfg.Database.MaxConns = v.GetInt32("DB_MAX_CONNS")
	cfg.Database.MinConns = v.GetInt32("DB_MIN_CONNS")
	cfg.Database.ConnMaxLifetime = v.GetDuration("DB_CONN_MAX_LIFETIME")
	cfg.Database.ConnMaxIdleTime = v.GetDuration("DB_CONN_MAX_IDLE_TIME")
	cfg.Database.ConnectAttempts = v.GetInt("DB_CONNECT_ATTEMPTS")
	cfg.Database.RetryInterval = v.GetDuration("DB_RETRY_INTERVAL")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.EventTTL = v.GetDuration("REDIS_EVENT_TTL")

	cfg.Payment.Provider = strings.ToLower(v.GetString("PAYMENT_PROVIDER"))
	cfg.Payment.Currency = strings.ToLower(v.GetString("PAYMENT_CURRENCY"))
	cfg.Payment.Timeout = v.GetDuration("PAYMENT_TIMEOUT")
	cfg.Payment.SuccessURL = v.GetString("PAYMENT_SUCCESS_URL")
	cfg.Payment.CancelURL = v.GetString("PAYMENT_CANCEL_URL")
	cfg.Payment.StripeSecretKey = v.GetString("STRIPE_SECRET_KEY")
	cfg.Payment.StripeWebhookSecret = v.GetString("STRIPE_WEBHOOK_SECRET")
	cfg.Payment.MockCheckoutURL = v.GetString("MOCK_CHECKOUT_URL")

	cfg.Webhook.Secret = v.GetString("WEBHOOK_SECRET")

	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	cfg.Auth.Issuer = v.GetString("JWT_ISSUER")

	cfg.QR.SecretHex = v.GetString("QR_SECRET")

	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.Database.EnableTracing = cfg.OTel.Enabled

	return cfg
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Webhook.Secret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required")
	}
	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be positive")
	}

	switch c.Payment.Provider {
	case "mock":
	case "stripe":
		if c.Payment.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required for the stripe provider")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.Payment.Provider)
	}

	if key, err := c.QR.Key(); err != nil {
		return err
	} else if key != nil && len(key) != 32 {
		return fmt.Errorf("QR_SECRET must be 32 bytes, got %d", len(key))
	}

	if c.IsProduction() {
		if c.Auth.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be changed in production")
		}
		if c.Webhook.Secret == defaultWebhookSecret {
			return fmt.Errorf("WEBHOOK_SECRET must be changed in production")
		}
		if c.Payment.Provider == "mock" {
			return fmt.Errorf("the mock payment provider cannot run in production")
		}
	}
	return nil
}

// IsProduction returns true if running in the production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
