package config

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/currency"
	"io/fs"
	"strings"
	"time"
)

const EnvPrefix = "STOREFRONT"

const (
	SnapshotBackendMemory   = "memory"
	SnapshotBackendPostgres = "postgres"
	SnapshotBackendRedis    = "redis"
)

type Config struct {
	HTTPAddr           string        `mapstructure:"http_addr"`
	ShopAPIURL         string        `mapstructure:"shop_api_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`

	Currency        string        `mapstructure:"currency"`
	PaymentProvider string        `mapstructure:"payment_provider"`
	SnapshotBackend string        `mapstructure:"snapshot_backend"`
	SnapshotTTL     time.Duration `mapstructure:"snapshot_ttl"`

	PostgresDSN   string `mapstructure:"postgres_dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	NATSURL            string `mapstructure:"nats_url"`
	EventSubjectPrefix string `mapstructure:"event_subject_prefix"`

	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`

	StripeSecretKey string `mapstructure:"stripe_secret_key"`
	StripeReturnURL string `mapstructure:"stripe_return_url"`

	LogLevel    string `mapstructure:"log_level"`
	Development bool   `mapstructure:"development"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("shop_api_url", "http://localhost:9000/api")
	v.SetDefault("request_timeout", 15*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("session_idle_timeout", 30*time.Minute)

	v.SetDefault("currency", "INR")
	v.SetDefault("payment_provider", "razorpay")
	v.SetDefault("snapshot_backend", SnapshotBackendMemory)
	v.SetDefault("snapshot_ttl", 7*24*time.Hour)

	v.SetDefault("postgres_dsn", "")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("nats_url", "")
	v.SetDefault("event_subject_prefix", "storefront.checkout")

	v.SetDefault("breaker_max_failures", 5)
	v.SetDefault("breaker_open_timeout", 30*time.Second)

	v.SetDefault("stripe_secret_key", "")
	v.SetDefault("stripe_return_url", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("development", false)
}

// Load reads STOREFRONT_* variables, after merging envFile into the process
// environment when it exists. Variables already set win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("godotenv.Load: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("v.Unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cfg.Validate: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is empty")
	}
	if c.ShopAPIURL == "" {
		return fmt.Errorf("shop_api_url is empty")
	}
	if _, err := c.CurrencyUnit(); err != nil {
		return err
	}

	switch c.SnapshotBackend {
	case SnapshotBackendMemory:
	case SnapshotBackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is empty")
		}
	case SnapshotBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is empty")
		}
	default:
		return fmt.Errorf("snapshot_backend[%s] is not supported", c.SnapshotBackend)
	}

	if c.PaymentProvider == "stripe" && c.StripeSecretKey == "" {
		return fmt.Errorf("stripe_secret_key is empty")
	}

	return nil
}

func (c *Config) CurrencyUnit() (currency.Unit, error) {
	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("currency[%s] is not valid: %w", c.Currency, err)
	}
	return unit, nil
}
