package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App AppConfig `mapstructure:"app"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	Admin       AdminConfig       `mapstructure:"admin"`
	Attribution AttributionConfig `mapstructure:"attribution"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Clicks      ClicksConfig      `mapstructure:"clicks"`
	Payment     PaymentConfig     `mapstructure:"payment"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// IsProduction reports whether cookies must be marked Secure, metrics served, etc.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PrometheusConfig struct {
	Port int `mapstructure:"port"`
}

// AdminConfig holds the shared secrets for the admin surface. Empty values
// disable the corresponding check (every request is rejected).
type AdminConfig struct {
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`
}

type AttributionConfig struct {
	CookieSecret string `mapstructure:"cookie_secret"`

	// PartnerRefresh is how often the known-partner filter reloads ids.
	PartnerRefresh time.Duration `mapstructure:"partner_refresh"`
}

type RateLimitConfig struct {
	// Store selects the backing state: "memory" (single instance) or "redis".
	Store         string        `mapstructure:"store"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	AdminAuth     LimitRule     `mapstructure:"admin_auth"`
	API           LimitRule     `mapstructure:"api"`
}

type LimitRule struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type ClicksConfig struct {
	// Dispatcher selects the click job queue: "local" or "nats".
	Dispatcher string `mapstructure:"dispatcher"`
	Workers    int    `mapstructure:"workers"`
	QueueSize  int    `mapstructure:"queue_size"`
}

type PaymentConfig struct {
	WebhookToken string `mapstructure:"webhook_token"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: rate_limit.store must be memory or redis, got %q", c.RateLimit.Store)
	}
	switch c.Clicks.Dispatcher {
	case "local", "nats":
	default:
		return fmt.Errorf("config: clicks.dispatcher must be local or nats, got %q", c.Clicks.Dispatcher)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("attribution.partner_refresh", time.Minute)

	v.SetDefault("rate_limit.store", "memory")
	v.SetDefault("rate_limit.sweep_interval", 5*time.Minute)
	v.SetDefault("rate_limit.admin_auth.limit", 5)
	v.SetDefault("rate_limit.admin_auth.window", 15*time.Minute)
	v.SetDefault("rate_limit.api.limit", 60)
	v.SetDefault("rate_limit.api.window", time.Minute)

	v.SetDefault("clicks.dispatcher", "local")
	v.SetDefault("clicks.workers", 4)
	v.SetDefault("clicks.queue_size", 1024)
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.port", "PORT")
	v.BindEnv("app.log_level", "LOG_LEVEL")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	v.BindEnv("prometheus.port", "PROM_PORT")

	v.BindEnv("admin.password", "ADMIN_PASSWORD")
	v.BindEnv("admin.token", "ADMIN_TOKEN")
	v.BindEnv("attribution.cookie_secret", "ATTRIBUTION_COOKIE_SECRET")
	v.BindEnv("payment.webhook_token", "PAYMENT_WEBHOOK_TOKEN")
	v.BindEnv("rate_limit.store", "RATE_LIMIT_STORE")
	v.BindEnv("clicks.dispatcher", "CLICK_DISPATCHER")
}
