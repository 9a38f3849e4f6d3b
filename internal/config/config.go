package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Tickets  TicketsConfig
	CORS     CORSConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `envconfig:"APP_NAME" default:"meal-tickets"`
	Env                   string `envconfig:"APP_ENV" default:"development"`
	Host                  string `envconfig:"APP_HOST" default:"0.0.0.0"`
	Port                  string `envconfig:"APP_PORT" default:"8080"`
	Version               string `envconfig:"APP_VERSION" default:"dev"`
	RequestTimeoutSeconds int    `envconfig:"HTTP_REQUEST_TIMEOUT_SECONDS" default:"30"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `envconfig:"POSTGRES_DSN"`
	MaxConns       int32  `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	MinConns       int32  `envconfig:"POSTGRES_MIN_CONNS" default:"2"`
	RunMigrations  bool   `envconfig:"POSTGRES_RUN_MIGRATIONS" default:"true"`
	ConnMaxIdleSec int32  `envconfig:"POSTGRES_CONN_MAX_IDLE_SECONDS" default:"30"`
	ConnMaxLifeSec int32  `envconfig:"POSTGRES_CONN_MAX_LIFE_SECONDS" default:"300"`
}

// RedisConfig holds Redis connection values. An empty Addr disables the owner cache.
type RedisConfig struct {
	Addr          string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	Password      string        `envconfig:"REDIS_PASSWORD"`
	DB            int           `envconfig:"REDIS_DB" default:"0"`
	OwnerCacheTTL time.Duration `envconfig:"REDIS_OWNER_CACHE_TTL" default:"5m"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// TicketsConfig tunes ticket query behavior.
type TicketsConfig struct {
	TimeZone string `envconfig:"TICKETS_TIMEZONE" default:"UTC"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
}

// Load reads envFile when present, then fills Config from the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if _, err := cfg.Tickets.Location(); err != nil {
		return nil, fmt.Errorf("invalid TICKETS_TIMEZONE: %w", err)
	}
	return &cfg, nil
}

// NewTestConfig returns settings suitable for tests.
func NewTestConfig() Config {
	return Config{
		App: AppConfig{
			Name:                  "meal-tickets-test",
			Env:                   "test",
			Host:                  "127.0.0.1",
			Port:                  "8889",
			Version:               "test",
			RequestTimeoutSeconds: 5,
		},
		Postgres: PostgresConfig{MaxConns: 4, MinConns: 1},
		Redis:    RedisConfig{OwnerCacheTTL: time.Minute},
		Logger:   LoggerConfig{Level: "error"},
		Tickets:  TicketsConfig{TimeZone: "UTC"},
		CORS:     CORSConfig{AllowOrigins: []string{"*"}},
	}
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the zone used to expand date-only filters.
func (t TicketsConfig) Location() (*time.Location, error) {
	if t.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(t.TimeZone)
}
