// Package config loads runtime configuration from config.toml and
// REPAIRPOS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"repairpos/internal/core/apperror"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Worker   WorkerConfig
	Seed     SeedConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds PostgreSQL pool settings
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	StatementTimeout time.Duration
}

// RedisConfig holds the quantity cache connection
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string
	Development bool
}

// WorkerConfig controls the cache rebuild loop
type WorkerConfig struct {
	RebuildInterval time.Duration
	Lookback        time.Duration
}

// SeedConfig describes the default currency/tax created on bootstrap
type SeedConfig struct {
	CurrencyName string
	CurrencyCode string
	TaxCode      string
	TaxRate      string
}

// Load reads configuration.
// Priority (highest to lowest):
// 1. Environment variables with REPAIRPOS_ prefix (e.g. REPAIRPOS_DATABASE_DSN)
// 2. config.toml in one of paths (or ".")
// 3. Built-in defaults
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("REPAIRPOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			DSN:              v.GetString("database.dsn"),
			MaxConns:         v.GetInt32("database.max_conns"),
			MinConns:         v.GetInt32("database.min_conns"),
			MaxConnLifetime:  v.GetDuration("database.max_conn_lifetime"),
			MaxConnIdleTime:  v.GetDuration("database.max_conn_idle_time"),
			StatementTimeout: v.GetDuration("database.statement_timeout"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		Worker: WorkerConfig{
			RebuildInterval: v.GetDuration("worker.rebuild_interval"),
			Lookback:        v.GetDuration("worker.lookback"),
		},
		Seed: SeedConfig{
			CurrencyName: v.GetString("seed.currency_name"),
			CurrencyCode: v.GetString("seed.currency_code"),
			TaxCode:      v.GetString("seed.tax_code"),
			TaxRate:      v.GetString("seed.tax_rate"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "repairpos")
	v.SetDefault("app.env", "development")

	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.statement_timeout", 30*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("worker.rebuild_interval", 5*time.Minute)
	v.SetDefault("worker.lookback", time.Hour)

	v.SetDefault("seed.currency_name", "US Dollar")
	v.SetDefault("seed.currency_code", "USD")
	v.SetDefault("seed.tax_code", "DEFAULT")
	v.SetDefault("seed.tax_rate", "0")
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return apperror.NewValidation("database dsn is required").
			WithDetail("field", "database.dsn")
	}
	if c.Database.MaxConns <= 0 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return apperror.NewValidation("invalid database pool size").
			WithDetail("maxConns", c.Database.MaxConns).
			WithDetail("minConns", c.Database.MinConns)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return apperror.NewValidation("redis addr is required when redis is enabled").
			WithDetail("field", "redis.addr")
	}
	if c.Worker.RebuildInterval <= 0 {
		return apperror.NewValidation("worker rebuild interval must be positive").
			WithDetail("field", "worker.rebuild_interval")
	}
	return nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
