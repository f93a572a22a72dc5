package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/draftroom/internal/engine"
)

type Config struct {
	HTTPAddr           string              `mapstructure:"http_addr"`
	DatabaseURL        string              `mapstructure:"database_url"`
	LogLevel           string              `mapstructure:"log_level"`
	LogDev             bool                `mapstructure:"log_dev"`
	DefaultBanSeconds  int                 `mapstructure:"default_ban_seconds"`
	DefaultPickSeconds int                 `mapstructure:"default_pick_seconds"`
	SweepInterval      time.Duration       `mapstructure:"sweep_interval"`
	SeriesPolicy       engine.SeriesPolicy `mapstructure:"series_policy"`
	DBMaxOpenConns     int                 `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns     int                 `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime  time.Duration       `mapstructure:"db_conn_max_lifetime"`
}

var defaults = map[string]any{
	"http_addr":            ":8080",
	"database_url":         "",
	"log_level":            "info",
	"log_dev":              false,
	"default_ban_seconds":  30,
	"default_pick_seconds": 30,
	"sweep_interval":       time.Second,
	"series_policy":        string(engine.PolicyPlayAll),
	"db_max_open_conns":    20,
	"db_max_idle_conns":    5,
	"db_conn_max_lifetime": 30 * time.Minute,
}

// Load reads the configuration from the environment. A .env file in the working directory is
// loaded first if present; variables already set win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.SeriesPolicy {
	case engine.PolicyPlayAll, engine.PolicyMajority:
	default:
		return fmt.Errorf("SERIES_POLICY must be %q or %q, got %q", engine.PolicyPlayAll, engine.PolicyMajority, c.SeriesPolicy)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.DefaultBanSeconds <= 0 || c.DefaultPickSeconds <= 0 {
		return fmt.Errorf("default turn timers must be positive")
	}
	return nil
}
