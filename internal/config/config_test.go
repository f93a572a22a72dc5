package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/draftroom/internal/engine"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30, cfg.DefaultBanSeconds)
	assert.Equal(t, time.Second, cfg.SweepInterval)
	assert.Equal(t, engine.PolicyPlayAll, cfg.SeriesPolicy)
	assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLifetime)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://draft@localhost/draft")
	t.Setenv("LOG_DEV", "true")
	t.Setenv("DEFAULT_PICK_SECONDS", "45")
	t.Setenv("SWEEP_INTERVAL", "250ms")
	t.Setenv("SERIES_POLICY", "majority")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "postgres://draft@localhost/draft", cfg.DatabaseURL)
	assert.True(t, cfg.LogDev)
	assert.Equal(t, 45, cfg.DefaultPickSeconds)
	assert.Equal(t, 250*time.Millisecond, cfg.SweepInterval)
	assert.Equal(t, engine.PolicyMajority, cfg.SeriesPolicy)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SERIES_POLICY", "best_of"},
		{"SWEEP_INTERVAL", "0s"},
		{"DEFAULT_BAN_SECONDS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := load(viper.New())
			assert.Error(t, err)
		})
	}
}
