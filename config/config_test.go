package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"TIMECLOCK_ORG_TIMEZONE": "UTC",
	}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.ListenAddr)
	assert.Equal(t, "timeclock.db", cfg.Server.DBPath)
	assert.False(t, cfg.Server.Dev)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.Origins())
	assert.Equal(t, 366, cfg.Org.MaxRangeDays)
	assert.Equal(t, 5*time.Second, cfg.Recognition.Timeout)
	assert.InDelta(t, 98.0, cfg.Recognition.Threshold, 0.0001)
	assert.True(t, cfg.Cache.Enabled)
	assert.EqualValues(t, 10000, cfg.Cache.MaxCost)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, time.UTC, cfg.Org.Location())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := config.LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"TIMECLOCK_ORG_TIMEZONE":           "UTC",
		"TIMECLOCK_SERVER_DEV":             "true",
		"TIMECLOCK_SERVER_ALLOWED_ORIGINS": "http://a.test, http://b.test",
		"TIMECLOCK_ORG_NAME":               "Abarrotes Warp",
		"TIMECLOCK_CACHE_ENABLED":          "false",
		"TIMECLOCK_RECOGNITION_TIMEOUT":    "750ms",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Server.Dev)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.Origins())
	assert.Equal(t, "Abarrotes Warp", cfg.Org.Name)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 750*time.Millisecond, cfg.Recognition.Timeout)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown zone":   {"TIMECLOCK_ORG_TIMEZONE": "Mars/Olympus"},
		"zero range":     {"TIMECLOCK_ORG_TIMEZONE": "UTC", "TIMECLOCK_ORG_MAX_RANGE_DAYS": "0"},
		"threshold":      {"TIMECLOCK_ORG_TIMEZONE": "UTC", "TIMECLOCK_RECOGNITION_THRESHOLD": "120"},
		"malformed bool": {"TIMECLOCK_ORG_TIMEZONE": "UTC", "TIMECLOCK_SERVER_DEV": "maybe"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadFrom(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
