package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"DB_DSN": "postgres://localhost/educatch"}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 180*24*time.Hour, cfg.LookAhead)
	assert.Equal(t, int64(6), cfg.SafeguardingQuestionID)
	assert.Equal(t, 2*time.Hour, cfg.DemoSessionTTL)
	assert.Equal(t, "*/15 * * * *", cfg.DemoJanitorCron)
	assert.False(t, cfg.Demo())
	assert.Empty(t, cfg.TelegramTutors)
}

func TestMemoryStorage(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"STORAGE":          "Memory",
		"LOOKAHEAD_DAYS":   "30",
		"DEMO_SESSION_TTL": "45m",
		"TELEGRAM_TUTORS":  "100:1, 200:2",
		"LOG_LEVEL":        "WARN",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Demo())
	assert.Equal(t, 30*24*time.Hour, cfg.LookAhead)
	assert.Equal(t, 45*time.Minute, cfg.DemoSessionTTL)
	assert.Equal(t, map[int64]int64{100: 1, 200: 2}, cfg.TelegramTutors)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without dsn": {},
		"unknown storage":      {"STORAGE": "sqlite"},
		"bad lookahead":        {"STORAGE": "memory", "LOOKAHEAD_DAYS": "soon"},
		"zero lookahead":       {"STORAGE": "memory", "LOOKAHEAD_DAYS": "0"},
		"bad ttl":              {"STORAGE": "memory", "DEMO_SESSION_TTL": "forever"},
		"bad tutors":           {"STORAGE": "memory", "TELEGRAM_TUTORS": "100"},
		"bad log level":        {"STORAGE": "memory", "LOG_LEVEL": "loud"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(vars))
			assert.Error(t, err)
		})
	}
}
