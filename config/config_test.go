package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "LOCAL", cfg.EnvType)
	assert.Equal(t, "5000", cfg.ServerPort)
	assert.Equal(t, "auto", cfg.VitalsSourceMode)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 8, cfg.PollConcurrency)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.False(t, cfg.MQTTEnabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("VITALS_SOURCE_MODE", "simulator")
	t.Setenv("VITALS_POLL_INTERVAL", "500ms")
	t.Setenv("VITALS_POLL_CONCURRENCY", "2")
	t.Setenv("MQTT_ENABLED", "true")

	cfg := LoadConfig()

	assert.Equal(t, "simulator", cfg.VitalsSourceMode)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 2, cfg.PollConcurrency)
	assert.True(t, cfg.MQTTEnabled)
}

func TestLoadConfigEnvPrefix(t *testing.T) {
	t.Setenv("ENV_TYPE", "SERVER")
	t.Setenv("SERVER_DB_HOST", "db.internal")
	t.Setenv("DB_HOST", "ignored")

	cfg := LoadConfig()
	assert.Equal(t, "SERVER", cfg.EnvType)
	assert.Equal(t, "db.internal", cfg.DBHost)
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "localhost",
		DBUser:     "root",
		DBPassword: "pw",
		DBName:     "auracare_db",
		DBPort:     "3306",
	}
	dsn := cfg.GetDSN()
	require.Contains(t, dsn, "root:pw@tcp(localhost:3306)/auracare_db")
	require.Contains(t, dsn, "parseTime=True")
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "1m30s")
	assert.Equal(t, 90*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))

	// 非法值回退默认
	t.Setenv("TEST_DURATION", "later")
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
}
