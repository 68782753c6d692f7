package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "nonexistent.toml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "thucydides", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "thucydides_sources", cfg.Qdrant.Collection)
	assert.Equal(t, "dialogue.turn.persist", cfg.RabbitMQ.TurnPersistQueue)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "nonexistent.toml")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("QDRANT_URL", "http://qdrant:6333")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, "http://qdrant:6333", cfg.Qdrant.URL)
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "app"
	cfg.MySQL.Password = "pw"
	assert.Equal(t,
		"app:pw@tcp(127.0.0.1:3306)/thucydides?parseTime=true&loc=Local&charset=utf8mb4",
		cfg.MySQLDSN())
}
