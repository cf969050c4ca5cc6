package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvTesting)
	t.Setenv("MONGODB_URI", "mongodb://ignored:27017")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "db44_test", cfg.Database.Name)
	assert.Empty(t, cfg.Database.URI)
	assert.True(t, cfg.UsesMemoryStore())
	assert.False(t, cfg.ShouldReset())
	assert.Equal(t, 6*time.Hour, cfg.Session.TTL)
}

func TestLoadEnvironments(t *testing.T) {
	t.Setenv("APP_ENV", EnvDevelopment)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://mongo:27017/db44_dev", cfg.Database.URI)
	assert.True(t, cfg.ShouldReset())

	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("DB_USERNAME", "u")
	t.Setenv("DB_PASSWORD", "p")
	t.Setenv("DB_URL", "cluster.example.net")
	t.Setenv("SESSION_SECRET", "a-long-random-value")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb+srv://u:p@cluster.example.net", cfg.Database.URI)
	assert.Equal(t, "db44", cfg.Database.Name)

	t.Setenv("MONGODB_URI", "mongodb://override:27017")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://override:27017", cfg.Database.URI)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("APP_ENV", EnvTesting)
	t.Setenv("SESSION_BACKEND", "memcached")
	_, err = Load()
	assert.Error(t, err)
}

func TestProductionNeedsSessionSecret(t *testing.T) {
	t.Setenv("APP_ENV", EnvProduction)

	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_SECRET")

	t.Setenv("SESSION_SECRET", "secret")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("SESSION_SECRET", "")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("SESSION_SECRET", "a-long-random-value")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "a-long-random-value", cfg.Session.Secret)

	// Other environments keep the development default.
	t.Setenv("APP_ENV", EnvTesting)
	t.Setenv("SESSION_SECRET", "secret")
	_, err = Load()
	assert.NoError(t, err)
}

func TestDurationFallback(t *testing.T) {
	t.Setenv("APP_ENV", EnvTesting)
	t.Setenv("SESSION_TTL", "soon")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, cfg.Session.TTL)
}
