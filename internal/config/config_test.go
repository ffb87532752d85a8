package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerLoadsDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 1024, cfg.Cache.MemoizationSize)
	assert.False(t, cfg.Cache.RedisEnabled)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, m.Validate())
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Manager)
		want   string
	}{
		{"BadPort", func(m *Manager) { m.config.Server.Port = 0 }, "invalid server port"},
		{"BadDriver", func(m *Manager) { m.config.Storage.Driver = "mongodb" }, "unsupported storage driver"},
		{"MissingSQLitePath", func(m *Manager) { m.config.Storage.Path = "" }, "sqlite storage path"},
		{"MissingPostgresHost", func(m *Manager) {
			m.config.Storage.Driver = "postgres"
			m.config.Storage.Host = ""
		}, "postgres host"},
		{"RedisWithoutURL", func(m *Manager) {
			m.config.Cache.RedisEnabled = true
			m.config.Cache.RedisURL = ""
		}, "redis URL"},
		{"ZeroMemoization", func(m *Manager) { m.config.Cache.MemoizationSize = 0 }, "memoization size"},
		{"BadRateLimit", func(m *Manager) { m.config.RateLimit.RequestsPerSecond = 0 }, "requests_per_second"},
		{"BadLogLevel", func(m *Manager) { m.config.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager()
			require.NoError(t, err)

			tt.mutate(m)
			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPostgresConnectionString(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	m.config.Storage.Host = "db.internal"
	m.config.Storage.Port = 5433
	m.config.Storage.Database = "clinical_scoring"
	m.config.Storage.Username = "scorer"
	m.config.Storage.Password = "secret"
	m.config.Storage.SSLMode = "require"

	conn := m.GetPostgresConnectionString()
	assert.Contains(t, conn, "host=db.internal")
	assert.Contains(t, conn, "port=5433")
	assert.Contains(t, conn, "dbname=clinical_scoring")
	assert.Contains(t, conn, "sslmode=require")
}
