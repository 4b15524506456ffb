package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 30, cfg.Search.TopKMax)
	assert.Equal(t, 50, cfg.Search.ListAllTopK)
	assert.Equal(t, 3, cfg.Model.MaxIterations)
	assert.Equal(t, 300*time.Second, cfg.Model.Timeout)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Cache.TTL = time.Minute
	cfg.Search.TopKMax = 10
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Search.TopKMax)
	assert.Equal(t, 50, cfg.Search.ListAllTopK, "unset fields still defaulted")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
		{"bad mode", func(c *Config) { c.Server.Mode = "production" }},
		{"bad backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis backend without addr", func(c *Config) { c.Cache.Backend = "redis"; c.Redis.Addr = "" }},
		{"postgres backend without host", func(c *Config) { c.Cache.Backend = "postgres"; c.Postgres.Host = "" }},
		{"list-all below max", func(c *Config) { c.Search.ListAllTopK = 5 }},
		{"kafka enabled without brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 8181
  mode: debug
cache:
  backend: memory
  ttl: 1h
search:
  top_k_max: 20
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 20, cfg.Search.TopKMax)
	assert.Equal(t, 50, cfg.Search.ListAllTopK, "defaults fill unset fields")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	pc := PostgresConfig{
		Host: "db", Port: 5432, User: "app", Password: "s3cret",
		DBName: "biopartner", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://app:s3cret@db:5432/biopartner?sslmode=disable", pc.DSN())
}
