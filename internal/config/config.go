// Package config defines all configuration structures for the Biopartnering
// Insights engine.  No I/O or parsing logic lives here — only plain data
// types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
)

// Version is the engine version reported at startup and on /healthz.
const Version = "0.3.0"

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the durable
// query-cache store.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MilvusConfig holds vector-store connection parameters.
type MilvusConfig struct {
	Addr           string        `mapstructure:"addr"`
	DBName         string        `mapstructure:"db_name"`
	Collection     string        `mapstructure:"collection"`
	EmbeddingDim   int           `mapstructure:"embedding_dim"`
	MetricType     string        `mapstructure:"metric_type"` // "L2" | "IP"
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EmbeddingConfig holds the text-embedding service parameters.
type EmbeddingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ModelConfig holds the language-model backend parameters.  Temperature is
// pinned to zero inside the backend for determinism and is deliberately not
// configurable.
type ModelConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxIterations int           `mapstructure:"max_iterations"`
}

// SearchConfig holds the vector-search engine tunables.
type SearchConfig struct {
	// TopKMax clamps every search; ListAllTopK applies instead when the query
	// carries list-all phrasing.
	TopKMax     int `mapstructure:"top_k_max"`
	ListAllTopK int `mapstructure:"list_all_top_k"`
	// TierOrder lists source tiers most-trusted first.  Empty selects the
	// built-in default order.
	TierOrder []string `mapstructure:"tier_order"`
}

// CacheConfig holds query-cache parameters.
type CacheConfig struct {
	// Backend selects the store: "memory", "redis" or "postgres".
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// KafkaConfig holds the reindex-event consumer parameters.
type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	GroupID      string   `mapstructure:"group_id"`
	ReindexTopic string   `mapstructure:"reindex_topic"`
	MinBytes     int      `mapstructure:"min_bytes"`
	MaxBytes     int      `mapstructure:"max_bytes"`
}

// MetricsConfig holds Prometheus exposition parameters.  The zero value
// means enabled, so metrics are on unless explicitly disabled.
type MetricsConfig struct {
	Disabled  bool   `mapstructure:"disabled"`
	Namespace string `mapstructure:"namespace"`
}

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Log       logging.LogConfig `mapstructure:"log"`
	Postgres  PostgresConfig    `mapstructure:"postgres"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Milvus    MilvusConfig      `mapstructure:"milvus"`
	Embedding EmbeddingConfig   `mapstructure:"embedding"`
	Model     ModelConfig       `mapstructure:"model"`
	Search    SearchConfig      `mapstructure:"search"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Kafka     KafkaConfig       `mapstructure:"kafka"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
}

// Validate checks cross-field consistency.  It assumes ApplyDefaults has run,
// so it only rejects values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535], got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug|release|test, got %q", c.Server.Mode)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("cache.backend must be memory|redis|postgres, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when cache.backend is redis")
	}
	if c.Cache.Backend == "postgres" && c.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is required when cache.backend is postgres")
	}
	if c.Search.TopKMax <= 0 {
		return fmt.Errorf("search.top_k_max must be positive, got %d", c.Search.TopKMax)
	}
	if c.Search.ListAllTopK < c.Search.TopKMax {
		return fmt.Errorf("search.list_all_top_k (%d) must be >= search.top_k_max (%d)",
			c.Search.ListAllTopK, c.Search.TopKMax)
	}
	if c.Model.MaxIterations <= 0 {
		return fmt.Errorf("model.max_iterations must be positive, got %d", c.Model.MaxIterations)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka.enabled is true")
	}
	return nil
}
