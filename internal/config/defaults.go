package config

import "time"

// Reference defaults.  The 24h cache TTL and the 30/50 topK clamps mirror the
// behaviour of the production collection pipeline this engine answers over.
const (
	defaultServerPort      = 8080
	defaultTopKMax         = 30
	defaultListAllTopK     = 50
	defaultCacheTTL        = 24 * time.Hour
	defaultModelTimeout    = 300 * time.Second
	defaultMaxIterations   = 3
	defaultEmbeddingDim    = 768
	defaultShutdownTimeout = 30 * time.Second
)

// NewDefaultConfig returns a Config populated entirely with defaults: an
// in-memory cache, no Kafka consumer, metrics on.  Suitable for tests and
// for local runs without a config file.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset field of cfg in place.  Explicitly set
// values are never touched, so it is safe to call after unmarshalling a
// partial config file.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 6 * time.Minute // answers may wait on the model backend
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = 10
	}
	if cfg.Postgres.ConnMaxLifetime == 0 {
		cfg.Postgres.ConnMaxLifetime = time.Hour
	}

	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "biopartner"
	}

	if cfg.Milvus.DBName == "" {
		cfg.Milvus.DBName = "default"
	}
	if cfg.Milvus.Collection == "" {
		cfg.Milvus.Collection = "drug_records"
	}
	if cfg.Milvus.EmbeddingDim == 0 {
		cfg.Milvus.EmbeddingDim = defaultEmbeddingDim
	}
	if cfg.Milvus.MetricType == "" {
		cfg.Milvus.MetricType = "L2"
	}
	if cfg.Milvus.ConnectTimeout == 0 {
		cfg.Milvus.ConnectTimeout = 10 * time.Second
	}
	if cfg.Milvus.RequestTimeout == 0 {
		cfg.Milvus.RequestTimeout = 30 * time.Second
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}

	if cfg.Model.Model == "" {
		cfg.Model.Model = "gpt-4o-mini"
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = defaultModelTimeout
	}
	if cfg.Model.MaxIterations == 0 {
		cfg.Model.MaxIterations = defaultMaxIterations
	}

	if cfg.Search.TopKMax == 0 {
		cfg.Search.TopKMax = defaultTopKMax
	}
	if cfg.Search.ListAllTopK == 0 {
		cfg.Search.ListAllTopK = defaultListAllTopK
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = defaultCacheTTL
	}

	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "biopartner-engine"
	}
	if cfg.Kafka.ReindexTopic == "" {
		cfg.Kafka.ReindexTopic = "index.rebuilt"
	}
	if cfg.Kafka.MinBytes == 0 {
		cfg.Kafka.MinBytes = 1
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = 10 << 20
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "biopartner"
	}
}
