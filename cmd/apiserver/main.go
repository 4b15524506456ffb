// Command apiserver runs the Biopartnering Insights engine: the answering
// API, the vector index, the query cache, and the reindex-event consumer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/aggregate"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/ingest"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/querycache"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/rag"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/search"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/config"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/domain/entity"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/database/postgres"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/database/redis"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/embedding"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/messaging/kafka"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/search/milvus"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/intelligence/llm"
	httpserver "github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/interfaces/http"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/interfaces/http/handlers"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting biopartner engine",
		logging.String("version", config.Version),
		logging.String("cache_backend", cfg.Cache.Backend))

	if _, statErr := os.Stat(*configPath); statErr == nil {
		config.Watch(*configPath, func(next *config.Config) {
			logger.Info("configuration file changed; restart to apply",
				logging.String("path", *configPath),
				logging.String("cache_backend", next.Cache.Backend))
		})
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("engine failed", logging.Err(err))
	}
}

// loadConfig reads the config file, falling back to defaults when the default
// path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if path != defaultConfigPath {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		fmt.Fprintln(os.Stderr, "warning: no config file found, using defaults")
		return config.NewDefaultConfig(), nil
	}
	return config.Load(path)
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	setGinMode(cfg.Server.Mode)

	metrics := prometheus.New(cfg.Metrics.Namespace)

	// Vector store.
	milvusClient, err := milvus.NewClient(milvus.ClientConfig{
		Address:        cfg.Milvus.Addr,
		DBName:         cfg.Milvus.DBName,
		ConnectTimeout: cfg.Milvus.ConnectTimeout,
		RequestTimeout: cfg.Milvus.RequestTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("milvus: %w", err)
	}
	defer milvusClient.Close()

	collectionCfg := milvus.CollectionConfig{
		Name:         cfg.Milvus.Collection,
		EmbeddingDim: cfg.Milvus.EmbeddingDim,
		MetricType:   milvusentity.MetricType(cfg.Milvus.MetricType),
	}
	if err := milvus.EnsureCollection(ctx, milvusClient, collectionCfg, logger); err != nil {
		return fmt.Errorf("milvus collection: %w", err)
	}
	index := milvus.NewIndex(milvusClient, collectionCfg, logger)

	// Embedding and model backends.
	embedder, err := embedding.NewClient(embedding.ClientConfig{
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		Timeout: cfg.Embedding.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("embedding client: %w", err)
	}
	backend, err := llm.NewHTTPBackend(llm.HTTPConfig{
		BaseURL: cfg.Model.BaseURL,
		Model:   cfg.Model.Model,
		Timeout: cfg.Model.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("model backend: %w", err)
	}

	// Query cache on the configured store.
	store, pingers, closeStore, err := buildCacheStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	cache := querycache.New(store, cfg.Cache.TTL, logger, querycache.WithMetrics(metrics))

	// Search and answer path.
	normalizer := entity.NewNormalizer(entity.DefaultSynonymTable())
	engine := search.NewEngine(index, embedder, normalizer, search.Config{
		TopKMax:     cfg.Search.TopKMax,
		ListAllTopK: cfg.Search.ListAllTopK,
		TierOrder:   tierOrder(cfg.Search.TierOrder),
	}, logger, metrics)
	aggregator := aggregate.NewAggregator(normalizer, tierOrder(cfg.Search.TierOrder), logger)
	controller := rag.NewController(backend, engine, aggregator, rag.Config{
		MaxIterations: cfg.Model.MaxIterations,
		TopK:          cfg.Search.TopKMax,
	}, logger, rag.WithCache(cache), rag.WithMetrics(metrics))

	// Ingestion, with the rebuild announcement when Kafka is on.
	ingestOpts := []ingest.Option{ingest.WithMetrics(metrics)}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers}, logger)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		ingestOpts = append(ingestOpts, ingest.WithPublisher(producer))

		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:  cfg.Kafka.Brokers,
			GroupID:  cfg.Kafka.GroupID,
			Topic:    cfg.Kafka.ReindexTopic,
			MinBytes: cfg.Kafka.MinBytes,
			MaxBytes: cfg.Kafka.MaxBytes,
		}, invalidateOnRebuild(cache, logger), logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("kafka consumer start: %w", err)
		}
		defer consumer.Close()
	}
	ingestSvc := ingest.NewService(embedder, index, cfg.Milvus.Collection, logger, ingestOpts...)

	// HTTP surface.
	pingers["milvus"] = milvusClient.CheckHealth
	routerCfg := httpserver.RouterConfig{
		Logger:        logger.Named("http"),
		AnswerHandler: handlers.NewAnswerHandler(controller, logger),
		CacheHandler:  handlers.NewCacheHandler(cache, logger),
		IndexHandler:  handlers.NewIndexHandler(ingestSvc, logger),
		HealthHandler: handlers.NewHealthHandler(logger, pingers),
	}
	if !cfg.Metrics.Disabled {
		routerCfg.Metrics = metrics
	}
	server := httpserver.NewServer(cfg.Server.Port, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	if err := server.Stop(context.Background()); err != nil {
		logger.Error("http shutdown failed", logging.Err(err))
	}
	return nil
}

// buildCacheStore selects the query-cache backend and returns its readiness
// pingers alongside a close function for whatever it opened.
func buildCacheStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (
	querycache.Store, map[string]handlers.Pinger, func(), error) {

	pingers := map[string]handlers.Pinger{}

	switch cfg.Cache.Backend {
	case "redis":
		client, err := redis.NewClient(&redis.ClientConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("redis: %w", err)
		}
		pingers["redis"] = client.Ping
		store := redis.NewQueryStore(client, cfg.Redis.KeyPrefix, logger)
		return store, pingers, func() { _ = client.Close() }, nil

	case "postgres":
		dsn := cfg.Postgres.DSN()
		if err := postgres.RunMigrations(dsn, logger); err != nil {
			return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:             dsn,
			MaxConns:        int32(cfg.Postgres.MaxConns),
			MinConns:        int32(cfg.Postgres.MinConns),
			MaxConnLifetime: cfg.Postgres.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres: %w", err)
		}
		pingers["postgres"] = pool.HealthCheck
		return postgres.NewQueryStore(pool, logger), pingers, pool.Close, nil

	default:
		return querycache.NewMemoryStore(), pingers, func() {}, nil
	}
}

// invalidateOnRebuild drops every cached answer when the index is rebuilt.
// Cached answers may cite records the rebuild replaced, so the whole cache
// goes, not just entries naming the collection.
func invalidateOnRebuild(cache *querycache.Cache, logger logging.Logger) kafka.IndexEventHandler {
	return func(ctx context.Context, ev kafka.IndexRebuiltEvent) error {
		removed, err := cache.Invalidate(ctx, "")
		if err != nil {
			return err
		}
		logger.Info("cache invalidated after index rebuild",
			logging.String("collection", ev.Collection),
			logging.Int("record_count", ev.RecordCount),
			logging.Int("removed", removed))
		return nil
	}
}

func setGinMode(mode string) {
	switch mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
}

func tierOrder(names []string) []biopharma.SourceTier {
	if len(names) == 0 {
		return nil
	}
	order := make([]biopharma.SourceTier, 0, len(names))
	for _, n := range names {
		order = append(order, biopharma.SourceTier(n))
	}
	return order
}
