// Package milvus adapts the Milvus vector store to the engine's
// similarity-index boundary: nearest-neighbour queries for the search engine
// and batch inserts for the ingestion service.
package milvus

import (
	"context"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
)

// newMilvusClient is a factory variable so tests can substitute a stub.
var newMilvusClient = client.NewClient

// ClientConfig holds the Milvus connection parameters.
type ClientConfig struct {
	Address        string
	Username       string
	Password       string
	DBName         string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// Client manages one Milvus connection.  It is safe for concurrent use.
type Client struct {
	mu     sync.RWMutex
	mc     client.Client
	config ClientConfig
	logger logging.Logger
}

// NewClient connects to Milvus and verifies the connection.
func NewClient(cfg ClientConfig, logger logging.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New(errors.ErrCodeValidation, "milvus address is required")
	}
	if cfg.DBName == "" {
		cfg.DBName = "default"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	mc, err := newMilvusClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to connect to milvus")
	}

	logger.Info("milvus client connected", logging.String("address", cfg.Address))
	return &Client{mc: mc, config: cfg, logger: logger}, nil
}

// Raw returns the underlying SDK client.
func (c *Client) Raw() client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mc
}

// requestCtx derives a context bounded by the configured request timeout.
func (c *Client) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.config.RequestTimeout)
}

// CheckHealth verifies the connection is alive.
func (c *Client) CheckHealth(ctx context.Context) error {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()
	if _, err := c.Raw().CheckHealth(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "milvus health check failed")
	}
	return nil
}

// Close releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mc != nil {
		if err := c.mc.Close(); err != nil {
			return err
		}
		c.mc = nil
	}
	c.logger.Info("milvus client closed")
	return nil
}
