// Package querycache memoizes full question→answer tuples with TTL, access
// counters and invalidation.  The service owns the hashing, expiry and
// counting semantics; durable backends plug in through the Store interface.
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

// Entry is one cached answer.
type Entry struct {
	QueryHash      string               `json:"query_hash"`
	QueryText      string               `json:"query_text"`
	Answer         string               `json:"answer"`
	Source         string               `json:"source"`
	Citations      []biopharma.Citation `json:"citations,omitempty"`
	RecordIDs      []string             `json:"record_ids,omitempty"`
	Confidence     float64              `json:"confidence,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	ExpiresAt      time.Time            `json:"expires_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	AccessCount    int64                `json:"access_count"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *Entry) Expired(now time.Time) bool { return !now.Before(e.ExpiresAt) }

// HashQuery derives the deterministic cache key: SHA-256 over the query with
// case folded and whitespace collapsed, hex encoded.
func HashQuery(query string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// Store is the durable backend contract.  Implementations must make
// IncrementAccess atomic per key; cross-key operations may interleave freely.
type Store interface {
	// Fetch returns the entry for hash, or nil when absent.
	Fetch(ctx context.Context, hash string) (*Entry, error)
	// Upsert creates or replaces the entry keyed by its QueryHash.
	Upsert(ctx context.Context, e *Entry) error
	// Delete removes one entry, reporting whether it existed.
	Delete(ctx context.Context, hash string) (bool, error)
	// DeleteAll removes every entry, returning the count removed.
	DeleteAll(ctx context.Context) (int, error)
	// DeleteExpired removes entries whose ExpiresAt is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	// IncrementAccess atomically bumps AccessCount and stamps
	// LastAccessedAt, returning the updated entry (nil when absent).
	IncrementAccess(ctx context.Context, hash string, now time.Time) (*Entry, error)
	// List returns every entry; order is unspecified.
	List(ctx context.Context) ([]*Entry, error)
}

// Stats summarises cache state for the admin API.
type Stats struct {
	TotalEntries   int          `json:"total_entries"`
	ValidEntries   int          `json:"valid_entries"`
	ExpiredEntries int          `json:"expired_entries"`
	MostAccessed   []AccessStat `json:"most_accessed"`
}

// AccessStat is one row of the most-accessed report.
type AccessStat struct {
	Query       string `json:"query"`
	AccessCount int64  `json:"access_count"`
}

// mostAccessedLimit bounds the stats report.
const mostAccessedLimit = 5

// Cache implements the query-cache semantics over a Store.
type Cache struct {
	store   Store
	ttl     time.Duration
	logger  logging.Logger
	metrics *prometheus.Metrics
	now     func() time.Time
}

// Option customises Cache construction.
type Option func(*Cache)

// WithClock substitutes the time source; tests use this to step through TTL
// expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics attaches a metrics instance.
func WithMetrics(m *prometheus.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New constructs a Cache.  A non-positive ttl selects the 24h default.
func New(store Store, ttl time.Duration, logger logging.Logger, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c := &Cache{
		store:   store,
		ttl:     ttl,
		logger:  logger,
		metrics: prometheus.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get looks the query up.  A live entry comes back with its access counter
// already incremented; an expired entry is deleted lazily and reported as a
// miss.
func (c *Cache) Get(ctx context.Context, query string) (*Entry, bool) {
	hash := HashQuery(query)
	now := c.now()

	e, err := c.store.Fetch(ctx, hash)
	if err != nil {
		c.logger.Warn("cache fetch failed", logging.String("query_hash", hash), logging.Err(err))
		c.metrics.CacheOps.WithLabelValues("get", "error").Inc()
		return nil, false
	}
	if e == nil {
		c.metrics.CacheOps.WithLabelValues("get", "miss").Inc()
		return nil, false
	}
	if e.Expired(now) {
		if _, err := c.store.Delete(ctx, hash); err != nil {
			c.logger.Warn("lazy expiry delete failed", logging.String("query_hash", hash), logging.Err(err))
		}
		c.metrics.CacheOps.WithLabelValues("get", "expired").Inc()
		return nil, false
	}

	updated, err := c.store.IncrementAccess(ctx, hash, now)
	if err != nil || updated == nil {
		// The entry answered the lookup; a lost counter update is logged,
		// not surfaced.
		c.logger.Warn("access-count update failed", logging.String("query_hash", hash), logging.Err(err))
		c.metrics.CacheOps.WithLabelValues("get", "hit").Inc()
		return e, true
	}
	c.metrics.CacheOps.WithLabelValues("get", "hit").Inc()
	return updated, true
}

// Put upserts the answer for a query, resetting the access counter and
// stamping a fresh TTL.  It returns false — leaving prior state intact — on
// storage failure or when ctx is already cancelled, so abandoned requests
// never publish partial work.
func (c *Cache) Put(ctx context.Context, query, answer, source string,
	citations []biopharma.Citation, recordIDs []string) bool {

	if ctx.Err() != nil {
		return false
	}
	now := c.now()
	e := &Entry{
		QueryHash:      HashQuery(query),
		QueryText:      query,
		Answer:         answer,
		Source:         source,
		Citations:      citations,
		RecordIDs:      recordIDs,
		CreatedAt:      now,
		ExpiresAt:      now.Add(c.ttl),
		LastAccessedAt: now,
		AccessCount:    0,
	}
	if err := c.store.Upsert(ctx, e); err != nil {
		c.logger.Warn("cache write failed",
			logging.String("query_hash", e.QueryHash), logging.Err(err))
		c.metrics.CacheOps.WithLabelValues("put", "error").Inc()
		return false
	}
	c.metrics.CacheOps.WithLabelValues("put", "ok").Inc()
	return true
}

// Invalidate deletes one entry by query text, or every entry when query is
// blank.  It returns the number removed.
func (c *Cache) Invalidate(ctx context.Context, query string) (int, error) {
	if strings.TrimSpace(query) == "" {
		n, err := c.store.DeleteAll(ctx)
		if err == nil {
			c.metrics.CacheOps.WithLabelValues("invalidate", "ok").Add(float64(n))
		}
		return n, err
	}
	existed, err := c.store.Delete(ctx, HashQuery(query))
	if err != nil {
		return 0, err
	}
	if !existed {
		return 0, nil
	}
	c.metrics.CacheOps.WithLabelValues("invalidate", "ok").Inc()
	return 1, nil
}

// SweepExpired bulk-deletes entries past their TTL.  Maintenance only —
// correctness relies on the lazy path in Get.
func (c *Cache) SweepExpired(ctx context.Context) (int, error) {
	n, err := c.store.DeleteExpired(ctx, c.now())
	if err == nil {
		c.metrics.CacheOps.WithLabelValues("sweep", "ok").Add(float64(n))
	}
	return n, err
}

// Stats reports entry counts and the top most-accessed queries.
func (c *Cache) Stats(ctx context.Context) (*Stats, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now()

	s := &Stats{TotalEntries: len(entries)}
	live := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e.Expired(now) {
			s.ExpiredEntries++
			continue
		}
		s.ValidEntries++
		live = append(live, e)
	}

	sort.Slice(live, func(i, j int) bool {
		if live[i].AccessCount != live[j].AccessCount {
			return live[i].AccessCount > live[j].AccessCount
		}
		return live[i].QueryText < live[j].QueryText
	})
	for i, e := range live {
		if i == mostAccessedLimit {
			break
		}
		s.MostAccessed = append(s.MostAccessed, AccessStat{
			Query:       e.QueryText,
			AccessCount: e.AccessCount,
		})
	}
	return s, nil
}
