package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/querycache"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
)

// Hash fields of a cached entry. The body holds the immutable snapshot from
// the write; the mutable counters live beside it so HINCRBY stays atomic.
const (
	fieldBody       = "body"
	fieldAccess     = "access_count"
	fieldLastAccess = "last_accessed_at"
	fieldExpiresAt  = "expires_at"
)

// expiryGrace keeps keys around past their logical TTL so stats can still
// count them as expired before a sweep; Redis reclaims them afterwards.
const expiryGrace = time.Hour

// incrAccessScript bumps the counter only when the key exists, so a miss
// never materialises a phantom entry.
var incrAccessScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return false
end
redis.call("HINCRBY", KEYS[1], "access_count", 1)
redis.call("HSET", KEYS[1], "last_accessed_at", ARGV[1])
return redis.call("HGETALL", KEYS[1])
`)

// QueryStore is the Redis-backed querycache.Store: one hash per entry under
// <prefix>:qc:<hash>.
type QueryStore struct {
	client *Client
	prefix string
	logger logging.Logger
}

// NewQueryStore wires a QueryStore over an established client.
func NewQueryStore(client *Client, prefix string, logger logging.Logger) *QueryStore {
	if prefix == "" {
		prefix = "biopartner"
	}
	return &QueryStore{client: client, prefix: prefix, logger: logger}
}

func (s *QueryStore) key(hash string) string { return s.prefix + ":qc:" + hash }

func (s *QueryStore) pattern() string { return s.prefix + ":qc:*" }

func (s *QueryStore) Fetch(ctx context.Context, hash string) (*querycache.Entry, error) {
	fields, err := s.client.Raw().HGetAll(ctx, s.key(hash)).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheRead, "redis fetch failed")
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeEntry(fields)
}

func (s *QueryStore) Upsert(ctx context.Context, e *querycache.Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheWrite, "encode cache entry")
	}
	key := s.key(e.QueryHash)
	pipe := s.client.Raw().TxPipeline()
	pipe.HSet(ctx, key,
		fieldBody, string(body),
		fieldAccess, e.AccessCount,
		fieldLastAccess, e.LastAccessedAt.Format(time.RFC3339Nano),
		fieldExpiresAt, e.ExpiresAt.Format(time.RFC3339Nano),
	)
	pipe.ExpireAt(ctx, key, e.ExpiresAt.Add(expiryGrace))
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheWrite, "redis upsert failed")
	}
	return nil
}

func (s *QueryStore) Delete(ctx context.Context, hash string) (bool, error) {
	n, err := s.client.Raw().Del(ctx, s.key(hash)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheWrite, "redis delete failed")
	}
	return n > 0, nil
}

func (s *QueryStore) DeleteAll(ctx context.Context) (int, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.client.Raw().Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheWrite, "redis delete-all failed")
	}
	return int(n), nil
}

func (s *QueryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		raw, err := s.client.Raw().HGet(ctx, key, fieldExpiresAt).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return removed, errors.Wrap(err, errors.ErrCodeCacheRead, "redis sweep read failed")
		}
		expiresAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil || now.Before(expiresAt) {
			continue
		}
		n, err := s.client.Raw().Del(ctx, key).Result()
		if err != nil {
			return removed, errors.Wrap(err, errors.ErrCodeCacheWrite, "redis sweep delete failed")
		}
		removed += int(n)
	}
	return removed, nil
}

func (s *QueryStore) IncrementAccess(ctx context.Context, hash string, now time.Time) (*querycache.Entry, error) {
	res, err := incrAccessScript.Run(ctx, s.client.Raw(),
		[]string{s.key(hash)}, now.Format(time.RFC3339Nano)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheWrite, "redis access-count update failed")
	}
	reply, ok := res.([]interface{})
	if !ok {
		return nil, errors.New(errors.ErrCodeCacheRead, "unexpected script reply shape")
	}
	fields := make(map[string]string, len(reply)/2)
	for i := 0; i+1 < len(reply); i += 2 {
		k, _ := reply[i].(string)
		v, _ := reply[i+1].(string)
		fields[k] = v
	}
	return decodeEntry(fields)
}

func (s *QueryStore) List(ctx context.Context) ([]*querycache.Entry, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*querycache.Entry, 0, len(keys))
	for _, key := range keys {
		fields, err := s.client.Raw().HGetAll(ctx, key).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheRead, "redis list read failed")
		}
		if len(fields) == 0 {
			// Reclaimed between SCAN and read.
			continue
		}
		e, err := decodeEntry(fields)
		if err != nil {
			s.logger.Warn("skipping undecodable cache entry", logging.String("key", key), logging.Err(err))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *QueryStore) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Raw().Scan(ctx, 0, s.pattern(), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheRead, "redis scan failed")
	}
	return keys, nil
}

// decodeEntry rebuilds an Entry from its hash fields, overlaying the mutable
// counters on the stored body.
func decodeEntry(fields map[string]string) (*querycache.Entry, error) {
	body, ok := fields[fieldBody]
	if !ok {
		return nil, errors.New(errors.ErrCodeCacheRead, "cache entry missing body field")
	}
	var e querycache.Entry
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheRead, "decode cache entry")
	}
	if raw, ok := fields[fieldAccess]; ok {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			e.AccessCount = n
		}
	}
	if raw, ok := fields[fieldLastAccess]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			e.LastAccessedAt = ts
		}
	}
	if raw, ok := fields[fieldExpiresAt]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			e.ExpiresAt = ts
		}
	}
	return &e, nil
}
