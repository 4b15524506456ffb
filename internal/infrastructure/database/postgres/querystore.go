package postgres

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/querycache"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

const entryColumns = `query_hash, query_text, answer, source, citations, record_ids,
	confidence, created_at, expires_at, last_accessed_at, access_count`

// QueryStore is the PostgreSQL-backed querycache.Store.  Access counting
// rides on a single UPDATE ... RETURNING, so it is serializable per key
// without explicit locking.
type QueryStore struct {
	pool   *Pool
	logger logging.Logger
}

// NewQueryStore wires a QueryStore over an established pool.
func NewQueryStore(pool *Pool, logger logging.Logger) *QueryStore {
	return &QueryStore{pool: pool, logger: logger}
}

func (s *QueryStore) Fetch(ctx context.Context, hash string) (*querycache.Entry, error) {
	row := s.pool.Raw().QueryRow(ctx,
		`SELECT `+entryColumns+` FROM query_cache WHERE query_hash = $1`, hash)
	e, err := scanEntry(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheRead, "postgres fetch failed")
	}
	return e, nil
}

func (s *QueryStore) Upsert(ctx context.Context, e *querycache.Entry) error {
	citations, err := json.Marshal(citationsOrEmpty(e.Citations))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheWrite, "encode citations")
	}
	_, err = s.pool.Raw().Exec(ctx, `
		INSERT INTO query_cache (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (query_hash) DO UPDATE SET
			query_text = EXCLUDED.query_text,
			answer = EXCLUDED.answer,
			source = EXCLUDED.source,
			citations = EXCLUDED.citations,
			record_ids = EXCLUDED.record_ids,
			confidence = EXCLUDED.confidence,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			last_accessed_at = EXCLUDED.last_accessed_at,
			access_count = EXCLUDED.access_count`,
		e.QueryHash, e.QueryText, e.Answer, e.Source, citations, recordIDsOrEmpty(e.RecordIDs),
		e.Confidence, e.CreatedAt, e.ExpiresAt, e.LastAccessedAt, e.AccessCount,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheWrite, "postgres upsert failed")
	}
	return nil
}

func (s *QueryStore) Delete(ctx context.Context, hash string) (bool, error) {
	tag, err := s.pool.Raw().Exec(ctx,
		`DELETE FROM query_cache WHERE query_hash = $1`, hash)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheWrite, "postgres delete failed")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *QueryStore) DeleteAll(ctx context.Context) (int, error) {
	tag, err := s.pool.Raw().Exec(ctx, `DELETE FROM query_cache`)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheWrite, "postgres delete-all failed")
	}
	return int(tag.RowsAffected()), nil
}

func (s *QueryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Raw().Exec(ctx,
		`DELETE FROM query_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheWrite, "postgres sweep failed")
	}
	return int(tag.RowsAffected()), nil
}

func (s *QueryStore) IncrementAccess(ctx context.Context, hash string, now time.Time) (*querycache.Entry, error) {
	row := s.pool.Raw().QueryRow(ctx, `
		UPDATE query_cache
		SET access_count = access_count + 1, last_accessed_at = $2
		WHERE query_hash = $1
		RETURNING `+entryColumns, hash, now)
	e, err := scanEntry(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheWrite, "postgres access-count update failed")
	}
	return e, nil
}

func (s *QueryStore) List(ctx context.Context) ([]*querycache.Entry, error) {
	rows, err := s.pool.Raw().Query(ctx,
		`SELECT `+entryColumns+` FROM query_cache`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheRead, "postgres list failed")
	}
	defer rows.Close()

	var out []*querycache.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheRead, "postgres list scan failed")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheRead, "postgres list iteration failed")
	}
	return out, nil
}

func scanEntry(row pgx.Row) (*querycache.Entry, error) {
	var (
		e            querycache.Entry
		citationsRaw []byte
	)
	err := row.Scan(&e.QueryHash, &e.QueryText, &e.Answer, &e.Source, &citationsRaw,
		&e.RecordIDs, &e.Confidence, &e.CreatedAt, &e.ExpiresAt, &e.LastAccessedAt, &e.AccessCount)
	if err != nil {
		return nil, err
	}
	if len(citationsRaw) > 0 {
		if err := json.Unmarshal(citationsRaw, &e.Citations); err != nil {
			return nil, err
		}
	}
	if len(e.Citations) == 0 {
		e.Citations = nil
	}
	return &e, nil
}

func citationsOrEmpty(c []biopharma.Citation) []biopharma.Citation {
	if c == nil {
		return []biopharma.Citation{}
	}
	return c
}

func recordIDsOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
