// Package search implements the vector search engine: query-side target
// expansion, topK clamping, similarity lookup, and deterministic ordering of
// scored hits.
package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/domain/entity"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

// ============================================================================
// Ports
// ============================================================================

// Embedder converts text into the index's vector space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex answers nearest-neighbour queries.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int) ([]biopharma.IndexMatch, error)
}

// ============================================================================
// Engine
// ============================================================================

// Config holds the engine tunables.
type Config struct {
	// TopKMax clamps ordinary searches; ListAllTopK applies when the query
	// carries list-all phrasing.
	TopKMax     int
	ListAllTopK int
	// TierOrder breaks score ties, most trusted first.  Empty selects the
	// default order.
	TierOrder []biopharma.SourceTier
}

// Engine executes similarity searches with synonym-aware query expansion.
// An unreachable index degrades to an empty hit set: callers must read empty
// results as "no evidence", never as "entity does not exist".
type Engine struct {
	index      VectorIndex
	embedder   Embedder
	normalizer *entity.Normalizer
	cfg        Config
	logger     logging.Logger
	metrics    *prometheus.Metrics
}

// NewEngine wires an Engine.  Zero config fields take reference defaults.
func NewEngine(index VectorIndex, embedder Embedder, normalizer *entity.Normalizer,
	cfg Config, logger logging.Logger, metrics *prometheus.Metrics) *Engine {

	if cfg.TopKMax <= 0 {
		cfg.TopKMax = 30
	}
	if cfg.ListAllTopK < cfg.TopKMax {
		cfg.ListAllTopK = 50
	}
	if len(cfg.TierOrder) == 0 {
		cfg.TierOrder = biopharma.DefaultTierOrder
	}
	if normalizer == nil {
		normalizer = entity.NewNormalizer(nil)
	}
	if metrics == nil {
		metrics = prometheus.Nop()
	}
	return &Engine{
		index:      index,
		embedder:   embedder,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// listAllPhrases widen the topK clamp when present in the query.
var listAllPhrases = []string{"list all", "show all", "all companies"}

// IsListAll reports whether the query requests comprehensive enumeration.
func IsListAll(query string) bool {
	q := strings.ToLower(query)
	for _, p := range listAllPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// targetTokenRe matches candidate target tokens: uppercase alphanumerics,
// 2–8 chars, optionally hyphenated ("PD-1", "HER2", "CTLA-4").
var targetTokenRe = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,7}(?:-[A-Z0-9]{1,4})?\b`)

// targetStopwords are uppercase tokens that look like targets but are not.
var targetStopwords = map[string]bool{
	"LIST": true, "ALL": true, "SHOW": true, "WHAT": true, "WHICH": true,
	"THE": true, "ARE": true, "FOR": true, "AND": true, "WITH": true,
	"DRUG": true, "DRUGS": true, "FDA": true, "EMA": true, "US": true,
	"USA": true, "EU": true, "II": true, "III": true, "IV": true, "VS": true,
	"MAB": true, "ADC": true, "NCT": true,
}

// ExtractTarget pulls the first candidate target token out of a query, or ""
// when none is present.
func ExtractTarget(query string) string {
	for _, tok := range targetTokenRe.FindAllString(query, -1) {
		if len(tok) < 2 || targetStopwords[tok] {
			continue
		}
		return tok
	}
	return ""
}

// clampTopK applies the configured bounds, widening for list-all phrasing.
func (e *Engine) clampTopK(query string, topK int) int {
	max := e.cfg.TopKMax
	if IsListAll(query) {
		max = e.cfg.ListAllTopK
		if topK < max {
			return max
		}
	}
	if topK <= 0 || topK > max {
		return max
	}
	return topK
}

// expandQuery rewrites the query when it names a known synonym group: the
// top 3 variant phrasings are OR-combined so one embedding covers the whole
// group.  Queries without a recognised target pass through unchanged.
func (e *Engine) expandQuery(query string) string {
	token := ExtractTarget(query)
	if token == "" {
		return query
	}
	variants := e.normalizer.ExpandTarget(token)
	if len(variants) < 2 {
		return query
	}
	if len(variants) > 3 {
		variants = variants[:3]
	}
	parts := make([]string, len(variants))
	for i, v := range variants {
		parts[i] = v + " companies drugs"
	}
	return strings.Join(parts, " OR ")
}

// Search executes one similarity lookup and returns up to topK hits sorted by
// descending similarity, ties broken by source-tier precedence then insertion
// order.  Index or embedding failures yield an empty, non-error result.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]biopharma.ScoredHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.InvalidParam("query must not be empty")
	}
	topK = e.clampTopK(query, topK)
	expanded := e.expandQuery(query)

	vector, err := e.embedder.Embed(ctx, expanded)
	if err != nil {
		e.logger.Warn("embedding failed, returning empty hit set",
			logging.String("query", query), logging.Err(err))
		e.metrics.SearchesTotal.WithLabelValues("index_error").Inc()
		return nil, nil
	}

	matches, err := e.index.Query(ctx, vector, topK)
	if err != nil {
		e.logger.Warn("similarity index unavailable, returning empty hit set",
			logging.String("query", query), logging.Err(err))
		e.metrics.SearchesTotal.WithLabelValues("index_error").Inc()
		return nil, nil
	}

	hits := e.rank(matches)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	if len(hits) == 0 {
		e.metrics.SearchesTotal.WithLabelValues("empty").Inc()
	} else {
		e.metrics.SearchesTotal.WithLabelValues("ok").Inc()
	}
	return hits, nil
}

// SearchMulti issues the base query plus up to 3 target-variant queries and
// merges the hit sets, keeping each record's best score.  Used by the
// reasoning loop for comprehensive-enumeration questions.
func (e *Engine) SearchMulti(ctx context.Context, query string, topK int) ([]biopharma.ScoredHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.InvalidParam("query must not be empty")
	}

	queries := []string{query}
	if token := ExtractTarget(query); token != "" {
		variants := e.normalizer.ExpandTarget(token)
		for _, v := range variants {
			if len(queries) == maxMultiQueries {
				break
			}
			queries = append(queries, v+" companies drugs")
		}
	}
	return e.SearchQueries(ctx, queries, topK)
}

// maxMultiQueries caps a multi-search batch.
const maxMultiQueries = 4

// SearchQueries runs each query and merges the hit sets, keeping each
// record's best score.  At most 4 queries are executed; blank ones are
// skipped.
func (e *Engine) SearchQueries(ctx context.Context, queries []string, topK int) ([]biopharma.ScoredHit, error) {
	best := make(map[string]biopharma.ScoredHit)
	var order []string
	executed := 0
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if executed == maxMultiQueries {
			break
		}
		executed++
		hits, err := e.Search(ctx, q, topK)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			prev, seen := best[h.Record.ID]
			if !seen {
				best[h.Record.ID] = h
				order = append(order, h.Record.ID)
				continue
			}
			if h.Score > prev.Score {
				best[h.Record.ID] = h
			}
		}
	}
	if executed == 0 {
		return nil, errors.InvalidParam("at least one non-empty query required")
	}

	merged := make([]biopharma.ScoredHit, 0, len(order))
	for _, id := range order {
		merged = append(merged, best[id])
	}
	merged = e.sortHits(merged)
	if len(merged) > topK && topK > 0 {
		merged = merged[:topK]
	}
	return merged, nil
}

// rank converts raw matches to scored hits and orders them.
func (e *Engine) rank(matches []biopharma.IndexMatch) []biopharma.ScoredHit {
	hits := make([]biopharma.ScoredHit, 0, len(matches))
	for _, m := range matches {
		if m.Distance < 0 {
			m.Distance = 0
		}
		hits = append(hits, biopharma.ScoredHit{
			Record: m.Record,
			// Monotone map from distance to (0, 1]: identical vectors score 1.
			Score: 1.0 / (1.0 + m.Distance),
		})
	}
	return e.sortHits(hits)
}

// sortHits orders by descending score, then tier precedence, preserving
// insertion order for full ties (stable sort).
func (e *Engine) sortHits(hits []biopharma.ScoredHit) []biopharma.ScoredHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return biopharma.TierRank(hits[i].Record.Tier, e.cfg.TierOrder) <
			biopharma.TierRank(hits[j].Record.Tier, e.cfg.TierOrder)
	})
	return hits
}
