// Package rag runs the reasoning loop: a bounded tool-use conversation with
// a language model over the search engine, with a deterministic fallback when
// the model cannot deliver.
package rag

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/aggregate"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/querycache"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/intelligence/llm"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

// State labels one phase of the reasoning loop.
type State string

const (
	StateReasoning         State = "reasoning"
	StateActingSearch      State = "acting_search"
	StateActingMultiSearch State = "acting_multi_search"
	StateObserving         State = "observing"
	StateAnswering         State = "answering"
	StateFallback          State = "fallback"
	StateFailed            State = "failed"
)

// Searcher is the retrieval surface the loop acts through.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]biopharma.ScoredHit, error)
	SearchQueries(ctx context.Context, queries []string, topK int) ([]biopharma.ScoredHit, error)
	SearchMulti(ctx context.Context, query string, topK int) ([]biopharma.ScoredHit, error)
}

// Config holds the controller tunables.
type Config struct {
	// MaxIterations bounds model round-trips per question.
	MaxIterations int
	// TopK is passed to searches issued by the loop; the engine clamps it.
	TopK int
}

// Controller owns the answer path: cache lookup, reasoning loop, fallback,
// cache write.  Concurrent identical questions collapse onto one loop run.
type Controller struct {
	backend    llm.Backend
	searcher   Searcher
	aggregator *aggregate.Aggregator
	cache      *querycache.Cache
	cfg        Config
	logger     logging.Logger
	metrics    *prometheus.Metrics
	group      singleflight.Group
}

// Option customises Controller construction.
type Option func(*Controller)

// WithCache attaches a query cache; without one, every question runs the loop.
func WithCache(cache *querycache.Cache) Option {
	return func(c *Controller) { c.cache = cache }
}

// WithMetrics attaches a metrics instance.
func WithMetrics(m *prometheus.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController wires a Controller.  Zero config fields take reference
// defaults.
func NewController(backend llm.Backend, searcher Searcher, aggregator *aggregate.Aggregator,
	cfg Config, logger logging.Logger, opts ...Option) *Controller {

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 3
	}
	if aggregator == nil {
		aggregator = aggregate.NewAggregator(nil, nil, logger)
	}
	c := &Controller{
		backend:    backend,
		searcher:   searcher,
		aggregator: aggregator,
		cfg:        cfg,
		logger:     logger,
		metrics:    prometheus.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Answer resolves one natural-language question.  Identical questions asked
// concurrently share a single loop run; answered questions are served from
// the cache until its TTL lapses.
func (c *Controller) Answer(ctx context.Context, question string) (*biopharma.AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.InvalidParam("question must not be empty")
	}
	start := time.Now()

	if c.cache != nil {
		if entry, ok := c.cache.Get(ctx, question); ok {
			c.logger.Debug("answer served from cache",
				logging.String("query_hash", entry.QueryHash),
				logging.Int64("access_count", entry.AccessCount))
			c.metrics.ObserveAnswer("cache", time.Since(start))
			return &biopharma.AnswerResult{
				Question:  question,
				Answer:    entry.Answer,
				Source:    biopharma.AnswerSource(entry.Source),
				Citations: entry.Citations,
				Timestamp: entry.CreatedAt,
				Success:   true,
			}, nil
		}
	}

	v, err, _ := c.group.Do(querycache.HashQuery(question), func() (interface{}, error) {
		return c.answerOnce(ctx, question)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*biopharma.AnswerResult)
	c.metrics.ObserveAnswer(string(res.Source), time.Since(start))
	return res, nil
}

// answerOnce runs the reasoning loop for one question.
func (c *Controller) answerOnce(ctx context.Context, question string) (*biopharma.AnswerResult, error) {
	var hits []biopharma.ScoredHit
	state := StateReasoning

	// Comparison questions seed the loop with one search per compared drug.
	comparison := comparisonTerms(question)
	if len(comparison) == 2 {
		seeded, err := c.searcher.SearchQueries(ctx, comparison, c.cfg.TopK)
		if err == nil {
			hits = seeded
			state = StateObserving
			c.logger.Debug("comparison seed retrieved",
				logging.String("state", string(state)), logging.Int("hits", len(hits)))
		}
	}

	iterations := 0
	defer func() { c.metrics.LoopIterations.Observe(float64(iterations)) }()

	for iterations < c.cfg.MaxIterations {
		iterations++
		state = StateReasoning
		c.logger.Debug("loop iteration",
			logging.Int("iteration", iterations), logging.String("state", string(state)))

		completion, err := c.backend.Complete(ctx, systemPrompt,
			buildUserPrompt(question, hits, comparison), toolset)
		if err != nil {
			if ctx.Err() != nil {
				// Abandoned request: surface cancellation, write nothing.
				return nil, ctx.Err()
			}
			outcome := "error"
			if errors.IsCode(err, errors.ErrCodeModelTimeout) || errors.IsTimeout(err) {
				outcome = "timeout"
			}
			c.metrics.ModelCalls.WithLabelValues(outcome).Inc()
			c.logger.Warn("model call failed, leaving the loop",
				logging.Int("iteration", iterations), logging.Err(err))
			return c.finishWithoutModel(ctx, question, hits)
		}
		c.metrics.ModelCalls.WithLabelValues("ok").Inc()

		if tc := firstToolCall(completion); tc != nil {
			newHits, toolState := c.execTool(ctx, tc)
			hits = mergeHits(hits, newHits)
			state = StateObserving
			c.logger.Debug("tool observation recorded",
				logging.String("tool", tc.Name),
				logging.String("via", string(toolState)),
				logging.String("state", string(state)),
				logging.Int("hits", len(hits)))
			continue
		}

		state = StateAnswering
		c.logger.Debug("model produced an answer",
			logging.String("state", string(state)), logging.Int("iteration", iterations))
		text := strings.TrimSpace(completion.Text)
		if text == "" {
			c.logger.Warn("model returned empty completion", logging.Int("iteration", iterations))
			continue
		}
		if claimsNoData(text) && len(hits) > 0 {
			// The model denies evidence it was shown; the deterministic
			// rendering of that evidence is strictly better.
			c.logger.Warn("model claimed no data despite retrieved records",
				logging.Int("hits", len(hits)))
			result := c.fallbackResult(question, hits)
			c.writeCache(ctx, result)
			return result, nil
		}
		result := c.agentResult(question, text, hits)
		c.writeCache(ctx, result)
		return result, nil
	}

	c.logger.Warn("iteration budget exhausted",
		logging.Int("max_iterations", c.cfg.MaxIterations))
	return c.finishWithoutModel(ctx, question, hits)
}

// execTool dispatches one tool call.  Unknown tools and malformed arguments
// observe as an empty hit set.
func (c *Controller) execTool(ctx context.Context, tc *llm.ToolCall) ([]biopharma.ScoredHit, State) {
	switch tc.Name {
	case toolSingleSearch:
		var args struct {
			Query string `json:"query"`
			TopK  int    `json:"top_k"`
		}
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil || strings.TrimSpace(args.Query) == "" {
			c.logger.Warn("malformed single_search arguments", logging.String("arguments", tc.Arguments))
			return nil, StateActingSearch
		}
		hits, err := c.searcher.Search(ctx, args.Query, args.TopK)
		if err != nil {
			c.logger.Warn("single_search failed", logging.Err(err))
			return nil, StateActingSearch
		}
		return hits, StateActingSearch

	case toolMultiSearch:
		var args struct {
			Queries []string `json:"queries"`
		}
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil || len(args.Queries) == 0 {
			c.logger.Warn("malformed multi_search arguments", logging.String("arguments", tc.Arguments))
			return nil, StateActingMultiSearch
		}
		hits, err := c.searcher.SearchQueries(ctx, args.Queries, c.cfg.TopK)
		if err != nil {
			c.logger.Warn("multi_search failed", logging.Err(err))
			return nil, StateActingMultiSearch
		}
		return hits, StateActingMultiSearch

	default:
		c.logger.Warn("model requested unknown tool", logging.String("tool", tc.Name))
		return nil, StateActingSearch
	}
}

// finishWithoutModel is the terminal path when the model cannot deliver: a
// deterministic answer from whatever evidence exists, a direct search when
// none does, and a failed result only when even that comes back empty.
func (c *Controller) finishWithoutModel(ctx context.Context, question string, hits []biopharma.ScoredHit) (*biopharma.AnswerResult, error) {
	if len(hits) == 0 {
		direct, err := c.searcher.SearchMulti(ctx, question, c.cfg.TopK)
		if err == nil {
			hits = direct
		}
	}
	if len(hits) > 0 {
		result := c.fallbackResult(question, hits)
		c.writeCache(ctx, result)
		return result, nil
	}
	c.logger.Error("failed to answer", logging.String("question", question))
	return &biopharma.AnswerResult{
		Question:  question,
		Answer:    "Could not answer the question: no relevant records were found and the reasoning engine was unavailable.",
		Source:    biopharma.SourceError,
		Timestamp: time.Now(),
		Success:   false,
	}, nil
}

// agentResult packages a model-written answer.
func (c *Controller) agentResult(question, text string, hits []biopharma.ScoredHit) *biopharma.AnswerResult {
	ans := c.aggregator.Aggregate(hits)
	result := &biopharma.AnswerResult{
		Question:  question,
		Answer:    text,
		Source:    biopharma.SourceAgent,
		Citations: ans.Citations(),
		Timestamp: time.Now(),
		Success:   true,
	}
	return result
}

// fallbackResult renders the deterministic answer from retrieved evidence.
func (c *Controller) fallbackResult(question string, hits []biopharma.ScoredHit) *biopharma.AnswerResult {
	ans := c.aggregator.Aggregate(hits)
	return &biopharma.AnswerResult{
		Question:  question,
		Answer:    renderFallback(c.aggregator, ans),
		Source:    biopharma.SourceFallbackSearch,
		Citations: ans.Citations(),
		Timestamp: time.Now(),
		Success:   true,
	}
}

// writeCache persists a successful result; failures only log.  The cache
// itself refuses writes on a cancelled context.
func (c *Controller) writeCache(ctx context.Context, result *biopharma.AnswerResult) {
	if c.cache == nil || !result.Success {
		return
	}
	recordIDs := make([]string, 0, len(result.Citations))
	for _, cit := range result.Citations {
		recordIDs = append(recordIDs, cit.RecordID)
	}
	if !c.cache.Put(ctx, result.Question, result.Answer, string(result.Source), result.Citations, recordIDs) {
		c.logger.Debug("answer not cached", logging.String("question", result.Question))
	}
}

// firstToolCall returns the first tool call of a completion, or nil.
func firstToolCall(completion *llm.Completion) *llm.ToolCall {
	if completion == nil || len(completion.ToolCalls) == 0 {
		return nil
	}
	return &completion.ToolCalls[0]
}

// mergeHits combines hit sets, keeping each record's best score and the
// first-seen order.
func mergeHits(existing, incoming []biopharma.ScoredHit) []biopharma.ScoredHit {
	if len(existing) == 0 {
		return incoming
	}
	index := make(map[string]int, len(existing))
	merged := make([]biopharma.ScoredHit, len(existing))
	copy(merged, existing)
	for i, h := range merged {
		index[h.Record.ID] = i
	}
	for _, h := range incoming {
		if i, seen := index[h.Record.ID]; seen {
			if h.Score > merged[i].Score {
				merged[i] = h
			}
			continue
		}
		index[h.Record.ID] = len(merged)
		merged = append(merged, h)
	}
	return merged
}

// noDataPhrases flag completions that deny having evidence.
var noDataPhrases = []string{
	"no data", "no information", "no relevant", "no results", "not found in",
	"i don't have", "i do not have", "don't know", "cannot find",
	"could not find", "cannot determine", "unable to find",
}

// claimsNoData reports whether the completion text reads as a no-data answer.
func claimsNoData(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range noDataPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// comparisonTerms extracts the two compared drug names from "X vs Y" or
// "compare X and/with/to Y" phrasings, or nil when the question is not a
// comparison.
func comparisonTerms(question string) []string {
	lower := strings.ToLower(question)
	for _, sep := range []string{" vs ", " vs. ", " versus "} {
		if i := strings.Index(lower, sep); i > 0 {
			left := lastWord(question[:i])
			right := firstWord(question[i+len(sep):])
			if left != "" && right != "" {
				return []string{left, right}
			}
		}
	}
	if i := strings.Index(lower, "compare "); i >= 0 {
		rest := question[i+len("compare "):]
		restLower := strings.ToLower(rest)
		for _, sep := range []string{" and ", " with ", " to "} {
			if j := strings.Index(restLower, sep); j > 0 {
				left := strings.TrimSpace(rest[:j])
				right := firstWord(rest[j+len(sep):])
				if left != "" && right != "" {
					return []string{left, right}
				}
			}
		}
	}
	return nil
}

func trimWordPunct(w string) string {
	return strings.Trim(w, "?.,!;:\"'")
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return trimWordPunct(fields[0])
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return trimWordPunct(fields[len(fields)-1])
}
