package rag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/querycache"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/intelligence/llm"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

type mockBackend struct {
	CompleteFunc func(ctx context.Context, system, user string, tools []llm.Tool) (*llm.Completion, error)
}

func (m *mockBackend) Complete(ctx context.Context, system, user string, tools []llm.Tool) (*llm.Completion, error) {
	return m.CompleteFunc(ctx, system, user, tools)
}

type mockSearcher struct {
	SearchFunc        func(ctx context.Context, query string, topK int) ([]biopharma.ScoredHit, error)
	SearchQueriesFunc func(ctx context.Context, queries []string, topK int) ([]biopharma.ScoredHit, error)
	SearchMultiFunc   func(ctx context.Context, query string, topK int) ([]biopharma.ScoredHit, error)
}

func (m *mockSearcher) Search(ctx context.Context, query string, topK int) ([]biopharma.ScoredHit, error) {
	return m.SearchFunc(ctx, query, topK)
}

func (m *mockSearcher) SearchQueries(ctx context.Context, queries []string, topK int) ([]biopharma.ScoredHit, error) {
	return m.SearchQueriesFunc(ctx, queries, topK)
}

func (m *mockSearcher) SearchMulti(ctx context.Context, query string, topK int) ([]biopharma.ScoredHit, error) {
	return m.SearchMultiFunc(ctx, query, topK)
}

func curatedHit(id, company, drug string) biopharma.ScoredHit {
	return biopharma.ScoredHit{
		Record: biopharma.SourceRecord{
			ID: id, Tier: biopharma.TierCurated, Company: company,
			GenericName: drug, Target: "PD-1", Phase: "Approved",
		},
		Score: 0.9,
	}
}

func emptySearcher() *mockSearcher {
	return &mockSearcher{
		SearchFunc: func(context.Context, string, int) ([]biopharma.ScoredHit, error) {
			return nil, nil
		},
		SearchQueriesFunc: func(context.Context, []string, int) ([]biopharma.ScoredHit, error) {
			return nil, nil
		},
		SearchMultiFunc: func(context.Context, string, int) ([]biopharma.ScoredHit, error) {
			return nil, nil
		},
	}
}

func toolCompletion(name, args string) *llm.Completion {
	return &llm.Completion{ToolCalls: []llm.ToolCall{{Name: name, Arguments: args}}}
}

func newController(backend llm.Backend, searcher Searcher, opts ...Option) *Controller {
	return NewController(backend, searcher, nil, Config{}, logging.NewNopLogger(), opts...)
}

func newTestCache() *querycache.Cache {
	return querycache.New(querycache.NewMemoryStore(), time.Hour, logging.NewNopLogger())
}

func TestAnswerToolUseThenAgentAnswer(t *testing.T) {
	searcher := emptySearcher()
	searcher.SearchFunc = func(_ context.Context, query string, _ int) ([]biopharma.ScoredHit, error) {
		assert.Equal(t, "PD-1 companies", query)
		return []biopharma.ScoredHit{curatedHit("cur-1", "Merck", "pembrolizumab")}, nil
	}

	calls := 0
	backend := &mockBackend{CompleteFunc: func(_ context.Context, _, user string, tools []llm.Tool) (*llm.Completion, error) {
		calls++
		require.Len(t, tools, 2, "both tools offered on every call")
		switch calls {
		case 1:
			assert.Contains(t, user, "none yet")
			return toolCompletion(toolSingleSearch, `{"query": "PD-1 companies", "top_k": 10}`), nil
		default:
			assert.Contains(t, user, "Merck", "evidence shown to the model")
			return &llm.Completion{Text: "Merck develops pembrolizumab against PD-1."}, nil
		}
	}}

	cache := newTestCache()
	c := newController(backend, searcher, WithCache(cache))

	res, err := c.Answer(context.Background(), "which companies have PD-1 drugs")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, biopharma.SourceAgent, res.Source)
	assert.Equal(t, 2, calls)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, "cur-1", res.Citations[0].RecordID)

	entry, ok := cache.Get(context.Background(), "which companies have PD-1 drugs")
	require.True(t, ok, "successful answer cached")
	assert.Equal(t, string(biopharma.SourceAgent), entry.Source)
}

func TestAnswerModelTimeoutFallsBackToDirectSearch(t *testing.T) {
	searcher := emptySearcher()
	searcher.SearchMultiFunc = func(_ context.Context, _ string, _ int) ([]biopharma.ScoredHit, error) {
		return []biopharma.ScoredHit{
			curatedHit("cur-1", "Merck", "pembrolizumab"),
			curatedHit("cur-2", "AstraZeneca", "durvalumab"),
		}, nil
	}
	backend := &mockBackend{CompleteFunc: func(context.Context, string, string, []llm.Tool) (*llm.Completion, error) {
		return nil, errors.New(errors.ErrCodeModelTimeout, "model call timed out")
	}}

	c := newController(backend, searcher)
	res, err := c.Answer(context.Background(), "which companies have PD-1 drugs")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, biopharma.SourceFallbackSearch, res.Source)
	assert.Contains(t, res.Answer, "Merck")
	assert.Contains(t, res.Answer, "AstraZeneca")
	assert.Contains(t, res.Answer, "curated", "source tier attributed")
	assert.Len(t, res.Citations, 2)
}

func TestAnswerNoDataClaimOverriddenByEvidence(t *testing.T) {
	searcher := emptySearcher()
	searcher.SearchFunc = func(context.Context, string, int) ([]biopharma.ScoredHit, error) {
		return []biopharma.ScoredHit{curatedHit("cur-1", "Merck", "pembrolizumab")}, nil
	}

	calls := 0
	backend := &mockBackend{CompleteFunc: func(context.Context, string, string, []llm.Tool) (*llm.Completion, error) {
		calls++
		if calls == 1 {
			return toolCompletion(toolSingleSearch, `{"query": "PD-1"}`), nil
		}
		return &llm.Completion{Text: "I could not find any data about PD-1 drugs."}, nil
	}}

	c := newController(backend, searcher)
	res, err := c.Answer(context.Background(), "which companies have PD-1 drugs")
	require.NoError(t, err)

	assert.Equal(t, biopharma.SourceFallbackSearch, res.Source,
		"evidence on hand beats the model's denial")
	assert.Contains(t, res.Answer, "Merck")
}

func TestAnswerNoDataClaimAcceptedWithoutEvidence(t *testing.T) {
	backend := &mockBackend{CompleteFunc: func(context.Context, string, string, []llm.Tool) (*llm.Completion, error) {
		return &llm.Completion{Text: "No data was found for this question."}, nil
	}}

	c := newController(backend, emptySearcher())
	res, err := c.Answer(context.Background(), "which companies target XYZ99")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, biopharma.SourceAgent, res.Source, "honest negative answer stands")
}

func TestAnswerIterationBudgetBoundsModelCalls(t *testing.T) {
	searcher := emptySearcher()
	searcher.SearchFunc = func(context.Context, string, int) ([]biopharma.ScoredHit, error) {
		return []biopharma.ScoredHit{curatedHit("cur-1", "Merck", "pembrolizumab")}, nil
	}

	calls := 0
	backend := &mockBackend{CompleteFunc: func(context.Context, string, string, []llm.Tool) (*llm.Completion, error) {
		calls++
		// Never answers, always wants another search.
		return toolCompletion(toolSingleSearch, `{"query": "again"}`), nil
	}}

	c := newController(backend, searcher)
	res, err := c.Answer(context.Background(), "which companies have PD-1 drugs")
	require.NoError(t, err)

	assert.Equal(t, 3, calls, "loop stops at the iteration budget")
	assert.Equal(t, biopharma.SourceFallbackSearch, res.Source,
		"collected evidence still becomes an answer")
	assert.True(t, res.Success)
}

func TestAnswerFailsWhenNothingWorks(t *testing.T) {
	backend := &mockBackend{CompleteFunc: func(context.Context, string, string, []llm.Tool) (*llm.Completion, error) {
		return nil, errors.New(errors.ErrCodeModelBackend, "backend unreachable")
	}}
	cache := newTestCache()
	c := newController(backend, emptySearcher(), WithCache(cache))

	res, err := c.Answer(context.Background(), "which companies have PD-1 drugs")
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, biopharma.SourceError, res.Source)
	assert.Contains(t, res.Answer, "Could not answer")

	_, ok := cache.Get(context.Background(), "which companies have PD-1 drugs")
	assert.False(t, ok, "failed answers are never cached")
}

func TestAnswerCancellationWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &mockBackend{CompleteFunc: func(ctx context.Context, _, _ string, _ []llm.Tool) (*llm.Completion, error) {
		cancel()
		return nil, ctx.Err()
	}}
	cache := newTestCache()
	c := newController(backend, emptySearcher(), WithCache(cache))

	_, err := c.Answer(ctx, "which companies have PD-1 drugs")
	assert.Error(t, err)

	_, ok := cache.Get(context.Background(), "which companies have PD-1 drugs")
	assert.False(t, ok, "cancelled request left no cache entry")
}

func TestAnswerServedFromCache(t *testing.T) {
	cache := newTestCache()
	require.True(t, cache.Put(context.Background(), "who makes keytruda",
		"Merck markets Keytruda.", string(biopharma.SourceAgent), nil, nil))

	backend := &mockBackend{CompleteFunc: func(context.Context, string, string, []llm.Tool) (*llm.Completion, error) {
		t.Fatal("cache hit must not reach the model")
		return nil, nil
	}}
	c := newController(backend, emptySearcher(), WithCache(cache))

	res, err := c.Answer(context.Background(), "Who Makes Keytruda")
	require.NoError(t, err)
	assert.Equal(t, "Merck markets Keytruda.", res.Answer)
	assert.True(t, res.Success)
}

func TestAnswerEmptyQuestionRejected(t *testing.T) {
	c := newController(&mockBackend{}, emptySearcher())
	_, err := c.Answer(context.Background(), "   ")
	assert.Error(t, err)
}

func TestAnswerMultiSearchTool(t *testing.T) {
	searcher := emptySearcher()
	var gotQueries []string
	searcher.SearchQueriesFunc = func(_ context.Context, queries []string, _ int) ([]biopharma.ScoredHit, error) {
		gotQueries = queries
		return []biopharma.ScoredHit{curatedHit("cur-1", "Merck", "pembrolizumab")}, nil
	}

	calls := 0
	backend := &mockBackend{CompleteFunc: func(context.Context, string, string, []llm.Tool) (*llm.Completion, error) {
		calls++
		if calls == 1 {
			return toolCompletion(toolMultiSearch, `{"queries": ["PD-1 companies", "PD1 drugs"]}`), nil
		}
		return &llm.Completion{Text: "Merck develops pembrolizumab."}, nil
	}}

	c := newController(backend, searcher)
	res, err := c.Answer(context.Background(), "list all PD-1 drugs")
	require.NoError(t, err)

	assert.Equal(t, []string{"PD-1 companies", "PD1 drugs"}, gotQueries)
	assert.Equal(t, biopharma.SourceAgent, res.Source)
}

func TestAnswerComparisonSeedsSearches(t *testing.T) {
	searcher := emptySearcher()
	var seeded []string
	searcher.SearchQueriesFunc = func(_ context.Context, queries []string, _ int) ([]biopharma.ScoredHit, error) {
		seeded = queries
		return []biopharma.ScoredHit{
			curatedHit("cur-1", "Merck", "pembrolizumab"),
			curatedHit("cur-2", "BMS", "nivolumab"),
		}, nil
	}
	backend := &mockBackend{CompleteFunc: func(_ context.Context, _, user string, _ []llm.Tool) (*llm.Completion, error) {
		assert.Contains(t, user, "comparison question")
		assert.Contains(t, user, "Merck", "seeded evidence present on the first call")
		return &llm.Completion{Text: "Pembrolizumab and nivolumab both target PD-1."}, nil
	}}

	c := newController(backend, searcher)
	res, err := c.Answer(context.Background(), "compare pembrolizumab vs nivolumab")
	require.NoError(t, err)

	assert.Equal(t, []string{"pembrolizumab", "nivolumab"}, seeded)
	assert.Equal(t, biopharma.SourceAgent, res.Source)
	assert.Len(t, res.Citations, 2)
}

func TestAnswerCollapsesConcurrentDuplicates(t *testing.T) {
	var completions atomic.Int32
	release := make(chan struct{})
	backend := &mockBackend{CompleteFunc: func(context.Context, string, string, []llm.Tool) (*llm.Completion, error) {
		completions.Add(1)
		<-release
		return &llm.Completion{Text: "Merck develops pembrolizumab."}, nil
	}}
	c := newController(backend, emptySearcher())

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	results := make([]*biopharma.AnswerResult, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			res, err := c.Answer(context.Background(), "who makes keytruda")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	// Give the goroutines time to pile onto the flight before releasing it.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), completions.Load(), "identical questions share one loop run")
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, "Merck develops pembrolizumab.", res.Answer)
	}
}

func TestComparisonTerms(t *testing.T) {
	assert.Equal(t, []string{"pembrolizumab", "nivolumab"},
		comparisonTerms("compare pembrolizumab vs nivolumab"))
	assert.Equal(t, []string{"keytruda", "opdivo"},
		comparisonTerms("how does keytruda versus opdivo look?"))
	assert.Equal(t, []string{"pembrolizumab", "nivolumab"},
		comparisonTerms("compare pembrolizumab with nivolumab"))
	assert.Nil(t, comparisonTerms("which companies have PD-1 drugs"))
}

func TestClaimsNoData(t *testing.T) {
	assert.True(t, claimsNoData("I could not find any relevant records."))
	assert.True(t, claimsNoData("There is NO DATA for this target."))
	assert.False(t, claimsNoData("Merck develops pembrolizumab."))
}

func TestMergeHitsKeepsBestScore(t *testing.T) {
	a := curatedHit("same", "Merck", "pembrolizumab")
	a.Score = 0.5
	b := curatedHit("same", "Merck", "pembrolizumab")
	b.Score = 0.8
	other := curatedHit("other", "BMS", "nivolumab")

	merged := mergeHits([]biopharma.ScoredHit{a}, []biopharma.ScoredHit{b, other})
	require.Len(t, merged, 2)
	assert.Equal(t, "same", merged[0].Record.ID, "first-seen order preserved")
	assert.InDelta(t, 0.8, merged[0].Score, 1e-9, "best score wins")
	assert.Equal(t, "other", merged[1].Record.ID)
}

func TestRenderFallbackDeterministic(t *testing.T) {
	c := newController(&mockBackend{}, emptySearcher())
	hits := []biopharma.ScoredHit{
		curatedHit("cur-1", "Merck", "pembrolizumab"),
		{Record: biopharma.SourceRecord{
			ID: "tr-1", Tier: biopharma.TierTrialRegistry, Company: "Upstart Bio",
			GenericName: "upx-1", Target: "HER2",
		}, Score: 0.7},
	}

	first := c.fallbackResult("q", hits)
	second := c.fallbackResult("q", hits)
	assert.Equal(t, first.Answer, second.Answer, "same hits render the same text")
	assert.Contains(t, first.Answer, "Merck [curated]")
	assert.Contains(t, first.Answer, "Upstart Bio [trial_registry]")
	assert.Contains(t, first.Answer, fmt.Sprintf("%d compan", 2))
}
