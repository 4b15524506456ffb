package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/domain/entity"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

type mockEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.EmbedFunc(ctx, text)
}

type mockIndex struct {
	QueryFunc func(ctx context.Context, vector []float32, topK int) ([]biopharma.IndexMatch, error)
}

func (m *mockIndex) Query(ctx context.Context, vector []float32, topK int) ([]biopharma.IndexMatch, error) {
	return m.QueryFunc(ctx, vector, topK)
}

func constEmbedder() *mockEmbedder {
	return &mockEmbedder{EmbedFunc: func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
}

func newEngine(idx *mockIndex, emb *mockEmbedder) *Engine {
	return NewEngine(idx, emb, entity.NewNormalizer(nil), Config{}, logging.NewNopLogger(), nil)
}

func rec(id, company string, tier biopharma.SourceTier) biopharma.SourceRecord {
	return biopharma.SourceRecord{ID: id, Company: company, Tier: tier}
}

func TestExtractTarget(t *testing.T) {
	assert.Equal(t, "PD-1", ExtractTarget("which companies have PD-1 drugs"))
	assert.Equal(t, "HER2", ExtractTarget("list all HER2 programs"))
	assert.Equal(t, "", ExtractTarget("what drugs treat melanoma"))
	assert.Equal(t, "", ExtractTarget("LIST ALL FOR US"), "stopwords excluded")
	assert.Equal(t, "CTLA-4", ExtractTarget("trials for CTLA-4 vs LAG-3"))
}

func TestIsListAll(t *testing.T) {
	assert.True(t, IsListAll("List ALL PD-1 drugs"))
	assert.True(t, IsListAll("show all companies with ADCs"))
	assert.False(t, IsListAll("who makes keytruda"))
}

func TestClampTopK(t *testing.T) {
	e := newEngine(nil, nil)

	assert.Equal(t, 30, e.clampTopK("ordinary question", 0))
	assert.Equal(t, 10, e.clampTopK("ordinary question", 10))
	assert.Equal(t, 30, e.clampTopK("ordinary question", 500))
	assert.Equal(t, 50, e.clampTopK("list all PD-1 drugs", 10), "list-all raises the floor")
	assert.Equal(t, 50, e.clampTopK("list all PD-1 drugs", 500))
}

func TestExpandQueryCompound(t *testing.T) {
	e := newEngine(nil, nil)

	got := e.expandQuery("which companies have PD1 drugs")
	assert.Equal(t, "PD-1 companies drugs OR PD1 companies drugs OR PD 1 companies drugs", got)

	assert.Equal(t, "plain question", e.expandQuery("plain question"))
	// Single-variant (unknown) targets do not trigger expansion.
	assert.Equal(t, "about XYZ99 trials", e.expandQuery("about XYZ99 trials"))
}

func TestSearchOrdersByScoreThenTier(t *testing.T) {
	idx := &mockIndex{QueryFunc: func(_ context.Context, _ []float32, _ int) ([]biopharma.IndexMatch, error) {
		return []biopharma.IndexMatch{
			{Record: rec("low", "A", biopharma.TierExternalProfile), Distance: 1.0},
			{Record: rec("tie-lowtier", "B", biopharma.TierTrialRegistry), Distance: 0.5},
			{Record: rec("tie-curated", "C", biopharma.TierCurated), Distance: 0.5},
			{Record: rec("best", "D", biopharma.TierExternalProfile), Distance: 0.0},
		}, nil
	}}
	e := newEngine(idx, constEmbedder())

	hits, err := e.Search(context.Background(), "who makes what", 10)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	assert.Equal(t, "best", hits[0].Record.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "tie-curated", hits[1].Record.ID, "curated wins the score tie")
	assert.Equal(t, "tie-lowtier", hits[2].Record.ID)
	assert.Equal(t, "low", hits[3].Record.ID)
}

func TestSearchDeterministicOrder(t *testing.T) {
	matches := []biopharma.IndexMatch{
		{Record: rec("a", "A", biopharma.TierCurated), Distance: 0.2},
		{Record: rec("b", "B", biopharma.TierCurated), Distance: 0.2},
		{Record: rec("c", "C", biopharma.TierCurated), Distance: 0.2},
	}
	idx := &mockIndex{QueryFunc: func(_ context.Context, _ []float32, _ int) ([]biopharma.IndexMatch, error) {
		return matches, nil
	}}
	e := newEngine(idx, constEmbedder())

	first, err := e.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	second, err := e.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, first, second, "full ties keep insertion order on every call")
	assert.Equal(t, "a", first[0].Record.ID)
}

func TestSearchIndexFailureReturnsEmpty(t *testing.T) {
	idx := &mockIndex{QueryFunc: func(_ context.Context, _ []float32, _ int) ([]biopharma.IndexMatch, error) {
		return nil, fmt.Errorf("connection refused")
	}}
	e := newEngine(idx, constEmbedder())

	hits, err := e.Search(context.Background(), "q", 10)
	require.NoError(t, err, "index failure is not a hard error")
	assert.Empty(t, hits)
}

func TestSearchEmbedFailureReturnsEmpty(t *testing.T) {
	emb := &mockEmbedder{EmbedFunc: func(_ context.Context, _ string) ([]float32, error) {
		return nil, fmt.Errorf("embedding service down")
	}}
	e := newEngine(&mockIndex{}, emb)

	hits, err := e.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchEmptyQueryRejected(t *testing.T) {
	e := newEngine(&mockIndex{}, constEmbedder())
	_, err := e.Search(context.Background(), "   ", 10)
	assert.Error(t, err)
}

func TestSearchTruncatesToTopK(t *testing.T) {
	idx := &mockIndex{QueryFunc: func(_ context.Context, _ []float32, topK int) ([]biopharma.IndexMatch, error) {
		out := make([]biopharma.IndexMatch, 20)
		for i := range out {
			out[i] = biopharma.IndexMatch{
				Record:   rec(fmt.Sprintf("r%02d", i), "X", biopharma.TierCurated),
				Distance: float64(i) * 0.01,
			}
		}
		return out, nil
	}}
	e := newEngine(idx, constEmbedder())

	hits, err := e.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 5)
}

func TestSearchMultiMergesAndDedups(t *testing.T) {
	calls := 0
	idx := &mockIndex{QueryFunc: func(_ context.Context, _ []float32, _ int) ([]biopharma.IndexMatch, error) {
		calls++
		switch calls {
		case 1:
			return []biopharma.IndexMatch{
				{Record: rec("shared", "A", biopharma.TierCurated), Distance: 0.5},
				{Record: rec("only-base", "B", biopharma.TierCurated), Distance: 0.8},
			}, nil
		default:
			return []biopharma.IndexMatch{
				// Same record, better score on the variant query.
				{Record: rec("shared", "A", biopharma.TierCurated), Distance: 0.1},
				{Record: rec("variant", "C", biopharma.TierCurated), Distance: 0.9},
			}, nil
		}
	}}
	e := newEngine(idx, constEmbedder())

	hits, err := e.SearchMulti(context.Background(), "list all PD-1 companies", 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, calls, 2, "variant queries issued")
	assert.LessOrEqual(t, calls, 4, "at most 4 queries")

	ids := map[string]float64{}
	for _, h := range hits {
		_, dup := ids[h.Record.ID]
		require.False(t, dup, "no duplicate records after merge")
		ids[h.Record.ID] = h.Score
	}
	assert.InDelta(t, 1.0/1.1, ids["shared"], 1e-9, "best score kept")
	assert.Contains(t, ids, "only-base")
	assert.Contains(t, ids, "variant")
}

func TestSearchQueriesCapsAtFour(t *testing.T) {
	calls := 0
	idx := &mockIndex{QueryFunc: func(_ context.Context, _ []float32, _ int) ([]biopharma.IndexMatch, error) {
		calls++
		return []biopharma.IndexMatch{
			{Record: rec(fmt.Sprintf("r%d", calls), "X", biopharma.TierCurated), Distance: 0.1},
		}, nil
	}}
	e := newEngine(idx, constEmbedder())

	queries := []string{"q1", "", "q2", "q3", "q4", "q5", "q6"}
	hits, err := e.SearchQueries(context.Background(), queries, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, calls, "blank skipped, batch capped at four")
	assert.Len(t, hits, 4)

	_, err = e.SearchQueries(context.Background(), []string{"", "  "}, 10)
	assert.Error(t, err, "all-blank batch rejected")
}
