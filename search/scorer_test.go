package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/khabar/ai/mock"
	"github.com/poiesic/khabar/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedEmbedder(vec []float32) *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vec, nil
	}
	return m
}

func newItem(id, title, summary string, vec []float32) *core.Item {
	return &core.Item{ID: id, Published: time.Now(), Title: title, Summary: summary, Embedding: vec}
}

func weights(t, s float64) (*float64, *float64) { return &t, &s }

func resultIDs(results []*core.SemanticResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Item.ID
	}
	return out
}

func TestNewScorer(t *testing.T) {
	_, err := NewScorer(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewScorer(mock.NewMockEmbedder(), WithDefaultWeights(0, 0))
	assert.ErrorIs(t, err, ErrInvalidDefaultWeights)

	s, err := NewScorer(mock.NewMockEmbedder(), WithDefaultWeights(2, 2), WithLogger(nil))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s.titleWeight, 1e-9)
	assert.InDelta(t, 0.5, s.summaryWeight, 1e-9)
}

func TestScorer_Search_Validation(t *testing.T) {
	s, err := NewScorer(fixedEmbedder([]float32{1, 0}))
	require.NoError(t, err)
	ctx := context.Background()
	one := 1.0

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "empty query", req: Request{Query: "  ", MaxResults: 5}, wantErr: core.ErrEmptyQuery},
		{name: "zero max results", req: Request{Query: "q", MaxResults: 0}, wantErr: core.ErrNonPositiveCount},
		{name: "title weight only", req: Request{Query: "q", MaxResults: 5, TitleWeight: &one}, wantErr: core.ErrAsymmetricWeights},
		{name: "summary weight only", req: Request{Query: "q", MaxResults: 5, SummaryWeight: &one}, wantErr: core.ErrAsymmetricWeights},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Search(ctx, tt.req, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, core.ErrInvalidQuery)
		})
	}
}

func TestScorer_Search_WeightsChangeOrdering(t *testing.T) {
	s, err := NewScorer(fixedEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	vec := []float32{0.8, 0.6} // cosine 0.8 with the query
	candidates := []*core.Item{
		newItem("title-hit", "Ceasefire announced", "Officials spoke today", vec),
		newItem("summary-hit", "Regional update", "Ceasefire in Gaza holds", vec),
	}

	defaults, err := s.Search(context.Background(), Request{Query: "ceasefire gaza", MinThreshold: 0.5, MaxResults: 10}, candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"title-hit", "summary-hit"}, resultIDs(defaults))
	assert.InDelta(t, 0.8+0.5*0.7*0.3, defaults[0].Score, 1e-6)
	assert.InDelta(t, 0.8+1.0*0.3*0.3, defaults[1].Score, 1e-6)

	tw, sw := weights(0.5, 0.5)
	equal, err := s.Search(context.Background(), Request{Query: "ceasefire gaza", MinThreshold: 0.5, MaxResults: 10, TitleWeight: tw, SummaryWeight: sw}, candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"summary-hit", "title-hit"}, resultIDs(equal))

	// Weights are renormalized, so 5/5 behaves like 0.5/0.5.
	tw, sw = weights(5, 5)
	scaled, err := s.Search(context.Background(), Request{Query: "ceasefire gaza", MinThreshold: 0.5, MaxResults: 10, TitleWeight: tw, SummaryWeight: sw}, candidates)
	require.NoError(t, err)
	require.Len(t, scaled, 2)
	assert.InDelta(t, equal[0].Score, scaled[0].Score, 1e-9)
}

func TestScorer_Search_ThresholdAndTiers(t *testing.T) {
	s, err := NewScorer(fixedEmbedder([]float32{1, 0, 0}))
	require.NoError(t, err)

	candidates := []*core.Item{
		newItem("strong", "", "", []float32{0.75, 0.6614, 0}),
		newItem("very", "", "", []float32{1, 0, 0}),
		newItem("possible", "", "", []float32{0.62, 0.7846, 0}),
		newItem("weak", "", "", []float32{0.55, 0.8352, 0}),
		newItem("unrelated", "", "", []float32{0, 1, 0}),
	}

	results, err := s.Search(context.Background(), Request{Query: "anything", MinThreshold: 0.5, MaxResults: 10}, candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"very", "strong", "possible", "weak"}, resultIDs(results))
	assert.Equal(t, core.ConfidenceVeryStrong, results[0].Confidence)
	assert.Equal(t, core.ConfidenceStrong, results[1].Confidence)
	assert.Equal(t, core.ConfidencePossible, results[2].Confidence)
	assert.Equal(t, core.ConfidenceWeak, results[3].Confidence)

	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.5)
	}

	results, err = s.Search(context.Background(), Request{Query: "anything", MinThreshold: 0.5, MaxResults: 2}, candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"very", "strong"}, resultIDs(results))
}

func TestScorer_Search_SkipsUnusableCandidates(t *testing.T) {
	s, err := NewScorer(fixedEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	candidates := []*core.Item{
		newItem("no-embedding", "match", "", nil),
		newItem("wrong-dim", "match", "", []float32{1, 0, 0}),
		newItem("zero", "", "", []float32{0, 0}),
		newItem("ok", "", "", []float32{1, 0}),
	}

	mon := &recordingMonitor{}
	results, err := s.SearchWithMonitor(context.Background(), Request{Query: "match", MinThreshold: -1, MaxResults: 10}, candidates, mon)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "zero"}, resultIDs(results))
	assert.InDelta(t, 0.0, results[1].Score, 1e-9, "zero vector has similarity 0")

	assert.Equal(t, map[string]string{"no-embedding": "no embedding", "wrong-dim": "dimension mismatch"}, mon.skipped)
	assert.Equal(t, 2, mon.scored)
	assert.Equal(t, 2, mon.dimensions)
	assert.Len(t, mon.finished, 2)
}

func TestScorer_Search_ExactMatchOnlyRaises(t *testing.T) {
	s, err := NewScorer(fixedEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	// Negative similarity: the boost still applies on top of it.
	candidates := []*core.Item{newItem("opposite", "storm warning", "storm", []float32{-1, 0})}
	results, err := s.Search(context.Background(), Request{Query: "storm", MinThreshold: -2, MaxResults: 1}, candidates)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, -1+0.3, results[0].Score, 1e-6)
}

func TestScorer_Search_EmbedderError(t *testing.T) {
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("service unavailable")
	}
	s, err := NewScorer(m)
	require.NoError(t, err)

	_, err = s.Search(context.Background(), Request{Query: "q", MaxResults: 1}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrInvalidQuery)
}

func TestExactMatchScore(t *testing.T) {
	q := wordSet("Gaza ceasefire")
	assert.InDelta(t, 1.0, exactMatchScore(q, "GAZA: ceasefire!", "GAZA: ceasefire!", 0.7, 0.3), 1e-9)
	assert.InDelta(t, 0.35, exactMatchScore(q, "ceasefire talks", "", 0.7, 0.3), 1e-9)
	assert.InDelta(t, 0.0, exactMatchScore(wordSet("..."), "anything", "", 0.7, 0.3), 1e-9)
}

type recordingMonitor struct {
	dimensions int
	scored     int
	skipped    map[string]string
	finished   []*core.SemanticResult
}

func (m *recordingMonitor) Start(_ string, _, _ float64)         {}
func (m *recordingMonitor) AfterQueryEmbedding(dim int)          { m.dimensions = dim }
func (m *recordingMonitor) Scored(_ *core.Item, _, _, _ float64) { m.scored++ }
func (m *recordingMonitor) Finish(r []*core.SemanticResult)      { m.finished = r }
func (m *recordingMonitor) Skipped(item *core.Item, reason string) {
	if m.skipped == nil {
		m.skipped = make(map[string]string)
	}
	m.skipped[item.ID] = reason
}
