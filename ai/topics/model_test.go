package topics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(pattern []float32, times int) []float32 {
	out := make([]float32, 0, len(pattern)*times)
	for i := 0; i < times; i++ {
		out = append(out, pattern...)
	}
	return out
}

func warEconomyFixture() ([]string, [][]float32) {
	texts := []string{
		"War escalates in region. Military conflict intensifies",
		"Military operations continue. War zone expands",
		"Economic crisis deepens. Markets fall sharply",
		"Economy shows recovery. Markets stabilize",
	}
	embeddings := [][]float32{
		repeat([]float32{0.1, 0.2, 0.3}, 128),
		repeat([]float32{0.11, 0.21, 0.31}, 128),
		repeat([]float32{0.8, 0.7, 0.6}, 128),
		repeat([]float32{0.81, 0.71, 0.61}, 128),
	}
	return texts, embeddings
}

func TestNewModel(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		m, err := NewModel()
		require.NoError(t, err)
		assert.Equal(t, 2, m.minTopicSize)
		assert.Equal(t, 10, m.topKeywords)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := NewModel(WithMinTopicSize(0))
		assert.ErrorIs(t, err, ErrInvalidOption)

		_, err = NewModel(WithTopKeywords(0))
		assert.ErrorIs(t, err, ErrInvalidOption)

		_, err = NewModel(WithMinSilhouette(2))
		assert.ErrorIs(t, err, ErrInvalidOption)
	})
}

func TestModel_Fit_SeparatesTopics(t *testing.T) {
	m, err := NewModel()
	require.NoError(t, err)

	texts, embeddings := warEconomyFixture()
	topics, err := m.Fit(context.Background(), texts, embeddings)
	require.NoError(t, err)
	require.Len(t, topics, 4)

	assert.Equal(t, topics[0], topics[1], "war articles share a topic")
	assert.Equal(t, topics[2], topics[3], "economy articles share a topic")
	assert.NotEqual(t, topics[0], topics[2])
	assert.Equal(t, 0, topics[0], "ties are numbered by earliest member")
	assert.Equal(t, 1, topics[2])

	warWords := words(m, topics[0])
	assert.Contains(t, warWords, "war")
	assert.Contains(t, warWords, "military")
	assert.NotContains(t, warWords, "in", "stop words are removed")

	econWords := words(m, topics[2])
	assert.Contains(t, econWords, "markets")
}

func TestModel_Fit_SingleTopicWhenInseparable(t *testing.T) {
	m, err := NewModel()
	require.NoError(t, err)

	vec := repeat([]float32{0.3, 0.3, 0.3}, 4)
	texts := []string{"alpha news", "alpha update", "alpha story", "alpha report"}
	embeddings := [][]float32{vec, vec, vec, vec}

	topics, err := m.Fit(context.Background(), texts, embeddings)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0}, topics)
	assert.Equal(t, "alpha", m.Keywords(0)[0].Word)
}

func TestModel_Fit_SmallClustersAreOutliers(t *testing.T) {
	m, err := NewModel(WithMinTopicSize(3), WithMinSilhouette(-1))
	require.NoError(t, err)

	a := []float32{1, 0, 0}
	a2 := []float32{0.99, 0.01, 0}
	b := []float32{0, 0, 1}
	texts := []string{"one", "two", "three", "four", "five", "six", "seven"}
	embeddings := [][]float32{a, a2, a, a2, a, b, b}

	topics, err := m.Fit(context.Background(), texts, embeddings)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 0, -1, -1}, topics)
	assert.Nil(t, m.Keywords(-1))
}

func TestModel_Fit_Errors(t *testing.T) {
	m, err := NewModel()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.Fit(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrNoDocuments)

	_, err = m.Fit(ctx, []string{"a"}, [][]float32{{1}, {1}})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = m.Fit(ctx, []string{"a"}, [][]float32{{1}})
	assert.ErrorIs(t, err, ErrTooFewDocuments)

	_, err = m.Fit(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {1}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestModel_Fit_FailureKeepsPreviousKeywords(t *testing.T) {
	m, err := NewModel()
	require.NoError(t, err)

	texts, embeddings := warEconomyFixture()
	_, err = m.Fit(context.Background(), texts, embeddings)
	require.NoError(t, err)
	before := m.Keywords(0)
	require.NotEmpty(t, before)

	_, err = m.Fit(context.Background(), []string{"x"}, [][]float32{{1}})
	require.Error(t, err)
	assert.Equal(t, before, m.Keywords(0))
}

func TestModel_Fit_Cancelled(t *testing.T) {
	m, err := NewModel()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	texts, embeddings := warEconomyFixture()
	_, err = m.Fit(ctx, texts, embeddings)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_Fit_Deterministic(t *testing.T) {
	texts, embeddings := warEconomyFixture()

	m1, _ := NewModel()
	m2, _ := NewModel()
	t1, err := m1.Fit(context.Background(), texts, embeddings)
	require.NoError(t, err)
	t2, err := m2.Fit(context.Background(), texts, embeddings)
	require.NoError(t, err)

	assert.Equal(t, t1, t2)
	assert.Equal(t, m1.Keywords(0), m2.Keywords(0))
}

func TestTokenize(t *testing.T) {
	got := tokenize("The War, in 2024: it's a U.N. matter!")
	assert.Equal(t, []string{"war", "matter"}, got)
}

func words(m *Model, topic int) []string {
	var out []string
	for _, kw := range m.Keywords(topic) {
		out = append(out, kw.Word)
	}
	return out
}
