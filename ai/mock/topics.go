package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/poiesic/khabar/ai"
)

// MockTopicModel is a test double for ai.TopicModel.
// It allows custom behavior injection via function fields.
type MockTopicModel struct {
	// FitFunc is called by Fit if set.
	// If nil, every document is assigned to topic 0.
	FitFunc func(ctx context.Context, texts []string, embeddings [][]float32) ([]int, error)

	// KeywordsFunc is called by Keywords if set.
	// If nil, returns the most frequent words of the last fitted topic.
	KeywordsFunc func(topicID int) []ai.TopicKeyword

	mu        sync.Mutex
	callCount int
	keywords  map[int][]ai.TopicKeyword
}

// NewMockTopicModel creates a mock topic model with default behavior.
func NewMockTopicModel() *MockTopicModel {
	return &MockTopicModel{}
}

// Fit assigns topics using FitFunc or the single-topic default.
func (m *MockTopicModel) Fit(ctx context.Context, texts []string, embeddings [][]float32) ([]int, error) {
	m.mu.Lock()
	m.callCount++
	fitFunc := m.FitFunc
	m.mu.Unlock()

	var (
		topics []int
		err    error
	)
	if fitFunc != nil {
		topics, err = fitFunc(ctx, texts, embeddings)
	} else {
		topics = make([]int, len(texts))
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.keywords = wordCounts(texts, topics)
	m.mu.Unlock()
	return topics, nil
}

// Keywords returns keywords for a topic from the last successful Fit.
func (m *MockTopicModel) Keywords(topicID int) []ai.TopicKeyword {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.KeywordsFunc != nil {
		return m.KeywordsFunc(topicID)
	}
	return m.keywords[topicID]
}

// CallCount returns the number of times Fit was called.
func (m *MockTopicModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears call counts, fitted keywords and injected behavior.
func (m *MockTopicModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.keywords = nil
	m.FitFunc = nil
	m.KeywordsFunc = nil
}

// wordCounts ranks each topic's words by raw frequency, ties alphabetical.
func wordCounts(texts []string, topics []int) map[int][]ai.TopicKeyword {
	counts := make(map[int]map[string]int)
	for i, text := range texts {
		if i >= len(topics) || topics[i] < 0 {
			continue
		}
		if counts[topics[i]] == nil {
			counts[topics[i]] = make(map[string]int)
		}
		for _, w := range strings.Fields(strings.ToLower(text)) {
			w = strings.Trim(w, ".,!?;:\"'()[]{}")
			if w != "" {
				counts[topics[i]][w]++
			}
		}
	}

	out := make(map[int][]ai.TopicKeyword, len(counts))
	for topic, words := range counts {
		kws := make([]ai.TopicKeyword, 0, len(words))
		for w, c := range words {
			kws = append(kws, ai.TopicKeyword{Word: w, Score: float64(c)})
		}
		sort.Slice(kws, func(i, j int) bool {
			if kws[i].Score != kws[j].Score {
				return kws[i].Score > kws[j].Score
			}
			return kws[i].Word < kws[j].Word
		})
		if len(kws) > 5 {
			kws = kws[:5]
		}
		out[topic] = kws
	}
	return out
}
