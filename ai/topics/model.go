package topics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/poiesic/khabar/ai"
	"github.com/poiesic/khabar/core"
)

// Model groups documents into topics. It is safe for concurrent use.
type Model struct {
	minTopicSize  int
	topKeywords   int
	maxTopics     int
	maxIterations int
	minSilhouette float64
	logger        *slog.Logger

	mu       sync.RWMutex
	keywords map[int][]ai.TopicKeyword
}

// Option is a functional option for configuring a Model.
type Option func(*Model) error

// WithMinTopicSize sets the smallest cluster reported as a topic.
func WithMinTopicSize(size int) Option {
	return func(m *Model) error {
		if size < 1 {
			return fmt.Errorf("%w: min topic size %d", ErrInvalidOption, size)
		}
		m.minTopicSize = size
		return nil
	}
}

// WithTopKeywords sets how many keywords are kept per topic.
func WithTopKeywords(n int) Option {
	return func(m *Model) error {
		if n < 1 {
			return fmt.Errorf("%w: top keywords %d", ErrInvalidOption, n)
		}
		m.topKeywords = n
		return nil
	}
}

// WithMaxTopics caps the number of clusters tried.
func WithMaxTopics(n int) Option {
	return func(m *Model) error {
		if n < 1 {
			return fmt.Errorf("%w: max topics %d", ErrInvalidOption, n)
		}
		m.maxTopics = n
		return nil
	}
}

// WithMinSilhouette sets the separation a split must reach to be kept.
func WithMinSilhouette(s float64) Option {
	return func(m *Model) error {
		if s < -1 || s > 1 {
			return fmt.Errorf("%w: min silhouette %v", ErrInvalidOption, s)
		}
		m.minSilhouette = s
		return nil
	}
}

// WithLogger sets the logger for the model.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewModel creates a topic model.
func NewModel(opts ...Option) (*Model, error) {
	m := &Model{
		minTopicSize:  2,
		topKeywords:   10,
		maxTopics:     12,
		maxIterations: 50,
		minSilhouette: 0.25,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "topic-model")
	return m, nil
}

var _ ai.TopicModel = (*Model)(nil)

// Fit assigns every document a topic id, -1 for outliers.
// On error the keywords of the previous fit are kept.
func (m *Model) Fit(ctx context.Context, texts []string, embeddings [][]float32) ([]int, error) {
	if err := m.validate(texts, embeddings); err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(embeddings))
	for i, e := range embeddings {
		vecs[i] = core.NormalizeVector(e)
	}
	dist := cosineDistances(vecs)

	labels := make([]int, len(vecs))
	bestScore, bestK := 0.0, 1
	maxK := min(m.maxTopics, len(vecs)/m.minTopicSize)
	for k := 2; k <= maxK; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidate := kmeans(vecs, dist, k, m.maxIterations)
		score := silhouette(dist, candidate, k)
		m.logger.Debug("evaluated split", "k", k, "silhouette", score)
		if score >= m.minSilhouette && (bestK == 1 || score > bestScore) {
			bestScore, bestK = score, k
			labels = candidate
		}
	}

	topics := relabel(labels, m.minTopicSize)
	keywords := classKeywords(texts, topics, m.topKeywords)

	m.mu.Lock()
	m.keywords = keywords
	m.mu.Unlock()

	m.logger.Info("fitted topics", "documents", len(texts), "topics", len(keywords), "distribution", distribution(topics))
	return topics, nil
}

// Keywords returns the keywords of a topic from the last successful Fit.
func (m *Model) Keywords(topicID int) []ai.TopicKeyword {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kws := m.keywords[topicID]
	if kws == nil {
		return nil
	}
	return append([]ai.TopicKeyword(nil), kws...)
}

func (m *Model) validate(texts []string, embeddings [][]float32) error {
	if len(embeddings) == 0 {
		return ErrNoDocuments
	}
	if len(texts) != len(embeddings) {
		return fmt.Errorf("%w: %d texts, %d embeddings", ErrLengthMismatch, len(texts), len(embeddings))
	}
	if len(embeddings) < m.minTopicSize {
		return fmt.Errorf("%w: %d documents, minimum %d", ErrTooFewDocuments, len(embeddings), m.minTopicSize)
	}
	dim := len(embeddings[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty embedding at index 0", ErrDimensionMismatch)
	}
	for i, e := range embeddings {
		if len(e) != dim {
			return fmt.Errorf("%w: index %d has %d, want %d", ErrDimensionMismatch, i, len(e), dim)
		}
	}
	return nil
}

// relabel turns raw cluster labels into topic ids. Clusters smaller than
// minSize become -1; the rest are numbered from 0 by size descending, ties
// broken by the earliest member.
func relabel(labels []int, minSize int) []int {
	type cluster struct {
		label, size, first int
	}
	byLabel := make(map[int]*cluster)
	for i, l := range labels {
		c, ok := byLabel[l]
		if !ok {
			c = &cluster{label: l, first: i}
			byLabel[l] = c
		}
		c.size++
	}

	kept := make([]*cluster, 0, len(byLabel))
	for _, c := range byLabel {
		if c.size >= minSize {
			kept = append(kept, c)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].size != kept[j].size {
			return kept[i].size > kept[j].size
		}
		return kept[i].first < kept[j].first
	})

	ids := make(map[int]int, len(kept))
	for id, c := range kept {
		ids[c.label] = id
	}

	topics := make([]int, len(labels))
	for i, l := range labels {
		if id, ok := ids[l]; ok {
			topics[i] = id
		} else {
			topics[i] = core.OutlierTopic
		}
	}
	return topics
}

func distribution(topics []int) map[int]int {
	counts := make(map[int]int)
	for _, t := range topics {
		counts[t]++
	}
	return counts
}
