package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/khabar/ai"
	"github.com/poiesic/khabar/core"
)

// State is a snapshot of the coordinator's re-fit bookkeeping.
// NeedsClustering is true exactly when ItemsSinceLastCluster > 0.
type State struct {
	ItemsSinceLastCluster int
	NeedsClustering       bool
	LastClusterTime       time.Time // zero until the first successful fit
	Threshold             int       // new items needed to trigger a re-fit
}

// Coordinator tracks new items and owns the current topic assignments.
type Coordinator struct {
	model      ai.TopicModel
	threshold  int
	dimensions int
	now        func() time.Time
	logger     *slog.Logger

	mu          sync.Mutex
	state       State
	assignments map[string]int
	order       []string // item ids in the order they were fitted
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithThreshold sets how many new items trigger a re-fit. Default is 5.
func WithThreshold(n int) Option {
	return func(c *Coordinator) error {
		if n < 1 {
			return ErrInvalidThreshold
		}
		c.threshold = n
		return nil
	}
}

// WithDimensions sets the required embedding length. Default is 384.
func WithDimensions(n int) Option {
	return func(c *Coordinator) error {
		if n < 1 {
			return ErrInvalidDimensions
		}
		c.dimensions = n
		return nil
	}
}

// WithClock overrides the time source for LastClusterTime.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) error {
		if now != nil {
			c.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCoordinator creates a coordinator that fits topics with model.
func NewCoordinator(model ai.TopicModel, opts ...Option) (*Coordinator, error) {
	if model == nil {
		return nil, ErrTopicModelRequired
	}

	c := &Coordinator{
		model:       model,
		threshold:   5,
		dimensions:  384,
		now:         time.Now,
		logger:      slog.Default(),
		assignments: make(map[string]int),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "cluster-coordinator")
	return c, nil
}

// Add records a newly ingested item. Items without an embedding are skipped.
func (c *Coordinator) Add(item *core.Item) {
	if !item.HasEmbedding() {
		if item != nil {
			c.logger.Debug("skipping item without embedding", "id", item.ID)
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ItemsSinceLastCluster++
	c.state.NeedsClustering = true
}

// ShouldCluster reports whether enough new items arrived to re-fit.
func (c *Coordinator) ShouldCluster() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.NeedsClustering && c.state.ItemsSinceLastCluster >= c.threshold
}

// State returns a snapshot of the bookkeeping.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.state
	state.Threshold = c.threshold
	return state
}

// Cluster re-fits topics over items, which should be the whole current
// window. Items with malformed embeddings are dropped individually. On any
// failure the previous assignments and counters are kept.
func (c *Coordinator) Cluster(ctx context.Context, items []*core.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valid := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if err := core.ValidateEmbedding(item.Embedding, c.dimensions); err != nil {
			c.logger.Warn("dropping item from clustering", "id", item.ID, "err", err)
			continue
		}
		valid = append(valid, item)
	}

	if len(valid) < c.threshold {
		c.logger.Info("not enough items to cluster", "valid", len(valid), "threshold", c.threshold)
		return fmt.Errorf("%w: %d valid, need %d", ErrNotEnoughItems, len(valid), c.threshold)
	}

	texts := make([]string, len(valid))
	embeddings := make([][]float32, len(valid))
	for i, item := range valid {
		texts[i] = item.Title + " " + item.Summary
		embeddings[i] = item.Embedding
	}

	topics, err := c.fit(ctx, texts, embeddings)
	if err == nil && len(topics) != len(valid) {
		err = fmt.Errorf("model returned %d topics for %d items", len(topics), len(valid))
	}
	if err != nil {
		c.logger.Error("clustering failed", "items", len(valid), "dimensions", c.dimensions, "err", err)
		return fmt.Errorf("%w: %w", ErrTopicModelFailed, err)
	}

	assignments := make(map[string]int, len(valid))
	order := make([]string, len(valid))
	for i, item := range valid {
		assignments[item.ID] = topics[i]
		order[i] = item.ID
	}
	c.assignments = assignments
	c.order = order
	c.state = State{LastClusterTime: c.now()}

	c.logger.Info("clustered items", "items", len(valid), "topics", countTopics(topics))
	return nil
}

// fit calls the model, converting a panic into an error.
func (c *Coordinator) fit(ctx context.Context, texts []string, embeddings [][]float32) (topics []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.model.Fit(ctx, texts, embeddings)
}

// Topics groups item ids by topic, in fit order within each topic.
// Ids may refer to items that have since left the store.
func (c *Coordinator) Topics() map[int][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groupLocked()
}

// TopicsWithKeywords is Topics with keywords attached to every topic except
// the outlier topic.
func (c *Coordinator) TopicsWithKeywords() map[int]core.TopicSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int]core.TopicSummary)
	for topic, ids := range c.groupLocked() {
		summary := core.TopicSummary{ItemIDs: ids}
		if topic != core.OutlierTopic {
			summary.Keywords = c.keywordsLocked(topic)
		}
		out[topic] = summary
	}
	return out
}

// TopicInfo describes one topic. It returns ErrTopicNotFound when no item
// is assigned to topicID.
func (c *Coordinator) TopicInfo(topicID int) (*core.TopicInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.groupLocked()[topicID]
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrTopicNotFound, topicID)
	}

	info := &core.TopicInfo{
		TopicID:   topicID,
		ItemCount: len(ids),
		ItemIDs:   ids,
		Keywords:  []core.Keyword{},
	}
	if topicID != core.OutlierTopic {
		info.Keywords = c.keywordsLocked(topicID)
	}
	return info, nil
}

func (c *Coordinator) groupLocked() map[int][]string {
	groups := make(map[int][]string)
	for _, id := range c.order {
		topic := c.assignments[id]
		groups[topic] = append(groups[topic], id)
	}
	return groups
}

func (c *Coordinator) keywordsLocked(topic int) []core.Keyword {
	kws := c.model.Keywords(topic)
	out := make([]core.Keyword, len(kws))
	for i, kw := range kws {
		out[i] = core.Keyword{Word: kw.Word, Score: kw.Score}
	}
	return out
}

func countTopics(topics []int) int {
	seen := make(map[int]struct{})
	for _, t := range topics {
		if t != core.OutlierTopic {
			seen[t] = struct{}{}
		}
	}
	return len(seen)
}
