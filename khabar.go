// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package khabar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/khabar/ai"
	"github.com/poiesic/khabar/ai/openai"
	"github.com/poiesic/khabar/cluster"
	"github.com/poiesic/khabar/core"
	"github.com/poiesic/khabar/feed"
	"github.com/poiesic/khabar/ingestion"
	"github.com/poiesic/khabar/notify"
	"github.com/poiesic/khabar/search"
	"github.com/poiesic/khabar/store"
)

// Desk owns one feed's ingestion loop and answers queries over its window.
type Desk struct {
	feedURL          string
	provider         ai.AIProvider
	state            *feed.State
	tracker          *feed.Tracker
	store            *store.Store
	scorer           *search.Scorer
	coordinator      *cluster.Coordinator
	pipeline         *ingestion.Pipeline
	keywordMinLength int
	maxLatest        int
	logger           *slog.Logger
}

// Status reports the feed and clustering state.
type Status struct {
	FeedURL           string
	TotalStored       int
	UniqueSeen        int
	LatestContentHash string
	LastFetchTime     time.Time
	ETag              string
	LastModified      string
	LatestItem        *core.Item // nil when the store is empty
	PollingActive     bool
	Clustering        cluster.State
}

// DeskOption configures a Desk.
type DeskOption func(*deskOptions)

type deskOptions struct {
	aiConfig         *ai.Config
	provider         ai.AIProvider
	source           ingestion.FeedSource
	notifier         notify.Notifier
	capacity         int
	clusterThreshold int
	pollInterval     time.Duration
	requestTimeout   time.Duration
	keywordMinLength int
	maxLatest        int
	logger           *slog.Logger
}

// WithAIConfig sets the embedding and topic model configuration.
// Its Dimensions also bound the embeddings accepted for clustering.
func WithAIConfig(cfg *ai.Config) DeskOption {
	return func(o *deskOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The Desk closes it on Close.
func WithProvider(provider ai.AIProvider) DeskOption {
	return func(o *deskOptions) {
		o.provider = provider
	}
}

// WithFeedSource replaces the HTTP fetcher.
func WithFeedSource(source ingestion.FeedSource) DeskOption {
	return func(o *deskOptions) {
		o.source = source
	}
}

// WithNotifier sends every new item to n.
func WithNotifier(n notify.Notifier) DeskOption {
	return func(o *deskOptions) {
		o.notifier = n
	}
}

// WithCapacity sets how many items the store keeps. Default is 100.
func WithCapacity(n int) DeskOption {
	return func(o *deskOptions) {
		o.capacity = n
	}
}

// WithClusterThreshold sets how many new items trigger a re-cluster. Default is 5.
func WithClusterThreshold(n int) DeskOption {
	return func(o *deskOptions) {
		o.clusterThreshold = n
	}
}

// WithPollInterval sets the time between polls. Default is 60 seconds.
func WithPollInterval(d time.Duration) DeskOption {
	return func(o *deskOptions) {
		o.pollInterval = d
	}
}

// WithRequestTimeout sets the feed request timeout. Default is 10 seconds.
func WithRequestTimeout(d time.Duration) DeskOption {
	return func(o *deskOptions) {
		o.requestTimeout = d
	}
}

// WithKeywordMinLength sets the shortest accepted keyword. Default is 2.
func WithKeywordMinLength(n int) DeskOption {
	return func(o *deskOptions) {
		o.keywordMinLength = n
	}
}

// WithMaxLatest caps the count accepted by Latest. Default is 50.
func WithMaxLatest(n int) DeskOption {
	return func(o *deskOptions) {
		o.maxLatest = n
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DeskOption {
	return func(o *deskOptions) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// NewDesk wires the components for the feed at feedURL. Polling does not
// begin until Start.
func NewDesk(feedURL string, opts ...DeskOption) (*Desk, error) {
	options := &deskOptions{
		aiConfig:         ai.DefaultConfig(),
		capacity:         100,
		clusterThreshold: 5,
		pollInterval:     60 * time.Second,
		requestTimeout:   10 * time.Second,
		keywordMinLength: 2,
		maxLatest:        50,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	if err := options.aiConfig.Validate(); err != nil {
		return nil, err
	}
	if options.keywordMinLength < 1 || options.maxLatest < 1 {
		return nil, fmt.Errorf("keyword min length and max latest must be positive")
	}

	source := options.source
	if source == nil {
		fetcher, err := feed.NewFetcher(feedURL,
			feed.WithTimeout(options.requestTimeout),
			feed.WithFetcherLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		source = fetcher
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	d, err := newDesk(feedURL, provider, source, options)
	if err != nil {
		if closeErr := provider.Close(); closeErr != nil {
			logger.Error("error closing AI provider", "err", closeErr)
		}
		return nil, err
	}
	return d, nil
}

func newDesk(feedURL string, provider ai.AIProvider, source ingestion.FeedSource, options *deskOptions) (*Desk, error) {
	logger := options.logger

	st, err := store.New(options.capacity, store.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	scorer, err := search.NewScorer(provider.Embedder(), search.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	coordinator, err := cluster.NewCoordinator(provider.TopicModel(),
		cluster.WithThreshold(options.clusterThreshold),
		cluster.WithDimensions(options.aiConfig.Dimensions),
		cluster.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	tracker, err := feed.NewTracker(provider.Embedder(), feed.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	state := feed.NewState()
	pipelineOpts := []ingestion.Option{
		ingestion.WithInterval(options.pollInterval),
		ingestion.WithLogger(logger),
	}
	if options.notifier != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithNotifier(options.notifier))
	}
	pipeline, err := ingestion.NewPipeline(source, tracker, state, st, coordinator, pipelineOpts...)
	if err != nil {
		tracker.Release()
		return nil, err
	}

	return &Desk{
		feedURL:          feedURL,
		provider:         provider,
		state:            state,
		tracker:          tracker,
		store:            st,
		scorer:           scorer,
		coordinator:      coordinator,
		pipeline:         pipeline,
		keywordMinLength: options.keywordMinLength,
		maxLatest:        options.maxLatest,
		logger:           logger.With("component", "desk"),
	}, nil
}

// Start begins background polling. The first poll runs immediately.
func (d *Desk) Start(ctx context.Context) error {
	return d.pipeline.Start(ctx)
}

// Stop ends background polling and waits for an in-flight poll.
func (d *Desk) Stop() {
	d.pipeline.Stop()
}

// PollOnce runs a single poll cycle in the caller's goroutine.
func (d *Desk) PollOnce(ctx context.Context) (ingestion.PollResult, error) {
	return d.pipeline.PollOnce(ctx)
}

// Close stops polling and releases worker pools and the AI provider.
func (d *Desk) Close() error {
	d.pipeline.Release()
	d.tracker.Release()
	if err := d.provider.Close(); err != nil {
		d.logger.Error("error closing AI provider", "err", err)
		return err
	}
	return nil
}

// FeedURL returns the polled feed address.
func (d *Desk) FeedURL() string {
	return d.feedURL
}

// ListAll returns every stored item, newest published first.
func (d *Desk) ListAll() []*core.Item {
	return d.store.All()
}

// Latest returns the n newest items. n must be in [1, max latest].
func (d *Desk) Latest(n int) ([]*core.Item, error) {
	if err := core.ValidateCount(n, d.maxLatest); err != nil {
		return nil, err
	}
	return d.store.Latest(n), nil
}

// KeywordSearch returns items whose title or summary contains term,
// ignoring case. Surrounding whitespace in term is ignored.
func (d *Desk) KeywordSearch(term string) ([]*core.Item, error) {
	if err := core.ValidateKeyword(term, d.keywordMinLength); err != nil {
		return nil, err
	}
	return d.store.KeywordSearch(strings.TrimSpace(term)), nil
}

// SemanticSearch ranks the stored items against req.
func (d *Desk) SemanticSearch(ctx context.Context, req search.Request) ([]*core.SemanticResult, error) {
	return d.scorer.Search(ctx, req, d.store.All())
}

// FeedStatus reports the feed and clustering state.
func (d *Desk) FeedStatus() Status {
	snap := d.state.Snapshot()
	return Status{
		FeedURL:           d.feedURL,
		TotalStored:       d.store.Len(),
		UniqueSeen:        snap.SeenCount,
		LatestContentHash: snap.LatestContentHash,
		LastFetchTime:     snap.LastFetchTime,
		ETag:              snap.ETag,
		LastModified:      snap.LastModified,
		LatestItem:        d.store.Newest(),
		PollingActive:     d.pipeline.Running(),
		Clustering:        d.coordinator.State(),
	}
}

// Topics groups stored item ids by topic. Items evicted since the last
// re-cluster are left out, as are topics with no stored items.
func (d *Desk) Topics() map[int][]string {
	groups := d.coordinator.Topics()
	out := make(map[int][]string, len(groups))
	for topic, ids := range groups {
		if kept := d.stored(ids); len(kept) > 0 {
			out[topic] = kept
		}
	}
	return out
}

// TopicsWithKeywords is Topics with each topic's keywords.
func (d *Desk) TopicsWithKeywords() map[int]core.TopicSummary {
	groups := d.coordinator.TopicsWithKeywords()
	out := make(map[int]core.TopicSummary, len(groups))
	for topic, summary := range groups {
		kept := d.stored(summary.ItemIDs)
		if len(kept) == 0 {
			continue
		}
		summary.ItemIDs = kept
		out[topic] = summary
	}
	return out
}

// TopicInfo describes one topic. It returns an error wrapping
// cluster.ErrTopicNotFound when no stored item belongs to topicID.
func (d *Desk) TopicInfo(topicID int) (*core.TopicInfo, error) {
	info, err := d.coordinator.TopicInfo(topicID)
	if err != nil {
		return nil, err
	}
	kept := d.stored(info.ItemIDs)
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %d", cluster.ErrTopicNotFound, topicID)
	}
	info.ItemIDs = kept
	info.ItemCount = len(kept)
	return info, nil
}

func (d *Desk) stored(ids []string) []string {
	present := d.store.Contains(ids)
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if present[id] {
			kept = append(kept, id)
		}
	}
	return kept
}
