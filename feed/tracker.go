package feed

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/khabar/ai"
	"github.com/poiesic/khabar/core"
)

// DefaultBatchSize is the number of texts sent in one embedding request.
const DefaultBatchSize = 16

// Tracker converts parsed feeds into new items.
type Tracker struct {
	embedder  ai.Embedder
	pool      *ants.Pool
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker) error

// WithPoolSize sets the number of concurrent embedding requests.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(t *Tracker) error {
		if size < 1 {
			return ErrInvalidPoolSize
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if t.pool != nil {
			t.pool.Release()
		}
		t.pool = pool
		return nil
	}
}

// WithBatchSize sets how many texts go into one embedding request.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(t *Tracker) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		t.batchSize = size
		return nil
	}
}

// WithClock overrides the time source used for fetch times and
// published-time fallbacks.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) error {
		if now != nil {
			t.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) error {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger
		return nil
	}
}

// NewTracker creates a tracker that embeds new items with embedder.
func NewTracker(embedder ai.Embedder, opts ...Option) (*Tracker, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		embedder:  embedder,
		pool:      pool,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			t.Release()
			return nil, err
		}
	}
	t.logger = t.logger.With("component", "feed-tracker")
	return t, nil
}

// Process returns the entries of raw not seen by earlier calls, in feed
// order. When the newest entry is unchanged since the last call it returns
// nil without touching state. Embedding failures leave Embedding nil.
//
// State is only updated once every new item has been through the
// embedder. If ctx is cancelled first, Process returns ctx.Err() and
// state is left as it was, so the same entries are offered again.
func (t *Tracker) Process(ctx context.Context, raw *gofeed.Feed, state *State) ([]*core.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := t.now()
	hash := contentHash(raw)
	if state.unchanged(hash) {
		t.logger.Debug("feed unchanged", "hash", hash)
		return nil, nil
	}

	items := t.collect(raw, state, now)
	if err := t.embed(ctx, items); err != nil {
		t.logger.Warn("cycle interrupted during embedding, nothing recorded", "new", len(items), "err", err)
		return nil, err
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	state.commit(hash, now, ids)

	if raw != nil {
		t.logger.Info("processed feed", "entries", len(raw.Items), "new", len(items))
	}
	return items, nil
}

// Release releases the embedding worker pool.
func (t *Tracker) Release() {
	if t.pool != nil {
		t.pool.Release()
	}
}

// collect builds items for entries not in state, dropping repeats within raw.
func (t *Tracker) collect(raw *gofeed.Feed, state *State, now time.Time) []*core.Item {
	if raw == nil {
		return nil
	}

	source := raw.Title
	if source == "" {
		source = raw.FeedLink
	}
	if source == "" {
		source = raw.Link
	}

	var items []*core.Item
	batch := make(map[string]struct{})
	for _, entry := range raw.Items {
		if entry == nil {
			continue
		}
		id := entryID(entry)
		if id == "" {
			t.logger.Warn("skipping entry without identity", "title", entry.Title)
			continue
		}
		if _, dup := batch[id]; dup || state.Seen(id) {
			continue
		}
		batch[id] = struct{}{}

		items = append(items, &core.Item{
			ID:        id,
			Published: t.published(entry, now),
			Title:     strings.TrimSpace(entry.Title),
			URL:       entry.Link,
			Summary:   strings.TrimSpace(entry.Description),
			Source:    source,
		})
	}
	return items
}

// embed attaches embeddings in batches on the pool. Each task writes only
// the items of its own batch. It returns ctx.Err() if ctx ended meanwhile.
func (t *Tracker) embed(ctx context.Context, items []*core.Item) error {
	var pending []*core.Item
	for _, item := range items {
		if item.Text() != "" {
			pending = append(pending, item)
		}
	}

	var wg sync.WaitGroup
	for start := 0; start < len(pending); start += t.batchSize {
		batch := pending[start:min(start+t.batchSize, len(pending))]

		wg.Add(1)
		task := func() {
			defer wg.Done()
			t.embedBatch(ctx, batch)
		}
		if err := t.pool.Submit(task); err != nil {
			t.logger.Debug("pool unavailable, embedding inline", "err", err)
			task()
		}
	}
	wg.Wait()
	return ctx.Err()
}

// embedBatch embeds batch in one request. When the request fails for a
// reason other than ctx, each item is retried alone so one bad text
// cannot blank its neighbours.
func (t *Tracker) embedBatch(ctx context.Context, batch []*core.Item) {
	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.Text()
	}

	vecs, err := t.embedder.EmbedTexts(ctx, texts)
	if err == nil && len(vecs) != len(batch) {
		err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(batch))
	}
	if err == nil {
		for i, item := range batch {
			t.attach(item, vecs[i])
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	t.logger.Warn("batch embedding failed, retrying items one by one", "items", len(batch), "err", err)
	for i, item := range batch {
		vec, err := t.embedder.EmbedText(ctx, texts[i])
		if err != nil {
			t.logger.Warn("embedding failed", "id", item.ID, "err", err)
			continue
		}
		t.attach(item, vec)
	}
}

func (t *Tracker) attach(item *core.Item, vec []float32) {
	if len(vec) == 0 {
		t.logger.Warn("embedder returned empty vector", "id", item.ID)
		return
	}
	item.Embedding = vec
}

func (t *Tracker) published(entry *gofeed.Item, now time.Time) time.Time {
	if entry.PublishedParsed != nil && !entry.PublishedParsed.IsZero() {
		return *entry.PublishedParsed
	}
	if entry.Published != "" {
		if ts, err := dateparse.ParseAny(entry.Published); err == nil {
			return ts
		}
		t.logger.Debug("unparseable published time", "value", entry.Published)
	}
	return now
}

// entryID is the feed GUID, else a digest of the link, else a digest of
// the entry's remaining content. Empty entries yield "".
func entryID(entry *gofeed.Item) string {
	if id := strings.TrimSpace(entry.GUID); id != "" {
		return id
	}
	if entry.Link != "" {
		return core.HashHex(entry.Link)
	}
	if entry.Title == "" && entry.Published == "" && entry.Description == "" {
		return ""
	}
	return core.HashHex(entry.Title, entry.Published, entry.Description)
}

// contentHash identifies the newest entry, taken to be the first in
// document order.
func contentHash(raw *gofeed.Feed) string {
	if raw == nil || len(raw.Items) == 0 || raw.Items[0] == nil {
		return EmptyContentHash
	}
	newest := raw.Items[0]
	idOrLink := newest.GUID
	if idOrLink == "" {
		idOrLink = newest.Link
	}
	return core.HashHex(idOrLink, newest.Title, newest.Link, newest.Published)
}
