package ingestion

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/poiesic/khabar/ai/mock"
	"github.com/poiesic/khabar/cluster"
	"github.com/poiesic/khabar/core"
	"github.com/poiesic/khabar/feed"
	notifymock "github.com/poiesic/khabar/notify/mock"
	"github.com/poiesic/khabar/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoItemRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>BBC News - Middle East</title>
    <item>
      <title>Test Article 1</title>
      <link>https://example.com/1</link>
      <guid>test-guid-1</guid>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
      <description>Test summary 1</description>
    </item>
    <item>
      <title>Test Article 2</title>
      <link>https://example.com/2</link>
      <guid>test-guid-2</guid>
      <pubDate>Mon, 01 Jan 2024 11:00:00 GMT</pubDate>
      <description>Test summary 2</description>
    </item>
  </channel>
</rss>`

// testSource serves a fixed feed, or a fixed error, and counts fetches.
type testSource struct {
	mu    sync.Mutex
	feed  *gofeed.Feed
	err   error
	calls int
}

func (s *testSource) Fetch(ctx context.Context, state *feed.State) (*gofeed.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.feed, nil
}

func (s *testSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func parseFeed(t *testing.T, doc string) *gofeed.Feed {
	t.Helper()
	parsed, err := gofeed.NewParser().ParseString(doc)
	require.NoError(t, err)
	return parsed
}

type fixture struct {
	embedder    *mock.MockEmbedder
	source      *testSource
	state       *feed.State
	store       *store.Store
	coordinator *cluster.Coordinator
	topics      *mock.MockTopicModel
}

func newFixture(t *testing.T, capacity, threshold int) *fixture {
	t.Helper()
	st, err := store.New(capacity)
	require.NoError(t, err)

	topics := mock.NewMockTopicModel()
	coordinator, err := cluster.NewCoordinator(topics, cluster.WithThreshold(threshold), cluster.WithDimensions(mock.DefaultDimensions))
	require.NoError(t, err)

	return &fixture{
		embedder:    mock.NewMockEmbedder(),
		source:      &testSource{feed: parseFeed(t, twoItemRSS)},
		state:       feed.NewState(),
		store:       st,
		coordinator: coordinator,
		topics:      topics,
	}
}

func (f *fixture) pipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	tracker, err := feed.NewTracker(f.embedder, feed.WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(tracker.Release)

	p, err := NewPipeline(f.source, tracker, f.state, f.store, f.coordinator, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline(t *testing.T) {
	f := newFixture(t, 10, 5)
	tracker, err := feed.NewTracker(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer tracker.Release()

	tests := []struct {
		name    string
		build   func() (*Pipeline, error)
		wantErr error
	}{
		{"nil source", func() (*Pipeline, error) { return NewPipeline(nil, tracker, f.state, f.store, f.coordinator) }, ErrSourceRequired},
		{"nil tracker", func() (*Pipeline, error) { return NewPipeline(f.source, nil, f.state, f.store, f.coordinator) }, ErrTrackerRequired},
		{"nil state", func() (*Pipeline, error) { return NewPipeline(f.source, tracker, nil, f.store, f.coordinator) }, ErrStateRequired},
		{"nil store", func() (*Pipeline, error) { return NewPipeline(f.source, tracker, f.state, nil, f.coordinator) }, ErrStoreRequired},
		{"nil coordinator", func() (*Pipeline, error) { return NewPipeline(f.source, tracker, f.state, f.store, nil) }, ErrCoordinatorRequired},
		{"bad interval", func() (*Pipeline, error) {
			return NewPipeline(f.source, tracker, f.state, f.store, f.coordinator, WithInterval(0))
		}, ErrInvalidInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("notifier adds a processor", func(t *testing.T) {
		p, err := NewPipeline(f.source, tracker, f.state, f.store, f.coordinator,
			WithNotifier(notifymock.NewMockNotifier()), WithPoolSize(0), WithLogger(nil))
		require.NoError(t, err)
		defer p.Release()
		assert.Len(t, p.procs, 2)
	})
}

func TestPipeline_PollOnce(t *testing.T) {
	t.Run("stores new items once", func(t *testing.T) {
		f := newFixture(t, 10, 5)
		p := f.pipeline(t)

		result, err := p.PollOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "test-guid-1", result.Items[0].ID)
		assert.Equal(t, 2, f.store.Len())
		assert.Equal(t, 2, f.coordinator.State().ItemsSinceLastCluster)

		result, err = p.PollOnce(context.Background())
		require.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.Equal(t, 2, f.store.Len())
	})

	t.Run("not modified is not an error", func(t *testing.T) {
		f := newFixture(t, 10, 5)
		f.source.err = feed.ErrNotModified
		p := f.pipeline(t)

		result, err := p.PollOnce(context.Background())
		require.NoError(t, err)
		assert.True(t, result.NotModified)
		assert.Zero(t, f.store.Len())
	})

	t.Run("fetch error is returned", func(t *testing.T) {
		f := newFixture(t, 10, 5)
		f.source.err = &feed.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"}
		p := f.pipeline(t)

		_, err := p.PollOnce(context.Background())
		var httpErr *feed.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, 503, httpErr.StatusCode)
		assert.Zero(t, f.store.Len())
	})

	t.Run("cancelled context skips the fetch", func(t *testing.T) {
		f := newFixture(t, 10, 5)
		p := f.pipeline(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.PollOnce(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, f.source.Calls())
	})

	t.Run("evictions are counted", func(t *testing.T) {
		f := newFixture(t, 1, 5)
		p := f.pipeline(t)

		result, err := p.PollOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Evicted)
		assert.Equal(t, []*core.Item{result.Items[1]}, f.store.Items())
	})
}

func TestPipeline_PollOnce_Clusters(t *testing.T) {
	f := newFixture(t, 10, 2)
	p := f.pipeline(t)

	_, err := p.PollOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.topics.CallCount())
	state := f.coordinator.State()
	assert.Zero(t, state.ItemsSinceLastCluster)
	assert.False(t, state.NeedsClustering)
	assert.Equal(t, map[int][]string{0: {"test-guid-1", "test-guid-2"}}, f.coordinator.Topics())
}

func TestPipeline_PollOnce_ClusterFailureKeepsItems(t *testing.T) {
	f := newFixture(t, 10, 2)
	f.topics.FitFunc = func(ctx context.Context, texts []string, embeddings [][]float32) ([]int, error) {
		return nil, errors.New("model exploded")
	}
	p := f.pipeline(t)

	result, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 2, f.store.Len())
	assert.True(t, f.coordinator.State().NeedsClustering)
}

func TestPipeline_Notifications(t *testing.T) {
	t.Run("each new item is delivered once", func(t *testing.T) {
		f := newFixture(t, 10, 5)
		rec := notifymock.NewMockNotifier()
		p := f.pipeline(t, WithNotifier(rec))

		_, err := p.PollOnce(context.Background())
		require.NoError(t, err)
		_, err = p.PollOnce(context.Background())
		require.NoError(t, err)

		assert.Eventually(t, func() bool { return len(rec.Items()) == 2 }, time.Second, 10*time.Millisecond)
		assert.Never(t, func() bool { return len(rec.Items()) > 2 }, 100*time.Millisecond, 10*time.Millisecond)
	})

	t.Run("failing notifier does not affect ingestion", func(t *testing.T) {
		f := newFixture(t, 10, 5)
		var mu sync.Mutex
		attempts := 0
		panicky := notifymock.NewMockNotifier()
		panicky.NotifyFunc = func(ctx context.Context, item *core.Item) error {
			mu.Lock()
			attempts++
			n := attempts
			mu.Unlock()
			if n == 1 {
				panic("boom")
			}
			return errors.New("telegram down")
		}
		p := f.pipeline(t, WithNotifier(panicky))

		result, err := p.PollOnce(context.Background())
		require.NoError(t, err)
		assert.Len(t, result.Items, 2)
		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return attempts == 2
		}, time.Second, 10*time.Millisecond)
	})
}

func TestPipeline_StartStop(t *testing.T) {
	f := newFixture(t, 10, 5)
	p := f.pipeline(t, WithInterval(time.Hour))

	assert.False(t, p.Running())
	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.Running())
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyRunning)

	assert.Eventually(t, func() bool { return f.store.Len() == 2 }, time.Second, 10*time.Millisecond,
		"the first poll runs immediately")

	p.Stop()
	assert.False(t, p.Running())
	assert.Equal(t, 1, f.source.Calls())

	p.Stop()
	require.NoError(t, p.Start(context.Background()), "a stopped pipeline can be restarted")
	p.Stop()
}

func TestPipeline_StopDuringEmbeddingCommitsNothing(t *testing.T) {
	f := newFixture(t, 10, 2)
	started := make(chan struct{})
	var once sync.Once
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p := f.pipeline(t, WithInterval(time.Hour))

	require.NoError(t, p.Start(context.Background()))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("embedding never started")
	}
	p.Stop()

	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.state.SeenCount())
	assert.Equal(t, 0, f.coordinator.State().ItemsSinceLastCluster)

	// The next cycle picks the same entries up with embeddings.
	f.embedder.EmbedTextsFunc = nil
	result, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	for _, item := range f.store.Items() {
		assert.True(t, item.HasEmbedding(), item.ID)
	}
	assert.Equal(t, 2, f.state.SeenCount())
	assert.Equal(t, 1, f.topics.CallCount(), "both items reach clustering")
}

func TestPipeline_StartWithCancelledContext(t *testing.T) {
	f := newFixture(t, 10, 5)
	p := f.pipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Start(ctx))
	p.Stop()
	assert.Zero(t, f.source.Calls())
}

func TestCronLoggerAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := &cronLoggerAdapter{logger: logger}

	adapter.Info("wake", "now", "later")
	adapter.Error(errors.New("bad job"), "panic", "stack", "trace")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG msg=wake now=later")
	assert.Contains(t, out, "level=ERROR msg=panic stack=trace err=\"bad job\"")
}
