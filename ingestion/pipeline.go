package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/khabar/cluster"
	"github.com/poiesic/khabar/core"
	"github.com/poiesic/khabar/feed"
	"github.com/poiesic/khabar/notify"
	"github.com/poiesic/khabar/store"
	"github.com/robfig/cron/v3"
)

const releaseTimeout = 5 * time.Second

// FeedSource produces the raw feed for one poll. *feed.Fetcher is the
// production implementation; it returns feed.ErrNotModified when the
// server reports no change.
type FeedSource interface {
	Fetch(ctx context.Context, state *feed.State) (*gofeed.Feed, error)
}

// PollResult describes one poll cycle.
type PollResult struct {
	Items       []*core.Item // new items, in feed order
	Evicted     int
	NotModified bool
}

// Pipeline orchestrates polling the feed and processing new items.
// All store, tracker and coordinator mutation happens inside PollOnce.
type Pipeline struct {
	source      FeedSource
	tracker     *feed.Tracker
	state       *feed.State
	store       *store.Store
	coordinator *cluster.Coordinator
	notifier    notify.Notifier
	notifyPool  *ants.Pool
	procs       []processor
	interval    time.Duration
	logger      *slog.Logger

	pollMu sync.Mutex

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	initial sync.WaitGroup
	running bool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithInterval sets the time between scheduled polls. Default is 60 seconds.
// Intervals under a second are rounded up to one second.
func WithInterval(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return ErrInvalidInterval
		}
		p.interval = d
		return nil
	}
}

// WithNotifier sets the sink that receives every new item.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Pipeline) error {
		p.notifier = n
		return nil
	}
}

// WithPoolSize sets the worker pool size for notification delivery.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.notifyPool != nil {
			p.notifyPool.Release()
		}
		p.notifyPool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	source FeedSource,
	tracker *feed.Tracker,
	state *feed.State,
	st *store.Store,
	coordinator *cluster.Coordinator,
	opts ...Option,
) (*Pipeline, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if tracker == nil {
		return nil, ErrTrackerRequired
	}
	if state == nil {
		return nil, ErrStateRequired
	}
	if st == nil {
		return nil, ErrStoreRequired
	}
	if coordinator == nil {
		return nil, ErrCoordinatorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	notifyPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		source:      source,
		tracker:     tracker,
		state:       state,
		store:       st,
		coordinator: coordinator,
		notifyPool:  notifyPool,
		interval:    60 * time.Second,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Processors are created after options so they get the final config.
	clusterProc, err := newClusterProcessor(coordinator, st, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.procs = append(p.procs, clusterProc)

	if p.notifier != nil {
		notifyProc, err := newNotifyProcessor(p.notifier, p.notifyPool, p.logger)
		if err != nil {
			p.Release()
			return nil, err
		}
		p.procs = append(p.procs, notifyProc)
	}

	return p, nil
}

// PollOnce runs one fetch-track-store-process cycle. Calls are serialized.
// A feed.ErrNotModified from the source is reported as NotModified, not as
// an error. Processor failures are logged and do not fail the poll.
// A cycle cancelled before the tracker records its items changes nothing;
// once recorded, the items are always stored.
func (p *Pipeline) PollOnce(ctx context.Context) (PollResult, error) {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	if err := ctx.Err(); err != nil {
		return PollResult{}, err
	}

	raw, err := p.source.Fetch(ctx, p.state)
	if errors.Is(err, feed.ErrNotModified) {
		p.logger.Debug("feed not modified")
		return PollResult{NotModified: true}, nil
	}
	if err != nil {
		p.logger.Error("error fetching feed", "err", err)
		return PollResult{}, err
	}

	items, err := p.tracker.Process(ctx, raw, p.state)
	if err != nil {
		p.logger.Info("poll interrupted before new items were recorded", "err", err)
		return PollResult{}, err
	}
	result := PollResult{Items: make([]*core.Item, 0, len(items))}
	for _, item := range items {
		evicted, err := p.store.Insert(item)
		if err != nil {
			p.logger.Warn("error storing item", "id", item.ID, "err", err)
			continue
		}
		if evicted != nil {
			result.Evicted++
		}
		result.Items = append(result.Items, item)
		p.logger.Info("new item", "id", item.ID, "published", item.Published.Format("2006-01-02 15:04"), "title", item.Title)
	}

	if len(result.Items) == 0 {
		return result, nil
	}

	for _, proc := range p.procs {
		if err := proc.process(ctx, result.Items...); err != nil {
			p.logger.Error("error processing items", "items", len(result.Items), "err", err)
		}
	}
	return result, nil
}

// Start polls immediately and then on every interval until Stop is called
// or ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	logAdapter := &cronLoggerAdapter{logger: p.logger}
	c := cron.New(
		cron.WithChain(cron.Recover(logAdapter), cron.SkipIfStillRunning(logAdapter)),
		cron.WithLogger(logAdapter),
	)
	c.Schedule(cron.Every(p.interval), cron.FuncJob(func() { p.scheduledPoll(runCtx) }))

	p.cron = c
	p.cancel = cancel
	p.running = true

	p.initial.Add(1)
	go func() {
		defer p.initial.Done()
		p.scheduledPoll(runCtx)
	}()
	c.Start()

	p.logger.Info("polling started", "interval", p.interval)
	return nil
}

func (p *Pipeline) scheduledPoll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := p.PollOnce(ctx)
	if err != nil {
		return
	}
	if len(result.Items) > 0 {
		p.logger.Info("poll complete", "new", len(result.Items), "evicted", result.Evicted, "stored", p.store.Len())
	}
}

// Stop cancels polling and waits for any in-flight poll to finish.
// It is a no-op when the pipeline is not running.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	stopped := p.cron.Stop()
	p.running = false
	p.mu.Unlock()

	<-stopped.Done()
	p.initial.Wait()
	p.logger.Info("polling stopped")
}

// Running reports whether the poll loop is active.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Release stops polling and releases the notification pool, waiting up to
// releaseTimeout for in-flight notifications.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.Stop()
	if p.notifyPool == nil {
		return
	}
	if err := p.notifyPool.ReleaseTimeout(releaseTimeout); err != nil {
		p.logger.Warn("notifications still running at release", "err", err)
	}
}
