package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/khabar/core"
	"github.com/poiesic/khabar/notify"
)

// notifyProcessor hands each item to the notifier on a worker pool.
// Delivery failures never reach the poll loop.
type notifyProcessor struct {
	notifier notify.Notifier
	pool     *ants.Pool
	logger   *slog.Logger
}

var _ processor = (*notifyProcessor)(nil)

func newNotifyProcessor(notifier notify.Notifier, pool *ants.Pool, logger *slog.Logger) (processor, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if pool == nil {
		return nil, fmt.Errorf("worker pool required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &notifyProcessor{
		notifier: notifier,
		pool:     pool,
		logger:   logger.With("processor", "notifications"),
	}, nil
}

// process only schedules delivery. The context is detached so a finished
// poll does not cancel messages still in flight.
func (np *notifyProcessor) process(ctx context.Context, items ...*core.Item) error {
	deliveryCtx := context.WithoutCancel(ctx)
	for _, item := range items {
		if err := np.pool.Submit(func() { np.deliver(deliveryCtx, item) }); err != nil {
			np.logger.Error("error scheduling notification", "id", item.ID, "err", err)
		}
	}
	return nil
}

func (np *notifyProcessor) deliver(ctx context.Context, item *core.Item) {
	defer func() {
		if r := recover(); r != nil {
			np.logger.Error("notifier panicked", "id", item.ID, "panic", r)
		}
	}()
	if err := np.notifier.Notify(ctx, item); err != nil {
		np.logger.Error("error sending notification", "id", item.ID, "err", err)
	}
}
