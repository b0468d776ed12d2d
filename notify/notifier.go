package notify

import (
	"context"

	"github.com/poiesic/khabar/core"
)

// Notifier receives each new item at most once.
type Notifier interface {
	Notify(ctx context.Context, item *core.Item) error
}
