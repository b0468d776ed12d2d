package mock

import (
	"context"
	"sync"

	"github.com/poiesic/khabar/core"
	"github.com/poiesic/khabar/notify"
)

// MockNotifier is a test double for notify.Notifier.
// It records every item before calling NotifyFunc.
type MockNotifier struct {
	// NotifyFunc is called by Notify if set.
	// If nil, Notify only records the item.
	NotifyFunc func(ctx context.Context, item *core.Item) error

	mu    sync.Mutex
	items []*core.Item
}

var _ notify.Notifier = (*MockNotifier)(nil)

// NewMockNotifier creates a notifier that records and accepts every item.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Notify records item, then defers to NotifyFunc.
func (m *MockNotifier) Notify(ctx context.Context, item *core.Item) error {
	if item == nil {
		return notify.ErrNilItem
	}
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, item)
	}
	return nil
}

// Items returns the items received so far, in arrival order.
func (m *MockNotifier) Items() []*core.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.Item(nil), m.items...)
}
