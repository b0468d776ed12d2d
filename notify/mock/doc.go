// Package mock provides a test double for notify.Notifier.
//
//	n := mock.NewMockNotifier()
//	n.NotifyFunc = func(ctx context.Context, item *core.Item) error {
//	    return errors.New("channel unavailable")
//	}
//	// ... run ingestion with n ...
//	delivered := n.Items()
//
// MockNotifier is safe for concurrent use.
package mock
