package store

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/khabar/core"
)

// Store is a bounded, concurrency-safe window of items.
type Store struct {
	mu     sync.RWMutex
	ring   *Ring[*core.Item]
	ids    map[string]struct{}
	logger *slog.Logger
}

// Option is a functional option for configuring a Store.
type Option func(*Store) error

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a store holding at most capacity items.
func New(capacity int, opts ...Option) (*Store, error) {
	ring, err := NewRing[*core.Item](capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: got %d", err, capacity)
	}

	s := &Store{
		ring:   ring,
		ids:    make(map[string]struct{}, capacity),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "store")
	return s, nil
}

// Insert adds an item, returning the evicted item when the store was full.
// Items failing core.ValidateItem and ids already stored are rejected.
func (s *Store) Insert(item *core.Item) (*core.Item, error) {
	if item == nil {
		return nil, ErrNilItem
	}
	if err := core.ValidateItem(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, dup := s.ids[item.ID]; dup {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
	}
	evicted, ok := s.ring.Push(item)
	s.ids[item.ID] = struct{}{}
	if ok {
		delete(s.ids, evicted.ID)
	}
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	s.logger.Debug("evicted item", "id", evicted.ID, "inserted", item.ID)
	return evicted, nil
}

// Items returns the stored items in insertion order, oldest first.
func (s *Store) Items() []*core.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.Snapshot()
}

// All returns every stored item, newest published first.
// Items with equal published times keep the most recently inserted first.
func (s *Store) All() []*core.Item {
	items := s.Items()
	slices.Reverse(items)
	sortByPublished(items)
	return items
}

// Latest returns up to n items, newest published first.
func (s *Store) Latest(n int) []*core.Item {
	if n <= 0 {
		return []*core.Item{}
	}
	items := s.All()
	if len(items) > n {
		items = items[:n]
	}
	return items
}

// KeywordSearch returns items whose title or summary contains term,
// ignoring case, newest published first.
func (s *Store) KeywordSearch(term string) []*core.Item {
	needle := strings.ToLower(term)
	matches := []*core.Item{}
	for _, item := range s.All() {
		if strings.Contains(strings.ToLower(item.Title), needle) ||
			strings.Contains(strings.ToLower(item.Summary), needle) {
			matches = append(matches, item)
		}
	}
	return matches
}

// Newest returns the item with the latest published time, or nil when empty.
func (s *Store) Newest() *core.Item {
	items := s.All()
	if len(items) == 0 {
		return nil
	}
	return items[0]
}

// Contains reports which of the given ids are currently stored.
func (s *Store) Contains(ids []string) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			out[id] = true
		}
	}
	return out
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.Len()
}

// Cap returns the store capacity.
func (s *Store) Cap() int {
	return s.ring.Cap()
}

func sortByPublished(items []*core.Item) {
	slices.SortStableFunc(items, func(a, b *core.Item) int {
		return b.Published.Compare(a.Published)
	})
}
