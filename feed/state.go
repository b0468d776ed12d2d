package feed

import (
	"sync"
	"time"

	"github.com/poiesic/khabar/core"
)

// EmptyContentHash is the content hash recorded for a feed with no entries.
var EmptyContentHash = core.HashHex("empty feed")

// State remembers what previous polls saw. The seen-id set only grows, so
// an id is never emitted twice even after its item leaves the store.
type State struct {
	mu                sync.RWMutex
	latestContentHash string
	lastFetchTime     time.Time
	etag              string
	lastModified      string
	seen              map[string]struct{}
}

// NewState returns an empty tracker state.
func NewState() *State {
	return &State{seen: make(map[string]struct{})}
}

// StateSnapshot is a point-in-time copy of State for status reporting.
type StateSnapshot struct {
	LatestContentHash string
	LastFetchTime     time.Time
	ETag              string
	LastModified      string
	SeenCount         int
}

// Snapshot copies the current state.
func (s *State) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StateSnapshot{
		LatestContentHash: s.latestContentHash,
		LastFetchTime:     s.lastFetchTime,
		ETag:              s.etag,
		LastModified:      s.lastModified,
		SeenCount:         len(s.seen),
	}
}

// Seen reports whether id was emitted by an earlier poll.
func (s *State) Seen(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// SeenCount returns the number of distinct ids ever emitted.
func (s *State) SeenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Validators returns the HTTP cache validators from the last full response.
func (s *State) Validators() (etag, lastModified string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.etag, s.lastModified
}

// SetValidators records the HTTP cache validators of a full response.
func (s *State) SetValidators(etag, lastModified string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.etag = etag
	s.lastModified = lastModified
}

// unchanged reports whether hash equals the hash recorded by the last
// committed poll.
func (s *State) unchanged(hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestContentHash != "" && s.latestContentHash == hash
}

// commit records the outcome of a completed poll: the content hash, the
// fetch time and the ids it emitted.
func (s *State) commit(hash string, now time.Time, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestContentHash = hash
	s.lastFetchTime = now
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}
}
