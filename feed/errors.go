package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrNotModified indicates the server reported the feed unchanged (HTTP 304).
	ErrNotModified = errors.New("feed not modified")

	// ErrEmbedderRequired indicates a Tracker was created without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmptyURL indicates a Fetcher was created without a feed URL.
	ErrEmptyURL = errors.New("feed url cannot be empty")

	// ErrInvalidPoolSize indicates a worker pool size below 1.
	ErrInvalidPoolSize = errors.New("pool size must be at least 1")

	// ErrInvalidBatchSize indicates an embedding batch size below 1.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")
)

// HTTPError reports an unexpected response status from the feed server.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("feed request failed: %s", e.Status)
}
