package ingestion

import "errors"

var (
	// ErrSourceRequired is returned when a feed source is not provided.
	ErrSourceRequired = errors.New("feed source required")

	// ErrTrackerRequired is returned when a feed tracker is not provided.
	ErrTrackerRequired = errors.New("feed tracker required")

	// ErrStateRequired is returned when feed state is not provided.
	ErrStateRequired = errors.New("feed state required")

	// ErrStoreRequired is returned when an item store is not provided.
	ErrStoreRequired = errors.New("item store required")

	// ErrCoordinatorRequired is returned when a clustering coordinator is not provided.
	ErrCoordinatorRequired = errors.New("clustering coordinator required")

	// ErrInvalidInterval is returned for a non-positive poll interval.
	ErrInvalidInterval = errors.New("poll interval must be positive")

	// ErrAlreadyRunning is returned by Start when polling is active.
	ErrAlreadyRunning = errors.New("pipeline already running")
)
