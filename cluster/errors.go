package cluster

import "errors"

var (
	// ErrTopicModelRequired is returned when a topic model is not provided.
	ErrTopicModelRequired = errors.New("topic model required")

	// ErrInvalidThreshold is returned for a re-fit threshold below 1.
	ErrInvalidThreshold = errors.New("threshold must be at least 1")

	// ErrInvalidDimensions is returned for an embedding dimension below 1.
	ErrInvalidDimensions = errors.New("dimensions must be at least 1")

	// ErrNotEnoughItems is returned when too few valid items are available to fit.
	ErrNotEnoughItems = errors.New("not enough valid items to cluster")

	// ErrTopicModelFailed wraps errors and panics raised by the topic model.
	ErrTopicModelFailed = errors.New("topic model failed")

	// ErrTopicNotFound is returned when no item is assigned to a topic.
	ErrTopicNotFound = errors.New("topic not found")
)
