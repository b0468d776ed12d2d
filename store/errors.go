package store

import "errors"

var (
	// ErrInvalidCapacity indicates a capacity below 1.
	ErrInvalidCapacity = errors.New("capacity must be at least 1")

	// ErrNilItem indicates an attempt to insert a nil item.
	ErrNilItem = errors.New("item cannot be nil")

	// ErrDuplicateID indicates an item whose id is already stored.
	ErrDuplicateID = errors.New("item id already stored")
)
