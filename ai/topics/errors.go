package topics

import "errors"

var (
	// ErrNoDocuments indicates Fit was called with no documents.
	ErrNoDocuments = errors.New("no documents to fit")

	// ErrLengthMismatch indicates texts and embeddings differ in length.
	ErrLengthMismatch = errors.New("texts and embeddings differ in length")

	// ErrDimensionMismatch indicates embeddings of differing lengths.
	ErrDimensionMismatch = errors.New("embeddings differ in dimension")

	// ErrTooFewDocuments indicates fewer documents than the minimum topic size.
	ErrTooFewDocuments = errors.New("too few documents for a topic")

	// ErrInvalidOption indicates an option was given an out-of-range value.
	ErrInvalidOption = errors.New("invalid topic model option")
)
