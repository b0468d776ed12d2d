// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidItem indicates an Item failed validation.
	ErrInvalidItem = errors.New("invalid item")

	// ErrEmptyID indicates the item has no identifier.
	ErrEmptyID = errors.New("item id cannot be empty")

	// ErrMissingPublished indicates the item has a zero published time.
	ErrMissingPublished = errors.New("item published time cannot be zero")

	// ErrInvalidEmbedding indicates an embedding cannot be used for clustering.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrEmbeddingDimension indicates an embedding has the wrong length.
	ErrEmbeddingDimension = errors.New("embedding dimension mismatch")

	// ErrEmbeddingNotFinite indicates an embedding holds NaN or Inf values.
	ErrEmbeddingNotFinite = errors.New("embedding contains non-finite values")
)

// Query errors. Every one wraps ErrInvalidQuery so callers can map the
// whole family to a client error.
var (
	// ErrInvalidQuery indicates the caller supplied invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmptyQuery indicates a blank query string.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrTermTooShort indicates a keyword below the minimum length.
	ErrTermTooShort = errors.New("search term too short")

	// ErrNonPositiveCount indicates a count or limit below 1.
	ErrNonPositiveCount = errors.New("count must be positive")

	// ErrCountTooLarge indicates a count above the permitted maximum.
	ErrCountTooLarge = errors.New("count exceeds maximum")

	// ErrAsymmetricWeights indicates only one of the field weights was given.
	ErrAsymmetricWeights = errors.New("title and summary weights must be supplied together")

	// ErrInvalidWeights indicates negative weights or weights summing to zero.
	ErrInvalidWeights = errors.New("weights must be non-negative with a positive sum")
)
