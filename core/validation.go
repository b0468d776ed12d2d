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

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// ValidateItem validates an Item according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Published must not be zero
//
// NOT validated:
//   - Embedding (nil when the embedder failed)
//   - Title, URL, Summary, Source (all optional)
func ValidateItem(item *Item) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}

	if item.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptyID)
	}

	if item.Published.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrMissingPublished)
	}

	return nil
}

// ValidateEmbedding checks that vec has exactly dim finite components.
func ValidateEmbedding(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: %w: got %d, want %d", ErrInvalidEmbedding, ErrEmbeddingDimension, len(vec), dim)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %w at index %d", ErrInvalidEmbedding, ErrEmbeddingNotFinite, i)
		}
	}
	return nil
}

// ValidateKeyword checks a keyword search term after trimming.
func ValidateKeyword(term string, minLength int) error {
	if utf8.RuneCountInString(strings.TrimSpace(term)) < minLength {
		return fmt.Errorf("%w: %w: minimum %d characters", ErrInvalidQuery, ErrTermTooShort, minLength)
	}
	return nil
}

// ValidateCount checks that n is in [1, limit]. A limit of 0 disables the upper bound.
func ValidateCount(n, limit int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %w: got %d", ErrInvalidQuery, ErrNonPositiveCount, n)
	}
	if limit > 0 && n > limit {
		return fmt.Errorf("%w: %w: got %d, maximum %d", ErrInvalidQuery, ErrCountTooLarge, n, limit)
	}
	return nil
}

// ResolveWeights validates optional field weights and returns them
// normalized to sum to 1. When neither is supplied the defaults are
// returned unchanged.
func ResolveWeights(title, summary *float64, defaultTitle, defaultSummary float64) (float64, float64, error) {
	if title == nil && summary == nil {
		return defaultTitle, defaultSummary, nil
	}
	if title == nil || summary == nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrInvalidQuery, ErrAsymmetricWeights)
	}

	t, s := *title, *summary
	if t < 0 || s < 0 || math.IsNaN(t) || math.IsNaN(s) {
		return 0, 0, fmt.Errorf("%w: %w: title=%v summary=%v", ErrInvalidQuery, ErrInvalidWeights, t, s)
	}
	total := t + s
	if total <= 0 || math.IsInf(total, 0) {
		return 0, 0, fmt.Errorf("%w: %w: title=%v summary=%v", ErrInvalidQuery, ErrInvalidWeights, t, s)
	}
	return t / total, s / total, nil
}
