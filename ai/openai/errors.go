package openai

import "errors"

// ErrVectorCount indicates the service answered a batch with a different
// number of vectors than texts sent.
var ErrVectorCount = errors.New("embedding service returned wrong number of vectors")
