package core

import "math"

// NormalizeVector returns a unit-length copy of vec.
// A zero vector is returned unchanged as a zero vector of the same length.
func NormalizeVector(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}

	out := make([]float32, len(vec))
	if sumSquares == 0 {
		return out
	}

	magnitude := math.Sqrt(sumSquares)
	for i, v := range vec {
		out[i] = float32(float64(v) / magnitude)
	}
	return out
}

// Dot returns the dot product of two equal-length vectors.
// Mismatched lengths yield 0.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
