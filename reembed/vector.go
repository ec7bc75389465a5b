package reembed

import "math"

// NormalizeVector returns a unit-length copy of v so stored embeddings
// compare by dot product. A zero vector has no direction and comes back
// as zeros. The input is never mutated.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sumSquares))

	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
