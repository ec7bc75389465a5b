package openai

import "math"

// normalize scales a vector to unit length so that cosine similarity and
// dot product rank identically. A zero vector is returned unchanged.
func normalize(v []float32) []float32 {
	var sum float32
	for _, val := range v {
		sum += val * val
	}
	if sum == 0 {
		return v
	}
	magnitude := float32(math.Sqrt(float64(sum)))
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = val / magnitude
	}
	return out
}
