package gallery

import "math"

// similarityEpsilon keeps the cosine finite for near-zero vectors.
const similarityEpsilon = 1e-8

// CosineSimilarity returns (a·b) / (‖a‖‖b‖ + ε). ok is false when the
// vectors are empty or have different lengths.
func CosineSimilarity(a, b []float32) (score float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + similarityEpsilon), true
}
