package domain

import (
	"errors"
	"math"
)

var (
	errEmptyEmbedding      = errors.New("embedding is empty")
	errZeroNormEmbedding   = errors.New("embedding has zero norm")
	errDimensionMismatch   = errors.New("embedding dimensions differ")
	errNoEmbeddingsToMerge = errors.New("no embeddings to average")
)

// Embedding is a fixed-length face descriptor. Values returned by
// NormalizeEmbedding and MeanEmbedding are fresh slices; callers must not
// modify an Embedding after it has been handed out.
type Embedding []float32

// Norm returns the L2 norm of e.
func (e Embedding) Norm() float64 {
	var sum float64
	for _, v := range e {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Clone returns an independent copy of e.
func (e Embedding) Clone() Embedding {
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// NormalizeEmbedding scales raw to unit L2 length.
func NormalizeEmbedding(raw []float32) (Embedding, error) {
	if len(raw) == 0 {
		return nil, errEmptyEmbedding
	}

	var sum float64
	for _, v := range raw {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, errors.New("embedding contains non-finite values")
		}
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return nil, errZeroNormEmbedding
	}

	norm := math.Sqrt(sum)
	out := make(Embedding, len(raw))
	for i, v := range raw {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}

// MeanEmbedding averages embeddings componentwise and renormalizes the result.
func MeanEmbedding(embeddings []Embedding) (Embedding, error) {
	if len(embeddings) == 0 {
		return nil, errNoEmbeddingsToMerge
	}

	dim := len(embeddings[0])
	acc := make([]float64, dim)
	for _, e := range embeddings {
		if len(e) != dim {
			return nil, errDimensionMismatch
		}
		for i, v := range e {
			acc[i] += float64(v)
		}
	}

	mean := make([]float32, dim)
	n := float64(len(embeddings))
	for i, v := range acc {
		mean[i] = float32(v / n)
	}
	return NormalizeEmbedding(mean)
}
