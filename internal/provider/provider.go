package provider

import (
	"context"
	"image"
)

// Detector is an opaque face detection model.
type Detector interface {
	// Predict returns the faces found in img, in model order. Backends apply
	// minConfidence themselves; callers may filter again.
	Predict(ctx context.Context, img image.Image, minConfidence float64) ([]Detection, error)
}

// Embedder is an opaque face embedding model.
type Embedder interface {
	// Infer runs the model on a preprocessed NCHW tensor and returns the raw,
	// un-normalized output vector.
	Infer(ctx context.Context, input Tensor) ([]float32, error)
}

// Detection is a detector output in source pixel coordinates.
type Detection struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
}

// Tensor is a dense float32 tensor in NCHW layout.
type Tensor struct {
	Shape [4]int    `json:"shape"`
	Data  []float32 `json:"data"`
}

// Len returns the number of elements described by Shape.
func (t Tensor) Len() int {
	return t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3]
}
