package modelserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

const jpegQuality = 95

var (
	_ provider.Detector = (*Detector)(nil)
	_ provider.Embedder = (*Embedder)(nil)
)

// Detector runs face detection on a model server.
type Detector struct {
	client *Client
}

func NewDetector(config Config) *Detector {
	return &Detector{client: NewClient(config)}
}

// Predict sends img as base64 JPEG and returns the detections in server order.
func (d *Detector) Predict(ctx context.Context, img image.Image, minConfidence float64) ([]provider.Detection, error) {
	encoded, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Detect(ctx, DetectRequest{
		Img:           encoded,
		MinConfidence: minConfidence,
	})
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	if resp.Faces == nil {
		return []provider.Detection{}, nil
	}
	return resp.Faces, nil
}

// Embedder runs the embedding model on a model server.
type Embedder struct {
	client *Client
}

func NewEmbedder(config Config) *Embedder {
	return &Embedder{client: NewClient(config)}
}

func (e *Embedder) Infer(ctx context.Context, input provider.Tensor) ([]float32, error) {
	if len(input.Data) != input.Len() {
		return nil, fmt.Errorf("tensor shape %v does not match %d values", input.Shape, len(input.Data))
	}

	resp, err := e.client.Infer(ctx, InferRequest{Tensor: input})
	if err != nil {
		return nil, fmt.Errorf("infer: %w", err)
	}

	return resp.Embedding, nil
}

func encodeJPEG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncodeImage, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
