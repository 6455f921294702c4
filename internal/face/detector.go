package face

import (
	"context"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// FaceDetector turns raw detector output into clamped pixel boxes.
type FaceDetector struct {
	backend       provider.Detector
	minConfidence float64
}

func NewFaceDetector(backend provider.Detector, minConfidence float64) *FaceDetector {
	return &FaceDetector{
		backend:       backend,
		minConfidence: minConfidence,
	}
}

// Detect returns faces whose confidence is strictly above the configured
// threshold, in the order the backend reported them. An image without faces
// yields an empty slice and no error.
func (d *FaceDetector) Detect(ctx context.Context, img image.Image) ([]domain.BoundingBox, error) {
	detections, err := d.backend.Predict(ctx, img, d.minConfidence)
	if err != nil {
		return nil, domain.ErrDetectionFailed.WithError(fmt.Errorf("predict: %w", err))
	}

	bounds := img.Bounds()
	boxes := make([]domain.BoundingBox, 0, len(detections))
	for _, det := range detections {
		if det.Confidence <= d.minConfidence {
			continue
		}

		box := domain.BoundingBox{
			X1:         int(det.X1),
			Y1:         int(det.Y1),
			X2:         int(det.X2),
			Y2:         int(det.Y2),
			Confidence: det.Confidence,
		}.Clamp(bounds)

		if !box.Valid() {
			continue
		}
		boxes = append(boxes, box)
	}

	return boxes, nil
}
