package rekognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
const maxImageSize = 5 * 1024 * 1024

// Detector implements provider.Detector using the AWS DetectFaces API.
// Rekognition has no embedding endpoint, so it only serves detection.
type Detector struct {
	api    RekognitionAPI
	config Config
}

var _ provider.Detector = (*Detector)(nil)

// NewDetector creates a detector backed by a real AWS client.
func NewDetector(ctx context.Context, cfg Config) (*Detector, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewDetectorWithAPI(client, cfg), nil
}

// NewDetectorWithAPI creates a detector around an existing API implementation.
func NewDetectorWithAPI(api RekognitionAPI, cfg Config) *Detector {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultConfig().JPEGQuality
	}
	return &Detector{api: api, config: cfg}
}

// Predict converts Rekognition's ratio boxes into pixel corners of img.
// Rekognition reports confidence in percent; it is rescaled to [0, 1].
func (d *Detector) Predict(ctx context.Context, img image.Image, minConfidence float64) ([]provider.Detection, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.config.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if buf.Len() > maxImageSize {
		return nil, fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, buf.Len(), maxImageSize)
	}

	output, err := d.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: buf.Bytes()},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", parseAPIError(err))
	}

	bounds := img.Bounds()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	detections := make([]provider.Detection, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil || detail.Confidence == nil {
			continue
		}
		confidence := float64(*detail.Confidence) / 100
		if confidence <= minConfidence {
			continue
		}

		left := float64(deref(detail.BoundingBox.Left))
		top := float64(deref(detail.BoundingBox.Top))
		bw := float64(deref(detail.BoundingBox.Width))
		bh := float64(deref(detail.BoundingBox.Height))

		detections = append(detections, provider.Detection{
			X1:         float64(bounds.Min.X) + left*w,
			Y1:         float64(bounds.Min.Y) + top*h,
			X2:         float64(bounds.Min.X) + (left+bw)*w,
			Y2:         float64(bounds.Min.Y) + (top+bh)*h,
			Confidence: confidence,
		})
	}

	return detections, nil
}

func deref(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}
