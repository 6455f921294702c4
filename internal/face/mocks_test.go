package face

import (
	"context"
	"image"

	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

type MockDetectorBackend struct {
	mock.Mock
}

func (m *MockDetectorBackend) Predict(ctx context.Context, img image.Image, minConfidence float64) ([]provider.Detection, error) {
	args := m.Called(ctx, img, minConfidence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Detection), args.Error(1)
}

type MockEmbedderBackend struct {
	mock.Mock
}

func (m *MockEmbedderBackend) Infer(ctx context.Context, input provider.Tensor) ([]float32, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func uniformRGBA(w, h int, r, g, b uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = 255
	}
	return img
}
