package face

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

func TestFaceDetector_Detect(t *testing.T) {
	img := uniformRGBA(200, 100, 0, 0, 0)

	tests := []struct {
		name       string
		detections []provider.Detection
		backendErr error
		want       []domain.BoundingBox
		wantErr    error
	}{
		{
			name: "keeps detector order",
			detections: []provider.Detection{
				{X1: 120, Y1: 10, X2: 180, Y2: 70, Confidence: 0.7},
				{X1: 10, Y1: 10, X2: 60, Y2: 70, Confidence: 0.95},
			},
			want: []domain.BoundingBox{
				{X1: 120, Y1: 10, X2: 180, Y2: 70, Confidence: 0.7},
				{X1: 10, Y1: 10, X2: 60, Y2: 70, Confidence: 0.95},
			},
		},
		{
			name: "confidence equal to threshold is dropped",
			detections: []provider.Detection{
				{X1: 10, Y1: 10, X2: 60, Y2: 70, Confidence: 0.5},
				{X1: 70, Y1: 10, X2: 90, Y2: 70, Confidence: 0.51},
			},
			want: []domain.BoundingBox{
				{X1: 70, Y1: 10, X2: 90, Y2: 70, Confidence: 0.51},
			},
		},
		{
			name: "truncates and clamps to image",
			detections: []provider.Detection{
				{X1: -12.7, Y1: 5.9, X2: 250.2, Y2: 99.99, Confidence: 0.9},
			},
			want: []domain.BoundingBox{
				{X1: 0, Y1: 5, X2: 200, Y2: 99, Confidence: 0.9},
			},
		},
		{
			name: "drops degenerate boxes",
			detections: []provider.Detection{
				{X1: 50, Y1: 50, X2: 50, Y2: 80, Confidence: 0.9},
				{X1: 300, Y1: 10, X2: 400, Y2: 40, Confidence: 0.9},
			},
			want: []domain.BoundingBox{},
		},
		{
			name:       "no faces",
			detections: []provider.Detection{},
			want:       []domain.BoundingBox{},
		},
		{
			name:       "backend failure",
			backendErr: errors.New("connection refused"),
			wantErr:    domain.ErrDetectionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(MockDetectorBackend)
			backend.On("Predict", mock.Anything, img, 0.5).Return(tt.detections, tt.backendErr)

			d := NewFaceDetector(backend, 0.5)
			got, err := d.Detect(context.Background(), img)

			backend.AssertExpectations(t)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
