package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/modelserver"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/rekognition"
)

// NewDetectorBackend creates the face detection model selected by
// DETECTOR_PROVIDER.
//
// Environment variables:
//   - DETECTOR_PROVIDER: "modelserver", "rekognition" or "mock" (default: "modelserver")
//   - DETECTOR_URL: model server base URL
//   - AWS_REGION: AWS region for Rekognition (credentials come from the AWS SDK chain)
//   - MODEL_TIMEOUT: HTTP timeout for model server calls
func NewDetectorBackend(ctx context.Context, cfg *config.Config) (provider.Detector, error) {
	switch cfg.DetectorProvider {
	case config.ProviderRekognition:
		rekogConfig := rekognition.DefaultConfig()
		if cfg.AWSRegion != "" {
			rekogConfig.Region = cfg.AWSRegion
		}
		det, err := rekognition.NewDetector(ctx, rekogConfig)
		if err != nil {
			return nil, fmt.Errorf("create rekognition detector: %w", err)
		}
		return det, nil

	case config.ProviderMock:
		return mock.NewDetector(), nil

	case config.ProviderModelServer, "":
		return modelserver.NewDetector(modelServerConfig(cfg.DetectorURL, "", cfg)), nil

	default:
		return nil, fmt.Errorf("unknown detector provider: %s (supported: %s, %s, %s)",
			cfg.DetectorProvider, config.ProviderModelServer, config.ProviderRekognition, config.ProviderMock)
	}
}

// NewEmbedderBackend creates the embedding model selected by EMBEDDER_PROVIDER.
func NewEmbedderBackend(cfg *config.Config) (provider.Embedder, error) {
	switch cfg.EmbedderProvider {
	case config.ProviderMock:
		return mock.NewEmbedder(), nil

	case config.ProviderModelServer, "":
		return modelserver.NewEmbedder(modelServerConfig(cfg.EmbedderURL, cfg.EmbedderModel, cfg)), nil

	default:
		return nil, fmt.Errorf("unknown embedder provider: %s (supported: %s, %s)",
			cfg.EmbedderProvider, config.ProviderModelServer, config.ProviderMock)
	}
}

func modelServerConfig(url, model string, cfg *config.Config) modelserver.Config {
	msConfig := modelserver.DefaultConfig()
	if url != "" {
		msConfig.BaseURL = url
	}
	if cfg.ModelTimeout > 0 {
		msConfig.Timeout = cfg.ModelTimeout
	}
	msConfig.Model = model
	return msConfig
}
