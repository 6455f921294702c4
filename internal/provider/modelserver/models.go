package modelserver

import "github.com/saturnino-fabrica-de-software/facegate/internal/provider"

// DetectRequest for POST /detect
type DetectRequest struct {
	Img           string  `json:"img"` // base64 encoded JPEG
	MinConfidence float64 `json:"min_confidence"`
}

// DetectResponse from POST /detect
type DetectResponse struct {
	Faces []provider.Detection `json:"faces"`
}

// InferRequest for POST /infer
type InferRequest struct {
	Model  string          `json:"model,omitempty"`
	Tensor provider.Tensor `json:"tensor"`
}

// InferResponse from POST /infer
type InferResponse struct {
	Embedding []float32 `json:"embedding"`
}
