package service

import (
	"context"
	"image"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/notify"
)

type FaceDetector interface {
	Detect(ctx context.Context, img image.Image) ([]domain.BoundingBox, error)
}

type RegionExpander interface {
	Expand(img image.Image, box domain.BoundingBox) (domain.FaceCrop, error)
}

type LivenessChecker interface {
	Check(crop domain.FaceCrop) (live bool, score float64)
}

type EmbeddingExtractor interface {
	Embed(ctx context.Context, crop domain.FaceCrop) (domain.Embedding, error)
}

type Gallery interface {
	Search(query domain.Embedding) (*domain.EnrolledIdentity, float64)
	Add(ctx context.Context, identity *domain.EnrolledIdentity) error
	Contains(accountID string) bool
}

type VerificationRecorder interface {
	Create(ctx context.Context, v *domain.Verification) error
}

type Notifier interface {
	Publish(ctx context.Context, event notify.Event) error
}

type CropArchive interface {
	Save(ctx context.Context, accountID string, crops []domain.FaceCrop) error
}
