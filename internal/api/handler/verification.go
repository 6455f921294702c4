package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const (
	defaultVerificationLimit = 50
	maxVerificationLimit     = 500
)

type VerificationLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Verification, error)
}

// VerificationHandler exposes the verification audit log
type VerificationHandler struct {
	repo VerificationLister
}

func NewVerificationHandler(repo VerificationLister) *VerificationHandler {
	return &VerificationHandler{repo: repo}
}

type ListVerificationsResponse struct {
	Verifications []domain.Verification `json:"verifications"`
}

// List GET /v1/verifications?limit=N
func (h *VerificationHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultVerificationLimit)
	if limit < 1 || limit > maxVerificationLimit {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("limit must be between 1 and %d", maxVerificationLimit))
	}

	verifications, err := h.repo.ListRecent(c.UserContext(), limit)
	if err != nil {
		return fmt.Errorf("list verifications: %w", err)
	}
	if verifications == nil {
		verifications = []domain.Verification{}
	}

	return c.JSON(ListVerificationsResponse{Verifications: verifications})
}
