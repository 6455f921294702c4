package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// IdentityLister is the read side of the gallery.
type IdentityLister interface {
	List() []domain.IdentitySummary
	Get(accountID string) (*domain.EnrolledIdentity, bool)
}

type IdentityHandler struct {
	gallery IdentityLister
}

func NewIdentityHandler(gallery IdentityLister) *IdentityHandler {
	return &IdentityHandler{gallery: gallery}
}

type ListIdentitiesResponse struct {
	Identities []domain.IdentitySummary `json:"identities"`
	Total      int                      `json:"total"`
}

// List GET /v1/identities
func (h *IdentityHandler) List(c *fiber.Ctx) error {
	identities := h.gallery.List()
	if identities == nil {
		identities = []domain.IdentitySummary{}
	}
	return c.JSON(ListIdentitiesResponse{
		Identities: identities,
		Total:      len(identities),
	})
}

// Get GET /v1/identities/:account_id
func (h *IdentityHandler) Get(c *fiber.Ctx) error {
	accountID := strings.TrimSpace(c.Params("account_id"))
	identity, ok := h.gallery.Get(accountID)
	if !ok {
		return domain.ErrIdentityNotFound
	}
	return c.JSON(identity.Summary())
}
