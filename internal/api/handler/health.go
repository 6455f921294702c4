package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is set at build time with -ldflags.
var Version = "0.1.0"

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

type GallerySizer interface {
	Len() int
}

type HealthHandler struct {
	gallery GallerySizer
	checks  map[string]ReadinessCheck
}

func NewHealthHandler(gallery GallerySizer, checks map[string]ReadinessCheck) *HealthHandler {
	return &HealthHandler{
		gallery: gallery,
		checks:  checks,
	}
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Identities *int              `json:"identities,omitempty"`
	Checks     map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// Ready runs every readiness check and reports 503 if any fails.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ready"}
	status := fiber.StatusOK

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				status = fiber.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	if h.gallery != nil {
		n := h.gallery.Len()
		resp.Identities = &n
	}

	return c.Status(status).JSON(resp)
}
