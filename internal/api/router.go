package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facegate/internal/ws"
)

// bodyLimit fits a full enrollment of 20 images at the per-image cap.
const bodyLimit = 220 * 1024 * 1024

// Gallery is the read side of the identity index used by the API.
type Gallery interface {
	handler.IdentityLister
	handler.GallerySizer
}

type Dependencies struct {
	Pipeline handler.Pipeline
	Gallery  Gallery
	// Verifications is nil when the audit log is not persisted.
	Verifications handler.VerificationLister
	// Hub is nil when the event stream is disabled.
	Hub             *ws.Hub
	ReadinessChecks map[string]handler.ReadinessCheck

	APIKeys         []string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "facegate",
		BodyLimit:    bodyLimit,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var (
		gallery Gallery
		checks  map[string]handler.ReadinessCheck
	)
	if r.deps != nil {
		gallery = r.deps.Gallery
		checks = r.deps.ReadinessChecks
	}
	healthHandler := handler.NewHealthHandler(gallery, checks)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	v1 := r.app.Group("/v1")
	v1.Use(middleware.Auth(r.deps.APIKeys))

	r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Max:    r.deps.RateLimitMax,
		Window: r.deps.RateLimitWindow,
	})
	v1.Use(r.rateLimiter.Handler())

	faceHandler := handler.NewFaceHandler(r.deps.Pipeline, r.logger)
	v1.Post("/enroll", faceHandler.Enroll)
	v1.Post("/verify", faceHandler.Verify)
	v1.Post("/verify/multi", faceHandler.VerifyMulti)

	identityHandler := handler.NewIdentityHandler(r.deps.Gallery)
	v1.Get("/identities", identityHandler.List)
	v1.Get("/identities/:account_id", identityHandler.Get)

	if r.deps.Verifications != nil {
		verificationHandler := handler.NewVerificationHandler(r.deps.Verifications)
		v1.Get("/verifications", verificationHandler.List)
	}

	if r.deps.Hub != nil {
		v1.Get("/ws/events", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
