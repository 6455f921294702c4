// Package app assembles the facegate components from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/facegate/internal/api"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/face"
	"github.com/saturnino-fabrica-de-software/facegate/internal/gallery"
	"github.com/saturnino-fabrica-de-software/facegate/internal/notify"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
	"github.com/saturnino-fabrica-de-software/facegate/internal/ws"
)

// Options selects the optional parts of the assembly.
type Options struct {
	// Notifications enables the MQTT and webhook sinks.
	Notifications bool
	// EventStream creates the WebSocket hub and publishes to it.
	EventStream bool
}

// App holds every long-lived component of a facegate process.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Gallery  *gallery.Index
	Pipeline *service.Pipeline
	// Verifications is nil with the file store.
	Verifications *repository.VerificationRepository
	// Hub is nil unless Options.EventStream is set.
	Hub *ws.Hub

	pool *pgxpool.Pool
	mqtt *notify.MQTT
}

// New builds the app. The gallery is loaded before New returns; a store
// that cannot be read fails startup with domain.ErrGalleryUnavailable.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var indexOpts []gallery.Option
	if cfg.GalleryIndex == config.IndexHNSW {
		indexOpts = append(indexOpts,
			gallery.WithHNSW(gallery.DefaultHNSWMaxNeighbors, gallery.DefaultHNSWCandidates),
			gallery.WithHNSWMinVectors(cfg.HNSWMinVectors),
		)
	}
	a.Gallery = gallery.NewIndex(store, logger, indexOpts...)
	if err := a.Gallery.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}

	detectorBackend, err := face.NewDetectorBackend(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	embedderBackend, err := face.NewEmbedderBackend(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := a.buildNotifier(opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	pipelineOpts := []service.Option{service.WithNotifier(notifier)}
	if a.Verifications != nil {
		pipelineOpts = append(pipelineOpts, service.WithRecorder(a.Verifications))
	}
	if cfg.EnrollCropDir != "" {
		pipelineOpts = append(pipelineOpts, service.WithCropArchive(repository.NewCropArchive(cfg.EnrollCropDir)))
	}

	a.Pipeline = service.NewPipeline(
		face.NewFaceDetector(detectorBackend, cfg.DetectorConfidence),
		face.NewRegionExpander(cfg.PaddingRatio),
		face.NewLivenessClassifier(cfg.LivenessThreshold),
		face.NewEmbeddingExtractor(embedderBackend),
		a.Gallery,
		service.Config{
			MatchThreshold:          cfg.MatchThreshold,
			MultiFaceMatchThreshold: cfg.MultiFaceMatchThreshold,
		},
		logger,
		pipelineOpts...,
	)

	logger.Info("facegate ready",
		slog.String("store", cfg.GalleryStore),
		slog.String("index", cfg.GalleryIndex),
		slog.String("detector", cfg.DetectorProvider),
		slog.String("embedder", cfg.EmbedderProvider),
		slog.Int("identities", a.Gallery.Len()),
	)

	return a, nil
}

func (a *App) openStore(ctx context.Context) (gallery.Store, error) {
	switch a.Config.GalleryStore {
	case config.StorePostgres:
		if err := migrateUp(a.Config.DatabaseURL, a.Logger); err != nil {
			return nil, err
		}

		pool, err := database.NewPgxPool(ctx, database.DefaultPoolConfig(a.Config.DatabaseURL))
		if err != nil {
			return nil, domain.ErrGalleryUnavailable.WithError(err)
		}
		a.pool = pool
		a.Verifications = repository.NewVerificationRepository(pool)
		return repository.NewIdentityRepository(pool), nil

	default:
		store, err := repository.NewFileStore(a.Config.GalleryDir)
		if err != nil {
			return nil, domain.ErrGalleryUnavailable.WithError(err)
		}
		return store, nil
	}
}

func migrateUp(dsn string, logger *slog.Logger) error {
	db, err := database.NewPool(database.DefaultPoolConfig(dsn))
	if err != nil {
		return domain.ErrGalleryUnavailable.WithError(err)
	}
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, "facegate", logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (a *App) buildNotifier(opts Options) (notify.Notifier, error) {
	var sinks notify.Multi

	if opts.Notifications && a.Config.MQTTBroker != "" {
		m, err := notify.NewMQTT(notify.MQTTConfig{
			Broker:   a.Config.MQTTBroker,
			ClientID: a.Config.MQTTClientID,
			Username: a.Config.MQTTUsername,
			Password: a.Config.MQTTPassword,
			Topic:    a.Config.MQTTTopic,
			QoS:      a.Config.MQTTQoS,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		a.mqtt = m
		sinks = append(sinks, m)
	}

	if opts.Notifications && a.Config.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(a.Config.WebhookURL, a.Config.WebhookSecret, a.Config.WebhookTimeout))
	}

	if opts.EventStream {
		a.Hub = ws.NewHub(a.Logger)
		sinks = append(sinks, a.Hub)
	}

	switch len(sinks) {
	case 0:
		return notify.Noop{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// RouterDependencies exposes the app to the HTTP layer.
func (a *App) RouterDependencies() *api.Dependencies {
	deps := &api.Dependencies{
		Pipeline:        a.Pipeline,
		Gallery:         a.Gallery,
		APIKeys:         a.Config.APIKeys,
		RateLimitMax:    a.Config.RateLimitMax,
		RateLimitWindow: a.Config.RateLimitWindow,
		Hub:             a.Hub,
	}
	// A nil *VerificationRepository must stay a nil interface.
	if a.Verifications != nil {
		deps.Verifications = a.Verifications
	}
	if a.pool != nil {
		pool := a.pool
		deps.ReadinessChecks = map[string]handler.ReadinessCheck{
			"database": func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
		}
	}
	return deps
}

// Close waits for pending side effects and releases connections.
func (a *App) Close() {
	if a.Pipeline != nil {
		a.Pipeline.Wait()
	}
	if a.mqtt != nil {
		a.mqtt.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
