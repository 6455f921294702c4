package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"

	IndexExact = "exact"
	IndexHNSW  = "hnsw"

	ProviderModelServer = "modelserver"
	ProviderRekognition = "rekognition"
	ProviderMock        = "mock"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:""`

	// Gallery
	GalleryStore   string `envconfig:"GALLERY_STORE" default:"file"`
	GalleryDir     string `envconfig:"GALLERY_DIR" default:"data/gallery"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	GalleryIndex   string `envconfig:"GALLERY_INDEX" default:"exact"`
	// HNSWMinVectors is the number of stored vectors from which the hnsw
	// index builds its graph.
	HNSWMinVectors int    `envconfig:"GALLERY_HNSW_MIN_VECTORS" default:"10000"`

	// Models
	DetectorProvider   string        `envconfig:"DETECTOR_PROVIDER" default:"modelserver"`
	DetectorURL        string        `envconfig:"DETECTOR_URL" default:"http://localhost:8500"`
	DetectorConfidence float64       `envconfig:"DETECTOR_CONFIDENCE" default:"0.5"`
	EmbedderProvider   string        `envconfig:"EMBEDDER_PROVIDER" default:"modelserver"`
	EmbedderURL        string        `envconfig:"EMBEDDER_URL" default:"http://localhost:8500"`
	EmbedderModel      string        `envconfig:"EMBEDDER_MODEL" default:"arcface_r100"`
	ModelTimeout       time.Duration `envconfig:"MODEL_TIMEOUT" default:"10s"`
	AWSRegion          string        `envconfig:"AWS_REGION" default:"us-east-1"`

	// Pipeline
	PaddingRatio            float64 `envconfig:"PADDING_RATIO" default:"0.4"`
	LivenessThreshold       float64 `envconfig:"LIVENESS_THRESHOLD" default:"50"`
	MatchThreshold          float64 `envconfig:"MATCH_THRESHOLD" default:"0.55"`
	MultiFaceMatchThreshold float64 `envconfig:"MULTI_FACE_MATCH_THRESHOLD" default:"0.7"`
	EnrollCropDir           string  `envconfig:"ENROLL_CROP_DIR"`

	// Notifications
	MQTTBroker     string        `envconfig:"MQTT_BROKER"`
	MQTTTopic      string        `envconfig:"MQTT_TOPIC" default:"iot/door/verify/result"`
	MQTTClientID   string        `envconfig:"MQTT_CLIENT_ID" default:"facegate"`
	MQTTUsername   string        `envconfig:"MQTT_USERNAME"`
	MQTTPassword   string        `envconfig:"MQTT_PASSWORD"`
	MQTTQoS        byte          `envconfig:"MQTT_QOS" default:"1"`
	WebhookURL     string        `envconfig:"WEBHOOK_URL"`
	WebhookSecret  string        `envconfig:"WEBHOOK_SECRET"`
	WebhookTimeout time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`

	// Security
	APIKeys         []string      `envconfig:"API_KEYS"`
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"60"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.GalleryStore {
	case StoreFile:
		if strings.TrimSpace(c.GalleryDir) == "" {
			errs = append(errs, errors.New("GALLERY_DIR is required for the file store"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("GALLERY_STORE must be %q or %q, got %q", StoreFile, StorePostgres, c.GalleryStore))
	}

	if c.GalleryIndex != IndexExact && c.GalleryIndex != IndexHNSW {
		errs = append(errs, fmt.Errorf("GALLERY_INDEX must be %q or %q, got %q", IndexExact, IndexHNSW, c.GalleryIndex))
	}
	if c.HNSWMinVectors < 0 {
		errs = append(errs, errors.New("GALLERY_HNSW_MIN_VECTORS must not be negative"))
	}

	switch c.DetectorProvider {
	case ProviderModelServer, ProviderRekognition, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown DETECTOR_PROVIDER %q", c.DetectorProvider))
	}
	switch c.EmbedderProvider {
	case ProviderModelServer, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDER_PROVIDER %q", c.EmbedderProvider))
	}

	if c.DetectorConfidence < 0 || c.DetectorConfidence >= 1 {
		errs = append(errs, errors.New("DETECTOR_CONFIDENCE must be in [0, 1)"))
	}
	if c.PaddingRatio < 0 {
		errs = append(errs, errors.New("PADDING_RATIO must not be negative"))
	}
	if c.LivenessThreshold < 0 {
		errs = append(errs, errors.New("LIVENESS_THRESHOLD must not be negative"))
	}
	for name, v := range map[string]float64{
		"MATCH_THRESHOLD":            c.MatchThreshold,
		"MULTI_FACE_MATCH_THRESHOLD": c.MultiFaceMatchThreshold,
	} {
		if v < -1 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [-1, 1]", name))
		}
	}
	if c.MQTTQoS > 2 {
		errs = append(errs, errors.New("MQTT_QOS must be 0, 1 or 2"))
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set"))
	}
	if c.WebhookURL != "" && c.WebhookTimeout <= 0 {
		errs = append(errs, errors.New("WEBHOOK_TIMEOUT must be positive"))
	}
	if c.ModelTimeout <= 0 {
		errs = append(errs, errors.New("MODEL_TIMEOUT must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
