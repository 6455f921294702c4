package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/face"
	"github.com/saturnino-fabrica-de-software/facegate/internal/notify"
)

const (
	DefaultMatchThreshold          = 0.55
	DefaultMultiFaceMatchThreshold = 0.7
	DefaultSideEffectTimeout       = 5 * time.Second
)

type Config struct {
	// MatchThreshold applies to single-face verification.
	MatchThreshold float64
	// MultiFaceMatchThreshold applies to every face of a multi-face request.
	MultiFaceMatchThreshold float64
	// SideEffectTimeout bounds audit writes, notifications and crop archiving.
	SideEffectTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MatchThreshold:          DefaultMatchThreshold,
		MultiFaceMatchThreshold: DefaultMultiFaceMatchThreshold,
		SideEffectTimeout:       DefaultSideEffectTimeout,
	}
}

// Pipeline runs enrollment and verification over the face stages. It holds
// no per-request state and is safe for concurrent use.
type Pipeline struct {
	detector  FaceDetector
	expander  RegionExpander
	liveness  LivenessChecker
	extractor EmbeddingExtractor
	gallery   Gallery

	recorder VerificationRecorder
	notifier Notifier
	crops    CropArchive

	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	background sync.WaitGroup
}

type Option func(*Pipeline)

func WithRecorder(r VerificationRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func WithCropArchive(a CropArchive) Option {
	return func(p *Pipeline) { p.crops = a }
}

func NewPipeline(
	detector FaceDetector,
	expander RegionExpander,
	liveness LivenessChecker,
	extractor EmbeddingExtractor,
	gallery Gallery,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Pipeline {
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = DefaultSideEffectTimeout
	}

	p := &Pipeline{
		detector:  detector,
		expander:  expander,
		liveness:  liveness,
		extractor: extractor,
		gallery:   gallery,
		notifier:  notify.Noop{},
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if cfg.MatchThreshold != cfg.MultiFaceMatchThreshold {
		logger.Warn("single-face and multi-face match thresholds differ",
			slog.Float64("match_threshold", cfg.MatchThreshold),
			slog.Float64("multi_face_match_threshold", cfg.MultiFaceMatchThreshold),
		)
	}

	return p
}

// Wait blocks until background audit, notification and archive work has
// finished.
func (p *Pipeline) Wait() {
	p.background.Wait()
}

// Verify identifies the first detected face in imageBytes.
func (p *Pipeline) Verify(ctx context.Context, imageBytes []byte) (*domain.VerifyResult, error) {
	start := p.now()

	img, err := face.DecodeImage(imageBytes)
	if err != nil {
		return nil, err
	}

	boxes, err := p.detector.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	result := &domain.VerifyResult{FacesDetected: len(boxes)}
	if len(boxes) == 0 {
		result.Status = domain.StatusNoFaceDetected
		p.finishVerify(result, start)
		return result, nil
	}

	crop, err := p.expander.Expand(img, boxes[0])
	if err != nil {
		return nil, fmt.Errorf("expand face region: %w", err)
	}
	box := boxes[0]
	result.Box = &box

	live, liveness := p.liveness.Check(crop)
	result.Liveness = &liveness
	if !live {
		result.Status = domain.StatusSpoofSuspected
		p.finishVerify(result, start)
		return result, nil
	}

	embedding, err := p.extractor.Embed(ctx, crop)
	if err != nil {
		return nil, err
	}

	best, score := p.gallery.Search(embedding)
	switch {
	case best != nil && score > p.cfg.MatchThreshold:
		summary := best.Summary()
		result.Status = domain.StatusMatched
		result.Identity = &summary
		result.Score = &score
	case best != nil:
		result.Status = domain.StatusNotRecognized
		result.BestScore = &score
	default:
		result.Status = domain.StatusNotRecognized
	}

	p.finishVerify(result, start)
	return result, nil
}

// VerifyAll evaluates every detected face. Each face is scored on its own;
// the image-level result is the best live match across all faces.
func (p *Pipeline) VerifyAll(ctx context.Context, imageBytes []byte) (*domain.MultiVerifyResult, error) {
	start := p.now()

	img, err := face.DecodeImage(imageBytes)
	if err != nil {
		return nil, err
	}

	boxes, err := p.detector.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	result := &domain.MultiVerifyResult{
		Faces:         make([]domain.FaceResult, 0, len(boxes)),
		FacesDetected: len(boxes),
	}
	if len(boxes) == 0 {
		result.Status = domain.StatusNoFaceDetected
		p.finishMulti(result, start)
		return result, nil
	}

	var (
		bestIdentity *domain.EnrolledIdentity
		bestScore    = -1.0
		liveFaces    int
	)

	for i, box := range boxes {
		crop, err := p.expander.Expand(img, box)
		if err != nil {
			return nil, fmt.Errorf("expand face %d: %w", i, err)
		}

		fr := domain.FaceResult{Index: i, Box: box}

		live, liveness := p.liveness.Check(crop)
		fr.Liveness = liveness
		if !live {
			fr.Status = domain.StatusSpoofSuspected
			result.Faces = append(result.Faces, fr)
			continue
		}
		liveFaces++

		embedding, err := p.extractor.Embed(ctx, crop)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}

		identity, score := p.gallery.Search(embedding)
		switch {
		case identity != nil && score > p.cfg.MultiFaceMatchThreshold:
			summary := identity.Summary()
			fr.Status = domain.StatusMatched
			fr.Identity = &summary
			fr.Score = &score
		case identity != nil:
			fr.Status = domain.StatusNotRecognized
			fr.BestScore = &score
		default:
			fr.Status = domain.StatusNotRecognized
		}
		result.Faces = append(result.Faces, fr)

		if identity != nil && score > bestScore {
			bestIdentity = identity
			bestScore = score
		}
	}

	switch {
	case liveFaces == 0:
		result.Status = domain.StatusSpoofSuspected
	case bestIdentity != nil && bestScore > p.cfg.MultiFaceMatchThreshold:
		summary := bestIdentity.Summary()
		result.Status = domain.StatusMatched
		result.Best = &summary
		result.BestScore = &bestScore
	case bestIdentity != nil:
		result.Status = domain.StatusNotRecognized
		result.BestScore = &bestScore
	default:
		result.Status = domain.StatusNotRecognized
	}

	p.finishMulti(result, start)
	return result, nil
}

// EnrollRequest carries the raw enrollment images for one person.
type EnrollRequest struct {
	Name      string
	AccountID string
	Images    [][]byte
}

// Enroll builds an identity from 5 to 20 images and adds it to the gallery.
// Every image gets an explicit outcome; at least domain.MinValidSamples must
// yield an embedding.
func (p *Pipeline) Enroll(ctx context.Context, req EnrollRequest) (*domain.EnrollResult, error) {
	name := strings.TrimSpace(req.Name)
	accountID := strings.TrimSpace(req.AccountID)
	if name == "" || accountID == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("name and account_id are required"))
	}
	if n := len(req.Images); n < domain.MinEnrollImages || n > domain.MaxEnrollImages {
		return nil, domain.ErrInvalidSampleCount
	}
	if p.gallery.Contains(accountID) {
		return nil, domain.ErrDuplicateAccount
	}

	outcomes := make([]domain.SampleOutcome, len(req.Images))
	embeddings := make([]domain.Embedding, 0, len(req.Images))
	crops := make([]domain.FaceCrop, 0, len(req.Images))
	var modelErr error

	for i, data := range req.Images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome := domain.SampleOutcome{Index: i}
		crop, embedding, reason, err := p.enrollSample(ctx, data)
		switch {
		case reason != "":
			outcome.Reason = reason
			if err != nil && reason != domain.ReasonInvalidImage {
				modelErr = err
			}
			p.logger.Warn("enrollment sample skipped",
				slog.String("account_id", accountID),
				slog.Int("index", i),
				slog.String("reason", reason),
				slog.Any("error", err),
			)
		default:
			outcome.Accepted = true
			embeddings = append(embeddings, embedding)
			crops = append(crops, crop)
		}
		outcomes[i] = outcome
	}

	if len(embeddings) < domain.MinValidSamples {
		if modelErr != nil {
			// The model error comes first so it decides the response status.
			return nil, fmt.Errorf("%w: %w", modelErr, domain.ErrInsufficientSamples)
		}
		return nil, domain.ErrInsufficientSamples
	}

	identity, err := domain.NewEnrolledIdentity(name, accountID, embeddings, p.now())
	if err != nil {
		return nil, err
	}

	if err := p.gallery.Add(ctx, identity); err != nil {
		return nil, err
	}

	summary := identity.Summary()
	p.logger.Info("identity enrolled",
		slog.String("account_id", summary.AccountID),
		slog.Int("samples", summary.SampleCount),
		slog.Int("images", len(req.Images)),
	)

	p.runBackground(func(ctx context.Context) {
		if p.crops != nil {
			if err := p.crops.Save(ctx, accountID, crops); err != nil {
				p.logger.Warn("failed to archive enrollment crops", slog.String("account_id", accountID), slog.Any("error", err))
			}
		}
		p.publish(ctx, notify.EnrollmentEvent(summary, identity.EnrolledAt))
	})

	return &domain.EnrollResult{
		Identity: summary,
		Samples:  outcomes,
		Accepted: len(embeddings),
	}, nil
}

// enrollSample runs decode, detect, expand and embed for one image. A
// non-empty reason means the sample was rejected; err carries the cause.
func (p *Pipeline) enrollSample(ctx context.Context, data []byte) (domain.FaceCrop, domain.Embedding, string, error) {
	img, err := face.DecodeImage(data)
	if err != nil {
		return domain.FaceCrop{}, nil, domain.ReasonInvalidImage, err
	}

	boxes, err := p.detector.Detect(ctx, img)
	if err != nil {
		return domain.FaceCrop{}, nil, domain.ReasonDetectionFailed, err
	}
	if len(boxes) == 0 {
		return domain.FaceCrop{}, nil, domain.ReasonNoFaceDetected, nil
	}

	crop, err := p.expander.Expand(img, boxes[0])
	if err != nil {
		return domain.FaceCrop{}, nil, domain.ReasonNoFaceDetected, fmt.Errorf("expand face region: %w", err)
	}

	embedding, err := p.extractor.Embed(ctx, crop)
	if err != nil {
		return domain.FaceCrop{}, nil, domain.ReasonExtractionFailed, err
	}

	return crop, embedding, "", nil
}

func (p *Pipeline) finishVerify(result *domain.VerifyResult, start time.Time) {
	latency := p.now().Sub(start)

	attrs := []any{
		slog.String("status", string(result.Status)),
		slog.Int("faces", result.FacesDetected),
		slog.Duration("latency", latency),
	}
	if result.Identity != nil {
		attrs = append(attrs, slog.String("account_id", result.Identity.AccountID))
	}
	if result.Score != nil {
		attrs = append(attrs, slog.Float64("score", *result.Score))
	}
	if result.BestScore != nil {
		attrs = append(attrs, slog.Float64("best_score", *result.BestScore))
	}
	if result.Liveness != nil {
		attrs = append(attrs, slog.Float64("liveness", *result.Liveness))
	}
	p.logger.Info("verification completed", attrs...)

	record := &domain.Verification{
		Status:        result.Status,
		Score:         result.Score,
		FacesDetected: result.FacesDetected,
		LatencyMs:     latency.Milliseconds(),
	}
	if result.Identity != nil {
		account := result.Identity.AccountID
		record.AccountID = &account
	}
	if record.Score == nil {
		record.Score = result.BestScore
	}

	event := notify.VerificationEvent(result, p.now())
	p.runBackground(func(ctx context.Context) {
		p.record(ctx, record)
		p.publish(ctx, event)
	})
}

func (p *Pipeline) finishMulti(result *domain.MultiVerifyResult, start time.Time) {
	latency := p.now().Sub(start)

	attrs := []any{
		slog.String("status", string(result.Status)),
		slog.Int("faces", result.FacesDetected),
		slog.Duration("latency", latency),
	}
	if result.Best != nil {
		attrs = append(attrs, slog.String("account_id", result.Best.AccountID))
	}
	if result.BestScore != nil {
		attrs = append(attrs, slog.Float64("best_score", *result.BestScore))
	}
	p.logger.Info("multi-face verification completed", attrs...)

	record := &domain.Verification{
		Status:        result.Status,
		Score:         result.BestScore,
		FacesDetected: result.FacesDetected,
		LatencyMs:     latency.Milliseconds(),
	}
	if result.Best != nil {
		account := result.Best.AccountID
		record.AccountID = &account
	}

	event := notify.MultiVerificationEvent(result, p.now())
	p.runBackground(func(ctx context.Context) {
		p.record(ctx, record)
		p.publish(ctx, event)
	})
}

func (p *Pipeline) record(ctx context.Context, v *domain.Verification) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Create(ctx, v); err != nil {
		p.logger.Warn("failed to record verification", slog.Any("error", err))
	}
}

func (p *Pipeline) publish(ctx context.Context, event notify.Event) {
	if err := p.notifier.Publish(ctx, event); err != nil {
		p.logger.Warn("failed to publish event",
			slog.String("type", string(event.Type)),
			slog.Any("error", err),
		)
	}
}

// runBackground runs fn detached from the request context, bounded by
// SideEffectTimeout.
func (p *Pipeline) runBackground(fn func(ctx context.Context)) {
	p.background.Add(1)
	go func() {
		defer p.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.SideEffectTimeout)
		defer cancel()

		fn(ctx)
	}()
}
