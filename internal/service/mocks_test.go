package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/notify"
)

type MockFaceDetector struct {
	mock.Mock
}

func (m *MockFaceDetector) Detect(ctx context.Context, img image.Image) ([]domain.BoundingBox, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BoundingBox), args.Error(1)
}

type MockRegionExpander struct {
	mock.Mock
}

func (m *MockRegionExpander) Expand(img image.Image, box domain.BoundingBox) (domain.FaceCrop, error) {
	args := m.Called(img, box)
	return args.Get(0).(domain.FaceCrop), args.Error(1)
}

type MockLivenessChecker struct {
	mock.Mock
}

func (m *MockLivenessChecker) Check(crop domain.FaceCrop) (bool, float64) {
	args := m.Called(crop)
	return args.Bool(0), args.Get(1).(float64)
}

type MockEmbeddingExtractor struct {
	mock.Mock
}

func (m *MockEmbeddingExtractor) Embed(ctx context.Context, crop domain.FaceCrop) (domain.Embedding, error) {
	args := m.Called(ctx, crop)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Embedding), args.Error(1)
}

type MockGallery struct {
	mock.Mock
}

func (m *MockGallery) Search(query domain.Embedding) (*domain.EnrolledIdentity, float64) {
	args := m.Called(query)
	if args.Get(0) == nil {
		return nil, args.Get(1).(float64)
	}
	return args.Get(0).(*domain.EnrolledIdentity), args.Get(1).(float64)
}

func (m *MockGallery) Add(ctx context.Context, identity *domain.EnrolledIdentity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockGallery) Contains(accountID string) bool {
	args := m.Called(accountID)
	return args.Bool(0)
}

type MockVerificationRecorder struct {
	mock.Mock
}

func (m *MockVerificationRecorder) Create(ctx context.Context, v *domain.Verification) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(ctx context.Context, event notify.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockCropArchive struct {
	mock.Mock
}

func (m *MockCropArchive) Save(ctx context.Context, accountID string, crops []domain.FaceCrop) error {
	args := m.Called(ctx, accountID, crops)
	return args.Error(0)
}

type pipelineMocks struct {
	detector  *MockFaceDetector
	expander  *MockRegionExpander
	liveness  *MockLivenessChecker
	extractor *MockEmbeddingExtractor
	gallery   *MockGallery
	recorder  *MockVerificationRecorder
	notifier  *MockNotifier
	crops     *MockCropArchive
}

func newPipelineMocks() *pipelineMocks {
	return &pipelineMocks{
		detector:  new(MockFaceDetector),
		expander:  new(MockRegionExpander),
		liveness:  new(MockLivenessChecker),
		extractor: new(MockEmbeddingExtractor),
		gallery:   new(MockGallery),
		recorder:  new(MockVerificationRecorder),
		notifier:  new(MockNotifier),
		crops:     new(MockCropArchive),
	}
}

var testNow = time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)

func (m *pipelineMocks) pipeline(cfg Config) *Pipeline {
	p := NewPipeline(m.detector, m.expander, m.liveness, m.extractor, m.gallery, cfg, discardLogger(),
		WithRecorder(m.recorder),
		WithNotifier(m.notifier),
		WithCropArchive(m.crops),
	)
	p.now = func() time.Time { return testNow }
	return p
}

func (m *pipelineMocks) assertExpectations(t *testing.T) {
	t.Helper()
	m.detector.AssertExpectations(t)
	m.expander.AssertExpectations(t)
	m.liveness.AssertExpectations(t)
	m.extractor.AssertExpectations(t)
	m.gallery.AssertExpectations(t)
	m.recorder.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
	m.crops.AssertExpectations(t)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testImage(t *testing.T) []byte {
	t.Helper()
	return encodePNG(t, image.NewRGBA(image.Rect(0, 0, 16, 16)))
}

func testCrop() domain.FaceCrop {
	return domain.FaceCrop{
		Image: image.NewRGBA(image.Rect(0, 0, domain.CropSize, domain.CropSize)),
		Box:   domain.BoundingBox{X1: 0, Y1: 0, X2: 16, Y2: 16},
	}
}

func testIdentity(t *testing.T, name, account string) *domain.EnrolledIdentity {
	t.Helper()
	identity, err := domain.NewEnrolledIdentity(name, account,
		[]domain.Embedding{{1, 0}, {0.8, 0.6}, {0.6, 0.8}}, testNow)
	require.NoError(t, err)
	return identity
}
