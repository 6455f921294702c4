package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
)

// MockPipeline is a mock implementation of Pipeline
type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Enroll(ctx context.Context, req service.EnrollRequest) (*domain.EnrollResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnrollResult), args.Error(1)
}

func (m *MockPipeline) Verify(ctx context.Context, imageBytes []byte) (*domain.VerifyResult, error) {
	args := m.Called(ctx, imageBytes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerifyResult), args.Error(1)
}

func (m *MockPipeline) VerifyAll(ctx context.Context, imageBytes []byte) (*domain.MultiVerifyResult, error) {
	args := m.Called(ctx, imageBytes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MultiVerifyResult), args.Error(1)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type upload struct {
	field       string
	content     []byte
	contentType string
}

// multipartBody builds a multipart request body from form fields and files.
func multipartBody(t *testing.T, fields map[string]string, files []upload) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}

	for i, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="img`+string(rune('a'+i))+`.jpg"`)
		h.Set("Content-Type", f.contentType)

		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write(f.content)
	}

	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func newFaceApp(pipeline Pipeline) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
	})
	h := NewFaceHandler(pipeline, testLogger())
	app.Post("/v1/enroll", h.Enroll)
	app.Post("/v1/verify", h.Verify)
	app.Post("/v1/verify/multi", h.VerifyMulti)
	return app
}

func decodeError(t *testing.T, body io.Reader) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error.Code
}

func jpegFiles(field string, n int) []upload {
	files := make([]upload, n)
	for i := range files {
		files[i] = upload{field: field, content: []byte{0xFF, 0xD8, byte(i)}, contentType: "image/jpeg"}
	}
	return files
}

func TestFaceHandler_Enroll(t *testing.T) {
	enrolledAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		fields         map[string]string
		files          []upload
		setupMock      func(m *MockPipeline)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "success",
			fields: map[string]string{"name": " Ana ", "account_id": "A1"},
			files:  jpegFiles("files", 5),
			setupMock: func(m *MockPipeline) {
				m.On("Enroll", mock.Anything, mock.MatchedBy(func(req service.EnrollRequest) bool {
					return req.Name == "Ana" && req.AccountID == "A1" && len(req.Images) == 5 &&
						bytes.Equal(req.Images[2], []byte{0xFF, 0xD8, 2})
				})).Return(&domain.EnrollResult{
					Identity: domain.IdentitySummary{AccountID: "A1", Name: "Ana", SampleCount: 4, EnrolledAt: enrolledAt},
					Samples: []domain.SampleOutcome{
						{Index: 0, Accepted: true},
						{Index: 1, Accepted: true},
						{Index: 2, Reason: domain.ReasonNoFaceDetected},
						{Index: 3, Accepted: true},
						{Index: 4, Accepted: true},
					},
					Accepted: 4,
				}, nil)
			},
			expectedStatus: 201,
		},
		{
			name:   "files[] field name",
			fields: map[string]string{"name": "Ana", "account_id": "A1"},
			files:  jpegFiles("files[]", 6),
			setupMock: func(m *MockPipeline) {
				m.On("Enroll", mock.Anything, mock.MatchedBy(func(req service.EnrollRequest) bool {
					return len(req.Images) == 6
				})).Return(&domain.EnrollResult{Identity: domain.IdentitySummary{AccountID: "A1"}}, nil)
			},
			expectedStatus: 201,
		},
		{
			name:           "missing name",
			fields:         map[string]string{"account_id": "A1"},
			files:          jpegFiles("files", 5),
			expectedStatus: 422,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "too few files",
			fields:         map[string]string{"name": "Ana", "account_id": "A1"},
			files:          jpegFiles("files", 4),
			expectedStatus: 400,
			expectedCode:   "INVALID_SAMPLE_COUNT",
		},
		{
			name:           "too many files",
			fields:         map[string]string{"name": "Ana", "account_id": "A1"},
			files:          jpegFiles("files", 21),
			expectedStatus: 400,
			expectedCode:   "INVALID_SAMPLE_COUNT",
		},
		{
			name:   "empty file",
			fields: map[string]string{"name": "Ana", "account_id": "A1"},
			files: append(jpegFiles("files", 4), upload{
				field: "files", content: []byte{}, contentType: "image/jpeg",
			}),
			expectedStatus: 422,
			expectedCode:   "INVALID_IMAGE",
		},
		{
			name:   "duplicate account",
			fields: map[string]string{"name": "Ana", "account_id": "A1"},
			files:  jpegFiles("files", 5),
			setupMock: func(m *MockPipeline) {
				m.On("Enroll", mock.Anything, mock.Anything).Return(nil, domain.ErrDuplicateAccount)
			},
			expectedStatus: 409,
			expectedCode:   "DUPLICATE_ACCOUNT",
		},
		{
			name:   "insufficient samples",
			fields: map[string]string{"name": "Ana", "account_id": "A1"},
			files:  jpegFiles("files", 5),
			setupMock: func(m *MockPipeline) {
				m.On("Enroll", mock.Anything, mock.Anything).Return(nil, domain.ErrInsufficientSamples)
			},
			expectedStatus: 422,
			expectedCode:   "INSUFFICIENT_SAMPLES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockPipeline{}
			if tt.setupMock != nil {
				tt.setupMock(m)
			}

			body, contentType := multipartBody(t, tt.fields, tt.files)
			req := httptest.NewRequest("POST", "/v1/enroll", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := newFaceApp(m).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, resp.Body))
			}
			m.AssertExpectations(t)
		})
	}
}

func TestFaceHandler_Enroll_ResponseBody(t *testing.T) {
	m := &MockPipeline{}
	m.On("Enroll", mock.Anything, mock.Anything).Return(&domain.EnrollResult{
		Identity: domain.IdentitySummary{AccountID: "A1", Name: "Ana", SampleCount: 3},
		Samples: []domain.SampleOutcome{
			{Index: 0, Reason: domain.ReasonInvalidImage},
			{Index: 1, Accepted: true},
		},
		Accepted: 3,
	}, nil)

	body, contentType := multipartBody(t, map[string]string{"name": "Ana", "account_id": "A1"}, jpegFiles("files", 5))
	req := httptest.NewRequest("POST", "/v1/enroll", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := newFaceApp(m).Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var got domain.EnrollResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "A1", got.Identity.AccountID)
	assert.Equal(t, 3, got.Accepted)
	assert.Equal(t, "invalid_image", got.Samples[0].Reason)
	assert.True(t, got.Samples[1].Accepted)
}

func TestFaceHandler_Verify(t *testing.T) {
	score := 0.82
	best := 0.41
	liveness := 231.5

	tests := []struct {
		name           string
		files          []upload
		setupMock      func(m *MockPipeline)
		expectedStatus int
		expectedCode   string
		check          func(t *testing.T, got map[string]any)
	}{
		{
			name:  "matched",
			files: []upload{{field: "file", content: []byte("jpeg"), contentType: "image/jpeg"}},
			setupMock: func(m *MockPipeline) {
				m.On("Verify", mock.Anything, []byte("jpeg")).Return(&domain.VerifyResult{
					Status:        domain.StatusMatched,
					Identity:      &domain.IdentitySummary{AccountID: "A1", Name: "Ana"},
					Score:         &score,
					Liveness:      &liveness,
					FacesDetected: 1,
				}, nil)
			},
			expectedStatus: 200,
			check: func(t *testing.T, got map[string]any) {
				assert.Equal(t, "matched", got["status"])
				assert.Equal(t, 0.82, got["score"])
				assert.NotContains(t, got, "best_score")
			},
		},
		{
			name:  "not recognized is a result",
			files: []upload{{field: "file", content: []byte("png"), contentType: "image/png"}},
			setupMock: func(m *MockPipeline) {
				m.On("Verify", mock.Anything, []byte("png")).Return(&domain.VerifyResult{
					Status:        domain.StatusNotRecognized,
					BestScore:     &best,
					FacesDetected: 1,
				}, nil)
			},
			expectedStatus: 200,
			check: func(t *testing.T, got map[string]any) {
				assert.Equal(t, "not_recognized", got["status"])
				assert.Equal(t, 0.41, got["best_score"])
				assert.NotContains(t, got, "identity")
			},
		},
		{
			name:  "no face is a result",
			files: []upload{{field: "file", content: []byte("png"), contentType: "image/png"}},
			setupMock: func(m *MockPipeline) {
				m.On("Verify", mock.Anything, mock.Anything).Return(&domain.VerifyResult{Status: domain.StatusNoFaceDetected}, nil)
			},
			expectedStatus: 200,
			check: func(t *testing.T, got map[string]any) {
				assert.Equal(t, "no_face_detected", got["status"])
				assert.EqualValues(t, 0, got["faces_detected"])
			},
		},
		{
			name:  "bmp upload accepted",
			files: []upload{{field: "file", content: []byte("BM"), contentType: "image/bmp"}},
			setupMock: func(m *MockPipeline) {
				m.On("Verify", mock.Anything, []byte("BM")).Return(&domain.VerifyResult{Status: domain.StatusNoFaceDetected}, nil)
			},
			expectedStatus: 200,
			check: func(t *testing.T, got map[string]any) {
				assert.Equal(t, "no_face_detected", got["status"])
			},
		},
		{
			name:           "missing file",
			expectedStatus: 422,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "unsupported content type",
			files:          []upload{{field: "file", content: []byte("%PDF"), contentType: "application/pdf"}},
			expectedStatus: 422,
			expectedCode:   "INVALID_IMAGE",
		},
		{
			name:  "undecodable image",
			files: []upload{{field: "file", content: []byte("garbage"), contentType: "image/jpeg"}},
			setupMock: func(m *MockPipeline) {
				m.On("Verify", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidImage.WithError(errors.New("unknown format")))
			},
			expectedStatus: 422,
			expectedCode:   "INVALID_IMAGE",
		},
		{
			name:  "extraction failure",
			files: []upload{{field: "file", content: []byte("jpeg"), contentType: "image/jpeg"}},
			setupMock: func(m *MockPipeline) {
				m.On("Verify", mock.Anything, mock.Anything).Return(nil, domain.ErrExtractionFailed)
			},
			expectedStatus: 500,
			expectedCode:   "EXTRACTION_FAILED",
		},
		{
			name:  "detector unavailable",
			files: []upload{{field: "file", content: []byte("jpeg"), contentType: "image/jpeg"}},
			setupMock: func(m *MockPipeline) {
				m.On("Verify", mock.Anything, mock.Anything).Return(nil, domain.ErrDetectionFailed)
			},
			expectedStatus: 502,
			expectedCode:   "DETECTION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockPipeline{}
			if tt.setupMock != nil {
				tt.setupMock(m)
			}

			body, contentType := multipartBody(t, nil, tt.files)
			req := httptest.NewRequest("POST", "/v1/verify", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := newFaceApp(m).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, resp.Body))
			}
			if tt.check != nil {
				var got map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
				tt.check(t, got)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestFaceHandler_VerifyMulti(t *testing.T) {
	score := 0.91
	m := &MockPipeline{}
	m.On("VerifyAll", mock.Anything, []byte("jpeg")).Return(&domain.MultiVerifyResult{
		Status:    domain.StatusMatched,
		Best:      &domain.IdentitySummary{AccountID: "B2", Name: "Bea"},
		BestScore: &score,
		Faces: []domain.FaceResult{
			{Index: 0, Status: domain.StatusSpoofSuspected, Liveness: 12},
			{Index: 1, Status: domain.StatusMatched, Identity: &domain.IdentitySummary{AccountID: "B2"}, Score: &score, Liveness: 150},
		},
		FacesDetected: 2,
	}, nil)

	body, contentType := multipartBody(t, nil, []upload{{field: "file", content: []byte("jpeg"), contentType: "image/jpeg"}})
	req := httptest.NewRequest("POST", "/v1/verify/multi", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := newFaceApp(m).Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var got domain.MultiVerifyResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, domain.StatusMatched, got.Status)
	assert.Equal(t, "B2", got.Best.AccountID)
	require.Len(t, got.Faces, 2)
	assert.Equal(t, domain.StatusSpoofSuspected, got.Faces[0].Status)
	m.AssertExpectations(t)
}
