package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// IdentityData is the public view of an enrolled person
type IdentityData struct {
	AccountID   string `json:"account_id" example:"A1"`
	Name        string `json:"name" example:"Ana Souza"`
	SampleCount int    `json:"sample_count" example:"5"`
	EnrolledAt  string `json:"enrolled_at" example:"2026-01-01T00:00:00Z"`
}

// SampleOutcomeData reports what happened to one enrollment image
type SampleOutcomeData struct {
	Index    int    `json:"index" example:"2"`
	Accepted bool   `json:"accepted" example:"false"`
	Reason   string `json:"reason,omitempty" example:"no_face_detected"`
}

// EnrollResponse represents the response for a successful enrollment
type EnrollResponse struct {
	Identity IdentityData        `json:"identity"`
	Samples  []SampleOutcomeData `json:"samples"`
	Accepted int                 `json:"accepted" example:"4"`
}

// BoxData is a face rectangle in image pixels
type BoxData struct {
	X1         int     `json:"x1" example:"50"`
	Y1         int     `json:"y1" example:"40"`
	X2         int     `json:"x2" example:"150"`
	Y2         int     `json:"y2" example:"160"`
	Confidence float64 `json:"confidence" example:"0.98"`
}

// VerifyResponse represents the outcome of a single-face verification
type VerifyResponse struct {
	Status        string        `json:"status" example:"matched"`
	Identity      *IdentityData `json:"identity,omitempty"`
	Score         float64       `json:"score,omitempty" example:"0.83"`
	BestScore     float64       `json:"best_score,omitempty" example:"0.42"`
	Box           *BoxData      `json:"box,omitempty"`
	Liveness      float64       `json:"liveness,omitempty" example:"212.4"`
	FacesDetected int           `json:"faces_detected" example:"1"`
}

// FaceResultData is one face of a multi-face verification
type FaceResultData struct {
	Index     int           `json:"index" example:"0"`
	Status    string        `json:"status" example:"not_recognized"`
	Box       BoxData       `json:"box"`
	Identity  *IdentityData `json:"identity,omitempty"`
	Score     float64       `json:"score,omitempty" example:"0.91"`
	BestScore float64       `json:"best_score,omitempty" example:"0.35"`
	Liveness  float64       `json:"liveness" example:"143.0"`
}

// MultiVerifyResponse covers every face found in one image
type MultiVerifyResponse struct {
	Status        string           `json:"status" example:"matched"`
	Best          *IdentityData    `json:"best,omitempty"`
	BestScore     float64          `json:"best_score,omitempty" example:"0.91"`
	Faces         []FaceResultData `json:"faces"`
	FacesDetected int              `json:"faces_detected" example:"2"`
}

// ListIdentitiesResponse lists every enrolled identity
type ListIdentitiesResponse struct {
	Identities []IdentityData `json:"identities"`
	Total      int            `json:"total" example:"1"`
}

// VerificationData is one audit log entry
type VerificationData struct {
	ID            string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	AccountID     string  `json:"account_id,omitempty" example:"A1"`
	Status        string  `json:"status" example:"matched"`
	Score         float64 `json:"score,omitempty" example:"0.83"`
	FacesDetected int     `json:"faces_detected" example:"1"`
	LatencyMs     int64   `json:"latency_ms" example:"87"`
	CreatedAt     string  `json:"created_at" example:"2026-01-01T00:00:00Z"`
}

// ListVerificationsResponse lists recent verifications, newest first
type ListVerificationsResponse struct {
	Verifications []VerificationData `json:"verifications"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

var (
	errUnauthorized = response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized")
	errRateLimited  = response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests")
	errInternal     = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	errInvalidImage = response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity")
	errExtraction   = response.New(ErrorResponse{Code: "EXTRACTION_FAILED", Message: "Face embedding extraction failed"}, "500", "Internal Server Error")
	errDetection    = response.New(ErrorResponse{Code: "DETECTION_FAILED", Message: "Face detector is unavailable"}, "502", "Bad Gateway")
)

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "facegate API",
		Version:     "v1.0.0",
		Description: "Face enrollment and identification for access control. Verification outcomes (matched, not_recognized, no_face_detected, spoof_suspected) are results, not errors.",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/enroll
		endpoint.New(
			endpoint.POST,
			"/enroll",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Enroll a person"),
			endpoint.WithDescription("Builds an identity from 5 to 20 images sent as multipart files together with name and account_id. Each image gets an outcome; at least 3 must yield a face embedding."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "201", "Identity enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_SAMPLE_COUNT", Message: "Enrollment requires between 5 and 20 images"}, "400", "Bad Request"),
				errUnauthorized,
				response.New(ErrorResponse{Code: "DUPLICATE_ACCOUNT", Message: "An identity is already enrolled for this account_id"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "INSUFFICIENT_SAMPLES", Message: "Not enough usable face images, at least 3 are required"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "name and account_id are required"}, "422", "Unprocessable Entity"),
				errRateLimited,
				errExtraction,
				errDetection,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/verify
		endpoint.New(
			endpoint.POST,
			"/verify",
			endpoint.WithTags("Verification"),
			endpoint.WithSummary("Identify the person in an image"),
			endpoint.WithDescription("Detects faces, checks liveness of the first one and searches the gallery. Sends the outcome to the configured notification sinks."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VerifyResponse{}, "200", "Verification completed"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				errInvalidImage,
				errRateLimited,
				errExtraction,
				errDetection,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/verify/multi
		endpoint.New(
			endpoint.POST,
			"/verify/multi",
			endpoint.WithTags("Verification"),
			endpoint.WithSummary("Identify every person in an image"),
			endpoint.WithDescription("Evaluates each detected face independently and reports the best live match across the image."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MultiVerifyResponse{}, "200", "Verification completed"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				errInvalidImage,
				errRateLimited,
				errExtraction,
				errDetection,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/identities
		endpoint.New(
			endpoint.GET,
			"/identities",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("List enrolled identities"),
			endpoint.WithDescription("Returns every identity in the gallery, oldest enrollment first."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListIdentitiesResponse{}, "200", "Identities listed"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				errRateLimited,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/identities/:account_id
		endpoint.New(
			endpoint.GET,
			"/identities/{account_id}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Get an enrolled identity"),
			endpoint.WithDescription("Returns the identity enrolled for account_id."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("account_id", parameter.Path, parameter.WithDescription("Account identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityData{}, "200", "Identity found"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "No identity enrolled for this account_id"}, "404", "Not Found"),
				errRateLimited,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/verifications
		endpoint.New(
			endpoint.GET,
			"/verifications",
			endpoint.WithTags("Audit"),
			endpoint.WithSummary("List recent verifications"),
			endpoint.WithDescription("Returns the verification audit log, newest first. Only available with the postgres store."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Number of entries (1-500, default: 50)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListVerificationsResponse{}, "200", "Verifications listed"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "limit must be between 1 and 500"}, "422", "Unprocessable Entity"),
				errRateLimited,
				errInternal,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/ws/events
		endpoint.New(
			endpoint.GET,
			"/ws/events",
			endpoint.WithTags("Events"),
			endpoint.WithSummary("Stream verification events"),
			endpoint.WithDescription("WebSocket upgrade. Pushes one JSON event per verification or enrollment. The optional status query filters verification events by outcome."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("status", parameter.Query, parameter.WithDescription("Comma separated statuses, e.g. matched,spoof_suspected")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "101", "Switching Protocols"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
