package domain

import (
	"time"

	"github.com/google/uuid"
)

// VerifyStatus is the outcome of matching one face.
type VerifyStatus string

const (
	StatusMatched        VerifyStatus = "matched"
	StatusNotRecognized  VerifyStatus = "not_recognized"
	StatusNoFaceDetected VerifyStatus = "no_face_detected"
	StatusSpoofSuspected VerifyStatus = "spoof_suspected"
)

// Match is a gallery hit.
type Match struct {
	Identity *EnrolledIdentity
	Score    float64
}

// VerifyResult is the outcome of a single-face verification.
// Score is set for matched results; BestScore is set for not_recognized
// results when the gallery produced any candidate.
type VerifyResult struct {
	Status        VerifyStatus     `json:"status"`
	Identity      *IdentitySummary `json:"identity,omitempty"`
	Score         *float64         `json:"score,omitempty"`
	BestScore     *float64         `json:"best_score,omitempty"`
	Box           *BoundingBox     `json:"box,omitempty"`
	Liveness      *float64         `json:"liveness,omitempty"`
	FacesDetected int              `json:"faces_detected"`
}

// FaceResult is the per-face entry of a multi-face verification.
type FaceResult struct {
	Index     int              `json:"index"`
	Status    VerifyStatus     `json:"status"`
	Box       BoundingBox      `json:"box"`
	Identity  *IdentitySummary `json:"identity,omitempty"`
	Score     *float64         `json:"score,omitempty"`
	BestScore *float64         `json:"best_score,omitempty"`
	Liveness  float64          `json:"liveness"`
}

// MultiVerifyResult covers every face found in one image. Status and Best
// reflect the highest scoring live face across the whole image.
type MultiVerifyResult struct {
	Status        VerifyStatus     `json:"status"`
	Best          *IdentitySummary `json:"best,omitempty"`
	BestScore     *float64         `json:"best_score,omitempty"`
	Faces         []FaceResult     `json:"faces"`
	FacesDetected int              `json:"faces_detected"`
}

// SampleOutcome records what happened to one enrollment image.
type SampleOutcome struct {
	Index    int    `json:"index"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

const (
	ReasonInvalidImage     = "invalid_image"
	ReasonNoFaceDetected   = "no_face_detected"
	ReasonExtractionFailed = "extraction_failed"
	ReasonDetectionFailed  = "detection_failed"
)

// EnrollResult is returned by a successful enrollment.
type EnrollResult struct {
	Identity IdentitySummary `json:"identity"`
	Samples  []SampleOutcome `json:"samples"`
	Accepted int             `json:"accepted"`
}

// Verification is an audit record of one verify call.
type Verification struct {
	ID            uuid.UUID    `json:"id"`
	AccountID     *string      `json:"account_id,omitempty"`
	Status        VerifyStatus `json:"status"`
	Score         *float64     `json:"score,omitempty"`
	FacesDetected int          `json:"faces_detected"`
	LatencyMs     int64        `json:"latency_ms"`
	CreatedAt     time.Time    `json:"created_at"`
}
