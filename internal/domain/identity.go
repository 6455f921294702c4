package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinEnrollImages = 5
	MaxEnrollImages = 20
	MinValidSamples = 3
)

// EnrolledIdentity is a registered person. It is built once by enrollment
// (or a legacy import) and never modified afterwards.
type EnrolledIdentity struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	AccountID     string      `json:"account_id"`
	Embeddings    []Embedding `json:"embeddings"`
	MeanEmbedding Embedding   `json:"mean_embedding"`
	EnrolledAt    time.Time   `json:"enrolled_at"`
}

// NewEnrolledIdentity assembles an identity from accepted sample embeddings.
func NewEnrolledIdentity(name, accountID string, embeddings []Embedding, enrolledAt time.Time) (*EnrolledIdentity, error) {
	name = strings.TrimSpace(name)
	accountID = strings.TrimSpace(accountID)
	if name == "" || accountID == "" {
		return nil, ErrValidationFailed.WithError(errors.New("name and account_id are required"))
	}
	if len(embeddings) < MinValidSamples {
		return nil, ErrInsufficientSamples
	}
	if len(embeddings) > MaxEnrollImages {
		return nil, ErrInvalidSampleCount
	}

	mean, err := MeanEmbedding(embeddings)
	if err != nil {
		return nil, fmt.Errorf("account %s: mean embedding: %w", accountID, err)
	}

	stored := make([]Embedding, len(embeddings))
	for i, e := range embeddings {
		stored[i] = e.Clone()
	}

	return &EnrolledIdentity{
		ID:            uuid.New(),
		Name:          name,
		AccountID:     accountID,
		Embeddings:    stored,
		MeanEmbedding: mean,
		EnrolledAt:    enrolledAt.UTC(),
	}, nil
}

// Dimension returns the embedding length of the identity, or 0 if it has none.
func (i *EnrolledIdentity) Dimension() int {
	if len(i.MeanEmbedding) > 0 {
		return len(i.MeanEmbedding)
	}
	if len(i.Embeddings) > 0 {
		return len(i.Embeddings[0])
	}
	return 0
}

// Candidates returns every stored vector that takes part in matching: the
// per-sample embeddings followed by the mean.
func (i *EnrolledIdentity) Candidates() []Embedding {
	out := make([]Embedding, 0, len(i.Embeddings)+1)
	out = append(out, i.Embeddings...)
	if len(i.MeanEmbedding) > 0 {
		out = append(out, i.MeanEmbedding)
	}
	return out
}

// IdentitySummary is the public view of an identity.
type IdentitySummary struct {
	AccountID   string    `json:"account_id"`
	Name        string    `json:"name"`
	SampleCount int       `json:"sample_count"`
	EnrolledAt  time.Time `json:"enrolled_at"`
}

func (i *EnrolledIdentity) Summary() IdentitySummary {
	return IdentitySummary{
		AccountID:   i.AccountID,
		Name:        i.Name,
		SampleCount: len(i.Embeddings),
		EnrolledAt:  i.EnrolledAt,
	}
}
