package notify

import (
	"context"
	"errors"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

type EventType string

const (
	EventVerification      EventType = "verification.completed"
	EventMultiVerification EventType = "verification.multi_completed"
	EventEnrollment        EventType = "identity.enrolled"
)

// Event is what sinks receive after a pipeline operation. Score is set for
// matched results, BestScore for unmatched ones that had a candidate.
type Event struct {
	Type          EventType               `json:"type"`
	Status        domain.VerifyStatus     `json:"status,omitempty"`
	Identity      *domain.IdentitySummary `json:"identity,omitempty"`
	Score         *float64                `json:"score,omitempty"`
	BestScore     *float64                `json:"best_score,omitempty"`
	Liveness      *float64                `json:"liveness,omitempty"`
	FacesDetected int                     `json:"faces_detected"`
	Timestamp     time.Time               `json:"timestamp"`
}

// Notifier delivers events to an external sink.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

func VerificationEvent(result *domain.VerifyResult, at time.Time) Event {
	return Event{
		Type:          EventVerification,
		Status:        result.Status,
		Identity:      result.Identity,
		Score:         result.Score,
		BestScore:     result.BestScore,
		Liveness:      result.Liveness,
		FacesDetected: result.FacesDetected,
		Timestamp:     at,
	}
}

func MultiVerificationEvent(result *domain.MultiVerifyResult, at time.Time) Event {
	e := Event{
		Type:          EventMultiVerification,
		Status:        result.Status,
		Identity:      result.Best,
		FacesDetected: result.FacesDetected,
		Timestamp:     at,
	}
	if result.Status == domain.StatusMatched {
		e.Score = result.BestScore
	} else {
		e.BestScore = result.BestScore
	}
	return e
}

func EnrollmentEvent(summary domain.IdentitySummary, at time.Time) Event {
	return Event{
		Type:      EventEnrollment,
		Identity:  &summary,
		Timestamp: at,
	}
}

// Multi fans an event out to every notifier. All sinks are tried; the
// returned error joins the individual failures.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
