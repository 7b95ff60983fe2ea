package approval

import (
	"context"
	"time"
)

// Request describes an application a human is asked to override.
type Request struct {
	ApplicantID string `json:"applicant_id"`
	AIDecision  string `json:"ai_decision"`
	Demographic string `json:"demographic"`
	RiskFlag    string `json:"risk_flag"`
}

// Channel asks a human whether to override an AI decision. A false answer
// with a nil error means the human declined or answered asynchronously.
type Channel interface {
	RequestOverride(ctx context.Context, req Request) (bool, error)
}

// StaticChannel always returns the same answer.
type StaticChannel struct {
	Override bool
	Err      error
}

func (c StaticChannel) RequestOverride(ctx context.Context, req Request) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	return c.Override, nil
}

// EscalationMessage is the payload queued for asynchronous reviewers.
type EscalationMessage struct {
	Request
	RequestedAt string `json:"requested_at"`
}

func newEscalationMessage(req Request, now time.Time) EscalationMessage {
	return EscalationMessage{Request: req, RequestedAt: now.UTC().Format(time.RFC3339)}
}
