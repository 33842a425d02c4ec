package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobKind is the closed set of background work the queue carries.
type JobKind string

// Job kinds.
const (
	JobAIVerify         JobKind = "ai_verify"
	JobAdvisoryGenerate JobKind = "advisory_generate"
)

// Job is the queue envelope. Payload holds the kind-specific struct; use the
// typed accessors instead of decoding it by hand.
type Job struct {
	ID         string          `json:"id"`
	Kind       JobKind         `json:"kind"`
	Attempt    int             `json:"attempt"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// AIVerifyPayload asks a worker to run AI pre-screening on a claim.
type AIVerifyPayload struct {
	ClaimID     string `json:"claim_id"`
	ClaimText   string `json:"claim_text"`
	SubmitterID string `json:"submitter_id"`
	Force       bool   `json:"force,omitempty"`
}

// AdvisoryPayload asks a worker to draft advisory content for a topic.
type AdvisoryPayload struct {
	TopicID string `json:"topic_id"`
}

// NewAIVerifyJob builds an ai_verify job.
func NewAIVerifyJob(p AIVerifyPayload) (Job, error) {
	return newJob(JobAIVerify, p)
}

// NewAdvisoryJob builds an advisory_generate job.
func NewAdvisoryJob(p AdvisoryPayload) (Job, error) {
	return newJob(JobAdvisoryGenerate, p)
}

func newJob(kind JobKind, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encoding %s payload: %w", kind, err)
	}
	return Job{
		ID:         uuid.New().String(),
		Kind:       kind,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// AIVerify decodes the payload of an ai_verify job.
func (j Job) AIVerify() (AIVerifyPayload, error) {
	var p AIVerifyPayload
	if err := j.decode(JobAIVerify, &p); err != nil {
		return AIVerifyPayload{}, err
	}
	if p.ClaimID == "" {
		return AIVerifyPayload{}, &ValidationError{Field: "claim_id", Reason: "missing from ai_verify payload"}
	}
	return p, nil
}

// Advisory decodes the payload of an advisory_generate job.
func (j Job) Advisory() (AdvisoryPayload, error) {
	var p AdvisoryPayload
	if err := j.decode(JobAdvisoryGenerate, &p); err != nil {
		return AdvisoryPayload{}, err
	}
	if p.TopicID == "" {
		return AdvisoryPayload{}, &ValidationError{Field: "topic_id", Reason: "missing from advisory payload"}
	}
	return p, nil
}

func (j Job) decode(want JobKind, dst any) error {
	if j.Kind != want {
		return fmt.Errorf("job %s is %s, not %s", j.ID, j.Kind, want)
	}
	if err := json.Unmarshal(j.Payload, dst); err != nil {
		return &ValidationError{Field: "payload", Reason: fmt.Sprintf("decoding %s payload: %v", want, err)}
	}
	return nil
}
