// Package ports defines interfaces for external service communication.
package ports

import "context"

// LLMClient defines the interface for model calls made by the workflow.
// Implementations return the raw model text; validation is the caller's job
// because the output is untrusted.
type LLMClient interface {
	// AssessClaim asks the model for a structured verdict on claim text.
	AssessClaim(ctx context.Context, claimText string) (*RawAssessment, error)
}

// RawAssessment is the unvalidated model reply.
type RawAssessment struct {
	Content string
	Model   string
}

// ContentGenerator drafts advisory content for high-risk topics.
type ContentGenerator interface {
	GenerateAdvisory(ctx context.Context, req AdvisoryRequest) (*AdvisoryDraft, error)
}

// AdvisoryRequest describes the topic to write about.
type AdvisoryRequest struct {
	TopicLabel      string
	Category        string
	EngagementScore float64
	ClaimTitles     []string
}

// AdvisoryDraft is generated advisory content.
type AdvisoryDraft struct {
	Title string
	Body  string
	Model string
}
