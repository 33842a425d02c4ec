// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"sync"

	"github.com/omaribamark/factcheck-core/internal/domain/ports"
)

// LLMClient is a mock implementation of ports.LLMClient. Replies are consumed
// in order; once exhausted the last one repeats.
type LLMClient struct {
	mu sync.Mutex

	Replies []LLMReply
	Model   string

	Calls    int
	LastText string
}

// LLMReply is one scripted model response.
type LLMReply struct {
	Content string
	Err     error
}

// AssessClaim returns the next scripted reply.
func (m *LLMClient) AssessClaim(_ context.Context, claimText string) (*ports.RawAssessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastText = claimText
	idx := m.Calls
	m.Calls++
	if len(m.Replies) == 0 {
		return &ports.RawAssessment{Content: "", Model: m.Model}, nil
	}
	if idx >= len(m.Replies) {
		idx = len(m.Replies) - 1
	}
	r := m.Replies[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	model := m.Model
	if model == "" {
		model = "mock-model"
	}
	return &ports.RawAssessment{Content: r.Content, Model: model}, nil
}

// CallCount returns the number of calls made.
func (m *LLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// ContentGenerator is a mock implementation of ports.ContentGenerator.
type ContentGenerator struct {
	mu sync.Mutex

	Draft *ports.AdvisoryDraft
	Err   error

	Requests []ports.AdvisoryRequest
}

// GenerateAdvisory records the request and returns the configured draft.
func (m *ContentGenerator) GenerateAdvisory(_ context.Context, req ports.AdvisoryRequest) (*ports.AdvisoryDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Draft != nil {
		return m.Draft, nil
	}
	return &ports.AdvisoryDraft{Title: "Advisory: " + req.TopicLabel, Body: "Check sources before sharing.", Model: "mock-model"}, nil
}
