// Package openai provides LLMClient and ContentGenerator implementations using OpenAI.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/config"
)

const assessmentPrompt = `You are a fact-checking assistant doing a first pass over claims submitted by the public.
Judge whether the claim is accurate using well-established public knowledge.

Return ONLY a JSON object with these fields:
- verdict: one of "true", "false", "misleading", "satire", "needs_context"
- confidence_score: how sure you are, from 0.0 to 1.0
- explanation: two to four sentences a member of the public can follow
- sources: a list of URLs or publication names that support the verdict

If you cannot judge the claim, use "needs_context" with a low confidence_score.

Example:
{"verdict": "false", "confidence_score": 0.86, "explanation": "The health ministry has published no such directive.", "sources": ["https://www.who.int"]}`

const assessmentRequest = `Assess this claim:

%s

Respond with ONLY the JSON object described above, with the fields verdict, confidence_score, explanation and sources.`

const advisoryPrompt = `You write short public advisories for a fact-checking desk.
Many people are currently sharing claims about the topic below. Write a calm, neutral explainer
that tells readers what is being claimed, what is known, and where to find reliable updates.
Do not repeat unverified details as fact.

Topic: %s
Category: %s
Engagement score: %.0f
Sample claims:
%s

Return ONLY a JSON object: {"title": "...", "body": "..."}`

const defaultModel = "gpt-4o-mini"

// Client implements ports.LLMClient and ports.ContentGenerator using OpenAI.
type Client struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

// NewClient creates a new OpenAI LLM client.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := defaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// AssessClaim asks the model for a structured verdict. The reply is returned
// as-is; callers validate it.
func (c *Client) AssessClaim(ctx context.Context, claimText string) (*ports.RawAssessment, error) {
	content, model, err := c.complete(ctx, "llm", []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: assessmentPrompt},
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(assessmentRequest, claimText)},
	})
	if err != nil {
		return nil, err
	}
	return &ports.RawAssessment{Content: content, Model: model}, nil
}

// GenerateAdvisory drafts explainer content for a high-risk topic.
func (c *Client) GenerateAdvisory(ctx context.Context, req ports.AdvisoryRequest) (*ports.AdvisoryDraft, error) {
	var sb strings.Builder
	for _, title := range req.ClaimTitles {
		sb.WriteString("- ")
		sb.WriteString(title)
		sb.WriteString("\n")
	}
	prompt := fmt.Sprintf(advisoryPrompt, req.TopicLabel, req.Category, req.EngagementScore, sb.String())

	content, model, err := c.complete(ctx, "content", []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	var raw rawAdvisory
	if err := json.Unmarshal([]byte(cleanJSONResponse(content)), &raw); err != nil {
		return nil, &entities.ExternalServiceError{
			Service: "content",
			Kind:    entities.ExternalMalformed,
			Err:     fmt.Errorf("parsing advisory JSON: %w", err),
		}
	}
	raw.Title = strings.TrimSpace(raw.Title)
	raw.Body = strings.TrimSpace(raw.Body)
	if raw.Title == "" || raw.Body == "" {
		return nil, &entities.ExternalServiceError{
			Service: "content",
			Kind:    entities.ExternalUnexpected,
			Err:     errors.New("advisory is missing title or body"),
		}
	}

	return &ports.AdvisoryDraft{Title: raw.Title, Body: raw.Body, Model: model}, nil
}

// complete runs one rate-limited JSON-mode chat completion.
func (c *Client) complete(ctx context.Context, service string, messages []openai.ChatCompletionMessage) (string, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", "", &entities.ExternalServiceError{Service: service, Kind: entities.ExternalTransport, Err: err}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", "", &entities.ExternalServiceError{
			Service: service,
			Kind:    entities.ExternalTransport,
			Err:     fmt.Errorf("calling OpenAI: %w", err),
		}
	}

	if len(resp.Choices) == 0 {
		return "", "", &entities.ExternalServiceError{
			Service: service,
			Kind:    entities.ExternalMalformed,
			Err:     errors.New("no response from OpenAI"),
		}
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return resp.Choices[0].Message.Content, model, nil
}

// rawAdvisory is the JSON structure for generated advisories.
type rawAdvisory struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// cleanJSONResponse removes markdown code blocks if present.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}

	return strings.TrimSpace(content)
}
