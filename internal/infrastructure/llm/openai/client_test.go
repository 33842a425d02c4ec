package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/config"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantErr bool
		errMsg  string
		model   string
	}{
		{
			name:  "valid config",
			cfg:   config.LLMConfig{APIKey: "test-key"},
			model: defaultModel,
		},
		{
			name:  "valid config with model",
			cfg:   config.LLMConfig{APIKey: "test-key", Model: "gpt-4o", RequestsPerSecond: 2, Burst: 4},
			model: "gpt-4o",
		},
		{
			name:    "missing API key",
			cfg:     config.LLMConfig{},
			wantErr: true,
			errMsg:  "API key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, client)
			} else {
				require.NoError(t, err)
				require.NotNil(t, client)
				assert.Equal(t, tt.model, client.Model())
			}
		})
	}
}

// fakeOpenAI serves chat completions with a fixed reply body.
func fakeOpenAI(t *testing.T, status int, content string) (*Client, *atomic.Int32, *atomic.Value) {
	t.Helper()
	var calls atomic.Int32
	var lastBody atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		lastBody.Store(body)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "upstream unavailable", "type": "server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-test-0001",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(config.LLMConfig{APIKey: "test-key", Model: "gpt-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return client, &calls, &lastBody
}

func TestClient_AssessClaim(t *testing.T) {
	reply := `{"verdict": "false", "confidence_score": 0.9, "explanation": "No.", "sources": []}`
	client, calls, lastBody := fakeOpenAI(t, http.StatusOK, reply)

	raw, err := client.AssessClaim(context.Background(), "The moon is made of cheese")
	require.NoError(t, err)
	assert.Equal(t, reply, raw.Content)
	assert.Equal(t, "gpt-test-0001", raw.Model)
	assert.Equal(t, int32(1), calls.Load())

	body := lastBody.Load().(map[string]any)
	assert.Equal(t, "gpt-test", body["model"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "The moon is made of cheese")
	assert.Contains(t, user, "confidence_score")
}

func TestClient_AssessClaim_ReturnsRawText(t *testing.T) {
	client, _, _ := fakeOpenAI(t, http.StatusOK, "I think this is probably false.")

	raw, err := client.AssessClaim(context.Background(), "claim")
	require.NoError(t, err)
	assert.Equal(t, "I think this is probably false.", raw.Content)
}

func TestClient_TransportFailure(t *testing.T) {
	client, _, _ := fakeOpenAI(t, http.StatusBadGateway, "")

	_, err := client.AssessClaim(context.Background(), "claim")
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrExternalService)

	var ext *entities.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, entities.ExternalTransport, ext.Kind)
	assert.True(t, ext.Retryable())
}

func TestClient_CanceledContext(t *testing.T) {
	client, calls, _ := fakeOpenAI(t, http.StatusOK, "{}")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.AssessClaim(ctx, "claim")
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrExternalService)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_GenerateAdvisory(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantKind entities.ExternalKind
		title    string
	}{
		{
			name:    "valid advisory",
			content: "```json\n{\"title\": \"What we know about the outage\", \"body\": \"Officials have not confirmed the cause.\"}\n```",
			title:   "What we know about the outage",
		},
		{
			name:     "not JSON",
			content:  "Here is your advisory!",
			wantKind: entities.ExternalMalformed,
		},
		{
			name:     "missing body",
			content:  `{"title": "Only a title"}`,
			wantKind: entities.ExternalUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, lastBody := fakeOpenAI(t, http.StatusOK, tt.content)

			draft, err := client.GenerateAdvisory(context.Background(), ports.AdvisoryRequest{
				TopicLabel:      "Power outage rumours",
				Category:        "politics",
				EngagementScore: 120,
				ClaimTitles:     []string{"Grid sabotaged", "Outage planned"},
			})

			if tt.wantKind != "" {
				var ext *entities.ExternalServiceError
				require.ErrorAs(t, err, &ext)
				assert.Equal(t, tt.wantKind, ext.Kind)
				assert.Equal(t, "content", ext.Service)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.title, draft.Title)
			assert.Equal(t, "gpt-test-0001", draft.Model)

			body := lastBody.Load().(map[string]any)
			prompt := body["messages"].([]any)[0].(map[string]any)["content"].(string)
			assert.Contains(t, prompt, "Power outage rumours")
			assert.Contains(t, prompt, "- Grid sabotaged")
		})
	}
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON",
			input:    `{"title": "x"}`,
			expected: `{"title": "x"}`,
		},
		{
			name:     "JSON with json code block",
			input:    "```json\n{\"title\": \"x\"}\n```",
			expected: `{"title": "x"}`,
		},
		{
			name:     "JSON with plain code block",
			input:    "```\n{\"title\": \"x\"}\n```",
			expected: `{"title": "x"}`,
		},
		{
			name:     "JSON with whitespace",
			input:    "  \n{\"title\": \"x\"}\n  ",
			expected: `{"title": "x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanJSONResponse(tt.input))
		})
	}
}
