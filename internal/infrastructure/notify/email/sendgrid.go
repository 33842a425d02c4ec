// Package email delivers notifications through the SendGrid v3 mail API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/config"
)

const (
	defaultBaseURL = "https://api.sendgrid.com"
	defaultTimeout = 15 * time.Second
	sendPath       = "/v3/mail/send"
)

// Address is a SendGrid email address.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             Address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
	Categories       []string          `json:"categories,omitempty"`
	CustomArgs       map[string]string `json:"custom_args,omitempty"`
}

type personalization struct {
	To []Address `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// HTTPError is a non-2xx reply from SendGrid.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sendgrid: http %d", e.StatusCode)
	}
	return fmt.Sprintf("sendgrid: http %d: %s", e.StatusCode, e.Message)
}

// Channel implements ports.Channel over SendGrid.
type Channel struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       Address
}

// NewChannel creates a SendGrid channel.
func NewChannel(cfg config.EmailConfig) (*Channel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid API key is required (set SENDGRID_API_KEY)")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("sendgrid from_email is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Channel{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		from:       Address{Email: strings.TrimSpace(cfg.FromEmail), Name: strings.TrimSpace(cfg.FromName)},
	}, nil
}

// Name identifies the channel.
func (c *Channel) Name() string { return "email" }

// Enabled reports whether the user opted into email and has an address.
func (c *Channel) Enabled(user *entities.User) bool {
	return user != nil && user.EmailNotifications && strings.TrimSpace(user.Email) != ""
}

// Deliver sends the notification as a plain-text email.
func (c *Channel) Deliver(ctx context.Context, user *entities.User, n *entities.Notification) error {
	body, err := json.Marshal(c.buildRequest(user, n))
	if err != nil {
		return fmt.Errorf("encoding mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &entities.ExternalServiceError{Service: "email", Kind: entities.ExternalTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return newHTTPError(resp)
}

func (c *Channel) buildRequest(user *entities.User, n *entities.Notification) mailSendRequest {
	to := Address{Email: strings.TrimSpace(user.Email), Name: strings.TrimSpace(user.Name)}
	args := map[string]string{"notification_id": n.ID}
	if n.EntityID != "" {
		args["entity_id"] = n.EntityID
	}
	return mailSendRequest{
		Personalizations: []personalization{{To: []Address{to}}},
		From:             c.from,
		Subject:          n.Title,
		Content:          []mailContent{{Type: "text/plain", Value: n.Message}},
		Categories:       []string{string(n.Type)},
		CustomArgs:       args,
	}
}

func newHTTPError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	herr := &HTTPError{StatusCode: resp.StatusCode}

	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil && len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		herr.Message = strings.Join(msgs, "; ")
	} else {
		herr.Message = strings.TrimSpace(string(raw))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &entities.ExternalServiceError{Service: "email", Kind: entities.ExternalTransport, Err: herr}
	}
	return herr
}

// IsHTTPStatus reports whether err carries a SendGrid reply with the given status.
func IsHTTPStatus(err error, status int) bool {
	var herr *HTTPError
	return errors.As(err, &herr) && herr.StatusCode == status
}
