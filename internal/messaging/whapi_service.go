package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Constants for the Whapi gateway client
const (
	// ChatSuffix is the gateway's address suffix for individual chats.
	ChatSuffix = "@c.us"
	// DefaultHTTPTimeout bounds one gateway request.
	DefaultHTTPTimeout = 30 * time.Second
)

// WhapiOpts holds configuration options for the Whapi service.
type WhapiOpts struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// WhapiOption defines a configuration option for the Whapi service.
type WhapiOption func(*WhapiOpts)

// WithWhapiToken sets the gateway bearer token.
func WithWhapiToken(token string) WhapiOption {
	return func(o *WhapiOpts) {
		o.Token = token
	}
}

// WithWhapiBaseURL sets the gateway base URL.
func WithWhapiBaseURL(url string) WhapiOption {
	return func(o *WhapiOpts) {
		o.BaseURL = strings.TrimRight(url, "/")
	}
}

// WithWhapiHTTPClient overrides the HTTP client, used by tests.
func WithWhapiHTTPClient(c *http.Client) WhapiOption {
	return func(o *WhapiOpts) {
		o.HTTPClient = c
	}
}

// WhapiService implements Service against a Whapi-style WhatsApp HTTP gateway.
type WhapiService struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewWhapiService creates a Whapi gateway service. Missing credentials are not
// an error here; they surface as ErrNotConfigured at call time so the pipeline
// can degrade to its safe defaults.
func NewWhapiService(opts ...WhapiOption) *WhapiService {
	var cfg WhapiOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if cfg.Token == "" || cfg.BaseURL == "" {
		slog.Warn("WhapiService: gateway credentials not fully configured", "token_set", cfg.Token != "", "base_url_set", cfg.BaseURL != "")
	}
	return &WhapiService{token: cfg.Token, baseURL: cfg.BaseURL, client: cfg.HTTPClient}
}

// ValidateAndCanonicalizeRecipient reduces the recipient to bare digits.
func (s *WhapiService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// SendText sends a text message through the gateway. The recipient is the
// canonical number; the chat suffix is appended here.
func (s *WhapiService) SendText(ctx context.Context, to string, body string) error {
	payload := map[string]string{
		"to":   to + ChatSuffix,
		"body": body,
	}
	if _, err := s.request(ctx, http.MethodPost, "messages/text", payload); err != nil {
		return err
	}
	slog.Info("WhapiService.SendText: message sent", "to", to, "body_length", len(body))
	return nil
}

// RegisterWebhook points the gateway's message webhook at url.
func (s *WhapiService) RegisterWebhook(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("webhook URL cannot be empty")
	}
	settings := map[string]interface{}{
		"webhooks": []map[string]interface{}{
			{
				"url":    url,
				"events": []map[string]string{{"type": "messages", "method": "post"}},
				"mode":   "method",
			},
		},
		"offline_mode": true,
	}
	if _, err := s.request(ctx, http.MethodPatch, "settings", settings); err != nil {
		return fmt.Errorf("webhook registration failed: %w", err)
	}
	slog.Info("WhapiService.RegisterWebhook: webhook registered", "url", url)
	return nil
}

// Start is a no-op; the gateway needs no session.
func (s *WhapiService) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op.
func (s *WhapiService) Stop() error {
	return nil
}

// request performs one authenticated gateway call and decodes the JSON reply.
// A reply carrying an "error" field is a failure regardless of HTTP status,
// matching the gateway's contract.
func (s *WhapiService) request(ctx context.Context, method, endpoint string, payload interface{}) (map[string]interface{}, error) {
	if s.token == "" || s.baseURL == "" {
		return nil, fmt.Errorf("whapi gateway: %w", ErrNotConfigured)
	}

	var bodyReader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request payload: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	url := s.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	slog.Debug("WhapiService.request: gateway responded", "endpoint", endpoint, "status", resp.StatusCode)

	if errVal, ok := decoded["error"]; ok {
		return decoded, fmt.Errorf("gateway error: %v", errVal)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decoded, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return decoded, nil
}
