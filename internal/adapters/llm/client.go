// Package llm is the chat-completion transport behind the model judge.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/miraivoice/heed/internal/domain/analyzer"
)

const (
	completionsPath = "/v1/chat/completions"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20

	defaultTimeout = 60 * time.Second
)

// httpDoer lets tests substitute the transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the transport settings for one completion endpoint.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	Temperature     float64
	Timeout         time.Duration
}

// Client talks to an OpenAI-compatible chat-completions endpoint. It
// implements analyzer.Completer. Requests are not retried; the caller
// substitutes the heuristic score on failure.
type Client struct {
	cfg    Config
	url    string
	client httpDoer
}

// NewClient validates the configuration and builds the client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, ErrMissingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		url:    normalizeEndpoint(cfg.BaseURL),
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// normalizeEndpoint accepts a bare host, a /v1 base or a full completions
// URL and returns the completions URL.
func normalizeEndpoint(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = "https://api.openai.com"
	}
	if strings.HasSuffix(base, completionsPath) {
		return base
	}
	if strings.HasSuffix(base, "/v1") {
		return base + strings.TrimPrefix(completionsPath, "/v1")
	}
	return base + completionsPath
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete implements analyzer.Completer.
func (c *Client) Complete(ctx context.Context, req analyzer.CompletionRequest) (string, error) {
	payload := chatRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxOutputTokens,
		Temperature: c.cfg.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("completion api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return parsed.Choices[0].Message.Content, nil
}
