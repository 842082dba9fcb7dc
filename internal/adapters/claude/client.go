// Package claude calls the Anthropic Messages API for a single-turn text reply.
package claude

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

	"golang.org/x/time/rate"

	"placecurator/internal/adapters/observability"
	"placecurator/internal/domain"
)

type Options struct {
	BaseURL   string
	APIKey    string
	Model     string
	Version   string
	MaxTokens int
	Timeout   time.Duration
	RPS       int
	Retry     RetryPolicy
}

type Client struct {
	base      string
	key       string
	model     string
	version   string
	maxTokens int
	hc        *http.Client
	rl        *rate.Limiter
	retry     RetryPolicy
}

func New(o Options) (*Client, error) {
	if o.APIKey == "" {
		return nil, errors.New("claude: API key is required")
	}
	if o.Model == "" {
		return nil, errors.New("claude: model is required")
	}
	if o.Version == "" {
		o.Version = "2023-06-01"
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RPS <= 0 {
		o.RPS = 2
	}
	if o.Retry.Retryable == nil {
		o.Retry.Retryable = IsTransient
	}
	return &Client{
		base:      o.BaseURL,
		key:       o.APIKey,
		model:     o.Model,
		version:   o.Version,
		maxTokens: o.MaxTokens,
		hc:        &http.Client{Timeout: o.Timeout},
		rl:        rate.NewLimiter(rate.Limit(o.RPS), 1),
		retry:     o.Retry,
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate sends prompt as a single user message and returns the first content block's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	var raw []byte
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		b, err := c.post(ctx, body)
		if err != nil {
			return err
		}
		raw = b
		return nil
	})
	if err != nil {
		return "", err
	}
	return extractText(raw)
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	// fresh request each attempt
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.key)
	req.Header.Set("anthropic-version", c.version)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("claude", "messages", 0, time.Since(start))
		return nil, fmt.Errorf("claude messages: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("claude", "messages", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.UpstreamError{
			Service: "claude",
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(b)),
		}
	}
	return io.ReadAll(resp.Body)
}

func extractText(raw []byte) (string, error) {
	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if len(mr.Content) == 0 {
		return "", fmt.Errorf("%w: no content blocks", domain.ErrMalformedResponse)
	}
	return mr.Content[0].Text, nil
}
