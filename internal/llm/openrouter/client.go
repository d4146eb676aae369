package openrouter

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

	"petcare-backend/internal/llm"
	"petcare-backend/internal/shared/metrics"
	"petcare-backend/internal/shared/telemetry"
)

const apiURL = "https://openrouter.ai/api/v1/chat/completions"

const (
	// Scoring task, not creative writing: keep sampling close to greedy.
	requestTemperature = 0.3
	requestMaxTokens   = 4000

	defaultAttemptTimeout = 20 * time.Second
)

// Client implements llm.Client against the OpenRouter chat-completions API,
// trying a prioritized chain of model identifiers in order.
type Client struct {
	apiKey         string
	models         []string
	attemptTimeout time.Duration
	siteURL        string
	siteName       string
	baseURL        string
	httpClient     *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different completions endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithAttemptTimeout bounds each individual model attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// NewClient constructs an OpenRouter client. A missing API key is a fatal
// configuration error and fails construction before any network call.
func NewClient(apiKey string, models []string, siteURL, siteName string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, llm.ErrMissingAPIKey
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("at least one model identifier is required")
	}
	c := &Client{
		apiKey:         apiKey,
		models:         append([]string(nil), models...),
		attemptTimeout: defaultAttemptTimeout,
		siteURL:        siteURL,
		siteName:       siteName,
		baseURL:        apiURL,
		httpClient:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Complete tries each model in the chain in order and returns the first
// non-empty completion. Attempts are sequential; a timed-out attempt is
// abandoned, never retried against the same model.
func (c *Client) Complete(ctx context.Context, input llm.ChatInput) (llm.Completion, error) {
	var lastErr error
	for _, model := range c.models {
		start := time.Now()
		metrics.IncModelAttempt()
		content, err := c.completeOnce(ctx, model, input)
		if err != nil {
			lastErr = err
			telemetry.Warn("llm.attempt_failed", map[string]any{
				"label":       input.Label,
				"model":       model,
				"error":       err.Error(),
				"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		telemetry.Info("llm.attempt_succeeded", map[string]any{
			"label":       input.Label,
			"model":       model,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
		})
		return llm.Completion{Content: content, Model: model}, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	return llm.Completion{}, fmt.Errorf("%w: %w", llm.ErrAllModelsFailed, lastErr)
}

func (c *Client) completeOnce(ctx context.Context, model string, input llm.ChatInput) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	payload, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: input.SystemPrompt},
			{Role: "user", Content: input.UserPrompt},
		},
		Temperature: requestTemperature,
		MaxTokens:   requestMaxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.siteURL)
	req.Header.Set("X-Title", c.siteName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("model %s timeout after %s: %w", model, c.attemptTimeout, err)
		}
		return "", fmt.Errorf("model %s request: %w", model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("model %s read body: %w", model, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("model %s http status %d: %s", model, resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("model %s response parse: %w", model, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("model %s error: %s", model, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("model %s response missing choices", model)
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("model %s response empty content", model)
	}
	return content, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var _ llm.Client = (*Client)(nil)
