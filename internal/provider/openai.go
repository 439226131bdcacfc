package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yangwenmai/careerpilot/internal/backoff"
	"github.com/yangwenmai/careerpilot/internal/model"
)

// OpenAIClient implements Generator using the OpenAI Chat Completions API.
// It also works with any OpenAI-compatible service by setting a custom base URL.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	jsonMode   bool
	policy     backoff.Policy
	httpClient *http.Client
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*OpenAIClient)

// WithModel sets the default model name (default: gpt-4o-mini).
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) { c.model = model }
}

// WithBaseURL overrides the API endpoint (default: https://api.openai.com/v1).
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithBackoff sets the retry delay policy.
func WithBackoff(p backoff.Policy) OpenAIOption {
	return func(c *OpenAIClient) { c.policy = p }
}

// WithJSONMode toggles response_format support. Some compatible servers reject it.
func WithJSONMode(on bool) OpenAIOption {
	return func(c *OpenAIClient) { c.jsonMode = on }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAIClient) { c.httpClient = hc }
}

// NewOpenAIClient creates a new OpenAI model client.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    "https://api.openai.com/v1",
		model:      "gpt-4o-mini",
		jsonMode:   true,
		policy:     backoff.Default(),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// apiError represents an HTTP error from the API that may or may not be retryable.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// isRetryable returns true for transient errors (rate limit, server errors).
func (e *apiError) isRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// Generate sends the prompt as a single user message, retrying transient
// failures with exponential backoff. Each attempt gets its own timeout.
func (c *OpenAIClient) Generate(ctx context.Context, kind model.Kind, prompt string, opts Options) (*Result, error) {
	modelName := opts.Model
	if modelName == "" {
		modelName = c.model
	}
	reqBody := chatRequest{
		Model:       modelName,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSON && c.jsonMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Variant: VariantOpenAI, Err: fmt.Errorf("marshal request: %w", err)}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	maxAttempts := max(opts.MaxRetries, 0) + 1

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := c.doRequest(ctx, body, timeout)
		if err == nil {
			res.Meta = Meta{
				Provider: string(VariantOpenAI),
				Model:    modelName,
				Attempts: attempt,
				Retries:  attempt - 1,
				Elapsed:  time.Since(start),
			}
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, &Error{Variant: VariantOpenAI, Attempts: attempt, Transient: true, Err: ctx.Err()}
		}
		var ae *apiError
		if errors.As(err, &ae) && !ae.isRetryable() {
			return nil, &Error{Variant: VariantOpenAI, StatusCode: ae.StatusCode, Attempts: attempt, Err: err}
		}

		if attempt < maxAttempts {
			delay := c.policy.Delay(attempt)
			slog.Warn("provider attempt failed, retrying",
				"kind", kind, "attempt", attempt, "delay", delay.String(), "error", err)
			if err := backoff.Sleep(ctx, delay); err != nil {
				return nil, &Error{Variant: VariantOpenAI, Attempts: attempt, Transient: true, Err: err}
			}
		}
	}

	status := 0
	var ae *apiError
	if errors.As(lastErr, &ae) {
		status = ae.StatusCode
	}
	return nil, &Error{Variant: VariantOpenAI, StatusCode: status, Attempts: maxAttempts, Transient: true, Err: lastErr}
}

// doRequest performs one attempt under its own timeout.
func (c *OpenAIClient) doRequest(ctx context.Context, body []byte, timeout time.Duration) (*Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("api error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	var sb strings.Builder
	for _, ch := range chatResp.Choices {
		sb.WriteString(ch.Message.Content)
	}
	text := sb.String()

	res := &Result{
		Text: text,
		Data: ParseJSON(text),
		Raw:  json.RawMessage(respBody),
	}
	if chatResp.Usage != nil {
		res.Tokens = chatResp.Usage.TotalTokens
	}
	return res, nil
}
