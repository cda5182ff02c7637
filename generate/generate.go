package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/jsonapi"
	"github.com/a-h/ragtutor/metrics"
	"github.com/tmc/langchaingo/llms"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTimeout = 30 * time.Second

	// bearerPrefix marks short-lived OAuth access tokens, which must be sent
	// in the Authorization header rather than as an API key.
	bearerPrefix = "ya29."
)

// DefaultFallbacks are tried, in order, after the configured model.
var DefaultFallbacks = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-pro",
	"text-bison-001",
}

// ErrExhausted is returned when every model and credential combination failed.
var ErrExhausted = errors.New("generate: all models failed")

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithFallbacks replaces the default fallback models.
func WithFallbacks(models ...string) Option {
	return func(c *Client) {
		c.fallbacks = models
	}
}

// WithTimeout bounds each individual attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func New(log *slog.Logger, apiKey, model string, opts ...Option) *Client {
	c := &Client{
		log:       log,
		apiKey:    apiKey,
		model:     model,
		fallbacks: DefaultFallbacks,
		baseURL:   DefaultBaseURL,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client generates text with the Generative Language API, falling back
// through a list of models and credential schemes until one succeeds.
type Client struct {
	log       *slog.Logger
	apiKey    string
	model     string
	fallbacks []string
	baseURL   string
	timeout   time.Duration
}

var _ llms.Model = (*Client)(nil)

// Candidates returns the models to try, configured model first.
func (c *Client) Candidates() (models []string) {
	seen := make(map[string]bool)
	for _, m := range append([]string{c.model}, c.fallbacks...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	return models
}

// Attempt is a single model and credential combination.
type Attempt struct {
	Model   string
	Auth    string
	Request func(ctx context.Context, prompt string, opts llms.CallOptions) (*http.Request, error)
	Extract func(body []byte) string
}

func (a Attempt) String() string {
	return a.Model + "/" + a.Auth
}

// Attempts lists every attempt in the order they're made.
func (c *Client) Attempts() (attempts []Attempt) {
	if c.apiKey == "" {
		return nil
	}
	schemes := []string{"key"}
	if strings.HasPrefix(c.apiKey, bearerPrefix) {
		schemes = []string{"bearer", "key"}
	}
	for _, model := range c.Candidates() {
		for _, scheme := range schemes {
			attempts = append(attempts, c.attempt(model, scheme))
		}
	}
	return attempts
}

func (c *Client) attempt(model, scheme string) Attempt {
	body, method, extract := legacyBody, "generateText", extractor(legacyPaths)
	if isStructured(model) {
		body, method, extract = structuredBody, "generateContent", extractor(structuredPaths)
	}
	return Attempt{
		Model: model,
		Auth:  scheme,
		Request: func(ctx context.Context, prompt string, opts llms.CallOptions) (*http.Request, error) {
			u, err := url.Parse(fmt.Sprintf("%s/models/%s:%s", c.baseURL, url.PathEscape(model), method))
			if err != nil {
				return nil, fmt.Errorf("failed to create URL: %w", err)
			}
			if scheme == "key" {
				q := u.Query()
				q.Set("key", c.apiKey)
				u.RawQuery = q.Encode()
			}
			buf, err := json.Marshal(body(prompt, opts))
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request: %w", err)
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf))
			if err != nil {
				return nil, fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			if scheme == "bearer" {
				req.Header.Set("Authorization", "Bearer "+c.apiKey)
			}
			return req, nil
		},
		Extract: extract,
	}
}

// isStructured reports whether the model takes the multi-part contents
// request. Older models take a flat prompt.
func isStructured(model string) bool {
	return strings.HasPrefix(model, "gemini-")
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type structuredRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

func structuredBody(prompt string, opts llms.CallOptions) any {
	return structuredRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}
}

type legacyRequest struct {
	Prompt          part    `json:"prompt"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

func legacyBody(prompt string, opts llms.CallOptions) any {
	return legacyRequest{
		Prompt:          part{Text: prompt},
		Temperature:     opts.Temperature,
		MaxOutputTokens: opts.MaxTokens,
	}
}

// Generate runs the attempts in order and returns the first successful answer.
func (c *Client) Generate(ctx context.Context, prompt string, opts llms.CallOptions) (string, error) {
	attempts := c.Attempts()
	if len(attempts) == 0 {
		return "", fmt.Errorf("%w: no API key configured", ErrExhausted)
	}
	var lastErr error
	for i, a := range attempts {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %d of %d attempts made: %w", ErrExhausted, i, len(attempts), ctx.Err())
		}
		text, err := c.try(ctx, a, prompt, opts)
		if err != nil {
			metrics.GenerationAttempts.WithLabelValues(a.Model, a.Auth, "failure").Inc()
			c.log.Warn("generation attempt failed", slog.String("attempt", a.String()), slog.Any("error", err))
			lastErr = err
			continue
		}
		metrics.GenerationAttempts.WithLabelValues(a.Model, a.Auth, "success").Inc()
		c.log.Debug("generation succeeded", slog.String("attempt", a.String()), slog.Int("n", i+1))
		return text, nil
	}
	return "", fmt.Errorf("%w: %d attempts, last error: %w", ErrExhausted, len(attempts), lastErr)
}

func (c *Client) try(ctx context.Context, a Attempt, prompt string, opts llms.CallOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := a.Request(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	res, err := jsonapi.Raw(req)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", a, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response: %w", a, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("%s: API error (status %d): %s", a, res.StatusCode, truncate(string(body), 512))
	}
	return a.Extract(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// GenerateContent flattens the messages into a single prompt.
func (c *Client) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	var parts []string
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok && tc.Text != "" {
				parts = append(parts, tc.Text)
			}
		}
	}
	text, err := c.Generate(ctx, strings.Join(parts, "\n\n"), opts)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}, nil
}

func (c *Client) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, c, prompt, options...)
}
