package ollama

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

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/logging"
)

// DefaultHost is where a local Ollama listens.
const DefaultHost = "http://localhost:11434"

// ErrModelNotFound is returned when the server does not know the model.
var ErrModelNotFound = errors.New("ollama: model not found")

type Client struct {
	host    string
	http    *http.Client
	retries int
	backoff time.Duration
	log     *logging.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// WithRetry sets the attempt count and the linear backoff step.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) { c.retries, c.backoff = attempts, backoff }
}

func WithLogger(l *logging.Logger) Option { return func(c *Client) { c.log = l } }

func New(host string, opts ...Option) *Client {
	if strings.TrimSpace(host) == "" {
		host = DefaultHost
	}
	c := &Client{
		host:    strings.TrimRight(host, "/"),
		http:    &http.Client{Timeout: 90 * time.Second},
		retries: 3,
		backoff: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retries <= 0 {
		c.retries = 1
	}
	c.log = logging.OrNop(c.log)
	return c
}

type showRequest struct {
	Model string `json:"model"`
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Show checks that model exists on the server.
func (c *Client) Show(ctx context.Context, model string) error {
	return c.post(ctx, "/api/show", showRequest{Model: model}, nil)
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	var resp embedResponse
	if err := c.post(ctx, "/api/embed", embedRequest{Model: model, Input: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, errors.New("ollama: received empty embedding")
	}
	return resp.Embeddings[0], nil
}

// Generate runs a non-streaming completion. format may be "" or "json".
func (c *Client) Generate(ctx context.Context, model, prompt, format string) (string, error) {
	var resp generateResponse
	if err := c.post(ctx, "/api/generate", generateRequest{Model: model, Prompt: prompt, Format: format}, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ollama: marshal request: %w", err)
	}
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * c.backoff
			c.log.Debug("ollama retry", "path", path, "attempt", attempt+1, "wait", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		retry, err := c.do(ctx, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		c.log.Warn("ollama request failed", "path", path, "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("ollama: %s failed after %d attempts: %w", path, c.retries, lastErr)
}

// do performs one request and reports whether a failure is worth retrying.
func (c *Client) do(ctx context.Context, path string, payload []byte, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("ollama: read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, errs.ModelLoad("ollama"+path, fmt.Errorf("%w: %s", ErrModelNotFound, errs.Truncate(string(data), 200)))
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, errs.Truncate(string(data), 200))
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, errs.Truncate(string(data), 200))
	}
	if out == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("ollama: decode response: %w", err)
	}
	return false, nil
}
