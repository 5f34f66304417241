// Package api is the HTTP client for the Artifacts MMO API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/perbu/artifacts/internal/engine"
)

// DefaultBaseURL is the public Artifacts API.
const DefaultBaseURL = "https://api.artifactsmmo.com"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Client implements engine.Invoker and engine.Lister. The bearer token is
// fixed at construction.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the shape of every API response.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke performs one action call and returns the "data" object of the
// response. Failures are reported as *engine.ActionError.
func (c *Client) Invoke(ctx context.Context, actionID, method string, params map[string]any) (map[string]any, error) {
	var data map[string]any
	if err := c.do(ctx, method, actionID, params, &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, &engine.MalformedResponseError{Action: actionID, Key: "data"}
	}
	return data, nil
}

// ListCharacters returns every character on the account.
func (c *Client) ListCharacters(ctx context.Context) ([]engine.State, error) {
	var characters []engine.State
	if err := c.do(ctx, http.MethodGet, "/my/characters", nil, &characters); err != nil {
		return nil, err
	}
	return characters, nil
}

// Character fetches the public snapshot of one character.
func (c *Client) Character(ctx context.Context, name string) (engine.State, error) {
	var state engine.State
	if err := c.do(ctx, http.MethodGet, "/characters/"+url.PathEscape(name), nil, &state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]any, out any) error {
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if method != http.MethodGet {
		if params == nil {
			params = map[string]any{}
		}
		buf, err := json.Marshal(params)
		if err != nil {
			return &engine.ActionError{Action: path, Method: method, Err: fmt.Errorf("failed to encode params: %w", err)}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &engine.ActionError{Action: path, Method: method, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &engine.ActionError{Action: path, Method: method, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &engine.ActionError{Action: path, Method: method, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &engine.ActionError{Action: path, Method: method, StatusCode: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.Message = env.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if decodeErr != nil {
		return &engine.ActionError{Action: path, Method: method, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", decodeErr)}
	}
	if len(env.Data) == 0 {
		return &engine.MalformedResponseError{Action: path, Key: "data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &engine.MalformedResponseError{Action: path, Key: "data", Reason: "has an unexpected shape"}
	}
	return nil
}
