package client

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
)

const defaultTimeout = 30 * time.Second

// Config configures the shared backend transport
type Config struct {
	// BaseURL is the backend API root, e.g. http://localhost:8000/api
	BaseURL string
	// Token is sent as a bearer token when the request context carries none
	Token string
	// Timeout bounds every request; zero means 30s
	Timeout time.Duration
	// Transport wraps the outbound round tripper; nil uses http.DefaultTransport
	Transport http.RoundTripper
	// MethodOverride tunnels product updates through POST ?_method=PUT
	MethodOverride bool
	Logger         *slog.Logger
}

// APIClient is the single configured HTTP transport to the backend. Build one
// at startup and hand it to every resource client.
type APIClient struct {
	baseURL        *url.URL
	token          string
	methodOverride bool
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewAPIClient creates the backend transport
func NewAPIClient(cfg Config) (*APIClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &APIClient{
		baseURL:        base,
		token:          cfg.Token,
		methodOverride: cfg.MethodOverride,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: cfg.Transport,
		},
		logger: logger,
	}, nil
}

// BaseURL returns the backend root
func (c *APIClient) BaseURL() string {
	return c.baseURL.String()
}

type tokenKey struct{}

// WithToken attaches a caller's bearer token to ctx. Requests made with the
// returned context authenticate as that caller.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached by WithToken
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// requestBody is a serialized request payload
type requestBody interface {
	contentType() string
	reader() (io.Reader, error)
}

type jsonBody struct {
	value any
}

func (b jsonBody) contentType() string { return "application/json" }

func (b jsonBody) reader() (io.Reader, error) {
	data, err := json.Marshal(b.value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// errorEnvelope is the subset of the envelope needed to classify a reply
type errorEnvelope struct {
	Success *bool               `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// resolve joins path segments and query onto the base URL
func (c *APIClient) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do performs one request and decodes a successful envelope into out.
// A nil out discards the body.
func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, body requestBody, out any) error {
	target := c.resolve(path, query)

	var reader io.Reader
	if body != nil {
		r, err := body.reader()
		if err != nil {
			return err
		}
		reader = r
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", body.contentType())
	}
	token := TokenFromContext(ctx)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Backend request failed", "method", method, "url", target, "error", err)
		return &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, URL: target, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("Backend request completed",
		"method", method,
		"url", target,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	var env errorEnvelope
	if len(bytes.TrimSpace(data)) > 0 {
		// Non-JSON error pages still map to a status error below
		_ = json.Unmarshal(data, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(method, target, resp.StatusCode, &env)
	}

	if env.Success != nil && !*env.Success {
		return &HTTPError{Method: method, URL: target, Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, target, err)
	}
	return nil
}
