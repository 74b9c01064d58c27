package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"appcore/pkg/errors"
	"appcore/pkg/logger"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Config holds the REST client configuration. BaseURL must be set before
// the first call.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	APIKey        string
	CommonHeaders map[string]string
	EnableLogging bool

	// AllowInsecureHTTP permits plain-http base URLs. Local development and
	// tests only; the default rejects any non-https scheme before I/O.
	AllowInsecureHTTP bool
}

// Client is a configurable JSON REST client. It carries one optional bearer
// token (driven by the session core), one optional API key, and a set of
// common headers applied to every request. It performs no retries; retry
// policy belongs to callers.
type Client struct {
	mu     sync.RWMutex
	cfg    Config
	bearer string

	httpClient *http.Client
	log        *logger.Logger
}

// New creates a client from cfg. A zero Timeout falls back to DefaultTimeout.
func New(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// SetBearerToken installs token as the Authorization bearer for every
// subsequent request.
func (c *Client) SetBearerToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearer = token
}

// ClearBearerToken removes the Authorization bearer.
func (c *Client) ClearBearerToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearer = ""
}

// BearerToken returns the currently installed bearer token, or "".
func (c *Client) BearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer
}

// Get issues a GET request and decodes the response into out (out may be nil).
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH request with a JSON body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE request and decodes the response into out (out may be nil).
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	c.mu.RLock()
	cfg := c.cfg
	bearer := c.bearer
	c.mu.RUnlock()

	if cfg.BaseURL == "" {
		return errors.NewNotConfiguredError("http client has no base URL")
	}

	fullURL, err := joinURL(cfg.BaseURL, path)
	if err != nil {
		return errors.NewInvalidURLError("malformed request URL: " + path)
	}
	if fullURL.Scheme != "https" && !cfg.AllowInsecureHTTP {
		return errors.NewInvalidURLError("insecure URL scheme rejected: " + fullURL.Scheme)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.NewEncodingError("failed to encode request body", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), reader)
	if err != nil {
		return errors.NewNetworkError("failed to create request", err)
	}

	for key, value := range cfg.CommonHeaders {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if cfg.APIKey != "" {
		req.Header.Set("X-API-Key", cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if cfg.EnableLogging {
			c.log.WithError(err).WithFields(map[string]interface{}{
				"method": method,
				"path":   path,
			}).Warn("Request transport failure")
		}
		return errors.NewNetworkError("request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetworkError("failed to read response body", err)
	}

	if cfg.EnableLogging {
		c.log.WithFields(map[string]interface{}{
			"method":      method,
			"path":        path,
			"status_code": resp.StatusCode,
			"duration":    time.Since(start),
		}).Debug("Request completed")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.NewUnauthorizedError("request unauthorized")
	case resp.StatusCode == http.StatusForbidden:
		return errors.NewForbiddenError("request forbidden")
	case resp.StatusCode == http.StatusNotFound:
		return errors.NewNotFoundError("resource not found: " + path)
	default:
		return errors.NewServerError(resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.NewDecodingError("failed to decode response body", err)
	}
	return nil
}

// joinURL resolves path against base, tolerating slash differences on
// either side.
func joinURL(base, path string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.NewInvalidURLError("request URL missing scheme or host")
	}
	return u, nil
}
