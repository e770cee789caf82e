// Package gameserver talks to the JSON endpoints of a CTF gameserver.
package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"scoreview/internal/config"
	"scoreview/internal/models"
)

const (
	maxBodyBytes  = 32 << 20
	sessionCookie = "sessionid"
)

// HTTPError is returned for non-2xx responses. Message carries the gameserver's
// {"error": "..."} text when present.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d", e.Status)
}

// Client fetches result payloads. It satisfies loader.Fetcher.
type Client struct {
	baseURL       string
	apiKey        string
	sessionCookie string
	timeout       time.Duration

	client *http.Client
	logger zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the tuned default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the gameserver described by cfg.
func New(cfg config.Gameserver, opts ...Option) *Client {
	timeout := cfg.RequestTimeout()

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c := &Client{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		sessionCookie: cfg.SessionCookie,
		timeout:       timeout,
		client:        &http.Client{Transport: transport, Timeout: timeout},
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the gameserver root without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchJSON performs a GET on path with params and returns the raw JSON body.
func (c *Client) FetchJSON(ctx context.Context, path string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.resolve(path, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.sessionCookie != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.sessionCookie})
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c.logger.Debug().
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(started)).
		Msg("gameserver request")

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: %w", path, decodeError(resp.StatusCode, body))
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("fetch %s: %w: response is not JSON", path, models.ErrMalformedPayload)
	}
	return body, nil
}

func (c *Client) resolve(path string, params url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target
}

func decodeError(status int, body []byte) *HTTPError {
	httpErr := &HTTPError{Status: status}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		httpErr.Message = payload.Error
	}
	return httpErr
}

// StatusCode extracts the HTTP status from an error chain, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
