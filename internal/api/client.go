// Package api is a client for the bflex/v1 REST API of the WordPress
// plugin. Responses use the envelope {"status":"success","result":...};
// anything else is returned as a *ResponseError.
package api

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/core/logging"
)

// ErrNoBaseURL is returned by New when the REST root is not configured.
var ErrNoBaseURL = errors.New("api: base url is required")

const (
	namespace      = "bflex/v1/"
	defaultTimeout = 30 * time.Second
	nonceHeader    = "X-WP-Nonce"
)

// Config holds the client connection settings.
type Config struct {
	// BaseURL is the WordPress REST root, e.g. https://example.com/wp-json/.
	BaseURL string
	Nonce   string
	Timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client performs REST calls. It is safe for concurrent use.
type Client struct {
	root  string
	nonce string
	http  *http.Client
	log   zerolog.Logger
}

// New creates a client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}

	root := cfg.BaseURL
	if !strings.Contains(root, "?") && !strings.HasSuffix(root, "/") {
		root += "/"
	}

	c := &Client{
		root:  root,
		nonce: cfg.Nonce,
		http:  &http.Client{Timeout: cmp.Or(cfg.Timeout, defaultTimeout)},
		log:   logging.Component("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ResponseError is a failed API response.
type ResponseError struct {
	Status  int
	Code    string
	Message string
	Data    json.RawMessage
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("api: %s (%s, status %d)", e.Message, e.Code, e.Status)
}

type envelope struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

// endpoint joins path and query onto the REST root. Roots in the
// ?rest_route= form already carry a query string.
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.root + namespace + path
	if len(query) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + query.Encode()
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, c.endpoint(path, query), nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, c.endpoint(path, nil), body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.nonce != "" {
		req.Header.Set(nonceHeader, c.nonce)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Ctx(ctx).Err(err).Str("method", method).Str("url", endpoint).Msg("request failed")
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().
		Ctx(ctx).
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if decodeErr == nil && ok && env.Status == "success" {
		if out == nil || len(env.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
		return nil
	}

	return &ResponseError{
		Status:  resp.StatusCode,
		Code:    cmp.Or(env.Code, "api_error"),
		Message: cmp.Or(env.Message, "Unknown API error"),
		Data:    env.Data,
	}
}
