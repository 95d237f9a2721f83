package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	MethodGet  = http.MethodGet
	MethodPost = http.MethodPost
)

// maxErrorBody bounds how much of a failed response is kept on StatusError.
const maxErrorBody = 4 << 10

// ClientOption configures HTTPClient.
type ClientOption func(*Client)

// RequestOptions holds HTTP request parameters.
type RequestOptions struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string][]string
	Body        interface{}
}

// RetryConfig controls retries of transient failures.
type RetryConfig struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client represents an HTTP client with configurable timeout and retry.
type Client struct {
	timeout   time.Duration
	client    *http.Client
	retry     RetryConfig
	userAgent string
	notify    func(err error, wait time.Duration)
}

// NewClient creates a new HTTP client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout: 30 * time.Second,
		retry: RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     4 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	if c.retry.MaxAttempts == 0 {
		c.retry.MaxAttempts = 1
	}
	return c
}

// SendRequest sends a single HTTP request and returns the response.
func (c *Client) SendRequest(ctx context.Context, opts *RequestOptions) (*http.Response, error) {
	body, err := c.createRequestBody(opts)
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}
	req, err := c.buildRequest(ctx, opts, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// SendAndParse sends the request, retrying transport errors, 429 and 5xx,
// and decodes a 2xx body into dest. Other statuses fail with *StatusError
// without retry.
func (c *Client) SendAndParse(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	body, err := c.createRequestBody(opts)
	if err != nil {
		return fmt.Errorf("create body: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.InitialInterval
	b.MaxInterval = c.retry.MaxInterval

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.retry.MaxAttempts),
	}
	if c.notify != nil {
		retryOpts = append(retryOpts, backoff.WithNotify(c.notify))
	}

	data, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.attempt(ctx, opts, body)
	}, retryOpts...)
	if err != nil {
		return err
	}

	return decodeInto(data, dest)
}

func (c *Client) attempt(ctx context.Context, opts *RequestOptions, body []byte) ([]byte, error) {
	req, err := c.buildRequest(ctx, opts, body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{Code: resp.StatusCode, Body: string(snippet)}
		if serr.Temporary() {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func decodeInto(data []byte, dest interface{}) error {
	if dest == nil {
		return nil
	}

	switch v := dest.(type) {
	case *[]byte:
		*v = data
	case io.Writer:
		if _, err := v.Write(data); err != nil {
			return fmt.Errorf("copy body: %w", err)
		}
	default:
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	}
	return nil
}

func (c *Client) buildRequest(ctx context.Context, opts *RequestOptions, body []byte) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, rdr)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	c.addQueryParams(req, opts.QueryParams)
	c.addHeaders(req, opts.Headers)

	return req, nil
}

// createRequestBody materializes the body once so it can be replayed on retry.
func (c *Client) createRequestBody(opts *RequestOptions) ([]byte, error) {
	if opts.Body == nil {
		return nil, nil
	}

	switch v := opts.Body.(type) {
	case []byte:
		return v, nil
	case *[]byte:
		return *v, nil
	case io.Reader:
		return io.ReadAll(v)
	case string:
		return []byte(v), nil
	case url.Values:
		return []byte(v.Encode()), nil
	case map[string]string:
		if opts.Headers["Content-Type"] == "application/x-www-form-urlencoded" {
			values := url.Values{}
			for k, val := range v {
				values.Set(k, val)
			}
			return []byte(values.Encode()), nil
		}
	}

	jsonBody, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return jsonBody, nil
}

func (c *Client) addQueryParams(req *http.Request, params map[string][]string) {
	if len(params) > 0 {
		q := req.URL.Query()
		for key, values := range params {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
}

func (c *Client) addHeaders(req *http.Request, headers map[string]string) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if req.Header.Get("Content-Type") == "" && req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.Code == code
}

// BodyContains reports whether err is a StatusError whose body contains s
// (case-insensitive).
func BodyContains(err error, s string) bool {
	var serr *StatusError
	return errors.As(err, &serr) && strings.Contains(strings.ToLower(serr.Body), strings.ToLower(s))
}

// WithTimeout sets client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRetry enables exponential-backoff retries.
func WithRetry(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithUserAgent sets a default User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithRetryNotify registers a callback invoked before each retry wait.
func WithRetryNotify(fn func(err error, wait time.Duration)) ClientOption {
	return func(c *Client) {
		c.notify = fn
	}
}
