package summary

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

	"github.com/matzehuels/phaseflow/pkg/cache"
	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/flow"
	"github.com/matzehuels/phaseflow/pkg/httputil"
	"github.com/matzehuels/phaseflow/pkg/observability"
)

// DefaultURL is the summarization endpoint of a locally running service.
const DefaultURL = "http://127.0.0.1:5000/api/summary"

// DefaultTimeout bounds a single request attempt.
const DefaultTimeout = 60 * time.Second

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 << 20

// EmptyInputMessage is shown when there is no code to send.
const EmptyInputMessage = "Please enter some code or upload a file"

// Client posts source code to the summarization service.
type Client struct {
	http     *http.Client
	url      string
	headers  map[string]string
	cache    cache.Cache
	keyer    cache.Keyer
	ttl      time.Duration
	attempts int
	delay    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithCache caches successful responses by code hash for ttl.
func WithCache(cc cache.Cache, keyer cache.Keyer, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cc
		if keyer != nil {
			c.keyer = keyer
		}
		c.ttl = ttl
	}
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

// NewClient returns a client for the endpoint at url. An empty url uses
// [DefaultURL].
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		http:     &http.Client{Timeout: DefaultTimeout},
		url:      url,
		headers:  map[string]string{},
		cache:    cache.NewNullCache(),
		keyer:    cache.NewDefaultKeyer(),
		ttl:      cache.SummaryTTL,
		attempts: 3,
		delay:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the configured endpoint.
func (c *Client) URL() string { return c.url }

type request struct {
	Code string `json:"code"`
}

// Summarize sends code and returns the response body unchanged.
//
// Blank code is rejected without a request. Transport errors, 429 and 5xx
// responses are retried; all failures are returned as NETWORK_ERROR. With a
// cache configured, only responses that normalize to a valid flow are stored.
func (c *Client) Summarize(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", errs.New(errs.ErrCodeEmptyInput, EmptyInputMessage)
	}

	key := c.keyer.SummaryKey(c.url, cache.HashString(code))
	if data, ok, _ := c.cache.Get(ctx, key); ok {
		observability.Cache().OnCacheHit(ctx, "summary")
		return string(data), nil
	}
	observability.Cache().OnCacheMiss(ctx, "summary")

	body, err := json.Marshal(request{Code: code})
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInternal, err, "encode request")
	}

	var out []byte
	err = httputil.Retry(ctx, c.attempts, c.delay, func() error {
		var err error
		out, err = c.post(ctx, body)
		return err
	})
	if err != nil {
		return "", networkError(err)
	}

	// Only cache answers the normalizer accepts so a bad answer is asked again.
	if flow.Validate(string(out)) == nil {
		if err := c.cache.Set(ctx, key, out, c.ttl); err == nil {
			observability.Cache().OnCacheSet(ctx, "summary", len(out))
		}
	}
	return string(out), nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	host, path := req.URL.Host, req.URL.Path
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, httputil.Retryable(err)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, httputil.Retryable(fmt.Errorf("read response: %w", err))
	}
	if err := checkStatus(resp.StatusCode, data); err != nil {
		return nil, err
	}
	return data, nil
}

func checkStatus(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	err := &StatusError{StatusCode: code, Body: strings.TrimSpace(string(body))}
	if httputil.RetryableStatus(code) {
		return httputil.Retryable(err)
	}
	return err
}

// StatusError is a non-2xx response from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("summary service returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + truncate(e.Body, 200)
	}
	return msg
}

func networkError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	return errs.Wrap(errs.ErrCodeNetwork, err, "summary request failed")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
