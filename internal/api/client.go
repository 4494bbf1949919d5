package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultAPIURL    = "http://localhost:8000"
	apiPrefix        = "/api/v1"
	defaultUserAgent = "digest/0.1"

	// DefaultTimeout applies to ordinary requests.
	DefaultTimeout = 30 * time.Second
	// ExtendedTimeout applies to every request against a cold-start prone host.
	ExtendedTimeout = 60 * time.Second
	// GuidanceTimeout applies to the guidance analysis endpoints.
	GuidanceTimeout = 90 * time.Second

	maxColdStartRetries = 3
	initialRetryDelay   = 3000 * time.Millisecond
	retryDelayFactor    = 1.5

	// coldStartHostSuffix identifies the hosting provider whose free instances sleep.
	coldStartHostSuffix = "onrender.com"
)

// guidanceAnalysisRoutes are the slow, model-backed guidance endpoints.
var guidanceAnalysisRoutes = []string{
	"analyze-keywords",
	"investment-focus",
	"finalize",
	"optimization-suggestions",
}

// Requester is the request core every sub-client is built on.
// It is implemented by *Client and can be faked in tests.
type Requester interface {
	Request(ctx context.Context, req Request) error
}

// Ensure Client implements Requester at compile time.
var _ Requester = (*Client)(nil)

// Request describes a single API call relative to the /api/v1 base.
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     any
	Header   http.Header
	Out      any
	Timeout  time.Duration // zero uses the tiered default
}

// Client talks to the digest backend REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	coldStart bool
	creds     *credentials
	limits    *RateLimitTracker
	sleep     func(ctx context.Context, d time.Duration) error
	requestID func() string
}

// Option customizes a Client.
type Option func(*Client)

// WithColdStart forces the cold-start policy on or off instead of detecting it from the host.
func WithColdStart(enabled bool) Option {
	return func(c *Client) { c.coldStart = enabled }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimitTracker shares a tracker owned by the caller.
func WithRateLimitTracker(t *RateLimitTracker) Option {
	return func(c *Client) {
		if t != nil {
			c.limits = t
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// WithSleeper replaces the backoff delay function. Tests use it to observe delays.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// NewClient builds a Client for the backend at apiURL (the NEXT_PUBLIC_API_URL value).
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		coldStart: IsColdStartHost(base.Hostname()),
		creds:     &credentials{},
		limits:    NewRateLimitTracker(),
		sleep:     sleepContext,
		requestID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the resolved API base including the /api/v1 prefix.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ColdStart reports whether the cold-start timeout and retry policy is active.
func (c *Client) ColdStart() bool {
	return c.coldStart
}

// RateLimits exposes the tracker fed by every response.
func (c *Client) RateLimits() *RateLimitTracker {
	return c.limits
}

// Request issues req, retrying cold-start-like failures on allowlisted endpoints.
func (c *Client) Request(ctx context.Context, req Request) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	attempts := 1
	if c.retryable(req.Endpoint) {
		attempts += maxColdStartRetries
	}

	delay := initialRetryDelay
	for attempt := 1; ; attempt++ {
		err := c.do(ctx, req)
		if err == nil {
			return nil
		}
		if attempt >= attempts || !IsColdStart(err) || ctx.Err() != nil {
			return err
		}
		log.Printf("[WARN] %s %s failed: %v, backend may be waking up, retry %d/%d in %v",
			methodOf(req), req.Endpoint, err, attempt, maxColdStartRetries, delay)
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return err
		}
		delay = nextRetryDelay(delay)
	}
}

func (c *Client) do(ctx context.Context, req Request) error {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = TimeoutFor(req.Endpoint, c.coldStart)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := methodOf(req)
	httpReq, err := http.NewRequestWithContext(ctx, method, c.endpointURL(req.Endpoint, req.Query), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", c.requestID())
	if token := c.tokenFor(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return networkError(ctx, timeout, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.limits.Update(req.Endpoint, resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}
	if resp.StatusCode == http.StatusNoContent || req.Out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(req.Out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) endpointURL(endpoint string, query url.Values) string {
	u := *c.baseURL
	path := endpoint
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// retryable reports whether endpoint is on the cold-start retry allowlist.
func (c *Client) retryable(endpoint string) bool {
	if !c.coldStart {
		return false
	}
	path := endpointPath(endpoint)
	return strings.Contains(path, "/subscriptions") ||
		strings.Contains(path, "/guidance") ||
		strings.HasSuffix(path, "/status")
}

// TimeoutFor returns the timeout tier for endpoint.
func TimeoutFor(endpoint string, coldStart bool) time.Duration {
	path := endpointPath(endpoint)
	if strings.Contains(path, "/guidance/") {
		for _, route := range guidanceAnalysisRoutes {
			if strings.Contains(path, route) {
				return GuidanceTimeout
			}
		}
	}
	if coldStart {
		return ExtendedTimeout
	}
	return DefaultTimeout
}

// IsColdStartHost reports whether host belongs to the sleep-prone hosting provider.
func IsColdStartHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	return h == coldStartHostSuffix || strings.HasSuffix(h, "."+coldStartHostSuffix)
}

func nextRetryDelay(d time.Duration) time.Duration {
	ms := math.Floor(float64(d.Milliseconds()) * retryDelayFactor)
	return time.Duration(ms) * time.Millisecond
}

func endpointPath(endpoint string) string {
	if i := strings.IndexAny(endpoint, "?#"); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

func methodOf(req Request) string {
	if req.Method == "" {
		return http.MethodGet
	}
	return req.Method
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", apiURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(u.Path, apiPrefix) {
		u.Path += apiPrefix
	}
	return u, nil
}
