// Package wpp is a client for the win-probability-play report backend.
package wpp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the report backend base URL.
	DefaultBaseURL = "http://localhost:8600"

	defaultRateLimit = 5.0 // requests per second
	defaultBurst     = 4
)

// StatusError is returned when an endpoint responds with a non-success
// status. It keeps the endpoint name so the failing call can be named in
// surfaced error messages.
type StatusError struct {
	Endpoint string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.Endpoint, e.Status)
}

// Client is a report backend client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a new report backend client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetReport fetches the ranked report for a metric and target probability.
// Diagnostics are parsed from the response headers.
func (c *Client) GetReport(ctx context.Context, metric string, targetProb float64) (*Report, *Diagnostics, error) {
	params := url.Values{}
	params.Set("target_prob", formatProb(targetProb))
	params.Set("metric", metric)

	var report Report
	header, err := c.get(ctx, "/report", params, &report)
	if err != nil {
		return nil, nil, err
	}
	return &report, parseDiagnostics(header), nil
}

// GetBestEdges fetches the top-n edges for a tier at the same parameters as
// the report.
func (c *Client) GetBestEdges(ctx context.Context, tier, metric string, n int, targetProb float64) (*EdgesResponse, error) {
	params := url.Values{}
	params.Set("tier", tier)
	params.Set("metric", metric)
	params.Set("n", strconv.Itoa(n))
	params.Set("target_prob", formatProb(targetProb))

	var edges EdgesResponse
	if _, err := c.get(ctx, "/best_edges", params, &edges); err != nil {
		return nil, err
	}
	return &edges, nil
}

// get performs a GET request with rate limiting and returns the response
// headers along with the decoded body.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Endpoint: path, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}

	return resp.Header, nil
}

// parseDiagnostics reads the rate-limit and cache headers, defaulting to
// zero counts and MISS when absent.
func parseDiagnostics(h http.Header) *Diagnostics {
	d := &Diagnostics{CacheStatus: "MISS"}
	if v, err := strconv.Atoi(h.Get("x-ratelimit-limit")); err == nil {
		d.RateLimit = v
	}
	if v, err := strconv.Atoi(h.Get("x-ratelimit-remaining")); err == nil {
		d.RateRemaining = v
	}
	if s := h.Get("x-cache"); s != "" {
		d.CacheStatus = s
	}
	if v, err := strconv.Atoi(h.Get("x-cache-ttl")); err == nil {
		d.CacheTTL = v
	}
	return d
}

func formatProb(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}
