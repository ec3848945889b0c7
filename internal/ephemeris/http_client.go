package ephemeris

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

	"transit-synth/internal/domain"
	"transit-synth/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 8 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 250 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Gateway over the ephemeris service JSON API.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new ephemeris HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    strings.TrimRight(endpoint, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Gateway = (*HTTPClient)(nil)

// apiError is an error payload returned by the service.
type apiError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("ephemeris error %d: %s", e.Status, e.Message)
}

// retryable reports whether a status code is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// call performs one API call with retries and exponential backoff.
// Every failure is reported as domain.ErrUpstreamUnavailable or domain.ErrUpstreamTimeout.
func (c *HTTPClient) call(ctx context.Context, method, httpMethod, path string, reqBody, result interface{}) error {
	start := time.Now()
	err := c.do(ctx, httpMethod, path, reqBody, result)
	observability.RecordUpstreamCall(method, time.Since(start).Seconds(), err)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamTimeout, method, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, method, err)
}

func (c *HTTPClient) do(ctx context.Context, httpMethod, path string, reqBody, result interface{}) error {
	var body []byte
	if reqBody != nil {
		var err error
		body, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, httpMethod, c.endpoint+path, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &apiError{Status: resp.StatusCode}
			if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(string(respBody))
			}
			if !retryable(resp.StatusCode) {
				// Client errors are not retried
				return apiErr
			}
			lastErr = apiErr
			continue
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// natalChartRequest is the request body for POST /v1/natal-chart.
type natalChartRequest struct {
	Birth domain.BirthData `json:"birth"`
}

// natalChartResponse is the response body for POST /v1/natal-chart.
type natalChartResponse struct {
	Points     []domain.NatalPoint `json:"points"`
	ComputedAt *time.Time          `json:"computed_at"`
}

// ComputeNatalChart derives the natal chart for birth data.
func (c *HTTPClient) ComputeNatalChart(ctx context.Context, birth domain.BirthData) (*domain.NatalChart, error) {
	var resp natalChartResponse
	if err := c.call(ctx, MethodNatalChart, http.MethodPost, "/v1/natal-chart", natalChartRequest{Birth: birth}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Points) == 0 {
		return nil, fmt.Errorf("%w: %s: empty chart", domain.ErrUpstreamUnavailable, MethodNatalChart)
	}

	chart := &domain.NatalChart{
		Birth:      birth,
		Points:     resp.Points,
		ComputedAt: time.Now().UTC(),
	}
	if resp.ComputedAt != nil {
		chart.ComputedAt = resp.ComputedAt.UTC()
	}
	return chart, nil
}

// ComputeCurrentSky returns planetary positions and lunar metrics for now.
func (c *HTTPClient) ComputeCurrentSky(ctx context.Context) (*domain.DailySkyData, error) {
	var sky domain.DailySkyData
	if err := c.call(ctx, MethodCurrentSky, http.MethodGet, "/v1/sky/current", nil, &sky); err != nil {
		return nil, err
	}
	if len(sky.Positions) == 0 {
		return nil, fmt.Errorf("%w: %s: no positions", domain.ErrUpstreamUnavailable, MethodCurrentSky)
	}
	if sky.ComputedAt.IsZero() {
		sky.ComputedAt = time.Now().UTC()
	}
	if sky.Date.IsZero() {
		sky.Date = domain.Day(sky.ComputedAt)
	}
	return &sky, nil
}

// aspectsRequest is the request body for POST /v1/aspects.
type aspectsRequest struct {
	Chart *domain.NatalChart   `json:"chart"`
	Sky   *domain.DailySkyData `json:"sky"`
}

// aspectsResponse is the response body for POST /v1/aspects.
type aspectsResponse struct {
	Aspects []domain.TransitAspect `json:"aspects"`
}

// ComputeAspects returns the transit aspects between sky and chart.
func (c *HTTPClient) ComputeAspects(ctx context.Context, chart *domain.NatalChart, sky *domain.DailySkyData) ([]domain.TransitAspect, error) {
	var resp aspectsResponse
	if err := c.call(ctx, MethodAspects, http.MethodPost, "/v1/aspects", aspectsRequest{Chart: chart, Sky: sky}, &resp); err != nil {
		return nil, err
	}
	return resp.Aspects, nil
}
