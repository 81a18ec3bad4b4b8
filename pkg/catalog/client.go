// Package catalog provides a client for the remote movie-catalog HTTP API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/boxofficelab/catalog-cli/internal/model"
	"github.com/boxofficelab/catalog-cli/internal/resilience"
)

// Client defines the catalog retrieval operations.
type Client interface {
	// Fetch retrieves a single record by identifier.
	Fetch(ctx context.Context, id int64) (*model.RawRecord, error)
	// FetchBatch retrieves records one at a time, in order, collecting
	// per-record failures instead of aborting — except on authentication
	// failure, which aborts the whole batch.
	FetchBatch(ctx context.Context, ids []int64) (*BatchResult, error)
}

// BatchResult is the outcome of a FetchBatch call: successfully fetched
// records in request order, plus a parallel failure list.
type BatchResult struct {
	Records   []model.RawRecord     `json:"records"`
	Failures  []model.RecordFailure `json:"failures,omitempty"`
	Requested int                   `json:"requested"`
}

// SuccessRate returns fetched / requested as a percentage.
func (b *BatchResult) SuccessRate() float64 {
	if b.Requested == 0 {
		return 0
	}
	return float64(len(b.Records)) / float64(b.Requested) * 100
}

// Option configures the catalog client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithLanguage sets the language query parameter.
func WithLanguage(lang string) Option {
	return func(c *httpClient) { c.language = lang }
}

// WithRetryConfig overrides the retry/backoff configuration.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

// WithInterRequestDelay sets the fixed delay honored between requests,
// including retries, to respect upstream rate limits.
func WithInterRequestDelay(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithClock sets the clock used for backoff sleeps (for testing).
func WithClock(clock resilience.Clock) Option {
	return func(c *httpClient) { c.clock = clock }
}

type httpClient struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
	retry    resilience.RetryConfig
	limiter  *rate.Limiter
	clock    resilience.Clock
}

// NewClient creates a catalog client. The credential is passed as the api_key
// query parameter on every request.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  "https://api.themoviedb.org/3",
		language: "en-US",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry:   resilience.DefaultRetryConfig(),
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		clock:   resilience.RealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Fetch(ctx context.Context, id int64) (*model.RawRecord, error) {
	rec, _, err := c.fetch(ctx, id)
	return rec, err
}

// fetch retrieves one record and reports how many attempts were issued.
func (c *httpClient) fetch(ctx context.Context, id int64) (*model.RawRecord, int, error) {
	if id <= 0 {
		return nil, 0, eris.Errorf("catalog: invalid record id %d (must be positive)", id)
	}
	if c.apiKey == "" {
		// Fail fast before issuing any request.
		return nil, 0, &resilience.AuthenticationError{Reason: "missing catalog API key"}
	}

	start := time.Now()
	rec, attempts, err := resilience.DoVal(ctx, c.retry, c.clock, func(ctx context.Context) (*model.RawRecord, error) {
		return c.doFetch(ctx, id)
	})
	elapsed := time.Since(start)

	if err != nil {
		zap.L().Warn("catalog: fetch failed",
			zap.Int64("id", id),
			zap.Duration("elapsed", elapsed),
			zap.Int("attempts", attempts),
			zap.String("kind", string(resilience.Classify(err))),
			zap.Error(err),
		)
		return nil, attempts, err
	}

	zap.L().Info("catalog: fetched record",
		zap.Int64("id", id),
		zap.String("title", rec.Title),
		zap.Duration("elapsed", elapsed),
		zap.Int("attempts", attempts),
	)
	return rec, attempts, nil
}

// doFetch issues a single request and classifies the response.
func (c *httpClient) doFetch(ctx context.Context, id int64) (*model.RawRecord, error) {
	// The inter-request delay applies before every request, retried or not.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "catalog: rate limiter wait")
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)
	q.Set("append_to_response", "credits")
	reqURL := fmt.Sprintf("%s/movie/%d?%s", c.baseURL, id, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and connection failures are classified transient by the
		// retry layer's default check.
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "catalog: read response body"), resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &resilience.AuthenticationError{StatusCode: resp.StatusCode, Reason: "credential rejected"}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &resilience.NotFoundError{ID: id}
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("catalog: status %d fetching record %d", resp.StatusCode, id),
			resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("catalog: unexpected status %d fetching record %d: %s", resp.StatusCode, id, string(body))
	}

	var rec model.RawRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, eris.Wrapf(err, "catalog: unmarshal record %d", id)
	}
	return &rec, nil
}

func (c *httpClient) FetchBatch(ctx context.Context, ids []int64) (*BatchResult, error) {
	if c.apiKey == "" {
		return nil, &resilience.AuthenticationError{Reason: "missing catalog API key"}
	}

	// Non-positive identifiers are dropped up front, matching the input
	// validation the batch contract requires.
	valid := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			zap.L().Warn("catalog: skipping invalid record id", zap.Int64("id", id))
			continue
		}
		valid = append(valid, id)
	}

	result := &BatchResult{Requested: len(valid)}
	for _, id := range valid {
		rec, attempts, err := c.fetch(ctx, id)
		if err != nil {
			if resilience.IsAuth(err) {
				// No point continuing: every remaining request would fail the
				// same way.
				return result, err
			}
			result.Failures = append(result.Failures, model.RecordFailure{
				ID:       id,
				Kind:     string(resilience.Classify(err)),
				Attempts: attempts,
				Error:    err.Error(),
			})
			continue
		}
		result.Records = append(result.Records, *rec)
	}

	zap.L().Info("catalog: batch complete",
		zap.Int("requested", result.Requested),
		zap.Int("fetched", len(result.Records)),
		zap.Int("failed", len(result.Failures)),
		zap.Float64("success_rate", result.SuccessRate()),
	)
	return result, nil
}
