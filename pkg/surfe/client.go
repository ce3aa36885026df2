// Package surfe provides a client for the Surfe people-enrichment API,
// including bulk job submission and completion polling.
package surfe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default base URL for the Surfe API.
const defaultBaseURL = "https://api.surfe.com"

// MaxBatchSize is the largest number of people accepted per bulk job.
const MaxBatchSize = 500

// Client defines the Surfe API operations used by the sync pipeline.
type Client interface {
	// StartEnrichment submits one bulk enrichment job and returns its ID.
	// The request must contain between 1 and MaxBatchSize people.
	StartEnrichment(ctx context.Context, req EnrichmentRequest) (*EnrichmentResponse, error)
	// GetEnrichment fetches the current status (and, when completed, the
	// results) of a bulk enrichment job.
	GetEnrichment(ctx context.Context, id string) (*EnrichmentStatus, error)
	// SearchByEmail looks up a single person by email address.
	SearchByEmail(ctx context.Context, email string) (*SearchResult, error)
}

// APIError is returned when Surfe responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("surfe: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for Surfe API calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Surfe client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) StartEnrichment(ctx context.Context, req EnrichmentRequest) (*EnrichmentResponse, error) {
	if len(req.People) == 0 {
		return nil, eris.New("surfe: empty enrichment batch")
	}
	if len(req.People) > MaxBatchSize {
		return nil, eris.Errorf("surfe: batch of %d exceeds maximum %d", len(req.People), MaxBatchSize)
	}

	var resp EnrichmentResponse
	if err := c.post(ctx, "/v2/people/enrich", req, &resp); err != nil {
		return nil, eris.Wrap(err, "surfe: start enrichment")
	}
	if resp.ID == "" {
		return nil, eris.New("surfe: enrichment response missing ID")
	}
	return &resp, nil
}

func (c *httpClient) GetEnrichment(ctx context.Context, id string) (*EnrichmentStatus, error) {
	var resp EnrichmentStatus
	if err := c.get(ctx, "/v2/people/enrich/"+url.PathEscape(id), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("surfe: get enrichment %s", id))
	}
	return &resp, nil
}

func (c *httpClient) SearchByEmail(ctx context.Context, email string) (*SearchResult, error) {
	var resp SearchResult
	path := "/v1/people/search/byEmail?email=" + url.QueryEscape(email)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, eris.Wrap(err, "surfe: search by email")
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	if err := c.wait(req.Context()); err != nil {
		return eris.Wrap(err, "rate limit")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
