// Package zoom provides read access to Zoom webinar registrants.
package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadsync-cli/internal/resilience"
)

const defaultBaseURL = "https://api.zoom.us/v2"

// Registrant is a Zoom webinar registrant.
type Registrant struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	JobTitle  string `json:"job_title"`
	Org       string `json:"org"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
}

// Client defines the Zoom operations used by the sync pipeline.
type Client interface {
	ListRegistrants(ctx context.Context, webinarID string) ([]Registrant, error)
}

// APIError is returned when Zoom responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zoom: HTTP %d: %s", e.StatusCode, e.Body)
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

// WithRateLimit sets a per-second rate limit for Zoom API calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithPageSize overrides the registrant page size. Zoom caps pages at 300.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 && n <= 300 {
			c.pageSize = n
		}
	}
}

type httpClient struct {
	token    string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
	pageSize int
}

// NewClient creates a new Zoom client authenticated with an OAuth access
// token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:  rate.NewLimiter(10, 10),
		retry:    resilience.DefaultRetryConfig(),
		pageSize: 300,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type registrantPage struct {
	Registrants   []Registrant `json:"registrants"`
	NextPageToken string       `json:"next_page_token"`
}

// ListRegistrants fetches all approved registrants for a webinar, following
// next_page_token until the listing is exhausted.
func (c *httpClient) ListRegistrants(ctx context.Context, webinarID string) ([]Registrant, error) {
	if webinarID == "" {
		return nil, eris.New("zoom: webinar ID is required")
	}

	var all []Registrant
	token := ""
	for {
		q := url.Values{}
		q.Set("page_size", fmt.Sprintf("%d", c.pageSize))
		q.Set("status", "approved")
		if token != "" {
			q.Set("next_page_token", token)
		}
		path := fmt.Sprintf("/webinars/%s/registrants?%s", url.PathEscape(webinarID), q.Encode())

		var page registrantPage
		if err := c.get(ctx, path, &page); err != nil {
			return nil, eris.Wrap(err, "zoom: list registrants")
		}
		all = append(all, page.Registrants...)

		if page.NextPageToken == "" {
			return all, nil
		}
		token = page.NextPageToken
	}
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return eris.Wrap(err, "create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

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
			apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(apiErr, resp.StatusCode)
			}
			return apiErr
		}

		if err := json.Unmarshal(data, out); err != nil {
			return eris.Wrap(err, "decode response")
		}
		return nil
	})
}
