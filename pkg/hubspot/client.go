// Package hubspot provides access to the HubSpot CRM v3 contacts API.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadsync-cli/internal/resilience"
)

// Default base URL for the HubSpot API.
const defaultBaseURL = "https://api.hubapi.com"

// DefaultProperties is the property set pulled for enrichment syncs.
var DefaultProperties = []string{
	"firstname", "lastname", "company", "email", "phone",
	"jobtitle", "hs_email_domain", "hs_linkedin_url",
}

// LookupProperties is the property set returned by contact lookups. It
// extends DefaultProperties with every property the sync writes, so an
// unchanged contact diffs clean on re-sync instead of forcing a PATCH.
var LookupProperties = append(DefaultProperties[:len(DefaultProperties):len(DefaultProperties)],
	"hs_lead_score", "hubspot_owner_id",
)

// Contact is a HubSpot contact with its requested properties.
type Contact struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Client defines the HubSpot operations used by the sync pipeline.
type Client interface {
	// ListContacts pages through contacts, returning up to limit records
	// with the given properties (DefaultProperties when nil).
	ListContacts(ctx context.Context, limit int, properties []string) ([]Contact, error)
	// SearchContactByEmail returns the contact with the given email, or
	// nil when none matches.
	SearchContactByEmail(ctx context.Context, email string) (*Contact, error)
	// CreateContact creates a contact and returns its ID.
	CreateContact(ctx context.Context, properties map[string]string) (string, error)
	// UpdateContact patches the given properties onto an existing contact.
	UpdateContact(ctx context.Context, id string, properties map[string]string) error
}

// APIError is returned when HubSpot responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot: HTTP %d: %s", e.StatusCode, e.Body)
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

// WithRateLimit sets a per-second rate limit for HubSpot API calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry overrides the transport retry configuration.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a new HubSpot client authenticated with a private app
// access token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(5, 5),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pagingResponse struct {
	Results []Contact `json:"results"`
	Paging  *paging   `json:"paging"`
}

type paging struct {
	Next pagingNext `json:"next"`
}

type pagingNext struct {
	After string `json:"after"`
}

func (c *httpClient) ListContacts(ctx context.Context, limit int, properties []string) ([]Contact, error) {
	if limit <= 0 {
		limit = 100
	}
	if properties == nil {
		properties = DefaultProperties
	}

	var contacts []Contact
	after := ""
	for len(contacts) < limit {
		pageSize := min(limit-len(contacts), 100)
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		for _, p := range properties {
			q.Add("properties", p)
		}
		if after != "" {
			q.Set("after", after)
		}

		var page pagingResponse
		if err := c.get(ctx, "/crm/v3/objects/contacts?"+q.Encode(), &page); err != nil {
			return nil, eris.Wrap(err, "hubspot: list contacts")
		}
		contacts = append(contacts, page.Results...)

		if page.Paging == nil || page.Paging.Next.After == "" {
			break
		}
		after = page.Paging.Next.After
	}
	return contacts, nil
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

func (c *httpClient) SearchContactByEmail(ctx context.Context, email string) (*Contact, error) {
	req := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{PropertyName: "email", Operator: "EQ", Value: email}},
		}},
		Properties: LookupProperties,
		Limit:      1,
	}

	var resp pagingResponse
	if err := c.post(ctx, "/crm/v3/objects/contacts/search", req, &resp); err != nil {
		return nil, eris.Wrap(err, "hubspot: search contact")
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

func (c *httpClient) CreateContact(ctx context.Context, properties map[string]string) (string, error) {
	body := map[string]any{"properties": properties}
	var resp Contact
	if err := c.post(ctx, "/crm/v3/objects/contacts", body, &resp); err != nil {
		return "", eris.Wrap(err, "hubspot: create contact")
	}
	if resp.ID == "" {
		return "", eris.New("hubspot: create response missing ID")
	}
	return resp.ID, nil
}

func (c *httpClient) UpdateContact(ctx context.Context, id string, properties map[string]string) error {
	body := map[string]any{"properties": properties}
	var resp Contact
	if err := c.patch(ctx, "/crm/v3/objects/contacts/"+url.PathEscape(id), body, &resp); err != nil {
		return eris.Wrap(err, fmt.Sprintf("hubspot: update contact %s", id))
	}
	return nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	return c.send(ctx, http.MethodGet, path, nil, out)
}

func (c *httpClient) post(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPost, path, body, out)
}

func (c *httpClient) patch(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPatch, path, body, out)
}

// send executes one API call with rate limiting and transient-error retry.
func (c *httpClient) send(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
	}

	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return eris.Wrap(err, "create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
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
			apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(apiErr, resp.StatusCode)
			}
			return apiErr
		}

		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return eris.Wrap(err, "decode response")
			}
		}
		return nil
	})
}
