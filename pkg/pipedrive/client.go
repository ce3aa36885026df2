// Package pipedrive provides access to the Pipedrive v1 API for persons,
// deals, and activities.
package pipedrive

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

// Default base URL for the Pipedrive API.
const defaultBaseURL = "https://api.pipedrive.com/v1"

// ContactField is a multi-value person field (email, phone).
type ContactField struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
}

// Org is the organization embedded in a person.
type Org struct {
	ID   int    `json:"value"`
	Name string `json:"name"`
}

// Person is a Pipedrive person record.
type Person struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Email    []ContactField `json:"email"`
	Phone    []ContactField `json:"phone"`
	JobTitle string         `json:"job_title"`
	OrgID    *Org           `json:"org_id"`
}

// PrimaryEmail returns the primary (or first) email value.
func (p Person) PrimaryEmail() string {
	for _, e := range p.Email {
		if e.Primary {
			return e.Value
		}
	}
	if len(p.Email) > 0 {
		return p.Email[0].Value
	}
	return ""
}

// PrimaryPhone returns the primary (or first) phone value.
func (p Person) PrimaryPhone() string {
	for _, f := range p.Phone {
		if f.Primary {
			return f.Value
		}
	}
	if len(p.Phone) > 0 {
		return p.Phone[0].Value
	}
	return ""
}

// Client defines the Pipedrive operations used by the sync pipeline.
type Client interface {
	GetPersons(ctx context.Context, limit int) ([]Person, error)
	SearchPersonByEmail(ctx context.Context, email string) (*Person, error)
	CreatePerson(ctx context.Context, fields map[string]any) (int, error)
	UpdatePerson(ctx context.Context, id int, fields map[string]any) error
	CreateDeal(ctx context.Context, fields map[string]any) (int, error)
	CreateActivity(ctx context.Context, fields map[string]any) (int, error)
}

// APIError is returned when Pipedrive responds with a non-2xx status or
// success=false.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pipedrive: HTTP %d: %s", e.StatusCode, e.Body)
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

// WithRateLimit sets a per-second rate limit for Pipedrive API calls.
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
	apiToken string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
}

// NewClient creates a new Pipedrive client. Authentication uses the
// api_token query parameter.
func NewClient(apiToken string, opts ...Option) Client {
	c := &httpClient{
		apiToken: apiToken,
		baseURL:  defaultBaseURL,
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

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

func (c *httpClient) GetPersons(ctx context.Context, limit int) ([]Person, error) {
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var persons []Person
	if err := c.send(ctx, http.MethodGet, "/persons?"+q.Encode(), nil, &persons); err != nil {
		return nil, eris.Wrap(err, "pipedrive: get persons")
	}
	return persons, nil
}

type searchData struct {
	Items []struct {
		Item Person `json:"item"`
	} `json:"items"`
}

func (c *httpClient) SearchPersonByEmail(ctx context.Context, email string) (*Person, error) {
	q := url.Values{}
	q.Set("term", email)
	q.Set("fields", "email")
	q.Set("exact_match", "true")

	var data searchData
	if err := c.send(ctx, http.MethodGet, "/persons/search?"+q.Encode(), nil, &data); err != nil {
		return nil, eris.Wrap(err, "pipedrive: search person")
	}
	if len(data.Items) == 0 {
		return nil, nil
	}
	return &data.Items[0].Item, nil
}

type idData struct {
	ID int `json:"id"`
}

func (c *httpClient) CreatePerson(ctx context.Context, fields map[string]any) (int, error) {
	var data idData
	if err := c.send(ctx, http.MethodPost, "/persons", fields, &data); err != nil {
		return 0, eris.Wrap(err, "pipedrive: create person")
	}
	return data.ID, nil
}

func (c *httpClient) UpdatePerson(ctx context.Context, id int, fields map[string]any) error {
	path := "/persons/" + strconv.Itoa(id)
	if err := c.send(ctx, http.MethodPut, path, fields, nil); err != nil {
		return eris.Wrap(err, fmt.Sprintf("pipedrive: update person %d", id))
	}
	return nil
}

func (c *httpClient) CreateDeal(ctx context.Context, fields map[string]any) (int, error) {
	var data idData
	if err := c.send(ctx, http.MethodPost, "/deals", fields, &data); err != nil {
		return 0, eris.Wrap(err, "pipedrive: create deal")
	}
	return data.ID, nil
}

func (c *httpClient) CreateActivity(ctx context.Context, fields map[string]any) (int, error) {
	var data idData
	if err := c.send(ctx, http.MethodPost, "/activities", fields, &data); err != nil {
		return 0, eris.Wrap(err, "pipedrive: create activity")
	}
	return data.ID, nil
}

// send executes one API call with rate limiting and transient-error retry,
// unwrapping the {success, data} envelope into out.
func (c *httpClient) send(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
	}

	sep := "?"
	if len(path) > 0 && containsQuery(path) {
		sep = "&"
	}
	fullPath := path + sep + "api_token=" + url.QueryEscape(c.apiToken)

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
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+fullPath, reader)
		if err != nil {
			return eris.Wrap(err, "create request")
		}
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

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return eris.Wrap(err, "decode response")
		}
		if !env.Success {
			return &APIError{StatusCode: resp.StatusCode, Body: env.Error}
		}
		if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return eris.Wrap(err, "decode data")
			}
		}
		return nil
	})
}

func containsQuery(path string) bool {
	for i := 0; i < len(path); i++ {
		if path[i] == '?' {
			return true
		}
	}
	return false
}
