package pipedrive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadsync-cli/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", WithBaseURL(srv.URL), WithRateLimit(1000))
}

func TestGetPersons(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/persons", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("api_token"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{
					"id":   7,
					"name": "Ada Lovelace",
					"email": []map[string]any{
						{"value": "ada@acme.io", "primary": true},
					},
					"org_id": map[string]any{"value": 3, "name": "Acme"},
				},
			},
		})
	})

	persons, err := client.GetPersons(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, persons, 1)
	assert.Equal(t, 7, persons[0].ID)
	assert.Equal(t, "ada@acme.io", persons[0].PrimaryEmail())
	require.NotNil(t, persons[0].OrgID)
	assert.Equal(t, "Acme", persons[0].OrgID.Name)
}

func TestSearchPersonByEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/persons/search", r.URL.Path)
		assert.Equal(t, "ada@acme.io", r.URL.Query().Get("term"))
		assert.Equal(t, "email", r.URL.Query().Get("fields"))
		assert.Equal(t, "true", r.URL.Query().Get("exact_match"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"items": []map[string]any{
					{"item": map[string]any{"id": 12, "name": "Ada Lovelace"}},
				},
			},
		})
	})

	person, err := client.SearchPersonByEmail(context.Background(), "ada@acme.io")
	require.NoError(t, err)
	require.NotNil(t, person)
	assert.Equal(t, 12, person.ID)
}

func TestSearchPersonByEmailNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"items": []any{}},
		})
	})

	person, err := client.SearchPersonByEmail(context.Background(), "nobody@acme.io")
	require.NoError(t, err)
	assert.Nil(t, person)
}

func TestCreatePerson(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/persons", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ada Lovelace", body["name"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": 42},
		})
	})

	id, err := client.CreatePerson(context.Background(), map[string]any{
		"name":  "Ada Lovelace",
		"email": "ada@acme.io",
	})
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestUpdatePerson(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/persons/42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	err := client.UpdatePerson(context.Background(), 42, map[string]any{"phone": "+15551234"})
	require.NoError(t, err)
}

func TestCreateDealAndActivity(t *testing.T) {
	var dealCalls, activityCalls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/deals":
			dealCalls.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"id": 9},
			})
		case "/activities":
			activityCalls.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"id": 17},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	dealID, err := client.CreateDeal(context.Background(), map[string]any{
		"title": "Acme deal", "value": 15000, "person_id": 42,
	})
	require.NoError(t, err)
	assert.Equal(t, 9, dealID)

	activityID, err := client.CreateActivity(context.Background(), map[string]any{
		"subject": "Follow up", "deal_id": 9,
	})
	require.NoError(t, err)
	assert.Equal(t, 17, activityID)

	assert.Equal(t, int32(1), dealCalls.Load())
	assert.Equal(t, int32(1), activityCalls.Load())
}

func TestSuccessFalseIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "Person not found",
		})
	})

	err := client.UpdatePerson(context.Background(), 99, map[string]any{"name": "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Body, "Person not found")
}

func TestRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": 1},
		})
	}))
	t.Cleanup(srv.Close)

	client := NewClient("tok", WithBaseURL(srv.URL), WithRateLimit(1000), WithRetry(resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}))

	id, err := client.CreatePerson(context.Background(), map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	client := NewClient("tok", WithBaseURL(srv.URL), WithRateLimit(1000))

	_, err := client.CreatePerson(context.Background(), map[string]any{"name": "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
