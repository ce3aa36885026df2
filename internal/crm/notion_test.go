package crm

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotion implements notion.Client for testing.
type fakeNotion struct {
	queryFn  func(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	updateFn func(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

func (f *fakeNotion) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return f.queryFn(ctx, dbID, req)
}

func (f *fakeNotion) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	return f.updateFn(ctx, pageID, req)
}

func queuedLeadPage() notionapi.Page {
	return notionapi.Page{
		ID: "lead-1",
		Properties: notionapi.Properties{
			"Name": &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: "Ada Lovelace"}},
			},
			"Company": &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: "Acme"}},
			},
			"Email":   &notionapi.EmailProperty{Email: "ada@acme.io"},
			"Phone":   &notionapi.PhoneNumberProperty{PhoneNumber: "+15551234"},
			"Title":   &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: "CTO"}}},
			"Website": &notionapi.URLProperty{URL: "https://www.acme.io/about"},
		},
	}
}

func TestNotionSource_FetchRecords(t *testing.T) {
	client := &fakeNotion{
		queryFn: func(_ context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			assert.Equal(t, "db-1", dbID)
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{queuedLeadPage()},
			}, nil
		},
	}

	src := NewNotionSource(client, "db-1")
	assert.Equal(t, "notion", src.Name())

	records, err := src.FetchRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "lead-1", rec.ExternalID)
	assert.Equal(t, "Ada", rec.FirstName)
	assert.Equal(t, "Lovelace", rec.LastName)
	assert.Equal(t, "Acme", rec.Company)
	assert.Equal(t, "ada@acme.io", rec.Email)
	assert.Equal(t, "CTO", rec.Title)
	assert.Equal(t, "acme.io", rec.Domain)
}

func TestNotionSource_FetchError(t *testing.T) {
	client := &fakeNotion{
		queryFn: func(_ context.Context, _ string, _ *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return nil, eris.New("boom")
		},
	}
	_, err := NewNotionSource(client, "db-1").FetchRecords(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion fetch")
}

func TestNotionSource_MarkSynced(t *testing.T) {
	var updated []string
	client := &fakeNotion{
		updateFn: func(_ context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
			updated = append(updated, pageID)
			status, ok := req.Properties["Status"].(notionapi.StatusProperty)
			require.True(t, ok)
			assert.Equal(t, "Synced", status.Status.Name)
			return &notionapi.Page{}, nil
		},
	}

	src := NewNotionSource(client, "db-1")
	require.NoError(t, src.MarkSynced(context.Background(), []string{"lead-1", "lead-2"}))
	assert.Equal(t, []string{"lead-1", "lead-2"}, updated)
}

func TestNotionSource_MarkSyncedPartialFailure(t *testing.T) {
	client := &fakeNotion{
		updateFn: func(_ context.Context, pageID string, _ *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
			if pageID == "lead-2" {
				return nil, eris.New("boom")
			}
			return &notionapi.Page{}, nil
		},
	}

	err := NewNotionSource(client, "db-1").MarkSynced(context.Background(), []string{"lead-1", "lead-2", "lead-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")
}

func TestDomainFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.acme.io/about", "acme.io"},
		{"http://acme.io", "acme.io"},
		{"acme.io/path?x=1", "acme.io"},
		{"WWW.Acme.IO", "acme.io"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domainFromURL(tt.in), tt.in)
	}
}
