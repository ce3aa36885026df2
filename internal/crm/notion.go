package crm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsync-cli/internal/model"
	"github.com/sells-group/leadsync-cli/pkg/notion"
)

// NotionSource pulls queued leads from a Notion leads database. After a run
// the orchestrator may call MarkSynced to move pages out of the queue.
type NotionSource struct {
	client notion.Client
	dbID   string
}

// NewNotionSource creates a source over the given leads database.
func NewNotionSource(client notion.Client, dbID string) *NotionSource {
	return &NotionSource{client: client, dbID: dbID}
}

func (s *NotionSource) Name() string { return "notion" }

func (s *NotionSource) FetchRecords(ctx context.Context) ([]model.SourceRecord, error) {
	pages, err := notion.QueryQueuedLeads(ctx, s.client, s.dbID)
	if err != nil {
		return nil, eris.Wrap(err, "crm: notion fetch leads")
	}

	records := make([]model.SourceRecord, 0, len(pages))
	for _, page := range pages {
		first, last := splitName(notion.PlainText(page, "Name"))
		records = append(records, model.SourceRecord{
			ExternalID: string(page.ID),
			FirstName:  first,
			LastName:   last,
			Company:    notion.PlainText(page, "Company"),
			Email:      notion.PlainText(page, "Email"),
			Phone:      notion.PlainText(page, "Phone"),
			Title:      notion.PlainText(page, "Title"),
			Domain:     domainFromURL(notion.PlainText(page, "Website")),
		})
	}
	return records, nil
}

// MarkSynced flips the Status of each page to "Synced". Failures are logged
// and skipped so one bad page does not block the rest.
func (s *NotionSource) MarkSynced(ctx context.Context, pageIDs []string) error {
	var failed int
	for _, id := range pageIDs {
		if err := notion.SetLeadStatus(ctx, s.client, id, "Synced"); err != nil {
			zap.L().Warn("failed to mark lead synced",
				zap.String("page_id", id),
				zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return eris.Errorf("crm: %d of %d leads could not be marked synced", failed, len(pageIDs))
	}
	return nil
}

// domainFromURL strips the scheme, path, and www prefix from a website URL.
func domainFromURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(s)
	return strings.TrimPrefix(s, "www.")
}
