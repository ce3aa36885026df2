package crm

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync-cli/internal/model"
	"github.com/sells-group/leadsync-cli/internal/reconcile"
	"github.com/sells-group/leadsync-cli/pkg/hubspot"
)

// HubSpotSource pulls contacts as sync source records.
type HubSpotSource struct {
	client hubspot.Client
	limit  int
}

// NewHubSpotSource creates a source over the given client. limit caps the
// number of contacts pulled per run (0 means the adapter default of 1000).
func NewHubSpotSource(client hubspot.Client, limit int) *HubSpotSource {
	if limit <= 0 {
		limit = 1000
	}
	return &HubSpotSource{client: client, limit: limit}
}

func (s *HubSpotSource) Name() string { return "hubspot" }

func (s *HubSpotSource) FetchRecords(ctx context.Context) ([]model.SourceRecord, error) {
	contacts, err := s.client.ListContacts(ctx, s.limit, nil)
	if err != nil {
		return nil, eris.Wrap(err, "crm: hubspot fetch")
	}

	records := make([]model.SourceRecord, 0, len(contacts))
	for _, c := range contacts {
		records = append(records, contactToRecord(c))
	}
	return records, nil
}

func contactToRecord(c hubspot.Contact) model.SourceRecord {
	p := c.Properties
	return model.SourceRecord{
		ExternalID:  c.ID,
		FirstName:   p["firstname"],
		LastName:    p["lastname"],
		Company:     p["company"],
		Email:       p["email"],
		Phone:       p["phone"],
		Title:       p["jobtitle"],
		Domain:      p["hs_email_domain"],
		LinkedInURL: p["hs_linkedin_url"],
	}
}

// HubSpotTarget writes person records as contacts. HubSpot keeps companies
// associated automatically via email domains, so only the person kind is
// supported.
type HubSpotTarget struct {
	client hubspot.Client
}

// NewHubSpotTarget creates a reconcile target over the given client.
func NewHubSpotTarget(client hubspot.Client) *HubSpotTarget {
	return &HubSpotTarget{client: client}
}

func (t *HubSpotTarget) Name() string { return "hubspot" }

func (t *HubSpotTarget) Lookup(ctx context.Context, kind, key string) (*reconcile.Entity, error) {
	if kind != KindPerson {
		return nil, eris.Errorf("crm: hubspot does not support kind %s", kind)
	}
	contact, err := t.client.SearchContactByEmail(ctx, key)
	if err != nil {
		return nil, eris.Wrap(err, "crm: hubspot lookup")
	}
	if contact == nil {
		return nil, nil
	}

	fields := make(map[string]any, len(contact.Properties))
	for k, v := range contact.Properties {
		if v != "" {
			fields[k] = v
		}
	}
	return &reconcile.Entity{ID: contact.ID, Fields: fields}, nil
}

func (t *HubSpotTarget) Create(ctx context.Context, kind string, fields map[string]any) (string, error) {
	if kind != KindPerson {
		return "", eris.Errorf("crm: hubspot does not support kind %s", kind)
	}
	id, err := t.client.CreateContact(ctx, stringify(fields))
	if err != nil {
		return "", eris.Wrap(err, "crm: hubspot create")
	}
	return id, nil
}

func (t *HubSpotTarget) Update(ctx context.Context, kind, id string, fields map[string]any) error {
	if kind != KindPerson {
		return eris.Errorf("crm: hubspot does not support kind %s", kind)
	}
	if err := t.client.UpdateContact(ctx, id, stringify(fields)); err != nil {
		return eris.Wrap(err, "crm: hubspot update")
	}
	return nil
}

// HubSpotFields maps an enriched record to HubSpot contact properties.
func HubSpotFields(rec model.EnrichedRecord, metrics model.DerivedMetrics) map[string]any {
	fields := map[string]any{}
	put := func(k, v string) {
		if v != "" {
			fields[k] = v
		}
	}
	put("firstname", rec.FirstName)
	put("lastname", rec.LastName)
	put("company", rec.Company)
	put("email", rec.Email)
	put("phone", rec.Phone)
	put("jobtitle", rec.Title)
	put("hs_linkedin_url", rec.LinkedInURL)
	put("hubspot_owner_id", metrics.Owner)
	if metrics.Score > 0 {
		fields["hs_lead_score"] = metrics.Score
	}
	return fields
}

func stringify(fields map[string]any) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = fmt.Sprint(v)
	}
	return out
}
