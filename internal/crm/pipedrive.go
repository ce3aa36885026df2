package crm

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync-cli/internal/model"
	"github.com/sells-group/leadsync-cli/internal/reconcile"
	"github.com/sells-group/leadsync-cli/pkg/pipedrive"
)

// PipedriveSource pulls persons as sync source records.
type PipedriveSource struct {
	client pipedrive.Client
	limit  int
}

// NewPipedriveSource creates a source over the given client.
func NewPipedriveSource(client pipedrive.Client, limit int) *PipedriveSource {
	if limit <= 0 {
		limit = 500
	}
	return &PipedriveSource{client: client, limit: limit}
}

func (s *PipedriveSource) Name() string { return "pipedrive" }

func (s *PipedriveSource) FetchRecords(ctx context.Context) ([]model.SourceRecord, error) {
	persons, err := s.client.GetPersons(ctx, s.limit)
	if err != nil {
		return nil, eris.Wrap(err, "crm: pipedrive fetch")
	}

	records := make([]model.SourceRecord, 0, len(persons))
	for _, p := range persons {
		records = append(records, personToRecord(p))
	}
	return records, nil
}

func personToRecord(p pipedrive.Person) model.SourceRecord {
	rec := model.SourceRecord{
		ExternalID: strconv.Itoa(p.ID),
		Email:      p.PrimaryEmail(),
		Phone:      p.PrimaryPhone(),
		Title:      p.JobTitle,
	}
	rec.FirstName, rec.LastName = splitName(p.Name)
	if p.OrgID != nil {
		rec.Company = p.OrgID.Name
	}
	return rec
}

// PipedriveTarget writes persons, deals, and activities. Persons reconcile
// by email; deals and activities have no natural identity key in Pipedrive,
// so they are create-only and the orchestrator gates them on the person
// having just been created.
type PipedriveTarget struct {
	client pipedrive.Client
}

// NewPipedriveTarget creates a reconcile target over the given client.
func NewPipedriveTarget(client pipedrive.Client) *PipedriveTarget {
	return &PipedriveTarget{client: client}
}

func (t *PipedriveTarget) Name() string { return "pipedrive" }

func (t *PipedriveTarget) Lookup(ctx context.Context, kind, key string) (*reconcile.Entity, error) {
	switch kind {
	case KindPerson:
		person, err := t.client.SearchPersonByEmail(ctx, key)
		if err != nil {
			return nil, eris.Wrap(err, "crm: pipedrive lookup")
		}
		if person == nil {
			return nil, nil
		}
		fields := map[string]any{}
		if person.Name != "" {
			fields["name"] = person.Name
		}
		if email := person.PrimaryEmail(); email != "" {
			fields["email"] = email
		}
		if phone := person.PrimaryPhone(); phone != "" {
			fields["phone"] = phone
		}
		if person.JobTitle != "" {
			fields["job_title"] = person.JobTitle
		}
		return &reconcile.Entity{ID: strconv.Itoa(person.ID), Fields: fields}, nil
	case KindDeal, KindActivity:
		// Create-only kinds: no lookup, never an update.
		return nil, nil
	default:
		return nil, eris.Errorf("crm: pipedrive does not support kind %s", kind)
	}
}

func (t *PipedriveTarget) Create(ctx context.Context, kind string, fields map[string]any) (string, error) {
	var (
		id  int
		err error
	)
	switch kind {
	case KindPerson:
		id, err = t.client.CreatePerson(ctx, fields)
	case KindDeal:
		id, err = t.client.CreateDeal(ctx, fields)
	case KindActivity:
		id, err = t.client.CreateActivity(ctx, fields)
	default:
		return "", eris.Errorf("crm: pipedrive does not support kind %s", kind)
	}
	if err != nil {
		return "", eris.Wrapf(err, "crm: pipedrive create %s", kind)
	}
	return strconv.Itoa(id), nil
}

func (t *PipedriveTarget) Update(ctx context.Context, kind, id string, fields map[string]any) error {
	if kind != KindPerson {
		return eris.Errorf("crm: pipedrive cannot update kind %s", kind)
	}
	personID, err := strconv.Atoi(id)
	if err != nil {
		return eris.Wrapf(err, "crm: pipedrive person id %q", id)
	}
	if err := t.client.UpdatePerson(ctx, personID, fields); err != nil {
		return eris.Wrap(err, "crm: pipedrive update")
	}
	return nil
}

// PipedriveFields maps an enriched record to Pipedrive person fields.
func PipedriveFields(rec model.EnrichedRecord, metrics model.DerivedMetrics) map[string]any {
	fields := map[string]any{}
	if name := rec.FullName(); name != "" {
		fields["name"] = name
	}
	if rec.Email != "" {
		fields["email"] = rec.Email
	}
	if rec.Phone != "" {
		fields["phone"] = rec.Phone
	}
	if rec.Title != "" {
		fields["job_title"] = rec.Title
	}
	return fields
}

// PipedriveDealFields builds the deal payload for a newly created person.
func PipedriveDealFields(rec model.EnrichedRecord, metrics model.DerivedMetrics, personID string) map[string]any {
	title := rec.FullName()
	if rec.Company != "" {
		title += " - " + rec.Company
	}
	fields := map[string]any{
		"title":    title,
		"value":    metrics.DealValue,
		"currency": "USD",
	}
	if id, err := strconv.Atoi(personID); err == nil {
		fields["person_id"] = id
	}
	return fields
}

// PipedriveActivityFields builds the follow-up activity payload for a new deal.
func PipedriveActivityFields(rec model.EnrichedRecord, dealID string) map[string]any {
	fields := map[string]any{
		"subject": "Follow up with " + rec.FullName(),
		"type":    "call",
	}
	if id, err := strconv.Atoi(dealID); err == nil {
		fields["deal_id"] = id
	}
	return fields
}

// splitName divides a display name into first and last on the final space.
func splitName(name string) (first, last string) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == ' ' {
			return name[:i], name[i+1:]
		}
	}
	return "", name
}
