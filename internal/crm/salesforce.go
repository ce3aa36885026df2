package crm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync-cli/internal/model"
	"github.com/sells-group/leadsync-cli/internal/reconcile"
	"github.com/sells-group/leadsync-cli/pkg/salesforce"
)

// SalesforceTarget writes person records as Contacts and company records as
// Accounts. Contacts reconcile by email; accounts by website domain.
type SalesforceTarget struct {
	client salesforce.Client
}

// NewSalesforceTarget creates a reconcile target over the given client.
func NewSalesforceTarget(client salesforce.Client) *SalesforceTarget {
	return &SalesforceTarget{client: client}
}

func (t *SalesforceTarget) Name() string { return "salesforce" }

func (t *SalesforceTarget) Lookup(ctx context.Context, kind, key string) (*reconcile.Entity, error) {
	switch kind {
	case KindPerson:
		contact, err := salesforce.FindContactByEmail(ctx, t.client, key)
		if err != nil {
			return nil, eris.Wrap(err, "crm: salesforce lookup contact")
		}
		if contact == nil {
			return nil, nil
		}
		return &reconcile.Entity{ID: contact.ID, Fields: contactFields(contact)}, nil
	case KindCompany:
		account, err := salesforce.FindAccountByWebsite(ctx, t.client, key)
		if err != nil {
			return nil, eris.Wrap(err, "crm: salesforce lookup account")
		}
		if account == nil {
			return nil, nil
		}
		fields := map[string]any{}
		if account.Name != "" {
			fields["Name"] = account.Name
		}
		if account.Website != "" {
			fields["Website"] = account.Website
		}
		return &reconcile.Entity{ID: account.ID, Fields: fields}, nil
	default:
		return nil, eris.Errorf("crm: salesforce does not support kind %s", kind)
	}
}

func (t *SalesforceTarget) Create(ctx context.Context, kind string, fields map[string]any) (string, error) {
	switch kind {
	case KindPerson:
		accountID, _ := fields["AccountId"].(string)
		delete(fields, "AccountId")
		id, err := salesforce.CreateContact(ctx, t.client, accountID, fields)
		if err != nil {
			return "", eris.Wrap(err, "crm: salesforce create contact")
		}
		return id, nil
	case KindCompany:
		id, err := salesforce.CreateAccount(ctx, t.client, fields)
		if err != nil {
			return "", eris.Wrap(err, "crm: salesforce create account")
		}
		return id, nil
	default:
		return "", eris.Errorf("crm: salesforce does not support kind %s", kind)
	}
}

func (t *SalesforceTarget) Update(ctx context.Context, kind, id string, fields map[string]any) error {
	switch kind {
	case KindPerson:
		return salesforce.UpdateContact(ctx, t.client, id, fields)
	case KindCompany:
		return salesforce.UpdateAccount(ctx, t.client, id, fields)
	default:
		return eris.Errorf("crm: salesforce does not support kind %s", kind)
	}
}

func contactFields(c *salesforce.Contact) map[string]any {
	fields := map[string]any{}
	put := func(k, v string) {
		if v != "" {
			fields[k] = v
		}
	}
	put("FirstName", c.FirstName)
	put("LastName", c.LastName)
	put("Email", c.Email)
	put("Phone", c.Phone)
	put("Title", c.Title)
	put("Department", c.Department)
	put("AccountId", c.AccountID)
	put("OwnerId", c.OwnerID)
	return fields
}

// SalesforceFields maps an enriched record to Salesforce Contact fields.
// The optional accountID links the contact to its Account on create.
func SalesforceFields(rec model.EnrichedRecord, metrics model.DerivedMetrics, accountID string) map[string]any {
	fields := map[string]any{}
	put := func(k, v string) {
		if v != "" {
			fields[k] = v
		}
	}
	put("FirstName", rec.FirstName)
	put("LastName", rec.LastName)
	put("Email", rec.Email)
	put("Phone", rec.Phone)
	put("Title", rec.Title)
	put("OwnerId", metrics.Owner)
	put("AccountId", accountID)
	if len(rec.Departments) > 0 {
		fields["Department"] = rec.Departments[0]
	}
	return fields
}

// SalesforceAccountFields builds the Account payload for a company record.
func SalesforceAccountFields(rec model.EnrichedRecord) map[string]any {
	fields := map[string]any{}
	if rec.Company != "" {
		fields["Name"] = rec.Company
	}
	if rec.Domain != "" {
		fields["Website"] = "https://" + rec.Domain
	}
	return fields
}
