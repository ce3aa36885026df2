package crm

import "github.com/sells-group/leadsync-cli/internal/model"

// HubSpotMapper builds HubSpot write payloads. HubSpot associates
// companies to contacts by email domain on its own, so company, deal,
// and activity payloads are nil.
type HubSpotMapper struct{}

func (HubSpotMapper) PersonFields(rec model.EnrichedRecord, metrics model.DerivedMetrics) map[string]any {
	return HubSpotFields(rec, metrics)
}

func (HubSpotMapper) CompanyFields(model.EnrichedRecord) map[string]any { return nil }

func (HubSpotMapper) LinkCompany(map[string]any, string) {}

func (HubSpotMapper) DealFields(model.EnrichedRecord, model.DerivedMetrics, string) map[string]any {
	return nil
}

func (HubSpotMapper) ActivityFields(model.EnrichedRecord, string) map[string]any { return nil }

// PipedriveMapper builds Pipedrive write payloads, including the deal and
// follow-up activity for newly created persons.
type PipedriveMapper struct{}

func (PipedriveMapper) PersonFields(rec model.EnrichedRecord, metrics model.DerivedMetrics) map[string]any {
	return PipedriveFields(rec, metrics)
}

func (PipedriveMapper) CompanyFields(model.EnrichedRecord) map[string]any { return nil }

func (PipedriveMapper) LinkCompany(map[string]any, string) {}

func (PipedriveMapper) DealFields(rec model.EnrichedRecord, metrics model.DerivedMetrics, personID string) map[string]any {
	return PipedriveDealFields(rec, metrics, personID)
}

func (PipedriveMapper) ActivityFields(rec model.EnrichedRecord, dealID string) map[string]any {
	return PipedriveActivityFields(rec, dealID)
}

// SalesforceMapper builds Salesforce write payloads. Accounts reconcile
// before contacts so the contact can be linked via AccountId.
type SalesforceMapper struct{}

func (SalesforceMapper) PersonFields(rec model.EnrichedRecord, metrics model.DerivedMetrics) map[string]any {
	return SalesforceFields(rec, metrics, "")
}

func (SalesforceMapper) CompanyFields(rec model.EnrichedRecord) map[string]any {
	if rec.Domain == "" {
		return nil
	}
	return SalesforceAccountFields(rec)
}

func (SalesforceMapper) LinkCompany(person map[string]any, accountID string) {
	if accountID != "" {
		person["AccountId"] = accountID
	}
}

func (SalesforceMapper) DealFields(model.EnrichedRecord, model.DerivedMetrics, string) map[string]any {
	return nil
}

func (SalesforceMapper) ActivityFields(model.EnrichedRecord, string) map[string]any { return nil }
