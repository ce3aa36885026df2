// Package model defines the shared types for the enrichment sync pipeline.
package model

// SourceRecord is a person record pulled from a source system. All fields
// are optional; a record is only useful if an identity key can be derived
// from it (see internal/identity).
type SourceRecord struct {
	ExternalID  string `json:"external_id,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Company     string `json:"company,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Title       string `json:"title,omitempty"`
	Domain      string `json:"domain,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// FullName returns "First Last", trimmed to whichever parts are present.
func (r SourceRecord) FullName() string {
	switch {
	case r.FirstName != "" && r.LastName != "":
		return r.FirstName + " " + r.LastName
	case r.FirstName != "":
		return r.FirstName
	default:
		return r.LastName
	}
}

// FieldStatus describes what the merge engine did to a single field.
type FieldStatus string

const (
	FieldUnchanged FieldStatus = "unchanged"
	FieldFilled    FieldStatus = "filled"
	FieldUpdated   FieldStatus = "updated"
)

// EnrichedRecord is a SourceRecord after merging in enrichment results,
// plus enrichment-only attributes and a per-field merge status.
type EnrichedRecord struct {
	SourceRecord

	Seniorities []string `json:"seniorities,omitempty"`
	Departments []string `json:"departments,omitempty"`
	Country     string   `json:"country,omitempty"`

	// EmailValidated is set when the enrichment service verified the email.
	EmailValidated bool `json:"email_validated,omitempty"`

	// FieldStatuses records the merge decision per field name. Fields the
	// merge engine never touched are absent (treated as unchanged).
	FieldStatuses map[string]FieldStatus `json:"field_statuses,omitempty"`
}

// Changed reports whether any field was filled or updated by the merge.
func (r EnrichedRecord) Changed() bool {
	for _, s := range r.FieldStatuses {
		if s != FieldUnchanged {
			return true
		}
	}
	return false
}

// ChangedFields returns the names of fields that were filled or updated.
func (r EnrichedRecord) ChangedFields() []string {
	var out []string
	for name, s := range r.FieldStatuses {
		if s != FieldUnchanged {
			out = append(out, name)
		}
	}
	return out
}

// DerivedMetrics holds the business metrics computed from an enriched record.
type DerivedMetrics struct {
	Score     int     `json:"score"`      // 0-100 lead quality score
	DealValue float64 `json:"deal_value"` // estimated deal value in USD
	Owner     string  `json:"owner"`      // territory assignment
}
