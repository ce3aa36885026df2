// Package merge combines a source record with its enrichment result,
// deciding per field whether to fill, update, or leave alone.
package merge

import (
	"strings"

	"github.com/sells-group/leadsync-cli/internal/identity"
	"github.com/sells-group/leadsync-cli/internal/model"
	"github.com/sells-group/leadsync-cli/pkg/surfe"
)

// Field names used in EnrichedRecord.FieldStatuses.
const (
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldCompany     = "company"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldTitle       = "title"
	FieldDomain      = "domain"
	FieldLinkedInURL = "linkedin_url"
)

// overridable lists the fields where an enriched value may replace an
// existing source value. Names and company identity are never overridden;
// a different enrichment match there means a bad match, not better data.
var overridable = map[string]bool{
	FieldEmail: true,
	FieldPhone: true,
	FieldTitle: true,
}

// Merge applies the enrichment result to a source record. Empty source
// fields are filled; present fields are updated only when the field is
// override-eligible and the enriched value differs. Every touched field is
// tagged so callers can skip target writes for all-unchanged records.
// Merging a record with an identical enrichment result yields a record
// with every field unchanged.
func Merge(src model.SourceRecord, p surfe.EnrichedPerson) model.EnrichedRecord {
	out := model.EnrichedRecord{
		SourceRecord:   src,
		Seniorities:    p.Seniorities,
		Departments:    p.Departments,
		Country:        p.Country,
		EmailValidated: p.HasValidEmail(),
		FieldStatuses:  make(map[string]model.FieldStatus),
	}

	mergeField(&out, FieldFirstName, &out.FirstName, p.FirstName)
	mergeField(&out, FieldLastName, &out.LastName, p.LastName)
	mergeField(&out, FieldCompany, &out.Company, p.CompanyName)
	mergeField(&out, FieldEmail, &out.Email, p.BestEmail())
	mergeField(&out, FieldPhone, &out.Phone, p.BestMobile())
	mergeField(&out, FieldTitle, &out.Title, p.JobTitle)
	mergeField(&out, FieldDomain, &out.Domain, identity.NormalizeDomain(p.CompanyWebsite))
	mergeField(&out, FieldLinkedInURL, &out.LinkedInURL, p.LinkedInURL)

	return out
}

// mergeField applies the fill/update/unchanged policy to a single field.
func mergeField(rec *model.EnrichedRecord, name string, dst *string, enriched string) {
	enriched = strings.TrimSpace(enriched)
	current := strings.TrimSpace(*dst)

	switch {
	case enriched == "" || equalFold(name, current, enriched):
		rec.FieldStatuses[name] = model.FieldUnchanged
	case current == "":
		*dst = enriched
		rec.FieldStatuses[name] = model.FieldFilled
	case overridable[name]:
		*dst = enriched
		rec.FieldStatuses[name] = model.FieldUpdated
	default:
		rec.FieldStatuses[name] = model.FieldUnchanged
	}
}

// equalFold compares values for the no-op check. Emails and domains are
// case-insensitive identifiers; everything else compares exactly.
func equalFold(name, a, b string) bool {
	switch name {
	case FieldEmail, FieldDomain:
		return strings.EqualFold(a, b)
	default:
		return a == b
	}
}
