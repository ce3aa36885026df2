package surfe

import "time"

// Person is one identity hint in a bulk enrichment request. At least one of
// LinkedInURL, name+company, or name+website must be set for Surfe to match.
type Person struct {
	ExternalID     string `json:"externalID,omitempty"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	CompanyName    string `json:"companyName,omitempty"`
	CompanyWebsite string `json:"companyWebsite,omitempty"`
	LinkedInURL    string `json:"linkedinUrl,omitempty"`
}

// Include selects which attributes the enrichment should resolve.
type Include struct {
	Email  bool `json:"email"`
	Mobile bool `json:"mobile"`
}

// EnrichmentRequest is the body for POST /v2/people/enrich.
type EnrichmentRequest struct {
	Include Include  `json:"include"`
	People  []Person `json:"people"`
}

// EnrichmentResponse is the response from POST /v2/people/enrich.
type EnrichmentResponse struct {
	ID string `json:"enrichmentID"`
}

// Wire statuses returned by GET /v2/people/enrich/{id}.
const (
	statusInProgress = "IN_PROGRESS"
	statusCompleted  = "COMPLETED"
	statusFailed     = "FAILED"
)

// EnrichmentStatus is the response from GET /v2/people/enrich/{id}.
type EnrichmentStatus struct {
	Status string           `json:"status"`
	Error  string           `json:"error,omitempty"`
	People []EnrichedPerson `json:"people,omitempty"`
}

// EmailResult is a single resolved email with its validation status.
type EmailResult struct {
	Email            string `json:"email"`
	ValidationStatus string `json:"validationStatus"`
}

// MobileResult is a single resolved mobile number with a confidence score.
type MobileResult struct {
	MobilePhone     string  `json:"mobilePhone"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// EnrichedPerson is one enrichment result, keyed back to the request via
// ExternalID (when supplied) or batch order.
type EnrichedPerson struct {
	ExternalID     string         `json:"externalID,omitempty"`
	FirstName      string         `json:"firstName,omitempty"`
	LastName       string         `json:"lastName,omitempty"`
	CompanyName    string         `json:"companyName,omitempty"`
	CompanyWebsite string         `json:"companyWebsite,omitempty"`
	LinkedInURL    string         `json:"linkedinUrl,omitempty"`
	JobTitle       string         `json:"jobTitle,omitempty"`
	Country        string         `json:"country,omitempty"`
	Seniorities    []string       `json:"seniorities,omitempty"`
	Departments    []string       `json:"departments,omitempty"`
	Emails         []EmailResult  `json:"emails,omitempty"`
	MobilePhones   []MobileResult `json:"mobilePhones,omitempty"`
}

// BestEmail returns the most trustworthy resolved email: a VALID one if
// present, otherwise the first. Empty string when nothing was resolved.
func (p EnrichedPerson) BestEmail() string {
	if len(p.Emails) == 0 {
		return ""
	}
	for _, e := range p.Emails {
		if e.ValidationStatus == "VALID" {
			return e.Email
		}
	}
	return p.Emails[0].Email
}

// HasValidEmail reports whether any resolved email passed validation.
func (p EnrichedPerson) HasValidEmail() bool {
	for _, e := range p.Emails {
		if e.ValidationStatus == "VALID" {
			return true
		}
	}
	return false
}

// BestMobile returns the mobile number with the highest confidence score,
// or "" when none was resolved.
func (p EnrichedPerson) BestMobile() string {
	best := ""
	bestScore := -1.0
	for _, m := range p.MobilePhones {
		if m.ConfidenceScore > bestScore {
			best = m.MobilePhone
			bestScore = m.ConfidenceScore
		}
	}
	return best
}

// SearchResult is the response from GET /v1/people/search/byEmail.
type SearchResult struct {
	Person EnrichedPerson `json:"person"`
}

// JobStatus is the lifecycle state of an enrichment job as observed by the
// poller. Transitions are monotonic: submitted -> polling -> one of
// {completed, failed, timed_out}. Terminal states admit no further change.
type JobStatus string

const (
	JobSubmitted JobStatus = "submitted"
	JobPolling   JobStatus = "polling"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobTimedOut  JobStatus = "timed_out"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobTimedOut
}

// Job tracks one bulk enrichment job from submission to completion.
type Job struct {
	ID          string           `json:"id"`
	Status      JobStatus        `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	People      []EnrichedPerson `json:"people,omitempty"`
}

// transition advances the job status, refusing to leave a terminal state.
func (j *Job) transition(next JobStatus) {
	if j.Status.Terminal() {
		return
	}
	j.Status = next
}
