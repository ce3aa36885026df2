// Package crm adapts CRM and webinar systems to the sync pipeline: each
// system gets a source adapter (pull person records), a target adapter
// (create-or-update writes for the reconciler), or both.
package crm

// Entity kinds understood by the target adapters. Each adapter translates
// these to its own object types; unknown kinds are rejected.
const (
	KindPerson   = "person"
	KindCompany  = "company"
	KindDeal     = "deal"
	KindActivity = "activity"
)
