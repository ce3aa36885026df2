package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Contact represents a Salesforce Contact record.
type Contact struct {
	ID         string `json:"Id" salesforce:"Id"`
	FirstName  string `json:"FirstName" salesforce:"FirstName"`
	LastName   string `json:"LastName" salesforce:"LastName"`
	Email      string `json:"Email" salesforce:"Email"`
	Phone      string `json:"Phone" salesforce:"Phone"`
	Title      string `json:"Title" salesforce:"Title"`
	Department string `json:"Department" salesforce:"Department"`
	AccountID  string `json:"AccountId" salesforce:"AccountId"`
	OwnerID    string `json:"OwnerId" salesforce:"OwnerId"`
}

// contactFields are the SOQL fields selected for Contact queries. The set
// must cover every field the sync writes, or re-syncs of an unchanged
// contact would diff against missing values and issue spurious updates.
var contactFields = []string{
	"Id", "FirstName", "LastName", "Email", "Phone", "Title", "Department",
	"AccountId", "OwnerId",
}

// Account represents a Salesforce Account record.
type Account struct {
	ID       string `json:"Id" salesforce:"Id"`
	Name     string `json:"Name" salesforce:"Name"`
	Website  string `json:"Website" salesforce:"Website"`
	Industry string `json:"Industry" salesforce:"Industry"`
}

// accountFields are the SOQL fields selected for Account queries.
var accountFields = []string{"Id", "Name", "Website", "Industry"}

// FindContactByEmail queries Salesforce for a Contact with the given email.
// Returns nil if no contact is found.
func FindContactByEmail(ctx context.Context, c Client, email string) (*Contact, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Contact WHERE Email = '%s' LIMIT 1",
		strings.Join(contactFields, ", "),
		escapeSoql(email),
	)

	var contacts []Contact
	if err := c.Query(ctx, soql, &contacts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find contact by email %s", email))
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	return &contacts[0], nil
}

// FindAccountByWebsite queries Salesforce for an Account whose website
// contains the given domain. Returns nil if no account is found.
func FindAccountByWebsite(ctx context.Context, c Client, domain string) (*Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Website LIKE '%%%s%%' LIMIT 1",
		strings.Join(accountFields, ", "),
		escapeSoql(domain),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find account by website %s", domain))
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
