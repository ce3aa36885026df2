// Package identity derives stable lookup keys from source records.
//
// A key is a normalized company domain or email address. It is used both
// as the enrichment lookup hint and as the dedup key against the target
// system, so the same normalization must be applied everywhere.
package identity

import (
	"errors"
	"strings"

	"github.com/sells-group/leadsync-cli/internal/model"
)

// KeyKind distinguishes domain-derived keys from email-derived ones.
type KeyKind string

const (
	KindDomain KeyKind = "domain"
	KindEmail  KeyKind = "email"
)

// Key is a normalized identity key.
type Key struct {
	Value string
	Kind  KeyKind
}

// String returns the normalized key value.
func (k Key) String() string { return k.Value }

var (
	// ErrUnresolvable means the record has no domain and no email to key on.
	ErrUnresolvable = errors.New("identity: no resolvable key")
	// ErrGenericProvider means the derived domain is a shared email provider.
	ErrGenericProvider = errors.New("identity: generic email provider")
)

// defaultDenyList covers the shared providers that never identify a company.
var defaultDenyList = []string{
	"gmail.com",
	"outlook.com",
	"yahoo.com",
	"hotmail.com",
}

// Extractor derives identity keys subject to a generic-provider deny-list.
type Extractor struct {
	deny map[string]bool
}

// NewExtractor builds an Extractor. The extra domains are added to the
// built-in deny-list (gmail, outlook, yahoo, hotmail).
func NewExtractor(extraDeny []string) *Extractor {
	deny := make(map[string]bool, len(defaultDenyList)+len(extraDeny))
	for _, d := range defaultDenyList {
		deny[d] = true
	}
	for _, d := range extraDeny {
		d = NormalizeDomain(d)
		if d != "" {
			deny[d] = true
		}
	}
	return &Extractor{deny: deny}
}

// Extract derives the identity key for a record. An explicit company domain
// wins over the email domain. Returns ErrUnresolvable when neither is
// present, ErrGenericProvider when the result is a deny-listed provider.
func (e *Extractor) Extract(rec model.SourceRecord) (Key, error) {
	if d := NormalizeDomain(rec.Domain); d != "" {
		if e.deny[d] {
			return Key{}, ErrGenericProvider
		}
		return Key{Value: d, Kind: KindDomain}, nil
	}

	email := strings.ToLower(strings.TrimSpace(rec.Email))
	if at := strings.LastIndex(email, "@"); at > 0 && at < len(email)-1 {
		d := NormalizeDomain(email[at+1:])
		if d == "" {
			return Key{}, ErrUnresolvable
		}
		if e.deny[d] {
			return Key{}, ErrGenericProvider
		}
		return Key{Value: email, Kind: KindEmail}, nil
	}

	return Key{}, ErrUnresolvable
}

// Domain returns the company domain behind the key: the key itself for
// domain keys, the part after "@" for email keys.
func (k Key) Domain() string {
	if k.Kind == KindEmail {
		if at := strings.LastIndex(k.Value, "@"); at >= 0 {
			return k.Value[at+1:]
		}
	}
	return k.Value
}

// NormalizeDomain lowercases a domain or URL and strips scheme, path,
// port, and a leading "www.". Returns "" for input that is not a domain.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	if d == "" {
		return ""
	}
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	d = strings.Trim(d, ".")
	if d == "" || !strings.Contains(d, ".") {
		return ""
	}
	return d
}
