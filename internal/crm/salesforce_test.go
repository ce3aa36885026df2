package crm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadsync-cli/internal/model"
	"github.com/sells-group/leadsync-cli/internal/reconcile"
	"github.com/sells-group/leadsync-cli/pkg/salesforce"
)

// fakeSalesforce implements salesforce.Client for testing.
type fakeSalesforce struct {
	queryFn     func(ctx context.Context, soql string, out any) error
	insertOneFn func(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	updateOneFn func(ctx context.Context, sObjectName string, id string, fields map[string]any) error
}

func (f *fakeSalesforce) Query(ctx context.Context, soql string, out any) error {
	if f.queryFn != nil {
		return f.queryFn(ctx, soql, out)
	}
	return nil
}

func (f *fakeSalesforce) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	if f.insertOneFn != nil {
		return f.insertOneFn(ctx, sObjectName, record)
	}
	return "", nil
}

func (f *fakeSalesforce) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	if f.updateOneFn != nil {
		return f.updateOneFn(ctx, sObjectName, id, fields)
	}
	return nil
}

func TestSalesforceTarget_LookupPerson(t *testing.T) {
	client := &fakeSalesforce{
		queryFn: func(_ context.Context, soql string, out any) error {
			require.Contains(t, soql, "FROM Contact")
			contacts := out.(*[]salesforce.Contact)
			*contacts = []salesforce.Contact{{
				ID:        "003X",
				FirstName: "Ada",
				LastName:  "Lovelace",
				Email:     "ada@acme.io",
				Title:     "CTO",
				AccountID: "001X",
				OwnerID:   "005X",
			}}
			return nil
		},
	}

	ent, err := NewSalesforceTarget(client).Lookup(context.Background(), KindPerson, "ada@acme.io")
	require.NoError(t, err)
	require.NotNil(t, ent)
	assert.Equal(t, "003X", ent.ID)
	assert.Equal(t, "Ada", ent.Fields["FirstName"])
	assert.Equal(t, "CTO", ent.Fields["Title"])
	assert.Equal(t, "001X", ent.Fields["AccountId"])
	assert.Equal(t, "005X", ent.Fields["OwnerId"])
	assert.NotContains(t, ent.Fields, "Phone")
}

func TestSalesforceTarget_LookupPerson_NotFound(t *testing.T) {
	ent, err := NewSalesforceTarget(&fakeSalesforce{}).Lookup(context.Background(), KindPerson, "nobody@acme.io")
	require.NoError(t, err)
	assert.Nil(t, ent)
}

func TestSalesforceTarget_LookupCompany(t *testing.T) {
	client := &fakeSalesforce{
		queryFn: func(_ context.Context, soql string, out any) error {
			require.Contains(t, soql, "FROM Account")
			accounts := out.(*[]salesforce.Account)
			*accounts = []salesforce.Account{{ID: "001X", Name: "Acme", Website: "https://acme.io"}}
			return nil
		},
	}

	ent, err := NewSalesforceTarget(client).Lookup(context.Background(), KindCompany, "acme.io")
	require.NoError(t, err)
	require.NotNil(t, ent)
	assert.Equal(t, "001X", ent.ID)
	assert.Equal(t, "Acme", ent.Fields["Name"])
}

func TestSalesforceTarget_UnsupportedKind(t *testing.T) {
	target := NewSalesforceTarget(&fakeSalesforce{})

	_, err := target.Lookup(context.Background(), KindDeal, "x")
	assert.Error(t, err)
	_, err = target.Create(context.Background(), KindActivity, nil)
	assert.Error(t, err)
	err = target.Update(context.Background(), KindDeal, "1", nil)
	assert.Error(t, err)
}

func TestSalesforceTarget_CreateContactLinksAccount(t *testing.T) {
	var gotObject string
	var gotRecord map[string]any
	client := &fakeSalesforce{
		insertOneFn: func(_ context.Context, sObjectName string, record map[string]any) (string, error) {
			gotObject = sObjectName
			gotRecord = record
			return "003X", nil
		},
	}

	id, err := NewSalesforceTarget(client).Create(context.Background(), KindPerson, map[string]any{
		"LastName":  "Lovelace",
		"AccountId": "001X",
	})
	require.NoError(t, err)
	assert.Equal(t, "003X", id)
	assert.Equal(t, "Contact", gotObject)
	assert.Equal(t, "001X", gotRecord["AccountId"])
	assert.Equal(t, "Lovelace", gotRecord["LastName"])
}

func TestSalesforceTarget_CreateAccount(t *testing.T) {
	client := &fakeSalesforce{
		insertOneFn: func(_ context.Context, sObjectName string, record map[string]any) (string, error) {
			assert.Equal(t, "Account", sObjectName)
			assert.Equal(t, "Acme", record["Name"])
			return "001X", nil
		},
	}

	id, err := NewSalesforceTarget(client).Create(context.Background(), KindCompany, map[string]any{"Name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "001X", id)
}

func TestSalesforceTarget_UpdateCarriesAccountID(t *testing.T) {
	var gotFields map[string]any
	client := &fakeSalesforce{
		updateOneFn: func(_ context.Context, sObjectName, id string, fields map[string]any) error {
			assert.Equal(t, "Contact", sObjectName)
			assert.Equal(t, "003X", id)
			gotFields = fields
			return nil
		},
	}

	err := NewSalesforceTarget(client).Update(context.Background(), KindPerson, "003X", map[string]any{
		"Phone":     "+15559999",
		"AccountId": "001X",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Phone": "+15559999", "AccountId": "001X"}, gotFields)
}

func TestSalesforceFields(t *testing.T) {
	rec := model.EnrichedRecord{
		SourceRecord: model.SourceRecord{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@acme.io",
			Title:     "CTO",
		},
		Departments: []string{"engineering", "executive"},
	}
	metrics := model.DerivedMetrics{Owner: "005X"}

	fields := SalesforceFields(rec, metrics, "001X")
	assert.Equal(t, "Ada", fields["FirstName"])
	assert.Equal(t, "Lovelace", fields["LastName"])
	assert.Equal(t, "CTO", fields["Title"])
	assert.Equal(t, "engineering", fields["Department"])
	assert.Equal(t, "005X", fields["OwnerId"])
	assert.Equal(t, "001X", fields["AccountId"])
	assert.NotContains(t, fields, "Phone")
}

// A second sync of an already-synced contact must diff clean: the lookup
// surfaces every field the mapper writes, so nothing changes and no update
// is issued.
func TestSalesforceTarget_ResyncUnchanged(t *testing.T) {
	rec := model.EnrichedRecord{
		SourceRecord: model.SourceRecord{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@acme.io",
			Phone:     "+15550100",
			Title:     "CTO",
		},
		Departments: []string{"engineering"},
	}
	metrics := model.DerivedMetrics{Owner: "005X"}

	mapper := SalesforceMapper{}
	person := mapper.PersonFields(rec, metrics)
	mapper.LinkCompany(person, "001X")

	client := &fakeSalesforce{
		queryFn: func(_ context.Context, _ string, out any) error {
			contacts := out.(*[]salesforce.Contact)
			*contacts = []salesforce.Contact{{
				ID:         "003X",
				FirstName:  "Ada",
				LastName:   "Lovelace",
				Email:      "ada@acme.io",
				Phone:      "+15550100",
				Title:      "CTO",
				Department: "engineering",
				AccountID:  "001X",
				OwnerID:    "005X",
			}}
			return nil
		},
		insertOneFn: func(context.Context, string, map[string]any) (string, error) {
			t.Fatal("re-sync of an unchanged contact must not insert")
			return "", nil
		},
		updateOneFn: func(context.Context, string, string, map[string]any) error {
			t.Fatal("re-sync of an unchanged contact must not update")
			return nil
		},
	}

	res, err := reconcile.New(NewSalesforceTarget(client)).
		Reconcile(context.Background(), KindPerson, "ada@acme.io", person)
	require.NoError(t, err)
	assert.Equal(t, model.OpUnchanged, res.Op)
	assert.Equal(t, "003X", res.TargetID)
}

func TestSalesforceAccountFields(t *testing.T) {
	rec := model.EnrichedRecord{SourceRecord: model.SourceRecord{Company: "Acme", Domain: "acme.io"}}

	fields := SalesforceAccountFields(rec)
	assert.Equal(t, "Acme", fields["Name"])
	assert.True(t, strings.HasSuffix(fields["Website"].(string), "acme.io"))
}
