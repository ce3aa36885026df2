package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", SourceRecord{FirstName: "Jane", LastName: "Doe"}.FullName())
	assert.Equal(t, "Jane", SourceRecord{FirstName: "Jane"}.FullName())
	assert.Equal(t, "Doe", SourceRecord{LastName: "Doe"}.FullName())
	assert.Equal(t, "", SourceRecord{}.FullName())
}

func TestEnrichedRecord_Changed(t *testing.T) {
	r := EnrichedRecord{FieldStatuses: map[string]FieldStatus{
		"email": FieldUnchanged,
		"phone": FieldUnchanged,
	}}
	assert.False(t, r.Changed())

	r.FieldStatuses["title"] = FieldUpdated
	assert.True(t, r.Changed())
	assert.Equal(t, []string{"title"}, r.ChangedFields())
}

