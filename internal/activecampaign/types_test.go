package activecampaign

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDDecoding(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`"12"`, "12"},
		{`12`, "12"},
		{`null`, ""},
		{`""`, ""},
	}
	for _, tt := range tests {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(tt.in), &id), tt.in)
		assert.Equal(t, tt.want, id, tt.in)
	}

	var id ID
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
}

func TestCountDecoding(t *testing.T) {
	var m Meta
	require.NoError(t, json.Unmarshal([]byte(`{"total":"31","count":3,"limit":null,"offset":"x"}`), &m))
	assert.Equal(t, Count(31), m.Total)
	assert.Equal(t, Count(3), m.Count)
	assert.Equal(t, Count(0), m.Limit)
	assert.Equal(t, Count(0), m.Offset)
}

func TestContactDecodingWithRelations(t *testing.T) {
	raw := `{
		"id": "5", "email": "ana@example.com", "firstName": "Ana", "lastName": null,
		"fieldValues": [{"field": "1", "value": "Acme"}],
		"tags": ["10", 11],
		"contactLists": [{"list": "3", "status": 1}]
	}`
	var c Contact
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	assert.Equal(t, ID("5"), c.ID)
	assert.Equal(t, "", c.LastName)
	assert.Equal(t, []ID{"10", "11"}, c.Tags)
	require.Len(t, c.ContactLists, 1)
	assert.Equal(t, ID("1"), c.ContactLists[0].Status)
}

func TestContactDecodingToleratesRelationShapes(t *testing.T) {
	raw := `{
		"id": "7", "email": "bo@example.com",
		"fieldValues": [{"field": "1", "value": 5}, {"field": "2", "value": true}, {"field": "3", "value": null}, {"field": {"id": "4"}}],
		"tags": [{"id": "900", "tag": "10"}, ["x"]],
		"contactLists": [{"list": "3", "status": 1}, "12", {"list": ["bad"]}]
	}`
	var c Contact
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	assert.Equal(t, "bo@example.com", c.Email)
	assert.Equal(t, []FieldValue{
		{Field: "1", Value: "5"},
		{Field: "2", Value: "true"},
		{Field: "3", Value: ""},
		{Field: `{"field":{"id":"4"}}`},
	}, c.FieldValues)
	assert.Equal(t, []ID{"10", `["x"]`}, c.Tags)
	assert.Equal(t, []ContactList{
		{List: "3", Status: "1"},
		{List: "12"},
		{List: `{"list":["bad"]}`},
	}, c.ContactLists)
}

func TestContactDecodingAcceptsIDArrays(t *testing.T) {
	var c Contact
	require.NoError(t, json.Unmarshal([]byte(`{"id":"7","fieldValues":["1","2"],"contactLists":[31],"tags":"oops"}`), &c))
	assert.Equal(t, []FieldValue{{Field: "1"}, {Field: "2"}}, c.FieldValues)
	assert.Equal(t, []ContactList{{List: "31"}}, c.ContactLists)
	assert.Empty(t, c.Tags)
}
