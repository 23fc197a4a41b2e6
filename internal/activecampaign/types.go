package activecampaign

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an ActiveCampaign identifier. The v3 API sends ids as JSON strings,
// but some sideloaded records carry plain numbers, so both are accepted.
type ID string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("activecampaign: invalid id %s", data)
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier as sent by the API.
func (id ID) String() string { return string(id) }

// Count is a metadata counter. The API reports totals as numeric strings.
type Count int

// UnmarshalJSON accepts "12", 12 or null. Unparseable values decode to zero.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*c = 0
		return nil
	}
	*c = Count(f)
	return nil
}

// Contact is a contact record as returned by /api/3/contacts.
type Contact struct {
	ID           ID            `json:"id"`
	Email        string        `json:"email"`
	FirstName    string        `json:"firstName"`
	LastName     string        `json:"lastName"`
	Phone        string        `json:"phone"`
	CDate        string        `json:"cdate,omitempty"`
	UDate        string        `json:"udate,omitempty"`
	FieldValues  []FieldValue  `json:"fieldValues,omitempty"`
	Tags         []ID          `json:"tags,omitempty"`
	ContactLists []ContactList `json:"contactLists,omitempty"`
}

// UnmarshalJSON decodes the relation collections item by item. They only
// feed denormalization, so an item of unexpected shape degrades to its raw
// identifier instead of failing the whole contact.
func (c *Contact) UnmarshalJSON(data []byte) error {
	type plain Contact
	var aux struct {
		plain
		FieldValues  json.RawMessage `json:"fieldValues"`
		Tags         json.RawMessage `json:"tags"`
		ContactLists json.RawMessage `json:"contactLists"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Contact(aux.plain)

	for _, item := range rawItems(aux.FieldValues) {
		c.FieldValues = append(c.FieldValues, decodeFieldValue(item))
	}
	for _, item := range rawItems(aux.Tags) {
		c.Tags = append(c.Tags, decodeTagRef(item))
	}
	for _, item := range rawItems(aux.ContactLists) {
		c.ContactLists = append(c.ContactLists, decodeContactList(item))
	}
	return nil
}

// FieldValue is a custom field value attached to a contact.
type FieldValue struct {
	Field ID     `json:"field"`
	Value string `json:"value"`
}

// ContactList is a contact's membership in a list.
type ContactList struct {
	List ID `json:"list"`
	// Status is the numeric membership status (1 active, 2 unsubscribed, ...).
	Status ID `json:"status"`
}

// rawItems splits a JSON array. Anything that is not an array yields nothing.
func rawItems(data json.RawMessage) []json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	return items
}

func isObject(item json.RawMessage) bool {
	item = bytes.TrimSpace(item)
	return len(item) > 0 && item[0] == '{'
}

// rawID renders an item as an identifier: strings unquoted, anything else
// as its compact JSON text.
func rawID(item json.RawMessage) ID {
	var id ID
	if err := json.Unmarshal(item, &id); err == nil {
		return id
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, item); err != nil {
		return ID(bytes.TrimSpace(item))
	}
	return ID(buf.String())
}

// valueText renders a field value. Custom field values are strings upstream,
// but numbers and booleans show up too; null is empty.
func valueText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return rawID(v).String()
}

func decodeFieldValue(item json.RawMessage) FieldValue {
	if !isObject(item) {
		return FieldValue{Field: rawID(item)}
	}
	var fv struct {
		Field ID              `json:"field"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(item, &fv); err != nil {
		return FieldValue{Field: rawID(item)}
	}
	return FieldValue{Field: fv.Field, Value: valueText(fv.Value)}
}

// decodeTagRef accepts a tag id or a contactTag object, whose tag id is
// under "tag".
func decodeTagRef(item json.RawMessage) ID {
	if !isObject(item) {
		return rawID(item)
	}
	var ct struct {
		ID  ID `json:"id"`
		Tag ID `json:"tag"`
	}
	if err := json.Unmarshal(item, &ct); err != nil {
		return rawID(item)
	}
	if ct.Tag != "" {
		return ct.Tag
	}
	return ct.ID
}

func decodeContactList(item json.RawMessage) ContactList {
	if !isObject(item) {
		return ContactList{List: rawID(item)}
	}
	var cl ContactList
	if err := json.Unmarshal(item, &cl); err != nil {
		return ContactList{List: rawID(item)}
	}
	return cl
}

// Field is a custom field definition.
type Field struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Type    string `json:"type,omitempty"`
	Perstag string `json:"perstag,omitempty"`
}

// Tag is a tag definition.
type Tag struct {
	ID          ID     `json:"id"`
	Tag         string `json:"tag"`
	TagType     string `json:"tagType,omitempty"`
	Description string `json:"description,omitempty"`
}

// List is a mailing list definition.
type List struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	StringID string `json:"stringid,omitempty"`
}

// Campaign is the subset of a campaign record used for display.
type Campaign struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// TrackingLog is one event from /api/3/contacts/{id}/trackingLogs.
// Tstamp is kept raw because the API sends either an ISO string or Unix seconds.
type TrackingLog struct {
	ID           ID              `json:"id"`
	Type         string          `json:"type"`
	Tstamp       json.RawMessage `json:"tstamp,omitempty"`
	Contact      ID              `json:"contact"`
	SubscriberID ID              `json:"subscriberid,omitempty"`
	Hash         string          `json:"hash,omitempty"`
	Campaign     ID              `json:"campaign,omitempty"`
	Automation   ID              `json:"automation,omitempty"`
	Email        ID              `json:"email,omitempty"`
	Link         ID              `json:"link,omitempty"`
	Value        json.RawMessage `json:"value,omitempty"`
	Links        json.RawMessage `json:"links,omitempty"`
	EventData    json.RawMessage `json:"eventdata,omitempty"`
}

// Meta is the pagination block shared by list endpoints.
type Meta struct {
	Total  Count `json:"total"`
	Count  Count `json:"count"`
	Limit  Count `json:"limit"`
	Offset Count `json:"offset"`
}

// ContactListResponse is the body of GET /api/3/contacts.
type ContactListResponse struct {
	Contacts []Contact `json:"contacts"`
	Meta     *Meta     `json:"meta,omitempty"`
}

type contactResponse struct {
	Contact *Contact `json:"contact"`
}

type fieldsResponse struct {
	Fields []Field `json:"fields"`
}

type tagsResponse struct {
	Tags []Tag `json:"tags"`
}

type listsResponse struct {
	Lists []List `json:"lists"`
}

type campaignResponse struct {
	Campaign *Campaign `json:"campaign"`
}

// TrackingLogsResponse is the body of GET /api/3/contacts/{id}/trackingLogs.
type TrackingLogsResponse struct {
	TrackingLogs []TrackingLog `json:"trackingLogs"`
	Meta         *Meta         `json:"meta,omitempty"`
}
