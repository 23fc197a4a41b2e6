package mcp

import (
	"encoding/json"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mmarqueti/activecampaign-mcp-server/internal/contact"
	"github.com/mmarqueti/activecampaign-mcp-server/internal/tracking"
)

// Tool names exposed to MCP clients.
const (
	ToolContactByEmail      = "get_contact_by_email"
	ToolContactByID         = "get_contact_by_id"
	ToolSearchContacts      = "search_contacts"
	ToolTrackingLogs        = "get_contact_tracking_logs"
	ToolTrackingLogsByEmail = "get_contact_tracking_logs_by_email"
)

var contactTools = map[string]bool{
	ToolContactByEmail: true,
	ToolContactByID:    true,
	ToolSearchContacts: true,
}

var trackingTools = map[string]bool{
	ToolTrackingLogs:        true,
	ToolTrackingLogsByEmail: true,
}

var catalog = buildCatalog()

// Catalog returns the tool descriptors in listing order. The slice and the
// tools it points to are shared and must not be modified.
func Catalog() []*mcpsdk.Tool {
	return catalog
}

// Lookup returns the descriptor for name, or nil.
func Lookup(name string) *mcpsdk.Tool {
	for _, t := range catalog {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func buildCatalog() []*mcpsdk.Tool {
	return []*mcpsdk.Tool{
		{
			Name:        ToolContactByEmail,
			Description: "Look up an ActiveCampaign contact by email address",
			InputSchema: object([]string{"email"}, map[string]*jsonschema.Schema{
				"email": str("Email address of the contact"),
			}),
		},
		{
			Name:        ToolContactByID,
			Description: "Look up an ActiveCampaign contact by ID",
			InputSchema: object([]string{"contactId"}, map[string]*jsonschema.Schema{
				"contactId": str("ID of the contact"),
			}),
		},
		{
			Name:        ToolSearchContacts,
			Description: "Search ActiveCampaign contacts with a free-text filter",
			InputSchema: object([]string{"query"}, map[string]*jsonschema.Schema{
				"query": str("Search term (name, email, etc.)"),
				"limit": number("Maximum number of results (default: 20)", contact.DefaultSearchLimit, 0),
			}),
		},
		{
			Name:        ToolTrackingLogs,
			Description: "Fetch the event/tracking log of a specific contact",
			InputSchema: object([]string{"contactId"}, map[string]*jsonschema.Schema{
				"contactId": str("ID of the contact whose events are fetched"),
				"limit":     number("Maximum number of results (default: 100, maximum: 100)", tracking.DefaultLimit, tracking.MaxLimit),
				"offset":    number("Pagination offset (default: 0)", 0, 0),
				"eventType": eventTypeSchema(true),
				"dateRange": {
					Type:        "object",
					Description: "Restrict events to a date range",
					Properties: map[string]*jsonschema.Schema{
						"start": str("Start date (format: YYYY-MM-DD)"),
						"end":   str("End date (format: YYYY-MM-DD)"),
					},
				},
			}),
		},
		{
			Name:        ToolTrackingLogsByEmail,
			Description: "Fetch the event/tracking log of a contact by email address",
			InputSchema: object([]string{"email"}, map[string]*jsonschema.Schema{
				"email":     str("Email address of the contact whose events are fetched"),
				"limit":     number("Maximum number of results (default: 100)", tracking.DefaultLimit, tracking.MaxLimit),
				"offset":    number("Pagination offset (default: 0)", 0, 0),
				"eventType": eventTypeSchema(false),
			}),
		},
	}
}

func object(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

// number builds a numeric argument with a default; maximum 0 means unbounded.
func number(desc string, def, maximum int) *jsonschema.Schema {
	s := &jsonschema.Schema{Type: "number", Description: desc, Default: json.RawMessage(strconv.Itoa(def))}
	if maximum > 0 {
		m := float64(maximum)
		s.Maximum = &m
	}
	return s
}

func eventTypeSchema(withEnum bool) *jsonschema.Schema {
	s := str("Only return events of this type (optional)")
	if withEnum {
		for _, typ := range tracking.KnownEventTypes {
			s.Enum = append(s.Enum, typ)
		}
	}
	return s
}
