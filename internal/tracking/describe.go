package tracking

import "strings"

// KnownEventTypes are the event kinds the tracking tools advertise. Other
// types returned by the API pass through untouched.
var KnownEventTypes = []string{
	"open",
	"click",
	"sent",
	"bounce",
	"unsubscribe",
	"subscribe",
	"reply",
	"forward",
	"update",
	"deal_add",
	"deal_update",
	"deal_delete",
	"note_add",
	"task_add",
	"automation_start",
	"automation_complete",
}

var descriptions = map[string]string{
	"open":                "Email was opened",
	"click":               "Link in the email was clicked",
	"sent":                "Email was sent",
	"bounce":              "Email bounced",
	"unsubscribe":         "Contact unsubscribed",
	"subscribe":           "Contact subscribed",
	"reply":               "Contact replied to the email",
	"forward":             "Email was forwarded",
	"update":              "Contact details were updated",
	"deal_add":            "Deal was added",
	"deal_update":         "Deal was updated",
	"deal_delete":         "Deal was deleted",
	"note_add":            "Note was added",
	"task_add":            "Task was added",
	"automation_start":    "Automation was started",
	"automation_complete": "Automation was completed",
}

// Describe returns a human-readable description of an event type, matched
// case-insensitively. Unknown types are returned verbatim.
func Describe(eventType string) string {
	if d, ok := descriptions[strings.ToLower(eventType)]; ok {
		return d
	}
	return eventType
}
