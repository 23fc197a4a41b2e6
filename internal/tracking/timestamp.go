package tracking

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// NotAvailable replaces values that are missing or could not be resolved.
const NotAvailable = "N/A"

// isoLayout is ISO-8601 in UTC with millisecond precision.
const isoLayout = "2006-01-02T15:04:05.000Z"

// maxUnixSeconds is 9999-12-31T23:59:59Z, the last second a four-digit
// year can hold.
const maxUnixSeconds = 253402300799

// timeLayouts are the string forms accepted for event timestamps. Layouts
// without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NormalizeTimestamp converts a raw tstamp into an ISO-8601 string. JSON
// strings are parsed as dates (or as Unix seconds when purely numeric), JSON
// numbers as Unix seconds. Anything missing, unparseable or non-positive
// yields NotAvailable.
func NormalizeTimestamp(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return NotAvailable
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return NotAvailable
		}
		return normalizeString(s)
	case 'n', 't', 'f', '{', '[':
		return NotAvailable
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return NotAvailable
		}
		return fromUnixSeconds(f)
	}
}

func normalizeString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotAvailable
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromUnixSeconds(f)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(isoLayout)
		}
	}
	return NotAvailable
}

func fromUnixSeconds(f float64) string {
	if math.IsNaN(f) || f <= 0 || f > maxUnixSeconds {
		return NotAvailable
	}
	sec, frac := math.Modf(f)
	ms := math.Round(frac * 1000)
	return time.Unix(int64(sec), int64(ms)*int64(time.Millisecond)).UTC().Format(isoLayout)
}
