package activecampaign

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrorBody bounds how much of an upstream error body ends up in messages.
const maxErrorBody = 512

// TransportError is returned for every failed upstream call: non-2xx
// responses, timeouts and unreachable hosts. Status is 0 when no response
// was received.
type TransportError struct {
	Method string
	Path   string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.Path, e.Err)
	}
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("%s %s: API error (status %d): %s", e.Method, e.Path, e.Status, body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Status == http.StatusNotFound
}
