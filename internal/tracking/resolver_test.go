package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmarqueti/activecampaign-mcp-server/internal/activecampaign"
	"github.com/mmarqueti/activecampaign-mcp-server/internal/testutil"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newResolver(t *testing.T, h http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := activecampaign.New(activecampaign.Config{BaseURL: srv.URL, Token: "t", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return NewResolver(client, quiet)
}

const pageBody = `{
	"trackingLogs": [
		{"id":"1","type":"open","tstamp":"2024-03-01T12:00:00-06:00","contact":"42","subscriberid":"42","hash":"h1","campaign":"7","email":"3"},
		{"id":"2","type":"click","tstamp":1709316000,"contact":"42","campaign":"8","link":"55","automation":"9","value":"https://example.com","eventdata":{"ip":"1.2.3.4"}},
		{"id":"3","type":"open","tstamp":0,"contact":"42"},
		{"id":"4","type":"Custom_Thing","contact":"42","value":null}
	],
	"meta": {"total":"40","count":"4"}
}`

func TestLogsByContactIDEnrichesEvents(t *testing.T) {
	r := newResolver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/3/contacts/42/trackingLogs":
			q := r.URL.Query()
			assert.Equal(t, "25", q.Get("limit"))
			assert.Equal(t, "50", q.Get("offset"))
			assert.Equal(t, "open", q.Get("type"))
			assert.Equal(t, "2024-01-01", q.Get("after"))
			assert.Equal(t, "2024-12-31", q.Get("before"))
			_, _ = io.WriteString(w, pageBody)
		case "/api/3/campaigns/7":
			_, _ = io.WriteString(w, `{"campaign":{"id":"7","name":"Spring Sale"}}`)
		case "/api/3/campaigns/8":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	})

	rep, err := r.LogsByContactID(context.Background(), "42", Options{
		Limit: 25, Offset: 50, EventType: "open",
		DateRange: &DateRange{Start: "2024-01-01", End: "2024-12-31"},
	})
	require.NoError(t, err)
	require.Len(t, rep.Events, 4)

	first := rep.Events[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "2024-03-01T18:00:00.000Z", first.Date)
	assert.Equal(t, "Email was opened", first.Description)
	assert.Equal(t, &CampaignRef{ID: "7", Name: "Spring Sale"}, first.Campaign)
	assert.Equal(t, &Ref{ID: "3"}, first.Email)
	assert.Equal(t, "42", first.SubscriberID)
	assert.Nil(t, first.Link)

	second := rep.Events[1]
	assert.Equal(t, &CampaignRef{ID: "8", Name: NotAvailable}, second.Campaign)
	assert.Equal(t, &Ref{ID: "55"}, second.Link)
	assert.Equal(t, &Ref{ID: "9"}, second.Automation)
	assert.JSONEq(t, `"https://example.com"`, string(second.Value))
	assert.JSONEq(t, `{"ip":"1.2.3.4"}`, string(second.EventData))
	assert.Equal(t, "2024-03-01T18:00:00.000Z", second.Date)

	assert.Equal(t, NotAvailable, rep.Events[2].Date)
	assert.Nil(t, rep.Events[2].Timestamp)

	fourth := rep.Events[3]
	assert.Equal(t, "Custom_Thing", fourth.Description)
	assert.Equal(t, NotAvailable, fourth.Date)
	assert.Nil(t, fourth.Value)
	assert.Nil(t, fourth.Campaign)

	assert.Equal(t, 40, rep.Summary.Total)
	assert.Equal(t, 4, rep.Summary.Count)
	assert.Equal(t, 25, rep.Summary.Limit, "falls back to requested limit")
	assert.Equal(t, 50, rep.Summary.Offset)
	assert.Equal(t, map[string]int{"open": 2, "click": 1, "Custom_Thing": 1}, rep.Summary.EventTypes)
}

func TestLogsByContactIDDefaults(t *testing.T) {
	r := newResolver(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "0", q.Get("offset"))
		assert.False(t, q.Has("type"))
		assert.False(t, q.Has("after"))
		_, _ = io.WriteString(w, `{"trackingLogs":[]}`)
	})

	rep, err := r.LogsByContactID(context.Background(), "42", Options{Limit: 500, Offset: -3})
	require.NoError(t, err)
	assert.Empty(t, rep.Events)
	assert.NotNil(t, rep.Events)
	assert.Equal(t, Summary{Total: 0, Count: 0, Limit: 100, Offset: 0, EventTypes: map[string]int{}}, rep.Summary)

	out, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":{"total":0,"count":0,"limit":100,"offset":0,"eventTypes":{}},"events":[]}`, string(out))
}

func TestSummaryPagingFallsBackToRequest(t *testing.T) {
	r := newResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"trackingLogs":[],"meta":{"total":"3"}}`)
	})

	rep, err := r.LogsByContactID(context.Background(), "42", Options{Limit: 7, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 7, rep.Summary.Limit)
	assert.Equal(t, 2, rep.Summary.Offset)
	assert.Equal(t, 3, rep.Summary.Total)
}

func TestLogsByContactIDUpstreamError(t *testing.T) {
	r := newResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"You do not have permission"}`)
	})

	_, err := r.LogsByContactID(context.Background(), "42", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch tracking logs")
	assert.Contains(t, err.Error(), "status 403")
}

func TestLogsByEmailNotFoundSkipsTrackingRequest(t *testing.T) {
	var trackingCalls atomic.Int32
	r := newResolver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/3/contacts":
			assert.Equal(t, "x@example.com", r.URL.Query().Get("email"))
			assert.False(t, r.URL.Query().Has("include"))
			_, _ = io.WriteString(w, `{"contacts":[]}`)
		default:
			trackingCalls.Add(1)
		}
	})

	_, err := r.LogsByEmail(context.Background(), "x@example.com", Options{})
	assert.True(t, errors.Is(err, ErrContactNotFound))
	assert.Equal(t, int32(0), trackingCalls.Load())
}

func TestLogsByEmailReplay(t *testing.T) {
	rec, stop := testutil.NewVCRRecorder(t, "tracking")
	defer stop()

	client, err := activecampaign.New(activecampaign.Config{
		BaseURL:    "https://example.api-us1.com",
		Token:      "redacted",
		HTTPClient: testutil.VCRHTTPClient(rec),
	})
	require.NoError(t, err)

	rep, err := NewResolver(client, quiet).LogsByEmail(context.Background(), "maria@example.com", Options{Limit: 2, EventType: "open"})
	require.NoError(t, err)

	require.Len(t, rep.Events, 2)
	assert.Equal(t, &CampaignRef{ID: "7", Name: NotAvailable}, rep.Events[0].Campaign)
	assert.Equal(t, rep.Events[0].Date, rep.Events[1].Date)
	assert.Equal(t, Summary{Total: 5, Count: 2, Limit: 2, Offset: 0, EventTypes: map[string]int{"open": 2}}, rep.Summary)
}
