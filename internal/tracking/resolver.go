// Package tracking fetches a contact's tracking log and enriches each event
// with a description, a normalized date and the campaign name.
package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mmarqueti/activecampaign-mcp-server/internal/activecampaign"
)

const (
	// DefaultLimit is the page size used when none is requested.
	DefaultLimit = 100
	// MaxLimit is the largest page the API serves.
	MaxLimit = 100
)

// ErrContactNotFound is returned by LogsByEmail when no contact has the email.
var ErrContactNotFound = errors.New("contact not found")

// API is the subset of the ActiveCampaign client the resolver needs.
type API interface {
	ListContacts(ctx context.Context, q activecampaign.ContactQuery) (*activecampaign.ContactListResponse, error)
	ContactTrackingLogs(ctx context.Context, contactID string, q activecampaign.TrackingQuery) (*activecampaign.TrackingLogsResponse, error)
	GetCampaign(ctx context.Context, id string) (*activecampaign.Campaign, error)
}

// DateRange bounds the events by date. Both ends are passed to the API as-is.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Options filter and page a tracking log query.
type Options struct {
	Limit     int
	Offset    int
	EventType string
	DateRange *DateRange
}

func (o Options) normalized() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

func (o Options) query() activecampaign.TrackingQuery {
	q := activecampaign.TrackingQuery{Limit: o.Limit, Offset: o.Offset, Type: o.EventType}
	if o.DateRange != nil {
		q.After = o.DateRange.Start
		q.Before = o.DateRange.End
	}
	return q
}

// Ref points at a related record that is not resolved further.
type Ref struct {
	ID string `json:"id"`
}

// CampaignRef is a campaign reference with its display name.
type CampaignRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is an enriched tracking event.
type Event struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Timestamp    json.RawMessage `json:"timestamp,omitempty"`
	Date         string          `json:"date"`
	Contact      string          `json:"contact"`
	SubscriberID string          `json:"subscriberId,omitempty"`
	Hash         string          `json:"hash,omitempty"`
	Description  string          `json:"description"`
	Value        json.RawMessage `json:"value,omitempty"`
	Links        json.RawMessage `json:"links,omitempty"`
	Campaign     *CampaignRef    `json:"campaign,omitempty"`
	Automation   *Ref            `json:"automation,omitempty"`
	Email        *Ref            `json:"email,omitempty"`
	Link         *Ref            `json:"link,omitempty"`
	EventData    json.RawMessage `json:"eventData,omitempty"`
}

// Summary describes the fetched page. EventTypes counts types in this page only.
type Summary struct {
	Total      int            `json:"total"`
	Count      int            `json:"count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
	EventTypes map[string]int `json:"eventTypes"`
}

// Report is the reply of the tracking tools.
type Report struct {
	Summary Summary `json:"summary"`
	Events  []Event `json:"events"`
}

// Resolver fetches and enriches tracking logs.
type Resolver struct {
	api    API
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil logger uses slog.Default().
func NewResolver(api API, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{api: api, logger: logger}
}

// LogsByContactID fetches one page of the contact's events and enriches it.
func (r *Resolver) LogsByContactID(ctx context.Context, contactID string, opts Options) (*Report, error) {
	opts = opts.normalized()
	r.logger.Debug("fetching tracking logs",
		slog.String("contact_id", contactID),
		slog.Int("limit", opts.Limit),
		slog.Int("offset", opts.Offset),
	)

	resp, err := r.api.ContactTrackingLogs(ctx, contactID, opts.query())
	if err != nil {
		return nil, fmt.Errorf("fetch tracking logs: %w", err)
	}
	return r.buildReport(ctx, resp, opts), nil
}

// LogsByEmail resolves the contact by exact email, then fetches its events.
// No tracking request is made when the email matches nobody.
func (r *Resolver) LogsByEmail(ctx context.Context, email string, opts Options) (*Report, error) {
	resp, err := r.api.ListContacts(ctx, activecampaign.ContactQuery{Email: email})
	if err != nil {
		return nil, fmt.Errorf("resolve contact by email: %w", err)
	}
	if len(resp.Contacts) == 0 {
		return nil, ErrContactNotFound
	}
	return r.LogsByContactID(ctx, resp.Contacts[0].ID.String(), opts)
}

func (r *Resolver) buildReport(ctx context.Context, resp *activecampaign.TrackingLogsResponse, opts Options) *Report {
	logs := resp.TrackingLogs

	events := make([]Event, len(logs))
	var g errgroup.Group
	for i := range logs {
		g.Go(func() error {
			events[i] = r.Enrich(ctx, logs[i])
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{
		Total:      len(logs),
		Count:      len(logs),
		Limit:      opts.Limit,
		Offset:     opts.Offset,
		EventTypes: typeHistogram(logs),
	}
	if m := resp.Meta; m != nil {
		if m.Total > 0 {
			summary.Total = int(m.Total)
		}
		if m.Count > 0 {
			summary.Count = int(m.Count)
		}
		if m.Limit > 0 {
			summary.Limit = int(m.Limit)
		}
		if m.Offset > 0 {
			summary.Offset = int(m.Offset)
		}
	}

	return &Report{Summary: summary, Events: events}
}

// Enrich derives the display fields of one event. A failed campaign lookup
// degrades to NotAvailable and never fails the event.
func (r *Resolver) Enrich(ctx context.Context, log activecampaign.TrackingLog) Event {
	ev := Event{
		ID:           log.ID.String(),
		Type:         log.Type,
		Date:         NormalizeTimestamp(log.Tstamp),
		Contact:      log.Contact.String(),
		SubscriberID: log.SubscriberID.String(),
		Hash:         log.Hash,
		Description:  Describe(log.Type),
	}
	if present(log.Tstamp) {
		ev.Timestamp = log.Tstamp
	}
	if present(log.Value) {
		ev.Value = log.Value
	}
	if present(log.Links) {
		ev.Links = log.Links
	}
	if present(log.EventData) {
		ev.EventData = log.EventData
	}

	if log.Campaign != "" {
		ev.Campaign = &CampaignRef{ID: log.Campaign.String(), Name: r.campaignName(ctx, log.Campaign)}
	}
	if log.Automation != "" {
		ev.Automation = &Ref{ID: log.Automation.String()}
	}
	if log.Email != "" {
		ev.Email = &Ref{ID: log.Email.String()}
	}
	if log.Link != "" {
		ev.Link = &Ref{ID: log.Link.String()}
	}
	return ev
}

func (r *Resolver) campaignName(ctx context.Context, id activecampaign.ID) string {
	c, err := r.api.GetCampaign(ctx, id.String())
	if err != nil {
		r.logger.Warn("campaign lookup failed",
			slog.String("campaign_id", id.String()),
			slog.String("error", err.Error()),
		)
		return NotAvailable
	}
	if c == nil || c.Name == "" {
		return NotAvailable
	}
	return c.Name
}

func typeHistogram(logs []activecampaign.TrackingLog) map[string]int {
	h := make(map[string]int)
	for _, l := range logs {
		h[l.Type]++
	}
	return h
}

// present reports whether a raw value carries data: not absent, null,
// false, zero or the empty string.
func present(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}
