// Package activecampaign is a read-only client for the ActiveCampaign v3 REST API.
//
// Every request goes through a single Client bound to an account base URL and
// a static API token. Failures are returned as *TransportError without retry.
package activecampaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 10 << 20
	userAgent      = "activecampaign-mcp-server"
)

// IncludeContactRelations sideloads the collections the contact formatter
// denormalizes.
var IncludeContactRelations = []string{"fieldValues", "tags", "contactLists"}

// HTTPDoer executes HTTP requests. *http.Client and test recorders satisfy it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default instrumented client (useful for testing).
	HTTPClient HTTPDoer
}

// Client is safe for concurrent use. It carries no per-call state.
type Client struct {
	baseURL string
	header  http.Header
	http    HTTPDoer
}

// Response is a successful upstream reply.
type Response struct {
	Status int
	Body   []byte
}

// New creates a client. The token header is fixed for the client's lifetime.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("activecampaign: base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("activecampaign: invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Token == "" {
		return nil, errors.New("activecampaign: API token is required")
	}

	doer := cfg.HTTPClient
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		doer = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	header := make(http.Header)
	header.Set("Api-Token", cfg.Token)
	header.Set("Accept", "application/json")
	header.Set("Content-Type", "application/json")
	header.Set("User-Agent", userAgent)

	return &Client{baseURL: base, header: header, http: doer}, nil
}

// BaseURL returns the account URL the client is bound to.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET against path (relative to the base URL) with query.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.header.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{
			Method: http.MethodGet,
			Path:   path,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("read response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Method: http.MethodGet,
			Path:   path,
			Status: resp.StatusCode,
			Body:   string(body),
		}
	}

	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// GetJSON issues a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ========== Contacts ==========

// ContactQuery filters GET /api/3/contacts.
type ContactQuery struct {
	Email   string
	Search  string
	Limit   int
	Include []string
}

func (q ContactQuery) values() url.Values {
	v := url.Values{}
	if q.Email != "" {
		v.Set("email", q.Email)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(q.Include) > 0 {
		v.Set("include", strings.Join(q.Include, ","))
	}
	return v
}

// ListContacts lists contacts matching q.
func (c *Client) ListContacts(ctx context.Context, q ContactQuery) (*ContactListResponse, error) {
	var out ContactListResponse
	if err := c.GetJSON(ctx, "/api/3/contacts", q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetContact fetches one contact. A missing contact surfaces as a 404
// TransportError (see IsNotFound); a 2xx reply without a record returns nil.
func (c *Client) GetContact(ctx context.Context, id string, include []string) (*Contact, error) {
	q := url.Values{}
	if len(include) > 0 {
		q.Set("include", strings.Join(include, ","))
	}
	var out contactResponse
	if err := c.GetJSON(ctx, "/api/3/contacts/"+url.PathEscape(id), q, &out); err != nil {
		return nil, err
	}
	return out.Contact, nil
}

// ========== Lookup collections ==========

// ListFields returns the custom field definitions.
func (c *Client) ListFields(ctx context.Context) ([]Field, error) {
	var out fieldsResponse
	if err := c.GetJSON(ctx, "/api/3/fields", nil, &out); err != nil {
		return nil, err
	}
	return out.Fields, nil
}

// ListTags returns the tag definitions.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var out tagsResponse
	if err := c.GetJSON(ctx, "/api/3/tags", nil, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// ListLists returns the list definitions.
func (c *Client) ListLists(ctx context.Context) ([]List, error) {
	var out listsResponse
	if err := c.GetJSON(ctx, "/api/3/lists", nil, &out); err != nil {
		return nil, err
	}
	return out.Lists, nil
}

// ========== Tracking ==========

// TrackingQuery filters a contact's tracking log page. After and Before are
// passed through verbatim; their semantics belong to the API.
type TrackingQuery struct {
	Limit  int
	Offset int
	Type   string
	After  string
	Before string
}

func (q TrackingQuery) values() url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.After != "" {
		v.Set("after", q.After)
	}
	if q.Before != "" {
		v.Set("before", q.Before)
	}
	return v
}

// ContactTrackingLogs fetches one page of a contact's event log.
func (c *Client) ContactTrackingLogs(ctx context.Context, contactID string, q TrackingQuery) (*TrackingLogsResponse, error) {
	var out TrackingLogsResponse
	path := "/api/3/contacts/" + url.PathEscape(contactID) + "/trackingLogs"
	if err := c.GetJSON(ctx, path, q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCampaign fetches a campaign record. A 2xx reply without a record returns nil.
func (c *Client) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var out campaignResponse
	if err := c.GetJSON(ctx, "/api/3/campaigns/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Campaign, nil
}
