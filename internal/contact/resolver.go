// Package contact looks up ActiveCampaign contacts and denormalizes their
// custom fields, tags and list memberships into display labels.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mmarqueti/activecampaign-mcp-server/internal/activecampaign"
)

// DefaultSearchLimit is used when Search is called with a non-positive limit.
const DefaultSearchLimit = 20

// ErrNotFound is returned when no contact matches. Callers report it as an
// informational message, not a failure.
var ErrNotFound = errors.New("contact not found")

// API is the subset of the ActiveCampaign client the resolver needs.
type API interface {
	ListContacts(ctx context.Context, q activecampaign.ContactQuery) (*activecampaign.ContactListResponse, error)
	GetContact(ctx context.Context, id string, include []string) (*activecampaign.Contact, error)
	ListFields(ctx context.Context) ([]activecampaign.Field, error)
	ListTags(ctx context.Context) ([]activecampaign.Tag, error)
	ListLists(ctx context.Context) ([]activecampaign.List, error)
}

// Contact is a denormalized contact.
type Contact struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Phone       string       `json:"phone"`
	CDate       string       `json:"cdate,omitempty"`
	UDate       string       `json:"udate,omitempty"`
	FieldValues []FieldValue `json:"fieldValues,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Lists       []Membership `json:"lists,omitempty"`
}

// FieldValue is a custom field value keyed by the field's title.
type FieldValue struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Membership is a list membership keyed by the list's name.
type Membership struct {
	List   string `json:"list"`
	Status string `json:"status"`
}

// SearchResult is the reply of Search. Total counts the returned contacts.
type SearchResult struct {
	Total    int       `json:"total"`
	Contacts []Contact `json:"contacts"`
}

// Resolver resolves contacts through the upstream API.
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

// ByEmail returns the first contact with exactly this email.
func (r *Resolver) ByEmail(ctx context.Context, email string) (*Contact, error) {
	resp, err := r.api.ListContacts(ctx, activecampaign.ContactQuery{
		Email:   email,
		Include: activecampaign.IncludeContactRelations,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch contact by email: %w", err)
	}
	if len(resp.Contacts) == 0 {
		return nil, ErrNotFound
	}
	c := r.Format(ctx, resp.Contacts[0])
	return &c, nil
}

// ByID returns the contact with this identifier. An upstream 404 is ErrNotFound.
func (r *Resolver) ByID(ctx context.Context, id string) (*Contact, error) {
	raw, err := r.api.GetContact(ctx, id, activecampaign.IncludeContactRelations)
	if err != nil {
		if activecampaign.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch contact by id: %w", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	c := r.Format(ctx, *raw)
	return &c, nil
}

// Search runs a free-text search bounded by limit. Records are formatted
// concurrently and returned in upstream order.
func (r *Resolver) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	resp, err := r.api.ListContacts(ctx, activecampaign.ContactQuery{
		Search:  query,
		Limit:   limit,
		Include: activecampaign.IncludeContactRelations,
	})
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}

	raws := resp.Contacts
	if len(raws) > limit {
		raws = raws[:limit]
	}

	out := make([]Contact, len(raws))
	var g errgroup.Group
	for i := range raws {
		g.Go(func() error {
			out[i] = r.Format(ctx, raws[i])
			return nil
		})
	}
	_ = g.Wait()

	return &SearchResult{Total: len(out), Contacts: out}, nil
}

// Format denormalizes a raw contact. Each non-empty collection costs one
// lookup call; a failed lookup is logged and leaves raw identifiers in place.
func (r *Resolver) Format(ctx context.Context, raw activecampaign.Contact) Contact {
	c := Contact{
		ID:        raw.ID.String(),
		Email:     raw.Email,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		Phone:     raw.Phone,
		CDate:     raw.CDate,
		UDate:     raw.UDate,
	}

	if len(raw.FieldValues) > 0 {
		var ix Index
		if fields, err := r.api.ListFields(ctx); err != nil {
			r.lookupFailed("fields", raw.ID, err)
		} else {
			ix = fieldIndex(fields)
		}
		c.FieldValues = make([]FieldValue, len(raw.FieldValues))
		for i, fv := range raw.FieldValues {
			c.FieldValues[i] = FieldValue{Field: ix.Resolve(fv.Field).Text, Value: fv.Value}
		}
	}

	if len(raw.Tags) > 0 {
		var ix Index
		if tags, err := r.api.ListTags(ctx); err != nil {
			r.lookupFailed("tags", raw.ID, err)
		} else {
			ix = tagIndex(tags)
		}
		c.Tags = make([]string, len(raw.Tags))
		for i, id := range raw.Tags {
			c.Tags[i] = ix.Resolve(id).Text
		}
	}

	if len(raw.ContactLists) > 0 {
		var ix Index
		if lists, err := r.api.ListLists(ctx); err != nil {
			r.lookupFailed("lists", raw.ID, err)
		} else {
			ix = listIndex(lists)
		}
		c.Lists = make([]Membership, len(raw.ContactLists))
		for i, cl := range raw.ContactLists {
			c.Lists[i] = Membership{List: ix.Resolve(cl.List).Text, Status: cl.Status.String()}
		}
	}

	return c
}

func (r *Resolver) lookupFailed(collection string, contactID activecampaign.ID, err error) {
	r.logger.Warn("lookup failed, keeping raw identifiers",
		slog.String("collection", collection),
		slog.String("contact_id", contactID.String()),
		slog.String("error", err.Error()),
	)
}
