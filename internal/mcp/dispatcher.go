package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmarqueti/activecampaign-mcp-server/internal/activecampaign"
	"github.com/mmarqueti/activecampaign-mcp-server/internal/contact"
	"github.com/mmarqueti/activecampaign-mcp-server/internal/tracking"
)

const tracerName = "github.com/mmarqueti/activecampaign-mcp-server/internal/mcp"

// ContentBlock is one item of a tool result. Only text blocks are produced.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the envelope every tool call returns, failures included.
type Result struct {
	Content []ContentBlock `json:"content"`
}

// Text returns the text of the first block.
func (r Result) Text() string {
	if len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}

func textResult(text string) Result {
	return Result{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// Dispatcher routes tool calls to the contact and tracking resolvers.
type Dispatcher struct {
	contacts *contact.Resolver
	tracking *tracking.Resolver
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewDispatcher builds both resolvers on top of one shared client.
func NewDispatcher(client *activecampaign.Client, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		contacts: contact.NewResolver(client, logger),
		tracking: tracking.NewResolver(client, logger),
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// Call runs the named tool. It never fails: errors are rendered into the
// returned text.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage) Result {
	callID := uuid.NewString()
	ctx, span := d.tracer.Start(ctx, "tools/call "+name, trace.WithAttributes(
		attribute.String("mcp.tool", name),
		attribute.String("mcp.call_id", callID),
	))
	defer span.End()

	start := time.Now()
	text, err := d.dispatch(ctx, name, args)
	elapsed := time.Since(start)

	if err != nil {
		kind := KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		d.logger.Error("tool call failed",
			slog.String("call_id", callID),
			slog.String("tool", name),
			slog.String("kind", kind.String()),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		return textResult(Render(name, err))
	}

	d.logger.Info("tool call",
		slog.String("call_id", callID),
		slog.String("tool", name),
		slog.Duration("elapsed", elapsed),
	)
	return textResult(text)
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, args json.RawMessage) (string, error) {
	switch {
	case contactTools[name]:
		return d.callContactTool(ctx, name, args)
	case trackingTools[name]:
		return d.callTrackingTool(ctx, name, args)
	}
	return "", unknownTool(name)
}

type emailArgs struct {
	Email string `json:"email"`
}

type contactIDArgs struct {
	ContactID activecampaign.ID `json:"contactId"`
}

type searchArgs struct {
	Query string   `json:"query"`
	Limit *float64 `json:"limit"`
}

type trackingArgs struct {
	ContactID activecampaign.ID   `json:"contactId"`
	Limit     *float64            `json:"limit"`
	Offset    *float64            `json:"offset"`
	EventType string              `json:"eventType"`
	DateRange *tracking.DateRange `json:"dateRange"`
}

type trackingByEmailArgs struct {
	Email     string   `json:"email"`
	Limit     *float64 `json:"limit"`
	Offset    *float64 `json:"offset"`
	EventType string   `json:"eventType"`
}

func (d *Dispatcher) callContactTool(ctx context.Context, name string, raw json.RawMessage) (string, error) {
	switch name {
	case ToolContactByEmail:
		var args emailArgs
		if err := decodeArgs(name, raw, &args); err != nil {
			return "", err
		}
		if args.Email == "" {
			return "", missingArgument(name, "email")
		}
		c, err := d.contacts.ByEmail(ctx, args.Email)
		if errors.Is(err, contact.ErrNotFound) {
			return fmt.Sprintf("No contact found with email: %s", args.Email), nil
		}
		if err != nil {
			return "", upstream(name, err)
		}
		return prettyJSON(c)

	case ToolContactByID:
		var args contactIDArgs
		if err := decodeArgs(name, raw, &args); err != nil {
			return "", err
		}
		id := args.ContactID.String()
		if id == "" {
			return "", missingArgument(name, "contactId")
		}
		c, err := d.contacts.ByID(ctx, id)
		if errors.Is(err, contact.ErrNotFound) {
			return fmt.Sprintf("No contact found with ID: %s", id), nil
		}
		if err != nil {
			return "", upstream(name, err)
		}
		return prettyJSON(c)

	case ToolSearchContacts:
		var args searchArgs
		if err := decodeArgs(name, raw, &args); err != nil {
			return "", err
		}
		if args.Query == "" {
			return "", missingArgument(name, "query")
		}
		res, err := d.contacts.Search(ctx, args.Query, intArg(args.Limit))
		if err != nil {
			return "", upstream(name, err)
		}
		return prettyJSON(res)
	}
	return "", unknownTool(name)
}

func (d *Dispatcher) callTrackingTool(ctx context.Context, name string, raw json.RawMessage) (string, error) {
	switch name {
	case ToolTrackingLogs:
		var args trackingArgs
		if err := decodeArgs(name, raw, &args); err != nil {
			return "", err
		}
		id := args.ContactID.String()
		if id == "" {
			return "", missingArgument(name, "contactId")
		}
		rep, err := d.tracking.LogsByContactID(ctx, id, tracking.Options{
			Limit:     intArg(args.Limit),
			Offset:    intArg(args.Offset),
			EventType: args.EventType,
			DateRange: args.DateRange,
		})
		if err != nil {
			return "", upstream(name, err)
		}
		return prettyJSON(rep)

	case ToolTrackingLogsByEmail:
		var args trackingByEmailArgs
		if err := decodeArgs(name, raw, &args); err != nil {
			return "", err
		}
		if args.Email == "" {
			return "", missingArgument(name, "email")
		}
		rep, err := d.tracking.LogsByEmail(ctx, args.Email, tracking.Options{
			Limit:     intArg(args.Limit),
			Offset:    intArg(args.Offset),
			EventType: args.EventType,
		})
		if errors.Is(err, tracking.ErrContactNotFound) {
			return fmt.Sprintf("No contact found with email: %s", args.Email), nil
		}
		if err != nil {
			return "", upstream(name, err)
		}
		return prettyJSON(rep)
	}
	return "", unknownTool(name)
}

// decodeArgs treats absent or null arguments as an empty object.
func decodeArgs(name string, raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return invalidArguments(name, fmt.Errorf("invalid arguments: %w", err))
	}
	return nil
}

// intArg truncates a JSON number; absent means zero, which the resolvers
// replace with their defaults.
func intArg(f *float64) int {
	if f == nil {
		return 0
	}
	return int(*f)
}

func prettyJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
