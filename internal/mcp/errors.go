package mcp

import (
	"errors"
	"fmt"
)

// Kind classifies a failed tool call.
type Kind int

const (
	KindUpstream Kind = iota
	KindUnknownTool
	KindInvalidArguments
)

func (k Kind) String() string {
	switch k {
	case KindUnknownTool:
		return "unknown_tool"
	case KindInvalidArguments:
		return "invalid_arguments"
	default:
		return "upstream"
	}
}

// ToolError is the error every failed dispatch is reported as.
type ToolError struct {
	Kind Kind
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Kind == KindUnknownTool {
		return "Unknown tool: " + e.Tool
	}
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *ToolError) Unwrap() error { return e.Err }

func unknownTool(name string) error {
	return &ToolError{Kind: KindUnknownTool, Tool: name}
}

func upstream(name string, err error) error {
	return &ToolError{Kind: KindUpstream, Tool: name, Err: err}
}

func invalidArguments(name string, err error) error {
	return &ToolError{Kind: KindInvalidArguments, Tool: name, Err: err}
}

func missingArgument(name, arg string) error {
	return invalidArguments(name, fmt.Errorf("missing required argument %q", arg))
}

// Render is the single place a failure becomes user-facing text.
func Render(tool string, err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return fmt.Sprintf("Error executing %s: %s", tool, msg)
}

// KindOf reports the kind of err, treating anything that is not a
// *ToolError as an upstream failure.
func KindOf(err error) Kind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUpstream
}
