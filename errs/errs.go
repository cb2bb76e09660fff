// Package errs defines the error taxonomy surfaced by the orchestration core
// to callers of the LLMCaller facade. Every error that crosses a public API
// boundary is, or wraps, a *Error with one of the Kind values below so callers
// can branch on failure category without parsing message strings.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into the taxonomy described by the core's error
// handling design: transport, validation, authorization, policy, exhaustion,
// integration, and tool failures.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindAuth               Kind = "auth"
	KindRateLimit          Kind = "rate-limit"
	KindNetwork            Kind = "network"
	KindTimeout            Kind = "timeout"
	KindContentFilter      Kind = "content-filter"
	KindJSONParse          Kind = "json-parse"
	KindSchema             Kind = "schema"
	KindToolNotFound       Kind = "tool-not-found"
	KindToolExecution      Kind = "tool-execution"
	KindToolIterationLimit Kind = "tool-iteration-limit"
	KindChunkIterationLimit Kind = "chunk-iteration-limit"
	KindModelNotFound      Kind = "model-not-found"
	KindNoCapableModel     Kind = "no-capable-model"
	KindMCPConnection      Kind = "mcp-connection"
	KindMCPAuth            Kind = "mcp-auth"
	KindMCPTimeout         Kind = "mcp-timeout"
	KindMCPToolCall        Kind = "mcp-tool-call"
)

// Error is the concrete error type returned by the core. Op names the
// operation that failed (e.g. "ChatController.execute") for debugging; Kind
// is the stable, branchable classification; Cause preserves the wrapped
// error for errors.Is/As.
type Error struct {
	Kind  Kind
	Op    string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error with the given kind, operation, and message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap constructs an *Error that chains an underlying cause.
func Wrap(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Cause: cause}
}

// Is reports whether err is, or wraps, an *Error with the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, returning ("", false) when err is not an
// *Error and does not wrap one.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
