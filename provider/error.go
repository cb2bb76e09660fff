package provider

import (
	"errors"
	"fmt"

	"goa.design/llmcore/errs"
)

// Kind classifies a provider-adapter failure before Translate (called by
// ChatController and StreamController) converts it into the core's errs.Kind
// taxonomy. Kept distinct from
// errs.Kind so adapters never need to import the core's full taxonomy — only
// the subset meaningful at the transport/auth layer.
type Kind string

const (
	KindAuth          Kind = "auth"
	KindInvalidRequest Kind = "invalid_request"
	KindRateLimited   Kind = "rate_limited"
	KindUnavailable   Kind = "unavailable"
	KindUnknown       Kind = "unknown"
)

// Error is the error type provider adapters raise. StatusCode is the
// transport-level HTTP status when known (0 otherwise).
type Error struct {
	Kind       Kind
	Provider   string
	StatusCode int
	Msg        string
	Cause      error
}

// NewError constructs an Error, requiring the fields every adapter failure
// must carry.
func NewError(providerName string, kind Kind, statusCode int, msg string, cause error) *Error {
	return &Error{Provider: providerName, Kind: kind, StatusCode: statusCode, Msg: msg, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Msg, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Msg, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Cause }

// AsProviderError extracts an *Error from err via errors.As.
func AsProviderError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ToErrsKind translates a provider Kind into the core's errs.Kind taxonomy,
// the boundary spec.md §7 describes as "user-facing methods translate
// remaining errors to the taxonomy above."
func ToErrsKind(k Kind) errs.Kind {
	switch k {
	case KindAuth:
		return errs.KindAuth
	case KindInvalidRequest:
		return errs.KindValidation
	case KindRateLimited:
		return errs.KindRateLimit
	case KindUnavailable:
		return errs.KindNetwork
	default:
		return errs.KindNetwork
	}
}

// Translate converts err into an *errs.Error using ToErrsKind when err wraps
// a provider *Error, or wraps it as KindNetwork otherwise (a provider
// returning a bare error is treated as an unclassified transport failure,
// the conservative choice since such errors are almost always I/O failures).
func Translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := AsProviderError(err); ok {
		return errs.Wrap(ToErrsKind(pe.Kind), op, pe.Msg, err)
	}
	return errs.Wrap(errs.KindNetwork, op, "provider call failed", err)
}
