// Package errors provides structured error types for drydock.
// These errors provide context about what operation failed and where.
package errors

import (
	"errors"
	"fmt"
)

// Op describes an operation, usually as "package.function".
type Op string

// Kind categorizes the type of error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalid
	KindDecode
	KindControl
	KindPlan
	KindIndex
	KindConfig
	KindIO
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalid:
		return "invalid"
	case KindDecode:
		return "decode error"
	case KindControl:
		return "control protocol error"
	case KindPlan:
		return "plan error"
	case KindIndex:
		return "index error"
	case KindConfig:
		return "configuration error"
	case KindIO:
		return "I/O error"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown error"
	}
}

// Error is the structured error type for drydock.
type Error struct {
	Op      Op     // Operation that failed
	Kind    Kind   // Category of error
	Err     error  // Underlying error
	Context string // Additional context
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Context, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new Error. Arguments can be:
// - Op: the operation name
// - Kind: the error kind
// - string: context message
// - error: the underlying error
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case string:
			e.Context = a
		case error:
			e.Err = a
		}
	}
	if e.Err == nil {
		e.Err = errors.New(e.Context)
		e.Context = ""
	}
	return e
}

// Is reports whether err is of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetKind returns the Kind of an error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Control protocol errors
func ControlUnknownRequest(requestID, subtype string) error {
	return E(Op("control.Handle"), KindControl, fmt.Sprintf("request %s has unrecognized subtype %q", requestID, subtype))
}

func ControlAlreadyResolved(requestID string) error {
	return E(Op("control.Resolve"), KindControl, fmt.Sprintf("request %s already resolved", requestID))
}

// Plan errors
func PlanInvalidBranch(branch string, err error) error {
	return E(Op("plan.Materialize"), KindPlan, fmt.Sprintf("invalid branch name %q", branch), err)
}

// Index errors
func IndexBuildFailed(path string, err error) error {
	return E(Op("history.Rebuild"), KindIndex, fmt.Sprintf("failed to build index from %s", path), err)
}

// Config errors
func ConfigLoadFailed(path string, err error) error {
	return E(Op("config.Load"), KindConfig, fmt.Sprintf("failed to load config from %s", path), err)
}

func ConfigInvalid(reason string) error {
	return E(Op("config.Validate"), KindInvalid, reason)
}
