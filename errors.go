package imap

import (
	"fmt"
)

// ErrorKind is the semantic classification of an engine error. It is stable
// across engine versions: callers should switch on Kind, not on an error
// message.
type ErrorKind int

const (
	ErrKindUnspecified ErrorKind = iota
	ErrKindConnectionFailed
	ErrKindConnectionError
	ErrKindConnectionClosed
	ErrKindAuthenticationFailed
	ErrKindTLS
	ErrKindProtocol
	ErrKindParsing
	ErrKindCommandFailed
	ErrKindServerError
	ErrKindTimeout
	ErrKindDisconnected
	ErrKindInvalidState
	ErrKindUnsupportedCapability
	ErrKindMailboxNotFound
	ErrKindMessageNotFound
	ErrKindQuotaExceeded
	ErrKindPermissionDenied
	ErrKindInvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindConnectionFailed:
		return "connection failed"
	case ErrKindConnectionError:
		return "connection error"
	case ErrKindConnectionClosed:
		return "connection closed"
	case ErrKindAuthenticationFailed:
		return "authentication failed"
	case ErrKindTLS:
		return "tls error"
	case ErrKindProtocol:
		return "protocol error"
	case ErrKindParsing:
		return "parsing error"
	case ErrKindCommandFailed:
		return "command failed"
	case ErrKindServerError:
		return "server error"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindDisconnected:
		return "disconnected"
	case ErrKindInvalidState:
		return "invalid state"
	case ErrKindUnsupportedCapability:
		return "unsupported capability"
	case ErrKindMailboxNotFound:
		return "mailbox not found"
	case ErrKindMessageNotFound:
		return "message not found"
	case ErrKindQuotaExceeded:
		return "quota exceeded"
	case ErrKindPermissionDenied:
		return "permission denied"
	case ErrKindInvalidArgument:
		return "invalid argument"
	default:
		return "unspecified"
	}
}

// Error is the engine's single error type. Every error the engine returns
// carries a stable Kind plus a human-readable Message, and optionally the
// server's own status response and/or a command label.
//
// See SPEC_FULL.md's error handling design.
type Error struct {
	Kind    ErrorKind
	Message string

	// Command is the command label (e.g. "SELECT", "UID STORE") that
	// failed, set when Kind == ErrKindCommandFailed.
	Command string
	// Status is the server's tagged status response, set when
	// Kind == ErrKindCommandFailed or ErrKindServerError.
	Status *StatusResponse

	// Cap is set when Kind == ErrKindUnsupportedCapability.
	Cap Cap
	// Mailbox is set when Kind == ErrKindMailboxNotFound.
	Mailbox string
	// UID is set when Kind == ErrKindMessageNotFound.
	UID UID

	// Err is the underlying cause, if any (e.g. a net.Error). Error
	// implements Unwrap so errors.Is/errors.As reach it.
	Err error
}

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds an *Error of the given kind, wrapping a lower-level
// cause.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("imap: %v: %s: %s", e.Kind, e.Command, e.Message)
	}
	return fmt.Sprintf("imap: %v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind, so that
// callers can write errors.Is(err, &imap.Error{Kind: imap.ErrKindTimeout}).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}
