// Package loxerr defines the bridge's error taxonomy as sentinel errors,
// following the package's exported Err* convention rather than an open
// string-keyed error code.
package loxerr

import (
	"errors"
	"fmt"
)

// Kind classifies a bridge error for dispatch-level handling.
type Kind string

const (
	KindCredentialStore        Kind = "credential_store"
	KindTransport              Kind = "transport"
	KindUnauthorized           Kind = "unauthorized"
	KindProtocolUnsupported    Kind = "protocol_unsupported"
	KindDecode                 Kind = "decode"
	KindDeviceNotFound         Kind = "device_not_found"
	KindRoomNotFound           Kind = "room_not_found"
	KindTimeout                Kind = "timeout"
	KindCapabilityUnavailable  Kind = "capability_unavailable"
)

var (
	// ErrCredentialStore signals a secret backend read/write failure.
	ErrCredentialStore = errors.New("credential store failure")
	// ErrTransport signals a TCP/HTTP/WebSocket I/O failure.
	ErrTransport = errors.New("transport failure")
	// ErrUnauthorized signals an HTTP 401 or LL.code=401 response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrProtocolUnsupported signals an unknown hashAlg or malformed structure.
	ErrProtocolUnsupported = errors.New("protocol unsupported")
	// ErrDecode signals a JSON/base64/UUID parse failure.
	ErrDecode = errors.New("decode failure")
	// ErrDeviceNotFound signals a tool input that did not resolve to a device.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrRoomNotFound signals a tool input that did not resolve to a room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrTimeout signals a per-call deadline exceeded.
	ErrTimeout = errors.New("timeout")
	// ErrCapabilityUnavailable signals a requested subsystem not present on this Miniserver.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)

// Error wraps a sentinel with a Kind tag and contextual detail, so callers
// can both errors.Is against the sentinel and inspect Kind/Detail directly.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Err.Error(), e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error wrapping the matching sentinel.
func New(kind Kind, sentinel error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: sentinel}
}

// NotFoundWithSuggestions decorates ErrDeviceNotFound/ErrRoomNotFound with
// near-match candidates, per spec.md §7's "tool result error with list of
// near-matches" disposition.
type NotFoundWithSuggestions struct {
	*Error
	Suggestions []string
}

func NewNotFound(kind Kind, sentinel error, query string, suggestions []string) *NotFoundWithSuggestions {
	return &NotFoundWithSuggestions{
		Error:       New(kind, sentinel, query),
		Suggestions: suggestions,
	}
}
