package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind is the wire tag of a ProtocolError.
type ErrorKind string

const (
	KindMalformedURL      ErrorKind = "malformedUrl"
	KindOperationFailed   ErrorKind = "operationFailed"
	KindStreamError       ErrorKind = "streamError"
	KindDecodeError       ErrorKind = "decodeError"
	KindUnexpectedFailure ErrorKind = "unexpectedFailure"
	KindSessionStopping   ErrorKind = "sessionStopping"
)

// ErrSessionStopping is returned by the dispatcher for Stop. The session loop
// consumes it to end iteration; it is never written to the peer.
var ErrSessionStopping = &ProtocolError{Kind: KindSessionStopping, Message: "session stopping"}

var ErrUnknownErrorKind = errors.New("protocol: unknown error kind")

// SourceLocation points at the code that raised an unexpected failure.
type SourceLocation struct {
	File string
	Line int
}

// ProtocolError is a structured failure reply. Cause is local diagnostic
// detail and is never serialised.
type ProtocolError struct {
	Kind    ErrorKind
	Message string

	// StreamKind is set for KindStreamError.
	StreamKind string
	// Location is optional and only used by KindUnexpectedFailure.
	Location *SourceLocation

	Cause error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// Is matches any ProtocolError of the same kind.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Kind == e.Kind
}

func MalformedURL(message string, cause error) *ProtocolError {
	return &ProtocolError{Kind: KindMalformedURL, Message: message, Cause: cause}
}

func OperationFailed(message string, cause error) *ProtocolError {
	return &ProtocolError{Kind: KindOperationFailed, Message: message, Cause: cause}
}

func StreamError(kind string, cause error) *ProtocolError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &ProtocolError{Kind: KindStreamError, StreamKind: kind, Message: msg, Cause: cause}
}

func DecodeError(cause error) *ProtocolError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &ProtocolError{Kind: KindDecodeError, Message: msg, Cause: cause}
}

func UnexpectedFailure(message string, loc *SourceLocation) *ProtocolError {
	return &ProtocolError{Kind: KindUnexpectedFailure, Message: message, Location: loc}
}

// Kind returns a detail-free ProtocolError usable as an errors.Is target.
func Kind(k ErrorKind) *ProtocolError {
	return &ProtocolError{Kind: k}
}

// AsProtocolError unwraps err to a ProtocolError, if it carries one.
func AsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
