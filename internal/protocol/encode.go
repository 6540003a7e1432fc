package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownVariant = errors.New("protocol: unknown variant value")

type tagOnly struct {
	Type string `json:"type"`
}

type relabelWire struct {
	Type         string       `json:"type"`
	WindowHandle WindowHandle `json:"windowHandle"`
	GroupID      string       `json:"groupId"`
}

type setIconWire struct {
	Type          string       `json:"type"`
	WindowHandle  WindowHandle `json:"windowHandle"`
	IconSourceURL string       `json:"iconSourceUrl"`
}

type activeWindowWire struct {
	Type         string       `json:"type"`
	WindowHandle WindowHandle `json:"windowHandle"`
	ClassName    string       `json:"className"`
	Title        string       `json:"title"`
	ProcessName  string       `json:"processName"`
}

type messageWire struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type streamErrorWire struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type unexpectedFailureWire struct {
	Type    string  `json:"type"`
	Message string  `json:"message"`
	File    *string `json:"file"`
	Line    *int    `json:"line"`
}

// EncodeCommand serialises a Command. The host only decodes commands; this
// is used by clients and tests.
func EncodeCommand(c Command) ([]byte, error) {
	switch v := c.(type) {
	case QueryActiveWindow, Stop:
		return json.Marshal(tagOnly{Type: v.Tag()})
	case RelabelTaskbarGroup:
		return json.Marshal(relabelWire{Type: v.Tag(), WindowHandle: v.WindowHandle, GroupID: v.GroupID})
	case SetWindowIcon:
		return json.Marshal(setIconWire{Type: v.Tag(), WindowHandle: v.WindowHandle, IconSourceURL: v.IconSourceURL})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, c)
	}
}

// EncodeResponse serialises a Response. A failure here is an implementation
// bug, not a protocol error.
func EncodeResponse(r Response) ([]byte, error) {
	switch v := r.(type) {
	case ActiveWindowInfo:
		return json.Marshal(activeWindowWire{
			Type:         v.Tag(),
			WindowHandle: v.WindowHandle,
			ClassName:    v.ClassName,
			Title:        v.Title,
			ProcessName:  v.ProcessName,
		})
	case Acknowledged:
		return json.Marshal(tagOnly{Type: v.Tag()})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, r)
	}
}

// EncodeError serialises a ProtocolError. Cause is never included.
func EncodeError(e *ProtocolError) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil error", ErrUnknownVariant)
	}
	tag := string(e.Kind)
	switch e.Kind {
	case KindMalformedURL, KindOperationFailed, KindDecodeError:
		return json.Marshal(messageWire{Type: tag, Message: e.Message})
	case KindStreamError:
		return json.Marshal(streamErrorWire{Type: tag, Kind: e.StreamKind, Message: e.Message})
	case KindUnexpectedFailure:
		w := unexpectedFailureWire{Type: tag, Message: e.Message}
		if e.Location != nil {
			file, line := e.Location.File, e.Location.Line
			w.File = &file
			w.Line = &line
		}
		return json.Marshal(w)
	case KindSessionStopping:
		return json.Marshal(tagOnly{Type: tag})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownErrorKind, e.Kind)
	}
}
