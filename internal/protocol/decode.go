package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	ErrInvalidUTF8  = errors.New("protocol: payload is not valid UTF-8")
	ErrMissingTag   = errors.New("protocol: missing field `type`")
	ErrUnknownTag   = errors.New("protocol: unknown variant")
	ErrMissingField = errors.New("protocol: missing field")

	ErrDuplicateField = errors.New("protocol: duplicate field")
)

// DecodeCommand parses one frame payload into a Command. Field names match
// exactly, so `TYPE` or `Type` is never read as the tag. Every failure is a
// decodeError ProtocolError.
func DecodeCommand(payload []byte) (Command, error) {
	if !utf8.Valid(payload) {
		return nil, DecodeError(ErrInvalidUTF8)
	}
	fields, err := decodeObject(payload)
	if err != nil {
		return nil, DecodeError(err)
	}
	var tag *string
	if err := field(fields, "type", &tag); err != nil {
		return nil, DecodeError(err)
	}
	if tag == nil {
		return nil, DecodeError(ErrMissingTag)
	}

	var (
		handle  *WindowHandle
		groupID *string
		iconURL *string
	)
	switch *tag {
	case TagQueryActiveWindow:
		return QueryActiveWindow{}, nil
	case TagRelabelTaskbarGroup:
		if err := field(fields, "windowHandle", &handle); err != nil {
			return nil, DecodeError(err)
		}
		if handle == nil {
			return nil, missingField(*tag, "windowHandle")
		}
		if err := field(fields, "groupId", &groupID); err != nil {
			return nil, DecodeError(err)
		}
		if groupID == nil {
			return nil, missingField(*tag, "groupId")
		}
		return RelabelTaskbarGroup{WindowHandle: *handle, GroupID: *groupID}, nil
	case TagSetWindowIcon:
		if err := field(fields, "windowHandle", &handle); err != nil {
			return nil, DecodeError(err)
		}
		if handle == nil {
			return nil, missingField(*tag, "windowHandle")
		}
		if err := field(fields, "iconSourceUrl", &iconURL); err != nil {
			return nil, DecodeError(err)
		}
		if iconURL == nil {
			return nil, missingField(*tag, "iconSourceUrl")
		}
		return SetWindowIcon{WindowHandle: *handle, IconSourceURL: *iconURL}, nil
	case TagStop:
		return Stop{}, nil
	default:
		return nil, DecodeError(fmt.Errorf("%w `%s`", ErrUnknownTag, *tag))
	}
}

// decodeObject splits a JSON object into its raw members. Keys are kept
// byte-exact and may appear once.
func decodeObject(payload []byte) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("protocol: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("protocol: expected object, got %v", tok)
	}
	fields := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("protocol: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("protocol: expected object key, got %v", tok)
		}
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("%w `%s`", ErrDuplicateField, key)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("protocol: %w", err)
		}
		fields[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("protocol: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("protocol: trailing data after object")
	}
	return fields, nil
}

// field decodes fields[name] into dst when present. dst stays untouched for
// absent members.
func field(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("protocol: field `%s`: %w", name, err)
	}
	return nil
}

func missingField(tag, field string) error {
	return DecodeError(fmt.Errorf("%w `%s` in %s", ErrMissingField, field, tag))
}

// Reply is one decoded host->browser frame: exactly one of Response or Err
// is set.
type Reply struct {
	Response Response
	Err      *ProtocolError
}

type replyWire struct {
	Type         *string       `json:"type"`
	WindowHandle *WindowHandle `json:"windowHandle"`
	ClassName    string        `json:"className"`
	Title        string        `json:"title"`
	ProcessName  string        `json:"processName"`
	Message      string        `json:"message"`
	Kind         string        `json:"kind"`
	File         *string       `json:"file"`
	Line         *int          `json:"line"`
}

// DecodeReply parses a host->browser payload. It is the client-side mirror of
// EncodeResponse and EncodeError.
func DecodeReply(payload []byte) (Reply, error) {
	var w replyWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return Reply{}, fmt.Errorf("protocol: %w", err)
	}
	if w.Type == nil {
		return Reply{}, ErrMissingTag
	}

	switch tag := *w.Type; tag {
	case TagActiveWindowInfo:
		if w.WindowHandle == nil {
			return Reply{}, fmt.Errorf("%w `windowHandle` in %s", ErrMissingField, tag)
		}
		return Reply{Response: ActiveWindowInfo{
			WindowHandle: *w.WindowHandle,
			ClassName:    w.ClassName,
			Title:        w.Title,
			ProcessName:  w.ProcessName,
		}}, nil
	case TagAcknowledged:
		return Reply{Response: Acknowledged{}}, nil
	}

	kind := ErrorKind(*w.Type)
	switch kind {
	case KindMalformedURL, KindOperationFailed, KindDecodeError, KindSessionStopping:
		return Reply{Err: &ProtocolError{Kind: kind, Message: w.Message}}, nil
	case KindStreamError:
		return Reply{Err: &ProtocolError{Kind: kind, Message: w.Message, StreamKind: w.Kind}}, nil
	case KindUnexpectedFailure:
		pe := &ProtocolError{Kind: kind, Message: w.Message}
		if w.File != nil {
			pe.Location = &SourceLocation{File: *w.File}
			if w.Line != nil {
				pe.Location.Line = *w.Line
			}
		}
		return Reply{Err: pe}, nil
	default:
		return Reply{}, fmt.Errorf("%w `%s`", ErrUnknownTag, *w.Type)
	}
}
