package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/Ciantic/fbrowserhelper/internal/testutil/testlog"
)

func TestCommandRoundTrip(t *testing.T) {
	testlog.Start(t)
	cmds := []Command{
		QueryActiveWindow{},
		RelabelTaskbarGroup{WindowHandle: 0x1234, GroupID: "https://example.com/"},
		SetWindowIcon{WindowHandle: 42, IconSourceURL: "https://example.com/page"},
		Stop{},
	}
	for _, in := range cmds {
		payload, err := EncodeCommand(in)
		if err != nil {
			t.Fatalf("encode %T: %v", in, err)
		}
		out, err := DecodeCommand(payload)
		if err != nil {
			t.Fatalf("decode %s: %v", payload, err)
		}
		if out != in {
			t.Fatalf("round trip mismatch: got=%#v want=%#v", out, in)
		}
	}
}

func TestDecodeCommandWireNames(t *testing.T) {
	testlog.Start(t)
	cmd, err := DecodeCommand([]byte(`{"type":"relabelTaskbarGroup","windowHandle":7,"groupId":"g1"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	relabel, ok := cmd.(RelabelTaskbarGroup)
	if !ok {
		t.Fatalf("unexpected command type %T", cmd)
	}
	if relabel.WindowHandle != 7 || relabel.GroupID != "g1" {
		t.Fatalf("unexpected command: %+v", relabel)
	}
}

func TestDecodeCommandIgnoresUnknownFields(t *testing.T) {
	testlog.Start(t)
	cmd, err := DecodeCommand([]byte(`{"type":"queryActiveWindow","extra":true}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := cmd.(QueryActiveWindow); !ok {
		t.Fatalf("unexpected command type %T", cmd)
	}
}

func TestDecodeCommandCaseSensitiveTag(t *testing.T) {
	testlog.Start(t)
	cmd, err := DecodeCommand([]byte(`{"type":"stop","Type":"queryActiveWindow"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := cmd.(Stop); !ok {
		t.Fatalf("expected Stop, got %T", cmd)
	}
}

func TestDecodeCommandFailures(t *testing.T) {
	testlog.Start(t)
	cases := map[string]struct {
		payload string
		want    error
	}{
		"syntax":         {payload: `{"type":`, want: nil},
		"not an object":  {payload: `[1,2]`, want: nil},
		"empty":          {payload: ``, want: nil},
		"missing tag":    {payload: `{"windowHandle":1}`, want: ErrMissingTag},
		"unknown tag":    {payload: `{"type":"getActiveWindow"}`, want: ErrUnknownTag},
		"missing handle": {payload: `{"type":"setWindowIcon","iconSourceUrl":"https://a.b"}`, want: ErrMissingField},
		"missing url":    {payload: `{"type":"setWindowIcon","windowHandle":1}`, want: ErrMissingField},
		"missing group":  {payload: `{"type":"relabelTaskbarGroup","windowHandle":1}`, want: ErrMissingField},
		"negative":       {payload: `{"type":"relabelTaskbarGroup","windowHandle":-1,"groupId":"x"}`, want: nil},
		"overflow":       {payload: `{"type":"relabelTaskbarGroup","windowHandle":4294967296,"groupId":"x"}`, want: nil},
		"tag type":       {payload: `{"type":3}`, want: nil},
		"upper tag":      {payload: `{"TYPE":"stop"}`, want: ErrMissingTag},
		"mixed tag":      {payload: `{"Type":"queryActiveWindow"}`, want: ErrMissingTag},
		"shadowed tag":   {payload: `{"type":"stop","Type":"queryActiveWindow","type":"stop"}`, want: ErrDuplicateField},
		"duplicate tag":  {payload: `{"type":"stop","type":"queryActiveWindow"}`, want: ErrDuplicateField},
		"upper handle":   {payload: `{"type":"relabelTaskbarGroup","WINDOWHANDLE":3,"groupId":"x"}`, want: ErrMissingField},
		"mixed group":    {payload: `{"type":"relabelTaskbarGroup","windowHandle":3,"GroupId":"x"}`, want: ErrMissingField},
		"upper url":      {payload: `{"type":"setWindowIcon","windowHandle":3,"IconSourceURL":"https://a.b"}`, want: ErrMissingField},
		"trailing":       {payload: `{"type":"stop"} {}`, want: nil},
	}
	for name, tc := range cases {
		_, err := DecodeCommand([]byte(tc.payload))
		if !errors.Is(err, Kind(KindDecodeError)) {
			t.Fatalf("%s: expected decodeError, got %v", name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, err)
		}
	}
}

func TestDecodeCommandRejectsInvalidUTF8(t *testing.T) {
	testlog.Start(t)
	_, err := DecodeCommand([]byte("{\"type\":\"stop\xff\"}"))
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestEncodeActiveWindowInfo(t *testing.T) {
	testlog.Start(t)
	payload, err := EncodeResponse(ActiveWindowInfo{WindowHandle: 7, ClassName: "Notepad", Title: "a.txt", ProcessName: "notepad.exe"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"type":"activeWindowInfo","windowHandle":7,"className":"Notepad","title":"a.txt","processName":"notepad.exe"}`
	if string(payload) != want {
		t.Fatalf("payload got=%s want=%s", payload, want)
	}
}

func TestEncodeAcknowledged(t *testing.T) {
	testlog.Start(t)
	payload, err := EncodeResponse(Acknowledged{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(payload) != `{"type":"acknowledged"}` {
		t.Fatalf("payload got=%s", payload)
	}
}

func TestEncodeErrorOmitsCause(t *testing.T) {
	testlog.Start(t)
	cause := errors.New(`open C:\Users\me\cache\example.com.ico: access denied`)
	payload, err := EncodeError(OperationFailed("Failed to get favicon", cause))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(string(payload), "access denied") {
		t.Fatalf("cause leaked into payload: %s", payload)
	}
	if string(payload) != `{"type":"operationFailed","message":"Failed to get favicon"}` {
		t.Fatalf("payload got=%s", payload)
	}
}

func TestEncodeStreamError(t *testing.T) {
	testlog.Start(t)
	payload, err := EncodeError(&ProtocolError{Kind: KindStreamError, StreamKind: "unexpectedEof", Message: "eof"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(payload) != `{"type":"streamError","kind":"unexpectedEof","message":"eof"}` {
		t.Fatalf("payload got=%s", payload)
	}
}

func TestEncodeUnexpectedFailureLocation(t *testing.T) {
	testlog.Start(t)
	payload, err := EncodeError(UnexpectedFailure("boom", nil))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(payload) != `{"type":"unexpectedFailure","message":"boom","file":null,"line":null}` {
		t.Fatalf("payload got=%s", payload)
	}

	payload, err = EncodeError(UnexpectedFailure("boom", &SourceLocation{File: "dispatch.go", Line: 12}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	reply, err := DecodeReply(payload)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Err == nil || reply.Err.Location == nil {
		t.Fatalf("expected located error, got %+v", reply)
	}
	if reply.Err.Location.File != "dispatch.go" || reply.Err.Location.Line != 12 {
		t.Fatalf("unexpected location: %+v", reply.Err.Location)
	}
}

func TestEncodeErrorUnknownKind(t *testing.T) {
	testlog.Start(t)
	if _, err := EncodeError(&ProtocolError{Kind: "bogus"}); !errors.Is(err, ErrUnknownErrorKind) {
		t.Fatalf("expected ErrUnknownErrorKind, got %v", err)
	}
	if _, err := EncodeError(nil); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestTagsNeverOverlapAcrossVocabularies(t *testing.T) {
	testlog.Start(t)
	seen := map[string]string{}
	add := func(vocab, tag string) {
		if prev, ok := seen[tag]; ok {
			t.Fatalf("tag %q used by %s and %s", tag, prev, vocab)
		}
		seen[tag] = vocab
	}
	for _, tag := range []string{TagQueryActiveWindow, TagRelabelTaskbarGroup, TagSetWindowIcon, TagStop} {
		add("command", tag)
	}
	for _, tag := range []string{TagActiveWindowInfo, TagAcknowledged} {
		add("response", tag)
	}
	for _, k := range []ErrorKind{KindMalformedURL, KindOperationFailed, KindStreamError, KindDecodeError, KindUnexpectedFailure, KindSessionStopping} {
		add("error", string(k))
	}
}

func TestDecodeReplyResponses(t *testing.T) {
	testlog.Start(t)
	reply, err := DecodeReply([]byte(`{"type":"acknowledged"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := reply.Response.(Acknowledged); !ok || reply.Err != nil {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	reply, err = DecodeReply([]byte(`{"type":"malformedUrl","message":"Invalid favicon URL"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reply.Err == nil || !errors.Is(reply.Err, Kind(KindMalformedURL)) {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	if _, err := DecodeReply([]byte(`{"type":"stop"}`)); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("command tag accepted as reply: %v", err)
	}
}

func TestProtocolErrorIsMatchesKind(t *testing.T) {
	testlog.Start(t)
	cause := errors.New("root")
	err := error(OperationFailed("x", cause))
	if !errors.Is(err, Kind(KindOperationFailed)) {
		t.Fatalf("expected kind match")
	}
	if errors.Is(err, ErrSessionStopping) {
		t.Fatalf("unexpected stopping match")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	pe, ok := AsProtocolError(err)
	if !ok || pe.Message != "x" {
		t.Fatalf("unexpected as: %+v", pe)
	}
}
