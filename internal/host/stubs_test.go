package host

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/Ciantic/fbrowserhelper/internal/protocol"
	"github.com/Ciantic/fbrowserhelper/internal/protocol/frame"
)

type stubWindows struct {
	handle  protocol.WindowHandle
	class   string
	title   string
	process string
}

func (w stubWindows) ActiveWindow() protocol.WindowHandle            { return w.handle }
func (w stubWindows) WindowClass(protocol.WindowHandle) string       { return w.class }
func (w stubWindows) WindowTitle(protocol.WindowHandle) string       { return w.title }
func (w stubWindows) OwningProcessName(protocol.WindowHandle) string { return w.process }

type relabelCall struct {
	handle  protocol.WindowHandle
	groupID string
}

type stubTaskbar struct {
	calls     []relabelCall
	err       error
	panicWith any
}

func (s *stubTaskbar) Relabel(h protocol.WindowHandle, groupID string) error {
	s.calls = append(s.calls, relabelCall{handle: h, groupID: groupID})
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.err
}

type stubIcons struct {
	applied   []string
	maximized []protocol.WindowHandle
	err       error
}

func (s *stubIcons) ApplyIcon(h protocol.WindowHandle, iconPath string) error {
	if s.err != nil {
		return s.err
	}
	s.applied = append(s.applied, iconPath)
	return nil
}

func (s *stubIcons) AllowMaximizeAndSnap(h protocol.WindowHandle) {
	s.maximized = append(s.maximized, h)
}

type stubSource struct {
	path  string
	err   error
	calls []string
}

func (s *stubSource) IconForURL(u *url.URL) (string, error) {
	s.calls = append(s.calls, u.String())
	if s.err != nil {
		return "", s.err
	}
	return s.path, nil
}

type fixture struct {
	windows stubWindows
	taskbar *stubTaskbar
	icons   *stubIcons
	source  *stubSource
}

func newFixture() *fixture {
	return &fixture{
		windows: stubWindows{handle: 7, class: "Notepad", title: "a.txt", process: "notepad.exe"},
		taskbar: &stubTaskbar{},
		icons:   &stubIcons{},
		source:  &stubSource{path: "example.com.ico"},
	}
}

func (f *fixture) collaborators() Collaborators {
	return Collaborators{Windows: f.windows, Taskbar: f.taskbar, Icons: f.icons, Source: f.source}
}

func frameOf(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := frame.WriteFrame(&buf, []byte(payload), frame.DefaultLimits()); err != nil {
		t.Fatalf("frame %q: %v", payload, err)
	}
	return buf.Bytes()
}

func framesOf(t *testing.T, payloads ...string) *bytes.Reader {
	t.Helper()
	var all []byte
	for _, p := range payloads {
		all = append(all, frameOf(t, p)...)
	}
	return bytes.NewReader(all)
}

func readPayloads(t *testing.T, out *bytes.Buffer) []string {
	t.Helper()
	var payloads []string
	for out.Len() > 0 {
		p, err := frame.ReadFrame(out, frame.DefaultLimits())
		if err != nil {
			t.Fatalf("read reply frame: %v", err)
		}
		payloads = append(payloads, string(p))
	}
	return payloads
}

func readReplies(t *testing.T, out *bytes.Buffer) []protocol.Reply {
	t.Helper()
	var replies []protocol.Reply
	for _, p := range readPayloads(t, out) {
		r, err := protocol.DecodeReply([]byte(p))
		if err != nil {
			t.Fatalf("decode reply %s: %v", p, err)
		}
		replies = append(replies, r)
	}
	return replies
}
