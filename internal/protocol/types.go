package protocol

// WindowHandle is an opaque OS window identifier. The host never owns,
// closes or frees the window it names.
type WindowHandle uint32

// Command wire tags.
const (
	TagQueryActiveWindow   = "queryActiveWindow"
	TagRelabelTaskbarGroup = "relabelTaskbarGroup"
	TagSetWindowIcon       = "setWindowIcon"
	TagStop                = "stop"
)

// Response wire tags.
const (
	TagActiveWindowInfo = "activeWindowInfo"
	TagAcknowledged     = "acknowledged"
)

// Command is one decoded browser->host instruction. The set is closed:
// only the variants in this package implement it.
type Command interface {
	Tag() string
	isCommand()
}

// QueryActiveWindow asks for the foreground window and its metadata.
type QueryActiveWindow struct{}

// RelabelTaskbarGroup moves a window into the taskbar group named GroupID.
type RelabelTaskbarGroup struct {
	WindowHandle WindowHandle
	GroupID      string
}

// SetWindowIcon replaces a window icon with the favicon of IconSourceURL.
type SetWindowIcon struct {
	WindowHandle  WindowHandle
	IconSourceURL string
}

// Stop requests orderly session termination.
type Stop struct{}

func (QueryActiveWindow) Tag() string   { return TagQueryActiveWindow }
func (RelabelTaskbarGroup) Tag() string { return TagRelabelTaskbarGroup }
func (SetWindowIcon) Tag() string       { return TagSetWindowIcon }
func (Stop) Tag() string                { return TagStop }

func (QueryActiveWindow) isCommand()   {}
func (RelabelTaskbarGroup) isCommand() {}
func (SetWindowIcon) isCommand()       {}
func (Stop) isCommand()                {}

// Response is a successful host->browser reply. The set is closed.
type Response interface {
	Tag() string
	isResponse()
}

// ActiveWindowInfo describes the foreground window.
type ActiveWindowInfo struct {
	WindowHandle WindowHandle
	ClassName    string
	Title        string
	ProcessName  string
}

// Acknowledged is a generic success without payload.
type Acknowledged struct{}

func (ActiveWindowInfo) Tag() string { return TagActiveWindowInfo }
func (Acknowledged) Tag() string     { return TagAcknowledged }

func (ActiveWindowInfo) isResponse() {}
func (Acknowledged) isResponse()     {}
