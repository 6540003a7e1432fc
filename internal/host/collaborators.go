package host

import (
	"net/url"

	"github.com/Ciantic/fbrowserhelper/internal/protocol"
)

// WindowInfo reads foreground window metadata. Every method is total:
// failures yield zero values, never errors.
type WindowInfo interface {
	ActiveWindow() protocol.WindowHandle
	WindowClass(h protocol.WindowHandle) string
	WindowTitle(h protocol.WindowHandle) string
	OwningProcessName(h protocol.WindowHandle) string
}

// TaskbarGrouper moves a window into a taskbar button group.
type TaskbarGrouper interface {
	Relabel(h protocol.WindowHandle, groupID string) error
}

// IconApplier replaces window icons and style bits.
type IconApplier interface {
	ApplyIcon(h protocol.WindowHandle, iconPath string) error
	AllowMaximizeAndSnap(h protocol.WindowHandle)
}

// IconSource turns a page URL into a local icon file. Implementations may
// fetch over the network and cache by domain.
type IconSource interface {
	IconForURL(u *url.URL) (string, error)
}

// Collaborators groups the OS-facing capabilities the dispatcher calls.
type Collaborators struct {
	Windows WindowInfo
	Taskbar TaskbarGrouper
	Icons   IconApplier
	Source  IconSource
}
