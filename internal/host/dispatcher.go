package host

import (
	"fmt"
	"net/url"

	"github.com/Ciantic/fbrowserhelper/internal/protocol"
	"github.com/rs/zerolog"
)

const (
	msgInvalidFaviconURL = "Invalid favicon URL"
	msgFaviconFailed     = "Failed to get favicon"
	msgSetIconFailed     = "Failed to set icon"
)

// CommandDispatcher maps one command to one reply. The returned error is a
// *protocol.ProtocolError.
type CommandDispatcher interface {
	Dispatch(cmd protocol.Command) (protocol.Response, error)
}

// Dispatcher is the production CommandDispatcher backed by collaborators.
type Dispatcher struct {
	collab Collaborators
	logger zerolog.Logger
}

var _ CommandDispatcher = (*Dispatcher)(nil)

func NewDispatcher(collab Collaborators, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{collab: collab, logger: logger}
}

func (d *Dispatcher) Dispatch(cmd protocol.Command) (protocol.Response, error) {
	switch c := cmd.(type) {
	case protocol.QueryActiveWindow:
		return d.queryActiveWindow(), nil
	case protocol.RelabelTaskbarGroup:
		return d.relabelTaskbarGroup(c)
	case protocol.SetWindowIcon:
		return d.setWindowIcon(c)
	case protocol.Stop:
		return nil, protocol.ErrSessionStopping
	default:
		return nil, protocol.UnexpectedFailure(fmt.Sprintf("unhandled command %T", cmd), nil)
	}
}

func (d *Dispatcher) queryActiveWindow() protocol.ActiveWindowInfo {
	w := d.collab.Windows
	h := w.ActiveWindow()
	return protocol.ActiveWindowInfo{
		WindowHandle: h,
		ClassName:    w.WindowClass(h),
		Title:        w.WindowTitle(h),
		ProcessName:  w.OwningProcessName(h),
	}
}

func (d *Dispatcher) relabelTaskbarGroup(c protocol.RelabelTaskbarGroup) (protocol.Response, error) {
	if err := d.collab.Taskbar.Relabel(c.WindowHandle, c.GroupID); err != nil {
		d.logger.Warn().Err(err).Uint32("hwnd", uint32(c.WindowHandle)).Msg("relabel taskbar group failed")
		return nil, protocol.OperationFailed(fmt.Sprintf("Failed to relabel taskbar group: %v", err), err)
	}
	return protocol.Acknowledged{}, nil
}

func (d *Dispatcher) setWindowIcon(c protocol.SetWindowIcon) (protocol.Response, error) {
	d.logger.Debug().Uint32("hwnd", uint32(c.WindowHandle)).Str("url", c.IconSourceURL).Msg("setting icon")

	u, err := parseIconURL(c.IconSourceURL)
	if err != nil {
		return nil, protocol.MalformedURL(msgInvalidFaviconURL, err)
	}

	path, err := d.collab.Source.IconForURL(u)
	if err != nil {
		// The cause stays local: it may name cache paths or network detail.
		d.logger.Warn().Err(err).Str("url", c.IconSourceURL).Msg("favicon acquisition failed")
		return nil, protocol.OperationFailed(msgFaviconFailed, err)
	}

	if err := d.collab.Icons.ApplyIcon(c.WindowHandle, path); err != nil {
		d.logger.Warn().Err(err).Str("icon", path).Msg("apply icon failed")
		return nil, protocol.OperationFailed(msgSetIconFailed, err)
	}
	// Popup windows are created without a maximize box.
	d.collab.Icons.AllowMaximizeAndSnap(c.WindowHandle)

	d.logger.Debug().Uint32("hwnd", uint32(c.WindowHandle)).Str("icon", path).Msg("icon set")
	return protocol.Acknowledged{}, nil
}

// parseIconURL accepts absolute URLs only; url.Parse alone treats any
// string without a scheme as a relative reference.
func parseIconURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("host: %q is not an absolute URL", raw)
	}
	return u, nil
}
