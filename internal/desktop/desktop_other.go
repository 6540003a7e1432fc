//go:build !windows

package desktop

import "github.com/Ciantic/fbrowserhelper/internal/protocol"

func (d *Desktop) ActiveWindow() protocol.WindowHandle            { return 0 }
func (d *Desktop) WindowClass(protocol.WindowHandle) string       { return "" }
func (d *Desktop) WindowTitle(protocol.WindowHandle) string       { return "" }
func (d *Desktop) OwningProcessName(protocol.WindowHandle) string { return "" }
func (d *Desktop) AllowMaximizeAndSnap(protocol.WindowHandle)     {}
func (d *Desktop) Relabel(protocol.WindowHandle, string) error    { return ErrUnsupported }
func (d *Desktop) ApplyIcon(protocol.WindowHandle, string) error  { return ErrUnsupported }
