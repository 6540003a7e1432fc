//go:build windows

package desktop

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/Ciantic/fbrowserhelper/internal/protocol"
	"golang.org/x/sys/windows"
)

var (
	user32  = windows.NewLazySystemDLL("user32.dll")
	shell32 = windows.NewLazySystemDLL("shell32.dll")

	procRealGetWindowClassW = user32.NewProc("RealGetWindowClassW")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
	procIsWindow            = user32.NewProc("IsWindow")
	procLoadImageW          = user32.NewProc("LoadImageW")
	procPostMessageW        = user32.NewProc("PostMessageW")
	procGetWindowLongW      = user32.NewProc("GetWindowLongW")
	procSetWindowLongW      = user32.NewProc("SetWindowLongW")

	procSHGetPropertyStoreForWindow = shell32.NewProc("SHGetPropertyStoreForWindow")
)

const (
	maxTextLen = 256
	maxPathLen = 1024

	imageIcon      = 1
	lrLoadFromFile = 0x00000010
	smallIconSize  = 64
	bigIconSize    = 128

	wmSetIcon = 0x0080
	iconSmall = 0
	iconBig   = 1

	wsMaximizeBox = 0x00010000

	vtLPWSTR = 31

	sFalse          = 1
	rpcEChangedMode = 0x80010106

	// IPropertyStore vtable slots after IUnknown.
	vtblRelease  = 2
	vtblSetValue = 6
	vtblCommit   = 7
)

// GWL_STYLE is negative; keep it in a variable so the uintptr conversion
// sign-extends at run time.
var gwlStyle int32 = -16

var (
	iidIPropertyStore = windows.GUID{Data1: 0x886D8EEB, Data2: 0x8CF2, Data3: 0x4446, Data4: [8]byte{0x8D, 0x02, 0xCD, 0xBA, 0x1D, 0xBD, 0xCF, 0x99}}
	fmtidAppUserModel = windows.GUID{Data1: 0x9F4C2855, Data2: 0x9F79, Data3: 0x4B39, Data4: [8]byte{0xA8, 0xD0, 0xE1, 0xD4, 0x2D, 0xE1, 0xD5, 0xF3}}

	pkeyAppUserModelID                   = propertyKey{fmtid: fmtidAppUserModel, pid: 5}
	pkeyAppUserModelRelaunchIconResource = propertyKey{fmtid: fmtidAppUserModel, pid: 3}
)

type propertyKey struct {
	fmtid windows.GUID
	pid   uint32
}

// propVariant is the PROPVARIANT layout for pointer-sized payloads.
type propVariant struct {
	vt       uint16
	reserved [3]uint16
	val      uintptr
	pad      uintptr
}

type propertyStore struct {
	vtbl *[8]uintptr
}

func hwnd(h protocol.WindowHandle) windows.HWND {
	return windows.HWND(uintptr(h))
}

func (d *Desktop) ActiveWindow() protocol.WindowHandle {
	return protocol.WindowHandle(windows.GetForegroundWindow())
}

func (d *Desktop) WindowClass(h protocol.WindowHandle) string {
	buf := make([]uint16, maxTextLen)
	n, _, _ := procRealGetWindowClassW.Call(uintptr(hwnd(h)), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func (d *Desktop) WindowTitle(h protocol.WindowHandle) string {
	buf := make([]uint16, maxTextLen)
	n, _, _ := procGetWindowTextW.Call(uintptr(hwnd(h)), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func (d *Desktop) OwningProcessName(h protocol.WindowHandle) string {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd(h), &pid); err != nil || pid == 0 {
		d.logger.Debug().Err(err).Uint32("hwnd", uint32(h)).Msg("no owning process")
		return ""
	}
	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		d.logger.Debug().Err(err).Uint32("pid", pid).Msg("open process failed")
		return ""
	}
	defer windows.CloseHandle(proc)

	buf := make([]uint16, maxPathLen)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(proc, 0, &buf[0], &size); err != nil {
		d.logger.Debug().Err(err).Uint32("pid", pid).Msg("query process image failed")
		return ""
	}
	return exeBaseName(windows.UTF16ToString(buf[:size]))
}

func (d *Desktop) Relabel(h protocol.WindowHandle, groupID string) error {
	if !isWindow(h) {
		return ErrInvalidWindow
	}
	return withPropertyStore(h, func(store *propertyStore) error {
		if err := store.setString(&pkeyAppUserModelID, groupID); err != nil {
			return fmt.Errorf("set AppUserModel.ID: %w", err)
		}
		return store.commit()
	})
}

func (d *Desktop) ApplyIcon(h protocol.WindowHandle, iconPath string) error {
	if !isWindow(h) {
		return ErrInvalidWindow
	}
	small, err := loadIcon(iconPath, smallIconSize)
	if err != nil {
		return err
	}
	big, err := loadIcon(iconPath, bigIconSize)
	if err != nil {
		return err
	}
	procPostMessageW.Call(uintptr(hwnd(h)), wmSetIcon, iconSmall, small)
	procPostMessageW.Call(uintptr(hwnd(h)), wmSetIcon, iconBig, big)

	// The pinned button keeps its own icon; a failure here leaves the window
	// icon in place.
	err = withPropertyStore(h, func(store *propertyStore) error {
		if err := store.setString(&pkeyAppUserModelRelaunchIconResource, iconPath); err != nil {
			return err
		}
		return store.commit()
	})
	if err != nil {
		d.logger.Warn().Err(err).Uint32("hwnd", uint32(h)).Msg("set relaunch icon failed")
	}
	return nil
}

func (d *Desktop) AllowMaximizeAndSnap(h protocol.WindowHandle) {
	style, _, _ := procGetWindowLongW.Call(uintptr(hwnd(h)), uintptr(gwlStyle))
	procSetWindowLongW.Call(uintptr(hwnd(h)), uintptr(gwlStyle), uintptr(uint32(style)|wsMaximizeBox))
}

func isWindow(h protocol.WindowHandle) bool {
	r, _, _ := procIsWindow.Call(uintptr(hwnd(h)))
	return r != 0
}

func loadIcon(path string, size int) (uintptr, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLoadIcon, err)
	}
	hicon, _, callErr := procLoadImageW.Call(0, uintptr(unsafe.Pointer(p)), imageIcon, uintptr(size), uintptr(size), lrLoadFromFile)
	if hicon == 0 {
		return 0, fmt.Errorf("%w %s (%dpx): %w", ErrLoadIcon, path, size, callErr)
	}
	return hicon, nil
}

// withPropertyStore runs fn against the window's property store with COM
// initialised on the current OS thread.
func withPropertyStore(h protocol.WindowHandle, fn func(*propertyStore) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err := windows.CoInitializeEx(0, windows.COINIT_APARTMENTTHREADED)
	switch {
	case err == nil, err == syscall.Errno(sFalse):
		defer windows.CoUninitialize()
	case err == syscall.Errno(rpcEChangedMode):
		// Already initialised with another model on this thread.
	default:
		return fmt.Errorf("CoInitializeEx: %w", err)
	}

	var store *propertyStore
	hr, _, _ := procSHGetPropertyStoreForWindow.Call(
		uintptr(hwnd(h)),
		uintptr(unsafe.Pointer(&iidIPropertyStore)),
		uintptr(unsafe.Pointer(&store)),
	)
	if failed(hr) {
		return fmt.Errorf("SHGetPropertyStoreForWindow: %w", syscall.Errno(hr))
	}
	defer store.release()
	return fn(store)
}

func (s *propertyStore) setString(key *propertyKey, value string) error {
	p, err := windows.UTF16PtrFromString(value)
	if err != nil {
		return err
	}
	v := propVariant{vt: vtLPWSTR, val: uintptr(unsafe.Pointer(p))}
	hr, _, _ := syscall.SyscallN(s.vtbl[vtblSetValue],
		uintptr(unsafe.Pointer(s)),
		uintptr(unsafe.Pointer(key)),
		uintptr(unsafe.Pointer(&v)),
	)
	runtime.KeepAlive(p)
	if failed(hr) {
		return fmt.Errorf("IPropertyStore.SetValue: %w", syscall.Errno(hr))
	}
	return nil
}

func (s *propertyStore) commit() error {
	hr, _, _ := syscall.SyscallN(s.vtbl[vtblCommit], uintptr(unsafe.Pointer(s)))
	if failed(hr) {
		return fmt.Errorf("IPropertyStore.Commit: %w", syscall.Errno(hr))
	}
	return nil
}

func (s *propertyStore) release() {
	syscall.SyscallN(s.vtbl[vtblRelease], uintptr(unsafe.Pointer(s)))
}

func failed(hr uintptr) bool {
	return int32(hr) < 0
}
