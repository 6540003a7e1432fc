//go:build windows

package frame

import (
	"errors"

	"golang.org/x/sys/windows"
)

// Browsers close the host's pipes when the port disconnects; writes then fail
// with one of these.
func isBrokenPipe(err error) bool {
	return errors.Is(err, windows.ERROR_BROKEN_PIPE) ||
		errors.Is(err, windows.ERROR_NO_DATA) ||
		errors.Is(err, windows.ERROR_PIPE_NOT_CONNECTED)
}
