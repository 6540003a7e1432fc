//go:build unix

package frame

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isBrokenPipe(err error) bool {
	return errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET)
}
