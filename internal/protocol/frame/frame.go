package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
)

// PrefixLen is the size of the length prefix that precedes every payload.
// The prefix is an unsigned 32-bit little-endian integer on every platform.
const PrefixLen = 4

// Stream failure kinds reported to the peer in streamError replies.
const (
	KindUnexpectedEOF = "unexpectedEof"
	KindBrokenPipe    = "brokenPipe"
	KindClosed        = "closed"
	KindInvalidData   = "invalidData"
	KindOther         = "other"
)

var (
	ErrShortPrefix     = errors.New("frame: short length prefix")
	ErrShortPayload    = errors.New("frame: short payload")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxReadBytes  uint32
	MaxWriteBytes uint32
}

// DefaultLimits matches the browsers' native messaging caps: 64 MiB towards
// the host and 1 MiB towards the browser.
func DefaultLimits() Limits {
	return Limits{
		MaxReadBytes:  64 * 1024 * 1024,
		MaxWriteBytes: 1024 * 1024,
	}
}

// WithDefaults fills zero limits from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxReadBytes == 0 {
		l.MaxReadBytes = d.MaxReadBytes
	}
	if l.MaxWriteBytes == 0 {
		l.MaxWriteBytes = d.MaxWriteBytes
	}
	return l
}

// Flusher is implemented by buffered writers such as *bufio.Writer.
type Flusher interface {
	Flush() error
}

// ReadFrame reads one length-prefixed payload. The read is all-or-nothing:
// a short prefix or payload never yields partial data.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var prefix [PrefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShortPrefix, err)
	}

	n := DecodeLength(prefix[:])
	if n > limits.MaxReadBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, limits.MaxReadBytes)
	}

	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("%w: %w", ErrShortPayload, err)
		}
	}
	return payload, nil
}

// WriteFrame writes the length prefix and payload in one write, then flushes
// w when it buffers. The flush is unconditional: the browser only sees data
// once it is flushed.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	if uint64(len(payload)) > uint64(limits.MaxWriteBytes) {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), limits.MaxWriteBytes)
	}

	buf := make([]byte, PrefixLen+len(payload))
	EncodeLength(buf[:PrefixLen], uint32(len(payload)))
	copy(buf[PrefixLen:], payload)
	if _, err := w.Write(buf); err != nil {
		return err
	}
	if f, ok := w.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func EncodeLength(dst []byte, n uint32) {
	binary.LittleEndian.PutUint32(dst, n)
}

func DecodeLength(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// Classify maps a read/write failure to the stream failure kind reported in
// streamError replies.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return KindUnexpectedEOF
	case errors.Is(err, ErrPayloadTooLarge):
		return KindInvalidData
	case errors.Is(err, os.ErrClosed), errors.Is(err, io.ErrClosedPipe), errors.Is(err, net.ErrClosed):
		return KindClosed
	case isBrokenPipe(err):
		return KindBrokenPipe
	default:
		return KindOther
	}
}
