package favicon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/png"
	"io"
)

const (
	icoHeaderLen = 6
	icoEntryLen  = 16
	maxIconSide  = 256
)

var ErrNotPNG = errors.New("favicon: not a PNG image")

// icoHeader is ICONDIR followed by one ICONDIRENTRY.
type icoHeader struct {
	Reserved   uint16
	Type       uint16
	Count      uint16
	Width      uint8
	Height     uint8
	ColorCount uint8
	Reserved2  uint8
	Planes     uint16
	BitCount   uint16
	BytesInRes uint32
	Offset     uint32
}

// WriteICO wraps a PNG image in a single-entry ICO container. The PNG bytes
// are stored as-is; Windows Vista and later load PNG-compressed entries.
func WriteICO(w io.Writer, pngData []byte) error {
	cfg, err := png.DecodeConfig(bytes.NewReader(pngData))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotPNG, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxIconSide || cfg.Height > maxIconSide {
		return fmt.Errorf("%w: %dx%d exceeds icon size", ErrNotPNG, cfg.Width, cfg.Height)
	}

	h := icoHeader{
		Type:       1,
		Count:      1,
		Width:      icoSide(cfg.Width),
		Height:     icoSide(cfg.Height),
		Planes:     1,
		BitCount:   32,
		BytesInRes: uint32(len(pngData)),
		Offset:     icoHeaderLen + icoEntryLen,
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	_, err = w.Write(pngData)
	return err
}

// icoSide encodes 256 as 0, as the format requires.
func icoSide(n int) uint8 {
	if n >= maxIconSide {
		return 0
	}
	return uint8(n)
}
