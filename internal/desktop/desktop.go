package desktop

import (
	"errors"
	"strings"

	"github.com/Ciantic/fbrowserhelper/internal/host"
	"github.com/rs/zerolog"
)

var (
	ErrUnsupported   = errors.New("desktop: unsupported platform")
	ErrInvalidWindow = errors.New("desktop: invalid window handle")
	ErrLoadIcon      = errors.New("desktop: load icon")
)

// Desktop is the OS-facing collaborator set. The zero value is not usable;
// construct it with New.
type Desktop struct {
	logger zerolog.Logger
}

var (
	_ host.WindowInfo     = (*Desktop)(nil)
	_ host.TaskbarGrouper = (*Desktop)(nil)
	_ host.IconApplier    = (*Desktop)(nil)
)

func New(logger zerolog.Logger) *Desktop {
	return &Desktop{logger: logger.With().Str("component", "desktop").Logger()}
}

// Collaborators wires d together with an icon source.
func (d *Desktop) Collaborators(source host.IconSource) host.Collaborators {
	return host.Collaborators{Windows: d, Taskbar: d, Icons: d, Source: source}
}

// exeBaseName strips the directory from an image path reported by the OS.
// Both separators are handled so the result does not depend on the build
// platform.
func exeBaseName(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}
