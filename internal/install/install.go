package install

import (
	"fmt"

	"github.com/Ciantic/fbrowserhelper/internal/config"
	"github.com/rs/zerolog"
)

// Installer registers and unregisters one host manifest.
type Installer struct {
	Manifest Manifest
	// Home overrides the user home directory for the per-user manifest
	// locations. Unused on Windows.
	Home   string
	Logger zerolog.Logger
}

func New(cfg config.Config, exe string, logger zerolog.Logger) *Installer {
	return &Installer{Manifest: NewManifest(cfg, exe), Logger: logger}
}

// Install writes the manifest and registers it with every browser. It stops
// at the first failure.
func (in *Installer) Install(browsers []Browser) error {
	path, err := in.Manifest.Write()
	if err != nil {
		return err
	}
	in.Logger.Info().Str("path", path).Msg("wrote manifest")
	for _, b := range browsers {
		if err := in.register(b, path); err != nil {
			return fmt.Errorf("install %s: %w", b, err)
		}
		in.Logger.Info().Str("browser", string(b)).Str("host", in.Manifest.Name).Msg("installed")
	}
	return nil
}

// Uninstall removes the registration for every browser. Missing
// registrations are not an error. The manifest beside the executable is
// left in place.
func (in *Installer) Uninstall(browsers []Browser) error {
	for _, b := range browsers {
		if err := in.unregister(b); err != nil {
			return fmt.Errorf("uninstall %s: %w", b, err)
		}
		in.Logger.Info().Str("browser", string(b)).Str("host", in.Manifest.Name).Msg("uninstalled")
	}
	return nil
}
