//go:build !windows

package install

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// hostsDir is the per-user NativeMessagingHosts directory of b.
func hostsDir(home string, b Browser) (string, error) {
	if runtime.GOOS == "darwin" {
		support := filepath.Join(home, "Library", "Application Support")
		switch b {
		case Chrome:
			return filepath.Join(support, "Google", "Chrome", "NativeMessagingHosts"), nil
		case Firefox:
			return filepath.Join(support, "Mozilla", "NativeMessagingHosts"), nil
		case Edge:
			return filepath.Join(support, "Microsoft Edge", "NativeMessagingHosts"), nil
		}
	} else {
		switch b {
		case Chrome:
			return filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts"), nil
		case Firefox:
			return filepath.Join(home, ".mozilla", "native-messaging-hosts"), nil
		case Edge:
			return filepath.Join(home, ".config", "microsoft-edge", "NativeMessagingHosts"), nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownBrowser, b)
}

func (in *Installer) home() (string, error) {
	if in.Home != "" {
		return in.Home, nil
	}
	return os.UserHomeDir()
}

func (in *Installer) hostManifestPath(b Browser) (string, error) {
	home, err := in.home()
	if err != nil {
		return "", err
	}
	dir, err := hostsDir(home, b)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, in.Manifest.Name+".json"), nil
}

func (in *Installer) register(b Browser, manifestPath string) error {
	dst, err := in.hostManifestPath(b)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create hosts dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write host manifest: %w", err)
	}
	return nil
}

func (in *Installer) unregister(b Browser) error {
	dst, err := in.hostManifestPath(b)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove host manifest: %w", err)
	}
	return nil
}
