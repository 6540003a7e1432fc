//go:build windows

package install

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

func registryPath(b Browser, name string) string {
	switch b {
	case Chrome:
		return `Software\Google\Chrome\NativeMessagingHosts\` + name
	case Firefox:
		return `Software\Mozilla\NativeMessagingHosts\` + name
	case Edge:
		return `Software\Microsoft\Edge\NativeMessagingHosts\` + name
	}
	return ""
}

func (in *Installer) register(b Browser, manifestPath string) error {
	if !b.valid() {
		return fmt.Errorf("%w %q", ErrUnknownBrowser, b)
	}
	k, _, err := registry.CreateKey(registry.CURRENT_USER, registryPath(b, in.Manifest.Name), registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("create registry key: %w", err)
	}
	defer k.Close()
	if err := k.SetStringValue("", manifestPath); err != nil {
		return fmt.Errorf("set registry value: %w", err)
	}
	return nil
}

func (in *Installer) unregister(b Browser) error {
	if !b.valid() {
		return fmt.Errorf("%w %q", ErrUnknownBrowser, b)
	}
	err := registry.DeleteKey(registry.CURRENT_USER, registryPath(b, in.Manifest.Name))
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("delete registry key: %w", err)
	}
	return nil
}
