package install

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ciantic/fbrowserhelper/internal/config"
)

const ManifestFileName = "native_manifest.json"

var (
	ErrUnknownBrowser = errors.New("install: unknown browser")
	ErrNoBrowsers     = errors.New("install: no browsers given")
)

// Browser names a browser family that reads native messaging manifests.
type Browser string

const (
	Chrome  Browser = "chrome"
	Firefox Browser = "firefox"
	Edge    Browser = "edge"
)

func (b Browser) valid() bool {
	switch b {
	case Chrome, Firefox, Edge:
		return true
	}
	return false
}

// ParseBrowsers parses a comma-separated browser list. Duplicates are
// dropped; order is kept.
func ParseBrowsers(csv string) ([]Browser, error) {
	var out []Browser
	seen := map[Browser]bool{}
	for _, part := range strings.Split(csv, ",") {
		b := Browser(strings.ToLower(strings.TrimSpace(part)))
		if b == "" {
			continue
		}
		if !b.valid() {
			return nil, fmt.Errorf("%w %q (want chrome, firefox or edge)", ErrUnknownBrowser, part)
		}
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoBrowsers
	}
	return out, nil
}

// Manifest is the native messaging host manifest. Chrome and Edge read
// allowed_origins; Firefox reads allowed_extensions.
type Manifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedOrigins    []string `json:"allowed_origins"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

func NewManifest(cfg config.Config, exe string) Manifest {
	return Manifest{
		Name:              cfg.HostName,
		Description:       cfg.Description,
		Path:              exe,
		Type:              "stdio",
		AllowedOrigins:    nonNil(cfg.AllowedOrigins),
		AllowedExtensions: nonNil(cfg.AllowedExtensions),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Write stores m as ManifestFileName beside the executable and returns the
// written path.
func (m Manifest) Write() (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(filepath.Dir(m.Path), ManifestFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}
