package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Template renders c in the on-disk format Load reads.
func Template(c Config) ([]byte, error) {
	raw := fileConfig{
		HostName:          c.HostName,
		Description:       c.Description,
		AllowedOrigins:    c.AllowedOrigins,
		AllowedExtensions: c.AllowedExtensions,
		Log: logSection{
			Level:     c.Log.Level.String(),
			File:      c.Log.File,
			Timestamp: c.Log.Timestamp,
			NoColor:   c.Log.NoColor,
		},
		Favicon: faviconSection{
			CacheDir: c.Favicon.CacheDir,
			Endpoint: c.Favicon.Endpoint,
			Size:     c.Favicon.Size,
			Timeout:  c.Favicon.Timeout.String(),
		},
		Protocol: protoSection{
			MaxReadBytes:  c.Limits.MaxReadBytes,
			MaxWriteBytes: c.Limits.MaxWriteBytes,
		},
		Metrics: metricsSection{Textfile: c.MetricsTextfile},
	}
	out, err := toml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("render config template: %w", err)
	}
	return out, nil
}

// WriteTemplate writes the defaults to path unless a file already exists
// there and overwrite is false.
func WriteTemplate(path string, overwrite bool) error {
	data, err := Template(Default())
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
