package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Ciantic/fbrowserhelper/internal/logging"
	"github.com/Ciantic/fbrowserhelper/internal/protocol/frame"
)

// FileName is the config file looked up beside the executable.
const FileName = "fbrowserhelper.toml"

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the resolved host configuration.
type Config struct {
	HostName          string
	Description       string
	AllowedOrigins    []string
	AllowedExtensions []string
	Log               logging.Config
	Favicon           FaviconConfig
	Limits            frame.Limits
	MetricsTextfile   string
}

// FaviconConfig drives the icon acquisition collaborator.
type FaviconConfig struct {
	CacheDir string
	Endpoint string
	Size     int
	Timeout  time.Duration
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		HostName:          "f_browser_helper_app",
		Description:       "Browser helper app",
		AllowedOrigins:    []string{"chrome-extension://dnmkkgomoldfnbpjolhekmnoligmhdnc/"},
		AllowedExtensions: []string{"f_browser_helper_ext@oksidi.com"},
		Log:               logging.DefaultConfig(logging.ProfileRuntime),
		Favicon: FaviconConfig{
			CacheDir: defaultCacheDir(),
			Endpoint: "https://t2.gstatic.com/faviconV2",
			Size:     128,
			Timeout:  10 * time.Second,
		},
		Limits: frame.DefaultLimits(),
	}
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return "favicons"
	}
	return filepath.Join(base, "fbrowserhelper", "favicons")
}

// PathBesideExecutable returns FileName in the directory of exe.
func PathBesideExecutable(exe string) string {
	return filepath.Join(filepath.Dir(exe), FileName)
}

type fileConfig struct {
	HostName          string         `toml:"host_name"`
	Description       string         `toml:"description"`
	AllowedOrigins    []string       `toml:"allowed_origins"`
	AllowedExtensions []string       `toml:"allowed_extensions"`
	Log               logSection     `toml:"log"`
	Favicon           faviconSection `toml:"favicon"`
	Protocol          protoSection   `toml:"protocol"`
	Metrics           metricsSection `toml:"metrics"`
}

type logSection struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	Timestamp bool   `toml:"timestamp"`
	NoColor   bool   `toml:"no_color"`
}

type faviconSection struct {
	CacheDir string `toml:"cache_dir"`
	Endpoint string `toml:"endpoint"`
	Size     int    `toml:"size"`
	Timeout  string `toml:"timeout"`
}

type protoSection struct {
	MaxReadBytes  uint32 `toml:"max_read_bytes"`
	MaxWriteBytes uint32 `toml:"max_write_bytes"`
}

type metricsSection struct {
	Textfile string `toml:"textfile"`
}

// Load overlays the keys defined in path on Default. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("host_name") {
		cfg.HostName = strings.TrimSpace(raw.HostName)
	}
	if meta.IsDefined("description") {
		cfg.Description = raw.Description
	}
	if meta.IsDefined("allowed_origins") {
		cfg.AllowedOrigins = normalizeList(raw.AllowedOrigins)
	}
	if meta.IsDefined("allowed_extensions") {
		cfg.AllowedExtensions = normalizeList(raw.AllowedExtensions)
	}

	if meta.IsDefined("log", "level") {
		lvl, ok := logging.ParseLevel(raw.Log.Level)
		if !ok {
			return Config{}, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, raw.Log.Level)
		}
		cfg.Log.Level = lvl
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = expandPath(raw.Log.File, path)
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}

	if meta.IsDefined("favicon", "cache_dir") {
		cfg.Favicon.CacheDir = expandPath(raw.Favicon.CacheDir, path)
	}
	if meta.IsDefined("favicon", "endpoint") {
		cfg.Favicon.Endpoint = strings.TrimSpace(raw.Favicon.Endpoint)
	}
	if meta.IsDefined("favicon", "size") {
		cfg.Favicon.Size = raw.Favicon.Size
	}
	if meta.IsDefined("favicon", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Favicon.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse favicon.timeout: %w", err)
		}
		cfg.Favicon.Timeout = d
	}

	if meta.IsDefined("protocol", "max_read_bytes") {
		cfg.Limits.MaxReadBytes = raw.Protocol.MaxReadBytes
	}
	if meta.IsDefined("protocol", "max_write_bytes") {
		cfg.Limits.MaxWriteBytes = raw.Protocol.MaxWriteBytes
	}
	cfg.Limits = cfg.Limits.WithDefaults()

	if meta.IsDefined("metrics", "textfile") {
		cfg.MetricsTextfile = expandPath(raw.Metrics.Textfile, path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields the host cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HostName) == "" {
		return fmt.Errorf("%w: missing host_name", ErrInvalidConfig)
	}
	for _, r := range c.HostName {
		if !(r == '_' || r == '.' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return fmt.Errorf("%w: host_name %q may only contain lowercase letters, digits, '_' and '.'", ErrInvalidConfig, c.HostName)
		}
	}
	if strings.TrimSpace(c.Favicon.CacheDir) == "" {
		return fmt.Errorf("%w: missing favicon.cache_dir", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Favicon.Endpoint) == "" {
		return fmt.Errorf("%w: missing favicon.endpoint", ErrInvalidConfig)
	}
	if c.Favicon.Size <= 0 || c.Favicon.Size > 256 {
		return fmt.Errorf("%w: favicon.size must be in 1..256", ErrInvalidConfig)
	}
	if c.Favicon.Timeout <= 0 {
		return fmt.Errorf("%w: favicon.timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// expandPath resolves relative paths against the config file directory.
func expandPath(p, configPath string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
