package favicon

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/Ciantic/fbrowserhelper/internal/config"
	"github.com/Ciantic/fbrowserhelper/internal/host"
	"github.com/rs/zerolog"
)

const maxResponseBytes = 4 << 20

var (
	ErrNoDomain = errors.New("favicon: url has no domain")
	ErrFetch    = errors.New("favicon: fetch")
)

// Cache is the production host.IconSource.
type Cache struct {
	cfg    config.FaviconConfig
	client *http.Client
	logger zerolog.Logger
}

var _ host.IconSource = (*Cache)(nil)

func New(cfg config.FaviconConfig, logger zerolog.Logger) *Cache {
	return &Cache{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "favicon").Logger(),
	}
}

// IconForURL returns the cached icon for u's domain, fetching it first when
// it is not cached yet.
func (c *Cache) IconForURL(u *url.URL) (string, error) {
	domain, err := Domain(u)
	if err != nil {
		return "", err
	}
	path := c.Path(domain)
	if _, err := os.Stat(path); err == nil {
		c.logger.Debug().Str("domain", domain).Str("path", path).Msg("cache hit")
		return path, nil
	}

	data, err := c.fetch(u.Scheme, domain)
	if err != nil {
		return "", err
	}
	if err := c.store(path, data); err != nil {
		return "", err
	}
	c.logger.Info().Str("domain", domain).Str("path", path).Int("bytes", len(data)).Msg("cached favicon")
	return path, nil
}

// Path is the cache file for domain.
func (c *Cache) Path(domain string) string {
	return filepath.Join(c.cfg.CacheDir, domain+".ico")
}

// Domain returns the lowercase host name of u. IP literals and names that
// are not safe as a file name are rejected.
func Domain(u *url.URL) (string, error) {
	name := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if name == "" || net.ParseIP(name) != nil {
		return "", fmt.Errorf("%w: %q", ErrNoDomain, u.Host)
	}
	if strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrNoDomain, u.Host)
	}
	for _, r := range name {
		if r != '-' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", fmt.Errorf("%w: %q", ErrNoDomain, u.Host)
		}
	}
	return name, nil
}

func (c *Cache) endpoint(scheme, domain string) string {
	q := url.Values{}
	q.Set("client", "SOCIAL")
	q.Set("type", "FAVICON")
	q.Set("fallback_opts", "TYPE,SIZE,URL")
	q.Set("url", scheme+"://"+domain)
	q.Set("size", strconv.Itoa(c.cfg.Size))
	return c.cfg.Endpoint + "?" + q.Encode()
}

func (c *Cache) fetch(scheme, domain string) ([]byte, error) {
	target := c.endpoint(scheme, domain)
	resp, err := c.client.Get(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetch, domain, resp.StatusCode)
	}
	ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if ct != "image/png" {
		return nil, fmt.Errorf("%w: content type %q", ErrNotPNG, resp.Header.Get("Content-Type"))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("%w: %s: response exceeds %d bytes", ErrFetch, domain, maxResponseBytes)
	}
	return data, nil
}

func (c *Cache) store(path string, pngData []byte) error {
	var ico bytes.Buffer
	if err := WriteICO(&ico, pngData); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp icon: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(ico.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp icon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp icon: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename icon: %w", err)
	}
	return nil
}
