package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "FBH_LOG_LEVEL"
	EnvLogTimestamp = "FBH_LOG_TIMESTAMP"
	EnvLogNoColor   = "FBH_LOG_NOCOLOR"
	EnvLogFile      = "FBH_LOG_FILE"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config selects where and how the local diagnostic log is written. stdout
// carries protocol frames, so the log never goes there.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	// File, when set, receives a copy of every log line.
	File string
}

var (
	configureOnce sync.Once
	closer        io.Closer
)

func ConfigureRuntime(cfg Config) zerolog.Logger {
	return Configure(ProfileRuntime, cfg)
}

func ConfigureTests() zerolog.Logger {
	return Configure(ProfileTest, DefaultConfig(ProfileTest))
}

// Configure installs the process logger once; later calls return the
// already configured logger.
func Configure(profile Profile, cfg Config) zerolog.Logger {
	configureOnce.Do(func() {
		applyEnvOverrides(&cfg)
		logger, c := build(profile, cfg, colorable.NewColorableStderr())
		closer = c
		log.Logger = logger
		zerolog.SetGlobalLevel(cfg.Level)
	})
	return log.Logger
}

// Close releases the log file, if one was opened.
func Close() error {
	if closer == nil {
		return nil
	}
	return closer.Close()
}

func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, Timestamp: false}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func build(profile Profile, cfg Config, stderr io.Writer) (zerolog.Logger, io.Closer) {
	console := zerolog.ConsoleWriter{
		Out:        stderr,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor || !isatty.IsTerminal(os.Stderr.Fd()),
	}
	if !cfg.Timestamp {
		console.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	var (
		out     io.Writer = console
		c       io.Closer
		fileErr error
	)
	if strings.TrimSpace(cfg.File) != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			fileErr = err
		} else {
			out = zerolog.MultiLevelWriter(console, f)
			c = f
		}
	}

	ctx := zerolog.New(out).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if profile == ProfileRuntime {
		ctx = ctx.Int("pid", os.Getpid())
	}
	logger := ctx.Logger()
	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("file", cfg.File).Msg("log file unavailable, logging to stderr only")
	}
	return logger, c
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.File = v
	}
}

// ParseLevel accepts the level names used in config files and env vars.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
