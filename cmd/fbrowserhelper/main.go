package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Ciantic/fbrowserhelper/internal/config"
	"github.com/Ciantic/fbrowserhelper/internal/desktop"
	"github.com/Ciantic/fbrowserhelper/internal/favicon"
	"github.com/Ciantic/fbrowserhelper/internal/host"
	"github.com/Ciantic/fbrowserhelper/internal/install"
	"github.com/Ciantic/fbrowserhelper/internal/logging"
	"github.com/Ciantic/fbrowserhelper/internal/observability"
	"github.com/Ciantic/fbrowserhelper/internal/protocol"
	"github.com/rs/zerolog"
)

const parentWindowFlag = "--parent-window="

type options struct {
	configPath  string
	install     string
	uninstall   string
	writeConfig bool
	force       bool
	// launch holds the arguments the browser passes: the caller origin for
	// Chrome and Edge, the manifest path and extension id for Firefox.
	launch       []string
	parentWindow string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("fbrowserhelper", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "config path (defaults to "+config.FileName+" beside the executable)")
	fs.StringVar(&opts.install, "install", "", "install for browsers, comma separated: chrome,firefox,edge")
	fs.StringVar(&opts.uninstall, "uninstall", "", "uninstall for browsers, comma separated: chrome,firefox,edge")
	fs.BoolVar(&opts.writeConfig, "write-config", false, "write a config template to the config path")
	fs.BoolVar(&opts.force, "force", false, "overwrite an existing config file")
	fs.StringVar(&opts.parentWindow, "parent-window", "", "native window of the calling browser (set by Chrome)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	// Chrome appends --parent-window after the origin, where flag parsing has
	// already stopped.
	for _, a := range fs.Args() {
		if strings.HasPrefix(a, parentWindowFlag) {
			opts.parentWindow = strings.TrimPrefix(a, parentWindowFlag)
			continue
		}
		opts.launch = append(opts.launch, a)
	}
	return opts, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(stderr, "fbrowserhelper: resolve executable: %v\n", err)
		return 1
	}
	if opts.configPath == "" {
		opts.configPath = config.PathBesideExecutable(exe)
	}

	if opts.writeConfig {
		if err := config.WriteTemplate(opts.configPath, opts.force); err != nil {
			fmt.Fprintf(stderr, "fbrowserhelper: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "Wrote config template to %s\n", opts.configPath)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "fbrowserhelper: %v\n", err)
		return 1
	}
	logger := logging.ConfigureRuntime(cfg.Log)
	defer logging.Close()

	switch {
	case opts.install != "" || opts.uninstall != "":
		return runInstall(opts, cfg, exe, logger)
	case len(opts.launch) > 0:
		return runSession(opts, cfg, stdin, stdout, logger)
	default:
		fmt.Fprintln(stderr, "fbrowserhelper: no action; start from a browser or pass -install")
		return 2
	}
}

func runInstall(opts options, cfg config.Config, exe string, logger zerolog.Logger) int {
	in := install.New(cfg, exe, logger)
	if opts.install != "" {
		browsers, err := install.ParseBrowsers(opts.install)
		if err != nil {
			logger.Error().Err(err).Msg("install")
			return 1
		}
		if err := in.Install(browsers); err != nil {
			logger.Error().Err(err).Msg("install")
			return 1
		}
	}
	if opts.uninstall != "" {
		browsers, err := install.ParseBrowsers(opts.uninstall)
		if err != nil {
			logger.Error().Err(err).Msg("uninstall")
			return 1
		}
		if err := in.Uninstall(browsers); err != nil {
			logger.Error().Err(err).Msg("uninstall")
			return 1
		}
	}
	return 0
}

func runSession(opts options, cfg config.Config, stdin io.Reader, stdout io.Writer, logger zerolog.Logger) int {
	logger.Info().Strs("launch", opts.launch).Str("parent_window", opts.parentWindow).Msg("session start")

	metrics := observability.NewSessionMetrics()
	collab := desktop.New(logger).Collaborators(favicon.New(cfg.Favicon, logger))
	session := host.NewSession(stdin, stdout, host.NewDispatcher(collab, logger), host.SessionConfig{
		Limits:  cfg.Limits,
		Logger:  logger,
		Metrics: metrics,
	})

	err := session.Run()
	if werr := metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
		logger.Warn().Err(werr).Str("path", cfg.MetricsTextfile).Msg("write metrics textfile")
	}

	switch {
	case err == nil:
		logger.Info().Msg("session stopped")
		return 0
	case errors.Is(err, protocol.Kind(protocol.KindStreamError)):
		// The browser closed the pipe; this is the normal way a port ends.
		logger.Info().Err(err).Msg("session ended")
		return 0
	default:
		logger.Error().Err(err).Msg("session failed")
		return 1
	}
}
