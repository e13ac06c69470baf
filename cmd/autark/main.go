// Package main is the entry point for the autark controller.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/autark/internal/app"
	"github.com/dshills/autark/internal/config"
	"github.com/dshills/autark/internal/logging"
	"github.com/dshills/autark/internal/platform"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	ConfigPath string
	LogLevel   string
	Repair     bool
	NoWatch    bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		if cfg == nil || !errors.Is(err, config.ErrInvalidConfig) {
			fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
			return 1
		}
		if !opts.Repair {
			fmt.Fprintf(os.Stderr, "Error: invalid config: %v (rerun with -repair to fix)\n", err)
			return 1
		}
		cfg.FixInvalidValues()
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Output: os.Stderr,
		Prefix: "autark",
	})
	log.Info("autark %s starting", version)

	controller, err := app.NewController(cfg,
		app.WithLogger(log),
		app.WithEnumerator(platform.NewEnumerator()),
		app.WithResolver(platform.Processes{}),
		app.WithCapturer(platform.NewCapturer()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := controller.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start: %v\n", err)
		return 1
	}

	var watcher *config.Watcher
	if !opts.NoWatch {
		watcher = config.NewWatcher(opts.ConfigPath,
			config.WithWatcherLogger(log.WithComponent("config")))
		watcher.OnReload(func(cfg *config.AppConfig) {
			if err := controller.ApplyConfig(cfg); err != nil {
				log.Warn("config reload not applied: %v", err)
			}
		})
		if err := watcher.Start(); err != nil {
			log.Warn("config watching disabled: %v", err)
			watcher = nil
		}
	}

	// Block until asked to stop.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	log.Info("received %s, shutting down", sig)

	if watcher != nil {
		watcher.Stop()
	}
	if err := controller.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: shutdown: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "config.toml", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "config.toml", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flag.BoolVar(&opts.Repair, "repair", false, "Repair invalid config values with defaults")
	flag.BoolVar(&opts.NoWatch, "no-watch", false, "Disable config hot reload")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Autark - window automation controller\n\n")
		fmt.Fprintf(os.Stderr, "Usage: autark [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("Autark %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	return opts
}
