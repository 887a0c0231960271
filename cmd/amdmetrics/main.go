package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/amdmetrics/internal/config"
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/layout"
	"codeberg.org/mutker/amdmetrics/internal/logger"
	"codeberg.org/mutker/amdmetrics/internal/pid"
	"codeberg.org/mutker/amdmetrics/internal/schema"
	"codeberg.org/mutker/amdmetrics/internal/serializer"
	"codeberg.org/mutker/amdmetrics/internal/source"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprint(os.Stdout, config.Usage("amdmetrics"))
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n\n%s", err, config.Usage("amdmetrics"))
		return 2
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	if !cfg.Debug && !cfg.Verbose {
		if level, ok := logger.ParseLevel(cfg.LogLevel); ok {
			logger.SetLogLevel(level)
		}
	}
	log := logger.Default()
	log.Debug().Str("mode", string(cfg.Mode())).Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	app, err := newApp(cfg, log, serializer.NewWriter(cfg.Format, os.Stdout))
	if err != nil {
		logError(err, "failed to initialize")
		return 1
	}

	if cfg.Daemon() {
		pf := pid.New(pid.DefaultName)
		if err := pf.Write(); err != nil {
			logError(err, "failed to write PID file")
			return 1
		}
		defer func() {
			if err := pf.Remove(); err != nil {
				log.Warn().Err(err).Msg("Failed to remove PID file")
			}
		}()
	}

	if err := app.run(ctx); err != nil {
		logError(err, "exiting with error")
		return 1
	}

	log.Info().Msg("Exiting...")

	return 0
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func logError(err error, msg string) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.ErrorWithCode(appErr).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}

// loadRegistry builds descriptor tables from the embedded layouts or from
// a user-supplied file.
func loadRegistry(path string) (*layout.Definitions, *schema.Registry, error) {
	var (
		defs *layout.Definitions
		err  error
	)
	if path == "" {
		defs, err = layout.Default()
	} else {
		defs, err = layout.Load(path)
	}
	if err != nil {
		return nil, nil, err
	}

	reg, err := schema.NewRegistry(defs)
	if err != nil {
		return nil, nil, err
	}

	return defs, reg, nil
}

// files returns the explicit file arguments or every discovered file.
func files(cfg *config.Config) ([]string, error) {
	if len(cfg.Files) > 0 {
		return cfg.Files, nil
	}

	found, err := source.Discover(cfg.Path)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.New().WithMessage(errors.ErrNoDevices, cfg.Path)
	}

	return found, nil
}
