package main

import (
	"context"
	"time"

	"codeberg.org/mutker/amdmetrics/internal/cache"
	"codeberg.org/mutker/amdmetrics/internal/config"
	"codeberg.org/mutker/amdmetrics/internal/decoder"
	"codeberg.org/mutker/amdmetrics/internal/device"
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/exporter"
	"codeberg.org/mutker/amdmetrics/internal/layout"
	"codeberg.org/mutker/amdmetrics/internal/logger"
	"codeberg.org/mutker/amdmetrics/internal/schema"
	"codeberg.org/mutker/amdmetrics/internal/serializer"
	"codeberg.org/mutker/amdmetrics/internal/source"
	"codeberg.org/mutker/amdmetrics/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

type app struct {
	cfg      *config.Config
	log      logger.Logger
	out      *serializer.Writer
	defs     *layout.Definitions
	registry *schema.Registry
}

func newApp(cfg *config.Config, log logger.Logger, out *serializer.Writer) (*app, error) {
	defs, reg, err := loadRegistry(cfg.Layouts)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInitApp, err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		out:      out,
		defs:     defs,
		registry: reg,
	}, nil
}

func (a *app) run(ctx context.Context) error {
	paths, err := files(a.cfg)
	if err != nil {
		return err
	}

	switch a.cfg.Mode() {
	case config.ModeDump:
		return a.dump(ctx, paths)
	case config.ModeWatch, config.ModeExport:
		return a.serve(ctx, paths)
	default:
		return a.test(ctx, paths)
	}
}

func (a *app) cacheConfig() cache.Config {
	return cache.Config{
		MaxAge:          a.cfg.MaxAge,
		MaxBytes:        cache.DefaultMaxBytes,
		SeparatePerCore: a.cfg.PerCoreDevice != "",
	}
}

// open initializes a device over path.
func (a *app) open(ctx context.Context, path string) (*device.Device, *cache.Cache, error) {
	c := cache.New(source.File{Path: path}, a.registry, a.cacheConfig(), cache.WithLogger(a.log))
	if err := c.Init(ctx); err != nil {
		return nil, nil, err
	}

	dev := device.New(source.DeviceName(path), c, device.Config{PerCoreName: a.cfg.PerCoreDevice}, a.log)

	return dev, c, nil
}

// test prints the validated channels of every file. Failures are reported
// per file and make the run fail; with fail-fast the first one stops it.
func (a *app) test(ctx context.Context, paths []string) error {
	var failed int
	for _, path := range paths {
		report, err := a.report(ctx, path)
		if err != nil {
			failed++
			report.Error = err.Error()
		}
		if werr := a.out.Serialize(report); werr != nil {
			return werr
		}
		if err != nil && a.cfg.FailFast {
			return err
		}
	}

	if failed > 0 {
		return errors.New().WithData(errors.ErrDeviceFailed, struct {
			Failed int
			Total  int
		}{
			Failed: failed,
			Total:  len(paths),
		})
	}

	return nil
}

func (a *app) report(ctx context.Context, path string) (serializer.Report, error) {
	report := serializer.Report{Device: source.DeviceName(path), Path: path}

	dev, c, err := a.open(ctx, path)
	if err != nil {
		return report, err
	}

	readings, err := dev.Readings(ctx)
	if err != nil {
		return report, err
	}

	snap := c.State().Snapshot
	report.Revision = snap.Revision.String()
	report.Size = int(snap.Header.StructureSize)
	report.Cores = snap.Channels.Functional
	report.Readings = readings

	return report, nil
}

// dump prints every raw field of every file without validation.
func (a *app) dump(ctx context.Context, paths []string) error {
	errFactory := errors.New()

	for _, path := range paths {
		d, err := a.dumpFile(ctx, path)
		if err != nil {
			a.log.Error().Str("path", path).Err(err).Msg("Failed to dump")
			if a.cfg.FailFast {
				return err
			}
			continue
		}
		if err := a.out.Serialize(d); err != nil {
			return errFactory.Wrap(errors.ErrOperationFailed, err)
		}
	}

	return nil
}

func (a *app) dumpFile(ctx context.Context, path string) (serializer.Dump, error) {
	d := serializer.Dump{Device: source.DeviceName(path), Path: path}

	buf, err := source.File{Path: path}.ReadSnapshot(ctx, cache.DefaultMaxBytes)
	if err != nil {
		return d, err
	}

	hdr, err := decoder.ReadHeader(buf, a.registry.Header())
	if err != nil {
		return d, err
	}
	rev, err := hdr.Revision()
	if err != nil {
		return d, err
	}
	d.Revision = rev.String()

	s, ok := a.defs.Struct(rev)
	if !ok {
		return d, errors.New().WithMessage(schema.ErrUnsupported, d.Revision)
	}

	d.Fields, err = decoder.Dump(buf, s)

	return d, err
}

// serve opens every device and then prints readings, serves metrics, or
// both, until ctx is cancelled.
func (a *app) serve(ctx context.Context, paths []string) error {
	var devices []device.Reader
	for _, path := range paths {
		dev, _, err := a.open(ctx, path)
		if err != nil {
			a.log.Error().Str("path", path).Err(err).Msg("Failed to open device")
			if a.cfg.FailFast {
				return err
			}
			continue
		}
		devices = append(devices, dev)
	}
	if len(devices) == 0 {
		return errors.New().New(errors.ErrNoDevices)
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Listen != "" {
		exp := exporter.New(devices, a.log)
		g.Go(func() error {
			return exp.Serve(gctx, a.cfg.Listen)
		})
	}

	if a.cfg.Mode() == config.ModeWatch {
		rec, err := telemetry.NewService(telemetry.Config{
			DBPath:       a.cfg.TelemetryDB,
			Enabled:      a.cfg.Telemetry,
			BatchSize:    telemetry.DefaultConfig().BatchSize,
			BatchTimeout: telemetry.DefaultConfig().BatchTimeout,
		}, a.log)
		if err != nil {
			return err
		}
		g.Go(func() error {
			defer func() {
				if err := rec.Close(); err != nil {
					a.log.Error().Err(err).Msg("Failed to close telemetry")
				}
			}()
			return a.watch(gctx, devices, rec)
		})
	}

	return g.Wait()
}

func (a *app) watch(ctx context.Context, devices []device.Reader, rec telemetry.Collector) error {
	interval := time.Duration(a.cfg.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.log.Info().Dur("interval", interval).Int("devices", len(devices)).Msg("Watching gpu_metrics")

	for {
		if err := a.tick(ctx, devices, rec); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *app) tick(ctx context.Context, devices []device.Reader, rec telemetry.Collector) error {
	sample := &telemetry.Sample{Timestamp: time.Now()}
	for _, dev := range devices {
		readings, err := dev.Readings(ctx)
		if err != nil {
			a.log.Warn().Str("device", dev.Name()).Err(err).Msg("Refresh failed")
			if a.cfg.FailFast {
				return err
			}
			continue
		}
		sample.Readings = append(sample.Readings, readings...)
	}

	if err := a.out.Serialize(sample.Readings); err != nil {
		return err
	}

	if err := rec.Record(ctx, sample); err != nil && ctx.Err() == nil {
		a.log.Warn().Err(err).Msg("Failed to record telemetry")
	}

	return nil
}
