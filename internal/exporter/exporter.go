// Package exporter publishes device readings as Prometheus metrics.
package exporter

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/mutker/amdmetrics/internal/device"
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/logger"
	"codeberg.org/mutker/amdmetrics/internal/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace      = "amdmetrics"
	collectTimeout = 5 * time.Second
	shutdownGrace  = 5 * time.Second
)

// Exporter collects readings from devices on every scrape.
type Exporter struct {
	devices []device.Reader
	log     logger.Logger

	values        map[schema.Category]*prometheus.Desc
	refreshErrors *prometheus.CounterVec
}

// New creates an exporter over devices.
func New(devices []device.Reader, log logger.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}

	values := make(map[schema.Category]*prometheus.Desc, len(schema.Categories))
	for _, c := range schema.Categories {
		values[c] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", c.String()),
			"Decoded gpu_metrics "+c.String()+" channel in the snapshot's native unit",
			[]string{"device", "channel"},
			nil,
		)
	}

	return &Exporter{
		devices: devices,
		log:     log.With("exporter"),
		values:  values,
		refreshErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_errors_total",
				Help:      "Total number of failed gpu_metrics refreshes",
			},
			[]string{"device"},
		),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range schema.Categories {
		ch <- e.values[c]
	}
	e.refreshErrors.Describe(ch)
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	for _, d := range e.devices {
		readings, err := d.Readings(ctx)
		if err != nil {
			e.refreshErrors.WithLabelValues(d.Name()).Inc()
			e.log.Warn().Str("device", d.Name()).Err(err).Msg("Failed to refresh gpu_metrics")
			continue
		}

		for _, r := range readings {
			ch <- prometheus.MustNewConstMetric(
				e.values[r.Category],
				prometheus.GaugeValue,
				float64(r.Value),
				r.Qualified(),
				r.Label,
			)
		}
	}

	e.refreshErrors.Collect(ch)
}

// Register adds the exporter to reg.
func (e *Exporter) Register(reg prometheus.Registerer) error {
	if err := reg.Register(e); err != nil {
		return errors.New().Wrap(ErrRegisterFailed, err)
	}

	return nil
}

// Handler serves the metrics of reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Serve registers the exporter and serves /metrics on addr until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	errFactory := errors.New()

	reg := prometheus.NewRegistry()
	if err := e.Register(reg); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errFactory.Wrap(ErrServeFailed, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(ErrServeFailed, err)
	}

	return nil
}
