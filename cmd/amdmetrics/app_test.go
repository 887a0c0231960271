package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/amdmetrics/internal/config"
	"codeberg.org/mutker/amdmetrics/internal/device"
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/layout"
	"codeberg.org/mutker/amdmetrics/internal/layout/layouttest"
	"codeberg.org/mutker/amdmetrics/internal/logger"
	"codeberg.org/mutker/amdmetrics/internal/serializer"
	"codeberg.org/mutker/amdmetrics/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSnapshot(t *testing.T, dir string) string {
	t.Helper()

	data := layouttest.New(t, layouttest.Defaults(t), layout.Revision{Format: 2, Content: 1}).
		Set("temperature_gfx", 5200).
		Set("temperature_core[0]", 4400).
		Set("average_core_power[0]", 900).
		Set("current_coreclk[0]", 2800).
		Bytes()

	path := filepath.Join(dir, "gpu_metrics")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func newTestApp(t *testing.T, args []string, format serializer.Format) (*app, *bytes.Buffer) {
	t.Helper()
	t.Setenv("AMDMETRICS_CONFIG", "")

	cfg, err := config.Load(args)
	require.NoError(t, err)

	var out bytes.Buffer
	a, err := newApp(cfg, logger.Nop(), serializer.NewWriter(format, &out))
	require.NoError(t, err)

	return a, &out
}

func TestTestModeReportsChannels(t *testing.T) {
	path := writeSnapshot(t, t.TempDir())
	a, out := newTestApp(t, []string{path}, serializer.FormatJSON)

	require.NoError(t, a.run(context.Background()))

	var report serializer.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "v2.1", report.Revision)
	assert.Equal(t, 1, report.Cores)
	assert.Contains(t, report.Readings, device.Reading{
		Device: "gpu_metrics", Kind: "temperature", Label: "GFX", Value: 5200,
	})
}

func TestTestModeFailsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	good := writeSnapshot(t, dir)
	missing := filepath.Join(dir, "absent")

	a, out := newTestApp(t, []string{missing, good}, serializer.FormatTable)
	err := a.run(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrDeviceFailed))
	assert.Contains(t, out.String(), "v2.1", "later files are still reported")

	a, out = newTestApp(t, []string{"-f", missing, good}, serializer.FormatTable)
	require.Error(t, a.run(context.Background()))
	assert.NotContains(t, out.String(), "v2.1", "fail-fast stops at the first failure")
}

func TestDumpMode(t *testing.T) {
	path := writeSnapshot(t, t.TempDir())
	a, out := newTestApp(t, []string{"-d", path}, serializer.FormatJSON)

	require.NoError(t, a.run(context.Background()))

	var d serializer.Dump
	require.NoError(t, json.Unmarshal(out.Bytes(), &d))
	assert.Equal(t, "v2.1", d.Revision)
	assert.NotEmpty(t, d.Fields)
	assert.Equal(t, "common_header.structure_size", d.Fields[0].Name)
	assert.EqualValues(t, 128, d.Fields[0].Value)
}

func TestNoDevicesDiscovered(t *testing.T) {
	a, _ := newTestApp(t, []string{"--path", filepath.Join(t.TempDir(), "*", "gpu_metrics")}, serializer.FormatTable)

	err := a.run(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrNoDevices))
}

func TestWatchTickRecordsReadings(t *testing.T) {
	dir := t.TempDir()
	path := writeSnapshot(t, dir)
	a, out := newTestApp(t, []string{"--watch", path}, serializer.FormatTable)

	dev, _, err := a.open(context.Background(), path)
	require.NoError(t, err)

	rec, err := telemetry.NewService(telemetry.Config{
		DBPath:  filepath.Join(dir, "telemetry.db"),
		Enabled: true,
	}, logger.Nop())
	require.NoError(t, err)
	defer rec.Close()

	require.NoError(t, a.tick(context.Background(), []device.Reader{dev}, rec))
	assert.Regexp(t, `gpu_metrics\s+temperature\s+GFX\s+5200`, out.String())
}

func TestWatchStopsOnCancel(t *testing.T) {
	path := writeSnapshot(t, t.TempDir())
	a, out := newTestApp(t, []string{"--watch", path}, serializer.FormatTable)

	dev, _, err := a.open(context.Background(), path)
	require.NoError(t, err)

	rec, err := telemetry.NewService(telemetry.DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, a.watch(ctx, []device.Reader{dev}, rec))
	assert.Contains(t, out.String(), "DEVICE")
}
