package exporter_test

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"codeberg.org/mutker/amdmetrics/internal/device"
	"codeberg.org/mutker/amdmetrics/internal/exporter"
	"codeberg.org/mutker/amdmetrics/internal/logger"
	"codeberg.org/mutker/amdmetrics/internal/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDevice struct {
	name     string
	readings []device.Reading
	err      error
}

func (s *stubDevice) Name() string                       { return s.name }
func (s *stubDevice) Channels() []device.Channel         { return nil }
func (s *stubDevice) CoreChannels() []device.CoreChannel { return nil }

func (s *stubDevice) Readings(context.Context) ([]device.Reading, error) {
	return s.readings, s.err
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += fmt.Sprintf(",%s=%s", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			}
		}
	}

	return out
}

func TestCollect(t *testing.T) {
	ok := &stubDevice{
		name: "renderD128",
		readings: []device.Reading{
			{Device: "renderD128", Category: schema.Temperature, Label: "Edge", Value: 4500},
			{Device: "renderD128", Category: schema.Power, Label: "Socket", Value: 30},
			{Device: "cpu_thermal", Category: schema.Frequency, Label: "CoreCLK 0", Value: 3100},
		},
	}
	broken := &stubDevice{name: "renderD129", err: fmt.Errorf("gone")}

	reg := prometheus.NewRegistry()
	require.NoError(t, exporter.New([]device.Reader{ok, broken}, logger.Nop()).Register(reg))

	got := gather(t, reg)
	assert.Equal(t, 4500.0, got["amdmetrics_temperature,channel=Edge,device=renderD128"])
	assert.Equal(t, 30.0, got["amdmetrics_power,channel=Socket,device=renderD128"])
	assert.Equal(t, 3100.0, got["amdmetrics_frequency,channel=CoreCLK 0,device=cpu_thermal"])
	assert.Equal(t, 1.0, got["amdmetrics_refresh_errors_total,device=renderD129"])

	got = gather(t, reg)
	assert.Equal(t, 2.0, got["amdmetrics_refresh_errors_total,device=renderD129"])
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := exporter.New(nil, nil)
	require.NoError(t, e.Register(reg))
	assert.Error(t, e.Register(reg))
}

func TestHandler(t *testing.T) {
	dev := &stubDevice{
		name: "renderD128",
		readings: []device.Reading{
			{Device: "renderD128", Category: schema.Temperature, Label: "Hotspot", Value: 6100},
		},
	}

	reg := prometheus.NewRegistry()
	require.NoError(t, exporter.New([]device.Reader{dev}, nil).Register(reg))

	srv := httptest.NewServer(exporter.Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `amdmetrics_temperature{channel="Hotspot",device="renderD128"} 6100`)
}

func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- exporter.New(nil, nil).Serve(ctx, "127.0.0.1:0")
	}()
	cancel()

	assert.NoError(t, <-done)
}

func TestCollectPerCoreDevicesOfSeveralGPUs(t *testing.T) {
	perCore := func(parent string, v uint64) *stubDevice {
		return &stubDevice{
			name: parent,
			readings: []device.Reading{
				{Device: "cpu_thermal", Parent: parent, Category: schema.Temperature, Label: "Core 0", Value: v},
			},
		}
	}

	reg := prometheus.NewRegistry()
	devices := []device.Reader{perCore("renderD128", 4100), perCore("renderD129", 4200)}
	require.NoError(t, exporter.New(devices, logger.Nop()).Register(reg))

	got := gather(t, reg)
	assert.Equal(t, 4100.0, got["amdmetrics_temperature,channel=Core 0,device=renderD128/cpu_thermal"])
	assert.Equal(t, 4200.0, got["amdmetrics_temperature,channel=Core 0,device=renderD129/cpu_thermal"])
}
