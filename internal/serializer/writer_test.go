package serializer_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"codeberg.org/mutker/amdmetrics/internal/decoder"
	"codeberg.org/mutker/amdmetrics/internal/device"
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/schema"
	"codeberg.org/mutker/amdmetrics/internal/serializer"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func report() serializer.Report {
	return serializer.Report{
		Device:   "renderD128",
		Path:     "/sys/class/drm/renderD128/device/gpu_metrics",
		Revision: "v2.1",
		Size:     128,
		Cores:    4,
		Readings: []device.Reading{
			{Device: "renderD128", Category: schema.Temperature, Kind: "temperature", Label: "GFX", Value: 5200},
			{Device: "renderD128", Category: schema.Frequency, Kind: "frequency", Label: "GFXCLK", Value: 800},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range serializer.SupportedFormats() {
		f, err := serializer.ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, serializer.Format(name), f)
	}

	f, err := serializer.ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, serializer.FormatJSON, f)

	f, err = serializer.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, serializer.FormatTable, f)

	_, err = serializer.ParseFormat("xml")
	assert.True(t, errors.HasCode(err, serializer.ErrUnknownFormat))
}

func TestTableReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, serializer.NewWriter(serializer.FormatTable, &buf).Serialize(report()))

	out := buf.String()
	assert.Contains(t, out, "renderD128")
	assert.Contains(t, out, "v2.1")
	assert.Contains(t, out, "functional cores")
	assert.Regexp(t, `temperature\s+GFX\s+5200`, out)
	assert.Regexp(t, `frequency\s+GFXCLK\s+800`, out)
}

func TestTableReportError(t *testing.T) {
	r := serializer.Report{Device: "renderD129", Path: "x", Error: "unsupported schema v9.9"}

	var buf bytes.Buffer
	require.NoError(t, serializer.NewWriter(serializer.FormatTable, &buf).Serialize(&r))

	assert.Contains(t, buf.String(), "unsupported schema v9.9")
	assert.NotContains(t, buf.String(), "CATEGORY")
}

func TestTableDump(t *testing.T) {
	d := serializer.Dump{
		Device:   "renderD128",
		Revision: "v1.0",
		Fields:   []decoder.Leaf{{Name: "temperature_edge", Value: 255}},
	}

	var buf bytes.Buffer
	require.NoError(t, serializer.NewWriter(serializer.FormatTable, &buf).Serialize(d))

	assert.Regexp(t, `temperature_edge\s+255 \(0xff\)`, buf.String())
}

func TestTableReadings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, serializer.NewWriter(serializer.FormatTable, &buf).Serialize(report().Readings))

	assert.Contains(t, buf.String(), "DEVICE")
	assert.Regexp(t, `renderD128\s+temperature\s+GFX\s+5200`, buf.String())
}

func TestTableRejectsUnknownValue(t *testing.T) {
	err := serializer.NewWriter(serializer.FormatTable, &bytes.Buffer{}).Serialize(42)
	assert.True(t, errors.HasCode(err, serializer.ErrUnsupportedValue))
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, serializer.NewWriter(serializer.FormatJSON, &buf).Serialize(report()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "v2.1", got["revision"])

	readings, ok := got["readings"].([]any)
	require.True(t, ok)
	require.Len(t, readings, 2)
	first, ok := readings[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "temperature", first["category"])
	assert.EqualValues(t, 5200, first["value"])
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, serializer.NewWriter(serializer.FormatYAML, &buf).Serialize(report()))

	var got serializer.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 4, got.Cores)
	assert.Equal(t, "GFXCLK", got.Readings[1].Label)
	assert.Equal(t, "frequency", got.Readings[1].Kind)
}

func TestCBOR(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, serializer.NewWriter(serializer.FormatCBOR, &buf).Serialize(report()))

	var got map[string]any
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "renderD128", got["device"])
	assert.EqualValues(t, 128, got["size"])
}
