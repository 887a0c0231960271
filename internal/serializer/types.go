package serializer

import (
	"codeberg.org/mutker/amdmetrics/internal/decoder"
	"codeberg.org/mutker/amdmetrics/internal/device"
)

// Report is the validated view of one snapshot file.
type Report struct {
	Device   string           `json:"device" yaml:"device" cbor:"device"`
	Path     string           `json:"path" yaml:"path" cbor:"path"`
	Revision string           `json:"revision" yaml:"revision" cbor:"revision"`
	Size     int              `json:"size" yaml:"size" cbor:"size"`
	Cores    int              `json:"functional_cores,omitempty" yaml:"functional_cores,omitempty" cbor:"functional_cores,omitempty"`
	Readings []device.Reading `json:"readings" yaml:"readings" cbor:"readings"`
	Error    string           `json:"error,omitempty" yaml:"error,omitempty" cbor:"error,omitempty"`
}

// Dump is every raw layout field of one snapshot file.
type Dump struct {
	Device   string         `json:"device" yaml:"device" cbor:"device"`
	Path     string         `json:"path" yaml:"path" cbor:"path"`
	Revision string         `json:"revision" yaml:"revision" cbor:"revision"`
	Fields   []decoder.Leaf `json:"fields" yaml:"fields" cbor:"fields"`
}
