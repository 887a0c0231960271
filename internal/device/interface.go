package device

import (
	"context"

	"codeberg.org/mutker/amdmetrics/internal/schema"
)

// Reader is the read side of a device, as used by presentation layers.
type Reader interface {
	Name() string
	Channels() []Channel
	CoreChannels() []CoreChannel
	Readings(ctx context.Context) ([]Reading, error)
}

// Domain types
type (
	// Channel is a visible channel of the main device.
	Channel struct {
		Category schema.Category
		Slot     int
		Label    string
	}

	// CoreChannel is a channel of the separate per-core device. Index is
	// its dense position on that device, Core the physical core.
	CoreChannel struct {
		Category schema.Category
		Index    int
		Core     int
		Label    string
	}

	// Reading is one decoded value in the snapshot's native unit. Parent
	// is set on per-core readings and names the main device.
	Reading struct {
		Device   string          `json:"device" yaml:"device" cbor:"device"`
		Parent   string          `json:"parent,omitempty" yaml:"parent,omitempty" cbor:"parent,omitempty"`
		Category schema.Category `json:"-" yaml:"-" cbor:"-"`
		Kind     string          `json:"category" yaml:"category" cbor:"category"`
		Label    string          `json:"label" yaml:"label" cbor:"label"`
		Value    uint64          `json:"value" yaml:"value" cbor:"value"`
	}
)

// Qualified names the device a reading belongs to uniquely across GPUs.
func (r Reading) Qualified() string {
	if r.Parent == "" {
		return r.Device
	}

	return r.Parent + "/" + r.Device
}
