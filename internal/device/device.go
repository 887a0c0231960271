// Package device presents the channels of one gpu_metrics file.
package device

import (
	"context"

	"codeberg.org/mutker/amdmetrics/internal/cache"
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/logger"
	"codeberg.org/mutker/amdmetrics/internal/schema"
)

// DefaultPerCoreName is the conventional name of the per-core device.
const DefaultPerCoreName = "cpu_thermal"

// Config names the devices.
type Config struct {
	// PerCoreName is the name of the per-core device. Empty keeps
	// per-core channels on the main device.
	PerCoreName string
}

// Device is a view over a snapshot cache.
type Device struct {
	name  string
	cfg   Config
	cache *cache.Cache
	log   logger.Logger
}

// New creates a device over c. The cache should be created with
// SeparatePerCore set when cfg.PerCoreName is not empty.
func New(name string, c *cache.Cache, cfg Config, log logger.Logger) *Device {
	if log == nil {
		log = logger.Nop()
	}

	return &Device{
		name:  name,
		cfg:   cfg,
		cache: c,
		log:   log.With("device"),
	}
}

// Name returns the main device name.
func (d *Device) Name() string {
	return d.name
}

// PerCoreName returns the per-core device name, or "" when per-core
// channels stay on the main device or no core is functional.
func (d *Device) PerCoreName() string {
	return d.perCoreName(d.cache.State().Snapshot)
}

func (d *Device) perCoreName(snap *cache.Snapshot) string {
	if d.cfg.PerCoreName == "" || snap == nil || !snap.Channels.HasPerCore {
		return ""
	}

	return d.cfg.PerCoreName
}

// Channels lists the visible channels of the main device.
func (d *Device) Channels() []Channel {
	return channelsOf(d.cache.State().Snapshot)
}

func channelsOf(snap *cache.Snapshot) []Channel {
	if snap == nil {
		return nil
	}

	var out []Channel
	for _, c := range schema.Categories {
		for slot, e := range snap.Channels.Remap(c) {
			if !e.Visible() {
				continue
			}
			out = append(out, Channel{
				Category: c,
				Slot:     slot,
				Label:    c.Label(int(e.Label)),
			})
		}
	}

	return out
}

// CoreChannels lists the channels of the per-core device.
func (d *Device) CoreChannels() []CoreChannel {
	snap := d.cache.State().Snapshot
	if d.perCoreName(snap) == "" {
		return nil
	}

	return coreChannelsOf(snap)
}

func coreChannelsOf(snap *cache.Snapshot) []CoreChannel {
	set := snap.Channels

	var out []CoreChannel
	for _, c := range schema.Categories {
		core := set.Remap(c).Core(c)
		for idx, place := range set.PerCore {
			if !place.Valid {
				break
			}

			physical := int(place.Label)
			if !core[physical].Valid {
				continue
			}
			out = append(out, CoreChannel{
				Category: c,
				Index:    idx,
				Core:     physical,
				Label:    c.Label(int(core[physical].Label)),
			})
		}
	}

	return out
}

// Read refreshes if needed and reads one main device channel.
func (d *Device) Read(ctx context.Context, ch Channel) (uint64, error) {
	return d.cache.ReadChannel(ctx, ch.Category, ch.Slot)
}

// ReadCore refreshes if needed and reads one per-core device channel.
func (d *Device) ReadCore(ctx context.Context, ch CoreChannel) (uint64, error) {
	return d.cache.ReadCore(ctx, ch.Category, ch.Core)
}

// Readings refreshes once and reads every visible channel of both
// devices from that one snapshot. Channels that fail to decode are skipped.
func (d *Device) Readings(ctx context.Context) ([]Reading, error) {
	errFactory := errors.New()

	if err := d.cache.EnsureFresh(ctx); err != nil {
		return nil, errFactory.Wrap(ErrReadFailed, err)
	}

	st := d.cache.State()
	if st.Err != nil {
		return nil, errFactory.Wrap(ErrReadFailed, st.Err)
	}
	if st.Snapshot == nil {
		return nil, errFactory.New(ErrNotInitialized)
	}

	return d.readingsOf(st.Snapshot), nil
}

func (d *Device) readingsOf(snap *cache.Snapshot) []Reading {
	var out []Reading
	for _, ch := range channelsOf(snap) {
		v, err := snap.Decode(ch.Category, ch.Slot)
		if err != nil {
			d.log.Debug().Str("channel", ch.Label).Err(err).Msg("Skipping channel")
			continue
		}
		out = append(out, Reading{
			Device:   d.name,
			Category: ch.Category,
			Kind:     ch.Category.String(),
			Label:    ch.Label,
			Value:    v,
		})
	}

	perCore := d.perCoreName(snap)
	if perCore == "" {
		return out
	}

	for _, ch := range coreChannelsOf(snap) {
		v, err := snap.Decode(ch.Category, ch.Category.CoreSlot(ch.Core))
		if err != nil {
			d.log.Debug().Str("channel", ch.Label).Err(err).Msg("Skipping per-core channel")
			continue
		}
		out = append(out, Reading{
			Device:   perCore,
			Parent:   d.name,
			Category: ch.Category,
			Kind:     ch.Category.String(),
			Label:    ch.Label,
			Value:    v,
		})
	}

	return out
}

var _ Reader = (*Device)(nil)
