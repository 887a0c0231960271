// Package cache keeps the last validated gpu_metrics snapshot and
// refreshes it at most once per MaxAge for any number of readers.
package cache

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/amdmetrics/internal/channel"
	"codeberg.org/mutker/amdmetrics/internal/decoder"
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/layout"
	"codeberg.org/mutker/amdmetrics/internal/logger"
	"codeberg.org/mutker/amdmetrics/internal/schema"
	"codeberg.org/mutker/amdmetrics/internal/source"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"
)

const (
	DefaultMaxAge   = 100 * time.Millisecond
	DefaultMaxBytes = 8192
)

// Config controls refresh behavior.
type Config struct {
	MaxAge   time.Duration
	MaxBytes int
	// SeparatePerCore moves per-core channels to their own device.
	SeparatePerCore bool
}

// Snapshot is one installed, validated snapshot. It is never modified
// after installation.
type Snapshot struct {
	Data     []byte
	Header   decoder.Header
	Revision layout.Revision
	Table    *schema.Table
	Channels *channel.Set
	Updated  time.Time
}

// Decode reads a validated slot from this snapshot. Listing channels and
// decoding them through one Snapshot keeps labels and values together.
func (s *Snapshot) Decode(cat schema.Category, slot int) (uint64, error) {
	if !cat.Valid() || slot < 0 || slot >= cat.Slots() {
		return 0, errors.New().New(errors.ErrInvalidArgument)
	}
	if !s.Channels.Remap(cat)[slot].Valid {
		return 0, errors.New().New(decoder.ErrChannelUnavailable)
	}
	desc, _ := s.Table.Descriptor(cat, slot)

	return decoder.Decode(s.Data, desc)
}

// State is the installed snapshot plus the outcome of the last refresh.
type State struct {
	Snapshot *Snapshot
	// Err is set when the last refresh failed; Snapshot is then stale.
	Err error
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock.
func WithClock(c clock.PassiveClock) Option {
	return func(cache *Cache) {
		cache.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(cache *Cache) {
		cache.log = log
	}
}

// Cache serves channel values from the last validated snapshot.
type Cache struct {
	src       source.Source
	registry  *schema.Registry
	validator *channel.Validator
	cfg       Config
	clock     clock.PassiveClock
	log       logger.Logger
	group     singleflight.Group

	mu      sync.RWMutex
	current *Snapshot
	lastErr error
}

// New creates a cache. Init must be called before reading.
func New(src source.Source, registry *schema.Registry, cfg Config, opts ...Option) *Cache {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	c := &Cache{
		src:      src,
		registry: registry,
		cfg:      cfg,
		clock:    clock.RealClock{},
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.validator = channel.NewValidator(c.log)

	return c
}

// Init performs the first refresh. Any error, an unsupported revision
// included, leaves the cache without channels.
func (c *Cache) Init(ctx context.Context) error {
	if err := c.EnsureFresh(ctx); err != nil {
		return err
	}

	snap := c.State().Snapshot
	c.log.Info().
		Str("revision", snap.Revision.String()).
		Uint64("size", snap.Header.StructureSize).
		Msg("Loaded gpu_metrics")
	if !snap.Channels.HasPerCore {
		c.log.Debug().Msg("Per-CPU-core channels unavailable")
	}

	return nil
}

// EnsureFresh refreshes the snapshot unless the last successful refresh is
// younger than MaxAge. Concurrent callers share one refresh, which runs
// detached from any single caller's cancellation; a caller whose ctx ends
// stops waiting without failing the refresh for the others.
func (c *Cache) EnsureFresh(ctx context.Context) error {
	if c.fresh() {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan("refresh", func() (any, error) {
		if c.fresh() {
			return nil, nil
		}

		return nil, c.refresh(detached)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return errors.New().Wrap(errors.ErrTimeout, ctx.Err())
	}
}

func (c *Cache) fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current != nil &&
		c.lastErr == nil &&
		c.clock.Since(c.current.Updated) < c.cfg.MaxAge
}

func (c *Cache) refresh(ctx context.Context) error {
	data, err := c.src.ReadSnapshot(ctx, c.cfg.MaxBytes)
	if err != nil {
		return c.fail(err)
	}

	snap, err := c.build(data)
	if err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	c.current = snap
	c.lastErr = nil
	c.mu.Unlock()

	return nil
}

// build parses and validates a raw snapshot.
func (c *Cache) build(data []byte) (*Snapshot, error) {
	errFactory := errors.New()

	hdr, err := decoder.ReadHeader(data, c.registry.Header())
	if err != nil {
		if errors.HasCode(err, decoder.ErrSizeMismatch) {
			return nil, errFactory.Wrap(ErrSizeMismatch, err)
		}
		return nil, err
	}

	rev, err := hdr.Revision()
	if err != nil {
		return nil, err
	}

	table, err := c.registry.Lookup(rev.Format, rev.Content)
	if err != nil {
		return nil, err
	}

	if uint64(len(data)) != hdr.StructureSize || len(data) != int(table.Size) {
		return nil, errFactory.WithData(ErrSizeMismatch, struct {
			Read     int
			Header   uint64
			Expected uint16
		}{
			Read:     len(data),
			Header:   hdr.StructureSize,
			Expected: table.Size,
		})
	}

	set := c.validator.Build(data, table)
	if c.cfg.SeparatePerCore {
		channel.SplitPerCore(set)
	}

	return &Snapshot{
		Data:     data,
		Header:   hdr,
		Revision: rev,
		Table:    table,
		Channels: set,
		Updated:  c.clock.Now(),
	}, nil
}

// fail keeps the installed snapshot but marks it stale.
func (c *Cache) fail(err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	c.log.Debug().Err(err).Msg("gpu_metrics refresh failed")

	return err
}

// State returns the installed snapshot and the last refresh error.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return State{Snapshot: c.current, Err: c.lastErr}
}

// ReadChannel refreshes if needed and decodes one slot.
func (c *Cache) ReadChannel(ctx context.Context, cat schema.Category, slot int) (uint64, error) {
	if !cat.Valid() || slot < 0 || slot >= cat.Slots() {
		return 0, errors.New().WithData(errors.ErrInvalidArgument, struct {
			Category string
			Slot     int
		}{
			Category: cat.String(),
			Slot:     slot,
		})
	}

	if err := c.EnsureFresh(ctx); err != nil {
		return 0, err
	}

	return c.decode(cat, slot)
}

// ReadCore reads the per-core slot of a physical core.
func (c *Cache) ReadCore(ctx context.Context, cat schema.Category, core int) (uint64, error) {
	if !cat.Valid() || core < 0 || core >= schema.MaxCores {
		return 0, errors.New().WithData(errors.ErrInvalidArgument, struct {
			Category string
			Core     int
		}{
			Category: cat.String(),
			Core:     core,
		})
	}

	return c.ReadChannel(ctx, cat, cat.CoreSlot(core))
}

// Decode reads a slot from the installed snapshot without refreshing.
func (c *Cache) Decode(cat schema.Category, slot int) (uint64, error) {
	if !cat.Valid() || slot < 0 || slot >= cat.Slots() {
		return 0, errors.New().New(errors.ErrInvalidArgument)
	}

	return c.decode(cat, slot)
}

func (c *Cache) decode(cat schema.Category, slot int) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lastErr != nil {
		return 0, errors.New().Wrap(ErrRefreshFailed, c.lastErr)
	}
	if c.current == nil {
		return 0, errors.New().New(ErrNotInitialized)
	}

	return c.current.Decode(cat, slot)
}
