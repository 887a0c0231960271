// Package source provides raw gpu_metrics snapshots.
package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"codeberg.org/mutker/amdmetrics/internal/errors"
)

// DefaultPattern matches every gpu_metrics file exported by amdgpu.
const DefaultPattern = "/sys/class/drm/render*/device/gpu_metrics"

// DefaultPath is the gpu_metrics file of the first render node.
const DefaultPath = "/sys/class/drm/renderD128/device/gpu_metrics"

// Source yields one snapshot per call.
type Source interface {
	ReadSnapshot(ctx context.Context, maxBytes int) ([]byte, error)
}

// File reads snapshots from a sysfs file.
type File struct {
	Path string
}

// ReadSnapshot reads the whole file. Files longer than maxBytes are rejected.
func (f File) ReadSnapshot(ctx context.Context, maxBytes int) ([]byte, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return nil, errFactory.Wrap(ErrReadFailed, err)
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, errFactory.Wrap(ErrReadFailed, err)
	}
	defer file.Close()

	// sysfs attributes report a size of 4096 regardless of content, so
	// the read is bounded instead of sized from Stat.
	data, err := io.ReadAll(io.LimitReader(file, int64(maxBytes)+1))
	if err != nil {
		return nil, errFactory.Wrap(ErrReadFailed, err)
	}
	if len(data) > maxBytes {
		return nil, errFactory.WithData(ErrTooLarge, struct {
			Path  string
			Limit int
		}{
			Path:  f.Path,
			Limit: maxBytes,
		})
	}

	return data, nil
}

func (f File) String() string {
	return f.Path
}

// Bytes serves a fixed snapshot.
type Bytes []byte

// ReadSnapshot returns a copy of the snapshot.
func (b Bytes) ReadSnapshot(_ context.Context, maxBytes int) ([]byte, error) {
	if len(b) > maxBytes {
		return nil, errors.New().New(ErrTooLarge)
	}

	out := make([]byte, len(b))
	copy(out, b)

	return out, nil
}

// Discover lists the files matching pattern in lexical order.
func Discover(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}

	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.New().Wrap(ErrDiscover, err)
	}
	sort.Strings(paths)

	return paths, nil
}

// DeviceName derives a short name from a gpu_metrics path, for example
// "renderD128" from /sys/class/drm/renderD128/device/gpu_metrics.
func DeviceName(path string) string {
	dir := filepath.Dir(path)
	if filepath.Base(dir) == "device" {
		return filepath.Base(filepath.Dir(dir))
	}

	return filepath.Base(path)
}
