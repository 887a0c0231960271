package source_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpu_metrics")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0o600))

	f := source.File{Path: path}

	data, err := f.ReadSnapshot(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	_, err = f.ReadSnapshot(context.Background(), 3)
	assert.True(t, errors.HasCode(err, source.ErrTooLarge))
}

func TestFileReadSnapshotErrors(t *testing.T) {
	_, err := source.File{Path: filepath.Join(t.TempDir(), "missing")}.ReadSnapshot(context.Background(), 16)
	assert.True(t, errors.HasCode(err, source.ErrReadFailed))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.File{Path: "/dev/null"}.ReadSnapshot(ctx, 16)
	assert.True(t, errors.HasCode(err, source.ErrReadFailed))
}

func TestBytesCopies(t *testing.T) {
	b := source.Bytes{9, 8}

	data, err := b.ReadSnapshot(context.Background(), 8)
	require.NoError(t, err)
	data[0] = 0
	assert.Equal(t, byte(9), b[0])
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, node := range []string{"renderD129", "renderD128", "card0"} {
		dir := filepath.Join(root, node, "device")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "gpu_metrics"), nil, 0o600))
	}

	paths, err := source.Discover(filepath.Join(root, "render*", "device", "gpu_metrics"))
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "renderD128", source.DeviceName(paths[0]))
	assert.Equal(t, "renderD129", source.DeviceName(paths[1]))

	_, err = source.Discover("[")
	assert.True(t, errors.HasCode(err, source.ErrDiscover))
}
