package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	f := pid.File{Path: filepath.Join(t.TempDir(), "a.pid")}

	require.NoError(t, f.Write())
	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, f.Remove())
	require.NoError(t, f.Remove())
	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteRefusesLiveProcess(t *testing.T) {
	f := pid.File{Path: filepath.Join(t.TempDir(), "a.pid")}
	require.NoError(t, os.WriteFile(f.Path, []byte(strconv.Itoa(os.Getpid())), 0o600))

	err := f.Write()
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteReplacesStaleFile(t *testing.T) {
	f := pid.File{Path: filepath.Join(t.TempDir(), "a.pid")}
	require.NoError(t, os.WriteFile(f.Path, []byte("garbage"), 0o600))

	require.NoError(t, f.Write())
	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestNewUsesTempDir(t *testing.T) {
	assert.Equal(t, filepath.Join(os.TempDir(), pid.DefaultName), pid.New("").Path)
}
