package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireThenAcquireAgainRefuses(t *testing.T) {
	dir := t.TempDir()
	// Acquire refuses only a live holder whose working directory is the
	// project directory, so the holder (this process) runs from inside it.
	t.Chdir(dir)

	l, err := Acquire(dir)
	require.NoError(t, err)
	defer l.Release()

	_, err = Acquire(dir)
	require.Error(t, err)
	var already *ErrAlreadyRunning
	require.ErrorAs(t, err, &already)
	require.Equal(t, os.Getpid(), already.PID)
}

func TestAcquireReclaimsStaleLock(t *testing.T) {
	dir := t.TempDir()
	lockDir := filepath.Join(dir, ".forge")
	require.NoError(t, os.MkdirAll(lockDir, 0o755))

	// A PID that is very unlikely to be alive: use a PID far above any
	// live process's typical range, guaranteeing the liveness probe fails.
	stalePID := 1 << 30
	require.NoError(t, os.WriteFile(filepath.Join(lockDir, FileName), []byte(strconv.Itoa(stalePID)), 0o644))

	l, err := Acquire(dir)
	require.NoError(t, err)
	defer l.Release()

	data, err := os.ReadFile(filepath.Join(lockDir, FileName))
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestReleaseRemovesLockFile(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, l.Release())

	_, err = os.Stat(filepath.Join(dir, ".forge", FileName))
	require.True(t, os.IsNotExist(err))
}
