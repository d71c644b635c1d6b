package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunInitCmdCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	initForce = false

	require.NoError(t, runInitCmd(initCmd, []string{dir}))

	require.DirExists(t, filepath.Join(dir, ".forge", "control"))
	require.FileExists(t, filepath.Join(dir, ".forge", "backlog.db"))
	require.FileExists(t, filepath.Join(dir, "providers.json"))
}

func TestRunInitCmdRefusesReinitWithoutForce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".forge"), 0o755))
	initForce = false

	require.NoError(t, runInitCmd(initCmd, []string{dir}))
	// Directory already existed; providers.json should not have been
	// created since the init was a no-op.
	_, err := os.Stat(filepath.Join(dir, "providers.json"))
	require.True(t, os.IsNotExist(err))
}
