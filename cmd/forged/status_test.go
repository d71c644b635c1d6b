package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/autoforge/engine/internal/store"
)

func TestRunStatusOnEmptyBacklog(t *testing.T) {
	dir := t.TempDir()
	projectDir = dir

	st, err := store.Open(context.Background(), filepath.Join(dir, ".forge", "backlog.db"))
	require.NoError(t, err)
	st.Close()

	require.NoError(t, runStatus(statusCmd, nil))
}
