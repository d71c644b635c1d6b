package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckEntrypointFindsShell(t *testing.T) {
	// "sh" is present in any environment capable of running these tests.
	require.NoError(t, checkEntrypoint("sh"))
}

func TestCheckEntrypointRejectsMissingBinary(t *testing.T) {
	err := checkEntrypoint("definitely-not-a-real-worker-binary")
	require.Error(t, err)
}
