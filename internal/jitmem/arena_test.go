package jitmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocWriteFinalizeRelease(t *testing.T) {
	region, err := Alloc(64)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(region.Bytes()), 64)

	copy(region.Bytes(), []byte{0xC3}) // a single RET on amd64, harmless elsewhere

	require.NoError(t, region.Finalize())
	require.NoError(t, region.Finalize(), "Finalize must be idempotent")
	require.NotZero(t, region.Base())

	require.NoError(t, region.Release())
}

func TestAllocRoundsUpToPage(t *testing.T) {
	region, err := Alloc(1)
	require.NoError(t, err)
	defer region.Release()
	require.GreaterOrEqual(t, len(region.Bytes()), 1)
}
