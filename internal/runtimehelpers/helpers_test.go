package runtimehelpers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmorun/cosmorun/internal/platform"
)

func TestSourcePerArch(t *testing.T) {
	require.Contains(t, Source(platform.ArchARM64), "__cosmorun_f64_to_u64")
	require.Contains(t, Source(platform.ArchAMD64), "__cosmorun_lldiv")
	require.Empty(t, Source(platform.ArchUnknown))
}
