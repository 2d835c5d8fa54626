package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbeIsStableAcrossCalls(t *testing.T) {
	first := Probe()
	second := Probe()
	require.Equal(t, first, second)
	require.NotEqual(t, OSUnknown, first.OS, "host OS should be detected in CI")
}

func TestProbeSelectsPerOSConventions(t *testing.T) {
	info := Probe()
	require.NotEmpty(t, info.LibExtensions)
	require.Contains(t, info.DefaultMacros, "__COSMORUN__")
	switch info.OS {
	case OSWindows:
		require.Equal(t, byte(';'), info.PathListSeparator)
	default:
		require.Equal(t, byte(':'), info.PathListSeparator)
	}
}

func TestMachineTagMatchesArch(t *testing.T) {
	info := Probe()
	require.Equal(t, info.Arch.String(), info.MachineTag())
}
