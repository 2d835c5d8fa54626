package dynload

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmorun/cosmorun/internal/platform"
)

func TestOpenRetriesWithPlatformPermutations(t *testing.T) {
	candidates := candidatePaths("m", platform.Probe())
	require.Contains(t, candidates, "m")
	found := false
	for _, c := range candidates {
		if c != "m" {
			found = true
		}
	}
	require.True(t, found, "expected at least one prefix/extension permutation")
}

func TestOpenUnknownLibraryReportsResolveError(t *testing.T) {
	_, err := Open("definitely-not-a-real-library-xyz", FlagsDefault)
	require.Error(t, err)
	require.NotEmpty(t, LastError())
}

func TestSplitDir(t *testing.T) {
	dir, base := splitDir("/usr/lib/libc.so")
	require.Equal(t, "/usr/lib/", dir)
	require.Equal(t, "libc.so", base)

	dir, base = splitDir("libc.so")
	require.Equal(t, "", dir)
	require.Equal(t, "libc.so", base)
}
