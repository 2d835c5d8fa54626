package cosmorunerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	base := New(KindSymbolNotFound, "missing %s", "printf")
	wrapped := errors.New("context: " + base.Error())
	require.Equal(t, KindUnknown, KindOf(wrapped))
	require.Equal(t, KindSymbolNotFound, KindOf(base))

	wrapped2 := Wrap(KindIO, base, "reading cache")
	require.Equal(t, KindIO, KindOf(wrapped2))
	require.ErrorIs(t, wrapped2, base)
}

func TestIsFatalDefaultsAndStrict(t *testing.T) {
	warn := New(KindIncludeNotFound, "stdio.h")
	require.False(t, IsFatal(warn, false))
	require.True(t, IsFatal(warn, true))

	fatal := New(KindRelocationLayout, "got out of range")
	require.True(t, IsFatal(fatal, false))
}

func TestIsFatalNilIsNotFatal(t *testing.T) {
	require.False(t, IsFatal(nil, true))
}
