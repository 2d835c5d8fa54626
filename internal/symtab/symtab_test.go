package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterSkipsNullAndDuplicates(t *testing.T) {
	table := NewTable()
	table.Register("foo", 0) // NULL: skipped
	table.Register("foo", 0x1000)
	table.Register("foo", 0x2000) // duplicate name: first wins
	addr, ok := table.Lookup("foo")
	require.True(t, ok)
	require.Equal(t, uintptr(0x1000), addr)
	require.Equal(t, 1, table.Len())
}

func TestSortedNamesHasNoDuplicates(t *testing.T) {
	table := NewTable()
	table.RegisterAll([]Entry{{"a", 1}, {"b", 2}, {"a", 3}})
	names := table.SortedNames()
	require.Equal(t, []string{"a", "b"}, names)
}

func TestBuildRegistersVariadicPrintfFamily(t *testing.T) {
	table := Build()
	_, ok := table.Lookup("printf")
	require.True(t, ok, "printf must always be a builtin, never resolved via dlsym")
}

func TestBuildRegistersScanfFamily(t *testing.T) {
	table := Build()
	for _, name := range []string{"scanf", "fscanf", "sscanf"} {
		_, ok := table.Lookup(name)
		require.True(t, ok, "%s must always be a builtin, never resolved via dlsym", name)
	}
}

func TestBuildIsSafeToCallManyTimes(t *testing.T) {
	// purego.NewCallback caps the number of callbacks a process may
	// register; Build must not mint a fresh one on every call.
	for i := 0; i < 10; i++ {
		table := Build()
		_, ok := table.Lookup("printf")
		require.True(t, ok)
	}
}

func TestResolveFallsThroughLayers(t *testing.T) {
	table := NewTable()
	table.Register("my_builtin", 0xdead)
	addr, ok := Resolve(table, "my_builtin", nil)
	require.True(t, ok)
	require.Equal(t, uintptr(0xdead), addr)

	_, ok = Resolve(table, "definitely_undefined_symbol_xyz", nil)
	require.False(t, ok)
}
