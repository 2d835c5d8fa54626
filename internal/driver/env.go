package driver

import (
	"os"
	"strings"

	"github.com/cosmorun/cosmorun/internal/platform"
)

// EnvConfig captures the environment variables spec §4.2 says the driver
// must ingest. Every field is split on info.PathListSeparator except
// CFlags/LDFlags, which are whitespace-separated like a shell would
// tokenize them.
type EnvConfig struct {
	CIncludePath     []string
	CplusIncludePath []string
	LibraryPath      []string
	LdLibraryPath    []string
	PkgConfigPath    []string
	CFlags           []string
	LDFlags          []string
}

// LoadEnv reads the process environment using info's path-list separator
// convention. It never fails: a missing variable just yields a nil slice.
func LoadEnv(info platform.Info) EnvConfig {
	sep := string(info.PathListSeparator)
	split := func(name string) []string {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		return strings.Split(v, sep)
	}
	fields := func(name string) []string {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		return strings.Fields(v)
	}

	return EnvConfig{
		CIncludePath:     split("C_INCLUDE_PATH"),
		CplusIncludePath: split("CPLUS_INCLUDE_PATH"),
		LibraryPath:      split("LIBRARY_PATH"),
		LdLibraryPath:    split("LD_LIBRARY_PATH"),
		PkgConfigPath:    split("PKG_CONFIG_PATH"),
		CFlags:           fields("CFLAGS"),
		LDFlags:          fields("LDFLAGS"),
	}
}

// ApplyTo folds env's search paths into opts, as if every directory it
// names had been passed via -I/-L on the command line. CFlags, LDFlags and
// PkgConfigPath are not applied to opts; they stay in env only (see
// DESIGN.md Open Questions for PKG_CONFIG_PATH).
func (env EnvConfig) ApplyTo(opts *Options) {
	opts.IncludeDirs = append(opts.IncludeDirs, env.CIncludePath...)
	opts.IncludeDirs = append(opts.IncludeDirs, env.CplusIncludePath...)
	opts.LibraryDirs = append(opts.LibraryDirs, env.LibraryPath...)
	opts.LibraryDirs = append(opts.LibraryDirs, env.LdLibraryPath...)
}
