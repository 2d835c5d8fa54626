// Package platform detects the host OS and CPU once per process and
// publishes the result as an immutable value. The probe also selects the
// default dynamic-library filename conventions, preprocessor macros, and
// system search directories used by the rest of the core.
package platform

import (
	"runtime"
	"sync"
)

// OS identifies a supported (or merely observed) host operating system.
type OS int

const (
	OSUnknown OS = iota
	OSLinux
	OSDarwin
	OSWindows
	OSOtherBSD
)

func (o OS) String() string {
	switch o {
	case OSLinux:
		return "linux"
	case OSDarwin:
		return "darwin"
	case OSWindows:
		return "windows"
	case OSOtherBSD:
		return "bsd"
	default:
		return "unknown"
	}
}

// Arch identifies a supported host CPU architecture.
type Arch int

const (
	ArchUnknown Arch = iota
	ArchAMD64
	ArchARM64
)

func (a Arch) String() string {
	switch a {
	case ArchAMD64:
		return "x86_64"
	case ArchARM64:
		return "aarch64"
	default:
		return "unknown"
	}
}

// Info is the immutable result of Probe, safe to share across goroutines.
type Info struct {
	OS   OS
	Arch Arch

	// LibPrefixes are filename prefixes tried in order when a dynamic
	// library path fails to open literally (e.g. "lib" on Unix, "" on
	// Windows).
	LibPrefixes []string

	// LibExtensions are filename suffixes tried in order, in addition to
	// the literal path.
	LibExtensions []string

	// DefaultMacros are injected into every compile alongside the
	// caller-supplied -D options.
	DefaultMacros map[string]string

	// IncludeDirs and LibraryDirs are the default system search paths for
	// this host, populated only for directories that exist at probe time.
	IncludeDirs []string
	LibraryDirs []string

	// PathListSeparator is the separator used to split *_PATH style
	// environment variables on this host.
	PathListSeparator byte
}

var (
	once   sync.Once
	cached Info
)

// Probe returns the process-wide platform info, computing it on first call.
// Subsequent calls return the cached value without synchronization cost
// beyond the sync.Once fast path.
func Probe() Info {
	once.Do(func() {
		cached = detect()
	})
	return cached
}

func detect() Info {
	info := Info{
		OS:            detectOS(),
		Arch:          detectArch(),
		DefaultMacros: map[string]string{"__COSMORUN__": "1"},
	}

	switch info.OS {
	case OSLinux, OSOtherBSD:
		info.LibPrefixes = []string{"", "lib"}
		info.LibExtensions = []string{"", ".so"}
		info.IncludeDirs = existingDirs("/usr/include", "/usr/local/include")
		info.LibraryDirs = existingDirs("/usr/lib", "/usr/lib64", "/usr/local/lib")
		info.PathListSeparator = ':'
		info.DefaultMacros["__linux__"] = "1"
	case OSDarwin:
		info.LibPrefixes = []string{"", "lib"}
		info.LibExtensions = []string{"", ".dylib"}
		info.IncludeDirs = existingDirs("/usr/include", "/usr/local/include", "/opt/homebrew/include")
		info.LibraryDirs = existingDirs("/usr/lib", "/usr/local/lib", "/opt/homebrew/lib")
		info.PathListSeparator = ':'
		info.DefaultMacros["__APPLE__"] = "1"
	case OSWindows:
		info.LibPrefixes = []string{""}
		info.LibExtensions = []string{"", ".dll"}
		info.IncludeDirs = nil
		info.LibraryDirs = nil
		info.PathListSeparator = ';'
		info.DefaultMacros["_WIN32"] = "1"
	default:
		info.LibPrefixes = []string{""}
		info.LibExtensions = []string{""}
		info.PathListSeparator = ':'
	}

	switch info.Arch {
	case ArchAMD64:
		info.DefaultMacros["__x86_64__"] = "1"
	case ArchARM64:
		info.DefaultMacros["__aarch64__"] = "1"
	}

	return info
}

func detectOS() OS {
	switch runtime.GOOS {
	case "linux":
		return OSLinux
	case "darwin":
		return OSDarwin
	case "windows":
		return OSWindows
	case "freebsd", "openbsd", "netbsd", "dragonfly":
		return OSOtherBSD
	default:
		return OSUnknown
	}
}

func detectArch() Arch {
	switch runtime.GOARCH {
	case "amd64":
		return ArchAMD64
	case "arm64":
		return ArchARM64
	default:
		return ArchUnknown
	}
}

// MachineTag returns the short architecture tag used in cache filenames,
// e.g. "<source>.<machine>.o".
func (i Info) MachineTag() string {
	return i.Arch.String()
}

func existingDirs(candidates ...string) []string {
	var out []string
	for _, c := range candidates {
		if dirExists(c) {
			out = append(out, c)
		}
	}
	return out
}
