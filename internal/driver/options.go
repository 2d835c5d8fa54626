package driver

import (
	"fmt"
	"strings"

	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
)

// Options mirrors the small set of compiler flags spec §4.2/§6 names as
// part of the driver's contract: include/library paths, macro defines and
// undefines, output handling, and diagnostic verbosity.
type Options struct {
	IncludeDirs []string
	LibraryDirs []string
	Defines     map[string]string
	Undefines   []string

	OutputPath     string
	EmitObject     bool // -c: stop after producing an object file
	PreprocessOnly bool // -E: stop after preprocessing

	Verbosity int // 0 quiet, 1 for -v, 2 for -vv

	NoStdLib bool
	NoStdInc bool

	// StrictWarnings promotes IncludeNotFound/DuplicateSymbol/
	// SymbolNotFound from warnings to fatal errors (DESIGN.md Open
	// Question (b)).
	StrictWarnings bool
}

// DefaultOptions returns the Options a fresh Driver starts from, with
// NoStdLib and NoStdInc set to true. Both fields are recorded only: the
// driver does not read them, and a CCFrontend searches the host's default
// include directories (platform.Info.IncludeDirs) whether or not NoStdInc
// is set.
func DefaultOptions() Options {
	return Options{
		Defines:  make(map[string]string),
		NoStdLib: true,
		NoStdInc: true,
	}
}

// ParseArgs recognizes the flag subset spec §4.2/§6 lists (-I, -L, -D, -U,
// -o, -c, -E, -v, -vv, -nostdlib, -nostdinc), in the hand-rolled
// sequential-loop style the teacher's main.go uses instead of the
// standard library's flag package (which cannot express "-D NAME=VALUE"
// or repeated -I/-L accumulation the way a C compiler driver needs).
// Arguments it does not recognize are returned as positional (source file)
// arguments.
func ParseArgs(argv []string) (Options, []string, error) {
	opts := DefaultOptions()
	var positional []string

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-I":
			i++
			if i >= len(argv) {
				return opts, nil, cosmorunerr.New(cosmorunerr.KindConfig, "-I requires an argument")
			}
			opts.IncludeDirs = append(opts.IncludeDirs, argv[i])
		case strings.HasPrefix(arg, "-I") && len(arg) > 2:
			opts.IncludeDirs = append(opts.IncludeDirs, arg[2:])

		case arg == "-L":
			i++
			if i >= len(argv) {
				return opts, nil, cosmorunerr.New(cosmorunerr.KindConfig, "-L requires an argument")
			}
			opts.LibraryDirs = append(opts.LibraryDirs, argv[i])
		case strings.HasPrefix(arg, "-L") && len(arg) > 2:
			opts.LibraryDirs = append(opts.LibraryDirs, arg[2:])

		case arg == "-D":
			i++
			if i >= len(argv) {
				return opts, nil, cosmorunerr.New(cosmorunerr.KindConfig, "-D requires an argument")
			}
			name, value := splitDefine(argv[i])
			opts.Defines[name] = value
		case strings.HasPrefix(arg, "-D") && len(arg) > 2:
			name, value := splitDefine(arg[2:])
			opts.Defines[name] = value

		case arg == "-U":
			i++
			if i >= len(argv) {
				return opts, nil, cosmorunerr.New(cosmorunerr.KindConfig, "-U requires an argument")
			}
			opts.Undefines = append(opts.Undefines, argv[i])
		case strings.HasPrefix(arg, "-U") && len(arg) > 2:
			opts.Undefines = append(opts.Undefines, arg[2:])

		case arg == "-o":
			i++
			if i >= len(argv) {
				return opts, nil, cosmorunerr.New(cosmorunerr.KindConfig, "-o requires an argument")
			}
			opts.OutputPath = argv[i]

		case arg == "-c":
			opts.EmitObject = true
		case arg == "-E":
			opts.PreprocessOnly = true
		case arg == "-v":
			opts.Verbosity = 1
		case arg == "-vv":
			opts.Verbosity = 2
		case arg == "-nostdlib":
			opts.NoStdLib = true
		case arg == "-nostdinc":
			opts.NoStdInc = true

		case strings.HasPrefix(arg, "-"):
			return opts, nil, cosmorunerr.New(cosmorunerr.KindConfig, "unrecognized option %q", arg)

		default:
			positional = append(positional, arg)
		}
	}

	return opts, positional, nil
}

func splitDefine(s string) (name, value string) {
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, "1"
}

// isObjectOutput reports whether opts targets an object/executable file
// rather than running the compiled code in memory: spec §4.4 requires this
// mode to omit the builtin table entirely, since its output is meant to be
// relinked or cached rather than executed by this instance.
func (o Options) isObjectOutput() bool {
	return o.EmitObject || o.OutputPath != ""
}

func (o Options) String() string {
	return fmt.Sprintf("Options{I:%v L:%v D:%v c:%v E:%v v:%d}", o.IncludeDirs, o.LibraryDirs, o.Defines, o.EmitObject, o.PreprocessOnly, o.Verbosity)
}
