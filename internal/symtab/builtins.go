package symtab

import "github.com/cosmorun/cosmorun/internal/platform"

// category marks whether a builtin name is available on every host, POSIX
// hosts only, or needs the variadic trampoline treatment.
type category int

const (
	catAny category = iota
	catPOSIXOnly
	catVariadic
)

type builtinSpec struct {
	name string
	cat  category
}

// coreBuiltins lists the C standard library routines expected by compiled
// programs: stdio, memory, strings, math, pthread, POSIX I/O and process
// control, and the host dynamic-loader shim (spec §4.3). Variadic routines
// are flagged so Build registers the hand-written shims from variadic.go
// instead of a plain dlsym-resolved address.
var coreBuiltins = []builtinSpec{
	// stdio
	{"puts", catAny}, {"putchar", catAny}, {"getchar", catAny},
	{"fopen", catAny}, {"fclose", catAny}, {"fread", catAny}, {"fwrite", catAny},
	{"fflush", catAny}, {"fgets", catAny}, {"fputs", catAny}, {"feof", catAny},
	{"ferror", catAny}, {"remove", catAny}, {"rename", catAny},
	{"printf", catVariadic}, {"fprintf", catVariadic}, {"sprintf", catVariadic},
	{"snprintf", catVariadic}, {"scanf", catVariadic}, {"fscanf", catVariadic},
	{"sscanf", catVariadic},

	// memory
	{"malloc", catAny}, {"calloc", catAny}, {"realloc", catAny}, {"free", catAny},
	{"memcpy", catAny}, {"memmove", catAny}, {"memset", catAny}, {"memcmp", catAny},

	// strings
	{"strlen", catAny}, {"strcpy", catAny}, {"strncpy", catAny}, {"strcat", catAny},
	{"strncat", catAny}, {"strcmp", catAny}, {"strncmp", catAny}, {"strchr", catAny},
	{"strrchr", catAny}, {"strstr", catAny}, {"strdup", catAny}, {"strtol", catAny},
	{"strtod", catAny},

	// math
	{"sin", catAny}, {"cos", catAny}, {"tan", catAny}, {"sqrt", catAny},
	{"pow", catAny}, {"exp", catAny}, {"log", catAny}, {"floor", catAny},
	{"ceil", catAny}, {"fabs", catAny},

	// process control / POSIX I/O
	{"exit", catAny}, {"abort", catAny},
	{"open", catPOSIXOnly}, {"close", catPOSIXOnly}, {"read", catPOSIXOnly},
	{"write", catPOSIXOnly}, {"lseek", catPOSIXOnly}, {"unlink", catPOSIXOnly},
	{"fork", catPOSIXOnly}, {"wait", catPOSIXOnly}, {"waitpid", catPOSIXOnly},
	{"execv", catPOSIXOnly}, {"execvp", catPOSIXOnly},
	{"execl", catVariadic}, {"execle", catVariadic}, {"execlp", catVariadic},
	{"getpid", catPOSIXOnly}, {"kill", catPOSIXOnly}, {"signal", catPOSIXOnly},

	// pthread
	{"pthread_create", catPOSIXOnly}, {"pthread_join", catPOSIXOnly},
	{"pthread_mutex_lock", catPOSIXOnly}, {"pthread_mutex_unlock", catPOSIXOnly},
	{"pthread_mutex_init", catPOSIXOnly}, {"pthread_mutex_destroy", catPOSIXOnly},

	// host dynamic-loader shim (lets compiled C call back into the same
	// layered resolver this table belongs to)
	{"dlopen", catPOSIXOnly}, {"dlsym", catPOSIXOnly}, {"dlclose", catPOSIXOnly},
}

// availableOn reports whether spec's routine should be registered on the
// given host OS: POSIX-only entries are skipped on Windows at registration
// time (spec §4.3 "Platform rule").
func (b builtinSpec) availableOn(os platform.OS) bool {
	if os == platform.OSWindows {
		if b.cat == catPOSIXOnly {
			return false
		}
		switch b.name {
		case "execl", "execle", "execlp":
			return false
		}
	}
	return true
}
