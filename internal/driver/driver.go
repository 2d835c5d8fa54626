// Package driver implements the compiler-instance lifecycle spec §6
// describes as the external API surface: create an instance, feed it
// sources and search paths, compile, relocate, look up symbols, write an
// object file, and destroy it. It is the orchestration layer that wires
// internal/frontend, internal/symtab, internal/reloc, internal/gotplt,
// internal/trampoline, internal/jitmem, and internal/cache together.
package driver

import (
	"encoding/binary"
	"os"

	"github.com/golang/glog"

	"github.com/cosmorun/cosmorun/internal/cache"
	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
	"github.com/cosmorun/cosmorun/internal/dynload"
	"github.com/cosmorun/cosmorun/internal/frontend"
	"github.com/cosmorun/cosmorun/internal/gotplt"
	"github.com/cosmorun/cosmorun/internal/jitmem"
	"github.com/cosmorun/cosmorun/internal/platform"
	"github.com/cosmorun/cosmorun/internal/reloc"
	"github.com/cosmorun/cosmorun/internal/runtimehelpers"
	"github.com/cosmorun/cosmorun/internal/symtab"
	"github.com/cosmorun/cosmorun/internal/trampoline"
)

type sourceRequest struct {
	name     string
	path     string
	src      string
	isString bool
}

// Diagnostics is the classification bucket Compile and Relocate return
// alongside an error: every non-fatal diagnostic observed, even when the
// overall call still succeeds.
type Diagnostics struct {
	Warnings []frontend.Diagnostic
}

// Driver is one compiler instance. The zero value is not usable; use
// Create.
type Driver struct {
	info platform.Info
	fe   frontend.Frontend
	opts Options

	builtins  *symtab.Table
	mint      *trampoline.Mint
	resolver  *trampoline.Resolver
	extraLibs []*dynload.Handle

	queue []sourceRequest

	region  *jitmem.Region
	used    int
	locals  map[string]uint64 // name -> absolute address
	relocs  []reloc.Record
	gotPLT  *gotplt.Table
	diags   []frontend.Diagnostic

	compiled  bool
	relocated bool
	destroyed bool
}

// Create builds a new Driver targeting info, parsing with fe, and starting
// from opts (typically driver.DefaultOptions() merged with
// driver.LoadEnv(info) and/or driver.ParseArgs's result).
//
// Two pieces of the compile configuration are always applied here rather
// than left to the caller (spec §4.4): info.DefaultMacros ("-D__COSMORUN__"
// plus the host's OS/arch macros) are injected into fe unconditionally, and
// the builtin symbol table is built only for a memory-output instance — an
// object/executable-output instance (opts.EmitObject or opts.OutputPath
// set) omits it, since its output is meant to be cached or relinked rather
// than executed by this instance, and its external references are left for
// whoever eventually loads it to resolve.
func Create(info platform.Info, fe frontend.Frontend, opts Options) *Driver {
	for name, value := range info.DefaultMacros {
		fe.DefineMacro(name, value)
	}
	for _, dir := range opts.IncludeDirs {
		fe.AddIncludePath(dir)
	}
	for name, value := range opts.Defines {
		fe.DefineMacro(name, value)
	}
	for _, name := range opts.Undefines {
		fe.UndefineMacro(name)
	}

	memoryOutput := !opts.isObjectOutput()

	var builtins *symtab.Table
	if memoryOutput {
		builtins = symtab.Build()
	} else {
		builtins = symtab.NewTable()
	}
	if glog.V(2) {
		glog.Infof("create: %d builtin symbols", builtins.Len())
	}

	mint := trampoline.New()
	d := &Driver{
		info:     info,
		fe:       fe,
		opts:     opts,
		builtins: builtins,
		mint:     mint,
		resolver: trampoline.NewResolver(info, builtins, mint),
		locals:   make(map[string]uint64),
	}

	// A memory-output instance additionally compiles in the
	// per-architecture runtime helper source ahead of the caller's own
	// sources, so calls the codegen emits to it (e.g. __cosmorun_lldiv)
	// resolve as ordinary local symbols.
	if memoryOutput {
		if helper := runtimehelpers.Source(info.Arch); helper != "" {
			d.AddSourceString("<runtime-helpers>", helper)
		}
	}

	return d
}

// AddSource queues a file to compile.
func (d *Driver) AddSource(path string) {
	d.queue = append(d.queue, sourceRequest{name: path, path: path})
}

// AddSourceString queues in-memory source text (the `--eval` path), named
// for diagnostics only.
func (d *Driver) AddSourceString(name, src string) {
	d.queue = append(d.queue, sourceRequest{name: name, src: src, isString: true})
}

// AddIncludePath registers dir with both the frontend and the recorded
// options (so WriteOutput / diagnostics can report it).
func (d *Driver) AddIncludePath(dir string) {
	d.fe.AddIncludePath(dir)
	d.opts.IncludeDirs = append(d.opts.IncludeDirs, dir)
}

// AddLibraryPath records dir in the driver's options as an additional
// library search directory. Nothing under dir is opened, and symbol
// resolution in Compile and Lookup does not search it.
func (d *Driver) AddLibraryPath(dir string) {
	d.opts.LibraryDirs = append(d.opts.LibraryDirs, dir)
}

// SetOptions replaces the driver's option set wholesale, applying any new
// Defines/Undefines to the frontend immediately.
func (d *Driver) SetOptions(opts Options) {
	d.opts = opts
	for name, value := range opts.Defines {
		d.fe.DefineMacro(name, value)
	}
	for _, name := range opts.Undefines {
		d.fe.UndefineMacro(name)
	}
}

// Compile parses every queued source, classifies diagnostics, and emits
// the stub code section (see codegen.go) plus the relocation records that
// describe every call site referencing a symbol outside the unit. It does
// not patch any bytes or synthesize GOT/PLT content yet — that is
// Relocate's job, matching spec §6's separate Compile/Relocate steps.
func (d *Driver) Compile() (Diagnostics, error) {
	if d.destroyed {
		return Diagnostics{}, cosmorunerr.New(cosmorunerr.KindConfig, "Compile called on a destroyed driver instance")
	}
	var out Diagnostics

	for _, req := range d.queue {
		tu, src, err := d.parse(req)
		if err != nil {
			return out, err
		}

		for _, diag := range tu.Diagnostics() {
			if d.isFatalDiag(diag) {
				return out, cosmorunerr.New(diag.Kind, "%s:%d: %s", diag.File, diag.Line, diag.Message)
			}
			out.Warnings = append(out.Warnings, diag)
			d.diags = append(d.diags, diag)
		}

		locallyDefined := make(map[string]bool, len(tu.Symbols()))
		for _, sym := range tu.Symbols() {
			locallyDefined[sym] = true
		}

		for _, sym := range tu.Symbols() {
			if _, exists := d.locals[sym]; exists {
				diag := frontend.NewDiagnostic(cosmorunerr.KindDuplicateSymbol, req.name, 0, "duplicate definition of "+sym)
				if d.isFatalDiag(diag) {
					return out, cosmorunerr.New(diag.Kind, "%s", diag.Message)
				}
				out.Warnings = append(out.Warnings, diag)
				continue
			}
			addr, err := d.emitFunctionStub()
			if err != nil {
				return out, err
			}
			d.locals[sym] = addr
			if glog.V(2) {
				glog.Infof("compile: defined %s at 0x%x", sym, addr)
			}
		}

		for _, name := range externalCallsIn(src, locallyDefined) {
			size := callSiteSize(d.info.Arch)
			if err := d.ensureCapacity(size); err != nil {
				return out, err
			}
			siteAddr := emitCallSite(d.info.Arch, d.region.Bytes(), d.used, uint64(d.region.Base()))
			d.used += size

			target, ok := symtab.Resolve(d.builtins, name, d.extraLibs)
			if !ok {
				diag := frontend.NewDiagnostic(cosmorunerr.KindSymbolNotFound, req.name, 0, "call to undefined symbol "+name)
				if d.isFatalDiag(diag) {
					return out, cosmorunerr.New(diag.Kind, "%s", diag.Message)
				}
				out.Warnings = append(out.Warnings, diag)
				continue
			}
			resolved, err := d.resolver.Resolve(name)
			if err == nil {
				target = resolved
			}

			d.relocs = append(d.relocs, reloc.Record{
				Symbol:     name,
				SourceAddr: siteAddr,
				TargetAddr: uint64(target),
				Kind:       relocKindFor(d.info.Arch),
				Section:    ".text",
			})
		}
	}

	d.compiled = true
	return out, nil
}

// Relocate scans every relocation record for PC32 overflow, synthesizes a
// GOT/PLT pair for whatever overflows, patches every call site (direct or
// rewritten through a PLT stub), and finalizes the code region read-execute.
func (d *Driver) Relocate() error {
	if d.destroyed {
		return cosmorunerr.New(cosmorunerr.KindConfig, "Relocate called on a destroyed driver instance")
	}
	if !d.compiled {
		return cosmorunerr.New(cosmorunerr.KindConfig, "Relocate called before Compile")
	}
	if d.relocated {
		return nil
	}
	if d.region == nil {
		d.relocated = true
		return nil
	}

	codeBase := uint64(d.region.Base())
	codeEnd := codeBase + uint64(d.used)

	overflowing := reloc.Dedup(reloc.Scan(d.relocs))
	var table *gotplt.Table
	if len(overflowing) > 0 {
		var err error
		table, err = gotplt.Build(d.info.Arch, codeBase, codeEnd, overflowing)
		if err != nil {
			return err
		}
		if err := gotplt.Validate(table, codeBase, codeEnd); err != nil {
			return err
		}
		code := d.region.Bytes()
		gotOff := int(table.GOTBase - codeBase)
		pltOff := int(table.PLTBase - codeBase)
		if pltOff+table.Len()*gotplt.StubSize > len(code) {
			return cosmorunerr.New(cosmorunerr.KindRelocationLayout, "GOT/PLT for %d symbol(s) does not fit in the code arena", table.Len())
		}
		for i, target := range table.GOTEntries {
			binary.LittleEndian.PutUint64(code[gotOff+i*8:], target)
			copy(code[pltOff+i*gotplt.StubSize:], table.PLTStubs[i])
		}
		d.gotPLT = table
	}

	rewritten, counts := gotplt.Rewrite(reloc.Scan(d.relocs), table)
	rewriteBySource := make(map[uint64]reloc.Record, len(rewritten))
	for _, r := range rewritten {
		rewriteBySource[r.SourceAddr] = r
	}

	for _, r := range d.relocs {
		target := r.TargetAddr
		if rw, ok := rewriteBySource[r.SourceAddr]; ok {
			target = rw.TargetAddr
		}
		disp := int64(target) + r.Addend
		var offset int
		switch d.info.Arch {
		case platform.ArchARM64:
			disp -= int64(r.SourceAddr)
			offset = int(r.SourceAddr - codeBase)
		default:
			disp -= int64(r.SourceAddr) + 4 // x86 CALL displacement is from the end of the instruction
			offset = int(r.SourceAddr-codeBase) - 1
		}
		if err := patchCallSite(d.info.Arch, d.region.Bytes(), offset, disp); err != nil {
			return err
		}
	}

	if glog.V(1) {
		glog.Infof("relocate: %d call sites, %d overflow(s) routed through GOT/PLT", len(d.relocs), counts[reloc.KindUnknown]+counts[reloc.KindX86PC32]+counts[reloc.KindX86PLT32]+counts[reloc.KindARM64AdrpLdr]+counts[reloc.KindARM64AdrpAdd]+counts[reloc.KindARM64BL])
	}

	if err := d.region.Finalize(); err != nil {
		return err
	}
	d.relocated = true
	return nil
}

// Lookup resolves name to a callable address: a locally defined symbol
// within this instance's compiled code, or an externally resolved (and
// possibly trampoline-wrapped) host symbol.
func (d *Driver) Lookup(name string) (uintptr, error) {
	if addr, ok := d.locals[name]; ok {
		return uintptr(addr), nil
	}
	if addr, err := d.resolver.Resolve(name); err == nil {
		return addr, nil
	}
	return 0, cosmorunerr.New(cosmorunerr.KindImportNotFound, "symbol %q not found in this compiler instance", name)
}

// WriteOutput serializes the compiled, relocated code and its local
// symbol table to path in cosmorun's object format (internal/cache).
func (d *Driver) WriteOutput(path string) error {
	if !d.relocated {
		return cosmorunerr.New(cosmorunerr.KindConfig, "WriteOutput called before Relocate")
	}
	symbols := make(map[string]uint64, len(d.locals))
	base := uint64(0)
	if d.region != nil {
		base = uint64(d.region.Base())
	}
	for name, addr := range d.locals {
		symbols[name] = addr - base
	}
	var code []byte
	if d.region != nil {
		code = append([]byte(nil), d.region.Bytes()[:d.used]...)
	}
	return cache.WriteObject(path, cache.Object{Arch: d.info.Arch, Symbols: symbols, Code: code})
}

// Destroy releases this instance's code region. Process-owned trampoline
// and builtin-table state outlives the instance, per spec §5.
func (d *Driver) Destroy() error {
	if d.destroyed {
		return nil
	}
	d.destroyed = true
	if d.region != nil {
		return d.region.Release()
	}
	return nil
}

func (d *Driver) parse(req sourceRequest) (frontend.TranslationUnit, string, error) {
	if req.isString {
		tu, err := d.fe.ParseString(req.name, req.src)
		if err != nil {
			return nil, "", cosmorunerr.Wrap(cosmorunerr.KindParse, err, "parsing %s", req.name)
		}
		return tu, req.src, nil
	}
	data, err := os.ReadFile(req.path)
	if err != nil {
		return nil, "", cosmorunerr.Wrap(cosmorunerr.KindIO, err, "reading %s", req.path)
	}
	tu, err := d.fe.ParseFile(req.path)
	if err != nil {
		return nil, "", cosmorunerr.Wrap(cosmorunerr.KindParse, err, "parsing %s", req.path)
	}
	return tu, string(data), nil
}

func (d *Driver) isFatalDiag(diag frontend.Diagnostic) bool {
	return cosmorunerr.IsFatal(cosmorunerr.New(diag.Kind, "%s", diag.Message), d.opts.StrictWarnings)
}

// emitFunctionStub reserves space for, and writes, a single-instruction
// function body (see codegen.go), returning its absolute address.
func (d *Driver) emitFunctionStub() (uint64, error) {
	body := retBytes(d.info.Arch)
	if err := d.ensureCapacity(len(body)); err != nil {
		return 0, err
	}
	addr := uint64(d.region.Base()) + uint64(d.used)
	copy(d.region.Bytes()[d.used:], body)
	d.used += len(body)
	return addr, nil
}

// arenaSize is the fixed size of a compiler instance's code region.
// Unlike a general-purpose allocator, this region cannot be grown in
// place once addresses within it have been handed out as relocation
// targets or returned from Lookup: reallocating would move the base
// address and invalidate every absolute address already recorded in
// d.locals and d.relocs. A single generously sized arena per instance
// avoids that class of bug outright; spec §6 scopes one compiler
// instance to "a handful of translation units," not an arbitrarily large
// program, so a fixed ceiling is an acceptable tradeoff.
const arenaSize = 1 << 20

// ensureCapacity lazily allocates the fixed-size code region on first use
// and fails with KindJITAlloc if extra would overflow it.
func (d *Driver) ensureCapacity(extra int) error {
	if d.region == nil {
		region, err := jitmem.Alloc(arenaSize)
		if err != nil {
			return err
		}
		d.region = region
	}
	if d.used+extra > len(d.region.Bytes()) {
		return cosmorunerr.New(cosmorunerr.KindJITAlloc, "compiler instance code arena exhausted (%d bytes)", arenaSize)
	}
	return nil
}

func relocKindFor(arch platform.Arch) reloc.Kind {
	if arch == platform.ArchARM64 {
		return reloc.KindARM64BL
	}
	return reloc.KindX86PC32
}
