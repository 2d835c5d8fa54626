package frontend

import (
	"fmt"

	cc "modernc.org/cc/v4"

	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
	"github.com/cosmorun/cosmorun/internal/platform"
)

// CCFrontend implements Frontend on top of modernc.org/cc/v4, the
// cgo-free C99 parser and preprocessor cosmorun embeds instead of
// shelling out to a system cpp. Full C-to-machine-code codegen from the
// parsed AST is explicitly out of scope (spec §1); CCFrontend only
// carries a translation unit through parsing and macro expansion, the
// same division of labor the teacher draws between "frontend" and
// "backend" packages.
type CCFrontend struct {
	info         platform.Info
	includeDirs  []string
	sysIncludeDirs []string
	macros       map[string]string
	undefined    map[string]bool
}

// NewCCFrontend builds a frontend targeting info's OS/arch, seeded with
// info's default include search path.
func NewCCFrontend(info platform.Info) *CCFrontend {
	return &CCFrontend{
		info:           info,
		sysIncludeDirs: append([]string(nil), info.IncludeDirs...),
		macros:         make(map[string]string),
		undefined:      make(map[string]bool),
	}
}

func (f *CCFrontend) AddIncludePath(dir string) {
	f.includeDirs = append(f.includeDirs, dir)
}

func (f *CCFrontend) DefineMacro(name, value string) {
	delete(f.undefined, name)
	f.macros[name] = value
}

func (f *CCFrontend) UndefineMacro(name string) {
	delete(f.macros, name)
	f.undefined[name] = true
}

func (f *CCFrontend) ParseFile(path string) (TranslationUnit, error) {
	return f.parse(path, "")
}

func (f *CCFrontend) ParseString(name, src string) (TranslationUnit, error) {
	return f.parse(name, src)
}

func (f *CCFrontend) parse(name, inlineSrc string) (TranslationUnit, error) {
	goos, goarch := ccTarget(f.info)
	cfg, err := cc.NewConfig(goos, goarch)
	if err != nil {
		return nil, cosmorunerr.Wrap(cosmorunerr.KindParse, err, "configuring cc frontend for %s/%s", goos, goarch)
	}
	cfg.IncludePaths = append(append([]string(nil), f.includeDirs...), f.sysIncludeDirs...)

	for macro, value := range f.macros {
		cfg.Predefined += fmt.Sprintf("#define %s %s\n", macro, value)
	}
	for macro := range f.undefined {
		cfg.Predefined += fmt.Sprintf("#undef %s\n", macro)
	}

	src := cc.Source{Name: name, Value: inlineSrc}
	if inlineSrc == "" {
		src = cc.Source{Name: name}
	}

	ast, err := cc.Parse(cfg, []cc.Source{src})
	if err != nil {
		return &ccUnit{diags: []Diagnostic{
			NewDiagnostic(cosmorunerr.KindParse, name, 0, err.Error()),
		}}, nil
	}

	return newCCUnit(ast), nil
}

// ccTarget maps cosmorun's platform.Info onto the GOOS/GOARCH pair
// modernc.org/cc/v4 expects, matching its predefined-macro and type-size
// tables to the host the JIT will actually execute on.
func ccTarget(info platform.Info) (goos, goarch string) {
	switch info.OS {
	case platform.OSLinux:
		goos = "linux"
	case platform.OSDarwin:
		goos = "darwin"
	case platform.OSWindows:
		goos = "windows"
	default:
		goos = "linux"
	}
	switch info.Arch {
	case platform.ArchAMD64:
		goarch = "amd64"
	case platform.ArchARM64:
		goarch = "arm64"
	default:
		goarch = "amd64"
	}
	return goos, goarch
}

// ccUnit adapts a cc.AST to the TranslationUnit interface. It does not
// attempt to walk the AST into machine code; it exists to surface the
// set of top-level names the unit defines (for duplicate-symbol and
// symbol-not-found diagnostics) and any diagnostics cc.Parse collected.
type ccUnit struct {
	ast    *cc.AST
	names  []string
	diags  []Diagnostic
}

func newCCUnit(ast *cc.AST) *ccUnit {
	u := &ccUnit{ast: ast}
	if ast != nil && ast.TranslationUnit != nil {
		u.names = topLevelNames(ast)
	}
	return u
}

func (u *ccUnit) Symbols() []string       { return u.names }
func (u *ccUnit) Diagnostics() []Diagnostic { return u.diags }

// topLevelNames walks the top level of the translation unit collecting
// function and object declarator names. cc/v4's AST shape is deep and
// largely out of scope here; this walk only needs enough to populate the
// symbol table cosmorun's own resolver and relocation scanner consume.
func topLevelNames(ast *cc.AST) []string {
	var names []string
	for n := ast.TranslationUnit; n != nil; n = n.TranslationUnit {
		ed := n.ExternalDeclaration
		if ed == nil {
			continue
		}
		if fd := ed.FunctionDefinition; fd != nil && fd.Declarator != nil {
			names = append(names, fd.Declarator.Name())
		}
		if decl := ed.Declaration; decl != nil {
			for idl := decl.InitDeclaratorList; idl != nil; idl = idl.InitDeclaratorList {
				if idl.InitDeclarator != nil && idl.InitDeclarator.Declarator != nil {
					names = append(names, idl.InitDeclarator.Declarator.Name())
				}
			}
		}
	}
	return names
}
