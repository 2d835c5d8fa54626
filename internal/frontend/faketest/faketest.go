// Package faketest provides an in-package test double for frontend.Frontend
// so internal/driver and internal/importmod tests can drive the pipeline
// without invoking a real C parse.
package faketest

import (
	"os"
	"strings"

	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
	"github.com/cosmorun/cosmorun/internal/frontend"
)

// Unit reports a fixed set of symbols and diagnostics, configured by the
// test that builds it.
type Unit struct {
	Syms  []string
	Diags []frontend.Diagnostic
}

func (u *Unit) Symbols() []string               { return u.Syms }
func (u *Unit) Diagnostics() []frontend.Diagnostic { return u.Diags }

// Frontend is a Frontend whose ParseFile/ParseString derive symbols by a
// trivial scan for `name(` patterns rather than real parsing — enough to
// exercise internal/driver's and internal/importmod's control flow.
type Frontend struct {
	IncludePaths []string
	Macros       map[string]string
	// Fail, if set, makes every parse fail with this error.
	Fail error
}

// New returns an empty Frontend.
func New() *Frontend {
	return &Frontend{Macros: make(map[string]string)}
}

func (f *Frontend) AddIncludePath(dir string) { f.IncludePaths = append(f.IncludePaths, dir) }
func (f *Frontend) DefineMacro(name, value string) { f.Macros[name] = value }
func (f *Frontend) UndefineMacro(name string)      { delete(f.Macros, name) }

func (f *Frontend) ParseFile(path string) (frontend.TranslationUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return f.ParseString(path, string(data))
}

func (f *Frontend) ParseString(name, src string) (frontend.TranslationUnit, error) {
	if f.Fail != nil {
		return nil, f.Fail
	}
	return &Unit{Syms: scanNames(src)}, nil
}

// scanNames extracts identifiers immediately followed by `(` at the start
// of a line, a rough stand-in for "function definitions this unit
// contributes" that is sufficient for driver-level plumbing tests.
func scanNames(src string) []string {
	var names []string
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, "(")
		if idx <= 0 {
			continue
		}
		fields := strings.Fields(line[:idx])
		if len(fields) == 0 {
			continue
		}
		name := fields[len(fields)-1]
		name = strings.TrimPrefix(name, "*")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ErrBoom is a canned failure for tests that need ParseFile/ParseString to
// fail deterministically.
var ErrBoom = cosmorunerr.New(cosmorunerr.KindParse, "faketest: forced parse failure")
