// Package symtab implements the builtin symbol table injected into every
// compiler instance and the layered resolution algorithm applied to each
// undefined reference at relocate-time: builtin table → pre-opened host
// libraries → runtime search → unresolved.
package symtab

import (
	"sort"
)

// Entry is a single (name, address) pair. Addr is an untyped host address;
// the newtype keeps call sites honest about what it represents without
// pretending it is type-safe.
type Entry struct {
	Name string
	Addr uintptr
}

// Table is an order-independent, duplicate-free set of builtin entries.
// Registration order is preserved for diagnostics (-vv prints the count);
// lookup is by name.
type Table struct {
	byName map[string]uintptr
	order  []string
}

// NewTable builds an empty table.
func NewTable() *Table {
	return &Table{byName: make(map[string]uintptr)}
}

// Register adds name→addr if name is not already present and addr is
// non-zero. A NULL address or a duplicate name is silently skipped, per
// spec §4.3/§8 ("registration skips entries with NULL addresses and never
// aborts").
func (t *Table) Register(name string, addr uintptr) {
	if addr == 0 {
		return
	}
	if _, exists := t.byName[name]; exists {
		return
	}
	t.byName[name] = addr
	t.order = append(t.order, name)
}

// RegisterAll registers every entry in order, applying the same skip rules.
func (t *Table) RegisterAll(entries []Entry) {
	for _, e := range entries {
		t.Register(e.Name, e.Addr)
	}
}

// Lookup returns the address registered for name, and whether it was found.
func (t *Table) Lookup(name string) (uintptr, bool) {
	addr, ok := t.byName[name]
	return addr, ok
}

// Len returns the number of distinct registered symbols, used by -vv.
func (t *Table) Len() int {
	return len(t.order)
}

// Names returns the registered symbol names in registration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// SortedNames returns the registered symbol names sorted, useful for
// deterministic diagnostics and tests.
func (t *Table) SortedNames() []string {
	out := t.Names()
	sort.Strings(out)
	return out
}
