// Package imports resolves Python import statements against the modules of
// a project and records what each import binds.
package imports

import (
	"sort"
	"strings"
)

// Binding describes what an imported name refers to.
//
// Source is the module the name comes from, rewritten to a project module
// name when it resolves to a file of the project. Original is the name as
// exported by Source when the import renamed it ("from m import a as b"
// gives Original "a"); it is empty when the bound name is the exported
// name. Module is set for "import x" statements, where the bound name
// refers to the module itself.
type Binding struct {
	Source   string `json:"source"`
	Original string `json:"original,omitempty"`
	Module   bool   `json:"module,omitempty"`
}

// ExportedName returns the name Source exports for a binding bound as key.
func (b Binding) ExportedName(key string) string {
	if b.Original != "" {
		return b.Original
	}
	return key
}

// Target returns the dotted name of the object the binding refers to. A
// package's __init__ segment is dropped, so "from . import vul" inside
// package pkg targets pkg.vul.
func (b Binding) Target(key string) string {
	source := strings.TrimSuffix(b.Source, "."+initModule)
	if b.Module {
		return source
	}
	if source == initModule {
		return b.ExportedName(key)
	}
	return source + "." + b.ExportedName(key)
}

// Bindings maps a bound name to its binding.
type Bindings map[string]Binding

// Keys returns the bound names in lexical order.
func (b Bindings) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of b.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// LocalBinding is an import made inside a function body.
type LocalBinding struct {
	Name string `json:"name"`
	Binding
}

// LocalBindings maps a function's simple name to the imports in its body.
type LocalBindings map[string][]LocalBinding

// Add records a binding for function, replacing an earlier binding of the
// same name.
func (l LocalBindings) Add(function, name string, b Binding) {
	list := l[function]
	for i := range list {
		if list[i].Name == name {
			list[i].Binding = b
			return
		}
	}
	l[function] = append(list, LocalBinding{Name: name, Binding: b})
}

// Functions returns the function names in lexical order.
func (l LocalBindings) Functions() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of l.
func (l LocalBindings) Clone() LocalBindings {
	out := make(LocalBindings, len(l))
	for k, v := range l {
		out[k] = append([]LocalBinding(nil), v...)
	}
	return out
}
