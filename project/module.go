package project

import (
	"fmt"

	"github.com/hannajonsd/sqli-reachability/imports"
	"github.com/hannajonsd/sqli-reachability/pyast"
	"github.com/hannajonsd/sqli-reachability/scope"
)

// Module is the analysis record of one source file. Construction runs
// scope resolution and surface detection; import resolution is a separate
// step because it needs the surface of every module in the project.
type Module struct {
	name      string
	path      string
	tree      *pyast.Module
	hasErrors bool

	functions []*scope.FunctionSymbol
	byDef     map[*pyast.FunctionDef]*scope.FunctionSymbol
	surface   map[string]struct{}

	resolved bool
	imports  imports.Bindings
	local    imports.LocalBindings
}

// NewModule builds the record for a parsed file.
func NewModule(name, path string, tree *pyast.Module, resolver *scope.Resolver) *Module {
	m := &Module{
		name:    name,
		path:    path,
		tree:    tree,
		surface: scope.DetectSurface(tree),
		imports: make(imports.Bindings),
		local:   make(imports.LocalBindings),
	}

	m.functions = resolver.Resolve(tree, name)
	m.byDef = make(map[*pyast.FunctionDef]*scope.FunctionSymbol, len(m.functions))
	for _, fn := range m.functions {
		m.byDef[fn.Def] = fn
	}
	return m
}

// ResolveImports runs the import resolver over the module tree, rewriting
// its import statements and storing the bindings they create.
func (m *Module) ResolveImports(r *imports.Resolver) error {
	r.SetModule(m.name)
	bindings, local, err := r.Resolve(m.tree)
	if err != nil {
		return fmt.Errorf("resolve imports of %s: %w", m.name, err)
	}
	m.imports = bindings
	m.local = local
	m.resolved = true
	return nil
}

func (m *Module) Name() string { return m.name }

func (m *Module) Path() string { return m.path }

func (m *Module) Tree() *pyast.Module { return m.tree }

// HasSyntaxErrors reports whether the tree was recovered from a file with
// syntax errors.
func (m *Module) HasSyntaxErrors() bool { return m.hasErrors }

// Resolved reports whether ResolveImports has completed.
func (m *Module) Resolved() bool { return m.resolved }

// Functions returns the module's function symbols in source order.
func (m *Module) Functions() []*scope.FunctionSymbol {
	return append([]*scope.FunctionSymbol(nil), m.functions...)
}

// Function returns the symbol of a definition in this module.
func (m *Module) Function(def *pyast.FunctionDef) (*scope.FunctionSymbol, bool) {
	fn, ok := m.byDef[def]
	return fn, ok
}

// FunctionByName returns the first symbol with the given qualified name.
func (m *Module) FunctionByName(name string) (*scope.FunctionSymbol, bool) {
	for _, fn := range m.functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

// Surface returns a copy of the module's top-level names.
func (m *Module) Surface() map[string]struct{} {
	out := make(map[string]struct{}, len(m.surface))
	for k := range m.surface {
		out[k] = struct{}{}
	}
	return out
}

// Imports returns a copy of the module-level import bindings.
func (m *Module) Imports() imports.Bindings {
	return m.imports.Clone()
}

// LocalImports returns a copy of the function-scoped import bindings.
func (m *Module) LocalImports() imports.LocalBindings {
	return m.local.Clone()
}
