package project

import (
	"sort"

	"github.com/hannajonsd/sqli-reachability/imports"
)

// DepGraph is the static import graph of a project:
// importer -> source module -> names imported from it. Whole-module imports
// have an empty name list. Function-scoped imports appear under
// "<module>:<function>".
type DepGraph map[string]map[string][]string

// BuildDepGraph derives the dependency graph from resolved modules.
func BuildDepGraph(modules []*Module) DepGraph {
	graph := make(DepGraph, len(modules))
	for _, m := range modules {
		entry := make(map[string][]string)
		bindings := m.Imports()
		for _, key := range bindings.Keys() {
			addDependency(entry, key, bindings[key])
		}
		graph[m.Name()] = entry

		local := m.LocalImports()
		for _, fn := range local.Functions() {
			fnEntry := make(map[string][]string)
			for _, lb := range local[fn] {
				addDependency(fnEntry, lb.Name, lb.Binding)
			}
			graph[m.Name()+":"+fn] = fnEntry
		}
	}
	return graph
}

func addDependency(entry map[string][]string, key string, b imports.Binding) {
	names, ok := entry[b.Source]
	if !ok {
		names = []string{}
	}
	if !b.Module {
		name := b.ExportedName(key)
		found := false
		for _, n := range names {
			if n == name {
				found = true
				break
			}
		}
		if !found {
			names = append(names, name)
		}
	}
	entry[b.Source] = names
}

// Importers returns the graph's keys in lexical order.
func (g DepGraph) Importers() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sources returns the modules imported by importer in lexical order.
func (g DepGraph) Sources(importer string) []string {
	keys := make([]string, 0, len(g[importer]))
	for k := range g[importer] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
