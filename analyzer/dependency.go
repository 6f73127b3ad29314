package analyzer

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/hannajonsd/sqli-reachability/imports"
	"github.com/hannajonsd/sqli-reachability/project"
	"github.com/hannajonsd/sqli-reachability/version_lookup"
)

// DiscoverDependencies finds the external packages imported anywhere in the
// project, with versions taken from the project's manifests.
func DiscoverDependencies(p *project.Project, reqs map[string]version_lookup.Requirement) []Dependency {
	localRoots := make(map[string]bool)
	for _, name := range p.ModuleNames() {
		localRoots[topLevel(name)] = true
	}

	codeImports := make(map[string]map[string]bool)
	record := func(b imports.Binding, file string) {
		name := normalizeImportName(b.Source)
		if name == "" || localRoots[name] {
			return
		}
		if codeImports[name] == nil {
			codeImports[name] = make(map[string]bool)
		}
		codeImports[name][file] = true
	}

	for _, m := range p.Modules() {
		file := m.Path()
		if rel, err := filepath.Rel(p.Root(), file); err == nil && file != "" {
			file = rel
		}
		for _, b := range m.Imports() {
			record(b, file)
		}
		for _, list := range m.LocalImports() {
			for _, lb := range list {
				record(lb.Binding, file)
			}
		}
	}

	names := make([]string, 0, len(codeImports))
	for n := range codeImports {
		names = append(names, n)
	}
	sort.Strings(names)

	deps := make([]Dependency, 0, len(names))
	for _, n := range names {
		dep := Dependency{Name: n, FoundInFiles: sortedSet(codeImports[n])}
		if req, ok := lookupRequirement(reqs, n); ok {
			dep.IsInManifest = true
			dep.Version = req.Version
			dep.Manifest = req.Manifest
		}
		deps = append(deps, dep)
	}
	return deps
}

// lookupRequirement matches an import name against declared distributions.
// Distribution names often differ from import names only by separators.
func lookupRequirement(reqs map[string]version_lookup.Requirement, importName string) (version_lookup.Requirement, bool) {
	key := version_lookup.NormalizeName(importName)
	if r, ok := reqs[key]; ok {
		return r, true
	}
	for _, alias := range distributionAliases[importName] {
		if r, ok := reqs[alias]; ok {
			return r, true
		}
	}
	return version_lookup.Requirement{}, false
}

func dependencyNames(deps []Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.Name)
	}
	return out
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func topLevel(module string) string {
	if i := strings.Index(module, "."); i >= 0 {
		return module[:i]
	}
	return module
}
