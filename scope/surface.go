package scope

import (
	"sort"

	"github.com/hannajonsd/sqli-reachability/pyast"
)

// DetectSurface returns the names a module defines at top level: assignment
// targets and function and class names. Imports are not part of the
// surface.
func DetectSurface(tree *pyast.Module) map[string]struct{} {
	surface := make(map[string]struct{})
	for _, stmt := range tree.Body {
		switch n := stmt.(type) {
		case *pyast.Assign:
			for _, name := range pyast.TargetNames(n.Targets...) {
				surface[name] = struct{}{}
			}
		case *pyast.AugAssign:
			for _, name := range pyast.TargetNames(n.Target) {
				surface[name] = struct{}{}
			}
		case *pyast.FunctionDef:
			surface[n.Name] = struct{}{}
		case *pyast.ClassDef:
			surface[n.Name] = struct{}{}
		}
	}
	return surface
}

// SortedNames returns the members of a surface set in lexical order.
func SortedNames(surface map[string]struct{}) []string {
	names := make([]string, 0, len(surface))
	for name := range surface {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
