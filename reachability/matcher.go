package reachability

import (
	"github.com/hannajonsd/sqli-reachability/imports"
	"github.com/hannajonsd/sqli-reachability/project"
)

type bindingCheck func(key string, b imports.Binding) (string, bool)

// DifferentiateImports classifies how module m can call function of
// definingModule. Cases are tried in priority order EntireModule,
// OnlyFunction, OnlyFunctionAs, EntireModuleAs; within each case
// function-scoped imports are checked before module-level ones. The
// defining module itself always calls the function by its bare name.
func DifferentiateImports(m *project.Module, function, definingModule string) Classification {
	if m.Name() == definingModule {
		return Classification{Case: OnlyFunction, Target: function, Function: function}
	}
	return Classify(m.Imports(), m.LocalImports(), function, definingModule)
}

// Classify applies the DifferentiateImports rules to explicit binding maps.
func Classify(bindings imports.Bindings, local imports.LocalBindings, function, definingModule string) Classification {
	checks := []struct {
		kind  ImportCase
		check bindingCheck
	}{
		{EntireModule, func(key string, b imports.Binding) (string, bool) {
			return definingModule, key == definingModule
		}},
		{OnlyFunction, func(key string, b imports.Binding) (string, bool) {
			return function, key == function
		}},
		{OnlyFunctionAs, func(key string, b imports.Binding) (string, bool) {
			return key, !b.Module && b.Original == function
		}},
		{EntireModuleAs, func(key string, b imports.Binding) (string, bool) {
			return key, b.Target(key) == definingModule
		}},
	}

	for _, c := range checks {
		if target, ok := matchLocal(local, c.check); ok {
			return Classification{Case: c.kind, Target: target, Function: function}
		}
		if target, ok := matchBindings(bindings, c.check); ok {
			return Classification{Case: c.kind, Target: target, Function: function}
		}
	}
	return Classification{Case: NoImports, Function: function}
}

func matchLocal(local imports.LocalBindings, check bindingCheck) (string, bool) {
	for _, fn := range local.Functions() {
		for _, lb := range local[fn] {
			if target, ok := check(lb.Name, lb.Binding); ok {
				return target, true
			}
		}
	}
	return "", false
}

func matchBindings(bindings imports.Bindings, check bindingCheck) (string, bool) {
	for _, key := range bindings.Keys() {
		if target, ok := check(key, bindings[key]); ok {
			return target, true
		}
	}
	return "", false
}
