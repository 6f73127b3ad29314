package reachability

import (
	"github.com/hannajonsd/sqli-reachability/flow"
	"github.com/hannajonsd/sqli-reachability/project"
	"github.com/hannajonsd/sqli-reachability/pyast"
	"github.com/hannajonsd/sqli-reachability/scope"
)

// Matches reports whether call invokes the classified function: a bare
// name call for the OnlyFunction cases, target.function(...) for the
// EntireModule cases.
func (c Classification) Matches(call *pyast.Call) bool {
	switch c.Case {
	case OnlyFunction, OnlyFunctionAs:
		name, ok := call.Func.(*pyast.Name)
		return ok && name.ID == c.Target
	case EntireModule, EntireModuleAs:
		attr, ok := call.Func.(*pyast.Attribute)
		if !ok || attr.Attr != c.Function {
			return false
		}
		object, ok := pyast.DottedName(attr.Value)
		return ok && object == c.Target
	}
	return false
}

// findCalls walks module m and returns a node for every call matching c.
func findCalls(m *project.Module, c Classification) []*flow.Node {
	var found []*flow.Node

	var rec *flow.Recorder
	rec = flow.NewRecorder(func(call *pyast.Call) {
		if !c.Matches(call) {
			return
		}
		var fn *scope.FunctionSymbol
		if def := rec.Function(); def != nil {
			fn, _ = m.Function(def)
		}
		found = append(found, flow.CallNode(m.Name(), fn, rec.Snapshot(), call))
	})
	rec.Walk(m.Tree())

	return found
}
