package flow

import (
	"sort"

	"github.com/hannajonsd/sqli-reachability/pyast"
	"github.com/hannajonsd/sqli-reachability/scope"
)

// Node is one step of an interprocedural taint chain: a call site (or the
// sink) inside a function, with the flow events leading up to it.
type Node struct {
	Module   string
	Func     *scope.FunctionSymbol // nil for module-level code
	Events   []Event
	Args     [][]string          // variables read by each positional argument
	Keywords map[string][]string // variables read by each keyword argument
	Vars     []string            // variables carrying taint at this site
	Call     *pyast.Call
}

// FunctionName returns the qualified name of the enclosing function, or "*"
// for module-level code.
func (n *Node) FunctionName() string {
	if n.Func == nil {
		return "*"
	}
	return n.Func.Name
}

// Callee returns the source text of the called expression.
func (n *Node) Callee() string {
	if n.Call == nil {
		return ""
	}
	return pyast.Unparse(n.Call.Func)
}

// ID is the node's identity: module, enclosing function and callee text.
func (n *Node) ID() string {
	return n.Module + ":" + n.FunctionName() + ";" + n.Callee()
}

func (n *Node) String() string {
	return n.Module + ":" + n.FunctionName()
}

// IsEndpoint reports whether the enclosing function is an API endpoint.
func (n *Node) IsEndpoint() bool {
	return n.Func != nil && n.Func.Endpoint
}

// Clone returns a copy owning its own variable set. Events and argument
// sets are never mutated and stay shared.
func (n *Node) Clone() *Node {
	c := *n
	c.Vars = append([]string(nil), n.Vars...)
	return &c
}

// SetVars replaces the tainted variable set, keeping it sorted and unique.
func (n *Node) SetVars(vars []string) {
	set := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		set[v] = struct{}{}
	}
	n.Vars = n.Vars[:0:0]
	for v := range set {
		n.Vars = append(n.Vars, v)
	}
	sort.Strings(n.Vars)
}

// ArgVars returns the variables passed to the callee parameter at position
// index with the given name, counting keyword arguments.
func (n *Node) ArgVars(index int, name string) []string {
	var out []string
	if index >= 0 && index < len(n.Args) {
		out = append(out, n.Args[index]...)
	}
	if name != "" {
		out = append(out, n.Keywords[name]...)
	}
	return out
}

// CallNode builds a node for call inside fn of module, capturing the
// variables of every argument.
func CallNode(module string, fn *scope.FunctionSymbol, events []Event, call *pyast.Call) *Node {
	node := &Node{
		Module: module,
		Func:   fn,
		Events: events,
		Call:   call,
	}
	node.Args = make([][]string, len(call.Args))
	for i, a := range call.Args {
		node.Args[i] = pyast.Vars(a)
	}
	if len(call.Keywords) > 0 {
		node.Keywords = make(map[string][]string, len(call.Keywords))
		for _, kw := range call.Keywords {
			if kw.Name == "" {
				continue
			}
			node.Keywords[kw.Name] = pyast.Vars(kw.Value)
		}
	}
	return node
}
