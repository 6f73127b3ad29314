package taint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannajonsd/sqli-reachability/flow"
	"github.com/hannajonsd/sqli-reachability/pyast"
	"github.com/hannajonsd/sqli-reachability/scope"
)

func node(module, fn, callee string, endpoint bool) *flow.Node {
	return &flow.Node{
		Module: module,
		Func:   &scope.FunctionSymbol{Module: module, Name: fn, Endpoint: endpoint, Def: &pyast.FunctionDef{Name: fn}},
		Call:   &pyast.Call{Func: &pyast.Name{ID: callee}},
	}
}

func TestGraphAddPath(t *testing.T) {
	sink := node("db", "lookup", "execute", false)
	mid := node("svc", "find", "lookup", false)
	entry := node("api", "get", "find", true)

	g := NewGraph()
	g.AddPath([]*flow.Node{sink, mid, entry})

	require.Equal(t, 3, g.Len())
	assert.Equal(t, []Edge{
		{Source: "svc:find;lookup", Target: "db:lookup;execute"},
		{Source: "api:get;find", Target: "svc:find;lookup"},
	}, g.Edges())

	n, ok := g.Node("api:get;find")
	require.True(t, ok)
	assert.True(t, n.Endpoint)
	assert.Equal(t, "find", n.Calls.Name)
	assert.Equal(t, "get", n.Scope.Name)

	_, ok = g.Node("missing")
	assert.False(t, ok)
}

func TestGraphMerge(t *testing.T) {
	sink := node("db", "lookup", "execute", false)
	a := node("api", "a", "lookup", true)
	b := node("api", "b", "lookup", true)

	g := NewGraph()
	g.AddPath([]*flow.Node{sink, a})

	other := NewGraph()
	other.AddPath([]*flow.Node{sink, a})
	other.AddPath([]*flow.Node{sink, b})
	g.Merge(other)

	assert.Equal(t, 3, g.Len())
	assert.Len(t, g.Edges(), 2)

	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"db:lookup;execute", "api:a;lookup", "api:b;lookup"}, ids)
}

func TestNodePropsModuleLevel(t *testing.T) {
	props := NodeProps(&flow.Node{Module: "app", Call: &pyast.Call{Func: &pyast.Name{ID: "run"}}})
	assert.Equal(t, "app:*;run", props.ID)
	assert.Equal(t, "*", props.Function)
	assert.Nil(t, props.Scope)
	assert.Equal(t, []string{}, props.Vars)
}
