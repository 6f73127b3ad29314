package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hannajonsd/sqli-reachability/pyast"
	"github.com/hannajonsd/sqli-reachability/scope"
)

func TestCallNode(t *testing.T) {
	call := &pyast.Call{
		Func: &pyast.Name{ID: "x"},
		Args: []pyast.Expr{
			&pyast.Name{ID: "a"},
			&pyast.BinOp{Left: &pyast.Name{ID: "b"}, Op: "+", Right: &pyast.Name{ID: "c"}},
		},
		Keywords: []*pyast.Keyword{{Name: "limit", Value: &pyast.Name{ID: "n"}}},
	}
	fn := &scope.FunctionSymbol{Module: "pkg.wrapper", Name: "get_user_wrapper", Endpoint: true}

	node := CallNode("pkg.wrapper", fn, nil, call)

	assert.Equal(t, [][]string{{"a"}, {"b", "c"}}, node.Args)
	assert.Equal(t, "pkg.wrapper:get_user_wrapper;x", node.ID())
	assert.Equal(t, "pkg.wrapper:get_user_wrapper", node.String())
	assert.True(t, node.IsEndpoint())
	assert.Equal(t, []string{"b", "c"}, node.ArgVars(1, "username"))
	assert.Equal(t, []string{"n"}, node.ArgVars(5, "limit"))
	assert.Empty(t, node.ArgVars(7, "missing"))
}

func TestNodeModuleLevel(t *testing.T) {
	node := CallNode("app", nil, nil, &pyast.Call{Func: &pyast.Attribute{Value: &pyast.Name{ID: "db"}, Attr: "run"}})
	assert.Equal(t, "app:*;db.run", node.ID())
	assert.False(t, node.IsEndpoint())
}

func TestNodeCloneAndSetVars(t *testing.T) {
	node := &Node{Module: "m"}
	node.SetVars([]string{"b", "a", "b"})
	assert.Equal(t, []string{"a", "b"}, node.Vars)

	clone := node.Clone()
	clone.SetVars([]string{"z"})
	assert.Equal(t, []string{"a", "b"}, node.Vars)
	assert.Equal(t, []string{"z"}, clone.Vars)
}
