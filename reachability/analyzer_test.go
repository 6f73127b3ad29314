package reachability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hannajonsd/sqli-reachability/flow"
	"github.com/hannajonsd/sqli-reachability/parser"
	"github.com/hannajonsd/sqli-reachability/project"
	"github.com/hannajonsd/sqli-reachability/pyast"
)

func loadDemo(t *testing.T) *project.Project {
	t.Helper()
	p, err := project.Load(context.Background(), "demo", "../testdata/demo", project.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return p
}

// fromSources builds a project from in-memory modules.
func fromSources(t *testing.T, sources map[string]string) *project.Project {
	t.Helper()
	ps, err := parser.NewPythonParser()
	require.NoError(t, err)
	defer ps.Close()

	trees := make(map[string]*pyast.Module, len(sources))
	for name, src := range sources {
		res, err := ps.ParseSource(context.Background(), []byte(src), name+".py")
		require.NoError(t, err)
		trees[name] = res.Module
	}
	p, err := project.FromTrees("test", t.TempDir(), trees, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}

func TestDifferentiateImportsDemo(t *testing.T) {
	p := loadDemo(t)

	wrapper, ok := p.Module("backend.vul_wrapper")
	require.True(t, ok)
	vul, ok := p.Module("backend.vul")
	require.True(t, ok)
	pkgInit, ok := p.Module("backend.__init__")
	require.True(t, ok)

	assert.Equal(t,
		Classification{Case: OnlyFunctionAs, Target: "x", Function: "get_user_from_db"},
		DifferentiateImports(wrapper, "get_user_from_db", "backend.vul"))
	assert.Equal(t,
		Classification{Case: OnlyFunctionAs, Target: "y", Function: "add_user_to_db"},
		DifferentiateImports(wrapper, "add_user_to_db", "backend.vul"))
	assert.Equal(t,
		Classification{Case: OnlyFunction, Target: "get_connection", Function: "get_connection"},
		DifferentiateImports(vul, "get_connection", "backend.vul"))
	assert.Equal(t, NoImports, DifferentiateImports(pkgInit, "get_user_from_db", "backend.vul").Case)
}

func TestFindUsesDemo(t *testing.T) {
	f := NewFinder(loadDemo(t), zaptest.NewLogger(t))

	uses := f.FindUses("backend.vul", "get_user_from_db")
	require.Len(t, uses, 1)

	use := uses[0]
	assert.Equal(t, "backend.vul_wrapper:get_user_wrapper;x", use.ID())
	assert.Equal(t, [][]string{{"a"}}, use.Args)
	assert.True(t, use.IsEndpoint())
	require.Len(t, use.Events, 1)
	assert.Equal(t, flow.Assign, use.Events[0].Kind)

	assert.Equal(t, 1, f.Searches())
	assert.Len(t, f.Uses(), 1)

	f.Reset()
	assert.Zero(t, f.Searches())
	assert.Empty(t, f.Uses())
}

func TestFindUsesWithinDefiningModule(t *testing.T) {
	f := NewFinder(loadDemo(t), nil)

	uses := f.FindUses("backend.vul", "get_connection")
	require.Len(t, uses, 2)
	assert.Equal(t, "backend.vul:add_user_to_db;get_connection", uses[0].ID())
	assert.Equal(t, "backend.vul:get_user_from_db;get_connection", uses[1].ID())
	assert.Equal(t, [][]string{}, uses[0].Args)
}

func TestFindUsesArgumentAlignment(t *testing.T) {
	p := fromSources(t, map[string]string{
		"lib": "def run(a, b):\n    pass\n",
		"caller": `import lib as l
from lib import run


def handler(x, y):
    run(x, y)


def other(z):
    l.run(z, b=z + 1)


run(1, 2)
`,
	})
	f := NewFinder(p, nil)

	uses := f.FindUses("lib", "run")
	require.Len(t, uses, 2, "the first matching import case decides the call shape")

	assert.Equal(t, "caller:handler;run", uses[0].ID())
	assert.Equal(t, [][]string{{"x"}, {"y"}}, uses[0].Args)

	assert.Equal(t, "caller:*;run", uses[1].ID())
	assert.Nil(t, uses[1].Func)
	assert.Equal(t, [][]string{{}, {}}, uses[1].Args)
}

func TestFindUsesModuleAlias(t *testing.T) {
	p := fromSources(t, map[string]string{
		"lib": "def run(a, b):\n    pass\n",
		"caller": `import lib as l


def other(z):
    l.run(z, b=z + 1)
`,
	})

	uses := NewFinder(p, nil).FindUses("lib", "run")
	require.Len(t, uses, 1)
	assert.Equal(t, "caller:other;l.run", uses[0].ID())
	assert.Equal(t, [][]string{{"z"}}, uses[0].Args)
	assert.Equal(t, []string{"z"}, uses[0].ArgVars(1, "b"))
}
