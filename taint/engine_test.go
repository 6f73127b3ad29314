package taint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/hannajonsd/sqli-reachability/flow"
	"github.com/hannajonsd/sqli-reachability/parser"
	"github.com/hannajonsd/sqli-reachability/project"
	"github.com/hannajonsd/sqli-reachability/pyast"
	"github.com/hannajonsd/sqli-reachability/reachability"
	"github.com/hannajonsd/sqli-reachability/scope"
)

const (
	demoRoot    = "../testdata/demo"
	demoSinkID  = "backend.vul:get_user_from_db;cursor.execute"
	demoEntryID = "backend.vul_wrapper:get_user_wrapper;x"
)

func load(t *testing.T, root string) *project.Project {
	t.Helper()
	p, err := project.Load(context.Background(), "", root, project.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return p
}

// fromSources builds a project from in-memory modules keyed by module name.
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
	p, err := project.FromTrees("test", t.TempDir(), trees, scope.DefaultEndpointMatchers(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}

func pathIDs(path []*flow.Node) []string {
	ids := make([]string, len(path))
	for i, n := range path {
		ids[i] = n.ID()
	}
	return ids
}

func newDetector(t *testing.T, p *project.Project, opts ...EngineOption) *Detector {
	logger := zaptest.NewLogger(t)
	opts = append([]EngineOption{WithEngineLogger(logger)}, opts...)
	engine := NewEngine(reachability.NewFinder(p, logger), opts...)
	return NewDetector(p, engine, nil, logger)
}

// sinkIn returns the only sink of function in module.
func sinkIn(t *testing.T, d *Detector, p *project.Project, module, function string) Sink {
	t.Helper()
	m, ok := p.Module(module)
	require.True(t, ok)
	for _, s := range d.FindSinks(m) {
		if s.Func != nil && s.Func.Name == function {
			return s
		}
	}
	t.Fatalf("no sink in %s.%s", module, function)
	return Sink{}
}

func traverse(t *testing.T, d *Detector, s Sink) *Result {
	t.Helper()
	res, err := d.engine.Traverse(s.Func, s.Events, s.Vars, s.Module, s.Call)
	require.NoError(t, err)
	return res
}

func TestFindSinks(t *testing.T) {
	p := load(t, demoRoot)
	d := newDetector(t, p)

	m, _ := p.Module("backend.vul")
	sinks := d.FindSinks(m)
	require.Len(t, sinks, 2)

	assert.Equal(t, "add_user_to_db", sinks[0].Func.Name)
	assert.Empty(t, sinks[0].Vars, "query parameters are not part of the query text")

	assert.Equal(t, "get_user_from_db", sinks[1].Func.Name)
	assert.Equal(t, []string{"query"}, sinks[1].Vars)
	assert.Len(t, sinks[1].Events, 3)
	assert.Equal(t, 20, sinks[1].Call.Loc().StartLine)
}

func TestFindSinksCustomMethods(t *testing.T) {
	p := load(t, demoRoot)
	d := NewDetector(p, NewEngine(reachability.NewFinder(p, nil)), []string{"fetchall"}, nil)

	m, _ := p.Module("backend.vul")
	sinks := d.FindSinks(m)
	assert.Empty(t, sinks, "fetchall() has no query argument")
}

func TestTraverseDemo(t *testing.T) {
	p := load(t, demoRoot)
	d := newDetector(t, p)

	res := traverse(t, d, sinkIn(t, d, p, "backend.vul", "get_user_from_db"))

	require.True(t, res.Vulnerable())
	assert.False(t, res.Incomplete)
	assert.Equal(t, 2, res.Visited)
	assert.Equal(t, demoSinkID, res.Root.ID())
	assert.Equal(t, []string{"query"}, res.Root.Vars)

	require.Len(t, res.Endpoints, 1)
	endpoint := res.Endpoints[0]
	assert.Equal(t, demoEntryID, endpoint.ID())
	assert.Equal(t, []string{"a"}, endpoint.Vars)

	paths := res.Paths[demoEntryID]
	require.Len(t, paths, 1)
	require.Len(t, paths[0], 2)
	assert.Equal(t, demoSinkID, paths[0][0].ID())
	assert.Equal(t, demoEntryID, paths[0][1].ID())

	g := res.Graph()
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []Edge{{Source: demoEntryID, Target: demoSinkID}}, g.Edges())
}

func TestTraverseParameterizedQuery(t *testing.T) {
	p := load(t, demoRoot)
	d := newDetector(t, p)

	res := traverse(t, d, sinkIn(t, d, p, "backend.vul", "add_user_to_db"))
	assert.False(t, res.Vulnerable())
	assert.Equal(t, 1, res.Visited)
	assert.Empty(t, res.Graph().Nodes())
}

func TestTraverseBudget(t *testing.T) {
	p := load(t, demoRoot)
	d := newDetector(t, p, WithMaxVisits(1))

	res := traverse(t, d, sinkIn(t, d, p, "backend.vul", "get_user_from_db"))
	assert.True(t, res.Incomplete)
	assert.False(t, res.Vulnerable())
	assert.Equal(t, 1, res.Visited)
}

func TestTraverseCycleTerminates(t *testing.T) {
	p := load(t, "../testdata/cycle")
	d := newDetector(t, p)

	res := traverse(t, d, sinkIn(t, d, p, "a", "ping"))
	assert.False(t, res.Vulnerable())
	assert.False(t, res.Incomplete)
	assert.Equal(t, 3, res.Visited)
}

func TestTraverseUntaintedArgument(t *testing.T) {
	p := load(t, "../testdata/negative")
	d := newDetector(t, p)

	res := traverse(t, d, sinkIn(t, d, p, "service.db", "lookup"))
	assert.False(t, res.Vulnerable())
	assert.Equal(t, 2, res.Visited, "the endpoint call is visited but passes no parameter")
}

func TestTraverseResetsFinder(t *testing.T) {
	p := load(t, demoRoot)
	finder := reachability.NewFinder(p, zap.NewNop())
	engine := NewEngine(finder)
	d := NewDetector(p, engine, nil, nil)

	s := sinkIn(t, d, p, "backend.vul", "get_user_from_db")
	first, err := engine.Traverse(s.Func, s.Events, s.Vars, s.Module, s.Call)
	require.NoError(t, err)
	second, err := engine.Traverse(s.Func, s.Events, s.Vars, s.Module, s.Call)
	require.NoError(t, err)

	assert.Equal(t, first.Visited, second.Visited)
	assert.Equal(t, 1, finder.Searches())
}

// -- Repeated and re-converging call sites --

const findSink = `import sqlite3


def find(q):
    cursor = sqlite3.connect("app.db").cursor()
    cursor.execute(q)
`

func TestTraverseSameCalleeTwice(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"untainted call first", "    run(p)\n    run(q)\n"},
		{"tainted call first", "    run(q)\n    run(p)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fromSources(t, map[string]string{
				"lib": `import sqlite3


def run(q):
    cursor = sqlite3.connect("app.db").cursor()
    cursor.execute(q)
`,
				"service": "from lib import run\n\n\ndef relay(p, q):\n" + tt.body,
				"api": `from service import relay


@app.route("/items")
def ep(a):
    return relay(1, a)
`,
			})
			d := newDetector(t, p)

			res := traverse(t, d, sinkIn(t, d, p, "lib", "run"))
			require.True(t, res.Vulnerable())
			assert.Equal(t, 4, res.Visited, "both relay call sites are expanded")

			require.Len(t, res.Endpoints, 1)
			assert.Equal(t, "api:ep;relay", res.Endpoints[0].ID())
			assert.Equal(t, []string{"a"}, res.Endpoints[0].Vars)

			paths := res.Paths["api:ep;relay"]
			require.Len(t, paths, 1)
			assert.Equal(t, []string{"lib:run;cursor.execute", "service:relay;run", "api:ep;relay"}, pathIDs(paths[0]))

			report, err := d.Detect(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{"lib.run"}, report.Keys())
		})
	}
}

func TestTraverseDiamond(t *testing.T) {
	p := fromSources(t, map[string]string{
		"base": findSink,
		"m1":   "from base import find\n\n\ndef run(x, z):\n    return find(x)\n",
		"m2":   "from base import find\n\n\ndef run(x, z):\n    return find(z)\n",
		"api": `from m1 import run


@app.route("/items")
def ep(a, b):
    return run(a, b)
`,
	})
	d := newDetector(t, p)

	res := traverse(t, d, sinkIn(t, d, p, "base", "find"))
	require.True(t, res.Vulnerable())
	assert.False(t, res.Incomplete)
	assert.Equal(t, 4, res.Visited)

	require.Len(t, res.Endpoints, 1)
	assert.Equal(t, []string{"a", "b"}, res.Endpoints[0].Vars, "taint from both callers is merged")

	paths := res.Paths["api:ep;run"]
	require.Len(t, paths, 2)
	assert.Equal(t, []string{"base:find;cursor.execute", "m1:run;find", "api:ep;run"}, pathIDs(paths[0]))
	assert.Equal(t, []string{"base:find;cursor.execute", "m2:run;find", "api:ep;run"}, pathIDs(paths[1]))

	g := res.Graph()
	assert.Equal(t, 4, g.Len())
	assert.Equal(t, []Edge{
		{Source: "m1:run;find", Target: "base:find;cursor.execute"},
		{Source: "api:ep;run", Target: "m1:run;find"},
		{Source: "m2:run;find", Target: "base:find;cursor.execute"},
		{Source: "api:ep;run", Target: "m2:run;find"},
	}, g.Edges())
}

func TestTraverseRequeuesGrownTaint(t *testing.T) {
	p := fromSources(t, map[string]string{
		"base":   findSink,
		"helper": "from base import find\n\n\ndef wrap(v):\n    return find(v)\n",
		"inner":  "from helper import wrap\n\n\ndef forward(w):\n    return wrap(w)\n",
		"m1":     "from base import find\n\n\ndef run(x, z):\n    return find(x)\n",
		"m2":     "from inner import forward\n\n\ndef run(x, z):\n    return forward(z)\n",
		"api": `from m1 import run


@app.route("/items")
def ep(a, b):
    return run(a, b)
`,
	})
	d := newDetector(t, p)

	res := traverse(t, d, sinkIn(t, d, p, "base", "find"))
	require.True(t, res.Vulnerable())
	assert.Equal(t, 7, res.Visited, "the endpoint is expanded again once its taint grows")

	require.Len(t, res.Endpoints, 1)
	assert.Equal(t, []string{"a", "b"}, res.Endpoints[0].Vars)

	paths := res.Paths["api:ep;run"]
	require.Len(t, paths, 2)
	assert.Len(t, paths[0], 3)
	assert.Equal(t, []string{
		"base:find;cursor.execute", "helper:wrap;find", "inner:forward;wrap", "m2:run;forward", "api:ep;run",
	}, pathIDs(paths[1]))
}

func TestTraversePathBudget(t *testing.T) {
	p := fromSources(t, map[string]string{
		"base": findSink,
		"m1":   "from base import find\n\n\ndef run(x):\n    return find(x)\n",
		"m2":   "from base import find\n\n\ndef run(x):\n    return find(x)\n",
		"api": `from m1 import run


@app.route("/items")
def ep(a):
    return run(a)
`,
	})
	d := newDetector(t, p, WithMaxPaths(1))

	res := traverse(t, d, sinkIn(t, d, p, "base", "find"))
	require.True(t, res.Vulnerable())
	assert.True(t, res.Incomplete)
	assert.Len(t, res.Paths["api:ep;run"], 1)
}
