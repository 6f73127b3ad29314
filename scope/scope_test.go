package scope

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannajonsd/sqli-reachability/parser"
	"github.com/hannajonsd/sqli-reachability/pyast"
)

func parse(t *testing.T, src string) *pyast.Module {
	t.Helper()
	p, err := parser.NewPythonParser()
	require.NoError(t, err)
	defer p.Close()

	res, err := p.ParseSource(context.Background(), []byte(src), "test.py")
	require.NoError(t, err)
	return res.Module
}

const nestedSource = `class A:
    class B:
        def f(self, x):
            def inner(y):
                return y
            return inner(x)

def g(a, b=1):
    pass

@app.route("/items")
def list_items(page):
    pass

@bp.route("/x")
def blueprint_view():
    pass

@api_view
def bare_view(request):
    pass

@other.route("/y")
def not_an_endpoint():
    pass
`

func TestResolveQualifiedNames(t *testing.T) {
	symbols := NewResolver(DefaultEndpointMatchers()).Resolve(parse(t, nestedSource), "pkg.mod")

	var names []string
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	want := []string{"A.B:f", "A.B:inner", "g", "list_items", "blueprint_view", "bare_view", "not_an_endpoint"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("qualified names mismatch (-want +got):\n%s", diff)
	}

	f := symbols[0]
	assert.Equal(t, "pkg.mod", f.Module)
	assert.Equal(t, "f", f.SimpleName)
	assert.Equal(t, []string{"B", "A"}, f.Owners)
	assert.Equal(t, []string{"self", "x"}, f.Params)
	assert.True(t, f.IsMethod())
	assert.True(t, f.HasParam("x"))
	assert.Equal(t, "pkg.mod:A.B:f(self, x)", f.String())

	g := symbols[2]
	assert.False(t, g.IsMethod())
	assert.Equal(t, []string{"a", "b"}, g.Params)
}

func TestResolveEndpoints(t *testing.T) {
	matchers := append(DefaultEndpointMatchers(), EndpointMatcher{Shape: ShapeName, Match: "api_view"})
	symbols := NewResolver(matchers).Resolve(parse(t, nestedSource), "views")

	endpoints := map[string]bool{}
	for _, s := range symbols {
		endpoints[s.Name] = s.Endpoint
	}
	assert.Equal(t, map[string]bool{
		"A.B:f":           false,
		"A.B:inner":       false,
		"g":               false,
		"list_items":      true,
		"blueprint_view":  true,
		"bare_view":       true,
		"not_an_endpoint": false,
	}, endpoints)
}

func TestResolverIsReusable(t *testing.T) {
	r := NewResolver(nil)
	first := r.Resolve(parse(t, "class C:\n    def m(self):\n        pass\n"), "a")
	second := r.Resolve(parse(t, "def top():\n    pass\n"), "b")

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "C:m", first[0].Name)
	assert.Equal(t, "top", second[0].Name)
	assert.Equal(t, "b", second[0].Module)
}

func TestEndpointMatcherValidate(t *testing.T) {
	tests := []struct {
		name    string
		matcher EndpointMatcher
		wantErr bool
	}{
		{"call", EndpointMatcher{Shape: ShapeCall, Match: "app.route"}, false},
		{"name", EndpointMatcher{Shape: ShapeName, Match: "api_view"}, false},
		{"empty match", EndpointMatcher{Shape: ShapeCall}, true},
		{"unknown shape", EndpointMatcher{Shape: "regex", Match: ".*"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.matcher.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDetectSurface(t *testing.T) {
	tree := parse(t, `import os
from x import y
LIMIT = 10
a, b = 1, 2
counter += 1
obj.attr = 3

def helper():
    inner = 1

class Model:
    field = 2

if True:
    hidden = 1
`)
	got := SortedNames(DetectSurface(tree))
	assert.Equal(t, []string{"LIMIT", "Model", "a", "b", "counter", "helper"}, got)
}
