package pyast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func name(id string) *Name { return &Name{ID: id} }

func attr(value Expr, a string) *Attribute { return &Attribute{Value: value, Attr: a} }

func str(s string) *Constant { return &Constant{Kind: "string", Value: s} }

func TestVars(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want []string
	}{
		{"name", name("x"), []string{"x"}},
		{"constant", str(`"q"`), []string{}},
		{
			"bare callee is not a read",
			&Call{Func: name("f"), Args: []Expr{name("b"), name("a")}},
			[]string{"a", "b"},
		},
		{
			"method object is a read",
			&Call{Func: attr(name("cursor"), "execute"), Args: []Expr{name("q")}},
			[]string{"cursor", "q"},
		},
		{
			"keyword values",
			&Call{Func: name("f"), Keywords: []*Keyword{{Name: "k", Value: name("v")}}},
			[]string{"v"},
		},
		{
			"format operator",
			&BinOp{Left: str(`"%s"`), Op: "%", Right: name("user")},
			[]string{"user"},
		},
		{
			"f-string interpolations",
			&JoinedStr{Values: []Expr{name("a"), attr(name("b"), "c")}},
			[]string{"a", "b"},
		},
		{
			"duplicates collapse",
			&Sequence{Kind: "tuple", Elts: []Expr{name("x"), name("x")}},
			[]string{"x"},
		},
		{"nil", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Vars(tt.expr)); diff != "" {
				t.Errorf("Vars() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTargets(t *testing.T) {
	t.Run("pairwise unpacking", func(t *testing.T) {
		target := &Sequence{Kind: "pattern_list", Elts: []Expr{name("a"), name("b")}}
		value := &Sequence{Kind: "expression_list", Elts: []Expr{name("x"), name("y")}}

		got := Targets([]Expr{target}, value)
		assert.Equal(t, []Target{{Name: "a", Value: name("x")}, {Name: "b", Value: name("y")}}, got)
	})

	t.Run("unpacking a call gives every name the whole value", func(t *testing.T) {
		target := &Sequence{Kind: "pattern_list", Elts: []Expr{name("a"), name("b")}}
		value := &Call{Func: name("f"), Args: []Expr{name("x")}}

		got := Targets([]Expr{target}, value)
		assert.Len(t, got, 2)
		for _, tg := range got {
			assert.Same(t, value, tg.Value)
		}
	})

	t.Run("attribute and subscript targets are skipped", func(t *testing.T) {
		got := Targets([]Expr{attr(name("self"), "q"), &Other{Kind: "subscript"}, name("z")}, name("v"))
		assert.Equal(t, []Target{{Name: "z", Value: name("v")}}, got)
	})

	t.Run("starred target", func(t *testing.T) {
		star := &Other{Kind: "list_splat_pattern", Children: []Expr{name("rest")}}
		target := &Sequence{Kind: "pattern_list", Elts: []Expr{name("head"), star}}
		assert.Equal(t, []string{"head", "rest"}, TargetNames(target))
	})
}

func TestDottedName(t *testing.T) {
	got, ok := DottedName(attr(attr(name("pkg"), "mod"), "f"))
	assert.True(t, ok)
	assert.Equal(t, "pkg.mod.f", got)

	_, ok = DottedName(attr(&Call{Func: name("f")}, "g"))
	assert.False(t, ok)
}

func TestUnparse(t *testing.T) {
	call := &Call{
		Func:     attr(name("cursor"), "execute"),
		Args:     []Expr{name("q")},
		Keywords: []*Keyword{{Name: "timeout", Value: &Constant{Kind: "integer", Value: "3"}}},
	}
	assert.Equal(t, "cursor.execute(q, timeout=3)", Unparse(call))
	assert.Equal(t, "x", Unparse(name("x")))
}

func TestInspectSkipsChildren(t *testing.T) {
	inner := &Call{Func: name("inner")}
	outer := &Call{Func: name("outer"), Args: []Expr{inner}}

	var seen []string
	Inspect(outer, func(e Expr) bool {
		if c, ok := e.(*Call); ok {
			seen = append(seen, Unparse(c.Func))
			return c != outer
		}
		return true
	})
	assert.Equal(t, []string{"outer"}, seen)
}
