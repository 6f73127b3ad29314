package reachability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hannajonsd/sqli-reachability/imports"
	"github.com/hannajonsd/sqli-reachability/pyast"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		bindings imports.Bindings
		local    imports.LocalBindings
		defining string
		want     Classification
	}{
		{
			name:     "no imports",
			bindings: imports.Bindings{"other": {Source: "other"}},
			defining: "db",
			want:     Classification{Case: NoImports, Function: "lookup"},
		},
		{
			name:     "entire module",
			bindings: imports.Bindings{"db": {Source: "db", Module: true}},
			defining: "db",
			want:     Classification{Case: EntireModule, Target: "db", Function: "lookup"},
		},
		{
			name:     "only function",
			bindings: imports.Bindings{"lookup": {Source: "db"}},
			defining: "db",
			want:     Classification{Case: OnlyFunction, Target: "lookup", Function: "lookup"},
		},
		{
			name:     "only function as",
			bindings: imports.Bindings{"x": {Source: "db", Original: "lookup"}},
			defining: "db",
			want:     Classification{Case: OnlyFunctionAs, Target: "x", Function: "lookup"},
		},
		{
			name:     "entire module as",
			bindings: imports.Bindings{"d": {Source: "db", Module: true}},
			defining: "db",
			want:     Classification{Case: EntireModuleAs, Target: "d", Function: "lookup"},
		},
		{
			name:     "module imported from its package",
			bindings: imports.Bindings{"db": {Source: "pkg"}},
			defining: "pkg.db",
			want:     Classification{Case: EntireModuleAs, Target: "db", Function: "lookup"},
		},
		{
			name:     "module imported from package init",
			bindings: imports.Bindings{"db": {Source: "pkg.__init__"}},
			defining: "pkg.db",
			want:     Classification{Case: EntireModuleAs, Target: "db", Function: "lookup"},
		},
		{
			name: "only function beats entire module as",
			bindings: imports.Bindings{
				"d":      {Source: "db", Module: true},
				"lookup": {Source: "db"},
			},
			defining: "db",
			want:     Classification{Case: OnlyFunction, Target: "lookup", Function: "lookup"},
		},
		{
			name:     "entire module beats function-scoped only function",
			bindings: imports.Bindings{"db": {Source: "db", Module: true}},
			local: imports.LocalBindings{
				"handler": {{Name: "lookup", Binding: imports.Binding{Source: "db"}}},
			},
			defining: "db",
			want:     Classification{Case: EntireModule, Target: "db", Function: "lookup"},
		},
		{
			name:     "function-scoped import checked first",
			bindings: imports.Bindings{"x": {Source: "db", Original: "lookup"}},
			local: imports.LocalBindings{
				"handler": {{Name: "y", Binding: imports.Binding{Source: "db", Original: "lookup"}}},
			},
			defining: "db",
			want:     Classification{Case: OnlyFunctionAs, Target: "y", Function: "lookup"},
		},
		{
			name:     "function-scoped entire module",
			bindings: imports.Bindings{},
			local: imports.LocalBindings{
				"handler": {{Name: "db", Binding: imports.Binding{Source: "db", Module: true}}},
			},
			defining: "db",
			want:     Classification{Case: EntireModule, Target: "db", Function: "lookup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.bindings, tt.local, "lookup", tt.defining)
			assert.Equal(t, tt.want, got)
		})
	}
}

func call(fn pyast.Expr) *pyast.Call {
	return &pyast.Call{Func: fn, Args: []pyast.Expr{&pyast.Name{ID: "a"}}}
}

func attr(value pyast.Expr, name string) *pyast.Attribute {
	return &pyast.Attribute{Value: value, Attr: name}
}

func TestClassificationMatches(t *testing.T) {
	name := func(id string) *pyast.Name { return &pyast.Name{ID: id} }

	tests := []struct {
		name string
		c    Classification
		call *pyast.Call
		want bool
	}{
		{"bare name", Classification{Case: OnlyFunction, Target: "lookup", Function: "lookup"}, call(name("lookup")), true},
		{"alias", Classification{Case: OnlyFunctionAs, Target: "x", Function: "lookup"}, call(name("x")), true},
		{"original name behind alias", Classification{Case: OnlyFunctionAs, Target: "x", Function: "lookup"}, call(name("lookup")), false},
		{"method of another object", Classification{Case: OnlyFunction, Target: "lookup", Function: "lookup"}, call(attr(name("obj"), "lookup")), false},
		{"dotted module", Classification{Case: EntireModule, Target: "pkg.db", Function: "lookup"}, call(attr(attr(name("pkg"), "db"), "lookup")), true},
		{"module alias", Classification{Case: EntireModuleAs, Target: "d", Function: "lookup"}, call(attr(name("d"), "lookup")), true},
		{"other attribute", Classification{Case: EntireModuleAs, Target: "d", Function: "lookup"}, call(attr(name("d"), "other")), false},
		{"no imports", Classification{Case: NoImports, Function: "lookup"}, call(name("lookup")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Matches(tt.call))
		})
	}
}

func TestImportCaseString(t *testing.T) {
	assert.Equal(t, "no_imports", NoImports.String())
	assert.Equal(t, "entire_module", EntireModule.String())
	assert.Equal(t, "only_function", OnlyFunction.String())
	assert.Equal(t, "only_function_as", OnlyFunctionAs.String())
	assert.Equal(t, "entire_module_as", EntireModuleAs.String())
}
