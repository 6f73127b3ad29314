package scope

import (
	"github.com/hannajonsd/sqli-reachability/pyast"
)

// Resolver collects the function symbols of a module, qualifying methods
// with their enclosing classes. A Resolver may be reused across modules.
type Resolver struct {
	matchers []EndpointMatcher
	classes  []string
	symbols  []*FunctionSymbol
}

// NewResolver creates a resolver that flags endpoints with the given matchers.
func NewResolver(matchers []EndpointMatcher) *Resolver {
	return &Resolver{matchers: matchers}
}

// Reset clears the state left by a previous module.
func (r *Resolver) Reset() {
	r.classes = r.classes[:0]
	r.symbols = nil
}

// Resolve returns every function defined in tree, in source order.
// Functions nested in other functions are qualified by the class stack
// only.
func (r *Resolver) Resolve(tree *pyast.Module, module string) []*FunctionSymbol {
	r.Reset()
	r.visit(tree.Body, module)
	return r.symbols
}

func (r *Resolver) visit(body []pyast.Stmt, module string) {
	for _, stmt := range body {
		switch n := stmt.(type) {
		case *pyast.ClassDef:
			r.classes = append(r.classes, n.Name)
			r.visit(n.Body, module)
			r.classes = r.classes[:len(r.classes)-1]
		case *pyast.FunctionDef:
			r.symbols = append(r.symbols, r.symbol(n, module))
			r.visit(n.Body, module)
		default:
			for _, b := range pyast.StmtBodies(stmt) {
				r.visit(b, module)
			}
		}
	}
}

func (r *Resolver) symbol(fn *pyast.FunctionDef, module string) *FunctionSymbol {
	owners := make([]string, len(r.classes))
	for i, c := range r.classes {
		owners[len(r.classes)-1-i] = c
	}
	return &FunctionSymbol{
		Def:        fn,
		Module:     module,
		Name:       QualifiedName(r.classes, fn.Name),
		SimpleName: fn.Name,
		Params:     fn.ParamNames(),
		Owners:     owners,
		Endpoint:   IsEndpoint(fn, r.matchers),
	}
}
