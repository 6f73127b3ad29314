package pyast

// StmtExprs returns the expressions a statement evaluates directly, not
// counting nested statement bodies. Function and class definitions report
// their decorators, bases and parameter defaults.
func StmtExprs(s Stmt) []Expr {
	switch n := s.(type) {
	case *FunctionDef:
		out := append([]Expr(nil), n.Decorators...)
		for _, p := range n.Params {
			if p.Default != nil {
				out = append(out, p.Default)
			}
		}
		return out
	case *ClassDef:
		return append(append([]Expr(nil), n.Decorators...), n.Bases...)
	case *Assign:
		return append(append([]Expr(nil), n.Targets...), n.Value)
	case *AugAssign:
		return []Expr{n.Target, n.Value}
	case *ExprStmt:
		return []Expr{n.Value}
	case *If:
		return []Expr{n.Test}
	case *While:
		return []Expr{n.Test}
	case *For:
		return []Expr{n.Target, n.Iter}
	case *Return:
		if n.Value == nil {
			return nil
		}
		return []Expr{n.Value}
	case *With:
		return n.Items
	case *Simple:
		return n.Exprs
	case *Compound:
		return n.Exprs
	}
	return nil
}

// StmtBodies returns the nested statement lists of s in source order.
func StmtBodies(s Stmt) [][]Stmt {
	switch n := s.(type) {
	case *Module:
		return [][]Stmt{n.Body}
	case *FunctionDef:
		return [][]Stmt{n.Body}
	case *ClassDef:
		return [][]Stmt{n.Body}
	case *If:
		return [][]Stmt{n.Body, n.Orelse}
	case *While:
		return [][]Stmt{n.Body, n.Orelse}
	case *For:
		return [][]Stmt{n.Body, n.Orelse}
	case *Try:
		out := [][]Stmt{n.Body}
		out = append(out, n.Handlers...)
		return append(out, n.Orelse, n.Finally)
	case *With:
		return [][]Stmt{n.Body}
	case *Compound:
		return n.Bodies
	}
	return nil
}

// WalkStmts calls f for every statement in body, depth first in source
// order. Returning false from f skips the statement's nested bodies.
func WalkStmts(body []Stmt, f func(Stmt) bool) {
	for _, s := range body {
		if !f(s) {
			continue
		}
		for _, b := range StmtBodies(s) {
			WalkStmts(b, f)
		}
	}
}
