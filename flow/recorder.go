package flow

import (
	"github.com/hannajonsd/sqli-reachability/pyast"
)

// Recorder walks a module keeping, for the function being visited, the
// list of flow events seen so far, and reports every call expression to a
// callback. The callback can read Function and Snapshot to learn the
// context of the call.
type Recorder struct {
	onCall func(*pyast.Call)
	fn     *pyast.FunctionDef
	events []Event
}

// NewRecorder creates a recorder reporting calls to onCall.
func NewRecorder(onCall func(*pyast.Call)) *Recorder {
	return &Recorder{onCall: onCall}
}

// Walk visits the whole module.
func (r *Recorder) Walk(m *pyast.Module) {
	r.fn, r.events = nil, nil
	r.stmts(m.Body)
}

// Function returns the innermost function being visited, nil at module level.
func (r *Recorder) Function() *pyast.FunctionDef {
	return r.fn
}

// Snapshot returns a copy of the events recorded so far in the current
// function.
func (r *Recorder) Snapshot() []Event {
	return append([]Event(nil), r.events...)
}

func (r *Recorder) emit(kind Kind, stmt pyast.Stmt) {
	r.events = append(r.events, Event{Kind: kind, Stmt: stmt})
}

func (r *Recorder) stmts(body []pyast.Stmt) {
	for _, s := range body {
		r.stmt(s)
	}
}

func (r *Recorder) stmt(s pyast.Stmt) {
	switch n := s.(type) {
	case *pyast.FunctionDef:
		r.exprs(pyast.StmtExprs(n))
		outerFn, outerEvents := r.fn, r.events
		r.fn, r.events = n, nil
		r.stmts(n.Body)
		r.fn, r.events = outerFn, outerEvents
	case *pyast.Assign, *pyast.AugAssign:
		r.exprs(pyast.StmtExprs(n))
		r.emit(Assign, n)
	case *pyast.Return:
		r.exprs(pyast.StmtExprs(n))
		r.emit(Return, n)
	case *pyast.If:
		r.ifStmt(n, false)
	case *pyast.While:
		r.expr(n.Test)
		r.emit(While, nil)
		r.stmts(n.Body)
		r.stmts(n.Orelse)
		r.emit(EndWhile, nil)
	case *pyast.For:
		r.expr(n.Iter)
		r.emit(For, nil)
		r.stmts(n.Body)
		r.stmts(n.Orelse)
		r.emit(EndFor, nil)
	default:
		r.exprs(pyast.StmtExprs(s))
		for _, b := range pyast.StmtBodies(s) {
			r.stmts(b)
		}
	}
}

// ifStmt emits one If/EndIf pair for a whole if/elif/else chain with an
// Else marker before each alternative arm.
func (r *Recorder) ifStmt(n *pyast.If, elif bool) {
	r.expr(n.Test)
	if !elif {
		r.emit(If, nil)
	}
	r.stmts(n.Body)

	if len(n.Orelse) > 0 {
		r.emit(Else, nil)
		if next, ok := n.Orelse[0].(*pyast.If); ok && next.Elif && len(n.Orelse) == 1 {
			r.ifStmt(next, true)
		} else {
			r.stmts(n.Orelse)
		}
	}

	if !elif {
		r.emit(EndIf, nil)
	}
}

func (r *Recorder) exprs(es []pyast.Expr) {
	for _, e := range es {
		r.expr(e)
	}
}

func (r *Recorder) expr(e pyast.Expr) {
	pyast.Inspect(e, func(x pyast.Expr) bool {
		if call, ok := x.(*pyast.Call); ok && r.onCall != nil {
			r.onCall(call)
		}
		return true
	})
}
