// Package flow records the intraprocedural events that taint propagation
// replays: assignments, returns and the boundaries of branches and loops.
package flow

import (
	"github.com/hannajonsd/sqli-reachability/pyast"
)

// Kind is the kind of a flow event.
type Kind int

const (
	Assign Kind = iota
	Return
	If
	EndIf
	Else
	EndElse
	While
	EndWhile
	For
	EndFor
)

var kindNames = [...]string{
	Assign:   "assign",
	Return:   "return",
	If:       "if",
	EndIf:    "endif",
	Else:     "else",
	EndElse:  "endelse",
	While:    "while",
	EndWhile: "endwhile",
	For:      "for",
	EndFor:   "endfor",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Opens reports whether k starts a branch or loop region.
func (k Kind) Opens() bool {
	return k == If || k == While || k == For
}

// Closer returns the marker ending a region opened by k.
func (k Kind) Closer() Kind {
	switch k {
	case If:
		return EndIf
	case While:
		return EndWhile
	case For:
		return EndFor
	}
	return k
}

// Closes reports whether k ends a region.
func (k Kind) Closes() bool {
	return k == EndIf || k == EndWhile || k == EndFor
}

// Event is one entry of a function's flow list. Stmt is the *pyast.Assign,
// *pyast.AugAssign or *pyast.Return for those kinds and nil for markers.
type Event struct {
	Kind Kind
	Stmt pyast.Stmt
}

// Assignments returns the (name, read variables) pairs an assignment event
// binds. Augmented assignments also read their target.
func (e Event) Assignments() []Binding {
	switch s := e.Stmt.(type) {
	case *pyast.Assign:
		var out []Binding
		for _, t := range pyast.Targets(s.Targets, s.Value) {
			out = append(out, Binding{Name: t.Name, Reads: pyast.Vars(t.Value)})
		}
		return out
	case *pyast.AugAssign:
		var out []Binding
		for _, t := range pyast.Targets([]pyast.Expr{s.Target}, s.Value) {
			reads := pyast.Vars(t.Value)
			out = append(out, Binding{Name: t.Name, Reads: append(reads, t.Name)})
		}
		return out
	}
	return nil
}

// Binding is a variable assigned by an event and the variables its new
// value is derived from.
type Binding struct {
	Name  string
	Reads []string
}

// Line returns the first source line of the event's statement, or 0 for markers.
func (e Event) Line() int {
	if e.Stmt == nil {
		return 0
	}
	return e.Stmt.Loc().StartLine
}
