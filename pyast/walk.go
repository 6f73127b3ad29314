package pyast

import (
	"sort"
	"strings"
)

// Children returns the direct expression children of e in source order.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *Attribute:
		return []Expr{n.Value}
	case *Call:
		out := make([]Expr, 0, 1+len(n.Args)+len(n.Keywords))
		out = append(out, n.Func)
		out = append(out, n.Args...)
		for _, kw := range n.Keywords {
			out = append(out, kw.Value)
		}
		return out
	case *BinOp:
		return []Expr{n.Left, n.Right}
	case *JoinedStr:
		return n.Values
	case *Sequence:
		return n.Elts
	case *Other:
		return n.Children
	}
	return nil
}

// Inspect traverses e depth-first, calling f for each expression. If f
// returns false the children of that expression are skipped.
func Inspect(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	for _, c := range Children(e) {
		Inspect(c, f)
	}
}

// Vars returns the sorted set of identifiers read by e. A bare callee name
// is not a read: for f(x) only x is returned, while for obj.f(x) both obj
// and x are.
func Vars(e Expr) []string {
	set := make(map[string]struct{})
	collectVars(e, set)
	return sortedKeys(set)
}

func collectVars(e Expr, set map[string]struct{}) {
	switch n := e.(type) {
	case nil:
	case *Name:
		set[n.ID] = struct{}{}
	case *Constant:
	case *Call:
		if _, bare := n.Func.(*Name); !bare {
			collectVars(n.Func, set)
		}
		for _, a := range n.Args {
			collectVars(a, set)
		}
		for _, kw := range n.Keywords {
			collectVars(kw.Value, set)
		}
	default:
		for _, c := range Children(e) {
			collectVars(c, set)
		}
	}
}

// Target names the identifiers bound by one assignment target together with
// the expression each of them receives.
type Target struct {
	Name  string
	Value Expr
}

// Targets pairs the identifier targets of an assignment with the value
// expressions they are assigned from. Unpacking a tuple or list into a
// sequence literal of the same length is paired element-wise; any other
// unpacking gives every name the whole value. Attribute and subscript
// targets are skipped.
func Targets(targets []Expr, value Expr) []Target {
	var out []Target
	for _, t := range targets {
		out = appendTargets(out, t, value)
	}
	return out
}

func appendTargets(out []Target, target Expr, value Expr) []Target {
	switch t := target.(type) {
	case *Name:
		return append(out, Target{Name: t.ID, Value: value})
	case *Sequence:
		if v, ok := value.(*Sequence); ok && len(v.Elts) == len(t.Elts) {
			for i, elt := range t.Elts {
				out = appendTargets(out, elt, v.Elts[i])
			}
			return out
		}
		for _, elt := range t.Elts {
			out = appendTargets(out, elt, value)
		}
		return out
	case *Other:
		// starred targets (*rest) carry the name as their only child
		if t.Kind == "list_splat_pattern" && len(t.Children) == 1 {
			return appendTargets(out, t.Children[0], value)
		}
	}
	return out
}

// TargetNames returns the identifiers bound by the given targets.
func TargetNames(targets ...Expr) []string {
	var names []string
	for _, t := range Targets(targets, nil) {
		names = append(names, t.Name)
	}
	return names
}

// DottedName returns the dotted text of a chain of names and attributes.
func DottedName(e Expr) (string, bool) {
	switch n := e.(type) {
	case *Name:
		return n.ID, true
	case *Attribute:
		prefix, ok := DottedName(n.Value)
		if !ok {
			return "", false
		}
		return prefix + "." + n.Attr, true
	}
	return "", false
}

// Unparse renders a compact textual form of e, used for call-site text.
func Unparse(e Expr) string {
	var sb strings.Builder
	unparse(&sb, e)
	return sb.String()
}

func unparse(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
	case *Name:
		sb.WriteString(n.ID)
	case *Attribute:
		unparse(sb, n.Value)
		sb.WriteByte('.')
		sb.WriteString(n.Attr)
	case *Call:
		unparse(sb, n.Func)
		sb.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			unparse(sb, a)
		}
		for i, kw := range n.Keywords {
			if i > 0 || len(n.Args) > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(kw.Name)
			sb.WriteByte('=')
			unparse(sb, kw.Value)
		}
		sb.WriteByte(')')
	case *Constant:
		sb.WriteString(n.Value)
	case *BinOp:
		unparse(sb, n.Left)
		sb.WriteString(" " + n.Op + " ")
		unparse(sb, n.Right)
	case *Sequence:
		for i, elt := range n.Elts {
			if i > 0 {
				sb.WriteString(", ")
			}
			unparse(sb, elt)
		}
	case *JoinedStr:
		sb.WriteString("f\"...\"")
	case *Other:
		if n.Text != "" {
			sb.WriteString(n.Text)
		} else {
			sb.WriteString(n.Kind)
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
