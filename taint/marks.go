// Package taint decides whether attacker-controlled endpoint parameters
// reach a SQL sink, walking call sites outward from each sink.
package taint

import (
	"sort"
	"strings"

	"github.com/hannajonsd/sqli-reachability/flow"
)

type set map[string]struct{}

func newSet(items ...string) set {
	s := make(set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s set) has(item string) bool {
	_, ok := s[item]
	return ok
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// world maps each assigned variable to the parameters its value derives
// from along one possible execution path.
type world map[string]set

func (w world) clone() world {
	out := make(world, len(w))
	for k, v := range w {
		c := make(set, len(v))
		for p := range v {
			c[p] = struct{}{}
		}
		out[k] = c
	}
	return out
}

func (w world) key() string {
	var sb strings.Builder
	for _, v := range toKeys(w).sorted() {
		sb.WriteString(v)
		sb.WriteByte('=')
		sb.WriteString(strings.Join(w[v].sorted(), ","))
		sb.WriteByte(';')
	}
	return sb.String()
}

func toKeys(w world) set {
	s := make(set, len(w))
	for k := range w {
		s[k] = struct{}{}
	}
	return s
}

// CollectVulnerableVars returns the parameters of a function whose values
// can reach any of the injection variables after the given flow events.
// It is a pure function of its arguments.
func CollectVulnerableVars(params []string, events []flow.Event, injection []string) []string {
	paramSet := newSet(params...)
	worlds := propagate(paramSet, events, []world{{}})

	vulnerable := make(set)
	for _, v := range injection {
		if len(worlds) == 0 && paramSet.has(v) {
			vulnerable[v] = struct{}{}
		}
		for _, w := range worlds {
			if derived, ok := w[v]; ok {
				for p := range derived {
					vulnerable[p] = struct{}{}
				}
			} else if paramSet.has(v) {
				vulnerable[v] = struct{}{}
			}
		}
	}
	return vulnerable.sorted()
}

// propagate replays events over worlds. A return ends every world; a branch
// or loop region is replayed once per arm on cloned worlds and the results
// are added to the worlds that skipped the region.
func propagate(params set, events []flow.Event, worlds []world) []world {
	for i := 0; i < len(events); i++ {
		e := events[i]
		switch {
		case e.Kind == flow.Assign:
			bindings := e.Assignments()
			for _, w := range worlds {
				assign(params, w, bindings)
			}
		case e.Kind == flow.Return:
			return nil
		case e.Kind.Opens():
			arms, end := partition(events, i)
			merged := worlds
			for _, arm := range arms {
				merged = append(merged, propagate(params, arm, cloneAll(worlds))...)
			}
			worlds = dedupe(merged)
			i = end
		}
	}
	return worlds
}

func assign(params set, w world, bindings []flow.Binding) {
	values := make([]set, len(bindings))
	for i, b := range bindings {
		derived := make(set)
		for _, r := range b.Reads {
			if from, ok := w[r]; ok {
				for p := range from {
					derived[p] = struct{}{}
				}
			} else if params.has(r) {
				derived[r] = struct{}{}
			}
		}
		values[i] = derived
	}
	for i, b := range bindings {
		w[b.Name] = values[i]
	}
}

func cloneAll(worlds []world) []world {
	out := make([]world, len(worlds))
	for i, w := range worlds {
		out[i] = w.clone()
	}
	return out
}

func dedupe(worlds []world) []world {
	seen := make(map[string]bool, len(worlds))
	out := worlds[:0:0]
	for _, w := range worlds {
		k := w.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}

// partition splits the region opened at events[start] into its arms, split
// on Else markers at the region's own depth. It returns the index of the
// closing marker, or the last index when the region is still open (the
// events end inside it).
func partition(events []flow.Event, start int) ([][]flow.Event, int) {
	stack := []flow.Kind{events[start].Kind.Closer()}
	arms := [][]flow.Event{nil}

	for j := start + 1; j < len(events); j++ {
		e := events[j]
		current := len(arms) - 1
		switch {
		case e.Kind.Opens():
			stack = append(stack, e.Kind.Closer())
			arms[current] = append(arms[current], e)
		case e.Kind.Closes():
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return arms, j
			}
			arms[current] = append(arms[current], e)
		case e.Kind == flow.Else && len(stack) == 1:
			arms = append(arms, nil)
		case e.Kind == flow.EndElse:
		default:
			arms[current] = append(arms[current], e)
		}
	}
	return arms, len(events) - 1
}
