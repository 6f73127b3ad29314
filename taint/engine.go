package taint

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"go.uber.org/zap"

	"github.com/hannajonsd/sqli-reachability/flow"
	"github.com/hannajonsd/sqli-reachability/pyast"
	"github.com/hannajonsd/sqli-reachability/reachability"
	"github.com/hannajonsd/sqli-reachability/scope"
)

// ErrPathInvariant means a node was expanded without a recorded parent.
var ErrPathInvariant = errors.New("taint: node has no recorded parent path")

// defaultMaxPaths caps path reconstruction for heavily re-converging graphs.
const defaultMaxPaths = 64

// Engine runs the interprocedural breadth-first traversal from a sink.
type Engine struct {
	finder    *reachability.Finder
	logger    *zap.Logger
	maxVisits int
	maxPaths  int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxVisits bounds the number of nodes one traversal expands. Zero
// means unbounded.
func WithMaxVisits(n int) EngineOption {
	return func(e *Engine) { e.maxVisits = n }
}

// WithMaxPaths bounds the number of paths reconstructed per endpoint.
// Hitting the bound marks the result incomplete.
func WithMaxPaths(n int) EngineOption {
	return func(e *Engine) { e.maxPaths = n }
}

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine that finds call sites with finder.
func NewEngine(finder *reachability.Finder, opts ...EngineOption) *Engine {
	e := &Engine{finder: finder, logger: zap.NewNop(), maxPaths: defaultMaxPaths}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("taint")
	return e
}

// Result is the outcome of one traversal.
type Result struct {
	Root       *flow.Node
	Endpoints  []*flow.Node
	Paths      map[string][][]*flow.Node // endpoint ID -> paths from sink to endpoint
	Visited    int
	Incomplete bool // the visit or path budget ran out
}

// Vulnerable reports whether any endpoint was reached.
func (r *Result) Vulnerable() bool {
	return len(r.Endpoints) > 0
}

// Graph builds the vulnerable-path graph of the result.
func (r *Result) Graph() *Graph {
	g := NewGraph()
	done := make(map[string]bool, len(r.Endpoints))
	for _, ep := range r.Endpoints {
		if done[ep.ID()] {
			continue
		}
		done[ep.ID()] = true
		for _, path := range r.Paths[ep.ID()] {
			g.AddPath(path)
		}
	}
	return g
}

// siteKey identifies one call site. Sites sharing an ID (same function and
// callee text) stay separate queue entries with their own taint.
func siteKey(n *flow.Node) string {
	if n.Call == nil {
		return n.ID()
	}
	loc := n.Call.Loc()
	return fmt.Sprintf("%s@%d:%d", n.ID(), loc.StartLine, loc.StartCol)
}

// Traverse starts at the sink call inside start (defined in module) whose
// tainted argument reads injection after events, and walks call sites
// outward until it reaches endpoints whose parameters flow into the sink.
//
// A call site reached again with new variables has them merged in while it
// is still queued, or is queued again when it was already expanded.
func (e *Engine) Traverse(start *scope.FunctionSymbol, events []flow.Event, injection []string, module string, sink *pyast.Call) (*Result, error) {
	e.finder.Reset()

	root := &flow.Node{Module: module, Func: start, Events: events, Call: sink}
	root.SetVars(injection)
	rootKey := siteKey(root)

	res := &Result{Root: root, Paths: make(map[string][][]*flow.Node)}

	nodes := map[string]*flow.Node{rootKey: root}
	parents := map[string][]string{rootKey: nil}
	pending := map[string]bool{rootKey: true}
	endpoints := map[string]int{}
	var endpointKeys []string

	queue := linkedlistqueue.New()
	queue.Enqueue(root)

	for !queue.Empty() {
		if e.maxVisits > 0 && res.Visited >= e.maxVisits {
			res.Incomplete = true
			e.logger.Warn("Visit budget exhausted, result is incomplete",
				zap.String("sink", root.ID()), zap.Int("visited", res.Visited))
			break
		}

		value, _ := queue.Dequeue()
		node := value.(*flow.Node)
		key := siteKey(node)
		pending[key] = false
		res.Visited++

		if node.Func == nil {
			continue
		}
		if _, ok := parents[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathInvariant, key)
		}

		vulnerable := CollectVulnerableVars(node.Func.Params, node.Events, node.Vars)
		if len(vulnerable) == 0 {
			continue
		}

		if node.Func.Endpoint {
			if i, ok := endpoints[key]; ok {
				res.Endpoints[i] = node
			} else {
				endpoints[key] = len(res.Endpoints)
				endpointKeys = append(endpointKeys, key)
				res.Endpoints = append(res.Endpoints, node)
			}
			continue
		}

		tainted := newSet(vulnerable...)
		var positions []int
		for i, p := range node.Func.Params {
			if tainted.has(p) {
				positions = append(positions, i)
			}
		}

		for _, next := range e.finder.FindUses(node.Module, node.Func.Name) {
			if next.Func != nil && next.Module == node.Module && next.Func.Name == node.Func.Name {
				continue
			}

			var injected []string
			for _, i := range positions {
				injected = append(injected, next.ArgVars(i, node.Func.Params[i])...)
			}
			if len(injected) == 0 {
				continue
			}

			nextKey := siteKey(next)
			known, seen := nodes[nextKey]
			if !seen {
				child := next.Clone()
				child.SetVars(injected)
				nodes[nextKey] = child
				parents[nextKey] = []string{key}
				pending[nextKey] = true
				queue.Enqueue(child)
				continue
			}

			parents[nextKey] = appendUnique(parents[nextKey], key)
			merged := newSet(known.Vars...)
			before := len(merged)
			for _, v := range injected {
				merged[v] = struct{}{}
			}
			if len(merged) == before {
				continue
			}
			if pending[nextKey] {
				known.SetVars(merged.sorted())
				continue
			}
			child := known.Clone()
			child.SetVars(merged.sorted())
			nodes[nextKey] = child
			pending[nextKey] = true
			queue.Enqueue(child)
		}
	}

	for i, key := range endpointKeys {
		ep := res.Endpoints[i]
		paths, truncated := reconstruct(key, rootKey, parents, nodes, e.maxPaths)
		if truncated {
			res.Incomplete = true
			e.logger.Warn("Path budget exhausted, result is incomplete",
				zap.String("sink", root.ID()), zap.String("endpoint", ep.ID()), zap.Int("paths", len(paths)))
		}
		res.Paths[ep.ID()] = append(res.Paths[ep.ID()], paths...)
	}

	e.logger.Debug("Traversal finished",
		zap.String("sink", root.ID()),
		zap.Int("visited", res.Visited),
		zap.Int("endpoints", len(res.Endpoints)),
		zap.Int("searches", e.finder.Searches()))
	return res, nil
}

// reconstruct replays parent pointers from an endpoint site back to the
// root, returning every acyclic path ordered from the sink to the endpoint.
// It stops after limit paths when limit is positive and reports whether
// paths were left out.
func reconstruct(endpoint, root string, parents map[string][]string, nodes map[string]*flow.Node, limit int) ([][]*flow.Node, bool) {
	var paths [][]*flow.Node
	truncated := false
	onPath := map[string]bool{}
	var stack []string

	var walk func(id string)
	walk = func(id string) {
		if onPath[id] || truncated {
			return
		}
		if id == root && limit > 0 && len(paths) >= limit {
			truncated = true
			return
		}
		onPath[id] = true
		stack = append(stack, id)

		if id == root {
			path := make([]*flow.Node, len(stack))
			for i := range stack {
				path[len(stack)-1-i] = nodes[stack[i]]
			}
			paths = append(paths, path)
		} else {
			for _, p := range parents[id] {
				walk(p)
			}
		}

		stack = stack[:len(stack)-1]
		onPath[id] = false
	}
	walk(endpoint)

	return paths, truncated
}

func appendUnique(list []string, item string) []string {
	for _, it := range list {
		if it == item {
			return list
		}
	}
	return append(list, item)
}
