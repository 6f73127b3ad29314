package taint

import (
	"github.com/hannajonsd/sqli-reachability/flow"
	"github.com/hannajonsd/sqli-reachability/pyast"
)

// CallSite locates the call a graph node was reached through.
type CallSite struct {
	Name string         `json:"name"`
	Span pyast.Location `json:"span"`
}

// FunctionScope describes the function enclosing a graph node.
type FunctionScope struct {
	Name     string         `json:"name"`
	Endpoint bool           `json:"endpoint"`
	Span     pyast.Location `json:"span"`
}

// GraphNode is the property bag of one node of a vulnerable-path graph.
type GraphNode struct {
	ID          string           `json:"id"`
	Module      string           `json:"module"`
	Function    string           `json:"function"`
	Endpoint    bool             `json:"endpoint"`
	Vars        []string         `json:"vars"`
	Assignments []pyast.Location `json:"assignments"`
	Scope       *FunctionScope   `json:"func_scope,omitempty"`
	Calls       CallSite         `json:"calls_vulnerable"`
}

// Edge points from a caller to the function it calls on the tainted path.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a directed graph of vulnerable call chains keyed by node identity.
type Graph struct {
	nodes map[string]*GraphNode
	order []string
	edges []Edge
	seen  map[Edge]bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*GraphNode), seen: make(map[Edge]bool)}
}

// NodeProps builds the property bag of a traversal node.
func NodeProps(n *flow.Node) *GraphNode {
	props := &GraphNode{
		ID:       n.ID(),
		Module:   n.Module,
		Function: n.FunctionName(),
		Endpoint: n.IsEndpoint(),
		Vars:     append([]string{}, n.Vars...),
	}
	for _, e := range n.Events {
		if e.Kind == flow.Assign {
			props.Assignments = append(props.Assignments, e.Stmt.Loc())
		}
	}
	if n.Func != nil {
		props.Scope = &FunctionScope{Name: n.Func.Name, Endpoint: n.Func.Endpoint, Span: n.Func.Def.Loc()}
	}
	if n.Call != nil {
		props.Calls = CallSite{Name: n.Callee(), Span: n.Call.Loc()}
	}
	return props
}

// AddNode inserts a node unless one with the same identity exists.
func (g *Graph) AddNode(props *GraphNode) {
	if _, ok := g.nodes[props.ID]; ok {
		return
	}
	g.nodes[props.ID] = props
	g.order = append(g.order, props.ID)
}

// AddEdge inserts an edge once.
func (g *Graph) AddEdge(source, target string) {
	e := Edge{Source: source, Target: target}
	if g.seen[e] {
		return
	}
	g.seen[e] = true
	g.edges = append(g.edges, e)
}

// AddPath adds a path ordered from the sink to the endpoint. Edges run from
// each caller to its callee.
func (g *Graph) AddPath(path []*flow.Node) {
	for _, n := range path {
		g.AddNode(NodeProps(n))
	}
	for i := 0; i+1 < len(path); i++ {
		g.AddEdge(path[i+1].ID(), path[i].ID())
	}
}

// Merge adds every node and edge of other.
func (g *Graph) Merge(other *Graph) {
	for _, id := range other.order {
		g.AddNode(other.nodes[id])
	}
	for _, e := range other.edges {
		g.AddEdge(e.Source, e.Target)
	}
}

// Node returns a node by identity.
func (g *Graph) Node(id string) (*GraphNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*GraphNode {
	out := make([]*GraphNode, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}
