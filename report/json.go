// Package report serializes analysis graphs as node/edge JSON documents.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/hannajonsd/sqli-reachability/project"
	"github.com/hannajonsd/sqli-reachability/taint"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NodeDoc is one serialized node.
type NodeDoc struct {
	ID   string      `json:"id"`
	Data interface{} `json:"data"`
}

// EdgeDoc is one serialized edge.
type EdgeDoc struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind,omitempty"`
}

// GraphDoc is the {nodes, edges} form of a graph.
type GraphDoc struct {
	Nodes []NodeDoc `json:"nodes"`
	Edges []EdgeDoc `json:"edges"`
}

// FromTaintGraph converts a vulnerable-path graph.
func FromTaintGraph(g *taint.Graph) GraphDoc {
	doc := GraphDoc{Nodes: []NodeDoc{}, Edges: []EdgeDoc{}}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeDoc{ID: n.ID, Data: n})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{Source: e.Source, Target: e.Target})
	}
	return doc
}

// depNode describes a node of the dependency graph document.
type depNode struct {
	Kind string `json:"kind"` // module, function, member, external
}

// FromDepGraph converts the static dependency graph. Importers and imported
// modules become nodes; every imported name becomes a "<module>.<name>"
// member node. An importer points at each member it imports, or at the
// module for whole-module imports. A node whose dotted parent is also a
// node hangs off that parent. Modules not in local are marked external.
func FromDepGraph(g project.DepGraph, local []string) GraphDoc {
	isLocal := make(map[string]bool, len(local))
	for _, m := range local {
		isLocal[m] = true
	}

	nodes := make(map[string]*depNode)
	var edges []EdgeDoc
	seen := make(map[EdgeDoc]bool)
	addEdge := func(e EdgeDoc) {
		if !seen[e] {
			seen[e] = true
			edges = append(edges, e)
		}
	}
	ensure := func(id, kind string) {
		if _, ok := nodes[id]; !ok {
			nodes[id] = &depNode{Kind: kind}
		}
	}
	moduleKind := func(id string) string {
		switch {
		case strings.Contains(id, ":"):
			return "function"
		case isLocal[id]:
			return "module"
		}
		return "external"
	}

	for _, m := range local {
		ensure(m, "module")
	}
	for _, importer := range g.Importers() {
		ensure(importer, moduleKind(importer))
		for _, source := range g.Sources(importer) {
			ensure(source, moduleKind(source))
			names := g[importer][source]
			if len(names) == 0 {
				addEdge(EdgeDoc{Source: importer, Target: source, Kind: "imports"})
				continue
			}
			for _, name := range names {
				member := source + "." + name
				ensure(member, "member")
				addEdge(EdgeDoc{Source: importer, Target: member, Kind: "imports"})
			}
		}
	}

	ids := sortedIDs(nodes)
	for _, id := range ids {
		if parent := parentOf(id); parent != "" {
			if _, ok := nodes[parent]; ok {
				addEdge(EdgeDoc{Source: parent, Target: id, Kind: "contains"})
			}
		}
	}

	doc := GraphDoc{Nodes: make([]NodeDoc, 0, len(ids)), Edges: edges}
	if doc.Edges == nil {
		doc.Edges = []EdgeDoc{}
	}
	for _, id := range ids {
		doc.Nodes = append(doc.Nodes, NodeDoc{ID: id, Data: nodes[id]})
	}
	return doc
}

// parentOf returns the dotted parent of a node id. Function-scoped
// importers ("pkg.mod:fn") belong to their module.
func parentOf(id string) string {
	if i := strings.Index(id, ":"); i >= 0 {
		return id[:i]
	}
	i := strings.LastIndex(id, ".")
	if i <= 0 {
		return ""
	}
	return id[:i]
}

func sortedIDs(nodes map[string]*depNode) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Marshal encodes v as indented JSON.
func Marshal(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// ResultsFileName is the name of the results file written for a project.
func ResultsFileName(projectName string) string {
	return projectName + "-analysis-results.json"
}

// WriteResults writes v to <dir>/<project>-analysis-results.json and
// returns the file path. dir must be an existing directory.
func WriteResults(dir, projectName string, v interface{}) (string, error) {
	if err := project.CheckDir(dir); err != nil {
		return "", err
	}

	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}

	path := filepath.Join(dir, ResultsFileName(projectName))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write results %s: %w", path, err)
	}
	return path, nil
}
