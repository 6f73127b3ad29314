// Package graphstore exports the dependency graph and vulnerable call
// chains to Neo4j using batched UNWIND queries.
package graphstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/hannajonsd/sqli-reachability/project"
	"github.com/hannajonsd/sqli-reachability/taint"
)

// Loader writes analysis results into a Neo4j database.
type Loader struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewLoader connects to Neo4j and returns a ready-to-use loader.
func NewLoader(ctx context.Context, uri, user, password string, logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", uri, err)
	}
	return &Loader{driver: driver, logger: logger.Named("graphstore")}, nil
}

// Close releases the underlying driver resources.
func (l *Loader) Close(ctx context.Context) error {
	return l.driver.Close(ctx)
}

func (l *Loader) runCypher(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(ctx, l.driver, cypher, params, neo4j.EagerResultTransformer)
	return err
}

func (l *Loader) runAll(ctx context.Context, queries []string) error {
	for _, q := range queries {
		if err := l.runCypher(ctx, q, nil); err != nil {
			return err
		}
	}
	return nil
}

// CleanGraph removes everything a previous export loaded for project.
func (l *Loader) CleanGraph(ctx context.Context, projectName string) error {
	l.logger.Info("Cleaning existing graph data", zap.String("project", projectName))
	params := map[string]any{"project": projectName}
	for _, q := range []string{
		"MATCH (n:PyModule {project: $project}) DETACH DELETE n",
		"MATCH (n:PyFunction {project: $project}) DETACH DELETE n",
	} {
		if err := l.runCypher(ctx, q, params); err != nil {
			return err
		}
	}
	return nil
}

// CreateIndexes ensures the lookup indexes exist.
func (l *Loader) CreateIndexes(ctx context.Context) error {
	l.logger.Debug("Creating indexes")
	return l.runAll(ctx, []string{
		"CREATE INDEX py_module_key IF NOT EXISTS FOR (n:PyModule) ON (n.key)",
		"CREATE INDEX py_function_key IF NOT EXISTS FOR (n:PyFunction) ON (n.key)",
	})
}

// LoadDependencies upserts PyModule nodes and IMPORTS relationships.
func (l *Loader) LoadDependencies(ctx context.Context, projectName string, graph project.DepGraph, local []string) error {
	modules := ModuleRows(projectName, graph, local)
	l.logger.Info("Loading modules", zap.Int("count", len(modules)))
	err := l.runCypher(ctx,
		`UNWIND $batch AS row
		 MERGE (n:PyModule {key: row.key})
		 SET n.project = row.project, n.name = row.name, n.local = row.local`,
		map[string]any{"batch": modules},
	)
	if err != nil {
		return err
	}

	imports := ImportRows(projectName, graph)
	l.logger.Info("Loading import edges", zap.Int("count", len(imports)))
	return l.runCypher(ctx,
		`UNWIND $batch AS row
		 MATCH (a:PyModule {key: row.importer}), (b:PyModule {key: row.source})
		 MERGE (a)-[r:IMPORTS]->(b)
		 SET r.names = row.names, r.function = row.function`,
		map[string]any{"batch": imports},
	)
}

// LoadFindings upserts the functions of every vulnerable call chain and the
// CALLS_VULNERABLE relationships between them.
func (l *Loader) LoadFindings(ctx context.Context, projectName string, report *taint.Report) error {
	functions, calls := FindingRows(projectName, report)
	l.logger.Info("Loading vulnerable functions",
		zap.Int("functions", len(functions)), zap.Int("edges", len(calls)))

	err := l.runCypher(ctx,
		`UNWIND $batch AS row
		 MERGE (n:PyFunction {key: row.key})
		 SET n.project = row.project, n.module = row.module, n.name = row.name,
		     n.endpoint = row.endpoint, n.vars = row.vars, n.sink = row.sink
		 WITH n, row
		 MATCH (m:PyModule {key: row.module_key})
		 MERGE (n)-[:IN_MODULE]->(m)`,
		map[string]any{"batch": functions},
	)
	if err != nil {
		return err
	}
	if len(calls) == 0 {
		return nil
	}
	return l.runCypher(ctx,
		`UNWIND $batch AS row
		 MATCH (a:PyFunction {key: row.caller}), (b:PyFunction {key: row.callee})
		 MERGE (a)-[r:CALLS_VULNERABLE]->(b)
		 SET r.finding = row.finding`,
		map[string]any{"batch": calls},
	)
}

func key(projectName, id string) string {
	return projectName + "/" + id
}

// ModuleRows builds the PyModule batch: every importer module and every
// imported module. Function-scoped importers fold into their module.
func ModuleRows(projectName string, graph project.DepGraph, local []string) []map[string]any {
	isLocal := make(map[string]bool, len(local))
	names := make(map[string]bool)
	for _, m := range local {
		isLocal[m] = true
		names[m] = true
	}
	for _, importer := range graph.Importers() {
		names[moduleOf(importer)] = true
		for _, source := range graph.Sources(importer) {
			names[source] = true
		}
	}

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	rows := make([]map[string]any, 0, len(sorted))
	for _, n := range sorted {
		rows = append(rows, map[string]any{
			"key":     key(projectName, n),
			"project": projectName,
			"name":    n,
			"local":   isLocal[n],
		})
	}
	return rows
}

// ImportRows builds the IMPORTS batch.
func ImportRows(projectName string, graph project.DepGraph) []map[string]any {
	var rows []map[string]any
	for _, importer := range graph.Importers() {
		function := ""
		if i := strings.Index(importer, ":"); i >= 0 {
			function = importer[i+1:]
		}
		for _, source := range graph.Sources(importer) {
			rows = append(rows, map[string]any{
				"importer": key(projectName, moduleOf(importer)),
				"source":   key(projectName, source),
				"names":    append([]string{}, graph[importer][source]...),
				"function": function,
			})
		}
	}
	return rows
}

// FindingRows builds the PyFunction and CALLS_VULNERABLE batches from a
// detection report. Graph edges already run from caller to callee.
func FindingRows(projectName string, report *taint.Report) (functions, calls []map[string]any) {
	seen := make(map[string]bool)
	for _, k := range report.Keys() {
		finding := report.Findings[k]
		for _, n := range finding.Graph.Nodes() {
			fk := key(projectName, n.ID)
			if seen[fk] {
				continue
			}
			seen[fk] = true
			functions = append(functions, map[string]any{
				"key":        fk,
				"project":    projectName,
				"module":     n.Module,
				"module_key": key(projectName, n.Module),
				"name":       n.Function,
				"endpoint":   n.Endpoint,
				"vars":       append([]string{}, n.Vars...),
				"sink":       n.Module+"."+n.Function == finding.Key,
			})
		}
		for _, e := range finding.Graph.Edges() {
			calls = append(calls, map[string]any{
				"caller":  key(projectName, e.Source),
				"callee":  key(projectName, e.Target),
				"finding": finding.Key,
			})
		}
	}
	return functions, calls
}

func moduleOf(importer string) string {
	if i := strings.Index(importer, ":"); i >= 0 {
		return importer[:i]
	}
	return importer
}

// Export loads the whole result set: optional cleanup, indexes, the
// dependency graph and the findings.
func (l *Loader) Export(ctx context.Context, p *project.Project, report *taint.Report, clean bool) error {
	if clean {
		if err := l.CleanGraph(ctx, p.Name()); err != nil {
			return fmt.Errorf("failed to clean graph: %w", err)
		}
	}
	if err := l.CreateIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	if err := l.LoadDependencies(ctx, p.Name(), p.DepGraph(), p.ModuleNames()); err != nil {
		return fmt.Errorf("failed to load dependencies: %w", err)
	}
	if err := l.LoadFindings(ctx, p.Name(), report); err != nil {
		return fmt.Errorf("failed to load findings: %w", err)
	}
	return nil
}
