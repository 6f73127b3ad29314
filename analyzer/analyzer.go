// Package analyzer runs the whole SQL injection reachability analysis for
// a repository and presents its results.
package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hannajonsd/sqli-reachability/config"
	"github.com/hannajonsd/sqli-reachability/graphstore"
	"github.com/hannajonsd/sqli-reachability/project"
	"github.com/hannajonsd/sqli-reachability/reachability"
	"github.com/hannajonsd/sqli-reachability/report"
	"github.com/hannajonsd/sqli-reachability/taint"
	"github.com/hannajonsd/sqli-reachability/version_lookup"
)

// Analyzer performs SQL injection reachability analysis on repositories
type Analyzer struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New creates an analyzer. A nil cfg means the defaults.
func New(cfg *config.Config, logger *zap.Logger) *Analyzer {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{cfg: cfg, logger: logger.Named("analyzer")}
}

// LoadProject parses and resolves every Python module under repoPath.
func (a *Analyzer) LoadProject(ctx context.Context, repoPath string) (*project.Project, error) {
	return project.Load(ctx, "", repoPath,
		project.WithLogger(a.logger),
		project.WithEndpointMatchers(a.cfg.Analysis.Endpoints),
		project.WithSkipDirs(a.cfg.Discovery.SkipDirs),
		project.WithGitignore(a.cfg.Discovery.RespectGitignore),
		project.WithParseConcurrency(a.cfg.Discovery.ParseConcurrency),
	)
}

// AnalyzeRepository loads the repository, finds every SQL sink and reports
// the endpoints whose parameters reach one.
func (a *Analyzer) AnalyzeRepository(ctx context.Context, repoPath string) (*Results, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := a.logger.With(zap.String("run_id", runID))
	logger.Info("Analyzing repository", zap.String("path", repoPath))

	p, err := a.LoadProject(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	finder := reachability.NewFinder(p, logger)
	engine := taint.NewEngine(finder,
		taint.WithMaxVisits(a.cfg.Analysis.MaxVisits),
		taint.WithEngineLogger(logger))
	detector := taint.NewDetector(p, engine, a.cfg.Analysis.SinkMethods, logger)

	rep, err := detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("sink traversal failed: %w", err)
	}

	lookup := version_lookup.New(a.cfg.Discovery.SkipDirs...)
	reqs := lookup.Requirements(p.Root())
	deps := DiscoverDependencies(p, reqs)

	results := &Results{
		RunID:           runID,
		Project:         p.Name(),
		Root:            p.Root(),
		FoundAny:        rep.FoundAny(),
		Modules:         len(p.ModuleNames()),
		SinkCount:       rep.SinkCount,
		SinkFunctions:   rep.SinkFunctions,
		Findings:        summarize(rep),
		Vulnerabilities: make(map[string]report.GraphDoc, len(rep.Findings)),
		DependencyGraph: report.FromDepGraph(p.DepGraph(), p.ModuleNames()),
		Dependencies:    deps,
		Frameworks:      version_lookup.DetectFrameworks(reqs, dependencyNames(deps)),
		Incomplete:      rep.Incomplete,
		project:         p,
		report:          rep,
	}
	for _, k := range rep.Keys() {
		results.Vulnerabilities[k] = report.FromTaintGraph(rep.Findings[k].Graph)
	}

	logger.Info("Analysis finished",
		zap.String("project", p.String()),
		zap.Int("sinks", rep.SinkCount),
		zap.Int("vulnerable", len(rep.Findings)),
		zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

func summarize(rep *taint.Report) []FindingSummary {
	out := make([]FindingSummary, 0, len(rep.Findings))
	for _, k := range rep.Keys() {
		f := rep.Findings[k]
		out = append(out, FindingSummary{
			Key:        f.Key,
			Module:     f.Module,
			Function:   f.Function,
			Sinks:      f.Sinks,
			Endpoints:  f.Endpoints,
			Incomplete: f.Incomplete,
		})
	}
	return out
}

// WriteResults writes the results document into the configured output
// directory, or dir when it is not empty.
func (a *Analyzer) WriteResults(res *Results, dir string) (string, error) {
	if dir == "" {
		dir = a.cfg.Output.Dir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &project.PathError{Path: dir, Message: "Path cannot be made absolute"}
	}
	path, err := report.WriteResults(abs, res.Project, res)
	if err != nil {
		return "", err
	}
	a.logger.Info("Results written", zap.String("file", path))
	return path, nil
}

// ExportGraph loads the dependency graph and the findings into Neo4j.
// It is a no-op unless a Neo4j URI is configured.
func (a *Analyzer) ExportGraph(ctx context.Context, res *Results) error {
	if !a.cfg.Neo4j.Enabled() {
		return nil
	}
	if res.project == nil || res.report == nil {
		return fmt.Errorf("results of run %s carry no project to export", res.RunID)
	}

	loader, err := graphstore.NewLoader(ctx, a.cfg.Neo4j.URI, a.cfg.Neo4j.User, a.cfg.Neo4j.Password, a.logger)
	if err != nil {
		return err
	}
	defer loader.Close(ctx)

	return loader.Export(ctx, res.project, res.report, a.cfg.Neo4j.Clean)
}
