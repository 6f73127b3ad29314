// Package project builds the whole-project analysis record: every source
// file parsed, scoped and import-resolved, plus the static dependency graph.
package project

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hannajonsd/sqli-reachability/imports"
	"github.com/hannajonsd/sqli-reachability/parser"
	"github.com/hannajonsd/sqli-reachability/pyast"
	"github.com/hannajonsd/sqli-reachability/scope"
)

// Project is the analysis record of a whole source tree.
type Project struct {
	name     string
	root     string
	modules  map[string]*Module
	names    []string
	surfaces imports.Surfaces
	depGraph DepGraph
}

type options struct {
	logger           *zap.Logger
	matchers         []scope.EndpointMatcher
	skipDirs         []string
	respectGitignore bool
	concurrency      int
}

// Option configures Load.
type Option func(*options)

// WithLogger sets the logger used while loading.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEndpointMatchers sets the decorators that mark API endpoints.
func WithEndpointMatchers(matchers []scope.EndpointMatcher) Option {
	return func(o *options) { o.matchers = matchers }
}

// WithSkipDirs replaces the directory names skipped during discovery.
func WithSkipDirs(dirs []string) Option {
	return func(o *options) { o.skipDirs = dirs }
}

// WithGitignore toggles .gitignore handling during discovery.
func WithGitignore(enabled bool) Option {
	return func(o *options) { o.respectGitignore = enabled }
}

// WithParseConcurrency bounds the number of files parsed at once.
func WithParseConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

type parsed struct {
	name   string
	path   string
	result *parser.ParseResult
}

// Load discovers, parses and resolves every Python file under root. An
// empty name defaults to the root directory's base name.
func Load(ctx context.Context, name, root string, opts ...Option) (*Project, error) {
	o := options{
		logger:           zap.NewNop(),
		matchers:         scope.DefaultEndpointMatchers(),
		skipDirs:         DefaultSkipDirs,
		respectGitignore: true,
		concurrency:      4,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.Named("project")

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &PathError{Path: root, Message: "Path cannot be made absolute"}
	}
	if err := CheckDir(absRoot); err != nil {
		return nil, err
	}
	if name == "" {
		name = filepath.Base(absRoot)
	}

	files, err := FindSourceFiles(absRoot, o.skipDirs, o.respectGitignore)
	if err != nil {
		return nil, fmt.Errorf("failed to find source files: %w", err)
	}
	logger.Info("Discovered source files", zap.String("root", absRoot), zap.Int("count", len(files)))

	results, err := parseAll(ctx, absRoot, files, o.concurrency, logger)
	if err != nil {
		return nil, err
	}

	p := &Project{
		name:     name,
		root:     absRoot,
		modules:  make(map[string]*Module, len(results)),
		surfaces: make(imports.Surfaces, len(results)),
	}

	resolver := scope.NewResolver(o.matchers)
	for _, r := range results {
		if r == nil {
			continue
		}
		if existing, dup := p.modules[r.name]; dup {
			logger.Warn("Duplicate module name, keeping first file",
				zap.String("module", r.name), zap.String("kept", existing.Path()), zap.String("skipped", r.path))
			continue
		}
		m := NewModule(r.name, r.path, r.result.Module, resolver)
		m.hasErrors = r.result.HasErrors
		p.modules[r.name] = m
		p.names = append(p.names, r.name)
		p.surfaces[r.name] = m.Surface()
	}
	sort.Strings(p.names)

	importResolver := imports.NewResolver(absRoot, p.surfaces, o.logger)
	for _, n := range p.names {
		if err := p.modules[n].ResolveImports(importResolver); err != nil {
			return nil, err
		}
	}

	p.depGraph = BuildDepGraph(p.Modules())
	logger.Info("Project loaded", zap.String("project", p.String()), zap.Int("modules", len(p.names)))
	return p, nil
}

// parseAll parses files concurrently. Each goroutine owns its parser.
// Unreadable files are logged and left nil.
func parseAll(ctx context.Context, root string, files []string, concurrency int, logger *zap.Logger) ([]*parsed, error) {
	results := make([]*parsed, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			moduleName, err := ModuleName(root, file)
			if err != nil {
				return err
			}

			fileParser, err := parser.CreateParser(file)
			if err != nil {
				logger.Warn("Skipping file", zap.String("file", file), zap.Error(err))
				return nil
			}
			defer fileParser.Close()

			result, err := fileParser.ParseFile(gctx, file)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("Skipping unparsable file", zap.String("file", file), zap.Error(err))
				return nil
			}
			if result.HasErrors {
				logger.Warn("File has syntax errors, analysing recovered tree", zap.String("file", file))
			}

			results[i] = &parsed{name: moduleName, path: file, result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Root returns the absolute project root.
func (p *Project) Root() string { return p.root }

func (p *Project) String() string {
	return p.name + "@" + p.root
}

// Module returns the record of a module by dotted name.
func (p *Project) Module(name string) (*Module, bool) {
	m, ok := p.modules[name]
	return m, ok
}

// ModuleNames returns every module name in lexical order.
func (p *Project) ModuleNames() []string {
	return append([]string(nil), p.names...)
}

// Modules returns the module records in module-name order.
func (p *Project) Modules() []*Module {
	out := make([]*Module, 0, len(p.names))
	for _, n := range p.names {
		out = append(out, p.modules[n])
	}
	return out
}

// SurfaceTable returns the top-level names of every module.
func (p *Project) SurfaceTable() imports.Surfaces {
	out := make(imports.Surfaces, len(p.surfaces))
	for k, v := range p.surfaces {
		set := make(map[string]struct{}, len(v))
		for n := range v {
			set[n] = struct{}{}
		}
		out[k] = set
	}
	return out
}

// DepGraph returns the static dependency graph.
func (p *Project) DepGraph() DepGraph {
	return p.depGraph
}

// FromTrees builds a project from already parsed trees keyed by module
// name, resolving imports against root. It is used for in-memory sources.
func FromTrees(name, root string, trees map[string]*pyast.Module, matchers []scope.EndpointMatcher, logger *zap.Logger) (*Project, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Project{
		name:     name,
		root:     root,
		modules:  make(map[string]*Module, len(trees)),
		surfaces: make(imports.Surfaces, len(trees)),
	}

	for n := range trees {
		p.names = append(p.names, n)
	}
	sort.Strings(p.names)

	resolver := scope.NewResolver(matchers)
	for _, n := range p.names {
		m := NewModule(n, "", trees[n], resolver)
		p.modules[n] = m
		p.surfaces[n] = m.Surface()
	}

	importResolver := imports.NewResolver(root, p.surfaces, logger)
	for _, n := range p.names {
		if err := p.modules[n].ResolveImports(importResolver); err != nil {
			return nil, err
		}
	}
	p.depGraph = BuildDepGraph(p.Modules())
	return p, nil
}
