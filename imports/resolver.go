package imports

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hannajonsd/sqli-reachability/pyast"
)

// ErrInvalidState is returned when Resolve runs before the project root or
// the current module is known.
var ErrInvalidState = errors.New("import resolver: project root and current module must be set")

// initModule is the module name segment of a package's __init__.py.
const initModule = "__init__"

// Surfaces maps a module name to the names it defines at top level.
type Surfaces map[string]map[string]struct{}

// Resolver rewrites the imports of one module at a time to project module
// names and returns the bindings they create.
type Resolver struct {
	root     string
	surfaces Surfaces
	logger   *zap.Logger

	module    string
	functions []string
	bindings  Bindings
	local     LocalBindings
}

// NewResolver creates a resolver for the project rooted at root. surfaces
// must already hold every module of the project.
func NewResolver(root string, surfaces Surfaces, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		root:     root,
		surfaces: surfaces,
		logger:   logger.Named("imports"),
	}
}

// SetModule selects the module whose imports the next Resolve call handles.
func (r *Resolver) SetModule(name string) {
	r.module = name
}

// Resolve walks tree, rewriting import statements in place, and returns the
// module-level and function-scoped bindings. Imports nested in any function
// body are function-scoped, keyed by the innermost function's simple name.
func (r *Resolver) Resolve(tree *pyast.Module) (Bindings, LocalBindings, error) {
	if r.root == "" || r.module == "" {
		return nil, nil, ErrInvalidState
	}

	r.functions = r.functions[:0]
	r.bindings = make(Bindings)
	r.local = make(LocalBindings)
	r.visit(tree.Body)

	return r.bindings, r.local, nil
}

func (r *Resolver) visit(body []pyast.Stmt) {
	for _, stmt := range body {
		switch n := stmt.(type) {
		case *pyast.Import:
			r.visitImport(n)
		case *pyast.ImportFrom:
			r.visitImportFrom(n)
		case *pyast.FunctionDef:
			r.functions = append(r.functions, n.Name)
			r.visit(n.Body)
			r.functions = r.functions[:len(r.functions)-1]
		default:
			// Imports nested in module-level if/try/with blocks stay
			// module-level bindings: only a def starts a new import scope.
			for _, b := range pyast.StmtBodies(stmt) {
				r.visit(b)
			}
		}
	}
}

func (r *Resolver) visitImport(n *pyast.Import) {
	for _, alias := range n.Names {
		key := alias.AsName
		if strings.Contains(alias.Name, ".") {
			if key == "" {
				key = alias.Name[strings.LastIndex(alias.Name, ".")+1:]
			}
		} else {
			if key == "" {
				key = alias.Name
			}
			alias.Name = r.resolveModule(alias.Name, 0)
		}
		r.record(key, Binding{Source: alias.Name, Module: true})
	}
}

func (r *Resolver) visitImportFrom(n *pyast.ImportFrom) {
	n.Module = r.resolveModule(n.Module, n.Level)
	n.Level = 0

	var expanded []*pyast.Alias
	for _, alias := range n.Names {
		if alias.Name != "*" {
			expanded = append(expanded, alias)
			if alias.AsName == "" {
				r.record(alias.Name, Binding{Source: n.Module})
			} else {
				r.record(alias.AsName, Binding{Source: n.Module, Original: alias.Name})
			}
			continue
		}

		surface, ok := r.surface(n.Module)
		if !ok {
			r.logger.Debug("wildcard import of unknown module", zap.String("module", r.module), zap.String("from", n.Module))
			expanded = append(expanded, alias)
			continue
		}
		for _, name := range sortedNames(surface) {
			expanded = append(expanded, &pyast.Alias{Name: name})
			r.record(name, Binding{Source: n.Module})
		}
	}
	n.Names = expanded
}

func (r *Resolver) record(name string, b Binding) {
	if len(r.functions) > 0 {
		r.local.Add(r.functions[len(r.functions)-1], name, b)
		return
	}
	r.bindings[name] = b
}

// resolveModule turns the module operand of an import into a project module
// name when it names a file of the project. Unresolvable absolute names are
// returned unchanged and treated as external.
func (r *Resolver) resolveModule(name string, level int) string {
	current := strings.Split(r.module, ".")

	if level > 0 {
		keep := len(current) - level
		if keep < 0 {
			keep = 0
		}
		parts := append([]string(nil), current[:keep]...)
		if name == "" {
			parts = append(parts, initModule)
		} else {
			parts = append(parts, strings.Split(name, ".")...)
		}
		candidate := strings.Join(parts, ".")
		if !r.exists(candidate) {
			r.logger.Debug("relative import target not found", zap.String("module", r.module), zap.String("target", candidate))
		}
		return candidate
	}

	if name == "" || strings.Contains(name, ".") {
		return name
	}

	sibling := strings.Join(append(append([]string(nil), current[:len(current)-1]...), name), ".")
	if r.exists(sibling) {
		return sibling
	}
	return name
}

// exists reports whether candidate names a module or package of the project
func (r *Resolver) exists(candidate string) bool {
	if _, ok := r.surface(candidate); ok {
		return true
	}

	path := filepath.Join(append([]string{r.root}, strings.Split(candidate, ".")...)...)
	if info, err := os.Stat(path + ".py"); err == nil && !info.IsDir() {
		return true
	}
	if info, err := os.Stat(filepath.Join(path, initModule+".py")); err == nil && !info.IsDir() {
		return true
	}
	return false
}

func (r *Resolver) surface(module string) (map[string]struct{}, bool) {
	if s, ok := r.surfaces[module]; ok {
		return s, true
	}
	s, ok := r.surfaces[module+"."+initModule]
	return s, ok
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
