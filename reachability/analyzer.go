package reachability

import (
	"go.uber.org/zap"

	"github.com/hannajonsd/sqli-reachability/flow"
	"github.com/hannajonsd/sqli-reachability/project"
)

// Finder locates the call sites of functions across a loaded project.
type Finder struct {
	project *project.Project
	logger  *zap.Logger

	uses     []*flow.Node
	searches int
}

// NewFinder creates a finder over p.
func NewFinder(p *project.Project, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{project: p, logger: logger.Named("reachability")}
}

// Reset clears the results of previous searches, keeping the project.
func (f *Finder) Reset() {
	f.uses = nil
	f.searches = 0
}

// FindUses returns one node per call site of function (defined in
// definingModule) anywhere in the project, in module-name then source
// order.
func (f *Finder) FindUses(definingModule, function string) []*flow.Node {
	f.searches++

	var found []*flow.Node
	for _, m := range f.project.Modules() {
		c := DifferentiateImports(m, function, definingModule)
		if c.Case == NoImports {
			continue
		}

		calls := findCalls(m, c)
		if len(calls) > 0 {
			f.logger.Debug("Found call sites",
				zap.String("module", m.Name()),
				zap.String("function", definingModule+":"+function),
				zap.Stringer("case", c.Case),
				zap.Int("count", len(calls)))
		}
		found = append(found, calls...)
	}

	f.uses = append(f.uses, found...)
	return found
}

// Uses returns every node found since the last Reset.
func (f *Finder) Uses() []*flow.Node {
	return append([]*flow.Node(nil), f.uses...)
}

// Searches returns the number of FindUses calls since the last Reset.
func (f *Finder) Searches() int {
	return f.searches
}
