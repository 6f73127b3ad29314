package taint

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/hannajonsd/sqli-reachability/flow"
	"github.com/hannajonsd/sqli-reachability/project"
	"github.com/hannajonsd/sqli-reachability/pyast"
	"github.com/hannajonsd/sqli-reachability/scope"
)

// DefaultSinkMethods are the method names treated as SQL execution.
var DefaultSinkMethods = []string{"execute"}

// Sink is a SQL execution call found in a module.
type Sink struct {
	Module string
	Func   *scope.FunctionSymbol
	Call   *pyast.Call
	Events []flow.Event
	Vars   []string // variables of the query argument
}

// Finding is the vulnerable-path graph of every sink in one function.
type Finding struct {
	Key        string
	Module     string
	Function   string
	Graph      *Graph
	Sinks      []pyast.Location
	Endpoints  []string
	Incomplete bool
}

// Report collects the findings of a detection run.
type Report struct {
	Findings      map[string]*Finding
	SinkFunctions []string // module.function of every function calling a sink
	SinkCount     int
	Incomplete    []string
}

// Keys returns the finding keys in lexical order.
func (r *Report) Keys() []string {
	keys := make([]string, 0, len(r.Findings))
	for k := range r.Findings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FoundAny reports whether any vulnerability was found.
func (r *Report) FoundAny() bool {
	return len(r.Findings) > 0
}

// Detector finds SQL sinks and runs the traversal engine from each one.
type Detector struct {
	project *project.Project
	engine  *Engine
	methods map[string]bool
	logger  *zap.Logger
}

// NewDetector creates a detector treating calls to any of methods (as
// obj.method(...)) as sinks. An empty list means DefaultSinkMethods.
func NewDetector(p *project.Project, engine *Engine, methods []string, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(methods) == 0 {
		methods = DefaultSinkMethods
	}
	set := make(map[string]bool, len(methods))
	for _, m := range methods {
		set[m] = true
	}
	return &Detector{project: p, engine: engine, methods: set, logger: logger.Named("sinks")}
}

// FindSinks returns the sink calls of module m in source order. Only the
// first positional argument, the query text, contributes variables: values
// passed as query parameters are bound by the driver.
func (d *Detector) FindSinks(m *project.Module) []Sink {
	var sinks []Sink

	var rec *flow.Recorder
	rec = flow.NewRecorder(func(call *pyast.Call) {
		attr, ok := call.Func.(*pyast.Attribute)
		if !ok || !d.methods[attr.Attr] || len(call.Args) == 0 {
			return
		}
		sink := Sink{
			Module: m.Name(),
			Call:   call,
			Events: rec.Snapshot(),
			Vars:   pyast.Vars(call.Args[0]),
		}
		if def := rec.Function(); def != nil {
			sink.Func, _ = m.Function(def)
		}
		sinks = append(sinks, sink)
	})
	rec.Walk(m.Tree())

	return sinks
}

// Detect runs a traversal from every sink of the project. Findings are
// keyed "<module>.<function>" of the function holding the sink.
func (d *Detector) Detect(ctx context.Context) (*Report, error) {
	report := &Report{Findings: make(map[string]*Finding)}
	sinkFuncs := make(map[string]bool)

	for _, m := range d.project.Modules() {
		for _, sink := range d.FindSinks(m) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			report.SinkCount++

			if sink.Func == nil {
				d.logger.Debug("Skipping module-level sink", zap.String("module", m.Name()))
				continue
			}
			key := m.Name() + "." + sink.Func.Name
			sinkFuncs[key] = true

			res, err := d.engine.Traverse(sink.Func, sink.Events, sink.Vars, m.Name(), sink.Call)
			if err != nil {
				return nil, err
			}
			if res.Incomplete {
				report.Incomplete = append(report.Incomplete, key)
			}
			if !res.Vulnerable() {
				continue
			}

			d.logger.Info("Vulnerable sink",
				zap.String("function", key),
				zap.Int("line", sink.Call.Loc().StartLine),
				zap.Int("endpoints", len(res.Endpoints)))

			finding, ok := report.Findings[key]
			if !ok {
				finding = &Finding{Key: key, Module: m.Name(), Function: sink.Func.Name, Graph: NewGraph()}
				report.Findings[key] = finding
			}
			finding.Graph.Merge(res.Graph())
			finding.Sinks = append(finding.Sinks, sink.Call.Loc())
			finding.Incomplete = finding.Incomplete || res.Incomplete
			for _, ep := range res.Endpoints {
				finding.Endpoints = appendUnique(finding.Endpoints, ep.String())
			}
		}
	}

	for k := range sinkFuncs {
		report.SinkFunctions = append(report.SinkFunctions, k)
	}
	sort.Strings(report.SinkFunctions)
	return report, nil
}
