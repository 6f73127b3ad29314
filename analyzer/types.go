package analyzer

import (
	"github.com/hannajonsd/sqli-reachability/project"
	"github.com/hannajonsd/sqli-reachability/pyast"
	"github.com/hannajonsd/sqli-reachability/report"
	"github.com/hannajonsd/sqli-reachability/taint"
)

// Dependency is an external package imported by the project's source code.
type Dependency struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Manifest     string   `json:"manifest,omitempty"`
	IsInManifest bool     `json:"in_manifest"`
	FoundInFiles []string `json:"found_in_files"`
}

// FindingSummary is the flat description of one vulnerable function.
type FindingSummary struct {
	Key        string           `json:"key"`
	Module     string           `json:"module"`
	Function   string           `json:"function"`
	Sinks      []pyast.Location `json:"sinks"`
	Endpoints  []string         `json:"endpoints"`
	Incomplete bool             `json:"incomplete,omitempty"`
}

// Results is the outcome of analysing one repository.
type Results struct {
	RunID           string                     `json:"run_id"`
	Project         string                     `json:"project"`
	Root            string                     `json:"root"`
	FoundAny        bool                       `json:"found_any"`
	Modules         int                        `json:"modules"`
	SinkCount       int                        `json:"sink_count"`
	SinkFunctions   []string                   `json:"sink_functions"`
	Findings        []FindingSummary           `json:"findings"`
	Vulnerabilities map[string]report.GraphDoc `json:"vulnerabilities"`
	DependencyGraph report.GraphDoc            `json:"dependency_graph"`
	Dependencies    []Dependency               `json:"dependencies"`
	Frameworks      []string                   `json:"frameworks"`
	Incomplete      []string                   `json:"incomplete,omitempty"`

	project *project.Project
	report  *taint.Report
}
