package analyzer

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
)

// DisplayResults writes a human readable summary of the results.
func DisplayResults(w io.Writer, res *Results, verbose bool) {
	fmt.Fprintf(w, "Project: %s (%s)\n", res.Project, res.Root)
	if verbose {
		displayDependencies(w, res.Dependencies)
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("-", 60))
	fmt.Fprintln(w, "SQL INJECTION REACHABILITY")

	if !res.FoundAny {
		if res.Modules == 0 {
			fmt.Fprintln(w, "  No source files found to analyze")
		} else {
			fmt.Fprintln(w, color.Green.Sprint("No endpoint reaches a SQL sink"))
			fmt.Fprintf(w, "   Analyzed %d modules and %d sink calls\n", res.Modules, res.SinkCount)
		}
	} else {
		fmt.Fprintf(w, "\nFound %d vulnerable sink functions:\n\n", len(res.Findings))
		for _, f := range res.Findings {
			fmt.Fprintf(w, "  %s %s\n", color.Red.Sprint("x"), color.Bold.Sprint(f.Key))
			for _, s := range f.Sinks {
				fmt.Fprintf(w, "     sink at line %d\n", s.StartLine)
			}
			for _, ep := range f.Endpoints {
				fmt.Fprintf(w, "     - reachable from endpoint %s\n", ep)
			}
			if f.Incomplete {
				fmt.Fprintln(w, color.Yellow.Sprint("     traversal stopped at the visit budget, more endpoints may exist"))
			}
			if verbose {
				displayPaths(w, res, f.Key)
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w, "SUMMARY")
	fmt.Fprintf(w, "Modules analyzed: %d\n", res.Modules)
	fmt.Fprintf(w, "SQL sink calls: %d in %d functions\n", res.SinkCount, len(res.SinkFunctions))
	fmt.Fprintf(w, "Vulnerable sink functions: %d\n", len(res.Findings))
	if len(res.Frameworks) > 0 {
		fmt.Fprintf(w, "Web frameworks: %s\n", strings.Join(res.Frameworks, ", "))
	}

	manifestCount, codeOnlyCount := 0, 0
	for _, dep := range res.Dependencies {
		if dep.IsInManifest {
			manifestCount++
		} else {
			codeOnlyCount++
		}
	}
	fmt.Fprintf(w, "External dependencies discovered: %d\n", len(res.Dependencies))
	fmt.Fprintf(w, "  - Declared in manifests: %d\n", manifestCount)
	fmt.Fprintf(w, "  - Code-only: %d\n", codeOnlyCount)
	if len(res.Incomplete) > 0 {
		fmt.Fprintln(w, color.Yellow.Sprintf("Incomplete traversals: %d", len(res.Incomplete)))
	}
}

// displayPaths prints the call edges of one finding's graph
func displayPaths(w io.Writer, res *Results, key string) {
	doc, ok := res.Vulnerabilities[key]
	if !ok {
		return
	}
	for _, e := range doc.Edges {
		fmt.Fprintf(w, "       %s -> %s\n", e.Source, e.Target)
	}
}

// displayDependencies shows discovered dependencies organized by manifest status
func displayDependencies(w io.Writer, deps []Dependency) {
	var manifestDeps, codeOnlyDeps []Dependency
	for _, dep := range deps {
		if dep.IsInManifest {
			manifestDeps = append(manifestDeps, dep)
		} else {
			codeOnlyDeps = append(codeOnlyDeps, dep)
		}
	}

	if len(manifestDeps) > 0 {
		fmt.Fprintf(w, "\n With Versions (%d):\n", len(manifestDeps))
		for _, dep := range manifestDeps {
			version := dep.Version
			if version == "" {
				version = "any"
			}
			fmt.Fprintf(w, "  - %s %s [%s] (used in %d files)\n", dep.Name, version, dep.Manifest, len(dep.FoundInFiles))
		}
	}

	if len(codeOnlyDeps) > 0 {
		fmt.Fprintf(w, "\n  Unknown Versions (%d):\n", len(codeOnlyDeps))
		for _, dep := range codeOnlyDeps {
			fmt.Fprintf(w, "  - %s@unknown (used in %d files)\n", dep.Name, len(dep.FoundInFiles))
			for _, file := range dep.FoundInFiles {
				fmt.Fprintf(w, "     %s\n", file)
			}
		}
	}
}
