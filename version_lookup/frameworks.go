package version_lookup

import "sort"

// Web frameworks whose route decorators mark API endpoints.
var knownFrameworks = map[string]string{
	"flask":     "flask",
	"django":    "django",
	"fastapi":   "fastapi",
	"starlette": "starlette",
	"sanic":     "sanic",
	"bottle":    "bottle",
}

// DetectFrameworks returns the web frameworks a project declares in its
// manifests or imports by top-level module name.
func DetectFrameworks(reqs map[string]Requirement, importedModules []string) []string {
	found := make(map[string]bool)
	for key := range reqs {
		if fw, ok := knownFrameworks[key]; ok {
			found[fw] = true
		}
	}
	for _, m := range importedModules {
		if fw, ok := knownFrameworks[NormalizeName(m)]; ok {
			found[fw] = true
		}
	}

	out := make([]string, 0, len(found))
	for fw := range found {
		out = append(out, fw)
	}
	sort.Strings(out)
	return out
}
