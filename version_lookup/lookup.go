package version_lookup

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Requirement is a declared dependency of a Python project.
type Requirement struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Manifest string `json:"manifest"`
}

type Lookup struct {
	skipDirs map[string]bool
}

// New creates a lookup that skips hidden directories and the given names.
func New(skipDirs ...string) *Lookup {
	skip := map[string]bool{"__pycache__": true, "node_modules": true, "venv": true}
	for _, d := range skipDirs {
		skip[d] = true
	}
	return &Lookup{skipDirs: skip}
}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizeName returns the canonical form of a distribution name:
// lower case with runs of "-", "_" and "." collapsed to "-".
func NormalizeName(name string) string {
	return nameSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// GetPackageVersion finds the declared version of a package in the
// project's manifests. It returns "" when the package is not declared.
func (l *Lookup) GetPackageVersion(rootDir, packageName string) string {
	return l.Requirements(rootDir)[NormalizeName(packageName)].Version
}

// GetAllVersions finds versions for several packages at once. Packages
// without a declared version are left out.
func (l *Lookup) GetAllVersions(rootDir string, packages []string) map[string]string {
	reqs := l.Requirements(rootDir)
	versions := make(map[string]string)
	for _, p := range packages {
		if r, ok := reqs[NormalizeName(p)]; ok && r.Version != "" {
			versions[p] = r.Version
		}
	}
	return versions
}

// Requirements reads every manifest under rootDir and returns the declared
// dependencies keyed by normalized name. Manifests closer to the root win.
func (l *Lookup) Requirements(rootDir string) map[string]Requirement {
	reqs := make(map[string]Requirement)
	for _, manifest := range l.FindManifests(rootDir) {
		content, err := os.ReadFile(manifest)
		if err != nil {
			continue
		}

		var found map[string]string
		switch base := filepath.Base(manifest); {
		case base == "pyproject.toml":
			found = parsePyproject(content)
		case base == "Pipfile":
			found = parsePipfile(content)
		default:
			found = parseRequirements(string(content))
		}

		rel, err := filepath.Rel(rootDir, manifest)
		if err != nil {
			rel = manifest
		}
		for name, version := range found {
			key := NormalizeName(name)
			if _, ok := reqs[key]; ok {
				continue
			}
			reqs[key] = Requirement{Name: name, Version: version, Manifest: rel}
		}
	}
	return reqs
}

// isManifest reports whether a file name is a Python dependency manifest.
func isManifest(name string) bool {
	switch name {
	case "pyproject.toml", "Pipfile":
		return true
	}
	return strings.HasPrefix(name, "requirements") && strings.HasSuffix(name, ".txt")
}

// FindManifests locates the manifest files in the project directory tree,
// shallowest first.
func (l *Lookup) FindManifests(rootDir string) []string {
	rootAbs, _ := filepath.Abs(rootDir)
	var files []string

	_ = filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.IsDir() {
			pathAbs, _ := filepath.Abs(path)
			if pathAbs != rootAbs {
				name := d.Name()
				if strings.HasPrefix(name, ".") || l.skipDirs[name] {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if isManifest(d.Name()) {
			files = append(files, path)
		}
		return nil
	})

	sort.SliceStable(files, func(i, j int) bool {
		di := strings.Count(files[i], string(filepath.Separator))
		dj := strings.Count(files[j], string(filepath.Separator))
		if di != dj {
			return di < dj
		}
		return files[i] < files[j]
	})
	return files
}

var requirementLine = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(\[[^\]]*\])?\s*([=<>~!]=?\s*[^;#\s,]*(?:\s*,\s*[=<>~!]=?\s*[^;#\s,]*)*)?`)

// parseRequirement splits a PEP 508 requirement into name and version
// specifier.
func parseRequirement(line string) (name, version string, ok bool) {
	line = strings.TrimSpace(line)
	if i := strings.Index(line, "#"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" || strings.HasPrefix(line, "-") {
		return "", "", false
	}
	m := requirementLine.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.ReplaceAll(m[3], " ", ""), true
}

// parseRequirements extracts packages from a requirements file. Option
// lines such as "-r other.txt" are ignored.
func parseRequirements(content string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		if name, version, ok := parseRequirement(line); ok {
			out[name] = version
		}
	}
	return out
}

type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func parsePyproject(content []byte) map[string]string {
	var doc pyproject
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil
	}

	out := make(map[string]string)
	add := func(reqs []string) {
		for _, r := range reqs {
			if name, version, ok := parseRequirement(r); ok {
				out[name] = version
			}
		}
	}
	add(doc.Project.Dependencies)
	for _, group := range sortedGroups(doc.Project.OptionalDependencies) {
		add(doc.Project.OptionalDependencies[group])
	}
	addTable(out, doc.Tool.Poetry.Dependencies)
	addTable(out, doc.Tool.Poetry.DevDependencies)
	delete(out, "python")
	return out
}

type pipfile struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

func parsePipfile(content []byte) map[string]string {
	var doc pipfile
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil
	}
	out := make(map[string]string)
	addTable(out, doc.Packages)
	addTable(out, doc.DevPackages)
	return out
}

// addTable reads a name = "spec" or name = {version = "spec"} table.
func addTable(out map[string]string, table map[string]any) {
	for name, v := range table {
		version := ""
		switch spec := v.(type) {
		case string:
			version = spec
		case map[string]any:
			version, _ = spec["version"].(string)
		}
		if version == "*" {
			version = ""
		}
		if _, ok := out[name]; !ok {
			out[name] = version
		}
	}
}

func sortedGroups(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
