package version_lookup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		line    string
		name    string
		version string
		ok      bool
	}{
		{"flask==2.3.2", "flask", "==2.3.2", true},
		{"flask >= 2.0, <3", "flask", ">=2.0,<3", true},
		{"psycopg2-binary==2.9.9  # db", "psycopg2-binary", "==2.9.9", true},
		{"requests[socks]~=2.31", "requests", "~=2.31", true},
		{"SQLAlchemy", "SQLAlchemy", "", true},
		{"uvicorn>=0.20; python_version >= '3.8'", "uvicorn", ">=0.20", true},
		{"   ", "", "", false},
		{"# only a comment", "", "", false},
		{"-r base.txt", "", "", false},
		{"--index-url https://example.org/simple", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, version, ok := parseRequirement(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.version, version)
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "psycopg2-binary", NormalizeName("psycopg2_binary"))
	assert.Equal(t, "zope-interface", NormalizeName("Zope.Interface"))
	assert.Equal(t, "a-b", NormalizeName(" A__-.B "))
}

func TestParsePyproject(t *testing.T) {
	content := []byte(`
[project]
name = "svc"
dependencies = ["fastapi>=0.100", "asyncpg==0.29.0"]

[project.optional-dependencies]
test = ["pytest>=7"]

[tool.poetry.dependencies]
python = "^3.11"
pydantic = "^2.0"
sqlalchemy = { version = "2.0.23", extras = ["asyncio"] }
`)

	assert.Equal(t, map[string]string{
		"fastapi":    ">=0.100",
		"asyncpg":    "==0.29.0",
		"pytest":     ">=7",
		"pydantic":   "^2.0",
		"sqlalchemy": "2.0.23",
	}, parsePyproject(content))

	assert.Nil(t, parsePyproject([]byte("not = [valid")))
}

func TestParsePipfile(t *testing.T) {
	content := []byte(`
[packages]
django = "*"
psycopg2 = {version = "==2.9.9"}

[dev-packages]
pytest = ">=7"
`)

	assert.Equal(t, map[string]string{
		"django":   "",
		"psycopg2": "==2.9.9",
		"pytest":   ">=7",
	}, parsePipfile(content))
}

func TestRequirementsDemo(t *testing.T) {
	reqs := New().Requirements("../testdata/demo")

	assert.Equal(t, Requirement{Name: "flask", Version: "==2.3.2", Manifest: "requirements.txt"}, reqs["flask"])
	assert.Equal(t, ">=2.31,<3", reqs["requests"].Version)
	assert.Len(t, reqs, 2)
}

func TestRequirementsShallowestWins(t *testing.T) {
	root := t.TempDir()
	write(t, root, "requirements.txt", "Flask==2.3.2\n")
	write(t, root, "services/api/requirements-dev.txt", "flask==3.0.0\npytest\n")
	write(t, root, "services/Pipfile", "[packages]\nrequests = \"*\"\n")
	write(t, root, ".venv/requirements.txt", "ignored==1.0\n")
	write(t, root, "node_modules/pkg/requirements.txt", "ignored==1.0\n")

	l := New()
	assert.Equal(t, []string{
		filepath.Join(root, "requirements.txt"),
		filepath.Join(root, "services", "Pipfile"),
		filepath.Join(root, "services", "api", "requirements-dev.txt"),
	}, l.FindManifests(root))

	reqs := l.Requirements(root)
	assert.Equal(t, Requirement{Name: "Flask", Version: "==2.3.2", Manifest: "requirements.txt"}, reqs["flask"])
	assert.Equal(t, filepath.Join("services", "api", "requirements-dev.txt"), reqs["pytest"].Manifest)
	assert.Equal(t, "", reqs["requests"].Version)
	assert.NotContains(t, reqs, "ignored")

	assert.Equal(t, "==2.3.2", l.GetPackageVersion(root, "FLASK"))
	assert.Equal(t, map[string]string{"flask": "==2.3.2"}, l.GetAllVersions(root, []string{"flask", "requests", "missing"}))
}

func TestDetectFrameworks(t *testing.T) {
	reqs := map[string]Requirement{
		"flask":    {Name: "Flask"},
		"requests": {Name: "requests"},
	}
	assert.Equal(t, []string{"fastapi", "flask"}, DetectFrameworks(reqs, []string{"fastapi", "os", "sqlite3"}))
	assert.Empty(t, DetectFrameworks(nil, nil))
}
