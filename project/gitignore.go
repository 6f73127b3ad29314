package project

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// GitignoreParser answers whether a path under rootDir is excluded by the
// project's .gitignore.
type GitignoreParser struct {
	rootDir string
	matcher gitignore.Matcher
	count   int
}

// NewGitignoreParser creates a new gitignore parser for the given directory
func NewGitignoreParser(rootDir string) *GitignoreParser {
	parser := &GitignoreParser{
		rootDir: rootDir,
	}
	parser.loadGitignore()
	return parser
}

// loadGitignore reads and parses the .gitignore file at the root. A missing
// file leaves the parser matching nothing.
func (gp *GitignoreParser) loadGitignore() {
	var patterns []gitignore.Pattern

	file, err := os.Open(filepath.Join(gp.rootDir, ".gitignore"))
	if err == nil {
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), " \t\r")
			if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, nil))
		}
	}

	gp.count = len(patterns)
	gp.matcher = gitignore.NewMatcher(patterns)
}

// PatternCount returns the number of patterns loaded.
func (gp *GitignoreParser) PatternCount() int {
	return gp.count
}

// ShouldIgnore checks if a path should be ignored based on .gitignore patterns
func (gp *GitignoreParser) ShouldIgnore(path string, isDir bool) bool {
	if gp.count == 0 {
		return false
	}

	relPath, err := filepath.Rel(gp.rootDir, path)
	if err != nil || relPath == "." || strings.HasPrefix(relPath, "..") {
		return false
	}

	return gp.matcher.Match(strings.Split(filepath.ToSlash(relPath), "/"), isDir)
}
