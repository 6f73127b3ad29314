package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultSkipDirs are directory names never descended into.
var DefaultSkipDirs = []string{
	"node_modules", "__pycache__", "vendor", "build", "dist", "venv", "env", "site-packages",
}

// FindSourceFiles returns the Python files under root in lexical order.
// Hidden directories, skipDirs, *.egg-info directories and, when
// useGitignore is set, paths matched by the root .gitignore are skipped.
func FindSourceFiles(root string, skipDirs []string, useGitignore bool) ([]string, error) {
	var sourceFiles []string

	var gitignoreParser *GitignoreParser
	if useGitignore {
		gitignoreParser = NewGitignoreParser(root)
	}

	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[d] = true
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if gitignoreParser != nil && gitignoreParser.ShouldIgnore(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skip[name] || strings.HasSuffix(name, ".egg-info")) {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(path) == ".py" {
			sourceFiles = append(sourceFiles, path)
		}
		return nil
	})

	sort.Strings(sourceFiles)
	return sourceFiles, err
}

// ModuleName derives the dotted module name of file. Walking up from the
// file's directory, each directory holding an __init__.py contributes a
// segment, stopping at the first one that does not or at root.
func ModuleName(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathError{Path: file, Message: "File is not inside the project root"}
	}

	base := filepath.Base(file)
	parts := []string{strings.TrimSuffix(base, filepath.Ext(base))}

	dir := filepath.Dir(file)
	for {
		if !isFile(filepath.Join(dir, "__init__.py")) {
			break
		}
		parts = append([]string{filepath.Base(dir)}, parts...)
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return strings.Join(parts, "."), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
