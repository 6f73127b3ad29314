package project

import (
	"fmt"
	"os"
)

// PathError reports an input path that cannot be analyzed.
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s. Passed: %s", e.Message, e.Path)
}

// CheckDir returns a PathError unless path is an existing directory.
func CheckDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &PathError{Path: path, Message: "Path does not exist or cannot be accessed"}
	}
	if !info.IsDir() {
		return &PathError{Path: path, Message: "Path must be a directory"}
	}
	return nil
}
