package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/text/unicode/norm"

	"github.com/hannajonsd/sqli-reachability/pyast"
)

// CreateParser creates the appropriate parser based on file extension
func CreateParser(filePath string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".py", ".pyw":
		return NewPythonParser()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

// WalkAST recursively traverses a concrete tree and applies a visitor function to each node.
// Returning false from the visitor skips the node's children.
func WalkAST(node *sitter.Node, source []byte, visitor func(*sitter.Node) bool) {
	if node == nil || node.IsNull() {
		return
	}
	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		WalkAST(node.Child(i), source, visitor)
	}
}

// readSource loads a file for parsing
func readSource(filePath string) ([]byte, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return source, nil
}

// parseTree runs tree-sitter over source
func (bp *BaseParser) parseTree(ctx context.Context, source []byte, filePath string) (*sitter.Tree, error) {
	tree, err := bp.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filePath, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("failed to parse file %s", filePath)
	}
	return tree, nil
}

// GetLanguage returns the language name for this parser
func (bp *BaseParser) GetLanguage() string {
	return bp.langName
}

// Close releases the underlying tree-sitter parser
func (bp *BaseParser) Close() {
	if bp.parser != nil {
		bp.parser.Close()
		bp.parser = nil
	}
}

// nodeText returns the source text covered by node
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil || node.IsNull() {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// identifier returns an identifier's text in NFKC normal form, which is how
// the interpreter compares names.
func identifier(node *sitter.Node, source []byte) string {
	text := nodeText(node, source)
	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			return norm.NFKC.String(text)
		}
	}
	return text
}

// location converts tree-sitter points to a 1-based line span
func location(node *sitter.Node) pyast.Location {
	start, end := node.StartPoint(), node.EndPoint()
	return pyast.Location{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

// namedChildren returns the named children of node, skipping comments
func namedChildren(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// field returns the child stored under name, or nil
func field(node *sitter.Node, name string) *sitter.Node {
	child := node.ChildByFieldName(name)
	if child == nil || child.IsNull() {
		return nil
	}
	return child
}
