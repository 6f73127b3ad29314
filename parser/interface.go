package parser

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/sqli-reachability/pyast"
)

// Parser defines the interface for language-specific source code parsers
type Parser interface {
	GetLanguage() string
	Close()
	ParseFile(ctx context.Context, filePath string) (*ParseResult, error)
	ParseSource(ctx context.Context, source []byte, filePath string) (*ParseResult, error)
}

// BaseParser provides common functionality for all language parsers
type BaseParser struct {
	parser   *sitter.Parser
	language *sitter.Language
	langName string
}

// ParseResult contains the converted syntax tree and metadata for a source file
type ParseResult struct {
	Module    *pyast.Module
	Source    []byte
	Language  string
	FilePath  string
	HasErrors bool // the concrete tree contained ERROR or MISSING nodes
}
