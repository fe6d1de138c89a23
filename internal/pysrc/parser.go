// Package pysrc wraps tree-sitter parsing of Python source files.
// It owns the parser lifecycle and the node helpers the annotation engine
// uses; everything here is read-only over the parse tree, rewrites happen
// as byte-offset insertions on the original source.
package pysrc

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser parses Python source using tree-sitter. Not safe for concurrent
// use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a Python parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.parser.Close()
}

// Parse parses one source file into a File. The caller must Close the
// returned File.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*File, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &File{Path: path, Source: content, tree: tree}, nil
}

// File is one parsed Python source file.
type File struct {
	Path   string
	Source []byte
	tree   *sitter.Tree
}

// Root returns the module node.
func (f *File) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Close releases the parse tree.
func (f *File) Close() {
	f.tree.Close()
}

// IsStub reports whether the file is a .pyi stub.
func (f *File) IsStub() bool {
	return strings.HasSuffix(f.Path, ".pyi")
}

// Text returns the source text of a node.
func (f *File) Text(n *sitter.Node) string {
	return string(f.Source[n.StartByte():n.EndByte()])
}
