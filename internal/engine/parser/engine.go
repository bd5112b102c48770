package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

// NodeHandler processes a node for a language frontend.
// Returns true if the handler consumed the node and the walker should not descend.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries the source and the file being built.
type ExtractionContext struct {
	Source []byte
	File   *syntax.File
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if handler, ok := e.handlers[node.Kind()]; ok && handler(ctx, node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

// Position is the 1-based start of node.
func (c *ExtractionContext) Position(node *sitter.Node) syntax.Position {
	p := node.StartPosition()
	return syntax.Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// children returns the direct children of node whose kind is one of kinds.
func children(node *sitter.Node, kinds ...string) []*sitter.Node {
	if node == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		for _, k := range kinds {
			if child.Kind() == k {
				out = append(out, child)
				break
			}
		}
	}
	return out
}

func firstChild(node *sitter.Node, kinds ...string) *sitter.Node {
	if found := children(node, kinds...); len(found) > 0 {
		return found[0]
	}
	return nil
}

// dotted turns "a . b" or "a/b" style paths into "a.b".
func dotted(text string) string {
	text = strings.Join(strings.Fields(text), "")
	return strings.ReplaceAll(text, "/", ".")
}

var segmentReplacer = strings.NewReplacer(".", "_", "-", "_")

// slashPackage turns a slash separated directory into a package name. Segments that are
// not identifiers have '.' and '-' replaced by '_'.
func slashPackage(dir string) name.FqName {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return name.Root
	}
	segments := strings.Split(dir, "/")
	for i, s := range segments {
		segments[i] = segmentReplacer.Replace(s)
	}
	return name.Parse(strings.Join(segments, "."))
}

func pathRef(path string, pos syntax.Position, args ...*syntax.TypeRef) *syntax.TypeRef {
	if path == "" {
		return nil
	}
	return &syntax.TypeRef{Path: strings.Split(path, "."), Arguments: args, Pos: pos}
}

// nonNil drops the references a frontend could not translate.
func nonNil(refs []*syntax.TypeRef) []*syntax.TypeRef {
	out := refs[:0]
	for _, r := range refs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func firstRef(refs []*syntax.TypeRef) *syntax.TypeRef {
	for _, r := range refs {
		if r != nil {
			return r
		}
	}
	return nil
}
