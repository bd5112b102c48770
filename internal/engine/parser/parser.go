// Package parser turns source files into syntax.File declaration trees using tree-sitter
// grammars. Each supported language has a Frontend that maps its syntax onto the
// language-neutral declaration model.
package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/syntax"
	"lazyresolve/internal/shared/observability"
)

// Frontend maps one language's syntax tree onto declarations.
type Frontend interface {
	Language() string
	Grammar() *sitter.Language
	Extensions() []string
	// Builtins are type names that resolve without a declaration.
	Builtins() []string
	// DefaultImports are import paths every file of the language sees implicitly.
	DefaultImports() []string
	Extract(root *sitter.Node, source []byte, path string) (*syntax.File, error)
}

type Parser struct {
	frontends  map[string]Frontend
	pools      map[string]*ParserPool
	extensions map[string]string
}

// NewParser registers frontends by language. A later frontend for the same extension wins.
func NewParser(frontends ...Frontend) *Parser {
	p := &Parser{
		frontends:  make(map[string]Frontend),
		pools:      make(map[string]*ParserPool),
		extensions: make(map[string]string),
	}
	for _, f := range frontends {
		p.frontends[f.Language()] = f
		p.pools[f.Language()] = NewParserPool(f.Grammar())
		for _, ext := range f.Extensions() {
			p.extensions[strings.ToLower(ext)] = f.Language()
		}
	}
	return p
}

// DefaultFrontends returns every built-in frontend.
func DefaultFrontends(goModulePath string) []Frontend {
	return []Frontend{
		NewJavaFrontend(),
		NewGoFrontend(goModulePath),
		NewPythonFrontend(),
	}
}

// ParseFile parses content as the language registered for path's extension.
// path should be relative to the source root; it becomes the file's identity.
func (p *Parser) ParseFile(path string, content []byte) (*syntax.File, error) {
	lang := p.Language(path)
	if lang == "" {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unsupported language: %s", path))
	}
	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	}()

	pool := p.pools[lang]
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, "parse failed")
	}
	defer tree.Close()

	file, err := p.frontends[lang].Extract(tree.RootNode(), content, filepath.ToSlash(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "extraction failed")
	}
	return file, nil
}

// Language returns the language registered for path, or "".
func (p *Parser) Language(path string) string {
	return p.extensions[strings.ToLower(filepath.Ext(path))]
}

func (p *Parser) IsSupportedPath(path string) bool {
	return p.Language(path) != ""
}

func (p *Parser) SupportedExtensions() []string {
	out := make([]string, 0, len(p.extensions))
	for ext := range p.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Builtins is the union of every frontend's builtin type names, sorted.
func (p *Parser) Builtins() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range p.frontends {
		for _, b := range f.Builtins() {
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
	}
	sort.Strings(out)
	return out
}

// DefaultImports returns the implicit imports of the given language.
func (p *Parser) DefaultImports(lang string) []string {
	if f, ok := p.frontends[lang]; ok {
		return f.DefaultImports()
	}
	return nil
}
