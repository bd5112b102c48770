// Package declarations indexes raw declarations by name for package and class member
// scopes.
package declarations

import (
	"sync"
	"sync/atomic"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
	"lazyresolve/internal/shared/observability"
)

// Provider answers name-keyed queries over a fixed set of declarations. Returned slices
// are shared and must not be modified.
type Provider interface {
	// AllDeclarations lists every indexed declaration in discovery order.
	AllDeclarations() []*syntax.Declaration
	FunctionDeclarations(n name.Name) []*syntax.Declaration
	PropertyDeclarations(n name.Name) []*syntax.Declaration
	// ClassOrObjectDeclarations keeps source order; redeclarations are legal here.
	ClassOrObjectDeclarations(n name.Name) []*syntax.Declaration
}

// PackageProvider indexes the top-level declarations of every file in one package.
type PackageProvider interface {
	Provider
	Package() name.FqName
	Files() []*syntax.File
}

// ClassProvider indexes one class body.
type ClassProvider interface {
	Provider
	Owner() *ClassInfo
	ConstructorDeclarations() []*syntax.Declaration
}

// index is built in one pass the first time any query needs it and never rebuilt.
type index struct {
	owner   string
	source  func() []*syntax.Declaration
	mu      sync.Mutex
	indexed atomic.Bool

	all          []*syntax.Declaration
	functions    map[name.Name][]*syntax.Declaration
	properties   map[name.Name][]*syntax.Declaration
	classes      map[name.Name][]*syntax.Declaration
	constructors []*syntax.Declaration
}

func newIndex(owner string, source func() []*syntax.Declaration) *index {
	return &index{owner: owner, source: source}
}

func (ix *index) createIndex() {
	if ix.indexed.Load() {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.indexed.Load() {
		return
	}

	ix.all, ix.constructors = nil, nil
	ix.functions = make(map[name.Name][]*syntax.Declaration)
	ix.properties = make(map[name.Name][]*syntax.Declaration)
	ix.classes = make(map[name.Name][]*syntax.Declaration)
	for _, d := range ix.source() {
		switch d.Kind {
		case syntax.KindClass, syntax.KindObject, syntax.KindEnumEntry:
			ix.classes[d.Name()] = append(ix.classes[d.Name()], d)
		case syntax.KindFunction:
			ix.functions[d.Name()] = append(ix.functions[d.Name()], d)
		case syntax.KindProperty:
			ix.properties[d.Name()] = append(ix.properties[d.Name()], d)
		case syntax.KindConstructor:
			ix.constructors = append(ix.constructors, d)
		case syntax.KindClassInitializer:
			continue
		default:
			errors.Invariantf("unsupported declaration kind %s in %s index: %s", d.Kind, ix.owner, d.Text())
		}
		ix.all = append(ix.all, d)
	}
	observability.IndexBuilds.WithLabelValues(ix.owner).Inc()
	ix.indexed.Store(true)
}

func (ix *index) AllDeclarations() []*syntax.Declaration {
	ix.createIndex()
	return ix.all
}

func (ix *index) FunctionDeclarations(n name.Name) []*syntax.Declaration {
	ix.createIndex()
	return ix.functions[n]
}

func (ix *index) PropertyDeclarations(n name.Name) []*syntax.Declaration {
	ix.createIndex()
	return ix.properties[n]
}

func (ix *index) ClassOrObjectDeclarations(n name.Name) []*syntax.Declaration {
	ix.createIndex()
	return ix.classes[n]
}

func (ix *index) ConstructorDeclarations() []*syntax.Declaration {
	ix.createIndex()
	return ix.constructors
}

type packageProvider struct {
	*index
	fq    name.FqName
	files []*syntax.File
}

// NewPackageProvider indexes the top-level declarations of files, all of which are expected
// to belong to fq.
func NewPackageProvider(fq name.FqName, files []*syntax.File) PackageProvider {
	p := &packageProvider{fq: fq, files: files}
	p.index = newIndex("package", func() []*syntax.Declaration {
		var out []*syntax.Declaration
		for _, f := range p.files {
			out = append(out, f.Declarations...)
		}
		return out
	})
	return p
}

func (p *packageProvider) Package() name.FqName  { return p.fq }
func (p *packageProvider) Files() []*syntax.File { return p.files }

type classProvider struct {
	*index
	owner *ClassInfo
}

// NewClassProvider indexes the body of info's declaration.
func NewClassProvider(info *ClassInfo) ClassProvider {
	p := &classProvider{owner: info}
	p.index = newIndex("class", func() []*syntax.Declaration {
		if info.Declaration == nil {
			return nil
		}
		return info.Declaration.Body
	})
	return p
}

func (p *classProvider) Owner() *ClassInfo { return p.owner }

// filteredProvider is a view that hides declarations rejected by keep.
type filteredProvider struct {
	base  ClassProvider
	owner *ClassInfo
	keep  func(*syntax.Declaration) bool
}

// Filter returns a view of base that only exposes declarations accepted by keep. The view
// reports owner as its owner and shares base's index.
func Filter(base ClassProvider, owner *ClassInfo, keep func(*syntax.Declaration) bool) ClassProvider {
	return &filteredProvider{base: base, owner: owner, keep: keep}
}

func (f *filteredProvider) filter(in []*syntax.Declaration) []*syntax.Declaration {
	var out []*syntax.Declaration
	for _, d := range in {
		if f.keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func (f *filteredProvider) AllDeclarations() []*syntax.Declaration {
	return f.filter(f.base.AllDeclarations())
}

func (f *filteredProvider) FunctionDeclarations(n name.Name) []*syntax.Declaration {
	return f.filter(f.base.FunctionDeclarations(n))
}

func (f *filteredProvider) PropertyDeclarations(n name.Name) []*syntax.Declaration {
	return f.filter(f.base.PropertyDeclarations(n))
}

func (f *filteredProvider) ClassOrObjectDeclarations(n name.Name) []*syntax.Declaration {
	return f.filter(f.base.ClassOrObjectDeclarations(n))
}

func (f *filteredProvider) ConstructorDeclarations() []*syntax.Declaration {
	return f.filter(f.base.ConstructorDeclarations())
}

func (f *filteredProvider) Owner() *ClassInfo { return f.owner }
