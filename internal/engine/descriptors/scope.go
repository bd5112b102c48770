package descriptors

import (
	"fmt"

	"lazyresolve/internal/engine/name"
)

// Scope is a read-only name lookup surface. Single-result lookups return nil when the name
// is absent; multi-result lookups return an empty slice.
type Scope interface {
	Classifier(n name.Name) ClassifierDescriptor
	Package(n name.Name) PackageDescriptor
	Functions(n name.Name) []*FunctionDescriptor
	Properties(n name.Name) []VariableDescriptor
	AllDescriptors() []Descriptor
	// ImplicitReceiversHierarchy lists the receivers available without qualification,
	// innermost first.
	ImplicitReceiversHierarchy() []ClassDescriptor
	ContainingDeclaration() Descriptor
	String() string
}

type emptyScope struct {
	container Descriptor
}

// Empty returns a scope that finds nothing.
func Empty(container Descriptor) Scope {
	return emptyScope{container: container}
}

func (emptyScope) Classifier(name.Name) ClassifierDescriptor     { return nil }
func (emptyScope) Package(name.Name) PackageDescriptor           { return nil }
func (emptyScope) Functions(name.Name) []*FunctionDescriptor     { return nil }
func (emptyScope) Properties(name.Name) []VariableDescriptor     { return nil }
func (emptyScope) AllDescriptors() []Descriptor                  { return nil }
func (emptyScope) ImplicitReceiversHierarchy() []ClassDescriptor { return nil }
func (s emptyScope) ContainingDeclaration() Descriptor           { return s.container }
func (emptyScope) String() string                                { return "empty" }

// ChainedScope consults its scopes in order. Single-result lookups return the first hit;
// multi-result lookups return the ordered union without duplicates.
type ChainedScope struct {
	container Descriptor
	debugName string
	scopes    []Scope
}

func NewChainedScope(container Descriptor, debugName string, scopes ...Scope) *ChainedScope {
	kept := make([]Scope, 0, len(scopes))
	for _, s := range scopes {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &ChainedScope{container: container, debugName: debugName, scopes: kept}
}

func (c *ChainedScope) Scopes() []Scope { return c.scopes }

func (c *ChainedScope) Classifier(n name.Name) ClassifierDescriptor {
	for _, s := range c.scopes {
		if d := s.Classifier(n); d != nil {
			return d
		}
	}
	return nil
}

func (c *ChainedScope) Package(n name.Name) PackageDescriptor {
	for _, s := range c.scopes {
		if d := s.Package(n); d != nil {
			return d
		}
	}
	return nil
}

func (c *ChainedScope) Functions(n name.Name) []*FunctionDescriptor {
	var out []*FunctionDescriptor
	seen := make(map[*FunctionDescriptor]bool)
	for _, s := range c.scopes {
		for _, f := range s.Functions(n) {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

func (c *ChainedScope) Properties(n name.Name) []VariableDescriptor {
	var out []VariableDescriptor
	seen := make(map[VariableDescriptor]bool)
	for _, s := range c.scopes {
		for _, v := range s.Properties(n) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func (c *ChainedScope) AllDescriptors() []Descriptor {
	var out []Descriptor
	seen := make(map[Descriptor]bool)
	for _, s := range c.scopes {
		for _, d := range s.AllDescriptors() {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}

func (c *ChainedScope) ImplicitReceiversHierarchy() []ClassDescriptor {
	var out []ClassDescriptor
	for _, s := range c.scopes {
		out = append(out, s.ImplicitReceiversHierarchy()...)
	}
	return out
}

func (c *ChainedScope) ContainingDeclaration() Descriptor { return c.container }

func (c *ChainedScope) String() string {
	return fmt.Sprintf("chained %s (%d scopes)", c.debugName, len(c.scopes))
}

// LocalScope is a small fixed scope for type parameters, constructor parameters and the
// receiver of a class body. It is filled before it is shared and never changed afterwards.
type LocalScope struct {
	container   Descriptor
	debugName   string
	classifiers map[name.Name]ClassifierDescriptor
	variables   map[name.Name][]VariableDescriptor
	functions   map[name.Name][]*FunctionDescriptor
	receivers   []ClassDescriptor
	all         []Descriptor
}

func NewLocalScope(container Descriptor, debugName string) *LocalScope {
	return &LocalScope{
		container:   container,
		debugName:   debugName,
		classifiers: make(map[name.Name]ClassifierDescriptor),
		variables:   make(map[name.Name][]VariableDescriptor),
		functions:   make(map[name.Name][]*FunctionDescriptor),
	}
}

// AddClassifier keeps the first classifier registered under a name.
func (l *LocalScope) AddClassifier(d ClassifierDescriptor) *LocalScope {
	if _, ok := l.classifiers[d.Name()]; ok {
		return l
	}
	l.classifiers[d.Name()] = d
	l.all = append(l.all, d)
	return l
}

func (l *LocalScope) AddVariable(v VariableDescriptor) *LocalScope {
	l.variables[v.Name()] = append(l.variables[v.Name()], v)
	l.all = append(l.all, v)
	return l
}

func (l *LocalScope) AddFunction(f *FunctionDescriptor) *LocalScope {
	l.functions[f.Name()] = append(l.functions[f.Name()], f)
	l.all = append(l.all, f)
	return l
}

func (l *LocalScope) AddReceiver(c ClassDescriptor) *LocalScope {
	l.receivers = append(l.receivers, c)
	return l
}

func (l *LocalScope) Classifier(n name.Name) ClassifierDescriptor   { return l.classifiers[n] }
func (l *LocalScope) Package(name.Name) PackageDescriptor           { return nil }
func (l *LocalScope) Functions(n name.Name) []*FunctionDescriptor   { return l.functions[n] }
func (l *LocalScope) Properties(n name.Name) []VariableDescriptor   { return l.variables[n] }
func (l *LocalScope) AllDescriptors() []Descriptor                  { return l.all }
func (l *LocalScope) ImplicitReceiversHierarchy() []ClassDescriptor { return l.receivers }
func (l *LocalScope) ContainingDeclaration() Descriptor             { return l.container }
func (l *LocalScope) String() string                                { return "local " + l.debugName }

type classifiersOnly struct {
	Scope
}

// ClassifiersOnly restricts s to its classifiers.
func ClassifiersOnly(s Scope) Scope {
	return classifiersOnly{Scope: s}
}

func (classifiersOnly) Package(name.Name) PackageDescriptor           { return nil }
func (classifiersOnly) Functions(name.Name) []*FunctionDescriptor     { return nil }
func (classifiersOnly) Properties(name.Name) []VariableDescriptor     { return nil }
func (classifiersOnly) ImplicitReceiversHierarchy() []ClassDescriptor { return nil }

func (c classifiersOnly) AllDescriptors() []Descriptor {
	var out []Descriptor
	for _, d := range c.Scope.AllDescriptors() {
		if _, ok := d.(ClassifierDescriptor); ok {
			out = append(out, d)
		}
	}
	return out
}

func (c classifiersOnly) String() string { return "classifiers of " + c.Scope.String() }

type noPackages struct {
	Scope
}

// NoPackages hides the packages of s. All-under imports use it so that "import a.*" does
// not bring a's sub-packages into scope.
func NoPackages(s Scope) Scope {
	return noPackages{Scope: s}
}

func (noPackages) Package(name.Name) PackageDescriptor { return nil }

func (n noPackages) AllDescriptors() []Descriptor {
	var out []Descriptor
	for _, d := range n.Scope.AllDescriptors() {
		if _, ok := d.(PackageDescriptor); !ok {
			out = append(out, d)
		}
	}
	return out
}

func (n noPackages) String() string { return "no packages of " + n.Scope.String() }
