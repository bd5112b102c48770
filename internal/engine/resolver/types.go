// Package resolver holds the default type and descriptor resolvers the lazy session calls
// into. Both record every result in the binding trace they are given.
package resolver

import (
	"log/slog"

	"lazyresolve/internal/engine/binding"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

// DefaultBuiltins are names that resolve without any declaration in scope.
var DefaultBuiltins = []string{
	"Any", "Nothing", "Unit", "Boolean", "Byte", "Short", "Int", "Long", "Float", "Double",
	"Char", "String", "Object",
	"void", "boolean", "byte", "short", "int", "long", "float", "double", "char",
}

// TypeResolver resolves qualified references against a scope. The first segment is looked
// up as a classifier, then as a package; the remaining segments walk nested classifiers or
// package members. Anything that does not end in a classifier becomes an error type.
type TypeResolver struct {
	builtins map[name.Name]descriptors.ClassifierDescriptor
	logger   *slog.Logger
}

type TypeResolverOption func(*TypeResolver)

func WithBuiltins(names ...string) TypeResolverOption {
	return func(r *TypeResolver) {
		module := descriptors.NewModuleDescriptor("builtins")
		r.builtins = make(map[name.Name]descriptors.ClassifierDescriptor, len(names))
		for _, n := range names {
			b := &builtinClassifier{name: name.Identifier(n), module: module}
			b.constructor = &descriptors.ClassifierConstructor{Owner: b}
			r.builtins[b.name] = b
		}
	}
}

func WithTypeLogger(logger *slog.Logger) TypeResolverOption {
	return func(r *TypeResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewTypeResolver(opts ...TypeResolverOption) *TypeResolver {
	r := &TypeResolver{logger: slog.Default()}
	WithBuiltins(DefaultBuiltins...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Builtin returns the builtin classifier for n, if any.
func (r *TypeResolver) Builtin(n name.Name) (descriptors.ClassifierDescriptor, bool) {
	b, ok := r.builtins[n]
	return b, ok
}

func (r *TypeResolver) ResolveType(scope descriptors.Scope, ref *syntax.TypeRef, trace *binding.Trace) descriptors.Type {
	t := r.resolve(scope, ref, trace)
	trace.RecordType(ref, t)
	if t.IsError() {
		r.logger.Debug("unresolved type reference", "type", ref.Text(), "scope", scope.String())
	}
	return t
}

func (r *TypeResolver) resolve(scope descriptors.Scope, ref *syntax.TypeRef, trace *binding.Trace) descriptors.Type {
	c := r.resolveClassifier(scope, ref.Path)
	if c == nil {
		return descriptors.NewErrorType(ref.Text())
	}
	args := make([]descriptors.Type, len(ref.Arguments))
	for i, a := range ref.Arguments {
		args[i] = r.ResolveType(scope, a, trace)
	}
	return descriptors.NewSimpleType(c.TypeConstructor(), args, ref.Nullable)
}

func (r *TypeResolver) resolveClassifier(scope descriptors.Scope, path []string) descriptors.ClassifierDescriptor {
	if len(path) == 0 {
		return nil
	}
	first := name.Identifier(path[0])
	var (
		classifier descriptors.ClassifierDescriptor
		pkg        descriptors.PackageDescriptor
	)
	if classifier = scope.Classifier(first); classifier == nil {
		if pkg = scope.Package(first); pkg == nil {
			if len(path) == 1 {
				if b, ok := r.builtins[first]; ok {
					return b
				}
			}
			return nil
		}
	}

	for _, seg := range path[1:] {
		n := name.Identifier(seg)
		if classifier != nil {
			if classifier = nestedClassifier(classifier, n); classifier == nil {
				return nil
			}
			continue
		}
		members := pkg.MemberScope()
		if classifier = members.Classifier(n); classifier == nil {
			if pkg = members.Package(n); pkg == nil {
				return nil
			}
		}
	}
	return classifier
}

// nestedClassifier looks n up among the nested classes of c, then in c's class object,
// which is where enum entries and companion members live.
func nestedClassifier(c descriptors.ClassifierDescriptor, n name.Name) descriptors.ClassifierDescriptor {
	cls, ok := c.(descriptors.ClassDescriptor)
	if !ok {
		return nil
	}
	if d := cls.UnsubstitutedInnerClassesScope().Classifier(n); d != nil {
		return d
	}
	if obj := cls.ClassObjectDescriptor(); obj != nil {
		return obj.UnsubstitutedInnerClassesScope().Classifier(n)
	}
	return nil
}

type builtinClassifier struct {
	name        name.Name
	module      *descriptors.ModuleDescriptor
	constructor *descriptors.ClassifierConstructor
}

func (b *builtinClassifier) Name() name.Name { return b.name }

func (b *builtinClassifier) ContainingDeclaration() descriptors.Descriptor { return b.module }

func (b *builtinClassifier) Kind() descriptors.Kind { return descriptors.KindClass }

func (b *builtinClassifier) TypeConstructor() descriptors.TypeConstructor { return b.constructor }

func (b *builtinClassifier) DefaultType() descriptors.Type {
	return descriptors.NewSimpleType(b.constructor, nil, false)
}
