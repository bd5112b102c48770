package lazy

import (
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/storage"
	"lazyresolve/internal/engine/syntax"
)

// TypeParameterDescriptor is a declared type parameter of a class or function. Its upper
// bounds are resolved on first read; a bound that leads back to the parameter itself while
// being resolved yields no bounds.
type TypeParameterDescriptor struct {
	session     *Session
	container   descriptors.Descriptor
	decl        *syntax.Declaration
	index       int
	constructor *descriptors.ClassifierConstructor
	bounds      *storage.LazyValue[[]descriptors.Type]
	defaultType *storage.LazyValue[descriptors.Type]
}

func newTypeParameterDescriptor(s *Session, container descriptors.Descriptor, decl *syntax.Declaration, index int, scope func() descriptors.Scope) *TypeParameterDescriptor {
	tp := &TypeParameterDescriptor{session: s, container: container, decl: decl, index: index}
	tp.bounds = storage.NewRecursionTolerantLazyValue(s.storage, func() []descriptors.Type {
		return s.resolver.ResolveSupertypes(scope(), decl.Bounds, s.trace)
	}, nil)
	tp.constructor = &descriptors.ClassifierConstructor{Owner: tp, SupertypesFunc: tp.UpperBounds}
	tp.defaultType = storage.NewLazyValue(s.storage, func() descriptors.Type {
		return descriptors.NewSimpleType(tp.constructor, nil, false)
	})
	return tp
}

func (t *TypeParameterDescriptor) Name() name.Name                               { return t.decl.Name() }
func (t *TypeParameterDescriptor) ContainingDeclaration() descriptors.Descriptor { return t.container }
func (t *TypeParameterDescriptor) Kind() descriptors.Kind                        { return descriptors.KindTypeParameter }
func (t *TypeParameterDescriptor) Declaration() *syntax.Declaration              { return t.decl }
func (t *TypeParameterDescriptor) Index() int                                    { return t.index }

func (t *TypeParameterDescriptor) TypeConstructor() descriptors.TypeConstructor { return t.constructor }
func (t *TypeParameterDescriptor) DefaultType() descriptors.Type                { return t.defaultType.Get() }

// UpperBounds drops bounds that did not resolve.
func (t *TypeParameterDescriptor) UpperBounds() []descriptors.Type {
	return t.bounds.Get()
}

func (t *TypeParameterDescriptor) ForceResolveAllContents() {
	descriptors.ForceResolveAllContents(t.UpperBounds())
}

func (t *TypeParameterDescriptor) String() string { return descriptors.Render(t) }
