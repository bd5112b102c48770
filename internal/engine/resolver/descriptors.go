package resolver

import (
	"lazyresolve/internal/engine/binding"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/storage"
	"lazyresolve/internal/engine/syntax"
)

// Types is the part of a type resolver the descriptor resolver needs.
type Types interface {
	ResolveType(scope descriptors.Scope, ref *syntax.TypeRef, trace *binding.Trace) descriptors.Type
}

// TypeParameterFactory creates the descriptor for a declared type parameter. scope is
// called lazily and yields the scope its bounds are resolved in.
type TypeParameterFactory func(container descriptors.Descriptor, decl *syntax.Declaration, index int, scope func() descriptors.Scope) descriptors.TypeParameterDescriptor

// DescriptorResolver turns member declarations into descriptors. Signature types are
// resolved lazily on first read.
type DescriptorResolver struct {
	storage        *storage.Manager
	types          Types
	typeParameters TypeParameterFactory
}

func NewDescriptorResolver(m *storage.Manager, types Types, typeParameters TypeParameterFactory) *DescriptorResolver {
	return &DescriptorResolver{storage: m, types: types, typeParameters: typeParameters}
}

func (r *DescriptorResolver) lazyType(scope func() descriptors.Scope, ref *syntax.TypeRef, trace *binding.Trace, missing string) descriptors.LazyType {
	return storage.NewLazyValue(r.storage, func() descriptors.Type {
		if ref == nil {
			return descriptors.NewErrorType(missing)
		}
		return r.types.ResolveType(scope(), ref, trace)
	})
}

func (r *DescriptorResolver) ResolveFunction(container descriptors.Descriptor, scope descriptors.Scope, decl *syntax.Declaration, trace *binding.Trace) *descriptors.FunctionDescriptor {
	var inner descriptors.Scope
	innerScope := func() descriptors.Scope { return inner }

	fn := descriptors.NewFunctionDescriptor(container, decl, decl.Name(),
		r.lazyType(innerScope, decl.Type, trace, "return type of "+string(decl.Name())))

	local := descriptors.NewLocalScope(fn, "type parameters of "+string(decl.Name()))
	for i, tpDecl := range decl.TypeParameters {
		tp := r.typeParameters(fn, tpDecl, i, innerScope)
		trace.RecordDeclaration(tpDecl, tp)
		fn.TypeParameters = append(fn.TypeParameters, tp)
		local.AddClassifier(tp)
	}
	inner = descriptors.NewChainedScope(fn, "function "+string(decl.Name()), local, scope)

	fn.ValueParameters = r.valueParameters(fn, innerScope, decl.ValueParameters, trace)
	fn.Annotations = r.ResolveAnnotations(fn, scope, decl.Annotations, trace)
	fn.Modality = descriptors.ModalityOf(decl.Modifiers, memberModality(container))
	fn.Visibility = descriptors.VisibilityOf(decl.Modifiers)
	fn.CallableKind = descriptors.Declared
	trace.RecordDeclaration(decl, fn)
	return fn
}

func (r *DescriptorResolver) ResolveProperty(container descriptors.Descriptor, scope descriptors.Scope, decl *syntax.Declaration, trace *binding.Trace) *descriptors.PropertyDescriptor {
	p := descriptors.NewPropertyDescriptor(container, decl, decl.Name(),
		r.lazyType(func() descriptors.Scope { return scope }, decl.Type, trace, "type of "+string(decl.Name())))
	p.Annotations = r.ResolveAnnotations(p, scope, decl.Annotations, trace)
	p.Modality = descriptors.ModalityOf(decl.Modifiers, memberModality(container))
	p.Visibility = descriptors.VisibilityOf(decl.Modifiers)
	p.CallableKind = descriptors.Declared
	trace.RecordDeclaration(decl, p)
	return p
}

// ResolveConstructor builds a constructor of class. decl is nil for primary and synthesized
// default constructors; params are the value parameters to use.
func (r *DescriptorResolver) ResolveConstructor(class descriptors.ClassDescriptor, scope descriptors.Scope, decl *syntax.Declaration, params []*syntax.Declaration, primary bool, trace *binding.Trace) *descriptors.ConstructorDescriptor {
	ctor := descriptors.NewConstructorDescriptor(class, decl, primary)
	ctor.ValueParameters = r.valueParameters(ctor, func() descriptors.Scope { return scope }, params, trace)
	ctor.CallableKind = descriptors.Declared
	if decl == nil {
		ctor.Visibility = descriptors.Public
		if !primary {
			ctor.CallableKind = descriptors.Synthesized
		}
	} else {
		ctor.Visibility = descriptors.VisibilityOf(decl.Modifiers)
		trace.RecordDeclaration(decl, ctor)
	}
	return ctor
}

func (r *DescriptorResolver) valueParameters(owner descriptors.Descriptor, scope func() descriptors.Scope, params []*syntax.Declaration, trace *binding.Trace) []*descriptors.ValueParameterDescriptor {
	out := make([]*descriptors.ValueParameterDescriptor, 0, len(params))
	for i, p := range params {
		vp := descriptors.NewValueParameterDescriptor(owner, p, i,
			r.lazyType(scope, p.Type, trace, "type of parameter "+string(p.Name())))
		trace.RecordDeclaration(p, vp)
		out = append(out, vp)
	}
	return out
}

// ResolveSupertypes resolves refs and drops the ones that did not resolve.
func (r *DescriptorResolver) ResolveSupertypes(scope descriptors.Scope, refs []*syntax.TypeRef, trace *binding.Trace) []descriptors.Type {
	types := make([]descriptors.Type, 0, len(refs))
	for _, ref := range refs {
		types = append(types, r.types.ResolveType(scope, ref, trace))
	}
	return descriptors.FilterErrors(types)
}

func (r *DescriptorResolver) ResolveAnnotations(owner descriptors.Descriptor, scope descriptors.Scope, refs []*syntax.TypeRef, trace *binding.Trace) []*descriptors.AnnotationDescriptor {
	if len(refs) == 0 {
		return nil
	}
	out := make([]*descriptors.AnnotationDescriptor, len(refs))
	for i, ref := range refs {
		out[i] = descriptors.NewAnnotationDescriptor(owner, ref,
			r.lazyType(func() descriptors.Scope { return scope }, ref, trace, ""))
	}
	return out
}

func memberModality(container descriptors.Descriptor) descriptors.Modality {
	if c, ok := container.(descriptors.ClassDescriptor); ok && c.ClassKind() == syntax.ClassKindInterface {
		return descriptors.Abstract
	}
	return descriptors.Final
}
