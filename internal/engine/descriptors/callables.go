package descriptors

import (
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

// CallableKind separates members written in source from generated ones.
type CallableKind int

const (
	Declared CallableKind = iota
	FakeOverride
	Synthesized
)

// ConstructorName is the name every constructor descriptor carries.
var ConstructorName = name.Special("init")

// FunctionDescriptor is a resolved function. Fields are set by the resolver before the
// descriptor is published and are read-only afterwards.
type FunctionDescriptor struct {
	name        name.Name
	container   Descriptor
	Declaration *syntax.Declaration

	TypeParameters  []TypeParameterDescriptor
	ValueParameters []*ValueParameterDescriptor
	Annotations     []*AnnotationDescriptor
	Modality        Modality
	Visibility      Visibility
	CallableKind    CallableKind

	returnType LazyType
}

func NewFunctionDescriptor(container Descriptor, decl *syntax.Declaration, n name.Name, returnType LazyType) *FunctionDescriptor {
	return &FunctionDescriptor{name: n, container: container, Declaration: decl, returnType: returnType}
}

func (f *FunctionDescriptor) Name() name.Name                   { return f.name }
func (f *FunctionDescriptor) ContainingDeclaration() Descriptor { return f.container }
func (f *FunctionDescriptor) Kind() Kind                        { return KindFunction }
func (f *FunctionDescriptor) ReturnType() Type                  { return f.returnType.Get() }

func (f *FunctionDescriptor) ForceResolveAllContents() {
	ForceResolveAllContents(f.TypeParameters)
	ForceResolveAllContents(f.ValueParameters)
	ForceResolveAllContents(f.Annotations)
	ForceResolveAllContents(f.ReturnType())
}

type PropertyDescriptor struct {
	name        name.Name
	container   Descriptor
	Declaration *syntax.Declaration

	Annotations  []*AnnotationDescriptor
	Modality     Modality
	Visibility   Visibility
	CallableKind CallableKind

	typ LazyType
}

func NewPropertyDescriptor(container Descriptor, decl *syntax.Declaration, n name.Name, typ LazyType) *PropertyDescriptor {
	return &PropertyDescriptor{name: n, container: container, Declaration: decl, typ: typ}
}

func (p *PropertyDescriptor) Name() name.Name                   { return p.name }
func (p *PropertyDescriptor) ContainingDeclaration() Descriptor { return p.container }
func (p *PropertyDescriptor) Kind() Kind                        { return KindProperty }
func (p *PropertyDescriptor) Type() Type                        { return p.typ.Get() }

func (p *PropertyDescriptor) ForceResolveAllContents() {
	ForceResolveAllContents(p.Annotations)
	ForceResolveAllContents(p.Type())
}

type ValueParameterDescriptor struct {
	name        name.Name
	container   Descriptor
	Declaration *syntax.Declaration
	Index       int

	typ LazyType
}

func NewValueParameterDescriptor(container Descriptor, decl *syntax.Declaration, index int, typ LazyType) *ValueParameterDescriptor {
	return &ValueParameterDescriptor{name: decl.Name(), container: container, Declaration: decl, Index: index, typ: typ}
}

func (v *ValueParameterDescriptor) Name() name.Name                   { return v.name }
func (v *ValueParameterDescriptor) ContainingDeclaration() Descriptor { return v.container }
func (v *ValueParameterDescriptor) Kind() Kind                        { return KindValueParameter }
func (v *ValueParameterDescriptor) Type() Type                        { return v.typ.Get() }

func (v *ValueParameterDescriptor) ForceResolveAllContents() {
	ForceResolveAllContents(v.Type())
}

// ConstructorDescriptor has a nil Declaration when it was synthesized as the default
// constructor.
type ConstructorDescriptor struct {
	container   ClassDescriptor
	Declaration *syntax.Declaration

	ValueParameters []*ValueParameterDescriptor
	Visibility      Visibility
	IsPrimary       bool
	CallableKind    CallableKind
}

func NewConstructorDescriptor(container ClassDescriptor, decl *syntax.Declaration, primary bool) *ConstructorDescriptor {
	return &ConstructorDescriptor{container: container, Declaration: decl, IsPrimary: primary}
}

func (c *ConstructorDescriptor) Name() name.Name                   { return ConstructorName }
func (c *ConstructorDescriptor) ContainingDeclaration() Descriptor { return c.container }
func (c *ConstructorDescriptor) Kind() Kind                        { return KindConstructor }
func (c *ConstructorDescriptor) ConstructedClass() ClassDescriptor { return c.container }
func (c *ConstructorDescriptor) ReturnType() Type                  { return c.container.DefaultType() }

func (c *ConstructorDescriptor) ForceResolveAllContents() {
	ForceResolveAllContents(c.ValueParameters)
}

// AnnotationDescriptor is an annotation application: a type and its owner.
type AnnotationDescriptor struct {
	owner Descriptor
	Ref   *syntax.TypeRef
	typ   LazyType
}

func NewAnnotationDescriptor(owner Descriptor, ref *syntax.TypeRef, typ LazyType) *AnnotationDescriptor {
	return &AnnotationDescriptor{owner: owner, Ref: ref, typ: typ}
}

func (a *AnnotationDescriptor) Name() name.Name {
	if c := ClassifierOf(a.Type()); c != nil {
		return c.Name()
	}
	return name.Identifier(a.Ref.Path[len(a.Ref.Path)-1])
}

func (a *AnnotationDescriptor) ContainingDeclaration() Descriptor { return a.owner }
func (a *AnnotationDescriptor) Kind() Kind                        { return KindAnnotation }
func (a *AnnotationDescriptor) Type() Type                        { return a.typ.Get() }

func (a *AnnotationDescriptor) ForceResolveAllContents() {
	ForceResolveAllContents(a.Type())
}

// ModuleDescriptor is the root container of every package in a session.
type ModuleDescriptor struct {
	name name.Name
}

func NewModuleDescriptor(n string) *ModuleDescriptor {
	return &ModuleDescriptor{name: name.Special(n)}
}

func (m *ModuleDescriptor) Name() name.Name                   { return m.name }
func (m *ModuleDescriptor) ContainingDeclaration() Descriptor { return nil }
func (m *ModuleDescriptor) Kind() Kind                        { return KindModule }
