// Package descriptors defines resolved symbols, their types and the generic scopes that
// compose them. Lazy implementations of classes, packages and type parameters live in the
// lazy package; the concrete callables here are built by a resolver and published whole.
package descriptors

import (
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

type Kind int

const (
	KindModule Kind = iota
	KindPackage
	KindClass
	KindTypeParameter
	KindFunction
	KindProperty
	KindConstructor
	KindValueParameter
	KindAnnotation
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindPackage:
		return "package"
	case KindClass:
		return "class"
	case KindTypeParameter:
		return "type parameter"
	case KindFunction:
		return "function"
	case KindProperty:
		return "property"
	case KindConstructor:
		return "constructor"
	case KindValueParameter:
		return "value parameter"
	case KindAnnotation:
		return "annotation"
	}
	return "unknown"
}

// Descriptor is a resolved symbol. Name, container and kind never change after construction.
type Descriptor interface {
	Name() name.Name
	// ContainingDeclaration is nil only for modules.
	ContainingDeclaration() Descriptor
	Kind() Kind
}

// ClassifierDescriptor is a descriptor that can be referenced as a type.
type ClassifierDescriptor interface {
	Descriptor
	TypeConstructor() TypeConstructor
	DefaultType() Type
}

type ClassDescriptor interface {
	ClassifierDescriptor
	ClassKind() syntax.ClassKind
	Modality() Modality
	Visibility() Visibility
	IsInner() bool
	TypeParameters() []TypeParameterDescriptor
	// MemberScope exposes every declared and non-declared member.
	MemberScope() Scope
	// UnsubstitutedInnerClassesScope exposes nested classifiers only.
	UnsubstitutedInnerClassesScope() Scope
	// ClassObjectDescriptor returns nil when the class has no companion or enum class object.
	ClassObjectDescriptor() ClassDescriptor
	Constructors() []*ConstructorDescriptor
	// PrimaryConstructor returns nil when there is none.
	PrimaryConstructor() *ConstructorDescriptor
	Annotations() []*AnnotationDescriptor
}

type PackageDescriptor interface {
	Descriptor
	FqName() name.FqName
	MemberScope() Scope
}

type TypeParameterDescriptor interface {
	ClassifierDescriptor
	Index() int
	UpperBounds() []Type
}

// VariableDescriptor is anything a name can be read from: properties and value parameters.
type VariableDescriptor interface {
	Descriptor
	Type() Type
}

// Modality is the inheritance openness of a class or member.
type Modality int

const (
	Final Modality = iota
	Open
	Abstract
)

func (m Modality) String() string {
	switch m {
	case Open:
		return "open"
	case Abstract:
		return "abstract"
	}
	return "final"
}

// ModalityOf reads explicit modifiers and falls back to def.
func ModalityOf(mods syntax.Modifiers, def Modality) Modality {
	switch {
	case mods.Has(syntax.ModAbstract):
		return Abstract
	case mods.Has(syntax.ModOpen):
		return Open
	case mods.Has(syntax.ModFinal):
		return Final
	}
	return def
}

type Visibility int

const (
	Public Visibility = iota
	Protected
	PackagePrivate
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case PackagePrivate:
		return "package-private"
	case Private:
		return "private"
	}
	return "public"
}

// VisibilityOf reads explicit modifiers; unmarked declarations are public.
func VisibilityOf(mods syntax.Modifiers) Visibility {
	switch {
	case mods.Has(syntax.ModPrivate):
		return Private
	case mods.Has(syntax.ModProtected):
		return Protected
	case mods.Has(syntax.ModPackagePrivate):
		return PackagePrivate
	}
	return Public
}
