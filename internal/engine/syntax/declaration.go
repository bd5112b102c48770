// Package syntax is the declaration model handed to the resolution engine by a source
// frontend. Values are built once by a frontend (or a test) and never mutated afterwards.
package syntax

import (
	"fmt"

	"lazyresolve/internal/engine/name"
)

// Kind is the closed set of declaration categories a frontend may produce.
type Kind int

const (
	KindInvalid Kind = iota
	KindClass
	KindObject
	KindEnumEntry
	KindFunction
	KindProperty
	KindParameter
	KindTypeParameter
	KindConstructor
	KindClassInitializer
)

var kindNames = map[Kind]string{
	KindInvalid:          "invalid",
	KindClass:            "class",
	KindObject:           "object",
	KindEnumEntry:        "enum entry",
	KindFunction:         "function",
	KindProperty:         "property",
	KindParameter:        "parameter",
	KindTypeParameter:    "type parameter",
	KindConstructor:      "constructor",
	KindClassInitializer: "initializer",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ClassKind refines KindClass, KindObject and KindEnumEntry declarations.
type ClassKind int

const (
	ClassKindClass ClassKind = iota
	ClassKindInterface
	ClassKindEnum
	ClassKindEnumEntry
	ClassKindAnnotation
	ClassKindObject
)

func (k ClassKind) String() string {
	switch k {
	case ClassKindInterface:
		return "interface"
	case ClassKindEnum:
		return "enum"
	case ClassKindEnumEntry:
		return "enum entry"
	case ClassKindAnnotation:
		return "annotation"
	case ClassKindObject:
		return "object"
	default:
		return "class"
	}
}

// IsSingleton reports whether the kind has exactly one instance.
func (k ClassKind) IsSingleton() bool {
	return k == ClassKindObject || k == ClassKindEnumEntry
}

// Modifiers is a bit set of declaration modifiers.
type Modifiers uint16

const (
	ModInner Modifiers = 1 << iota
	ModStatic
	ModAbstract
	ModOpen
	ModFinal
	ModData
	ModPublic
	ModProtected
	ModPrivate
	ModPackagePrivate
)

func (m Modifiers) Has(flag Modifiers) bool { return m&flag != 0 }

// Position is a 1-based source location.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Declaration is a raw syntax node. Identity is the pointer.
type Declaration struct {
	Kind      Kind
	RawName   string
	ClassKind ClassKind
	Companion bool
	Modifiers Modifiers
	Pos       Position

	File   *File
	Parent *Declaration

	// Body holds the members of a class, object or enum entry in source order.
	Body            []*Declaration
	TypeParameters  []*Declaration
	ValueParameters []*Declaration
	SuperTypes      []*TypeRef
	// Type is the return type of a function, the type of a property or parameter.
	Type        *TypeRef
	Bounds      []*TypeRef
	Annotations []*TypeRef

	// HasPrimaryConstructor marks classes whose ValueParameters form the primary constructor.
	HasPrimaryConstructor bool
}

// Name returns the declared identifier, or name.NoName for unnamed declarations.
func (d *Declaration) Name() name.Name {
	return name.SafeIdentifier(d.RawName)
}

// IsClassOrObject reports whether the declaration introduces a classifier.
func (d *Declaration) IsClassOrObject() bool {
	switch d.Kind {
	case KindClass, KindObject, KindEnumEntry:
		return true
	}
	return false
}

// IsCompanion reports whether d is a companion object of its parent class.
func (d *Declaration) IsCompanion() bool {
	return d.Kind == KindObject && d.Companion && d.Parent != nil
}

// IsInner reports whether d captures an outer instance.
func (d *Declaration) IsInner() bool {
	return d.Modifiers.Has(ModInner)
}

// Companions returns the companion objects declared in d's body, in source order.
func (d *Declaration) Companions() []*Declaration {
	var out []*Declaration
	for _, m := range d.Body {
		if m.IsCompanion() {
			out = append(out, m)
		}
	}
	return out
}

// EnumEntries returns the enum entries declared in d's body.
func (d *Declaration) EnumEntries() []*Declaration {
	var out []*Declaration
	for _, m := range d.Body {
		if m.Kind == KindEnumEntry {
			out = append(out, m)
		}
	}
	return out
}

// Text is the diagnostic rendering: kind, name and location.
func (d *Declaration) Text() string {
	loc := d.Pos.String()
	if d.File != nil {
		loc = d.File.Path + ":" + loc
	}
	return fmt.Sprintf("%s %s at %s", d.Kind, d.Name(), loc)
}

func (d *Declaration) String() string {
	return d.Text()
}
