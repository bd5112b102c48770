package declarations

import (
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

// ClassInfo describes the header of a class-like declaration. Synthetic infos stand for the
// class object of an enum, which has no declaration of its own.
type ClassInfo struct {
	Declaration *syntax.Declaration
	Kind        syntax.ClassKind
	Name        name.Name
	synthetic   bool
}

func NewClassInfo(d *syntax.Declaration) *ClassInfo {
	return &ClassInfo{Declaration: d, Kind: d.ClassKind, Name: d.Name()}
}

// EnumClassObjectInfo describes the class object synthesized for enum, which exposes the
// enum entries.
func EnumClassObjectInfo(enum *syntax.Declaration) *ClassInfo {
	return &ClassInfo{
		Declaration: enum,
		Kind:        syntax.ClassKindObject,
		Name:        name.ClassObject,
		synthetic:   true,
	}
}

func (c *ClassInfo) IsSynthetic() bool { return c.synthetic }

// CompanionDeclarations lists explicit companions in source order.
func (c *ClassInfo) CompanionDeclarations() []*syntax.Declaration {
	if c.synthetic {
		return nil
	}
	return c.Declaration.Companions()
}

func (c *ClassInfo) TypeParameters() []*syntax.Declaration {
	if c.synthetic {
		return nil
	}
	return c.Declaration.TypeParameters
}

func (c *ClassInfo) PrimaryConstructorParameters() []*syntax.Declaration {
	if c.synthetic || !c.Declaration.HasPrimaryConstructor {
		return nil
	}
	return c.Declaration.ValueParameters
}

func (c *ClassInfo) SuperTypes() []*syntax.TypeRef {
	if c.synthetic {
		return nil
	}
	return c.Declaration.SuperTypes
}

func (c *ClassInfo) Annotations() []*syntax.TypeRef {
	if c.synthetic {
		return nil
	}
	return c.Declaration.Annotations
}

func (c *ClassInfo) Modifiers() syntax.Modifiers {
	if c.synthetic {
		return syntax.ModFinal
	}
	return c.Declaration.Modifiers
}

// ScopeAnchor is the declaration whose enclosing scope resolves this class's header.
func (c *ClassInfo) ScopeAnchor() *syntax.Declaration {
	return c.Declaration
}
