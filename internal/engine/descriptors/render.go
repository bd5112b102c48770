package descriptors

import (
	"fmt"
	"strings"

	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

// FqNameOf returns the qualified name of d. Members are qualified by their container;
// modules and the root package have the root name.
func FqNameOf(d Descriptor) name.FqName {
	switch x := d.(type) {
	case nil:
		return name.Root
	case PackageDescriptor:
		return x.FqName()
	case *ModuleDescriptor:
		return name.Root
	}
	return FqNameOf(d.ContainingDeclaration()).Child(d.Name())
}

// Render is a one-line description of d for reports.
func Render(d Descriptor) string {
	switch x := d.(type) {
	case PackageDescriptor:
		return "package " + x.FqName().String()
	case ClassDescriptor:
		var b strings.Builder
		if x.ClassKind() == syntax.ClassKindClass && x.Modality() != Final {
			b.WriteString(x.Modality().String())
			b.WriteByte(' ')
		}
		b.WriteString(x.ClassKind().String())
		b.WriteByte(' ')
		b.WriteString(string(FqNameOf(x)))
		writeTypeParameters(&b, x.TypeParameters())
		if supers := x.TypeConstructor().Supertypes(); len(supers) > 0 {
			b.WriteString(" : ")
			b.WriteString(joinTypes(supers))
		}
		return b.String()
	case TypeParameterDescriptor:
		if bounds := x.UpperBounds(); len(bounds) > 0 {
			return fmt.Sprintf("type parameter %s : %s", x.Name(), joinTypes(bounds))
		}
		return "type parameter " + string(x.Name())
	case *FunctionDescriptor:
		var b strings.Builder
		b.WriteString("fun ")
		writeTypeParameters(&b, x.TypeParameters)
		if len(x.TypeParameters) > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(FqNameOf(x)))
		writeParameters(&b, x.ValueParameters)
		b.WriteString(": ")
		b.WriteString(x.ReturnType().String())
		return b.String()
	case *PropertyDescriptor:
		return fmt.Sprintf("val %s: %s", FqNameOf(x), x.Type())
	case *ConstructorDescriptor:
		var b strings.Builder
		b.WriteString("constructor ")
		b.WriteString(string(FqNameOf(x.ConstructedClass())))
		writeParameters(&b, x.ValueParameters)
		return b.String()
	case *ValueParameterDescriptor:
		return fmt.Sprintf("value parameter %s: %s", x.Name(), x.Type())
	case *AnnotationDescriptor:
		return "@" + x.Type().String()
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%s %s", d.Kind(), d.Name())
}

func joinTypes(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func writeTypeParameters(b *strings.Builder, params []TypeParameterDescriptor) {
	if len(params) == 0 {
		return
	}
	b.WriteByte('<')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(p.Name()))
	}
	b.WriteByte('>')
}

func writeParameters(b *strings.Builder, params []*ValueParameterDescriptor) {
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s: %s", p.Name(), p.Type())
	}
	b.WriteByte(')')
}

// Walk visits root and everything it contains, depth first in declaration order. Returning
// false from visit skips the children of that descriptor. Each descriptor is visited once.
func Walk(root Descriptor, visit func(d Descriptor, depth int) bool) {
	seen := make(map[Descriptor]bool)
	var walk func(d Descriptor, depth int)
	walk = func(d Descriptor, depth int) {
		if d == nil || seen[d] {
			return
		}
		seen[d] = true
		if !visit(d, depth) {
			return
		}
		for _, child := range children(d) {
			walk(child, depth+1)
		}
	}
	walk(root, 0)
}

func children(d Descriptor) []Descriptor {
	switch x := d.(type) {
	case PackageDescriptor:
		return x.MemberScope().AllDescriptors()
	case ClassDescriptor:
		var out []Descriptor
		for _, c := range x.Constructors() {
			out = append(out, c)
		}
		out = append(out, x.MemberScope().AllDescriptors()...)
		if obj := x.ClassObjectDescriptor(); obj != nil {
			out = append(out, obj)
		}
		return out
	}
	return nil
}
