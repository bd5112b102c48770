package symbols

import (
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/syntax"
)

// Collect flattens everything reachable from root into records, in walk order. Reading
// supertypes and rendering forces the lazy parts of each descriptor.
func Collect(root descriptors.Descriptor) []Record {
	var out []Record
	descriptors.Walk(root, func(d descriptors.Descriptor, _ int) bool {
		rec := Record{
			FqName:   string(descriptors.FqNameOf(d)),
			Name:     string(d.Name()),
			Kind:     d.Kind().String(),
			Rendered: descriptors.Render(d),
		}
		if c := d.ContainingDeclaration(); c != nil {
			rec.Container = string(descriptors.FqNameOf(c))
		}
		if decl := sourceOf(d); decl != nil {
			if decl.File != nil {
				rec.File = decl.File.Path
			}
			rec.Line = decl.Pos.Line
		}
		if c, ok := d.(descriptors.ClassifierDescriptor); ok {
			for _, t := range c.TypeConstructor().Supertypes() {
				rec.Supertypes = append(rec.Supertypes, t.String())
			}
		}
		out = append(out, rec)
		return true
	})
	return out
}

func sourceOf(d descriptors.Descriptor) *syntax.Declaration {
	switch x := d.(type) {
	case *descriptors.FunctionDescriptor:
		return x.Declaration
	case *descriptors.PropertyDescriptor:
		return x.Declaration
	case *descriptors.ConstructorDescriptor:
		return x.Declaration
	case interface{ Declaration() *syntax.Declaration }:
		return x.Declaration()
	}
	return nil
}
