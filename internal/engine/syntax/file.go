package syntax

import (
	"fmt"
	"strings"

	"lazyresolve/internal/engine/name"
)

// ImportDirective is one import line of a file.
type ImportDirective struct {
	Path     name.FqName
	AllUnder bool
	Alias    string
	// Static marks Java static imports of members.
	Static bool
	Pos    Position
	File   *File
}

// ImportedName is the name the directive binds: the alias or the last path segment.
// All-under imports bind no single name.
func (i *ImportDirective) ImportedName() (name.Name, bool) {
	if i.AllUnder {
		return "", false
	}
	if i.Alias != "" {
		return name.Identifier(i.Alias), true
	}
	return i.Path.ShortName(), true
}

func (i *ImportDirective) Text() string {
	var b strings.Builder
	b.WriteString("import ")
	if i.Static {
		b.WriteString("static ")
	}
	b.WriteString(string(i.Path))
	if i.AllUnder {
		b.WriteString(".*")
	}
	if i.Alias != "" {
		b.WriteString(" as ")
		b.WriteString(i.Alias)
	}
	return b.String()
}

func (i *ImportDirective) String() string { return i.Text() }

// ParseImportPath parses "a.b.C" or "a.b.*" into a directive with no file.
func ParseImportPath(path string) (*ImportDirective, error) {
	path = strings.TrimSpace(path)
	allUnder := false
	if strings.HasSuffix(path, ".*") {
		allUnder = true
		path = strings.TrimSuffix(path, ".*")
	} else if path == "*" {
		allUnder = true
		path = ""
	}
	fq := name.Parse(path)
	if fq.IsRoot() && !allUnder {
		return nil, fmt.Errorf("empty import path")
	}
	return &ImportDirective{Path: fq, AllUnder: allUnder}, nil
}

// File is one source file: its package, imports and top-level declarations.
type File struct {
	Path         string
	Package      name.FqName
	Imports      []*ImportDirective
	Declarations []*Declaration

	nextLine int
}

// NewFile starts a file in the given package.
func NewFile(path, pkg string) *File {
	return &File{Path: path, Package: name.Parse(pkg), nextLine: 1}
}

func (f *File) pos() Position {
	if f.nextLine == 0 {
		f.nextLine = 1
	}
	p := Position{Line: f.nextLine, Column: 1}
	f.nextLine++
	return p
}

// Import appends an import directive. A trailing ".*" makes it an all-under import.
func (f *File) Import(path string) *ImportDirective {
	imp, err := ParseImportPath(path)
	if err != nil {
		panic(err)
	}
	imp.File = f
	imp.Pos = f.pos()
	f.Imports = append(f.Imports, imp)
	return imp
}

// ImportAs appends an aliased import.
func (f *File) ImportAs(path, alias string) *ImportDirective {
	imp := f.Import(path)
	imp.Alias = alias
	return imp
}

// Add appends an already built top-level declaration and links it to f.
func (f *File) Add(d *Declaration) *Declaration {
	f.attach(d, nil)
	f.Declarations = append(f.Declarations, d)
	return d
}

func (f *File) attach(d *Declaration, parent *Declaration) {
	d.File = f
	d.Parent = parent
	if d.Pos == (Position{}) {
		d.Pos = f.pos()
	}
	for _, group := range [][]*Declaration{d.TypeParameters, d.ValueParameters, d.Body} {
		for _, child := range group {
			f.attach(child, d)
		}
	}
}

func (f *File) AddClass(rawName string, kind ClassKind) *Declaration {
	return f.Add(newClass(rawName, kind))
}

func (f *File) AddObject(rawName string) *Declaration {
	return f.Add(&Declaration{Kind: KindObject, RawName: rawName, ClassKind: ClassKindObject})
}

func (f *File) AddFunction(rawName, returnType string) *Declaration {
	return f.Add(newTyped(KindFunction, rawName, returnType))
}

func (f *File) AddProperty(rawName, typ string) *Declaration {
	return f.Add(newTyped(KindProperty, rawName, typ))
}

func newClass(rawName string, kind ClassKind) *Declaration {
	d := &Declaration{Kind: KindClass, RawName: rawName, ClassKind: kind}
	if kind == ClassKindObject {
		d.Kind = KindObject
	}
	if kind == ClassKindEnumEntry {
		d.Kind = KindEnumEntry
	}
	return d
}

func newTyped(kind Kind, rawName, typ string) *Declaration {
	d := &Declaration{Kind: kind, RawName: rawName}
	if typ != "" {
		d.Type = MustParseTypeRef(typ)
	}
	return d
}

// Member builders. Each links the child to d and to d's file.

func (d *Declaration) addMember(child *Declaration) *Declaration {
	d.Body = append(d.Body, child)
	d.link(child)
	return child
}

func (d *Declaration) link(child *Declaration) {
	if d.File != nil {
		d.File.attach(child, d)
		return
	}
	child.Parent = d
}

func (d *Declaration) AddClass(rawName string, kind ClassKind) *Declaration {
	return d.addMember(newClass(rawName, kind))
}

func (d *Declaration) AddObject(rawName string) *Declaration {
	return d.addMember(&Declaration{Kind: KindObject, RawName: rawName, ClassKind: ClassKindObject})
}

// AddCompanion declares a companion object. An empty name is allowed.
func (d *Declaration) AddCompanion(rawName string) *Declaration {
	return d.addMember(&Declaration{Kind: KindObject, RawName: rawName, ClassKind: ClassKindObject, Companion: true})
}

func (d *Declaration) AddEnumEntry(rawName string) *Declaration {
	return d.addMember(&Declaration{Kind: KindEnumEntry, RawName: rawName, ClassKind: ClassKindEnumEntry})
}

func (d *Declaration) AddFunction(rawName, returnType string) *Declaration {
	return d.addMember(newTyped(KindFunction, rawName, returnType))
}

func (d *Declaration) AddProperty(rawName, typ string) *Declaration {
	return d.addMember(newTyped(KindProperty, rawName, typ))
}

func (d *Declaration) AddConstructor(params ...*Declaration) *Declaration {
	ctor := &Declaration{Kind: KindConstructor}
	d.addMember(ctor)
	for _, p := range params {
		ctor.AddParameter(p.RawName, typeText(p.Type))
	}
	return ctor
}

func (d *Declaration) AddInitializer() *Declaration {
	return d.addMember(&Declaration{Kind: KindClassInitializer})
}

// AddParameter appends a value parameter. On a class it becomes a primary constructor
// parameter.
func (d *Declaration) AddParameter(rawName, typ string) *Declaration {
	p := newTyped(KindParameter, rawName, typ)
	d.ValueParameters = append(d.ValueParameters, p)
	if d.IsClassOrObject() {
		d.HasPrimaryConstructor = true
	}
	d.link(p)
	return p
}

func (d *Declaration) AddTypeParameter(rawName string, bounds ...string) *Declaration {
	tp := &Declaration{Kind: KindTypeParameter, RawName: rawName}
	for _, b := range bounds {
		tp.Bounds = append(tp.Bounds, MustParseTypeRef(b))
	}
	d.TypeParameters = append(d.TypeParameters, tp)
	d.link(tp)
	return tp
}

// Extends appends supertype references.
func (d *Declaration) Extends(types ...string) *Declaration {
	for _, t := range types {
		d.SuperTypes = append(d.SuperTypes, MustParseTypeRef(t))
	}
	return d
}

func (d *Declaration) Annotate(types ...string) *Declaration {
	for _, t := range types {
		d.Annotations = append(d.Annotations, MustParseTypeRef(t))
	}
	return d
}

func (d *Declaration) With(mods Modifiers) *Declaration {
	d.Modifiers |= mods
	return d
}

// Param builds a detached parameter for AddConstructor.
func Param(rawName, typ string) *Declaration {
	return newTyped(KindParameter, rawName, typ)
}

func typeText(t *TypeRef) string {
	if t == nil {
		return ""
	}
	return t.Text()
}
