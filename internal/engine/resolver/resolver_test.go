package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyresolve/internal/engine/binding"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/storage"
	"lazyresolve/internal/engine/syntax"
)

type fakePackage struct {
	fq    name.FqName
	scope descriptors.Scope
	subs  map[name.Name]descriptors.PackageDescriptor
}

func (p *fakePackage) Name() name.Name                               { return p.fq.ShortName() }
func (p *fakePackage) ContainingDeclaration() descriptors.Descriptor { return nil }
func (p *fakePackage) Kind() descriptors.Kind                        { return descriptors.KindPackage }
func (p *fakePackage) FqName() name.FqName                           { return p.fq }
func (p *fakePackage) MemberScope() descriptors.Scope                { return &packageMembers{Scope: p.scope, p: p} }

type packageMembers struct {
	descriptors.Scope
	p *fakePackage
}

func (s *packageMembers) Package(n name.Name) descriptors.PackageDescriptor {
	return s.p.subs[n]
}

type fakeClass struct {
	name      name.Name
	container descriptors.Descriptor
}

func (c *fakeClass) Name() name.Name                               { return c.name }
func (c *fakeClass) ContainingDeclaration() descriptors.Descriptor { return c.container }
func (c *fakeClass) Kind() descriptors.Kind                        { return descriptors.KindClass }
func (c *fakeClass) TypeConstructor() descriptors.TypeConstructor {
	return &descriptors.ClassifierConstructor{Owner: c}
}
func (c *fakeClass) DefaultType() descriptors.Type {
	return descriptors.NewSimpleType(c.TypeConstructor(), nil, false)
}

type fakeTypeParameter struct {
	fakeClass
	index int
}

func (t *fakeTypeParameter) Index() int                      { return t.index }
func (t *fakeTypeParameter) UpperBounds() []descriptors.Type { return nil }
func (t *fakeTypeParameter) Kind() descriptors.Kind          { return descriptors.KindTypeParameter }

// The constructor must own the parameter itself, not the embedded class, so types render
// by their short name.
func (t *fakeTypeParameter) TypeConstructor() descriptors.TypeConstructor {
	return &descriptors.ClassifierConstructor{Owner: t}
}
func (t *fakeTypeParameter) DefaultType() descriptors.Type {
	return descriptors.NewSimpleType(t.TypeConstructor(), nil, false)
}

func fixture() (descriptors.Scope, *fakeClass) {
	b := &fakePackage{fq: name.Parse("a.b")}
	list := &fakeClass{name: "List", container: b}
	b.scope = descriptors.NewLocalScope(b, "a.b").AddClassifier(list)
	a := &fakePackage{fq: name.Parse("a"), subs: map[name.Name]descriptors.PackageDescriptor{"b": b}}
	a.scope = descriptors.Empty(a)

	top := &fakePackage{fq: name.Root, subs: map[name.Name]descriptors.PackageDescriptor{"a": a}}
	top.scope = descriptors.Empty(top)
	local := &fakeClass{name: "Local", container: b}
	file := descriptors.NewChainedScope(nil, "file",
		descriptors.NewLocalScope(nil, "imports").AddClassifier(local),
		top.MemberScope())
	return file, list
}

func TestTypeResolver_ResolvesQualifiedAndSimpleNames(t *testing.T) {
	scope, list := fixture()
	r := NewTypeResolver()
	trace := binding.NewTrace()

	ref := syntax.MustParseTypeRef("a.b.List<Local, Int>?")
	typ := r.ResolveType(scope, ref, trace)

	require.False(t, typ.IsError())
	assert.Same(t, list, descriptors.ClassifierOf(typ))
	assert.True(t, typ.IsNullable())
	require.Len(t, typ.Arguments(), 2)
	assert.Equal(t, "a.b.Local", typ.Arguments()[0].String())
	assert.Equal(t, "Int", typ.Arguments()[1].String())

	recorded, ok := trace.Context().Type(ref)
	require.True(t, ok)
	assert.Same(t, typ, recorded)
	argRecorded, ok := trace.Context().Type(ref.Arguments[0])
	require.True(t, ok)
	assert.False(t, argRecorded.IsError())
}

func TestTypeResolver_UnresolvedBecomesErrorType(t *testing.T) {
	scope, _ := fixture()
	r := NewTypeResolver(WithBuiltins())
	trace := binding.NewTrace()

	for _, text := range []string{"Missing", "a.b", "a.x.List", "Int"} {
		typ := r.ResolveType(scope, syntax.MustParseTypeRef(text), trace)
		assert.True(t, typ.IsError(), text)
		assert.Nil(t, descriptors.ClassifierOf(typ))
	}
	assert.Equal(t, 4, trace.Context().Stats().ErrorTypes)
}

func TestDescriptorResolver_ResolveFunction(t *testing.T) {
	scope, list := fixture()
	m := storage.NewManager()
	trace := binding.NewTrace()
	factory := func(container descriptors.Descriptor, decl *syntax.Declaration, index int, _ func() descriptors.Scope) descriptors.TypeParameterDescriptor {
		return &fakeTypeParameter{fakeClass: fakeClass{name: decl.Name(), container: container}, index: index}
	}
	r := NewDescriptorResolver(m, NewTypeResolver(), factory)

	f := syntax.NewFile("f.kt", "p")
	decl := f.AddFunction("first", "T")
	decl.AddTypeParameter("T")
	param := decl.AddParameter("xs", "a.b.List<T>")
	decl.Annotate("Local")

	module := descriptors.NewModuleDescriptor("m")
	fn := r.ResolveFunction(module, scope, decl, trace)

	require.Len(t, fn.TypeParameters, 1)
	require.Len(t, fn.ValueParameters, 1)
	assert.Equal(t, "T", fn.ReturnType().String())
	tp, ok := descriptors.ClassifierOf(fn.ReturnType()).(descriptors.TypeParameterDescriptor)
	require.True(t, ok, "return type is the function's type parameter")
	assert.Same(t, fn.TypeParameters[0], tp)
	assert.Same(t, fn.ReturnType(), fn.ReturnType())
	assert.Same(t, list, descriptors.ClassifierOf(fn.ValueParameters[0].Type()))
	assert.Equal(t, name.Name("Local"), fn.Annotations[0].Name())
	assert.Equal(t, descriptors.Final, fn.Modality)

	ctx := trace.Context()
	got, ok := ctx.Descriptor(decl)
	require.True(t, ok)
	assert.Same(t, fn, got)
	got, ok = ctx.Descriptor(param)
	require.True(t, ok)
	assert.Same(t, fn.ValueParameters[0], got)
}

func TestDescriptorResolver_ResolvePropertyAndSupertypes(t *testing.T) {
	scope, list := fixture()
	m := storage.NewManager()
	trace := binding.NewTrace()
	r := NewDescriptorResolver(m, NewTypeResolver(), nil)

	f := syntax.NewFile("f.kt", "p")
	decl := f.AddProperty("items", "a.b.List")
	prop := r.ResolveProperty(descriptors.NewModuleDescriptor("m"), scope, decl, trace)
	assert.Same(t, list, descriptors.ClassifierOf(prop.Type()))

	supers := r.ResolveSupertypes(scope, []*syntax.TypeRef{
		syntax.MustParseTypeRef("Missing"),
		syntax.MustParseTypeRef("a.b.List"),
	}, trace)
	require.Len(t, supers, 1)
	assert.Same(t, list, descriptors.ClassifierOf(supers[0]))

	untyped := f.AddProperty("x", "")
	p2 := r.ResolveProperty(descriptors.NewModuleDescriptor("m"), scope, untyped, trace)
	assert.True(t, p2.Type().IsError())
}
