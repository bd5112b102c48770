package lazy

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/declarations"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(files []*syntax.File, opts ...Option) *Session {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewSession(declarations.NewFileFactory(files), opts...)
}

func requireInvariant(t *testing.T, fn func()) *errors.DomainError {
	t.Helper()
	var recovered interface{}
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()
	de, ok := errors.AsInvariant(recovered)
	require.True(t, ok, "expected invariant panic, got %v", recovered)
	return de
}

func TestSession_ResolvesFunctionEndToEnd(t *testing.T) {
	f := syntax.NewFile("p/x.kt", "p")
	x := f.AddClass("X", syntax.ClassKindClass)
	foo := x.AddFunction("foo", "X")
	n := foo.AddParameter("n", "Int")
	s := newTestSession([]*syntax.File{f})

	d := s.ResolveToDescriptor(foo)
	fn, ok := d.(*descriptors.FunctionDescriptor)
	require.True(t, ok, "got %T", d)
	assert.Equal(t, "p.X.foo", descriptors.FqNameOf(fn).String())

	cls := s.ClassDescriptor(x)
	assert.Same(t, cls, fn.ContainingDeclaration())
	assert.Same(t, cls, descriptors.ClassifierOf(fn.ReturnType()))
	assert.Same(t, fn, s.ResolveToDescriptor(foo))

	require.Len(t, fn.ValueParameters, 1)
	assert.Same(t, fn.ValueParameters[0], s.ResolveToDescriptor(n))
	assert.Equal(t, "Int", fn.ValueParameters[0].Type().String())

	recorded, ok := s.BindingContext().Descriptor(foo)
	require.True(t, ok)
	assert.Same(t, fn, recorded)
}

func TestSession_PackageFragments(t *testing.T) {
	ab := syntax.NewFile("a/b/f.kt", "a.b")
	ab.AddFunction("helper", "Unit")
	top := syntax.NewFile("top.kt", "")
	top.AddProperty("version", "String")
	s := newTestSession([]*syntax.File{ab, top})

	root := s.RootPackage()
	assert.True(t, root.FqName().IsRoot())
	assert.True(t, root.Name().IsSpecial())

	a, ok := s.PackageFragment(name.Parse("a"))
	require.True(t, ok)
	b, ok := s.PackageFragment(name.Parse("a.b"))
	require.True(t, ok)
	assert.Same(t, a, b.ContainingDeclaration())
	assert.Same(t, root, a.ContainingDeclaration())
	assert.Same(t, s.Module(), root.ContainingDeclaration())

	again, _ := s.PackageFragment(name.Parse("a.b"))
	assert.Same(t, b, again)

	_, ok = s.PackageFragment(name.Parse("c"))
	assert.False(t, ok)
	_, ok = s.PackageFragment(name.Parse("c.d"))
	assert.False(t, ok)

	assert.Same(t, b, a.MemberScope().Package("b"))
	assert.Nil(t, a.MemberScope().Package("missing"))

	all := root.MemberScope().AllDescriptors()
	require.Len(t, all, 2)
	assert.Equal(t, name.Name("version"), all[0].Name())
	assert.Same(t, a, all[1])

	recorded, ok := s.BindingContext().Package(name.Parse("a.b"))
	require.True(t, ok)
	assert.Same(t, b, recorded)
}

func TestSession_ConcurrentFirstMaterialization(t *testing.T) {
	f := syntax.NewFile("p/x.kt", "p")
	x := f.AddClass("X", syntax.ClassKindClass).Extends("Base")
	f.AddClass("Base", syntax.ClassKindInterface)
	foo := x.AddFunction("foo", "Base")
	s := newTestSession([]*syntax.File{f})

	const workers = 32
	classes := make([]*ClassDescriptor, workers)
	functions := make([]descriptors.Descriptor, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			functions[i] = s.ResolveToDescriptor(foo)
			classes[i] = s.ClassDescriptor(x)
			classes[i].Supertypes()
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, classes[0], classes[i])
		assert.Same(t, functions[0], functions[i])
	}
	supers := classes[0].Supertypes()
	require.Len(t, supers, 1)
	assert.Equal(t, "p.Base", supers[0].String())
	assert.Len(t, s.BindingContext().ClassesByFqName(name.Parse("p.X")), 1)
}

func TestSession_UnsupportedKindIsFatal(t *testing.T) {
	f := syntax.NewFile("p/x.kt", "p")
	x := f.AddClass("X", syntax.ClassKindClass)
	init := x.AddInitializer()
	s := newTestSession([]*syntax.File{f})

	de := requireInvariant(t, func() { s.ResolveToDescriptor(init) })
	assert.Contains(t, de.Message, "unsupported declaration kind")

	de = requireInvariant(t, func() { s.ClassDescriptor(x.AddFunction("f", "")) })
	assert.Contains(t, de.Message, "is not a class or object")
}

func TestSession_UnnamedClassGetsNoName(t *testing.T) {
	f := syntax.NewFile("p/broken.kt", "p")
	broken := f.AddClass("", syntax.ClassKindClass)
	s := newTestSession([]*syntax.File{f})

	c := s.ClassDescriptor(broken)
	assert.Equal(t, name.NoName, c.Name())
	assert.Same(t, c, s.ResolveToDescriptor(broken))
}

func TestSession_DuplicateClassesAreAllMaterialized(t *testing.T) {
	first := syntax.NewFile("p/one.kt", "p")
	d1 := first.AddClass("D", syntax.ClassKindClass)
	second := syntax.NewFile("p/two.kt", "p")
	d2 := second.AddClass("D", syntax.ClassKindClass)
	s := newTestSession([]*syntax.File{first, second})

	pkg, ok := s.PackageFragment(name.Parse("p"))
	require.True(t, ok)
	c1 := s.ClassDescriptor(d1)
	c2 := s.ClassDescriptor(d2)
	assert.NotSame(t, c1, c2)
	assert.Same(t, c1, pkg.MemberScope().Classifier("D"))
	assert.Len(t, s.BindingContext().ClassesByFqName(name.Parse("p.D")), 2)
}

func TestSession_ScopeForDeclaration(t *testing.T) {
	f := syntax.NewFile("p/x.kt", "p")
	top := f.AddFunction("top", "Unit")
	x := f.AddClass("X", syntax.ClassKindClass)
	member := x.AddFunction("member", "Unit")
	s := newTestSession([]*syntax.File{f})

	assert.Same(t, s.FileScope(f), s.ScopeForDeclaration(top))
	assert.Same(t, s.ClassDescriptor(x).ScopeForMemberDeclarationResolution(), s.ScopeForDeclaration(member))
}

func TestSession_ForceResolveAll(t *testing.T) {
	lib := syntax.NewFile("lib/lib.kt", "lib")
	box := lib.AddClass("Box", syntax.ClassKindClass)
	box.AddTypeParameter("T")
	box.AddProperty("value", "T")
	app := syntax.NewFile("app/deep/main.kt", "app.deep")
	app.Import("lib.Box")
	app.AddFunction("main", "Box<Int>")
	s := newTestSession([]*syntax.File{lib, app})

	require.NoError(t, s.ForceResolveAll(context.Background()))

	c := s.ClassDescriptor(box)
	assert.True(t, c.supertypes.IsComputed())
	assert.True(t, c.constructors.IsComputed())
	assert.True(t, c.members.all.IsComputed())

	stats := s.BindingContext().Stats()
	assert.Equal(t, 4, stats.Packages)
	assert.Equal(t, 0, stats.ErrorTypes)
	assert.Equal(t, 1, stats.Imports)
}

func TestSession_ForceResolveAllHonoursCancellation(t *testing.T) {
	f := syntax.NewFile("p/x.kt", "p")
	f.AddClass("X", syntax.ClassKindClass)
	s := newTestSession([]*syntax.File{f})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.ForceResolveAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
