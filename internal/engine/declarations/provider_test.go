package declarations

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
	"lazyresolve/internal/shared/observability"
)

func TestPackageProvider_IndexesAcrossFiles(t *testing.T) {
	a := syntax.NewFile("a.kt", "p")
	x1 := a.AddClass("X", syntax.ClassKindClass)
	foo := a.AddFunction("foo", "Unit")
	b := syntax.NewFile("b.kt", "p")
	x2 := b.AddClass("X", syntax.ClassKindClass)
	prop := b.AddProperty("count", "Int")
	foo2 := b.AddFunction("foo", "Int")

	p := NewPackageProvider(name.Parse("p"), []*syntax.File{a, b})

	assert.Equal(t, []*syntax.Declaration{x1, foo, x2, prop, foo2}, p.AllDeclarations())
	assert.Equal(t, []*syntax.Declaration{x1, x2}, p.ClassOrObjectDeclarations("X"))
	assert.Equal(t, []*syntax.Declaration{foo, foo2}, p.FunctionDeclarations("foo"))
	assert.Equal(t, []*syntax.Declaration{prop}, p.PropertyDeclarations("count"))
	assert.Empty(t, p.FunctionDeclarations("missing"))
	assert.Equal(t, name.FqName("p"), p.Package())
}

func TestIndex_BuiltOnce(t *testing.T) {
	builds := 0
	ix := newIndex("test", func() []*syntax.Declaration {
		builds++
		return nil
	})
	before := testutil.ToFloat64(observability.IndexBuilds.WithLabelValues("test"))

	ix.AllDeclarations()
	ix.FunctionDeclarations("a")
	ix.ClassOrObjectDeclarations("b")

	assert.Equal(t, 1, builds)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.IndexBuilds.WithLabelValues("test")))
}

func TestClassProvider_SkipsInitializers(t *testing.T) {
	f := syntax.NewFile("c.kt", "")
	c := f.AddClass("C", syntax.ClassKindClass)
	c.AddInitializer()
	ctor := c.AddConstructor()
	bar := c.AddFunction("bar", "")

	p := NewClassProvider(NewClassInfo(c))
	assert.Equal(t, []*syntax.Declaration{ctor, bar}, p.AllDeclarations())
	assert.Equal(t, []*syntax.Declaration{ctor}, p.ConstructorDeclarations())
	assert.Same(t, c, p.Owner().Declaration)
}

func TestClassProvider_UnknownKindIsFatal(t *testing.T) {
	f := syntax.NewFile("c.kt", "")
	c := f.AddClass("C", syntax.ClassKindClass)
	c.Body = append(c.Body, &syntax.Declaration{Kind: syntax.KindTypeParameter, RawName: "T"})

	p := NewClassProvider(NewClassInfo(c))
	var recovered interface{}
	func() {
		defer func() { recovered = recover() }()
		p.AllDeclarations()
	}()
	de, ok := errors.AsInvariant(recovered)
	require.True(t, ok)
	assert.Contains(t, de.Message, "unsupported declaration kind")
}

func TestFileFactory_Packages(t *testing.T) {
	f1 := syntax.NewFile("a.kt", "a.b.c")
	f2 := syntax.NewFile("d.kt", "a.d")
	factory := NewFileFactory([]*syntax.File{f1, f2})

	for _, fq := range []string{"", "a", "a.b", "a.b.c", "a.d"} {
		_, ok := factory.PackageMemberDeclarationProvider(name.Parse(fq))
		assert.True(t, ok, fq)
	}
	_, ok := factory.PackageMemberDeclarationProvider(name.Parse("a.x"))
	assert.False(t, ok)

	assert.Equal(t, []name.Name{"a"}, factory.SubPackageNames(name.Root))
	assert.Equal(t, []name.Name{"b", "d"}, factory.SubPackageNames(name.Parse("a")))
	assert.Empty(t, factory.SubPackageNames(name.Parse("a.b.c")))

	p1, _ := factory.PackageMemberDeclarationProvider(name.Parse("a.d"))
	p2, _ := factory.PackageMemberDeclarationProvider(name.Parse("a.d"))
	assert.Same(t, p1, p2)
}

func TestFileFactory_EnumViews(t *testing.T) {
	f := syntax.NewFile("e.kt", "")
	enum := f.AddClass("Color", syntax.ClassKindEnum)
	red := enum.AddEnumEntry("RED")
	green := enum.AddEnumEntry("GREEN")
	fn := enum.AddFunction("mix", "Color")
	factory := NewFileFactory([]*syntax.File{f})

	body := factory.ClassMemberDeclarationProvider(NewClassInfo(enum))
	assert.Equal(t, []*syntax.Declaration{fn}, body.AllDeclarations())
	assert.Empty(t, body.ClassOrObjectDeclarations("RED"))

	objInfo := EnumClassObjectInfo(enum)
	obj := factory.ClassMemberDeclarationProvider(objInfo)
	assert.Equal(t, []*syntax.Declaration{red, green}, obj.AllDeclarations())
	assert.Equal(t, []*syntax.Declaration{red}, obj.ClassOrObjectDeclarations("RED"))
	assert.Empty(t, obj.FunctionDeclarations("mix"))
	assert.Same(t, objInfo, obj.Owner())
	assert.True(t, objInfo.IsSynthetic())
	assert.Equal(t, name.ClassObject, objInfo.Name)
}
