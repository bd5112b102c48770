package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyresolve/internal/engine/name"
)

func TestParseTypeRef(t *testing.T) {
	tests := []struct {
		in   string
		path []string
		args int
		null bool
		text string
	}{
		{in: "A", path: []string{"A"}, text: "A"},
		{in: "a.b.C", path: []string{"a", "b", "C"}, text: "a.b.C"},
		{in: "List<String>?", path: []string{"List"}, args: 1, null: true, text: "List<String>?"},
		{in: "Map<K, java.util.List<V>>", path: []string{"Map"}, args: 2, text: "Map<K, java.util.List<V>>"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ref, err := ParseTypeRef(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.path, ref.Path)
			assert.Len(t, ref.Arguments, tt.args)
			assert.Equal(t, tt.null, ref.Nullable)
			assert.Equal(t, tt.text, ref.Text())
		})
	}
}

func TestParseTypeRef_Errors(t *testing.T) {
	for _, in := range []string{"", "List<", "a..b", "A B"} {
		_, err := ParseTypeRef(in)
		assert.Error(t, err, in)
	}
}

func TestParseImportPath(t *testing.T) {
	imp, err := ParseImportPath("a.b.*")
	require.NoError(t, err)
	assert.True(t, imp.AllUnder)
	assert.Equal(t, name.FqName("a.b"), imp.Path)
	_, ok := imp.ImportedName()
	assert.False(t, ok)

	imp, err = ParseImportPath("a.b.Foo")
	require.NoError(t, err)
	n, ok := imp.ImportedName()
	assert.True(t, ok)
	assert.Equal(t, name.Name("Foo"), n)

	_, err = ParseImportPath("  ")
	assert.Error(t, err)
}

func TestBuilderLinksParentsAndFiles(t *testing.T) {
	f := NewFile("p/X.kt", "p")
	f.Import("a.*")
	alias := f.ImportAs("b.Foo", "Bar")

	x := f.AddClass("X", ClassKindClass).Extends("Base<T>")
	tp := x.AddTypeParameter("T", "Any")
	foo := x.AddFunction("foo", "Unit")
	comp := x.AddCompanion("")
	ctor := x.AddConstructor(Param("a", "Int"))

	assert.Equal(t, name.FqName("p"), f.Package)
	n, _ := alias.ImportedName()
	assert.Equal(t, name.Name("Bar"), n)
	assert.Equal(t, "import b.Foo as Bar", alias.Text())

	for _, d := range []*Declaration{tp, foo, comp, ctor} {
		assert.Same(t, x, d.Parent)
		assert.Same(t, f, d.File)
	}
	assert.Same(t, ctor, ctor.ValueParameters[0].Parent)
	assert.Equal(t, []*Declaration{comp}, x.Companions())
	assert.Equal(t, name.NoName, comp.Name())
	assert.True(t, comp.IsCompanion())
	assert.Less(t, x.Pos.Line, foo.Pos.Line)
}

func TestDeclarationKinds(t *testing.T) {
	f := NewFile("e.kt", "")
	e := f.AddClass("Color", ClassKindEnum)
	red := e.AddEnumEntry("RED")
	e.AddEnumEntry("GREEN")
	obj := f.AddObject("Singleton")

	assert.Equal(t, KindEnumEntry, red.Kind)
	assert.Len(t, e.EnumEntries(), 2)
	assert.True(t, obj.IsClassOrObject())
	assert.True(t, obj.ClassKind.IsSingleton())
	assert.Equal(t, "enum entry", KindEnumEntry.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.Contains(t, red.Text(), "e.kt:")
}
