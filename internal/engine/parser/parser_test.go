package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/syntax"
)

func texts(refs []*syntax.TypeRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Text()
	}
	return out
}

func names(decls []*syntax.Declaration) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = d.RawName
	}
	return out
}

func parse(t *testing.T, path, src string) *syntax.File {
	t.Helper()
	p := NewParser(DefaultFrontends("example.com/app")...)
	file, err := p.ParseFile(path, []byte(src))
	require.NoError(t, err)
	require.NotNil(t, file)
	return file
}

func TestParser_UnsupportedExtension(t *testing.T) {
	p := NewParser(DefaultFrontends("")...)
	_, err := p.ParseFile("script.rb", []byte("puts 1"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
	assert.False(t, p.IsSupportedPath("script.rb"))
	assert.True(t, p.IsSupportedPath("pkg/Main.JAVA"))
	assert.Equal(t, []string{".go", ".java", ".py", ".pyi"}, p.SupportedExtensions())
	assert.Equal(t, []string{"java.lang.*"}, p.DefaultImports("java"))
	assert.Nil(t, p.DefaultImports("cobol"))
	assert.Contains(t, p.Builtins(), "int")
	assert.Contains(t, p.Builtins(), "float64")
}

func TestJavaFrontend(t *testing.T) {
	file := parse(t, "com/acme/shop/Cart.java", `
package com.acme.shop;

import java.util.List;
import static com.acme.util.Strings.*;

public class Cart<T extends Item> extends Base implements Iterable<T>, Sized {
    private final List<T> items;
    int count, limit;

    public Cart(List<T> items) { this.items = items; }

    public int size() { return count; }

    static class Line {}
    class Cursor {}

    enum Status { OPEN, CLOSED; Status next() { return this; } }
}

interface Sized { int size(); }
`)

	assert.Equal(t, "com.acme.shop", file.Package.String())
	require.Len(t, file.Imports, 2)
	assert.Equal(t, "java.util.List", file.Imports[0].Path.String())
	assert.False(t, file.Imports[0].AllUnder)
	assert.True(t, file.Imports[1].Static)
	assert.True(t, file.Imports[1].AllUnder)
	assert.Equal(t, "com.acme.util.Strings", file.Imports[1].Path.String())

	require.Equal(t, []string{"Cart", "Sized"}, names(file.Declarations))
	cart, sized := file.Declarations[0], file.Declarations[1]
	assert.Equal(t, syntax.ClassKindClass, cart.ClassKind)
	assert.True(t, cart.Modifiers.Has(syntax.ModPublic))
	assert.True(t, cart.Modifiers.Has(syntax.ModOpen))
	assert.Equal(t, syntax.ClassKindInterface, sized.ClassKind)
	assert.True(t, sized.Modifiers.Has(syntax.ModPackagePrivate))

	require.Len(t, cart.TypeParameters, 1)
	assert.Equal(t, "T", cart.TypeParameters[0].RawName)
	assert.Equal(t, []string{"Item"}, texts(cart.TypeParameters[0].Bounds))
	assert.Equal(t, []string{"Base", "Iterable<T>", "Sized"}, texts(cart.SuperTypes))

	require.Len(t, cart.Body, 8)
	items := cart.Body[0]
	assert.Equal(t, syntax.KindProperty, items.Kind)
	assert.Equal(t, "List<T>", items.Type.Text())
	assert.True(t, items.Modifiers.Has(syntax.ModPrivate))
	assert.Equal(t, []string{"count", "limit"}, names(cart.Body[1:3]))
	assert.True(t, cart.Body[1].Modifiers.Has(syntax.ModPackagePrivate))

	ctor := cart.Body[3]
	assert.Equal(t, syntax.KindConstructor, ctor.Kind)
	require.Len(t, ctor.ValueParameters, 1)
	assert.Equal(t, "items", ctor.ValueParameters[0].RawName)

	size := cart.Body[4]
	assert.Equal(t, syntax.KindFunction, size.Kind)
	assert.Equal(t, "int", size.Type.Text())
	assert.True(t, size.Modifiers.Has(syntax.ModOpen))

	line, cursor, status := cart.Body[5], cart.Body[6], cart.Body[7]
	assert.False(t, line.Modifiers.Has(syntax.ModInner))
	assert.True(t, cursor.Modifiers.Has(syntax.ModInner))
	assert.Same(t, cart, cursor.Parent)
	assert.Same(t, file, cursor.File)
	assert.Equal(t, syntax.ClassKindEnum, status.ClassKind)
	assert.Equal(t, []string{"OPEN", "CLOSED", "next"}, names(status.Body))
	assert.Equal(t, syntax.KindEnumEntry, status.Body[0].Kind)

	require.Len(t, sized.Body, 1)
	assert.True(t, sized.Body[0].Modifiers.Has(syntax.ModPublic))
	assert.False(t, sized.Body[0].Modifiers.Has(syntax.ModOpen))
}

func TestGoFrontend(t *testing.T) {
	file := parse(t, "shop/cart/cart.go", `
package cart

import (
	"fmt"
	"example.com/app/shop/items"
	m "example.com/app/shop/money"
	_ "embed"
)

type Cart struct {
	items.Base
	Lines []Line
	total m.Amount
}

type Line struct{ Qty int }

type Sizer interface {
	fmt.Stringer
	Size() int
}

type ID string

func (c *Cart) Total() m.Amount { return c.total }

func New(lines ...Line) *Cart { return nil }

var Default = New()

const limit int = 10
`)

	assert.Equal(t, "shop.cart", file.Package.String())
	require.Len(t, file.Imports, 3)
	assert.Equal(t, "fmt", file.Imports[0].Path.String())
	assert.Equal(t, "shop.items", file.Imports[1].Path.String())
	assert.Equal(t, "shop.money", file.Imports[2].Path.String())
	assert.Equal(t, "m", file.Imports[2].Alias)

	require.Equal(t, []string{"Cart", "Line", "Sizer", "ID", "New", "Default", "limit"}, names(file.Declarations))
	cart := file.Declarations[0]
	assert.Equal(t, []string{"items.Base"}, texts(cart.SuperTypes))
	require.Equal(t, []string{"Lines", "total", "Total"}, names(cart.Body))
	assert.Equal(t, "Array<Line>", cart.Body[0].Type.Text())
	assert.True(t, cart.Body[0].Modifiers.Has(syntax.ModPublic))
	assert.True(t, cart.Body[1].Modifiers.Has(syntax.ModPackagePrivate))
	assert.Equal(t, "m.Amount", cart.Body[2].Type.Text())
	assert.Same(t, cart, cart.Body[2].Parent)

	sizer := file.Declarations[2]
	assert.Equal(t, syntax.ClassKindInterface, sizer.ClassKind)
	assert.Equal(t, []string{"fmt.Stringer"}, texts(sizer.SuperTypes))
	require.Len(t, sizer.Body, 1)
	assert.True(t, sizer.Body[0].Modifiers.Has(syntax.ModAbstract))

	assert.Equal(t, []string{"string"}, texts(file.Declarations[3].SuperTypes))

	newFn := file.Declarations[4]
	require.Len(t, newFn.ValueParameters, 1)
	assert.Equal(t, "Array<Line>", newFn.ValueParameters[0].Type.Text())
	assert.Equal(t, "Cart", newFn.Type.Text())

	assert.Nil(t, file.Declarations[5].Type)
	assert.Equal(t, "int", file.Declarations[6].Type.Text())
	assert.True(t, file.Declarations[6].Modifiers.Has(syntax.ModPackagePrivate))
}

func TestPythonFrontend(t *testing.T) {
	file := parse(t, "shop/cart.py", `
from typing import Optional
from . import money
from .items import Item as BaseItem
import os.path

LIMIT: int = 10

class Cart(BaseItem, metaclass=Meta):
    count = 0

    def __init__(self, owner: str, *lines):
        self.owner = owner
        self._total: float = 0.0

    @staticmethod
    def empty() -> "Cart":
        return Cart("")

    def total(self) -> Optional[float]:
        return self._total

def _helper(x, y: list[int] = None) -> None:
    pass
`)

	assert.Equal(t, "shop.cart", file.Package.String())
	require.Len(t, file.Imports, 4)
	assert.Equal(t, "typing.Optional", file.Imports[0].Path.String())
	assert.Equal(t, "shop.money", file.Imports[1].Path.String())
	assert.Equal(t, "shop.items.Item", file.Imports[2].Path.String())
	assert.Equal(t, "BaseItem", file.Imports[2].Alias)
	assert.Equal(t, "os", file.Imports[3].Path.String())

	require.Equal(t, []string{"LIMIT", "Cart", "_helper"}, names(file.Declarations))
	assert.Equal(t, "int", file.Declarations[0].Type.Text())

	cart := file.Declarations[1]
	assert.Equal(t, []string{"BaseItem"}, texts(cart.SuperTypes))
	require.Equal(t, []string{"count", "", "empty", "total", "owner", "_total"}, names(cart.Body))
	ctor := cart.Body[1]
	assert.Equal(t, syntax.KindConstructor, ctor.Kind)
	assert.Equal(t, []string{"owner", "lines"}, names(ctor.ValueParameters))
	assert.Equal(t, "str", ctor.ValueParameters[0].Type.Text())
	assert.Equal(t, "tuple", ctor.ValueParameters[1].Type.Text())
	assert.Empty(t, ctor.Body)

	empty := cart.Body[2]
	assert.True(t, empty.Modifiers.Has(syntax.ModStatic))
	assert.Equal(t, "Cart", empty.Type.Text())
	assert.Equal(t, "float?", cart.Body[3].Type.Text())
	assert.Empty(t, cart.Body[3].ValueParameters)
	assert.Equal(t, "float", cart.Body[5].Type.Text())
	assert.True(t, cart.Body[5].Modifiers.Has(syntax.ModProtected))

	helper := file.Declarations[2]
	assert.True(t, helper.Modifiers.Has(syntax.ModPrivate))
	assert.Equal(t, []string{"object", "list<int>"}, texts([]*syntax.TypeRef{helper.ValueParameters[0].Type, helper.ValueParameters[1].Type}))
	assert.Equal(t, "None", helper.Type.Text())
}

func TestPythonFrontend_InitModule(t *testing.T) {
	file := parse(t, "shop/__init__.py", "from .cart import *\n")
	assert.Equal(t, "shop", file.Package.String())
	require.Len(t, file.Imports, 1)
	assert.True(t, file.Imports[0].AllUnder)
	assert.Equal(t, "shop.cart", file.Imports[0].Path.String())
}

func TestPyTypeRef(t *testing.T) {
	cases := map[string]string{
		"int":                   "int",
		"Optional[str]":         "str?",
		"int | None":            "int?",
		`"Forward"`:             "Forward",
		"dict[str, list[int]]":  "dict<str, list<int>>",
		"None":                  "None",
		"pkg.Model | pkg.Other": "pkg.Model",
	}
	for in, want := range cases {
		got := pyTypeRef(in, syntax.Position{Line: 1, Column: 1})
		require.NotNil(t, got, in)
		assert.Equal(t, want, got.Text(), in)
	}
	assert.Nil(t, pyTypeRef("Callable[[int], str]", syntax.Position{}))
}
