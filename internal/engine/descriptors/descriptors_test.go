package descriptors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

type testPackage struct {
	fq    name.FqName
	scope Scope
}

func (p *testPackage) Name() name.Name                   { return p.fq.ShortName() }
func (p *testPackage) ContainingDeclaration() Descriptor { return nil }
func (p *testPackage) Kind() Kind                        { return KindPackage }
func (p *testPackage) FqName() name.FqName               { return p.fq }
func (p *testPackage) MemberScope() Scope                { return p.scope }

type testClassifier struct {
	name      name.Name
	container Descriptor
}

func (c *testClassifier) Name() name.Name                   { return c.name }
func (c *testClassifier) ContainingDeclaration() Descriptor { return c.container }
func (c *testClassifier) Kind() Kind                        { return KindClass }
func (c *testClassifier) TypeConstructor() TypeConstructor {
	return &ClassifierConstructor{Owner: c}
}
func (c *testClassifier) DefaultType() Type { return NewSimpleType(c.TypeConstructor(), nil, false) }

type countingType struct {
	t     Type
	calls int
}

func (c *countingType) Get() Type {
	c.calls++
	return c.t
}

func (c *countingType) IsComputed() bool { return c.calls > 0 }

func newPackage(fq string) *testPackage {
	p := &testPackage{fq: name.Parse(fq)}
	p.scope = Empty(p)
	return p
}

func TestChainedScope_FirstMatchAndUnion(t *testing.T) {
	pkg := newPackage("p")
	a1 := &testClassifier{name: "A", container: pkg}
	a2 := &testClassifier{name: "A", container: pkg}
	intType := (&testClassifier{name: "Int", container: pkg}).DefaultType()
	f1 := NewFunctionDescriptor(pkg, nil, "f", Eager(intType))
	f2 := NewFunctionDescriptor(pkg, nil, "f", Eager(intType))

	first := NewLocalScope(pkg, "first").AddClassifier(a1).AddFunction(f1)
	second := NewLocalScope(pkg, "second").AddClassifier(a2).AddFunction(f1).AddFunction(f2)
	chained := NewChainedScope(pkg, "test", first, nil, second)

	assert.Same(t, a1, chained.Classifier("A"))
	assert.Nil(t, chained.Classifier("B"))
	assert.Equal(t, []*FunctionDescriptor{f1, f2}, chained.Functions("f"))
	assert.Len(t, chained.AllDescriptors(), 4)
	assert.Len(t, chained.Scopes(), 2)
	assert.Same(t, pkg, chained.ContainingDeclaration())
}

func TestLocalScope_FirstClassifierWins(t *testing.T) {
	pkg := newPackage("")
	t1 := &testClassifier{name: "T"}
	t2 := &testClassifier{name: "T"}
	s := NewLocalScope(pkg, "params").AddClassifier(t1).AddClassifier(t2)

	assert.Same(t, t1, s.Classifier("T"))
	assert.Equal(t, []Descriptor{t1}, s.AllDescriptors())
}

func TestFilteringScopes(t *testing.T) {
	pkg := newPackage("p")
	sub := newPackage("p.q")
	cls := &testClassifier{name: "C", container: pkg}
	fn := NewFunctionDescriptor(pkg, nil, "f", Eager(cls.DefaultType()))
	base := &packageScope{LocalScope: NewLocalScope(pkg, "p").AddClassifier(cls).AddFunction(fn), sub: sub}

	only := ClassifiersOnly(base)
	assert.Same(t, cls, only.Classifier("C"))
	assert.Empty(t, only.Functions("f"))
	assert.Nil(t, only.Package("q"))
	assert.Equal(t, []Descriptor{cls}, only.AllDescriptors())

	noPkg := NoPackages(base)
	assert.Nil(t, noPkg.Package("q"))
	assert.NotNil(t, base.Package("q"))
	assert.Equal(t, []*FunctionDescriptor{fn}, noPkg.Functions("f"))
	assert.NotContains(t, noPkg.AllDescriptors(), Descriptor(sub))
}

type packageScope struct {
	*LocalScope
	sub PackageDescriptor
}

func (s *packageScope) Package(n name.Name) PackageDescriptor {
	if n == s.sub.Name() {
		return s.sub
	}
	return nil
}

func (s *packageScope) AllDescriptors() []Descriptor {
	return append(append([]Descriptor{}, s.LocalScope.AllDescriptors()...), s.sub)
}

func TestForceResolveAllContents(t *testing.T) {
	pkg := newPackage("p")
	ret := &countingType{t: (&testClassifier{name: "R", container: pkg}).DefaultType()}
	paramType := &countingType{t: NewErrorType("Missing")}
	fn := NewFunctionDescriptor(pkg, nil, "f", ret)
	param := syntax.Param("x", "Missing")
	fn.ValueParameters = []*ValueParameterDescriptor{NewValueParameterDescriptor(fn, param, 0, paramType)}

	ForceResolveAllContents(NewLocalScope(pkg, "s").AddFunction(fn))

	assert.True(t, ret.IsComputed())
	assert.True(t, paramType.IsComputed())
	assert.NotPanics(t, func() { ForceResolveAllContents(nil) })
	assert.NotPanics(t, func() { ForceResolveAllContents(42) })
}

func TestFqNameAndRender(t *testing.T) {
	pkg := newPackage("p")
	x := &testClassifier{name: "X", container: pkg}
	unit := (&testClassifier{name: "Unit", container: newPackage("kotlin")}).DefaultType()
	fn := NewFunctionDescriptor(x, nil, "foo", Eager(unit))
	fn.ValueParameters = []*ValueParameterDescriptor{
		NewValueParameterDescriptor(fn, syntax.Param("n", "Int"), 0, Eager(NewErrorType("Int"))),
	}

	assert.Equal(t, name.FqName("p.X.foo"), FqNameOf(fn))
	assert.Equal(t, "fun p.X.foo(n: [ERROR: Int]): kotlin.Unit", Render(fn))
	assert.Equal(t, "package p", Render(pkg))
	assert.Equal(t, "package <root>", Render(newPackage("")))
	assert.Equal(t, "p.X", x.DefaultType().String())
}

func TestModalityAndVisibility(t *testing.T) {
	assert.Equal(t, Abstract, ModalityOf(syntax.ModAbstract|syntax.ModOpen, Final))
	assert.Equal(t, Open, ModalityOf(syntax.ModOpen, Final))
	assert.Equal(t, Abstract, ModalityOf(0, Abstract))
	assert.Equal(t, Private, VisibilityOf(syntax.ModPrivate))
	assert.Equal(t, PackagePrivate, VisibilityOf(syntax.ModPackagePrivate))
	assert.Equal(t, Public, VisibilityOf(0))
}

func TestWalkVisitsPackageMembersOnce(t *testing.T) {
	pkg := newPackage("p")
	cls := &testClassifier{name: "C", container: pkg}
	pkg.scope = NewLocalScope(pkg, "p").AddClassifier(cls)

	var visited []string
	Walk(pkg, func(d Descriptor, depth int) bool {
		visited = append(visited, string(FqNameOf(d)))
		return true
	})
	assert.Equal(t, []string{"p", "p.C"}, visited)
}
