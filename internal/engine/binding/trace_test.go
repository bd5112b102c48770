package binding

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/syntax"
)

func TestTrace_RecordAndRead(t *testing.T) {
	f := syntax.NewFile("a.kt", "p")
	fn := f.AddFunction("foo", "Bar")
	imp := f.Import("q.*")

	trace := NewTrace()
	ctx := trace.Context()
	module := descriptors.NewModuleDescriptor("test")
	errType := descriptors.NewErrorType("Bar")
	d := descriptors.NewFunctionDescriptor(module, fn, fn.Name(), descriptors.Eager(errType))

	trace.RecordDeclaration(fn, d)
	trace.RecordDeclaration(fn, d)
	trace.RecordType(fn.Type, errType)
	trace.RecordType(fn.Type, descriptors.NewErrorType("other"))
	trace.RecordImport(imp, []descriptors.Descriptor{d})

	got, ok := ctx.Descriptor(fn)
	require.True(t, ok)
	assert.Same(t, d, got)

	typ, ok := ctx.Type(fn.Type)
	require.True(t, ok)
	assert.Same(t, errType, typ)

	introduced, ok := ctx.ImportedDescriptors(imp)
	require.True(t, ok)
	assert.Len(t, introduced, 1)

	_, ok = ctx.Class(fn)
	assert.False(t, ok)

	assert.Equal(t, Stats{Declarations: 1, Types: 1, ErrorTypes: 1, Imports: 1}, ctx.Stats())
}

func TestTrace_RebindingIsFatal(t *testing.T) {
	f := syntax.NewFile("a.kt", "")
	fn := f.AddFunction("foo", "")
	module := descriptors.NewModuleDescriptor("test")
	unit := descriptors.Eager(descriptors.NewErrorType("Unit"))

	trace := NewTrace()
	trace.RecordDeclaration(fn, descriptors.NewFunctionDescriptor(module, fn, "foo", unit))

	var recovered interface{}
	func() {
		defer func() { recovered = recover() }()
		trace.RecordDeclaration(fn, descriptors.NewFunctionDescriptor(module, fn, "foo", unit))
	}()
	_, ok := errors.AsInvariant(recovered)
	assert.True(t, ok)
}

func TestTrace_ConcurrentWrites(t *testing.T) {
	f := syntax.NewFile("a.kt", "")
	module := descriptors.NewModuleDescriptor("test")
	unit := descriptors.Eager(descriptors.NewErrorType("Unit"))
	var decls []*syntax.Declaration
	for i := 0; i < 50; i++ {
		decls = append(decls, f.AddFunction("f", ""))
	}

	trace := NewTrace()
	var wg sync.WaitGroup
	for _, d := range decls {
		wg.Add(1)
		go func(d *syntax.Declaration) {
			defer wg.Done()
			trace.RecordDeclaration(d, descriptors.NewFunctionDescriptor(module, d, "f", unit))
		}(d)
	}
	wg.Wait()
	assert.Equal(t, 50, trace.Context().Stats().Declarations)
}
