package symbols

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/declarations"
	"lazyresolve/internal/engine/lazy"
	"lazyresolve/internal/engine/syntax"
)

func TestStore_SaveLookupPrune(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "symbols.db"), "proj-a", 0)
	require.NoError(t, err)
	defer store.Close()

	first, err := store.SaveSnapshot(ctx, []Record{
		{FqName: "p.A", Name: "A", Kind: "class", File: "p/a.kt", Line: 3, Supertypes: []string{"p.B"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	got := store.Lookup("p.A")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"p.B"}, got[0].Supertypes)
	assert.Equal(t, 3, got[0].Line)

	second, err := store.SaveSnapshot(ctx, []Record{
		{FqName: "p.A", Name: "A", Kind: "class"},
		{FqName: "p.B", Name: "B", Kind: "class"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// lookups read the newest run only
	got = store.Lookup("p.A")
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Supertypes)
	assert.Len(t, store.Lookup("p.B"), 1)
	assert.Empty(t, store.Lookup("p.C"))
	assert.Nil(t, store.Lookup("  "))

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Records)

	require.NoError(t, store.Prune(ctx, 1))
	runs, err = store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Len(t, store.Lookup("p.B"), 1)
}

func TestStore_ProjectIsolation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "symbols.db")
	storeA, err := Open(path, "proj-a", 0)
	require.NoError(t, err)
	defer storeA.Close()
	storeB, err := Open(path, "proj-b", 0)
	require.NoError(t, err)
	defer storeB.Close()

	_, err = storeA.SaveSnapshot(ctx, []Record{{FqName: "a.Alpha", Name: "Alpha", Kind: "class"}})
	require.NoError(t, err)

	assert.Len(t, storeA.Lookup("a.Alpha"), 1)
	assert.Empty(t, storeB.Lookup("a.Alpha"))
}

func TestOpen_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "db"), 0o755))

	_, err := Open(filepath.Join(dir, "db"), "", 0)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = Open(" ", "", 0)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestCollect(t *testing.T) {
	f := syntax.NewFile("p/a.kt", "p")
	a := f.AddClass("A", syntax.ClassKindClass).Extends("B")
	a.AddFunction("run", "Unit")
	f.AddClass("B", syntax.ClassKindClass)
	s := lazy.NewSession(declarations.NewFileFactory([]*syntax.File{f}),
		lazy.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	byName := make(map[string]Record)
	for _, r := range Collect(s.RootPackage()) {
		if _, dup := byName[r.FqName+"/"+r.Kind]; !dup {
			byName[r.FqName+"/"+r.Kind] = r
		}
	}

	pkg, ok := byName["p/package"]
	require.True(t, ok)
	assert.Equal(t, "package p", pkg.Rendered)

	class, ok := byName["p.A/class"]
	require.True(t, ok)
	assert.Equal(t, []string{"p.B"}, class.Supertypes)
	assert.Equal(t, "p/a.kt", class.File)
	assert.Positive(t, class.Line)
	assert.Equal(t, "p", class.Container)

	run, ok := byName["p.A.run/function"]
	require.True(t, ok)
	assert.Equal(t, "p.A", run.Container)
	assert.Equal(t, "fun p.A.run(): Unit", run.Rendered)
}
