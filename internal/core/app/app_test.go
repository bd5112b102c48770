package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyresolve/internal/core/config"
	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/descriptors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"go.mod":                      "module example.com/app\n\ngo 1.22\n",
		"money/money.go":              "package money\n\ntype Amount int64\n",
		"shop/cart.go":                "package shop\n\nimport \"example.com/app/money\"\n\ntype Cart struct {\n\tTotal money.Amount\n}\n",
		"src/com/acme/Base.java":      "package com.acme;\n\npublic class Base {}\n",
		"src/com/acme/Cart.java":      "package com.acme;\nimport java.util.List;\n\npublic class Cart extends Base {\n    int size() { return 0; }\n}\n",
		"py/util.py":                  "def helper(x: int) -> int:\n    return x\n",
		"vendor/dep/dep.go":           "package dep\n\ntype Ignored struct{}\n",
		"src/com/acme/notes.txt":      "not source",
		"src/com/acme/Broken.java.md": "class",
	})
	return root
}

func newTestApp(t *testing.T, root string, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(cfg, root, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func renders(ds []descriptors.Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Kind().String() + " " + descriptors.FqNameOf(d).String()
	}
	return out
}

func TestApp_BuildAndLookup(t *testing.T) {
	root := fixture(t)
	a := newTestApp(t, root, nil)
	assert.Equal(t, "example.com/app", a.goModule())

	_, err := a.Lookup("shop.Cart")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	snap, err := a.Build(context.Background())
	require.NoError(t, err)
	require.Same(t, snap, a.Snapshot())
	assert.Len(t, snap.Files, 5)
	assert.Equal(t, map[string]int{"go": 2, "java": 2, "python": 1}, snap.Languages)
	assert.Empty(t, snap.ParseErrors)
	assert.Empty(t, snap.RunID)

	found, err := a.Lookup("com.acme.Cart")
	require.NoError(t, err)
	assert.Equal(t, []string{"class com.acme.Cart"}, renders(found))

	found, err = a.Lookup("com.acme.Cart.size")
	require.NoError(t, err)
	assert.Equal(t, []string{"function com.acme.Cart.size"}, renders(found))

	found, err = a.Lookup("com.acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"package com.acme"}, renders(found))

	found, err = a.Lookup("py.util.helper")
	require.NoError(t, err)
	assert.Equal(t, []string{"function py.util.helper"}, renders(found))

	found, err = a.Lookup("shop.Cart.Total")
	require.NoError(t, err)
	require.Len(t, found, 1)
	total, ok := found[0].(descriptors.VariableDescriptor)
	require.True(t, ok)
	assert.False(t, total.Type().IsError(), "money.Amount resolves through the Go import")

	_, err = a.Lookup("dep.Ignored")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "vendor is excluded")

	_, err = a.Lookup("  ")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestApp_SummaryAndUnresolvedImports(t *testing.T) {
	root := fixture(t)
	a := newTestApp(t, root, nil)
	_, err := a.Summary()
	require.Error(t, err)

	_, err = a.Build(context.Background())
	require.NoError(t, err)

	sum, err := a.Summary()
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Files)
	assert.Equal(t, "example.com/app", sum.GoModule)
	assert.GreaterOrEqual(t, sum.Descriptors["class"], 4)
	assert.Positive(t, sum.Descriptors["package"])
	assert.Positive(t, sum.Trace.Declarations)

	unresolved, err := a.UnresolvedImports()
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, UnresolvedImport{File: "src/com/acme/Cart.java", Line: 2, Import: "import java.util.List"}, unresolved[0])
}

func TestApp_ParseFailuresAreReported(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/A.java": "package a;\npublic class A {}\n",
	})
	a := newTestApp(t, root, func(c *config.Config) { c.Resolve.ParseWorkers = 1 })

	unreadable := filepath.Join(root, "a", "B.java")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.java"), unreadable))

	snap, err := a.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Files, 1)
	require.Contains(t, snap.ParseErrors, unreadable)
	assert.True(t, errors.IsCode(snap.ParseErrors[unreadable], errors.CodeNotFound))
}

func TestApp_PersistsSnapshots(t *testing.T) {
	root := fixture(t)
	a := newTestApp(t, root, func(c *config.Config) {
		c.DB.Enabled = true
		c.DB.KeepRuns = 1
	})
	assert.FileExists(t, filepath.Join(root, ".lazyresolve", "symbols.db"))

	first, err := a.Build(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, first.RunID)

	second, err := a.Build(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.NotSame(t, first.Session, second.Session)

	runs, err := a.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.RunID, runs[0].ID)

	records := a.StoredLookup("com.acme.Cart")
	require.NotEmpty(t, records)
	assert.Equal(t, "src/com/acme/Cart.java", records[0].File)
	require.Len(t, records[0].Supertypes, 1)
	assert.Contains(t, records[0].Supertypes[0], "Base")
}

func TestApp_RunsWithoutStore(t *testing.T) {
	a := newTestApp(t, t.TempDir(), nil)
	_, err := a.Runs(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
	assert.Nil(t, a.StoredLookup("x.Y"))
}

func TestApp_Reconfigure(t *testing.T) {
	root := fixture(t)
	a := newTestApp(t, root, func(c *config.Config) { c.Sources.Roots = []string{"src"} })

	snap, err := a.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Files, 2)

	next := config.DefaultConfig()
	next.Sources.Include = []string{"py/**"}
	snap, err = a.Reconfigure(context.Background(), next)
	require.NoError(t, err)
	require.Len(t, snap.Files, 1)
	assert.Equal(t, "py/util.py", snap.Files[0].Path)
}

func TestApp_WatchRebuilds(t *testing.T) {
	root := fixture(t)
	a := newTestApp(t, root, func(c *config.Config) {
		c.Watch.Debounce = 50 * time.Millisecond
		c.Watch.RebuildsPerSecond = 100
	})
	_, err := a.Build(context.Background())
	require.NoError(t, err)

	updates := make(chan Update, 4)
	a.SetUpdateHandler(func(u Update) { updates <- u })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// give the watcher time to register the tree
	time.Sleep(200 * time.Millisecond)
	writeTree(t, root, map[string]string{
		"src/com/acme/Extra.java": "package com.acme;\nclass Extra {}\n",
	})

	select {
	case u := <-updates:
		require.NoError(t, u.Err)
		assert.Contains(t, u.Changed, filepath.Join(root, "src/com/acme/Extra.java"))
		require.Same(t, u.Snapshot, a.Snapshot())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild")
	}

	found, err := a.Lookup("com.acme.Extra")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestDetectGoModule(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"go.mod":           "module example.com/svc\n",
		"internal/x/x.go":  "package x\n",
		"other/README.txt": "",
	})

	assert.Equal(t, "example.com/svc", detectGoModule([]string{root}))
	assert.Equal(t, "example.com/svc/internal", detectGoModule([]string{filepath.Join(root, "internal")}))
	assert.Empty(t, detectGoModule([]string{t.TempDir()}))
}
