package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestFilter_Discover(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"src/shop/Cart.java",
		"src/shop/CartTest.java",
		"src/shop/notes.md",
		"src/build/Gen.java",
		"scripts/tool.py",
		".lazyresolve/cache.py",
	} {
		touch(t, filepath.Join(root, rel))
	}

	f, err := NewFilter(nil, []string{"build"}, []string{"*Test.java"}, []string{".java", ".py"})
	require.NoError(t, err)
	f.Ignore(filepath.Join(root, ".lazyresolve"))

	files, err := f.Discover([]string{root, filepath.Join(root, "src")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "scripts/tool.py"),
		filepath.Join(root, "src/shop/Cart.java"),
	}, files)
}

func TestFilter_Include(t *testing.T) {
	root := t.TempDir()
	f, err := NewFilter([]string{"src/**"}, nil, nil, []string{".go"})
	require.NoError(t, err)

	assert.True(t, f.AcceptFile(root, filepath.Join(root, "src", "a", "b.go")))
	assert.False(t, f.AcceptFile(root, filepath.Join(root, "cmd", "main.go")))
	assert.False(t, f.AcceptFile(root, filepath.Join(root, "src", "README")))
	assert.False(t, f.SkipDir(filepath.Join(root, "src")))
}

func TestNewFilter_InvalidPattern(t *testing.T) {
	_, err := NewFilter(nil, []string{"[a-"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude dir pattern")
}
