// Package util holds small path, file and runtime helpers shared across layers.
package util

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// NormalizePatternPath turns a path into the slash form glob patterns are matched against.
// The current directory normalizes to "".
func NormalizePatternPath(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), `\`, "/")
	if s = path.Clean(s); s == "." {
		return ""
	}
	return strings.TrimPrefix(s, "./")
}

// HasPathPrefix reports whether p is dir or lies below it.
func HasPathPrefix(p, dir string) bool {
	p, dir = NormalizePatternPath(p), NormalizePatternPath(dir)
	switch {
	case p == dir:
		return true
	case p == "" || dir == "":
		return false
	}
	rest, ok := strings.CutPrefix(p, strings.TrimSuffix(dir, "/"))
	return ok && strings.HasPrefix(rest, "/")
}

// SortedStringKeys returns the keys of m in ascending order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// WriteFileWithDirs writes name, creating missing parent directories first.
func WriteFileWithDirs(name string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return os.WriteFile(name, data, perm)
}

// ReplaceFile swaps the contents of an existing file through a sibling temp file and a
// rename, so readers never observe a partial write. The original mode is kept.
func ReplaceFile(name string, data []byte) error {
	info, err := os.Stat(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %q: %w", name, err)
	}
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("write temp for %q: %w", name, err))
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return cleanup(fmt.Errorf("chmod temp for %q: %w", name, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp for %q: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace %q: %w", name, err)
	}
	return nil
}

// HeapAllocMB returns the live heap in whole megabytes.
func HeapAllocMB() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.Alloc >> 20
}
