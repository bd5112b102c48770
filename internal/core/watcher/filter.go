package watcher

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"lazyresolve/internal/shared/util"
)

// Filter decides which directories are walked and which files are sources.
// Exclude patterns match base names; include patterns match the slash path relative to
// the source root. An empty include list accepts every supported file.
type Filter struct {
	include      []glob.Glob
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extensions   map[string]bool
	ignored      []string
}

func NewFilter(include, excludeDirs, excludeFiles, extensions []string) (*Filter, error) {
	f := &Filter{extensions: make(map[string]bool, len(extensions))}
	for _, ext := range extensions {
		if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" {
			f.extensions[ext] = true
		}
	}

	var err error
	if f.include, err = compileGlobs(include, "include", '/'); err != nil {
		return nil, err
	}
	if f.excludeDirs, err = compileGlobs(excludeDirs, "exclude dir"); err != nil {
		return nil, err
	}
	if f.excludeFiles, err = compileGlobs(excludeFiles, "exclude file"); err != nil {
		return nil, err
	}
	return f, nil
}

func compileGlobs(patterns []string, what string, separators ...rune) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, separators...)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", what, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Ignore drops everything at or below the given absolute paths, e.g. the snapshot database.
func (f *Filter) Ignore(paths ...string) {
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			f.ignored = append(f.ignored, abs)
		}
	}
}

func (f *Filter) isIgnored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, ig := range f.ignored {
		if util.HasPathPrefix(abs, ig) {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory and everything below it is left out.
func (f *Filter) SkipDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range f.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return f.isIgnored(path)
}

// AcceptFile reports whether path, found under root, is a source file.
func (f *Filter) AcceptFile(root, path string) bool {
	base := filepath.Base(path)
	if len(f.extensions) > 0 && !f.extensions[strings.ToLower(filepath.Ext(base))] {
		return false
	}
	for _, g := range f.excludeFiles {
		if g.Match(base) {
			return false
		}
	}
	if f.isIgnored(path) {
		return false
	}
	if len(f.include) == 0 {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = util.NormalizePatternPath(rel)
	for _, g := range f.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Discover walks roots and returns the accepted files sorted by path. A file reachable
// from two roots is listed once.
func (f *Filter) Discover(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && f.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !f.AcceptFile(root, path) || seen[path] {
				return nil
			}
			seen[path] = true
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}
