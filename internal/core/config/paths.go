package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ResolvedPaths are the configured paths made absolute against a base directory.
type ResolvedPaths struct {
	BaseDir string
	Roots   []string
	DBPath  string
}

// ResolvePaths anchors relative roots and the database path at base, which is normally
// the directory holding the config file. Duplicate roots collapse to their first occurrence.
func ResolvePaths(cfg *Config, base string) (ResolvedPaths, error) {
	if strings.TrimSpace(base) == "" {
		return ResolvedPaths{}, fmt.Errorf("base directory must not be empty")
	}
	baseDir, err := filepath.Abs(base)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("resolve base %q: %w", base, err)
	}

	out := ResolvedPaths{BaseDir: baseDir, DBPath: anchor(baseDir, cfg.DB.Path)}
	for _, root := range cfg.Sources.Roots {
		if r := anchor(baseDir, root); !slices.Contains(out.Roots, r) {
			out.Roots = append(out.Roots, r)
		}
	}
	return out, nil
}

// anchor makes p absolute relative to base. Blank means base itself.
func anchor(base, p string) string {
	p = strings.TrimSpace(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}

// FindUpward looks for name in dir and each of its parents, nearest first.
func FindUpward(dir, name string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
