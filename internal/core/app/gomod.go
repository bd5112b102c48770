package app

import (
	"os"
	"path"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// detectGoModule finds the go.mod governing the first root that has one and returns the
// import path of that root: the module path, extended by the root's location inside the
// module. Go packages are named by their directory below the root, so imports only line
// up with them when the root's own import path is stripped.
func detectGoModule(roots []string) string {
	for _, root := range roots {
		dir := root
		for {
			data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
			if err == nil {
				module := modfile.ModulePath(data)
				if module == "" {
					break
				}
				rel, err := filepath.Rel(dir, root)
				if err != nil || rel == "." {
					return module
				}
				return path.Join(module, filepath.ToSlash(rel))
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return ""
}
