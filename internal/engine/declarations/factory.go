package declarations

import (
	"sort"
	"sync"

	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

// ProviderFactory hands out declaration providers for packages and class bodies.
type ProviderFactory interface {
	// PackageMemberDeclarationProvider reports false when no file declares fq or one of its
	// sub-packages. The root package always exists.
	PackageMemberDeclarationProvider(fq name.FqName) (PackageProvider, bool)
	// SubPackageNames lists the direct child segments of fq, sorted.
	SubPackageNames(fq name.FqName) []name.Name
	ClassMemberDeclarationProvider(info *ClassInfo) ClassProvider
}

// FileFactory is a ProviderFactory over a fixed set of parsed files.
type FileFactory struct {
	files     []*syntax.File
	byPackage map[name.FqName][]*syntax.File
	children  map[name.FqName][]name.Name

	mu       sync.Mutex
	packages map[name.FqName]PackageProvider
}

func NewFileFactory(files []*syntax.File) *FileFactory {
	f := &FileFactory{
		files:     files,
		byPackage: make(map[name.FqName][]*syntax.File),
		children:  make(map[name.FqName][]name.Name),
		packages:  make(map[name.FqName]PackageProvider),
	}
	known := map[name.FqName]bool{name.Root: true}
	for _, file := range files {
		f.byPackage[file.Package] = append(f.byPackage[file.Package], file)
		for fq := file.Package; !known[fq]; fq = fq.Parent() {
			known[fq] = true
			parent := fq.Parent()
			f.children[parent] = append(f.children[parent], fq.ShortName())
		}
	}
	for _, names := range f.children {
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	}
	return f
}

func (f *FileFactory) Files() []*syntax.File { return f.files }

func (f *FileFactory) exists(fq name.FqName) bool {
	if fq.IsRoot() {
		return true
	}
	if _, ok := f.byPackage[fq]; ok {
		return true
	}
	_, ok := f.children[fq]
	return ok
}

func (f *FileFactory) PackageMemberDeclarationProvider(fq name.FqName) (PackageProvider, bool) {
	if !f.exists(fq) {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.packages[fq]; ok {
		return p, true
	}
	p := NewPackageProvider(fq, f.byPackage[fq])
	f.packages[fq] = p
	return p, true
}

func (f *FileFactory) SubPackageNames(fq name.FqName) []name.Name {
	return f.children[fq]
}

// ClassMemberDeclarationProvider returns the body provider for info. Enum bodies hide their
// entries, which are exposed through the enum's synthetic class object instead.
func (f *FileFactory) ClassMemberDeclarationProvider(info *ClassInfo) ClassProvider {
	switch {
	case info.IsSynthetic():
		base := NewClassProvider(NewClassInfo(info.Declaration))
		return Filter(base, info, isEnumEntry)
	case info.Kind == syntax.ClassKindEnum:
		return Filter(NewClassProvider(info), info, func(d *syntax.Declaration) bool {
			return !isEnumEntry(d)
		})
	default:
		return NewClassProvider(info)
	}
}

func isEnumEntry(d *syntax.Declaration) bool {
	return d.Kind == syntax.KindEnumEntry
}
