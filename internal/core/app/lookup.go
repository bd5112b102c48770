package app

import (
	"sort"
	"strings"
	"time"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/binding"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/lazy"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/shared/util"
)

// Lookup resolves a qualified name against the current session. It returns the package
// with that name and every classifier, function and property whose qualified name it is.
// An invariant violation while resolving is returned as an error.
func (a *App) Lookup(fq string) (out []descriptors.Descriptor, err error) {
	snap := a.current.Load()
	if snap == nil {
		return nil, errors.New(errors.CodeNotFound, "no session has been built")
	}
	target := name.Parse(strings.TrimSpace(fq))
	if target.IsRoot() {
		return nil, errors.New(errors.CodeValidationError, "lookup needs a qualified name")
	}

	defer errors.Recover(&err)
	out = lookupDescriptors(snap.Session, target)
	if len(out) == 0 {
		return nil, errors.AddContext(errors.New(errors.CodeNotFound, "symbol not found"), errors.CtxSymbol, fq)
	}
	return out, nil
}

func lookupDescriptors(s *lazy.Session, fq name.FqName) []descriptors.Descriptor {
	var out []descriptors.Descriptor
	seen := make(map[descriptors.Descriptor]bool)
	add := func(ds ...descriptors.Descriptor) {
		for _, d := range ds {
			if d != nil && !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}

	if pkg, ok := s.PackageFragment(fq); ok {
		add(pkg)
	}
	// Every package prefix is a candidate container: a.b.C.f may be member f of class C
	// in package a.b, or nested class C.f of class b in package a.
	segments := fq.Segments()
	for i := len(segments) - 1; i >= 0; i-- {
		pkg, ok := s.PackageFragment(name.FromSegments(segments[:i]...))
		if !ok {
			continue
		}
		add(lookupMember(pkg.MemberScope(), segments[i:])...)
	}
	return out
}

func lookupMember(scope descriptors.Scope, path []name.Name) []descriptors.Descriptor {
	for len(path) > 1 {
		class, ok := scope.Classifier(path[0]).(descriptors.ClassDescriptor)
		if !ok {
			return nil
		}
		scope = class.MemberScope()
		path = path[1:]
	}

	var out []descriptors.Descriptor
	if c := scope.Classifier(path[0]); c != nil {
		out = append(out, c)
	}
	for _, f := range scope.Functions(path[0]) {
		out = append(out, f)
	}
	for _, p := range scope.Properties(path[0]) {
		out = append(out, p)
	}
	return out
}

// Summary describes the current snapshot.
type Summary struct {
	SessionID       string
	RunID           string
	GoModule        string
	Files           int
	FilesByLanguage map[string]int
	ParseErrors     []string
	Descriptors     map[string]int
	Trace           binding.Stats
	BuiltAt         time.Time
	BuildDuration   time.Duration
	HeapAllocMB     uint64
}

// Summary counts the descriptors of the current session by kind. Anything not resolved
// yet is resolved on the way.
func (a *App) Summary() (sum Summary, err error) {
	snap := a.current.Load()
	if snap == nil {
		return Summary{}, errors.New(errors.CodeNotFound, "no session has been built")
	}
	defer errors.Recover(&err)

	sum = Summary{
		SessionID:       snap.Session.ID(),
		RunID:           snap.RunID,
		GoModule:        snap.GoModule,
		Files:           len(snap.Files),
		FilesByLanguage: snap.Languages,
		ParseErrors:     util.SortedStringKeys(snap.ParseErrors),
		Descriptors:     make(map[string]int),
		BuiltAt:         snap.BuiltAt,
		BuildDuration:   snap.Duration,
	}
	descriptors.Walk(snap.Session.RootPackage(), func(d descriptors.Descriptor, _ int) bool {
		sum.Descriptors[d.Kind().String()]++
		return true
	})
	sum.Trace = snap.Session.BindingContext().Stats()
	sum.HeapAllocMB = util.HeapAllocMB()
	return sum, nil
}

// UnresolvedImport is an import directive that brought nothing into scope.
type UnresolvedImport struct {
	File   string
	Line   int
	Import string
}

// UnresolvedImports resolves every import of every file and lists those that introduce
// nothing, ordered by file and line. Imports of code outside the source roots show up
// here too.
func (a *App) UnresolvedImports() (out []UnresolvedImport, err error) {
	snap := a.current.Load()
	if snap == nil {
		return nil, errors.New(errors.CodeNotFound, "no session has been built")
	}
	defer errors.Recover(&err)

	for _, f := range snap.Files {
		fs := snap.Session.FileScope(f)
		for _, dir := range f.Imports {
			scope := fs.ExplicitImports()
			if dir.AllUnder {
				scope = fs.AllUnderImports()
			}
			if len(scope.IntroducedDescriptors(dir)) > 0 {
				continue
			}
			out = append(out, UnresolvedImport{File: f.Path, Line: dir.Pos.Line, Import: dir.Text()})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out, nil
}
