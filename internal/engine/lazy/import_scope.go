package lazy

import (
	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/storage"
	"lazyresolve/internal/engine/syntax"
	"lazyresolve/internal/shared/observability"
)

type importResolution struct {
	scope      descriptors.Scope
	introduced []descriptors.Descriptor
}

// ImportScope resolves a list of import directives. Each directive is resolved on its own
// the first time a lookup needs it; lookups visit directives from the last declared to the
// first.
type ImportScope struct {
	session    *Session
	debugName  string
	container  descriptors.Descriptor
	directives []*syntax.ImportDirective
	// pathScope is where the first segment of an import path is looked up.
	pathScope func() descriptors.Scope

	resolutions *storage.MemoizedFunction[*syntax.ImportDirective, *importResolution]
	all         *storage.LazyValue[[]descriptors.Descriptor]

	// Guarded by the storage manager lock.
	underResolution map[*syntax.ImportDirective]bool
}

func newImportScope(s *Session, debugName string, container descriptors.Descriptor, dirs []*syntax.ImportDirective, pathScope func() descriptors.Scope) *ImportScope {
	i := &ImportScope{
		session:         s,
		debugName:       debugName,
		container:       container,
		directives:      dirs,
		pathScope:       pathScope,
		underResolution: make(map[*syntax.ImportDirective]bool),
	}
	i.resolutions = storage.NewMemoizedFunction(s.storage, i.resolveDirective, storage.Strong)
	i.all = storage.NewLazyValue(s.storage, i.computeAllDescriptors)
	return i
}

// AllImports returns the directives in declaration order.
func (i *ImportScope) AllImports() []*syntax.ImportDirective {
	return i.directives
}

// IntroducedDescriptors resolves dir and returns what it brought into scope. An all-under
// import introduces the package or class it names.
func (i *ImportScope) IntroducedDescriptors(dir *syntax.ImportDirective) []descriptors.Descriptor {
	return i.resolutions.Get(dir).introduced
}

func (i *ImportScope) resolveDirective(dir *syntax.ImportDirective) *importResolution {
	i.underResolution[dir] = true
	defer delete(i.underResolution, dir)

	var r *importResolution
	if dir.AllUnder {
		r = i.resolveAllUnder(dir)
	} else {
		r = i.resolveExplicit(dir)
	}
	i.session.trace.RecordImport(dir, r.introduced)
	if len(r.introduced) == 0 {
		i.session.logger.Debug("unresolved import", "import", dir.Text(), "scope", i.debugName)
	}
	return r
}

func (i *ImportScope) resolveAllUnder(dir *syntax.ImportDirective) *importResolution {
	empty := &importResolution{scope: descriptors.Empty(i.container)}
	if dir.Path.IsRoot() {
		return empty
	}
	switch target := i.resolvePath(dir.Path.Segments()).(type) {
	case descriptors.PackageDescriptor:
		return &importResolution{
			scope:      descriptors.NoPackages(target.MemberScope()),
			introduced: []descriptors.Descriptor{target},
		}
	case descriptors.ClassDescriptor:
		scope := descriptors.ClassifiersOnly(target.UnsubstitutedInnerClassesScope())
		if dir.Static {
			scope = target.MemberScope()
		}
		return &importResolution{scope: scope, introduced: []descriptors.Descriptor{target}}
	}
	return empty
}

func (i *ImportScope) resolveExplicit(dir *syntax.ImportDirective) *importResolution {
	alias, _ := dir.ImportedName()
	imported := &aliasScope{container: i.container, alias: alias, debugName: dir.Text()}
	r := &importResolution{scope: imported}

	var lookup descriptors.Scope
	qualifier := dir.Path.Parent()
	if qualifier.IsRoot() {
		lookup = i.pathScope()
	} else {
		switch target := i.resolvePath(qualifier.Segments()).(type) {
		case descriptors.PackageDescriptor:
			lookup = target.MemberScope()
		case descriptors.ClassDescriptor:
			lookup = descriptors.ClassifiersOnly(target.UnsubstitutedInnerClassesScope())
			if dir.Static {
				lookup = target.MemberScope()
			}
		default:
			return r
		}
	}

	n := dir.Path.ShortName()
	imported.classifier = lookup.Classifier(n)
	imported.pkg = lookup.Package(n)
	imported.functions = lookup.Functions(n)
	imported.properties = lookup.Properties(n)
	r.introduced = imported.AllDescriptors()
	return r
}

// resolvePath follows segments from the path scope through packages and nested classes.
// It returns nil when some segment does not resolve.
func (i *ImportScope) resolvePath(segments []name.Name) descriptors.Descriptor {
	var current descriptors.Descriptor
	for idx, seg := range segments {
		if idx == 0 {
			scope := i.pathScope()
			if p := scope.Package(seg); p != nil {
				current = p
			} else if c := scope.Classifier(seg); c != nil {
				current = c
			} else {
				return nil
			}
			continue
		}
		switch c := current.(type) {
		case descriptors.PackageDescriptor:
			members := c.MemberScope()
			if p := members.Package(seg); p != nil {
				current = p
			} else if cls := members.Classifier(seg); cls != nil {
				current = cls
			} else {
				return nil
			}
		case descriptors.ClassDescriptor:
			next := nestedClass(c, seg)
			if next == nil {
				return nil
			}
			current = next
		default:
			return nil
		}
	}
	return current
}

func nestedClass(c descriptors.ClassDescriptor, n name.Name) descriptors.ClassifierDescriptor {
	if nested := c.UnsubstitutedInnerClassesScope().Classifier(n); nested != nil {
		return nested
	}
	if obj := c.ClassObjectDescriptor(); obj != nil {
		return obj.UnsubstitutedInnerClassesScope().Classifier(n)
	}
	return nil
}

// candidates lists the directives that may bind n, last declared first.
func (i *ImportScope) candidates(n name.Name) []*syntax.ImportDirective {
	var out []*syntax.ImportDirective
	for idx := len(i.directives) - 1; idx >= 0; idx-- {
		dir := i.directives[idx]
		if imported, ok := dir.ImportedName(); ok && imported != n {
			continue
		}
		out = append(out, dir)
	}
	return out
}

func (i *ImportScope) isUnderResolution(dir *syntax.ImportDirective) bool {
	var under bool
	i.session.storage.Locked(func() { under = i.underResolution[dir] })
	return under
}

// guard reports whether a lookup reached a directive that is still being resolved. Lookups
// returning several results cannot be answered partially and fail instead.
func (i *ImportScope) guard(dir *syntax.ImportDirective, query string, fatal bool) bool {
	if !i.isUnderResolution(dir) {
		return false
	}
	observability.ImportRecursionGuardHits.WithLabelValues(query).Inc()
	if fatal {
		errors.Invariantf("recursion while resolving %s in %s", dir.Text(), i.debugName)
	}
	i.session.logger.Debug("import lookup reached directive under resolution", "import", dir.Text(), "query", query)
	return true
}

func (i *ImportScope) Classifier(n name.Name) descriptors.ClassifierDescriptor {
	for _, dir := range i.candidates(n) {
		if i.guard(dir, "classifier", false) {
			return nil
		}
		if c := i.resolutions.Get(dir).scope.Classifier(n); c != nil {
			return c
		}
	}
	return nil
}

func (i *ImportScope) Package(n name.Name) descriptors.PackageDescriptor {
	for _, dir := range i.candidates(n) {
		if i.guard(dir, "package", false) {
			return nil
		}
		if p := i.resolutions.Get(dir).scope.Package(n); p != nil {
			return p
		}
	}
	return nil
}

func (i *ImportScope) Functions(n name.Name) []*descriptors.FunctionDescriptor {
	var out []*descriptors.FunctionDescriptor
	seen := make(map[*descriptors.FunctionDescriptor]bool)
	for _, dir := range i.candidates(n) {
		i.guard(dir, "functions", true)
		for _, fn := range i.resolutions.Get(dir).scope.Functions(n) {
			if !seen[fn] {
				seen[fn] = true
				out = append(out, fn)
			}
		}
	}
	return out
}

func (i *ImportScope) Properties(n name.Name) []descriptors.VariableDescriptor {
	var out []descriptors.VariableDescriptor
	seen := make(map[descriptors.VariableDescriptor]bool)
	for _, dir := range i.candidates(n) {
		i.guard(dir, "properties", true)
		for _, p := range i.resolutions.Get(dir).scope.Properties(n) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

func (i *ImportScope) AllDescriptors() []descriptors.Descriptor {
	return i.all.Get()
}

func (i *ImportScope) computeAllDescriptors() []descriptors.Descriptor {
	var out []descriptors.Descriptor
	seen := make(map[descriptors.Descriptor]bool)
	for idx := len(i.directives) - 1; idx >= 0; idx-- {
		dir := i.directives[idx]
		i.guard(dir, "all", true)
		for _, d := range i.resolutions.Get(dir).scope.AllDescriptors() {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}

func (i *ImportScope) ImplicitReceiversHierarchy() []descriptors.ClassDescriptor { return nil }
func (i *ImportScope) ContainingDeclaration() descriptors.Descriptor             { return i.container }
func (i *ImportScope) String() string                                            { return i.debugName }

// aliasScope exposes what one explicit import found under the name it binds.
type aliasScope struct {
	container  descriptors.Descriptor
	alias      name.Name
	debugName  string
	classifier descriptors.ClassifierDescriptor
	pkg        descriptors.PackageDescriptor
	functions  []*descriptors.FunctionDescriptor
	properties []descriptors.VariableDescriptor
}

func (a *aliasScope) Classifier(n name.Name) descriptors.ClassifierDescriptor {
	if n != a.alias {
		return nil
	}
	return a.classifier
}

func (a *aliasScope) Package(n name.Name) descriptors.PackageDescriptor {
	if n != a.alias {
		return nil
	}
	return a.pkg
}

func (a *aliasScope) Functions(n name.Name) []*descriptors.FunctionDescriptor {
	if n != a.alias {
		return nil
	}
	return a.functions
}

func (a *aliasScope) Properties(n name.Name) []descriptors.VariableDescriptor {
	if n != a.alias {
		return nil
	}
	return a.properties
}

func (a *aliasScope) AllDescriptors() []descriptors.Descriptor {
	var out []descriptors.Descriptor
	if a.classifier != nil {
		out = append(out, a.classifier)
	}
	if a.pkg != nil {
		out = append(out, a.pkg)
	}
	for _, fn := range a.functions {
		out = append(out, fn)
	}
	for _, p := range a.properties {
		out = append(out, p)
	}
	return out
}

func (a *aliasScope) ImplicitReceiversHierarchy() []descriptors.ClassDescriptor { return nil }
func (a *aliasScope) ContainingDeclaration() descriptors.Descriptor             { return a.container }
func (a *aliasScope) String() string                                            { return "import " + a.debugName }
