package lazy

import (
	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/declarations"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/storage"
	"lazyresolve/internal/engine/syntax"
)

// memberHooks is what package and class member scopes do differently.
type memberHooks interface {
	init(s *memberScope)
	// resolutionScope is the scope a member declaration's signature is resolved in.
	resolutionScope(decl *syntax.Declaration) descriptors.Scope
	nonDeclaredFunctions(n name.Name, declared []*descriptors.FunctionDescriptor) []*descriptors.FunctionDescriptor
	nonDeclaredProperties(n name.Name, declared []descriptors.VariableDescriptor) []descriptors.VariableDescriptor
	packageNamed(n name.Name) descriptors.PackageDescriptor
	// extraDescriptors are members with no declaration, such as sub-packages.
	extraDescriptors() []descriptors.Descriptor
}

// memberScope resolves the members of a package or class from its declaration index. Each
// lookup is memoized per name and adds what it creates to the all-descriptors collection;
// AllDescriptors routes every indexed declaration through those lookups once and then
// closes the collection.
type memberScope struct {
	session   *Session
	container descriptors.Descriptor
	provider  declarations.Provider
	hooks     memberHooks
	debugName string

	classes    *storage.MemoizedFunction[name.Name, []*ClassDescriptor]
	functions  *storage.MemoizedFunction[name.Name, []*descriptors.FunctionDescriptor]
	properties *storage.MemoizedFunction[name.Name, []descriptors.VariableDescriptor]
	all        *storage.LazyValue[[]descriptors.Descriptor]

	// Guarded by the storage manager lock: only memoized computations touch them.
	collected   []descriptors.Descriptor
	allComputed bool
}

func newMemberScope(s *Session, container descriptors.Descriptor, provider declarations.Provider, hooks memberHooks, debugName string) *memberScope {
	m := &memberScope{
		session:   s,
		container: container,
		provider:  provider,
		hooks:     hooks,
		debugName: debugName,
	}
	m.classes = storage.NewMemoizedFunction(s.storage, m.computeClasses, storage.Strong)
	m.functions = storage.NewMemoizedFunction(s.storage, m.computeFunctions, storage.Strong)
	m.properties = storage.NewMemoizedFunction(s.storage, m.computeProperties, storage.Strong)
	m.all = storage.NewLazyValue(s.storage, m.computeAllDescriptors)
	hooks.init(m)
	return m
}

func (m *memberScope) register(ds ...descriptors.Descriptor) {
	if m.allComputed {
		errors.Invariantf("all descriptors of %s are already computed, cannot register %s",
			m.debugName, descriptors.Render(ds[0]))
	}
	m.collected = append(m.collected, ds...)
}

func (m *memberScope) computeClasses(n name.Name) []*ClassDescriptor {
	decls := m.provider.ClassOrObjectDeclarations(n)
	out := make([]*ClassDescriptor, 0, len(decls))
	for _, d := range decls {
		c := m.session.newClass(m.container, declarations.NewClassInfo(d))
		m.session.trace.RecordClass(d, c)
		m.register(c)
		out = append(out, c)
	}
	return out
}

// classesNamed materializes every class declared under n, duplicates included.
func (m *memberScope) classesNamed(n name.Name) []*ClassDescriptor {
	return m.classes.Get(n)
}

// classFor returns the descriptor created for decl, which must be indexed by this scope.
func (m *memberScope) classFor(decl *syntax.Declaration) *ClassDescriptor {
	for _, c := range m.classes.Get(decl.Name()) {
		if c.info.Declaration == decl {
			return c
		}
	}
	errors.Invariantf("%s is not indexed by %s", decl.Text(), m.debugName)
	return nil
}

func (m *memberScope) computeFunctions(n name.Name) []*descriptors.FunctionDescriptor {
	var out []*descriptors.FunctionDescriptor
	for _, d := range m.provider.FunctionDeclarations(n) {
		fn := m.session.resolver.ResolveFunction(m.container, m.hooks.resolutionScope(d), d, m.session.trace)
		out = append(out, fn)
	}
	out = append(out, m.hooks.nonDeclaredFunctions(n, out)...)
	for _, fn := range out {
		m.register(fn)
	}
	return out
}

func (m *memberScope) computeProperties(n name.Name) []descriptors.VariableDescriptor {
	var out []descriptors.VariableDescriptor
	for _, d := range m.provider.PropertyDeclarations(n) {
		p := m.session.resolver.ResolveProperty(m.container, m.hooks.resolutionScope(d), d, m.session.trace)
		out = append(out, p)
	}
	out = append(out, m.hooks.nonDeclaredProperties(n, out)...)
	for _, p := range out {
		m.register(p)
	}
	return out
}

func (m *memberScope) computeAllDescriptors() []descriptors.Descriptor {
	for _, d := range m.provider.AllDeclarations() {
		switch d.Kind {
		case syntax.KindClass, syntax.KindObject, syntax.KindEnumEntry:
			m.classes.Get(d.Name())
		case syntax.KindFunction:
			m.functions.Get(d.Name())
		case syntax.KindProperty:
			m.properties.Get(d.Name())
		case syntax.KindConstructor:
			// Constructors are not members; classes expose them separately.
		default:
			errors.Invariantf("unsupported declaration kind %s in %s", d.Kind, m.debugName)
		}
	}
	if extra := m.hooks.extraDescriptors(); len(extra) > 0 {
		m.register(extra...)
	}
	m.allComputed = true
	return m.collected
}

func (m *memberScope) Classifier(n name.Name) descriptors.ClassifierDescriptor {
	if cs := m.classes.Get(n); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

func (m *memberScope) Package(n name.Name) descriptors.PackageDescriptor {
	return m.hooks.packageNamed(n)
}

func (m *memberScope) Functions(n name.Name) []*descriptors.FunctionDescriptor {
	return m.functions.Get(n)
}

func (m *memberScope) Properties(n name.Name) []descriptors.VariableDescriptor {
	return m.properties.Get(n)
}

// AllDescriptors returns the same slice on every call.
func (m *memberScope) AllDescriptors() []descriptors.Descriptor {
	return m.all.Get()
}

func (m *memberScope) ImplicitReceiversHierarchy() []descriptors.ClassDescriptor { return nil }
func (m *memberScope) ContainingDeclaration() descriptors.Descriptor             { return m.container }
func (m *memberScope) String() string                                            { return m.debugName }

// ForceResolveAllContents forces every member except sub-packages.
func (m *memberScope) ForceResolveAllContents() {
	for _, d := range m.AllDescriptors() {
		if _, ok := d.(descriptors.PackageDescriptor); ok {
			continue
		}
		descriptors.ForceResolveAllContents(d)
	}
}
