// Package lazy builds descriptors on demand. A Session owns every cache; descriptors,
// scopes and their lazy slots are created the first time something looks at them and live
// as long as the session.
package lazy

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/binding"
	"lazyresolve/internal/engine/declarations"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/resolver"
	"lazyresolve/internal/engine/storage"
	"lazyresolve/internal/engine/syntax"
	"lazyresolve/internal/shared/observability"
)

// TypeResolver resolves a type reference in a scope and records the result in trace.
type TypeResolver interface {
	ResolveType(scope descriptors.Scope, ref *syntax.TypeRef, trace *binding.Trace) descriptors.Type
}

// DescriptorResolver turns member declarations into descriptors and records them in trace.
type DescriptorResolver interface {
	ResolveFunction(container descriptors.Descriptor, scope descriptors.Scope, decl *syntax.Declaration, trace *binding.Trace) *descriptors.FunctionDescriptor
	ResolveProperty(container descriptors.Descriptor, scope descriptors.Scope, decl *syntax.Declaration, trace *binding.Trace) *descriptors.PropertyDescriptor
	ResolveConstructor(class descriptors.ClassDescriptor, scope descriptors.Scope, decl *syntax.Declaration, params []*syntax.Declaration, primary bool, trace *binding.Trace) *descriptors.ConstructorDescriptor
	ResolveSupertypes(scope descriptors.Scope, refs []*syntax.TypeRef, trace *binding.Trace) []descriptors.Type
	ResolveAnnotations(owner descriptors.Descriptor, scope descriptors.Scope, refs []*syntax.TypeRef, trace *binding.Trace) []*descriptors.AnnotationDescriptor
}

type Session struct {
	id      string
	logger  *slog.Logger
	storage *storage.Manager
	factory declarations.ProviderFactory
	trace   *binding.Trace
	module  *descriptors.ModuleDescriptor

	types         TypeResolver
	resolver      DescriptorResolver
	fakeOverrides FakeOverrideGenerator

	defaultImports  []*syntax.ImportDirective
	scopeRetention  storage.Retention
	packages        *storage.NullableMemoizedFunction[name.FqName, *PackageDescriptor]
	fileScopes      *storage.MemoizedFunction[*syntax.File, *FileScope]
	defaultImported *storage.LazyValue[*ImportScope]
}

type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStorageManager shares m instead of creating a private manager.
func WithStorageManager(m *storage.Manager) Option {
	return func(s *Session) { s.storage = m }
}

func WithTypeResolver(r TypeResolver) Option {
	return func(s *Session) { s.types = r }
}

func WithDescriptorResolver(r DescriptorResolver) Option {
	return func(s *Session) { s.resolver = r }
}

func WithFakeOverrideGenerator(g FakeOverrideGenerator) Option {
	return func(s *Session) { s.fakeOverrides = g }
}

// WithDefaultImports adds imports every file sees after its own.
func WithDefaultImports(dirs ...*syntax.ImportDirective) Option {
	return func(s *Session) { s.defaultImports = append(s.defaultImports, dirs...) }
}

// WithScopeRetention selects how file scopes are cached. Descriptors are always retained
// strongly because their identity is recorded in the binding trace.
func WithScopeRetention(r storage.Retention) Option {
	return func(s *Session) { s.scopeRetention = r }
}

func WithModuleName(n string) Option {
	return func(s *Session) { s.module = descriptors.NewModuleDescriptor(n) }
}

func NewSession(factory declarations.ProviderFactory, opts ...Option) *Session {
	s := &Session{
		id:            uuid.NewString(),
		logger:        slog.Default(),
		factory:       factory,
		trace:         binding.NewTrace(),
		module:        descriptors.NewModuleDescriptor("main"),
		fakeOverrides: NoFakeOverrides{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)
	if s.storage == nil {
		s.storage = storage.NewManager(storage.WithLogger(s.logger))
	}
	if s.types == nil {
		s.types = resolver.NewTypeResolver(resolver.WithTypeLogger(s.logger))
	}
	if s.resolver == nil {
		s.resolver = resolver.NewDescriptorResolver(s.storage, s.types, s.newTypeParameter)
	}

	s.packages = storage.NewNullableMemoizedFunction(s.storage, s.computePackage, storage.Strong)
	s.fileScopes = storage.NewMemoizedFunction(s.storage, s.computeFileScope, s.scopeRetention)
	s.defaultImported = storage.NewLazyValue(s.storage, func() *ImportScope {
		return newImportScope(s, "default imports", s.module, s.defaultImports, s.rootScope)
	})
	return s
}

func (s *Session) ID() string                       { return s.id }
func (s *Session) Logger() *slog.Logger             { return s.logger }
func (s *Session) StorageManager() *storage.Manager { return s.storage }
func (s *Session) Module() *descriptors.ModuleDescriptor {
	return s.module
}

// BindingContext is the read-only view of everything recorded so far.
func (s *Session) BindingContext() binding.Context {
	return s.trace.Context()
}

// PackageFragment returns the package fq. A package exists only if its parent exists and
// some file declares it or one of its sub-packages.
func (s *Session) PackageFragment(fq name.FqName) (*PackageDescriptor, bool) {
	return s.packages.Get(fq)
}

func (s *Session) RootPackage() *PackageDescriptor {
	root, ok := s.PackageFragment(name.Root)
	if !ok {
		errors.Invariantf("declaration provider factory has no root package")
	}
	return root
}

func (s *Session) computePackage(fq name.FqName) (*PackageDescriptor, bool) {
	var container descriptors.Descriptor = s.module
	if !fq.IsRoot() {
		parent, ok := s.PackageFragment(fq.Parent())
		if !ok {
			return nil, false
		}
		container = parent
	}
	provider, ok := s.factory.PackageMemberDeclarationProvider(fq)
	if !ok {
		return nil, false
	}
	pkg := newPackageDescriptor(s, container, fq, provider)
	s.trace.RecordPackage(pkg)
	observability.PackagesMaterialized.Inc()
	s.logger.Debug("package materialized", "package", fq.String())
	return pkg, true
}

func (s *Session) rootScope() descriptors.Scope {
	return s.RootPackage().MemberScope()
}

// ClassDescriptor materializes the class declared by decl through the scope that owns it
// and reads the result back from the binding trace.
func (s *Session) ClassDescriptor(decl *syntax.Declaration) *ClassDescriptor {
	if !decl.IsClassOrObject() {
		errors.Invariantf("%s is not a class or object", decl.Text())
	}
	if c, ok := s.recordedClass(decl); ok {
		return c
	}

	switch {
	case decl.Parent == nil:
		s.packageOf(decl).members.classesNamed(decl.Name())
	case !decl.Parent.IsClassOrObject():
		errors.Invariantf("local class %s is not supported", decl.Text())
	case decl.Kind == syntax.KindEnumEntry:
		parent := s.ClassDescriptor(decl.Parent)
		if obj := parent.classObject(); obj != nil {
			obj.members.classesNamed(decl.Name())
		}
	case decl.IsCompanion():
		parent := s.ClassDescriptor(decl.Parent)
		parent.ClassObjectDescriptor()
		parent.ExtraCompanionObjects()
		parent.members.classesNamed(decl.Name())
	default:
		s.ClassDescriptor(decl.Parent).members.classesNamed(decl.Name())
	}

	c, ok := s.recordedClass(decl)
	if !ok {
		errors.Invariantf("no descriptor found for declaration %s", decl.Text())
	}
	return c
}

func (s *Session) recordedClass(decl *syntax.Declaration) (*ClassDescriptor, bool) {
	d, ok := s.trace.Context().Class(decl)
	if !ok {
		return nil, false
	}
	c, ok := d.(*ClassDescriptor)
	return c, ok
}

func (s *Session) packageOf(decl *syntax.Declaration) *PackageDescriptor {
	if decl.File == nil {
		errors.Invariantf("declaration %s has no file", decl.Text())
	}
	pkg, ok := s.PackageFragment(decl.File.Package)
	if !ok {
		errors.Invariantf("package %s of %s does not exist", decl.File.Package, decl.Text())
	}
	return pkg
}

// ResolveToDescriptor dispatches on the declaration kind. Kinds without descriptors, such as
// initializer blocks, are fatal.
func (s *Session) ResolveToDescriptor(decl *syntax.Declaration) descriptors.Descriptor {
	switch decl.Kind {
	case syntax.KindClass, syntax.KindObject, syntax.KindEnumEntry:
		return s.ClassDescriptor(decl)
	case syntax.KindFunction:
		s.ownerScope(decl).Functions(decl.Name())
	case syntax.KindProperty:
		s.ownerScope(decl).Properties(decl.Name())
	case syntax.KindTypeParameter:
		s.resolveOwner(decl)
	case syntax.KindParameter:
		s.resolveOwner(decl)
	case syntax.KindConstructor:
		s.ownerClass(decl).Constructors()
	default:
		errors.Invariantf("unsupported declaration kind %s: %s", decl.Kind, decl.Text())
	}
	return s.recorded(decl)
}

func (s *Session) recorded(decl *syntax.Declaration) descriptors.Descriptor {
	d, ok := s.trace.Context().Descriptor(decl)
	if !ok {
		errors.Invariantf("no descriptor found for declaration %s", decl.Text())
	}
	return d
}

// resolveOwner materializes the declaration that owns a parameter or type parameter.
func (s *Session) resolveOwner(decl *syntax.Declaration) {
	owner := decl.Parent
	if owner == nil {
		errors.Invariantf("%s has no owner", decl.Text())
	}
	if owner.IsClassOrObject() {
		c := s.ClassDescriptor(owner)
		if decl.Kind == syntax.KindTypeParameter {
			c.TypeParameters()
		} else {
			c.Constructors()
		}
		return
	}
	s.ResolveToDescriptor(owner)
}

func (s *Session) ownerClass(decl *syntax.Declaration) *ClassDescriptor {
	if decl.Parent == nil || !decl.Parent.IsClassOrObject() {
		errors.Invariantf("%s is not declared in a class", decl.Text())
	}
	return s.ClassDescriptor(decl.Parent)
}

// ownerScope is the member scope that indexes decl.
func (s *Session) ownerScope(decl *syntax.Declaration) *memberScope {
	if decl.Parent == nil {
		return s.packageOf(decl).members
	}
	return s.ownerClass(decl).members
}

// ScopeForDeclaration is the scope decl's signature is resolved in.
func (s *Session) ScopeForDeclaration(decl *syntax.Declaration) descriptors.Scope {
	if decl.Parent == nil {
		return s.FileScope(decl.File)
	}
	if !decl.Parent.IsClassOrObject() {
		return s.ScopeForDeclaration(decl.Parent)
	}
	owner := s.ClassDescriptor(decl.Parent)
	if decl.Kind == syntax.KindEnumEntry {
		if obj := owner.classObject(); obj != nil {
			return obj.ScopeForMemberDeclarationResolution()
		}
	}
	return owner.ScopeForMemberDeclarationResolution()
}

// FileScope returns the scope top-level declarations of file are resolved in.
func (s *Session) FileScope(file *syntax.File) *FileScope {
	return s.fileScopes.Get(file)
}

func (s *Session) computeFileScope(file *syntax.File) *FileScope {
	pkg, ok := s.PackageFragment(file.Package)
	if !ok {
		errors.Invariantf("package %s of file %s does not exist", file.Package, file.Path)
	}
	var explicit, allUnder []*syntax.ImportDirective
	for _, imp := range file.Imports {
		if imp.AllUnder {
			allUnder = append(allUnder, imp)
		} else {
			explicit = append(explicit, imp)
		}
	}
	fs := &FileScope{
		file:     file,
		explicit: newImportScope(s, "explicit imports of "+file.Path, pkg, explicit, s.rootScope),
		allUnder: newImportScope(s, "all-under imports of "+file.Path, pkg, allUnder, s.rootScope),
	}
	fs.ChainedScope = descriptors.NewChainedScope(pkg, "file "+file.Path,
		fs.explicit,
		pkg.MemberScope(),
		fs.allUnder,
		s.defaultImported.Get(),
		s.rootScope(),
	)
	return fs
}

// ForceResolveAll walks every package reachable from the root and forces all of its
// contents. It stops between packages when ctx is done.
func (s *Session) ForceResolveAll(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "lazy.ForceResolveAll")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.id))

	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("force_resolve").Observe(time.Since(start).Seconds())
	}()

	queue := []*PackageDescriptor{s.RootPackage()}
	visited := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		pkg := queue[0]
		queue = queue[1:]
		pkg.ForceResolveAllContents()
		visited++
		for _, sub := range s.factory.SubPackageNames(pkg.FqName()) {
			if child, ok := s.PackageFragment(pkg.FqName().Child(sub)); ok {
				queue = append(queue, child)
			}
		}
	}
	span.SetAttributes(attribute.Int("packages", visited))
	s.logger.Info("force-resolved session", "packages", visited, "duration", time.Since(start))
	return nil
}

// newTypeParameter is the factory handed to the default descriptor resolver.
func (s *Session) newTypeParameter(container descriptors.Descriptor, decl *syntax.Declaration, index int, scope func() descriptors.Scope) descriptors.TypeParameterDescriptor {
	return newTypeParameterDescriptor(s, container, decl, index, scope)
}

// FileScope chains, in order: explicit imports, the file's package, all-under imports,
// default imports and the root package.
type FileScope struct {
	*descriptors.ChainedScope
	file     *syntax.File
	explicit *ImportScope
	allUnder *ImportScope
}

func (f *FileScope) File() *syntax.File { return f.file }

// AllImports lists every import directive of the file in source order, explicit and
// all-under alike.
func (f *FileScope) AllImports() []*syntax.ImportDirective {
	return append([]*syntax.ImportDirective(nil), f.file.Imports...)
}

// ExplicitImports resolves the file's single-name imports.
func (f *FileScope) ExplicitImports() *ImportScope { return f.explicit }

// AllUnderImports resolves the file's ".*" imports.
func (f *FileScope) AllUnderImports() *ImportScope { return f.allUnder }
