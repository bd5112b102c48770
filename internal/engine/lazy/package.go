package lazy

import (
	"lazyresolve/internal/engine/declarations"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/storage"
	"lazyresolve/internal/engine/syntax"
)

// PackageDescriptor is a package fragment. Its member scope covers the top-level
// declarations of every file in the package plus its direct sub-packages.
type PackageDescriptor struct {
	session   *Session
	container descriptors.Descriptor
	fq        name.FqName
	provider  declarations.PackageProvider
	members   *memberScope
	forced    *storage.LazyValue[bool]
}

func newPackageDescriptor(s *Session, container descriptors.Descriptor, fq name.FqName, provider declarations.PackageProvider) *PackageDescriptor {
	p := &PackageDescriptor{session: s, container: container, fq: fq, provider: provider}
	p.members = newMemberScope(s, p, provider, &packageHooks{pkg: p}, "package "+fq.String())
	p.forced = storage.NewRecursionTolerantLazyValue(s.storage, func() bool {
		descriptors.ForceResolveAllContents(p.members)
		return true
	}, false)
	return p
}

func (p *PackageDescriptor) Name() name.Name {
	if p.fq.IsRoot() {
		return name.Special("root")
	}
	return p.fq.ShortName()
}

func (p *PackageDescriptor) ContainingDeclaration() descriptors.Descriptor { return p.container }
func (p *PackageDescriptor) Kind() descriptors.Kind                        { return descriptors.KindPackage }
func (p *PackageDescriptor) FqName() name.FqName                           { return p.fq }
func (p *PackageDescriptor) MemberScope() descriptors.Scope                { return p.members }
func (p *PackageDescriptor) Provider() declarations.PackageProvider        { return p.provider }

// ForceResolveAllContents forces every member. Sub-packages are left to the caller, which
// walks the package tree itself.
func (p *PackageDescriptor) ForceResolveAllContents() {
	p.forced.Get()
}

func (p *PackageDescriptor) String() string { return "package " + p.fq.String() }

type packageHooks struct {
	pkg         *PackageDescriptor
	subPackages *storage.NullableMemoizedFunction[name.Name, *PackageDescriptor]
}

func (h *packageHooks) init(s *memberScope) {
	h.subPackages = storage.NewNullableMemoizedFunction(s.session.storage, func(n name.Name) (*PackageDescriptor, bool) {
		return s.session.PackageFragment(h.pkg.fq.Child(n))
	}, storage.Strong)
}

func (h *packageHooks) resolutionScope(decl *syntax.Declaration) descriptors.Scope {
	return h.pkg.session.FileScope(decl.File)
}

func (h *packageHooks) nonDeclaredFunctions(name.Name, []*descriptors.FunctionDescriptor) []*descriptors.FunctionDescriptor {
	return nil
}

func (h *packageHooks) nonDeclaredProperties(name.Name, []descriptors.VariableDescriptor) []descriptors.VariableDescriptor {
	return nil
}

func (h *packageHooks) packageNamed(n name.Name) descriptors.PackageDescriptor {
	if p, ok := h.subPackages.Get(n); ok {
		return p
	}
	return nil
}

func (h *packageHooks) extraDescriptors() []descriptors.Descriptor {
	var out []descriptors.Descriptor
	for _, n := range h.pkg.session.factory.SubPackageNames(h.pkg.fq) {
		if p := h.packageNamed(n); p != nil {
			out = append(out, p)
		}
	}
	return out
}
