package lazy

import (
	"lazyresolve/internal/engine/declarations"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/storage"
	"lazyresolve/internal/engine/syntax"
	"lazyresolve/internal/shared/observability"
)

// ClassDescriptor is a class, interface, enum, object or enum entry whose every derived
// property is computed on first read. Identity fields and the member scope wrapper are set
// at construction; lookups inside the member scope stay lazy.
type ClassDescriptor struct {
	session   *Session
	container descriptors.Descriptor
	info      *declarations.ClassInfo
	name      name.Name
	kind      syntax.ClassKind
	// outer is the scope enclosing the class header.
	outer func() descriptors.Scope

	constructor  *descriptors.ClassifierConstructor
	provider     declarations.ClassProvider
	members      *memberScope
	innerClasses descriptors.Scope

	typeParameters   *storage.LazyValue[[]descriptors.TypeParameterDescriptor]
	supertypes       *storage.LazyValue[[]descriptors.Type]
	classObjectSlot  *storage.NullableLazyValue[*ClassDescriptor]
	extraCompanions  *storage.LazyValue[[]*ClassDescriptor]
	annotations      *storage.LazyValue[[]*descriptors.AnnotationDescriptor]
	constructors     *storage.LazyValue[[]*descriptors.ConstructorDescriptor]
	defaultType      *storage.LazyValue[descriptors.Type]
	headerScope      *storage.LazyValue[descriptors.Scope]
	memberDeclScope  *storage.LazyValue[descriptors.Scope]
	initializerScope *storage.LazyValue[descriptors.Scope]
	staticScope      *storage.LazyValue[descriptors.Scope]
	forced           *storage.LazyValue[bool]
}

// newClass creates the descriptor for info inside container, which is either a package or
// the enclosing class.
func (s *Session) newClass(container descriptors.Descriptor, info *declarations.ClassInfo) *ClassDescriptor {
	var outer func() descriptors.Scope
	switch parent := container.(type) {
	case *ClassDescriptor:
		if !info.IsSynthetic() && info.Declaration.IsInner() {
			outer = parent.ScopeForMemberDeclarationResolution
		} else {
			outer = parent.staticScope.Get
		}
	default:
		file := info.Declaration.File
		outer = func() descriptors.Scope { return s.FileScope(file) }
	}
	c := newClassDescriptor(s, container, info, outer)
	observability.ClassesMaterialized.Inc()
	s.logger.Debug("class materialized", "class", string(descriptors.FqNameOf(c)), "kind", info.Kind.String())
	return c
}

func newClassDescriptor(s *Session, container descriptors.Descriptor, info *declarations.ClassInfo, outer func() descriptors.Scope) *ClassDescriptor {
	c := &ClassDescriptor{
		session:   s,
		container: container,
		info:      info,
		name:      info.Name,
		kind:      info.Kind,
		outer:     outer,
	}
	m := s.storage
	c.constructor = &descriptors.ClassifierConstructor{
		Owner:          c,
		SupertypesFunc: c.Supertypes,
		ParametersFunc: c.TypeParameters,
	}
	c.provider = s.factory.ClassMemberDeclarationProvider(info)
	c.members = newMemberScope(s, c, c.provider, &classHooks{class: c}, "class "+string(info.Name))
	c.innerClasses = descriptors.ClassifiersOnly(c.members)

	c.typeParameters = storage.NewLazyValue(m, c.computeTypeParameters)
	c.supertypes = storage.NewLazyValueWithPostCompute(m, c.computeSupertypes,
		func() []descriptors.Type { return nil },
		c.disconnectLoops)
	c.classObjectSlot = storage.NewNullableLazyValue(m, c.computeClassObject)
	c.extraCompanions = storage.NewLazyValue(m, c.computeExtraCompanions)
	c.annotations = storage.NewLazyValue(m, func() []*descriptors.AnnotationDescriptor {
		return s.resolver.ResolveAnnotations(c, c.outer(), info.Annotations(), s.trace)
	})
	c.constructors = storage.NewLazyValue(m, c.computeConstructors)
	c.defaultType = storage.NewLazyValue(m, func() descriptors.Type {
		return descriptors.DefaultTypeOf(c, c.TypeParameters())
	})
	c.headerScope = storage.NewLazyValue(m, c.computeHeaderScope)
	c.memberDeclScope = storage.NewLazyValue(m, c.computeMemberDeclarationScope)
	c.initializerScope = storage.NewLazyValue(m, c.computeInitializerScope)
	c.staticScope = storage.NewLazyValue(m, c.computeStaticScope)
	c.forced = storage.NewRecursionTolerantLazyValue(m, c.computeForceResolve, false)
	return c
}

func (c *ClassDescriptor) Name() name.Name                               { return c.name }
func (c *ClassDescriptor) ContainingDeclaration() descriptors.Descriptor { return c.container }
func (c *ClassDescriptor) Kind() descriptors.Kind                        { return descriptors.KindClass }
func (c *ClassDescriptor) ClassKind() syntax.ClassKind                   { return c.kind }
func (c *ClassDescriptor) Info() *declarations.ClassInfo                 { return c.info }

// Declaration is nil for a synthesized enum class object.
func (c *ClassDescriptor) Declaration() *syntax.Declaration {
	if c.info.IsSynthetic() {
		return nil
	}
	return c.info.Declaration
}

func (c *ClassDescriptor) IsInner() bool {
	return !c.info.IsSynthetic() && c.info.Declaration.IsInner()
}

func (c *ClassDescriptor) Modality() descriptors.Modality {
	switch {
	case c.kind == syntax.ClassKindInterface || c.kind == syntax.ClassKindAnnotation:
		return descriptors.Abstract
	case c.kind.IsSingleton() || c.info.IsSynthetic():
		return descriptors.Final
	}
	return descriptors.ModalityOf(c.info.Modifiers(), descriptors.Final)
}

func (c *ClassDescriptor) Visibility() descriptors.Visibility {
	return descriptors.VisibilityOf(c.info.Modifiers())
}

func (c *ClassDescriptor) TypeConstructor() descriptors.TypeConstructor { return c.constructor }
func (c *ClassDescriptor) DefaultType() descriptors.Type                { return c.defaultType.Get() }
func (c *ClassDescriptor) MemberScope() descriptors.Scope               { return c.members }
func (c *ClassDescriptor) UnsubstitutedInnerClassesScope() descriptors.Scope {
	return c.innerClasses
}

func (c *ClassDescriptor) TypeParameters() []descriptors.TypeParameterDescriptor {
	return c.typeParameters.Get()
}

func (c *ClassDescriptor) computeTypeParameters() []descriptors.TypeParameterDescriptor {
	decls := c.info.TypeParameters()
	out := make([]descriptors.TypeParameterDescriptor, len(decls))
	for i, d := range decls {
		tp := newTypeParameterDescriptor(c.session, c, d, i, c.ScopeForClassHeaderResolution)
		c.session.trace.RecordDeclaration(d, tp)
		out[i] = tp
	}
	return out
}

// Supertypes returns the resolved supertypes with every edge that would close a cycle
// removed.
func (c *ClassDescriptor) Supertypes() []descriptors.Type {
	return c.supertypes.Get()
}

func (c *ClassDescriptor) computeSupertypes() []descriptors.Type {
	s := c.session
	types := s.resolver.ResolveSupertypes(c.ScopeForClassHeaderResolution(), c.info.SuperTypes(), s.trace)
	if c.kind == syntax.ClassKindEnumEntry {
		if enum := c.enclosingEnum(); enum != nil {
			types = append([]descriptors.Type{enum.DefaultType()}, types...)
		}
	}
	return types
}

func (c *ClassDescriptor) enclosingEnum() *ClassDescriptor {
	for d := c.container; d != nil; d = d.ContainingDeclaration() {
		if cls, ok := d.(*ClassDescriptor); ok && cls.kind == syntax.ClassKindEnum {
			return cls
		}
	}
	return nil
}

// disconnectLoops drops each supertype from which this class is reachable again. It runs
// while the unfiltered list is visible to this goroutine, so a walk that comes back here
// terminates on the visited set instead of recomputing.
func (c *ClassDescriptor) disconnectLoops(types []descriptors.Type) []descriptors.Type {
	kept := make([]descriptors.Type, 0, len(types))
	for _, t := range types {
		if c.reachableFrom(t.Constructor()) {
			observability.SupertypeEdgesRemoved.Inc()
			c.session.logger.Info("removed cyclic supertype",
				"class", string(descriptors.FqNameOf(c)), "supertype", t.String())
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func (c *ClassDescriptor) reachableFrom(start descriptors.TypeConstructor) bool {
	visited := make(map[descriptors.TypeConstructor]bool)
	stack := []descriptors.TypeConstructor{start}
	for len(stack) > 0 {
		tc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if tc == descriptors.TypeConstructor(c.constructor) {
			return true
		}
		if visited[tc] {
			continue
		}
		visited[tc] = true
		for _, st := range tc.Supertypes() {
			stack = append(stack, st.Constructor())
		}
	}
	return false
}

// ClassObjectDescriptor returns the companion object, or the synthesized class object of
// an enum. It returns nil when neither applies.
func (c *ClassDescriptor) ClassObjectDescriptor() descriptors.ClassDescriptor {
	if obj := c.classObject(); obj != nil {
		return obj
	}
	return nil
}

func (c *ClassDescriptor) classObject() *ClassDescriptor {
	obj, _ := c.classObjectSlot.Get()
	return obj
}

// allowsClassObject is false for singletons, inner classes and class objects themselves.
func (c *ClassDescriptor) allowsClassObject() bool {
	return !c.info.IsSynthetic() && !c.kind.IsSingleton() && !c.info.Declaration.IsInner()
}

func (c *ClassDescriptor) computeClassObject() (*ClassDescriptor, bool) {
	if !c.allowsClassObject() {
		return nil, false
	}
	if c.kind == syntax.ClassKindEnum {
		return c.session.newClass(c, declarations.EnumClassObjectInfo(c.info.Declaration)), true
	}
	if companions := c.info.CompanionDeclarations(); len(companions) > 0 {
		return c.members.classFor(companions[0]), true
	}
	return nil, false
}

// ExtraCompanionObjects are the companions that did not become the class object.
func (c *ClassDescriptor) ExtraCompanionObjects() []*ClassDescriptor {
	return c.extraCompanions.Get()
}

func (c *ClassDescriptor) computeExtraCompanions() []*ClassDescriptor {
	companions := c.info.CompanionDeclarations()
	if len(companions) == 0 {
		return nil
	}
	if c.allowsClassObject() && c.kind != syntax.ClassKindEnum {
		companions = companions[1:]
	}
	out := make([]*ClassDescriptor, 0, len(companions))
	for _, d := range companions {
		out = append(out, c.members.classFor(d))
	}
	return out
}

func (c *ClassDescriptor) Annotations() []*descriptors.AnnotationDescriptor {
	return c.annotations.Get()
}

func (c *ClassDescriptor) Constructors() []*descriptors.ConstructorDescriptor {
	return c.constructors.Get()
}

// PrimaryConstructor returns nil when the class declares none.
func (c *ClassDescriptor) PrimaryConstructor() *descriptors.ConstructorDescriptor {
	for _, ctor := range c.Constructors() {
		if ctor.IsPrimary {
			return ctor
		}
	}
	return nil
}

func (c *ClassDescriptor) computeConstructors() []*descriptors.ConstructorDescriptor {
	if c.info.IsSynthetic() {
		return nil
	}
	s := c.session
	scope := c.ScopeForMemberDeclarationResolution()
	var out []*descriptors.ConstructorDescriptor
	if c.info.Declaration.HasPrimaryConstructor {
		out = append(out, s.resolver.ResolveConstructor(c, scope, nil, c.info.PrimaryConstructorParameters(), true, s.trace))
	}
	for _, d := range c.provider.ConstructorDeclarations() {
		out = append(out, s.resolver.ResolveConstructor(c, scope, d, d.ValueParameters, false, s.trace))
	}
	if len(out) == 0 && (c.kind == syntax.ClassKindClass || c.kind == syntax.ClassKindEnum) {
		out = append(out, s.resolver.ResolveConstructor(c, scope, nil, nil, false, s.trace))
	}
	return out
}

// ScopeForClassHeaderResolution sees the class's type parameters in front of the
// enclosing scope.
func (c *ClassDescriptor) ScopeForClassHeaderResolution() descriptors.Scope {
	return c.headerScope.Get()
}

func (c *ClassDescriptor) computeHeaderScope() descriptors.Scope {
	params := descriptors.NewLocalScope(c, "type parameters of "+string(c.name))
	for _, tp := range c.TypeParameters() {
		params.AddClassifier(tp)
	}
	return descriptors.NewChainedScope(c, "header of "+string(c.name), params, c.outer())
}

// ScopeForMemberDeclarationResolution adds the implicit receiver, the members and the class
// object's members to the header scope.
func (c *ClassDescriptor) ScopeForMemberDeclarationResolution() descriptors.Scope {
	return c.memberDeclScope.Get()
}

func (c *ClassDescriptor) computeMemberDeclarationScope() descriptors.Scope {
	this := descriptors.NewLocalScope(c, "this of "+string(c.name)).AddReceiver(c)
	var objectMembers descriptors.Scope
	if obj := c.classObject(); obj != nil {
		objectMembers = obj.MemberScope()
	}
	return descriptors.NewChainedScope(c, "member declarations of "+string(c.name),
		this, c.members, objectMembers, c.ScopeForClassHeaderResolution())
}

// ScopeForInitializerResolution adds the primary constructor parameters.
func (c *ClassDescriptor) ScopeForInitializerResolution() descriptors.Scope {
	return c.initializerScope.Get()
}

func (c *ClassDescriptor) computeInitializerScope() descriptors.Scope {
	params := descriptors.NewLocalScope(c, "primary constructor of "+string(c.name))
	if primary := c.PrimaryConstructor(); primary != nil {
		for _, p := range primary.ValueParameters {
			params.AddVariable(p)
		}
	}
	return descriptors.NewChainedScope(c, "initializers of "+string(c.name),
		params, c.ScopeForMemberDeclarationResolution())
}

// computeStaticScope is what nested non-inner classes see: nested classifiers and the class
// object, but no type parameters and no receiver.
func (c *ClassDescriptor) computeStaticScope() descriptors.Scope {
	var objectClassifiers descriptors.Scope
	if obj := c.classObject(); obj != nil {
		objectClassifiers = obj.UnsubstitutedInnerClassesScope()
	}
	return descriptors.NewChainedScope(c, "static scope of "+string(c.name),
		c.innerClasses, objectClassifiers, c.outer())
}

// DeclaredCallableMembers lists the functions and properties written in the class body.
func (c *ClassDescriptor) DeclaredCallableMembers() []descriptors.Descriptor {
	var out []descriptors.Descriptor
	for _, d := range c.members.AllDescriptors() {
		switch m := d.(type) {
		case *descriptors.FunctionDescriptor:
			if m.CallableKind == descriptors.Declared {
				out = append(out, m)
			}
		case *descriptors.PropertyDescriptor:
			if m.CallableKind == descriptors.Declared {
				out = append(out, m)
			}
		}
	}
	return out
}

// ResolveMemberHeaders computes every header-level slot without descending into members.
func (c *ClassDescriptor) ResolveMemberHeaders() {
	c.Annotations()
	c.ClassObjectDescriptor()
	c.ExtraCompanionObjects()
	c.TypeParameters()
	c.Supertypes()
	c.Constructors()
	c.DefaultType()
	c.ScopeForClassHeaderResolution()
	c.ScopeForMemberDeclarationResolution()
	c.ScopeForInitializerResolution()
}

// ForceResolveAllContents computes every slot and forces every member. A class reached
// again while it is being forced is skipped.
func (c *ClassDescriptor) ForceResolveAllContents() {
	c.forced.Get()
}

func (c *ClassDescriptor) computeForceResolve() bool {
	c.ResolveMemberHeaders()
	descriptors.ForceResolveAllContents(c.Annotations())
	descriptors.ForceResolveAllContents(c.TypeParameters())
	descriptors.ForceResolveAllContents(c.Supertypes())
	descriptors.ForceResolveAllContents(c.Constructors())
	descriptors.ForceResolveAllContents(c.members)
	if obj := c.classObject(); obj != nil {
		obj.ForceResolveAllContents()
	}
	for _, extra := range c.ExtraCompanionObjects() {
		extra.ForceResolveAllContents()
	}
	return true
}

func (c *ClassDescriptor) String() string {
	return descriptors.Render(c)
}

type classHooks struct {
	class *ClassDescriptor
}

func (h *classHooks) init(*memberScope) {}

func (h *classHooks) resolutionScope(*syntax.Declaration) descriptors.Scope {
	return h.class.ScopeForMemberDeclarationResolution()
}

func (h *classHooks) nonDeclaredFunctions(n name.Name, declared []*descriptors.FunctionDescriptor) []*descriptors.FunctionDescriptor {
	return h.class.session.fakeOverrides.Functions(h.class, n, declared)
}

func (h *classHooks) nonDeclaredProperties(n name.Name, declared []descriptors.VariableDescriptor) []descriptors.VariableDescriptor {
	return h.class.session.fakeOverrides.Properties(h.class, n, declared)
}

func (h *classHooks) packageNamed(name.Name) descriptors.PackageDescriptor { return nil }

func (h *classHooks) extraDescriptors() []descriptors.Descriptor { return nil }
