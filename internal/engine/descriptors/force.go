package descriptors

// LazyEntity is implemented by everything with lazily computed slots.
type LazyEntity interface {
	ForceResolveAllContents()
}

// ForceResolveAllContents touches every lazy slot reachable from v. It accepts descriptors,
// scopes, types and slices of them; anything else is ignored.
func ForceResolveAllContents(v any) {
	switch x := v.(type) {
	case nil:
	case LazyEntity:
		x.ForceResolveAllContents()
	case Scope:
		forceAll(x.AllDescriptors())
	case Type:
		forceType(x)
	case []Descriptor:
		forceAll(x)
	case []Type:
		forceAll(x)
	case []*FunctionDescriptor:
		forceAll(x)
	case []VariableDescriptor:
		forceAll(x)
	case []*ValueParameterDescriptor:
		forceAll(x)
	case []*ConstructorDescriptor:
		forceAll(x)
	case []*AnnotationDescriptor:
		forceAll(x)
	case []TypeParameterDescriptor:
		forceAll(x)
	case []ClassDescriptor:
		forceAll(x)
	}
}

func forceAll[T any](items []T) {
	for _, item := range items {
		ForceResolveAllContents(item)
	}
}

// forceType resolves the type arguments. The classifier itself is forced by whoever owns
// it, which keeps forcing from running around supertype loops.
func forceType(t Type) {
	if t.IsError() {
		return
	}
	forceAll(t.Arguments())
}
