package lazy

import (
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
)

// FakeOverrideGenerator contributes the members a class inherits without declaring them.
// It is consulted once per class and name, after the declared members of that name are
// resolved. Results must be stable: the same class and name always yield the same
// descriptors.
type FakeOverrideGenerator interface {
	Functions(class descriptors.ClassDescriptor, n name.Name, declared []*descriptors.FunctionDescriptor) []*descriptors.FunctionDescriptor
	Properties(class descriptors.ClassDescriptor, n name.Name, declared []descriptors.VariableDescriptor) []descriptors.VariableDescriptor
}

// NoFakeOverrides contributes nothing.
type NoFakeOverrides struct{}

func (NoFakeOverrides) Functions(descriptors.ClassDescriptor, name.Name, []*descriptors.FunctionDescriptor) []*descriptors.FunctionDescriptor {
	return nil
}

func (NoFakeOverrides) Properties(descriptors.ClassDescriptor, name.Name, []descriptors.VariableDescriptor) []descriptors.VariableDescriptor {
	return nil
}
