package descriptors

import "strings"

// Type is a resolved type: a constructor applied to arguments.
type Type interface {
	Constructor() TypeConstructor
	Arguments() []Type
	IsNullable() bool
	IsError() bool
	String() string
}

// TypeConstructor is the classifier side of a type. Supertypes may be computed lazily.
type TypeConstructor interface {
	// Declaration returns nil for error types.
	Declaration() ClassifierDescriptor
	Supertypes() []Type
	Parameters() []TypeParameterDescriptor
	String() string
}

// LazyType is a deferred type slot, typically a storage.LazyValue[Type].
type LazyType interface {
	Get() Type
	IsComputed() bool
}

type eagerType struct{ t Type }

func (e eagerType) Get() Type        { return e.t }
func (e eagerType) IsComputed() bool { return true }

// Eager wraps an already known type.
func Eager(t Type) LazyType { return eagerType{t: t} }

type SimpleType struct {
	constructor TypeConstructor
	arguments   []Type
	nullable    bool
}

func NewSimpleType(constructor TypeConstructor, arguments []Type, nullable bool) *SimpleType {
	return &SimpleType{constructor: constructor, arguments: arguments, nullable: nullable}
}

func (t *SimpleType) Constructor() TypeConstructor { return t.constructor }
func (t *SimpleType) Arguments() []Type            { return t.arguments }
func (t *SimpleType) IsNullable() bool             { return t.nullable }
func (t *SimpleType) IsError() bool                { return false }

func (t *SimpleType) String() string {
	var b strings.Builder
	b.WriteString(t.constructor.String())
	writeArguments(&b, t.arguments)
	if t.nullable {
		b.WriteByte('?')
	}
	return b.String()
}

func writeArguments(b *strings.Builder, args []Type) {
	if len(args) == 0 {
		return
	}
	b.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte('>')
}

// ErrorType marks a reference that could not be resolved.
type ErrorType struct {
	Text string
}

func NewErrorType(text string) *ErrorType { return &ErrorType{Text: text} }

func (t *ErrorType) Constructor() TypeConstructor { return errorConstructor{text: t.Text} }
func (t *ErrorType) Arguments() []Type            { return nil }
func (t *ErrorType) IsNullable() bool             { return false }
func (t *ErrorType) IsError() bool                { return true }
func (t *ErrorType) String() string               { return "[ERROR: " + t.Text + "]" }

type errorConstructor struct{ text string }

func (c errorConstructor) Declaration() ClassifierDescriptor     { return nil }
func (c errorConstructor) Supertypes() []Type                    { return nil }
func (c errorConstructor) Parameters() []TypeParameterDescriptor { return nil }
func (c errorConstructor) String() string                        { return "[ERROR: " + c.text + "]" }

// ClassifierConstructor is a TypeConstructor backed by funcs, used by lazy classifiers.
type ClassifierConstructor struct {
	Owner          ClassifierDescriptor
	SupertypesFunc func() []Type
	ParametersFunc func() []TypeParameterDescriptor
}

func (c *ClassifierConstructor) Declaration() ClassifierDescriptor { return c.Owner }

func (c *ClassifierConstructor) Supertypes() []Type {
	if c.SupertypesFunc == nil {
		return nil
	}
	return c.SupertypesFunc()
}

func (c *ClassifierConstructor) Parameters() []TypeParameterDescriptor {
	if c.ParametersFunc == nil {
		return nil
	}
	return c.ParametersFunc()
}

func (c *ClassifierConstructor) String() string {
	if _, ok := c.Owner.(TypeParameterDescriptor); ok {
		return string(c.Owner.Name())
	}
	fq := FqNameOf(c.Owner)
	if fq.IsRoot() {
		return string(c.Owner.Name())
	}
	return string(fq)
}

// ClassifierOf returns the classifier behind t, or nil for error types.
func ClassifierOf(t Type) ClassifierDescriptor {
	if t == nil {
		return nil
	}
	return t.Constructor().Declaration()
}

// FilterErrors drops error types and keeps order.
func FilterErrors(types []Type) []Type {
	out := make([]Type, 0, len(types))
	for _, t := range types {
		if t != nil && !t.IsError() {
			out = append(out, t)
		}
	}
	return out
}

// DefaultTypeOf builds the unsubstituted type of a classifier: its constructor applied to
// its own type parameters.
func DefaultTypeOf(c ClassifierDescriptor, params []TypeParameterDescriptor) Type {
	args := make([]Type, len(params))
	for i, p := range params {
		args[i] = p.DefaultType()
	}
	return NewSimpleType(c.TypeConstructor(), args, false)
}
