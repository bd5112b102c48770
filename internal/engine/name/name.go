// Package name holds identifiers and dot-separated qualified names used as lookup keys
// throughout the resolution engine.
package name

import "strings"

// Name is a single identifier. Special names are wrapped in angle brackets and can never
// collide with a source identifier.
type Name string

// NoName is assigned to declarations whose identifier is missing (parse-error artifacts),
// so that the rest of a file can still be resolved.
const NoName Name = "<no name provided>"

// ClassObject names the synthesized class object of an enum.
const ClassObject Name = "<class-object>"

// Identifier wraps a raw source identifier.
func Identifier(raw string) Name {
	return Name(raw)
}

// Special builds a special name; the brackets are added when missing.
func Special(raw string) Name {
	if strings.HasPrefix(raw, "<") && strings.HasSuffix(raw, ">") {
		return Name(raw)
	}
	return Name("<" + raw + ">")
}

// SafeIdentifier returns NoName for blank input.
func SafeIdentifier(raw string) Name {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NoName
	}
	return Name(raw)
}

func (n Name) String() string { return string(n) }

func (n Name) IsSpecial() bool {
	return strings.HasPrefix(string(n), "<")
}

// FqName is a dot-separated path of identifiers. The root package is the empty path.
type FqName string

// Root is the qualified name of the root package.
const Root FqName = ""

// Parse normalises a dotted path, dropping empty segments.
func Parse(path string) FqName {
	path = strings.TrimSpace(path)
	if path == "" {
		return Root
	}
	parts := strings.Split(path, ".")
	kept := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return FqName(strings.Join(kept, "."))
}

// FromSegments joins names into a qualified name.
func FromSegments(segments ...Name) FqName {
	var fq FqName
	for _, s := range segments {
		fq = fq.Child(s)
	}
	return fq
}

func (f FqName) IsRoot() bool { return f == Root }

func (f FqName) String() string {
	if f.IsRoot() {
		return "<root>"
	}
	return string(f)
}

// Child appends one segment.
func (f FqName) Child(n Name) FqName {
	if f.IsRoot() {
		return FqName(n)
	}
	return FqName(string(f) + "." + string(n))
}

// Parent drops the last segment. The parent of the root is the root.
func (f FqName) Parent() FqName {
	idx := strings.LastIndexByte(string(f), '.')
	if idx < 0 {
		return Root
	}
	return f[:idx]
}

// ShortName is the last segment, or the empty name for the root.
func (f FqName) ShortName() Name {
	idx := strings.LastIndexByte(string(f), '.')
	if idx < 0 {
		return Name(f)
	}
	return Name(f[idx+1:])
}

func (f FqName) Segments() []Name {
	if f.IsRoot() {
		return nil
	}
	parts := strings.Split(string(f), ".")
	out := make([]Name, len(parts))
	for i, p := range parts {
		out[i] = Name(p)
	}
	return out
}

// StartsWith reports whether prefix is f itself or one of its ancestors.
func (f FqName) StartsWith(prefix FqName) bool {
	if prefix.IsRoot() || f == prefix {
		return true
	}
	return strings.HasPrefix(string(f), string(prefix)+".")
}
