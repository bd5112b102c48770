// Package binding records what resolution found for each piece of syntax.
package binding

import (
	"sync"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

// Trace is the write side. Every declaration maps to exactly one descriptor; recording a
// different descriptor for the same declaration is an invariant violation.
type Trace struct {
	mu           sync.RWMutex
	declarations map[*syntax.Declaration]descriptors.Descriptor
	classes      map[*syntax.Declaration]descriptors.ClassDescriptor
	byFqName     map[name.FqName][]descriptors.ClassDescriptor
	packages     map[name.FqName]descriptors.PackageDescriptor
	types        map[*syntax.TypeRef]descriptors.Type
	imports      map[*syntax.ImportDirective][]descriptors.Descriptor
}

func NewTrace() *Trace {
	return &Trace{
		declarations: make(map[*syntax.Declaration]descriptors.Descriptor),
		classes:      make(map[*syntax.Declaration]descriptors.ClassDescriptor),
		byFqName:     make(map[name.FqName][]descriptors.ClassDescriptor),
		packages:     make(map[name.FqName]descriptors.PackageDescriptor),
		types:        make(map[*syntax.TypeRef]descriptors.Type),
		imports:      make(map[*syntax.ImportDirective][]descriptors.Descriptor),
	}
}

func (t *Trace) recordDeclarationLocked(decl *syntax.Declaration, d descriptors.Descriptor) bool {
	if prev, ok := t.declarations[decl]; ok {
		if prev != d {
			errors.Invariantf("declaration %s already bound to %s, cannot rebind to %s",
				decl.Text(), descriptors.FqNameOf(prev), descriptors.FqNameOf(d))
		}
		return false
	}
	t.declarations[decl] = d
	return true
}

// RecordDeclaration binds decl to d.
func (t *Trace) RecordDeclaration(decl *syntax.Declaration, d descriptors.Descriptor) {
	if decl == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordDeclarationLocked(decl, d)
}

// RecordClass binds a class declaration and indexes the class by qualified name.
func (t *Trace) RecordClass(decl *syntax.Declaration, c descriptors.ClassDescriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.recordDeclarationLocked(decl, c) {
		return
	}
	t.classes[decl] = c
	fq := descriptors.FqNameOf(c)
	t.byFqName[fq] = append(t.byFqName[fq], c)
}

// RecordPackage keeps the first package recorded for a name.
func (t *Trace) RecordPackage(p descriptors.PackageDescriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.packages[p.FqName()]; !ok {
		t.packages[p.FqName()] = p
	}
}

// RecordType keeps the first type resolved for a reference. A retried resolution yields an
// equivalent type, so later records are ignored.
func (t *Trace) RecordType(ref *syntax.TypeRef, typ descriptors.Type) {
	if ref == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.types[ref]; !ok {
		t.types[ref] = typ
	}
}

// RecordImport stores the descriptors an import directive introduced.
func (t *Trace) RecordImport(dir *syntax.ImportDirective, introduced []descriptors.Descriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.imports[dir] = introduced
}

// Context returns the read-only view.
func (t *Trace) Context() Context {
	return readOnly{t: t}
}

// Context is the read side of a Trace.
type Context interface {
	Descriptor(decl *syntax.Declaration) (descriptors.Descriptor, bool)
	Class(decl *syntax.Declaration) (descriptors.ClassDescriptor, bool)
	ClassesByFqName(fq name.FqName) []descriptors.ClassDescriptor
	Package(fq name.FqName) (descriptors.PackageDescriptor, bool)
	Type(ref *syntax.TypeRef) (descriptors.Type, bool)
	ImportedDescriptors(dir *syntax.ImportDirective) ([]descriptors.Descriptor, bool)
	Stats() Stats
}

// Stats counts the recorded entries.
type Stats struct {
	Declarations int
	Classes      int
	Packages     int
	Types        int
	ErrorTypes   int
	Imports      int
}

type readOnly struct {
	t *Trace
}

func (r readOnly) Descriptor(decl *syntax.Declaration) (descriptors.Descriptor, bool) {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()
	d, ok := r.t.declarations[decl]
	return d, ok
}

func (r readOnly) Class(decl *syntax.Declaration) (descriptors.ClassDescriptor, bool) {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()
	c, ok := r.t.classes[decl]
	return c, ok
}

func (r readOnly) ClassesByFqName(fq name.FqName) []descriptors.ClassDescriptor {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()
	return append([]descriptors.ClassDescriptor(nil), r.t.byFqName[fq]...)
}

func (r readOnly) Package(fq name.FqName) (descriptors.PackageDescriptor, bool) {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()
	p, ok := r.t.packages[fq]
	return p, ok
}

func (r readOnly) Type(ref *syntax.TypeRef) (descriptors.Type, bool) {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()
	typ, ok := r.t.types[ref]
	return typ, ok
}

func (r readOnly) ImportedDescriptors(dir *syntax.ImportDirective) ([]descriptors.Descriptor, bool) {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()
	ds, ok := r.t.imports[dir]
	return ds, ok
}

func (r readOnly) Stats() Stats {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()
	s := Stats{
		Declarations: len(r.t.declarations),
		Classes:      len(r.t.classes),
		Packages:     len(r.t.packages),
		Types:        len(r.t.types),
		Imports:      len(r.t.imports),
	}
	for _, typ := range r.t.types {
		if typ.IsError() {
			s.ErrorTypes++
		}
	}
	return s
}
