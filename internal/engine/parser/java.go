package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

var javaClassKinds = map[string]syntax.ClassKind{
	"class_declaration":           syntax.ClassKindClass,
	"record_declaration":          syntax.ClassKindClass,
	"interface_declaration":       syntax.ClassKindInterface,
	"enum_declaration":            syntax.ClassKindEnum,
	"annotation_type_declaration": syntax.ClassKindAnnotation,
}

// JavaFrontend maps Java compilation units. Classes without final are open, nested
// non-static classes are inner, and members without an access modifier are package-private
// except inside interfaces.
type JavaFrontend struct {
	lang *sitter.Language
}

func NewJavaFrontend() *JavaFrontend {
	return &JavaFrontend{lang: sitter.NewLanguage(tree_sitter_java.Language())}
}

func (j *JavaFrontend) Language() string          { return "java" }
func (j *JavaFrontend) Grammar() *sitter.Language { return j.lang }
func (j *JavaFrontend) Extensions() []string      { return []string{".java"} }
func (j *JavaFrontend) DefaultImports() []string  { return []string{"java.lang.*"} }

func (j *JavaFrontend) Builtins() []string {
	return []string{"void", "boolean", "byte", "short", "int", "long", "float", "double", "char", "Object", "String", "Array"}
}

func (j *JavaFrontend) Extract(root *sitter.Node, source []byte, path string) (*syntax.File, error) {
	ctx := &ExtractionContext{Source: source, File: syntax.NewFile(path, "")}
	handlers := map[string]NodeHandler{
		"package_declaration": j.extractPackage,
		"import_declaration":  j.extractImport,
	}
	for kind := range javaClassKinds {
		handlers[kind] = j.extractTopLevel
	}
	NewExtractorEngine(handlers).Walk(ctx, root)
	return ctx.File, nil
}

func (j *JavaFrontend) extractPackage(ctx *ExtractionContext, node *sitter.Node) bool {
	if n := firstChild(node, "scoped_identifier", "identifier"); n != nil {
		ctx.File.Package = name.Parse(dotted(ctx.Text(n)))
	}
	return true
}

func (j *JavaFrontend) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	imp := &syntax.ImportDirective{File: ctx.File, Pos: ctx.Position(node)}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "static":
			imp.Static = true
		case "scoped_identifier", "identifier":
			imp.Path = name.Parse(dotted(ctx.Text(child)))
		case "asterisk":
			imp.AllUnder = true
		}
	}
	if imp.Path.IsRoot() {
		return true
	}
	ctx.File.Imports = append(ctx.File.Imports, imp)
	return true
}

func (j *JavaFrontend) extractTopLevel(ctx *ExtractionContext, node *sitter.Node) bool {
	ctx.File.Add(j.classLike(ctx, node, nil))
	return true
}

func (j *JavaFrontend) classLike(ctx *ExtractionContext, node *sitter.Node, parent *syntax.Declaration) *syntax.Declaration {
	d := &syntax.Declaration{
		Kind:      syntax.KindClass,
		RawName:   ctx.Text(node.ChildByFieldName("name")),
		ClassKind: javaClassKinds[node.Kind()],
		Pos:       ctx.Position(node),
	}
	mods, annotations, _ := j.modifiers(ctx, node)
	d.Annotations = annotations

	if d.ClassKind == syntax.ClassKindClass && !mods.Has(syntax.ModAbstract) && !mods.Has(syntax.ModFinal) {
		if node.Kind() == "record_declaration" {
			mods |= syntax.ModFinal
		} else {
			mods |= syntax.ModOpen
		}
	}
	if parent != nil && node.Kind() == "class_declaration" && !mods.Has(syntax.ModStatic) && !isJavaInterface(parent) {
		mods |= syntax.ModInner
	}
	d.Modifiers = j.defaultVisibility(mods, parent)

	d.TypeParameters = j.typeParameters(ctx, firstChild(node, "type_parameters"))
	if sc := firstChild(node, "superclass"); sc != nil {
		d.SuperTypes = append(d.SuperTypes, j.typeList(ctx, sc)...)
	}
	for _, list := range children(node, "super_interfaces", "extends_interfaces") {
		for _, tl := range children(list, "type_list") {
			d.SuperTypes = append(d.SuperTypes, j.typeList(ctx, tl)...)
		}
	}

	if node.Kind() == "record_declaration" {
		d.HasPrimaryConstructor = true
		for _, p := range j.parameters(ctx, node.ChildByFieldName("parameters")) {
			d.ValueParameters = append(d.ValueParameters, p)
			d.Body = append(d.Body, &syntax.Declaration{
				Kind:      syntax.KindProperty,
				RawName:   p.RawName,
				Type:      p.Type,
				Modifiers: syntax.ModFinal | syntax.ModPrivate,
				Pos:       p.Pos,
			})
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		body = firstChild(node, "class_body", "interface_body", "enum_body", "annotation_type_body")
	}
	j.body(ctx, body, d)
	return d
}

func isJavaInterface(d *syntax.Declaration) bool {
	return d.ClassKind == syntax.ClassKindInterface || d.ClassKind == syntax.ClassKindAnnotation
}

// defaultVisibility marks members without an access modifier package-private, except in
// interfaces where they are public.
func (j *JavaFrontend) defaultVisibility(mods syntax.Modifiers, owner *syntax.Declaration) syntax.Modifiers {
	if mods.Has(syntax.ModPublic) || mods.Has(syntax.ModProtected) || mods.Has(syntax.ModPrivate) {
		return mods
	}
	if owner != nil && isJavaInterface(owner) {
		return mods | syntax.ModPublic
	}
	return mods | syntax.ModPackagePrivate
}

func (j *JavaFrontend) body(ctx *ExtractionContext, body *sitter.Node, owner *syntax.Declaration) {
	if body == nil {
		return
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		kind := child.Kind()
		if _, ok := javaClassKinds[kind]; ok {
			owner.Body = append(owner.Body, j.classLike(ctx, child, owner))
			continue
		}
		switch kind {
		case "enum_constant":
			owner.Body = append(owner.Body, j.enumEntry(ctx, child))
		case "enum_body_declarations":
			j.body(ctx, child, owner)
		case "field_declaration", "constant_declaration":
			owner.Body = append(owner.Body, j.fields(ctx, child, owner)...)
		case "method_declaration", "annotation_type_element_declaration":
			owner.Body = append(owner.Body, j.method(ctx, child, owner))
		case "constructor_declaration":
			owner.Body = append(owner.Body, j.constructor(ctx, child, owner))
		case "block", "static_initializer", "compact_constructor_declaration":
			owner.Body = append(owner.Body, &syntax.Declaration{Kind: syntax.KindClassInitializer, Pos: ctx.Position(child)})
		}
	}
}

func (j *JavaFrontend) enumEntry(ctx *ExtractionContext, node *sitter.Node) *syntax.Declaration {
	entry := &syntax.Declaration{
		Kind:      syntax.KindEnumEntry,
		ClassKind: syntax.ClassKindEnumEntry,
		RawName:   ctx.Text(node.ChildByFieldName("name")),
		Modifiers: syntax.ModPublic | syntax.ModStatic | syntax.ModFinal,
		Pos:       ctx.Position(node),
	}
	_, entry.Annotations, _ = j.modifiers(ctx, node)
	j.body(ctx, node.ChildByFieldName("body"), entry)
	return entry
}

func (j *JavaFrontend) fields(ctx *ExtractionContext, node *sitter.Node, owner *syntax.Declaration) []*syntax.Declaration {
	mods, annotations, _ := j.modifiers(ctx, node)
	mods = j.defaultVisibility(mods|syntax.ModFinal, owner)
	typ := j.typeRef(ctx, node.ChildByFieldName("type"))
	var out []*syntax.Declaration
	for _, decl := range children(node, "variable_declarator") {
		out = append(out, &syntax.Declaration{
			Kind:        syntax.KindProperty,
			RawName:     ctx.Text(decl.ChildByFieldName("name")),
			Type:        typ,
			Modifiers:   mods,
			Annotations: annotations,
			Pos:         ctx.Position(decl),
		})
	}
	return out
}

func (j *JavaFrontend) method(ctx *ExtractionContext, node *sitter.Node, owner *syntax.Declaration) *syntax.Declaration {
	mods, annotations, isDefault := j.modifiers(ctx, node)
	hasBody := node.ChildByFieldName("body") != nil
	switch {
	case mods.Has(syntax.ModAbstract):
	case isJavaInterface(owner):
		if isDefault || hasBody {
			mods |= syntax.ModOpen
		}
	case mods.Has(syntax.ModFinal), mods.Has(syntax.ModPrivate), mods.Has(syntax.ModStatic):
		mods |= syntax.ModFinal
	default:
		mods |= syntax.ModOpen
	}
	return &syntax.Declaration{
		Kind:            syntax.KindFunction,
		RawName:         ctx.Text(node.ChildByFieldName("name")),
		Modifiers:       j.defaultVisibility(mods, owner),
		Annotations:     annotations,
		TypeParameters:  j.typeParameters(ctx, firstChild(node, "type_parameters")),
		ValueParameters: j.parameters(ctx, node.ChildByFieldName("parameters")),
		Type:            j.typeRef(ctx, node.ChildByFieldName("type")),
		Pos:             ctx.Position(node),
	}
}

func (j *JavaFrontend) constructor(ctx *ExtractionContext, node *sitter.Node, owner *syntax.Declaration) *syntax.Declaration {
	mods, annotations, _ := j.modifiers(ctx, node)
	return &syntax.Declaration{
		Kind:            syntax.KindConstructor,
		Modifiers:       j.defaultVisibility(mods, owner),
		Annotations:     annotations,
		ValueParameters: j.parameters(ctx, node.ChildByFieldName("parameters")),
		Pos:             ctx.Position(node),
	}
}

func (j *JavaFrontend) parameters(ctx *ExtractionContext, node *sitter.Node) []*syntax.Declaration {
	var out []*syntax.Declaration
	for _, p := range children(node, "formal_parameter", "spread_parameter") {
		param := &syntax.Declaration{Kind: syntax.KindParameter, Pos: ctx.Position(p)}
		_, param.Annotations, _ = j.modifiers(ctx, p)
		if p.Kind() == "formal_parameter" {
			param.RawName = ctx.Text(p.ChildByFieldName("name"))
			param.Type = j.typeRef(ctx, p.ChildByFieldName("type"))
		} else {
			if decl := firstChild(p, "variable_declarator"); decl != nil {
				param.RawName = ctx.Text(decl.ChildByFieldName("name"))
			}
			for i := uint(0); i < p.ChildCount() && param.Type == nil; i++ {
				if elem := j.typeRef(ctx, p.Child(i)); elem != nil {
					param.Type = pathRef("Array", elem.Pos, elem)
				}
			}
		}
		out = append(out, param)
	}
	return out
}

func (j *JavaFrontend) typeParameters(ctx *ExtractionContext, node *sitter.Node) []*syntax.Declaration {
	var out []*syntax.Declaration
	for _, tp := range children(node, "type_parameter") {
		d := &syntax.Declaration{Kind: syntax.KindTypeParameter, Pos: ctx.Position(tp)}
		if id := firstChild(tp, "type_identifier", "identifier"); id != nil {
			d.RawName = ctx.Text(id)
		}
		if bound := firstChild(tp, "type_bound"); bound != nil {
			d.Bounds = j.typeList(ctx, bound)
		}
		out = append(out, d)
	}
	return out
}

// modifiers reads the modifiers child of node. The last result reports the interface
// "default" keyword.
func (j *JavaFrontend) modifiers(ctx *ExtractionContext, node *sitter.Node) (syntax.Modifiers, []*syntax.TypeRef, bool) {
	var (
		mods        syntax.Modifiers
		annotations []*syntax.TypeRef
		isDefault   bool
	)
	for _, m := range children(node, "modifiers") {
		for i := uint(0); i < m.ChildCount(); i++ {
			child := m.Child(i)
			switch child.Kind() {
			case "public":
				mods |= syntax.ModPublic
			case "protected":
				mods |= syntax.ModProtected
			case "private":
				mods |= syntax.ModPrivate
			case "abstract":
				mods |= syntax.ModAbstract
			case "static":
				mods |= syntax.ModStatic
			case "final":
				mods |= syntax.ModFinal
			case "default":
				isDefault = true
			case "marker_annotation", "annotation":
				if n := child.ChildByFieldName("name"); n != nil {
					annotations = append(annotations, pathRef(dotted(ctx.Text(n)), ctx.Position(child)))
				}
			}
		}
	}
	return mods, annotations, isDefault
}

// typeList translates every type among node's direct children.
func (j *JavaFrontend) typeList(ctx *ExtractionContext, node *sitter.Node) []*syntax.TypeRef {
	var out []*syntax.TypeRef
	for i := uint(0); i < node.ChildCount(); i++ {
		if t := j.typeRef(ctx, node.Child(i)); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// typeRef translates a type node. Arrays become Array<T>, wildcards their bound or
// Object. Nodes that are not types yield nil.
func (j *JavaFrontend) typeRef(ctx *ExtractionContext, node *sitter.Node) *syntax.TypeRef {
	if node == nil {
		return nil
	}
	pos := ctx.Position(node)
	switch node.Kind() {
	case "type_identifier", "integral_type", "floating_point_type", "boolean_type", "void_type":
		return pathRef(ctx.Text(node), pos)
	case "scoped_type_identifier":
		return pathRef(strings.Join(j.segments(ctx, node), "."), pos)
	case "generic_type":
		if node.ChildCount() == 0 {
			return nil
		}
		base := j.typeRef(ctx, node.Child(0))
		if base == nil {
			return nil
		}
		if args := firstChild(node, "type_arguments"); args != nil {
			base.Arguments = j.typeList(ctx, args)
		}
		return base
	case "array_type":
		if elem := j.typeRef(ctx, node.ChildByFieldName("element")); elem != nil {
			return pathRef("Array", pos, elem)
		}
	case "wildcard":
		if bounds := j.typeList(ctx, node); len(bounds) > 0 {
			return bounds[0]
		}
		return pathRef("Object", pos)
	case "annotated_type":
		if types := j.typeList(ctx, node); len(types) > 0 {
			return types[len(types)-1]
		}
	}
	return nil
}

// segments collects the identifiers of a scoped type, dropping annotations and the type
// arguments of outer classes.
func (j *JavaFrontend) segments(ctx *ExtractionContext, node *sitter.Node) []string {
	var out []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "type_identifier", "identifier":
			out = append(out, ctx.Text(child))
		case "scoped_type_identifier", "scoped_identifier":
			out = append(out, j.segments(ctx, child)...)
		case "generic_type":
			if child.ChildCount() > 0 {
				first := child.Child(0)
				if first.Kind() == "type_identifier" {
					out = append(out, ctx.Text(first))
				} else {
					out = append(out, j.segments(ctx, first)...)
				}
			}
		}
	}
	return out
}
