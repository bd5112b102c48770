package parser

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

// GoFrontend maps Go files. The package of a file is its directory, dotted. Imports
// under the module path drop that prefix so they land on the same packages. Structs and
// named types become final classes with embedded fields as supertypes. Methods join the
// class of their receiver when it is declared in the same file.
type GoFrontend struct {
	lang       *sitter.Language
	modulePath string
}

func NewGoFrontend(modulePath string) *GoFrontend {
	return &GoFrontend{
		lang:       sitter.NewLanguage(tree_sitter_go.Language()),
		modulePath: strings.Trim(modulePath, "/"),
	}
}

func (g *GoFrontend) Language() string          { return "go" }
func (g *GoFrontend) Grammar() *sitter.Language { return g.lang }
func (g *GoFrontend) Extensions() []string      { return []string{".go"} }
func (g *GoFrontend) DefaultImports() []string  { return nil }

func (g *GoFrontend) Builtins() []string {
	return []string{
		"any", "bool", "byte", "comparable", "complex64", "complex128", "error",
		"float32", "float64", "int", "int8", "int16", "int32", "int64", "rune", "string",
		"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"Array", "Map", "Func", "Chan",
	}
}

// goExtraction is the per-file state: methods are attached once every type is known.
type goExtraction struct {
	*GoFrontend
	ctx     *ExtractionContext
	decls   []*syntax.Declaration
	types   map[string]*syntax.Declaration
	methods []goMethod
}

type goMethod struct {
	receiver string
	decl     *syntax.Declaration
}

func (g *GoFrontend) Extract(root *sitter.Node, source []byte, filePath string) (*syntax.File, error) {
	file := syntax.NewFile(filePath, "")
	file.Package = slashPackage(path.Dir(filePath))

	e := &goExtraction{
		GoFrontend: g,
		ctx:        &ExtractionContext{Source: source, File: file},
		types:      make(map[string]*syntax.Declaration),
	}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_declaration":   e.extractImports,
		"type_declaration":     e.extractTypes,
		"function_declaration": e.extractFunction,
		"method_declaration":   e.extractMethod,
		"var_declaration":      e.extractVars,
		"const_declaration":    e.extractVars,
	})
	engine.Walk(e.ctx, root)

	for _, m := range e.methods {
		if owner, ok := e.types[m.receiver]; ok {
			owner.Body = append(owner.Body, m.decl)
		} else {
			e.decls = append(e.decls, m.decl)
		}
	}
	for _, d := range e.decls {
		file.Add(d)
	}
	return file, nil
}

func (g *GoFrontend) importPath(raw string) name.FqName {
	if g.modulePath != "" {
		if raw == g.modulePath {
			return name.Root
		}
		raw = strings.TrimPrefix(raw, g.modulePath+"/")
	}
	return slashPackage(raw)
}

func (e *goExtraction) extractImports(ctx *ExtractionContext, node *sitter.Node) bool {
	e.walkImports(ctx, node)
	return true
}

func (e *goExtraction) walkImports(ctx *ExtractionContext, node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "import_spec" {
			e.walkImports(ctx, child)
			continue
		}

		var alias, raw string
		for j := uint(0); j < child.ChildCount(); j++ {
			spec := child.Child(j)
			switch spec.Kind() {
			case "package_identifier", "blank_identifier", "dot", "_", ".":
				alias = ctx.Text(spec)
			case "interpreted_string_literal", "raw_string_literal":
				raw = strings.Trim(ctx.Text(spec), "\"`")
			}
		}
		if raw == "" || alias == "_" {
			continue
		}
		imp := &syntax.ImportDirective{Path: e.importPath(raw), Pos: ctx.Position(child), File: ctx.File}
		switch {
		case alias == ".":
			imp.AllUnder = true
		case imp.Path.IsRoot():
			continue
		case alias != "" && name.Identifier(alias) != imp.Path.ShortName():
			imp.Alias = alias
		}
		ctx.File.Imports = append(ctx.File.Imports, imp)
	}
}

func (e *goExtraction) extractTypes(ctx *ExtractionContext, node *sitter.Node) bool {
	for _, spec := range children(node, "type_spec", "type_alias") {
		if d := e.typeSpec(ctx, spec); d != nil {
			e.decls = append(e.decls, d)
			e.types[d.RawName] = d
		}
	}
	return true
}

func (e *goExtraction) typeSpec(ctx *ExtractionContext, node *sitter.Node) *syntax.Declaration {
	raw := ctx.Text(node.ChildByFieldName("name"))
	if raw == "" {
		return nil
	}
	d := &syntax.Declaration{
		Kind:           syntax.KindClass,
		RawName:        raw,
		ClassKind:      syntax.ClassKindClass,
		Modifiers:      goVisibility(raw) | syntax.ModFinal,
		TypeParameters: e.typeParameters(ctx, node.ChildByFieldName("type_parameters")),
		Pos:            ctx.Position(node),
	}

	typ := node.ChildByFieldName("type")
	if typ == nil {
		return d
	}
	switch typ.Kind() {
	case "struct_type":
		for _, list := range children(typ, "field_declaration_list") {
			for _, field := range children(list, "field_declaration") {
				e.structField(ctx, field, d)
			}
		}
	case "interface_type":
		d.ClassKind = syntax.ClassKindInterface
		d.Modifiers = goVisibility(raw)
		e.interfaceBody(ctx, typ, d)
	default:
		if super := e.typeRef(ctx, typ); super != nil {
			d.SuperTypes = append(d.SuperTypes, super)
		}
	}
	return d
}

func (e *goExtraction) structField(ctx *ExtractionContext, field *sitter.Node, owner *syntax.Declaration) {
	typ := e.typeRef(ctx, field.ChildByFieldName("type"))
	names := children(field, "field_identifier")
	if len(names) == 0 {
		if typ != nil {
			owner.SuperTypes = append(owner.SuperTypes, typ)
		}
		return
	}
	for _, n := range names {
		raw := ctx.Text(n)
		owner.Body = append(owner.Body, &syntax.Declaration{
			Kind:      syntax.KindProperty,
			RawName:   raw,
			Type:      typ,
			Modifiers: goVisibility(raw),
			Pos:       ctx.Position(n),
		})
	}
}

func (e *goExtraction) interfaceBody(ctx *ExtractionContext, node *sitter.Node, owner *syntax.Declaration) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "method_elem", "method_spec":
			raw := ctx.Text(child.ChildByFieldName("name"))
			owner.Body = append(owner.Body, &syntax.Declaration{
				Kind:            syntax.KindFunction,
				RawName:         raw,
				Modifiers:       goVisibility(raw) | syntax.ModAbstract,
				ValueParameters: e.parameters(ctx, child.ChildByFieldName("parameters")),
				Type:            e.result(ctx, child.ChildByFieldName("result")),
				Pos:             ctx.Position(child),
			})
		case "type_elem", "constraint_elem":
			owner.SuperTypes = append(owner.SuperTypes, nonNil(e.typeList(ctx, child))...)
		case "type_identifier", "qualified_type", "interface_type_name":
			if t := e.typeRef(ctx, child); t != nil {
				owner.SuperTypes = append(owner.SuperTypes, t)
			}
		}
	}
}

func (e *goExtraction) extractFunction(ctx *ExtractionContext, node *sitter.Node) bool {
	e.decls = append(e.decls, e.callable(ctx, node))
	return true
}

func (e *goExtraction) extractMethod(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := e.callable(ctx, node)
	receiver := ""
	if params := node.ChildByFieldName("receiver"); params != nil {
		if p := firstChild(params, "parameter_declaration"); p != nil {
			if t := e.typeRef(ctx, p.ChildByFieldName("type")); t != nil && len(t.Path) == 1 {
				receiver = t.Path[0]
			}
		}
	}
	e.methods = append(e.methods, goMethod{receiver: receiver, decl: fn})
	return true
}

func (e *goExtraction) callable(ctx *ExtractionContext, node *sitter.Node) *syntax.Declaration {
	raw := ctx.Text(node.ChildByFieldName("name"))
	return &syntax.Declaration{
		Kind:            syntax.KindFunction,
		RawName:         raw,
		Modifiers:       goVisibility(raw) | syntax.ModFinal,
		TypeParameters:  e.typeParameters(ctx, node.ChildByFieldName("type_parameters")),
		ValueParameters: e.parameters(ctx, node.ChildByFieldName("parameters")),
		Type:            e.result(ctx, node.ChildByFieldName("result")),
		Pos:             ctx.Position(node),
	}
}

func (e *goExtraction) extractVars(ctx *ExtractionContext, node *sitter.Node) bool {
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			switch child.Kind() {
			case "var_spec", "const_spec":
				typ := e.typeRef(ctx, child.ChildByFieldName("type"))
				for _, id := range children(child, "identifier") {
					raw := ctx.Text(id)
					if raw == "_" {
						continue
					}
					e.decls = append(e.decls, &syntax.Declaration{
						Kind:      syntax.KindProperty,
						RawName:   raw,
						Type:      typ,
						Modifiers: goVisibility(raw) | syntax.ModFinal,
						Pos:       ctx.Position(id),
					})
				}
			case "var_spec_list", "const_spec_list":
				walk(child)
			}
		}
	}
	walk(node)
	return true
}

func (e *goExtraction) parameters(ctx *ExtractionContext, node *sitter.Node) []*syntax.Declaration {
	var out []*syntax.Declaration
	for _, p := range children(node, "parameter_declaration", "variadic_parameter_declaration") {
		typ := e.typeRef(ctx, p.ChildByFieldName("type"))
		if p.Kind() == "variadic_parameter_declaration" && typ != nil {
			typ = pathRef("Array", typ.Pos, typ)
		}
		names := children(p, "identifier")
		if len(names) == 0 {
			out = append(out, &syntax.Declaration{Kind: syntax.KindParameter, Type: typ, Pos: ctx.Position(p)})
			continue
		}
		for _, n := range names {
			out = append(out, &syntax.Declaration{Kind: syntax.KindParameter, RawName: ctx.Text(n), Type: typ, Pos: ctx.Position(n)})
		}
	}
	return out
}

// result maps a result list to its first type. Multiple results are not modelled.
func (e *goExtraction) result(ctx *ExtractionContext, node *sitter.Node) *syntax.TypeRef {
	if node == nil {
		return nil
	}
	if node.Kind() != "parameter_list" {
		return e.typeRef(ctx, node)
	}
	if params := e.parameters(ctx, node); len(params) > 0 {
		return params[0].Type
	}
	return nil
}

func (e *goExtraction) typeParameters(ctx *ExtractionContext, node *sitter.Node) []*syntax.Declaration {
	var out []*syntax.Declaration
	for _, decl := range children(node, "type_parameter_declaration", "parameter_declaration") {
		bound := e.typeRef(ctx, decl.ChildByFieldName("type"))
		for _, id := range children(decl, "identifier") {
			tp := &syntax.Declaration{Kind: syntax.KindTypeParameter, RawName: ctx.Text(id), Pos: ctx.Position(id)}
			if bound != nil {
				tp.Bounds = []*syntax.TypeRef{bound}
			}
			out = append(out, tp)
		}
	}
	return out
}

func (e *goExtraction) typeList(ctx *ExtractionContext, node *sitter.Node) []*syntax.TypeRef {
	var out []*syntax.TypeRef
	for i := uint(0); i < node.ChildCount(); i++ {
		out = append(out, e.typeRef(ctx, node.Child(i)))
	}
	return out
}

// typeRef translates a Go type. Pointers collapse to their element, slices and arrays
// become Array<T>, maps Map<K, V>, functions Func and channels Chan<T>.
func (e *goExtraction) typeRef(ctx *ExtractionContext, node *sitter.Node) *syntax.TypeRef {
	if node == nil {
		return nil
	}
	pos := ctx.Position(node)
	switch node.Kind() {
	case "type_identifier", "identifier", "package_identifier":
		return pathRef(ctx.Text(node), pos)
	case "qualified_type":
		return pathRef(dotted(ctx.Text(node)), pos)
	case "pointer_type", "parenthesized_type", "type_constraint", "type_elem", "constraint_elem", "interface_type_name":
		return firstRef(e.typeList(ctx, node))
	case "generic_type":
		base := e.typeRef(ctx, node.ChildByFieldName("type"))
		if base == nil {
			return nil
		}
		if args := node.ChildByFieldName("type_arguments"); args != nil {
			base.Arguments = nonNil(e.typeList(ctx, args))
		}
		return base
	case "type_arguments":
		return firstRef(e.typeList(ctx, node))
	case "slice_type", "array_type", "implicit_length_array_type":
		if elem := e.typeRef(ctx, node.ChildByFieldName("element")); elem != nil {
			return pathRef("Array", pos, elem)
		}
	case "map_type":
		key := e.typeRef(ctx, node.ChildByFieldName("key"))
		value := e.typeRef(ctx, node.ChildByFieldName("value"))
		if key != nil && value != nil {
			return pathRef("Map", pos, key, value)
		}
	case "channel_type":
		if value := e.typeRef(ctx, node.ChildByFieldName("value")); value != nil {
			return pathRef("Chan", pos, value)
		}
	case "function_type":
		return pathRef("Func", pos)
	case "interface_type", "struct_type":
		return pathRef("any", pos)
	}
	return nil
}

func goVisibility(raw string) syntax.Modifiers {
	if r, _ := utf8.DecodeRuneInString(raw); unicode.IsUpper(r) {
		return syntax.ModPublic
	}
	return syntax.ModPackagePrivate
}
