package parser

import (
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"lazyresolve/internal/engine/name"
	"lazyresolve/internal/engine/syntax"
)

// PythonFrontend maps Python modules. Every module is its own package named after its
// path; __init__.py belongs to its directory. Unannotated parameters, returns and
// attributes are typed object.
type PythonFrontend struct {
	lang *sitter.Language
}

func NewPythonFrontend() *PythonFrontend {
	return &PythonFrontend{lang: sitter.NewLanguage(tree_sitter_python.Language())}
}

func (p *PythonFrontend) Language() string          { return "python" }
func (p *PythonFrontend) Grammar() *sitter.Language { return p.lang }
func (p *PythonFrontend) Extensions() []string      { return []string{".py", ".pyi"} }
func (p *PythonFrontend) DefaultImports() []string  { return nil }

func (p *PythonFrontend) Builtins() []string {
	return []string{
		"object", "str", "int", "float", "complex", "bool", "bytes", "bytearray",
		"list", "dict", "tuple", "set", "frozenset", "type", "None",
		"Any", "List", "Dict", "Tuple", "Set", "Optional", "Union", "Callable",
		"Iterable", "Iterator", "Sequence", "Mapping",
	}
}

var pythonModifierDecorators = map[string]syntax.Modifiers{
	"staticmethod":          syntax.ModStatic,
	"abstractmethod":        syntax.ModAbstract,
	"abc.abstractmethod":    syntax.ModAbstract,
	"final":                 syntax.ModFinal,
	"typing.final":          syntax.ModFinal,
	"dataclass":             syntax.ModData,
	"dataclasses.dataclass": syntax.ModData,
}

type pyExtraction struct {
	ctx *ExtractionContext
	// relative is the package "from . import" refers to.
	relative name.FqName
}

func (p *PythonFrontend) Extract(root *sitter.Node, source []byte, filePath string) (*syntax.File, error) {
	module := strings.TrimSuffix(strings.TrimSuffix(filePath, ".pyi"), ".py")
	file := syntax.NewFile(filePath, "")
	e := &pyExtraction{ctx: &ExtractionContext{Source: source, File: file}}
	if path.Base(module) == "__init__" {
		file.Package = slashPackage(path.Dir(module))
		e.relative = file.Package
	} else {
		file.Package = slashPackage(module)
		e.relative = file.Package.Parent()
	}

	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_statement":      e.extractImport,
		"import_from_statement": e.extractFromImport,
		"class_definition":      e.extractTopLevel,
		"function_definition":   e.extractTopLevel,
		"decorated_definition":  e.extractTopLevel,
		"expression_statement":  e.extractAssignment,
	})
	engine.Walk(e.ctx, root)
	return file, nil
}

func (e *pyExtraction) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name":
			// "import a.b" binds a
			full := name.Parse(ctx.Text(child))
			e.addImport(ctx, child, full.Segments()[0].String(), "")
		case "aliased_import":
			target := ctx.Text(child.ChildByFieldName("name"))
			e.addImport(ctx, child, target, ctx.Text(child.ChildByFieldName("alias")))
		}
	}
	return true
}

func (e *pyExtraction) extractFromImport(ctx *ExtractionContext, node *sitter.Node) bool {
	module, ok := e.fromModule(ctx, node.ChildByFieldName("module_name"))
	if !ok {
		return true
	}
	if firstChild(node, "wildcard_import") != nil {
		ctx.File.Imports = append(ctx.File.Imports, &syntax.ImportDirective{
			Path: module, AllUnder: true, Pos: ctx.Position(node), File: ctx.File,
		})
		return true
	}

	seenImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "import":
			seenImport = true
		case "dotted_name":
			if seenImport {
				e.addImport(ctx, child, joinFq(module, ctx.Text(child)), "")
			}
		case "aliased_import":
			target := joinFq(module, ctx.Text(child.ChildByFieldName("name")))
			e.addImport(ctx, child, target, ctx.Text(child.ChildByFieldName("alias")))
		}
	}
	return true
}

func joinFq(base name.FqName, rest string) string {
	if base.IsRoot() {
		return rest
	}
	return base.String() + "." + rest
}

func (e *pyExtraction) addImport(ctx *ExtractionContext, node *sitter.Node, target, alias string) {
	fq := name.Parse(dotted(target))
	if fq.IsRoot() {
		return
	}
	imp := &syntax.ImportDirective{Path: fq, Pos: ctx.Position(node), File: ctx.File}
	if alias != "" && name.Identifier(alias) != fq.ShortName() {
		imp.Alias = alias
	}
	ctx.File.Imports = append(ctx.File.Imports, imp)
}

// fromModule resolves the module of a from-import. Each leading dot past the first
// climbs one package.
func (e *pyExtraction) fromModule(ctx *ExtractionContext, node *sitter.Node) (name.FqName, bool) {
	if node == nil {
		return name.Root, false
	}
	if node.Kind() != "relative_import" {
		return name.Parse(dotted(ctx.Text(node))), true
	}
	base := e.relative
	if prefix := firstChild(node, "import_prefix"); prefix != nil {
		for i := 1; i < strings.Count(ctx.Text(prefix), "."); i++ {
			base = base.Parent()
		}
	}
	if rest := firstChild(node, "dotted_name"); rest != nil {
		return name.Parse(joinFq(base, dotted(ctx.Text(rest)))), true
	}
	return base, true
}

func (e *pyExtraction) extractTopLevel(ctx *ExtractionContext, node *sitter.Node) bool {
	if d := e.definition(ctx, node, nil); d != nil {
		ctx.File.Add(d)
	}
	return true
}

func (e *pyExtraction) extractAssignment(ctx *ExtractionContext, node *sitter.Node) bool {
	for _, prop := range e.assignments(ctx, node, nil) {
		ctx.File.Add(prop)
	}
	return true
}

// definition handles class, function and decorated definitions. owner is the enclosing
// class, or nil at module level.
func (e *pyExtraction) definition(ctx *ExtractionContext, node *sitter.Node, owner *syntax.Declaration) *syntax.Declaration {
	var mods syntax.Modifiers
	if node.Kind() == "decorated_definition" {
		for _, dec := range children(node, "decorator") {
			text := strings.TrimSpace(strings.TrimPrefix(ctx.Text(dec), "@"))
			if i := strings.IndexByte(text, '('); i >= 0 {
				text = text[:i]
			}
			mods |= pythonModifierDecorators[dotted(text)]
		}
		node = node.ChildByFieldName("definition")
		if node == nil {
			return nil
		}
	}
	switch node.Kind() {
	case "class_definition":
		return e.class(ctx, node, mods, owner)
	case "function_definition":
		return e.function(ctx, node, mods, owner)
	}
	return nil
}

func (e *pyExtraction) class(ctx *ExtractionContext, node *sitter.Node, mods syntax.Modifiers, owner *syntax.Declaration) *syntax.Declaration {
	raw := ctx.Text(node.ChildByFieldName("name"))
	d := &syntax.Declaration{
		Kind:      syntax.KindClass,
		RawName:   raw,
		ClassKind: syntax.ClassKindClass,
		Pos:       ctx.Position(node),
	}
	if !mods.Has(syntax.ModFinal) {
		mods |= syntax.ModOpen
	}
	d.Modifiers = mods | pyVisibility(raw, owner)

	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := uint(0); i < supers.ChildCount(); i++ {
			arg := supers.Child(i)
			switch arg.Kind() {
			case "identifier", "attribute", "subscript":
				if t := pyTypeRef(ctx.Text(arg), ctx.Position(arg)); t != nil && t.Text() != "object" {
					d.SuperTypes = append(d.SuperTypes, t)
				}
			}
		}
	}

	body := node.ChildByFieldName("body")
	for i := uint(0); body != nil && i < body.ChildCount(); i++ {
		stmt := body.Child(i)
		switch stmt.Kind() {
		case "class_definition", "function_definition", "decorated_definition":
			if member := e.definition(ctx, stmt, d); member != nil {
				d.Body = append(d.Body, member)
			}
		case "expression_statement":
			d.Body = append(d.Body, e.assignments(ctx, stmt, d)...)
		}
	}
	d.Body = append(d.Body, e.instanceAttributes(ctx, d)...)
	return d
}

func (e *pyExtraction) function(ctx *ExtractionContext, node *sitter.Node, mods syntax.Modifiers, owner *syntax.Declaration) *syntax.Declaration {
	raw := ctx.Text(node.ChildByFieldName("name"))
	params := e.parameters(ctx, node.ChildByFieldName("parameters"))
	if owner != nil && !mods.Has(syntax.ModStatic) && len(params) > 0 {
		// self or cls
		params = params[1:]
	}

	if owner != nil && raw == "__init__" {
		return &syntax.Declaration{
			Kind:            syntax.KindConstructor,
			Modifiers:       syntax.ModPublic,
			ValueParameters: params,
			Pos:             ctx.Position(node),
			// cleared by instanceAttributes once the class body is known
			Body: e.selfAssignments(ctx, node.ChildByFieldName("body"), owner),
		}
	}

	d := &syntax.Declaration{
		Kind:            syntax.KindFunction,
		RawName:         raw,
		ValueParameters: params,
		Type:            e.annotation(ctx, node.ChildByFieldName("return_type")),
		Pos:             ctx.Position(node),
	}
	if owner != nil && !mods.Has(syntax.ModAbstract) && !mods.Has(syntax.ModFinal) && !mods.Has(syntax.ModStatic) {
		mods |= syntax.ModOpen
	}
	d.Modifiers = mods | pyVisibility(raw, owner)
	return d
}

// instanceAttributes lifts the self.x assignments found in __init__ into properties of
// the class, skipping names the class body already declares.
func (e *pyExtraction) instanceAttributes(ctx *ExtractionContext, class *syntax.Declaration) []*syntax.Declaration {
	declared := make(map[string]bool)
	for _, m := range class.Body {
		if m.Kind == syntax.KindProperty || m.Kind == syntax.KindFunction {
			declared[m.RawName] = true
		}
	}
	var out []*syntax.Declaration
	for _, m := range class.Body {
		if m.Kind != syntax.KindConstructor {
			continue
		}
		for _, attr := range m.Body {
			if !declared[attr.RawName] {
				declared[attr.RawName] = true
				out = append(out, attr)
			}
		}
		m.Body = nil
	}
	return out
}

func (e *pyExtraction) selfAssignments(ctx *ExtractionContext, body *sitter.Node, owner *syntax.Declaration) []*syntax.Declaration {
	var out []*syntax.Declaration
	for _, stmt := range children(body, "expression_statement") {
		for _, assign := range children(stmt, "assignment") {
			left := assign.ChildByFieldName("left")
			if left == nil || left.Kind() != "attribute" {
				continue
			}
			object := left.ChildByFieldName("object")
			if object == nil || ctx.Text(object) != "self" {
				continue
			}
			raw := ctx.Text(left.ChildByFieldName("attribute"))
			out = append(out, &syntax.Declaration{
				Kind:      syntax.KindProperty,
				RawName:   raw,
				Type:      e.annotationOrObject(ctx, assign.ChildByFieldName("type"), assign),
				Modifiers: pyVisibility(raw, owner),
				Pos:       ctx.Position(left),
			})
		}
	}
	return out
}

// assignments turns "x = ..." and "x: T = ..." statements into properties.
func (e *pyExtraction) assignments(ctx *ExtractionContext, stmt *sitter.Node, owner *syntax.Declaration) []*syntax.Declaration {
	var out []*syntax.Declaration
	for _, assign := range children(stmt, "assignment") {
		left := assign.ChildByFieldName("left")
		if left == nil || left.Kind() != "identifier" {
			continue
		}
		raw := ctx.Text(left)
		out = append(out, &syntax.Declaration{
			Kind:      syntax.KindProperty,
			RawName:   raw,
			Type:      e.annotationOrObject(ctx, assign.ChildByFieldName("type"), assign),
			Modifiers: pyVisibility(raw, owner),
			Pos:       ctx.Position(left),
		})
	}
	return out
}

func (e *pyExtraction) parameters(ctx *ExtractionContext, node *sitter.Node) []*syntax.Declaration {
	var out []*syntax.Declaration
	for i := uint(0); node != nil && i < node.ChildCount(); i++ {
		p := node.Child(i)
		param := &syntax.Declaration{Kind: syntax.KindParameter, Pos: ctx.Position(p)}
		switch p.Kind() {
		case "identifier":
			param.RawName = ctx.Text(p)
		case "default_parameter", "typed_default_parameter":
			param.RawName = ctx.Text(p.ChildByFieldName("name"))
			param.Type = e.annotation(ctx, p.ChildByFieldName("type"))
		case "typed_parameter":
			param.Type = e.annotation(ctx, p.ChildByFieldName("type"))
			if id := firstChild(p, "identifier"); id != nil {
				param.RawName = ctx.Text(id)
			} else if splat := firstChild(p, "list_splat_pattern", "dictionary_splat_pattern"); splat != nil {
				param.RawName = ctx.Text(firstChild(splat, "identifier"))
			}
		case "list_splat_pattern":
			param.RawName = ctx.Text(firstChild(p, "identifier"))
			param.Type = pathRef("tuple", param.Pos)
		case "dictionary_splat_pattern":
			param.RawName = ctx.Text(firstChild(p, "identifier"))
			param.Type = pathRef("dict", param.Pos)
		default:
			continue
		}
		if param.Type == nil {
			param.Type = pathRef("object", param.Pos)
		}
		out = append(out, param)
	}
	return out
}

func (e *pyExtraction) annotation(ctx *ExtractionContext, node *sitter.Node) *syntax.TypeRef {
	if node == nil {
		return pathRef("object", syntax.Position{})
	}
	return pyTypeRef(ctx.Text(node), ctx.Position(node))
}

func (e *pyExtraction) annotationOrObject(ctx *ExtractionContext, typ, at *sitter.Node) *syntax.TypeRef {
	if typ == nil {
		return pathRef("object", ctx.Position(at))
	}
	return pyTypeRef(ctx.Text(typ), ctx.Position(typ))
}

// pyTypeRef converts annotation text. Optional[T] and "T | None" become nullable T; other
// unions keep their first member. Annotations that do not fit the type grammar yield nil.
func pyTypeRef(text string, pos syntax.Position) *syntax.TypeRef {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.Trim(text, `"'`)
	nullable := false
	var kept []string
	for _, part := range strings.Split(text, "|") {
		part = strings.TrimSpace(part)
		if part == "None" {
			nullable = true
			continue
		}
		kept = append(kept, part)
	}
	if len(kept) == 0 {
		return pathRef("None", pos)
	}
	ref, err := syntax.ParseTypeRef(strings.NewReplacer("[", "<", "]", ">").Replace(kept[0]))
	if err != nil {
		return nil
	}
	if len(ref.Path) == 1 && ref.Path[0] == "Optional" && len(ref.Arguments) == 1 {
		ref = ref.Arguments[0]
		nullable = true
	}
	ref.Nullable = ref.Nullable || nullable
	setPos(ref, pos)
	return ref
}

func setPos(ref *syntax.TypeRef, pos syntax.Position) {
	ref.Pos = pos
	for _, a := range ref.Arguments {
		setPos(a, pos)
	}
}

// pyVisibility follows the underscore conventions: a double underscore without a dunder
// suffix is private, a single one protected in classes and private at module level.
func pyVisibility(raw string, owner *syntax.Declaration) syntax.Modifiers {
	switch {
	case strings.HasPrefix(raw, "__") && !strings.HasSuffix(raw, "__"):
		return syntax.ModPrivate
	case strings.HasPrefix(raw, "_") && !strings.HasSuffix(raw, "__"):
		if owner != nil {
			return syntax.ModProtected
		}
		return syntax.ModPrivate
	}
	return syntax.ModPublic
}
