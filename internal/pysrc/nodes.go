package pysrc

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Node type names from the tree-sitter Python grammar.
const (
	NodeModule         = "module"
	NodeFunctionDef    = "function_definition"
	NodeClassDef       = "class_definition"
	NodeDecoratedDef   = "decorated_definition"
	NodeDecorator      = "decorator"
	NodeLambda         = "lambda"
	NodeReturn         = "return_statement"
	NodeYield          = "yield"
	NodeRaise          = "raise_statement"
	NodeImport         = "import_statement"
	NodeImportFrom     = "import_from_statement"
	NodeFutureImport   = "future_import_statement"
	NodeExpressionStmt = "expression_statement"
	NodeString         = "string"
	NodeComment        = "comment"
	NodeIdentifier     = "identifier"
	NodeTypedParam     = "typed_parameter"
	NodeDefaultParam   = "default_parameter"
	NodeTypedDefault   = "typed_default_parameter"
	NodeListSplat      = "list_splat_pattern"
	NodeDictSplat      = "dictionary_splat_pattern"
	NodeKeywordSep     = "keyword_separator"
	NodePositionalSep  = "positional_separator"
	NodeAliasedImport  = "aliased_import"
	NodeDottedName     = "dotted_name"
	NodeAttribute      = "attribute"
	NodeCall           = "call"
	NodeArgumentList   = "argument_list"
)

// NamedChildren returns all named children of a node.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// Children returns all children, named and anonymous.
func Children(n *sitter.Node) []*sitter.Node {
	count := int(n.ChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.Child(i))
	}
	return out
}

// Line returns the 1-based line of a node's start.
func Line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// Col returns the 0-based column of a node's start.
func Col(n *sitter.Node) int {
	return int(n.StartPoint().Column)
}

// ParamKind discriminates the parameter shapes the grammar produces.
type ParamKind int

const (
	ParamPlain         ParamKind = iota // identifier
	ParamTyped                          // name: T
	ParamDefault                        // name=expr
	ParamTypedDefault                   // name: T = expr
	ParamSplat                          // *args
	ParamDictSplat                      // **kwargs
	ParamKeywordSep                     // bare *
	ParamPositionalSep                  // bare /
	ParamOther                          // tuple patterns and other shapes
)

// Param is one entry in a function's parameter list.
type Param struct {
	Node       *sitter.Node
	Kind       ParamKind
	Name       string
	NameNode   *sitter.Node
	Annotation *sitter.Node // nil when unannotated
	Default    *sitter.Node // nil when no default
}

// Class is the enclosing class of a method.
type Class struct {
	Node  *sitter.Node
	Name  string
	Bases []string
}

// IsProtocol reports whether the class subclasses typing.Protocol.
func (c *Class) IsProtocol() bool {
	for _, b := range c.Bases {
		base := b
		if idx := strings.Index(base, "["); idx >= 0 {
			base = base[:idx]
		}
		if base == "Protocol" || base == "typing.Protocol" || base == "typing_extensions.Protocol" {
			return true
		}
	}
	return false
}

// Function is one function or method definition, with enough surrounding
// context for the rule engines.
type Function struct {
	Def        *sitter.Node // the function_definition node
	Name       string
	ParamsNode *sitter.Node // the parameters node
	Params     []Param
	ReturnType *sitter.Node // nil when unannotated
	Body       *sitter.Node
	Decorators []*sitter.Node // decorator nodes, outermost first
	Class      *Class         // nil at module scope
}

// IsMethod reports whether the function is defined directly in a class body.
func (fn *Function) IsMethod() bool {
	return fn.Class != nil
}

// DecoratorNames returns the textual decorator expressions, without the "@"
// and without call arguments: "@abc.abstractmethod" -> "abc.abstractmethod",
// "@foo(1)" -> "foo".
func (fn *Function) DecoratorNames(f *File) []string {
	names := make([]string, 0, len(fn.Decorators))
	for _, d := range fn.Decorators {
		text := strings.TrimPrefix(strings.TrimSpace(f.Text(d)), "@")
		if idx := strings.Index(text, "("); idx >= 0 {
			text = text[:idx]
		}
		names = append(names, text)
	}
	return names
}

// PositionNode returns the node whose start position identifies this
// function in external reports: the first decorator when decorated, the
// def itself otherwise.
func (fn *Function) PositionNode() *sitter.Node {
	if len(fn.Decorators) > 0 {
		return fn.Decorators[0]
	}
	return fn.Def
}

// Functions extracts every function definition in the file, in document
// order, with class context attached.
func (f *File) Functions() []*Function {
	var out []*Function
	f.collectFunctions(f.Root(), nil, nil, &out)
	return out
}

func (f *File) collectFunctions(n *sitter.Node, class *Class, decorators []*sitter.Node, out *[]*Function) {
	for _, child := range NamedChildren(n) {
		switch child.Type() {
		case NodeFunctionDef:
			fn := f.buildFunction(child, class, decorators)
			if fn != nil {
				*out = append(*out, fn)
				// Nested defs get no class context from the method.
				if body := child.ChildByFieldName("body"); body != nil {
					f.collectFunctions(body, nil, nil, out)
				}
			}
		case NodeClassDef:
			cls := f.buildClass(child)
			if body := child.ChildByFieldName("body"); body != nil {
				f.collectFunctions(body, cls, nil, out)
			}
		case NodeDecoratedDef:
			var decs []*sitter.Node
			for _, inner := range NamedChildren(child) {
				switch inner.Type() {
				case NodeDecorator:
					decs = append(decs, inner)
				case NodeFunctionDef:
					fn := f.buildFunction(inner, class, decs)
					if fn != nil {
						*out = append(*out, fn)
						if body := inner.ChildByFieldName("body"); body != nil {
							f.collectFunctions(body, nil, nil, out)
						}
					}
				case NodeClassDef:
					cls := f.buildClass(inner)
					if body := inner.ChildByFieldName("body"); body != nil {
						f.collectFunctions(body, cls, nil, out)
					}
				}
			}
		default:
			f.collectFunctions(child, class, nil, out)
		}
	}
}

func (f *File) buildClass(n *sitter.Node) *Class {
	cls := &Class{Node: n}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		cls.Name = f.Text(nameNode)
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, base := range NamedChildren(supers) {
			cls.Bases = append(cls.Bases, f.Text(base))
		}
	}
	return cls
}

func (f *File) buildFunction(n *sitter.Node, class *Class, decorators []*sitter.Node) *Function {
	nameNode := n.ChildByFieldName("name")
	paramsNode := n.ChildByFieldName("parameters")
	if nameNode == nil || paramsNode == nil {
		return nil
	}
	fn := &Function{
		Def:        n,
		Name:       f.Text(nameNode),
		ParamsNode: paramsNode,
		ReturnType: n.ChildByFieldName("return_type"),
		Body:       n.ChildByFieldName("body"),
		Decorators: decorators,
		Class:      class,
	}
	fn.Params = f.buildParams(paramsNode)
	return fn
}

func (f *File) buildParams(paramsNode *sitter.Node) []Param {
	var params []Param
	for _, child := range NamedChildren(paramsNode) {
		p := Param{Node: child}
		switch child.Type() {
		case NodeIdentifier:
			p.Kind = ParamPlain
			p.Name = f.Text(child)
			p.NameNode = child
		case NodeTypedParam:
			p.Kind = ParamTyped
			p.Annotation = child.ChildByFieldName("type")
			for _, c := range NamedChildren(child) {
				if c.Type() == NodeIdentifier {
					p.Name = f.Text(c)
					p.NameNode = c
					break
				}
			}
		case NodeDefaultParam:
			p.Kind = ParamDefault
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				p.Name = f.Text(nameNode)
				p.NameNode = nameNode
			}
			p.Default = child.ChildByFieldName("value")
		case NodeTypedDefault:
			p.Kind = ParamTypedDefault
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				p.Name = f.Text(nameNode)
				p.NameNode = nameNode
			}
			p.Annotation = child.ChildByFieldName("type")
			p.Default = child.ChildByFieldName("value")
		case NodeListSplat:
			p.Kind = ParamSplat
		case NodeDictSplat:
			p.Kind = ParamDictSplat
		case NodeKeywordSep:
			p.Kind = ParamKeywordSep
		case NodePositionalSep:
			p.Kind = ParamPositionalSep
		default:
			// tuple patterns and anything else the grammar may emit are
			// left alone
			p.Kind = ParamOther
		}
		params = append(params, p)
	}
	return params
}

// ImportedName is one name bound by an import statement.
type ImportedName struct {
	Name  string
	Alias string
}

// Import is one top-level import statement.
type Import struct {
	Node        *sitter.Node
	IsFrom      bool
	Module      string // the source module of a from-import, or the imported module
	Names       []ImportedName
	LastNameEnd uint32 // byte offset just past the last imported name, for merging
}

// IsFuture reports whether this is a `from __future__ import ...`.
func (im *Import) IsFuture() bool {
	return im.IsFrom && im.Module == "__future__"
}

// Imports returns the file's top-level import statements in document order.
func (f *File) Imports() []Import {
	var out []Import
	for _, child := range NamedChildren(f.Root()) {
		switch child.Type() {
		case NodeImport:
			im := Import{Node: child}
			for _, c := range NamedChildren(child) {
				switch c.Type() {
				case NodeDottedName:
					name := f.Text(c)
					if im.Module == "" {
						im.Module = name
					}
					im.Names = append(im.Names, ImportedName{Name: name})
				case NodeAliasedImport:
					nameNode := c.ChildByFieldName("name")
					aliasNode := c.ChildByFieldName("alias")
					name, alias := "", ""
					if nameNode != nil {
						name = f.Text(nameNode)
					}
					if aliasNode != nil {
						alias = f.Text(aliasNode)
					}
					if im.Module == "" {
						im.Module = name
					}
					im.Names = append(im.Names, ImportedName{Name: name, Alias: alias})
				}
			}
			out = append(out, im)
		case NodeImportFrom, NodeFutureImport:
			im := Import{Node: child, IsFrom: true}
			// "from __future__" spells __future__ as an anonymous token,
			// not a module_name child.
			moduleStart := ^uint32(0)
			if child.Type() == NodeFutureImport {
				im.Module = "__future__"
			} else {
				moduleNode := child.ChildByFieldName("module_name")
				if moduleNode == nil {
					continue
				}
				im.Module = f.Text(moduleNode)
				moduleStart = moduleNode.StartByte()
			}
			for _, c := range Children(child) {
				switch c.Type() {
				case NodeDottedName, NodeIdentifier:
					if c.StartByte() == moduleStart {
						continue
					}
					im.Names = append(im.Names, ImportedName{Name: f.Text(c)})
					im.LastNameEnd = c.EndByte()
				case NodeAliasedImport:
					nameNode := c.ChildByFieldName("name")
					aliasNode := c.ChildByFieldName("alias")
					name, alias := "", ""
					if nameNode != nil {
						name = f.Text(nameNode)
					}
					if aliasNode != nil {
						alias = f.Text(aliasNode)
					}
					im.Names = append(im.Names, ImportedName{Name: name, Alias: alias})
					im.LastNameEnd = c.EndByte()
				}
			}
			out = append(out, im)
		}
	}
	return out
}

// DocstringEnd returns the byte offset just past the module docstring, or 0
// when the module has none. New import lines go after the docstring.
func (f *File) DocstringEnd() uint32 {
	for _, child := range NamedChildren(f.Root()) {
		switch child.Type() {
		case NodeComment:
			continue
		case NodeExpressionStmt:
			if child.NamedChildCount() == 1 && child.NamedChild(0).Type() == NodeString {
				return child.EndByte()
			}
			return 0
		default:
			return 0
		}
	}
	return 0
}
