package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/hannajonsd/sqli-reachability/pyast"
)

// maxOtherText bounds the source text kept on generic expression nodes.
const maxOtherText = 80

type PythonParser struct {
	BaseParser
}

func NewPythonParser() (*PythonParser, error) {
	parser := sitter.NewParser()
	language := python.GetLanguage()
	parser.SetLanguage(language)

	return &PythonParser{
		BaseParser: BaseParser{
			parser:   parser,
			language: language,
			langName: "python",
		},
	}, nil
}

func (p *PythonParser) ParseFile(ctx context.Context, filePath string) (*ParseResult, error) {
	source, err := readSource(filePath)
	if err != nil {
		return nil, err
	}
	return p.ParseSource(ctx, source, filePath)
}

// ParseSource parses Python source and converts the concrete tree into a pyast.Module.
func (p *PythonParser) ParseSource(ctx context.Context, source []byte, filePath string) (*ParseResult, error) {
	tree, err := p.parseTree(ctx, source, filePath)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	c := &converter{source: source}
	module := pyast.At(&pyast.Module{Body: c.block(root)}, location(root))

	return &ParseResult{
		Module:    module,
		Source:    source,
		Language:  p.langName,
		FilePath:  filePath,
		HasErrors: root.HasError(),
	}, nil
}

// converter turns tree-sitter python nodes into pyast nodes
type converter struct {
	source []byte
}

func (c *converter) block(node *sitter.Node) []pyast.Stmt {
	var out []pyast.Stmt
	for _, child := range namedChildren(node) {
		out = append(out, c.stmt(child)...)
	}
	return out
}

// suite converts a statement body, which is normally a block node
func (c *converter) suite(node *sitter.Node) []pyast.Stmt {
	if node == nil {
		return nil
	}
	if node.Type() == "block" {
		return c.block(node)
	}
	return c.stmt(node)
}

func (c *converter) stmt(node *sitter.Node) []pyast.Stmt {
	switch node.Type() {
	case "expression_statement":
		return []pyast.Stmt{c.expressionStatement(node)}
	case "function_definition":
		return []pyast.Stmt{c.functionDef(node, nil)}
	case "class_definition":
		return []pyast.Stmt{c.classDef(node, nil)}
	case "decorated_definition":
		return c.decoratedDef(node)
	case "if_statement":
		return []pyast.Stmt{c.ifStatement(node)}
	case "while_statement":
		return []pyast.Stmt{pyast.At(&pyast.While{
			Test:   c.expr(field(node, "condition")),
			Body:   c.suite(field(node, "body")),
			Orelse: c.elseBody(field(node, "alternative")),
		}, location(node))}
	case "for_statement":
		return []pyast.Stmt{pyast.At(&pyast.For{
			Target: c.expr(field(node, "left")),
			Iter:   c.expr(field(node, "right")),
			Body:   c.suite(field(node, "body")),
			Orelse: c.elseBody(field(node, "alternative")),
			Async:  startsWithKeyword(node, "async"),
		}, location(node))}
	case "return_statement":
		ret := &pyast.Return{}
		if children := namedChildren(node); len(children) > 0 {
			ret.Value = c.expr(children[0])
		}
		return []pyast.Stmt{pyast.At(ret, location(node))}
	case "import_statement":
		return []pyast.Stmt{c.importStatement(node)}
	case "import_from_statement":
		return []pyast.Stmt{c.importFromStatement(node)}
	case "try_statement":
		return []pyast.Stmt{c.tryStatement(node)}
	case "with_statement":
		return []pyast.Stmt{c.withStatement(node)}
	case "block":
		return c.block(node)
	default:
		return []pyast.Stmt{c.generic(node)}
	}
}

func (c *converter) expressionStatement(node *sitter.Node) pyast.Stmt {
	children := namedChildren(node)
	if len(children) == 1 {
		switch children[0].Type() {
		case "assignment":
			return c.assignment(children[0], location(node))
		case "augmented_assignment":
			aug := children[0]
			return pyast.At(&pyast.AugAssign{
				Target: c.expr(field(aug, "left")),
				Op:     nodeText(field(aug, "operator"), c.source),
				Value:  c.expr(field(aug, "right")),
			}, location(node))
		}
		return pyast.At(&pyast.ExprStmt{Value: c.expr(children[0])}, location(node))
	}

	// a, b  evaluates a tuple
	seq := &pyast.Sequence{Kind: "tuple"}
	for _, child := range children {
		seq.Elts = append(seq.Elts, c.expr(child))
	}
	return pyast.At(&pyast.ExprStmt{Value: pyast.At(seq, location(node))}, location(node))
}

// assignment flattens chained assignments into a single Assign
func (c *converter) assignment(node *sitter.Node, loc pyast.Location) pyast.Stmt {
	right := field(node, "right")
	if right == nil {
		// bare annotation, nothing is bound
		return pyast.At(&pyast.Simple{Kind: "annotation"}, loc)
	}

	targets := []pyast.Expr{c.expr(field(node, "left"))}
	for right != nil && right.Type() == "assignment" {
		targets = append(targets, c.expr(field(right, "left")))
		right = field(right, "right")
	}

	return pyast.At(&pyast.Assign{Targets: targets, Value: c.expr(right)}, loc)
}

func (c *converter) decoratedDef(node *sitter.Node) []pyast.Stmt {
	var decorators []pyast.Expr
	for _, child := range namedChildren(node) {
		if child.Type() != "decorator" {
			continue
		}
		if inner := namedChildren(child); len(inner) > 0 {
			decorators = append(decorators, c.expr(inner[0]))
		}
	}

	def := field(node, "definition")
	if def == nil {
		return []pyast.Stmt{c.generic(node)}
	}
	switch def.Type() {
	case "function_definition":
		fn := c.functionDef(def, decorators)
		fn.Location = location(node)
		return []pyast.Stmt{fn}
	case "class_definition":
		cls := c.classDef(def, decorators)
		cls.Location = location(node)
		return []pyast.Stmt{cls}
	}
	return c.stmt(def)
}

func (c *converter) functionDef(node *sitter.Node, decorators []pyast.Expr) *pyast.FunctionDef {
	return pyast.At(&pyast.FunctionDef{
		Name:       identifier(field(node, "name"), c.source),
		Params:     c.parameters(field(node, "parameters")),
		Decorators: decorators,
		Body:       c.suite(field(node, "body")),
		Async:      startsWithKeyword(node, "async"),
	}, location(node))
}

func (c *converter) parameters(node *sitter.Node) []pyast.Param {
	if node == nil {
		return nil
	}

	var params []pyast.Param
	for _, p := range namedChildren(node) {
		switch p.Type() {
		case "identifier":
			params = append(params, pyast.Param{Name: identifier(p, c.source), Kind: "plain"})
		case "typed_parameter":
			inner := namedChildren(p)
			if len(inner) == 0 {
				continue
			}
			switch inner[0].Type() {
			case "identifier":
				params = append(params, pyast.Param{Name: identifier(inner[0], c.source), Kind: "plain"})
			case "list_splat_pattern":
				params = append(params, pyast.Param{Name: c.splatName(inner[0]), Kind: "list_splat"})
			case "dictionary_splat_pattern":
				params = append(params, pyast.Param{Name: c.splatName(inner[0]), Kind: "dict_splat"})
			}
		case "default_parameter", "typed_default_parameter":
			name := field(p, "name")
			if name == nil || name.Type() != "identifier" {
				continue
			}
			params = append(params, pyast.Param{
				Name:    identifier(name, c.source),
				Kind:    "default",
				Default: c.expr(field(p, "value")),
			})
		case "list_splat_pattern":
			params = append(params, pyast.Param{Name: c.splatName(p), Kind: "list_splat"})
		case "dictionary_splat_pattern":
			params = append(params, pyast.Param{Name: c.splatName(p), Kind: "dict_splat"})
		}
	}
	return params
}

func (c *converter) splatName(node *sitter.Node) string {
	for _, child := range namedChildren(node) {
		if child.Type() == "identifier" {
			return identifier(child, c.source)
		}
	}
	return ""
}

func (c *converter) classDef(node *sitter.Node, decorators []pyast.Expr) *pyast.ClassDef {
	cls := &pyast.ClassDef{
		Name:       identifier(field(node, "name"), c.source),
		Decorators: decorators,
		Body:       c.suite(field(node, "body")),
	}
	if supers := field(node, "superclasses"); supers != nil {
		for _, arg := range namedChildren(supers) {
			cls.Bases = append(cls.Bases, c.expr(arg))
		}
	}
	return pyast.At(cls, location(node))
}

func (c *converter) ifStatement(node *sitter.Node) *pyast.If {
	root := pyast.At(&pyast.If{
		Test: c.expr(field(node, "condition")),
		Body: c.suite(field(node, "consequence")),
	}, location(node))

	current := root
	for _, child := range namedChildren(node) {
		switch child.Type() {
		case "elif_clause":
			elif := pyast.At(&pyast.If{
				Test: c.expr(field(child, "condition")),
				Body: c.suite(field(child, "consequence")),
				Elif: true,
			}, location(child))
			current.Orelse = []pyast.Stmt{elif}
			current = elif
		case "else_clause":
			current.Orelse = c.suite(field(child, "body"))
		}
	}
	return root
}

func (c *converter) elseBody(node *sitter.Node) []pyast.Stmt {
	if node == nil {
		return nil
	}
	return c.suite(field(node, "body"))
}

func (c *converter) tryStatement(node *sitter.Node) pyast.Stmt {
	try := &pyast.Try{Body: c.suite(field(node, "body"))}
	for _, child := range namedChildren(node) {
		switch child.Type() {
		case "except_clause", "except_group_clause":
			var handler []pyast.Stmt
			for _, inner := range namedChildren(child) {
				if inner.Type() == "block" {
					handler = append(handler, c.block(inner)...)
				}
			}
			try.Handlers = append(try.Handlers, handler)
		case "else_clause":
			try.Orelse = c.suite(field(child, "body"))
		case "finally_clause":
			for _, inner := range namedChildren(child) {
				if inner.Type() == "block" {
					try.Finally = append(try.Finally, c.block(inner)...)
				}
			}
		}
	}
	return pyast.At(try, location(node))
}

func (c *converter) withStatement(node *sitter.Node) pyast.Stmt {
	with := &pyast.With{
		Body:  c.suite(field(node, "body")),
		Async: startsWithKeyword(node, "async"),
	}
	for _, child := range namedChildren(node) {
		if child.Type() != "with_clause" {
			continue
		}
		for _, item := range namedChildren(child) {
			if value := field(item, "value"); value != nil {
				with.Items = append(with.Items, c.expr(value))
			} else {
				with.Items = append(with.Items, c.expr(item))
			}
		}
	}
	return pyast.At(with, location(node))
}

func (c *converter) importStatement(node *sitter.Node) pyast.Stmt {
	imp := &pyast.Import{}
	for _, child := range namedChildren(node) {
		if alias := c.alias(child); alias != nil {
			imp.Names = append(imp.Names, alias)
		}
	}
	return pyast.At(imp, location(node))
}

func (c *converter) importFromStatement(node *sitter.Node) pyast.Stmt {
	imp := &pyast.ImportFrom{}

	moduleNode := field(node, "module_name")
	if moduleNode != nil {
		switch moduleNode.Type() {
		case "dotted_name":
			imp.Module = c.dottedName(moduleNode)
		case "relative_import":
			for _, part := range namedChildren(moduleNode) {
				switch part.Type() {
				case "import_prefix":
					imp.Level = strings.Count(nodeText(part, c.source), ".")
				case "dotted_name":
					imp.Module = c.dottedName(part)
				}
			}
		}
	}

	for _, child := range namedChildren(node) {
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() && child.EndByte() == moduleNode.EndByte() {
			continue
		}
		if child.Type() == "wildcard_import" {
			imp.Names = append(imp.Names, &pyast.Alias{Name: "*"})
			continue
		}
		if alias := c.alias(child); alias != nil {
			imp.Names = append(imp.Names, alias)
		}
	}
	return pyast.At(imp, location(node))
}

// alias converts dotted_name and aliased_import nodes
func (c *converter) alias(node *sitter.Node) *pyast.Alias {
	switch node.Type() {
	case "dotted_name":
		return &pyast.Alias{Name: c.dottedName(node)}
	case "aliased_import":
		return &pyast.Alias{
			Name:   c.dottedName(field(node, "name")),
			AsName: identifier(field(node, "alias"), c.source),
		}
	}
	return nil
}

func (c *converter) dottedName(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	if node.Type() == "identifier" {
		return identifier(node, c.source)
	}
	var parts []string
	for _, child := range namedChildren(node) {
		parts = append(parts, identifier(child, c.source))
	}
	return strings.Join(parts, ".")
}

// generic keeps the expressions and nested bodies of statements without a
// dedicated node type
func (c *converter) generic(node *sitter.Node) pyast.Stmt {
	var exprs []pyast.Expr
	var bodies [][]pyast.Stmt
	c.collectGeneric(node, &exprs, &bodies)

	if len(bodies) == 0 {
		return pyast.At(&pyast.Simple{Kind: node.Type(), Exprs: exprs}, location(node))
	}
	return pyast.At(&pyast.Compound{Kind: node.Type(), Exprs: exprs, Bodies: bodies}, location(node))
}

func (c *converter) collectGeneric(node *sitter.Node, exprs *[]pyast.Expr, bodies *[][]pyast.Stmt) {
	for _, child := range namedChildren(node) {
		kind := child.Type()
		switch {
		case kind == "block":
			*bodies = append(*bodies, c.block(child))
		case isStatement(kind):
			*bodies = append(*bodies, c.stmt(child))
		case strings.HasSuffix(kind, "_clause"):
			c.collectGeneric(child, exprs, bodies)
		default:
			*exprs = append(*exprs, c.expr(child))
		}
	}
}

func isStatement(kind string) bool {
	switch kind {
	case "function_definition", "class_definition", "decorated_definition":
		return true
	}
	return strings.HasSuffix(kind, "_statement")
}

func (c *converter) expr(node *sitter.Node) pyast.Expr {
	if node == nil {
		return nil
	}
	loc := location(node)

	switch node.Type() {
	case "identifier":
		return pyast.At(&pyast.Name{ID: identifier(node, c.source)}, loc)
	case "attribute":
		return pyast.At(&pyast.Attribute{
			Value: c.expr(field(node, "object")),
			Attr:  identifier(field(node, "attribute"), c.source),
		}, loc)
	case "call":
		return c.call(node)
	case "string", "concatenated_string":
		return c.str(node)
	case "integer", "float", "true", "false", "none", "ellipsis":
		return pyast.At(&pyast.Constant{Kind: node.Type(), Value: nodeText(node, c.source)}, loc)
	case "binary_operator":
		return pyast.At(&pyast.BinOp{
			Left:  c.expr(field(node, "left")),
			Op:    nodeText(field(node, "operator"), c.source),
			Right: c.expr(field(node, "right")),
		}, loc)
	case "tuple", "list", "set", "pattern_list", "tuple_pattern", "list_pattern", "expression_list":
		seq := &pyast.Sequence{Kind: node.Type()}
		for _, child := range namedChildren(node) {
			seq.Elts = append(seq.Elts, c.expr(child))
		}
		return pyast.At(seq, loc)
	case "parenthesized_expression":
		if children := namedChildren(node); len(children) == 1 {
			return c.expr(children[0])
		}
	case "keyword_argument":
		return c.expr(field(node, "value"))
	}

	other := &pyast.Other{Kind: node.Type()}
	if node.EndByte()-node.StartByte() <= maxOtherText {
		other.Text = nodeText(node, c.source)
	}
	for _, child := range namedChildren(node) {
		other.Children = append(other.Children, c.expr(child))
	}
	return pyast.At(other, loc)
}

func (c *converter) call(node *sitter.Node) pyast.Expr {
	call := &pyast.Call{Func: c.expr(field(node, "function"))}

	args := field(node, "arguments")
	switch {
	case args == nil:
	case args.Type() == "argument_list":
		for _, arg := range namedChildren(args) {
			if arg.Type() == "keyword_argument" {
				call.Keywords = append(call.Keywords, &pyast.Keyword{
					Name:  identifier(field(arg, "name"), c.source),
					Value: c.expr(field(arg, "value")),
				})
				continue
			}
			call.Args = append(call.Args, c.expr(arg))
		}
	default:
		// f(x for x in y)
		call.Args = append(call.Args, c.expr(args))
	}
	return pyast.At(call, location(node))
}

// str converts string literals; f-strings keep their interpolated expressions
func (c *converter) str(node *sitter.Node) pyast.Expr {
	var values []pyast.Expr
	WalkAST(node, c.source, func(n *sitter.Node) bool {
		if n.Type() != "interpolation" {
			return true
		}
		inner := field(n, "expression")
		if inner == nil {
			if children := namedChildren(n); len(children) > 0 {
				inner = children[0]
			}
		}
		if inner != nil {
			values = append(values, c.expr(inner))
		}
		return false
	})

	if len(values) > 0 {
		return pyast.At(&pyast.JoinedStr{Values: values}, location(node))
	}
	return pyast.At(&pyast.Constant{Kind: "string", Value: nodeText(node, c.source)}, location(node))
}

// startsWithKeyword reports whether node's first token is kw (e.g. "async")
func startsWithKeyword(node *sitter.Node, kw string) bool {
	if node.ChildCount() == 0 {
		return false
	}
	first := node.Child(0)
	return first != nil && first.Type() == kw
}
