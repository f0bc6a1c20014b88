package conformance

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/roach88/sobootstrap/internal/registry"
)

// PythonInspector reads module-level def statements and assignments from
// Python source.
type PythonInspector struct{}

func (PythonInspector) Target() string { return "python" }

func (PythonInspector) Inspect(src []byte) (*Inspection, error) {
	tree, err := parse(sitter.NewLanguage(tree_sitter_python.Language()), src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	in := newInspection()
	in.SyntaxErrors = syntaxErrors(root)

	for _, node := range namedChildren(root) {
		switch node.Kind() {
		case "function_definition":
			d := Decl{
				Symbol: text(node.ChildByFieldName("name"), src),
				Kind:   DeclFunction,
				Line:   line(node),
			}
			pyFunction(&d, node.ChildByFieldName("parameters"), node.ChildByFieldName("body"), src)
			in.add(d)

		case "expression_statement":
			for _, expr := range namedChildren(node) {
				if expr.Kind() != "assignment" {
					continue
				}
				left := expr.ChildByFieldName("left")
				if left == nil || left.Kind() != "identifier" {
					continue
				}
				in.add(pyBinding(expr, text(left, src), src))
			}
		}
	}
	return in, nil
}

func pyBinding(assign *sitter.Node, symbol string, src []byte) Decl {
	d := Decl{
		Symbol: symbol,
		Kind:   DeclValue,
		Line:   line(assign),
		Fold:   registry.NotFoldable,
	}
	right := assign.ChildByFieldName("right")
	if right == nil {
		return d
	}
	switch right.Kind() {
	case "lambda":
		d.Kind = DeclFunction
		pyFunction(&d, right.ChildByFieldName("parameters"), right.ChildByFieldName("body"), src)
	case "call":
		d.HasCast = pyHasCast(right, src)
	}
	return d
}

func pyFunction(d *Decl, params, body *sitter.Node, src []byte) {
	d.Fold = registry.NotFoldable
	for _, p := range namedChildren(params) {
		switch p.Kind() {
		case "list_splat_pattern":
			d.Rest = true
		case "dictionary_splat_pattern", "keyword_separator", "positional_separator":
		default:
			d.Fixed++
		}
	}
	if body == nil {
		return
	}
	if body.Kind() == "block" {
		if stmts := namedChildren(body); len(stmts) > 0 {
			d.RaisesFirst = stmts[0].Kind() == "raise_statement"
		}
	}
	walk(body, func(n *sitter.Node) bool {
		if n.Kind() != "call" || !isReduce(n.ChildByFieldName("function"), src) {
			return true
		}
		d.Fold = registry.LeftAssociative
		args := namedChildren(n.ChildByFieldName("arguments"))
		if len(args) >= 2 && args[1].Kind() == "call" &&
			text(args[1].ChildByFieldName("function"), src) == "reversed" {
			d.Fold = registry.RightAssociative
		}
		return false
	})
}

func isReduce(fn *sitter.Node, src []byte) bool {
	switch text(fn, src) {
	case "functools.reduce", "reduce":
		return true
	}
	return false
}

// pyHasCast looks for a cast keyword argument, as in
// types.SimpleNamespace(cast=lambda v: ...).
func pyHasCast(call *sitter.Node, src []byte) bool {
	for _, arg := range namedChildren(call.ChildByFieldName("arguments")) {
		if arg.Kind() == "keyword_argument" && text(arg.ChildByFieldName("name"), src) == "cast" {
			return true
		}
	}
	return false
}
