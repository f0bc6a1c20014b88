package conformance

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"github.com/roach88/sobootstrap/internal/registry"
)

// JavaScriptInspector reads top-level function declarations and const/let
// bindings from JavaScript source.
type JavaScriptInspector struct{}

func (JavaScriptInspector) Target() string { return "javascript" }

func (JavaScriptInspector) Inspect(src []byte) (*Inspection, error) {
	tree, err := parse(sitter.NewLanguage(tree_sitter_javascript.Language()), src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	in := newInspection()
	in.SyntaxErrors = syntaxErrors(root)

	for _, node := range namedChildren(root) {
		switch node.Kind() {
		case "function_declaration":
			d := Decl{
				Symbol: text(node.ChildByFieldName("name"), src),
				Kind:   DeclFunction,
				Line:   line(node),
			}
			jsFunction(&d, node.ChildByFieldName("parameters"), node.ChildByFieldName("body"), src)
			in.add(d)

		case "lexical_declaration", "variable_declaration":
			for _, decl := range namedChildren(node) {
				if decl.Kind() != "variable_declarator" {
					continue
				}
				in.add(jsBinding(decl, src))
			}
		}
	}
	return in, nil
}

func jsBinding(decl *sitter.Node, src []byte) Decl {
	d := Decl{
		Symbol: text(decl.ChildByFieldName("name"), src),
		Kind:   DeclValue,
		Line:   line(decl),
		Fold:   registry.NotFoldable,
	}
	value := decl.ChildByFieldName("value")
	if value == nil {
		return d
	}
	switch value.Kind() {
	case "arrow_function", "function_expression", "function":
		d.Kind = DeclFunction
		params := value.ChildByFieldName("parameters")
		if params == nil {
			// x => ... has a single bare parameter.
			params = value.ChildByFieldName("parameter")
		}
		jsFunction(&d, params, value.ChildByFieldName("body"), src)
	case "object":
		d.HasCast = jsHasCast(value, src)
	}
	return d
}

func jsFunction(d *Decl, params, body *sitter.Node, src []byte) {
	d.Fold = registry.NotFoldable
	if params != nil {
		if params.Kind() == "identifier" {
			d.Fixed = 1
		} else {
			for _, p := range namedChildren(params) {
				if p.Kind() == "rest_pattern" {
					d.Rest = true
				} else {
					d.Fixed++
				}
			}
		}
	}
	if body == nil {
		return
	}
	if body.Kind() == "statement_block" {
		if stmts := namedChildren(body); len(stmts) > 0 {
			d.RaisesFirst = stmts[0].Kind() == "throw_statement"
		}
	}
	walk(body, func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		fn := n.ChildByFieldName("function")
		if fn == nil || fn.Kind() != "member_expression" {
			return true
		}
		switch text(fn.ChildByFieldName("property"), src) {
		case "reduce":
			d.Fold = registry.LeftAssociative
			return false
		case "reduceRight":
			d.Fold = registry.RightAssociative
			return false
		}
		return true
	})
}

// jsHasCast looks for a cast property whose value is a function.
func jsHasCast(obj *sitter.Node, src []byte) bool {
	for _, member := range namedChildren(obj) {
		switch member.Kind() {
		case "pair":
			key := strings.Trim(text(member.ChildByFieldName("key"), src), `'"`)
			if key != "cast" {
				continue
			}
			value := member.ChildByFieldName("value")
			if value == nil {
				continue
			}
			switch value.Kind() {
			case "arrow_function", "function_expression", "function":
				return true
			}
		case "method_definition":
			if text(member.ChildByFieldName("name"), src) == "cast" {
				return true
			}
		}
	}
	return false
}
