package conformance

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/roach88/sobootstrap/internal/registry"
)

// DeclKind distinguishes callable declarations from plain values.
type DeclKind string

const (
	DeclFunction DeclKind = "function"
	DeclValue    DeclKind = "value"
)

// Decl is one top-level declaration found in emitted source.
type Decl struct {
	Symbol string
	Kind   DeclKind
	Line   int

	// Fixed counts positional parameters; Rest reports a trailing rest
	// parameter. Both are zero for values.
	Fixed int
	Rest  bool

	// Fold is the direction of the first fold found in the body, or
	// NotFoldable when the body performs none.
	Fold registry.FoldDirection

	// RaisesFirst reports that the body's first statement raises.
	RaisesFirst bool

	// HasCast reports a value carrying a callable cast member.
	HasCast bool
}

// Inspection is everything an Inspector found in a source file.
type Inspection struct {
	Decls map[string]Decl
	// Order lists declared symbols in source order, duplicates included.
	Order []string
	// SyntaxErrors is the line of each ERROR or MISSING node.
	SyntaxErrors []int
}

func newInspection() *Inspection {
	return &Inspection{Decls: make(map[string]Decl)}
}

func (in *Inspection) add(d Decl) {
	in.Order = append(in.Order, d.Symbol)
	if _, seen := in.Decls[d.Symbol]; !seen {
		in.Decls[d.Symbol] = d
	}
}

// Count returns how many times symbol is declared.
func (in *Inspection) Count(symbol string) int {
	n := 0
	for _, s := range in.Order {
		if s == symbol {
			n++
		}
	}
	return n
}

// Inspector parses one target language.
type Inspector interface {
	Target() string
	Inspect(src []byte) (*Inspection, error)
}

// InspectorFor returns the inspector for a shipped target.
func InspectorFor(target string) (Inspector, error) {
	switch target {
	case "javascript":
		return JavaScriptInspector{}, nil
	case "python":
		return PythonInspector{}, nil
	default:
		return nil, fmt.Errorf("conformance: no inspector for target %q", target)
	}
}

// parse runs a fresh parser; parsers are not safe for concurrent use, so
// each inspection owns one.
func parse(lang *sitter.Language, src []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	if err := p.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("conformance: %w", err)
	}
	tree := p.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("conformance: parse failed")
	}
	return tree, nil
}

func text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

func line(n *sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil && c.Kind() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// walk visits n and its descendants depth first until visit returns false.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if !walk(n.Child(i), visit) {
			return false
		}
	}
	return true
}

func syntaxErrors(root *sitter.Node) []int {
	if !root.HasError() {
		return nil
	}
	var lines []int
	walk(root, func(n *sitter.Node) bool {
		if n.IsError() || n.IsMissing() {
			lines = append(lines, line(n))
		}
		return true
	})
	if len(lines) == 0 {
		lines = append(lines, line(root))
	}
	return lines
}
