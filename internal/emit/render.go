package emit

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// dialect holds everything target-specific about rendering. Templates are
// written with tab indentation; the renderer converts leading tabs to the
// configured indent width.
type dialect struct {
	target  string
	comment string
	// restPrefix marks a rest parameter ("..." or "*").
	restPrefix string
	// minIndent is the smallest indent width that keeps the source valid.
	minIndent int
	// blockGap separates multi-line blocks with a blank line when prettified.
	blockGap bool
	// operators spells a surface operator over {l} and {r}.
	operators map[string]string
	// casts spells a cast rule over the value v.
	casts map[ir.TypeTag]string
	tmpl  *template.Template
}

const restName = "a"

type ioData struct {
	Print string
	Input string
}

type typeData struct {
	Ref  string
	Cast string
}

type opData struct {
	Symbol    string
	Params    string
	Rest      string
	Right     bool
	Combine   string
	Seed      string
	TypeParam string
	Value     string
	Message   string
}

// section is a group of blocks introduced by an optional comment.
type section struct {
	comment string
	blocks  []string
}

func (d *dialect) render(reg *registry.Registry, types *registry.TypeTable, s ir.Settings) (*Emission, error) {
	if s.Indent < d.minIndent {
		return nil, &RenderError{Target: d.target, Subject: "settings", Reason: fmt.Sprintf("indent %d is below %d", s.Indent, d.minIndent)}
	}

	prelude, err := d.exec("prelude", ioData{Print: PrintSymbol, Input: InputSymbol})
	if err != nil {
		return nil, err
	}

	typeSec := section{comment: "type information"}
	for _, td := range types.All() {
		block, err := d.renderType(td)
		if err != nil {
			return nil, err
		}
		typeSec.blocks = append(typeSec.blocks, block)
	}

	opSec := section{comment: "operators implementation"}
	for _, od := range reg.All() {
		block, err := d.renderOperator(od)
		if err != nil {
			return nil, err
		}
		opSec.blocks = append(opSec.blocks, block)
	}

	src := d.layout(s, []section{{blocks: []string{prelude}}, typeSec, opSec})
	return &Emission{
		Target:     d.target,
		Settings:   s,
		Source:     []byte(src),
		Primitives: primitives(reg, types),
	}, nil
}

func (d *dialect) renderType(td registry.TypeDescriptor) (string, error) {
	cast, ok := d.casts[td.Tag()]
	if !ok {
		return "", &RenderError{Target: d.target, Subject: string(td.Tag()), Reason: "no cast rule"}
	}
	return d.exec("type", typeData{Ref: TypeSymbol(td.Tag()), Cast: cast})
}

func (d *dialect) renderOperator(od registry.OperatorDescriptor) (string, error) {
	data := opData{
		Symbol: OperatorSymbol(od.Code),
		Params: d.params(od),
		Rest:   restName,
	}

	switch od.Class {
	case registry.ClassFault:
		data.Message = strconv.Quote(registry.NewInvalidOperationError().Message)
		return d.exec("fault", data)

	case registry.ClassFold:
		data.Right = od.Fold == registry.RightAssociative
		switch od.Identity.Kind {
		case registry.IdentityConstant:
			data.Seed = ir.FormatNumber(od.Identity.Value)
		case registry.IdentityFirstOperand:
			if od.Arity.Leading != 1 {
				return "", d.opError(od, "first-operand seed needs exactly one leading parameter")
			}
			data.Seed = leadingName(od, 0)
		default:
			return "", d.opError(od, "fold without identity")
		}
		l, r := "acc", "c"
		if data.Right {
			l, r = "c", "acc"
		}
		combine, err := d.spell(od, l, r)
		if err != nil {
			return "", err
		}
		data.Combine = combine
		return d.exec("fold", data)

	case registry.ClassCompare:
		combine, err := d.spell(od, leadingName(od, 0), leadingName(od, 1))
		if err != nil {
			return "", err
		}
		data.Combine = combine
		return d.exec("compare", data)

	case registry.ClassCast:
		data.Value = leadingName(od, 0)
		data.TypeParam = leadingName(od, 1)
		return d.exec("cast", data)
	}
	return "", d.opError(od, fmt.Sprintf("unknown class %q", od.Class))
}

func (d *dialect) opError(od registry.OperatorDescriptor, reason string) error {
	return &RenderError{Target: d.target, Subject: od.Name(), Reason: reason}
}

// spell renders the operator's surface symbol over two operand expressions.
func (d *dialect) spell(od registry.OperatorDescriptor, l, r string) (string, error) {
	pattern, ok := d.operators[od.Symbol]
	if !ok {
		return "", d.opError(od, fmt.Sprintf("no spelling for symbol %q", od.Symbol))
	}
	return strings.NewReplacer("{l}", l, "{r}", r).Replace(pattern), nil
}

// leadingName names the i-th leading parameter: l, r, then p2, p3...
// CAST's second parameter is the type descriptor t.
func leadingName(od registry.OperatorDescriptor, i int) string {
	switch {
	case i == 0:
		return "l"
	case i == 1 && od.Class == registry.ClassCast:
		return "t"
	case i == 1:
		return "r"
	default:
		return fmt.Sprintf("p%d", i)
	}
}

func (d *dialect) params(od registry.OperatorDescriptor) string {
	names := make([]string, 0, od.Arity.Leading+1)
	for i := 0; i < od.Arity.Leading; i++ {
		names = append(names, leadingName(od, i))
	}
	if od.Arity.Variadic {
		names = append(names, d.restPrefix+restName)
	}
	return strings.Join(names, ", ")
}

func (d *dialect) exec(name string, data any) (string, error) {
	var sb strings.Builder
	if err := d.tmpl.ExecuteTemplate(&sb, name, data); err != nil {
		return "", &RenderError{Target: d.target, Subject: name, Reason: err.Error()}
	}
	return sb.String(), nil
}

// layout assembles sections between the bootstrap markers. Prettified
// output keeps section comments and blank lines; compact output drops both.
func (d *dialect) layout(s ir.Settings, sections []section) string {
	w := &lineWriter{indent: strings.Repeat(" ", s.Indent), keepBlank: s.Prettify}
	w.line(d.comment + " ##START_BOOTSTRAP")
	for i, sec := range sections {
		if i > 0 {
			w.blank()
		}
		if sec.comment != "" && s.Prettify {
			w.line(d.comment + " " + sec.comment)
		}
		for j, block := range sec.blocks {
			if j > 0 && d.blockGap {
				w.blank()
			}
			w.block(block)
		}
	}
	w.blank()
	w.line(d.comment + " ##END_BOOTSTRAP")
	return w.String()
}

// lineWriter collects output lines. Blank lines are collapsed and never
// lead the output; they are dropped entirely unless keepBlank is set.
type lineWriter struct {
	sb        strings.Builder
	indent    string
	keepBlank bool
	pending   bool
	started   bool
}

func (w *lineWriter) blank() {
	if w.keepBlank && w.started {
		w.pending = true
	}
}

func (w *lineWriter) line(text string) {
	if w.pending {
		w.sb.WriteByte('\n')
		w.pending = false
	}
	w.sb.WriteString(text)
	w.sb.WriteByte('\n')
	w.started = true
}

// block writes template output, converting leading tabs to indentation.
// Blank lines around the block are dropped; blank lines inside it follow
// keepBlank.
func (w *lineWriter) block(text string) {
	text = strings.Trim(text, "\n")
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, " \t\r")
		content := strings.TrimLeft(raw, "\t")
		if content == "" {
			w.blank()
			continue
		}
		depth := len(raw) - len(content)
		w.line(strings.Repeat(w.indent, depth) + content)
	}
}

func (w *lineWriter) String() string { return w.sb.String() }
