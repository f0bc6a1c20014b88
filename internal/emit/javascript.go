package emit

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

const javascriptTemplates = `
{{define "prelude"}}
const {{.Print}} = console.log;
const readline = require('readline');
const {{.Input}} = (_question, _callback) => {
	let rl = readline.createInterface({
		input: process.stdin,
		output: process.stdout
	});
	rl.question(_question, result => {
		_callback(result);
		rl.close();
	});
};
{{end}}

{{define "type"}}
const {{.Ref}} = {
	'cast': v => {{.Cast}}
};
{{end}}

{{define "fault"}}
function {{.Symbol}}({{.Params}}) {
	throw new Error({{.Message}});
}
{{end}}

{{define "fold"}}
function {{.Symbol}}({{.Params}}) {
	return {{.Rest}}.{{if .Right}}reduceRight{{else}}reduce{{end}}((acc, c) => {{.Combine}}, {{.Seed}});
}
{{end}}

{{define "compare"}}
function {{.Symbol}}({{.Params}}) {
	return {{.Combine}};
}
{{end}}

{{define "cast"}}
function {{.Symbol}}({{.Params}}) {
	return {{.TypeParam}}.cast({{.Value}});
}
{{end}}
`

type javascript struct {
	d *dialect
}

// JavaScript returns the adapter for Node.js bootstraps.
func JavaScript() Adapter {
	return &javascript{d: &dialect{
		target:     "javascript",
		comment:    "//",
		restPrefix: "...",
		operators: map[string]string{
			"^":  "{l} ** {r}",
			"*":  "{l} * {r}",
			"/":  "{l} / {r}",
			"%":  "{l} % {r}",
			"+":  "{l} + {r}",
			"-":  "{l} - {r}",
			">=": "{l} >= {r}",
			"<=": "{l} <= {r}",
			">":  "{l} > {r}",
			"<":  "{l} < {r}",
			"==": "{l} == {r}",
			"!=": "{l} != {r}",
		},
		casts: map[ir.TypeTag]string{
			ir.TypeInt:    "v | 0",
			ir.TypeFloat:  "+v",
			ir.TypeString: "String(v)",
		},
		tmpl: template.Must(template.New("javascript").Parse(javascriptTemplates)),
	}}
}

func (a *javascript) Target() string { return a.d.target }

func (a *javascript) Emit(reg *registry.Registry, types *registry.TypeTable, s ir.Settings) (*Emission, error) {
	return a.d.render(reg, types, s)
}

func (a *javascript) CallExpr(code ir.OperatorCode, args ...string) string {
	return fmt.Sprintf("%s(%s)", OperatorSymbol(code), strings.Join(args, ", "))
}

func (a *javascript) TypeRef(tag ir.TypeTag) string { return TypeSymbol(tag) }
