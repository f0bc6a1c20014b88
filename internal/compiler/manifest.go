package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sobootstrap/internal/emit"
	"github.com/roach88/sobootstrap/internal/ir"
)

// manifestSchema constrains build manifests. Defaults mirror
// ir.DefaultSettings.
const manifestSchema = `
#Target: {
	indent:   int & >=0 | *2
	prettify: bool | *true
}

#Manifest: {
	name: string & !=""
	targets: [string]: #Target
}
`

// CompileManifest parses a CUE value into a BuildManifest.
//
// The value is the manifest struct itself, e.g.:
//
//	name: "nightly"
//	targets: {
//		javascript: {}
//		python: indent: 4
//	}
//
// Targets come out sorted by name so releases join results in a fixed order.
func CompileManifest(v cue.Value) (*ir.BuildManifest, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(manifestSchema)
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	m := &ir.BuildManifest{}
	name, err := unified.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	m.Name = name

	targetsVal := v.LookupPath(cue.ParsePath("targets"))
	if !targetsVal.Exists() {
		return nil, &CompileError{Field: "targets", Message: "at least one target is required", Pos: v.Pos()}
	}

	iter, err := unified.LookupPath(cue.ParsePath("targets")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		if _, err := emit.Lookup(label); err != nil {
			return nil, &CompileError{
				Field:   "targets." + label,
				Message: fmt.Sprintf("unknown target (supported: %v)", emit.Targets()),
				Pos:     targetsVal.LookupPath(cue.MakePath(cue.Str(label))).Pos(),
			}
		}
		settings, err := compileSettings(iter.Value())
		if err != nil {
			return nil, err
		}
		m.Targets = append(m.Targets, ir.TargetConfig{Target: label, Settings: settings})
	}
	if len(m.Targets) == 0 {
		return nil, &CompileError{Field: "targets", Message: "at least one target is required", Pos: targetsVal.Pos()}
	}

	slices.SortFunc(m.Targets, func(a, b ir.TargetConfig) int {
		return ir.CompareUTF16(a.Target, b.Target)
	})
	return m, nil
}

func compileSettings(v cue.Value) (ir.Settings, error) {
	indent, err := v.LookupPath(cue.ParsePath("indent")).Int64()
	if err != nil {
		return ir.Settings{}, formatCUEError(err)
	}
	prettify, err := v.LookupPath(cue.ParsePath("prettify")).Bool()
	if err != nil {
		return ir.Settings{}, formatCUEError(err)
	}
	return ir.Settings{Indent: int(indent), Prettify: prettify}, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}
