package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

func num(f float64) ir.Operand { return ir.Lit(ir.Number(f)) }

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValidProgram(t *testing.T) {
	prog := &ir.Program{Name: "ok", Steps: []ir.Step{
		{Op: ir.OpPow, Operands: []ir.Operand{num(2), num(3), num(2)}},
		{Op: ir.OpMul},
		{Op: ir.OpCast, Operands: []ir.Operand{ir.RefTo(0), ir.TypeOperand(ir.TypeString)}},
		{Op: ir.OpEQ, Operands: []ir.Operand{ir.RefTo(2), ir.Lit(ir.String("512"))}},
	}}

	errs := Validate(prog)
	assert.Empty(t, errs, "valid program should have no errors")
}

func TestValidateEmptyProgram(t *testing.T) {
	errs := Validate(&ir.Program{Name: "empty"})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyProgram, errs[0].Code)
}

func TestValidateUnknownOperator(t *testing.T) {
	prog := &ir.Program{Steps: []ir.Step{
		{Op: ir.OperatorCode(99), Operands: []ir.Operand{{}, ir.TypeOperand("bogus")}},
	}}

	errs := Validate(prog)
	require.Len(t, errs, 1, "operands of an unknown code are not checked")
	assert.Equal(t, ErrUnknownOperator, errs[0].Code)
	assert.Equal(t, "steps[0].op", errs[0].Field)
}

func TestValidateArity(t *testing.T) {
	prog := &ir.Program{Steps: []ir.Step{
		{Op: ir.OpGE},
		{Op: ir.OpLT, Operands: []ir.Operand{num(1), num(2), num(3)}},
		{Op: ir.OpPow},
		{Op: ir.OpSub},
		{Op: ir.OpInvalid, Operands: []ir.Operand{num(1)}},
	}}

	errs := Validate(prog)
	assert.Equal(t, []string{ErrArityMismatch, ErrArityMismatch, ErrArityMismatch, ErrArityMismatch, ErrArityMismatch}, codes(errs))
	assert.Contains(t, errs[0].Message, "exactly 2")
	assert.Contains(t, errs[2].Message, "at least 1")
}

func TestValidateCastOperands(t *testing.T) {
	prog := &ir.Program{Steps: []ir.Step{
		{Op: ir.OpCast, Operands: []ir.Operand{num(1), num(2)}},
		{Op: ir.OpCast, Operands: []ir.Operand{num(1), ir.TypeOperand("bool")}},
		{Op: ir.OpCast, Operands: []ir.Operand{ir.TypeOperand(ir.TypeInt), ir.TypeOperand(ir.TypeInt)}},
	}}

	errs := Validate(prog)
	assert.Equal(t, []string{ErrCastType, ErrCastType, ErrMisplacedType}, codes(errs))
	assert.Equal(t, "steps[0].operands[1]", errs[0].Field)
	assert.Equal(t, "steps[2].operands[0].type", errs[2].Field)
}

func TestValidateReferences(t *testing.T) {
	prog := &ir.Program{Steps: []ir.Step{
		{Op: ir.OpAdd, Operands: []ir.Operand{ir.RefTo(0)}},
		{Op: ir.OpAdd, Operands: []ir.Operand{ir.RefTo(0), ir.RefTo(5), ir.RefTo(-1)}},
	}}

	errs := Validate(prog)
	assert.Equal(t, []string{ErrBadReference, ErrBadReference, ErrBadReference}, codes(errs))
	assert.Equal(t, "steps[0].operands[0].ref", errs[0].Field)
	assert.Equal(t, "steps[1].operands[1].ref", errs[1].Field)
}

func TestValidateMisplacedType(t *testing.T) {
	prog := &ir.Program{Steps: []ir.Step{
		{Op: ir.OpMul, Operands: []ir.Operand{ir.TypeOperand(ir.TypeFloat)}},
	}}

	errs := Validate(prog)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrMisplacedType, errs[0].Code)
}

func TestValidateEmptyOperand(t *testing.T) {
	prog := &ir.Program{Steps: []ir.Step{
		{Op: ir.OpMul, Operands: []ir.Operand{{}}},
	}}

	errs := Validate(prog)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyOperand, errs[0].Code)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	prog := &ir.Program{Steps: []ir.Step{
		{Op: ir.OperatorCode(42)},
		{Op: ir.OpEQ, Operands: []ir.Operand{ir.RefTo(3)}},
	}}

	errs := Validate(prog)
	assert.Equal(t, []string{ErrUnknownOperator, ErrArityMismatch, ErrBadReference}, codes(errs))
}

func TestValidateWithSubsetRegistry(t *testing.T) {
	all := registry.Default().All()
	reg, err := registry.New(all[0], all[2])
	require.NoError(t, err)

	prog := &ir.Program{Steps: []ir.Step{{Op: ir.OpAdd, Operands: []ir.Operand{num(1)}}}}
	errs := ValidateWith(reg, registry.DefaultTypes(), prog)
	assert.Equal(t, []string{ErrUnknownOperator}, codes(errs))
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "steps[0].op", Message: "bad", Code: ErrUnknownOperator}
	assert.Equal(t, "[E201] steps[0].op: bad", e.Error())
}

func TestAnalyzeUsage(t *testing.T) {
	prog := &ir.Program{Steps: []ir.Step{
		{Op: ir.OpMul, Operands: []ir.Operand{num(2)}},
		{Op: ir.OpMul, Operands: []ir.Operand{num(3)}},
		{Op: ir.OpInvalid},
		{Op: ir.OpAdd, Operands: []ir.Operand{ir.RefTo(0)}},
	}}

	warnings := AnalyzeUsage(prog)
	require.Len(t, warnings, 2)
	assert.Equal(t, 1, warnings[0].Step)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Equal(t, 2, warnings[1].Step)
	assert.Equal(t, "info", warnings[1].Level)
}

func TestAnalyzeUsageEmpty(t *testing.T) {
	assert.Empty(t, AnalyzeUsage(&ir.Program{}))
}
