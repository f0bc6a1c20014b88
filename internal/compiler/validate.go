package compiler

import (
	"fmt"

	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// Validation error codes (E200-E299)
const (
	ErrEmptyProgram    = "E200" // program has no steps
	ErrUnknownOperator = "E201" // step uses an unregistered code
	ErrArityMismatch   = "E202" // operand count not accepted by the code's arity
	ErrCastType        = "E203" // CAST without a registered type tag as second operand
	ErrBadReference    = "E204" // ref to the current or a later step
	ErrMisplacedType   = "E205" // type tag anywhere but CAST's second operand
	ErrEmptyOperand    = "E206" // operand sets neither literal, ref nor type
)

// ValidationError represents a program validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks prog against the default registry and type table.
// Returns all errors found (does not fail-fast).
func Validate(prog *ir.Program) []ValidationError {
	return ValidateWith(registry.Default(), registry.DefaultTypes(), prog)
}

// ValidateWith checks prog against the given tables.
func ValidateWith(reg *registry.Registry, types *registry.TypeTable, prog *ir.Program) []ValidationError {
	var errs []ValidationError

	if len(prog.Steps) == 0 {
		errs = append(errs, ValidationError{
			Field:   "steps",
			Message: "program must have at least one step",
			Code:    ErrEmptyProgram,
		})
	}

	for i, step := range prog.Steps {
		field := fmt.Sprintf("steps[%d]", i)

		// E201: unknown operator; nothing else about the step can be checked
		desc, err := reg.Resolve(step.Op)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".op",
				Message: fmt.Sprintf("operator code %d is not registered", uint8(step.Op)),
				Code:    ErrUnknownOperator,
			})
			continue
		}

		// E202: arity
		if !desc.Arity.Accepts(len(step.Operands)) {
			errs = append(errs, ValidationError{
				Field:   field + ".operands",
				Message: fmt.Sprintf("%s expects %s operands, got %d", step.Op, desc.Arity, len(step.Operands)),
				Code:    ErrArityMismatch,
			})
		}

		for j, op := range step.Operands {
			opField := fmt.Sprintf("%s.operands[%d]", field, j)
			castTarget := desc.Class == registry.ClassCast && j == 1

			switch op.Kind() {
			case "empty":
				errs = append(errs, ValidationError{
					Field:   opField,
					Message: "operand must be a literal, a ref or a type",
					Code:    ErrEmptyOperand,
				})
				continue

			case "ref":
				// E204: refs only look backwards
				if *op.Ref < 0 || *op.Ref >= i {
					errs = append(errs, ValidationError{
						Field:   opField + ".ref",
						Message: fmt.Sprintf("ref %d does not name an earlier step", *op.Ref),
						Code:    ErrBadReference,
					})
				}

			case "type":
				// E205: type tags belong to CAST only
				if !castTarget {
					errs = append(errs, ValidationError{
						Field:   opField + ".type",
						Message: fmt.Sprintf("type %q is only valid as CAST's second operand", op.Type),
						Code:    ErrMisplacedType,
					})
					continue
				}
				if _, err := types.Resolve(op.Type); err != nil {
					errs = append(errs, ValidationError{
						Field:   opField + ".type",
						Message: fmt.Sprintf("type %q is not registered", op.Type),
						Code:    ErrCastType,
					})
				}
				continue
			}

			// E203: CAST's second operand must be a type tag
			if castTarget {
				errs = append(errs, ValidationError{
					Field:   opField,
					Message: fmt.Sprintf("CAST needs a type tag, got a %s", op.Kind()),
					Code:    ErrCastType,
				})
			}
		}
	}

	return errs
}
