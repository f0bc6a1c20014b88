package registry

import (
	"errors"
	"fmt"

	"github.com/roach88/sobootstrap/internal/ir"
)

// ErrorKind categorizes contract errors.
type ErrorKind string

const (
	// KindUnknownOperator: the code is not registered. Compile-time, fatal
	// to the current session.
	KindUnknownOperator ErrorKind = "UNKNOWN_OPERATOR"

	// KindUnknownType: the type tag is not registered. Compile-time, fatal
	// to the current session.
	KindUnknownType ErrorKind = "UNKNOWN_TYPE"

	// KindInvalidOperation is raised by the INVALID code at runtime of the
	// generated program.
	KindInvalidOperation ErrorKind = "INVALID_OPERATION"

	// KindArity: an operator was invoked with an operand count its
	// descriptor does not accept. Nothing is evaluated.
	KindArity ErrorKind = "ARITY_MISMATCH"

	// KindOperandType: an operand has a kind the operator cannot take, such
	// as a non-type second operand to CAST.
	KindOperandType ErrorKind = "OPERAND_TYPE"
)

// ContractError is returned for every violation of the runtime contract.
type ContractError struct {
	Kind    ErrorKind
	Code    ir.OperatorCode
	Tag     ir.TypeTag
	Message string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	switch e.Kind {
	case KindUnknownType:
		return fmt.Sprintf("%s: %s (type=%q)", e.Kind, e.Message, e.Tag)
	default:
		return fmt.Sprintf("%s: %s (op=%s)", e.Kind, e.Message, e.Code)
	}
}

// NewUnknownOperatorError creates a ContractError for an unregistered code.
func NewUnknownOperatorError(code ir.OperatorCode) *ContractError {
	return &ContractError{
		Kind:    KindUnknownOperator,
		Code:    code,
		Message: fmt.Sprintf("operator code %d is not registered", uint8(code)),
	}
}

// NewUnknownTypeError creates a ContractError for an unregistered tag.
func NewUnknownTypeError(tag ir.TypeTag) *ContractError {
	return &ContractError{
		Kind:    KindUnknownType,
		Tag:     tag,
		Message: "type tag is not registered",
	}
}

// NewInvalidOperationError is the fault raised by the INVALID code.
func NewInvalidOperationError() *ContractError {
	return &ContractError{
		Kind:    KindInvalidOperation,
		Code:    ir.OpInvalid,
		Message: "Invalid binary operation",
	}
}

// NewArityError reports an operand count the descriptor does not accept.
func NewArityError(code ir.OperatorCode, arity Arity, got int) *ContractError {
	return &ContractError{
		Kind:    KindArity,
		Code:    code,
		Message: fmt.Sprintf("expects %s operands, got %d", arity, got),
	}
}

// NewOperandTypeError reports an operand of the wrong kind.
func NewOperandTypeError(code ir.OperatorCode, index int, want, got string) *ContractError {
	return &ContractError{
		Kind:    KindOperandType,
		Code:    code,
		Message: fmt.Sprintf("operand %d must be a %s, got %s", index, want, got),
	}
}

func hasKind(err error, kind ErrorKind) bool {
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// IsUnknownOperator reports whether err is an unknown operator error.
func IsUnknownOperator(err error) bool { return hasKind(err, KindUnknownOperator) }

// IsUnknownType reports whether err is an unknown type error.
func IsUnknownType(err error) bool { return hasKind(err, KindUnknownType) }

// IsInvalidOperation reports whether err is the INVALID code's fault.
func IsInvalidOperation(err error) bool { return hasKind(err, KindInvalidOperation) }

// IsArityError reports whether err is an arity mismatch.
func IsArityError(err error) bool { return hasKind(err, KindArity) }

// IsOperandTypeError reports whether err is an operand kind mismatch.
func IsOperandTypeError(err error) bool { return hasKind(err, KindOperandType) }
