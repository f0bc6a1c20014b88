package conformance

import (
	"errors"
	"fmt"
	"strings"
)

// State is a validator's position in its lifecycle.
type State int

const (
	NotChecked State = iota
	ChecksInProgress
	Conformant
	NonConformant
)

var stateNames = [...]string{"not_checked", "checks_in_progress", "conformant", "non_conformant"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ReasonCode names the check a subject failed.
type ReasonCode string

const (
	ReasonSyntax          ReasonCode = "syntax_error"
	ReasonNotListed       ReasonCode = "primitive_missing"
	ReasonUndeclared      ReasonCode = "symbol_undeclared"
	ReasonDuplicate       ReasonCode = "duplicate"
	ReasonNotCallable     ReasonCode = "not_callable"
	ReasonShape           ReasonCode = "arity_shape"
	ReasonFoldDirection   ReasonCode = "fold_direction"
	ReasonUnexpectedFold  ReasonCode = "unexpected_fold"
	ReasonMustRaise       ReasonCode = "must_raise"
	ReasonMissingCast     ReasonCode = "missing_cast"
	ReasonUnknownOperator ReasonCode = "unknown_operator"
	ReasonUnknownType     ReasonCode = "unknown_type"
	ReasonOrder           ReasonCode = "order"
)

// Reason explains why one subject is not conformant.
type Reason struct {
	Subject string     `json:"subject"`
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
}

func (r Reason) String() string {
	return fmt.Sprintf("%s: %s: %s", r.Subject, r.Code, r.Message)
}

// Report is the outcome of validating one emission.
type Report struct {
	Target         string   `json:"target"`
	State          State    `json:"state"`
	Reasons        []Reason `json:"reasons"`
	EmissionDigest string   `json:"emission_digest"`
}

// Conformant reports whether every check passed.
func (r *Report) Conformant() bool { return r.State == Conformant }

// Subjects returns the offending subjects in report order.
func (r *Report) Subjects() []string {
	out := make([]string, len(r.Reasons))
	for i, reason := range r.Reasons {
		out[i] = reason.Subject
	}
	return out
}

// Err returns a *NonConformantError for failing reports and nil otherwise.
func (r *Report) Err() error {
	if r.State != NonConformant {
		return nil
	}
	return &NonConformantError{Target: r.Target, Reasons: r.Reasons}
}

// NonConformantError excludes a backend from a release. It is never fatal to
// the other backends.
type NonConformantError struct {
	Target  string
	Reasons []Reason
}

// Error implements the error interface.
func (e *NonConformantError) Error() string {
	parts := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		parts[i] = r.String()
	}
	return fmt.Sprintf("NON_CONFORMANT_BACKEND: %s: %s", e.Target, strings.Join(parts, "; "))
}

// IsNonConformant reports whether err is a NonConformantError.
func IsNonConformant(err error) bool {
	var nce *NonConformantError
	return errors.As(err, &nce)
}

// ErrValidatorUsed is returned when a Validator is run a second time.
var ErrValidatorUsed = errors.New("conformance: validator already used")
