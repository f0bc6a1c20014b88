// Package conformance checks a rendered bootstrap against the runtime
// contract.
//
// A Validator is single-use: it moves from NotChecked through
// ChecksInProgress to Conformant or NonConformant for exactly one emission.
// Checks never abort early; every offending subject (an operator, a type,
// print, input or the primitive list itself) gets one Reason describing the
// first check it failed.
//
// Emitted source is inspected statically with tree-sitter. Inspectors report
// the declarations they find: parameter shape, which fold (if any) a body
// performs, whether a body raises before anything else, and whether a type
// descriptor carries a cast member.
package conformance
