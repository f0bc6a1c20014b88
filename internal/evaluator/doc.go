// Package evaluator is the reference interpretation of the operator
// registry. Every backend's bootstrap must agree with Eval for every code and
// operand list the registry accepts.
//
// Values follow the bootstrap targets' dynamic model: one double-precision
// Number, strings compared by UTF-16 code units, and implicit numeric
// coercion for arithmetic and mixed comparisons. ADD concatenates when either
// side of a step is a string.
//
// RunProgram evaluates a front-end Program step by step. Print and input are
// capabilities passed in explicitly (Printer, Prompter), never globals.
package evaluator
