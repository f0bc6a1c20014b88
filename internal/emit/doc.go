// Package emit renders bootstraps: the fixed runtime block every compiled
// program starts with.
//
// An Adapter turns the operator registry and type table into target source.
// Operator bodies are picked by descriptor class, fold direction and arity,
// so a code added to the registry reaches every target without per-code
// rendering. The only per-target tables are the lexicons that spell a
// surface operator or a cast rule in the target language.
//
// Every Emission lists its primitives in a fixed order: print, input, the
// types in table order, then the operators in canonical order.
package emit
