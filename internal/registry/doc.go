// Package registry holds the runtime contract: the operator registry and the
// type descriptor table that every bootstrap backend must implement.
//
// Both tables are built once at package initialization and never mutated,
// so they are safe to share across goroutines without locking. Iteration is
// always in canonical order (ascending operator code, then int, float,
// string) so every backend emits primitives in the same relative order.
//
// # Fold semantics
//
//	Code     Arity          Fold    Seed
//	INVALID  fixed(0)       -       -      always fails with InvalidOperation
//	POW      variadic(0+)   right   1      a0^(a1^(...^(aN^1)))
//	MUL      variadic(0+)   left    1      product, MUL() = 1
//	DIV      1 + variadic   left    a0     a0 / a1 / ... ; DIV(a) = a
//	MOD      1 + variadic   left    a0     successive remainder
//	ADD      1 + variadic   left    a0     successive sum
//	SUB      1 + variadic   left    a0     successive difference
//	GE..NE   fixed(2)       -       -      boolean comparison
//	CAST     fixed(2)       -       -      value, type descriptor
package registry
