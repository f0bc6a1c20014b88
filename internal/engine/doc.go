// Package engine implements the release pipeline.
//
// A release takes a build manifest (targets plus per-target settings) and,
// for every target, renders the bootstrap through the target's emit.Adapter
// and checks it with a single-use conformance.Validator. Accepted and
// rejected targets alike are recorded in the store as one ledger entry.
//
// ARCHITECTURE:
//
// Fan-out / join:
// Each target runs in its own goroutine. The registry, type table and
// adapter set are immutable, and every goroutine owns its emission and
// validator, so targets share no mutable state. Results are written into a
// slice indexed by manifest position, so the joined Result is in target
// order regardless of which goroutine finishes first.
//
// Failure model:
//   - Unknown or duplicate targets: fatal to the release, nothing emitted
//   - Render errors and non-conformant emissions: the target is excluded
//     with its reasons; other targets proceed
//   - Store failures: the Result is returned with a STORE_FAILED error
//
// CRITICAL PATTERNS:
//
// Logical Clock
// Releases are stamped with a monotonic seq from a Sequencer.
// NEVER use wall-clock timestamps for ordering.
//
// Build Identity
// Build IDs are UUIDv7 in production and fixed in tests, so golden ledger
// snapshots are reproducible.
package engine
