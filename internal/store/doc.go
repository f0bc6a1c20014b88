// Package store provides the SQLite-backed release ledger.
//
// The ledger is append-only:
//   - Releases: one row per build of a manifest, keyed by UUIDv7 build ID
//   - Emissions: one row per (release, target) with the bootstrap source,
//     its canonical digest and the conformance status
//   - Conformance Reasons: why a rejected emission failed, one row per subject
//
// # Critical Patterns
//
// Idempotent Writes
//   - Every INSERT uses ON CONFLICT DO NOTHING
//   - Writing the same release twice is a no-op, not an error
//
// Logical Time
//   - Releases are ordered by seq INTEGER (logical clock), never timestamps
//
// Deterministic Query Results
//   - All list queries include ORDER BY seq ASC, id COLLATE BINARY ASC
//     (or the table's natural key in binary collation)
//
// Filtered Queries
//   - QueryEmissions compiles a sealed Predicate (Equals, And) to SQL
//   - Values are always bound parameters; field names come from a fixed map
//
// Ledger Identity
//   - Open stamps PRAGMA application_id and refuses any other SQLite file
//     (ErrNotLedger) instead of adding tables to it
//   - Migrations run one transaction per step and a ledger from a newer
//     build is never downgraded
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Emission digests are computed in internal/ir/hash.go using RFC 8785
// canonical JSON and SHA-256 with domain separation.
package store
