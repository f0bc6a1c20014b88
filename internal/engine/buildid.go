package engine

import "github.com/google/uuid"

// BuildIDGenerator hands out release build IDs.
// Implemented by UUIDv7Generator (production) and testutil.FixedBuildIDs
// (tests).
type BuildIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 build IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so build IDs sort
// by creation time when listed outside the ledger's seq order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Format: "0190a6e4-8f2b-7c3d-9e4f-5a6b7c8d9e0f" (36 characters)
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
