package testutil

// FixedBuildIDs hands out a fixed build ID so release records and golden
// snapshots are byte-identical across runs.
type FixedBuildIDs struct {
	id string
}

// NewFixedBuildIDs returns a generator for id. An empty id becomes
// "00000000-0000-7000-8000-000000000000".
func NewFixedBuildIDs(id string) *FixedBuildIDs {
	if id == "" {
		id = "00000000-0000-7000-8000-000000000000"
	}
	return &FixedBuildIDs{id: id}
}

// Generate implements engine.BuildIDGenerator.
func (g *FixedBuildIDs) Generate() string { return g.id }
