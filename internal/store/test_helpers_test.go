package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sobootstrap/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRelease creates a release with minimal required fields.
func createTestRelease(id, name string, seq int64) ir.Release {
	return ir.Release{
		ID:             id,
		Name:           name,
		Seq:            seq,
		ContractDigest: "contract-hash",
		ToolVersion:    ir.ToolVersion,
		IRVersion:      ir.ContractVersion,
	}
}

// createTestEmission creates an accepted emission record.
func createTestEmission(target, digest string) ir.EmissionRecord {
	return ir.EmissionRecord{
		Target:   target,
		Digest:   digest,
		Status:   ir.StatusAccepted,
		Settings: ir.DefaultSettings(),
		Source:   "// ##START_BOOTSTRAP\n// ##END_BOOTSTRAP\n",
	}
}
