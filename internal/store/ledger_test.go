package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sobootstrap/internal/ir"
)

func TestWriteReleaseRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rel := createTestRelease("rel-1", "nightly", 1)
	rel.Revision = "abc123"

	py := createTestEmission("python", "d-py")
	py.Settings = ir.Settings{Indent: 4, Prettify: false}
	js := createTestEmission("javascript", "d-js")
	js.Status = ir.StatusRejected
	js.Reasons = []ir.ReasonRecord{
		{Subject: "POW", Code: "fold_direction", Message: "declares left fold, contract is right"},
		{Subject: "int", Code: "missing_cast", Message: "no cast member"},
	}

	inserted, err := s.WriteRelease(ctx, rel, []ir.EmissionRecord{py, js})
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := s.ReadRelease(ctx, "rel-1")
	require.NoError(t, err)
	assert.Equal(t, rel, got)

	emissions, err := s.ReadEmissions(ctx, "rel-1")
	require.NoError(t, err)
	require.Len(t, emissions, 2)

	// target order, not write order
	assert.Equal(t, "javascript", emissions[0].Target)
	assert.Equal(t, ir.StatusRejected, emissions[0].Status)
	assert.Equal(t, js.Reasons, emissions[0].Reasons)
	assert.Equal(t, "python", emissions[1].Target)
	assert.Equal(t, ir.Settings{Indent: 4, Prettify: false}, emissions[1].Settings)
	assert.Equal(t, py.Source, emissions[1].Source)
	assert.Nil(t, emissions[1].Reasons)
}

func TestWriteReleaseIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rel := createTestRelease("rel-1", "nightly", 1)
	_, err := s.WriteRelease(ctx, rel, []ir.EmissionRecord{createTestEmission("python", "d1")})
	require.NoError(t, err)

	// Same ID with different content is ignored
	rel.Name = "other"
	inserted, err := s.WriteRelease(ctx, rel, []ir.EmissionRecord{createTestEmission("javascript", "d2")})
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.ReadRelease(ctx, "rel-1")
	require.NoError(t, err)
	assert.Equal(t, "nightly", got.Name)

	emissions, err := s.ReadEmissions(ctx, "rel-1")
	require.NoError(t, err)
	require.Len(t, emissions, 1)
	assert.Equal(t, "python", emissions[0].Target)
}

func TestWriteReleaseRejectsBadStatus(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := createTestEmission("python", "d1")
	e.Status = "pending"
	_, err := s.WriteRelease(ctx, createTestRelease("rel-1", "n", 1), []ir.EmissionRecord{e})
	require.Error(t, err)

	// Transaction rolled back: no release row either
	_, err = s.ReadRelease(ctx, "rel-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReadReleaseNotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRelease(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReadEmissionsEmpty(t *testing.T) {
	s := createTestStore(t)

	emissions, err := s.ReadEmissions(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, emissions)
	assert.Empty(t, emissions)
}

func TestListReleasesDeterministicOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, rel := range []ir.Release{
		createTestRelease("b", "second", 2),
		createTestRelease("z", "first", 1),
		createTestRelease("a", "second-tie", 2),
	} {
		_, err := s.WriteRelease(ctx, rel, nil)
		require.NoError(t, err)
	}

	releases, err := s.ListReleases(ctx)
	require.NoError(t, err)
	ids := make([]string, len(releases))
	for i, r := range releases {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"z", "a", "b"}, ids)
}

func TestLatestAccepted(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteRelease(ctx, createTestRelease("r1", "n", 1), []ir.EmissionRecord{
		createTestEmission("python", "py-1"),
	})
	require.NoError(t, err)

	rejected := createTestEmission("python", "py-2")
	rejected.Status = ir.StatusRejected
	_, err = s.WriteRelease(ctx, createTestRelease("r2", "n", 2), []ir.EmissionRecord{rejected})
	require.NoError(t, err)

	got, err := s.LatestAccepted(ctx, "python")
	require.NoError(t, err)
	assert.Equal(t, "py-1", got.Digest)
	assert.Equal(t, "r1", got.ReleaseID)

	_, err = s.LatestAccepted(ctx, "javascript")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestHistoryAndLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	bad := createTestEmission("javascript", "js")
	bad.Status = ir.StatusRejected
	bad.Reasons = []ir.ReasonRecord{{Subject: "DIV", Code: "arity_shape", Message: "m"}}
	_, err = s.WriteRelease(ctx, createTestRelease("r1", "n", 7), []ir.EmissionRecord{
		createTestEmission("python", "py"), bad,
	})
	require.NoError(t, err)

	seq, err = s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)

	history, err := s.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, []string{"python"}, history[0].Accepted)
	assert.Equal(t, []string{"javascript"}, history[0].Rejected)
	assert.Len(t, history[0].Emissions, 2)

	_, err = s.GetReleaseState(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSettingsMarshal(t *testing.T) {
	text, err := marshalSettings(ir.Settings{Indent: 4, Prettify: false})
	require.NoError(t, err)
	assert.Equal(t, `{"indent":4,"prettify":false}`, text)

	s, err := unmarshalSettings(text)
	require.NoError(t, err)
	assert.Equal(t, ir.Settings{Indent: 4, Prettify: false}, s)

	s, err = unmarshalSettings("")
	require.NoError(t, err)
	assert.Equal(t, ir.DefaultSettings(), s)

	_, err = unmarshalSettings("{")
	assert.Error(t, err)
}
