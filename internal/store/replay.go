package store

import (
	"context"
	"fmt"

	"github.com/roach88/sobootstrap/internal/ir"
)

// ReleaseState is a recorded release with its emissions and a summary of
// their conformance outcomes.
type ReleaseState struct {
	Release   ir.Release
	Emissions []ir.EmissionRecord
	Accepted  []string // targets, in target order
	Rejected  []string // targets, in target order
}

// GetReleaseState retrieves a release and summarizes its emissions.
// Returns sql.ErrNoRows (wrapped) if the release does not exist.
func (s *Store) GetReleaseState(ctx context.Context, releaseID string) (ReleaseState, error) {
	rel, err := s.ReadRelease(ctx, releaseID)
	if err != nil {
		return ReleaseState{}, fmt.Errorf("get release state: %w", err)
	}

	emissions, err := s.ReadEmissions(ctx, releaseID)
	if err != nil {
		return ReleaseState{}, fmt.Errorf("get release state: %w", err)
	}

	state := ReleaseState{
		Release:   rel,
		Emissions: emissions,
		Accepted:  []string{},
		Rejected:  []string{},
	}
	for _, e := range emissions {
		if e.Status == ir.StatusAccepted {
			state.Accepted = append(state.Accepted, e.Target)
		} else {
			state.Rejected = append(state.Rejected, e.Target)
		}
	}
	return state, nil
}

// History returns the state of every release in logical order.
func (s *Store) History(ctx context.Context) ([]ReleaseState, error) {
	releases, err := s.ListReleases(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	states := make([]ReleaseState, 0, len(releases))
	for _, rel := range releases {
		state, err := s.GetReleaseState(ctx, rel.ID)
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		states = append(states, state)
	}
	return states, nil
}

// GetLastSeq returns the highest seq number used in the store.
// Used to resume the logical clock from the correct position.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM releases
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq from releases: %w", err)
	}
	return maxSeq, nil
}
