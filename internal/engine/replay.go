package engine

import (
	"context"
	"fmt"

	"github.com/roach88/sobootstrap/internal/store"
)

// ResumeClock returns a Clock positioned after the ledger's last release,
// so a new engine over an existing store never reuses a seq.
//
// Releases are idempotent by build ID: recording a Result twice leaves the
// ledger unchanged (store.WriteRelease returns inserted=false). A fresh
// build always gets a fresh ID and the next seq.
func ResumeClock(ctx context.Context, s *store.Store) (*Clock, error) {
	last, err := s.GetLastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume clock: %w", err)
	}
	return NewClockAt(last), nil
}
