package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/sobootstrap/internal/ir"
)

// WriteRelease atomically writes a release with its emissions and their
// conformance reasons in a single transaction.
//
// Uses ON CONFLICT DO NOTHING throughout. If the release ID already exists,
// nothing is written and inserted is false; a release is immutable once
// recorded.
//
// Emissions must name distinct targets. Reasons are stored in slice order.
func (s *Store) WriteRelease(ctx context.Context, rel ir.Release, emissions []ir.EmissionRecord) (inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write release: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Step 1: claim the release ID
	result, err := tx.ExecContext(ctx, `
		INSERT INTO releases
		(id, name, seq, revision, contract_digest, tool_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rel.ID,
		rel.Name,
		rel.Seq,
		rel.Revision,
		rel.ContractDigest,
		rel.ToolVersion,
		rel.IRVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write release: insert release: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write release: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Already recorded
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("write release: commit (existing): %w", err)
		}
		return false, nil
	}

	// Step 2: emissions and reasons
	for _, e := range emissions {
		if err := writeEmission(ctx, tx, rel.ID, e); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write release: commit: %w", err)
	}
	return true, nil
}

func writeEmission(ctx context.Context, tx *sql.Tx, releaseID string, e ir.EmissionRecord) error {
	settingsJSON, err := marshalSettings(e.Settings)
	if err != nil {
		return fmt.Errorf("write release: %s: %w", e.Target, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO emissions
		(release_id, target, digest, status, settings, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(release_id, target) DO NOTHING
	`,
		releaseID,
		e.Target,
		e.Digest,
		string(e.Status),
		settingsJSON,
		e.Source,
	)
	if err != nil {
		return fmt.Errorf("write release: insert emission %s: %w", e.Target, err)
	}

	for i, r := range e.Reasons {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conformance_reasons
			(release_id, target, ordinal, subject, code, message)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(release_id, target, ordinal) DO NOTHING
		`,
			releaseID,
			e.Target,
			i,
			r.Subject,
			r.Code,
			r.Message,
		)
		if err != nil {
			return fmt.Errorf("write release: insert reason %s/%s: %w", e.Target, r.Subject, err)
		}
	}
	return nil
}
