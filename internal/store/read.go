package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/sobootstrap/internal/ir"
)

// ReadRelease retrieves a single release by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRelease(ctx context.Context, id string) (ir.Release, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, seq, revision, contract_digest, tool_version, ir_version
		FROM releases
		WHERE id = ?
	`, id)

	return scanReleaseRow(row)
}

// ListReleases returns every release in logical order.
// Ordering is deterministic: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the ledger is empty.
func (s *Store) ListReleases(ctx context.Context) ([]ir.Release, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, seq, revision, contract_digest, tool_version, ir_version
		FROM releases
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer rows.Close()

	releases := []ir.Release{}
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, rel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releases: %w", err)
	}
	return releases, nil
}

// ReadEmissions returns a release's emissions ordered by target, each with
// its conformance reasons in recorded order.
//
// Returns an empty slice (not nil) if the release has no emissions.
func (s *Store) ReadEmissions(ctx context.Context, releaseID string) ([]ir.EmissionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT release_id, target, digest, status, settings, source
		FROM emissions
		WHERE release_id = ?
		ORDER BY target COLLATE BINARY ASC
	`, releaseID)
	if err != nil {
		return nil, fmt.Errorf("query emissions: %w", err)
	}
	return s.collectEmissions(ctx, rows)
}

// collectEmissions drains rows and attaches each emission's reasons.
// Reasons are read after the cursor closes; the pool holds one connection.
func (s *Store) collectEmissions(ctx context.Context, rows *sql.Rows) ([]ir.EmissionRecord, error) {
	emissions := []ir.EmissionRecord{}
	for rows.Next() {
		e, err := scanEmission(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		emissions = append(emissions, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate emissions: %w", err)
	}
	rows.Close()

	for i := range emissions {
		reasons, err := s.readReasons(ctx, emissions[i].ReleaseID, emissions[i].Target)
		if err != nil {
			return nil, err
		}
		emissions[i].Reasons = reasons
	}
	return emissions, nil
}

// LatestAccepted returns the accepted emission for target from the most
// recent release that has one.
// Returns sql.ErrNoRows if no release ever accepted the target.
func (s *Store) LatestAccepted(ctx context.Context, target string) (ir.EmissionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT e.release_id, e.target, e.digest, e.status, e.settings, e.source
		FROM emissions e
		JOIN releases r ON e.release_id = r.id
		WHERE e.target = ? AND e.status = ?
		ORDER BY r.seq DESC, r.id COLLATE BINARY DESC
		LIMIT 1
	`, target, string(ir.StatusAccepted))

	var e ir.EmissionRecord
	var status, settingsJSON string
	if err := row.Scan(&e.ReleaseID, &e.Target, &e.Digest, &status, &settingsJSON, &e.Source); err != nil {
		return ir.EmissionRecord{}, err
	}
	return finishEmission(e, status, settingsJSON)
}

func (s *Store) readReasons(ctx context.Context, releaseID, target string) ([]ir.ReasonRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, code, message
		FROM conformance_reasons
		WHERE release_id = ? AND target = ?
		ORDER BY ordinal ASC
	`, releaseID, target)
	if err != nil {
		return nil, fmt.Errorf("query reasons: %w", err)
	}
	defer rows.Close()

	var reasons []ir.ReasonRecord
	for rows.Next() {
		var r ir.ReasonRecord
		if err := rows.Scan(&r.Subject, &r.Code, &r.Message); err != nil {
			return nil, fmt.Errorf("scan reason: %w", err)
		}
		reasons = append(reasons, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reasons: %w", err)
	}
	return reasons, nil
}

// scanRelease scans a release from a rows iterator.
func scanRelease(rows *sql.Rows) (ir.Release, error) {
	var rel ir.Release
	err := rows.Scan(&rel.ID, &rel.Name, &rel.Seq, &rel.Revision, &rel.ContractDigest, &rel.ToolVersion, &rel.IRVersion)
	if err != nil {
		return ir.Release{}, fmt.Errorf("scan release: %w", err)
	}
	return rel, nil
}

// scanReleaseRow scans a release from a single row.
// sql.ErrNoRows is returned unwrapped so callers can compare it directly.
func scanReleaseRow(row *sql.Row) (ir.Release, error) {
	var rel ir.Release
	err := row.Scan(&rel.ID, &rel.Name, &rel.Seq, &rel.Revision, &rel.ContractDigest, &rel.ToolVersion, &rel.IRVersion)
	if err != nil {
		return ir.Release{}, err
	}
	return rel, nil
}

func scanEmission(rows *sql.Rows) (ir.EmissionRecord, error) {
	var e ir.EmissionRecord
	var status, settingsJSON string
	if err := rows.Scan(&e.ReleaseID, &e.Target, &e.Digest, &status, &settingsJSON, &e.Source); err != nil {
		return ir.EmissionRecord{}, fmt.Errorf("scan emission: %w", err)
	}
	return finishEmission(e, status, settingsJSON)
}

func finishEmission(e ir.EmissionRecord, status, settingsJSON string) (ir.EmissionRecord, error) {
	e.Status = ir.EmissionStatus(status)
	settings, err := unmarshalSettings(settingsJSON)
	if err != nil {
		return ir.EmissionRecord{}, err
	}
	e.Settings = settings
	return e, nil
}
