package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/sobootstrap/internal/ir"
)

// Predicate filters ledger emissions. It is a sealed interface: Equals and
// And are the only implementations.
type Predicate interface {
	predicateNode()
}

// Equals matches rows whose column equals Value.
type Equals struct {
	Field string // one of the EmissionQuery columns
	Value string
}

// And matches rows satisfying every predicate. An empty And matches all rows.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode() {}
func (And) predicateNode()    {}

// emissionColumns maps filterable fields to qualified columns. Field names
// never reach SQL unless listed here.
var emissionColumns = map[string]string{
	"target":     "e.target",
	"status":     "e.status",
	"release_id": "e.release_id",
	"name":       "r.name",
	"digest":     "e.digest",
}

// EmissionQuery selects emissions across releases.
type EmissionQuery struct {
	Filter Predicate // nil matches every emission
	Limit  int       // 0 means no limit
}

// ByTarget returns a predicate for one target.
func ByTarget(target string) Predicate { return Equals{Field: "target", Value: target} }

// ByStatus returns a predicate for one conformance outcome.
func ByStatus(status ir.EmissionStatus) Predicate {
	return Equals{Field: "status", Value: string(status)}
}

// compile renders q as parameterized SQL. Values are always bound as
// parameters. Results are ordered by release seq, then target, so equal
// ledgers read back identically.
func (q EmissionQuery) compile() (string, []any, error) {
	var b strings.Builder
	b.WriteString(`SELECT e.release_id, e.target, e.digest, e.status, e.settings, e.source
		FROM emissions e
		JOIN releases r ON e.release_id = r.id`)

	var params []any
	if q.Filter != nil {
		where, p, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = p
	}

	b.WriteString(" ORDER BY r.seq ASC, r.id COLLATE BINARY ASC, e.target COLLATE BINARY ASC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		col, ok := emissionColumns[pred.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field %q", pred.Field)
		}
		return col + " = ?", []any{pred.Value}, nil
	case And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, p, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, p...)
		}
		return "(" + strings.Join(parts, " AND ") + ")", params, nil
	case nil:
		return "1 = 1", nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// QueryEmissions returns the emissions matching q with their reasons.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) QueryEmissions(ctx context.Context, q EmissionQuery) ([]ir.EmissionRecord, error) {
	query, params, err := q.compile()
	if err != nil {
		return nil, fmt.Errorf("compile emission query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query emissions: %w", err)
	}
	return s.collectEmissions(ctx, rows)
}
