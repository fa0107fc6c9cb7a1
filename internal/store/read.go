package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kwilcz/traceflow/internal/clip"
)

// CorrelationSummary describes one stored correlation for listing.
type CorrelationSummary struct {
	CorrelationID string    `json:"correlation_id"`
	PolicyID      string    `json:"policy_id"`
	BatchCount    int       `json:"batch_count"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
}

// ReadCorrelation returns every batch stored for a correlation id in
// deterministic order: timestamp ASC, arrival (rowid) ASC. Parsing the
// returned slice reproduces the same trace on every call.
//
// Returns an empty slice (not nil) when the correlation is unknown.
func (s *Store) ReadCorrelation(ctx context.Context, correlationID string) ([]clip.TraceLogInput, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, correlation_id, policy_id, ts, clips
		FROM log_batches
		WHERE correlation_id = ?
		ORDER BY ts ASC, rowid ASC
	`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("query correlation: %w", err)
	}
	defer rows.Close()

	var inputs []clip.TraceLogInput
	for rows.Next() {
		input, err := scanLogBatch(rows)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate correlation: %w", err)
	}

	if inputs == nil {
		inputs = []clip.TraceLogInput{}
	}

	return inputs, nil
}

// ReadLogBatch retrieves a single batch by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadLogBatch(ctx context.Context, id string) (clip.TraceLogInput, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, correlation_id, policy_id, ts, clips
		FROM log_batches
		WHERE id = ?
	`, id)

	return scanLogBatchRow(row)
}

// ListCorrelations returns a summary of every stored correlation,
// newest activity first.
func (s *Store) ListCorrelations(ctx context.Context) ([]CorrelationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT correlation_id, MAX(policy_id), COUNT(*), MIN(ts), MAX(ts)
		FROM log_batches
		GROUP BY correlation_id
		ORDER BY MAX(ts) DESC, correlation_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list correlations: %w", err)
	}
	defer rows.Close()

	var summaries []CorrelationSummary
	for rows.Next() {
		var sum CorrelationSummary
		var first, last string
		if err := rows.Scan(&sum.CorrelationID, &sum.PolicyID, &sum.BatchCount, &first, &last); err != nil {
			return nil, fmt.Errorf("scan correlation summary: %w", err)
		}
		if sum.FirstSeen, err = parseStoredTime(first); err != nil {
			return nil, err
		}
		if sum.LastSeen, err = parseStoredTime(last); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate correlation summaries: %w", err)
	}

	if summaries == nil {
		summaries = []CorrelationSummary{}
	}

	return summaries, nil
}

// scanLogBatch scans a multi-row result into a TraceLogInput.
func scanLogBatch(rows *sql.Rows) (clip.TraceLogInput, error) {
	var input clip.TraceLogInput
	var ts, clipsJSON string

	if err := rows.Scan(&input.ID, &input.CorrelationID, &input.PolicyID, &ts, &clipsJSON); err != nil {
		return clip.TraceLogInput{}, fmt.Errorf("scan log batch: %w", err)
	}

	return finishLogBatch(input, ts, clipsJSON)
}

// scanLogBatchRow scans a single-row result into a TraceLogInput.
func scanLogBatchRow(row *sql.Row) (clip.TraceLogInput, error) {
	var input clip.TraceLogInput
	var ts, clipsJSON string

	if err := row.Scan(&input.ID, &input.CorrelationID, &input.PolicyID, &ts, &clipsJSON); err != nil {
		return clip.TraceLogInput{}, err
	}

	return finishLogBatch(input, ts, clipsJSON)
}

func finishLogBatch(input clip.TraceLogInput, ts, clipsJSON string) (clip.TraceLogInput, error) {
	parsed, err := parseStoredTime(ts)
	if err != nil {
		return clip.TraceLogInput{}, err
	}
	input.Timestamp = parsed

	clips, err := unmarshalClips(clipsJSON)
	if err != nil {
		return clip.TraceLogInput{}, err
	}
	input.Clips = clips

	return input, nil
}

func parseStoredTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", value, err)
	}
	return t, nil
}
