package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kwilcz/traceflow/internal/clip"
)

// WriteLogBatch inserts one trace-log batch into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-importing the same
// export file is a no-op for batches already present.
//
// A batch without an id (some recorder exports omit them) is assigned a
// fresh UUID, which makes the row unique: deduplication only applies to
// batches that carry stable ids.
//
// Returns the id the batch was stored under.
func (s *Store) WriteLogBatch(ctx context.Context, input clip.TraceLogInput) (string, error) {
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	clipsJSON, err := marshalClips(input.Clips)
	if err != nil {
		return "", fmt.Errorf("write log batch: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO log_batches (id, correlation_id, policy_id, ts, clips)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		input.CorrelationID,
		input.PolicyID,
		input.Timestamp.UTC().Format(time.RFC3339Nano),
		clipsJSON,
	)
	if err != nil {
		return "", fmt.Errorf("write log batch: %w", err)
	}

	return id, nil
}

// WriteLogBatches inserts a slice of batches in one transaction. Either
// every batch lands or none do.
func (s *Store) WriteLogBatches(ctx context.Context, inputs []clip.TraceLogInput) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("write log batches: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	ids := make([]string, 0, len(inputs))
	for _, input := range inputs {
		id := input.ID
		if id == "" {
			id = uuid.NewString()
		}

		clipsJSON, err := marshalClips(input.Clips)
		if err != nil {
			return nil, fmt.Errorf("write log batches: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO log_batches (id, correlation_id, policy_id, ts, clips)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			id,
			input.CorrelationID,
			input.PolicyID,
			input.Timestamp.UTC().Format(time.RFC3339Nano),
			clipsJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("write log batches: insert %s: %w", id, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("write log batches: commit: %w", err)
	}

	return ids, nil
}
