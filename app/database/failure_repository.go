package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type failureRepository struct {
	h Handle
}

func NewFailureRepository(h Handle) FailureRepository {
	return &failureRepository{h: h}
}

// Record appends one failure row. Rows are never updated.
func (r *failureRepository) Record(ctx context.Context, channelID, jobID string, kind FailureKind, description string) error {
	_, err := r.h.ExecContext(ctx, `
		INSERT INTO channel_failures (id, channel_id, job_id, kind, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), channelID, jobID, string(kind), description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record channel failure: %w", err)
	}
	return nil
}

func (r *failureRepository) GetRecent(ctx context.Context, limit int) ([]ChannelFailure, error) {
	rows, err := r.h.QueryContext(ctx, `
		SELECT id, channel_id, job_id, kind, description, created_at
		FROM channel_failures
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent failures: %w", err)
	}
	defer rows.Close()

	var failures []ChannelFailure
	for rows.Next() {
		var f ChannelFailure
		var kind string
		if err := rows.Scan(&f.ID, &f.ChannelID, &f.JobID, &kind, &f.Description, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan failure row: %w", err)
		}
		f.Kind = FailureKind(kind)
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating failure rows: %w", err)
	}
	return failures, nil
}

func (r *failureRepository) GetFailureCount(ctx context.Context) (int, error) {
	var count int
	err := r.h.QueryRowContext(ctx, `SELECT COUNT(*) FROM channel_failures`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return count, nil
}
