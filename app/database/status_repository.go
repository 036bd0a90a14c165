package database

import (
	"context"
	"fmt"
)

type statusRepository struct {
	h Handle
}

func NewStatusRepository(h Handle) StatusRepository {
	return &statusRepository{h: h}
}

func (r *statusRepository) UpsertStatus(ctx context.Context, feedURL string, status ChannelStatusKind) error {
	_, err := r.h.ExecContext(ctx, `
		INSERT INTO channel_status (feed_url, status)
		VALUES (?, ?)
		ON CONFLICT (feed_url) DO UPDATE SET status = excluded.status
	`, feedURL, string(status))
	if err != nil {
		return fmt.Errorf("failed to upsert channel status: %w", err)
	}
	return nil
}

func (r *statusRepository) GetIgnoredFeedURLs(ctx context.Context) ([]string, error) {
	rows, err := r.h.QueryContext(ctx, `
		SELECT feed_url FROM channel_status WHERE status = ?
	`, string(StatusIgnore))
	if err != nil {
		return nil, fmt.Errorf("failed to get ignored feed URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan status row: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status rows: %w", err)
	}
	return urls, nil
}
