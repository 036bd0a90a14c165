package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type mediaRepository struct {
	h Handle
}

func NewMediaRepository(h Handle) MediaRepository {
	return &mediaRepository{h: h}
}

// UpsertYouTubeChannel links one channel to one YouTube channel id.
// Both columns are unique, so stale rows claiming either side are
// cleared first.
func (r *mediaRepository) UpsertYouTubeChannel(ctx context.Context, channelID, youtubeID string) error {
	var current string
	err := r.h.QueryRowContext(ctx, `
		SELECT youtube_id FROM youtube_channels WHERE channel_id = ?
	`, channelID).Scan(&current)
	if err == nil && current == youtubeID {
		return nil
	}
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check youtube channel: %w", err)
	}

	if _, err := r.h.ExecContext(ctx, `
		DELETE FROM youtube_channels WHERE channel_id = ? OR youtube_id = ?
	`, channelID, youtubeID); err != nil {
		return fmt.Errorf("failed to clear youtube channel rows: %w", err)
	}

	if _, err := r.h.ExecContext(ctx, `
		INSERT INTO youtube_channels (channel_id, youtube_id) VALUES (?, ?)
	`, channelID, youtubeID); err != nil {
		return fmt.Errorf("failed to insert youtube channel: %w", err)
	}
	return nil
}

func (r *mediaRepository) UpsertYouTubeVideo(ctx context.Context, entryID, youtubeID string, seconds int) error {
	if _, err := r.h.ExecContext(ctx, `
		DELETE FROM youtube_videos WHERE (entry_id = ? OR youtube_id = ?) AND NOT (entry_id = ? AND youtube_id = ?)
	`, entryID, youtubeID, entryID, youtubeID); err != nil {
		return fmt.Errorf("failed to clear youtube video rows: %w", err)
	}

	if _, err := r.h.ExecContext(ctx, `
		INSERT INTO youtube_videos (entry_id, youtube_id, seconds)
		VALUES (?, ?, ?)
		ON CONFLICT (entry_id) DO UPDATE SET youtube_id = excluded.youtube_id, seconds = excluded.seconds
	`, entryID, youtubeID, seconds); err != nil {
		return fmt.Errorf("failed to upsert youtube video: %w", err)
	}
	return nil
}

func (r *mediaRepository) UpsertPodcastEpisode(ctx context.Context, entryID, audioURL string) error {
	_, err := r.h.ExecContext(ctx, `
		INSERT INTO podcast_episodes (entry_id, audio_url)
		VALUES (?, ?)
		ON CONFLICT (entry_id) DO UPDATE SET audio_url = excluded.audio_url
	`, entryID, audioURL)
	if err != nil {
		return fmt.Errorf("failed to upsert podcast episode: %w", err)
	}
	return nil
}

func (r *mediaRepository) HasPodcastChannel(ctx context.Context, channelID string) (bool, error) {
	var one int
	err := r.h.QueryRowContext(ctx, `
		SELECT 1 FROM podcast_channels WHERE channel_id = ?
	`, channelID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check podcast channel: %w", err)
	}
	return true, nil
}

func (r *mediaRepository) CreatePodcastChannel(ctx context.Context, channelID string, appleID int64) error {
	_, err := r.h.ExecContext(ctx, `
		INSERT INTO podcast_channels (channel_id, apple_id)
		VALUES (?, ?)
		ON CONFLICT (channel_id) DO UPDATE SET apple_id = excluded.apple_id
	`, channelID, appleID)
	if err != nil {
		return fmt.Errorf("failed to create podcast channel: %w", err)
	}
	return nil
}

func (r *mediaRepository) EntriesWithoutDuration(ctx context.Context, entryIDs []string) ([]string, error) {
	if len(entryIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(entryIDs)-1) + "?"
	args := make([]any, len(entryIDs))
	for i, id := range entryIDs {
		args[i] = id
	}

	rows, err := r.h.QueryContext(ctx, `
		SELECT entry_id FROM youtube_videos
		WHERE entry_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to check stored durations: %w", err)
	}
	defer rows.Close()

	resolved := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan duration row: %w", err)
		}
		resolved[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating duration rows: %w", err)
	}

	var missing []string
	for _, id := range entryIDs {
		if !resolved[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
