package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type channelRepository struct {
	h Handle
}

func NewChannelRepository(h Handle) ChannelRepository {
	return &channelRepository{h: h}
}

const channelColumns = `id, title, subtitle, author, email, site_url, feed_url,
	twitter_handle, image_url, language_code, category_slug, content_hash,
	last_synced_at, created_at, updated_at`

func (r *channelRepository) GetByFeedURL(ctx context.Context, feedURL string) (*Channel, error) {
	row := r.h.QueryRowContext(ctx, `
		SELECT `+channelColumns+`
		FROM channels
		WHERE feed_url = ?
	`, feedURL)

	ch, err := scanChannel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return ch, nil
}

func (r *channelRepository) GetChannels(ctx context.Context, limit int) ([]Channel, error) {
	rows, err := r.h.QueryContext(ctx, `
		SELECT `+channelColumns+`
		FROM channels
		ORDER BY title
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	return collectChannels(rows)
}

func (r *channelRepository) GetChannelCount(ctx context.Context) (int, error) {
	var count int
	err := r.h.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count channels: %w", err)
	}
	return count, nil
}

// UpsertFromCatalog reconciles the catalog-derived fields of one
// channel, keyed by feed_url. Catalog fields are last-write-wins;
// fetch-derived fields (hash, sync time, email, image) are untouched.
func (r *channelRepository) UpsertFromCatalog(ctx context.Context, ch *Channel) error {
	existing, err := r.GetByFeedURL(ctx, ch.FeedURL)
	if err != nil {
		return fmt.Errorf("failed to check existing channel: %w", err)
	}

	now := time.Now().UTC()
	if existing != nil {
		ch.ID = existing.ID
		_, err = r.h.ExecContext(ctx, `
			UPDATE channels
			SET title = ?, author = ?, site_url = ?, twitter_handle = ?,
			    language_code = ?, category_slug = ?, updated_at = ?
			WHERE id = ?
		`, ch.Title, ch.Author, ch.SiteURL, ch.TwitterHandle,
			ch.LanguageCode, ch.CategorySlug, now, ch.ID)
	} else {
		ch.ID = uuid.NewString()
		_, err = r.h.ExecContext(ctx, `
			INSERT INTO channels (id, title, subtitle, author, email, site_url, feed_url,
				twitter_handle, image_url, language_code, category_slug, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ch.ID, ch.Title, ch.Subtitle, ch.Author, ch.Email, ch.SiteURL, ch.FeedURL,
			ch.TwitterHandle, ch.ImageURL, ch.LanguageCode, ch.CategorySlug, now, now)
	}

	if err != nil {
		return fmt.Errorf("failed to upsert channel: %w", err)
	}
	return nil
}

func (r *channelRepository) DeleteByFeedURLs(ctx context.Context, feedURLs []string) (int64, error) {
	if len(feedURLs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(feedURLs)-1) + "?"
	args := make([]any, len(feedURLs))
	for i, u := range feedURLs {
		args[i] = u
	}

	res, err := r.h.ExecContext(ctx, `DELETE FROM channels WHERE feed_url IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete ignored channels: %w", err)
	}
	return res.RowsAffected()
}

// SelectSyncBatch returns up to neverLimit never-synced channels plus
// up to oldestLimit channels with the oldest sync time, deduplicated
// and capped.
func (r *channelRepository) SelectSyncBatch(ctx context.Context, neverLimit, oldestLimit, cap int) ([]Channel, error) {
	never, err := r.queryChannels(ctx, `
		SELECT `+channelColumns+`
		FROM channels
		WHERE last_synced_at IS NULL
		LIMIT ?
	`, neverLimit)
	if err != nil {
		return nil, err
	}

	oldest, err := r.queryChannels(ctx, `
		SELECT `+channelColumns+`
		FROM channels
		WHERE last_synced_at IS NOT NULL
		ORDER BY last_synced_at ASC
		LIMIT ?
	`, oldestLimit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(never)+len(oldest))
	batch := make([]Channel, 0, cap)
	for _, ch := range append(never, oldest...) {
		if seen[ch.ID] {
			continue
		}
		seen[ch.ID] = true
		batch = append(batch, ch)
		if len(batch) >= cap {
			break
		}
	}

	return batch, nil
}

// UpdateAfterSync persists the fetch-derived channel fields. Called on
// every attempt, success or failure.
func (r *channelRepository) UpdateAfterSync(ctx context.Context, ch *Channel) error {
	_, err := r.h.ExecContext(ctx, `
		UPDATE channels
		SET subtitle = ?, author = ?, email = ?, image_url = ?,
		    content_hash = ?, last_synced_at = ?, updated_at = ?
		WHERE id = ?
	`, ch.Subtitle, ch.Author, ch.Email, ch.ImageURL,
		ch.ContentHash, ch.LastSyncedAt, time.Now().UTC(), ch.ID)
	if err != nil {
		return fmt.Errorf("failed to update channel after sync: %w", err)
	}
	return nil
}

func (r *channelRepository) CountStale(ctx context.Context, threshold time.Time) (int, error) {
	var count int
	err := r.h.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM channels
		WHERE last_synced_at IS NULL OR last_synced_at < ?
	`, threshold).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale channels: %w", err)
	}
	return count, nil
}

func (r *channelRepository) queryChannels(ctx context.Context, query string, args ...any) ([]Channel, error) {
	rows, err := r.h.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select channels: %w", err)
	}
	defer rows.Close()

	return collectChannels(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*Channel, error) {
	var ch Channel
	var lastSyncedAt sql.NullTime
	err := row.Scan(
		&ch.ID, &ch.Title, &ch.Subtitle, &ch.Author, &ch.Email,
		&ch.SiteURL, &ch.FeedURL, &ch.TwitterHandle, &ch.ImageURL,
		&ch.LanguageCode, &ch.CategorySlug, &ch.ContentHash,
		&lastSyncedAt, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time
		ch.LastSyncedAt = &t
	}
	return &ch, nil
}

func collectChannels(rows *sql.Rows) ([]Channel, error) {
	var channels []Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}
	return channels, nil
}
