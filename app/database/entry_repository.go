package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type entryRepository struct {
	h Handle
}

func NewEntryRepository(h Handle) EntryRepository {
	return &entryRepository{h: h}
}

const entryColumns = `id, channel_id, feed_id, title, summary, content, url,
	image_url, published_at, created_at, updated_at, content_extracted_at`

// UpsertEntry reconciles one feed item into the entries table, keyed
// by (channel_id, feed_id). Existing entries are updated in place; a
// new entry is inserted only when the item carries both a summary and
// a published timestamp. Returns the entry id, or "" when the item
// was dropped by the insertion gate.
func (r *entryRepository) UpsertEntry(ctx context.Context, channelID string, item EntryItem) (string, error) {
	var existingID string
	var existingSummary, existingImageURL string
	var existingPublishedAt time.Time

	err := r.h.QueryRowContext(ctx, `
		SELECT id, summary, image_url, published_at
		FROM entries
		WHERE channel_id = ? AND feed_id = ?
	`, channelID, item.FeedID).Scan(&existingID, &existingSummary, &existingImageURL, &existingPublishedAt)

	now := time.Now().UTC()

	if err == sql.ErrNoRows {
		if item.Summary == nil || item.PublishedAt == nil {
			return "", nil
		}

		id := uuid.NewString()
		imageURL := ""
		if item.ImageURL != nil {
			imageURL = *item.ImageURL
		}
		_, err = r.h.ExecContext(ctx, `
			INSERT INTO entries (id, channel_id, feed_id, title, summary, content, url,
				image_url, published_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, channelID, item.FeedID, item.Title, *item.Summary, item.Content,
			item.URL, imageURL, item.PublishedAt.UTC(), now, now)
		if err != nil {
			return "", fmt.Errorf("failed to insert entry: %w", err)
		}
		return id, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up entry: %w", err)
	}

	// Update in place, keeping the stored value for optional fields
	// the feed no longer carries.
	summary := existingSummary
	if item.Summary != nil {
		summary = *item.Summary
	}
	imageURL := existingImageURL
	if item.ImageURL != nil {
		imageURL = *item.ImageURL
	}
	publishedAt := existingPublishedAt
	if item.PublishedAt != nil {
		publishedAt = item.PublishedAt.UTC()
	}

	_, err = r.h.ExecContext(ctx, `
		UPDATE entries
		SET title = ?, summary = ?, content = ?, url = ?, image_url = ?,
		    published_at = ?, updated_at = ?
		WHERE id = ?
	`, item.Title, summary, item.Content, item.URL, imageURL, publishedAt, now, existingID)
	if err != nil {
		return "", fmt.Errorf("failed to update entry: %w", err)
	}

	return existingID, nil
}

func (r *entryRepository) GetRecent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.h.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		ORDER BY published_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (r *entryRepository) GetByChannel(ctx context.Context, channelID string, limit int) ([]Entry, error) {
	rows, err := r.h.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE channel_id = ?
		ORDER BY published_at DESC
		LIMIT ?
	`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (r *entryRepository) GetEntryCount(ctx context.Context) (int, error) {
	var count int
	err := r.h.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

func (r *entryRepository) GetEntriesForExtraction(ctx context.Context, limit int) ([]EntryForExtraction, error) {
	rows, err := r.h.QueryContext(ctx, `
		SELECT id, url
		FROM entries
		WHERE content = '' AND content_extracted_at IS NULL
		ORDER BY published_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for extraction: %w", err)
	}
	defer rows.Close()

	var entries []EntryForExtraction
	for rows.Next() {
		var e EntryForExtraction
		if err := rows.Scan(&e.ID, &e.URL); err != nil {
			return nil, fmt.Errorf("failed to scan extraction row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extraction rows: %w", err)
	}
	return entries, nil
}

func (r *entryRepository) UpdateExtractedContent(ctx context.Context, entryID string, content string, extractedAt time.Time) error {
	_, err := r.h.ExecContext(ctx, `
		UPDATE entries
		SET content = CASE WHEN ? = '' THEN content ELSE ? END,
		    content_extracted_at = ?
		WHERE id = ?
	`, content, content, extractedAt.UTC(), entryID)
	if err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}
	return nil
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var extractedAt sql.NullTime
		err := rows.Scan(
			&e.ID, &e.ChannelID, &e.FeedID, &e.Title, &e.Summary, &e.Content,
			&e.URL, &e.ImageURL, &e.PublishedAt, &e.CreatedAt, &e.UpdatedAt,
			&extractedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		if extractedAt.Valid {
			t := extractedAt.Time
			e.ContentExtractedAt = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return entries, nil
}
