package database

import (
	"context"
	"database/sql"
	"time"
)

// Handle is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories are constructed over a Handle so the same code runs
// standalone or inside a transaction.
type Handle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EntryItem carries the fields of one decoded feed item into the
// entry upsert. Optional fields are pointers: a nil summary or
// published timestamp gates insertion of new entries.
type EntryItem struct {
	FeedID      string
	Title       string
	Summary     *string
	Content     string
	URL         string
	ImageURL    *string
	PublishedAt *time.Time
}

type EntryForExtraction struct {
	ID  string
	URL string
}

type ChannelRepository interface {
	GetByFeedURL(ctx context.Context, feedURL string) (*Channel, error)
	GetChannels(ctx context.Context, limit int) ([]Channel, error)
	GetChannelCount(ctx context.Context) (int, error)

	UpsertFromCatalog(ctx context.Context, ch *Channel) error
	DeleteByFeedURLs(ctx context.Context, feedURLs []string) (int64, error)

	SelectSyncBatch(ctx context.Context, neverLimit, oldestLimit, cap int) ([]Channel, error)
	UpdateAfterSync(ctx context.Context, ch *Channel) error
	CountStale(ctx context.Context, threshold time.Time) (int, error)
}

type EntryRepository interface {
	UpsertEntry(ctx context.Context, channelID string, item EntryItem) (string, error)
	GetRecent(ctx context.Context, limit int) ([]Entry, error)
	GetByChannel(ctx context.Context, channelID string, limit int) ([]Entry, error)
	GetEntryCount(ctx context.Context) (int, error)

	GetEntriesForExtraction(ctx context.Context, limit int) ([]EntryForExtraction, error)
	UpdateExtractedContent(ctx context.Context, entryID string, content string, extractedAt time.Time) error
}

type TaxonomyRepository interface {
	UpsertLanguage(ctx context.Context, code, title string) error
	UpsertCategory(ctx context.Context, slug string) error
	UpsertCategoryTitle(ctx context.Context, languageCode, categorySlug, title string) error
	GetLanguages(ctx context.Context) ([]Language, error)
}

type FailureRepository interface {
	Record(ctx context.Context, channelID, jobID string, kind FailureKind, description string) error
	GetRecent(ctx context.Context, limit int) ([]ChannelFailure, error)
	GetFailureCount(ctx context.Context) (int, error)
}

type StatusRepository interface {
	UpsertStatus(ctx context.Context, feedURL string, status ChannelStatusKind) error
	GetIgnoredFeedURLs(ctx context.Context) ([]string, error)
}

type MediaRepository interface {
	UpsertYouTubeChannel(ctx context.Context, channelID, youtubeID string) error
	UpsertYouTubeVideo(ctx context.Context, entryID, youtubeID string, seconds int) error
	UpsertPodcastEpisode(ctx context.Context, entryID, audioURL string) error

	HasPodcastChannel(ctx context.Context, channelID string) (bool, error)
	CreatePodcastChannel(ctx context.Context, channelID string, appleID int64) error

	// EntriesWithoutDuration filters the given entry ids down to those
	// with no stored video duration yet.
	EntriesWithoutDuration(ctx context.Context, entryIDs []string) ([]string, error)
}
