package database

import (
	"time"
)

type Language struct {
	Code  string // BCP-47 code, primary key
	Title string
}

type Category struct {
	Slug string // primary key
}

// CategoryTitle is the per-language display title of a category.
type CategoryTitle struct {
	LanguageCode string
	CategorySlug string
	Title        string
}

type Channel struct {
	ID            string // Database UUID
	Title         string
	Subtitle      string
	Author        string
	Email         string
	SiteURL       string
	FeedURL       string // globally unique
	TwitterHandle string
	ImageURL      string
	LanguageCode  string
	CategorySlug  string
	ContentHash   string     // hex MD5 of the last fetched feed bytes
	LastSyncedAt  *time.Time // nil = never synced
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Entry struct {
	ID          string // Database UUID
	ChannelID   string
	FeedID      string // source feed item identifier, unique per channel
	Title       string
	Summary     string
	Content     string
	URL         string
	ImageURL    string
	PublishedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	ContentExtractedAt *time.Time
}

type FailureKind string

const (
	FailureMissing  FailureKind = "missing"
	FailureDownload FailureKind = "download"
	FailureDecoding FailureKind = "decoding"
)

// ChannelFailure is an append-only record of one failed fetch attempt.
type ChannelFailure struct {
	ID          string
	ChannelID   string
	JobID       string
	Kind        FailureKind
	Description string
	CreatedAt   time.Time
}

type ChannelStatusKind string

const (
	StatusApproved ChannelStatusKind = "approved"
	StatusIgnore   ChannelStatusKind = "ignore"
)

// ChannelStatus is keyed by feed URL, not by channel row: it must
// survive deletion of the channel it ignores.
type ChannelStatus struct {
	FeedURL string
	Status  ChannelStatusKind
}

type YouTubeChannel struct {
	ChannelID string // primary key, owning channel
	YouTubeID string
}

type YouTubeVideo struct {
	EntryID   string // primary key, owning entry
	YouTubeID string
	Seconds   int
}

type PodcastChannel struct {
	ChannelID string // primary key, owning channel
	AppleID   int64  // iTunes collection id
}

type PodcastEpisode struct {
	EntryID  string // primary key, owning entry
	AudioURL string
}
