package feed

import (
	"time"
)

// Feed is the canonical decoded form of one syndication document.
type Feed struct {
	Title            string
	AuthorName       string
	AuthorEmail      string
	Summary          string
	ImageURL         string
	UpdatedAt        *time.Time
	YouTubeChannelID string
	Items            []Item
}

// Item is one canonical feed item. Optional fields are pointers; a
// nil summary or published timestamp makes the item ineligible for
// insertion as a new entry.
type Item struct {
	FeedID      string // source item identifier (guid, falling back to link)
	Title       string
	Summary     *string
	ContentHTML string
	URL         string
	ImageURL    *string
	PublishedAt *time.Time

	AudioURL  *string // first audio enclosure, for podcast enrichment
	YouTubeID *string // video id, for duration enrichment
}
