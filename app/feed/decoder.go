package feed

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// Decoder wraps the syndication parser and maps RSS/Atom/JSON-Feed
// documents onto the canonical Feed form.
type Decoder struct {
	gofeedParser *gofeed.Parser
}

func NewDecoder() *Decoder {
	return &Decoder{
		gofeedParser: gofeed.NewParser(),
	}
}

func (d *Decoder) Run(data []byte) (*Feed, error) {
	parsed, err := d.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	decoded := &Feed{
		Title:            parsed.Title,
		Summary:          parsed.Description,
		UpdatedAt:        parsed.UpdatedParsed,
		YouTubeChannelID: extensionValue(parsed.Extensions, "yt", "channelId"),
	}

	if len(parsed.Authors) > 0 && parsed.Authors[0] != nil {
		decoded.AuthorName = parsed.Authors[0].Name
		decoded.AuthorEmail = parsed.Authors[0].Email
	}

	if parsed.Image != nil {
		decoded.ImageURL = parsed.Image.URL
	}

	decoded.Items = make([]Item, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		decoded.Items = append(decoded.Items, d.normalizeItem(item))
	}

	return decoded, nil
}

func (d *Decoder) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		FeedID:      item.GUID,
		Title:       item.Title,
		ContentHTML: item.Content,
		URL:         item.Link,
		PublishedAt: item.PublishedParsed,
	}

	if normalized.FeedID == "" {
		normalized.FeedID = item.Link
	}

	if item.Description != "" {
		summary := item.Description
		normalized.Summary = &summary
	}

	if item.Image != nil && item.Image.URL != "" {
		imageURL := item.Image.URL
		normalized.ImageURL = &imageURL
	}

	if audioURL := firstAudioEnclosure(item); audioURL != "" {
		normalized.AudioURL = &audioURL
	}

	if youtubeID := youTubeItemID(item); youtubeID != "" {
		normalized.YouTubeID = &youtubeID
	}

	return normalized
}

// firstAudioEnclosure returns the URL of the first audio/* enclosure,
// or "" when the item carries none.
func firstAudioEnclosure(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enclosure.Type), "audio/") {
			return enclosure.URL
		}
	}
	return ""
}

// youTubeItemID extracts the video id from the yt:videoId extension,
// falling back to a watch-URL query parameter.
func youTubeItemID(item *gofeed.Item) string {
	if id := extensionValue(item.Extensions, "yt", "videoId"); id != "" {
		return id
	}

	u, err := url.Parse(item.Link)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "youtube.com" && host != "m.youtube.com" {
		return ""
	}
	return u.Query().Get("v")
}

func extensionValue(extensions ext.Extensions, namespace, name string) string {
	values, ok := extensions[namespace]
	if !ok {
		return ""
	}
	entries := values[name]
	if len(entries) == 0 {
		return ""
	}
	return entries[0].Value
}
