package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StatusEntry is one operator override from the status file.
type StatusEntry struct {
	FeedURL string
	Status  string
}

// LoadStatusFile reads the operator-maintained channel status file, a
// YAML map of feed URL to status. A missing file is not an error; an
// unknown status value is.
//
//	https://example.com/feed.xml: ignore
//	https://example.org/rss: approved
func LoadStatusFile(path string) ([]StatusEntry, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse status file: %w", err)
	}

	entries := make([]StatusEntry, 0, len(raw))
	for feedURL, status := range raw {
		if status != "approved" && status != "ignore" {
			return nil, fmt.Errorf("invalid status %q for %s", status, feedURL)
		}
		entries = append(entries, StatusEntry{FeedURL: feedURL, Status: status})
	}

	return entries, nil
}
