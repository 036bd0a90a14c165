package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrNoResults means the search returned an empty result list.
var ErrNoResults = errors.New("no podcast results")

type podcastResult struct {
	CollectionID int64 `json:"collectionId"`
}

type podcastResponse struct {
	Results []podcastResult `json:"results"`
}

// PodcastClient resolves channel titles to Apple collection ids.
type PodcastClient struct {
	httpClient *http.Client
	searchURL  string
	userAgent  string
}

func NewPodcastClient(httpClient *http.Client, searchURL, userAgent string) *PodcastClient {
	return &PodcastClient{
		httpClient: httpClient,
		searchURL:  searchURL,
		userAgent:  userAgent,
	}
}

// LookupCollectionID issues one title search and returns the first
// result's collection id.
func (c *PodcastClient) LookupCollectionID(ctx context.Context, title string) (int64, error) {
	query := url.Values{}
	query.Set("media", "podcast")
	query.Set("attribute", "titleTerm")
	query.Set("limit", "1")
	query.Set("entity", "podcast")
	query.Set("term", title)

	req, err := http.NewRequestWithContext(ctx, "GET", c.searchURL+"?"+query.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to search podcasts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var decoded podcastResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(decoded.Results) == 0 {
		return 0, ErrNoResults
	}

	return decoded.Results[0].CollectionID, nil
}
