package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// MaxIDsPerRequest is the hard ceiling of the videos endpoint.
const MaxIDsPerRequest = 50

type youTubeContentDetails struct {
	Duration string `json:"duration"`
}

type youTubeItem struct {
	ID             string                `json:"id"`
	ContentDetails youTubeContentDetails `json:"contentDetails"`
}

type youTubeResponse struct {
	Items []youTubeItem `json:"items"`
}

// YouTubeClient looks up video durations through the Data API.
type YouTubeClient struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	userAgent  string
}

func NewYouTubeClient(httpClient *http.Client, apiURL, apiKey, userAgent string) *YouTubeClient {
	return &YouTubeClient{
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
		userAgent:  userAgent,
	}
}

// LookupDurations resolves video ids to durations in seconds. Ids are
// partitioned into chunks of at most MaxIDsPerRequest, one request per
// chunk, dispatched concurrently; responses merge into a single map.
// Videos the API omits or whose duration fails to parse are simply
// absent from the result.
func (c *YouTubeClient) LookupDurations(ctx context.Context, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}

	chunks := ChunkIDs(ids, MaxIDsPerRequest)
	durations := make(map[string]float64, len(ids))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, chunk := range chunks {
		wg.Add(1)
		go func(chunk []string) {
			defer wg.Done()

			items, err := c.fetchChunk(ctx, chunk)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for _, item := range items {
				duration, err := ParseISODuration(item.ContentDetails.Duration)
				if err != nil {
					slog.Debug("Skipping unparseable video duration", "video_id", item.ID, "duration", item.ContentDetails.Duration, "error", err)
					continue
				}
				durations[item.ID] = duration.Seconds
			}
		}(chunk)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return durations, nil
}

func (c *YouTubeClient) fetchChunk(ctx context.Context, ids []string) ([]youTubeItem, error) {
	query := url.Values{}
	query.Set("part", "contentDetails")
	query.Set("fields", "items/id,items/contentDetails/duration")
	query.Set("key", c.apiKey)
	query.Set("id", strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, "GET", c.apiURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var decoded youTubeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode video details: %w", err)
	}

	return decoded.Items, nil
}

// ChunkIDs partitions ids into slices of at most size elements.
func ChunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for size > 0 && len(ids) > 0 {
		if len(ids) <= size {
			chunks = append(chunks, ids)
			break
		}
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	return chunks
}
