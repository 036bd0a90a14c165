package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/feedgrove/feedgrove/app/database"
	"github.com/feedgrove/feedgrove/app/feed"
)

// Entries picked up per run. Extraction is best effort and the
// remainder waits for the next interval.
const extractionBatchSize = 20

// ExtractContentTask fetches article pages for entries whose feed
// carried no body and stores the readable content. Each entry is
// attempted once: failures stamp content_extracted_at with empty
// content so the entry is not retried forever.
type ExtractContentTask struct {
	Task
	db               *database.DB
	httpClient       *http.Client
	contentExtractor *feed.ContentExtractor
	userAgent        string
	fetchTimeout     time.Duration
}

func NewExtractContentTask(db *database.DB, httpClient *http.Client, contentExtractor *feed.ContentExtractor,
	userAgent string, fetchTimeout time.Duration) *ExtractContentTask {
	return &ExtractContentTask{
		Task:             NewTask(TaskTypeExtractContent),
		db:               db,
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		userAgent:        userAgent,
		fetchTimeout:     fetchTimeout,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entryRepo := database.NewEntryRepository(t.db)

	entries, err := entryRepo.GetEntriesForExtraction(ctx, extractionBatchSize)
	if err != nil {
		return fmt.Errorf("failed to get entries for content extraction: %w", err)
	}

	if len(entries) == 0 {
		slog.Debug("No entries need content extraction")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := t.extractContentForEntry(ctx, entryRepo, entry)
		if err != nil {
			slog.Error("Failed to extract content for entry", "entry_id", entry.ID, "url", entry.URL, "error", err)
			errorCount++

			if err := entryRepo.UpdateExtractedContent(ctx, entry.ID, "", time.Now().UTC()); err != nil {
				slog.Error("Failed to mark entry extraction attempt", "entry_id", entry.ID, "error", err)
			}
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"id", t.ID,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractContentTask) extractContentForEntry(ctx context.Context, entryRepo database.EntryRepository, entry database.EntryForExtraction) error {
	if entry.URL == "" {
		return fmt.Errorf("entry has no URL")
	}

	data, err := t.fetchArticleContent(ctx, entry.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch article content: %w", err)
	}

	extractedContent, err := t.contentExtractor.Run(data)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}

	if err := entryRepo.UpdateExtractedContent(ctx, entry.ID, extractedContent, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}

	slog.Debug("Content extracted successfully", "entry_id", entry.ID, "url", entry.URL, "content_length", len(extractedContent))
	return nil
}

func (t *ExtractContentTask) fetchArticleContent(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
