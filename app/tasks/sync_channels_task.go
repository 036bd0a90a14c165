package tasks

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/feedgrove/feedgrove/app/database"
	"github.com/feedgrove/feedgrove/app/feed"
	"github.com/feedgrove/feedgrove/app/media"
)

const (
	// Per-run fan-out bounds: up to 80 never-synced channels plus up
	// to 80 oldest-synced, capped at 100 distinct.
	neverSyncedLimit  = 80
	oldestSyncedLimit = 80
	syncBatchCap      = 100

	// A channel is stale when it has never synced or its last sync is
	// older than this.
	freshnessThreshold = 3 * time.Hour
)

// SyncChannelsTask processes one bounded batch of stale channels:
// fetch, change-detect, upsert entries, enrich, record failures. When
// stale channels remain afterwards it enqueues another instance of
// itself, draining the backlog across invocations.
type SyncChannelsTask struct {
	Task
	db           *database.DB
	httpClient   *http.Client
	decoder      *feed.Decoder
	youtube      *media.YouTubeClient
	podcasts     *media.PodcastClient
	scheduler    TaskSchedulerInterface
	userAgent    string
	fetchTimeout time.Duration
}

func NewSyncChannelsTask(db *database.DB, httpClient *http.Client, decoder *feed.Decoder,
	youtube *media.YouTubeClient, podcasts *media.PodcastClient,
	scheduler TaskSchedulerInterface, userAgent string, fetchTimeout time.Duration) *SyncChannelsTask {
	return &SyncChannelsTask{
		Task:         NewTask(TaskTypeSyncChannels),
		db:           db,
		httpClient:   httpClient,
		decoder:      decoder,
		youtube:      youtube,
		podcasts:     podcasts,
		scheduler:    scheduler,
		userAgent:    userAgent,
		fetchTimeout: fetchTimeout,
	}
}

type fetchResult struct {
	channel database.Channel
	data    []byte
	err     error
}

// syncRun accumulates this invocation's enrichment candidates.
type syncRun struct {
	processed         int
	failed            int
	videoEntries      []videoRef
	podcastCandidates []database.Channel
}

type videoRef struct {
	entryID   string
	youtubeID string
}

func (t *SyncChannelsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	run := &syncRun{}
	resync := false

	err := t.db.WithTx(ctx, func(h database.Handle) error {
		channelRepo := database.NewChannelRepository(h)
		entryRepo := database.NewEntryRepository(h)
		failureRepo := database.NewFailureRepository(h)
		mediaRepo := database.NewMediaRepository(h)

		batch, err := channelRepo.SelectSyncBatch(ctx, neverSyncedLimit, oldestSyncedLimit, syncBatchCap)
		if err != nil {
			return fmt.Errorf("failed to select sync batch: %w", err)
		}

		if len(batch) > 0 {
			results := t.fetchAll(ctx, batch)

			for i := range results {
				if err := t.processChannel(ctx, channelRepo, entryRepo, failureRepo, mediaRepo, &results[i], run); err != nil {
					return err
				}
			}

			if err := t.enrichPodcasts(ctx, mediaRepo, run); err != nil {
				return err
			}
			if err := t.enrichDurations(ctx, mediaRepo, run); err != nil {
				return err
			}
		}

		stale, err := channelRepo.CountStale(ctx, time.Now().UTC().Add(-freshnessThreshold))
		if err != nil {
			return fmt.Errorf("failed to count stale channels: %w", err)
		}
		resync = stale > 0

		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"id", t.ID,
		"duration", t.GetDuration(),
		"processed", run.processed,
		"failed", run.failed,
		"resync", resync)

	if resync {
		next := NewSyncChannelsTask(t.db, t.httpClient, t.decoder, t.youtube, t.podcasts,
			t.scheduler, t.userAgent, t.fetchTimeout)
		if err := t.scheduler.EnqueueTask(next); err != nil {
			return fmt.Errorf("failed to enqueue drain continuation: %w", err)
		}
	}

	return nil
}

// fetchAll downloads all feeds of the batch concurrently. The batch
// cap is the only fan-out bound; each fetch carries its own timeout.
func (t *SyncChannelsTask) fetchAll(ctx context.Context, batch []database.Channel) []fetchResult {
	results := make([]fetchResult, len(batch))

	var wg sync.WaitGroup
	for i, ch := range batch {
		wg.Add(1)
		go func(i int, ch database.Channel) {
			defer wg.Done()
			data, err := t.fetchFeed(ctx, ch.FeedURL)
			results[i] = fetchResult{channel: ch, data: data, err: err}
		}(i, ch)
	}
	wg.Wait()

	return results
}

func (t *SyncChannelsTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	// Non-2xx bodies still flow to the decoder, which classifies them
	// as decoding failures; only transport errors yield no bytes.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// processChannel records one fetch outcome. Failures are isolated:
// they produce a channel_failures row and never unwind the run. Every
// attempt, success or failure, advances last_synced_at so a broken
// feed waits for the next sweep instead of burning every cycle.
func (t *SyncChannelsTask) processChannel(ctx context.Context,
	channelRepo database.ChannelRepository, entryRepo database.EntryRepository,
	failureRepo database.FailureRepository, mediaRepo database.MediaRepository,
	result *fetchResult, run *syncRun) error {

	ch := result.channel
	hadHash := ch.ContentHash != ""
	now := time.Now().UTC()
	ch.LastSyncedAt = &now

	if len(result.data) > 0 {
		digest := md5.Sum(result.data)
		ch.ContentHash = hex.EncodeToString(digest[:])
	}

	if result.err != nil || len(result.data) == 0 {
		kind := database.FailureMissing
		if hadHash {
			kind = database.FailureDownload
		}
		description := "empty response body"
		if result.err != nil {
			description = result.err.Error()
		}

		slog.Debug("Feed fetch failed", "feed_url", ch.FeedURL, "kind", string(kind), "error", description)
		run.failed++

		if err := failureRepo.Record(ctx, ch.ID, t.ID, kind, description); err != nil {
			return err
		}
		return channelRepo.UpdateAfterSync(ctx, &ch)
	}

	decoded, err := t.decoder.Run(result.data)
	if err != nil {
		slog.Debug("Feed decode failed", "feed_url", ch.FeedURL, "error", err)
		run.failed++

		if err := failureRepo.Record(ctx, ch.ID, t.ID, database.FailureDecoding, err.Error()); err != nil {
			return err
		}
		return channelRepo.UpdateAfterSync(ctx, &ch)
	}

	if decoded.AuthorName != "" {
		ch.Author = decoded.AuthorName
		ch.Email = decoded.AuthorEmail
	}
	if decoded.ImageURL != "" {
		ch.ImageURL = decoded.ImageURL
	}
	if ch.Subtitle == "" {
		ch.Subtitle = decoded.Summary
	}

	if err := channelRepo.UpdateAfterSync(ctx, &ch); err != nil {
		return err
	}

	if decoded.YouTubeChannelID != "" {
		if err := mediaRepo.UpsertYouTubeChannel(ctx, ch.ID, decoded.YouTubeChannelID); err != nil {
			return err
		}
	}

	hasAudio := false
	for _, item := range decoded.Items {
		entryID, err := entryRepo.UpsertEntry(ctx, ch.ID, database.EntryItem{
			FeedID:      item.FeedID,
			Title:       item.Title,
			Summary:     item.Summary,
			Content:     item.ContentHTML,
			URL:         item.URL,
			ImageURL:    item.ImageURL,
			PublishedAt: item.PublishedAt,
		})
		if err != nil {
			return err
		}
		if entryID == "" {
			continue
		}

		if item.AudioURL != nil {
			hasAudio = true
			if err := mediaRepo.UpsertPodcastEpisode(ctx, entryID, *item.AudioURL); err != nil {
				return err
			}
		}
		if item.YouTubeID != nil {
			run.videoEntries = append(run.videoEntries, videoRef{entryID: entryID, youtubeID: *item.YouTubeID})
		}
	}

	if hasAudio || ch.CategorySlug == "podcasts" {
		run.podcastCandidates = append(run.podcastCandidates, ch)
	}

	run.processed++
	return nil
}

// enrichPodcasts links candidate channels to Apple collection ids.
// Lookup failures are swallowed: the channel is simply retried on a
// later cycle.
func (t *SyncChannelsTask) enrichPodcasts(ctx context.Context, mediaRepo database.MediaRepository, run *syncRun) error {
	for _, ch := range run.podcastCandidates {
		linked, err := mediaRepo.HasPodcastChannel(ctx, ch.ID)
		if err != nil {
			return err
		}
		if linked {
			continue
		}

		appleID, err := t.podcasts.LookupCollectionID(ctx, ch.Title)
		if err != nil {
			slog.Debug("Podcast lookup skipped", "channel", ch.Title, "error", err)
			continue
		}

		if err := mediaRepo.CreatePodcastChannel(ctx, ch.ID, appleID); err != nil {
			return err
		}
		slog.Debug("Podcast channel linked", "channel", ch.Title, "apple_id", appleID)
	}
	return nil
}

// enrichDurations batch-resolves video durations for this run's
// entries that lack one. API failures are swallowed and retried on a
// later cycle.
func (t *SyncChannelsTask) enrichDurations(ctx context.Context, mediaRepo database.MediaRepository, run *syncRun) error {
	if len(run.videoEntries) == 0 {
		return nil
	}

	byEntry := make(map[string]string, len(run.videoEntries))
	entryIDs := make([]string, 0, len(run.videoEntries))
	for _, ref := range run.videoEntries {
		if _, ok := byEntry[ref.entryID]; ok {
			continue
		}
		byEntry[ref.entryID] = ref.youtubeID
		entryIDs = append(entryIDs, ref.entryID)
	}

	pending, err := mediaRepo.EntriesWithoutDuration(ctx, entryIDs)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	youtubeIDs := make([]string, 0, len(pending))
	for _, entryID := range pending {
		youtubeIDs = append(youtubeIDs, byEntry[entryID])
	}

	durations, err := t.youtube.LookupDurations(ctx, youtubeIDs)
	if err != nil {
		slog.Warn("Video duration lookup skipped", "videos", len(youtubeIDs), "error", err)
		return nil
	}

	for _, entryID := range pending {
		youtubeID := byEntry[entryID]
		seconds, ok := durations[youtubeID]
		if !ok {
			continue
		}
		if err := mediaRepo.UpsertYouTubeVideo(ctx, entryID, youtubeID, int(math.Round(seconds))); err != nil {
			return err
		}
	}

	return nil
}
