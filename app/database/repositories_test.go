package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	taxonomy := NewTaxonomyRepository(db)
	if err := taxonomy.UpsertLanguage(ctx, "en", "English"); err != nil {
		t.Fatalf("Failed to seed language: %v", err)
	}
	if err := taxonomy.UpsertCategory(ctx, "development"); err != nil {
		t.Fatalf("Failed to seed category: %v", err)
	}

	return db
}

func seedChannel(t *testing.T, db *DB, feedURL string) *Channel {
	t.Helper()

	ch := &Channel{
		Title:        "Test Channel",
		SiteURL:      "https://example.com",
		FeedURL:      feedURL,
		LanguageCode: "en",
		CategorySlug: "development",
	}
	repo := NewChannelRepository(db)
	if err := repo.UpsertFromCatalog(context.Background(), ch); err != nil {
		t.Fatalf("Failed to seed channel: %v", err)
	}
	return ch
}

func TestUpsertFromCatalog(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewChannelRepository(db)

	ch := seedChannel(t, db, "https://example.com/feed.xml")
	if ch.ID == "" {
		t.Fatal("Expected channel id to be assigned")
	}

	// Simulate a completed sync so fetch-derived fields are populated
	now := time.Now().UTC()
	ch.ContentHash = "abc123"
	ch.Subtitle = "A subtitle"
	ch.LastSyncedAt = &now
	if err := repo.UpdateAfterSync(ctx, ch); err != nil {
		t.Fatalf("Failed to update after sync: %v", err)
	}

	// Re-upsert from the catalog with a changed title
	updated := &Channel{
		Title:        "Renamed Channel",
		SiteURL:      "https://example.com",
		FeedURL:      "https://example.com/feed.xml",
		LanguageCode: "en",
		CategorySlug: "development",
	}
	if err := repo.UpsertFromCatalog(ctx, updated); err != nil {
		t.Fatalf("Failed to re-upsert channel: %v", err)
	}

	if updated.ID != ch.ID {
		t.Errorf("Expected upsert to keep id %s, got: %s", ch.ID, updated.ID)
	}

	stored, err := repo.GetByFeedURL(ctx, "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Failed to get channel: %v", err)
	}
	if stored == nil {
		t.Fatal("Expected channel to exist")
	}
	if stored.Title != "Renamed Channel" {
		t.Errorf("Expected catalog title to win, got: %s", stored.Title)
	}
	if stored.ContentHash != "abc123" {
		t.Errorf("Expected content hash to survive catalog upsert, got: %s", stored.ContentHash)
	}
	if stored.Subtitle != "A subtitle" {
		t.Errorf("Expected subtitle to survive catalog upsert, got: %s", stored.Subtitle)
	}
	if stored.LastSyncedAt == nil {
		t.Error("Expected last synced timestamp to survive catalog upsert")
	}
}

func TestGetByFeedURLMissing(t *testing.T) {
	db := openTestDB(t)

	ch, err := NewChannelRepository(db).GetByFeedURL(context.Background(), "https://nope.example.com/feed")
	if err != nil {
		t.Fatalf("Expected no error for missing channel, got: %v", err)
	}
	if ch != nil {
		t.Errorf("Expected nil channel, got: %v", ch)
	}
}

func TestSelectSyncBatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewChannelRepository(db)

	never1 := seedChannel(t, db, "https://a.example.com/feed")
	never2 := seedChannel(t, db, "https://b.example.com/feed")
	oldest := seedChannel(t, db, "https://c.example.com/feed")
	newest := seedChannel(t, db, "https://d.example.com/feed")

	oldTime := time.Now().UTC().Add(-48 * time.Hour)
	oldest.LastSyncedAt = &oldTime
	if err := repo.UpdateAfterSync(ctx, oldest); err != nil {
		t.Fatalf("Failed to mark oldest synced: %v", err)
	}

	recentTime := time.Now().UTC().Add(-1 * time.Hour)
	newest.LastSyncedAt = &recentTime
	if err := repo.UpdateAfterSync(ctx, newest); err != nil {
		t.Fatalf("Failed to mark newest synced: %v", err)
	}

	batch, err := repo.SelectSyncBatch(ctx, 5, 5, 10)
	if err != nil {
		t.Fatalf("Failed to select batch: %v", err)
	}
	if len(batch) != 4 {
		t.Fatalf("Expected 4 channels in batch, got: %d", len(batch))
	}

	ids := make(map[string]int)
	for i, ch := range batch {
		ids[ch.ID] = i
	}
	if _, ok := ids[never1.ID]; !ok {
		t.Error("Expected never-synced channel in batch")
	}
	if _, ok := ids[never2.ID]; !ok {
		t.Error("Expected never-synced channel in batch")
	}
	if ids[oldest.ID] > ids[newest.ID] {
		t.Error("Expected oldest-synced channel before the most recent one")
	}

	// Cap wins over the per-group limits
	capped, err := repo.SelectSyncBatch(ctx, 5, 5, 3)
	if err != nil {
		t.Fatalf("Failed to select capped batch: %v", err)
	}
	if len(capped) != 3 {
		t.Errorf("Expected cap of 3, got: %d", len(capped))
	}
}

func TestCountStale(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewChannelRepository(db)

	seedChannel(t, db, "https://never.example.com/feed")
	synced := seedChannel(t, db, "https://synced.example.com/feed")
	stale := seedChannel(t, db, "https://stale.example.com/feed")

	fresh := time.Now().UTC()
	synced.LastSyncedAt = &fresh
	if err := repo.UpdateAfterSync(ctx, synced); err != nil {
		t.Fatalf("Failed to mark channel synced: %v", err)
	}

	old := time.Now().UTC().Add(-24 * time.Hour)
	stale.LastSyncedAt = &old
	if err := repo.UpdateAfterSync(ctx, stale); err != nil {
		t.Fatalf("Failed to mark channel stale: %v", err)
	}

	count, err := repo.CountStale(ctx, time.Now().UTC().Add(-3*time.Hour))
	if err != nil {
		t.Fatalf("Failed to count stale: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 stale channels (never-synced and old), got: %d", count)
	}
}

func TestUpsertEntryInsertGate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ch := seedChannel(t, db, "https://example.com/feed.xml")
	repo := NewEntryRepository(db)

	published := time.Now().UTC().Add(-time.Hour)
	summary := "A summary"

	// Missing summary: dropped
	id, err := repo.UpsertEntry(ctx, ch.ID, EntryItem{
		FeedID:      "post-1",
		Title:       "No Summary",
		URL:         "https://example.com/1",
		PublishedAt: &published,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if id != "" {
		t.Errorf("Expected item without summary to be dropped, got id: %s", id)
	}

	// Missing published timestamp: dropped
	id, err = repo.UpsertEntry(ctx, ch.ID, EntryItem{
		FeedID:  "post-2",
		Title:   "No Date",
		Summary: &summary,
		URL:     "https://example.com/2",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if id != "" {
		t.Errorf("Expected item without published timestamp to be dropped, got id: %s", id)
	}

	// Both present: inserted
	id, err = repo.UpsertEntry(ctx, ch.ID, EntryItem{
		FeedID:      "post-3",
		Title:       "Complete",
		Summary:     &summary,
		URL:         "https://example.com/3",
		PublishedAt: &published,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if id == "" {
		t.Fatal("Expected complete item to be inserted")
	}

	count, err := repo.GetEntryCount(ctx)
	if err != nil {
		t.Fatalf("Failed to count entries: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 entry, got: %d", count)
	}
}

func TestUpsertEntryUpdateCoalesces(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ch := seedChannel(t, db, "https://example.com/feed.xml")
	repo := NewEntryRepository(db)

	published := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	summary := "Original summary"
	imageURL := "https://example.com/cover.png"

	id, err := repo.UpsertEntry(ctx, ch.ID, EntryItem{
		FeedID:      "post-1",
		Title:       "Original Title",
		Summary:     &summary,
		URL:         "https://example.com/1",
		ImageURL:    &imageURL,
		PublishedAt: &published,
	})
	if err != nil {
		t.Fatalf("Failed to insert entry: %v", err)
	}

	// Re-upsert with the optional fields gone: stored values survive,
	// title is overwritten.
	updatedID, err := repo.UpsertEntry(ctx, ch.ID, EntryItem{
		FeedID: "post-1",
		Title:  "Updated Title",
		URL:    "https://example.com/1",
	})
	if err != nil {
		t.Fatalf("Failed to update entry: %v", err)
	}
	if updatedID != id {
		t.Errorf("Expected update to keep id %s, got: %s", id, updatedID)
	}

	entries, err := repo.GetByChannel(ctx, ch.ID, 10)
	if err != nil {
		t.Fatalf("Failed to get entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}

	entry := entries[0]
	if entry.Title != "Updated Title" {
		t.Errorf("Expected title to be overwritten, got: %s", entry.Title)
	}
	if entry.Summary != "Original summary" {
		t.Errorf("Expected stored summary to survive, got: %s", entry.Summary)
	}
	if entry.ImageURL != "https://example.com/cover.png" {
		t.Errorf("Expected stored image URL to survive, got: %s", entry.ImageURL)
	}
	if !entry.PublishedAt.Equal(published) {
		t.Errorf("Expected stored published timestamp to survive, got: %v", entry.PublishedAt)
	}
}

func TestFailureRecordIsAppendOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ch := seedChannel(t, db, "https://example.com/feed.xml")
	repo := NewFailureRepository(db)

	if err := repo.Record(ctx, ch.ID, "job-1", FailureMissing, "empty response body"); err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}
	if err := repo.Record(ctx, ch.ID, "job-2", FailureDecoding, "not a feed"); err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}

	count, err := repo.GetFailureCount(ctx)
	if err != nil {
		t.Fatalf("Failed to count failures: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 failure rows, got: %d", count)
	}
}

func TestIgnoredChannelPurge(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedChannel(t, db, "https://keep.example.com/feed")
	seedChannel(t, db, "https://drop.example.com/feed")

	statusRepo := NewStatusRepository(db)
	if err := statusRepo.UpsertStatus(ctx, "https://drop.example.com/feed", StatusIgnore); err != nil {
		t.Fatalf("Failed to upsert status: %v", err)
	}
	if err := statusRepo.UpsertStatus(ctx, "https://keep.example.com/feed", StatusApproved); err != nil {
		t.Fatalf("Failed to upsert status: %v", err)
	}

	ignored, err := statusRepo.GetIgnoredFeedURLs(ctx)
	if err != nil {
		t.Fatalf("Failed to get ignored URLs: %v", err)
	}
	if len(ignored) != 1 || ignored[0] != "https://drop.example.com/feed" {
		t.Fatalf("Expected only the ignored URL, got: %v", ignored)
	}

	channelRepo := NewChannelRepository(db)
	deleted, err := channelRepo.DeleteByFeedURLs(ctx, ignored)
	if err != nil {
		t.Fatalf("Failed to delete ignored channels: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted channel, got: %d", deleted)
	}

	remaining, err := channelRepo.GetChannelCount(ctx)
	if err != nil {
		t.Fatalf("Failed to count channels: %v", err)
	}
	if remaining != 1 {
		t.Errorf("Expected 1 remaining channel, got: %d", remaining)
	}
}

func TestMediaRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ch := seedChannel(t, db, "https://example.com/feed.xml")

	entryRepo := NewEntryRepository(db)
	published := time.Now().UTC().Add(-time.Hour)
	summary := "A video entry"
	entryID, err := entryRepo.UpsertEntry(ctx, ch.ID, EntryItem{
		FeedID:      "video-1",
		Title:       "A Video",
		Summary:     &summary,
		URL:         "https://www.youtube.com/watch?v=abc",
		PublishedAt: &published,
	})
	if err != nil {
		t.Fatalf("Failed to insert entry: %v", err)
	}

	mediaRepo := NewMediaRepository(db)

	if err := mediaRepo.UpsertYouTubeChannel(ctx, ch.ID, "UC123"); err != nil {
		t.Fatalf("Failed to upsert youtube channel: %v", err)
	}
	// Same mapping again is a no-op
	if err := mediaRepo.UpsertYouTubeChannel(ctx, ch.ID, "UC123"); err != nil {
		t.Fatalf("Failed to re-upsert youtube channel: %v", err)
	}

	missing, err := mediaRepo.EntriesWithoutDuration(ctx, []string{entryID})
	if err != nil {
		t.Fatalf("Failed to check durations: %v", err)
	}
	if len(missing) != 1 || missing[0] != entryID {
		t.Fatalf("Expected entry without duration, got: %v", missing)
	}

	if err := mediaRepo.UpsertYouTubeVideo(ctx, entryID, "abc", 90); err != nil {
		t.Fatalf("Failed to upsert youtube video: %v", err)
	}

	missing, err = mediaRepo.EntriesWithoutDuration(ctx, []string{entryID})
	if err != nil {
		t.Fatalf("Failed to re-check durations: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("Expected no entries without duration, got: %v", missing)
	}

	linked, err := mediaRepo.HasPodcastChannel(ctx, ch.ID)
	if err != nil {
		t.Fatalf("Failed to check podcast channel: %v", err)
	}
	if linked {
		t.Error("Expected no podcast channel link yet")
	}

	if err := mediaRepo.CreatePodcastChannel(ctx, ch.ID, 1435076502); err != nil {
		t.Fatalf("Failed to create podcast channel: %v", err)
	}

	linked, err = mediaRepo.HasPodcastChannel(ctx, ch.ID)
	if err != nil {
		t.Fatalf("Failed to re-check podcast channel: %v", err)
	}
	if !linked {
		t.Error("Expected podcast channel to be linked")
	}
}

func TestEntriesWithoutDurationZeroSeconds(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ch := seedChannel(t, db, "https://example.com/feed.xml")

	entryRepo := NewEntryRepository(db)
	published := time.Now().UTC().Add(-time.Hour)
	summary := "A zero-length video"
	entryID, err := entryRepo.UpsertEntry(ctx, ch.ID, EntryItem{
		FeedID:      "video-0",
		Title:       "Zero Seconds",
		Summary:     &summary,
		URL:         "https://www.youtube.com/watch?v=zero",
		PublishedAt: &published,
	})
	if err != nil {
		t.Fatalf("Failed to insert entry: %v", err)
	}

	mediaRepo := NewMediaRepository(db)
	if err := mediaRepo.UpsertYouTubeVideo(ctx, entryID, "zero", 0); err != nil {
		t.Fatalf("Failed to upsert youtube video: %v", err)
	}

	// A stored zero-second duration is still a resolved duration; the
	// entry must not be re-queued for lookup.
	missing, err := mediaRepo.EntriesWithoutDuration(ctx, []string{entryID})
	if err != nil {
		t.Fatalf("Failed to check durations: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("Expected zero-second video to count as resolved, got: %v", missing)
	}
}
