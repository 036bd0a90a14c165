package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/feedgrove/feedgrove/app/catalog"
	"github.com/feedgrove/feedgrove/app/database"
	"github.com/feedgrove/feedgrove/app/feed"
	"github.com/feedgrove/feedgrove/app/media"
)

// RefreshCatalogTask downloads the site directory, normalizes it and
// reconciles the channels table with the result. On success it kicks
// off a SyncChannelsTask so freshly registered channels are fetched
// without waiting for the next interval.
type RefreshCatalogTask struct {
	Task
	db         *database.DB
	loader     *catalog.Loader
	normalizer *catalog.Normalizer
	scheduler  TaskSchedulerInterface

	// Carried through to the sync task this one enqueues.
	httpClient   *http.Client
	decoder      *feed.Decoder
	youtube      *media.YouTubeClient
	podcasts     *media.PodcastClient
	userAgent    string
	fetchTimeout time.Duration
}

func NewRefreshCatalogTask(db *database.DB, loader *catalog.Loader, normalizer *catalog.Normalizer,
	scheduler TaskSchedulerInterface, httpClient *http.Client, decoder *feed.Decoder,
	youtube *media.YouTubeClient, podcasts *media.PodcastClient,
	userAgent string, fetchTimeout time.Duration) *RefreshCatalogTask {
	return &RefreshCatalogTask{
		Task:         NewTask(TaskTypeRefreshCatalog),
		db:           db,
		loader:       loader,
		normalizer:   normalizer,
		scheduler:    scheduler,
		httpClient:   httpClient,
		decoder:      decoder,
		youtube:      youtube,
		podcasts:     podcasts,
		userAgent:    userAgent,
		fetchTimeout: fetchTimeout,
	}
}

func (t *RefreshCatalogTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := t.loader.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch directory: %w", err)
	}

	dir, err := t.normalizer.Run(data)
	if err != nil {
		return fmt.Errorf("failed to normalize directory: %w", err)
	}

	var upserted, purged int

	err = t.db.WithTx(ctx, func(h database.Handle) error {
		taxonomyRepo := database.NewTaxonomyRepository(h)
		channelRepo := database.NewChannelRepository(h)
		statusRepo := database.NewStatusRepository(h)

		if err := t.upsertTaxonomy(ctx, taxonomyRepo, dir); err != nil {
			return err
		}

		ignored, err := statusRepo.GetIgnoredFeedURLs(ctx)
		if err != nil {
			return fmt.Errorf("failed to load ignore list: %w", err)
		}

		if len(ignored) > 0 {
			deleted, err := channelRepo.DeleteByFeedURLs(ctx, ignored)
			if err != nil {
				return fmt.Errorf("failed to purge ignored channels: %w", err)
			}
			purged = int(deleted)
		}

		upserted, err = t.upsertChannels(ctx, channelRepo, dir, ignored)
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"id", t.ID,
		"duration", t.GetDuration(),
		"sites", len(dir.Sites),
		"upserted", upserted,
		"purged", purged)

	syncTask := NewSyncChannelsTask(t.db, t.httpClient, t.decoder, t.youtube, t.podcasts,
		t.scheduler, t.userAgent, t.fetchTimeout)
	if err := t.scheduler.EnqueueTask(syncTask); err != nil {
		return fmt.Errorf("failed to enqueue SyncChannelsTask: %w", err)
	}

	return nil
}

func (t *RefreshCatalogTask) upsertTaxonomy(ctx context.Context, repo database.TaxonomyRepository, dir *catalog.Directory) error {
	for code, title := range dir.Languages {
		if err := repo.UpsertLanguage(ctx, code, title); err != nil {
			return err
		}
	}
	for slug, titles := range dir.Categories {
		if err := repo.UpsertCategory(ctx, slug); err != nil {
			return err
		}
		for code, title := range titles {
			if err := repo.UpsertCategoryTitle(ctx, code, slug, title); err != nil {
				return err
			}
		}
	}
	return nil
}

// upsertChannels reconciles the organized site list. Duplicate feed
// URLs keep the first occurrence, ignored feeds are skipped, and sites
// whose language or category never made it into the directory maps are
// dropped rather than inserted as orphans.
func (t *RefreshCatalogTask) upsertChannels(ctx context.Context, repo database.ChannelRepository,
	dir *catalog.Directory, ignored []string) (int, error) {

	ignoredSet := make(map[string]struct{}, len(ignored))
	for _, feedURL := range ignored {
		ignoredSet[feedURL] = struct{}{}
	}

	seen := make(map[string]struct{}, len(dir.Sites))
	upserted := 0

	for _, organized := range dir.Sites {
		site := organized.Site

		if _, ok := ignoredSet[site.FeedURL]; ok {
			slog.Debug("Site ignored", "feed_url", site.FeedURL)
			continue
		}
		if _, ok := seen[site.FeedURL]; ok {
			slog.Debug("Duplicate feed URL, keeping first occurrence", "feed_url", site.FeedURL)
			continue
		}
		seen[site.FeedURL] = struct{}{}

		if _, ok := dir.Languages[organized.LanguageCode]; !ok {
			slog.Debug("Site references unknown language, skipping", "feed_url", site.FeedURL, "language", organized.LanguageCode)
			continue
		}
		if _, ok := dir.Categories[organized.CategorySlug]; !ok {
			slog.Debug("Site references unknown category, skipping", "feed_url", site.FeedURL, "category", organized.CategorySlug)
			continue
		}

		ch := &database.Channel{
			Title:         site.Title,
			Author:        site.Author,
			SiteURL:       site.SiteURL,
			FeedURL:       site.FeedURL,
			TwitterHandle: twitterHandle(site.TwitterURL),
			LanguageCode:  organized.LanguageCode,
			CategorySlug:  organized.CategorySlug,
		}
		if err := repo.UpsertFromCatalog(ctx, ch); err != nil {
			return upserted, fmt.Errorf("failed to upsert channel %s: %w", site.FeedURL, err)
		}
		upserted++
	}

	return upserted, nil
}

// twitterHandle extracts the account name from a profile URL, e.g.
// "https://twitter.com/example" yields "example".
func twitterHandle(twitterURL string) string {
	if twitterURL == "" {
		return ""
	}
	parsed, err := url.Parse(twitterURL)
	if err != nil {
		return ""
	}
	handle := path.Base(parsed.Path)
	if handle == "." || handle == "/" {
		return ""
	}
	return handle
}
