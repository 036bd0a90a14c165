package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedgrove/feedgrove/app/api"
	"github.com/feedgrove/feedgrove/app/catalog"
	"github.com/feedgrove/feedgrove/app/cfg"
	"github.com/feedgrove/feedgrove/app/database"
	"github.com/feedgrove/feedgrove/app/feed"
	"github.com/feedgrove/feedgrove/app/media"
	"github.com/feedgrove/feedgrove/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting feedgrove", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	if err := syncStatusFile(db, appCfg.StatusFile); err != nil {
		slog.Error("Failed to sync channel status file", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout: time.Duration(appCfg.FetchTimeout) * time.Second,
	}

	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second
	loader := catalog.NewLoader(httpClient, appCfg.DirectoryURL, appCfg.UserAgent, fetchTimeout)
	normalizer := catalog.NewNormalizer()
	decoder := feed.NewDecoder()
	contentExtractor := feed.NewContentExtractor()
	youtube := media.NewYouTubeClient(httpClient, appCfg.YouTubeAPIURL, appCfg.YouTubeAPIKey, appCfg.UserAgent)
	podcasts := media.NewPodcastClient(httpClient, appCfg.PodcastSearchURL, appCfg.UserAgent)

	if appCfg.Refresh {
		runner := tasks.NewRunner()
		refreshTask := tasks.NewRefreshCatalogTask(db, loader, normalizer, runner,
			httpClient, decoder, youtube, podcasts, appCfg.UserAgent, fetchTimeout)

		if err := runner.Run(context.Background(), refreshTask); err != nil {
			slog.Error("Refresh failed", "error", err)
			os.Exit(1)
		}

		slog.Info("Refresh complete")
		return
	}

	scheduler := tasks.NewScheduler(db, httpClient, loader, normalizer, decoder,
		contentExtractor, youtube, podcasts)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.RefreshInterval)

	newRefresh := func() tasks.TaskInterface {
		return tasks.NewRefreshCatalogTask(db, loader, normalizer, scheduler,
			httpClient, decoder, youtube, podcasts, appCfg.UserAgent, fetchTimeout)
	}

	handler := api.NewHandler(
		database.NewChannelRepository(db),
		database.NewEntryRepository(db),
		database.NewFailureRepository(db),
		scheduler,
		newRefresh,
	)
	router := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

// syncStatusFile applies the operator status file to the database so
// the next catalog refresh honors it.
func syncStatusFile(db *database.DB, path string) error {
	entries, err := catalog.LoadStatusFile(path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	ctx := context.Background()
	statusRepo := database.NewStatusRepository(db)

	for _, entry := range entries {
		if err := statusRepo.UpsertStatus(ctx, entry.FeedURL, database.ChannelStatusKind(entry.Status)); err != nil {
			return err
		}
	}

	slog.Info("Channel statuses synced", "count", len(entries))
	return nil
}
