package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/feedgrove/feedgrove/app/database"
	"github.com/feedgrove/feedgrove/app/tasks"
	"github.com/gin-gonic/gin"
)

const (
	defaultEntryLimit = 50
	maxEntryLimit     = 200
)

func NewHandler(channelRepo database.ChannelRepository, entryRepo database.EntryRepository,
	failureRepo database.FailureRepository, scheduler tasks.TaskSchedulerInterface,
	newRefresh func() tasks.TaskInterface) *Handler {
	return &Handler{
		channelRepo: channelRepo,
		entryRepo:   entryRepo,
		failureRepo: failureRepo,
		scheduler:   scheduler,
		newRefresh:  newRefresh,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if channelCount, err := h.channelRepo.GetChannelCount(c.Request.Context()); err == nil {
		health["channels"] = channelCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	channelCount, err := h.channelRepo.GetChannelCount(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "get_channel_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	entryCount, err := h.entryRepo.GetEntryCount(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "get_entry_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	failureCount, err := h.failureRepo.GetFailureCount(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "get_failure_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": channelCount,
		"entries":  entryCount,
		"failures": failureCount,
	})
}

func (h *Handler) GetEntries(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))

	entries, err := h.entryRepo.GetRecent(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_entries", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": serializeEntries(entries),
		"total":   len(entries),
	})
}

func (h *Handler) GetChannels(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))

	channels, err := h.channelRepo.GetChannels(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_channels", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]interface{}, 0, len(channels))
	for _, ch := range channels {
		result = append(result, serializeChannel(ch))
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": result,
		"total":    len(result),
	})
}

func (h *Handler) GetChannelEntries(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing channel id parameter"})
		return
	}
	limit := parseLimit(c.Query("limit"))

	entries, err := h.entryRepo.GetByChannel(c.Request.Context(), id, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_channel_entries", "channel_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": serializeEntries(entries),
		"total":   len(entries),
	})
}

// APIRefresh enqueues a catalog refresh cycle out of schedule.
func (h *Handler) APIRefresh(c *gin.Context) {
	task := h.newRefresh()

	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing refresh task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Catalog refresh enqueued",
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
		},
	})
}

func (h *Handler) APIGetFailures(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))

	failures, err := h.failureRepo.GetRecent(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_failures", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]interface{}, 0, len(failures))
	for _, failure := range failures {
		result = append(result, map[string]interface{}{
			"id":          failure.ID,
			"channel_id":  failure.ChannelID,
			"job_id":      failure.JobID,
			"kind":        string(failure.Kind),
			"description": failure.Description,
			"created_at":  failure.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"failures": result,
		"total":    len(result),
	})
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultEntryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultEntryLimit
	}
	if limit > maxEntryLimit {
		return maxEntryLimit
	}
	return limit
}

func serializeEntries(entries []database.Entry) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		result = append(result, map[string]interface{}{
			"id":           entry.ID,
			"channel_id":   entry.ChannelID,
			"title":        entry.Title,
			"summary":      entry.Summary,
			"content":      entry.Content,
			"url":          entry.URL,
			"image_url":    entry.ImageURL,
			"published_at": entry.PublishedAt,
		})
	}
	return result
}

func serializeChannel(ch database.Channel) map[string]interface{} {
	return map[string]interface{}{
		"id":             ch.ID,
		"title":          ch.Title,
		"subtitle":       ch.Subtitle,
		"author":         ch.Author,
		"site_url":       ch.SiteURL,
		"feed_url":       ch.FeedURL,
		"twitter_handle": ch.TwitterHandle,
		"image_url":      ch.ImageURL,
		"language":       ch.LanguageCode,
		"category":       ch.CategorySlug,
		"last_synced_at": ch.LastSyncedAt,
	}
}
