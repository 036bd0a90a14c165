package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/feedgrove/feedgrove/app/catalog"
	"github.com/feedgrove/feedgrove/app/cfg"
	"github.com/feedgrove/feedgrove/app/database"
	"github.com/feedgrove/feedgrove/app/feed"
	"github.com/feedgrove/feedgrove/app/media"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	db               *database.DB
	httpClient       *http.Client
	loader           *catalog.Loader
	normalizer       *catalog.Normalizer
	decoder          *feed.Decoder
	contentExtractor *feed.ContentExtractor
	youtube          *media.YouTubeClient
	podcasts         *media.PodcastClient
	userAgent        string
	fetchTimeout     time.Duration
	interval         time.Duration
	workerCount      int
	extractContent   bool
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(db *database.DB, httpClient *http.Client, loader *catalog.Loader,
	normalizer *catalog.Normalizer, decoder *feed.Decoder, contentExtractor *feed.ContentExtractor,
	youtube *media.YouTubeClient, podcasts *media.PodcastClient) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		db:               db,
		httpClient:       httpClient,
		loader:           loader,
		normalizer:       normalizer,
		decoder:          decoder,
		contentExtractor: contentExtractor,
		youtube:          youtube,
		podcasts:         podcasts,
		userAgent:        cfg.UserAgent,
		fetchTimeout:     time.Duration(cfg.FetchTimeout) * time.Second,
		interval:         time.Duration(cfg.RefreshInterval) * time.Second,
		workerCount:      cfg.WorkerCount,
		extractContent:   cfg.ExtractContent,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// enqueueTasks starts one refresh cycle. The catalog task enqueues the
// channel sync itself once reconciliation commits, so only the refresh
// and the optional extraction pass are scheduled here.
func (s *Scheduler) enqueueTasks() {
	refreshTask := NewRefreshCatalogTask(s.db, s.loader, s.normalizer, s,
		s.httpClient, s.decoder, s.youtube, s.podcasts, s.userAgent, s.fetchTimeout)
	if err := s.EnqueueTask(refreshTask); err != nil {
		slog.Warn("Failed to enqueue RefreshCatalogTask", "error", err)
	}

	if s.extractContent {
		extractTask := NewExtractContentTask(s.db, s.httpClient, s.contentExtractor, s.userAgent, s.fetchTimeout)
		if err := s.EnqueueTask(extractTask); err != nil {
			slog.Warn("Failed to enqueue ExtractContentTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
