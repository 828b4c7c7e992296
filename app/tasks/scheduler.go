package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/course-comb/app/catalog"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	defaultQueueSize   = 300
	defaultTaskTimeout = 5 * time.Minute
	maxRetryDelay      = 30 * time.Second
)

type Options struct {
	// Interval between periodic refreshes. Zero disables the ticker.
	Interval       time.Duration
	WorkerCount    int
	RefreshOnStart bool
	// SeedFile, when set, is loaded into the store once at startup.
	SeedFile    string
	TaskTimeout time.Duration
	// RetryDelay is the base of the exponential retry delay.
	RetryDelay time.Duration
}

type Scheduler struct {
	refresher      Refresher
	store          catalog.Store
	interval       time.Duration
	workerCount    int
	refreshOnStart bool
	seedFile       string
	taskTimeout    time.Duration
	retryDelay     time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	taskQueue      chan TaskInterface
}

func NewScheduler(refresher Refresher, store catalog.Store, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		refresher:      refresher,
		store:          store,
		interval:       opts.Interval,
		workerCount:    opts.WorkerCount,
		refreshOnStart: opts.RefreshOnStart,
		seedFile:       opts.SeedFile,
		taskTimeout:    opts.TaskTimeout,
		retryDelay:     opts.RetryDelay,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, defaultQueueSize),
	}
	if s.workerCount < 1 {
		s.workerCount = 1
	}
	if s.taskTimeout <= 0 {
		s.taskTimeout = defaultTaskTimeout
	}
	if s.retryDelay <= 0 {
		s.retryDelay = time.Second
	}
	return s
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.enqueueStartupTasks()

	if s.interval <= 0 {
		slog.Debug("Periodic refresh disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueRefresh()
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
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	if s.seedFile != "" {
		if err := s.EnqueueTask(NewSeedCatalogTask(s.seedFile, s.store)); err != nil {
			slog.Warn("Failed to enqueue SeedCatalogTask", "file", s.seedFile, "error", err)
		}
	}

	if s.refreshOnStart {
		s.enqueueRefresh()
	}
}

func (s *Scheduler) enqueueRefresh() {
	if err := s.EnqueueTask(NewRefreshCatalogTask(s.refresher)); err != nil {
		slog.Warn("Failed to enqueue RefreshCatalogTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := s.retryDelayFor(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	// Tracked by the wait group so Stop never races a late re-enqueue.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

func (s *Scheduler) retryDelayFor(retry int) time.Duration {
	delay := time.Duration(1<<uint(retry-1)) * s.retryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
