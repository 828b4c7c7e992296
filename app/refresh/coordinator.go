package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lysyi3m/course-comb/app/catalog"
	"github.com/lysyi3m/course-comb/app/metrics"
	"github.com/lysyi3m/course-comb/app/sources"
)

const DefaultAdapterTimeout = 60 * time.Second

// AdapterLister supplies the adapters taking part in a refresh.
type AdapterLister interface {
	ListActive() map[string]sources.Adapter
}

type Coordinator struct {
	adapters AdapterLister
	store    catalog.Store
	timeout  time.Duration
	metrics  *metrics.Manager
	now      func() time.Time

	group singleflight.Group

	mu   sync.RWMutex
	last *Report
}

type Option func(*Coordinator)

// WithAdapterTimeout caps every adapter fetch. Adapters with their own,
// shorter budget keep it.
func WithAdapterTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func NewCoordinator(adapters AdapterLister, store catalog.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		adapters: adapters,
		store:    store,
		timeout:  DefaultAdapterTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run fetches every active adapter concurrently and upserts the results.
// Adapter failures are captured in the report. A store fault aborts the
// remaining adapters and is returned along with the partial report.
// Concurrent callers share a single in-flight run.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	v, err, shared := c.group.Do("refresh", func() (any, error) {
		return c.run(ctx)
	})
	if shared {
		slog.Debug("Joined in-flight refresh")
	}
	report, _ := v.(*Report)
	return report, err
}

// LastReport returns the most recent completed report, or nil.
func (c *Coordinator) LastReport() *Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

type sourceOutcome struct {
	name   string
	result SourceResult
	fatal  error
}

func (c *Coordinator) run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: c.now(),
		Sources:   make(map[string]SourceResult),
	}
	start := time.Now()

	adapters := c.adapters.ListActive()
	slog.Info("Refresh started", "run_id", report.RunID, "sources", len(adapters))

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	results := make(chan sourceOutcome, len(adapters))
	var wg sync.WaitGroup
	for name, adapter := range adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.refreshSource(runCtx, name, adapter)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var fatal error
	for outcome := range results {
		report.add(outcome.name, outcome.result)
		if outcome.fatal != nil && fatal == nil {
			fatal = outcome.fatal
			cancel(fatal)
		}
	}

	report.FinishedAt = c.now()

	c.mu.Lock()
	c.last = report
	c.mu.Unlock()

	outcome := metrics.OutcomeSuccess
	if fatal != nil {
		outcome = metrics.OutcomeError
	}
	c.metrics.ObserveRefresh(outcome, time.Since(start), report.FinishedAt)
	if count, err := c.store.Count(ctx); err == nil {
		c.metrics.SetCatalogSize(count)
	}

	if fatal != nil {
		slog.Error("Refresh aborted", "run_id", report.RunID, "error", fatal)
		return report, fmt.Errorf("refresh aborted: %w", fatal)
	}

	slog.Info("Refresh completed",
		"run_id", report.RunID,
		"new", report.TotalNew,
		"updated", report.TotalUpdated,
		"failed_sources", len(report.FailedSources()),
		"duration", time.Since(start))

	return report, nil
}

func (c *Coordinator) refreshSource(ctx context.Context, name string, adapter sources.Adapter) sourceOutcome {
	start := time.Now()
	out := sourceOutcome{name: name}

	courses, err := c.fetch(ctx, name, adapter)
	if err != nil {
		out.result.Error = err.Error()
		out.result.DurationMS = time.Since(start).Milliseconds()

		outcome := metrics.OutcomeError
		if errors.Is(err, sources.ErrTimeout) {
			outcome = metrics.OutcomeTimeout
		}
		c.metrics.ObserveSourceFetch(name, outcome, time.Since(start))

		slog.Warn("Source fetch failed", "source", name, "error", err)
		return out
	}

	for _, course := range courses {
		course.Source = name
		catalog.Normalize(&course)
		if err := catalog.Validate(course); err != nil {
			out.result.Rejected++
			slog.Debug("Course rejected", "source", name, "url", course.URL, "error", err)
			continue
		}

		_, created, err := c.store.Upsert(ctx, course)
		if err != nil {
			if catalog.IsValidationError(err) {
				out.result.Rejected++
				continue
			}
			out.fatal = fmt.Errorf("failed to store course from %s: %w", name, err)
			out.result.Error = out.fatal.Error()
			break
		}

		if created {
			out.result.New++
		} else {
			out.result.Updated++
		}
	}

	out.result.Count = out.result.New + out.result.Updated
	out.result.DurationMS = time.Since(start).Milliseconds()

	outcome := metrics.OutcomeSuccess
	if out.fatal != nil {
		outcome = metrics.OutcomeError
	}
	c.metrics.ObserveSourceFetch(name, outcome, time.Since(start))
	c.metrics.AddCourses(name, metrics.IngestCreated, out.result.New)
	c.metrics.AddCourses(name, metrics.IngestUpdated, out.result.Updated)
	c.metrics.AddCourses(name, metrics.IngestRejected, out.result.Rejected)

	slog.Debug("Source refreshed",
		"source", name,
		"new", out.result.New,
		"updated", out.result.Updated,
		"rejected", out.result.Rejected)

	return out
}

// fetch runs the adapter under its timeout. An adapter that ignores its
// context is abandoned once the deadline passes.
func (c *Coordinator) fetch(ctx context.Context, name string, adapter sources.Adapter) ([]catalog.Course, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.timeoutFor(adapter))
	defer cancel()

	type fetchResult struct {
		courses []catalog.Course
		err     error
	}
	done := make(chan fetchResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Adapter panicked", "source", name, "panic", r, "stack", string(debug.Stack()))
				done <- fetchResult{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		courses, err := adapter.FetchCourses(fetchCtx)
		done <- fetchResult{courses: courses, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, sources.NewFetchError(name, res.err)
		}
		return res.courses, nil
	case <-fetchCtx.Done():
		return nil, sources.NewFetchError(name, fetchCtx.Err())
	}
}

func (c *Coordinator) timeoutFor(adapter sources.Adapter) time.Duration {
	timeout := c.timeout
	if tp, ok := adapter.(sources.TimeoutProvider); ok {
		if own := tp.Timeout(); own > 0 && (timeout <= 0 || own < timeout) {
			timeout = own
		}
	}
	if timeout <= 0 {
		timeout = DefaultAdapterTimeout
	}
	return timeout
}
