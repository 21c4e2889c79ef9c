// Package scheduler refreshes the market-data cache on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"realestate-market/models"
	"realestate-market/services"
	"realestate-market/utils"
)

const (
	TriggerInterval = "interval"
	TriggerManual   = "manual"
)

// Task refreshes one data source and reports how many items it stored.
type Task interface {
	Name() string
	Refresh(ctx context.Context) (int, error)
}

type funcTask struct {
	name string
	fn   func(ctx context.Context) (int, error)
}

func (t funcTask) Name() string                             { return t.name }
func (t funcTask) Refresh(ctx context.Context) (int, error) { return t.fn(ctx) }

// NewTask wraps fn as a Task.
func NewTask(name string, fn func(ctx context.Context) (int, error)) Task {
	return funcTask{name: name, fn: fn}
}

// MarketTasks returns the refresh sequence for svc: the listings API, the
// HTML source, then 999.md when it is enabled.
func MarketTasks(svc *services.MarketService) []Task {
	tasks := []Task{
		NewTask(services.KeyProimobilStats, func(ctx context.Context) (int, error) {
			return svc.RefreshProimobil(ctx, services.SourceScheduler)
		}),
		NewTask(services.KeyAccesimobil, func(ctx context.Context) (int, error) {
			return svc.RefreshAccesimobil(ctx, services.SourceScheduler)
		}),
	}
	if svc.MD999Enabled() {
		tasks = append(tasks, NewTask(services.Key999MD, func(ctx context.Context) (int, error) {
			return svc.RefreshMD999(ctx, services.SourceScheduler)
		}))
	}
	return tasks
}

// MarketDataScheduler runs the tasks sequentially on every tick. A pass never
// overlaps another one, whether it was started by the timer or manually.
type MarketDataScheduler struct {
	tasks    []Task
	interval time.Duration
	logger   *utils.Logger

	refreshing atomic.Bool

	mu      sync.Mutex
	cron    *gocron.Scheduler
	job     *gocron.Job
	lastRun *models.RefreshReport
}

// New creates a stopped scheduler.
func New(tasks []Task, interval time.Duration, logger *utils.Logger) *MarketDataScheduler {
	if logger == nil {
		logger = utils.NewSilentLogger()
	}
	return &MarketDataScheduler{
		tasks:    tasks,
		interval: interval,
		logger:   logger,
	}
}

// Start registers the interval job and runs the first pass immediately in
// the background. Calling Start on a running scheduler is a no-op.
func (s *MarketDataScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("scheduler: invalid interval %s", s.interval)
	}

	cron := gocron.NewScheduler(time.UTC)
	job, err := cron.Every(s.interval).StartImmediately().Do(func() {
		if _, ok := s.run(context.Background(), TriggerInterval); !ok {
			s.logger.Warn("[scheduler] Previous refresh still running — skipping tick")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: register job: %w", err)
	}
	cron.StartAsync()

	s.cron = cron
	s.job = job
	s.logger.Info("[scheduler] Started — refreshing every %s", s.interval)
	return nil
}

// Stop cancels the timer. A pass already in flight runs to completion.
func (s *MarketDataScheduler) Stop() {
	s.mu.Lock()
	cron := s.cron
	s.cron = nil
	s.job = nil
	s.mu.Unlock()

	if cron == nil {
		return
	}
	// gocron waits for the in-flight job, which takes s.mu to record lastRun.
	cron.Stop()
	s.logger.Info("[scheduler] Stopped")
}

// TriggerRefreshNow runs a pass synchronously. It returns false without
// doing anything when a pass is already in progress.
func (s *MarketDataScheduler) TriggerRefreshNow(ctx context.Context) (*models.RefreshReport, bool) {
	return s.run(ctx, TriggerManual)
}

// Status reports the job state.
func (s *MarketDataScheduler) Status() models.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.SchedulerStatus{
		IsRunning:              s.cron != nil,
		RefreshInProgress:      s.refreshing.Load(),
		RefreshIntervalMinutes: s.interval.Minutes(),
		LastRun:                s.lastRun,
	}
	if s.job != nil {
		if next := s.job.NextRun(); !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

// IsRefreshing reports whether a pass is in flight.
func (s *MarketDataScheduler) IsRefreshing() bool {
	return s.refreshing.Load()
}

func (s *MarketDataScheduler) run(ctx context.Context, trigger string) (*models.RefreshReport, bool) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return nil, false
	}
	defer s.refreshing.Store(false)

	report := s.runPass(ctx, trigger)

	s.mu.Lock()
	s.lastRun = report
	s.mu.Unlock()
	return report, true
}

// runPass refreshes every task in order. A failing task is logged and
// recorded; the remaining tasks still run.
func (s *MarketDataScheduler) runPass(ctx context.Context, trigger string) *models.RefreshReport {
	report := &models.RefreshReport{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
		Outcomes:  make(map[string]models.SourceOutcome, len(s.tasks)),
	}
	log := s.logger.With("run_id", report.RunID)
	log.Info("[scheduler] Refresh pass started (%s)", trigger)

	for _, task := range s.tasks {
		if err := ctx.Err(); err != nil {
			report.Outcomes[task.Name()] = models.SourceOutcome{Source: task.Name(), Error: err.Error()}
			continue
		}

		start := time.Now()
		items, err := s.refreshTask(ctx, task)
		outcome := models.SourceOutcome{
			Source:   task.Name(),
			OK:       err == nil,
			Items:    items,
			Duration: time.Since(start),
		}
		if err != nil {
			outcome.Error = err.Error()
			log.Error("[scheduler] ✗ %s refresh failed: %v", task.Name(), err)
		} else {
			log.Info("[scheduler] ✓ %s refreshed — %d items in %s", task.Name(), items, outcome.Duration.Round(time.Millisecond))
		}
		report.Outcomes[task.Name()] = outcome
	}

	report.FinishedAt = time.Now().UTC()
	if failed := report.Failed(); len(failed) > 0 {
		log.Warn("[scheduler] Refresh pass finished with %d failed source(s): %v", len(failed), failed)
	} else {
		log.Info("[scheduler] Refresh pass finished in %s", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}
	return report
}

// refreshTask turns a panicking task into an error so one bad source cannot
// take down the pass.
func (s *MarketDataScheduler) refreshTask(ctx context.Context, task Task) (items int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Refresh(ctx)
}
