package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// errInterrupted is recorded on pages left unfinished by a dead run.
var errInterrupted = errors.New("run interrupted before this page finished")

// Scheduler manages background task execution.
// It is a pure core service with no external control API.
type Scheduler struct {
	config     domain.SchedulerConfig
	store      driven.SchedulerStore
	docStore   driven.DocumentStore
	dispatcher driving.Dispatcher
	uploadDir  string
	tick       time.Duration
	now        func() time.Time
	log        logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	docStore driven.DocumentStore,
	dispatcher driving.Dispatcher,
	uploadDir string,
) *Scheduler {
	return &Scheduler{
		config:     config,
		store:      store,
		docStore:   docStore,
		dispatcher: dispatcher,
		uploadDir:  uploadDir,
		tick:       time.Minute,
		now:        time.Now,
		log:        logger.With("scheduler"),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if !s.config.Enabled {
		s.log.Info("scheduler disabled")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		}
	}

	if err := s.initialiseTasks(ctx); err != nil {
		s.log.Error("failed to initialise tasks: %v", err)
	}

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	tasks := []struct {
		id, name string
	}{
		{domain.TaskIDStaleRunRecovery, "Stale Run Recovery"},
		{domain.TaskIDTempCleanup, "Temporary Page Cleanup"},
	}
	for _, t := range tasks {
		cfg := s.config.GetTaskConfig(t.id)
		if !cfg.Enabled || cfg.Interval <= 0 {
			continue
		}
		if err := s.ensureTask(ctx, t.id, t.name, cfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store. New tasks are due
// immediately so recovery happens on startup.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  s.now(),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		s.log.Error("failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task in the background.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDStaleRunRecovery:
			result.ItemsProcessed, err = s.RecoverStaleRuns(ctx)
		case domain.TaskIDTempCleanup:
			result.ItemsProcessed, err = s.CleanupPageDirs(ctx)
		default:
			s.log.Warn("unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = s.now()
		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			s.log.Error("failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			s.log.Error("failed to record result for %s: %v", task.ID, recordErr)
		}
		// Keep the last 100 results per task.
		if pruneErr := s.store.PruneHistory(ctx, 100); pruneErr != nil {
			s.log.Error("failed to prune history: %v", pruneErr)
		}
	}()
}

// RecoverStaleRuns marks documents stuck in processing as failed when no
// run of this process owns them and they have not been written for longer
// than the configured StaleAfter.
func (s *Scheduler) RecoverStaleRuns(ctx context.Context) (int, error) {
	docs, err := s.docStore.ListByStatus(ctx, domain.DocumentProcessing)
	if err != nil {
		return 0, fmt.Errorf("list processing documents: %w", err)
	}

	cutoff := s.now().Add(-s.config.StaleAfter)
	recovered := 0
	for i := range docs {
		doc := &docs[i]
		if s.dispatcher != nil && s.dispatcher.Active(doc.ID) {
			continue
		}
		if doc.UpdatedAt.After(cutoff) {
			continue
		}

		for j := range doc.Pages {
			p := &doc.Pages[j]
			if p.Status == domain.PagePending || p.Status == domain.PageProcessing {
				p.Status = domain.PageFailed
				p.Error = errInterrupted.Error()
			}
		}
		doc.Status = domain.DocumentFailed
		doc.UpdatedAt = s.now()
		if err := s.docStore.Save(ctx, doc); err != nil {
			return recovered, fmt.Errorf("recover %s: %w", doc.ID, err)
		}
		s.log.Warn("recovered stale run for %s", doc.ID)
		recovered++
	}
	return recovered, nil
}

// pageDirGrace keeps recently written page directories. A run dispatched
// while cleanup is scanning writes into its directory well within it.
const pageDirGrace = 10 * time.Minute

// CleanupPageDirs removes per-document page directories left behind by
// runs that are no longer active. Directories touched within pageDirGrace
// are kept.
func (s *Scheduler) CleanupPageDirs(_ context.Context) (int, error) {
	root := filepath.Join(s.uploadDir, "pages")
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read page root: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if s.active(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if s.now().Sub(info.ModTime()) < pageDirGrace {
			continue
		}
		// A run may have been dispatched since the first check.
		if s.active(e.Name()) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (s *Scheduler) active(documentID string) bool {
	return s.dispatcher != nil && s.dispatcher.Active(documentID)
}
