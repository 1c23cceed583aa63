package services

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// Ensure Dispatcher implements the interface.
var _ driving.Dispatcher = (*Dispatcher)(nil)

// Dispatcher starts pipeline runs in background goroutines, at most
// maxConcurrent at a time. Runs for the same document are not serialised.
type Dispatcher struct {
	pipeline driving.Pipeline
	sem      *semaphore.Weighted

	mu     sync.Mutex
	active map[string]int
	wg     sync.WaitGroup
	log    logger.Logger
}

// NewDispatcher creates a dispatcher for the pipeline.
func NewDispatcher(pipeline driving.Pipeline, maxConcurrent int) *Dispatcher {
	return &Dispatcher{
		pipeline: pipeline,
		sem:      semaphore.NewWeighted(int64(max(maxConcurrent, 1))),
		active:   make(map[string]int),
		log:      logger.With("dispatcher"),
	}
}

// Dispatch starts a run for the document. The caller's cancellation does
// not reach the run; a disconnecting client never halts processing.
func (d *Dispatcher) Dispatch(ctx context.Context, documentID, sourcePath string) {
	runCtx := context.WithoutCancel(ctx)

	d.mu.Lock()
	d.active[documentID]++
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.finish(documentID)

		if err := d.sem.Acquire(runCtx, 1); err != nil {
			d.log.Error("acquire run slot for %s: %v", documentID, err)
			return
		}
		defer d.sem.Release(1)

		d.pipeline.ProcessDocument(runCtx, documentID, sourcePath)
	}()
}

// Active reports whether a run for the document is queued or running.
func (d *Dispatcher) Active(documentID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active[documentID] > 0
}

// ActiveIDs returns the documents with a queued or running run, sorted.
func (d *Dispatcher) ActiveIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.active))
	for id := range d.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Wait blocks until every dispatched run has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) finish(documentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active[documentID]--
	if d.active[documentID] <= 0 {
		delete(d.active, documentID)
	}
}
