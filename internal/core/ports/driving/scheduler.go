package driving

import "context"

// Scheduler runs background maintenance such as stale run recovery and
// temporary page directory cleanup.
type Scheduler interface {
	// Start begins running scheduled tasks.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error
}
