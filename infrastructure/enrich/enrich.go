// Package enrich runs the per-source enrichment workers: GitHub repository
// metadata, package download counts, cross-directory listings, dependents
// counts, service cost analysis and configuration code search. Each worker
// selects its own stale candidates, fetches politely and records a status
// row per server so permanent failures are not retried.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/internal/log"
)

// Stats summarises one worker run.
type Stats struct {
	Enriched int
	Failed   int
	Skipped  int
}

// Worker is one enrichment source.
type Worker interface {
	Name() string
	Run(ctx context.Context) (Stats, error)
}

// Runner executes enrichment workers in order.
type Runner struct {
	workers []Worker
	logger  *log.Logger
}

// NewRunner creates a Runner.
func NewRunner(logger *log.Logger, workers ...Worker) *Runner {
	return &Runner{workers: workers, logger: logger}
}

// Workers lists the registered worker names in execution order.
func (r *Runner) Workers() []string {
	names := make([]string, len(r.workers))
	for i, w := range r.workers {
		names[i] = w.Name()
	}
	return names
}

// Run executes the workers. With names given, only the named workers run.
// The first worker error stops the run; per-server failures do not.
func (r *Runner) Run(ctx context.Context, names ...string) (map[string]Stats, error) {
	selected := make(map[string]bool, len(names))
	for _, n := range names {
		selected[n] = true
	}

	out := make(map[string]Stats)
	for _, w := range r.workers {
		if len(selected) > 0 && !selected[w.Name()] {
			continue
		}
		stats, err := w.Run(ctx)
		out[w.Name()] = stats
		if err != nil {
			return out, fmt.Errorf("enrich %s: %w", w.Name(), err)
		}
		r.logger.InfoContext(ctx, "enrichment source finished",
			"source", w.Name(),
			"enriched", stats.Enriched,
			"failed", stats.Failed,
			"skipped", stats.Skipped)
	}
	return out, nil
}

// pause sleeps between upstream calls, aborting on cancellation.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// classify maps a fetch error to a failure class. 404s are permanent;
// other statuses follow their HTTP class.
func classify(err error) signal.Failure {
	if errors.Is(err, fetch.ErrNotFound) {
		return signal.NewFailure(signal.FailurePermanent, signal.ReasonNotFound, err.Error())
	}
	var statusErr *fetch.StatusError
	if errors.As(err, &statusErr) {
		return signal.ClassifyHTTPStatus(statusErr.Code, err.Error())
	}
	return signal.ClassifyMessage(err.Error())
}

// classifyMissingPackage is classify with 404 mapped to a missing package.
func classifyMissingPackage(err error) signal.Failure {
	if errors.Is(err, fetch.ErrNotFound) {
		return signal.NewFailure(signal.FailurePermanent, signal.ReasonPackageNotFound, err.Error())
	}
	return classify(err)
}

// parseTimePtr parses an RFC3339 timestamp, nil when absent or malformed.
func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
