package service

import (
	"context"

	"github.com/wisplabs/wisp/infrastructure/enrich"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// Stats aliases the per-worker enrichment run statistics.
type Stats = enrich.Stats

// EnrichOptions controls one enrichment run.
type EnrichOptions struct {
	// Workers restricts the run to the named workers. Empty runs all.
	Workers []string
	// Clean wipes the enrichment statuses of the selected workers first,
	// so permanently failed servers are attempted again.
	Clean bool
}

// Enrichment drives the external-signal workers.
type Enrichment struct {
	runner  *enrich.Runner
	signals persistence.SignalStore
	logger  *log.Logger
}

// NewEnrichment creates an Enrichment service.
func NewEnrichment(runner *enrich.Runner, signals persistence.SignalStore, logger *log.Logger) *Enrichment {
	return &Enrichment{runner: runner, signals: signals, logger: logger}
}

// Run executes the selected workers and returns the per-worker statistics.
func (s *Enrichment) Run(ctx context.Context, opts EnrichOptions) (map[string]Stats, error) {
	if opts.Clean {
		if err := s.signals.ClearStatuses(ctx, opts.Workers...); err != nil {
			return nil, err
		}
	}

	stats, err := s.runner.Run(ctx, opts.Workers...)
	if err != nil {
		return stats, err
	}

	var total Stats
	for _, st := range stats {
		total.Enriched += st.Enriched
		total.Failed += st.Failed
		total.Skipped += st.Skipped
	}
	s.logger.InfoContext(ctx, "enrichment finished", "workers", len(stats),
		"enriched", total.Enriched, "failed", total.Failed, "skipped", total.Skipped)
	return stats, nil
}

// Workers lists the names of the registered enrichment workers.
func (s *Enrichment) Workers() []string {
	return s.runner.Workers()
}
