package service

import (
	"context"
	"time"

	"github.com/wisplabs/wisp/infrastructure/gateway"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// ExtractOptions narrows one extraction run.
type ExtractOptions struct {
	Timeout    time.Duration
	Limit      int
	RemoteOnly bool
	LocalOnly  bool
	SkipAuth   bool
	Query      string
	// Clean wipes the extraction statuses first so every server is
	// attempted again, including permanent failures.
	Clean bool
}

// Extraction connects to live servers and persists their advertised tools,
// resources and prompts.
type Extraction struct {
	resolver gateway.Resolver
	servers  persistence.ServerStore
	tools    persistence.ToolStore
	logger   *log.Logger
}

// NewExtraction creates an Extraction service.
func NewExtraction(resolver gateway.Resolver, servers persistence.ServerStore, tools persistence.ToolStore, logger *log.Logger) *Extraction {
	return &Extraction{resolver: resolver, servers: servers, tools: tools, logger: logger}
}

// Run extracts tool inventories from every connectable server matching the
// options.
func (s *Extraction) Run(ctx context.Context, opts ExtractOptions) (gateway.Stats, error) {
	if opts.Clean {
		if err := s.tools.ClearExtractionStatuses(ctx); err != nil {
			return gateway.Stats{}, err
		}
		s.logger.InfoContext(ctx, "extraction statuses cleared")
	}

	stats, err := s.extractor(opts).Run(ctx)
	if err != nil {
		return stats, err
	}
	s.logger.InfoContext(ctx, "extraction finished",
		"attempted", stats.Attempted, "succeeded", stats.Succeeded, "failed", stats.Failed,
		"tools", stats.Tools, "resources", stats.Resources, "prompts", stats.Prompts)
	return stats, nil
}

// Connectable lists the servers an extraction run with the same options
// would attempt, without connecting to any of them.
func (s *Extraction) Connectable(ctx context.Context, opts ExtractOptions) ([]gateway.Candidate, error) {
	return s.extractor(opts).Connectable(ctx)
}

func (s *Extraction) extractor(opts ExtractOptions) *gateway.Extractor {
	e := gateway.NewExtractor(s.resolver, s.servers, s.tools, s.logger)
	if opts.Timeout > 0 {
		e = e.WithTimeout(opts.Timeout)
	}
	if opts.Limit > 0 {
		e = e.WithLimit(opts.Limit)
	}
	if opts.RemoteOnly {
		e = e.WithRemoteOnly()
	}
	if opts.LocalOnly {
		e = e.WithLocalOnly()
	}
	if opts.SkipAuth {
		e = e.WithSkipAuth()
	}
	if opts.Query != "" {
		e = e.WithQuery(opts.Query)
	}
	return e
}
