package enrich

import (
	"context"
	"sort"

	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// ServiceCostAnalyzer derives cost hints from each server's secret
// environment variables. Fully offline; no upstream calls.
type ServiceCostAnalyzer struct {
	servers persistence.ServerStore
	signals persistence.SignalStore
	logger  *log.Logger
}

// NewServiceCostAnalyzer creates the service cost worker.
func NewServiceCostAnalyzer(servers persistence.ServerStore, signals persistence.SignalStore, logger *log.Logger) *ServiceCostAnalyzer {
	return &ServiceCostAnalyzer{servers: servers, signals: signals, logger: logger}
}

// Name implements Worker.
func (s *ServiceCostAnalyzer) Name() string { return "service_cost" }

// Run analyzes every server with secret variables. Servers without secrets
// are skipped; they require no credentials and imply no upstream cost.
func (s *ServiceCostAnalyzer) Run(ctx context.Context) (Stats, error) {
	secrets, err := s.servers.SecretVars(ctx)
	if err != nil {
		return Stats{}, err
	}

	names := make([]string, 0, len(secrets))
	for name := range secrets {
		names = append(names, name)
	}
	sort.Strings(names)

	var stats Stats
	for _, name := range names {
		cost, ok := signal.AnalyzeServiceCost(name, secrets[name])
		if !ok {
			stats.Skipped++
			continue
		}
		if err := s.signals.SaveServiceCost(ctx, cost); err != nil {
			return stats, err
		}
		if err := s.signals.SaveStatus(ctx, signal.NewEnrichmentSuccess(name, s.Name())); err != nil {
			return stats, err
		}
		stats.Enriched++
	}
	return stats, nil
}
