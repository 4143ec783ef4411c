package service

import (
	"context"

	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// Overview is a snapshot of the catalog and its pipeline progress.
type Overview struct {
	Servers    int64
	Tools      int64
	Resources  int64
	Prompts    int64
	Extraction map[string]int64
	Signals    map[string]int64
}

// Statistics reports catalog and pipeline progress counters.
type Statistics struct {
	servers persistence.ServerStore
	tools   persistence.ToolStore
	signals persistence.SignalStore
	logger  *log.Logger
}

// NewStatistics creates a Statistics service.
func NewStatistics(servers persistence.ServerStore, tools persistence.ToolStore, signals persistence.SignalStore, logger *log.Logger) *Statistics {
	return &Statistics{servers: servers, tools: tools, signals: signals, logger: logger}
}

// Overview computes the current snapshot.
func (s *Statistics) Overview(ctx context.Context) (Overview, error) {
	servers, err := s.servers.Count(ctx)
	if err != nil {
		return Overview{}, err
	}

	extraction, err := s.tools.Overview(ctx)
	if err != nil {
		return Overview{}, err
	}

	signals, err := s.signals.SignalCounts(ctx)
	if err != nil {
		return Overview{}, err
	}

	return Overview{
		Servers:    servers,
		Tools:      extraction.Tools,
		Resources:  extraction.Resources,
		Prompts:    extraction.Prompts,
		Extraction: extraction.Statuses,
		Signals:    signals,
	}, nil
}
