package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// Ingestor walks the upstream registry and persists every entry.
type Ingestor struct {
	client  *Client
	servers persistence.ServerStore
	logger  *log.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(client *Client, servers persistence.ServerStore, logger *log.Logger) *Ingestor {
	return &Ingestor{client: client, servers: servers, logger: logger}
}

// Result summarises one ingest run.
type Result struct {
	Saved  int
	Failed int
}

// Run ingests the latest version of every server, optionally narrowed by a
// search filter. Entries that fail to parse or save are logged and skipped;
// one bad record must not stop the run.
func (i *Ingestor) Run(ctx context.Context, search string) (Result, error) {
	var result Result
	err := i.client.Walk(ctx, ListOptions{Search: search, Version: "latest"}, func(raw json.RawMessage) error {
		record, err := ParseEntry(raw)
		if err != nil {
			result.Failed++
			i.logger.WarnContext(ctx, "skipping registry entry", "error", err)
			return nil
		}
		if err := i.servers.Save(ctx, record); err != nil {
			result.Failed++
			i.logger.WarnContext(ctx, "failed to save server",
				"server", record.Server.Name(), "error", err)
			return nil
		}
		result.Saved++
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("ingest: %w", err)
	}
	i.logger.InfoContext(ctx, "ingest finished", "saved", result.Saved, "failed", result.Failed)
	return result, nil
}
