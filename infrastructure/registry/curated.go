package registry

import (
	"context"
	"fmt"
	"os"

	"github.com/wisplabs/wisp/domain/scoring"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"gopkg.in/yaml.v3"
)

// CuratedEntry is one hand-maintained backlink: a list or showcase repo
// that features a server.
type CuratedEntry struct {
	Server string `yaml:"server"`
	Repo   string `yaml:"repo"`
	Note   string `yaml:"note"`
}

// LoadCurated reads a curated-servers YAML file.
func LoadCurated(path string) ([]CuratedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curated file: %w", err)
	}
	var entries []CuratedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse curated file: %w", err)
	}
	for i, e := range entries {
		if e.Server == "" || e.Repo == "" {
			return nil, fmt.Errorf("curated entry %d: server and repo are required", i)
		}
	}
	return entries, nil
}

// SaveCurated writes curated entries as tier4 backlink edges, pending
// referencer metadata. Edges are grouped per server so each server's
// curated set is replaced whole.
func SaveCurated(ctx context.Context, store persistence.ScoringStore, entries []CuratedEntry) error {
	byServer := make(map[string][]scoring.BacklinkEdge)
	for _, e := range entries {
		byServer[e.Server] = append(byServer[e.Server],
			scoring.NewPendingEdge(e.Server, e.Repo, scoring.TierCurated))
	}
	for server, edges := range byServer {
		if err := store.ReplaceTierEdges(ctx, server, scoring.TierCurated, edges); err != nil {
			return fmt.Errorf("save curated edges for %s: %w", server, err)
		}
	}
	return nil
}
