package enrich

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

const librariesBaseURL = "https://libraries.io/api"

// librariesPlatforms maps a package registry type to its libraries.io
// platform name.
var librariesPlatforms = map[string]string{
	"npm":  "npm",
	"pypi": "pypi",
}

// Dependents fetches dependents counts from libraries.io for npm and PyPI
// packages.
type Dependents struct {
	fetcher *fetch.Client
	signals persistence.SignalStore
	apiKey  string
	baseURL string
	pause   time.Duration
	logger  *log.Logger
}

// NewDependents creates the libraries.io dependents worker.
func NewDependents(fetcher *fetch.Client, signals persistence.SignalStore, apiKey string, logger *log.Logger) *Dependents {
	return &Dependents{
		fetcher: fetcher,
		signals: signals,
		apiKey:  apiKey,
		baseURL: librariesBaseURL,
		pause:   1500 * time.Millisecond,
		logger:  logger,
	}
}

// WithBaseURL overrides the libraries.io API root.
func (d *Dependents) WithBaseURL(u string) *Dependents {
	d.baseURL = u
	return d
}

// WithPause sets the delay between package fetches.
func (d *Dependents) WithPause(p time.Duration) *Dependents {
	d.pause = p
	return d
}

// Name implements Worker.
func (d *Dependents) Name() string { return "dependents" }

type librariesResponse struct {
	DependentsCount     int `json:"dependents_count"`
	DependentReposCount int `json:"dependent_repos_count"`
	Rank                int `json:"rank"`
}

// Run fetches dependents counts for every stale package. Requires an API
// key; libraries.io rejects anonymous requests.
func (d *Dependents) Run(ctx context.Context) (Stats, error) {
	if d.apiKey == "" {
		return Stats{}, fmt.Errorf("libraries.io api key is required")
	}

	candidates, err := d.signals.DependentCandidates(ctx, signal.StalenessRepo)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for i, c := range candidates {
		if i > 0 {
			if err := pause(ctx, d.pause); err != nil {
				return stats, err
			}
		}

		platform, ok := librariesPlatforms[c.RegistryType]
		if !ok {
			stats.Skipped++
			continue
		}

		var resp librariesResponse
		endpoint := fmt.Sprintf("%s/%s/%s?api_key=%s",
			d.baseURL, platform, url.PathEscape(c.Identifier), url.QueryEscape(d.apiKey))
		if err := d.fetcher.GetJSON(ctx, endpoint, nil, &resp); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			d.logger.WarnContext(ctx, "dependents fetch failed",
				"server", c.ServerName, "package", c.Identifier, "error", err)
			if err := d.signals.SaveStatus(ctx, signal.NewEnrichmentFailure(c.ServerName, d.Name(), classifyMissingPackage(err))); err != nil {
				return stats, err
			}
			stats.Failed++
			continue
		}

		dep := signal.NewDependencySignal(c.ServerName, platform, c.Identifier,
			resp.DependentsCount, resp.DependentReposCount, resp.Rank)
		if err := d.signals.SaveDependency(ctx, dep); err != nil {
			return stats, err
		}
		if err := d.signals.SaveStatus(ctx, signal.NewEnrichmentSuccess(c.ServerName, d.Name())); err != nil {
			return stats, err
		}
		stats.Enriched++
	}
	return stats, nil
}
