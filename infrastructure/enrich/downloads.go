package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

const (
	npmBaseURL    = "https://api.npmjs.org"
	pypiBaseURL   = "https://pypistats.org/api"
	dockerBaseURL = "https://hub.docker.com/v2"
)

// NPMDownloads samples npm download counts per package.
type NPMDownloads struct {
	fetcher *fetch.Client
	signals persistence.SignalStore
	baseURL string
	pause   time.Duration
	logger  *log.Logger
}

// NewNPMDownloads creates the npm downloads worker.
func NewNPMDownloads(fetcher *fetch.Client, signals persistence.SignalStore, logger *log.Logger) *NPMDownloads {
	return &NPMDownloads{
		fetcher: fetcher,
		signals: signals,
		baseURL: npmBaseURL,
		pause:   100 * time.Millisecond,
		logger:  logger,
	}
}

// WithBaseURL overrides the npm downloads API root.
func (n *NPMDownloads) WithBaseURL(u string) *NPMDownloads {
	n.baseURL = u
	return n
}

// WithPause sets the delay between package fetches.
func (n *NPMDownloads) WithPause(d time.Duration) *NPMDownloads {
	n.pause = d
	return n
}

// Name implements Worker.
func (n *NPMDownloads) Name() string { return "npm" }

type npmPointResponse struct {
	Downloads int64 `json:"downloads"`
}

// Run samples download counts for every stale npm package. The weekly
// window is required; daily and monthly windows are best effort.
func (n *NPMDownloads) Run(ctx context.Context) (Stats, error) {
	candidates, err := n.signals.PackageCandidates(ctx, n.Name(), "npm", "npm", signal.StalenessDownload)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for i, c := range candidates {
		if i > 0 {
			if err := pause(ctx, n.pause); err != nil {
				return stats, err
			}
		}

		var week npmPointResponse
		endpoint := fmt.Sprintf("%s/downloads/point/last-week/%s", n.baseURL, c.Identifier)
		if err := n.fetcher.GetJSON(ctx, endpoint, nil, &week); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			n.logger.WarnContext(ctx, "npm downloads fetch failed",
				"server", c.ServerName, "package", c.Identifier, "error", err)
			if err := n.signals.SaveStatus(ctx, signal.NewEnrichmentFailure(c.ServerName, n.Name(), classifyMissingPackage(err))); err != nil {
				return stats, err
			}
			stats.Failed++
			continue
		}

		counts := signal.DownloadCounts{LastWeek: week.Downloads}
		var month npmPointResponse
		if err := n.fetcher.GetJSON(ctx, fmt.Sprintf("%s/downloads/point/last-month/%s", n.baseURL, c.Identifier), nil, &month); err == nil {
			counts.LastMonth = month.Downloads
		}
		var day npmPointResponse
		if err := n.fetcher.GetJSON(ctx, fmt.Sprintf("%s/downloads/point/last-day/%s", n.baseURL, c.Identifier), nil, &day); err == nil {
			counts.LastDay = day.Downloads
		}

		downloads := signal.NewPackageDownloads(c.ServerName, "npm", c.Identifier, counts)
		if err := n.signals.SaveDownloads(ctx, downloads); err != nil {
			return stats, err
		}
		if err := n.signals.SaveStatus(ctx, signal.NewEnrichmentSuccess(c.ServerName, n.Name())); err != nil {
			return stats, err
		}
		stats.Enriched++
	}
	return stats, nil
}

// PyPIDownloads samples PyPI download counts per package via pypistats.
type PyPIDownloads struct {
	fetcher *fetch.Client
	signals persistence.SignalStore
	baseURL string
	pause   time.Duration
	logger  *log.Logger
}

// NewPyPIDownloads creates the PyPI downloads worker.
func NewPyPIDownloads(fetcher *fetch.Client, signals persistence.SignalStore, logger *log.Logger) *PyPIDownloads {
	return &PyPIDownloads{
		fetcher: fetcher,
		signals: signals,
		baseURL: pypiBaseURL,
		pause:   200 * time.Millisecond,
		logger:  logger,
	}
}

// WithBaseURL overrides the pypistats API root.
func (p *PyPIDownloads) WithBaseURL(u string) *PyPIDownloads {
	p.baseURL = u
	return p
}

// WithPause sets the delay between package fetches.
func (p *PyPIDownloads) WithPause(d time.Duration) *PyPIDownloads {
	p.pause = d
	return p
}

// Name implements Worker.
func (p *PyPIDownloads) Name() string { return "pypi" }

type pypiRecentResponse struct {
	Data struct {
		LastDay   int64 `json:"last_day"`
		LastWeek  int64 `json:"last_week"`
		LastMonth int64 `json:"last_month"`
	} `json:"data"`
}

// Run samples download counts for every stale PyPI package.
func (p *PyPIDownloads) Run(ctx context.Context) (Stats, error) {
	candidates, err := p.signals.PackageCandidates(ctx, p.Name(), "pypi", "pypi", signal.StalenessDownload)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for i, c := range candidates {
		if i > 0 {
			if err := pause(ctx, p.pause); err != nil {
				return stats, err
			}
		}

		var recent pypiRecentResponse
		endpoint := fmt.Sprintf("%s/packages/%s/recent", p.baseURL, c.Identifier)
		if err := p.fetcher.GetJSON(ctx, endpoint, nil, &recent); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			p.logger.WarnContext(ctx, "pypi downloads fetch failed",
				"server", c.ServerName, "package", c.Identifier, "error", err)
			if err := p.signals.SaveStatus(ctx, signal.NewEnrichmentFailure(c.ServerName, p.Name(), classifyMissingPackage(err))); err != nil {
				return stats, err
			}
			stats.Failed++
			continue
		}

		counts := signal.DownloadCounts{
			LastDay:   recent.Data.LastDay,
			LastWeek:  recent.Data.LastWeek,
			LastMonth: recent.Data.LastMonth,
		}
		downloads := signal.NewPackageDownloads(c.ServerName, "pypi", c.Identifier, counts)
		if err := p.signals.SaveDownloads(ctx, downloads); err != nil {
			return stats, err
		}
		if err := p.signals.SaveStatus(ctx, signal.NewEnrichmentSuccess(c.ServerName, p.Name())); err != nil {
			return stats, err
		}
		stats.Enriched++
	}
	return stats, nil
}

// DockerPulls samples cumulative pull counts for OCI packages from Docker
// Hub. Packages publish under registry type "oci" but their download rows
// are recorded under "docker", matching where the counts come from.
type DockerPulls struct {
	fetcher *fetch.Client
	signals persistence.SignalStore
	baseURL string
	pause   time.Duration
	logger  *log.Logger
}

// NewDockerPulls creates the Docker Hub pulls worker.
func NewDockerPulls(fetcher *fetch.Client, signals persistence.SignalStore, logger *log.Logger) *DockerPulls {
	return &DockerPulls{
		fetcher: fetcher,
		signals: signals,
		baseURL: dockerBaseURL,
		pause:   200 * time.Millisecond,
		logger:  logger,
	}
}

// WithBaseURL overrides the Docker Hub API root.
func (d *DockerPulls) WithBaseURL(u string) *DockerPulls {
	d.baseURL = u
	return d
}

// WithPause sets the delay between image fetches.
func (d *DockerPulls) WithPause(p time.Duration) *DockerPulls {
	d.pause = p
	return d
}

// Name implements Worker.
func (d *DockerPulls) Name() string { return "docker" }

type dockerRepoResponse struct {
	PullCount int64 `json:"pull_count"`
}

// splitImage splits an OCI identifier into Docker Hub namespace and
// repository, dropping any tag. Bare names live under the library
// namespace.
func splitImage(identifier string) (namespace, repo string) {
	name := strings.SplitN(identifier, ":", 2)[0]
	parts := strings.SplitN(name, "/", 2)
	if len(parts) == 1 {
		return "library", parts[0]
	}
	return parts[0], parts[1]
}

// Run samples pull counts for every stale OCI package.
func (d *DockerPulls) Run(ctx context.Context) (Stats, error) {
	candidates, err := d.signals.PackageCandidates(ctx, d.Name(), "oci", "docker", signal.StalenessDownload)
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

		namespace, repo := splitImage(c.Identifier)
		var resp dockerRepoResponse
		endpoint := fmt.Sprintf("%s/repositories/%s/%s", d.baseURL, namespace, repo)
		if err := d.fetcher.GetJSON(ctx, endpoint, nil, &resp); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			d.logger.WarnContext(ctx, "docker pulls fetch failed",
				"server", c.ServerName, "image", c.Identifier, "error", err)
			if err := d.signals.SaveStatus(ctx, signal.NewEnrichmentFailure(c.ServerName, d.Name(), classifyMissingPackage(err))); err != nil {
				return stats, err
			}
			stats.Failed++
			continue
		}

		counts := signal.DownloadCounts{Total: resp.PullCount}
		downloads := signal.NewPackageDownloads(c.ServerName, "docker", c.Identifier, counts)
		if err := d.signals.SaveDownloads(ctx, downloads); err != nil {
			return stats, err
		}
		if err := d.signals.SaveStatus(ctx, signal.NewEnrichmentSuccess(c.ServerName, d.Name())); err != nil {
			return stats, err
		}
		stats.Enriched++
	}
	return stats, nil
}
