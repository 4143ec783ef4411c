package enrich

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

const glamaBaseURL = "https://glama.ai/api/mcp/v1"

// Glama walks the Glama directory and records cross-listings for servers
// that also appear there. Unlike the other workers it pages the whole
// directory once and matches entries back to known servers.
type Glama struct {
	fetcher *fetch.Client
	servers persistence.ServerStore
	signals persistence.SignalStore
	baseURL string
	pause   time.Duration
	logger  *log.Logger
}

// NewGlama creates the Glama cross-listing worker.
func NewGlama(fetcher *fetch.Client, servers persistence.ServerStore, signals persistence.SignalStore, logger *log.Logger) *Glama {
	return &Glama{
		fetcher: fetcher,
		servers: servers,
		signals: signals,
		baseURL: glamaBaseURL,
		pause:   500 * time.Millisecond,
		logger:  logger,
	}
}

// WithBaseURL overrides the Glama API root.
func (g *Glama) WithBaseURL(u string) *Glama {
	g.baseURL = u
	return g
}

// WithPause sets the delay between directory pages.
func (g *Glama) WithPause(d time.Duration) *Glama {
	g.pause = d
	return g
}

// Name implements Worker.
func (g *Glama) Name() string { return "glama" }

type glamaServer struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Slug       string          `json:"slug"`
	URL        string          `json:"url"`
	Attributes json.RawMessage `json:"attributes"`
	Repository *struct {
		URL string `json:"url"`
	} `json:"repository"`
	SPDXLicense *struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"spdxLicense"`
}

type glamaPage struct {
	Servers  []glamaServer `json:"servers"`
	PageInfo struct {
		EndCursor   string `json:"endCursor"`
		HasNextPage bool   `json:"hasNextPage"`
	} `json:"pageInfo"`
}

// matcher resolves a Glama entry to a known server by name, slug or
// repository URL.
type matcher struct {
	byName  map[string]string
	byRepo  map[string]string
	entries []persistence.ServerRepo
}

func newMatcher(rows []persistence.ServerRepo) matcher {
	m := matcher{
		byName:  make(map[string]string, len(rows)),
		byRepo:  make(map[string]string, len(rows)),
		entries: rows,
	}
	for _, r := range rows {
		m.byName[strings.ToLower(r.Name)] = r.Name
		if r.RepositoryURL != "" {
			m.byRepo[signal.NormalizeRepoURL(r.RepositoryURL)] = r.Name
		}
	}
	return m
}

func (m matcher) match(entry glamaServer) (string, bool) {
	if name, ok := m.byName[strings.ToLower(entry.Name)]; ok {
		return name, true
	}
	if name, ok := m.byName[strings.ToLower(entry.Slug)]; ok {
		return name, true
	}
	if entry.Repository == nil || entry.Repository.URL == "" {
		return "", false
	}
	repo := signal.NormalizeRepoURL(entry.Repository.URL)
	if name, ok := m.byRepo[repo]; ok {
		return name, true
	}
	// Directory listings sometimes carry subgroup paths or miss them; a
	// suffix match either way still identifies the repository.
	for _, r := range m.entries {
		if r.RepositoryURL == "" {
			continue
		}
		ours := signal.NormalizeRepoURL(r.RepositoryURL)
		if strings.HasSuffix(repo, ours) || strings.HasSuffix(ours, repo) {
			return r.Name, true
		}
	}
	return "", false
}

// Run walks the directory and saves a cross-listing for every matched
// server. Unmatched directory entries are counted as skipped.
func (g *Glama) Run(ctx context.Context) (Stats, error) {
	rows, err := g.servers.NamesAndRepos(ctx)
	if err != nil {
		return Stats{}, err
	}
	m := newMatcher(rows)

	var stats Stats
	cursor := ""
	for {
		params := url.Values{}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		endpoint := g.baseURL + "/servers"
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}

		var page glamaPage
		if err := g.fetcher.GetJSON(ctx, endpoint, nil, &page); err != nil {
			return stats, err
		}

		for _, entry := range page.Servers {
			serverName, ok := m.match(entry)
			if !ok {
				stats.Skipped++
				continue
			}

			listing := signal.NewCrossListing(serverName, g.Name(), entry.ID, entry.URL, string(entry.Attributes))
			if entry.SPDXLicense != nil {
				listing = listing.WithLicense(entry.SPDXLicense.Name, entry.SPDXLicense.URL)
			}
			if err := g.signals.SaveCrossListing(ctx, listing); err != nil {
				return stats, err
			}
			if err := g.signals.SaveStatus(ctx, signal.NewEnrichmentSuccess(serverName, g.Name())); err != nil {
				return stats, err
			}
			stats.Enriched++
		}

		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" || len(page.Servers) == 0 {
			return stats, nil
		}
		cursor = page.PageInfo.EndCursor
		if err := pause(ctx, g.pause); err != nil {
			return stats, err
		}
	}
}
