// Package registry ingests the upstream MCP registry: cursor-paged listing,
// entry parsing, and persistence through the server store.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	domain "github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// DefaultBaseURL is the upstream registry API root.
const DefaultBaseURL = "https://registry.modelcontextprotocol.io/v0.1"

// PageLimit is the maximum page size the registry allows.
const PageLimit = 100

// Client pages the upstream registry.
type Client struct {
	baseURL string
	fetcher *fetch.Client
	logger  *log.Logger
}

// NewClient creates a registry Client.
func NewClient(baseURL string, fetcher *fetch.Client, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, fetcher: fetcher, logger: logger}
}

// listResponse is one registry page.
type listResponse struct {
	Servers  []json.RawMessage `json:"servers"`
	Metadata struct {
		NextCursor string `json:"nextCursor"`
	} `json:"metadata"`
}

// serverEntry is the registry's envelope around a server record.
type serverEntry struct {
	Server serverDetail   `json:"server"`
	Meta   map[string]any `json:"_meta"`
}

type serverDetail struct {
	Schema      string `json:"$schema"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	WebsiteURL  string `json:"websiteUrl"`
	Repository  struct {
		URL    string `json:"url"`
		Source string `json:"source"`
	} `json:"repository"`
	Icons    []iconDetail    `json:"icons"`
	Packages []packageDetail `json:"packages"`
	Remotes  []remoteDetail  `json:"remotes"`
}

type iconDetail struct {
	Src      string   `json:"src"`
	MimeType string   `json:"mimeType"`
	Theme    string   `json:"theme"`
	Sizes    []string `json:"sizes"`
}

type packageDetail struct {
	RegistryType string `json:"registryType"`
	Identifier   string `json:"identifier"`
	Version      string `json:"version"`
	RuntimeHint  string `json:"runtimeHint"`
	FileSHA256   string `json:"fileSha256"`
	Transport    struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"transport"`
	EnvironmentVariables []envVarDetail `json:"environmentVariables"`
}

type envVarDetail struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsRequired  bool     `json:"isRequired"`
	IsSecret    bool     `json:"isSecret"`
	Format      string   `json:"format"`
	Default     string   `json:"default"`
	Choices     []string `json:"choices"`
}

type remoteDetail struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Headers []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
}

// ListOptions narrow a registry listing.
type ListOptions struct {
	Search  string
	Version string
}

// Walk pages the registry and calls fn for every raw server entry until the
// cursor runs out or fn fails.
func (c *Client) Walk(ctx context.Context, opts ListOptions, fn func(raw json.RawMessage) error) error {
	cursor := ""
	total := 0
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(PageLimit))
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		if opts.Search != "" {
			params.Set("search", opts.Search)
		}
		if opts.Version != "" {
			params.Set("version", opts.Version)
		}

		var page listResponse
		endpoint := c.baseURL + "/servers?" + params.Encode()
		err := c.fetcher.GetJSON(ctx, endpoint, map[string]string{"Accept": "application/json"}, &page)
		if err != nil {
			return fmt.Errorf("list servers: %w", err)
		}

		for _, raw := range page.Servers {
			if err := fn(raw); err != nil {
				return err
			}
		}
		total += len(page.Servers)
		c.logger.InfoContext(ctx, "fetched registry page", "total", total)

		cursor = page.Metadata.NextCursor
		if cursor == "" || len(page.Servers) == 0 {
			return nil
		}
	}
}

// ParseEntry converts a raw registry entry into a persistable record. The
// raw JSON is preserved verbatim on the server row.
func ParseEntry(raw json.RawMessage) (persistence.ServerRecord, error) {
	var entry serverEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return persistence.ServerRecord{}, fmt.Errorf("decode server entry: %w", err)
	}
	if entry.Server.Name == "" {
		return persistence.ServerRecord{}, fmt.Errorf("server entry without a name")
	}

	name := entry.Server.Name
	official := officialMeta(entry.Meta)

	opts := []domain.ServerOption{
		domain.WithSchemaURL(entry.Server.Schema),
		domain.WithRepository(entry.Server.Repository.URL, entry.Server.Repository.Source),
		domain.WithWebsiteURL(entry.Server.WebsiteURL),
		domain.WithLatest(official.isLatest),
		domain.WithStatus(official.status),
		domain.WithRawJSON(string(raw)),
		domain.WithExtractedAt(time.Now().UTC()),
	}
	if official.publishedAt != nil {
		opts = append(opts, domain.WithPublishedAt(official.publishedAt))
	}
	if official.updatedAt != nil {
		opts = append(opts, domain.WithUpdatedAt(official.updatedAt))
	}

	record := persistence.ServerRecord{
		Server: domain.NewServerWithOptions(name, entry.Server.Description, entry.Server.Version, opts...),
	}

	for _, icon := range entry.Server.Icons {
		record.Icons = append(record.Icons,
			domain.NewIcon(name, icon.Src, icon.MimeType, icon.Theme, icon.Sizes))
	}

	for _, pkg := range entry.Server.Packages {
		rawPkg, _ := json.Marshal(pkg)
		p := domain.NewPackage(name, pkg.RegistryType, pkg.Identifier, pkg.Version, pkg.Transport.Type).
			WithTransportURL(pkg.Transport.URL).
			WithRuntimeHint(pkg.RuntimeHint).
			WithFileSHA256(pkg.FileSHA256).
			WithRawJSON(string(rawPkg))
		record.Packages = append(record.Packages, p)

		for _, ev := range pkg.EnvironmentVariables {
			v := domain.NewEnvVar(name, ev.Name, ev.Description, ev.IsRequired, ev.IsSecret).
				WithFormat(ev.Format).
				WithDefaultValue(ev.Default)
			if len(ev.Choices) > 0 {
				v = v.WithChoices(ev.Choices)
			}
			record.EnvVars = append(record.EnvVars, v)
		}
	}

	for _, remote := range entry.Server.Remotes {
		var headers map[string]string
		if len(remote.Headers) > 0 {
			headers = make(map[string]string, len(remote.Headers))
			for _, h := range remote.Headers {
				headers[h.Name] = h.Value
			}
		}
		record.Remotes = append(record.Remotes,
			domain.NewRemote(name, remote.Type, remote.URL, headers))
	}

	return record, nil
}

// official is the registry-operator metadata attached under _meta.
type official struct {
	status      string
	isLatest    bool
	publishedAt *time.Time
	updatedAt   *time.Time
}

func officialMeta(meta map[string]any) official {
	out := official{}
	nested, ok := meta["io.modelcontextprotocol.registry/official"].(map[string]any)
	if !ok {
		return out
	}
	if s, ok := nested["status"].(string); ok {
		out.status = s
	}
	if b, ok := nested["isLatest"].(bool); ok {
		out.isLatest = b
	}
	out.publishedAt = parseTime(nested["publishedAt"])
	out.updatedAt = parseTime(nested["updatedAt"])
	return out
}

func parseTime(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
