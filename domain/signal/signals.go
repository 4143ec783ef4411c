package signal

import (
	"regexp"
	"strings"
	"time"
)

// Staleness windows per enrichment source. Rows older than the window are
// re-fetched on the next enrichment round.
const (
	StalenessRepo     = 7 * 24 * time.Hour
	StalenessDownload = 24 * time.Hour
)

var githubRepoPattern = regexp.MustCompile(`github\.com[/:]([^/]+)/([^/\.]+)`)

// ParseGitHubRepo extracts owner and repo from a GitHub URL in any common
// form (https, ssh, with or without .git). Returns ok=false when the URL
// does not reference github.com.
func ParseGitHubRepo(url string) (owner, repo string, ok bool) {
	m := githubRepoPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// GitHubRepo is repository metadata fetched from the GitHub API.
type GitHubRepo struct {
	serverName    string
	owner         string
	repo          string
	stars         int
	forks         int
	openIssues    int
	watchers      int
	subscribers   int
	language      string
	license       string
	topics        []string
	archived      bool
	fork          bool
	defaultBranch string
	pushedAt      *time.Time
	repoCreatedAt *time.Time
	enrichedAt    time.Time
}

// NewGitHubRepo creates a GitHubRepo.
func NewGitHubRepo(serverName, owner, repo string) GitHubRepo {
	return GitHubRepo{
		serverName: serverName,
		owner:      owner,
		repo:       repo,
		enrichedAt: time.Now().UTC(),
	}
}

// ServerName returns the server name.
func (g GitHubRepo) ServerName() string { return g.serverName }

// Owner returns the repository owner.
func (g GitHubRepo) Owner() string { return g.owner }

// Repo returns the repository name.
func (g GitHubRepo) Repo() string { return g.repo }

// FullName returns owner/repo.
func (g GitHubRepo) FullName() string { return g.owner + "/" + g.repo }

// Stars returns the stargazer count.
func (g GitHubRepo) Stars() int { return g.stars }

// Forks returns the fork count.
func (g GitHubRepo) Forks() int { return g.forks }

// OpenIssues returns the open issue count.
func (g GitHubRepo) OpenIssues() int { return g.openIssues }

// Watchers returns the watcher count.
func (g GitHubRepo) Watchers() int { return g.watchers }

// Subscribers returns the subscriber count.
func (g GitHubRepo) Subscribers() int { return g.subscribers }

// Language returns the primary language.
func (g GitHubRepo) Language() string { return g.language }

// License returns the SPDX license identifier, if any.
func (g GitHubRepo) License() string { return g.license }

// Topics returns the repository topics.
func (g GitHubRepo) Topics() []string {
	copied := make([]string, len(g.topics))
	copy(copied, g.topics)
	return copied
}

// Archived reports whether the repository is archived.
func (g GitHubRepo) Archived() bool { return g.archived }

// Fork reports whether the repository is a fork.
func (g GitHubRepo) Fork() bool { return g.fork }

// DefaultBranch returns the default branch name.
func (g GitHubRepo) DefaultBranch() string { return g.defaultBranch }

// PushedAt returns the last push timestamp.
func (g GitHubRepo) PushedAt() *time.Time { return g.pushedAt }

// RepoCreatedAt returns the repository creation timestamp.
func (g GitHubRepo) RepoCreatedAt() *time.Time { return g.repoCreatedAt }

// EnrichedAt returns when the row was fetched.
func (g GitHubRepo) EnrichedAt() time.Time { return g.enrichedAt }

// GitHubRepoOption mutates a GitHubRepo during construction.
type GitHubRepoOption func(*GitHubRepo)

// WithCounts sets stars, forks, open issues and watchers.
func WithCounts(stars, forks, openIssues, watchers int) GitHubRepoOption {
	return func(g *GitHubRepo) {
		g.stars = stars
		g.forks = forks
		g.openIssues = openIssues
		g.watchers = watchers
	}
}

// WithSubscribers sets the subscriber count.
func WithSubscribers(subscribers int) GitHubRepoOption {
	return func(g *GitHubRepo) { g.subscribers = subscribers }
}

// WithRepoDetails sets language, license, topics and default branch.
func WithRepoDetails(language, license string, topics []string, defaultBranch string) GitHubRepoOption {
	return func(g *GitHubRepo) {
		g.language = language
		g.license = license
		g.topics = make([]string, len(topics))
		copy(g.topics, topics)
		g.defaultBranch = defaultBranch
	}
}

// WithFlags sets the archived and fork flags.
func WithFlags(archived, fork bool) GitHubRepoOption {
	return func(g *GitHubRepo) {
		g.archived = archived
		g.fork = fork
	}
}

// WithTimestamps sets pushed-at and created-at.
func WithTimestamps(pushedAt, createdAt *time.Time) GitHubRepoOption {
	return func(g *GitHubRepo) {
		g.pushedAt = pushedAt
		g.repoCreatedAt = createdAt
	}
}

// WithEnrichedAt sets the fetch timestamp.
func WithEnrichedAt(at time.Time) GitHubRepoOption {
	return func(g *GitHubRepo) { g.enrichedAt = at }
}

// NewGitHubRepoWithOptions creates a GitHubRepo applying the given options.
func NewGitHubRepoWithOptions(serverName, owner, repo string, opts ...GitHubRepoOption) GitHubRepo {
	g := NewGitHubRepo(serverName, owner, repo)
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// DownloadCounts are the per-window download counters of one package.
// Registries report different windows; unknown windows stay zero.
type DownloadCounts struct {
	LastDay   int64
	LastWeek  int64
	LastMonth int64
	Total     int64
}

// PackageDownloads is a download-count sample from a package registry,
// one row per (server, registry, package).
type PackageDownloads struct {
	serverName   string
	registryType string
	packageName  string
	counts       DownloadCounts
	enrichedAt   time.Time
}

// NewPackageDownloads creates a PackageDownloads sample.
func NewPackageDownloads(serverName, registryType, packageName string, counts DownloadCounts) PackageDownloads {
	return PackageDownloads{
		serverName:   serverName,
		registryType: registryType,
		packageName:  packageName,
		counts:       counts,
		enrichedAt:   time.Now().UTC(),
	}
}

// ServerName returns the server name.
func (p PackageDownloads) ServerName() string { return p.serverName }

// RegistryType returns the package registry.
func (p PackageDownloads) RegistryType() string { return p.registryType }

// PackageName returns the package identifier.
func (p PackageDownloads) PackageName() string { return p.packageName }

// Counts returns the per-window counters.
func (p PackageDownloads) Counts() DownloadCounts { return p.counts }

// EnrichedAt returns when the sample was fetched.
func (p PackageDownloads) EnrichedAt() time.Time { return p.enrichedAt }

// DependencySignal is a dependents count from libraries.io.
type DependencySignal struct {
	serverName      string
	platform        string
	identifier      string
	dependentsCount int
	dependentRepos  int
	rank            int
	enrichedAt      time.Time
}

// NewDependencySignal creates a DependencySignal.
func NewDependencySignal(serverName, platform, identifier string, dependents, repos, rank int) DependencySignal {
	return DependencySignal{
		serverName:      serverName,
		platform:        platform,
		identifier:      identifier,
		dependentsCount: dependents,
		dependentRepos:  repos,
		rank:            rank,
		enrichedAt:      time.Now().UTC(),
	}
}

// ServerName returns the server name.
func (d DependencySignal) ServerName() string { return d.serverName }

// Platform returns the libraries.io platform (NPM, Pypi).
func (d DependencySignal) Platform() string { return d.platform }

// Identifier returns the package identifier.
func (d DependencySignal) Identifier() string { return d.identifier }

// DependentsCount returns the number of dependent packages.
func (d DependencySignal) DependentsCount() int { return d.dependentsCount }

// DependentRepos returns the number of dependent repositories.
func (d DependencySignal) DependentRepos() int { return d.dependentRepos }

// Rank returns the libraries.io SourceRank.
func (d DependencySignal) Rank() int { return d.rank }

// EnrichedAt returns when the signal was fetched.
func (d DependencySignal) EnrichedAt() time.Time { return d.enrichedAt }

// CrossListing records that a server also appears in another directory.
type CrossListing struct {
	serverName   string
	registryName string
	registryID   string
	registryURL  string
	attributes   string
	licenseName  string
	licenseURL   string
	enrichedAt   time.Time
}

// NewCrossListing creates a CrossListing.
func NewCrossListing(serverName, registryName, registryID, registryURL, attributes string) CrossListing {
	return CrossListing{
		serverName:   serverName,
		registryName: registryName,
		registryID:   registryID,
		registryURL:  registryURL,
		attributes:   attributes,
		enrichedAt:   time.Now().UTC(),
	}
}

// ServerName returns the server name.
func (c CrossListing) ServerName() string { return c.serverName }

// RegistryName returns the external directory name (glama).
func (c CrossListing) RegistryName() string { return c.registryName }

// RegistryID returns the directory's identifier for the server.
func (c CrossListing) RegistryID() string { return c.registryID }

// RegistryURL returns the listing URL.
func (c CrossListing) RegistryURL() string { return c.registryURL }

// Attributes returns directory-specific attributes as raw JSON.
func (c CrossListing) Attributes() string { return c.attributes }

// LicenseName returns the license as reported by the directory.
func (c CrossListing) LicenseName() string { return c.licenseName }

// LicenseURL returns the license URL as reported by the directory.
func (c CrossListing) LicenseURL() string { return c.licenseURL }

// EnrichedAt returns when the listing was matched.
func (c CrossListing) EnrichedAt() time.Time { return c.enrichedAt }

// WithLicense returns a copy with the license fields set.
func (c CrossListing) WithLicense(name, url string) CrossListing {
	c.licenseName = name
	c.licenseURL = url
	return c
}

// ConfigReference is a code-search count of repositories that reference a
// server in a known client configuration file. One row per
// (server, config type), including zero counts.
type ConfigReference struct {
	serverName  string
	searchTerm  string
	configType  string
	refCount    int
	sampleRepos []string
	enrichedAt  time.Time
}

// NewConfigReference creates a ConfigReference.
func NewConfigReference(serverName, searchTerm, configType string, refCount int, sampleRepos []string) ConfigReference {
	copied := make([]string, len(sampleRepos))
	copy(copied, sampleRepos)
	return ConfigReference{
		serverName:  serverName,
		searchTerm:  searchTerm,
		configType:  configType,
		refCount:    refCount,
		sampleRepos: copied,
		enrichedAt:  time.Now().UTC(),
	}
}

// ServerName returns the server name.
func (c ConfigReference) ServerName() string { return c.serverName }

// SearchTerm returns the term the code search ran with.
func (c ConfigReference) SearchTerm() string { return c.searchTerm }

// ConfigType returns the configuration file name searched in.
func (c ConfigReference) ConfigType() string { return c.configType }

// RefCount returns the number of referencing repositories.
func (c ConfigReference) RefCount() int { return c.refCount }

// SampleRepos returns up to five sample repository full names.
func (c ConfigReference) SampleRepos() []string {
	copied := make([]string, len(c.sampleRepos))
	copy(copied, c.sampleRepos)
	return copied
}

// EnrichedAt returns when the search ran.
func (c ConfigReference) EnrichedAt() time.Time { return c.enrichedAt }

// NormalizeRepoURL lowercases a repository URL and strips the scheme,
// trailing slash and .git suffix so listings from different directories
// can be compared.
func NormalizeRepoURL(url string) string {
	u := strings.ToLower(strings.TrimSpace(url))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, ".git")
	return u
}
