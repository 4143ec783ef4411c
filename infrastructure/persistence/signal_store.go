package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/internal/database"
	"gorm.io/gorm/clause"
)

// SignalStore persists enrichment signals and per-source status rows.
type SignalStore struct {
	db database.Database
}

// NewSignalStore creates a SignalStore.
func NewSignalStore(db database.Database) SignalStore {
	return SignalStore{db: db}
}

// SaveGitHub upserts a GitHub metadata row.
func (s SignalStore) SaveGitHub(ctx context.Context, repo signal.GitHubRepo) error {
	model := GitHubSignalMapper{}.ToModel(repo)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save github signal: %w", err)
	}
	return nil
}

// GitHub returns the GitHub metadata of a server, if present.
func (s SignalStore) GitHub(ctx context.Context, serverName string) (signal.GitHubRepo, bool, error) {
	var model GitHubSignalModel
	result := s.db.Session(ctx).Where("server_name = ?", serverName).Limit(1).Find(&model)
	if result.Error != nil {
		return signal.GitHubRepo{}, false, fmt.Errorf("find github signal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return signal.GitHubRepo{}, false, nil
	}
	return GitHubSignalMapper{}.ToDomain(model), true, nil
}

// SaveDownloads upserts a package downloads sample.
func (s SignalStore) SaveDownloads(ctx context.Context, downloads signal.PackageDownloads) error {
	model := PackageDownloadsMapper{}.ToModel(downloads)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "server_name"}, {Name: "registry_type"}, {Name: "package_name"},
		},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save package downloads: %w", err)
	}
	return nil
}

// SaveDependency upserts a libraries.io dependents row.
func (s SignalStore) SaveDependency(ctx context.Context, dep signal.DependencySignal) error {
	model := DependencySignalMapper{}.ToModel(dep)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}, {Name: "package_name"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save dependency signal: %w", err)
	}
	return nil
}

// AllDependencies returns every dependency signal, for the backlink scorer.
func (s SignalStore) AllDependencies(ctx context.Context) ([]signal.DependencySignal, error) {
	var models []DependencySignalModel
	if err := s.db.Session(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list dependency signals: %w", err)
	}
	deps := make([]signal.DependencySignal, len(models))
	for i, m := range models {
		deps[i] = DependencySignalMapper{}.ToDomain(m)
	}
	return deps, nil
}

// SaveConfigReference upserts a code-search reference row. Zero counts are
// persisted so the search is not repeated.
func (s SignalStore) SaveConfigReference(ctx context.Context, ref signal.ConfigReference) error {
	model := ConfigReferenceMapper{}.ToModel(ref)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}, {Name: "config_type"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save config reference: %w", err)
	}
	return nil
}

// AllConfigReferences returns every config reference, for the backlink
// scorer.
func (s SignalStore) AllConfigReferences(ctx context.Context) ([]signal.ConfigReference, error) {
	var models []ConfigReferenceModel
	if err := s.db.Session(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list config references: %w", err)
	}
	refs := make([]signal.ConfigReference, len(models))
	for i, m := range models {
		refs[i] = ConfigReferenceMapper{}.ToDomain(m)
	}
	return refs, nil
}

// SaveCrossListing upserts a cross-directory listing.
func (s SignalStore) SaveCrossListing(ctx context.Context, listing signal.CrossListing) error {
	model := CrossListingMapper{}.ToModel(listing)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}, {Name: "registry_name"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save cross listing: %w", err)
	}
	return nil
}

// SaveServiceCost upserts the service cost analysis of a server.
func (s SignalStore) SaveServiceCost(ctx context.Context, cost signal.ServiceCost) error {
	model := ServiceCostMapper{}.ToModel(cost)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save service cost: %w", err)
	}
	return nil
}

// SaveStatus upserts an enrichment status row, carrying forward the retry
// count on repeated failures.
func (s SignalStore) SaveStatus(ctx context.Context, status signal.EnrichmentStatus) error {
	if status.Status() != signal.StatusSuccess {
		var previous EnrichmentStatusModel
		result := s.db.Session(ctx).
			Where("server_name = ? AND enrichment_type = ?", status.ServerName(), status.EnrichmentType()).
			Limit(1).Find(&previous)
		if result.Error != nil {
			return fmt.Errorf("find enrichment status: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			status = status.WithRetryCount(previous.RetryCount + 1)
		} else {
			status = status.WithRetryCount(1)
		}
	}

	model := EnrichmentStatusMapper{}.ToModel(status)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}, {Name: "enrichment_type"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save enrichment status: %w", err)
	}
	return nil
}

// ClearStatuses deletes enrichment status rows so every server is
// attempted again, permanent failures included. With types given, only
// the named enrichment types are cleared.
func (s SignalStore) ClearStatuses(ctx context.Context, types ...string) error {
	session := s.db.Session(ctx).Where("1 = 1")
	if len(types) > 0 {
		session = s.db.Session(ctx).Where("enrichment_type IN ?", types)
	}
	if err := session.Delete(&EnrichmentStatusModel{}).Error; err != nil {
		return fmt.Errorf("clear enrichment statuses: %w", err)
	}
	return nil
}

// RepoCandidate pairs a server with its repository URL for the GitHub
// metadata worker.
type RepoCandidate struct {
	ServerName    string
	RepositoryURL string
}

// RepoCandidates returns servers with a GitHub repository whose metadata is
// missing or older than the staleness window. Permanent failures are
// excluded.
func (s SignalStore) RepoCandidates(ctx context.Context, staleness time.Duration) ([]RepoCandidate, error) {
	cutoff := time.Now().UTC().Add(-staleness)
	var rows []RepoCandidate
	err := s.db.Session(ctx).Raw(`
		SELECT s.name AS server_name, s.repository_url
		FROM servers s
		LEFT JOIN enrichment_status es
			ON s.name = es.server_name AND es.enrichment_type = 'github'
		LEFT JOIN github_signals gh ON s.name = gh.server_name
		WHERE s.repository_url LIKE '%github.com%'
			AND (es.status IS NULL OR es.status != ?)
			AND (gh.server_name IS NULL OR gh.enriched_at < ?)
		ORDER BY s.name`, signal.StatusPermanentFailure, cutoff).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list repo candidates: %w", err)
	}
	return rows, nil
}

// PackageCandidate is one (server, package) pair due for a download-count
// fetch.
type PackageCandidate struct {
	ServerName string
	Identifier string
}

// PackageCandidates returns distinct (server, package) pairs of the given
// package registry whose download sample under downloadRegistry is missing
// or stale. The two registries differ for OCI images, which publish under
// registry type "oci" but sample downloads from Docker Hub.
func (s SignalStore) PackageCandidates(ctx context.Context, enrichmentType, packageRegistry, downloadRegistry string, staleness time.Duration) ([]PackageCandidate, error) {
	cutoff := time.Now().UTC().Add(-staleness)
	var rows []PackageCandidate
	err := s.db.Session(ctx).Raw(`
		SELECT DISTINCT p.server_name, p.identifier
		FROM server_packages p
		LEFT JOIN enrichment_status es
			ON p.server_name = es.server_name AND es.enrichment_type = ?
		LEFT JOIN package_downloads pd
			ON p.server_name = pd.server_name
			AND p.identifier = pd.package_name
			AND pd.registry_type = ?
		WHERE p.registry_type = ?
			AND (es.status IS NULL OR es.status != ?)
			AND (pd.server_name IS NULL OR pd.enriched_at < ?)
		ORDER BY p.server_name, p.identifier`,
		enrichmentType, downloadRegistry, packageRegistry,
		signal.StatusPermanentFailure, cutoff).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s package candidates: %w", enrichmentType, err)
	}
	return rows, nil
}

// DependentCandidate is one (server, package) pair due for a libraries.io
// dependents fetch.
type DependentCandidate struct {
	ServerName   string
	RegistryType string
	Identifier   string
}

// DependentCandidates returns npm and pypi packages whose dependents signal
// is missing or stale.
func (s SignalStore) DependentCandidates(ctx context.Context, staleness time.Duration) ([]DependentCandidate, error) {
	cutoff := time.Now().UTC().Add(-staleness)
	var rows []DependentCandidate
	err := s.db.Session(ctx).Raw(`
		SELECT DISTINCT p.server_name, p.registry_type, p.identifier
		FROM server_packages p
		LEFT JOIN enrichment_status es
			ON p.server_name = es.server_name AND es.enrichment_type = 'dependents'
		LEFT JOIN dependency_signals ds
			ON p.server_name = ds.server_name AND p.identifier = ds.package_name
		WHERE p.registry_type IN ('npm', 'pypi')
			AND (es.status IS NULL OR es.status != ?)
			AND (ds.server_name IS NULL OR ds.enriched_at < ?)
		ORDER BY p.server_name, p.identifier`,
		signal.StatusPermanentFailure, cutoff).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list dependent candidates: %w", err)
	}
	return rows, nil
}

// ConfigRefCandidate is one server due for a code search, with the term to
// search for and its own repository so self-references can be excluded.
type ConfigRefCandidate struct {
	ServerName    string
	RepositoryURL string
	SearchTerm    string
}

// ConfigRefCandidates returns servers whose code-search references are
// missing or stale, most-starred first so the scarce search quota goes to
// the servers most likely to be referenced.
func (s SignalStore) ConfigRefCandidates(ctx context.Context, staleness time.Duration) ([]ConfigRefCandidate, error) {
	cutoff := time.Now().UTC().Add(-staleness)
	var rows []ConfigRefCandidate
	err := s.db.Session(ctx).Raw(`
		SELECT
			s.name AS server_name,
			s.repository_url,
			COALESCE(
				(SELECT p.identifier FROM server_packages p
				 WHERE p.server_name = s.name
				 ORDER BY p.id LIMIT 1), s.name) AS search_term
		FROM servers s
		LEFT JOIN enrichment_status es
			ON s.name = es.server_name AND es.enrichment_type = 'config_refs'
		LEFT JOIN (
			SELECT server_name, MAX(enriched_at) AS enriched_at
			FROM config_references GROUP BY server_name
		) cr ON s.name = cr.server_name
		LEFT JOIN github_signals gh ON s.name = gh.server_name
		WHERE (es.status IS NULL OR es.status != ?)
			AND (cr.server_name IS NULL OR cr.enriched_at < ?)
		ORDER BY COALESCE(gh.stars, 0) DESC, s.name`,
		signal.StatusPermanentFailure, cutoff).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list config ref candidates: %w", err)
	}
	return rows, nil
}

// Candidates returns server names eligible for the given enrichment type:
// servers without a permanent failure whose signal row is missing or older
// than the staleness window.
func (s SignalStore) Candidates(ctx context.Context, enrichmentType, signalTable string, staleness time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-staleness)
	var names []string
	query := fmt.Sprintf(`
		SELECT s.name
		FROM servers s
		LEFT JOIN enrichment_status es
			ON s.name = es.server_name AND es.enrichment_type = ?
		LEFT JOIN %s sig ON s.name = sig.server_name
		WHERE (es.status IS NULL OR es.status != ?)
			AND (sig.server_name IS NULL OR sig.enriched_at < ?)
		GROUP BY s.name
		ORDER BY s.name`, signalTable)
	err := s.db.Session(ctx).Raw(query, enrichmentType, signal.StatusPermanentFailure, cutoff).Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("list %s candidates: %w", enrichmentType, err)
	}
	return names, nil
}

// SignalCounts returns the row count of every signal table, keyed by
// signal name.
func (s SignalStore) SignalCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for name, model := range map[string]any{
		"github":         &GitHubSignalModel{},
		"downloads":      &PackageDownloadsModel{},
		"dependents":     &DependencySignalModel{},
		"config_refs":    &ConfigReferenceModel{},
		"cross_listings": &CrossListingModel{},
		"service_costs":  &ServiceCostModel{},
	} {
		var n int64
		if err := s.db.Session(ctx).Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s signals: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}
