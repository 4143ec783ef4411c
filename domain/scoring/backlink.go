// Package scoring holds the ranking domain: backlink edge scores over the
// referencer graph and the composite marketplace rank.
package scoring

import (
	"math"
	"sort"
	"time"
)

// Backlink tiers, ordered by strength of the usage signal.
const (
	TierConfig     = "tier1_config"
	TierDependency = "tier2_dependency"
	TierDeployment = "tier3_deployment"
	TierCurated    = "tier4_curated"
	TierMention    = "tier5_mention"

	// TierMetadataCache marks synthetic edges that only carry referencer
	// repo metadata, attached to the CacheServerName placeholder.
	TierMetadataCache = "metadata_cache"
)

// CacheServerName owns the synthetic metadata-cache edges.
const CacheServerName = "__cache__"

// TierWeights maps each tier to its fixed weight.
var TierWeights = map[string]float64{
	TierConfig:     1.0,
	TierDependency: 0.8,
	TierDeployment: 0.6,
	TierCurated:    0.3,
	TierMention:    0.1,
}

// RepoMeta is the referencer repository metadata an edge score is computed
// from.
type RepoMeta struct {
	Stars    int
	PushedAt *time.Time
	Archived bool
	Fork     bool
}

// EdgeScore computes the weighted score of one backlink edge at the given
// reference time. Unknown push dates fall back to a recency of 0.5.
func EdgeScore(tier string, meta RepoMeta, now time.Time) float64 {
	weight, ok := TierWeights[tier]
	if !ok {
		return 0
	}

	starFactor := 1 + math.Log1p(math.Max(0, float64(meta.Stars)))

	recency := 0.5
	if meta.PushedAt != nil {
		years := now.Sub(*meta.PushedAt).Hours() / (24 * 365.25)
		recency = math.Exp(-0.5 * math.Max(0, years))
	}

	quality := 1.0
	if meta.Archived {
		quality *= 0.2
	}
	if meta.Fork {
		quality *= 0.5
	}

	return weight * starFactor * recency * quality
}

// DependencyContribution computes the synthetic tier2 contribution from a
// dependents count and a dependent-repository count.
func DependencyContribution(dependents, dependentRepos int) float64 {
	return TierWeights[TierDependency] *
		math.Log1p(math.Max(0, float64(dependents))) *
		math.Sqrt(1+float64(dependentRepos)/100)
}

// Q99 returns the 99th-percentile value of the given samples by the
// sorted-index rule, clamped to at least 1e-6. Empty input yields 1.
func Q99(values []float64) float64 {
	if len(values) == 0 {
		return 1.0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return math.Max(sorted[idx], 1e-6)
}

// NormalizeRaw maps a raw backlink score into [0, 1] against the corpus
// q99 of log1p(raw) values. Zero raw scores stay zero.
func NormalizeRaw(raw, q99 float64) float64 {
	if raw <= 0 {
		return 0
	}
	return math.Min(1, math.Log1p(raw)/q99)
}

// BacklinkEdge is one scored reference from an external repository to a
// server.
type BacklinkEdge struct {
	serverName     string
	referencerRepo string
	tier           string
	tierWeight     float64
	repoStars      *int
	repoPushedAt   *time.Time
	isArchived     bool
	isFork         bool
	edgeScore      float64
}

// NewBacklinkEdge creates a scored BacklinkEdge.
func NewBacklinkEdge(serverName, referencerRepo, tier string, meta RepoMeta, now time.Time) BacklinkEdge {
	stars := meta.Stars
	return BacklinkEdge{
		serverName:     serverName,
		referencerRepo: referencerRepo,
		tier:           tier,
		tierWeight:     TierWeights[tier],
		repoStars:      &stars,
		repoPushedAt:   meta.PushedAt,
		isArchived:     meta.Archived,
		isFork:         meta.Fork,
		edgeScore:      EdgeScore(tier, meta, now),
	}
}

// NewPendingEdge creates an edge whose referencer metadata has not been
// fetched yet. The score stays zero until the metadata is patched in.
func NewPendingEdge(serverName, referencerRepo, tier string) BacklinkEdge {
	return BacklinkEdge{
		serverName:     serverName,
		referencerRepo: referencerRepo,
		tier:           tier,
		tierWeight:     TierWeights[tier],
	}
}

// RestoreBacklinkEdge rebuilds a BacklinkEdge from persisted state without
// recomputing the score.
func RestoreBacklinkEdge(serverName, referencerRepo, tier string, tierWeight float64, meta RepoMeta, score float64) BacklinkEdge {
	stars := meta.Stars
	return BacklinkEdge{
		serverName:     serverName,
		referencerRepo: referencerRepo,
		tier:           tier,
		tierWeight:     tierWeight,
		repoStars:      &stars,
		repoPushedAt:   meta.PushedAt,
		isArchived:     meta.Archived,
		isFork:         meta.Fork,
		edgeScore:      score,
	}
}

// NewCacheEdge creates a synthetic metadata-cache edge for a referencer
// repository.
func NewCacheEdge(referencerRepo string, meta RepoMeta) BacklinkEdge {
	stars := meta.Stars
	return BacklinkEdge{
		serverName:     CacheServerName,
		referencerRepo: referencerRepo,
		tier:           TierMetadataCache,
		repoStars:      &stars,
		repoPushedAt:   meta.PushedAt,
		isArchived:     meta.Archived,
		isFork:         meta.Fork,
	}
}

// ServerName returns the referenced server, or CacheServerName for
// synthetic cache rows.
func (e BacklinkEdge) ServerName() string { return e.serverName }

// ReferencerRepo returns the owner/repo of the referencing repository.
func (e BacklinkEdge) ReferencerRepo() string { return e.referencerRepo }

// Tier returns the backlink tier.
func (e BacklinkEdge) Tier() string { return e.tier }

// TierWeight returns the fixed weight of the tier.
func (e BacklinkEdge) TierWeight() float64 { return e.tierWeight }

// RepoStars returns the referencer star count, if known.
func (e BacklinkEdge) RepoStars() *int { return e.repoStars }

// RepoPushedAt returns the referencer last-push timestamp, if known.
func (e BacklinkEdge) RepoPushedAt() *time.Time { return e.repoPushedAt }

// IsArchived reports whether the referencer is archived.
func (e BacklinkEdge) IsArchived() bool { return e.isArchived }

// IsFork reports whether the referencer is a fork.
func (e BacklinkEdge) IsFork() bool { return e.isFork }

// Score returns the computed edge score.
func (e BacklinkEdge) Score() float64 { return e.edgeScore }

// Meta returns the referencer metadata carried by the edge.
func (e BacklinkEdge) Meta() RepoMeta {
	stars := 0
	if e.repoStars != nil {
		stars = *e.repoStars
	}
	return RepoMeta{
		Stars:    stars,
		PushedAt: e.repoPushedAt,
		Archived: e.isArchived,
		Fork:     e.isFork,
	}
}

// BacklinkScore is the aggregated backlink result for one server.
type BacklinkScore struct {
	serverName      string
	rawScore        float64
	normalizedScore float64
	tierScores      map[string]float64
	uniqueRepos     int
	computedAt      time.Time
}

// NewBacklinkScore creates a BacklinkScore.
func NewBacklinkScore(serverName string, raw, normalized float64, tierScores map[string]float64, uniqueRepos int) BacklinkScore {
	copied := make(map[string]float64, len(tierScores))
	for k, v := range tierScores {
		copied[k] = v
	}
	return BacklinkScore{
		serverName:      serverName,
		rawScore:        raw,
		normalizedScore: normalized,
		tierScores:      copied,
		uniqueRepos:     uniqueRepos,
		computedAt:      time.Now().UTC(),
	}
}

// ServerName returns the server name.
func (s BacklinkScore) ServerName() string { return s.serverName }

// Raw returns the unnormalized sum of tier contributions.
func (s BacklinkScore) Raw() float64 { return s.rawScore }

// Normalized returns the corpus-normalized score in [0, 1].
func (s BacklinkScore) Normalized() float64 { return s.normalizedScore }

// TierScore returns the contribution of one tier.
func (s BacklinkScore) TierScore(tier string) float64 { return s.tierScores[tier] }

// UniqueRepos returns the count of distinct referencing repositories.
func (s BacklinkScore) UniqueRepos() int { return s.uniqueRepos }

// ComputedAt returns when the score was computed.
func (s BacklinkScore) ComputedAt() time.Time { return s.computedAt }
