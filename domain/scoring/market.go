package scoring

import (
	"math"
	"strings"
	"time"
)

// Pillar weights of the composite marketplace rank.
const (
	WeightUsage      = 0.45
	WeightReputation = 0.30
	WeightActivity   = 0.15
	WeightReach      = 0.10

	BonusZeroAuth = 0.05
	BonusVerified = 0.10
)

// TrustedOrgs are repository owners whose servers get the verified bonus.
var TrustedOrgs = map[string]bool{
	"modelcontextprotocol": true,
	"anthropic":            true,
	"google":               true,
	"openai":               true,
	"meta-llama":           true,
	"microsoft":            true,
	"facebook":             true,
	"docker":               true,
	"hashicorp":            true,
	"aws":                  true,
	"cloudflare":           true,
	"vercel":               true,
	"supabase":             true,
	"mongodb":              true,
	"pinecone":             true,
	"elastic":              true,
}

// IsTrustedOrg reports whether the repository owner is in the trusted set.
// Matching is case-insensitive.
func IsTrustedOrg(owner string) bool {
	return TrustedOrgs[strings.ToLower(owner)]
}

// UsageRaw is the pre-normalization usage signal from a raw backlink score.
func UsageRaw(rawBacklink float64) float64 {
	return math.Log1p(math.Max(0, rawBacklink))
}

// ReputationRaw is the pre-normalization reputation signal from GitHub
// counts.
func ReputationRaw(stars, forks int) float64 {
	return math.Log10(1+math.Max(0, float64(stars))) +
		math.Log10(1+math.Max(0, float64(forks)))
}

// Activity maps the last-push timestamp into [0, 1] with exponential decay.
// Missing timestamps score 0.5.
func Activity(pushedAt *time.Time, now time.Time) float64 {
	if pushedAt == nil {
		return 0.5
	}
	years := now.Sub(*pushedAt).Hours() / (24 * 365.25)
	return math.Exp(-0.5 * math.Max(0, years))
}

// ReachRaw is the pre-normalization reach signal from total weekly
// downloads across a server's packages.
func ReachRaw(weeklyDownloads int64) float64 {
	return math.Log10(1 + math.Max(0, float64(weeklyDownloads)))
}

// NormalizePillar maps a raw pillar value into [0, 1] against the corpus
// q99.
func NormalizePillar(raw, q99 float64) float64 {
	if raw <= 0 {
		return 0
	}
	return math.Min(1, raw/q99)
}

// Composite combines the four normalized pillars and the bonuses into the
// final rank, clamped to [0, 1].
func Composite(usage, reputation, activity, reach float64, zeroAuth, verified bool) float64 {
	total := WeightUsage*usage + WeightReputation*reputation +
		WeightActivity*activity + WeightReach*reach
	if zeroAuth {
		total += BonusZeroAuth
	}
	if verified {
		total += BonusVerified
	}
	return math.Min(1, math.Max(0, total))
}

// MarketRanking is the composite marketplace rank of one server.
type MarketRanking struct {
	serverName string
	usage      float64
	reputation float64
	activity   float64
	reach      float64
	total      float64
	zeroAuth   bool
	verified   bool
	computedAt time.Time
}

// NewMarketRanking creates a MarketRanking from normalized pillars.
func NewMarketRanking(serverName string, usage, reputation, activity, reach float64, zeroAuth, verified bool) MarketRanking {
	return MarketRanking{
		serverName: serverName,
		usage:      usage,
		reputation: reputation,
		activity:   activity,
		reach:      reach,
		total:      Composite(usage, reputation, activity, reach, zeroAuth, verified),
		zeroAuth:   zeroAuth,
		verified:   verified,
		computedAt: time.Now().UTC(),
	}
}

// ServerName returns the server name.
func (m MarketRanking) ServerName() string { return m.serverName }

// Usage returns the normalized usage pillar.
func (m MarketRanking) Usage() float64 { return m.usage }

// Reputation returns the normalized reputation pillar.
func (m MarketRanking) Reputation() float64 { return m.reputation }

// Activity returns the activity pillar.
func (m MarketRanking) Activity() float64 { return m.activity }

// Reach returns the normalized reach pillar.
func (m MarketRanking) Reach() float64 { return m.reach }

// Total returns the final composite rank in [0, 1].
func (m MarketRanking) Total() float64 { return m.total }

// ZeroAuth reports whether the server declares no secret env vars.
func (m MarketRanking) ZeroAuth() bool { return m.zeroAuth }

// Verified reports whether the repo owner is a trusted org.
func (m MarketRanking) Verified() bool { return m.verified }

// ComputedAt returns when the rank was computed.
func (m MarketRanking) ComputedAt() time.Time { return m.computedAt }
