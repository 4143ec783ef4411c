package scoring_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wisplabs/wisp/domain/scoring"
)

func TestCompositeSingletonCohort(t *testing.T) {
	// A single server with stars=100, forks=10, fresh push, no backlinks
	// and no downloads normalizes its own reputation cohort to 1.
	now := time.Now().UTC()
	repRaw := scoring.ReputationRaw(100, 10)
	q99 := scoring.Q99([]float64{repRaw})
	rep := scoring.NormalizePillar(repRaw, q99)
	activity := scoring.Activity(&now, now)

	assert.InDelta(t, 1.0, rep, 1e-9)
	assert.InDelta(t, 1.0, activity, 1e-9)

	total := scoring.Composite(0, rep, activity, 0, false, false)
	assert.InDelta(t, 0.45, total, 1e-9)

	withZeroAuth := scoring.Composite(0, rep, activity, 0, true, false)
	assert.InDelta(t, 0.50, withZeroAuth, 1e-9)
}

func TestCompositeClampedToOne(t *testing.T) {
	total := scoring.Composite(1, 1, 1, 1, true, true)
	assert.Equal(t, 1.0, total)
}

func TestCompositeNoSignals(t *testing.T) {
	// Zero backlinks and downloads: only activity fallback plus bonuses.
	total := scoring.Composite(0, 0, scoring.Activity(nil, time.Now()), 0, true, true)
	assert.InDelta(t, 0.15*0.5+0.05+0.10, total, 1e-9)
}

func TestActivityDecay(t *testing.T) {
	now := time.Now().UTC()
	oneYearAgo := now.Add(-365 * 24 * time.Hour)

	assert.InDelta(t, 1.0, scoring.Activity(&now, now), 1e-3)
	assert.InDelta(t, math.Exp(-0.5), scoring.Activity(&oneYearAgo, now), 1e-3)
	assert.Equal(t, 0.5, scoring.Activity(nil, now))
}

func TestPillarRawSignals(t *testing.T) {
	assert.InDelta(t, math.Log10(101)+math.Log10(11), scoring.ReputationRaw(100, 10), 1e-9)
	assert.Zero(t, scoring.ReputationRaw(0, 0))
	assert.InDelta(t, math.Log1p(5), scoring.UsageRaw(5), 1e-9)
	assert.Zero(t, scoring.UsageRaw(-1))
	assert.InDelta(t, 4.0, scoring.ReachRaw(9999), 1e-3)
}

func TestNormalizePillarMonotone(t *testing.T) {
	q := 10.0
	prev := -1.0
	for _, raw := range []float64{0, 1, 5, 10, 50} {
		got := scoring.NormalizePillar(raw, q)
		assert.GreaterOrEqual(t, got, prev)
		assert.LessOrEqual(t, got, 1.0)
		prev = got
	}
}

func TestIsTrustedOrg(t *testing.T) {
	assert.True(t, scoring.IsTrustedOrg("modelcontextprotocol"))
	assert.True(t, scoring.IsTrustedOrg("Anthropic"))
	assert.False(t, scoring.IsTrustedOrg("acme"))
	assert.False(t, scoring.IsTrustedOrg(""))
}

func TestMarketRankingAccessors(t *testing.T) {
	m := scoring.NewMarketRanking("io.github.acme/files", 0.5, 1.0, 0.8, 0.2, true, false)
	assert.Equal(t, "io.github.acme/files", m.ServerName())
	assert.InDelta(t, 0.45*0.5+0.30*1.0+0.15*0.8+0.10*0.2+0.05, m.Total(), 1e-9)
	assert.True(t, m.ZeroAuth())
	assert.False(t, m.Verified())
}
