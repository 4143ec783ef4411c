package search_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wisplabs/wisp/domain/search"
)

func TestRelevanceFusion(t *testing.T) {
	kMax := 12.0

	// Semantic-only hit.
	a := search.Relevance(0.8, 0, kMax)
	assert.InDelta(t, 0.56, a, 1e-9)

	// Weaker semantic hit with the best keyword score.
	b := search.Relevance(0.4, kMax, kMax)
	assert.InDelta(t, 0.28+0.3, b, 1e-9)

	// Keyword strength flips the order.
	assert.Greater(t, b, a)
}

func TestRelevanceGuardsZeroKeywordMax(t *testing.T) {
	// No keyword hits at all: keyword side contributes nothing.
	assert.InDelta(t, 0.7*0.5, search.Relevance(0.5, 0, 0), 1e-9)
	assert.InDelta(t, 0.7*0.5, search.Relevance(0.5, 5, 0), 1e-9)
}

func TestScoreBlendsQuality(t *testing.T) {
	assert.InDelta(t, 0.8*0.5+0.2*1.0, search.Score(0.5, 1.0), 1e-9)
	assert.InDelta(t, 0.8*0.5, search.Score(0.5, 0), 1e-9)
}

func TestAboveFloor(t *testing.T) {
	assert.False(t, search.AboveFloor(0.3))
	assert.False(t, search.AboveFloor(0.14))
	assert.True(t, search.AboveFloor(0.31))
}

func TestFuseHit(t *testing.T) {
	h := search.FuseHit(7, 0.8, 0, 12, 0.5)
	assert.Equal(t, int64(7), h.ToolID)
	assert.InDelta(t, 0.56, h.Relevance, 1e-9)
	assert.InDelta(t, 0.8*0.56+0.2*0.5, h.Score, 1e-9)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, search.CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, search.CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, search.CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Zero(t, search.CosineSimilarity([]float64{1, 2}, []float64{1}))
	assert.Zero(t, search.CosineSimilarity(nil, nil))
	assert.Zero(t, search.CosineSimilarity([]float64{0, 0}, []float64{1, 1}))

	// Magnitude does not matter.
	sim := search.CosineSimilarity([]float64{2, 4, 6}, []float64{1, 2, 3})
	assert.InDelta(t, 1.0, sim, 1e-9)
	assert.False(t, math.IsNaN(sim))
}
