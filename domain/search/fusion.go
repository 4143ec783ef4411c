package search

import "math"

// Fusion weights and the relevance floor of the hybrid retriever.
const (
	WeightSemantic  = 0.7
	WeightKeyword   = 0.3
	WeightRelevance = 0.8
	WeightQuality   = 0.2
	RelevanceFloor  = 0.3
)

// Relevance fuses a semantic similarity in [-1, 1] with a raw keyword score
// normalized against the best keyword hit of the candidate set. A candidate
// missing one side contributes 0 for that side.
func Relevance(sScore, kRaw, kMax float64) float64 {
	keyword := 0.0
	if kRaw > 0 && kMax > 0 {
		keyword = math.Log1p(kRaw) / math.Log1p(kMax)
	}
	return WeightSemantic*sScore + WeightKeyword*keyword
}

// Score combines relevance with the marketplace quality of the owning
// server.
func Score(relevance, quality float64) float64 {
	return WeightRelevance*relevance + WeightQuality*quality
}

// AboveFloor reports whether a candidate survives the relevance floor.
func AboveFloor(relevance float64) bool {
	return relevance > RelevanceFloor
}

// Hit is one scored retrieval candidate before hydration.
type Hit struct {
	ToolID    int64
	SScore    float64
	KRaw      float64
	Relevance float64
	Quality   float64
	Score     float64
}

// FuseHit computes the fused relevance and final score of a candidate.
func FuseHit(toolID int64, sScore, kRaw, kMax, quality float64) Hit {
	rel := Relevance(sScore, kRaw, kMax)
	return Hit{
		ToolID:    toolID,
		SScore:    sScore,
		KRaw:      kRaw,
		Relevance: rel,
		Quality:   quality,
		Score:     Score(rel, quality),
	}
}

// CosineSimilarity computes the cosine similarity of two vectors. Zero
// vectors or mismatched lengths yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
