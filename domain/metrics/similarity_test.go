package metrics

import (
	"testing"

	"openach/models"
)

// TestHypothesisSimilarity tests rating-profile correlation between
// hypotheses
func TestHypothesisSimilarity(t *testing.T) {
	identical := [][]models.Eval{
		{models.EvalVeryInconsistent},
		{models.EvalNeutral},
		{models.EvalVeryConsistent},
	}
	opposed := [][]models.Eval{
		{models.EvalVeryConsistent},
		{models.EvalNeutral},
		{models.EvalVeryInconsistent},
	}

	r, ok := HypothesisSimilarity(identical, identical)
	if !ok || r < 0.999 {
		t.Errorf("Expected near-perfect correlation for identical profiles, got %v (ok=%v)", r, ok)
	}

	r, ok = HypothesisSimilarity(identical, opposed)
	if !ok || r > -0.999 {
		t.Errorf("Expected near-perfect negative correlation for opposed profiles, got %v (ok=%v)", r, ok)
	}

	// Constant profiles have no defined correlation
	constant := [][]models.Eval{
		{models.EvalNeutral},
		{models.EvalNeutral},
	}
	if _, ok := HypothesisSimilarity(constant, [][]models.Eval{{models.EvalConsistent}, {models.EvalInconsistent}}); ok {
		t.Error("Expected no correlation for a constant rating profile")
	}

	// Fewer than two shared evaluated cells
	sparse := [][]models.Eval{
		{models.EvalConsistent},
		nil,
	}
	if _, ok := HypothesisSimilarity(sparse, sparse); ok {
		t.Error("Expected no correlation with fewer than two shared cells")
	}

	// Mismatched lengths
	if _, ok := HypothesisSimilarity(identical, sparse); ok {
		t.Error("Expected no correlation for misaligned profiles")
	}
}

// TestSimilarHypotheses tests duplicate-pair detection across a board
func TestSimilarHypotheses(t *testing.T) {
	a := [][]models.Eval{
		{models.EvalVeryInconsistent},
		{models.EvalVeryConsistent},
	}
	b := [][]models.Eval{
		{models.EvalInconsistent},
		{models.EvalConsistent},
	}
	c := [][]models.Eval{
		{models.EvalVeryConsistent},
		{models.EvalVeryInconsistent},
	}

	pairs := SimilarHypotheses([][][]models.Eval{a, b, c}, 0.9)
	if len(pairs) != 1 {
		t.Fatalf("Expected 1 similar pair, got %d", len(pairs))
	}
	if pairs[0].IndexA != 0 || pairs[0].IndexB != 1 {
		t.Errorf("Expected pair (0, 1), got (%d, %d)", pairs[0].IndexA, pairs[0].IndexB)
	}
	if pairs[0].Correlation < 0.9 {
		t.Errorf("Expected correlation at or above threshold, got %v", pairs[0].Correlation)
	}
}
