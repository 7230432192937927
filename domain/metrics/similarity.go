package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"openach/models"
)

// HypothesisSimilarity returns the Pearson correlation between two
// hypotheses' NA-neutral mean ratings over the evidence both have votes for.
// Values near 1 indicate the hypotheses are rated nearly identically and may
// be duplicates the analysts should merge. ok is false when fewer than two
// pieces of evidence are shared or either rating vector is constant.
//
// a and b hold the votes for each hypothesis indexed by evidence; the two
// slices must be aligned on the same evidence ordering.
func HypothesisSimilarity(a, b [][]models.Eval) (float64, bool) {
	if len(a) != len(b) {
		return 0, false
	}
	var x, y []float64
	for i := range a {
		ma, okA := MeanNANeutral(a[i])
		mb, okB := MeanNANeutral(b[i])
		if okA && okB {
			x = append(x, ma)
			y = append(y, mb)
		}
	}
	if len(x) < 2 {
		return 0, false
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// SimilarPair identifies two hypotheses whose rating profiles correlate
// above a threshold.
type SimilarPair struct {
	IndexA      int
	IndexB      int
	Correlation float64
}

// SimilarHypotheses returns the pairs of hypotheses whose rating vectors
// correlate at or above threshold. byHypothesis holds, per hypothesis, the
// votes for each piece of evidence, aligned on a common evidence ordering.
func SimilarHypotheses(byHypothesis [][][]models.Eval, threshold float64) []SimilarPair {
	var pairs []SimilarPair
	for i := 0; i < len(byHypothesis); i++ {
		for j := i + 1; j < len(byHypothesis); j++ {
			if r, ok := HypothesisSimilarity(byHypothesis[i], byHypothesis[j]); ok && r >= threshold {
				pairs = append(pairs, SimilarPair{IndexA: i, IndexB: j, Correlation: r})
			}
		}
	}
	return pairs
}
