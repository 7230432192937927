// Package metrics implements the ACH board metrics: per-cell consensus and
// disagreement, hypothesis inconsistency scoring, and evidence
// diagnosticity. All functions are pure and operate on evaluation values
// grouped by matrix cell.
package metrics

import (
	"math"

	"github.com/montanaflynn/stats"

	"openach/models"
)

// MeanNANeutral returns the mean rating on the 1-5 scale for the votes,
// treating N/A as a neutral vote. ok is false when there are no votes.
func MeanNANeutral(votes []models.Eval) (float64, bool) {
	if len(votes) == 0 {
		return 0, false
	}
	values := make([]float64, len(votes))
	for i, v := range votes {
		if v == models.EvalNotApplicable {
			values[i] = float64(models.EvalNeutral)
		} else {
			values[i] = float64(v)
		}
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return 0, false
	}
	return mean, true
}

// AggregateVote returns the consensus evaluation for the votes, or ok=false
// when there are none. If N/A votes strictly outnumber rated votes the
// consensus is N/A; otherwise it is the rounded mean of the rated votes.
// Ties round away from neutral's side of the midpoint (standard rounding)
// rather than to even.
func AggregateVote(votes []models.Eval) (models.Eval, bool) {
	na, rated := partition(votes)
	if len(na) == 0 && len(rated) == 0 {
		return models.EvalNotApplicable, false
	}
	if len(na) > len(rated) {
		return models.EvalNotApplicable, true
	}
	mean, err := stats.Mean(rated)
	if err != nil {
		return models.EvalNotApplicable, false
	}
	return models.Eval(int(math.Round(mean))), true
}

// Disagreement returns the disagreement level for the votes, or ok=false
// when there are none. Calculated as the max disagreement of (1) N/A vs
// non-N/A responses and (2) the non-N/A evaluations. The sample standard
// deviation is used because the votes are a sample of all the evaluations
// that could be given.
func Disagreement(votes []models.Eval) (float64, bool) {
	if len(votes) == 0 {
		return 0, false
	}
	na, rated := partition(votes)

	naDisagreement := 0.0
	if len(na)+len(rated) > 1 {
		split := make([]float64, 0, len(na)+len(rated))
		for range na {
			split = append(split, 0)
		}
		for range rated {
			split = append(split, 1)
		}
		naDisagreement = sampleStdDev(split)
	}

	ratedDisagreement := 0.0
	if len(rated) > 1 {
		ratedDisagreement = sampleStdDev(rated)
	}

	return math.Max(naDisagreement, ratedDisagreement), true
}

// Inconsistency returns the inconsistency of a hypothesis with respect to a
// set of evidence. cells holds the votes for the hypothesis against each
// piece of evidence. The metric resembles a sum squared error over evidence
// whose NA-neutral mean falls below neutral, and is monotonic in the number
// of pieces of evidence that have been evaluated: further evidence can only
// serve to refute a hypothesis, not support it.
func Inconsistency(cells [][]models.Eval) float64 {
	total := 0.0
	for _, cell := range cells {
		if mean, ok := MeanNANeutral(cell); ok && mean < float64(models.EvalNeutral) {
			d := float64(models.EvalNeutral) - mean
			total += d * d
		}
	}
	return total
}

// Consistency returns the consistency of a hypothesis with respect to a set
// of evidence, ignoring inconsistent evaluations.
func Consistency(cells [][]models.Eval) float64 {
	total := 0.0
	for _, cell := range cells {
		if mean, ok := MeanNANeutral(cell); ok && mean > float64(models.EvalNeutral) {
			d := mean - float64(models.EvalNeutral)
			total += d * d
		}
	}
	return total
}

// ProportionNA returns the proportion of cells whose consensus is N/A, or
// 0.0 when there are no cells.
func ProportionNA(cells [][]models.Eval) float64 {
	if len(cells) == 0 {
		return 0.0
	}
	count := 0
	for _, cell := range cells {
		if consensus, ok := AggregateVote(cell); ok && consensus == models.EvalNotApplicable {
			count++
		}
	}
	return float64(count) / float64(len(cells))
}

// ProportionUnevaluated returns the proportion of cells with no consensus
func ProportionUnevaluated(cells [][]models.Eval) float64 {
	if len(cells) == 0 {
		return 0.0
	}
	count := 0
	for _, cell := range cells {
		if _, ok := AggregateVote(cell); !ok {
			count++
		}
	}
	return float64(count) / float64(len(cells))
}

// Diagnosticity returns the diagnosticity of a piece of evidence given its
// votes against each hypothesis: the population standard deviation of the
// NA-neutral means across hypotheses. The hypotheses on a board at a given
// time are treated as the population rather than a sample. Evidence that
// rates every hypothesis the same has zero diagnosticity.
func Diagnosticity(cells [][]models.Eval) float64 {
	means := make([]float64, 0, len(cells))
	for _, cell := range cells {
		if mean, ok := MeanNANeutral(cell); ok {
			means = append(means, mean)
		}
	}
	if len(means) == 0 {
		return 0.0
	}
	sd, err := stats.StandardDeviationPopulation(means)
	if err != nil {
		return 0.0
	}
	return sd
}

// Key is a lexicographically comparable sort key
type Key []float64

// Less reports whether k sorts before other, comparing component-wise
func (k Key) Less(other Key) bool {
	for i := range k {
		if i >= len(other) {
			return false
		}
		if k[i] != other[i] {
			return k[i] < other[i]
		}
	}
	return len(k) < len(other)
}

// HypothesisSortKey returns a key for sorting hypotheses. Ordering is
// (1) inconsistency, (2) consistency descending, (3) proportion N/A, and
// (4) proportion unevaluated, so that the least-refuted hypothesis sorts
// first.
func HypothesisSortKey(cells [][]models.Eval) Key {
	return Key{
		Inconsistency(cells),
		-Consistency(cells),
		ProportionNA(cells),
		ProportionUnevaluated(cells),
	}
}

// EvidenceSortKey returns a key for sorting evidence. Ordering is
// (1) diagnosticity descending, (2) proportion N/A, and (3) proportion
// unevaluated, so that the most diagnostic evidence sorts first.
func EvidenceSortKey(cells [][]models.Eval) Key {
	return Key{
		-Diagnosticity(cells),
		ProportionNA(cells),
		ProportionUnevaluated(cells),
	}
}

// partition splits votes into N/A votes and rated vote values
func partition(votes []models.Eval) (na []models.Eval, rated []float64) {
	for _, v := range votes {
		if v == models.EvalNotApplicable {
			na = append(na, v)
		} else {
			rated = append(rated, float64(v))
		}
	}
	return na, rated
}

func sampleStdDev(values []float64) float64 {
	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return 0.0
	}
	return sd
}
