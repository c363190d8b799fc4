package cluster

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ScoreAtPercentile returns the value below which p percent of values fall,
// interpolating linearly between the two closest ranks.  p must be in [0, 100].
func ScoreAtPercentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return math.NaN(), fmt.Errorf("percentile of empty data")
	}
	if p < 0 || p > 100 || math.IsNaN(p) {
		return math.NaN(), fmt.Errorf("percentile %g outside [0, 100]", p)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	i := int(math.Floor(rank))
	frac := rank - float64(i)
	if frac == 0 || i+1 >= len(sorted) {
		return sorted[i], nil
	}
	return sorted[i] + (sorted[i+1]-sorted[i])*frac, nil
}

// MinPoints estimates DBSCAN minimum-points thresholds from per-file neighbor count
// distributions.  For each percentile it averages the files' scores at that percentile
// and multiplies by numFiles, since clustering runs on all files pooled together.
func MinPoints(counts [][]float64, percentiles []float64, numFiles int) ([]float64, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("no neighbor counts to estimate min points from")
	}
	out := make([]float64, len(percentiles))
	scores := make([]float64, len(counts))
	for pi, p := range percentiles {
		for fi, c := range counts {
			s, err := ScoreAtPercentile(c, p)
			if err != nil {
				return nil, fmt.Errorf("file %d: %v", fi, err)
			}
			scores[fi] = s
		}
		out[pi] = stat.Mean(scores, nil)
	}
	floats.Scale(float64(numFiles), out)
	return out, nil
}

// IntCounts converts neighbor counts for use with MinPoints.
func IntCounts(counts []int) []float64 {
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = float64(c)
	}
	return out
}
