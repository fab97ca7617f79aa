package analytics

import (
	"math"
	"sort"
)

// TieMethod selects how equal observations are ranked.
type TieMethod string

const (
	// TiesPositional ranks ties by their position after a stable sort.
	TiesPositional TieMethod = "positional"
	// TiesAverage gives every member of a tie group the mean of its positions.
	TiesAverage TieMethod = "average"
)

// Mann-Whitney conclusions.
const (
	ConclusionInsufficient = "insufficient data"
	ConclusionSimilar      = "similar performance (per hour)"
	ConclusionSignificant  = "statistically SIGNIFICANT efficiency difference"
)

// DefaultAlpha is the two-tailed significance threshold.
const DefaultAlpha = 0.05

// minLargeSample is the cohort size above which the normal approximation is used.
const minLargeSample = 5

// MannWhitneyResult is the outcome of comparing two cohorts.
type MannWhitneyResult struct {
	U          float64  `json:"u"`
	U1         float64  `json:"u1"`
	U2         float64  `json:"u2"`
	N1         int      `json:"n1"`
	N2         int      `json:"n2"`
	Z          *float64 `json:"z"`
	PValue     *float64 `json:"p_value"`
	Conclusion string   `json:"conclusion"`
}

type rankedObservation struct {
	value  float64
	groupA bool
}

// MannWhitney compares cohorts a and b with the U statistic and its normal
// approximation. Ties keep group a first after sorting.
func MannWhitney(a, b []float64, ties TieMethod, alpha float64) MannWhitneyResult {
	n1, n2 := len(a), len(b)
	res := MannWhitneyResult{N1: n1, N2: n2, Conclusion: ConclusionInsufficient}
	if n1 == 0 || n2 == 0 {
		return res
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	res.Conclusion = ConclusionSimilar

	combined := make([]rankedObservation, 0, n1+n2)
	for _, v := range a {
		combined = append(combined, rankedObservation{value: v, groupA: true})
	}
	for _, v := range b {
		combined = append(combined, rankedObservation{value: v})
	}
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].value < combined[j].value
	})

	ranks := assignRanks(combined, ties)
	var rankSumA float64
	for i, obs := range combined {
		if obs.groupA {
			rankSumA += ranks[i]
		}
	}

	fn1, fn2 := float64(n1), float64(n2)
	res.U1 = fn1*fn2 + fn1*(fn1+1)/2 - rankSumA
	res.U2 = fn1*fn2 - res.U1
	res.U = math.Min(res.U1, res.U2)

	if n1 <= minLargeSample || n2 <= minLargeSample {
		return res
	}
	mu := fn1 * fn2 / 2
	sigma := math.Sqrt(fn1 * fn2 * (fn1 + fn2 + 1) / 12)
	if sigma == 0 {
		return res
	}
	z := (res.U - mu) / sigma
	p := TwoTailedP(z)
	res.Z = &z
	res.PValue = &p
	if p < alpha {
		res.Conclusion = ConclusionSignificant
	}
	return res
}

func assignRanks(sorted []rankedObservation, ties TieMethod) []float64 {
	ranks := make([]float64, len(sorted))
	if ties != TiesAverage {
		for i := range sorted {
			ranks[i] = float64(i + 1)
		}
		return ranks
	}
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1].value == sorted[i].value {
			j++
		}
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[k] = avg
		}
		i = j + 1
	}
	return ranks
}

// TwoTailedP returns 2*(1-Phi(|z|)) using the Abramowitz-Stegun 26.2.17
// approximation of the standard normal tail.
func TwoTailedP(z float64) float64 {
	const (
		p  = 0.2316419
		b1 = 0.319381530
		b2 = -0.356563782
		b3 = 1.781477937
		b4 = -1.821255978
		b5 = 1.330274429
	)
	x := math.Abs(z)
	t := 1 / (1 + p*x)
	pdf := 0.3989422804014337 * math.Exp(-x*x/2)
	tail := pdf * t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
	return 2 * tail
}
