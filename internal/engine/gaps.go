package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
	"github.com/mrbar76/ALPENSIMULATOR/internal/rules"
)

// Selection reason strings reported on every emitted configuration.
const (
	ReasonUndershoot = "Preferred undershoot among near-equal options"
	ReasonMinError   = "Minimum absolute error (all options overshoot)"
)

// GapSolution is the chosen spacer assignment for one assembly.
type GapSolution struct {
	GapsMM   []float64
	ActualMM float64
	ActualIn float64
	DeltaMM  float64 // signed: actual - target
	Reason   string
}

// SelectGaps finds the spacer tuple that best reproduces the target outer
// dimension. Each gap is drawn from the configured standard spacer sizes and
// must clear the minimum air gap. On an evenly stepped size list, candidates
// are generated around the ideal continuous per-gap value rather than by full
// cross-product; the index radius (two sizes either way for two-gap
// assemblies, one for three) then covers the millimeter neighborhood where
// the optimum can live. An unevenly stepped list breaks that equivalence
// between index distance and millimeter distance, so those lists are scored
// by the full cross-product instead. Ties within the near-equal band prefer
// undershoot, then the most balanced tuple, then lexicographic order.
// Returns nil when no tuple clears the minimum air gap.
func SelectGaps(targetMM float64, glassMM []float64, gapCount int, c rules.Constants) *GapSolution {
	sizes := usableSizes(c)
	if gapCount < 1 || len(sizes) == 0 {
		return nil
	}
	if !uniformStep(sizes) {
		return SelectGapsExhaustive(targetMM, glassMM, gapCount, c)
	}

	sumGlass := 0.0
	for _, t := range glassMM {
		sumGlass += t
	}
	ideal := (targetMM - sumGlass) / float64(gapCount)

	// Index of the standard size nearest the ideal value.
	nearest := 0
	for i, s := range sizes {
		if math.Abs(s-ideal) < math.Abs(sizes[nearest]-ideal) {
			nearest = i
		}
	}

	radius := 1
	if gapCount <= 2 {
		radius = 2
	}

	offsets := make([]int, gapCount)
	for i := range offsets {
		offsets[i] = -radius
	}

	var candidates []gapCandidate
	seen := map[string]bool{}
	for {
		gaps := make([]float64, gapCount)
		for i, off := range offsets {
			idx := nearest + off
			if idx < 0 {
				idx = 0
			}
			if idx >= len(sizes) {
				idx = len(sizes) - 1
			}
			gaps[i] = sizes[idx]
		}
		key := tupleKey(gaps)
		if !seen[key] {
			seen[key] = true
			candidates = append(candidates, newCandidate(gaps, sumGlass, targetMM, ideal))
		}
		if !advance(offsets, radius) {
			break
		}
	}

	return pick(candidates, targetMM, c)
}

// SelectGapsExhaustive scores the full cross-product of standard sizes. It
// exists as the reference for the neighborhood search and for small ad-hoc
// inputs; both searches select the same optimum whenever the neighborhood
// covers the ideal value, which it does for manufacturable inputs.
func SelectGapsExhaustive(targetMM float64, glassMM []float64, gapCount int, c rules.Constants) *GapSolution {
	sizes := usableSizes(c)
	if gapCount < 1 || len(sizes) == 0 {
		return nil
	}

	sumGlass := 0.0
	for _, t := range glassMM {
		sumGlass += t
	}
	ideal := (targetMM - sumGlass) / float64(gapCount)

	idx := make([]int, gapCount)
	var candidates []gapCandidate
	for {
		gaps := make([]float64, gapCount)
		for i, j := range idx {
			gaps[i] = sizes[j]
		}
		candidates = append(candidates, newCandidate(gaps, sumGlass, targetMM, ideal))

		carry := gapCount - 1
		for carry >= 0 {
			idx[carry]++
			if idx[carry] < len(sizes) {
				break
			}
			idx[carry] = 0
			carry--
		}
		if carry < 0 {
			break
		}
	}

	return pick(candidates, targetMM, c)
}

type gapCandidate struct {
	gaps   []float64
	actual float64
	delta  float64
	absDev float64
	spread float64 // total distance of the tuple from the ideal per-gap value
}

func newCandidate(gaps []float64, sumGlass, target, ideal float64) gapCandidate {
	sum := 0.0
	spread := 0.0
	for _, g := range gaps {
		sum += g
		spread += math.Abs(g - ideal)
	}
	actual := sumGlass + sum
	return gapCandidate{
		gaps:   gaps,
		actual: actual,
		delta:  actual - target,
		absDev: math.Abs(actual - target),
		spread: spread,
	}
}

// uniformStep reports whether consecutive sizes are evenly spaced.
func uniformStep(sizes []float64) bool {
	if len(sizes) < 3 {
		return true
	}
	step := sizes[1] - sizes[0]
	for i := 2; i < len(sizes); i++ {
		if math.Abs(sizes[i]-sizes[i-1]-step) > 1e-9 {
			return false
		}
	}
	return true
}

// usableSizes returns the standard spacer sizes meeting the minimum air gap,
// ascending.
func usableSizes(c rules.Constants) []float64 {
	sizes := make([]float64, 0, len(c.StandardGapsMM))
	for _, s := range c.StandardGapsMM {
		if s >= c.MinAirGap {
			sizes = append(sizes, s)
		}
	}
	sort.Float64s(sizes)
	return sizes
}

// pick applies the shared selection policy: minimum absolute deviation, with
// ties inside the near-equal band resolved toward undershoot (at-or-under
// target is safer for frame fit than over).
func pick(candidates []gapCandidate, targetMM float64, c rules.Constants) *GapSolution {
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0].absDev
	for _, cand := range candidates[1:] {
		if cand.absDev < best {
			best = cand.absDev
		}
	}

	band := c.NearEqualBandMM
	if band < 0 {
		band = 0
	}

	var nearEqual, under []gapCandidate
	for _, cand := range candidates {
		if cand.absDev <= best+band+1e-9 {
			nearEqual = append(nearEqual, cand)
			if cand.delta <= 1e-9 {
				under = append(under, cand)
			}
		}
	}

	pool := under
	reason := ReasonUndershoot
	if len(pool) == 0 {
		pool = nearEqual
		reason = ReasonMinError
	}

	chosen := pool[0]
	for _, cand := range pool[1:] {
		if candidateLess(cand, chosen) {
			chosen = cand
		}
	}

	return &GapSolution{
		GapsMM:   chosen.gaps,
		ActualMM: chosen.actual,
		ActualIn: chosen.actual / model.MMPerInch,
		DeltaMM:  chosen.actual - targetMM,
		Reason:   reason,
	}
}

// candidateLess orders candidates by absolute deviation, then balance around
// the ideal, then lexicographic tuple order for determinism.
func candidateLess(a, b gapCandidate) bool {
	if math.Abs(a.absDev-b.absDev) > 1e-9 {
		return a.absDev < b.absDev
	}
	if math.Abs(a.spread-b.spread) > 1e-9 {
		return a.spread < b.spread
	}
	for i := range a.gaps {
		if a.gaps[i] != b.gaps[i] {
			return a.gaps[i] < b.gaps[i]
		}
	}
	return false
}

// advance steps a fixed-radius offset vector through its combinations.
func advance(offsets []int, radius int) bool {
	for i := len(offsets) - 1; i >= 0; i-- {
		offsets[i]++
		if offsets[i] <= radius {
			return true
		}
		offsets[i] = -radius
	}
	return false
}

func tupleKey(gaps []float64) string {
	var b strings.Builder
	for _, g := range gaps {
		fmt.Fprintf(&b, "%.3f,", g)
	}
	return b.String()
}
