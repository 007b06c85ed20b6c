package gpcc

import (
	"slices"
	"sort"

	"github.com/samber/lo"
)

// Level-of-detail structure.
//
// Points are reordered from coarse to fine. Layer l holds the points in
// [NumPointsInLod[l-1], NumPointsInLod[l]) of Indexes, each layer in Morton
// order. Every point carries a Predictor whose neighbours are strictly
// earlier in that order, so attributes can be reconstructed in one pass.

// PredictorNeighbor is one reference of a predictor: a position in LoD
// order and its weight in predWeightShift fixed point.
type PredictorNeighbor struct {
	PredictorIndex uint32
	Weight         int64
}

// Predictor lists the neighbours used to predict one point, nearest
// first. PredMode 0 selects the weighted average, PredMode i > 0 the
// i-th neighbour alone.
type Predictor struct {
	Neighbors     [MaxNumPredictors]PredictorNeighbor
	NeighborCount int
	PredMode      int
}

// predictReflectance returns the prediction of a reflectance point.
func (p *Predictor) predictReflectance(refl []uint16, indexes []uint32) int64 {
	if p.PredMode > 0 {
		return int64(refl[indexes[p.Neighbors[p.PredMode-1].PredictorIndex]])
	}
	var predicted int64
	for i := 0; i < p.NeighborCount; i++ {
		nb := p.Neighbors[i]
		predicted += nb.Weight * int64(refl[indexes[nb.PredictorIndex]])
	}
	return divExp2RoundHalfInf(predicted, predWeightShift)
}

// predictColor returns the prediction of a colour point.
func (p *Predictor) predictColor(colors [][3]uint16, indexes []uint32) [3]int64 {
	var predicted [3]int64
	if p.PredMode > 0 {
		c := colors[indexes[p.Neighbors[p.PredMode-1].PredictorIndex]]
		for k := range 3 {
			predicted[k] = int64(c[k])
		}
		return predicted
	}
	for i := 0; i < p.NeighborCount; i++ {
		nb := p.Neighbors[i]
		c := colors[indexes[nb.PredictorIndex]]
		for k := range 3 {
			predicted[k] += nb.Weight * int64(c[k])
		}
	}
	for k := range 3 {
		predicted[k] = divExp2RoundHalfInf(predicted[k], predWeightShift)
	}
	return predicted
}

// lodParams is the subset of the attribute parameters that shapes the
// LoD structure.
type lodParams struct {
	decimation     bool
	numNeighbours  int
	intraRange     int
	interRange     int
	neighBias      [3]int32
	intraLod       bool
	numLevels      int
	samplingPeriod []int
	dist2          int
}

func newLodParams(aps *AttributeParams, abh *AttributeBrickHeader) lodParams {
	return lodParams{
		decimation:     aps.LodDecimation,
		numNeighbours:  aps.NumPredNearestNeighbours,
		intraRange:     aps.IntraLodSearchRange,
		interRange:     aps.InterLodSearchRange,
		neighBias:      aps.LodNeighBias,
		intraLod:       aps.IntraLodPrediction && aps.Encoding != LiftingTransform,
		numLevels:      aps.NumDetailLevels,
		samplingPeriod: aps.LodSamplingPeriod,
		dist2:          aps.Dist2 + abh.Dist2Delta,
	}
}

func (p *lodParams) equal(o *lodParams) bool {
	return p.decimation == o.decimation &&
		p.numNeighbours == o.numNeighbours &&
		p.intraRange == o.intraRange &&
		p.interRange == o.interRange &&
		p.neighBias == o.neighBias &&
		p.intraLod == o.intraLod &&
		p.numLevels == o.numLevels &&
		slices.Equal(p.samplingPeriod, o.samplingPeriod) &&
		p.dist2 == o.dist2
}

// AttributeLods is the LoD structure of one slice.
type AttributeLods struct {
	Indexes        []uint32
	NumPointsInLod []int
	Predictors     []Predictor

	params    lodParams
	lifting   bool
	numPoints int
}

// Empty reports whether the structure has been generated.
func (l *AttributeLods) Empty() bool {
	return len(l.NumPointsInLod) == 0
}

// IsReusable reports whether a structure generated for earlier
// parameters can serve aps and abh unchanged.
func (l *AttributeLods) IsReusable(aps *AttributeParams, abh *AttributeBrickHeader) bool {
	if l.Empty() || !aps.lodParametersPresent() {
		return false
	}
	p := newLodParams(aps, abh)
	return l.params.equal(&p) && l.lifting == (aps.Encoding == LiftingTransform)
}

// Generate builds the LoD structure of positions.
func (l *AttributeLods) Generate(aps *AttributeParams, abh *AttributeBrickHeader, positions [][3]int32) {
	l.params = newLodParams(aps, abh)
	l.lifting = aps.Encoding == LiftingTransform
	l.numPoints = len(positions)

	sorted := mortonSort(positions)
	layers := l.buildLayers(sorted, positions)

	l.Indexes = l.Indexes[:0]
	l.NumPointsInLod = l.NumPointsInLod[:0]
	for _, layer := range layers {
		for _, s := range layer {
			l.Indexes = append(l.Indexes, uint32(sorted[s].index))
		}
		l.NumPointsInLod = append(l.NumPointsInLod, len(l.Indexes))
	}
	l.computePredictors(positions)
}

// buildLayers splits the Morton-ordered points into layers, coarsest
// first. The returned values index sorted.
func (l *AttributeLods) buildLayers(sorted []mortonCodeWithIndex, positions [][3]int32) [][]int {
	remaining := make([]int, len(sorted))
	for i := range remaining {
		remaining[i] = i
	}

	var finestFirst [][]int
	for level := 0; level+1 < l.params.numLevels && len(remaining) > 1; level++ {
		var retained, removed []int
		if l.params.decimation {
			period := l.params.samplingPeriod[min(level, len(l.params.samplingPeriod)-1)]
			for i, s := range remaining {
				if i%period == 0 {
					retained = append(retained, s)
				} else {
					removed = append(removed, s)
				}
			}
		} else {
			retained, removed = l.subsampleDistance(level, remaining, sorted, positions)
		}
		if len(removed) == 0 {
			break
		}
		finestFirst = append(finestFirst, removed)
		remaining = retained
	}
	finestFirst = append(finestFirst, remaining)
	slices.Reverse(finestFirst)
	return finestFirst
}

// subsampleDistance retains a point when it is at least the level's
// distance from every recently retained point.
func (l *AttributeLods) subsampleDistance(level int, remaining []int, sorted []mortonCodeWithIndex, positions [][3]int32) (retained, removed []int) {
	threshold := int64(l.params.dist2) << (2 * level)
	window := max(l.params.interRange, 1)
	for _, s := range remaining {
		pos := positions[sorted[s].index]
		keep := true
		for j := len(retained) - 1; j >= 0 && j >= len(retained)-window; j-- {
			if sqrDist(pos, positions[sorted[retained[j]].index]) < threshold {
				keep = false
				break
			}
		}
		if keep {
			retained = append(retained, s)
		} else {
			removed = append(removed, s)
		}
	}
	return retained, removed
}

func sqrDist(a, b [3]int32) int64 {
	var d int64
	for k := range 3 {
		dk := int64(a[k]) - int64(b[k])
		d += dk * dk
	}
	return d
}

func (l *AttributeLods) biasedDist(a, b [3]int32) int64 {
	var d int64
	for k := range 3 {
		dk := int64(a[k]) - int64(b[k])
		bias := int64(max(l.params.neighBias[k], 1))
		d += bias * dk * dk
	}
	return d
}

type lodCandidate struct {
	predictorIndex uint32
	dist           int64
}

// computePredictors selects the nearest causal neighbours of every
// point. Coarser points are searched in Morton order around the point;
// points of the same layer are searched backwards when intra-layer
// prediction is allowed. The coarsest layer has nothing coarser, so
// predicting transforms always search it intra-layer.
func (l *AttributeLods) computePredictors(positions [][3]int32) {
	n := len(l.Indexes)
	l.Predictors = slices.Grow(l.Predictors[:0], n)[:n]
	clear(l.Predictors)

	// coarser points of the current layer, ordered by Morton code
	var coarse []mortonCodeWithIndex
	start := 0
	candidates := make([]lodCandidate, 0, 2*l.params.interRange+l.params.intraRange+1)
	for layer, end := range l.NumPointsInLod {
		intra := l.params.intraLod || (layer == 0 && !l.lifting)
		intraRange := l.params.intraRange
		if layer == 0 && !l.params.intraLod {
			intraRange = max(intraRange, l.params.numNeighbours)
		}
		for i := start; i < end; i++ {
			pos := positions[l.Indexes[i]]
			candidates = candidates[:0]

			if len(coarse) > 0 {
				code := mortonAddr(pos)
				at := sort.Search(len(coarse), func(j int) bool { return coarse[j].mortonCode >= code })
				from := max(0, at-l.params.interRange)
				to := min(len(coarse), at+l.params.interRange+1)
				for _, c := range coarse[from:to] {
					candidates = append(candidates, lodCandidate{
						predictorIndex: uint32(c.index),
						dist:           l.biasedDist(pos, positions[l.Indexes[c.index]]),
					})
				}
			}
			if intra {
				for j := i - 1; j >= start && j >= i-intraRange; j-- {
					candidates = append(candidates, lodCandidate{
						predictorIndex: uint32(j),
						dist:           l.biasedDist(pos, positions[l.Indexes[j]]),
					})
				}
			}
			l.Predictors[i] = l.makePredictor(candidates)
		}

		for i := start; i < end; i++ {
			coarse = append(coarse, mortonCodeWithIndex{mortonCode: mortonAddr(positions[l.Indexes[i]]), index: i})
		}
		slices.SortStableFunc(coarse, func(a, b mortonCodeWithIndex) int {
			switch {
			case a.mortonCode < b.mortonCode:
				return -1
			case a.mortonCode > b.mortonCode:
				return 1
			}
			return a.index - b.index
		})
		start = end
	}
}

// makePredictor keeps the nearest candidates and assigns inverse
// distance weights summing to 1 << predWeightShift.
func (l *AttributeLods) makePredictor(candidates []lodCandidate) Predictor {
	var pred Predictor
	if len(candidates) == 0 {
		return pred
	}
	slices.SortFunc(candidates, func(a, b lodCandidate) int {
		if a.dist != b.dist {
			if a.dist < b.dist {
				return -1
			}
			return 1
		}
		return int(a.predictorIndex) - int(b.predictorIndex)
	})
	candidates = candidates[:min(len(candidates), l.params.numNeighbours, MaxNumPredictors)]

	inv := lo.Map(candidates, func(c lodCandidate, _ int) int64 {
		return (1 << 32) / max(c.dist, 1)
	})
	total := lo.Sum(inv)
	var assigned int64
	for i, c := range candidates {
		w := (inv[i] << predWeightShift) / total
		pred.Neighbors[i] = PredictorNeighbor{PredictorIndex: c.predictorIndex, Weight: w}
		assigned += w
	}
	pred.Neighbors[0].Weight += 1<<predWeightShift - assigned
	pred.NeighborCount = len(candidates)
	return pred
}
