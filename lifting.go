package gpcc

// Lifting transform over the LoD structure.
//
// Each LoD layer is a high-pass band predicted from the coarser layers,
// which in turn receive an update from the details so that the coarse
// points carry a low-pass signal. Values are held in attrShift fixed
// point; the inverse (direct == false) undoes the forward steps exactly
// when applied coarse to fine.

// computeQuantizationWeights returns the weight of every point in
// weightShift fixed point. Weights start at one and flow from each point
// to its predictors, finest first, so that coarse points accumulate the
// importance of the details they predict.
func computeQuantizationWeights(predictors []Predictor) []uint64 {
	weights := make([]uint64, len(predictors))
	for i := range weights {
		weights[i] = 1 << weightShift
	}
	for i := len(predictors) - 1; i >= 0; i-- {
		p := &predictors[i]
		w := int64(weights[i])
		for j := 0; j < p.NeighborCount; j++ {
			nb := p.Neighbors[j]
			weights[nb.PredictorIndex] += uint64(divExp2RoundHalfInf(nb.Weight*w, predWeightShift))
		}
	}
	return weights
}

// computeQuantizationWeightsScalable returns weights that depend only on
// the layer sizes, so a decoder holding a subset of the layers derives
// the same values as the encoder.
func computeQuantizationWeightsScalable(numPointsInLod []int, numPoints int) []uint64 {
	weights := make([]uint64, numPoints)
	start := 0
	for _, end := range numPointsInLod {
		w := uint64(numPoints) << weightShift / uint64(max(end, 1))
		for i := start; i < end; i++ {
			weights[i] = w
		}
		start = end
	}
	return weights
}

// liftPredict applies the predict step to the points in [start, end).
// The forward direction subtracts the prediction, the inverse adds it.
func liftPredict(predictors []Predictor, start, end int, direct bool, attrs [][3]int64, dims int) {
	for i := start; i < end; i++ {
		p := &predictors[i]
		var predicted [3]int64
		for j := 0; j < p.NeighborCount; j++ {
			nb := p.Neighbors[j]
			for k := range dims {
				predicted[k] += nb.Weight * attrs[nb.PredictorIndex][k]
			}
		}
		for k := range dims {
			delta := divExp2RoundHalfInf(predicted[k], predWeightShift)
			if direct {
				attrs[i][k] -= delta
			} else {
				attrs[i][k] += delta
			}
		}
	}
}

// liftUpdate applies the update step of the details in [start, end) to
// the coarser points in [0, start).
func liftUpdate(predictors []Predictor, weights []uint64, start, end int, direct bool, attrs [][3]int64, dims int) {
	updateWeights := make([]int64, start)
	updates := make([][3]int64, start)
	for i := start; i < end; i++ {
		p := &predictors[i]
		w := int64(weights[i])
		for j := 0; j < p.NeighborCount; j++ {
			nb := p.Neighbors[j]
			weight := divExp2RoundHalfInf(nb.Weight*w, predWeightShift)
			updateWeights[nb.PredictorIndex] += weight
			for k := range dims {
				updates[nb.PredictorIndex][k] += weight * attrs[i][k]
			}
		}
	}
	for i := range start {
		sumWeights := updateWeights[i]
		if sumWeights == 0 {
			continue
		}
		for k := range dims {
			update := divRoundHalfInf(updates[i][k], sumWeights)
			if direct {
				attrs[i][k] += update
			} else {
				attrs[i][k] -= update
			}
		}
	}
}

// liftInverse reconstructs the attribute signal from the details,
// coarse to fine.
func liftInverse(predictors []Predictor, weights []uint64, numPointsInLod []int, attrs [][3]int64, dims int) {
	for lod := 1; lod < len(numPointsInLod); lod++ {
		start, end := numPointsInLod[lod-1], numPointsInLod[lod]
		liftUpdate(predictors, weights, start, end, false, attrs, dims)
		liftPredict(predictors, start, end, false, attrs, dims)
	}
}

// liftForward turns the attribute signal into details, fine to coarse.
func liftForward(predictors []Predictor, weights []uint64, numPointsInLod []int, attrs [][3]int64, dims int) {
	for lod := len(numPointsInLod) - 1; lod > 0; lod-- {
		start, end := numPointsInLod[lod-1], numPointsInLod[lod]
		liftPredict(predictors, start, end, true, attrs, dims)
		liftUpdate(predictors, weights, start, end, true, attrs, dims)
	}
}

// liftCoeffShift scales a dequantized coefficient by irsqrt of a weight
// carrying weightShift fractional bits.
const liftCoeffShift = 40 - weightShift/2

// liftDequantize divides a scaled level by the square root of weight w.
func liftDequantize(scaled int64, w uint64) int64 {
	return divExp2RoundHalfInf(scaled*int64(irsqrt(w)), liftCoeffShift)
}

// liftWeighted multiplies a detail by the square root of weight w; it is
// the encoder counterpart of liftDequantize before quantization.
func liftWeighted(detail int64, w uint64) int64 {
	sqrtW := int64(isqrt(w << weightShift))
	return divExp2RoundHalfInf(detail*sqrtW, weightShift)
}
