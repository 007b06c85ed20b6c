package gpcc

// Filtered colour reconstruction for the predicting transform.
//
// Payloads produced with the colour filter carry, ahead of the residuals,
// a filter enable count and a list of reference colours. While the
// filter is active the decoder replaces the neighbour prediction by a
// scalar Kalman estimate that blends the prediction with the colour of
// the previous point, and substitutes reference colours at fixed
// checkpoints of the LoD layers. Every reconstructed colour is then
// converted to BT.709 YCbCr; at coarse quantization the chroma is also
// filtered against the mean of the three previous colours. The stored
// result is the YCbCr triple rotated to (Cb, Cr, Y).
//
// The arithmetic follows the reference encoder bit for bit, including
// single precision gains and truncating conversions.

const (
	colorFilterR = 50.0
	colorFilterH = 1.0

	// colorFilterFirstLod is the first LoD layer without reference
	// colours.
	colorFilterFirstLod = 6

	// colorFilterCheckpoints is the number of reference colours per LoD
	// layer.
	colorFilterCheckpoints = 7

	// colorFilterChromaStep is the quantization step from which chroma
	// is filtered.
	colorFilterChromaStep = 2048
)

var colorFilterInitialVariance = [3]float64{200, 500, 450}

// colorKalman holds the per-point error variances of one filter, indexed
// by LoD-order position.
type colorKalman struct {
	p [3][]float64
}

func newColorKalman(n, first int) *colorKalman {
	var f colorKalman
	for k := range 3 {
		f.p[k] = make([]float64, n+1)
		if first <= n {
			f.p[k][first] = colorFilterInitialVariance[k]
		}
	}
	return &f
}

// step blends the prediction with the observation for component k at
// position i and returns the truncated estimate.
func (f *colorKalman) step(k, i int, predicted, observed int64) int64 {
	const ht = 1 / colorFilterH
	y0 := observed - predicted
	s0 := float32(colorFilterH*f.p[k][i]*ht + colorFilterR)
	si0 := 1 / s0
	gain := float32(f.p[k][i] * ht * float64(si0))
	x := int64(float32(predicted) + float32(gain*float32(y0)))
	f.p[k][i+1] = (1 - float64(gain)*colorFilterH) * f.p[k][i]
	return x
}

func (f *colorKalman) reset(i int) {
	for k := range 3 {
		f.p[k][i] = colorFilterInitialVariance[k]
	}
}

func (d *AttributeDecoder) decodeColorsPredFiltered(
	desc *AttributeDescription, aps *AttributeParams, qpSet *QpSet, dec *ResidualDecoder, cloud *PointCloud,
) {
	indexes := d.lods.Indexes
	npl := d.lods.NumPointsInLod
	pointCount := len(indexes)
	lodAt := func(l int) int {
		return npl[min(max(l, 0), len(npl)-1)]
	}
	clipMax := [3]int64{desc.clipMax(0), desc.clipMax(1), desc.clipMax(2)}

	predFilter := newColorKalman(pointCount, 1)
	chromaFilter := newColorKalman(pointCount, 3)

	u := 1
	if lodAt(3)-lodAt(2) < 8 {
		u = 3
	} else if lodAt(2)-lodAt(1) < 8 {
		u = 2
	}
	t := u
	nextLod := colorFilterFirstLod
	activeEnd := lodAt(colorFilterFirstLod)

	flagVar := dec.DecodeRunLength()
	numRealColors := dec.DecodeRunLength()
	realColors := make([][3]uint16, numRealColors)
	for i := range realColors {
		v := dec.DecodeTriplet()
		realColors[i] = [3]uint16{uint16(v[0]), uint16(v[1]), uint16(v[2])}
	}
	next := 0
	realColorAt := func(i int) [3]uint16 {
		if i < len(realColors) {
			return realColors[i]
		}
		return [3]uint16{}
	}

	var realColor, reconColor, recon0, recon1, recon2 [3]uint16
	ycc := make([][3]uint16, 0, pointCount)
	cursor := newQuantLayerCursor(qpSet, npl)

	zeroCnt := dec.DecodeRunLength()
	for predictorIndex, pointIndex := range indexes {
		quantLayer := cursor.advance(predictorIndex)
		quant := qpSet.Quantizers(cloud.Positions[pointIndex], quantLayer)
		predictor := &d.lods.Predictors[predictorIndex]

		computeColorPredMode(aps, cloud.Colors, indexes, predictor, dec)
		var values [3]int32
		if zeroCnt > 0 {
			zeroCnt--
		} else {
			values = dec.DecodeTriplet()
			zeroCnt = dec.DecodeRunLength()
		}

		if predictorIndex > 0 {
			reconColor = cloud.Colors[indexes[predictorIndex-1]]
		}
		if predictorIndex > 2 {
			recon0 = cloud.Colors[indexes[predictorIndex-3]]
			recon1 = cloud.Colors[indexes[predictorIndex-2]]
			recon2 = cloud.Colors[indexes[predictorIndex-1]]
		}
		p := predictor.predictColor(cloud.Colors, indexes)
		predicted := [3]uint16{uint16(p[0]), uint16(p[1]), uint16(p[2])}

		filter := func() {
			for k := range 3 {
				x := predFilter.step(k, predictorIndex, int64(predicted[k]), int64(reconColor[k]))
				realColor[k] = uint16(clip(x, 0, clipMax[k]))
			}
		}
		isCheckpoint := func(m int) bool {
			base := lodAt(u)
			if predictorIndex == base-m {
				return true
			}
			for i := range colorFilterCheckpoints {
				if predictorIndex == base+i*m {
					return true
				}
			}
			return false
		}
		filterAtCheckpoints := func(m int) {
			hit := isCheckpoint(m)
			if hit {
				reconColor = realColorAt(next)
			}
			filter()
			if hit {
				realColor = realColorAt(next)
				next++
			}
		}

		switch {
		case predictorIndex == 0:
		case predictorIndex < activeEnd && predictorIndex < lodAt(colorFilterFirstLod):
			if flagVar <= 0 {
				realColor = predicted
				break
			}
			m := (lodAt(u+1) - lodAt(u)) / 8
			if predictorIndex < lodAt(t) {
				reconColor = realColorAt(next)
				filter()
				realColor = realColorAt(next)
				next++
			} else {
				filterAtCheckpoints(m)
			}
			if predictorIndex == lodAt(u+1)-1 {
				u++
			}
		case predictorIndex < activeEnd:
			if flagVar <= 0 {
				realColor = predicted
				break
			}
			filterAtCheckpoints((lodAt(u+1) - lodAt(u)) / 8)
			if predictorIndex == lodAt(u+1)-1 {
				u++
			}
		default:
			activeEnd = lodAt(nextLod + 1)
			realColor = predicted
			if nextLod == colorFilterFirstLod {
				predFilter.reset(predictorIndex + 1)
			}
			flagVar--
			nextLod++
		}

		// the first point is reconstructed from the running estimate,
		// which has not been set yet
		color := &cloud.Colors[pointIndex]
		var residual0, step int64
		for k := range 3 {
			q := quant[min(k, 1)]
			step = q.StepSize()
			residual := divExp2RoundHalfUp(q.Scale(int64(values[k])), attrShift)
			recon := int64(realColor[k]) + residual + residual0
			color[k] = uint16(clip(recon, 0, clipMax[k]))
			if k == 0 && aps.InterComponentPrediction {
				residual0 = residual
			}
		}

		yccColor := transformGbrToYCbCrBt709(*color, desc.Bitdepth)
		if step >= colorFilterChromaStep && predictorIndex > 2 {
			var mean [3]uint16
			for k := range 3 {
				mean[k] = uint16((int(recon0[k]) + int(recon1[k]) + int(recon2[k])) / 3)
			}
			yccMean := transformGbrToYCbCrBt709(mean, desc.Bitdepth)
			for k := 1; k < 3; k++ {
				x := chromaFilter.step(k, predictorIndex, int64(yccColor[k]), int64(yccMean[k]))
				yccColor[k] = uint16(clip(x, 0, clipMax[k]))
			}
		}
		ycc = append(ycc, yccColor)
	}

	for predictorIndex, pointIndex := range indexes {
		c := ycc[predictorIndex]
		cloud.Colors[pointIndex] = [3]uint16{c[1], c[2], c[0]}
	}
}
