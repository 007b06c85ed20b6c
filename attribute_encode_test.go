package gpcc

import "github.com/samber/lo"

// Reference attribute encoders. Each mirrors the matching decode path
// and returns the reconstruction a decoder must reproduce exactly.

// encodeAttribute codes the attribute of cloud selected by desc and
// returns the payload, the contexts at its end and the reconstructed
// cloud.
func encodeAttribute(
	desc *AttributeDescription, aps *AttributeParams, abh *AttributeBrickHeader,
	ctx AttributeContexts, cloud *PointCloud,
) ([]byte, AttributeContexts, *PointCloud) {
	qpSet := DeriveQpSet(aps, abh)
	enc := NewResidualEncoder(ctx)

	var lods AttributeLods
	if aps.lodParametersPresent() {
		lods.Generate(aps, abh, cloud.Positions)
	}

	dims := desc.NumDimensions
	orig := make([][3]int64, cloud.Size())
	for i := range orig {
		if dims == 1 {
			orig[i][0] = int64(cloud.Reflectances[i])
		} else {
			for k := range 3 {
				orig[i][k] = int64(cloud.Colors[i][k])
			}
		}
	}

	var recon [][3]int64
	switch aps.Encoding {
	case PredictingTransform:
		recon = encodePred(desc, aps, &qpSet, &lods, cloud.Positions, orig, enc)
	case LiftingTransform:
		recon = encodeLift(desc, aps, &qpSet, &lods, cloud.Positions, orig, enc)
	case RAHTransform:
		recon = encodeRaht(desc, &qpSet, cloud.Positions, orig, enc)
	}

	out := NewPointCloud(cloud.Size())
	copy(out.Positions, cloud.Positions)
	if dims == 1 {
		out.AddReflectances()
		for i, r := range recon {
			out.Reflectances[i] = uint16(r[0])
		}
	} else {
		out.AddColors()
		for i, r := range recon {
			out.Colors[i] = [3]uint16{uint16(r[0]), uint16(r[1]), uint16(r[2])}
		}
	}
	return enc.Finish(), enc.Contexts(), out
}

// predSpread is the neighbour disagreement that decides whether a
// prediction mode is coded.
func predSpread(aps *AttributeParams, recon [][3]int64, indexes []uint32, p *Predictor, dims int) int64 {
	if p.NeighborCount <= 1 || aps.MaxNumDirectPredictors <= 0 {
		return 0
	}
	var spread int64
	for k := range dims {
		values := lo.Map(p.Neighbors[:p.NeighborCount], func(nb PredictorNeighbor, _ int) int64 {
			return recon[indexes[nb.PredictorIndex]][k]
		})
		spread = max(spread, lo.Max(values)-lo.Min(values))
	}
	return spread
}

func predict(p *Predictor, recon [][3]int64, indexes []uint32, dims int) [3]int64 {
	var predicted [3]int64
	if p.PredMode > 0 {
		return recon[indexes[p.Neighbors[p.PredMode-1].PredictorIndex]]
	}
	for i := 0; i < p.NeighborCount; i++ {
		nb := p.Neighbors[i]
		for k := range dims {
			predicted[k] += nb.Weight * recon[indexes[nb.PredictorIndex]][k]
		}
	}
	for k := range dims {
		predicted[k] = divExp2RoundHalfInf(predicted[k], predWeightShift)
	}
	return predicted
}

func encodePred(
	desc *AttributeDescription, aps *AttributeParams, qpSet *QpSet, lods *AttributeLods,
	positions [][3]int32, orig [][3]int64, enc *ResidualEncoder,
) [][3]int64 {
	dims := desc.NumDimensions
	indexes := lods.Indexes
	n := len(indexes)
	recon := make([][3]int64, len(orig))
	values := make([][3]int32, n)
	modes := make([]int, n)
	cursor := newQuantLayerCursor(qpSet, lods.NumPointsInLod)

	for pi, idx := range indexes {
		quant := qpSet.Quantizers(positions[idx], cursor.advance(pi))
		p := lods.Predictors[pi]
		p.PredMode = 0
		modes[pi] = -1
		if predSpread(aps, recon, indexes, &p, dims) >= int64(aps.AdaptivePredictionThresh) {
			best := int64(-1)
			for mode := 0; mode <= min(aps.MaxNumDirectPredictors, p.NeighborCount); mode++ {
				p.PredMode = mode
				predicted := predict(&p, recon, indexes, dims)
				var cost int64
				for k := range dims {
					cost += abs64(orig[idx][k] - predicted[k])
				}
				if best < 0 || cost < best {
					best, modes[pi] = cost, mode
				}
			}
			p.PredMode = modes[pi]
		}

		predicted := predict(&p, recon, indexes, dims)
		var residual0 int64
		for k := range dims {
			q := quant[min(k, 1)]
			v := q.Quantize((orig[idx][k] - predicted[k] - residual0) << attrShift)
			values[pi][k] = int32(v)
			residual := divExp2RoundHalfUp(q.Scale(v), attrShift)
			recon[idx][k] = clip(predicted[k]+residual+residual0, 0, desc.clipMax(k))
			if k == 0 && aps.InterComponentPrediction {
				residual0 = residual
			}
		}
	}

	w := enc.newZeroRunWriter(n, func(i int) bool { return values[i] == [3]int32{} })
	for pi := range n {
		if modes[pi] >= 0 {
			enc.EncodePredMode(modes[pi], aps.MaxNumDirectPredictors)
		}
		w.code(pi, func() {
			if dims == 1 {
				enc.Encode(values[pi][0])
			} else {
				enc.EncodeTriplet(values[pi])
			}
		})
	}
	return recon
}

// lastCompPredCoeffs is the per LoD coefficient pattern used when
// last component prediction is enabled.
func lastCompPredCoeffs(numLods int) []int8 {
	return lo.Times(numLods, func(l int) int8 { return []int8{1, 0, -1}[l%3] })
}

func encodeLift(
	desc *AttributeDescription, aps *AttributeParams, qpSet *QpSet, lods *AttributeLods,
	positions [][3]int32, orig [][3]int64, enc *ResidualEncoder,
) [][3]int64 {
	dims := desc.NumDimensions
	indexes := lods.Indexes
	npl := lods.NumPointsInLod
	n := len(indexes)
	weights := (&AttributeDecoder{lods: *lods}).liftingWeights(aps)

	attrs := make([][3]int64, n)
	for pi, idx := range indexes {
		for k := range dims {
			attrs[pi][k] = orig[idx][k] << attrShift
		}
	}
	liftForward(lods.Predictors, weights, npl, attrs, dims)

	var coeffs []int8
	if dims == 3 && aps.LastComponentPrediction {
		coeffs = lastCompPredCoeffs(len(npl))
		enc.EncodeLastCompPredCoeffs(coeffs)
	}

	values := make([][3]int32, n)
	dequantized := make([][3]int64, n)
	cursor := newQuantLayerCursor(qpSet, npl)
	lod := 0
	for pi, idx := range indexes {
		layer := cursor.advance(pi)
		if pi == npl[lod] {
			lod++
		}
		quant := qpSet.Quantizers(positions[idx], layer)
		w := weights[pi]

		v := quant[0].Quantize(liftWeighted(attrs[pi][0], w))
		values[pi][0] = int32(v)
		dequantized[pi][0] = liftDequantize(quant[0].Scale(v), w)
		if dims == 1 {
			continue
		}

		v1 := quant[1].Quantize(liftWeighted(attrs[pi][1], w))
		values[pi][1] = int32(v1)
		scaled := quant[1].Scale(v1)
		dequantized[pi][1] = liftDequantize(scaled, w)

		var coeff int64
		if coeffs != nil {
			coeff = int64(coeffs[lod])
		}
		scaled *= coeff
		v2 := quant[1].Quantize(liftWeighted(attrs[pi][2], w) - scaled)
		values[pi][2] = int32(v2)
		dequantized[pi][2] = liftDequantize(scaled+quant[1].Scale(v2), w)
	}

	w := enc.newZeroRunWriter(n, func(i int) bool { return values[i] == [3]int32{} })
	for pi := range n {
		w.code(pi, func() {
			if dims == 1 {
				enc.Encode(values[pi][0])
			} else {
				enc.EncodeTriplet(values[pi])
			}
		})
	}

	liftInverse(lods.Predictors, weights, npl, dequantized, dims)
	recon := make([][3]int64, len(orig))
	for pi, idx := range indexes {
		for k := range dims {
			recon[idx][k] = clip(divExp2RoundHalfInf(dequantized[pi][k], attrShift), 0, desc.clipMax(k))
		}
	}
	return recon
}

func encodeRaht(
	desc *AttributeDescription, qpSet *QpSet, positions [][3]int32, orig [][3]int64, enc *ResidualEncoder,
) [][3]int64 {
	dims := desc.NumDimensions
	packed, mortonCodes, qpOffsets := rahtOrder(qpSet, &PointCloud{Positions: positions})
	voxelCount := len(packed)

	attributes := make([]int64, dims*voxelCount)
	for n, p := range packed {
		for d := range dims {
			attributes[dims*n+d] = orig[p.index][d]
		}
	}
	coefficients := rahtForward(qpSet, qpOffsets, mortonCodes, attributes, dims)

	isZero := func(n int) bool {
		for d := range dims {
			if coefficients[d*voxelCount+n] != 0 {
				return false
			}
		}
		return true
	}
	w := enc.newZeroRunWriter(voxelCount, isZero)
	for n := range voxelCount {
		w.code(n, func() {
			if dims == 1 {
				enc.Encode(coefficients[n])
				return
			}
			var v [3]int32
			for d := range 3 {
				v[d] = coefficients[d*voxelCount+n]
			}
			enc.EncodeTriplet(v)
		})
	}

	decoded := rahtInverse(qpSet, qpOffsets, mortonCodes, coefficients, dims)
	recon := make([][3]int64, len(orig))
	for n, p := range packed {
		for d := range dims {
			recon[p.index][d] = clip(decoded[dims*n+d], 0, desc.clipMax(d))
		}
	}
	return recon
}
