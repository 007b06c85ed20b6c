package gpcc

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// AttributeDecoder reconstructs the attributes of one slice. It keeps the
// LoD structure between calls so that attributes sharing LoD parameters
// reuse it.
type AttributeDecoder struct {
	lods   AttributeLods
	logger *zap.SugaredLogger
}

// NewAttributeDecoder returns a decoder logging to logger; nil disables
// logging.
func NewAttributeDecoder(logger *zap.SugaredLogger) *AttributeDecoder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AttributeDecoder{logger: logger}
}

// IsReusable reports whether the LoD structure held by the decoder serves
// aps and abh.
func (d *AttributeDecoder) IsReusable(aps *AttributeParams, abh *AttributeBrickHeader) bool {
	return d.lods.IsReusable(aps, abh)
}

// Lods returns the LoD structure of the last decoded attribute.
func (d *AttributeDecoder) Lods() *AttributeLods {
	return &d.lods
}

// Decode decodes one attribute of cloud from payload, starting from the
// contexts ctx. It returns the contexts at the end of the payload for use
// by a following slice.
func (d *AttributeDecoder) Decode(
	desc *AttributeDescription,
	aps *AttributeParams,
	abh *AttributeBrickHeader,
	payload []byte,
	ctx AttributeContexts,
	cloud *PointCloud,
) (AttributeContexts, error) {
	if err := multierr.Combine(desc.Validate(), aps.Validate(), abh.Validate()); err != nil {
		return ctx, errors.Wrap(err, "invalid attribute configuration")
	}
	if aps.ExperimentalColorFilter && desc.NumDimensions != 3 {
		return ctx, errors.Wrap(ErrInvalidConfig, "colour filter requires a 3 component attribute")
	}

	qpSet := DeriveQpSet(aps, abh)

	dec := NewResidualDecoder(ctx)
	dec.Start(payload)
	defer dec.Stop()

	if aps.lodParametersPresent() {
		reused := d.lods.IsReusable(aps, abh) && d.lods.numPoints == cloud.Size()
		if !reused {
			d.lods.Generate(aps, abh, cloud.Positions)
		}
		d.logger.Debugw("attribute lods",
			"reused", reused,
			"lods", len(d.lods.NumPointsInLod),
			"points", cloud.Size())
	}

	d.logger.Debugw("decoding attribute",
		"transform", aps.Encoding,
		"dims", desc.NumDimensions,
		"bytes", len(payload))

	switch desc.NumDimensions {
	case 1:
		cloud.AddReflectances()
		switch aps.Encoding {
		case RAHTransform:
			d.decodeReflectancesRaht(desc, &qpSet, dec, cloud)
		case PredictingTransform:
			d.decodeReflectancesPred(desc, aps, &qpSet, dec, cloud)
		case LiftingTransform:
			d.decodeReflectancesLift(desc, aps, &qpSet, dec, cloud)
		}
	case 3:
		cloud.AddColors()
		switch aps.Encoding {
		case RAHTransform:
			d.decodeColorsRaht(desc, &qpSet, dec, cloud)
		case PredictingTransform:
			if aps.ExperimentalColorFilter {
				d.decodeColorsPredFiltered(desc, aps, &qpSet, dec, cloud)
			} else {
				d.decodeColorsPred(desc, aps, &qpSet, dec, cloud)
			}
		case LiftingTransform:
			d.decodeColorsLift(desc, aps, &qpSet, dec, cloud)
		}
	default:
		panic(fmt.Sprintf("gpcc: unsupported attribute dimensionality %d", desc.NumDimensions))
	}

	return dec.Contexts(), nil
}

// computeReflectancePredMode selects the prediction mode of a point. A
// mode is only coded when the neighbours disagree by at least the
// adaptive threshold.
func computeReflectancePredMode(
	aps *AttributeParams, refl []uint16, indexes []uint32, predictor *Predictor, dec *ResidualDecoder,
) {
	predictor.PredMode = 0
	var maxDiff int64
	if predictor.NeighborCount > 1 && aps.MaxNumDirectPredictors > 0 {
		var minValue, maxValue int64
		for i := 0; i < predictor.NeighborCount; i++ {
			v := int64(refl[indexes[predictor.Neighbors[i].PredictorIndex]])
			if i == 0 || v < minValue {
				minValue = v
			}
			if i == 0 || v > maxValue {
				maxValue = v
			}
		}
		maxDiff = maxValue - minValue
	}
	if maxDiff >= int64(aps.AdaptivePredictionThresh) {
		predictor.PredMode = dec.DecodePredMode(aps.MaxNumDirectPredictors)
	}
}

// computeColorPredMode is computeReflectancePredMode over the largest
// per-component spread.
func computeColorPredMode(
	aps *AttributeParams, colors [][3]uint16, indexes []uint32, predictor *Predictor, dec *ResidualDecoder,
) {
	predictor.PredMode = 0
	var maxDiff int64
	if predictor.NeighborCount > 1 && aps.MaxNumDirectPredictors > 0 {
		var minValue, maxValue [3]int64
		for i := 0; i < predictor.NeighborCount; i++ {
			c := colors[indexes[predictor.Neighbors[i].PredictorIndex]]
			for k := range 3 {
				v := int64(c[k])
				if i == 0 || v < minValue[k] {
					minValue[k] = v
				}
				if i == 0 || v > maxValue[k] {
					maxValue[k] = v
				}
			}
		}
		maxDiff = max(maxValue[0]-minValue[0], maxValue[1]-minValue[1], maxValue[2]-minValue[2])
	}
	if maxDiff >= int64(aps.AdaptivePredictionThresh) {
		predictor.PredMode = dec.DecodePredMode(aps.MaxNumDirectPredictors)
	}
}

func (d *AttributeDecoder) decodeReflectancesPred(
	desc *AttributeDescription, aps *AttributeParams, qpSet *QpSet, dec *ResidualDecoder, cloud *PointCloud,
) {
	indexes := d.lods.Indexes
	maxReflectance := desc.clipMax(0)
	cursor := newQuantLayerCursor(qpSet, d.lods.NumPointsInLod)

	zeroCnt := dec.DecodeRunLength()
	for predictorIndex, pointIndex := range indexes {
		quantLayer := cursor.advance(predictorIndex)
		quant := qpSet.Quantizers(cloud.Positions[pointIndex], quantLayer)
		predictor := &d.lods.Predictors[predictorIndex]

		computeReflectancePredMode(aps, cloud.Reflectances, indexes, predictor, dec)
		var value int32
		if zeroCnt > 0 {
			zeroCnt--
		} else {
			value = dec.Decode()
			zeroCnt = dec.DecodeRunLength()
		}

		predicted := predictor.predictReflectance(cloud.Reflectances, indexes)
		delta := divExp2RoundHalfUp(quant[0].Scale(int64(value)), attrShift)
		cloud.Reflectances[pointIndex] = uint16(clip(predicted+delta, 0, maxReflectance))
	}
}

func (d *AttributeDecoder) decodeColorsPred(
	desc *AttributeDescription, aps *AttributeParams, qpSet *QpSet, dec *ResidualDecoder, cloud *PointCloud,
) {
	indexes := d.lods.Indexes
	cursor := newQuantLayerCursor(qpSet, d.lods.NumPointsInLod)

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

		predicted := predictor.predictColor(cloud.Colors, indexes)
		color := &cloud.Colors[pointIndex]
		var residual0 int64
		for k := range 3 {
			q := quant[min(k, 1)]
			residual := divExp2RoundHalfUp(q.Scale(int64(values[k])), attrShift)
			recon := predicted[k] + residual + residual0
			color[k] = uint16(clip(recon, 0, desc.clipMax(k)))
			if k == 0 && aps.InterComponentPrediction {
				residual0 = residual
			}
		}
	}
}

// liftingWeights returns the quantization weights of the LoD points.
func (d *AttributeDecoder) liftingWeights(aps *AttributeParams) []uint64 {
	if aps.ScalableLifting {
		return computeQuantizationWeightsScalable(d.lods.NumPointsInLod, len(d.lods.Indexes))
	}
	return computeQuantizationWeights(d.lods.Predictors)
}

func (d *AttributeDecoder) decodeReflectancesLift(
	desc *AttributeDescription, aps *AttributeParams, qpSet *QpSet, dec *ResidualDecoder, cloud *PointCloud,
) {
	indexes := d.lods.Indexes
	weights := d.liftingWeights(aps)
	cursor := newQuantLayerCursor(qpSet, d.lods.NumPointsInLod)
	reflectances := make([][3]int64, len(indexes))

	zeroCnt := dec.DecodeRunLength()
	for predictorIndex, pointIndex := range indexes {
		quantLayer := cursor.advance(predictorIndex)
		quant := qpSet.Quantizers(cloud.Positions[pointIndex], quantLayer)

		var detail int64
		if zeroCnt > 0 {
			zeroCnt--
		} else {
			detail = int64(dec.Decode())
			zeroCnt = dec.DecodeRunLength()
		}
		reflectances[predictorIndex][0] = liftDequantize(quant[0].Scale(detail), weights[predictorIndex])
	}

	liftInverse(d.lods.Predictors, weights, d.lods.NumPointsInLod, reflectances, 1)

	maxReflectance := desc.clipMax(0)
	for f, pointIndex := range indexes {
		refl := divExp2RoundHalfInf(reflectances[f][0], attrShift)
		cloud.Reflectances[pointIndex] = uint16(clip(refl, 0, maxReflectance))
	}
}

func (d *AttributeDecoder) decodeColorsLift(
	desc *AttributeDescription, aps *AttributeParams, qpSet *QpSet, dec *ResidualDecoder, cloud *PointCloud,
) {
	indexes := d.lods.Indexes
	numPointsInLod := d.lods.NumPointsInLod
	weights := d.liftingWeights(aps)
	cursor := newQuantLayerCursor(qpSet, numPointsInLod)
	colors := make([][3]int64, len(indexes))

	// per LoD coefficients {-1, 0, 1} predicting the last component
	lod := 0
	var lastCompPredCoeff int64
	var lastCompPredCoeffs []int8
	if aps.LastComponentPrediction {
		lastCompPredCoeffs = dec.DecodeLastCompPredCoeffs(len(numPointsInLod))
		lastCompPredCoeff = int64(lastCompPredCoeffs[0])
	}

	zeroCnt := dec.DecodeRunLength()
	for predictorIndex, pointIndex := range indexes {
		quantLayer := cursor.advance(predictorIndex)
		if predictorIndex == numPointsInLod[lod] {
			lod++
			if aps.LastComponentPrediction {
				lastCompPredCoeff = int64(lastCompPredCoeffs[lod])
			}
		}
		quant := qpSet.Quantizers(cloud.Positions[pointIndex], quantLayer)

		var values [3]int32
		if zeroCnt > 0 {
			zeroCnt--
		} else {
			values = dec.DecodeTriplet()
			zeroCnt = dec.DecodeRunLength()
		}

		w := weights[predictorIndex]
		color := &colors[predictorIndex]
		scaled := quant[0].Scale(int64(values[0]))
		color[0] = liftDequantize(scaled, w)

		scaled = quant[1].Scale(int64(values[1]))
		color[1] = liftDequantize(scaled, w)

		scaled *= lastCompPredCoeff
		scaled += quant[1].Scale(int64(values[2]))
		color[2] = liftDequantize(scaled, w)
	}

	liftInverse(d.lods.Predictors, weights, numPointsInLod, colors, 3)

	for f, pointIndex := range indexes {
		for k := range 3 {
			v := divExp2RoundHalfInf(colors[f][k], attrShift)
			cloud.Colors[pointIndex][k] = uint16(clip(v, 0, desc.clipMax(k)))
		}
	}
}

// rahtOrder returns the Morton order of the cloud, the Morton codes in
// that order and the region qp offset of each ordered point.
func rahtOrder(qpSet *QpSet, cloud *PointCloud) ([]mortonCodeWithIndex, []int64, [][2]int) {
	packed := mortonSort(cloud.Positions)
	mortonCodes := lo.Map(packed, func(m mortonCodeWithIndex, _ int) int64 {
		return m.mortonCode
	})
	qpOffsets := lo.Map(packed, func(m mortonCodeWithIndex, _ int) [2]int {
		return qpSet.RegionQpOffset(cloud.Positions[m.index])
	})
	return packed, mortonCodes, qpOffsets
}

func (d *AttributeDecoder) decodeReflectancesRaht(
	desc *AttributeDescription, qpSet *QpSet, dec *ResidualDecoder, cloud *PointCloud,
) {
	packed, mortonCodes, qpOffsets := rahtOrder(qpSet, cloud)
	voxelCount := len(packed)

	coefficients := make([]int32, voxelCount)
	zeroCnt := dec.DecodeRunLength()
	for n := range voxelCount {
		if zeroCnt > 0 {
			zeroCnt--
			continue
		}
		coefficients[n] = dec.Decode()
		zeroCnt = dec.DecodeRunLength()
	}

	attributes := rahtInverse(qpSet, qpOffsets, mortonCodes, coefficients, 1)

	maxReflectance := desc.clipMax(0)
	for n, p := range packed {
		cloud.Reflectances[p.index] = uint16(clip(attributes[n], 0, maxReflectance))
	}
}

func (d *AttributeDecoder) decodeColorsRaht(
	desc *AttributeDescription, qpSet *QpSet, dec *ResidualDecoder, cloud *PointCloud,
) {
	const attribCount = 3
	packed, mortonCodes, qpOffsets := rahtOrder(qpSet, cloud)
	voxelCount := len(packed)

	coefficients := make([]int32, attribCount*voxelCount)
	zeroCnt := dec.DecodeRunLength()
	for n := range voxelCount {
		if zeroCnt > 0 {
			zeroCnt--
			continue
		}
		values := dec.DecodeTriplet()
		zeroCnt = dec.DecodeRunLength()
		for k := range attribCount {
			coefficients[voxelCount*k+n] = values[k]
		}
	}

	attributes := rahtInverse(qpSet, qpOffsets, mortonCodes, coefficients, attribCount)

	for n, p := range packed {
		for k := range attribCount {
			v := attributes[attribCount*n+k]
			cloud.Colors[p.index][k] = uint16(clip(v, 0, desc.clipMax(k)))
		}
	}
}
