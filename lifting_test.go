package gpcc

import (
	"testing"

	"go.viam.com/test"
)

func chainPredictors() []Predictor {
	// point 1 predicts from 0; points 2 and 3 from 0 and 1
	return []Predictor{
		{},
		{Neighbors: [MaxNumPredictors]PredictorNeighbor{{PredictorIndex: 0, Weight: 256}}, NeighborCount: 1},
		{Neighbors: [MaxNumPredictors]PredictorNeighbor{{0, 128}, {1, 128}}, NeighborCount: 2},
		{Neighbors: [MaxNumPredictors]PredictorNeighbor{{1, 192}, {0, 64}}, NeighborCount: 2},
	}
}

func TestComputeQuantizationWeights(t *testing.T) {
	w := computeQuantizationWeights(chainPredictors())
	one := uint64(1) << weightShift
	// point 3 gives 3/4 to point 1 and 1/4 to point 0; point 2 halves
	test.That(t, w[3], test.ShouldEqual, one)
	test.That(t, w[2], test.ShouldEqual, one)
	test.That(t, w[1], test.ShouldEqual, one+one/2+3*one/4)
	test.That(t, w[0], test.ShouldEqual, one+one/2+one/4+w[1])
}

func TestComputeQuantizationWeightsScalable(t *testing.T) {
	w := computeQuantizationWeightsScalable([]int{1, 2, 4}, 4)
	one := uint64(1) << weightShift
	test.That(t, w, test.ShouldResemble, []uint64{4 * one, 2 * one, one, one})
}

func TestLiftingForwardInverse(t *testing.T) {
	predictors := chainPredictors()
	weights := computeQuantizationWeights(predictors)
	numPointsInLod := []int{1, 2, 4}

	signal := [][3]int64{{100 << attrShift, 7, -3}, {140 << attrShift, 9, 0}, {90 << attrShift, -5, 1000}, {200 << attrShift, 0, 1}}
	attrs := append([][3]int64(nil), signal...)

	liftForward(predictors, weights, numPointsInLod, attrs, 3)
	test.That(t, attrs, test.ShouldNotResemble, signal)
	liftInverse(predictors, weights, numPointsInLod, attrs, 3)
	test.That(t, attrs, test.ShouldResemble, signal)
}

func TestLiftingConstantSignalHasNoDetail(t *testing.T) {
	predictors := chainPredictors()
	weights := computeQuantizationWeights(predictors)
	attrs := [][3]int64{{50 << attrShift}, {50 << attrShift}, {50 << attrShift}, {50 << attrShift}}

	liftForward(predictors, weights, []int{1, 2, 4}, attrs, 1)
	test.That(t, attrs[0][0], test.ShouldEqual, int64(50<<attrShift))
	for _, a := range attrs[1:] {
		test.That(t, a[0], test.ShouldEqual, int64(0))
	}
}

func TestLiftDequantize(t *testing.T) {
	one := uint64(1) << weightShift
	test.That(t, liftDequantize(1000, one), test.ShouldEqual, int64(1000))
	test.That(t, liftDequantize(1000, 4*one), test.ShouldEqual, int64(500))
	test.That(t, liftWeighted(500, 4*one), test.ShouldEqual, int64(1000))
	test.That(t, liftWeighted(-300, one), test.ShouldEqual, int64(-300))
}
