package gpcc

import (
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/test"
)

func TestAxisOrderToXYZ(t *testing.T) {
	p := [3]int32{1, 2, 3}
	test.That(t, AxisOrderXYZ.ToXYZ(p), test.ShouldResemble, [3]int32{1, 2, 3})
	test.That(t, AxisOrderZYX.ToXYZ(p), test.ShouldResemble, [3]int32{3, 2, 1})
	test.That(t, AxisOrderXZY.ToXYZ(p), test.ShouldResemble, [3]int32{1, 3, 2})
	test.That(t, AxisOrderYZX.ToXYZ(p), test.ShouldResemble, [3]int32{3, 1, 2})
	test.That(t, AxisOrderZXY.ToXYZ(p), test.ShouldResemble, [3]int32{2, 3, 1})
	test.That(t, AxisOrderYXZ.ToXYZ(p), test.ShouldResemble, [3]int32{2, 1, 3})
}

func TestGeometryParamsValidate(t *testing.T) {
	valid := GeometryParams{
		PlanarEnabled:  true,
		AngularEnabled: true,
		Angular: AngularParams{
			ThetaLaser:    []int{-10, 0, 10},
			ZLaser:        []int{0, 0, 0},
			NumPhiPerTurn: []int{100, 100, 100},
		},
	}
	test.That(t, valid.Validate(), test.ShouldBeNil)

	bad := valid
	bad.PlanarEnabled = false
	bad.InferredDirectCodingMode = 4
	bad.AxisOrder = 9
	bad.PlanarThreshold = [3]int{0, 128, 0}
	bad.Angular.ThetaLaser = []int{10, 0}
	err := bad.Validate()
	test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
	// every violation is reported: idcm, axis order, threshold, sort,
	// table lengths, planar
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 6)

	header := GeometryBrickHeader{RootNodeSizeLog2: [3]int{22, 0, -1}, NumPoints: -1}
	test.That(t, multierr.Errors(header.Validate()), test.ShouldHaveLength, 3)
}

func TestAttributeParamsValidate(t *testing.T) {
	test.That(t, predParams().Validate(), test.ShouldBeNil)
	test.That(t, liftParams().Validate(), test.ShouldBeNil)
	raht := rahtParams()
	test.That(t, raht.Validate(), test.ShouldBeNil)

	// raht ignores the LoD fields
	raht.NumPredNearestNeighbours = 40
	test.That(t, raht.Validate(), test.ShouldBeNil)

	lift := liftParams()
	lift.IntraLodPrediction = true
	lift.LodSamplingPeriod = []int{1}
	lift.InitQp = 60
	err := lift.Validate()
	test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 3)

	pred := predParams()
	pred.MaxNumDirectPredictors = 4
	pred.NumDetailLevels = 0
	test.That(t, multierr.Errors(pred.Validate()), test.ShouldHaveLength, 2)

	desc := AttributeDescription{NumDimensions: 3, Bitdepth: 17}
	test.That(t, multierr.Errors(desc.Validate()), test.ShouldHaveLength, 2)
	test.That(t, colour10.clipMax(1), test.ShouldEqual, int64(1023))
	mixed := AttributeDescription{NumDimensions: 3, Bitdepth: 8, BitdepthSecondary: 10}
	test.That(t, mixed.clipMax(0), test.ShouldEqual, int64(255))
	test.That(t, mixed.clipMax(2), test.ShouldEqual, int64(1023))
}
