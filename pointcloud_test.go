package gpcc

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPointCloudMetaData(t *testing.T) {
	pc := NewPointCloud(3)
	copy(pc.Positions, [][3]int32{{1, 5, -2}, {4, 0, 3}, {-1, 2, 2}})
	meta := pc.MetaData()
	test.That(t, meta.Min, test.ShouldResemble, r3.Vector{X: -1, Y: 0, Z: -2})
	test.That(t, meta.Max, test.ShouldResemble, r3.Vector{X: 4, Y: 5, Z: 3})
	test.That(t, meta.HasColor, test.ShouldBeFalse)

	pc.AddColors()
	test.That(t, pc.MetaData().HasColor, test.ShouldBeTrue)
	test.That(t, pc.HasReflectances(), test.ShouldBeFalse)
	test.That(t, NewPointCloud(0).HasColors(), test.ShouldBeFalse)
}

func TestPointCloudAppend(t *testing.T) {
	a := NewPointCloud(2)
	a.AddColors()
	a.AddReflectances()
	a.Colors[1] = [3]uint16{1, 2, 3}

	b := NewPointCloud(1)
	b.AddColors()
	b.Positions[0] = [3]int32{7, 7, 7}

	frame := NewPointCloud(0)
	frame.Append(a)
	test.That(t, frame.Size(), test.ShouldEqual, 2)
	test.That(t, frame.HasReflectances(), test.ShouldBeTrue)

	// reflectances are missing from b and so dropped
	frame.Append(b)
	test.That(t, frame.Size(), test.ShouldEqual, 3)
	test.That(t, frame.Colors, test.ShouldResemble, [][3]uint16{{}, {1, 2, 3}, {}})
	test.That(t, frame.Reflectances, test.ShouldBeNil)

	frame.Append(NewPointCloud(0))
	test.That(t, frame.Size(), test.ShouldEqual, 3)
	test.That(t, frame.HasColors(), test.ShouldBeTrue)
}
