package gpcc

import (
	"testing"

	"go.viam.com/test"
)

func TestAzimuthalPhiZi(t *testing.T) {
	z := NewAzimuthalPhiZi([]int{1024, 2048})
	test.That(t, z.Delta(0), test.ShouldEqual, 6433)
	test.That(t, z.InvDelta(0), test.ShouldEqual, int64(166886))
	test.That(t, z.Delta(1), test.ShouldEqual, 3216)
	test.That(t, z.InvDelta(1), test.ShouldEqual, int64(333772))
}

func TestMinLaserDeltaAngle(t *testing.T) {
	test.That(t, minLaserDeltaAngle([]int{0, 100, 150}), test.ShouldEqual, 50)
	test.That(t, minLaserDeltaAngle([]int{-300, -100, 400}), test.ShouldEqual, 200)
	test.That(t, minLaserDeltaAngle([]int{7}), test.ShouldEqual, 128<<18)
}

func TestNearestLaser(t *testing.T) {
	lasers := []int{-100, 0, 100}
	tests := []struct {
		theta int
		want  int
	}{
		{-200, 0},
		{-50, 0}, // tie
		{-49, 1},
		{0, 1},
		{50, 1}, // tie
		{51, 2},
		{500, 2},
	}
	for _, tt := range tests {
		test.That(t, nearestLaser(lasers, tt.theta), test.ShouldEqual, tt.want)
	}
	test.That(t, nearestLaser([]int{10, 20}, 0), test.ShouldEqual, 0)
	test.That(t, nearestLaser([]int{10, 20}, 30), test.ShouldEqual, 1)
}

func TestFindLaser(t *testing.T) {
	lasers := []int{-65536, 0, 65536}
	test.That(t, findLaser([3]int32{100, 0, 0}, lasers), test.ShouldEqual, 1)
	// 45 degrees up and down
	test.That(t, findLaser([3]int32{100, 0, 100}, lasers), test.ShouldEqual, 2)
	test.That(t, findLaser([3]int32{0, -100, -100}, lasers), test.ShouldEqual, 0)
}

func newTestAngularState() *angularState {
	return newAngularState(&AngularParams{
		ThetaLaser:    []int{-65536, 0, 65536},
		ZLaser:        []int{0, 0, 0},
		NumPhiPerTurn: []int{1024, 1024, 1024},
	})
}

func TestAngularContextForPlanar(t *testing.T) {
	s := newTestAngularState()
	test.That(t, s.deltaAngle, test.ShouldEqual, 65536)
	test.That(t, s.phiBuffer, test.ShouldResemble, []int{phiUnset, phiUnset, phiUnset})

	child := &OctreeNode{Pos: [3]int32{100, 0, 0}, LaserIndex: laserIndexUnresolved}
	ac := s.contextForPlanar(child, [3]int{0, 0, 0})
	test.That(t, ac.laser, test.ShouldEqual, 1)
	test.That(t, child.LaserIndex, test.ShouldEqual, uint8(1))
	test.That(t, ac.theta, test.ShouldBeIn, 0, 1, 2, 3)
	// x dominates, so only the y plane gets an azimuth context
	test.That(t, ac.phiX, test.ShouldEqual, -1)
	test.That(t, ac.phiY, test.ShouldBeIn, 0, 1, 2, 3, 4, 5, 6, 7)

	c := s.Clone()
	s.recordPhi(ac)
	test.That(t, s.phiBuffer[1], test.ShouldEqual, ac.phiNode)
	test.That(t, c.phiBuffer[1], test.ShouldEqual, phiUnset)

	// the same node gives the same context once its azimuth is recorded
	again := s.contextForPlanar(child, [3]int{0, 0, 0})
	test.That(t, again.laser, test.ShouldEqual, ac.laser)
	test.That(t, again.phiNode, test.ShouldEqual, ac.phiNode)

	child = &OctreeNode{Pos: [3]int32{0, 100, 0}, LaserIndex: laserIndexUnresolved}
	ac = s.contextForPlanar(child, [3]int{0, 0, 0})
	test.That(t, ac.phiX, test.ShouldBeIn, 0, 1, 2, 3, 4, 5, 6, 7)
	test.That(t, ac.phiY, test.ShouldEqual, -1)
}

func TestAngularContextNodeTooTall(t *testing.T) {
	s := newTestAngularState()
	child := &OctreeNode{LaserIndex: laserIndexUnresolved}
	ac := s.contextForPlanar(child, [3]int{10, 10, 10})
	test.That(t, ac.theta, test.ShouldEqual, -1)
	test.That(t, ac.laser, test.ShouldEqual, -1)
	test.That(t, child.LaserIndex, test.ShouldEqual, uint8(laserIndexUnresolved))

	// nothing is recorded for an unresolved node
	s.recordPhi(ac)
	test.That(t, s.phiBuffer, test.ShouldResemble, []int{phiUnset, phiUnset, phiUnset})
}
