package gpcc

import (
	"math"
	"sort"
)

// phiUnset marks a laser with no azimuth seen yet.
const phiUnset = math.MinInt32

// k2pi is 2*pi in 2^-20 radian units.
const k2pi = 6588397

// AzimuthalPhiZi holds the azimuthal sampling step of each laser and its
// inverse in 2^30 fixed point.
type AzimuthalPhiZi struct {
	delta    []int
	invDelta []int64
}

// NewAzimuthalPhiZi derives the steps from the per-laser sample counts.
func NewAzimuthalPhiZi(numPhiPerTurn []int) AzimuthalPhiZi {
	z := AzimuthalPhiZi{
		delta:    make([]int, len(numPhiPerTurn)),
		invDelta: make([]int64, len(numPhiPerTurn)),
	}
	for i, n := range numPhiPerTurn {
		z.delta[i] = k2pi / n
		z.invDelta[i] = (int64(n) << 30) / k2pi
	}
	return z
}

// Delta returns the azimuth step of laser i.
func (z AzimuthalPhiZi) Delta(i int) int { return z.delta[i] }

// InvDelta returns the inverse azimuth step of laser i.
func (z AzimuthalPhiZi) InvDelta(i int) int64 { return z.invDelta[i] }

// minLaserDeltaAngle returns the smallest elevation gap between adjacent
// lasers.
func minLaserDeltaAngle(thetaLaser []int) int {
	deltaAngle := 128 << 18
	for i := 0; i+1 < len(thetaLaser); i++ {
		deltaAngle = min(deltaAngle, abs(thetaLaser[i]-thetaLaser[i+1]))
	}
	return deltaAngle
}

// nearestLaser returns the laser whose elevation is closest to theta32,
// the lower one on ties. thetaLaser must hold at least two sorted values.
func nearestLaser(thetaLaser []int, theta32 int) int {
	n := len(thetaLaser)
	i := 1 + sort.Search(n-2, func(j int) bool { return thetaLaser[1+j] > theta32 })
	if theta32-thetaLaser[i-1] <= thetaLaser[i]-theta32 {
		i--
	}
	return i
}

// findLaser returns the laser closest to a position relative to the
// sensor head.
func findLaser(point [3]int32, thetaLaser []int) int {
	xLidar := int64(point[0]) << 8
	yLidar := int64(point[1]) << 8
	rInv := int64(irsqrt(uint64(xLidar*xLidar + yLidar*yLidar)))
	theta32 := int((int64(point[2]) * rInv) >> 14)
	return nearestLaser(thetaLaser, theta32)
}

// angularState is the sensor model used to pick planar contexts.
type angularState struct {
	headPos    [3]int32
	thetaLaser []int
	zLaser     []int
	deltaAngle int
	phiZi      AzimuthalPhiZi

	// phiBuffer holds the last azimuth coded on each laser.
	phiBuffer []int
}

func newAngularState(a *AngularParams) *angularState {
	s := &angularState{
		headPos:    a.Origin,
		thetaLaser: a.ThetaLaser,
		zLaser:     a.ZLaser,
		deltaAngle: minLaserDeltaAngle(a.ThetaLaser),
		phiZi:      NewAzimuthalPhiZi(a.NumPhiPerTurn),
		phiBuffer:  make([]int, a.NumLasers()),
	}
	for i := range s.phiBuffer {
		s.phiBuffer[i] = phiUnset
	}
	return s
}

// Clone returns a copy of s with its own azimuth history.
func (s *angularState) Clone() *angularState {
	c := *s
	c.phiBuffer = append([]int(nil), s.phiBuffer...)
	return &c
}

// angularContext is the outcome of the sensor model for one node.
type angularContext struct {
	// theta is the elevation context 0..3, or -1 when the node is too
	// tall for its distance.
	theta int

	// phiX and phiY are azimuth contexts 0..7 for the x and y planes,
	// or -1 when unused.
	phiX, phiY int

	laser   int
	phiNode int
}

// contextForPlanar classifies child against its laser. It resolves and
// stores the child's laser index when needed.
func (s *angularState) contextForPlanar(child *OctreeNode, childSizeLog2 [3]int) angularContext {
	out := angularContext{theta: -1, phiX: -1, phiY: -1, laser: -1}

	var absPos, midNode [3]int64
	for k := range 3 {
		sz := max(childSizeLog2[k], 0)
		absPos[k] = int64(child.Pos[k]) << sz
		midNode[k] = 1 << max(sz-1, 0)
	}
	head := [3]int64{int64(s.headPos[0]), int64(s.headPos[1]), int64(s.headPos[2])}

	xLidar := uint64(abs64(((absPos[0] - head[0] + midNode[0]) << 8) - 128))
	yLidar := uint64(abs64(((absPos[1] - head[1] + midNode[1]) << 8) - 128))

	rL1 := (xLidar + yLidar) >> 1
	deltaAngleR := uint64(s.deltaAngle) * rL1
	if deltaAngleR <= uint64(midNode[2]<<26) {
		return out
	}

	rInv := int64(irsqrt(xLidar*xLidar + yLidar*yLidar))

	zLidar := ((absPos[2] - head[2] + midNode[2]) << 1) - 1
	theta32 := elevation(zLidar, rInv)

	laser := int(child.LaserIndex)
	if laser == laserIndexUnresolved || deltaAngleR <= uint64(midNode[2]<<(26+2)) {
		laser = nearestLaser(s.thetaLaser, theta32)
		child.LaserIndex = uint8(laser)
	}
	out.laser = laser

	// azimuth
	posx := int(absPos[0] - head[0])
	posy := int(absPos[1] - head[1])
	phiNode := iatan2(posy+int(midNode[1]), posx+int(midNode[0]))
	phiNode0 := iatan2(posy, posx)
	out.phiNode = phiNode

	predPhi := s.phiBuffer[laser]
	if predPhi == phiUnset {
		predPhi = phiNode
	}
	predPhi -= s.phiZi.Delta(laser) * s.phiSteps(laser, predPhi-phiNode)

	contextAnglePhi := phiContext(phiNode0-predPhi, phiNode-predPhi)
	if abs(posx) <= abs(posy) {
		out.phiX = contextAnglePhi
	} else {
		out.phiY = contextAnglePhi
	}

	// elevation
	zShift := int((rInv << max(childSizeLog2[2], 0)) >> 20)
	out.theta = s.thetaContext(laser, theta32, rInv, zShift)
	return out
}

// phiSteps returns the number of azimuth steps of laser in the angle d,
// rounded to nearest.
func (s *angularState) phiSteps(laser, d int) int {
	return int((int64(d)*s.phiZi.InvDelta(laser) + 1<<29) >> 30)
}

// phiContext classifies the predicted azimuth against the two bounds of
// a half interval, given the angles from the prediction to each bound.
func phiContext(angleL, angleR int) int {
	ctx := 0
	if (angleL >= 0 && angleR >= 0) || (angleL < 0 && angleR < 0) {
		ctx = 2
	}
	angleL, angleR = abs(angleL), abs(angleR)
	if angleL > angleR {
		ctx++
		angleL, angleR = angleR, angleL
	}
	if angleR > angleL<<2 {
		ctx += 4
	}
	return ctx
}

// thetaContext classifies the elevation theta32 of a split plane against
// laser. zShift is the elevation spanned by half the interval.
func (s *angularState) thetaContext(laser, theta32 int, rInv int64, zShift int) int {
	thetaLaserDelta := s.thetaLaser[laser] - theta32
	hr := int64(s.zLaser[laser]) * rInv
	if hr >= 0 {
		thetaLaserDelta -= int(hr >> 17)
	} else {
		thetaLaserDelta += int((-hr) >> 17)
	}

	ctx := 0
	if thetaLaserDelta < 0 {
		ctx = 1
	}
	if thetaLaserDelta-zShift >= 0 || thetaLaserDelta+zShift < 0 {
		ctx += 2
	}
	return ctx
}

// elevation returns the elevation of height z over the inverse radius
// rInv, with z in half units, in the laser table's 2^18 units.
func elevation(z2, rInv int64) int {
	theta := z2 * rInv
	if theta >= 0 {
		return int(theta >> 15)
	}
	return -int((-theta) >> 15)
}

// recordPhi stores the azimuth of a coded node as the predictor of its
// laser.
func (s *angularState) recordPhi(ac angularContext) {
	if ac.laser >= 0 {
		s.phiBuffer[ac.laser] = ac.phiNode
	}
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
