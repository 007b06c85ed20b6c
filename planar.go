package gpcc

// Planar mode tracks, per axis, how often occupied children lie in a
// single plane. On eligible axes the plane is coded ahead of the
// occupancy so that half of the occupancy bits become implicit.

const (
	planarBufferRowBits = 14
	planarBufferMaskC   = 1<<planarBufferRowBits - 1
	planarBufferMaskAb  = 1<<7 - 1
)

// planarElement remembers the last coded plane of a buffer row.
type planarElement struct {
	// a and b are the in-plane coordinates of the node.
	a, b uint8

	// planeIdx is -2 when unused, -1 when not planar, else the plane.
	planeIdx int8
}

// PlanarBuffer holds, per axis, one element per row along that axis.
type PlanarBuffer struct {
	arena []planarElement
	rows  [3][]planarElement
}

// resize allocates numRows rows per axis, capped at 2^14, all unused.
func (b *PlanarBuffer) resize(numRows [3]int) {
	size := 0
	for k := range 3 {
		numRows[k] = min(numRows[k], planarBufferMaskC+1)
		size += numRows[k]
	}
	b.arena = make([]planarElement, size)
	for i := range b.arena {
		b.arena[i].planeIdx = -2
	}
	off := 0
	for k := range 3 {
		b.rows[k] = b.arena[off : off+numRows[k] : off+numRows[k]]
		off += numRows[k]
	}
}

func (b *PlanarBuffer) enabled() bool {
	return b.arena != nil
}

// Clone returns a deep copy of b.
func (b *PlanarBuffer) Clone() PlanarBuffer {
	if b.arena == nil {
		return PlanarBuffer{}
	}
	c := PlanarBuffer{arena: append([]planarElement(nil), b.arena...)}
	off := 0
	for k := range 3 {
		n := len(b.rows[k])
		c.rows[k] = c.arena[off : off+n : off+n]
		off += n
	}
	return c
}

// planarBufferAxes gives, per axis, the two in-plane axes.
var planarBufferAxes = [3][2]int{{1, 2}, {0, 2}, {0, 1}}

// element returns the buffer row of pos along axis, or nil when the
// buffer is disabled.
func (b *PlanarBuffer) element(axis int, pos [3]int32) *planarElement {
	if !b.enabled() {
		return nil
	}
	row := b.rows[axis]
	return &row[int(pos[axis])&planarBufferMaskC%len(row)]
}

// planarDistClass buckets the L1 distance between a node and the last
// node coded in its row.
func planarDistClass(d int) int {
	switch {
	case d <= 1:
		return 0
	case d <= 2:
		return 1
	case d <= 4:
		return 2
	case d <= 8:
		return 3
	case d <= 16:
		return 4
	}
	return 5
}

// planarContext returns the plane index of the previous node in the row
// (as 0..3) and the distance class to it.
func (b *PlanarBuffer) planarContext(axis int, pos [3]int32) (lastIdx, distClass int) {
	e := b.element(axis, pos)
	if e == nil {
		return 0, 0
	}
	ab := planarBufferAxes[axis]
	a := int(pos[ab[0]]>>1) & planarBufferMaskAb
	bb := int(pos[ab[1]]>>1) & planarBufferMaskAb
	d := abs(a-int(e.a)) + abs(bb-int(e.b))
	return int(e.planeIdx) + 2, planarDistClass(d)
}

// update records the coded plane of a node: -1 when not planar.
func (b *PlanarBuffer) update(axis int, pos [3]int32, planeIdx int) {
	e := b.element(axis, pos)
	if e == nil {
		return
	}
	ab := planarBufferAxes[axis]
	e.a = uint8(int(pos[ab[0]]>>1) & planarBufferMaskAb)
	e.b = uint8(int(pos[ab[1]]>>1) & planarBufferMaskAb)
	e.planeIdx = int8(planeIdx)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// PlanarState is the adaptive planarity estimate of a slice.
type PlanarState struct {
	bufferEnabled bool
	buffer        PlanarBuffer

	rate          [3]int
	localDensity  int
	rateThreshold [3]int
}

func newPlanarState(gps *GeometryParams) *PlanarState {
	s := &PlanarState{
		bufferEnabled: gps.PlanarEnabled && !gps.PlanarBufferDisabled,
		rate:          [3]int{128 * 8, 128 * 8, 128 * 8},
		localDensity:  1024 * 4,
	}
	for k := range 3 {
		s.rateThreshold[k] = gps.PlanarThreshold[k] << 4
	}
	return s
}

// Clone returns a deep copy of s.
func (s *PlanarState) Clone() *PlanarState {
	c := *s
	c.buffer = s.buffer.Clone()
	return &c
}

// initPlanes sizes the planar buffer for a tree of the given per-axis
// depth.
func (s *PlanarState) initPlanes(depth [3]int) {
	if !s.bufferEnabled {
		return
	}
	s.buffer.resize([3]int{1 << depth[0], 1 << depth[1], 1 << depth[2]})
}

// updateRate folds the planarity of a coded occupancy byte into the
// running rates.
func (s *PlanarState) updateRate(occupancy, numSiblings int) {
	isPlanar := [3]bool{
		!(occupancy&0xf0 != 0 && occupancy&0x0f != 0),
		!(occupancy&0xcc != 0 && occupancy&0x33 != 0),
		!(occupancy&0x55 != 0 && occupancy&0xaa != 0),
	}
	for k := range 3 {
		planar := 0
		if isPlanar[k] {
			planar = 256 * 8
		}
		s.rate[k] = (255*s.rate[k] + planar + 128) >> 8
	}
	s.localDensity = (255*s.localDensity + 1024*numSiblings) >> 8
}

// isEligible returns the axes on which planar mode may be coded. The
// most planar axis is held to the first threshold, the next to the
// second and the least planar to the third.
func (s *PlanarState) isEligible() [3]bool {
	var eligible [3]bool
	if s.localDensity >= 3*1024 {
		return eligible
	}

	r := s.rate
	th := s.rateThreshold
	order := func(a, b, c int) {
		eligible[a] = r[a] >= th[0]
		if r[b] >= r[c] {
			eligible[b] = r[b] >= th[1]
			eligible[c] = r[c] >= th[2]
		} else {
			eligible[c] = r[c] >= th[1]
			eligible[b] = r[b] >= th[2]
		}
	}
	switch {
	case r[0] >= r[1] && r[0] >= r[2]:
		order(0, 1, 2)
	case r[1] >= r[0] && r[1] >= r[2]:
		order(1, 0, 2)
	default:
		order(2, 0, 1)
	}
	return eligible
}

// nodePlanar is the planar information of a node: one bit per axis,
// x in bit 0.
type nodePlanar struct {
	planarPossible uint8
	planarMode     uint8
	planePosBits   uint8
}

// isPlanarNode measures the planarity of a node from its points, which
// are given relative to the node origin.
func isPlanarNode(points [][3]int32, nodeSizeLog2Minus1 [3]int, eligible [3]bool) (planarMode, planePosBits uint8) {
	var occup [3]int
	for _, p := range points {
		for k := range 3 {
			if !eligible[k] {
				continue
			}
			if p[k]&(1<<nodeSizeLog2Minus1[k]) != 0 {
				occup[k] |= 2
			} else {
				occup[k] |= 1
			}
		}
	}
	for k := range 3 {
		if occup[k] != 3 {
			planarMode |= 1 << k
		}
		if occup[k] == 2 {
			planePosBits |= 1 << k
		}
	}
	return planarMode, planePosBits
}

// maskPlanar marks the axes that are not split as planar and returns,
// per axis, the children known to be empty.
func maskPlanar(planar *nodePlanar, occupancySkip int) [3]uint8 {
	possibleMask := [3]uint8{6, 5, 3}
	for k := range 3 {
		if occupancySkip&(4>>k) != 0 {
			planar.planarPossible |= 1 << k
			planar.planePosBits &= possibleMask[k]
			planar.planarMode |= 1 << k
		}
	}

	skipMask := [3]uint8{0xf0, 0xcc, 0xaa}
	lowMask := [3]uint8{0x0f, 0x33, 0x55}
	var mask [3]uint8
	for k := range 3 {
		switch {
		case occupancySkip&(4>>k) != 0:
			mask[k] = skipMask[k]
		case planar.planarMode&(1<<k) == 0:
		case planar.planePosBits&(1<<k) != 0:
			mask[k] = lowMask[k]
		default:
			mask[k] = skipMask[k]
		}
	}
	return mask
}
