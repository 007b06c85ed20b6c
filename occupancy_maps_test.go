package gpcc

import (
	"math/bits"
	"testing"

	"go.viam.com/test"
)

func TestOccupancyPermutationsAreBijections(t *testing.T) {
	tables := map[string][256]uint8{
		"rotZ090":     occMapRotateZ090,
		"rotZ180":     occMapRotateZ180,
		"rotZ270":     occMapRotateZ270,
		"mirrorXY":    occMapMirrorXY,
		"rotY090":     occMapRotateY090,
		"rotY270":     occMapRotateY270,
		"rotX090":     occMapRotateX090,
		"rotX270":     occMapRotateX270,
		"rotX270Y180": occMapRotateX270Y180,
		"rotX090Y180": occMapRotateX090Y180,
	}
	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			var seen [256]bool
			for occ, mapped := range table {
				test.That(t, seen[mapped], test.ShouldBeFalse)
				seen[mapped] = true
				test.That(t, bits.OnesCount8(mapped), test.ShouldEqual, bits.OnesCount8(uint8(occ)))
			}
		})
	}
}

func TestOccupancyRotationInverses(t *testing.T) {
	for occ := range 256 {
		o := uint8(occ)
		test.That(t, occMapRotateZ270[occMapRotateZ090[o]], test.ShouldEqual, o)
		test.That(t, occMapRotateZ180[occMapRotateZ180[o]], test.ShouldEqual, o)
		test.That(t, occMapMirrorXY[occMapMirrorXY[o]], test.ShouldEqual, o)
		test.That(t, occMapRotateY090[occMapRotateY270[o]], test.ShouldEqual, o)
		test.That(t, occMapRotateX270[occMapRotateX090[o]], test.ShouldEqual, o)
		test.That(t, occMapRotateX270Y180[occMapRotateX270Y180[o]], test.ShouldEqual, o)
		test.That(t, occMapRotateX090Y180[occMapRotateX090Y180[o]], test.ShouldEqual, o)
	}
}

func TestMapGeometryOccupancyInverse(t *testing.T) {
	for pattern := range 64 {
		for occ := range 256 {
			mapped := mapGeometryOccupancy(uint8(occ), uint8(pattern))
			if got := mapGeometryOccupancyInv(mapped, uint8(pattern)); got != uint8(occ) {
				t.Fatalf("pattern %#x occupancy %#x: inverse gave %#x", pattern, occ, got)
			}
		}
	}
}

func TestMapGeometryOccupancyCanonicalises(t *testing.T) {
	test.That(t, occMapRotateZIdFromPatternXY[0], test.ShouldEqual, uint8(0))

	// -z only and +z only fold onto the same neighbourhood
	test.That(t, mapGeometryOccupancy(0x0f, 16), test.ShouldEqual, mapGeometryOccupancy(occMapMirrorXY[0x0f], 32))

	// with no neighbours nothing moves
	for occ := range 256 {
		test.That(t, mapGeometryOccupancy(uint8(occ), 0), test.ShouldEqual, uint8(occ))
	}

	// patterns equal up to a z rotation share a canonical xy pattern
	xy := func(p uint8) uint8 {
		return transformNeighPattern([]cubeTransform{identityCube, rotZ090, rotZ180, rotZ270}[occMapRotateZIdFromPatternXY[p]], p)
	}
	test.That(t, xy(1), test.ShouldEqual, xy(2))
	test.That(t, xy(4), test.ShouldEqual, xy(8))
	test.That(t, xy(1), test.ShouldEqual, xy(8))
}

func TestTransformNeighPatternKeepsCount(t *testing.T) {
	transforms := []cubeTransform{
		rotZ090, rotZ180, rotZ270, mirrorXY, rotY090, rotY270,
		rotX090, rotX270, rotX270Y180, rotX090Y180, identityCube,
	}
	for _, tr := range transforms {
		for p := range 64 {
			got := transformNeighPattern(tr, uint8(p))
			test.That(t, bits.OnesCount8(got), test.ShouldEqual, bits.OnesCount8(uint8(p)))
		}
	}
}

func TestNeighPatternReduction(t *testing.T) {
	tests := []struct {
		pattern uint8
		six     uint8
		nine    uint8
	}{
		{0, 0, 0},
		{1, 1, 1},
		{3, 2, 2},  // +x and -x
		{5, 2, 3},  // +x and -y
		{7, 3, 4},
		{15, 4, 5}, // no z neighbours
		{0x3c, 4, 5},
		{0x1b, 4, 6},
		{0x3e, 5, 7},
		{0x3f, 5, 8},
	}
	for _, tt := range tests {
		test.That(t, neighPattern64to6[tt.pattern], test.ShouldEqual, tt.six)
		test.That(t, neighPattern64to9[tt.pattern], test.ShouldEqual, tt.nine)
	}

	gps := &GeometryParams{}
	test.That(t, neighPatternReduction(gps), test.ShouldEqual, &neighPattern64to6)
	gps.NeighbourAvailBoundaryLog2 = 3
	test.That(t, neighPatternReduction(gps), test.ShouldEqual, &neighPattern64to9)
}

func TestCtxMapOctreeOccupancy(t *testing.T) {
	m := NewCtxMapOctreeOccupancy()
	for i := range 8 {
		b := m.Bit(i)
		test.That(t, len(b), test.ShouldEqual, ctxMapSizes[i])
		for _, v := range b {
			test.That(t, v, test.ShouldEqual, uint8(127))
		}
	}

	c := m.Clone()
	entry := m.entry(3, 67)
	test.That(t, evolve(1, entry), test.ShouldEqual, uint8(127))
	test.That(t, *entry, test.ShouldBeGreaterThan, uint8(127))
	// the clone keeps its own storage
	test.That(t, *c.entry(3, 67), test.ShouldEqual, uint8(127))
	test.That(t, *m.entry(3, 0), test.ShouldEqual, uint8(127))
	test.That(t, *m.entry(4, 0), test.ShouldEqual, uint8(127))

	// keys past a bit's table are rejected rather than folded
	test.That(t, func() { m.entry(2, 35) }, test.ShouldPanic)
	test.That(t, func() { m.entry(3, 68) }, test.ShouldPanic)
	test.That(t, func() { m.entry(0, -1) }, test.ShouldPanic)

	// selectors saturate without wrapping
	v := uint8(0)
	for range 1000 {
		evolve(1, &v)
	}
	test.That(t, v, test.ShouldBeGreaterThan, uint8(200))
	for range 1000 {
		evolve(0, &v)
	}
	test.That(t, v, test.ShouldBeLessThan, uint8(50))

	// writes to one bit never reach its neighbour
	for i := range 8 {
		b := m.Bit(i)
		test.That(t, cap(b), test.ShouldEqual, len(b))
	}
}

func TestOccupancyMapKeyRange(t *testing.T) {
	for i := range 8 {
		seen := map[int][3]int{}
		for reduced := range 9 {
			for p := range 1 << i {
				partial := uint8(p)
				n := bits.OnesCount8(partial)
				key := occupancyMapKey(i, reduced, partial, n)
				test.That(t, key, test.ShouldBeGreaterThanOrEqualTo, 0)
				test.That(t, key, test.ShouldBeLessThan, ctxMapSizes[i])
				if reduced > 0 {
					// distinct neighbourhoods never share an entry
					if prev, ok := seen[key]; ok {
						test.That(t, prev[0], test.ShouldEqual, reduced)
					}
					seen[key] = [3]int{reduced, p, n}
				}
			}
		}
		// isolated nodes use the low entries, below every other key
		test.That(t, occupancyMapKey(i, 1, 0, 0), test.ShouldEqual, i+1)
		test.That(t, occupancyMapKey(i, 0, 0, i), test.ShouldEqual, i)
	}

	// the largest key of each bit is its last entry
	test.That(t, occupancyMapKey(3, 8, 7, 3), test.ShouldEqual, 67)
	test.That(t, occupancyMapKey(7, 8, 127, 7), test.ShouldEqual, 135)
}
