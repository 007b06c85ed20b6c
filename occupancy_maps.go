package gpcc

import "math/bits"

// Symmetry folding of occupancy patterns.
//
// A child index is x<<2 | y<<1 | z. The six neighbour flags of a node
// are, by bit: +x, -x, -y, +y, -z, +z. Before coding, the occupancy byte
// is permuted by a rotation chosen from the neighbour pattern so that
// symmetric neighbourhoods share contexts.

// cubeTransform is a signed axis permutation: output axis k takes input
// axis src[k] multiplied by sign[k].
type cubeTransform struct {
	src  [3]int
	sign [3]int
}

func (t cubeTransform) apply(v [3]int) [3]int {
	var out [3]int
	for k := range 3 {
		out[k] = t.sign[k] * v[t.src[k]]
	}
	return out
}

var (
	rotZ090      = cubeTransform{src: [3]int{1, 0, 2}, sign: [3]int{-1, 1, 1}}
	rotZ180      = cubeTransform{src: [3]int{0, 1, 2}, sign: [3]int{-1, -1, 1}}
	rotZ270      = cubeTransform{src: [3]int{1, 0, 2}, sign: [3]int{1, -1, 1}}
	mirrorXY     = cubeTransform{src: [3]int{0, 1, 2}, sign: [3]int{1, 1, -1}}
	rotY090      = cubeTransform{src: [3]int{2, 1, 0}, sign: [3]int{1, 1, -1}}
	rotY270      = cubeTransform{src: [3]int{2, 1, 0}, sign: [3]int{-1, 1, 1}}
	rotX090      = cubeTransform{src: [3]int{0, 2, 1}, sign: [3]int{1, -1, 1}}
	rotX270      = cubeTransform{src: [3]int{0, 2, 1}, sign: [3]int{1, 1, -1}}
	rotX270Y180  = cubeTransform{src: [3]int{0, 2, 1}, sign: [3]int{-1, 1, 1}}
	rotX090Y180  = cubeTransform{src: [3]int{0, 2, 1}, sign: [3]int{-1, -1, -1}}
	identityCube = cubeTransform{src: [3]int{0, 1, 2}, sign: [3]int{1, 1, 1}}
)

// occupancyPermutation returns the table mapping an occupancy byte
// through t.
func occupancyPermutation(t cubeTransform) [256]uint8 {
	var perm [8]int
	for i := range 8 {
		corner := [3]int{(i>>2&1)*2 - 1, (i>>1&1)*2 - 1, (i&1)*2 - 1}
		c := t.apply(corner)
		perm[i] = (c[0]+1)/2<<2 | (c[1]+1)/2<<1 | (c[2]+1)/2
	}
	var table [256]uint8
	for occ := range 256 {
		var out uint8
		for i := range 8 {
			if occ>>i&1 != 0 {
				out |= 1 << perm[i]
			}
		}
		table[occ] = out
	}
	return table
}

// neighbourDirs lists the unit direction of each neighbour flag.
var neighbourDirs = [6][3]int{
	{1, 0, 0}, {-1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1},
}

// transformNeighPattern maps a neighbour pattern through t.
func transformNeighPattern(t cubeTransform, pattern uint8) uint8 {
	var out uint8
	for b, dir := range neighbourDirs {
		if pattern>>b&1 == 0 {
			continue
		}
		d := t.apply(dir)
		for nb, ndir := range neighbourDirs {
			if d == ndir {
				out |= 1 << nb
			}
		}
	}
	return out
}

var (
	occMapRotateZ090     = occupancyPermutation(rotZ090)
	occMapRotateZ180     = occupancyPermutation(rotZ180)
	occMapRotateZ270     = occupancyPermutation(rotZ270)
	occMapMirrorXY       = occupancyPermutation(mirrorXY)
	occMapRotateY090     = occupancyPermutation(rotY090)
	occMapRotateY270     = occupancyPermutation(rotY270)
	occMapRotateX090     = occupancyPermutation(rotX090)
	occMapRotateX270     = occupancyPermutation(rotX270)
	occMapRotateX270Y180 = occupancyPermutation(rotX270Y180)
	occMapRotateX090Y180 = occupancyPermutation(rotX090Y180)
)

// Rotation ids per neighbour pattern. Each stage picks the candidate
// giving the smallest transformed pattern, the lowest id on ties.
var (
	occMapRotateZIdFromPatternXY [16]uint8
	occMapRotateYIdFromPattern   [64]uint8
	occMapRotateXIdFromPattern   [64]uint8
)

func init() {
	zCandidates := []cubeTransform{identityCube, rotZ090, rotZ180, rotZ270}
	for p := range 16 {
		occMapRotateZIdFromPatternXY[p] = uint8(argminPattern(zCandidates, uint8(p)))
	}

	yCandidates := []cubeTransform{identityCube, rotY270}
	xCandidates := []cubeTransform{identityCube, rotX090, rotX270Y180, rotX090Y180}
	for p := range 64 {
		pattern := uint8(p)
		zID := occMapRotateZIdFromPatternXY[p&15]
		pattern = transformNeighPattern(zCandidates[zID], pattern)
		if p&16 != 0 && p&32 == 0 {
			pattern = transformNeighPattern(mirrorXY, pattern)
		}
		yID := argminPattern(yCandidates, pattern)
		occMapRotateYIdFromPattern[p] = uint8(yID)
		pattern = transformNeighPattern(yCandidates[yID], pattern)
		occMapRotateXIdFromPattern[p] = uint8(argminPattern(xCandidates, pattern))
	}
}

func argminPattern(candidates []cubeTransform, pattern uint8) int {
	best, bestPattern := 0, transformNeighPattern(candidates[0], pattern)
	for i := 1; i < len(candidates); i++ {
		if tp := transformNeighPattern(candidates[i], pattern); tp < bestPattern {
			best, bestPattern = i, tp
		}
	}
	return best
}

// mapGeometryOccupancy folds occupancy into the canonical orientation of
// neighPattern.
func mapGeometryOccupancy(occupancy, neighPattern uint8) uint8 {
	switch occMapRotateZIdFromPatternXY[neighPattern&15] {
	case 1:
		occupancy = occMapRotateZ090[occupancy]
	case 2:
		occupancy = occMapRotateZ180[occupancy]
	case 3:
		occupancy = occMapRotateZ270[occupancy]
	}

	if neighPattern&16 != 0 && neighPattern&32 == 0 {
		occupancy = occMapMirrorXY[occupancy]
	}

	if occMapRotateYIdFromPattern[neighPattern] != 0 {
		occupancy = occMapRotateY270[occupancy]
	}

	switch occMapRotateXIdFromPattern[neighPattern] {
	case 1:
		occupancy = occMapRotateX090[occupancy]
	case 2:
		occupancy = occMapRotateX270Y180[occupancy]
	case 3:
		occupancy = occMapRotateX090Y180[occupancy]
	}
	return occupancy
}

// mapGeometryOccupancyInv undoes mapGeometryOccupancy.
func mapGeometryOccupancyInv(occupancy, neighPattern uint8) uint8 {
	switch occMapRotateXIdFromPattern[neighPattern] {
	case 1:
		occupancy = occMapRotateX270[occupancy]
	case 2:
		occupancy = occMapRotateX270Y180[occupancy]
	case 3:
		occupancy = occMapRotateX090Y180[occupancy]
	}

	if occMapRotateYIdFromPattern[neighPattern] != 0 {
		occupancy = occMapRotateY090[occupancy]
	}

	if neighPattern&16 != 0 && neighPattern&32 == 0 {
		occupancy = occMapMirrorXY[occupancy]
	}

	switch occMapRotateZIdFromPatternXY[neighPattern&15] {
	case 1:
		occupancy = occMapRotateZ270[occupancy]
	case 2:
		occupancy = occMapRotateZ180[occupancy]
	case 3:
		occupancy = occMapRotateZ090[occupancy]
	}
	return occupancy
}

// neighPattern64to6 reduces a pattern to its neighbour count, saturated
// at five.
var neighPattern64to6 [64]uint8

// neighPattern64to9 reduces a pattern to its neighbour count, splitting
// the counts two and four by whether the odd pair lies on one axis.
var neighPattern64to9 [64]uint8

func init() {
	for p := range 64 {
		n := bits.OnesCount8(uint8(p))
		neighPattern64to6[p] = uint8(min(n, 5))

		opposite := p&3 == 3 || p&12 == 12 || p&48 == 48
		missingOpposite := p&3 == 0 || p&12 == 0 || p&48 == 0
		var r uint8
		switch n {
		case 0, 1:
			r = uint8(n)
		case 2:
			r = 3
			if opposite {
				r = 2
			}
		case 3:
			r = 4
		case 4:
			r = 6
			if missingOpposite {
				r = 5
			}
		case 5:
			r = 7
		case 6:
			r = 8
		}
		neighPattern64to9[p] = r
	}
}

// neighPatternReduction selects the reduction table for a geometry
// configuration.
func neighPatternReduction(gps *GeometryParams) *[64]uint8 {
	if gps.NeighbourAvailBoundaryLog2 > 0 {
		return &neighPattern64to9
	}
	return &neighPattern64to6
}
