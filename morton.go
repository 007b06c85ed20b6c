package gpcc

import "slices"

// mortonLane selects the bits of one axis in a 3-D Morton code (21 bits
// per axis). The x lane is the most significant bit of each triple.
const mortonLane = 0x1249249249249249

// splitBy3 spreads the low 21 bits of v so that two zero bits follow
// each one.
func splitBy3(v uint32) uint64 {
	x := uint64(v) & 0x1fffff
	x = (x | x<<32) & 0x1f00000000ffff
	x = (x | x<<16) & 0x1f0000ff0000ff
	x = (x | x<<8) & 0x100f00f00f00f00f
	x = (x | x<<4) & 0x10c30c30c30c30c3
	x = (x | x<<2) & 0x1249249249249249
	return x
}

// compact1By2 is the inverse of splitBy3.
func compact1By2(x uint64) uint32 {
	x &= 0x1249249249249249
	x = (x ^ (x >> 2)) & 0x10c30c30c30c30c3
	x = (x ^ (x >> 4)) & 0x100f00f00f00f00f
	x = (x ^ (x >> 8)) & 0x1f0000ff0000ff
	x = (x ^ (x >> 16)) & 0x1f00000000ffff
	x = (x ^ (x >> 32)) & 0x1fffff
	return uint32(x)
}

// mortonAddr interleaves a position into a Morton code with the
// bit order (x, y, z) in each triple.
func mortonAddr(pos [3]int32) int64 {
	return int64(splitBy3(uint32(pos[0]))<<2 | splitBy3(uint32(pos[1]))<<1 | splitBy3(uint32(pos[2])))
}

// mortonToPos is the inverse of mortonAddr.
func mortonToPos(m int64) [3]int32 {
	u := uint64(m)
	return [3]int32{int32(compact1By2(u >> 2)), int32(compact1By2(u >> 1)), int32(compact1By2(u))}
}

// morton3dAxisDec decrements the coordinate held in the given lane
// (2 = x, 1 = y, 0 = z). Decrementing a zero coordinate yields a code
// greater than the input.
func morton3dAxisDec(m int64, lane int) int64 {
	mask := uint64(mortonLane) << lane
	u := uint64(m)
	return int64(((u&mask)-(1<<lane))&mask | u&^mask)
}

// mortonCodeWithIndex pairs a point index with its Morton code.
type mortonCodeWithIndex struct {
	mortonCode int64
	index      int
}

// mortonSort returns the point indices ordered by Morton code; ties keep
// input order.
func mortonSort(positions [][3]int32) []mortonCodeWithIndex {
	packed := make([]mortonCodeWithIndex, len(positions))
	for n, pos := range positions {
		packed[n] = mortonCodeWithIndex{mortonCode: mortonAddr(pos), index: n}
	}
	slices.SortStableFunc(packed, func(a, b mortonCodeWithIndex) int {
		switch {
		case a.mortonCode < b.mortonCode:
			return -1
		case a.mortonCode > b.mortonCode:
			return 1
		}
		return 0
	})
	return packed
}
