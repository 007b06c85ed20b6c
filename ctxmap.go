package gpcc

import "fmt"

// ctxMapSizes is the number of entries of the map of each occupancy bit.
var ctxMapSizes = [8]int{9, 18, 35, 68, 69, 134, 135, 136}

// ctxMapOffsets is the start of each bit's entries in the arena.
var ctxMapOffsets = func() [9]int {
	var off [9]int
	for i, n := range ctxMapSizes {
		off[i+1] = off[i] + n
	}
	return off
}()

// ctxMapOctreeOccupancyDelta is the adaptation step of a map entry,
// indexed by the distance to the saturating end in units of 16.
var ctxMapOctreeOccupancyDelta = [16]uint8{
	0, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
}

// CtxMapOctreeOccupancy maps (bit position, partial occupancy key) to an
// adaptive context selector. All entries live in one owned arena so that
// copies never alias.
type CtxMapOctreeOccupancy struct {
	arena []uint8
}

// NewCtxMapOctreeOccupancy returns a map with every entry at the
// equiprobable selector.
func NewCtxMapOctreeOccupancy() *CtxMapOctreeOccupancy {
	m := &CtxMapOctreeOccupancy{arena: make([]uint8, ctxMapOffsets[8])}
	for i := range m.arena {
		m.arena[i] = 127
	}
	return m
}

// Clone returns a deep copy of m.
func (m *CtxMapOctreeOccupancy) Clone() *CtxMapOctreeOccupancy {
	return &CtxMapOctreeOccupancy{arena: append([]uint8(nil), m.arena...)}
}

// Bit returns the entries of occupancy bit i.
func (m *CtxMapOctreeOccupancy) Bit(i int) []uint8 {
	return m.arena[ctxMapOffsets[i]:ctxMapOffsets[i+1]:ctxMapOffsets[i+1]]
}

// entry returns the selector of bit i for key.
func (m *CtxMapOctreeOccupancy) entry(i, key int) *uint8 {
	b := m.Bit(i)
	if key < 0 || key >= len(b) {
		panic(fmt.Sprintf("occupancy map key %d out of range for bit %d (size %d)", key, i, len(b)))
	}
	return &b[key]
}

// occupancyMapKey derives the map key of occupancy bit i from the reduced
// neighbour pattern (at most 8), the bits coded so far and their count.
// An isolated node is keyed by the count alone. Otherwise the first four
// bits see the whole partial byte and later bits only its top three or
// four coded bits.
func occupancyMapKey(i, reduced int, partial uint8, numOccupied int) int {
	if reduced == 0 {
		return numOccupied
	}
	if i < 4 {
		return (reduced-1)<<i + int(partial) + i + 1
	}
	shift := 4
	if i == 4 {
		shift = 3
	}
	return (reduced-1)<<shift + int(partial)>>(i-shift) + i + 1
}

// evolve returns the selector and moves it towards the observed bit.
func evolve(bit int, ctxIdx *uint8) uint8 {
	retval := *ctxIdx
	if bit != 0 {
		*ctxIdx += ctxMapOctreeOccupancyDelta[(255-*ctxIdx)>>4]
	} else {
		*ctxIdx -= ctxMapOctreeOccupancyDelta[*ctxIdx>>4]
	}
	return retval
}
