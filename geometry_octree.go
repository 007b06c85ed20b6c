package gpcc

import (
	"math/bits"

	"go.uber.org/zap"
)

// Octree geometry coding
//
// The tree is walked breadth first, one level per entry of the QTBT node
// size plan. For every node the coder may, in order:
//   - code the node directly (IDCM) when it was found eligible, sending
//     up to two point positions bit by bit
//   - code planar flags and plane positions on the eligible axes
//   - code the occupancy byte bit by bit in the symmetry folded domain,
//     skipping the bits the planar masks rule out
//
// Children of occupied bits form the next level, with their neighbour
// patterns updated as they are created. Children of leaf size carry a
// point count instead. Decoding and encoding share the walk below; only
// the bin coder and the source of the coded values differ.

// GeometryContexts is the adaptive state of the geometry coder.
type GeometryContexts struct {
	ctxSinglePointPerBlock mqContext
	ctxPointCountPerBlock  [1]mqContext
	ctxDirectMode          mqContext
	ctxNumIdcmPointsGt1    mqContext
	ctxSingleIdcmDupPoint  mqContext
	ctxSameZ               mqContext
	ctxSameBitHigh         [3][5]mqContext
	ctxThetaRes            angularResidualContexts
	ctxPhiRes              angularResidualContexts

	ctxPlanarMode                     [3]mqContext
	ctxPlanarPlaneLastIndex           [3][4][6]mqContext
	ctxPlanarPlaneLastIndexAngular    [4]mqContext
	ctxPlanarPlaneLastIndexAngularPhi [8]mqContext

	ctxPlanarPlaneLastIndexAngularIdcm    [4]mqContext
	ctxPlanarPlaneLastIndexAngularPhiIdcm [8]mqContext

	ctxOccupancy [32]mqContext
	ctxIdxMaps   [18]*CtxMapOctreeOccupancy
}

// NewGeometryContexts returns the state used at the start of a slice.
func NewGeometryContexts() *GeometryContexts {
	c := &GeometryContexts{}
	for i := range c.ctxIdxMaps {
		c.ctxIdxMaps[i] = NewCtxMapOctreeOccupancy()
	}
	return c
}

// Clone returns a deep copy of c.
func (c *GeometryContexts) Clone() *GeometryContexts {
	out := *c
	for i, m := range c.ctxIdxMaps {
		out.ctxIdxMaps[i] = m.Clone()
	}
	return &out
}

// geometryBinCoder codes one bin in either direction. The encoder codes
// the given value and returns it; the decoder ignores it and returns the
// decoded value.
type geometryBinCoder interface {
	bin(ctx *mqContext, bit int) int
	bypassBits(v uint32, n int) uint32
	expGolomb(v uint32, k int, prefix []mqContext) uint32
}

type geometryBinDecoder struct{ mq *mqDecoder }

func (d geometryBinDecoder) bin(ctx *mqContext, _ int) int { return d.mq.Decode(ctx) }

func (d geometryBinDecoder) bypassBits(_ uint32, n int) uint32 { return d.mq.DecodeBypassBits(n) }

func (d geometryBinDecoder) expGolomb(_ uint32, k int, prefix []mqContext) uint32 {
	return d.mq.DecodeExpGolomb(k, prefix, nil)
}

type geometryBinEncoder struct{ mq *mqEncoder }

func (e geometryBinEncoder) bin(ctx *mqContext, bit int) int {
	e.mq.Encode(ctx, bit)
	return bit
}

func (e geometryBinEncoder) bypassBits(v uint32, n int) uint32 {
	e.mq.EncodeBypassBits(v, n)
	return v
}

func (e geometryBinEncoder) expGolomb(v uint32, k int, prefix []mqContext) uint32 {
	e.mq.EncodeExpGolomb(v, k, prefix, nil)
	return v
}

// octreeWalker holds the per-slice state of one geometry walk.
type octreeWalker struct {
	gps    *GeometryParams
	gbh    *GeometryBrickHeader
	ctx    *GeometryContexts
	coder  geometryBinCoder
	logger *zap.SugaredLogger

	planar  *PlanarState
	angular *angularState

	// src holds the points being encoded, reordered per node as the
	// walk descends. It is nil when decoding.
	src     [][3]int32
	scratch [][3]int32

	out       [][3]int32
	numIdcm   int
	truncated bool
}

func newOctreeWalker(
	gps *GeometryParams, gbh *GeometryBrickHeader, ctx *GeometryContexts, coder geometryBinCoder, logger *zap.SugaredLogger,
) *octreeWalker {
	w := &octreeWalker{
		gps:    gps,
		gbh:    gbh,
		ctx:    ctx,
		coder:  coder,
		logger: logger,
		planar: newPlanarState(gps),
		out:    make([][3]int32, 0, gbh.NumPoints),
	}
	w.planar.initPlanes(gbh.RootNodeSizeLog2)
	if gps.AngularEnabled {
		w.angular = newAngularState(&gps.Angular)
	}
	return w
}

func (w *octreeWalker) encoding() bool {
	return w.src != nil
}

// emit appends count copies of pos, reporting false once the slice
// point count would be exceeded.
func (w *octreeWalker) emit(pos [3]int32, count int) bool {
	for range count {
		if len(w.out) == w.gbh.NumPoints {
			w.truncated = true
			return false
		}
		w.out = append(w.out, pos)
	}
	return true
}

func clampSize(s [3]int) [3]int {
	return [3]int{max(s[0], 0), max(s[1], 0), max(s[2], 0)}
}

// run walks the whole tree.
func (w *octreeWalker) run() {
	if w.gbh.NumPoints == 0 {
		return
	}

	sizes := MkQtBtNodeSizeList(w.gps, w.gbh.RootNodeSizeLog2)
	root := OctreeNode{
		NumSiblingsPlus1: 8,
		LaserIndex:       laserIndexUnresolved,
		End:              uint32(len(w.src)),
	}
	if isLeafNode(sizes[0]) {
		w.codeLeaf(&root, root.Pos)
		return
	}

	queue := []OctreeNode{root}
	for depth := 0; depth+1 < len(sizes) && len(queue) > 0; depth++ {
		nodeSizeLog2 := clampSize(sizes[depth])
		childSizeLog2 := clampSize(sizes[depth+1])
		occupancySkip := nonSplitQtBtAxes(nodeSizeLog2, childSizeLog2)
		childIsLeaf := isLeafNode(childSizeLog2)

		siblingRestriction := w.gps.NeighbourAvailBoundaryLog2 == 0 ||
			occupancySkip != 0 || !isMortonOrdered(queue)

		next := make([]OctreeNode, 0, len(queue)*2)
		for i := range queue {
			node := &queue[i]
			if node.IdcmEligible && w.codeDirect(node, nodeSizeLog2) {
				if w.truncated {
					break
				}
				continue
			}

			occupancy, bounds := w.codeNode(node, nodeSizeLog2, childSizeLog2, occupancySkip)
			numOccupied := bits.OnesCount8(occupancy)
			if w.gps.PlanarEnabled {
				w.planar.updateRate(int(occupancy), numOccupied)
			}

			w.emitChildren(node, occupancy, bounds, nodeSizeLog2, childSizeLog2, childIsLeaf, siblingRestriction, &next)
			if w.truncated || len(next) > w.gbh.NumPoints {
				w.truncated = true
				break
			}
		}
		if w.truncated {
			w.logger.Warnw("geometry walk stopped early", "depth", depth, "points", len(w.out), "expected", w.gbh.NumPoints)
			return
		}
		queue = next
	}
	w.logger.Debugw("geometry walk done", "levels", len(sizes), "points", len(w.out), "idcmNodes", w.numIdcm)
}

// emitChildren creates the children of an occupied node.
func (w *octreeWalker) emitChildren(
	node *OctreeNode, occupancy uint8, bounds [9]uint32, nodeSizeLog2, childSizeLog2 [3]int,
	childIsLeaf, siblingRestriction bool, next *[]OctreeNode,
) {
	numOccupied := uint8(bits.OnesCount8(occupancy))
	for childIdx := range 8 {
		if occupancy&(1<<childIdx) == 0 {
			continue
		}
		child := OctreeNode{
			Start:            bounds[childIdx],
			End:              bounds[childIdx+1],
			NumSiblingsPlus1: numOccupied,
			SiblingOccupancy: occupancy,
			Qp:               node.Qp,
			LaserIndex:       node.LaserIndex,
		}
		for k := range 3 {
			bit := int32(childIdx>>(2-k)) & 1
			if childSizeLog2[k] != nodeSizeLog2[k] {
				child.Pos[k] = node.Pos[k]<<1 | bit
			} else {
				child.Pos[k] = node.Pos[k]
			}
		}

		if childIsLeaf {
			if !w.codeLeaf(&child, child.Pos) {
				return
			}
			continue
		}

		*next = append(*next, child)
		updateGeometryNeighState(siblingRestriction, *next, len(*next), childIdx, node.NeighPattern, occupancy)
		c := &(*next)[len(*next)-1]
		c.IdcmEligible = w.gps.InferredDirectCodingMode > 0 &&
			isDirectModeEligible(w.gps.InferredDirectCodingMode, maxDim(nodeSizeLog2), node, c)
	}
}

// partition reorders the points of node by child and returns the child
// bounds.
func (w *octreeWalker) partition(node *OctreeNode, bitpos [3]int) [9]uint32 {
	pts := w.src[node.Start:node.End]
	childOf := func(p [3]int32) int {
		c := 0
		for k := range 3 {
			c <<= 1
			if bitpos[k] != 0 && p[k]&int32(bitpos[k]) != 0 {
				c |= 1
			}
		}
		return c
	}

	var counts [8]int
	for _, p := range pts {
		counts[childOf(p)]++
	}
	var bounds [9]uint32
	bounds[0] = node.Start
	offsets := [8]int{}
	for i := range 8 {
		bounds[i+1] = bounds[i] + uint32(counts[i])
		offsets[i] = int(bounds[i] - node.Start)
	}

	w.scratch = append(w.scratch[:0], pts...)
	for _, p := range w.scratch {
		c := childOf(p)
		pts[offsets[c]] = p
		offsets[c]++
	}
	return bounds
}

// codeLeaf codes the point count of a leaf and emits its points.
func (w *octreeWalker) codeLeaf(node *OctreeNode, pos [3]int32) bool {
	count := 1
	if !w.gps.UniquePoints {
		count = int(node.End - node.Start)
		if w.coder.bin(&w.ctx.ctxSinglePointPerBlock, b2i(count > 1)) == 1 {
			count = 2 + int(w.coder.expGolomb(uint32(max(count-2, 0)), 0, w.ctx.ctxPointCountPerBlock[:]))
		}
	}
	return w.emit(pos, count)
}

// codeNode codes the planar information and occupancy of a node. When
// encoding it also returns the bounds of each child's points.
func (w *octreeWalker) codeNode(
	node *OctreeNode, nodeSizeLog2, childSizeLog2 [3]int, occupancySkip int,
) (uint8, [9]uint32) {
	var planar nodePlanar
	if w.gps.PlanarEnabled {
		planar = w.codePlanar(node, nodeSizeLog2, occupancySkip)
	}
	masks := maskPlanar(&planar, occupancySkip)

	var occupancy uint8
	var bounds [9]uint32
	if w.encoding() {
		bounds = w.partition(node, qtBtChildSize(nodeSizeLog2, childSizeLog2))
		for i := range 8 {
			if bounds[i+1] > bounds[i] {
				occupancy |= 1 << i
			}
		}
	}
	return w.codeOccupancy(node, occupancy, masks[0]|masks[1]|masks[2]), bounds
}

// codePlanar codes the planar mode and plane position of each eligible
// axis.
func (w *octreeWalker) codePlanar(node *OctreeNode, nodeSizeLog2 [3]int, occupancySkip int) nodePlanar {
	eligible := w.planar.isEligible()
	for k := range 3 {
		if occupancySkip&(4>>k) != 0 {
			eligible[k] = false
		}
	}

	var truth nodePlanar
	if w.encoding() {
		var sizeMinus1 [3]int
		for k := range 3 {
			sizeMinus1[k] = max(nodeSizeLog2[k]-1, 0)
		}
		truth.planarMode, truth.planePosBits = isPlanarNode(w.src[node.Start:node.End], sizeMinus1, eligible)
	}

	ac := angularContext{theta: -1, phiX: -1, phiY: -1, laser: -1}
	if w.angular != nil {
		ac = w.angular.contextForPlanar(node, nodeSizeLog2)
	}

	var planar nodePlanar
	for k := range 3 {
		if !eligible[k] {
			continue
		}
		planar.planarPossible |= 1 << k
		isPlanar := w.coder.bin(&w.ctx.ctxPlanarMode[k], int(truth.planarMode>>k&1))
		if isPlanar == 0 {
			w.planar.buffer.update(k, node.Pos, -1)
			continue
		}
		planar.planarMode |= 1 << k

		var ctx *mqContext
		switch {
		case k == 2 && ac.theta >= 0:
			ctx = &w.ctx.ctxPlanarPlaneLastIndexAngular[ac.theta]
		case k == 0 && ac.phiX >= 0:
			ctx = &w.ctx.ctxPlanarPlaneLastIndexAngularPhi[ac.phiX]
		case k == 1 && ac.phiY >= 0:
			ctx = &w.ctx.ctxPlanarPlaneLastIndexAngularPhi[ac.phiY]
		default:
			lastIdx, distClass := w.planar.buffer.planarContext(k, node.Pos)
			ctx = &w.ctx.ctxPlanarPlaneLastIndex[k][lastIdx][distClass]
		}
		planePos := w.coder.bin(ctx, int(truth.planePosBits>>k&1))
		planar.planePosBits |= uint8(planePos) << k
		w.planar.buffer.update(k, node.Pos, planePos)
	}

	if w.angular != nil {
		w.angular.recordPhi(ac)
	}
	return planar
}

// occupancyMapIndex selects the context map of a node from its
// neighbour count and sibling count.
func occupancyMapIndex(node *OctreeNode) int {
	siblingsClass := 2
	switch {
	case node.NumSiblingsPlus1 <= 1:
		siblingsClass = 0
	case node.NumSiblingsPlus1 <= 4:
		siblingsClass = 1
	}
	return min(bits.OnesCount8(node.NeighPattern), 5)*3 + siblingsClass
}

// codeOccupancy codes the occupancy byte of a node bit by bit after
// folding it by the neighbour pattern. Bits in impossible are known to be
// zero and are not coded; when every other bit is zero the last possible
// bit is inferred.
func (w *octreeWalker) codeOccupancy(node *OctreeNode, occupancy, impossible uint8) uint8 {
	pattern := node.NeighPattern
	mapped := mapGeometryOccupancy(occupancy, pattern)
	impossibleMapped := mapGeometryOccupancy(impossible, pattern)

	lastPossible := 7 - bits.LeadingZeros8(^impossibleMapped)
	reduced := int(neighPatternReduction(w.gps)[pattern])
	ctxMap := w.ctx.ctxIdxMaps[occupancyMapIndex(node)]

	var partial uint8
	numOccupied := 0
	for i := range 8 {
		if impossibleMapped&(1<<i) != 0 {
			continue
		}
		if i == lastPossible && partial == 0 {
			partial |= 1 << i
			break
		}
		entry := ctxMap.entry(i, occupancyMapKey(i, reduced, partial, numOccupied))
		bit := w.coder.bin(&w.ctx.ctxOccupancy[*entry>>3], int(mapped>>i&1))
		evolve(bit, entry)
		partial |= uint8(bit) << i
		numOccupied += bit
	}
	return mapGeometryOccupancyInv(partial, pattern)
}
