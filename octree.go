package gpcc

import (
	"math"
	"sort"
)

// maxNumDirectModePoints is the most distinct points a directly coded
// node may hold.
const maxNumDirectModePoints = 2

// laserIndexUnresolved marks a node whose laser is not yet known.
const laserIndexUnresolved = 255

// OctreeNode is a node of the geometry tree awaiting occupancy coding.
type OctreeNode struct {
	// Pos is the node origin in units of the node size.
	Pos [3]int32

	// Start and End delimit the node's points (encoder only).
	Start, End uint32

	// MortonIdx is the Morton code of Pos, set when neighbours are
	// searched outside the parent.
	MortonIdx int64

	// NeighPattern flags occupied face neighbours: bit 0 +x, 1 -x,
	// 2 -y, 3 +y, 4 -z, 5 +z.
	NeighPattern uint8

	// NumSiblingsPlus1 is the number of occupied children of the parent.
	NumSiblingsPlus1 uint8

	// SiblingOccupancy is the occupancy byte of the parent.
	SiblingOccupancy uint8

	IdcmEligible bool
	Qp           int8

	// LaserIndex is the laser through the node, or laserIndexUnresolved.
	LaserIndex uint8
}

// isLeafNode reports whether a node of the given size holds single
// positions. A dimension may be negative once its coding has finished.
func isLeafNode(sizeLog2 [3]int) bool {
	return sizeLog2[0] <= 0 && sizeLog2[1] <= 0 && sizeLog2[2] <= 0
}

// isDirectModeEligible reports whether child may be coded in direct
// mode. The intensity trades how aggressively sparse regions are
// short-cut.
func isDirectModeEligible(intensity, nodeSizeLog2 int, node, child *OctreeNode) bool {
	switch intensity {
	case 1:
		return nodeSizeLog2 >= 2 && node.NeighPattern == 0 &&
			child.NumSiblingsPlus1 == 1 && node.NumSiblingsPlus1 <= 2
	case 2:
		return nodeSizeLog2 >= 2 && node.NeighPattern == 0
	case 3:
		return nodeSizeLog2 >= 2 && child.NumSiblingsPlus1 > 1
	}
	return false
}

var neighParamMap = [3]struct {
	childIdxBitPos  int
	axis            int
	patternFlagUs   uint8
	patternFlagThem uint8
}{
	{4, 2, 1 << 1, 1 << 0}, // x
	{2, 1, 1 << 2, 1 << 3}, // y
	{1, 0, 1 << 4, 1 << 5}, // z
}

// updateGeometryNeighState sets the neighbour flags of the node just
// appended to queue, and of its lower neighbours along each axis.
// Siblings are resolved from the parent occupancy. Unless
// siblingRestriction is set, neighbours outside the parent are found by
// binary search over the last numNodesNextLvl nodes of queue, which must
// be in Morton order.
func updateGeometryNeighState(
	siblingRestriction bool,
	queue []OctreeNode,
	numNodesNextLvl int,
	childIdx int,
	neighPattern uint8,
	parentOccupancy uint8,
) {
	child := &queue[len(queue)-1]
	var midx int64
	if !siblingRestriction {
		midx = mortonAddr(child.Pos)
		child.MortonIdx = midx
	}

	for _, param := range neighParamMap {
		if childIdx&param.childIdxBitPos == 0 {
			if parentOccupancy&(1<<(childIdx+param.childIdxBitPos)) != 0 {
				child.NeighPattern |= param.patternFlagThem
			}
			// the parent has no neighbour on this side
			if neighPattern&param.patternFlagUs == 0 {
				continue
			}
		} else {
			if parentOccupancy&(1<<(childIdx-param.childIdxBitPos)) != 0 {
				child.NeighPattern |= param.patternFlagUs
			}
			continue
		}

		if siblingRestriction {
			continue
		}

		mortonIdxNeigh := morton3dAxisDec(midx, param.axis) & math.MaxInt64
		mortonDelta := midx - mortonIdxNeigh
		if mortonDelta < 0 {
			// first row, column or plane
			continue
		}

		end := len(queue) - 1
		start := len(queue) - int(min(int64(numNodesNextLvl), mortonDelta+2, int64(len(queue))))
		window := queue[start:end]
		found := sort.Search(len(window), func(i int) bool {
			return window[i].MortonIdx >= mortonIdxNeigh
		})
		if found == len(window) || window[found].MortonIdx != mortonIdxNeigh {
			continue
		}

		child.NeighPattern |= param.patternFlagUs
		window[found].NeighPattern |= param.patternFlagThem
	}
}

// isMortonOrdered reports whether the node positions are in Morton order.
func isMortonOrdered(nodes []OctreeNode) bool {
	prev := int64(-1)
	for i := range nodes {
		m := mortonAddr(nodes[i].Pos)
		if m < prev {
			return false
		}
		prev = m
	}
	return true
}

// qtBtChildSize returns the per-axis offset of the upper child, zero on
// axes that are not split.
func qtBtChildSize(nodeSizeLog2, childSizeLog2 [3]int) [3]int {
	var bitpos [3]int
	for k := range 3 {
		if childSizeLog2[k] != nodeSizeLog2[k] {
			bitpos[k] = 1 << childSizeLog2[k]
		}
	}
	return bitpos
}

// nonSplitQtBtAxes returns the axes that are not split as bits x=4,
// y=2, z=1.
func nonSplitQtBtAxes(nodeSizeLog2, childSizeLog2 [3]int) int {
	indicator := 0
	for k := range 3 {
		indicator <<= 1
		if nodeSizeLog2[k] == childSizeLog2[k] {
			indicator |= 1
		}
	}
	return indicator
}

func minDim(s [3]int) int { return min(s[0], s[1], s[2]) }
func maxDim(s [3]int) int { return max(s[0], s[1], s[2]) }

// oneQtBtDecision returns the child size of a node. Quadtree and binary
// splits of the largest dimensions are used while allowed, otherwise the
// node is split on every axis, except that angular coding may hold back
// the vertical axis.
func oneQtBtDecision(qtbt *QtBtParams, nodeSizeLog2 [3]int, maxNumQtbtBeforeOt, minDepthQtbt int) [3]int {
	maxNodeMinDimLog2ToSplitZ := qtbt.AngularMaxNodeMinDimLog2ToSplitV
	maxDiffToSplitZ := qtbt.AngularMaxDiffToSplitZ
	nodeMinDimLog2 := minDim(nodeSizeLog2)

	switch {
	case maxNumQtbtBeforeOt > 0 || nodeMinDimLog2 == minDepthQtbt:
		nodeMaxDimLog2 := maxDim(nodeSizeLog2)
		for k := range 3 {
			if nodeSizeLog2[k] == nodeMaxDimLog2 {
				nodeSizeLog2[k]--
			}
		}
	case qtbt.AngularTweakEnabled && minDepthQtbt >= 0 &&
		nodeSizeLog2[2] <= maxNodeMinDimLog2ToSplitZ &&
		maxNodeMinDimLog2ToSplitZ+maxDiffToSplitZ > 0:
		// hold back z
		nodeXYMaxDimLog2 := max(nodeSizeLog2[0], nodeSizeLog2[1])
		for k := range 2 {
			if nodeSizeLog2[k] == nodeXYMaxDimLog2 {
				nodeSizeLog2[k]--
			}
		}
		if (nodeMinDimLog2 <= maxNodeMinDimLog2ToSplitZ && nodeSizeLog2[2] >= nodeXYMaxDimLog2+maxDiffToSplitZ) ||
			(nodeXYMaxDimLog2 >= maxNodeMinDimLog2ToSplitZ+maxDiffToSplitZ && nodeSizeLog2[2] >= nodeXYMaxDimLog2) {
			nodeSizeLog2[2]--
		}
	default:
		for k := range 3 {
			nodeSizeLog2[k]--
		}
	}
	return nodeSizeLog2
}

// updateQtBtParameters bounds the QTBT limits by the root size.
func updateQtBtParameters(nodeSizeLog2 [3]int, trisoupEnabled bool, maxNumQtbtBeforeOt, minSizeQtbt *int) {
	nodeMinDimLog2 := minDim(nodeSizeLog2)
	nodeMaxDimLog2 := maxDim(nodeSizeLog2)

	*maxNumQtbtBeforeOt = min(*maxNumQtbtBeforeOt, nodeMaxDimLog2-nodeMinDimLog2)
	*minSizeQtbt = min(*minSizeQtbt, nodeMinDimLog2)
	if nodeMaxDimLog2 == nodeMinDimLog2 {
		*minSizeQtbt = 0
	}

	if trisoupEnabled {
		*maxNumQtbtBeforeOt = nodeMaxDimLog2 - nodeMinDimLog2
		*minSizeQtbt = 0
	}
}

// MkQtBtNodeSizeList returns the node size of every tree level, from the
// root to the first leaf size.
func MkQtBtNodeSizeList(gps *GeometryParams, rootNodeSizeLog2 [3]int) [][3]int {
	qtbt := &gps.QtBt
	nodeSizeLog2 := rootNodeSizeLog2
	sizes := [][3]int{nodeSizeLog2}

	maxNumQtbtBeforeOt := qtbt.MaxNumQtBtBeforeOt
	minSizeQtbt := qtbt.MinQtbtSizeLog2
	updateQtBtParameters(nodeSizeLog2, qtbt.TrisoupEnabled, &maxNumQtbtBeforeOt, &minSizeQtbt)

	for !isLeafNode(nodeSizeLog2) {
		if !gps.QtBtEnabled {
			for k := range 3 {
				nodeSizeLog2[k]--
			}
		} else {
			nodeSizeLog2 = oneQtBtDecision(qtbt, nodeSizeLog2, maxNumQtbtBeforeOt, minSizeQtbt)
		}
		sizes = append(sizes, nodeSizeLog2)

		if maxNumQtbtBeforeOt > 0 {
			maxNumQtbtBeforeOt--
		}

		// cubic from here on
		if nodeSizeLog2[0] == minSizeQtbt && nodeSizeLog2[0] == nodeSizeLog2[1] && nodeSizeLog2[1] == nodeSizeLog2[2] {
			minSizeQtbt = -1
		}
	}
	return sizes
}
