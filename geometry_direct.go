package gpcc

import (
	"cmp"
	"slices"
)

// Direct (IDCM) position coding
//
// A directly coded node sends one or two distinct positions relative to
// its origin, most significant bit first. Two points are sorted, so the
// leading bits they share are sent once with a flag per bit and the first
// bit that differs is implied.
//
// Without a sensor model the remaining bits are bypass coded. In angular
// mode each point instead sends its laser as a residual to the laser of
// the node centre and, once that laser has a recorded azimuth, the number
// of azimuth steps from it. The x and y bits then take contexts from the
// predicted azimuth and the z bits from the laser elevation.

// angularResidualContexts code a small signed residual.
type angularResidualContexts struct {
	isZero, sign, isOne, isTwo mqContext
	exp                        [1]mqContext
}

// directPoint is a point of a directly coded node while its bits are
// coded.
type directPoint struct {
	rel  [3]uint32 // position relative to the node origin; encoder only
	val  [3]uint32 // bits coded so far
	left [3]int    // low bits still to code per axis
}

// next returns the encoder's value of the next bit of axis k.
func (p *directPoint) next(k int) int {
	return int(p.rel[k]>>(p.left[k]-1)) & 1
}

func (p *directPoint) push(k, bit int) {
	p.left[k]--
	p.val[k] |= uint32(bit) << p.left[k]
}

func (p *directPoint) bypassRest(c geometryBinCoder, k int) {
	if p.left[k] == 0 {
		return
	}
	p.val[k] |= c.bypassBits(p.rel[k]&(1<<p.left[k]-1), p.left[k])
	p.left[k] = 0
}

// codeDirect codes the direct mode flag of an eligible node and, when
// set, its point positions.
func (w *octreeWalker) codeDirect(node *OctreeNode, nodeSizeLog2 [3]int) bool {
	var distinct [][3]int32
	total := 0
	if w.encoding() {
		pts := w.src[node.Start:node.End]
		total = len(pts)
		for _, p := range pts {
			if !slices.Contains(distinct, p) {
				distinct = append(distinct, p)
			}
		}
	}
	direct := len(distinct) == 1 || (len(distinct) == maxNumDirectModePoints && total == maxNumDirectModePoints)
	if w.coder.bin(&w.ctx.ctxDirectMode, b2i(direct)) == 0 {
		return false
	}
	w.numIdcm++

	numPoints := 1
	if w.coder.bin(&w.ctx.ctxNumIdcmPointsGt1, b2i(len(distinct) > 1)) == 1 {
		numPoints = 2
	}

	var origin [3]int32
	for k := range 3 {
		origin[k] = node.Pos[k] << nodeSizeLog2[k]
	}

	slices.SortFunc(distinct, comparePosition)
	pts := make([]directPoint, numPoints)
	for i := range pts {
		pts[i].left = nodeSizeLog2
		if w.encoding() {
			for k := range 3 {
				pts[i].rel[k] = uint32(distinct[i][k] - origin[k])
			}
		}
	}

	if w.angular != nil {
		w.codeDirectAngular(pts, origin, nodeSizeLog2)
	} else {
		if numPoints == 2 {
			w.codeSharedHighBits(pts, 3)
		}
		for i := range pts {
			for k := range 3 {
				pts[i].bypassRest(w.coder, k)
			}
		}
	}

	count := 1
	if numPoints == 1 && !w.gps.UniquePoints {
		if w.coder.bin(&w.ctx.ctxSingleIdcmDupPoint, b2i(total > 1)) == 1 {
			count = 2 + int(w.coder.expGolomb(uint32(max(total-2, 0)), 0, w.ctx.ctxPointCountPerBlock[:]))
		}
	}

	for _, p := range pts {
		var pos [3]int32
		for k := range 3 {
			pos[k] = origin[k] + int32(p.val[k])
		}
		if !w.emit(pos, count) {
			break
		}
	}
	return true
}

// comparePosition orders positions by x, then y, then z.
func comparePosition(a, b [3]int32) int {
	for k := range 3 {
		if c := cmp.Compare(a[k], b[k]); c != 0 {
			return c
		}
	}
	return 0
}

// codeSharedHighBits codes the leading bits two sorted points have in
// common on the first axes, in axis order. It reports whether a differing
// bit was reached; from then on the points are coded separately.
func (w *octreeWalker) codeSharedHighBits(pts []directPoint, axes int) bool {
	p, q := &pts[0], &pts[1]
	for k := range axes {
		for j := 0; p.left[k] > 0; j++ {
			same := b2i(p.next(k) == q.next(k))
			if w.coder.bin(&w.ctx.ctxSameBitHigh[k][min(j, 4)], same) == 0 {
				p.push(k, 0)
				q.push(k, 1)
				return true
			}
			bit := int(w.coder.bypassBits(uint32(p.next(k)), 1))
			p.push(k, bit)
			q.push(k, bit)
		}
	}
	return false
}

// codeDirectAngular codes the positions of a direct node with the sensor
// model. Two points share their x and y high bits as in the plain case;
// their z may be sent once.
func (w *octreeWalker) codeDirectAngular(pts []directPoint, origin [3]int32, nodeSizeLog2 [3]int) {
	sameZ := false
	if len(pts) == 2 && w.codeSharedHighBits(pts, 2) {
		sameZ = w.coder.bin(&w.ctx.ctxSameZ, b2i(pts[0].rel[2] == pts[1].rel[2])) == 1
	}

	laser := 0
	for i := range pts {
		p := &pts[i]
		if i == 0 || !sameZ {
			laser = w.codeLaser(p, origin, nodeSizeLog2)
		}
		w.codeDirectAzimuth(p, origin, laser)
		if i > 0 && sameZ {
			p.val[2], p.left[2] = pts[0].val[2], 0
		} else {
			w.codeDirectElevation(p, origin, laser)
		}

		head := w.angular.headPos
		x := int(origin[0] + int32(p.val[0]) - head[0])
		y := int(origin[1] + int32(p.val[1]) - head[1])
		w.angular.phiBuffer[laser] = iatan2(y, x)
	}
}

// codeLaser codes the laser of p as a residual to the laser of the node
// centre and returns it.
func (w *octreeWalker) codeLaser(p *directPoint, origin [3]int32, nodeSizeLog2 [3]int) int {
	a := w.angular
	var centre [3]int32
	for k := range 3 {
		centre[k] = origin[k] + int32(1<<nodeSizeLog2[k]>>1) - a.headPos[k]
	}
	pred := findLaser(centre, a.thetaLaser)

	var res int
	if w.encoding() {
		var pos [3]int32
		for k := range 3 {
			pos[k] = origin[k] + int32(p.rel[k]) - a.headPos[k]
		}
		res = findLaser(pos, a.thetaLaser) - pred
	}
	res = w.codeAngularResidual(res, &w.ctx.ctxThetaRes)
	return max(0, min(pred+res, len(a.thetaLaser)-1))
}

// codeAngularResidual codes v as zero, sign, one, two, then an
// Exp-Golomb remainder.
func (w *octreeWalker) codeAngularResidual(v int, ctx *angularResidualContexts) int {
	if w.coder.bin(&ctx.isZero, b2i(v == 0)) == 1 {
		return 0
	}
	negative := w.coder.bin(&ctx.sign, b2i(v < 0)) == 1
	m := abs(v)
	mag := 1
	if w.coder.bin(&ctx.isOne, b2i(m == 1)) == 0 {
		mag = 2
		if w.coder.bin(&ctx.isTwo, b2i(m == 2)) == 0 {
			mag = 3 + int(w.coder.expGolomb(uint32(max(m-3, 0)), 0, ctx.exp[:]))
		}
	}
	if negative {
		return -mag
	}
	return mag
}

// directBox returns the lower corner of the interval still open for p,
// relative to the sensor head, and half its size per axis.
func (w *octreeWalker) directBox(p *directPoint, origin [3]int32) (low, half [3]int) {
	for k := range 3 {
		low[k] = int(origin[k] + int32(p.val[k]) - w.angular.headPos[k])
		if p.left[k] > 0 {
			half[k] = 1 << (p.left[k] - 1)
		}
	}
	return low, half
}

// codeDirectAzimuth codes the x and y bits of p. Once laser has a
// recorded azimuth, the whole number of steps from it to p is sent first
// and the bits of the axis across the azimuth take contexts from the
// predicted angle.
func (w *octreeWalker) codeDirectAzimuth(p *directPoint, origin [3]int32, laser int) {
	a := w.angular
	last := a.phiBuffer[laser]
	if last == phiUnset {
		p.bypassRest(w.coder, 0)
		p.bypassRest(w.coder, 1)
		return
	}

	low, half := w.directBox(p, origin)
	nPred := a.phiSteps(laser, iatan2(low[1]+half[1], low[0]+half[0])-last)
	var res int
	if w.encoding() {
		head := a.headPos
		x := int(origin[0] + int32(p.rel[0]) - head[0])
		y := int(origin[1] + int32(p.rel[1]) - head[1])
		res = a.phiSteps(laser, iatan2(y, x)-last) - nPred
	}
	res = w.codeAngularResidual(res, &w.ctx.ctxPhiRes)
	predPhi := last + (nPred+res)*a.phiZi.Delta(laser)

	for p.left[0] > 0 || p.left[1] > 0 {
		k := 0
		if p.left[1] > p.left[0] {
			k = 1
		}
		low, half = w.directBox(p, origin)
		if abs(low[k]+half[k]) > abs(low[1-k]+half[1-k]) {
			// the azimuth barely moves along this axis
			bit := int(w.coder.bypassBits(uint32(p.next(k)), 1))
			p.push(k, bit)
			continue
		}

		var phiL, phiR int
		if k == 0 {
			phiL = iatan2(low[1]+half[1], low[0])
			phiR = iatan2(low[1]+half[1], low[0]+half[0])
		} else {
			phiL = iatan2(low[1], low[0]+half[0])
			phiR = iatan2(low[1]+half[1], low[0]+half[0])
		}
		ctx := phiContext(phiL-predPhi, phiR-predPhi)
		bit := w.coder.bin(&w.ctx.ctxPlanarPlaneLastIndexAngularPhiIdcm[ctx], p.next(k))
		p.push(k, bit)
	}
}

// codeDirectElevation codes the z bits of p against the elevation of
// laser. The x and y bits must be known.
func (w *octreeWalker) codeDirectElevation(p *directPoint, origin [3]int32, laser int) {
	a := w.angular
	pos, _ := w.directBox(p, origin)
	xLidar := int64(pos[0]) << 8
	yLidar := int64(pos[1]) << 8
	rInv := int64(irsqrt(uint64(xLidar*xLidar + yLidar*yLidar)))

	for p.left[2] > 0 {
		low, half := w.directBox(p, origin)
		theta32 := elevation(int64(low[2]+half[2])<<1, rInv)
		zShift := int((rInv << (p.left[2] - 1)) >> 20)
		ctx := a.thetaContext(laser, theta32, rInv, zShift)
		bit := w.coder.bin(&w.ctx.ctxPlanarPlaneLastIndexAngularIdcm[ctx], p.next(2))
		p.push(2, bit)
	}
}
