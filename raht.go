package gpcc

import "math/bits"

// Region-adaptive hierarchical transform.
//
// Points are visited in Morton order and merged pairwise, one binary
// level at a time, with the weighted Haar butterfly
//
//	low  =  a*x1 + b*x2      a = sqrt(w1/(w1+w2))
//	high = -b*x1 + a*x2      b = sqrt(w2/(w1+w2))
//
// The low coefficient stays in the slot of the first node and carries
// the merged weight up the tree; the high coefficient is final. After
// the last merge slot 0 holds the DC coefficient. The butterfly is
// orthonormal so the inverse replays the merges backwards with the
// transposed matrix.
//
// Values are kept in attrShift fixed point and the butterfly weights in
// rahtWeightShift fixed point; every product is rounded half away from
// zero.

const rahtWeightShift = 24

type rahtMerge struct {
	low, high int
	a, b      int64
}

// rahtWeight returns sqrt(w1/w) in rahtWeightShift fixed point, rounded
// down.
func rahtWeight(w1, w int64) int64 {
	hi, lo := bits.Mul64(uint64(w1), 1<<(2*rahtWeightShift))
	q, _ := bits.Div64(hi, lo, uint64(w))
	return int64(isqrt(q))
}

type rahtNode struct {
	key    int64
	slot   int
	weight int64
}

// rahtMerges returns the butterflies of Morton-sorted codes in forward
// order. Identical codes are merged at the first level.
func rahtMerges(mortonCodes []int64) []rahtMerge {
	if len(mortonCodes) < 2 {
		return nil
	}
	nodes := make([]rahtNode, len(mortonCodes))
	for i, code := range mortonCodes {
		nodes[i] = rahtNode{key: code, slot: i, weight: 1}
	}

	merges := make([]rahtMerge, 0, len(mortonCodes)-1)
	for len(nodes) > 1 {
		next := nodes[:0]
		for i := 0; i < len(nodes); {
			acc := nodes[i]
			acc.key >>= 1
			j := i + 1
			for ; j < len(nodes) && nodes[j].key>>1 == acc.key; j++ {
				w := acc.weight + nodes[j].weight
				merges = append(merges, rahtMerge{
					low:  acc.slot,
					high: nodes[j].slot,
					a:    rahtWeight(acc.weight, w),
					b:    rahtWeight(nodes[j].weight, w),
				})
				acc.weight += nodes[j].weight
			}
			next = append(next, acc)
			i = j
		}
		nodes = next
	}
	return merges
}

func rahtButterflies(merges []rahtMerge, x []int64) {
	for _, m := range merges {
		x1, x2 := x[m.low], x[m.high]
		x[m.low] = divExp2RoundHalfInf(m.a*x1+m.b*x2, rahtWeightShift)
		x[m.high] = divExp2RoundHalfInf(m.a*x2-m.b*x1, rahtWeightShift)
	}
}

func rahtButterfliesInv(merges []rahtMerge, x []int64) {
	for i := len(merges) - 1; i >= 0; i-- {
		m := merges[i]
		lo, hi := x[m.low], x[m.high]
		x[m.low] = divExp2RoundHalfInf(m.a*lo-m.b*hi, rahtWeightShift)
		x[m.high] = divExp2RoundHalfInf(m.b*lo+m.a*hi, rahtWeightShift)
	}
}

// rahtQuantizer returns the quantizer of component d of coefficient slot
// n. Transform-domain coefficients use the first qp layer.
func rahtQuantizer(set *QpSet, qpOffsets [][2]int, n, d int) Quantizer {
	c := min(d, 1)
	return NewQuantizer(set.Layers[0][c] + qpOffsets[n][c])
}

// rahtInverse reconstructs attributes from quantized coefficients.
// coefficients is laid out component-major (d*voxelCount + n); the
// result is point-major (dims*n + d), both in Morton order.
func rahtInverse(set *QpSet, qpOffsets [][2]int, mortonCodes []int64, coefficients []int32, dims int) []int64 {
	voxelCount := len(mortonCodes)
	merges := rahtMerges(mortonCodes)
	attributes := make([]int64, dims*voxelCount)
	x := make([]int64, voxelCount)
	for d := range dims {
		for n := range voxelCount {
			q := rahtQuantizer(set, qpOffsets, n, d)
			x[n] = q.Scale(int64(coefficients[d*voxelCount+n]))
		}
		rahtButterfliesInv(merges, x)
		for n := range voxelCount {
			attributes[dims*n+d] = divExp2RoundHalfInf(x[n], attrShift)
		}
	}
	return attributes
}

// rahtForward is the encoder counterpart of rahtInverse.
func rahtForward(set *QpSet, qpOffsets [][2]int, mortonCodes []int64, attributes []int64, dims int) []int32 {
	voxelCount := len(mortonCodes)
	merges := rahtMerges(mortonCodes)
	coefficients := make([]int32, dims*voxelCount)
	x := make([]int64, voxelCount)
	for d := range dims {
		for n := range voxelCount {
			x[n] = attributes[dims*n+d] << attrShift
		}
		rahtButterflies(merges, x)
		for n := range voxelCount {
			q := rahtQuantizer(set, qpOffsets, n, d)
			coefficients[d*voxelCount+n] = int32(q.Quantize(x[n]))
		}
	}
	return coefficients
}
