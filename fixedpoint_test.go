package gpcc

import (
	"math"
	"math/rand/v2"
	"testing"

	"go.viam.com/test"
)

func TestDivRounding(t *testing.T) {
	tests := []struct {
		x        int64
		n        int
		up, away int64
	}{
		{3, 1, 2, 2},
		{-3, 1, -1, -2},
		{5, 2, 1, 1},
		{6, 2, 2, 2},
		{-6, 2, -1, -2},
		{-7, 2, -2, -2},
		{9, 0, 9, 9},
	}
	for _, tt := range tests {
		test.That(t, divExp2RoundHalfUp(tt.x, tt.n), test.ShouldEqual, tt.up)
		test.That(t, divExp2RoundHalfInf(tt.x, tt.n), test.ShouldEqual, tt.away)
	}
	test.That(t, divRoundHalfInf(384, 256), test.ShouldEqual, int64(2))
	test.That(t, divRoundHalfInf(383, 256), test.ShouldEqual, int64(1))
	test.That(t, divRoundHalfInf(-384, 256), test.ShouldEqual, int64(-2))
	test.That(t, divRoundHalfInf(7, 3), test.ShouldEqual, int64(2))
	test.That(t, clip(-4, 0, 10), test.ShouldEqual, int64(0))
	test.That(t, clip(14, 0, 10), test.ShouldEqual, int64(10))
}

func TestSquareRoots(t *testing.T) {
	test.That(t, isqrt(0), test.ShouldEqual, uint64(0))
	test.That(t, isqrt(15), test.ShouldEqual, uint64(3))
	test.That(t, isqrt(16), test.ShouldEqual, uint64(4))
	test.That(t, isqrt(1<<64-1), test.ShouldEqual, uint64(1<<32-1))

	test.That(t, irsqrt(0), test.ShouldEqual, uint64(1<<40))
	test.That(t, irsqrt(1), test.ShouldEqual, uint64(1<<40))
	test.That(t, irsqrt(2), test.ShouldEqual, uint64(777472127993))
	test.That(t, irsqrt(3), test.ShouldEqual, uint64(634803334273))
	test.That(t, irsqrt(1<<16), test.ShouldEqual, uint64(1<<32))

	rng := rand.New(rand.NewPCG(81, 1))
	for range 1000 {
		a := rng.Uint64N(1<<50) + 2
		r := irsqrt(a)
		test.That(t, mulSquareLE(r, a), test.ShouldBeTrue)
		test.That(t, mulSquareLE(r+1, a), test.ShouldBeFalse)
	}
}

func TestIAtan2(t *testing.T) {
	test.That(t, iatan2(0, 0), test.ShouldEqual, 0)
	test.That(t, iatan2(1, 0), test.ShouldEqual, 1647099)
	test.That(t, iatan2(0, -1), test.ShouldEqual, 3294199)
	test.That(t, iatan2(-5, 5), test.ShouldEqual, -823550)

	t.Run("axes and diagonals", func(t *testing.T) {
		for _, s := range []int{1, 7, 1 << 20, 1<<20 + 1, 1 << 40} {
			test.That(t, iatan2(0, s), test.ShouldEqual, 0)
			test.That(t, iatan2(s, 0), test.ShouldEqual, angleHalfPi)
			test.That(t, iatan2(0, -s), test.ShouldEqual, anglePi)
			test.That(t, iatan2(-s, 0), test.ShouldEqual, -angleHalfPi)
			test.That(t, iatan2(s, s), test.ShouldEqual, 823550)
			test.That(t, iatan2(s, -s), test.ShouldEqual, 2470649)
			test.That(t, iatan2(-s, -s), test.ShouldEqual, -2470649)
			test.That(t, iatan2(-s, s), test.ShouldEqual, -823550)
		}
	})

	t.Run("large inputs", func(t *testing.T) {
		test.That(t, iatan2(1<<20, 1), test.ShouldEqual, 1647098)
		test.That(t, iatan2(1, 1<<20), test.ShouldEqual, 1)
		test.That(t, iatan2(3<<20, 4<<20), test.ShouldEqual, iatan2(3, 4))
		test.That(t, iatan2(3, 4), test.ShouldEqual, 674760)
	})

	rng := rand.New(rand.NewPCG(83, 1))
	for _, scale := range []int{16, 1 << 10, 1 << 21, 1 << 31} {
		for range 2000 {
			x, y := rng.IntN(2*scale+1)-scale, rng.IntN(2*scale+1)-scale
			if x == 0 && y == 0 {
				continue
			}
			a := iatan2(y, x)
			if y != 0 {
				test.That(t, iatan2(-y, x), test.ShouldEqual, -a)
			}
			test.That(t, float64(a), test.ShouldAlmostEqual, math.Atan2(float64(y), float64(x))*(1<<20), 3)
		}
	}

	// monotone in the first octant
	prev := iatan2(0, 1<<20)
	for y := 1; y <= 1<<20; y += 97 {
		a := iatan2(y, 1<<20)
		test.That(t, a, test.ShouldBeGreaterThanOrEqualTo, prev)
		prev = a
	}
}

func TestMorton(t *testing.T) {
	test.That(t, mortonAddr([3]int32{1, 0, 0}), test.ShouldEqual, int64(4))
	test.That(t, mortonAddr([3]int32{0, 1, 0}), test.ShouldEqual, int64(2))
	test.That(t, mortonAddr([3]int32{0, 0, 1}), test.ShouldEqual, int64(1))
	test.That(t, mortonAddr([3]int32{3, 0, 1}), test.ShouldEqual, int64(0b100101))

	rng := rand.New(rand.NewPCG(82, 1))
	for range 1000 {
		p := [3]int32{rng.Int32N(1 << 21), rng.Int32N(1 << 21), rng.Int32N(1 << 21)}
		test.That(t, mortonToPos(mortonAddr(p)), test.ShouldResemble, p)
	}

	m := mortonAddr([3]int32{5, 6, 7})
	test.That(t, morton3dAxisDec(m, 2), test.ShouldEqual, mortonAddr([3]int32{4, 6, 7}))
	test.That(t, morton3dAxisDec(m, 1), test.ShouldEqual, mortonAddr([3]int32{5, 5, 7}))
	test.That(t, morton3dAxisDec(m, 0), test.ShouldEqual, mortonAddr([3]int32{5, 6, 6}))
	test.That(t, morton3dAxisDec(mortonAddr([3]int32{0, 1, 1}), 2), test.ShouldBeGreaterThan, mortonAddr([3]int32{0, 1, 1}))
}

func TestMortonSortIsStable(t *testing.T) {
	positions := [][3]int32{{1, 1, 1}, {0, 0, 0}, {1, 1, 1}, {0, 0, 1}}
	sorted := mortonSort(positions)
	got := make([]int, len(sorted))
	for i, s := range sorted {
		got[i] = s.index
	}
	test.That(t, got, test.ShouldResemble, []int{1, 3, 0, 2})
}
