package gpcc

import (
	"math"
	"math/bits"
)

// Fixed-point conventions shared by the attribute transforms.
const (
	// attrShift is the fractional precision of attribute values inside
	// the transforms.
	attrShift = 8

	// weightShift is the fractional precision of lifting quantization
	// weights.
	weightShift = 16

	// predWeightShift is the fractional precision of predictor weights;
	// the weights of one predictor sum to 1 << predWeightShift.
	predWeightShift = 8
)

// divExp2RoundHalfUp divides x by 2^n, rounding halves towards +inf.
func divExp2RoundHalfUp(x int64, n int) int64 {
	if n == 0 {
		return x
	}
	return (x + 1<<(n-1)) >> n
}

// divExp2RoundHalfInf divides x by 2^n, rounding halves away from zero.
func divExp2RoundHalfInf(x int64, n int) int64 {
	if n == 0 {
		return x
	}
	if x >= 0 {
		return (x + 1<<(n-1)) >> n
	}
	return -((-x + 1<<(n-1)) >> n)
}

// divRoundHalfInf divides x by d > 0, rounding halves away from zero.
func divRoundHalfInf(x, d int64) int64 {
	if x >= 0 {
		return (2*x + d) / (2 * d)
	}
	return -((-2*x + d) / (2 * d))
}

func clip(x, lo, hi int64) int64 {
	return max(lo, min(x, hi))
}

// isqrt returns floor(sqrt(x)).
func isqrt(x uint64) uint64 {
	r := min(uint64(math.Sqrt(float64(x))), 1<<32-1)
	for r*r > x {
		r--
	}
	for r+1 < 1<<32 && (r+1)*(r+1) <= x {
		r++
	}
	return r
}

// irsqrt returns floor(2^40 / sqrt(a)). irsqrt(0) saturates to 2^40.
func irsqrt(a uint64) uint64 {
	if a <= 1 {
		return 1 << 40
	}
	r := uint64(math.Ldexp(1/math.Sqrt(float64(a)), 40))
	// r is within a few ulps; settle on the largest r with r*r*a <= 2^80
	for r > 0 && !mulSquareLE(r, a) {
		r--
	}
	for mulSquareLE(r+1, a) {
		r++
	}
	return r
}

// mulSquareLE reports whether r*r*a <= 2^80.
func mulSquareLE(r, a uint64) bool {
	hi, lo := bits.Mul64(r, r)
	// (hi:lo) * a
	h1, l1 := bits.Mul64(lo, a)
	h2, l2 := bits.Mul64(hi, a)
	if h2 != 0 {
		return false
	}
	top, carry := bits.Add64(h1, l2, 0)
	if carry != 0 {
		return false
	}
	// compare (top:l1) with 2^80 = (1<<16 : 0)
	if top != 1<<16 {
		return top < 1<<16
	}
	return l1 == 0
}

// atanTable holds atan(i/256) in 2^-20 radian units for i in [0, 256].
var atanTable = [257]int64{
	0, 4096, 8192, 12287, 16383, 20477, 24572, 28665,
	32757, 36849, 40939, 45028, 49116, 53202, 57287, 61370,
	65451, 69530, 73607, 77682, 81754, 85824, 89891, 93956,
	98018, 102076, 106132, 110185, 114234, 118280, 122322, 126361,
	130396, 134427, 138454, 142477, 146495, 150510, 154520, 158525,
	162526, 166522, 170513, 174499, 178480, 182456, 186427, 190392,
	194351, 198305, 202254, 206196, 210133, 214064, 217988, 221907,
	225819, 229725, 233624, 237517, 241403, 245282, 249155, 253020,
	256879, 260730, 264575, 268412, 272241, 276064, 279879, 283686,
	287485, 291277, 295061, 298838, 302606, 306366, 310118, 313862,
	317598, 321325, 325044, 328755, 332457, 336151, 339836, 343512,
	347179, 350838, 354488, 358129, 361761, 365384, 368998, 372603,
	376198, 379785, 383362, 386930, 390488, 394037, 397577, 401107,
	404627, 408138, 411640, 415131, 418613, 422086, 425548, 429001,
	432444, 435877, 439300, 442713, 446116, 449510, 452893, 456266,
	459629, 462982, 466325, 469658, 472981, 476293, 479596, 482888,
	486170, 489441, 492703, 495954, 499195, 502425, 505646, 508856,
	512055, 515245, 518423, 521592, 524750, 527898, 531036, 534163,
	537279, 540386, 543482, 546567, 549642, 552707, 555761, 558805,
	561839, 564862, 567875, 570877, 573869, 576851, 579822, 582783,
	585734, 588674, 591604, 594524, 597433, 600332, 603221, 606099,
	608967, 611825, 614673, 617510, 620337, 623154, 625961, 628758,
	631544, 634320, 637087, 639843, 642589, 645324, 648050, 650766,
	653472, 656168, 658853, 661529, 664195, 666851, 669497, 672133,
	674760, 677376, 679983, 682580, 685167, 687745, 690312, 692870,
	695419, 697957, 700487, 703006, 705516, 708016, 710507, 712989,
	715461, 717923, 720376, 722820, 725255, 727680, 730095, 732502,
	734899, 737287, 739666, 742036, 744396, 746748, 749090, 751424,
	753748, 756063, 758370, 760667, 762956, 765236, 767506, 769769,
	772022, 774266, 776502, 778730, 780948, 783158, 785359, 787552,
	789736, 791912, 794079, 796238, 798389, 800531, 802664, 804790,
	806907, 809016, 811117, 813209, 815293, 817370, 819438, 821498,
	823550,
}

const (
	angleHalfPi = 1647099
	anglePi     = 3294199
)

// iatan2 returns atan2(y, x) in 2^-20 radian units. The first octant is
// interpolated from atanTable on a 2^-24 ratio grid and the others follow
// by reflection, so the result is odd in y and exact on the axes and
// diagonals.
func iatan2(y, x int) int {
	if x == 0 && y == 0 {
		return 0
	}
	ux, uy := absUint(x), absUint(y)
	lo, hi := min(ux, uy), max(ux, uy)
	for hi >= 1<<38 {
		lo >>= 1
		hi >>= 1
	}
	r := (lo << 24) / hi
	i, f := r>>16, int64(r&0xffff)
	a := atanTable[i]
	if i < 256 {
		a += ((atanTable[i+1]-atanTable[i])*f + 1<<15) >> 16
	}
	if uy > ux {
		a = angleHalfPi - a
	}
	if x < 0 {
		a = anglePi - a
	}
	if y < 0 {
		a = -a
	}
	return int(a)
}

func absUint(v int) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}
