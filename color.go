package gpcc

import "math"

// transformGbrToYCbCrBt709 converts a colour stored in (G, B, R) order to
// BT.709 YCbCr. Chroma is offset to the middle of the range of bitdepth
// and every component is rounded and clipped to it.
//
//	Y  =  0.2126   * R + 0.7152   * G + 0.0722   * B
//	Cb = -0.114572 * R - 0.385428 * G + 0.5      * B
//	Cr =  0.5      * R - 0.454153 * G - 0.045847 * B
func transformGbrToYCbCrBt709(gbr [3]uint16, bitdepth int) [3]uint16 {
	g := float64(gbr[0])
	b := float64(gbr[1])
	r := float64(gbr[2])
	offset := float64(int64(1) << (bitdepth - 1))
	maxVal := int64(1)<<bitdepth - 1

	y := 0.2126*r + 0.7152*g + 0.0722*b
	cb := -0.114572*r - 0.385428*g + 0.5*b + offset
	cr := 0.5*r - 0.454153*g - 0.045847*b + offset

	return [3]uint16{
		clampColor(y, maxVal),
		clampColor(cb, maxVal),
		clampColor(cr, maxVal),
	}
}

func clampColor(v float64, maxVal int64) uint16 {
	return uint16(clip(int64(math.Round(v)), 0, maxVal))
}
