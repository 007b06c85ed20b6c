package gpcc

// Binary arithmetic decoding.
//
// Every modeled bin of a geometry or attribute payload is decoded by the
// 47-state MQ coder against an mqContext owned by the caller: the octree
// context map, the planar and angular state and the residual banks each
// hold their own contexts and pass them by pointer. Equiprobable bins use
// the self-looping uniform state. Past the end of the payload the decoder
// reads 0xFF fill, so a truncated slice decodes to something rather than
// failing.

// mqUniformState is the self-looping state used for equiprobable bins.
const mqUniformState = 46

// maxExpGolombOrder bounds the Exp-Golomb prefix so a corrupt payload cannot
// run the decoder forever.
const maxExpGolombOrder = 31

// mqDecoder implements the MQ context-adaptive binary arithmetic decoder.
type mqDecoder struct {
	interval uint32
	code     uint32
	bits     int // bits left in code before the next byte is read

	data []byte
	pos  int

	// bypass is never adapted; every equiprobable bin goes through it.
	bypass mqContext
}

// mqContext is the adaptive state of a single coded bin. The zero value is
// the initial state of a fresh cx.
type mqContext struct {
	index uint8
	mps   uint8
}

// mqProbEntry is one probability state: the LPS estimate, the successor
// states after an MPS or LPS and whether an LPS flips the MPS.
type mqProbEntry struct {
	qe        uint16
	nmps      uint8
	nlps      uint8
	switchMPS bool
}

var mqProbTable = [47]mqProbEntry{
	{0x5601, 1, 1, true},    // 0
	{0x3401, 2, 6, false},   // 1
	{0x1801, 3, 9, false},   // 2
	{0x0AC1, 4, 12, false},  // 3
	{0x0521, 5, 29, false},  // 4
	{0x0221, 38, 33, false}, // 5
	{0x5601, 7, 6, true},    // 6
	{0x5401, 8, 14, false},  // 7
	{0x4801, 9, 14, false},  // 8
	{0x3801, 10, 14, false}, // 9
	{0x3001, 11, 17, false}, // 10
	{0x2401, 12, 18, false}, // 11
	{0x1C01, 13, 20, false}, // 12
	{0x1601, 29, 21, false}, // 13
	{0x5601, 15, 14, true},  // 14
	{0x5401, 16, 14, false}, // 15
	{0x5101, 17, 15, false}, // 16
	{0x4801, 18, 16, false}, // 17
	{0x3801, 19, 17, false}, // 18
	{0x3401, 20, 18, false}, // 19
	{0x3001, 21, 19, false}, // 20
	{0x2801, 22, 19, false}, // 21
	{0x2401, 23, 20, false}, // 22
	{0x2201, 24, 21, false}, // 23
	{0x1C01, 25, 22, false}, // 24
	{0x1801, 26, 23, false}, // 25
	{0x1601, 27, 24, false}, // 26
	{0x1401, 28, 25, false}, // 27
	{0x1201, 29, 26, false}, // 28
	{0x1101, 30, 27, false}, // 29
	{0x0AC1, 31, 28, false}, // 30
	{0x09C1, 32, 29, false}, // 31
	{0x08A1, 33, 30, false}, // 32
	{0x0521, 34, 31, false}, // 33
	{0x0441, 35, 32, false}, // 34
	{0x02A1, 36, 33, false}, // 35
	{0x0221, 37, 34, false}, // 36
	{0x0141, 38, 35, false}, // 37
	{0x0111, 39, 36, false}, // 38
	{0x0085, 40, 37, false}, // 39
	{0x0049, 41, 38, false}, // 40
	{0x0025, 42, 39, false}, // 41
	{0x0015, 43, 40, false}, // 42
	{0x0009, 44, 41, false}, // 43
	{0x0005, 45, 42, false}, // 44
	{0x0001, 45, 43, false}, // 45
	{0x5601, 46, 46, false}, // 46 (uniform context)
}

func newMQDecoder(data []byte) *mqDecoder {
	mq := &mqDecoder{data: data}
	mq.bypass.index = mqUniformState
	mq.initDec()
	return mq
}

// initDec loads the first two bytes of the payload.
func (mq *mqDecoder) initDec() {
	mq.interval = 0x8000
	if mq.pos < len(mq.data) {
		mq.code = uint32(mq.data[mq.pos]) << 16
	} else {
		mq.code = 0xFF << 16
	}
	mq.bits = 0

	mq.bytein()

	mq.code <<= 7
	mq.bits -= 7
}

// Decode decodes one bin using the given context and adapts it.
func (mq *mqDecoder) Decode(cx *mqContext) int {
	entry := &mqProbTable[cx.index]
	qe := uint32(entry.qe)

	mq.interval -= qe

	if mq.code>>16 < qe {
		// lower sub-interval
		if mq.interval < qe {
			// exchanged: the lower part is the MPS
			cx.index = entry.nmps
			mq.interval = qe
			bin := int(cx.mps)
			mq.renormalize()
			return bin
		}
		mq.interval = qe
		bin := 1 - int(cx.mps)
		if entry.switchMPS {
			cx.mps = 1 - cx.mps
		}
		cx.index = entry.nlps
		mq.renormalize()
		return bin
	}

	// upper sub-interval
	mq.code -= qe << 16
	if mq.interval < 0x8000 {
		if mq.interval < qe {
			// exchanged: the upper part is the LPS
			bin := 1 - int(cx.mps)
			if entry.switchMPS {
				cx.mps = 1 - cx.mps
			}
			cx.index = entry.nlps
			mq.renormalize()
			return bin
		}
		cx.index = entry.nmps
		bin := int(cx.mps)
		mq.renormalize()
		return bin
	}
	// no renormalization, so the state is unchanged
	return int(cx.mps)
}

// DecodeBypass decodes one equiprobable bin.
func (mq *mqDecoder) DecodeBypass() int {
	return mq.Decode(&mq.bypass)
}

// DecodeBypassBits decodes n equiprobable bins, most significant first.
func (mq *mqDecoder) DecodeBypassBits(n int) uint32 {
	var v uint32
	for range n {
		v = v<<1 | uint32(mq.DecodeBypass())
	}
	return v
}

// DecodeExpGolomb decodes an Exp-Golomb code of order k. Prefix bin n uses
// prefix[min(n, len-1)]; suffix bit i (counted from the least significant)
// uses suffix[min(i, len-1)], or the bypass state when suffix is empty.
func (mq *mqDecoder) DecodeExpGolomb(k int, prefix, suffix []mqContext) uint32 {
	var value uint32
	n := 0
	for k < maxExpGolombOrder && mq.Decode(&prefix[min(n, len(prefix)-1)]) == 1 {
		value += 1 << k
		k++
		n++
	}
	for k > 0 {
		k--
		var bit int
		if len(suffix) == 0 {
			bit = mq.DecodeBypass()
		} else {
			bit = mq.Decode(&suffix[min(k, len(suffix)-1)])
		}
		value += uint32(bit) << k
	}
	return value
}

// renormalize doubles the interval until it is at least half full.
func (mq *mqDecoder) renormalize() {
	for mq.interval < 0x8000 {
		if mq.bits == 0 {
			mq.bytein()
		}
		mq.interval <<= 1
		mq.code <<= 1
		mq.bits--
	}
}

// bytein feeds the next payload byte into code. A 0xFF followed by a
// byte above 0x8F ends the payload and 0xFF fill follows; otherwise the
// byte after a 0xFF carries 7 bits.
func (mq *mqDecoder) bytein() {
	if mq.pos >= len(mq.data) {
		mq.code += 0xFF << 8
		mq.bits = 8
		return
	}

	var nextByte byte = 0xFF
	if mq.pos+1 < len(mq.data) {
		nextByte = mq.data[mq.pos+1]
	}

	if mq.data[mq.pos] == 0xFF {
		if nextByte > 0x8F {
			mq.code += 0xFF << 8
			mq.bits = 8
			return
		}
		mq.pos++
		mq.code += uint32(nextByte) << 9
		mq.bits = 7
	} else {
		mq.pos++
		mq.code += uint32(nextByte) << 8
		mq.bits = 8
	}
}

// Position returns the number of payload bytes consumed so far.
func (mq *mqDecoder) Position() int {
	return mq.pos
}
