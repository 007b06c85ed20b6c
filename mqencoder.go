package gpcc

// Binary arithmetic encoding, the mirror of mq.go. Contexts adapt exactly
// as in the decoder, so one mqContext layout serves both directions.

// mqEncoder implements the MQ context-adaptive binary arithmetic encoder.
type mqEncoder struct {
	interval uint32
	code     uint32
	bits     int // shifts left before the next byte is emitted

	buf []byte
	bp  int // index of the last emitted byte, -1 before the first

	bypass mqContext
}

func newMQEncoder() *mqEncoder {
	mq := &mqEncoder{}
	mq.Reset()
	return mq
}

// Reset reinitializes the encoder state for a new payload.
func (mq *mqEncoder) Reset() {
	mq.interval = 0x8000
	mq.code = 0
	mq.bits = 12
	mq.buf = mq.buf[:0]
	if cap(mq.buf) < 128 {
		mq.buf = make([]byte, 0, 128)
	}
	mq.bp = -1
	mq.bypass = mqContext{index: mqUniformState}
}

// Encode codes bit against cx and adapts it.
func (mq *mqEncoder) Encode(cx *mqContext, bit int) {
	if bit == int(cx.mps) {
		mq.codeMPS(cx)
	} else {
		mq.codeLPS(cx)
	}
}

// EncodeBypass encodes one equiprobable bin.
func (mq *mqEncoder) EncodeBypass(bit int) {
	mq.Encode(&mq.bypass, bit)
}

// EncodeBypassBits encodes the n low bits of v, most significant first.
func (mq *mqEncoder) EncodeBypassBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		mq.EncodeBypass(int(v>>i) & 1)
	}
}

// EncodeExpGolomb is the inverse of mqDecoder.DecodeExpGolomb.
func (mq *mqEncoder) EncodeExpGolomb(value uint32, k int, prefix, suffix []mqContext) {
	n := 0
	for k < maxExpGolombOrder && value >= 1<<k {
		mq.Encode(&prefix[min(n, len(prefix)-1)], 1)
		value -= 1 << k
		k++
		n++
	}
	if k < maxExpGolombOrder {
		mq.Encode(&prefix[min(n, len(prefix)-1)], 0)
	}
	for k > 0 {
		k--
		bit := int(value>>k) & 1
		if len(suffix) == 0 {
			mq.EncodeBypass(bit)
		} else {
			mq.Encode(&suffix[min(k, len(suffix)-1)], bit)
		}
	}
}

// codeMPS codes the more probable symbol, exchanging sub-intervals when
// the MPS range has become the smaller one.
func (mq *mqEncoder) codeMPS(cx *mqContext) {
	entry := &mqProbTable[cx.index]
	qe := uint32(entry.qe)

	mq.interval -= qe
	if mq.interval < 0x8000 {
		if mq.interval < qe {
			mq.interval = qe
		} else {
			mq.code += qe
		}
		cx.index = entry.nmps
		mq.renormEnc()
	} else {
		mq.code += qe
	}
}

// codeLPS encodes a least probable symbol.
func (mq *mqEncoder) codeLPS(cx *mqContext) {
	entry := &mqProbTable[cx.index]
	qe := uint32(entry.qe)

	mq.interval -= qe
	if mq.interval < qe {
		mq.code += qe
	} else {
		mq.interval = qe
	}
	if entry.switchMPS {
		cx.mps = 1 - cx.mps
	}
	cx.index = entry.nlps
	mq.renormEnc()
}

// renormEnc doubles the interval, emitting bytes as code fills.
func (mq *mqEncoder) renormEnc() {
	for mq.interval < 0x8000 {
		mq.interval <<= 1
		mq.code <<= 1
		mq.bits--
		if mq.bits == 0 {
			mq.byteout()
		}
	}
}

// byteout emits the top byte of code. After a 0xFF only 7 bits are
// emitted so that no marker can appear; a carry is folded into the
// previous byte.
func (mq *mqEncoder) byteout() {
	if mq.bp < 0 {
		mq.buf = append(mq.buf, byte(mq.code>>19))
		mq.bp = 0
		mq.code &= 0x7FFFF
		mq.bits = 8
		return
	}

	switch {
	case mq.buf[mq.bp] == 0xFF:
		mq.bp++
		mq.buf = append(mq.buf, byte(mq.code>>20))
		mq.code &= 0xFFFFF
		mq.bits = 7
	case mq.code >= 0x8000000:
		mq.buf[mq.bp]++
		if mq.buf[mq.bp] == 0xFF {
			mq.code &= 0x7FFFFFF
			mq.bp++
			mq.buf = append(mq.buf, byte(mq.code>>20))
			mq.code &= 0xFFFFF
			mq.bits = 7
		} else {
			mq.bp++
			mq.buf = append(mq.buf, byte(mq.code>>19))
			mq.code &= 0x7FFFF
			mq.bits = 8
		}
	default:
		mq.bp++
		mq.buf = append(mq.buf, byte(mq.code>>19))
		mq.code &= 0x7FFFF
		mq.bits = 8
	}
}

// Flush finalizes the encoding and returns the encoded payload.
func (mq *mqEncoder) Flush() []byte {
	// pad with ones while staying inside the final interval
	limit := mq.code + mq.interval
	mq.code |= 0xFFFF
	if mq.code >= limit {
		mq.code -= 0x8000
	}

	mq.code <<= mq.bits
	mq.byteout()
	mq.code <<= mq.bits
	mq.byteout()

	// the decoder fills with 0xFF past the end
	n := len(mq.buf)
	if n > 0 && mq.buf[n-1] == 0xFF {
		n--
	}
	return append([]byte(nil), mq.buf[:n]...)
}

// BytesWritten returns the number of bytes emitted so far.
func (mq *mqEncoder) BytesWritten() int {
	return len(mq.buf)
}
