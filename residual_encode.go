package gpcc

// ResidualEncoder is the encoding counterpart of ResidualDecoder. Each
// method consumes the same contexts in the same order as its decoder twin.
type ResidualEncoder struct {
	ctx AttributeContexts
	mq  *mqEncoder
}

// NewResidualEncoder returns an encoder seeded with a copy of ctx.
func NewResidualEncoder(ctx AttributeContexts) *ResidualEncoder {
	return &ResidualEncoder{ctx: ctx, mq: newMQEncoder()}
}

// Finish flushes the coder and returns the payload.
func (e *ResidualEncoder) Finish() []byte {
	return e.mq.Flush()
}

// Contexts returns a snapshot of the adaptive state.
func (e *ResidualEncoder) Contexts() AttributeContexts {
	return e.ctx
}

// EncodeRunLength encodes a count of all-zero values.
func (e *ResidualEncoder) EncodeRunLength(runLength int) {
	for i := range 3 {
		if runLength == i {
			e.mq.Encode(&e.ctx.ctxRunLen[i], 0)
			return
		}
		e.mq.Encode(&e.ctx.ctxRunLen[i], 1)
	}

	rem := runLength - 3
	for range 4 {
		if rem < 2 {
			e.mq.Encode(&e.ctx.ctxRunLen[3], 0)
			e.mq.EncodeBypass(rem)
			return
		}
		e.mq.Encode(&e.ctx.ctxRunLen[3], 1)
		rem -= 2
	}
	e.mq.EncodeExpGolomb(uint32(rem), 2, e.ctx.ctxRunLen[4:5], nil)
}

// EncodeSymbol encodes a magnitude with the given context selectors.
func (e *ResidualEncoder) EncodeSymbol(value, k1, k2, k3 int) {
	e.mq.Encode(&e.ctx.ctxCoeffEqN[0][k1], b2i(value == 0))
	if value == 0 {
		return
	}
	e.mq.Encode(&e.ctx.ctxCoeffEqN[1][k2], b2i(value == 1))
	if value == 1 {
		return
	}
	e.mq.EncodeExpGolomb(uint32(value-2), 1, e.ctx.ctxCoeffRemPrefix[k3][:], e.ctx.ctxCoeffRemSuffix[k3][:])
}

// EncodeTriplet encodes a three-component residual that is not all zero.
func (e *ResidualEncoder) EncodeTriplet(value [3]int32) {
	var mag [3]int
	for k := range 3 {
		mag[k] = int(abs32(value[k]))
	}

	e.EncodeSymbol(mag[1], 0, 0, 1)
	b0 := b2i(mag[1] == 0)
	b1 := b2i(mag[1] <= 1)
	e.EncodeSymbol(mag[2], 1+b0, 1+b1, 1)
	b2 := b2i(mag[2] == 0)
	b3 := b2i(mag[2] <= 1)
	mag0 := mag[0]
	if b0 == 1 && b2 == 1 {
		mag0--
	}
	e.EncodeSymbol(mag0, 3+(b0<<1)+b2, 3+(b1<<1)+b3, 0)

	for k := range 3 {
		if value[k] != 0 {
			e.mq.EncodeBypass(b2i(value[k] < 0))
		}
	}
}

// Encode encodes a single nonzero residual.
func (e *ResidualEncoder) Encode(value int32) {
	e.EncodeSymbol(int(abs32(value))-1, 0, 0, 0)
	e.mq.EncodeBypass(b2i(value < 0))
}

// EncodePredMode encodes a prediction mode in [0, maxMode].
func (e *ResidualEncoder) EncodePredMode(mode, maxMode int) {
	if maxMode == 0 {
		return
	}
	ctxIdx := 0
	for i := 0; i < mode; i++ {
		e.mq.Encode(&e.ctx.ctxPredMode[ctxIdx], 1)
		ctxIdx = 1
	}
	if mode < maxMode {
		e.mq.Encode(&e.ctx.ctxPredMode[ctxIdx], 0)
	}
}

// EncodeLastCompPredCoeffs encodes one coefficient in {-1, 0, 1} per LoD.
func (e *ResidualEncoder) EncodeLastCompPredCoeffs(coeffs []int8) {
	for _, c := range coeffs {
		e.mq.EncodeBypass(b2i(c != 0))
		if c != 0 {
			e.mq.EncodeBypass(b2i(c < 0))
		}
	}
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

// zeroRunWriter emits values with the zero-run scheme shared by all
// transforms: a run length up front, then each nonzero value followed by
// the run of zeros after it. Other bins may be interleaved between calls
// to code, matching the decoder's per-point order.
type zeroRunWriter struct {
	e      *ResidualEncoder
	n      int
	isZero func(i int) bool
}

func (e *ResidualEncoder) newZeroRunWriter(n int, isZero func(i int) bool) *zeroRunWriter {
	w := &zeroRunWriter{e: e, n: n, isZero: isZero}
	e.EncodeRunLength(w.runFrom(0))
	return w
}

func (w *zeroRunWriter) runFrom(i int) int {
	run := 0
	for i+run < w.n && w.isZero(i+run) {
		run++
	}
	return run
}

// code emits value i unless it is covered by a zero run.
func (w *zeroRunWriter) code(i int, emit func()) {
	if w.isZero(i) {
		return
	}
	emit()
	w.e.EncodeRunLength(w.runFrom(i + 1))
}
