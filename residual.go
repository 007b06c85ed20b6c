package gpcc

// Residual entropy coding for attribute transforms.
//
// Every transform codes its per-point values with the same primitives:
// a run length of all-zero values, then either a single magnitude
// (reflectance) or a triplet (colour). Magnitudes use two short-circuit
// bins ("is 0", "is 1") before an order-1 Exp-Golomb remainder.

// AttributeContexts is the adaptive state of the residual coder. The
// zero value is the state of a fresh slice and assignment copies it.
type AttributeContexts struct {
	ctxCoeffEqN       [2][7]mqContext
	ctxCoeffRemPrefix [2][3]mqContext
	ctxCoeffRemSuffix [2][3]mqContext
	ctxPredMode       [2]mqContext
	ctxRunLen         [5]mqContext
}

// NewAttributeContexts returns the state used at the start of a slice.
func NewAttributeContexts() AttributeContexts {
	return AttributeContexts{}
}

// ResidualDecoder decodes attribute residuals from one payload.
type ResidualDecoder struct {
	ctx AttributeContexts
	mq  *mqDecoder
}

// NewResidualDecoder returns a decoder seeded with a copy of ctx.
func NewResidualDecoder(ctx AttributeContexts) *ResidualDecoder {
	return &ResidualDecoder{ctx: ctx}
}

// Start binds the decoder to a payload. It must be called once before any
// other decode call.
func (d *ResidualDecoder) Start(buf []byte) {
	if d.mq != nil {
		panic("gpcc: residual decoder started twice")
	}
	d.mq = newMQDecoder(buf)
}

// Stop releases the payload. It is safe to call more than once so it can
// be deferred.
func (d *ResidualDecoder) Stop() {
	d.mq = nil
}

// Contexts returns a snapshot of the adaptive state.
func (d *ResidualDecoder) Contexts() AttributeContexts {
	return d.ctx
}

func (d *ResidualDecoder) engine() *mqDecoder {
	if d.mq == nil {
		panic("gpcc: residual decoder used outside Start/Stop")
	}
	return d.mq
}

// DecodeRunLength decodes the number of all-zero values that follow.
func (d *ResidualDecoder) DecodeRunLength() int {
	mq := d.engine()
	runLength := 0
	for ; runLength < 3; runLength++ {
		if mq.Decode(&d.ctx.ctxRunLen[runLength]) == 0 {
			return runLength
		}
	}

	for range 4 {
		if mq.Decode(&d.ctx.ctxRunLen[3]) == 0 {
			return runLength + mq.DecodeBypass()
		}
		runLength += 2
	}

	return runLength + int(mq.DecodeExpGolomb(2, d.ctx.ctxRunLen[4:5], nil))
}

// DecodeSymbol decodes a magnitude; k1 and k2 select the "is 0" and
// "is 1" contexts, k3 the remainder contexts.
func (d *ResidualDecoder) DecodeSymbol(k1, k2, k3 int) int {
	mq := d.engine()
	if mq.Decode(&d.ctx.ctxCoeffEqN[0][k1]) == 1 {
		return 0
	}
	if mq.Decode(&d.ctx.ctxCoeffEqN[1][k2]) == 1 {
		return 1
	}
	coeffAbsMinus2 := mq.DecodeExpGolomb(1, d.ctx.ctxCoeffRemPrefix[k3][:], d.ctx.ctxCoeffRemSuffix[k3][:])
	return int(coeffAbsMinus2) + 2
}

// DecodeTriplet decodes a three-component residual. Component 1 is coded
// first and conditions the contexts of components 2 and 0.
func (d *ResidualDecoder) DecodeTriplet() [3]int32 {
	var value [3]int32
	value[1] = int32(d.DecodeSymbol(0, 0, 1))
	b0 := b2i(value[1] == 0)
	b1 := b2i(value[1] <= 1)
	value[2] = int32(d.DecodeSymbol(1+b0, 1+b1, 1))
	b2 := b2i(value[2] == 0)
	b3 := b2i(value[2] <= 1)
	value[0] = int32(d.DecodeSymbol(3+(b0<<1)+b2, 3+(b1<<1)+b3, 0))

	// a zero triplet is never coded, so both zeros shift component 0
	if b0 == 1 && b2 == 1 {
		value[0]++
	}

	mq := d.engine()
	for k := range 3 {
		if value[k] != 0 && mq.DecodeBypass() == 1 {
			value[k] = -value[k]
		}
	}
	return value
}

// Decode decodes a single nonzero residual.
func (d *ResidualDecoder) Decode() int32 {
	mag := int32(d.DecodeSymbol(0, 0, 0)) + 1
	if d.engine().DecodeBypass() == 1 {
		return -mag
	}
	return mag
}

// DecodePredMode decodes a prediction mode in [0, maxMode]. No bins are
// consumed when maxMode is zero.
func (d *ResidualDecoder) DecodePredMode(maxMode int) int {
	mode := 0
	if maxMode == 0 {
		return mode
	}

	mq := d.engine()
	ctxIdx := 0
	for mq.Decode(&d.ctx.ctxPredMode[ctxIdx]) == 1 {
		ctxIdx = 1
		mode++
		if mode == maxMode {
			break
		}
	}
	return mode
}

// DecodeLastCompPredCoeffs decodes one coefficient in {-1, 0, 1} per LoD.
func (d *ResidualDecoder) DecodeLastCompPredCoeffs(numLods int) []int8 {
	mq := d.engine()
	coeffs := make([]int8, numLods)
	for lod := range coeffs {
		if mq.DecodeBypass() == 1 {
			coeffs[lod] = 1 - 2*int8(mq.DecodeBypass())
		}
	}
	return coeffs
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
