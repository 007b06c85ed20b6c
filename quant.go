package gpcc

// Attribute quantization.
//
// A Quantizer maps an integer level to a reconstructed value in the
// attrShift fixed-point domain:
//
//	scale(q) = q * Δ,   Δ = round(2^((qp-4)/6) * 2^attrShift)
//
// so that qp 4 is lossless and the step doubles every 6 qp. Quantize is
// the matching forward operation used by the encoders.

// qpStep holds Δ for qp = 0..5 before the qp/6 shift.
var qpStep = [6]int64{161, 181, 203, 228, 256, 287}

// minAttrQp is the smallest qp that yields a step of at least 1.
const minAttrQp = 4

// Quantizer is the step size of one qp.
type Quantizer struct {
	stepSize int64
}

// NewQuantizer returns the quantizer of qp, clamped to minAttrQp.
func NewQuantizer(qp int) Quantizer {
	qp = max(qp, minAttrQp)
	return Quantizer{stepSize: qpStep[qp%6] << (qp / 6)}
}

// StepSize returns Δ in attrShift fixed point.
func (q Quantizer) StepSize() int64 {
	return q.stepSize
}

// Scale reconstructs a quantized level.
func (q Quantizer) Scale(level int64) int64 {
	return level * q.stepSize
}

// Quantize maps a fixed-point value to the nearest level.
func (q Quantizer) Quantize(x int64) int64 {
	return divRoundHalfInf(x, q.stepSize)
}

// QpLayer holds the luma and chroma qp of one LoD layer.
type QpLayer [2]int

// QpSet is the qp configuration of one attribute in one slice.
type QpSet struct {
	Layers  []QpLayer
	Regions []QpRegion
}

// DeriveQpSet combines the parameter set and the slice header qps.
func DeriveQpSet(aps *AttributeParams, abh *AttributeBrickHeader) QpSet {
	luma := aps.InitQp + abh.QpDeltaLuma
	chroma := luma + aps.ChromaQpOffset + abh.QpDeltaChroma

	var set QpSet
	if len(abh.LayerQpDeltaLuma) == 0 {
		set.Layers = []QpLayer{{luma, chroma}}
	} else {
		set.Layers = make([]QpLayer, len(abh.LayerQpDeltaLuma))
		for i := range set.Layers {
			set.Layers[i] = QpLayer{
				luma + abh.LayerQpDeltaLuma[i],
				chroma + abh.LayerQpDeltaChroma[i],
			}
		}
	}
	set.Regions = abh.QpRegions
	return set
}

// RegionQpOffset returns the qp offset of the first region containing pos.
func (s *QpSet) RegionQpOffset(pos [3]int32) [2]int {
	for i := range s.Regions {
		if s.Regions[i].contains(pos) {
			return s.Regions[i].Offset
		}
	}
	return [2]int{}
}

// Quantizers returns the luma and chroma quantizers for a point of the
// given layer; layers past the last reuse it.
func (s *QpSet) Quantizers(pos [3]int32, layer int) [2]Quantizer {
	base := s.Layers[min(layer, len(s.Layers)-1)]
	offset := s.RegionQpOffset(pos)
	return [2]Quantizer{
		NewQuantizer(base[0] + offset[0]),
		NewQuantizer(base[1] + offset[1]),
	}
}

// quantLayerCursor tracks the qp layer while walking points in LoD order.
type quantLayerCursor struct {
	layer          int
	numLayers      int
	numPointsInLod []int
}

func newQuantLayerCursor(set *QpSet, numPointsInLod []int) quantLayerCursor {
	return quantLayerCursor{numLayers: len(set.Layers), numPointsInLod: numPointsInLod}
}

// advance returns the layer of predictorIndex; it must be called with
// consecutive indices starting at zero.
func (c *quantLayerCursor) advance(predictorIndex int) int {
	if c.layer < len(c.numPointsInLod) && predictorIndex == c.numPointsInLod[c.layer] {
		c.layer = min(c.numLayers-1, c.layer+1)
	}
	return c.layer
}
