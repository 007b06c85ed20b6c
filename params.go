package gpcc

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// AttributeEncoding selects the attribute transform.
type AttributeEncoding int

const (
	PredictingTransform AttributeEncoding = 0
	RAHTransform        AttributeEncoding = 1
	LiftingTransform    AttributeEncoding = 2
)

func (e AttributeEncoding) String() string {
	switch e {
	case PredictingTransform:
		return "predicting"
	case RAHTransform:
		return "raht"
	case LiftingTransform:
		return "lifting"
	}
	return "unknown"
}

// AxisOrder describes how the coded axes map onto x, y and z.
type AxisOrder int

const (
	AxisOrderZYX  AxisOrder = 0
	AxisOrderXYZ  AxisOrder = 1
	AxisOrderXZY  AxisOrder = 2
	AxisOrderYZX  AxisOrder = 3
	AxisOrderZYX4 AxisOrder = 4
	AxisOrderZXY  AxisOrder = 5
	AxisOrderYXZ  AxisOrder = 6
	AxisOrderXYZ7 AxisOrder = 7
)

const numAxisOrders = 8

// axisOrderPerm maps coded axis k to the output axis.
var axisOrderPerm = [numAxisOrders][3]int{
	{2, 1, 0}, {0, 1, 2}, {0, 2, 1}, {1, 2, 0},
	{2, 1, 0}, {2, 0, 1}, {1, 0, 2}, {0, 1, 2},
}

// ToXYZ permutes a coded position into x, y, z order.
func (o AxisOrder) ToXYZ(p [3]int32) [3]int32 {
	var out [3]int32
	perm := axisOrderPerm[o]
	for k := range 3 {
		out[perm[k]] = p[k]
	}
	return out
}

// PayloadType identifies a data unit in a coded stream.
type PayloadType int

const (
	PayloadSequenceParameterSet  PayloadType = 0
	PayloadGeometryParameterSet  PayloadType = 1
	PayloadGeometryBrick         PayloadType = 2
	PayloadAttributeParameterSet PayloadType = 3
	PayloadAttributeBrick        PayloadType = 4
	PayloadTileInventory         PayloadType = 5
	PayloadFrameBoundaryMarker   PayloadType = 6
	PayloadConstantAttribute     PayloadType = 7
)

// KnownAttributeLabel names the semantic of an attribute.
type KnownAttributeLabel uint32

const (
	LabelColour       KnownAttributeLabel = 0
	LabelReflectance  KnownAttributeLabel = 1
	LabelFrameIndex   KnownAttributeLabel = 2
	LabelMaterialID   KnownAttributeLabel = 3
	LabelTransparency KnownAttributeLabel = 4
	LabelNormal       KnownAttributeLabel = 5
	LabelOid          KnownAttributeLabel = 0xffffffff
)

// AttributeDescription describes one attribute of the sequence.
type AttributeDescription struct {
	NumDimensions     int                 `json:"numDimensions"`
	Bitdepth          int                 `json:"bitdepth"`
	BitdepthSecondary int                 `json:"bitdepthSecondary"`
	Label             KnownAttributeLabel `json:"label"`
}

// Validate checks the description against the supported configurations.
func (d *AttributeDescription) Validate() error {
	var err error
	if d.NumDimensions != 1 && d.NumDimensions != 3 {
		err = multierr.Append(err, errors.Wrapf(ErrUnsupportedAttribute, "%d dimensions", d.NumDimensions))
	}
	if d.Bitdepth < 1 || d.Bitdepth > 16 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "bitdepth %d out of range [1,16]", d.Bitdepth))
	}
	if d.NumDimensions == 3 && (d.BitdepthSecondary < 1 || d.BitdepthSecondary > 16) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "secondary bitdepth %d out of range [1,16]", d.BitdepthSecondary))
	}
	return err
}

// clipMax returns the largest representable value of component k.
func (d *AttributeDescription) clipMax(k int) int64 {
	if k == 0 || d.BitdepthSecondary == 0 {
		return 1<<d.Bitdepth - 1
	}
	return 1<<d.BitdepthSecondary - 1
}

// AttributeParams is the attribute parameter set.
type AttributeParams struct {
	Encoding AttributeEncoding `json:"encoding"`

	// LoD construction
	LodDecimation            bool     `json:"lodDecimation"`
	NumPredNearestNeighbours int      `json:"numPredNearestNeighbours"`
	MaxNumDirectPredictors   int      `json:"maxNumDirectPredictors"`
	AdaptivePredictionThresh int      `json:"adaptivePredictionThreshold"`
	IntraLodSearchRange      int      `json:"intraLodSearchRange"`
	InterLodSearchRange      int      `json:"interLodSearchRange"`
	LodNeighBias             [3]int32 `json:"lodNeighBias"`
	IntraLodPrediction       bool     `json:"intraLodPrediction"`
	NumDetailLevels          int      `json:"numDetailLevels"`
	LodSamplingPeriod        []int    `json:"lodSamplingPeriod"`
	Dist2                    int      `json:"dist2"`

	InterComponentPrediction bool `json:"interComponentPrediction"`
	LastComponentPrediction  bool `json:"lastComponentPrediction"`

	// Quantization
	InitQp         int `json:"initQp"`
	ChromaQpOffset int `json:"chromaQpOffset"`

	RahtPredictionEnabled bool `json:"rahtPredictionEnabled"`
	ScalableLifting       bool `json:"scalableLifting"`

	// ExperimentalColorFilter selects the filtered colour reconstruction
	// for the predicting transform. Payloads coded with it carry extra
	// side information and cannot be decoded by the plain path.
	ExperimentalColorFilter bool `json:"experimentalColorFilter"`
}

// MaxNumPredictors bounds the neighbour list of a predictor.
const MaxNumPredictors = 6

// lodParametersPresent reports whether the transform consumes LoDs.
func (p *AttributeParams) lodParametersPresent() bool {
	return p.Encoding == LiftingTransform || p.Encoding == PredictingTransform
}

// Validate reports every violation of the supported parameter space.
func (p *AttributeParams) Validate() error {
	var err error
	switch p.Encoding {
	case PredictingTransform, RAHTransform, LiftingTransform:
	default:
		err = multierr.Append(err, errors.Wrapf(ErrUnsupportedTransform, "encoding %d", p.Encoding))
	}
	if p.InitQp < 4 || p.InitQp > 51 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "initial qp %d out of range [4,51]", p.InitQp))
	}
	if p.RahtPredictionEnabled {
		err = multierr.Append(err, errors.Wrap(ErrInvalidConfig, "raht transform-domain prediction is not supported"))
	}
	if p.ExperimentalColorFilter && p.Encoding != PredictingTransform {
		err = multierr.Append(err, errors.Wrap(ErrInvalidConfig, "colour filter requires the predicting transform"))
	}
	if !p.lodParametersPresent() {
		return err
	}
	if p.NumPredNearestNeighbours < 1 || p.NumPredNearestNeighbours > MaxNumPredictors {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig,
			"neighbour count %d out of range [1,%d]", p.NumPredNearestNeighbours, MaxNumPredictors))
	}
	if p.MaxNumDirectPredictors < 0 || p.MaxNumDirectPredictors > p.NumPredNearestNeighbours {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig,
			"direct predictor count %d exceeds neighbour count", p.MaxNumDirectPredictors))
	}
	if p.NumDetailLevels < 1 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "detail level count %d", p.NumDetailLevels))
	}
	if p.LodDecimation {
		if len(p.LodSamplingPeriod) == 0 {
			err = multierr.Append(err, errors.Wrap(ErrInvalidConfig, "decimation without sampling periods"))
		}
		for i, period := range p.LodSamplingPeriod {
			if period < 2 {
				err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "sampling period %d of level %d", period, i))
			}
		}
	} else if p.Dist2 < 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "negative dist2 %d", p.Dist2))
	}
	if p.Encoding == LiftingTransform && p.IntraLodPrediction {
		err = multierr.Append(err, errors.Wrap(ErrInvalidConfig, "lifting forbids intra-LoD prediction"))
	}
	return err
}

// QpRegion applies a qp offset to the points inside a box.
type QpRegion struct {
	Origin [3]int32 `json:"origin"`
	Size   [3]int32 `json:"size"`
	Offset [2]int   `json:"offset"`
}

func (r *QpRegion) contains(pos [3]int32) bool {
	for k := range 3 {
		if pos[k] < r.Origin[k] || pos[k] >= r.Origin[k]+r.Size[k] {
			return false
		}
	}
	return true
}

// AttributeBrickHeader carries the per-slice attribute settings.
type AttributeBrickHeader struct {
	QpDeltaLuma        int        `json:"qpDeltaLuma"`
	QpDeltaChroma      int        `json:"qpDeltaChroma"`
	LayerQpDeltaLuma   []int      `json:"layerQpDeltaLuma"`
	LayerQpDeltaChroma []int      `json:"layerQpDeltaChroma"`
	QpRegions          []QpRegion `json:"qpRegions"`
	Dist2Delta         int        `json:"dist2Delta"`
}

// Validate checks the per-layer delta lists agree.
func (h *AttributeBrickHeader) Validate() error {
	if len(h.LayerQpDeltaLuma) != len(h.LayerQpDeltaChroma) {
		return errors.Wrapf(ErrInvalidConfig, "%d luma layer deltas but %d chroma layer deltas",
			len(h.LayerQpDeltaLuma), len(h.LayerQpDeltaChroma))
	}
	return nil
}

// QtBtParams controls the implicit QTBT partitioning.
type QtBtParams struct {
	TrisoupEnabled bool `json:"trisoupEnabled"`

	// MaxNumQtBtBeforeOt is the number of non-cubic splits allowed
	// before reverting to octree partitioning.
	MaxNumQtBtBeforeOt int `json:"maxNumQtBtBeforeOt"`

	// MinQtbtSizeLog2 is the node size below which QTBT stops.
	MinQtbtSizeLog2 int `json:"minQtbtSizeLog2"`

	AngularTweakEnabled              bool `json:"angularTweakEnabled"`
	AngularMaxNodeMinDimLog2ToSplitV int  `json:"angularMaxNodeMinDimLog2ToSplitV"`
	AngularMaxDiffToSplitZ           int  `json:"angularMaxDiffToSplitZ"`
}

// AngularParams describes a spinning multi-laser sensor.
type AngularParams struct {
	// Origin is the sensor head position.
	Origin [3]int32 `json:"origin"`

	// ThetaLaser holds tan(elevation) of each laser in 2^18 fixed point,
	// sorted in increasing order.
	ThetaLaser []int `json:"thetaLaser"`

	// ZLaser holds the vertical offset of each laser in 1/8 position units.
	ZLaser []int `json:"zLaser"`

	// NumPhiPerTurn holds the azimuthal sample count of each laser.
	NumPhiPerTurn []int `json:"numPhiPerTurn"`
}

// NumLasers returns the number of calibrated lasers.
func (a *AngularParams) NumLasers() int {
	return len(a.ThetaLaser)
}

// GeometryParams is the geometry parameter set.
type GeometryParams struct {
	UniquePoints bool `json:"uniquePoints"`

	// NeighbourAvailBoundaryLog2 enables neighbour search outside the
	// parent node when > 0. Zero restricts contexts to siblings.
	NeighbourAvailBoundaryLog2 int `json:"neighbourAvailBoundaryLog2"`

	// InferredDirectCodingMode is the IDCM intensity (0 disables).
	InferredDirectCodingMode int `json:"inferredDirectCodingMode"`

	QtBtEnabled bool       `json:"qtbtEnabled"`
	QtBt        QtBtParams `json:"qtbt"`

	PlanarEnabled        bool   `json:"planarEnabled"`
	PlanarThreshold      [3]int `json:"planarThreshold"`
	PlanarBufferDisabled bool   `json:"planarBufferDisabled"`

	AngularEnabled bool          `json:"angularEnabled"`
	Angular        AngularParams `json:"angular"`

	AxisOrder AxisOrder `json:"axisOrder"`
}

// Validate reports every violation of the supported parameter space.
func (g *GeometryParams) Validate() error {
	var err error
	if g.InferredDirectCodingMode < 0 || g.InferredDirectCodingMode > 3 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "idcm intensity %d", g.InferredDirectCodingMode))
	}
	if g.AxisOrder < 0 || g.AxisOrder >= numAxisOrders {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "axis order %d", g.AxisOrder))
	}
	for k, th := range g.PlanarThreshold {
		if th < 0 || th > 127 {
			err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "planar threshold %d = %d", k, th))
		}
	}
	if g.QtBtEnabled && (g.QtBt.MaxNumQtBtBeforeOt < 0 || g.QtBt.MinQtbtSizeLog2 < 0) {
		err = multierr.Append(err, errors.Wrap(ErrInvalidConfig, "negative qtbt limits"))
	}
	if !g.AngularEnabled {
		return err
	}
	a := &g.Angular
	n := a.NumLasers()
	if n < 2 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "angular mode needs at least 2 lasers, got %d", n))
	}
	if n > 255 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "%d lasers exceed 255", n))
	}
	if len(a.ZLaser) != n || len(a.NumPhiPerTurn) != n {
		err = multierr.Append(err, errors.Wrap(ErrInvalidConfig, "laser tables have different lengths"))
	}
	for i := 1; i < n; i++ {
		if a.ThetaLaser[i] < a.ThetaLaser[i-1] {
			err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "laser elevations not sorted at %d", i))
			break
		}
	}
	for i, phi := range a.NumPhiPerTurn {
		if phi <= 0 {
			err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "laser %d has %d azimuth steps", i, phi))
		}
	}
	if !g.PlanarEnabled {
		err = multierr.Append(err, errors.Wrap(ErrInvalidConfig, "angular mode requires planar mode"))
	}
	return err
}

// GeometryBrickHeader carries the per-slice geometry settings.
type GeometryBrickHeader struct {
	// RootNodeSizeLog2 is the per-axis log2 size of the slice bounding box.
	RootNodeSizeLog2 [3]int `json:"rootNodeSizeLog2"`

	// Origin is added to every decoded position.
	Origin [3]int32 `json:"origin"`

	// NumPoints is the number of points coded in the slice.
	NumPoints int `json:"numPoints"`
}

// Validate checks the header.
func (h *GeometryBrickHeader) Validate() error {
	var err error
	for k, s := range h.RootNodeSizeLog2 {
		if s < 0 || s > 21 {
			err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "root size log2 %d on axis %d", s, k))
		}
	}
	if h.NumPoints < 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, "negative point count %d", h.NumPoints))
	}
	return err
}
