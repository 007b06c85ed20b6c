package gpcc

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AttributeSet pairs an attribute with its parameter set.
type AttributeSet struct {
	Desc   AttributeDescription `json:"desc"`
	Params AttributeParams      `json:"params"`
}

// AttributeSlice is the coded data of one attribute in a slice.
type AttributeSlice struct {
	// Index selects the attribute in the decoder's attribute list.
	Index   int
	Header  AttributeBrickHeader
	Payload []byte
}

// Slice is an independently decodable part of a frame.
type Slice struct {
	ID              int
	Geometry        GeometryBrickHeader
	GeometryPayload []byte
	Attributes      []AttributeSlice

	// ContinueEntropy starts the slice from the contexts left by the
	// previously decoded slice instead of fresh ones.
	ContinueEntropy bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for decode diagnostics.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// WithAttributes sets the attributes coded in each slice.
func WithAttributes(attrs ...AttributeSet) Option {
	return func(d *Decoder) {
		d.attrs = append(d.attrs, attrs...)
	}
}

// Decoder decodes the slices of a sequence sharing one geometry
// parameter set.
type Decoder struct {
	gps    GeometryParams
	attrs  []AttributeSet
	logger *zap.SugaredLogger

	// contexts left by the last sequentially decoded slice
	mu      sync.Mutex
	geomCtx *GeometryContexts
	attrCtx map[int]AttributeContexts
}

// NewDecoder returns a decoder for slices coded with gps.
func NewDecoder(gps GeometryParams, opts ...Option) (*Decoder, error) {
	d := &Decoder{
		gps:     gps,
		logger:  zap.NewNop().Sugar(),
		attrCtx: map[int]AttributeContexts{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.gps.Validate(); err != nil {
		return nil, errors.Wrap(err, "geometry parameters")
	}
	for i := range d.attrs {
		a := &d.attrs[i]
		if err := a.Desc.Validate(); err != nil {
			return nil, errors.Wrapf(err, "attribute %d", i)
		}
		if err := a.Params.Validate(); err != nil {
			return nil, errors.Wrapf(err, "attribute %d parameters", i)
		}
	}
	return d, nil
}

// sliceState is the entropy state a slice starts from and ends with.
type sliceState struct {
	geom *GeometryContexts
	attr map[int]AttributeContexts
}

func (d *Decoder) startState(s *Slice) sliceState {
	st := sliceState{geom: NewGeometryContexts(), attr: map[int]AttributeContexts{}}
	if !s.ContinueEntropy {
		return st
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.geomCtx != nil {
		st.geom = d.geomCtx.Clone()
	}
	for k, v := range d.attrCtx {
		st.attr[k] = v
	}
	return st
}

func (d *Decoder) saveState(st sliceState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.geomCtx = st.geom
	d.attrCtx = st.attr
}

// DecodeSlice decodes geometry then each attribute of s. The contexts
// at the end of the slice are kept for a following slice that continues
// them.
func (d *Decoder) DecodeSlice(ctx context.Context, s *Slice) (*PointCloud, error) {
	st := d.startState(s)
	cloud, err := d.decodeSlice(ctx, s, st)
	if err != nil {
		return nil, err
	}
	d.saveState(st)
	return cloud, nil
}

func (d *Decoder) decodeSlice(ctx context.Context, s *Slice, st sliceState) (*PointCloud, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := d.logger.With("slice", s.ID)

	positions, err := DecodeGeometry(&d.gps, &s.Geometry, s.GeometryPayload, st.geom, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "slice %d", s.ID)
	}
	cloud := NewPointCloud(len(positions))
	copy(cloud.Positions, positions)
	logger.Debugw("slice geometry", "points", cloud.Size(), "expected", s.Geometry.NumPoints)

	attrDec := NewAttributeDecoder(logger)
	for _, as := range s.Attributes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if as.Index < 0 || as.Index >= len(d.attrs) {
			return nil, errors.Wrapf(ErrInvalidConfig, "slice %d references attribute %d of %d", s.ID, as.Index, len(d.attrs))
		}
		attr := &d.attrs[as.Index]
		actx, ok := st.attr[as.Index]
		if !ok {
			actx = NewAttributeContexts()
		}
		header := as.Header
		actx, err = attrDec.Decode(&attr.Desc, &attr.Params, &header, as.Payload, actx, cloud)
		if err != nil {
			return nil, errors.Wrapf(err, "slice %d attribute %d", s.ID, as.Index)
		}
		st.attr[as.Index] = actx
	}

	for i, p := range cloud.Positions {
		for k := range 3 {
			p[k] += s.Geometry.Origin[k]
		}
		cloud.Positions[i] = d.gps.AxisOrder.ToXYZ(p)
	}
	return cloud, nil
}

// DecodeSlices decodes every slice and returns their clouds in order.
// Slices are decoded in parallel unless one of them continues the
// entropy state of its predecessor. Either way the state at the end of
// the last slice is kept, as after DecodeSlice.
func (d *Decoder) DecodeSlices(ctx context.Context, slices []*Slice) ([]*PointCloud, error) {
	if len(slices) == 0 {
		return nil, ErrEmptySlice
	}
	clouds := make([]*PointCloud, len(slices))

	sequential := false
	for _, s := range slices {
		sequential = sequential || s.ContinueEntropy
	}
	if sequential {
		for i, s := range slices {
			cloud, err := d.DecodeSlice(ctx, s)
			if err != nil {
				return nil, err
			}
			clouds[i] = cloud
		}
		return clouds, nil
	}

	states := make([]sliceState, len(slices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range slices {
		g.Go(func() error {
			states[i] = d.startState(s)
			cloud, err := d.decodeSlice(gctx, s, states[i])
			if err != nil {
				return err
			}
			clouds[i] = cloud
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	d.saveState(states[len(states)-1])
	d.logger.Debugw("decoded slices", "slices", len(slices), "parallel", true)
	return clouds, nil
}

// DecodeFrame decodes slices and merges them into one cloud.
func (d *Decoder) DecodeFrame(ctx context.Context, slices []*Slice) (*PointCloud, error) {
	clouds, err := d.DecodeSlices(ctx, slices)
	if err != nil {
		return nil, err
	}
	frame := NewPointCloud(0)
	for _, c := range clouds {
		frame.Append(c)
	}
	return frame, nil
}
