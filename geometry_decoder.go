package gpcc

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DecodeGeometry decodes the positions of one slice. Positions are
// relative to the slice origin and in coded axis order, listed in the
// order the tree emits them. ctx is updated in place.
func DecodeGeometry(
	gps *GeometryParams, gbh *GeometryBrickHeader, payload []byte, ctx *GeometryContexts, logger *zap.SugaredLogger,
) ([][3]int32, error) {
	if err := multierr.Combine(gps.Validate(), gbh.Validate()); err != nil {
		return nil, errors.Wrap(err, "geometry")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	mq := newMQDecoder(payload)
	w := newOctreeWalker(gps, gbh, ctx, geometryBinDecoder{mq: mq}, logger)
	w.run()
	logger.Debugw("geometry decoded", "points", len(w.out), "bytes", len(payload), "consumed", min(mq.Position(), len(payload)))
	return w.out, nil
}
