package gpcc

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// EncodeGeometry codes the positions of one slice, given relative to the
// slice origin. It returns the payload and the positions in the order
// DecodeGeometry reproduces them. ctx is updated in place.
func EncodeGeometry(
	gps *GeometryParams, gbh *GeometryBrickHeader, points [][3]int32, ctx *GeometryContexts, logger *zap.SugaredLogger,
) ([]byte, [][3]int32, error) {
	if err := multierr.Combine(gps.Validate(), gbh.Validate()); err != nil {
		return nil, nil, errors.Wrap(err, "geometry")
	}
	if gbh.NumPoints != len(points) {
		return nil, nil, errors.Wrapf(ErrPointCountMismatch, "header has %d points, got %d", gbh.NumPoints, len(points))
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	seen := make(map[[3]int32]struct{}, len(points))
	for i, p := range points {
		for k := range 3 {
			if p[k] < 0 || p[k] >= 1<<gbh.RootNodeSizeLog2[k] {
				return nil, nil, errors.Wrapf(ErrInvalidConfig, "point %d lies outside the root node", i)
			}
		}
		if _, dup := seen[p]; dup && gps.UniquePoints {
			return nil, nil, errors.Wrapf(ErrInvalidConfig, "point %d duplicates an earlier point", i)
		}
		seen[p] = struct{}{}
	}
	if len(points) == 0 {
		return nil, nil, nil
	}

	mq := newMQEncoder()
	w := newOctreeWalker(gps, gbh, ctx, geometryBinEncoder{mq: mq}, logger)
	w.src = append([][3]int32(nil), points...)
	w.run()
	logger.Debugw("geometry encoded", "points", len(w.out), "pending", mq.BytesWritten())
	return mq.Flush(), w.out, nil
}
